// Package app defines the runtime contract shared by the cmd/* entrypoints.
package app

// Runner is a long-running process started by a binary.
type Runner interface {
	Run() error
}
