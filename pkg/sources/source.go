// Package sources contains the address directories the collector pulls from.
//
// Every Source swallows its own transport and decode failures: Fetch logs and
// returns an empty slice so one unavailable directory never blocks the others.
package sources

import (
	"context"

	"github.com/chainsafe/wallet-indexer/pkg/address"
)

// Source is an address directory.
type Source interface {
	Name() address.Source
	Fetch(ctx context.Context) []*address.Address
}

// Entry is a raw directory record before filtering.
type Entry struct {
	Address string
	Chain   string
	Network string
}

// Normalize keeps entries on supported chains and networks, lower-cases them and
// stamps them with source. Unsupported entries are dropped silently.
func Normalize(source address.Source, entries []Entry) []*address.Address {
	out := make([]*address.Address, 0, len(entries))
	for _, e := range entries {
		if e.Address == "" {
			continue
		}
		chain, ok := address.ParseChain(e.Chain)
		if !ok {
			continue
		}
		if _, ok := address.ParseNetwork(e.Network); !ok {
			continue
		}
		out = append(out, address.New(e.Address, source, chain))
	}
	return out
}
