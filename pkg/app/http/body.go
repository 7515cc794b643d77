package http

import (
	"errors"
	"fmt"
	"io"
)

// ErrBodyTooLarge is returned when a body exceeds the read limit.
var ErrBodyTooLarge = errors.New("response too large")

// ReadBody reads r up to limit bytes and fails instead of truncating a longer body.
func ReadBody(r io.Reader, limit int64) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, limit)
	}
	return b, nil
}
