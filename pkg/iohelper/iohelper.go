// Package iohelper provides helpers for reading HTTP bodies with size limits.
package iohelper

import (
	"errors"
	"fmt"
	"io"
)

// Standard body size limits.
const (
	// SmallMaxBodySize is for error envelopes and status pages (8KB).
	SmallMaxBodySize int64 = 8 * 1024

	// DefaultMaxBodySize is for request bodies (1MB).
	DefaultMaxBodySize int64 = 1024 * 1024

	// LargeMaxBodySize is for control surface snapshots and reports (8MB).
	LargeMaxBodySize int64 = 8 * 1024 * 1024
)

// ErrTooLarge is returned by ReadBodyStrict when the body exceeds the limit.
var ErrTooLarge = errors.New("iohelper: body exceeds size limit")

// ReadBody reads from r up to maxSize bytes and silently truncates the
// rest. A nil reader yields an empty slice.
func ReadBody(r io.Reader, maxSize int64) ([]byte, error) {
	if r == nil {
		return []byte{}, nil
	}
	return io.ReadAll(io.LimitReader(r, maxSize))
}

// ReadBodyStrict is like ReadBody but fails with ErrTooLarge instead of
// truncating.
func ReadBodyStrict(r io.Reader, maxSize int64) ([]byte, error) {
	if r == nil {
		return []byte{}, nil
	}
	data, err := io.ReadAll(io.LimitReader(r, maxSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxSize {
		return nil, fmt.Errorf("%w (%d bytes)", ErrTooLarge, maxSize)
	}
	return data, nil
}

// ReadBodySmall reads with the 8KB limit.
func ReadBodySmall(r io.Reader) ([]byte, error) {
	return ReadBody(r, SmallMaxBodySize)
}

// DrainAndClose reads any remaining data from r and closes it if it's a
// ReadCloser so the connection can be reused. Always returns nil to allow
// use in defer.
func DrainAndClose(r io.Reader) error {
	if r == nil {
		return nil
	}

	// Drain at most 64KB.
	_, _ = io.Copy(io.Discard, io.LimitReader(r, 64*1024))

	if rc, ok := r.(io.ReadCloser); ok {
		rc.Close()
	}
	return nil
}
