package iohelper

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestReadBody_NilReader(t *testing.T) {
	body, err := ReadBody(nil, DefaultMaxBodySize)
	if err != nil {
		t.Errorf("Expected no error for nil reader, got %v", err)
	}
	if len(body) != 0 {
		t.Errorf("Expected empty body for nil reader, got %d bytes", len(body))
	}
}

func TestReadBody_RespectsLimit(t *testing.T) {
	body, err := ReadBody(strings.NewReader(strings.Repeat("x", 1000)), 100)
	if err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if len(body) != 100 {
		t.Errorf("Expected 100 bytes (limit), got %d", len(body))
	}
}

func TestReadBodyStrict(t *testing.T) {
	body, err := ReadBodyStrict(strings.NewReader("exact"), 5)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if string(body) != "exact" {
		t.Errorf("Expected 'exact', got %q", body)
	}

	_, err = ReadBodyStrict(strings.NewReader("too long"), 5)
	if !errors.Is(err, ErrTooLarge) {
		t.Errorf("Expected ErrTooLarge, got %v", err)
	}
}

func TestReadBodySmall(t *testing.T) {
	data := strings.Repeat("y", int(SmallMaxBodySize)+10)
	body, err := ReadBodySmall(strings.NewReader(data))
	if err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if int64(len(body)) != SmallMaxBodySize {
		t.Errorf("Expected %d bytes, got %d", SmallMaxBodySize, len(body))
	}
}

type trackingCloser struct {
	io.Reader
	closed bool
}

func (c *trackingCloser) Close() error {
	c.closed = true
	return nil
}

func TestDrainAndClose(t *testing.T) {
	rc := &trackingCloser{Reader: strings.NewReader("leftover")}
	if err := DrainAndClose(rc); err != nil {
		t.Errorf("Expected nil error, got %v", err)
	}
	if !rc.closed {
		t.Error("Expected reader to be closed")
	}
	if err := DrainAndClose(nil); err != nil {
		t.Errorf("Expected nil error for nil reader, got %v", err)
	}
}
