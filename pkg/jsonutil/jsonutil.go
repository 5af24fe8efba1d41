// Package jsonutil is the JSON codec used on every wire boundary.
// It wraps github.com/go-json-experiment/json with the options the control
// surface depends on: deterministic map ordering (stable ETags and
// byte-identical snapshots) and bounded reads of request bodies.
//
// Usage:
//
//	data, err := jsonutil.Marshal(surface)
//	err := jsonutil.DecodeBody(r.Body, defaults.MaxRequestBody, &req)
package jsonutil

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

var (
	// ErrEmptyBody is returned by DecodeBody when the reader yields no bytes.
	ErrEmptyBody = errors.New("jsonutil: empty body")

	// ErrBodyTooLarge is returned by DecodeBody when the body exceeds its limit.
	ErrBodyTooLarge = errors.New("jsonutil: body too large")
)

// Marshal returns the deterministic JSON encoding of v.
func Marshal(v any) ([]byte, error) {
	return json.Marshal(v, json.Deterministic(true))
}

// MarshalIndent returns the indented, deterministic JSON encoding of v.
func MarshalIndent(v any, indent string) ([]byte, error) {
	return json.Marshal(v, json.Deterministic(true), jsontext.WithIndent(indent))
}

// Unmarshal parses the JSON-encoded data and stores the result in v.
func Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// DecodeBody reads at most limit bytes from r and unmarshals them into v.
func DecodeBody(r io.Reader, limit int64, v any) error {
	if r == nil {
		return ErrEmptyBody
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return fmt.Errorf("jsonutil: reading body: %w", err)
	}
	if int64(len(data)) > limit {
		return ErrBodyTooLarge
	}
	if len(data) == 0 {
		return ErrEmptyBody
	}
	return json.Unmarshal(data, v)
}

// Encoder writes newline-terminated JSON values to a stream.
type Encoder struct {
	w      io.Writer
	indent string
}

// NewStreamEncoder creates an encoder that writes to w.
func NewStreamEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// SetIndent formats each subsequent value with the given indentation.
func (e *Encoder) SetIndent(indent string) {
	e.indent = indent
}

// Encode writes the JSON encoding of v followed by a newline.
func (e *Encoder) Encode(v any) error {
	opts := []json.Options{json.Deterministic(true)}
	if e.indent != "" {
		opts = append(opts, jsontext.WithIndent(e.indent))
	}
	if err := json.MarshalWrite(e.w, v, opts...); err != nil {
		return err
	}
	_, err := e.w.Write([]byte{'\n'})
	return err
}
