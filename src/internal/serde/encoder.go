// Package serde writes structured command output as JSON or YAML.
package serde

import (
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"github.com/pachyderm/csi/src/internal/errors"
)

// Encoder writes values in one output format.
type Encoder interface {
	// Encode writes v.
	Encode(v interface{}) error
}

var (
	_ Encoder = (*YAMLEncoder)(nil)
	_ Encoder = (*JSONEncoder)(nil)
)

type encoderOptions struct {
	indent int
}

// EncoderOption configures an Encoder.
type EncoderOption func(*encoderOptions)

// WithIndent sets the number of spaces used for each level of nesting.
func WithIndent(n int) EncoderOption {
	return func(o *encoderOptions) {
		o.indent = n
	}
}

func newEncoderOptions(options []EncoderOption) encoderOptions {
	var o encoderOptions
	for _, opt := range options {
		opt(&o)
	}
	return o
}

func parseUint(s string) (uint64, bool) {
	u, err := strconv.ParseUint(s, 10, 64)
	return u, err == nil
}

// GetEncoder returns an Encoder for format, which is "json" or "yaml".
func GetEncoder(format string, w io.Writer, options ...EncoderOption) (Encoder, error) {
	switch strings.ToLower(format) {
	case "json":
		return NewJSONEncoder(w, options...), nil
	case "yaml", "yml":
		return NewYAMLEncoder(w, options...), nil
	}
	return nil, errors.Errorf("unrecognized output format %q (must be json or yaml)", format)
}

// JSONEncoder is an implementation of serde.Encoder that writes JSON.
type JSONEncoder struct {
	e *json.Encoder
}

// NewJSONEncoder returns a new JSONEncoder that writes to 'w'
func NewJSONEncoder(w io.Writer, options ...EncoderOption) *JSONEncoder {
	e := &JSONEncoder{e: json.NewEncoder(w)}
	if o := newEncoderOptions(options); o.indent > 0 {
		e.e.SetIndent("", strings.Repeat(" ", o.indent))
	}
	return e
}

// Encode implements the corresponding method of serde.Encoder
func (e *JSONEncoder) Encode(v interface{}) error {
	return errors.EnsureStack(e.e.Encode(v))
}
