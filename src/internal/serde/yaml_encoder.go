// yaml_encoder.go writes YAML by way of JSON:
//  1. Serialize the value to JSON using encoding/json
//  2. Deserialize that text into a generic interface{}
//  3. Serialize the generic value using gopkg.in/yaml.v3
//
// This makes YAML output honor the same field names, omitempty rules, and MarshalJSON methods
// as JSON output.
package serde

import (
	"bytes"
	"encoding/json"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/pachyderm/csi/src/internal/errors"
)

// YAMLEncoder is an implementation of serde.Encoder that operates on YAML data
type YAMLEncoder struct {
	e *yaml.Encoder
}

// EncodeYAML is a convenience function that encodes yaml data using a
// YAMLEncoder, but can be called inline
func EncodeYAML(v interface{}, options ...EncoderOption) ([]byte, error) {
	var buf bytes.Buffer
	if err := NewYAMLEncoder(&buf, options...).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// NewYAMLEncoder returns a new YAMLEncoder that writes to 'w'
func NewYAMLEncoder(w io.Writer, options ...EncoderOption) *YAMLEncoder {
	e := &YAMLEncoder{e: yaml.NewEncoder(w)}
	if o := newEncoderOptions(options); o.indent > 0 {
		e.e.SetIndent(o.indent)
	}
	return e
}

// Encode implements the corresponding method of serde.Encoder.  Each value is written as its
// own YAML document.
func (e *YAMLEncoder) Encode(v interface{}) error {
	intermediate, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "serialization error while canonicalizing output")
	}
	var holder interface{}
	d := json.NewDecoder(bytes.NewReader(intermediate))
	// Keep large integers, like virtual positions, exact.
	d.UseNumber()
	if err := d.Decode(&holder); err != nil {
		return errors.Wrapf(err, "deserialization error while canonicalizing output")
	}
	if err := e.e.Encode(numbersToYAML(holder)); err != nil {
		return errors.Wrapf(err, "serialization error while canonicalizing yaml")
	}
	return nil
}

// numbersToYAML replaces json.Numbers, which yaml would quote as strings, with integers or
// floats.
func numbersToYAML(v interface{}) interface{} {
	switch v := v.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		if u, ok := parseUint(v.String()); ok {
			return u
		}
		f, _ := v.Float64()
		return f
	case map[string]interface{}:
		for k, x := range v {
			v[k] = numbersToYAML(x)
		}
	case []interface{}:
		for i, x := range v {
			v[i] = numbersToYAML(x)
		}
	}
	return v
}
