package cmdutil

import (
	"context"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/docker/go-units"

	"github.com/pachyderm/csi/src/internal/errors"
)

// Decoder decodes an env file.
type Decoder interface {
	Decode() (map[string]string, error)
}

// Populate populates an object with environment variables.
//
// The environment has precedence over the decoders, earlier
// decoders have precedence over later decoders.
func Populate(object interface{}, decoders ...Decoder) error {
	return populate(object, decoders)
}

// Main runs the common functionality needed in a go main function.
// appEnv (a pointer to a struct with env tags) is populated and passed to do.
// If there is an error, os.Exit(1) is called.
func Main[T any](ctx context.Context, do func(context.Context, T) error, appEnv T, decoders ...Decoder) {
	if err := Populate(appEnv, decoders...); err != nil {
		mainError(err)
	}
	if err := do(ctx, appEnv); err != nil {
		mainError(err)
	}
	os.Exit(0)
}

func mainError(err error) {
	ErrorAndExit("%v", err)
}

const (
	cannotParseErr              = "cannot parse"
	envKeyNotSetWhenRequiredErr = "env key not set when required"
	expectedPointerErr          = "expected pointer"
	expectedStructErr           = "expected struct"
	fieldTypeNotAllowedErr      = "field type not allowed"
	invalidTagErr               = "invalid tag, must be KEY,{required},{default=DEFAULT_VALUE}"
)

// ByteSize is a size in bytes that is configured in human-readable form, e.g. "64MiB" or "1g".
type ByteSize int64

// ParseByteSize parses a human-readable size.  Units are powers of 1024.
func ParseByteSize(s string) (ByteSize, error) {
	n, err := units.RAMInBytes(s)
	if err != nil {
		return 0, errors.EnsureStack(err)
	}
	if n < 0 {
		return 0, errors.Errorf("size must not be negative, got %q", s)
	}
	return ByteSize(n), nil
}

func (b ByteSize) String() string {
	return units.BytesSize(float64(b))
}

// These are types that we parse with a dedicated function instead of by kind (or, for structs,
// without recursing into them).
var knownTypes = map[reflect.Type]func(string) (any, error){
	reflect.TypeOf(ByteSize(0)): func(x string) (any, error) {
		return ParseByteSize(x)
	},
	reflect.TypeOf(time.Duration(0)): func(x string) (any, error) {
		return time.ParseDuration(x) //nolint:wrapcheck
	},
}

func populate(object interface{}, decoders []Decoder) error {
	decoded, err := decodeAll(decoders)
	if err != nil {
		return err
	}
	v := reflect.ValueOf(object)
	if v.Kind() != reflect.Ptr {
		return errors.Errorf("%s: %v", expectedPointerErr, v.Type())
	}
	return populateStruct(v.Elem(), func(key string) string {
		if value := os.Getenv(key); value != "" {
			return value
		}
		return decoded[key]
	})
}

// populateStruct sets every env-tagged field of v, recursing into nested structs that are not
// known types.  lookup returns "" for an unset key.
func populateStruct(v reflect.Value, lookup func(key string) string) error {
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			v.Set(reflect.New(v.Type().Elem()))
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return errors.Errorf("%s: %v", expectedStructErr, v.Type())
	}
	for i := 0; i < v.NumField(); i++ {
		field := v.Type().Field(i)
		_, known := knownTypes[field.Type]
		nested := field.Type.Kind() == reflect.Struct ||
			(field.Type.Kind() == reflect.Ptr && field.Type.Elem().Kind() == reflect.Struct)
		if nested && !known {
			if err := populateStruct(v.Field(i), lookup); err != nil {
				return err
			}
			continue
		}
		tag, err := parseEnvTag(field)
		if err != nil {
			return err
		}
		if tag == nil {
			continue
		}
		value := lookup(tag.key)
		if value == "" {
			value = tag.defaultValue
		}
		if value == "" {
			if tag.required {
				return errors.Errorf("%s: %s %v", envKeyNotSetWhenRequiredErr, tag.key, v.Type())
			}
			continue
		}
		if err := setField(v.Field(i), value); err != nil {
			return errors.Wrapf(err, "%s %s", cannotParseErr, tag.key)
		}
	}
	return nil
}

// decodeAll merges the decoders' maps; earlier decoders win.
func decodeAll(decoders []Decoder) (map[string]string, error) {
	env := make(map[string]string)
	for _, decoder := range decoders {
		subEnv, err := decoder.Decode()
		if err != nil {
			return nil, errors.EnsureStack(err)
		}
		for key, value := range subEnv {
			if _, ok := env[key]; !ok && value != "" {
				env[key] = value
			}
		}
	}
	return env, nil
}

type envTag struct {
	key          string
	required     bool
	defaultValue string
}

func parseEnvTag(field reflect.StructField) (*envTag, error) {
	tag := field.Tag.Get("env")
	if tag == "" {
		return nil, nil
	}
	key, opt, hasOpt := strings.Cut(tag, ",")
	t := &envTag{key: key}
	if !hasOpt {
		return t, nil
	}
	name, value, hasValue := strings.Cut(strings.TrimSpace(opt), "=")
	switch {
	case name == "required":
		t.required = true
	case name == "default" && hasValue:
		t.defaultValue = value
	default:
		return nil, errors.Errorf("%s: %s", invalidTagErr, tag)
	}
	return t, nil
}

func setField(f reflect.Value, value string) error {
	if parse, ok := knownTypes[f.Type()]; ok {
		x, err := parse(value)
		if err != nil {
			return err
		}
		f.Set(reflect.ValueOf(x).Convert(f.Type()))
		return nil
	}
	switch f.Kind() {
	case reflect.String:
		f.SetString(value)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return errors.EnsureStack(err)
		}
		f.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, f.Type().Bits())
		if err != nil {
			return errors.EnsureStack(err)
		}
		f.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(value, 10, f.Type().Bits())
		if err != nil {
			return errors.EnsureStack(err)
		}
		f.SetUint(n)
	case reflect.Float32, reflect.Float64:
		x, err := strconv.ParseFloat(value, f.Type().Bits())
		if err != nil {
			return errors.EnsureStack(err)
		}
		f.SetFloat(x)
	default:
		return errors.Errorf("%s: %v", fieldTypeNotAllowedErr, f.Kind())
	}
	return nil
}
