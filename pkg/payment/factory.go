package payment

import (
	"fmt"
	"math"
	"reflect"
	"sort"

	"github.com/go-viper/mapstructure/v2"
)

const (
	// TypeKey names the concrete type a mapping should be constructed as.
	TypeKey = "type"
	// GatewayKey carries the owning gateway into merchant constructors.
	GatewayKey = "gateway"
)

// Attributes is a configuration mapping used to construct merchants,
// checkout instances and HTTP clients.
type Attributes map[string]any

// Type returns the type identifier stored under TypeKey, if any.
func (a Attributes) Type() (string, bool) {
	t, ok := a[TypeKey].(string)
	return t, ok && t != ""
}

// Gateway returns the owning gateway injected under GatewayKey.
func (a Attributes) Gateway() *Gateway {
	g, _ := a[GatewayKey].(*Gateway)
	return g
}

// Clone returns a shallow copy.
func (a Attributes) Clone() Attributes {
	c := make(Attributes, len(a)+2)
	for k, v := range a {
		c[k] = v
	}
	return c
}

// Decode decodes the attributes into dst using mapstructure tags. Duration
// strings such as "10s" are accepted for time.Duration fields, and the type
// and gateway keys are skipped.
func (a Attributes) Decode(dst any) error {
	input := make(map[string]any, len(a))
	for k, v := range a {
		if k == TypeKey || k == GatewayKey {
			continue
		}
		input[k] = v
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           dst,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			exactFloatToIntHookFunc(),
		),
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

// exactFloatToIntHookFunc rejects floats with a fractional part bound for
// integer fields. JSON numbers arrive as float64 and amounts must not be
// truncated.
func exactFloatToIntHookFunc() mapstructure.DecodeHookFuncKind {
	return func(from, to reflect.Kind, data any) (any, error) {
		if from != reflect.Float32 && from != reflect.Float64 {
			return data, nil
		}
		switch to {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		default:
			return data, nil
		}
		f := reflect.ValueOf(data).Float()
		if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
			return nil, fmt.Errorf("cannot use %v as an integer without losing precision", data)
		}
		return data, nil
	}
}

// Constructor builds a T from its attributes.
type Constructor[T any] func(attrs Attributes) (T, error)

// Factory is the construction service: it maps type identifiers to
// constructors for one capability (merchants, instances, HTTP clients).
type Factory[T any] struct {
	kind         string
	constructors map[string]Constructor[T]
}

// NewFactory creates an empty factory. kind is used in error messages.
func NewFactory[T any](kind string) *Factory[T] {
	return &Factory[T]{
		kind:         kind,
		constructors: make(map[string]Constructor[T]),
	}
}

// Register registers a constructor under typeName, replacing any previous one.
func (f *Factory[T]) Register(typeName string, c Constructor[T]) *Factory[T] {
	f.constructors[typeName] = c
	return f
}

// Has reports whether typeName is registered.
func (f *Factory[T]) Has(typeName string) bool {
	_, ok := f.constructors[typeName]
	return ok
}

// Types returns the registered type identifiers, sorted.
func (f *Factory[T]) Types() []string {
	types := make([]string, 0, len(f.constructors))
	for t := range f.constructors {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Create constructs a T from attrs. Construction failures are reported as
// ErrInvalidConfiguration.
func (f *Factory[T]) Create(attrs Attributes) (T, error) {
	var zero T

	typeName, ok := attrs.Type()
	if !ok {
		return zero, invalidConfiguration(fmt.Sprintf("%s descriptor has no %q", f.kind, TypeKey), nil)
	}
	c, ok := f.constructors[typeName]
	if !ok {
		return zero, invalidConfiguration(fmt.Sprintf("unknown %s type %q", f.kind, typeName), nil)
	}

	v, err := c(attrs)
	if err != nil {
		return zero, invalidConfiguration(fmt.Sprintf("construct %s %q", f.kind, typeName), err)
	}
	return v, nil
}
