package payment

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
)

// Merchant is a merchant account attached to a gateway.
type Merchant interface {
	// ID returns the provider-side merchant identifier.
	ID() string
	// Gateway returns the gateway the merchant was resolved by. The
	// gateway does not belong to the merchant.
	Gateway() *Gateway
}

// BaseMerchant is embeddable by concrete merchants. Constructors should
// call Bind with attrs.Gateway().
type BaseMerchant struct {
	MerchantID string `mapstructure:"id" json:"id"`

	gateway *Gateway
}

func (m *BaseMerchant) ID() string        { return m.MerchantID }
func (m *BaseMerchant) Gateway() *Gateway { return m.gateway }

// Bind sets the owning gateway.
func (m *BaseMerchant) Bind(g *Gateway) { m.gateway = g }

type descriptorKind int

const (
	descriptorConstructed descriptorKind = iota + 1
	descriptorByType
	descriptorByConfig
)

// MerchantDescriptor is a registry entry: an already constructed merchant,
// a type identifier, or a configuration mapping.
type MerchantDescriptor struct {
	kind     descriptorKind
	merchant Merchant
	typeName string
	attrs    Attributes
}

// Constructed wraps an already built merchant.
func Constructed(m Merchant) MerchantDescriptor {
	return MerchantDescriptor{kind: descriptorConstructed, merchant: m}
}

// ByType describes a merchant by type identifier only.
func ByType(typeName string) MerchantDescriptor {
	return MerchantDescriptor{kind: descriptorByType, typeName: typeName}
}

// ByConfig describes a merchant by configuration mapping.
func ByConfig(attrs Attributes) MerchantDescriptor {
	return MerchantDescriptor{kind: descriptorByConfig, attrs: attrs}
}

// DescriptorOf coerces a merchant, a type identifier string or a
// configuration mapping into a descriptor.
func DescriptorOf(v any) (MerchantDescriptor, error) {
	switch d := v.(type) {
	case MerchantDescriptor:
		return d, nil
	case Merchant:
		if isNil(d) {
			return MerchantDescriptor{}, invalidConfiguration("nil merchant", nil)
		}
		return Constructed(d), nil
	case string:
		return ByType(d), nil
	case Attributes:
		return ByConfig(d), nil
	case map[string]any:
		return ByConfig(Attributes(d)), nil
	default:
		return MerchantDescriptor{}, invalidConfiguration(fmt.Sprintf("unsupported merchant descriptor %T", v), nil)
	}
}

// Merchant returns the constructed merchant, or nil when unresolved.
func (d MerchantDescriptor) Merchant() Merchant { return d.merchant }

// Resolved reports whether the descriptor holds a constructed merchant.
func (d MerchantDescriptor) Resolved() bool { return d.kind == descriptorConstructed }

// TypeName returns the type identifier for ByType and typed ByConfig descriptors.
func (d MerchantDescriptor) TypeName() string {
	switch d.kind {
	case descriptorByType:
		return d.typeName
	case descriptorByConfig:
		t, _ := d.attrs.Type()
		return t
	}
	return ""
}

func (d MerchantDescriptor) resolve(g *Gateway, f *Factory[Merchant]) (Merchant, error) {
	var (
		m   Merchant
		err error
	)
	switch d.kind {
	case descriptorConstructed:
		m = d.merchant
	case descriptorByType:
		m, err = f.Create(Attributes{TypeKey: d.typeName, GatewayKey: g})
	case descriptorByConfig:
		attrs := d.attrs.Clone()
		if attrs.Gateway() == nil {
			attrs[GatewayKey] = g
		}
		m, err = f.Create(attrs)
	default:
		return nil, invalidConfiguration("empty merchant descriptor", nil)
	}
	if err != nil {
		return nil, err
	}
	if isNil(m) {
		return nil, invalidConfiguration("merchant descriptor resolved to nil", nil)
	}
	return m, nil
}

// isNil reports whether v is nil or an interface holding a nil pointer.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// MerchantEntry is one ordered registry entry.
type MerchantEntry struct {
	ID         any
	Descriptor MerchantDescriptor
}

// merchantKey is the normalised registry key: integer keys and canonical
// decimal strings collapse to the same key.
type merchantKey struct {
	str   string
	num   int
	isNum bool
}

func (k merchantKey) value() any {
	if k.isNum {
		return k.num
	}
	return k.str
}

func normalizeMerchantID(id any) (merchantKey, error) {
	switch v := id.(type) {
	case string:
		if n, err := strconv.Atoi(v); err == nil && strconv.Itoa(n) == v {
			return merchantKey{num: n, isNum: true}, nil
		}
		return merchantKey{str: v}, nil
	case int:
		return merchantKey{num: v, isNum: true}, nil
	case int8:
		return merchantKey{num: int(v), isNum: true}, nil
	case int16:
		return merchantKey{num: int(v), isNum: true}, nil
	case int32:
		return merchantKey{num: int(v), isNum: true}, nil
	case int64:
		if v > math.MaxInt || v < math.MinInt {
			return merchantKey{}, invalidArgument("merchant key overflows int")
		}
		return merchantKey{num: int(v), isNum: true}, nil
	case uint:
		return unsignedKey(uint64(v))
	case uint8:
		return unsignedKey(uint64(v))
	case uint16:
		return unsignedKey(uint64(v))
	case uint32:
		return unsignedKey(uint64(v))
	case uint64:
		return unsignedKey(v)
	default:
		return merchantKey{}, invalidArgument("only string or integer merchant keys are accepted")
	}
}

func unsignedKey(v uint64) (merchantKey, error) {
	if v > math.MaxInt {
		return merchantKey{}, invalidArgument("merchant key overflows int")
	}
	return merchantKey{num: int(v), isNum: true}, nil
}

// merchantRegistry is an insertion-ordered map of descriptors.
type merchantRegistry struct {
	order   []merchantKey
	entries map[merchantKey]MerchantDescriptor
	nextNum int
}

func newMerchantRegistry() *merchantRegistry {
	return &merchantRegistry{entries: make(map[merchantKey]MerchantDescriptor)}
}

func (r *merchantRegistry) set(k merchantKey, d MerchantDescriptor) {
	if _, ok := r.entries[k]; !ok {
		r.order = append(r.order, k)
	}
	r.entries[k] = d
	if k.isNum && k.num >= r.nextNum {
		r.nextNum = k.num + 1
	}
}

func (r *merchantRegistry) add(d MerchantDescriptor) int {
	k := merchantKey{num: r.nextNum, isNum: true}
	r.set(k, d)
	return k.num
}

func (r *merchantRegistry) get(k merchantKey) (MerchantDescriptor, bool) {
	d, ok := r.entries[k]
	return d, ok
}

func (r *merchantRegistry) first() (merchantKey, bool) {
	if len(r.order) == 0 {
		return merchantKey{}, false
	}
	return r.order[0], true
}

func (r *merchantRegistry) keys() []merchantKey {
	keys := make([]merchantKey, len(r.order))
	copy(keys, r.order)
	return keys
}
