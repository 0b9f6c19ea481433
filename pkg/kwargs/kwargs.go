// Package kwargs parses loosely typed argument strings such as
// "n_estimators=10|int, criterion=gini, bootstrap=true" into ordered, typed
// values.
//
// Each comma separated token is key=value or key=value|type where type is
// one of str, int, float or bool (any case). Untyped values are inferred in
// the order bool, int, float, string.
package kwargs

import (
	"fmt"
	"strconv"
	"strings"

	nebulaerrors "github.com/ajitpratap0/nebula-ml/pkg/errors"
	stringpool "github.com/ajitpratap0/nebula-ml/pkg/strings"
)

// Kind is the type tag of a Value
type Kind string

const (
	KindString Kind = "str"
	KindInt    Kind = "int"
	KindFloat  Kind = "float"
	KindBool   Kind = "bool"
)

// ParseKind resolves a type tag, ignoring case and surrounding space
func ParseKind(s string) (Kind, bool) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindString, KindInt, KindFloat, KindBool:
		return k, true
	}
	return "", false
}

// Value is a single typed argument value
type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
	b    bool
}

// StringValue returns a str Value
func StringValue(s string) Value { return Value{kind: KindString, s: s} }

// IntValue returns an int Value
func IntValue(i int64) Value { return Value{kind: KindInt, i: i} }

// FloatValue returns a float Value
func FloatValue(f float64) Value { return Value{kind: KindFloat, f: f} }

// BoolValue returns a bool Value
func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }

// Kind returns the type tag
func (v Value) Kind() Kind { return v.kind }

// Int returns the integer held by an int Value
func (v Value) Int() (int64, bool) {
	if v.kind != KindInt {
		return 0, false
	}
	return v.i, true
}

// Float returns the number held by a float Value. Int values widen.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.f, true
	case KindInt:
		return float64(v.i), true
	}
	return 0, false
}

// Bool returns the flag held by a bool Value
func (v Value) Bool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// String renders the raw value without its type tag
func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return v.s
	}
}

// Format renders value|type so that Parse returns an equal Value
func (v Value) Format() string {
	return v.String() + "|" + string(v.kind)
}

// Coerce converts raw into a Value of the requested kind
func Coerce(raw string, kind Kind) (Value, error) {
	switch kind {
	case KindString:
		return StringValue(raw), nil
	case KindInt:
		i, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Value{}, nebulaerrors.Newf(nebulaerrors.ErrorTypeParse, "value %q is not an int", raw)
		}
		return IntValue(i), nil
	case KindFloat:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Value{}, nebulaerrors.Newf(nebulaerrors.ErrorTypeParse, "value %q is not a float", raw)
		}
		return FloatValue(f), nil
	case KindBool:
		switch strings.ToLower(raw) {
		case "true":
			return BoolValue(true), nil
		case "false":
			return BoolValue(false), nil
		}
		return Value{}, nebulaerrors.Newf(nebulaerrors.ErrorTypeParse, "value %q is not a bool", raw)
	}
	return Value{}, nebulaerrors.Newf(nebulaerrors.ErrorTypeParse, "unknown type %q", string(kind))
}

// Infer picks the first of bool, int, float that accepts raw and falls
// back to str.
func Infer(raw string) Value {
	switch strings.ToLower(raw) {
	case "true":
		return BoolValue(true)
	case "false":
		return BoolValue(false)
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return IntValue(i)
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return FloatValue(f)
	}
	return StringValue(raw)
}

// Args is an insertion ordered map of typed values
type Args struct {
	keys   []string
	values map[string]Value
}

// New returns an empty Args
func New() *Args {
	return &Args{values: make(map[string]Value)}
}

// Parse decodes a comma separated key=value[|type] list. An empty or blank
// input yields empty Args.
func Parse(input string) (*Args, error) {
	args := New()
	for _, token := range stringpool.SplitTrim(input, ",") {
		eq := strings.Index(token, "=")
		if eq < 0 {
			return nil, malformed(token, input, "expected key=value")
		}
		key := strings.TrimSpace(token[:eq])
		if key == "" {
			return nil, malformed(token, input, "empty key")
		}

		raw := strings.TrimSpace(token[eq+1:])
		var value Value
		if bar := strings.LastIndex(raw, "|"); bar >= 0 {
			kind, ok := ParseKind(raw[bar+1:])
			if !ok {
				return nil, malformed(token, input, "unknown type "+strings.TrimSpace(raw[bar+1:]))
			}
			v, err := Coerce(strings.TrimSpace(raw[:bar]), kind)
			if err != nil {
				return nil, nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeParse, "invalid argument "+key).
					WithDetail("token", token).
					WithDetail("input", input)
			}
			value = v
		} else {
			value = Infer(raw)
		}
		args.Set(key, value)
	}
	return args, nil
}

func malformed(token, input, reason string) error {
	return nebulaerrors.Newf(nebulaerrors.ErrorTypeParse, "malformed argument %q: %s", token, reason).
		WithDetail("token", token).
		WithDetail("input", input)
}

// MustParse is Parse that panics on error. Intended for constants and tests.
func MustParse(input string) *Args {
	args, err := Parse(input)
	if err != nil {
		panic(err)
	}
	return args
}

// Set stores v under key. An existing key keeps its position.
func (a *Args) Set(key string, v Value) {
	if a.values == nil {
		a.values = make(map[string]Value)
	}
	if _, ok := a.values[key]; !ok {
		a.keys = append(a.keys, key)
	}
	a.values[key] = v
}

// Get returns the value stored under key
func (a *Args) Get(key string) (Value, bool) {
	if a == nil {
		return Value{}, false
	}
	v, ok := a.values[key]
	return v, ok
}

// Has reports whether key is present
func (a *Args) Has(key string) bool {
	_, ok := a.Get(key)
	return ok
}

// Delete removes key and returns the value it held
func (a *Args) Delete(key string) (Value, bool) {
	if a == nil {
		return Value{}, false
	}
	v, ok := a.values[key]
	if !ok {
		return Value{}, false
	}
	delete(a.values, key)
	for i, k := range a.keys {
		if k == key {
			a.keys = append(a.keys[:i], a.keys[i+1:]...)
			break
		}
	}
	return v, true
}

// Keys returns keys in insertion order
func (a *Args) Keys() []string {
	if a == nil {
		return nil
	}
	out := make([]string, len(a.keys))
	copy(out, a.keys)
	return out
}

// Len returns the number of keys
func (a *Args) Len() int {
	if a == nil {
		return 0
	}
	return len(a.keys)
}

// Clone returns an independent copy
func (a *Args) Clone() *Args {
	out := New()
	if a == nil {
		return out
	}
	for _, k := range a.keys {
		out.Set(k, a.values[k])
	}
	return out
}

// Format renders the arguments in parseable form, e.g. "a=1|int, b=x|str"
func (a *Args) Format() string {
	if a.Len() == 0 {
		return ""
	}
	parts := make([]string, 0, len(a.keys))
	for _, k := range a.keys {
		parts = append(parts, k+"="+a.values[k].Format())
	}
	return stringpool.JoinPooled(parts, ", ")
}

// String implements fmt.Stringer for log output
func (a *Args) String() string {
	return fmt.Sprintf("{%s}", a.Format())
}
