package meta

import (
	"encoding"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Value: a dynamically typed value box
// ---------------------------------------------------------------------------

// Value pairs a Go value with its registered type ID.
//
// The zero Value is invalid. A Value holding a non-nil Go value whose type
// is not registered is valid but has type UnknownType; it can be invoked
// directly but cannot be queued.
type Value struct {
	typ TypeID
	v   any
}

// NewValue boxes v as type t.
func NewValue(t TypeID, v any) Value {
	return Value{typ: t, v: v}
}

// ValueOf boxes v with the type ID of its dynamic Go type. A Value argument
// is returned unchanged.
func ValueOf(v any) Value {
	if val, ok := v.(Value); ok {
		return val
	}
	return Value{typ: types.IDOf(v), v: v}
}

// Values boxes each argument with ValueOf.
func Values(args ...any) []Value {
	out := make([]Value, len(args))
	for i, a := range args {
		out[i] = ValueOf(a)
	}
	return out
}

// IsValid reports whether the box holds a typed or non-nil value.
func (v Value) IsValid() bool { return v.typ != UnknownType || v.v != nil }

// Type returns the registered type ID, or UnknownType.
func (v Value) Type() TypeID { return v.typ }

// TypeName returns the registered type name. Unregistered values report
// their Go type.
func (v Value) TypeName() string {
	if v.typ != UnknownType {
		return TypeName(v.typ)
	}
	if v.v == nil {
		return ""
	}
	return reflect.TypeOf(v.v).String()
}

// Interface returns the boxed Go value.
func (v Value) Interface() any { return v.v }

func (v Value) String() string {
	if !v.IsValid() {
		return "<invalid>"
	}
	return fmt.Sprintf("%v", v.v)
}

// Int returns the value converted to int, or 0.
func (v Value) Int() int {
	c, err := v.Convert(Int)
	if err != nil {
		return 0
	}
	n, _ := c.v.(int)
	return n
}

// Text returns the value converted to a string, or "".
func (v Value) Text() string {
	c, err := v.Convert(QString)
	if err != nil {
		return ""
	}
	s, _ := c.v.(string)
	return s
}

// Convert returns the value converted to type t. Numeric kinds convert to
// each other, numbers and bools convert to and from strings, and Go types
// convert when reflection allows it or the target implements
// encoding.TextUnmarshaler.
func (v Value) Convert(t TypeID) (Value, error) {
	if !v.IsValid() {
		return Value{}, fmt.Errorf("%w: invalid value to %s", ErrTypeMismatch, TypeName(t))
	}
	if v.typ == t && v.holds(t) {
		return v, nil
	}
	if t == QVariant {
		return Value{typ: QVariant, v: v}, nil
	}
	if inner, ok := v.v.(Value); ok {
		return inner.Convert(t)
	}

	goType := TypeOf(t)
	if goType == nil {
		return Value{}, fmt.Errorf("%w: no Go type for %q", ErrTypeMismatch, TypeName(t))
	}
	out, err := convertTo(v.v, goType)
	if err != nil {
		return Value{}, fmt.Errorf("%w: %s to %s: %v", ErrTypeMismatch, v.TypeName(), TypeName(t), err)
	}
	return Value{typ: t, v: out}, nil
}

// holds reports whether the boxed Go value is stored as t's Go type. A box
// built with NewValue may carry another Go type under the same id.
func (v Value) holds(t TypeID) bool {
	goType := TypeOf(t)
	if goType == nil || v.v == nil {
		return true
	}
	return reflect.TypeOf(v.v).AssignableTo(goType)
}

// ZeroValue returns the zero value of type t, or an invalid Value when t
// carries no Go type.
func ZeroValue(t TypeID) Value {
	goType := TypeOf(t)
	if goType == nil {
		return Value{}
	}
	return Value{typ: t, v: reflect.Zero(goType).Interface()}
}

var (
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
)

func convertTo(src any, goType reflect.Type) (any, error) {
	if src == nil {
		if canBeNil(goType.Kind()) {
			return reflect.Zero(goType).Interface(), nil
		}
		return nil, fmt.Errorf("nil")
	}
	rv := reflect.ValueOf(src)
	st := rv.Type()
	if st == goType {
		return src, nil
	}
	if st.AssignableTo(goType) {
		out := reflect.New(goType).Elem()
		out.Set(rv)
		return out.Interface(), nil
	}

	sk, tk := st.Kind(), goType.Kind()
	switch {
	case isNumber(sk) && isNumber(tk):
		return rv.Convert(goType).Interface(), nil

	case tk == reflect.Bool && isNumber(sk):
		return reflect.ValueOf(!rv.IsZero()).Convert(goType).Interface(), nil

	case isNumber(tk) && sk == reflect.Bool:
		n := 0
		if rv.Bool() {
			n = 1
		}
		return reflect.ValueOf(n).Convert(goType).Interface(), nil

	case sk == reflect.String && goType.Kind() != reflect.String && reflect.PointerTo(goType).Implements(textUnmarshalerType):
		ptr := reflect.New(goType)
		if err := ptr.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(rv.String())); err != nil {
			return nil, err
		}
		return ptr.Elem().Interface(), nil

	case sk == reflect.String && (isNumber(tk) || tk == reflect.Bool):
		return parseString(rv.String(), goType)

	case tk == reflect.String && (isNumber(sk) || sk == reflect.Bool):
		return reflect.ValueOf(fmt.Sprint(src)).Convert(goType).Interface(), nil

	case tk == reflect.String:
		if m, ok := src.(encoding.TextMarshaler); ok {
			text, err := m.MarshalText()
			if err != nil {
				return nil, err
			}
			return reflect.ValueOf(string(text)).Convert(goType).Interface(), nil
		}

	case sk == reflect.String && tk == reflect.Slice && goType.Elem().Kind() == reflect.String:
		out := reflect.MakeSlice(goType, 1, 1)
		out.Index(0).Set(rv.Convert(goType.Elem()))
		return out.Interface(), nil
	}

	// Reflection conversions, minus int->string (rune) and slice->array.
	if st.ConvertibleTo(goType) && !(isInteger(sk) && tk == reflect.String) && tk != reflect.Array {
		return rv.Convert(goType).Interface(), nil
	}
	return nil, fmt.Errorf("not convertible")
}

func parseString(s string, goType reflect.Type) (any, error) {
	s = strings.TrimSpace(s)
	var out reflect.Value
	switch k := goType.Kind(); {
	case k == reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, err
		}
		out = reflect.ValueOf(b)
	case isSigned(k):
		n, err := strconv.ParseInt(s, 0, goType.Bits())
		if err != nil {
			return nil, err
		}
		out = reflect.ValueOf(n)
	case isInteger(k):
		n, err := strconv.ParseUint(s, 0, goType.Bits())
		if err != nil {
			return nil, err
		}
		out = reflect.ValueOf(n)
	default:
		f, err := strconv.ParseFloat(s, goType.Bits())
		if err != nil {
			return nil, err
		}
		out = reflect.ValueOf(f)
	}
	return out.Convert(goType).Interface(), nil
}

func isSigned(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Int64
}

func isInteger(k reflect.Kind) bool {
	return isSigned(k) || (k >= reflect.Uint && k <= reflect.Uintptr)
}

func isNumber(k reflect.Kind) bool {
	return isInteger(k) || k == reflect.Float32 || k == reflect.Float64
}

func canBeNil(k reflect.Kind) bool {
	switch k {
	case reflect.Interface, reflect.Pointer, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func:
		return true
	}
	return false
}
