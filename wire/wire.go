// Package wire is the transport form of class descriptors and boxed
// values: canonical CBOR over the compact descriptor encoding.
package wire

import (
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"

	"github.com/chazu/metaobject/meta"
)

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("wire: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

// ---------------------------------------------------------------------------
// Classes
// ---------------------------------------------------------------------------

// Class is one encoded class node. Super names the parent class; the
// parent itself travels separately.
type Class struct {
	Name         string   `cbor:"name"`
	Super        string   `cbor:"super,omitempty"`
	Capabilities []string `cbor:"caps,omitempty"`
	Data         []uint32 `cbor:"data"`
	Pool         []byte   `cbor:"pool"`
}

// EncodeClass captures m's own descriptor (not its ancestors).
func EncodeClass(m *meta.MetaObject) *Class {
	data, pool := meta.Encode(m.Descriptor())
	c := &Class{
		Name:         m.ClassName(),
		Capabilities: m.Capabilities(),
		Data:         data,
		Pool:         pool,
	}
	if super := m.SuperClass(); super != nil {
		c.Super = super.ClassName()
	}
	return c
}

// Descriptor decodes the class's descriptor.
func (c *Class) Descriptor() (*meta.Descriptor, error) {
	d, err := meta.Decode(c.Data, c.Pool)
	if err != nil {
		return nil, fmt.Errorf("wire: class %s: %w", c.Name, err)
	}
	if d.Name() != c.Name {
		return nil, fmt.Errorf("wire: class %s: descriptor names %q: %w", c.Name, d.Name(), meta.ErrCorruptDescriptor)
	}
	return d, nil
}

// MarshalClass serializes a Class to CBOR bytes.
func MarshalClass(c *Class) ([]byte, error) {
	return encMode.Marshal(c)
}

// UnmarshalClass deserializes a Class from CBOR bytes.
func UnmarshalClass(data []byte) (*Class, error) {
	var c Class
	if err := cbor.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("wire: unmarshal class: %w", err)
	}
	return &c, nil
}

// ---------------------------------------------------------------------------
// Values
// ---------------------------------------------------------------------------

// Value is a boxed value in transport form. An empty Type is the invalid
// value. QVariant payloads nest another Value.
type Value struct {
	Type string          `cbor:"type,omitempty"`
	Data cbor.RawMessage `cbor:"data,omitempty"`
}

// IsValid reports whether the value carries a type.
func (v Value) IsValid() bool { return v.Type != "" }

// EncodeValue converts a boxed value to transport form. Object references
// cannot travel and fail with meta.ErrUnsupported.
func EncodeValue(v meta.Value) (Value, error) {
	if !v.IsValid() {
		return Value{}, nil
	}
	switch v.Type() {
	case meta.UnknownType:
		return Value{}, fmt.Errorf("wire: encode %s: %w", v.TypeName(), meta.ErrUnregisteredType)
	case meta.QObjectStar:
		return Value{}, fmt.Errorf("wire: encode object reference: %w", meta.ErrUnsupported)
	case meta.QVariant:
		inner, err := EncodeValue(meta.ValueOf(v.Interface()))
		if err != nil {
			return Value{}, err
		}
		data, err := encMode.Marshal(inner)
		if err != nil {
			return Value{}, fmt.Errorf("wire: encode QVariant: %w", err)
		}
		return Value{Type: "QVariant", Data: data}, nil
	}
	data, err := encMode.Marshal(v.Interface())
	if err != nil {
		return Value{}, fmt.Errorf("wire: encode %s: %w", v.TypeName(), err)
	}
	return Value{Type: v.TypeName(), Data: data}, nil
}

// DecodeValue converts a transport value back to a boxed value using the
// registered Go type of its type name.
func DecodeValue(w Value) (meta.Value, error) {
	if !w.IsValid() {
		return meta.Value{}, nil
	}
	id := meta.TypeIDByName(w.Type)
	if id == meta.UnknownType {
		return meta.Value{}, fmt.Errorf("wire: decode %s: %w", w.Type, meta.ErrUnregisteredType)
	}
	switch id {
	case meta.QObjectStar, meta.Void:
		return meta.Value{}, fmt.Errorf("wire: decode %s: %w", w.Type, meta.ErrUnsupported)
	case meta.QVariant:
		var inner Value
		if err := cbor.Unmarshal(w.Data, &inner); err != nil {
			return meta.Value{}, fmt.Errorf("wire: decode QVariant: %w", err)
		}
		v, err := DecodeValue(inner)
		if err != nil {
			return meta.Value{}, err
		}
		return meta.NewValue(meta.QVariant, v), nil
	}
	goType := meta.TypeOf(id)
	if goType == nil {
		return meta.Value{}, fmt.Errorf("wire: decode %s: no Go type: %w", w.Type, meta.ErrUnsupported)
	}
	ptr := reflect.New(goType)
	if err := cbor.Unmarshal(w.Data, ptr.Interface()); err != nil {
		return meta.Value{}, fmt.Errorf("wire: decode %s: %w", w.Type, err)
	}
	return meta.NewValue(id, ptr.Elem().Interface()), nil
}

// EncodeValues encodes each value in order.
func EncodeValues(vs []meta.Value) ([]Value, error) {
	out := make([]Value, len(vs))
	for i, v := range vs {
		w, err := EncodeValue(v)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		out[i] = w
	}
	return out, nil
}

// DecodeValues decodes each value in order.
func DecodeValues(ws []Value) ([]meta.Value, error) {
	out := make([]meta.Value, len(ws))
	for i, w := range ws {
		v, err := DecodeValue(w)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}
