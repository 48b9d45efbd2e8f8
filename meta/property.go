package meta

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// MetaProperty: handle to one property, plus the property engine
// ---------------------------------------------------------------------------

// MetaProperty refers to a property by (node, local index). The zero value
// is invalid.
type MetaProperty struct {
	mobj  *MetaObject
	local int
}

func (p MetaProperty) record() *PropertyRecord {
	if p.mobj == nil {
		return nil
	}
	return p.mobj.desc.Load().property(p.local)
}

func (p MetaProperty) flags() PropertyFlags {
	if r := p.record(); r != nil {
		return r.Flags
	}
	return 0
}

// IsValid reports whether the handle refers to a property.
func (p MetaProperty) IsValid() bool { return p.record() != nil }

// MetaObject returns the declaring class.
func (p MetaProperty) MetaObject() *MetaObject { return p.mobj }

// Name returns the property name.
func (p MetaProperty) Name() string {
	if r := p.record(); r != nil {
		return p.mobj.desc.Load().str(r.Name)
	}
	return ""
}

// TypeName returns the declared type name.
func (p MetaProperty) TypeName() string {
	if r := p.record(); r != nil {
		return p.mobj.desc.Load().str(r.TypeName)
	}
	return ""
}

// PropertyIndex returns the global index, or -1.
func (p MetaProperty) PropertyIndex() int {
	if !p.IsValid() {
		return -1
	}
	return p.mobj.PropertyOffset() + p.local
}

// Flags returns the property flags without the packed type ID.
func (p MetaProperty) Flags() PropertyFlags { return p.flags().Bits() }

// Type returns the storage type: the type ID packed in the flags, else the
// registered type of the declared name. Enum types resolve as
// "Scope::Enum". Returns UnknownType when the type is not registered.
func (p MetaProperty) Type() TypeID {
	f := p.flags()
	if !p.IsValid() {
		return UnknownType
	}
	if t := f.TypeID(); t != UnknownType {
		return t
	}
	tn := p.TypeName()
	if f&EnumOrFlag != 0 && !strings.Contains(tn, "::") {
		if t := TypeIDByName(p.mobj.ClassName() + "::" + tn); t != UnknownType {
			return t
		}
	}
	return TypeIDByName(tn)
}

func (p MetaProperty) IsReadable() bool   { return p.flags()&Readable != 0 }
func (p MetaProperty) IsWritable() bool   { return p.flags()&Writable != 0 }
func (p MetaProperty) IsResettable() bool { return p.flags()&Resettable != 0 }
func (p MetaProperty) IsConstant() bool   { return p.flags()&Constant != 0 }
func (p MetaProperty) IsFinal() bool      { return p.flags()&Final != 0 }
func (p MetaProperty) HasStdCppSet() bool { return p.flags()&StdCppSet != 0 }

// HasNotifySignal reports whether the property declares a notify signal.
func (p MetaProperty) HasNotifySignal() bool { return p.flags()&Notify != 0 }

// NotifySignal returns the notify signal, or an invalid handle.
func (p MetaProperty) NotifySignal() MetaMethod {
	r := p.record()
	if r == nil || r.Flags&Notify == 0 || r.Notify < 0 {
		return MetaMethod{}
	}
	return p.mobj.Method(r.Notify)
}

// NotifySignalIndex returns the global index of the notify signal, or -1.
func (p MetaProperty) NotifySignalIndex() int {
	return p.NotifySignal().MethodIndex()
}

// Revision returns the property revision, 0 when unrevisioned.
func (p MetaProperty) Revision() int {
	if r := p.record(); r != nil && r.Flags&Revisioned != 0 {
		return r.Revision
	}
	return 0
}

// IsEnumType reports whether the property holds an enumerator value.
func (p MetaProperty) IsEnumType() bool { return p.flags()&EnumOrFlag != 0 }

// IsFlagType reports whether the property holds a flag set.
func (p MetaProperty) IsFlagType() bool { return p.IsEnumType() && p.Enumerator().IsFlag() }

// Enumerator returns the enumerator of an enum property, searching the
// declaring class chain for a "Scope::" qualifier and then the registry.
func (p MetaProperty) Enumerator() MetaEnum {
	if !p.IsEnumType() {
		return MetaEnum{}
	}
	tn := p.TypeName()
	scope, name := "", tn
	if i := strings.LastIndex(tn, "::"); i >= 0 {
		scope, name = tn[:i], tn[i+2:]
	}

	owner := p.mobj
	if scope != "" {
		owner = nil
		for n := p.mobj; n != nil; n = n.parent {
			if n.ClassName() == scope {
				owner = n
				break
			}
		}
		if owner == nil {
			owner = Lookup(scope)
		}
		if owner == nil {
			return MetaEnum{}
		}
	}
	idx := owner.IndexOfEnumerator(name)
	if idx < 0 {
		return MetaEnum{}
	}
	return owner.Enumerator(idx)
}

// ---------------------------------------------------------------------------
// Per-object attributes
// ---------------------------------------------------------------------------

func (p MetaProperty) query(obj Object, flag PropertyFlags, q PropertyQuery) bool {
	static := p.flags()&flag != 0
	if obj == nil || !p.IsValid() {
		return static
	}
	disp := p.mobj.Dispatcher()
	if disp == nil {
		return static
	}
	return disp.QueryProperty(obj, p.local, q, static)
}

// IsDesignable reports the designable attribute, refined for obj when
// obj is non-nil.
func (p MetaProperty) IsDesignable(obj Object) bool { return p.query(obj, Designable, QueryDesignable) }

// IsScriptable reports the scriptable attribute for obj.
func (p MetaProperty) IsScriptable(obj Object) bool { return p.query(obj, Scriptable, QueryScriptable) }

// IsStored reports the stored attribute for obj.
func (p MetaProperty) IsStored(obj Object) bool { return p.query(obj, Stored, QueryStored) }

// IsEditable reports the editable attribute for obj.
func (p MetaProperty) IsEditable(obj Object) bool { return p.query(obj, Editable, QueryEditable) }

// IsUser reports the user attribute for obj.
func (p MetaProperty) IsUser(obj Object) bool { return p.query(obj, User, QueryUser) }

// ---------------------------------------------------------------------------
// Read / Write / Reset
// ---------------------------------------------------------------------------

func (p MetaProperty) qualified() string {
	if p.mobj == nil {
		return "<invalid>"
	}
	return p.mobj.ClassName() + "::" + p.Name()
}

// Read returns the property value of obj. Unreadable properties, values of
// unregistered types and dispatch failures yield an invalid Value; the
// latter two are reported as diagnostics.
func (p MetaProperty) Read(obj Object) Value {
	if obj == nil || !p.IsReadable() {
		return Value{}
	}
	t := p.Type()
	if t == UnknownType {
		warn(ErrUnregisteredType, "read %s: unable to handle unregistered datatype %q", p.qualified(), p.TypeName())
		return Value{}
	}
	disp := p.mobj.Dispatcher()
	if disp == nil {
		warn(ErrUnsupported, "read %s: class has no dispatch table", p.qualified())
		return Value{}
	}
	raw, err := disp.ReadProperty(obj, p.local)
	if err != nil {
		warn(err, "read %s: %v", p.qualified(), err)
		return Value{}
	}
	if t == QVariant {
		if inner, ok := raw.(Value); ok {
			return inner
		}
		return ValueOf(raw)
	}
	if v, err := ValueOf(raw).Convert(t); err == nil {
		return v
	}
	return NewValue(t, raw)
}

// Write sets the property on obj. An invalid v resets a resettable
// property and otherwise writes the zero value of the property type.
// Enum properties accept integers and key names ("A|B" for flags).
func (p MetaProperty) Write(obj Object, v Value) error {
	if obj == nil || !p.IsValid() {
		return fmt.Errorf("%w: write %s", ErrNotFound, p.qualified())
	}
	if !p.IsWritable() {
		return fmt.Errorf("%w: %s", ErrNotWritable, p.qualified())
	}
	disp := p.mobj.Dispatcher()
	if disp == nil {
		return warn(ErrUnsupported, "write %s: class has no dispatch table", p.qualified())
	}

	t := p.Type()
	switch {
	case !v.IsValid():
		if p.IsResettable() {
			return p.Reset(obj)
		}
		if t == UnknownType {
			return warn(ErrUnregisteredType, "write %s: unable to handle unregistered datatype %q", p.qualified(), p.TypeName())
		}
		v = ZeroValue(t)

	case p.IsEnumType():
		n, err := p.enumValue(v)
		if err != nil {
			return warn(err, "write %s: %v", p.qualified(), err)
		}
		if t == UnknownType {
			t = Int
		}
		v = NewValue(t, n)

	case t == UnknownType:
		return warn(ErrUnregisteredType, "write %s: unable to handle unregistered datatype %q", p.qualified(), p.TypeName())

	default:
		cv, err := v.Convert(t)
		if err != nil {
			return warn(ErrTypeMismatch, "write %s: %v", p.qualified(), err)
		}
		v = cv
	}

	if err := disp.WriteProperty(obj, p.local, v); err != nil {
		return fmt.Errorf("write %s: %w", p.qualified(), err)
	}
	return nil
}

// enumValue converts v to an enumerator value: integers pass through,
// strings are looked up as keys.
func (p MetaProperty) enumValue(v Value) (int, error) {
	if s, ok := v.Interface().(string); ok {
		e := p.Enumerator()
		if !e.IsValid() {
			return 0, fmt.Errorf("%w: no enumerator for %q", ErrTypeMismatch, p.TypeName())
		}
		var n int
		if e.IsFlag() {
			n, ok = e.KeysToValue(s)
		} else {
			n, ok = e.KeyToValue(s)
		}
		if !ok {
			return 0, fmt.Errorf("%w: unknown key %q for %s", ErrTypeMismatch, s, e.QualifiedName())
		}
		return n, nil
	}
	c, err := v.Convert(Int)
	if err != nil {
		return 0, err
	}
	n, ok := c.Interface().(int)
	if !ok {
		return 0, fmt.Errorf("%w: %s is not an enumerator value", ErrTypeMismatch, v.TypeName())
	}
	return n, nil
}

// Reset restores the property's default value on obj.
func (p MetaProperty) Reset(obj Object) error {
	if obj == nil || !p.IsValid() {
		return fmt.Errorf("%w: reset %s", ErrNotFound, p.qualified())
	}
	if !p.IsResettable() {
		return fmt.Errorf("%w: %s", ErrNotResettable, p.qualified())
	}
	disp := p.mobj.Dispatcher()
	if disp == nil {
		return warn(ErrUnsupported, "reset %s: class has no dispatch table", p.qualified())
	}
	if err := disp.ResetProperty(obj, p.local); err != nil {
		return fmt.Errorf("reset %s: %w", p.qualified(), err)
	}
	return nil
}
