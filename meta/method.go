package meta

import "strings"

// ---------------------------------------------------------------------------
// MetaMethod: handle to one method, signal, slot or constructor
// ---------------------------------------------------------------------------

// MetaMethod refers to a method record by (node, local index). Handles
// are comparable; the zero value is invalid.
type MetaMethod struct {
	mobj  *MetaObject
	local int
	ctor  bool
}

// IsValid reports whether the handle refers to a method.
func (mm MetaMethod) IsValid() bool { return mm.record() != nil }

// MetaObject returns the class that declares the method.
func (mm MetaMethod) MetaObject() *MetaObject { return mm.mobj }

func (mm MetaMethod) record() *MethodRecord {
	if mm.mobj == nil {
		return nil
	}
	d := mm.mobj.desc.Load()
	if mm.ctor {
		return d.constructor(mm.local)
	}
	return d.method(mm.local)
}

func (mm MetaMethod) str(id uint32) string { return mm.mobj.desc.Load().str(id) }

// MethodIndex returns the global index, or the local index for
// constructors. Invalid handles return -1.
func (mm MetaMethod) MethodIndex() int {
	if !mm.IsValid() {
		return -1
	}
	if mm.ctor {
		return mm.local
	}
	return mm.mobj.MethodOffset() + mm.local
}

// LocalIndex returns the index within the declaring class.
func (mm MetaMethod) LocalIndex() int {
	if !mm.IsValid() {
		return -1
	}
	return mm.local
}

// MethodSignature returns the normalized signature.
func (mm MetaMethod) MethodSignature() string {
	if r := mm.record(); r != nil {
		return mm.str(r.Signature)
	}
	return ""
}

// Name returns the method name without parameters.
func (mm MetaMethod) Name() string { return MethodName(mm.MethodSignature()) }

// ParameterTypes returns the normalized parameter type names.
func (mm MetaMethod) ParameterTypes() []string { return ParameterTypes(mm.MethodSignature()) }

// ParameterCount returns the number of declared parameters.
func (mm MetaMethod) ParameterCount() int { return len(mm.ParameterTypes()) }

// ParameterType returns the type ID of parameter i, or UnknownType.
func (mm MetaMethod) ParameterType(i int) TypeID {
	params := mm.ParameterTypes()
	if i < 0 || i >= len(params) {
		return UnknownType
	}
	return TypeIDByName(params[i])
}

// ParameterNames returns the declared parameter names.
func (mm MetaMethod) ParameterNames() []string {
	r := mm.record()
	if r == nil {
		return nil
	}
	names := mm.str(r.ParamNames)
	if names == "" {
		return nil
	}
	return strings.Split(names, ",")
}

// TypeName returns the return type name; "void" for no return value.
func (mm MetaMethod) TypeName() string {
	r := mm.record()
	if r == nil {
		return ""
	}
	if t := mm.str(r.ReturnType); t != "" {
		return t
	}
	return "void"
}

// ReturnType returns the type ID of the return value.
func (mm MetaMethod) ReturnType() TypeID {
	if !mm.IsValid() {
		return UnknownType
	}
	return TypeIDByName(mm.TypeName())
}

// Tag returns the method's tag text.
func (mm MetaMethod) Tag() string {
	if r := mm.record(); r != nil {
		return mm.str(r.Tag)
	}
	return ""
}

// Access returns the declared access level.
func (mm MetaMethod) Access() Access {
	if r := mm.record(); r != nil {
		return r.Flags.Access()
	}
	return Private
}

// MethodType returns whether this is a signal, slot, method or constructor.
func (mm MetaMethod) MethodType() MethodType {
	if r := mm.record(); r != nil {
		return r.Flags.Type()
	}
	return MethodKind
}

// Attributes returns the attribute flags.
func (mm MetaMethod) Attributes() MethodFlags {
	if r := mm.record(); r != nil {
		return r.Flags.Attributes()
	}
	return 0
}

// Revision returns the method revision, 0 when unrevisioned.
func (mm MetaMethod) Revision() int {
	if r := mm.record(); r != nil && r.Flags&MethodRevisioned != 0 {
		return r.Revision
	}
	return 0
}
