package meta

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Builder: assembles a class descriptor and its dispatch table
// ---------------------------------------------------------------------------

// KeyValue is one enumerator key.
type KeyValue struct {
	Key   string
	Value int
}

// Builder collects class members and produces an immutable MetaObject.
// It stands in for generated code: signatures are normalized, signals are
// ordered before other methods and notify signals are resolved by name.
type Builder struct {
	className  string
	parent     *MetaObject
	flags      ClassFlags
	revision   int
	caps       []string
	dispatcher Dispatcher

	classInfos   [][2]string
	signals      []*MethodBuilder
	methods      []*MethodBuilder
	constructors []*MethodBuilder
	properties   []*PropertyBuilder
	enums        []enumDef
}

type enumDef struct {
	name   string
	isFlag bool
	keys   []KeyValue
}

// NewBuilder starts a class named className.
func NewBuilder(className string) *Builder {
	return &Builder{className: className, revision: CurrentRevision}
}

// SetParent sets the superclass node.
func (b *Builder) SetParent(parent *MetaObject) *Builder {
	b.parent = parent
	return b
}

// SetFlags sets the class flags.
func (b *Builder) SetFlags(f ClassFlags) *Builder {
	b.flags = f
	return b
}

// SetRevision sets the descriptor revision.
func (b *Builder) SetRevision(r int) *Builder {
	b.revision = r
	return b
}

// SetDispatcher replaces the generated function table with d.
func (b *Builder) SetDispatcher(d Dispatcher) *Builder {
	b.dispatcher = d
	return b
}

// AddCapability tags the class.
func (b *Builder) AddCapability(tags ...string) *Builder {
	b.caps = append(b.caps, tags...)
	return b
}

// AddClassInfo adds a name/value annotation.
func (b *Builder) AddClassInfo(name, value string) *Builder {
	b.classInfos = append(b.classInfos, [2]string{name, value})
	return b
}

// AddEnum adds an enumerator.
func (b *Builder) AddEnum(name string, keys ...KeyValue) *Builder {
	b.enums = append(b.enums, enumDef{name: name, keys: keys})
	return b
}

// AddFlags adds a flag set whose keys may be or-ed together.
func (b *Builder) AddFlags(name string, keys ...KeyValue) *Builder {
	b.enums = append(b.enums, enumDef{name: name, isFlag: true, keys: keys})
	return b
}

// AddSignal declares a signal. Unless a body is given, invoking the signal
// emits it.
func (b *Builder) AddSignal(signature string) *MethodBuilder {
	mb := newMethodBuilder(signature, SignalKind)
	b.signals = append(b.signals, mb)
	return mb
}

// AddSlot declares a slot.
func (b *Builder) AddSlot(signature string, fn MethodFunc) *MethodBuilder {
	mb := newMethodBuilder(signature, SlotKind)
	mb.fn = fn
	b.methods = append(b.methods, mb)
	return mb
}

// AddMethod declares a plain invokable method.
func (b *Builder) AddMethod(signature string, fn MethodFunc) *MethodBuilder {
	mb := newMethodBuilder(signature, MethodKind)
	mb.fn = fn
	b.methods = append(b.methods, mb)
	return mb
}

// AddConstructor declares a constructor. The signature's name is the
// class name.
func (b *Builder) AddConstructor(signature string, fn ConstructorFunc) *MethodBuilder {
	mb := newMethodBuilder(signature, ConstructorKind)
	mb.ctor = fn
	b.constructors = append(b.constructors, mb)
	return mb
}

// AddProperty declares a property of the named type. Properties default
// to readable, writable, designable, scriptable and stored.
func (b *Builder) AddProperty(name, typeName string) *PropertyBuilder {
	pb := &PropertyBuilder{name: name, typeName: NormalizeType(typeName), flags: DefaultPropertyFlags}
	b.properties = append(b.properties, pb)
	return pb
}

// ---------------------------------------------------------------------------
// MethodBuilder
// ---------------------------------------------------------------------------

// MethodBuilder refines one method declaration.
type MethodBuilder struct {
	signature  string
	returnType string
	paramNames []string
	tag        string
	access     Access
	kind       MethodType
	attrs      MethodFlags
	revision   int
	fn         MethodFunc
	ctor       ConstructorFunc
}

func newMethodBuilder(signature string, kind MethodType) *MethodBuilder {
	return &MethodBuilder{signature: NormalizeSignature(signature), access: Public, kind: kind}
}

// Returns sets the return type.
func (mb *MethodBuilder) Returns(typeName string) *MethodBuilder {
	mb.returnType = typeName
	return mb
}

// ParamNames sets the parameter names.
func (mb *MethodBuilder) ParamNames(names ...string) *MethodBuilder {
	mb.paramNames = names
	return mb
}

// Tag sets the method tag.
func (mb *MethodBuilder) Tag(tag string) *MethodBuilder {
	mb.tag = tag
	return mb
}

// Access sets the access level.
func (mb *MethodBuilder) Access(a Access) *MethodBuilder {
	mb.access = a
	return mb
}

// Attributes adds attribute flags.
func (mb *MethodBuilder) Attributes(f MethodFlags) *MethodBuilder {
	mb.attrs |= f.Attributes()
	return mb
}

// Revision marks the method revisioned.
func (mb *MethodBuilder) Revision(r int) *MethodBuilder {
	mb.revision = r
	return mb
}

// Body sets the method implementation.
func (mb *MethodBuilder) Body(fn MethodFunc) *MethodBuilder {
	mb.fn = fn
	return mb
}

// ---------------------------------------------------------------------------
// PropertyBuilder
// ---------------------------------------------------------------------------

// PropertyBuilder refines one property declaration.
type PropertyBuilder struct {
	name     string
	typeName string
	flags    PropertyFlags
	notify   string
	revision int
	enum     bool
	funcs    PropertyFuncs
}

// Read sets the getter.
func (pb *PropertyBuilder) Read(fn func(Object) any) *PropertyBuilder {
	pb.funcs.Read = fn
	return pb
}

// Write sets the setter. The value arrives converted to the property type.
func (pb *PropertyBuilder) Write(fn func(Object, Value) error) *PropertyBuilder {
	pb.funcs.Write = fn
	return pb
}

// Reset sets the reset function and marks the property resettable.
func (pb *PropertyBuilder) Reset(fn func(Object) error) *PropertyBuilder {
	pb.funcs.Reset = fn
	pb.flags |= Resettable
	return pb
}

// Query sets the per-object attribute function.
func (pb *PropertyBuilder) Query(fn func(Object, PropertyQuery, bool) bool) *PropertyBuilder {
	pb.funcs.Query = fn
	return pb
}

// Notify names the notify signal.
func (pb *PropertyBuilder) Notify(signal string) *PropertyBuilder {
	pb.notify = NormalizeSignature(signal)
	return pb
}

// ReadOnly clears the writable flag.
func (pb *PropertyBuilder) ReadOnly() *PropertyBuilder {
	pb.flags &^= Writable
	return pb
}

// SetFlags adds flags.
func (pb *PropertyBuilder) SetFlags(f PropertyFlags) *PropertyBuilder {
	pb.flags |= f.Bits()
	return pb
}

// ClearFlags removes flags.
func (pb *PropertyBuilder) ClearFlags(f PropertyFlags) *PropertyBuilder {
	pb.flags &^= f.Bits()
	return pb
}

// Revision marks the property revisioned.
func (pb *PropertyBuilder) Revision(r int) *PropertyBuilder {
	pb.revision = r
	return pb
}

// Enum marks the property as holding an enumerator declared elsewhere.
// Enumerators of the class chain are detected automatically.
func (pb *PropertyBuilder) Enum() *PropertyBuilder {
	pb.enum = true
	return pb
}

// ---------------------------------------------------------------------------
// Build
// ---------------------------------------------------------------------------

// Build produces the class node. Malformed or duplicate signatures and
// unresolvable notify signals are errors. The node is not registered.
func (b *Builder) Build() (*MetaObject, error) {
	if b.className == "" {
		return nil, fmt.Errorf("build: empty class name")
	}
	st := NewStringTable()
	d := &Descriptor{
		Revision:    b.revision,
		ClassName:   st.Intern(b.className),
		Flags:       b.flags,
		SignalCount: len(b.signals),
		Strings:     st,
	}
	table := &FuncTable{}

	for _, ci := range b.classInfos {
		d.ClassInfos = append(d.ClassInfos, ClassInfoRecord{Name: st.Intern(ci[0]), Value: st.Intern(ci[1])})
	}

	offset := 0
	if b.parent != nil {
		offset = b.parent.MethodCount()
	}
	seen := make(map[string]bool)
	all := append(append([]*MethodBuilder(nil), b.signals...), b.methods...)
	for i, mb := range all {
		if err := b.checkSignature(mb.signature, seen); err != nil {
			return nil, err
		}
		d.Methods = append(d.Methods, mb.record(st))
		fn := mb.fn
		if fn == nil && mb.kind == SignalKind {
			global := offset + i
			fn = func(obj Object, args []Value) (Value, error) {
				return Value{}, Activate(obj, global, args...)
			}
		}
		table.Methods = append(table.Methods, fn)
	}

	for _, e := range b.enums {
		rec := EnumRecord{Name: st.Intern(e.name), IsFlag: e.isFlag}
		for _, k := range e.keys {
			rec.Keys = append(rec.Keys, EnumKey{Name: st.Intern(k.Key), Value: k.Value})
		}
		d.Enums = append(d.Enums, rec)
	}

	for _, pb := range b.properties {
		rec, err := b.propertyRecord(pb, st, offset)
		if err != nil {
			return nil, err
		}
		d.Properties = append(d.Properties, rec)
		table.Properties = append(table.Properties, pb.funcs)
	}

	seen = make(map[string]bool)
	for _, mb := range b.constructors {
		if err := b.checkSignature(mb.signature, seen); err != nil {
			return nil, err
		}
		d.Constructors = append(d.Constructors, mb.record(st))
		table.Constructors = append(table.Constructors, mb.ctor)
	}

	var disp Dispatcher = table
	if b.dispatcher != nil {
		disp = b.dispatcher
	}
	return NewMetaObject(d, b.parent, disp, b.caps...), nil
}

// MustBuild is Build that panics on error, for package-level class
// variables.
func (b *Builder) MustBuild() *MetaObject {
	m, err := b.Build()
	if err != nil {
		panic(err)
	}
	return m
}

func (b *Builder) checkSignature(sig string, seen map[string]bool) error {
	open := strings.IndexByte(sig, '(')
	if open <= 0 || !strings.HasSuffix(sig, ")") {
		return fmt.Errorf("build %s: malformed signature %q", b.className, sig)
	}
	if seen[sig] {
		return fmt.Errorf("build %s: duplicate signature %q", b.className, sig)
	}
	seen[sig] = true
	return nil
}

func (mb *MethodBuilder) record(st *StringTable) MethodRecord {
	ret := NormalizeType(mb.returnType)
	if ret == "void" {
		ret = ""
	}
	attrs := mb.attrs
	if mb.revision > 0 {
		attrs |= MethodRevisioned
	}
	return MethodRecord{
		Signature:  st.Intern(mb.signature),
		ParamNames: st.Intern(strings.Join(mb.paramNames, ",")),
		ReturnType: st.Intern(ret),
		Tag:        st.Intern(mb.tag),
		Flags:      NewMethodFlags(mb.access, mb.kind, attrs),
		Revision:   mb.revision,
	}
}

func (b *Builder) propertyRecord(pb *PropertyBuilder, st *StringTable, offset int) (PropertyRecord, error) {
	flags := pb.flags
	if pb.enum || b.declaresEnum(pb.typeName) {
		flags |= EnumOrFlag
	}
	if pb.revision > 0 {
		flags |= Revisioned
	}

	// Builtin types are packed into the flags; enums and user types are
	// resolved by name when read.
	if flags&EnumOrFlag != 0 {
		flags = flags.WithTypeID(UnknownType)
	} else if t := TypeIDByName(pb.typeName); t < UserType {
		flags = flags.WithTypeID(t)
	} else {
		flags = flags.WithTypeID(UnknownType)
	}

	rec := PropertyRecord{
		Name:     st.Intern(pb.name),
		TypeName: st.Intern(pb.typeName),
		Notify:   -1,
		Revision: pb.revision,
	}
	if pb.notify != "" {
		idx := -1
		for i, s := range b.signals {
			if s.signature == pb.notify {
				idx = offset + i
				break
			}
		}
		if idx < 0 && b.parent != nil {
			idx = b.parent.IndexOfSignal(pb.notify)
		}
		if idx < 0 {
			return PropertyRecord{}, fmt.Errorf("build %s: notify signal %q of property %q not found", b.className, pb.notify, pb.name)
		}
		flags |= Notify
		rec.Notify = idx
	}
	rec.Flags = flags
	return rec, nil
}

// declaresEnum reports whether typeName names an enumerator of this class
// or one of its ancestors.
func (b *Builder) declaresEnum(typeName string) bool {
	scope, name := "", typeName
	if i := strings.LastIndex(typeName, "::"); i >= 0 {
		scope, name = typeName[:i], typeName[i+2:]
	}
	if scope == "" || scope == b.className {
		for _, e := range b.enums {
			if e.name == name {
				return true
			}
		}
	}
	for n := b.parent; n != nil; n = n.parent {
		if scope != "" && scope != n.ClassName() {
			continue
		}
		d := n.desc.Load()
		for _, e := range d.Enums {
			if d.str(e.Name) == name {
				return true
			}
		}
	}
	return false
}
