package meta

// ---------------------------------------------------------------------------
// Descriptor: per-class records backed by a string table
// ---------------------------------------------------------------------------

// CurrentRevision is the descriptor revision produced by Builder.
const CurrentRevision = 7

// extensionRevision is the first revision whose dispatch table is reached
// through the node's extension record.
const extensionRevision = 7

// MethodRecord describes one signal, slot, method or constructor.
// String fields are IDs into the descriptor's string table.
type MethodRecord struct {
	Signature  uint32 // normalized "name(T1,T2)"
	ParamNames uint32 // comma-separated parameter names
	ReturnType uint32 // normalized return type, "" for void
	Tag        uint32
	Flags      MethodFlags
	Revision   int
}

// PropertyRecord describes one property.
type PropertyRecord struct {
	Name     uint32
	TypeName uint32
	Flags    PropertyFlags
	Notify   int // global method index of the notify signal, or -1
	Revision int
}

// EnumKey is one name/value pair of an enumerator.
type EnumKey struct {
	Name  uint32
	Value int
}

// EnumRecord describes one enumerator or flag set.
type EnumRecord struct {
	Name   uint32
	IsFlag bool
	Keys   []EnumKey
}

// ClassInfoRecord is a free-form name/value annotation on a class.
type ClassInfoRecord struct {
	Name  uint32
	Value uint32
}

// Descriptor is the immutable member table of one class.
//
// Signals occupy Methods[:SignalCount]; slots and plain methods follow in
// declaration order. Descriptors are never mutated once a MetaObject owns
// them; dynamic nodes replace theirs copy-on-write.
type Descriptor struct {
	Revision     int
	ClassName    uint32
	Flags        ClassFlags
	SignalCount  int
	ClassInfos   []ClassInfoRecord
	Methods      []MethodRecord
	Properties   []PropertyRecord
	Enums        []EnumRecord
	Constructors []MethodRecord
	Strings      *StringTable
}

// str returns the interned text for id. Out-of-range IDs yield "".
func (d *Descriptor) str(id uint32) string {
	if d == nil || d.Strings == nil {
		return ""
	}
	return d.Strings.String(id)
}

// Name returns the class name.
func (d *Descriptor) Name() string {
	return d.str(d.ClassName)
}

// clone returns a shallow copy whose record slices may be appended to
// without affecting d. The string table is shared.
func (d *Descriptor) clone() *Descriptor {
	nd := *d
	nd.ClassInfos = append([]ClassInfoRecord(nil), d.ClassInfos...)
	nd.Methods = append([]MethodRecord(nil), d.Methods...)
	nd.Properties = append([]PropertyRecord(nil), d.Properties...)
	nd.Enums = append([]EnumRecord(nil), d.Enums...)
	nd.Constructors = append([]MethodRecord(nil), d.Constructors...)
	return &nd
}

func (d *Descriptor) method(local int) *MethodRecord {
	if local < 0 || local >= len(d.Methods) {
		return nil
	}
	return &d.Methods[local]
}

func (d *Descriptor) constructor(local int) *MethodRecord {
	if local < 0 || local >= len(d.Constructors) {
		return nil
	}
	return &d.Constructors[local]
}

func (d *Descriptor) property(local int) *PropertyRecord {
	if local < 0 || local >= len(d.Properties) {
		return nil
	}
	return &d.Properties[local]
}

func (d *Descriptor) enum(local int) *EnumRecord {
	if local < 0 || local >= len(d.Enums) {
		return nil
	}
	return &d.Enums[local]
}

func (d *Descriptor) classInfo(local int) *ClassInfoRecord {
	if local < 0 || local >= len(d.ClassInfos) {
		return nil
	}
	return &d.ClassInfos[local]
}
