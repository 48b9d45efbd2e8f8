package meta

// ---------------------------------------------------------------------------
// Method flags
// ---------------------------------------------------------------------------

// MethodFlags packs access, kind and attribute bits of a method record.
type MethodFlags uint32

// Access is the declared access level of a method.
type Access uint32

const (
	Private   Access = 0x00
	Protected Access = 0x01
	Public    Access = 0x02
)

// MethodType is the kind of a method record.
type MethodType uint32

const (
	MethodKind      MethodType = 0x00
	SignalKind      MethodType = 0x04
	SlotKind        MethodType = 0x08
	ConstructorKind MethodType = 0x0c
)

const (
	accessMask     MethodFlags = 0x03
	methodTypeMask MethodFlags = 0x0c

	MethodCompatibility MethodFlags = 0x10
	MethodCloned        MethodFlags = 0x20
	MethodScriptable    MethodFlags = 0x40
	MethodRevisioned    MethodFlags = 0x80
)

// Access returns the access bits.
func (f MethodFlags) Access() Access { return Access(f & accessMask) }

// Type returns the kind bits.
func (f MethodFlags) Type() MethodType { return MethodType(f & methodTypeMask) }

// Attributes returns the attribute bits with access and kind masked out.
func (f MethodFlags) Attributes() MethodFlags { return f &^ (accessMask | methodTypeMask) }

// NewMethodFlags combines an access level, a kind and attribute bits.
func NewMethodFlags(access Access, kind MethodType, attrs MethodFlags) MethodFlags {
	return MethodFlags(access) | MethodFlags(kind) | attrs.Attributes()
}

func (a Access) String() string {
	switch a {
	case Private:
		return "private"
	case Protected:
		return "protected"
	case Public:
		return "public"
	}
	return "unknown"
}

func (t MethodType) String() string {
	switch t {
	case MethodKind:
		return "method"
	case SignalKind:
		return "signal"
	case SlotKind:
		return "slot"
	case ConstructorKind:
		return "constructor"
	}
	return "unknown"
}

// ---------------------------------------------------------------------------
// Property flags
// ---------------------------------------------------------------------------

// PropertyFlags packs capability bits of a property record. The top byte
// carries the builtin type ID of the property, or typeByName when the type
// must be resolved from the record's type name.
type PropertyFlags uint32

const (
	Readable   PropertyFlags = 0x00000001
	Writable   PropertyFlags = 0x00000002
	Resettable PropertyFlags = 0x00000004
	EnumOrFlag PropertyFlags = 0x00000008
	StdCppSet  PropertyFlags = 0x00000100
	Constant   PropertyFlags = 0x00000400
	Final      PropertyFlags = 0x00000800
	Designable PropertyFlags = 0x00001000
	Scriptable PropertyFlags = 0x00004000
	Stored     PropertyFlags = 0x00010000
	Editable   PropertyFlags = 0x00040000
	User       PropertyFlags = 0x00100000
	Notify     PropertyFlags = 0x00400000
	Revisioned PropertyFlags = 0x00800000

	// DefaultPropertyFlags matches an ordinary read/write property.
	DefaultPropertyFlags = Readable | Writable | Designable | Scriptable | Stored

	typeShift            = 24
	typeByName    uint32 = 0xff
	propertyBitMask      = PropertyFlags(1<<typeShift - 1)
)

// TypeID returns the type ID packed into the top byte. A zero result
// means the type has to be resolved by name.
func (f PropertyFlags) TypeID() TypeID {
	t := uint32(f) >> typeShift
	if t == typeByName {
		return UnknownType
	}
	return TypeID(t)
}

// Bits returns the flags without the packed type ID.
func (f PropertyFlags) Bits() PropertyFlags { return f & propertyBitMask }

// WithTypeID packs t into the top byte. IDs that do not fit are stored
// as resolve-by-name.
func (f PropertyFlags) WithTypeID(t TypeID) PropertyFlags {
	packed := typeByName
	if t > 0 && t < TypeID(typeByName) {
		packed = uint32(t)
	}
	return f.Bits() | PropertyFlags(packed<<typeShift)
}

// ---------------------------------------------------------------------------
// Class flags
// ---------------------------------------------------------------------------

// ClassFlags are header-level flags of a descriptor.
type ClassFlags uint32

const (
	// DynamicClass marks a node whose property lookups may be answered by
	// a per-object hook after static lookup fails.
	DynamicClass ClassFlags = 0x01
)
