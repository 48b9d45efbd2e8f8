package meta

import (
	"reflect"
	"sort"
	"sync"
)

// ---------------------------------------------------------------------------
// Type registry: integer type IDs for boxed values
// ---------------------------------------------------------------------------

// TypeID identifies a registered value type. 0 means unknown/unregistered.
type TypeID int

// Builtin type IDs.
const (
	UnknownType TypeID = 0
	Bool        TypeID = 1
	Int         TypeID = 2
	UInt        TypeID = 3
	LongLong    TypeID = 4
	ULongLong   TypeID = 5
	Double      TypeID = 6
	QString     TypeID = 10
	QStringList TypeID = 11
	QByteArray  TypeID = 12
	Float       TypeID = 38
	QObjectStar TypeID = 39
	QVariant    TypeID = 41
	Void        TypeID = 43

	// UserType is the first ID handed out to registered types.
	UserType TypeID = 1024
)

var (
	objectType = reflect.TypeOf((*Object)(nil)).Elem()
	valueType  = reflect.TypeOf(Value{})
)

// TypeInfo describes one registered type.
type TypeInfo struct {
	ID     TypeID
	Name   string
	GoType reflect.Type
	IsEnum bool

	// Copy duplicates a value of this type for queued delivery.
	Copy func(any) any
}

// TypeRegistry maps type names and Go types to type IDs.
// Thread-safe for concurrent registration and lookup.
type TypeRegistry struct {
	mu       sync.RWMutex
	types    map[TypeID]*TypeInfo
	byName   map[string]TypeID
	byGoType map[reflect.Type]TypeID
	nextID   TypeID
}

// NewTypeRegistry creates a registry holding only the builtin types.
func NewTypeRegistry() *TypeRegistry {
	r := &TypeRegistry{
		types:    make(map[TypeID]*TypeInfo),
		byName:   make(map[string]TypeID),
		byGoType: make(map[reflect.Type]TypeID),
		nextID:   UserType,
	}
	builtin := func(id TypeID, name string, goType reflect.Type, aliases ...string) {
		r.types[id] = &TypeInfo{ID: id, Name: name, GoType: goType, Copy: deepCopy}
		r.byName[name] = id
		for _, a := range aliases {
			r.byName[a] = id
		}
		if goType != nil {
			r.byGoType[goType] = id
		}
	}
	builtin(Bool, "bool", reflect.TypeOf(false))
	builtin(Int, "int", reflect.TypeOf(0))
	builtin(UInt, "uint", reflect.TypeOf(uint(0)))
	builtin(LongLong, "qlonglong", reflect.TypeOf(int64(0)), "qint64", "long long")
	builtin(ULongLong, "qulonglong", reflect.TypeOf(uint64(0)), "quint64", "unsigned long long")
	builtin(Double, "double", reflect.TypeOf(float64(0)), "qreal")
	builtin(QString, "QString", reflect.TypeOf(""))
	builtin(QStringList, "QStringList", reflect.TypeOf([]string(nil)))
	builtin(QByteArray, "QByteArray", reflect.TypeOf([]byte(nil)))
	builtin(Float, "float", reflect.TypeOf(float32(0)))
	builtin(QObjectStar, "QObject*", objectType)
	builtin(QVariant, "QVariant", valueType)
	builtin(Void, "void", nil)
	return r
}

// Register adds a named Go type and returns its ID. If the name is already
// registered, returns the existing ID.
func (r *TypeRegistry) Register(name string, goType reflect.Type) TypeID {
	return r.register(name, goType, false, nil)
}

// RegisterWithCopy is Register with a custom copy function for queued
// delivery.
func (r *TypeRegistry) RegisterWithCopy(name string, goType reflect.Type, copyFn func(any) any) TypeID {
	return r.register(name, goType, false, copyFn)
}

// RegisterEnum registers a scoped enumeration type ("Scope::Name").
// Enum values are carried as Go ints.
func (r *TypeRegistry) RegisterEnum(qualified string) TypeID {
	return r.register(qualified, reflect.TypeOf(0), true, nil)
}

func (r *TypeRegistry) register(name string, goType reflect.Type, enum bool, copyFn func(any) any) TypeID {
	name = NormalizeType(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byName[name]; ok {
		return id
	}
	if copyFn == nil {
		copyFn = deepCopy
	}

	id := r.nextID
	r.nextID++

	r.types[id] = &TypeInfo{ID: id, Name: name, GoType: goType, IsEnum: enum, Copy: copyFn}
	r.byName[name] = id
	// Enums share int's Go type; the builtin keeps the reverse mapping.
	if !enum && goType != nil {
		if _, taken := r.byGoType[goType]; !taken {
			r.byGoType[goType] = id
		}
	}
	return id
}

// Lookup returns the type info for id, or nil.
func (r *TypeRegistry) Lookup(id TypeID) *TypeInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.types[id]
}

// IDByName returns the ID for a type name, trying the name as given and
// then in normalized form. Returns UnknownType if not registered.
func (r *TypeRegistry) IDByName(name string) TypeID {
	r.mu.RLock()
	id, ok := r.byName[name]
	r.mu.RUnlock()
	if ok {
		return id
	}

	norm := NormalizeType(name)
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byName[norm]
}

// IDOf returns the ID of v's dynamic Go type. Object implementations map
// to QObjectStar and boxed values to QVariant.
func (r *TypeRegistry) IDOf(v any) TypeID {
	switch v.(type) {
	case nil:
		return UnknownType
	case Value:
		return QVariant
	case Object:
		return QObjectStar
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byGoType[reflect.TypeOf(v)]
}

// Names returns all registered type names, sorted.
func (r *TypeRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.types))
	for _, info := range r.types {
		names = append(names, info.Name)
	}
	sort.Strings(names)
	return names
}

// ---------------------------------------------------------------------------
// Process-wide registry
// ---------------------------------------------------------------------------

var types = NewTypeRegistry()

// Types returns the process-wide type registry.
func Types() *TypeRegistry { return types }

// RegisterType registers a named Go type in the process-wide registry.
func RegisterType(name string, goType reflect.Type) TypeID {
	return types.Register(name, goType)
}

// RegisterEnumType registers a scoped enum type ("Scope::Name").
func RegisterEnumType(qualified string) TypeID {
	return types.RegisterEnum(qualified)
}

// TypeIDByName resolves a type name. Returns UnknownType if unregistered.
func TypeIDByName(name string) TypeID {
	return types.IDByName(name)
}

// TypeName returns the registered name of id, or "" if unknown.
func TypeName(id TypeID) string {
	if info := types.Lookup(id); info != nil {
		return info.Name
	}
	return ""
}

// TypeOf returns the Go type carried by id, or nil.
func TypeOf(id TypeID) reflect.Type {
	if info := types.Lookup(id); info != nil {
		return info.GoType
	}
	return nil
}

// IsEnumType reports whether id was registered as an enumeration.
func IsEnumType(id TypeID) bool {
	info := types.Lookup(id)
	return info != nil && info.IsEnum
}

// ---------------------------------------------------------------------------
// Copying
// ---------------------------------------------------------------------------

// copyValue duplicates v using the copy function registered for id.
func copyValue(id TypeID, v any) any {
	if info := types.Lookup(id); info != nil && info.Copy != nil {
		return info.Copy(v)
	}
	return v
}

// deepCopy duplicates slices and maps recursively. Other values, including
// pointers and objects, are shared.
func deepCopy(v any) any {
	if v == nil {
		return nil
	}
	return copyReflect(reflect.ValueOf(v)).Interface()
}

func copyReflect(rv reflect.Value) reflect.Value {
	switch rv.Kind() {
	case reflect.Slice:
		if rv.IsNil() {
			return rv
		}
		out := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out.Index(i).Set(copyReflect(rv.Index(i)))
		}
		return out
	case reflect.Map:
		if rv.IsNil() {
			return rv
		}
		out := reflect.MakeMapWithSize(rv.Type(), rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), copyReflect(iter.Value()))
		}
		return out
	}
	return rv
}
