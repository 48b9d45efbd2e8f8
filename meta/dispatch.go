package meta

import "fmt"

// ---------------------------------------------------------------------------
// Dispatch tables
// ---------------------------------------------------------------------------

// PropertyQuery selects a per-object property attribute.
type PropertyQuery int

const (
	QueryDesignable PropertyQuery = iota
	QueryScriptable
	QueryStored
	QueryEditable
	QueryUser
)

func (q PropertyQuery) String() string {
	switch q {
	case QueryDesignable:
		return "designable"
	case QueryScriptable:
		return "scriptable"
	case QueryStored:
		return "stored"
	case QueryEditable:
		return "editable"
	case QueryUser:
		return "user"
	}
	return fmt.Sprintf("PropertyQuery(%d)", int(q))
}

// Dispatcher is the per-class entry point the engines call into. All
// indices are local to the class that owns the dispatcher. Arguments
// arrive already converted to the declared parameter types.
type Dispatcher interface {
	InvokeMethod(obj Object, index int, args []Value) (Value, error)
	ReadProperty(obj Object, index int) (any, error)
	WriteProperty(obj Object, index int, v Value) error
	ResetProperty(obj Object, index int) error

	// QueryProperty refines a static designable/scriptable/... flag for
	// one object. current is the static value.
	QueryProperty(obj Object, index int, q PropertyQuery, current bool) bool

	CreateInstance(index int, args []Value) (Object, error)
}

// Extension carries data reached through a node's extension record.
// Descriptors of revision 7 and later find their dispatcher here.
type Extension struct {
	Dispatcher Dispatcher
}

// ---------------------------------------------------------------------------
// FuncTable: a Dispatcher backed by Go functions
// ---------------------------------------------------------------------------

// MethodFunc implements one method, slot or signal body.
type MethodFunc func(obj Object, args []Value) (Value, error)

// ConstructorFunc implements one constructor.
type ConstructorFunc func(args []Value) (Object, error)

// PropertyFuncs implements one property. Nil functions are unsupported.
type PropertyFuncs struct {
	Read  func(obj Object) any
	Write func(obj Object, v Value) error
	Reset func(obj Object) error
	Query func(obj Object, q PropertyQuery, current bool) bool
}

// FuncTable dispatches by local index into function slices.
type FuncTable struct {
	Methods      []MethodFunc
	Properties   []PropertyFuncs
	Constructors []ConstructorFunc
}

func (ft *FuncTable) InvokeMethod(obj Object, index int, args []Value) (Value, error) {
	if index < 0 || index >= len(ft.Methods) || ft.Methods[index] == nil {
		return Value{}, fmt.Errorf("%w: no body for method %d", ErrUnsupported, index)
	}
	return ft.Methods[index](obj, args)
}

func (ft *FuncTable) ReadProperty(obj Object, index int) (any, error) {
	p := ft.property(index)
	if p == nil || p.Read == nil {
		return nil, fmt.Errorf("%w: no reader for property %d", ErrUnsupported, index)
	}
	return p.Read(obj), nil
}

func (ft *FuncTable) WriteProperty(obj Object, index int, v Value) error {
	p := ft.property(index)
	if p == nil || p.Write == nil {
		return fmt.Errorf("%w: no writer for property %d", ErrUnsupported, index)
	}
	return p.Write(obj, v)
}

func (ft *FuncTable) ResetProperty(obj Object, index int) error {
	p := ft.property(index)
	if p == nil || p.Reset == nil {
		return fmt.Errorf("%w: no reset for property %d", ErrUnsupported, index)
	}
	return p.Reset(obj)
}

func (ft *FuncTable) QueryProperty(obj Object, index int, q PropertyQuery, current bool) bool {
	p := ft.property(index)
	if p == nil || p.Query == nil {
		return current
	}
	return p.Query(obj, q, current)
}

func (ft *FuncTable) CreateInstance(index int, args []Value) (Object, error) {
	if index < 0 || index >= len(ft.Constructors) || ft.Constructors[index] == nil {
		return nil, fmt.Errorf("%w: no constructor %d", ErrUnsupported, index)
	}
	return ft.Constructors[index](args)
}

func (ft *FuncTable) property(index int) *PropertyFuncs {
	if index < 0 || index >= len(ft.Properties) {
		return nil
	}
	return &ft.Properties[index]
}
