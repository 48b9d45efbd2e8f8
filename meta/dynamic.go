package meta

import (
	"fmt"
	"sync"
)

// ---------------------------------------------------------------------------
// Dynamic meta-objects: per-object nodes with on-demand properties
// ---------------------------------------------------------------------------

// NewDynamicMetaObject creates a per-object node deriving from class.
// Looking up an unknown property name on it creates a QVariant property of
// that name; values are stored in the node. Each call yields a new node,
// which is not registered.
func NewDynamicMetaObject(class *MetaObject) *MetaObject {
	st := NewStringTable()
	d := &Descriptor{
		Revision:  CurrentRevision,
		ClassName: st.Intern(class.ClassName()),
		Flags:     DynamicClass,
		Strings:   st,
	}
	m := NewMetaObject(d, class, &dynamicStore{values: make(map[int]Value)}, class.Capabilities()...)
	m.propertyHook = m.createProperty
	return m
}

// createProperty appends a property to the node's descriptor copy-on-write
// and returns its global index.
func (m *MetaObject) createProperty(name string) int {
	m.grow.Lock()
	defer m.grow.Unlock()

	d := m.desc.Load()
	for i := range d.Properties {
		if d.str(d.Properties[i].Name) == name {
			return m.PropertyOffset() + i
		}
	}

	nd := d.clone()
	nd.Properties = append(nd.Properties, PropertyRecord{
		Name:     nd.Strings.Intern(name),
		TypeName: nd.Strings.Intern("QVariant"),
		Flags:    (DefaultPropertyFlags | Resettable).WithTypeID(QVariant),
		Notify:   -1,
	})
	m.desc.Store(nd)
	return m.PropertyOffset() + len(nd.Properties) - 1
}

// dynamicStore holds the values of a dynamic node's properties by local
// index.
type dynamicStore struct {
	mu     sync.RWMutex
	values map[int]Value
}

func (s *dynamicStore) InvokeMethod(_ Object, index int, _ []Value) (Value, error) {
	return Value{}, fmt.Errorf("%w: dynamic node has no method %d", ErrUnsupported, index)
}

func (s *dynamicStore) ReadProperty(_ Object, index int) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[index], nil
}

func (s *dynamicStore) WriteProperty(_ Object, index int, v Value) error {
	if inner, ok := v.Interface().(Value); ok && v.Type() == QVariant {
		v = inner
	}
	s.mu.Lock()
	s.values[index] = v
	s.mu.Unlock()
	return nil
}

func (s *dynamicStore) ResetProperty(_ Object, index int) error {
	s.mu.Lock()
	delete(s.values, index)
	s.mu.Unlock()
	return nil
}

func (s *dynamicStore) QueryProperty(_ Object, _ int, _ PropertyQuery, current bool) bool {
	return current
}

func (s *dynamicStore) CreateInstance(index int, _ []Value) (Object, error) {
	return nil, fmt.Errorf("%w: dynamic node has no constructor %d", ErrUnsupported, index)
}
