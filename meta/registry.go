package meta

import (
	"sort"
	"sync"
)

// ---------------------------------------------------------------------------
// ClassRegistry: process-wide class lookup by name
// ---------------------------------------------------------------------------

// ClassRegistry maps class names to meta-object nodes.
// It's thread-safe for concurrent access.
type ClassRegistry struct {
	mu      sync.RWMutex
	classes map[string]*MetaObject
}

// NewClassRegistry creates an empty registry.
func NewClassRegistry() *ClassRegistry {
	return &ClassRegistry{
		classes: make(map[string]*MetaObject),
	}
}

// Register adds a node under its class name. If the name is taken the
// registry is unchanged and the existing node is returned; otherwise m is
// returned.
func (cr *ClassRegistry) Register(m *MetaObject) *MetaObject {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	name := m.ClassName()
	if old, ok := cr.classes[name]; ok {
		return old
	}
	cr.classes[name] = m
	return m
}

// Lookup finds a class by name.
func (cr *ClassRegistry) Lookup(name string) *MetaObject {
	cr.mu.RLock()
	defer cr.mu.RUnlock()
	return cr.classes[name]
}

// Unregister removes a class by name.
func (cr *ClassRegistry) Unregister(name string) {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	delete(cr.classes, name)
}

// All returns all registered classes sorted by name.
func (cr *ClassRegistry) All() []*MetaObject {
	cr.mu.RLock()
	result := make([]*MetaObject, 0, len(cr.classes))
	for _, m := range cr.classes {
		result = append(result, m)
	}
	cr.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].ClassName() < result[j].ClassName()
	})
	return result
}

// Len returns the number of registered classes.
func (cr *ClassRegistry) Len() int {
	cr.mu.RLock()
	defer cr.mu.RUnlock()
	return len(cr.classes)
}

var classes = NewClassRegistry()

// Register adds m to the process-wide registry. See ClassRegistry.Register.
func Register(m *MetaObject) *MetaObject { return classes.Register(m) }

// Lookup finds a class in the process-wide registry.
func Lookup(name string) *MetaObject { return classes.Lookup(name) }

// Unregister removes a class from the process-wide registry.
func Unregister(name string) { classes.Unregister(name) }

// Classes returns all classes in the process-wide registry.
func Classes() []*MetaObject { return classes.All() }
