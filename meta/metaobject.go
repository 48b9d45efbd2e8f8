package meta

import (
	"sort"
	"sync"
	"sync/atomic"
)

// ---------------------------------------------------------------------------
// MetaObject: one node per class in a single-parent chain
// ---------------------------------------------------------------------------

// MetaObject describes one class. Nodes are created once per class and
// compared by pointer identity. Global member indices count from the root
// of the chain: a class's local index i has global index offset+i, where
// offset is the sum of all ancestors' counts.
type MetaObject struct {
	desc   atomic.Pointer[Descriptor]
	parent *MetaObject

	// static holds the dispatcher for descriptors older than revision 7;
	// newer descriptors reach it through ext.
	static Dispatcher
	ext    *Extension

	caps map[string]struct{}

	// propertyHook answers IndexOfProperty misses on dynamic nodes.
	propertyHook func(name string) int
	grow         sync.Mutex
}

// NewMetaObject creates a node for d with the given parent and dispatcher.
// The dispatcher may be nil for describe-only nodes.
func NewMetaObject(d *Descriptor, parent *MetaObject, disp Dispatcher, capabilities ...string) *MetaObject {
	m := &MetaObject{parent: parent}
	m.desc.Store(d)
	if d.Revision >= extensionRevision {
		m.ext = &Extension{Dispatcher: disp}
	} else {
		m.static = disp
	}
	if len(capabilities) > 0 {
		m.caps = make(map[string]struct{}, len(capabilities))
		for _, c := range capabilities {
			m.caps[c] = struct{}{}
		}
	}
	return m
}

// Descriptor returns the node's current member table.
func (m *MetaObject) Descriptor() *Descriptor { return m.desc.Load() }

// ClassName returns the class name.
func (m *MetaObject) ClassName() string { return m.desc.Load().Name() }

// SuperClass returns the parent node, or nil for a root class.
func (m *MetaObject) SuperClass() *MetaObject { return m.parent }

// Revision returns the descriptor revision.
func (m *MetaObject) Revision() int { return m.desc.Load().Revision }

// Flags returns the class flags.
func (m *MetaObject) Flags() ClassFlags { return m.desc.Load().Flags }

// Extension returns the extension record, or nil for old revisions.
func (m *MetaObject) Extension() *Extension { return m.ext }

// Dispatcher returns the class's dispatch table, or nil.
func (m *MetaObject) Dispatcher() Dispatcher {
	if m.desc.Load().Revision >= extensionRevision {
		if m.ext == nil {
			return nil
		}
		return m.ext.Dispatcher
	}
	return m.static
}

// HasCapability reports whether the class carries tag.
func (m *MetaObject) HasCapability(tag string) bool {
	_, ok := m.caps[tag]
	return ok
}

// Capabilities returns the class's capability tags, sorted.
func (m *MetaObject) Capabilities() []string {
	result := make([]string, 0, len(m.caps))
	for c := range m.caps {
		result = append(result, c)
	}
	sort.Strings(result)
	return result
}

// Inherits reports whether m is other or derives from it.
func (m *MetaObject) Inherits(other *MetaObject) bool {
	for n := m; n != nil; n = n.parent {
		if n == other {
			return true
		}
	}
	return false
}

// Cast returns obj if its class is m or derives from m, otherwise nil.
func (m *MetaObject) Cast(obj Object) Object {
	if obj == nil {
		return nil
	}
	if mo := obj.MetaObject(); mo != nil && mo.Inherits(m) {
		return obj
	}
	return nil
}

// ---------------------------------------------------------------------------
// Offsets and counts
// ---------------------------------------------------------------------------

func methodsOf(d *Descriptor) int    { return len(d.Methods) }
func propertiesOf(d *Descriptor) int { return len(d.Properties) }
func enumsOf(d *Descriptor) int      { return len(d.Enums) }
func classInfosOf(d *Descriptor) int { return len(d.ClassInfos) }

func (m *MetaObject) offset(count func(*Descriptor) int) int {
	n := 0
	for p := m.parent; p != nil; p = p.parent {
		n += count(p.desc.Load())
	}
	return n
}

// locate maps a global index to the owning node and its local index.
func (m *MetaObject) locate(i int, count func(*Descriptor) int) (*MetaObject, int) {
	if i < 0 {
		return nil, -1
	}
	for node := m; node != nil; node = node.parent {
		off := node.offset(count)
		if i >= off {
			if local := i - off; local < count(node.desc.Load()) {
				return node, local
			}
			return nil, -1
		}
	}
	return nil, -1
}

// MethodOffset returns the global index of the first local method.
func (m *MetaObject) MethodOffset() int { return m.offset(methodsOf) }

// PropertyOffset returns the global index of the first local property.
func (m *MetaObject) PropertyOffset() int { return m.offset(propertiesOf) }

// EnumeratorOffset returns the global index of the first local enumerator.
func (m *MetaObject) EnumeratorOffset() int { return m.offset(enumsOf) }

// ClassInfoOffset returns the global index of the first local classinfo.
func (m *MetaObject) ClassInfoOffset() int { return m.offset(classInfosOf) }

// MethodCount returns the number of methods including inherited ones.
func (m *MetaObject) MethodCount() int { return m.MethodOffset() + methodsOf(m.desc.Load()) }

// PropertyCount returns the number of properties including inherited ones.
func (m *MetaObject) PropertyCount() int { return m.PropertyOffset() + propertiesOf(m.desc.Load()) }

// EnumeratorCount returns the number of enumerators including inherited ones.
func (m *MetaObject) EnumeratorCount() int { return m.EnumeratorOffset() + enumsOf(m.desc.Load()) }

// ClassInfoCount returns the number of classinfos including inherited ones.
func (m *MetaObject) ClassInfoCount() int { return m.ClassInfoOffset() + classInfosOf(m.desc.Load()) }

// ConstructorCount returns the number of constructors. Constructors are
// not inherited.
func (m *MetaObject) ConstructorCount() int { return len(m.desc.Load().Constructors) }

// ---------------------------------------------------------------------------
// Member lookup by name
// ---------------------------------------------------------------------------

type methodFilter int

const (
	anyMethod methodFilter = iota
	signalsOnly
	slotsOnly
)

// indexOfMethodRelative scans each node's methods from the highest local
// index down, comparing the first character before the full signature,
// then falls through to the parent.
func (m *MetaObject) indexOfMethodRelative(sig string, filter methodFilter) int {
	if sig == "" {
		return -1
	}
	for node := m; node != nil; node = node.parent {
		d := node.desc.Load()
		lo, hi := 0, len(d.Methods)
		switch filter {
		case signalsOnly:
			hi = min(d.SignalCount, hi)
		case slotsOnly:
			lo = d.SignalCount
		}
		for i := hi - 1; i >= lo; i-- {
			rec := &d.Methods[i]
			if filter == slotsOnly && rec.Flags.Type() != SlotKind {
				continue
			}
			if s := d.str(rec.Signature); s != "" && s[0] == sig[0] && s == sig {
				return node.MethodOffset() + i
			}
		}
	}
	return -1
}

// IndexOfMethod returns the global index of the method with the given
// normalized signature, or -1.
func (m *MetaObject) IndexOfMethod(sig string) int {
	return m.indexOfMethodRelative(sig, anyMethod)
}

// IndexOfSignal returns the global index of a signal, or -1.
func (m *MetaObject) IndexOfSignal(sig string) int {
	return m.indexOfMethodRelative(sig, signalsOnly)
}

// IndexOfSlot returns the global index of a slot, or -1.
func (m *MetaObject) IndexOfSlot(sig string) int {
	return m.indexOfMethodRelative(sig, slotsOnly)
}

// IndexOfConstructor returns the local index of a constructor, or -1.
func (m *MetaObject) IndexOfConstructor(sig string) int {
	if sig == "" {
		return -1
	}
	d := m.desc.Load()
	for i := len(d.Constructors) - 1; i >= 0; i-- {
		if s := d.str(d.Constructors[i].Signature); s != "" && s[0] == sig[0] && s == sig {
			return i
		}
	}
	return -1
}

// IndexOfEnumerator returns the global index of an enumerator, or -1.
func (m *MetaObject) IndexOfEnumerator(name string) int {
	if name == "" {
		return -1
	}
	for node := m; node != nil; node = node.parent {
		d := node.desc.Load()
		for i := len(d.Enums) - 1; i >= 0; i-- {
			if s := d.str(d.Enums[i].Name); s != "" && s[0] == name[0] && s == name {
				return node.EnumeratorOffset() + i
			}
		}
	}
	return -1
}

// IndexOfProperty returns the global index of a property, or -1. On a
// dynamic node a miss is passed to the node's property hook, which may
// create the property.
func (m *MetaObject) IndexOfProperty(name string) int {
	if name == "" {
		return -1
	}
	for node := m; node != nil; node = node.parent {
		d := node.desc.Load()
		for i := len(d.Properties) - 1; i >= 0; i-- {
			if s := d.str(d.Properties[i].Name); s != "" && s[0] == name[0] && s == name {
				return node.PropertyOffset() + i
			}
		}
	}
	if m.desc.Load().Flags&DynamicClass != 0 && m.propertyHook != nil {
		return m.propertyHook(name)
	}
	return -1
}

// IndexOfClassInfo returns the global index of a classinfo entry, or -1.
func (m *MetaObject) IndexOfClassInfo(name string) int {
	if name == "" {
		return -1
	}
	for node := m; node != nil; node = node.parent {
		d := node.desc.Load()
		for i := len(d.ClassInfos) - 1; i >= 0; i-- {
			if s := d.str(d.ClassInfos[i].Name); s != "" && s[0] == name[0] && s == name {
				return node.ClassInfoOffset() + i
			}
		}
	}
	return -1
}

// ---------------------------------------------------------------------------
// Member handles by global index
// ---------------------------------------------------------------------------

// Method returns the method with global index i, or an invalid handle.
func (m *MetaObject) Method(i int) MetaMethod {
	node, local := m.locate(i, methodsOf)
	if node == nil {
		return MetaMethod{}
	}
	return MetaMethod{mobj: node, local: local}
}

// Constructor returns the constructor with local index i, or an invalid
// handle.
func (m *MetaObject) Constructor(i int) MetaMethod {
	if i < 0 || i >= m.ConstructorCount() {
		return MetaMethod{}
	}
	return MetaMethod{mobj: m, local: i, ctor: true}
}

// Property returns the property with global index i, or an invalid handle.
func (m *MetaObject) Property(i int) MetaProperty {
	node, local := m.locate(i, propertiesOf)
	if node == nil {
		return MetaProperty{}
	}
	return MetaProperty{mobj: node, local: local}
}

// Enumerator returns the enumerator with global index i, or an invalid
// handle.
func (m *MetaObject) Enumerator(i int) MetaEnum {
	node, local := m.locate(i, enumsOf)
	if node == nil {
		return MetaEnum{}
	}
	return MetaEnum{mobj: node, local: local}
}

// ClassInfo returns the classinfo with global index i, or an invalid handle.
func (m *MetaObject) ClassInfo(i int) MetaClassInfo {
	node, local := m.locate(i, classInfosOf)
	if node == nil {
		return MetaClassInfo{}
	}
	return MetaClassInfo{mobj: node, local: local}
}

// UserProperty returns the first property flagged User, or an invalid
// handle.
func (m *MetaObject) UserProperty() MetaProperty {
	for i := m.PropertyCount() - 1; i >= 0; i-- {
		if p := m.Property(i); p.flags()&User != 0 {
			return p
		}
	}
	return MetaProperty{}
}

// Methods returns every method including inherited ones, in global order.
func (m *MetaObject) Methods() []MetaMethod {
	n := m.MethodCount()
	result := make([]MetaMethod, 0, n)
	for i := 0; i < n; i++ {
		result = append(result, m.Method(i))
	}
	return result
}

// Properties returns every property including inherited ones.
func (m *MetaObject) Properties() []MetaProperty {
	n := m.PropertyCount()
	result := make([]MetaProperty, 0, n)
	for i := 0; i < n; i++ {
		result = append(result, m.Property(i))
	}
	return result
}
