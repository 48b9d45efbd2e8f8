package meta

import (
	"sync"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Object: anything that exposes a meta-object
// ---------------------------------------------------------------------------

// Object is implemented by reflected types. Implementations embed Base
// and return their class node from MetaObject.
type Object interface {
	MetaObject() *MetaObject
	ObjectBase() *Base
}

// Base holds the per-object state shared by all reflected types: a lazily
// assigned ID, the object name and the owning thread.
type Base struct {
	mu     sync.Mutex
	id     string
	name   string
	thread *Thread
}

// ObjectBase returns b. Embedding Base satisfies half of Object.
func (b *Base) ObjectBase() *Base { return b }

// ObjectID returns a process-unique ID, assigned on first use.
func (b *Base) ObjectID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.id == "" {
		b.id = uuid.New().String()
	}
	return b.id
}

// ObjectName returns the object name.
func (b *Base) ObjectName() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.name
}

func (b *Base) setObjectName(name string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.name == name {
		return false
	}
	b.name = name
	return true
}

// Thread returns the thread the object lives in, or nil.
func (b *Base) Thread() *Thread {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.thread
}

// MoveToThread binds the object to t. Queued calls to the object are
// delivered on t from then on.
func (b *Base) MoveToThread(t *Thread) {
	b.mu.Lock()
	b.thread = t
	b.mu.Unlock()
}

// ThreadOf returns the thread obj lives in, or nil.
func ThreadOf(obj Object) *Thread {
	if obj == nil {
		return nil
	}
	return obj.ObjectBase().Thread()
}

// SetObjectName renames obj and emits objectNameChanged when the name
// changes.
func SetObjectName(obj Object, name string) {
	if obj.ObjectBase().setObjectName(name) {
		Emit(obj, "objectNameChanged(QString)", name)
	}
}

// Destroy emits destroyed() and drops every connection involving obj.
func Destroy(obj Object) {
	Emit(obj, "destroyed()")
	DisconnectAll(obj)
}

// ---------------------------------------------------------------------------
// ObjectClass: the root class
// ---------------------------------------------------------------------------

// ObjectClass is the root of every class chain built with
// Builder.SetParent(ObjectClass). It declares the objectName property,
// the destroyed and objectNameChanged signals and the deleteLater slot.
var ObjectClass = newObjectClass()

func newObjectClass() *MetaObject {
	b := NewBuilder("QObject")
	b.AddSignal("destroyed()")
	b.AddSignal("objectNameChanged(QString)").ParamNames("objectName")
	b.AddSlot("deleteLater()", func(obj Object, _ []Value) (Value, error) {
		Destroy(obj)
		return Value{}, nil
	})
	b.AddProperty("objectName", "QString").
		Read(func(obj Object) any { return obj.ObjectBase().ObjectName() }).
		Write(func(obj Object, v Value) error {
			SetObjectName(obj, v.Text())
			return nil
		}).
		Notify("objectNameChanged(QString)")
	return b.MustBuild()
}

func init() {
	Register(ObjectClass)
}
