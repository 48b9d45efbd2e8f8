package meta

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// Shared fixtures for meta package tests.
//
// classA <- classB <- classC form a three-level chain with three properties
// per level. testObject records every method body it runs.
// ---------------------------------------------------------------------------

type testObject struct {
	Base
	mo *MetaObject

	mu    sync.Mutex
	calls []string
	props map[string]any
	ran   *Thread
}

func newTestObject(mo *MetaObject) *testObject {
	return &testObject{mo: mo, props: make(map[string]any)}
}

func (o *testObject) MetaObject() *MetaObject { return o.mo }

func (o *testObject) record(call string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, call)
	o.ran = CurrentThread()
}

func (o *testObject) Calls() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.calls...)
}

func (o *testObject) get(name string) any {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.props[name]
}

func (o *testObject) set(name string, v any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.props[name] = v
}

func asTest(obj Object) *testObject { return obj.(*testObject) }

func intProperty(b *Builder, name string) *PropertyBuilder {
	return b.AddProperty(name, "int").
		Read(func(obj Object) any {
			if v, ok := asTest(obj).get(name).(int); ok {
				return v
			}
			return 0
		}).
		Write(func(obj Object, v Value) error {
			asTest(obj).set(name, v.Interface())
			return nil
		})
}

func recordingSlot(name string) MethodFunc {
	return func(obj Object, args []Value) (Value, error) {
		parts := name
		for _, a := range args {
			parts += fmt.Sprintf(" %v", a.Interface())
		}
		asTest(obj).record(parts)
		return Value{}, nil
	}
}

var (
	classA = buildClassA()
	classB = buildClassB()
	classC = buildClassC()
)

func buildClassA() *MetaObject {
	b := NewBuilder("TestA")
	b.AddSignal("aChanged(int)").ParamNames("value")
	b.AddSlot("aSlot()", recordingSlot("aSlot"))
	b.AddMethod("compute(int,int)", func(obj Object, args []Value) (Value, error) {
		asTest(obj).record("compute")
		return ValueOf(args[0].Int() + args[1].Int()), nil
	}).Returns("int").ParamNames("x", "y")
	intProperty(b, "a0").Notify("aChanged(int)")
	intProperty(b, "a1")
	intProperty(b, "a2")
	b.AddClassInfo("author", "tests")
	b.AddEnum("Color", KeyValue{"Red", 0}, KeyValue{"Green", 1}, KeyValue{"Blue", 2})
	return b.MustBuild()
}

func buildClassB() *MetaObject {
	b := NewBuilder("TestB").SetParent(classA)
	b.AddSignal("bSignal()")
	b.AddSlot("bSlot(QString)", recordingSlot("bSlot"))
	intProperty(b, "b0")
	intProperty(b, "b1")
	intProperty(b, "b2")
	b.AddClassInfo("version", "2")
	return b.MustBuild()
}

func buildClassC() *MetaObject {
	b := NewBuilder("TestC").SetParent(classB)
	b.AddSlot("cSlot(int,QString)", recordingSlot("cSlot"))
	b.AddSlot("takeAny(QVariant)", recordingSlot("takeAny"))
	intProperty(b, "c0")
	intProperty(b, "c1")
	intProperty(b, "c2")
	b.AddFlags("Option", KeyValue{"None", 0}, KeyValue{"Bold", 1}, KeyValue{"Italic", 2}, KeyValue{"BoldItalic", 3})
	return b.MustBuild()
}

// captureDiagnostics collects diagnostics for the duration of a test.
func captureDiagnostics(t *testing.T) func() []Diagnostic {
	t.Helper()
	var mu sync.Mutex
	var got []Diagnostic
	restore := SetDiagnosticHandler(func(d Diagnostic) {
		mu.Lock()
		got = append(got, d)
		mu.Unlock()
	})
	t.Cleanup(restore)
	return func() []Diagnostic {
		mu.Lock()
		defer mu.Unlock()
		return append([]Diagnostic(nil), got...)
	}
}

// spyDispatcher counts dispatch-table calls.
type spyDispatcher struct {
	mu     sync.Mutex
	writes int
	reads  int
	resets int
	value  any
}

func (s *spyDispatcher) InvokeMethod(Object, int, []Value) (Value, error) { return Value{}, nil }

func (s *spyDispatcher) ReadProperty(Object, int) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	return s.value, nil
}

func (s *spyDispatcher) WriteProperty(_ Object, _ int, v Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	s.value = v.Interface()
	return nil
}

func (s *spyDispatcher) ResetProperty(Object, int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resets++
	s.value = nil
	return nil
}

func (s *spyDispatcher) QueryProperty(_ Object, _ int, q PropertyQuery, current bool) bool {
	if q == QueryStored {
		return false
	}
	return current
}

func (s *spyDispatcher) CreateInstance(int, []Value) (Object, error) { return nil, ErrUnsupported }

// occupy posts an event that keeps th busy until release is called. It
// returns once the event is running.
func occupy(t *testing.T, th *Thread) (release func()) {
	t.Helper()
	started := make(chan struct{})
	gate := make(chan struct{})
	th.Post(EventFunc(func() {
		close(started)
		<-gate
	}))
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatalf("%v never ran the blocking event", th)
	}
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

// eventually polls cond until it holds or five seconds pass.
func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}
