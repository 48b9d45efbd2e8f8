package meta

import (
	"errors"
	"strings"
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// Direct
// ---------------------------------------------------------------------------

func TestInvokeDirectIsSynchronous(t *testing.T) {
	obj := newTestObject(classC)
	var ret Value
	if err := Invoke(obj, "compute", DirectConnection, &ret, ValueOf(2), ValueOf(3)); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if ret.Int() != 5 || ret.Type() != Int {
		t.Errorf("ret = %v (%s), want 5 (int)", ret, ret.TypeName())
	}
	if calls := obj.Calls(); len(calls) != 1 || calls[0] != "compute" {
		t.Errorf("calls = %v", calls)
	}
}

func TestInvokeAutoWithoutThreadsIsDirect(t *testing.T) {
	obj := newTestObject(classC)
	if err := Invoke(obj, "cSlot", AutoConnection, nil, ValueOf(7), ValueOf("x")); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if calls := obj.Calls(); len(calls) != 1 || calls[0] != "cSlot 7 x" {
		t.Errorf("calls = %v", calls)
	}
}

func TestInvokeUnsignedArgument(t *testing.T) {
	obj := newTestObject(classC)
	// "unsigned int" names the same type as uint.
	b := NewBuilder("UintTaker")
	b.AddSlot("take(uint)", recordingSlot("take"))
	obj.mo = b.MustBuild()

	if err := Invoke(obj, "take", DirectConnection, nil, NewValue(TypeIDByName("unsigned int"), uint(4))); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if calls := obj.Calls(); len(calls) != 1 || calls[0] != "take 4" {
		t.Errorf("calls = %v", calls)
	}
}

func TestInvokeNotFoundListsCandidates(t *testing.T) {
	diags := captureDiagnostics(t)
	obj := newTestObject(classC)
	err := Invoke(obj, "compute", DirectConnection, nil, ValueOf("a"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	got := diags()
	if len(got) != 1 || !errors.Is(got[0].Err, ErrNotFound) {
		t.Fatalf("diagnostics = %v", got)
	}
	if want := "compute(int,int)"; !strings.Contains(got[0].Message, want) {
		t.Errorf("message %q should list candidate %q", got[0].Message, want)
	}
}

func TestInvokeArgumentCountCheck(t *testing.T) {
	obj := newTestObject(classC)
	m := classC.Method(classC.IndexOfMethod("compute(int,int)"))

	err := m.Invoke(obj, DirectConnection, nil, ValueOf(1))
	if !errors.Is(err, ErrArgumentMismatch) {
		t.Errorf("too few: err = %v, want ErrArgumentMismatch", err)
	}
	// An invalid box ends the argument list.
	err = m.Invoke(obj, DirectConnection, nil, ValueOf(1), Value{}, ValueOf(2))
	if !errors.Is(err, ErrArgumentMismatch) {
		t.Errorf("gap: err = %v, want ErrArgumentMismatch", err)
	}
	many := make([]Value, MaxArguments+1)
	for i := range many {
		many[i] = ValueOf(i)
	}
	if err := m.Invoke(obj, DirectConnection, nil, many...); !errors.Is(err, ErrArgumentMismatch) {
		t.Errorf("too many: err = %v, want ErrArgumentMismatch", err)
	}
	if len(obj.Calls()) != 0 {
		t.Error("no call should have been made")
	}
}

func TestInvokeReturnSlotTypeCheck(t *testing.T) {
	obj := newTestObject(classC)
	ret := ValueOf("not an int")
	err := Invoke(obj, "compute", DirectConnection, &ret, ValueOf(1), ValueOf(2))
	if !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("err = %v, want ErrTypeMismatch", err)
	}
}

func TestInvokeConvertsArguments(t *testing.T) {
	obj := newTestObject(classC)
	m := classC.Method(classC.IndexOfMethod("compute(int,int)"))
	var ret Value
	if err := m.Invoke(obj, DirectConnection, &ret, ValueOf("40"), ValueOf(int64(2))); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if ret.Int() != 42 {
		t.Errorf("ret = %v, want 42", ret)
	}
	err := m.Invoke(obj, DirectConnection, &ret, ValueOf("forty"), ValueOf(2))
	if !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("err = %v, want ErrTypeMismatch", err)
	}
}

func TestInvokeRejectsForeignReceiver(t *testing.T) {
	obj := newTestObject(classA)
	m := classC.Method(classC.IndexOfMethod("cSlot(int,QString)"))
	if err := m.Invoke(obj, DirectConnection, nil, ValueOf(1), ValueOf("a")); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("err = %v, want ErrTypeMismatch", err)
	}
}

// ---------------------------------------------------------------------------
// Queued
// ---------------------------------------------------------------------------

func TestInvokeQueuedIsDeferred(t *testing.T) {
	th := NewThread("queued")
	obj := newTestObject(classC)
	obj.MoveToThread(th)

	if err := Invoke(obj, "cSlot", QueuedConnection, nil, ValueOf(1), ValueOf("q")); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if len(obj.Calls()) != 0 {
		t.Fatal("queued call ran before the loop iterated")
	}
	if th.Pending() != 1 {
		t.Errorf("Pending() = %d, want 1", th.Pending())
	}
	if n := th.ProcessEvents(); n != 1 {
		t.Errorf("ProcessEvents() = %d, want 1", n)
	}
	if calls := obj.Calls(); len(calls) != 1 || calls[0] != "cSlot 1 q" {
		t.Errorf("calls = %v", calls)
	}
	if obj.ran != th {
		t.Error("queued call should run as the receiver's thread")
	}
}

func TestInvokeAutoAcrossThreadsQueues(t *testing.T) {
	th := NewThread("auto")
	obj := newTestObject(classC)
	obj.MoveToThread(th)

	if err := Invoke(obj, "aSlot", AutoConnection, nil); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if len(obj.Calls()) != 0 {
		t.Fatal("auto call from another goroutine should be queued")
	}
	th.ProcessEvents()

	// From inside the receiver's loop Auto is direct.
	var inner []string
	th.Post(EventFunc(func() {
		Invoke(obj, "aSlot", AutoConnection, nil)
		inner = obj.Calls()
	}))
	th.ProcessEvents()
	if len(inner) != 2 {
		t.Errorf("calls seen inside loop = %v, want two", inner)
	}
}

func TestInvokeQueuedCopiesArguments(t *testing.T) {
	th := NewThread("copy")
	obj := newTestObject(classC)
	obj.MoveToThread(th)

	var got []string
	b := NewBuilder("ListTaker")
	b.AddSlot("take(QStringList)", func(_ Object, args []Value) (Value, error) {
		got = args[0].Interface().([]string)
		return Value{}, nil
	})
	obj.mo = b.MustBuild()

	list := []string{"a", "b"}
	if err := Invoke(obj, "take", QueuedConnection, nil, ValueOf(list)); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	list[0] = "changed"
	th.ProcessEvents()
	if len(got) != 2 || got[0] != "a" {
		t.Errorf("queued argument = %v, want a copy [a b]", got)
	}
}

func TestInvokeQueuedErrors(t *testing.T) {
	th := NewThread("errors")
	obj := newTestObject(classC)
	obj.MoveToThread(th)

	var ret Value
	if err := Invoke(obj, "aSlot", QueuedConnection, &ret); !errors.Is(err, ErrUnsupported) {
		t.Errorf("return slot: err = %v, want ErrUnsupported", err)
	}

	type custom struct{ N int }
	m := classC.Method(classC.IndexOfMethod("takeAny(QVariant)"))
	if err := m.Invoke(obj, QueuedConnection, nil, ValueOf(custom{1})); !errors.Is(err, ErrUnregisteredType) {
		t.Errorf("unregistered: err = %v, want ErrUnregisteredType", err)
	}
	if th.Pending() != 0 {
		t.Error("failed queued calls must not be posted")
	}

	orphan := newTestObject(classC)
	if err := Invoke(orphan, "aSlot", QueuedConnection, nil); !errors.Is(err, ErrNoEventLoop) {
		t.Errorf("no thread: err = %v, want ErrNoEventLoop", err)
	}
}

// ---------------------------------------------------------------------------
// BlockingQueued
// ---------------------------------------------------------------------------

func TestInvokeBlockingQueuedWaitsForResult(t *testing.T) {
	th := NewThread("blocking")
	th.Start()
	defer th.Stop()

	obj := newTestObject(classC)
	obj.MoveToThread(th)

	var ret Value
	if err := Invoke(obj, "compute", BlockingQueuedConnection, &ret, ValueOf(20), ValueOf(22)); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if ret.Int() != 42 {
		t.Errorf("ret = %v, want 42", ret)
	}
	if obj.ran != th {
		t.Error("blocking call should run on the receiver's thread")
	}
}

func TestInvokeBlockingQueuedSameThreadDiagnostic(t *testing.T) {
	diags := make(chan Diagnostic, 4)
	restore := SetDiagnosticHandler(func(d Diagnostic) { diags <- d })
	defer restore()

	th := NewThread("self")
	th.Start()

	obj := newTestObject(classC)
	obj.MoveToThread(th)

	result := make(chan error, 1)
	th.Post(EventFunc(func() {
		result <- Invoke(obj, "aSlot", BlockingQueuedConnection, nil)
	}))

	select {
	case d := <-diags:
		if !errors.Is(d.Err, ErrDeadlockRisk) {
			t.Errorf("diagnostic = %v, want ErrDeadlockRisk", d.Err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no deadlock diagnostic")
	}

	// The call can never run; stopping the thread releases the caller.
	th.Stop()
	select {
	case err := <-result:
		if !errors.Is(err, ErrThreadStopped) {
			t.Errorf("err = %v, want ErrThreadStopped", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("blocking call was not released by Stop")
	}
}

func TestInvokeBlockingQueuedSameThreadAsError(t *testing.T) {
	prev := CurrentOptions()
	SetOptions(Options{SignatureCacheSize: prev.SignatureCacheSize, BlockingSameThreadIsError: true})
	defer SetOptions(prev)

	th := NewThread("strict")
	obj := newTestObject(classC)
	obj.MoveToThread(th)

	var err error
	th.Post(EventFunc(func() {
		err = Invoke(obj, "aSlot", BlockingQueuedConnection, nil)
	}))
	th.ProcessEvents()
	if !errors.Is(err, ErrDeadlockRisk) {
		t.Errorf("err = %v, want ErrDeadlockRisk", err)
	}
	if len(obj.Calls()) != 0 {
		t.Error("slot should not have run")
	}
}

func TestInvokeBlockingQueuedNoThread(t *testing.T) {
	obj := newTestObject(classC)
	if err := Invoke(obj, "aSlot", BlockingQueuedConnection, nil); !errors.Is(err, ErrNoEventLoop) {
		t.Errorf("err = %v, want ErrNoEventLoop", err)
	}
}

// ---------------------------------------------------------------------------
// Constructors
// ---------------------------------------------------------------------------

func TestNewInstance(t *testing.T) {
	var widget *MetaObject
	b := NewBuilder("Widget")
	intProperty(b, "size")
	b.AddConstructor("Widget()", func([]Value) (Object, error) {
		return newTestObject(widget), nil
	})
	b.AddConstructor("Widget(int)", func(args []Value) (Object, error) {
		o := newTestObject(widget)
		o.set("size", args[0].Int())
		return o, nil
	})
	widget = b.MustBuild()

	obj, err := widget.NewInstance(ValueOf(int64(9)))
	if err == nil {
		t.Fatalf("Widget(qlonglong) should not resolve, got %v", obj)
	}
	obj, err = widget.NewInstance(ValueOf(9))
	if err != nil {
		t.Fatalf("NewInstance: %v", err)
	}
	if got := widget.Property(widget.IndexOfProperty("size")).Read(obj).Int(); got != 9 {
		t.Errorf("size = %d, want 9", got)
	}
	if _, err := widget.NewInstance(); err != nil {
		t.Errorf("default constructor: %v", err)
	}
	if widget.ConstructorCount() != 2 || widget.Constructor(1).MethodSignature() != "Widget(int)" {
		t.Error("constructor table mismatch")
	}
}

// ---------------------------------------------------------------------------
// Calls from goroutines outside the receiver's thread
// ---------------------------------------------------------------------------

func TestInvokeAutoFromOtherGoroutineQueues(t *testing.T) {
	th := NewThread("worker")
	th.Start()
	defer th.Stop()

	obj := newTestObject(classC)
	obj.MoveToThread(th)

	release := occupy(t, th)
	if err := Invoke(obj, "aSlot", AutoConnection, nil); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if calls := obj.Calls(); len(calls) != 0 {
		t.Fatalf("calls while the worker is busy = %v, want none", calls)
	}

	release()
	eventually(t, "aSlot to run", func() bool { return len(obj.Calls()) == 1 })
	if obj.ran != th {
		t.Error("auto call should run on the receiver's thread")
	}
}

func TestInvokeBlockingQueuedFromOtherGoroutineStrict(t *testing.T) {
	prev := CurrentOptions()
	SetOptions(Options{SignatureCacheSize: prev.SignatureCacheSize, BlockingSameThreadIsError: true})
	defer SetOptions(prev)
	diags := captureDiagnostics(t)

	th := NewThread("strict-worker")
	th.Start()
	defer th.Stop()

	obj := newTestObject(classC)
	obj.MoveToThread(th)

	var ret Value
	if err := Invoke(obj, "compute", BlockingQueuedConnection, &ret, ValueOf(1), ValueOf(2)); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if ret.Int() != 3 {
		t.Errorf("ret = %v, want 3", ret)
	}
	for _, d := range diags() {
		if errors.Is(d.Err, ErrDeadlockRisk) {
			t.Errorf("unexpected deadlock diagnostic: %s", d.Message)
		}
	}
}

func TestInvokeBlockingQueuedRunningWhenStopped(t *testing.T) {
	started := make(chan struct{})
	gate := make(chan struct{})
	b := NewBuilder("SlowWork")
	b.AddMethod("work()", func(Object, []Value) (Value, error) {
		close(started)
		<-gate
		return ValueOf(7), nil
	}).Returns("int")
	slow := b.MustBuild()

	th := NewThread("midflight")
	th.Start()
	obj := newTestObject(slow)
	obj.MoveToThread(th)

	var ret Value
	result := make(chan error, 1)
	go func() { result <- Invoke(obj, "work", BlockingQueuedConnection, &ret) }()

	<-started
	th.Stop()
	select {
	case err := <-result:
		t.Fatalf("Invoke returned %v while the call was running", err)
	case <-time.After(20 * time.Millisecond):
	}

	close(gate)
	if err := <-result; err != nil {
		t.Fatalf("err = %v, want nil for a call that ran", err)
	}
	if ret.Int() != 7 {
		t.Errorf("ret = %v, want 7", ret)
	}
}

func TestInvokeBlockingQueuedStoppedBeforeRun(t *testing.T) {
	th := NewThread("idle")
	obj := newTestObject(classC)
	obj.MoveToThread(th)

	result := make(chan error, 1)
	go func() { result <- Invoke(obj, "aSlot", BlockingQueuedConnection, nil) }()

	eventually(t, "call to be posted", func() bool { return th.Pending() == 1 })
	th.Stop()
	if err := <-result; !errors.Is(err, ErrThreadStopped) {
		t.Errorf("err = %v, want ErrThreadStopped", err)
	}
	if calls := obj.Calls(); len(calls) != 0 {
		t.Errorf("calls = %v, want none", calls)
	}
}

func TestInvokeUnconvertibleResultWarns(t *testing.T) {
	b := NewBuilder("LooseReturn")
	b.AddMethod("name()", func(Object, []Value) (Value, error) {
		return ValueOf("not a number"), nil
	}).Returns("int")
	loose := b.MustBuild()
	diags := captureDiagnostics(t)

	var ret Value
	if err := Invoke(newTestObject(loose), "name", DirectConnection, &ret); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if ret.Type() != QString {
		t.Errorf("ret type = %s, want the unconverted QString", ret.TypeName())
	}
	got := diags()
	if len(got) != 1 || !errors.Is(got[0].Err, ErrTypeMismatch) {
		t.Errorf("diagnostics = %+v, want one ErrTypeMismatch", got)
	}
}
