package server

import (
	"testing"
	"time"

	"connectrpc.com/connect"

	"github.com/chazu/metaobject/examples/counter"
	"github.com/chazu/metaobject/meta"
)

// ---------------------------------------------------------------------------
// Classes
// ---------------------------------------------------------------------------

func TestListClasses(t *testing.T) {
	env := newTestEnv(t)

	classes, err := env.Client.ListClasses(bg(), "")
	if err != nil {
		t.Fatalf("ListClasses: %v", err)
	}
	byName := make(map[string]ClassSummary)
	for _, c := range classes {
		byName[c.Name] = c
	}
	c, ok := byName["Counter"]
	if !ok {
		t.Fatalf("Counter missing from %v", classes)
	}
	if c.Super != "QObject" || c.Methods != counter.Class.MethodCount() || c.Properties != counter.Class.PropertyCount() {
		t.Errorf("Counter summary = %+v", c)
	}
	if _, ok := byName["QObject"]; !ok {
		t.Error("QObject should be listed by a permissive server")
	}

	remote, err := env.Client.ListClasses(bg(), "remote")
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range remote {
		if c.Name == "QObject" {
			t.Error("capability filter should drop QObject")
		}
	}
}

func TestListClasses_RestrictedPolicy(t *testing.T) {
	env := newTestEnv(t, WithPolicy(NewRestrictedPolicy([]string{"remote"})))

	classes, err := env.Client.ListClasses(bg(), "")
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range classes {
		if c.Name == "QObject" {
			t.Error("restricted policy should hide QObject")
		}
	}

	_, err = env.Client.DescribeClass(bg(), "QObject")
	wantCode(t, err, connect.CodePermissionDenied)
	_, err = env.Client.CreateObject(bg(), "QObject", "")
	wantCode(t, err, connect.CodePermissionDenied)
}

func TestListClasses_CustomSource(t *testing.T) {
	reg := meta.NewClassRegistry()
	reg.Register(counter.BoundedClass)
	env := newTestEnv(t, WithClasses(reg))

	classes, err := env.Client.ListClasses(bg(), "")
	if err != nil {
		t.Fatal(err)
	}
	if len(classes) != 1 || classes[0].Name != "BoundedCounter" {
		t.Errorf("classes = %+v", classes)
	}
}

func TestDescribeClass(t *testing.T) {
	env := newTestEnv(t)

	m, err := env.Client.DescribeClass(bg(), "BoundedCounter")
	if err != nil {
		t.Fatalf("DescribeClass: %v", err)
	}
	if m.ClassName() != "BoundedCounter" || m.SuperClass().ClassName() != "Counter" {
		t.Errorf("chain = %s -> %s", m.ClassName(), m.SuperClass().ClassName())
	}
	if m.MethodCount() != counter.BoundedClass.MethodCount() {
		t.Errorf("MethodCount() = %d, want %d", m.MethodCount(), counter.BoundedClass.MethodCount())
	}
	idx := m.IndexOfProperty("value")
	if idx != counter.BoundedClass.IndexOfProperty("value") {
		t.Errorf("IndexOfProperty(value) = %d", idx)
	}
	if got := m.Property(idx).NotifySignal().MethodSignature(); got != "valueChanged(int)" {
		t.Errorf("notify = %q", got)
	}
	e := m.Enumerator(m.IndexOfEnumerator("Options"))
	if v, ok := e.KeysToValue("Wrap|Logging"); !ok || v != counter.Wrap|counter.Logging {
		t.Errorf("KeysToValue = %d, %v", v, ok)
	}

	_, err = env.Client.DescribeClass(bg(), "Nope")
	wantCode(t, err, connect.CodeNotFound)
	_, err = env.Client.DescribeClass(bg(), "")
	wantCode(t, err, connect.CodeInvalidArgument)
}

// ---------------------------------------------------------------------------
// Objects
// ---------------------------------------------------------------------------

func TestCreateAndListObjects(t *testing.T) {
	env := newTestEnv(t)

	info, err := env.Client.CreateObject(bg(), "Counter", "first", meta.ValueOf(4))
	if err != nil {
		t.Fatalf("CreateObject: %v", err)
	}
	if info.Class != "Counter" || info.Name != "first" || info.Handle == "" {
		t.Errorf("info = %+v", info)
	}

	objs, err := env.Client.ListObjects(bg())
	if err != nil {
		t.Fatal(err)
	}
	if len(objs) != 1 || objs[0] != info {
		t.Errorf("ListObjects = %+v", objs)
	}

	v, err := env.Client.ReadProperty(bg(), info.Handle, "value")
	if err != nil || v.Int() != 4 {
		t.Errorf("value = %v, %v", v, err)
	}
	name, err := env.Client.ReadProperty(bg(), info.Handle, "objectName")
	if err != nil || name.Text() != "first" {
		t.Errorf("objectName = %v, %v", name, err)
	}

	if err := env.Client.ReleaseObject(bg(), info.Handle); err != nil {
		t.Fatalf("ReleaseObject: %v", err)
	}
	wantCode(t, env.Client.ReleaseObject(bg(), info.Handle), connect.CodeNotFound)
	_, err = env.Client.ReadProperty(bg(), info.Handle, "value")
	wantCode(t, err, connect.CodeNotFound)
}

func TestCreateObject_Errors(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.Client.CreateObject(bg(), "Counter", "", meta.ValueOf("x"), meta.ValueOf("y"))
	wantCode(t, err, connect.CodeNotFound)
	_, err = env.Client.CreateObject(bg(), "BoundedCounter", "", meta.ValueOf(-5))
	wantCode(t, err, connect.CodeInvalidArgument)
	_, err = env.Client.CreateObject(bg(), "", "")
	wantCode(t, err, connect.CodeInvalidArgument)
}

func TestInvoke(t *testing.T) {
	env := newTestEnv(t)
	h := env.createCounter(t)

	if _, err := env.Client.Invoke(bg(), h, "setValue", meta.AutoConnection, meta.ValueOf(10)); err != nil {
		t.Fatalf("setValue: %v", err)
	}
	ret, err := env.Client.Invoke(bg(), h, "add", meta.DirectConnection, meta.ValueOf(5))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if ret.Int() != 15 || ret.Type() != meta.Int {
		t.Errorf("add returned %v (%s)", ret, ret.TypeName())
	}

	ret, err = env.Client.Invoke(bg(), h, "describe", meta.BlockingQueuedConnection)
	if err != nil {
		t.Fatalf("describe: %v", err)
	}
	if ret.Text() != "Counter(15)" {
		t.Errorf("describe = %q", ret.Text())
	}

	_, err = env.Client.Invoke(bg(), h, "nope", meta.AutoConnection)
	wantCode(t, err, connect.CodeNotFound)
	_, err = env.Client.Invoke(bg(), h, "setValue", meta.AutoConnection, meta.ValueOf([]string{"a"}))
	wantCode(t, err, connect.CodeNotFound)
	_, err = env.Client.Invoke(bg(), "h-0", "reset", meta.AutoConnection)
	wantCode(t, err, connect.CodeNotFound)
}

func TestInvoke_Queued(t *testing.T) {
	env := newTestEnv(t)
	h := env.createCounter(t, meta.ValueOf(1))

	ret, err := env.Client.Invoke(bg(), h, "increment", meta.QueuedConnection)
	if err != nil {
		t.Fatalf("queued increment: %v", err)
	}
	if ret.IsValid() {
		t.Errorf("queued call returned %v", ret)
	}

	// The queued call lands on the server thread; a later blocking read
	// is ordered behind it.
	deadline := time.Now().Add(2 * time.Second)
	for {
		v, err := env.Client.ReadProperty(bg(), h, "value")
		if err != nil {
			t.Fatal(err)
		}
		if v.Int() == 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("value = %d, want 2", v.Int())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestInvoke_BadConnection(t *testing.T) {
	env := newTestEnv(t)
	h := env.createCounter(t)

	_, err := env.Server.Service().Invoke(bg(), connectReq(&InvokeRequest{
		Handle:     h,
		Method:     "reset",
		Connection: "sideways",
	}))
	wantCode(t, err, connect.CodeInvalidArgument)

	_, err = env.Server.Service().Invoke(bg(), connectReq(&InvokeRequest{Handle: h}))
	wantCode(t, err, connect.CodeInvalidArgument)
}

// ---------------------------------------------------------------------------
// Properties
// ---------------------------------------------------------------------------

func TestProperties(t *testing.T) {
	env := newTestEnv(t)
	h := env.createCounter(t)

	if err := env.Client.WriteProperty(bg(), h, "mode", meta.ValueOf("Down")); err != nil {
		t.Fatalf("write mode: %v", err)
	}
	mode, err := env.Client.ReadProperty(bg(), h, "mode")
	if err != nil {
		t.Fatal(err)
	}
	if mode.Int() != counter.Down || mode.Type() != counter.ModeType {
		t.Errorf("mode = %v (%s)", mode, mode.TypeName())
	}

	if err := env.Client.WriteProperty(bg(), h, "value", meta.ValueOf("12")); err != nil {
		t.Fatalf("write value: %v", err)
	}
	if err := env.Client.ResetProperty(bg(), h, "value"); err != nil {
		t.Fatalf("reset value: %v", err)
	}
	v, _ := env.Client.ReadProperty(bg(), h, "value")
	if v.Int() != 0 {
		t.Errorf("value after reset = %d", v.Int())
	}

	wantCode(t, env.Client.WriteProperty(bg(), h, "step", meta.ValueOf(0)), connect.CodeInvalidArgument)
	wantCode(t, env.Client.WriteProperty(bg(), h, "mode", meta.ValueOf("Sideways")), connect.CodeInvalidArgument)
	wantCode(t, env.Client.ResetProperty(bg(), h, "step"), connect.CodeFailedPrecondition)
	wantCode(t, env.Client.WriteProperty(bg(), h, "missing", meta.ValueOf(1)), connect.CodeNotFound)
}

func TestProperties_ReadOnly(t *testing.T) {
	env := newTestEnv(t)
	info, err := env.Client.CreateObject(bg(), "BoundedCounter", "", meta.ValueOf(5))
	if err != nil {
		t.Fatal(err)
	}
	max, err := env.Client.ReadProperty(bg(), info.Handle, "maximum")
	if err != nil || max.Int() != 5 {
		t.Errorf("maximum = %v, %v", max, err)
	}
	wantCode(t, env.Client.WriteProperty(bg(), info.Handle, "maximum", meta.ValueOf(9)), connect.CodeFailedPrecondition)
}

func TestStopReleasesHandles(t *testing.T) {
	s := New()
	s.Handles().Create(counter.New())
	s.Stop()
	if s.Handles().Len() != 0 {
		t.Error("Stop should release live handles")
	}
}
