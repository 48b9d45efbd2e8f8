package main

import (
	"bytes"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/metaobject/catalog"
	"github.com/chazu/metaobject/examples/counter"
	"github.com/chazu/metaobject/meta"
	"github.com/chazu/metaobject/server"
)

func TestDescribeCounter(t *testing.T) {
	var buf bytes.Buffer
	describe(&buf, counter.BoundedClass)
	out := buf.String()

	for _, want := range []string{
		"class BoundedCounter : Counter : QObject",
		"capabilities: remote",
		`author = "metaobject"`,
		"enum Counter::Mode { Up=0, Down=1 }",
		"Counter::valueChanged(int)",
		"Counter::describe() [inspect]",
		"BoundedCounter::limitReached()",
		"BoundedCounter(int)",
		"value (resettable, notify valueChanged(int))",
		"maximum (read-only, constant)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("describe output missing %q:\n%s", want, out)
		}
	}
}

func TestParseArg(t *testing.T) {
	tests := []struct {
		in   string
		typ  meta.TypeID
		want any
	}{
		{"42", meta.Int, 42},
		{"-7", meta.Int, -7},
		{"1.5", meta.Double, 1.5},
		{"true", meta.Bool, true},
		{"hello", meta.QString, "hello"},
		{"s:42", meta.QString, "42"},
		{"s:", meta.QString, ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			v := parseArg(tt.in)
			if v.Type() != tt.typ {
				t.Errorf("type = %s, want %s", v.TypeName(), meta.TypeName(tt.typ))
			}
			if v.Interface() != tt.want {
				t.Errorf("value = %v, want %v", v.Interface(), tt.want)
			}
		})
	}
}

// writeConfig creates a metaobject.toml in a temp dir and returns its path.
func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "metaobject.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func run(t *testing.T, args ...string) error {
	t.Helper()
	t.Cleanup(func() { meta.SetOptions(meta.DefaultOptions()) })
	return newApp().Run(append([]string{"metaobj"}, args...))
}

func TestNormalizeCommand(t *testing.T) {
	path := writeConfig(t, "")
	if err := run(t, "-c", path, "normalize", "foo( const QString & , int )"); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if err := run(t, "-c", path, "normalize"); err == nil {
		t.Error("normalize without arguments should fail")
	}
}

func TestConfigErrorStopsCommand(t *testing.T) {
	path := writeConfig(t, "[runtime]\nblocking-same-thread = \"maybe\"\n")
	if err := run(t, "-c", path, "normalize", "f()"); err == nil {
		t.Error("invalid config should fail before the command runs")
	}
}

func TestCatalogCommands(t *testing.T) {
	path := writeConfig(t, "[catalog]\npath = \"test.db\"\n")

	if err := run(t, "-c", path, "catalog", "save", "BoundedCounter"); err != nil {
		t.Fatalf("catalog save: %v", err)
	}
	if err := run(t, "-c", path, "catalog", "save", "NoSuchClass"); err == nil {
		t.Error("saving an unregistered class should fail")
	}
	if err := run(t, "-c", path, "describe", "--catalog", "BoundedCounter"); err != nil {
		t.Fatalf("describe --catalog: %v", err)
	}

	cat, err := catalog.Open(filepath.Join(filepath.Dir(path), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	entries, err := cat.List()
	cat.Close()
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name)
	}
	if got := fmt.Sprint(names); got != "[BoundedCounter Counter QObject]" {
		t.Errorf("catalog entries = %s", got)
	}

	if err := run(t, "-c", path, "catalog", "delete", "Counter"); err != nil {
		t.Fatalf("catalog delete: %v", err)
	}
	if err := run(t, "-c", path, "catalog", "delete", "Counter"); err == nil {
		t.Error("deleting twice should fail")
	}
}

func TestCallAgainstServer(t *testing.T) {
	srv := server.New()
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.Stop()
	})
	path := writeConfig(t, "")

	if err := run(t, "-c", path, "call", "--remote", ts.URL, "--ctor", "5", "Counter", "add", "3"); err != nil {
		t.Fatalf("call add: %v", err)
	}
	if err := run(t, "-c", path, "call", "--remote", ts.URL, "--connection", "queued", "Counter", "increment"); err != nil {
		t.Fatalf("queued call: %v", err)
	}
	if err := run(t, "-c", path, "call", "--remote", ts.URL, "Counter", "missing"); err == nil {
		t.Error("calling an unknown method should fail")
	}
	if err := run(t, "-c", path, "call", "--remote", ts.URL, "--connection", "sideways", "Counter", "increment"); err == nil {
		t.Error("bad connection type should fail")
	}
	if got := srv.Handles().Len(); got != 0 {
		t.Errorf("%d handles left after calls", got)
	}
	if err := run(t, "-c", path, "describe", "--remote", ts.URL, "Counter"); err != nil {
		t.Fatalf("describe --remote: %v", err)
	}
}
