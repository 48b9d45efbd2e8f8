package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/chazu/metaobject/meta"
)

// describe writes a human-readable summary of m and its inherited
// members.
func describe(w io.Writer, m *meta.MetaObject) {
	var chain []string
	for n := m; n != nil; n = n.SuperClass() {
		chain = append(chain, n.ClassName())
	}
	fmt.Fprintf(w, "class %s\n", strings.Join(chain, " : "))
	if caps := m.Capabilities(); len(caps) > 0 {
		fmt.Fprintf(w, "  capabilities: %s\n", strings.Join(caps, ", "))
	}

	if m.ClassInfoCount() > 0 {
		fmt.Fprintln(w, "classinfo:")
		for i := 0; i < m.ClassInfoCount(); i++ {
			ci := m.ClassInfo(i)
			fmt.Fprintf(w, "  %s = %q\n", ci.Name(), ci.Value())
		}
	}

	if m.EnumeratorCount() > 0 {
		fmt.Fprintln(w, "enums:")
		for i := 0; i < m.EnumeratorCount(); i++ {
			e := m.Enumerator(i)
			kind := "enum"
			if e.IsFlag() {
				kind = "flags"
			}
			keys := make([]string, e.KeyCount())
			for k := range keys {
				keys[k] = fmt.Sprintf("%s=%d", e.Key(k), e.Value(k))
			}
			fmt.Fprintf(w, "  %s %s { %s }\n", kind, e.QualifiedName(), strings.Join(keys, ", "))
		}
	}

	if m.MethodCount() > 0 {
		fmt.Fprintln(w, "methods:")
		for _, mm := range m.Methods() {
			fmt.Fprintf(w, "  %3d %-6s %s %s::%s", mm.MethodIndex(), mm.MethodType(),
				mm.TypeName(), mm.MetaObject().ClassName(), mm.MethodSignature())
			if tag := mm.Tag(); tag != "" {
				fmt.Fprintf(w, " [%s]", tag)
			}
			fmt.Fprintln(w)
		}
	}

	for i := 0; i < m.ConstructorCount(); i++ {
		if i == 0 {
			fmt.Fprintln(w, "constructors:")
		}
		fmt.Fprintf(w, "  %s\n", m.Constructor(i).MethodSignature())
	}

	if m.PropertyCount() > 0 {
		fmt.Fprintln(w, "properties:")
		for _, p := range m.Properties() {
			fmt.Fprintf(w, "  %3d %s %s", p.PropertyIndex(), p.TypeName(), p.Name())
			var attrs []string
			if !p.IsWritable() {
				attrs = append(attrs, "read-only")
			}
			if p.IsResettable() {
				attrs = append(attrs, "resettable")
			}
			if p.IsConstant() {
				attrs = append(attrs, "constant")
			}
			if p.HasNotifySignal() {
				attrs = append(attrs, "notify "+p.NotifySignal().MethodSignature())
			}
			if len(attrs) > 0 {
				fmt.Fprintf(w, " (%s)", strings.Join(attrs, ", "))
			}
			fmt.Fprintln(w)
		}
	}
}
