package server

import (
	"testing"

	"github.com/chazu/metaobject/examples/counter"
	"github.com/chazu/metaobject/meta"
)

func TestPermissivePolicy(t *testing.T) {
	p := NewPermissivePolicy()
	if err := p.Check(counter.Class); err != nil {
		t.Errorf("Check(Counter): %v", err)
	}
	if !p.Allows(meta.ObjectClass) {
		t.Error("permissive policy should expose QObject")
	}
	if p.Allows(nil) {
		t.Error("nil class should never be exposed")
	}
}

func TestRestrictedPolicy(t *testing.T) {
	p := NewRestrictedPolicy([]string{"remote"})
	if !p.Allows(counter.Class) {
		t.Error("Counter carries remote and should be exposed")
	}
	if p.Allows(meta.ObjectClass) {
		t.Error("QObject lacks remote and should be hidden")
	}

	p.Deny("remote")
	if err := p.Check(counter.Class); err == nil {
		t.Error("denied capability should hide Counter")
	}
}
