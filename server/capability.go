package server

import (
	"fmt"

	"github.com/chazu/metaobject/meta"
)

// CapabilityPolicy controls which classes the service exposes. A class is
// exposed when it carries every required tag and no denied tag.
type CapabilityPolicy struct {
	Required []string
	Denied   map[string]bool
}

// NewPermissivePolicy creates a policy that exposes every class.
func NewPermissivePolicy() *CapabilityPolicy {
	return &CapabilityPolicy{}
}

// NewRestrictedPolicy creates a policy that only exposes classes carrying
// all of the given tags.
func NewRestrictedPolicy(required []string) *CapabilityPolicy {
	return &CapabilityPolicy{Required: append([]string(nil), required...)}
}

// Check reports why m is not exposed, or nil.
func (p *CapabilityPolicy) Check(m *meta.MetaObject) error {
	if m == nil {
		return fmt.Errorf("no class")
	}
	for _, tag := range m.Capabilities() {
		if p.Denied[tag] {
			return fmt.Errorf("class %s: capability %q is explicitly denied", m.ClassName(), tag)
		}
	}
	for _, tag := range p.Required {
		if !m.HasCapability(tag) {
			return fmt.Errorf("class %s: capability %q is required", m.ClassName(), tag)
		}
	}
	return nil
}

// Allows reports whether m is exposed.
func (p *CapabilityPolicy) Allows(m *meta.MetaObject) bool { return p.Check(m) == nil }

// Deny adds a capability to the deny list.
func (p *CapabilityPolicy) Deny(tag string) {
	if p.Denied == nil {
		p.Denied = make(map[string]bool)
	}
	p.Denied[tag] = true
}
