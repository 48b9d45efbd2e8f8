package meta

import "strings"

// ---------------------------------------------------------------------------
// MetaEnum: handle to one enumerator or flag set
// ---------------------------------------------------------------------------

// MetaEnum refers to an enumerator by (node, local index). The zero value
// is invalid.
type MetaEnum struct {
	mobj  *MetaObject
	local int
}

func (me MetaEnum) record() *EnumRecord {
	if me.mobj == nil {
		return nil
	}
	return me.mobj.desc.Load().enum(me.local)
}

func (me MetaEnum) str(id uint32) string { return me.mobj.desc.Load().str(id) }

// IsValid reports whether the handle refers to an enumerator.
func (me MetaEnum) IsValid() bool { return me.record() != nil }

// MetaObject returns the declaring class.
func (me MetaEnum) MetaObject() *MetaObject { return me.mobj }

// Name returns the enumerator's name.
func (me MetaEnum) Name() string {
	if r := me.record(); r != nil {
		return me.str(r.Name)
	}
	return ""
}

// Scope returns the name of the declaring class.
func (me MetaEnum) Scope() string {
	if me.mobj == nil {
		return ""
	}
	return me.mobj.ClassName()
}

// QualifiedName returns "Scope::Name", the name enum types register under.
func (me MetaEnum) QualifiedName() string {
	if !me.IsValid() {
		return ""
	}
	return me.Scope() + "::" + me.Name()
}

// IsFlag reports whether keys may be or-ed together.
func (me MetaEnum) IsFlag() bool {
	r := me.record()
	return r != nil && r.IsFlag
}

// KeyCount returns the number of keys.
func (me MetaEnum) KeyCount() int {
	if r := me.record(); r != nil {
		return len(r.Keys)
	}
	return 0
}

// Key returns the name of key i, or "".
func (me MetaEnum) Key(i int) string {
	r := me.record()
	if r == nil || i < 0 || i >= len(r.Keys) {
		return ""
	}
	return me.str(r.Keys[i].Name)
}

// Value returns the value of key i, or -1.
func (me MetaEnum) Value(i int) int {
	r := me.record()
	if r == nil || i < 0 || i >= len(r.Keys) {
		return -1
	}
	return r.Keys[i].Value
}

// stripScope removes a "Scope::" prefix naming this enumerator's class.
func (me MetaEnum) stripScope(key string) (string, bool) {
	i := strings.LastIndex(key, "::")
	if i < 0 {
		return key, true
	}
	return key[i+2:], key[:i] == me.Scope()
}

// KeyToValue returns the value of a key. The key may be qualified with
// the enumerator's scope.
func (me MetaEnum) KeyToValue(key string) (int, bool) {
	r := me.record()
	if r == nil || key == "" {
		return -1, false
	}
	key, ok := me.stripScope(key)
	if !ok {
		return -1, false
	}
	for _, k := range r.Keys {
		if me.str(k.Name) == key {
			return k.Value, true
		}
	}
	return -1, false
}

// ValueToKey returns the first key with the given value, or "".
func (me MetaEnum) ValueToKey(value int) string {
	r := me.record()
	if r == nil {
		return ""
	}
	for _, k := range r.Keys {
		if k.Value == value {
			return me.str(k.Name)
		}
	}
	return ""
}

// KeysToValue or-s together the values of '|'-separated keys. Fails if
// any key is unknown.
func (me MetaEnum) KeysToValue(keys string) (int, bool) {
	if !me.IsValid() || strings.TrimSpace(keys) == "" {
		return -1, false
	}
	value := 0
	for _, key := range strings.Split(keys, "|") {
		v, ok := me.KeyToValue(strings.TrimSpace(key))
		if !ok {
			return -1, false
		}
		value |= v
	}
	return value, true
}

// ValueToKeys renders a flag value as '|'-separated keys. Keys are
// matched from the last declared so composite keys win over their parts.
func (me MetaEnum) ValueToKeys(value int) string {
	r := me.record()
	if r == nil {
		return ""
	}
	var keys []string
	v := value
	for i := len(r.Keys) - 1; i >= 0; i-- {
		k := r.Keys[i].Value
		if (k != 0 && v&k == k) || k == value {
			v &^= k
			keys = append([]string{me.str(r.Keys[i].Name)}, keys...)
		}
	}
	return strings.Join(keys, "|")
}
