package meta

import "sync"

// StringTable interns the strings referenced by a class descriptor.
//
// Records store string IDs instead of text, so a descriptor holds every
// distinct name, type name and tag exactly once. The table is append-only
// and safe for concurrent use; IDs stay valid for the table's lifetime.
type StringTable struct {
	mu     sync.RWMutex
	byText map[string]uint32 // text -> ID
	byID   []string          // ID -> text
}

// NewStringTable creates a table whose ID 0 is the empty string.
func NewStringTable() *StringTable {
	return &StringTable{
		byText: map[string]uint32{"": 0},
		byID:   []string{""},
	}
}

// Intern returns the ID for s, creating a new ID if needed.
func (st *StringTable) Intern(s string) uint32 {
	// Fast path: read-only lookup
	st.mu.RLock()
	if id, ok := st.byText[s]; ok {
		st.mu.RUnlock()
		return id
	}
	st.mu.RUnlock()

	st.mu.Lock()
	defer st.mu.Unlock()

	// Double-check after acquiring write lock
	if id, ok := st.byText[s]; ok {
		return id
	}

	id := uint32(len(st.byID))
	st.byText[s] = id
	st.byID = append(st.byID, s)
	return id
}

// Lookup returns the ID for s, or -1 if s was never interned.
func (st *StringTable) Lookup(s string) int {
	st.mu.RLock()
	defer st.mu.RUnlock()

	if id, ok := st.byText[s]; ok {
		return int(id)
	}
	return -1
}

// String returns the text for an ID, or "" if the ID is out of range.
func (st *StringTable) String(id uint32) string {
	st.mu.RLock()
	defer st.mu.RUnlock()

	if int(id) >= len(st.byID) {
		return ""
	}
	return st.byID[id]
}

// Valid reports whether id refers to an interned string.
func (st *StringTable) Valid(id uint32) bool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return int(id) < len(st.byID)
}

// Len returns the number of interned strings, including the empty string.
func (st *StringTable) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.byID)
}

// All returns all strings in ID order.
func (st *StringTable) All() []string {
	st.mu.RLock()
	defer st.mu.RUnlock()

	result := make([]string, len(st.byID))
	copy(result, st.byID)
	return result
}
