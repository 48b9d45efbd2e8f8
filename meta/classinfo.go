package meta

// MetaClassInfo refers to one classinfo entry. The zero value is invalid.
type MetaClassInfo struct {
	mobj  *MetaObject
	local int
}

func (ci MetaClassInfo) record() *ClassInfoRecord {
	if ci.mobj == nil {
		return nil
	}
	return ci.mobj.desc.Load().classInfo(ci.local)
}

// IsValid reports whether the handle refers to an entry.
func (ci MetaClassInfo) IsValid() bool { return ci.record() != nil }

// MetaObject returns the declaring class.
func (ci MetaClassInfo) MetaObject() *MetaObject { return ci.mobj }

// Name returns the entry's name.
func (ci MetaClassInfo) Name() string {
	if r := ci.record(); r != nil {
		return ci.mobj.desc.Load().str(r.Name)
	}
	return ""
}

// Value returns the entry's value.
func (ci MetaClassInfo) Value() string {
	if r := ci.record(); r != nil {
		return ci.mobj.desc.Load().str(r.Value)
	}
	return ""
}
