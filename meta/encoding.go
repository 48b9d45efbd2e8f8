package meta

import (
	"bytes"
	"fmt"
)

// ---------------------------------------------------------------------------
// Compact descriptor encoding
//
// The encoded form is the table layout emitted by code generators: a fixed
// header, fixed-stride records per category and a NUL-terminated string
// pool addressed by byte offset.
//
//   method / signal / slot / constructor   5 words
//     signature, parameter names, return type, tag, flags
//   property                               3 words
//     name, type name, flags (type ID in the top byte)
//   enum                                   4 words
//     name, is-flag, key count, key table index
//   classinfo                              2 words
//     name, value
//
// Trailing arrays follow the method records (revisions, when any method is
// revisioned) and the property records (notify indices, when any property
// has a notify signal, then revisions, when any property is revisioned).
// Enum key tables are (name, value) pairs appended after the enum records.
// ---------------------------------------------------------------------------

const (
	hRevision = iota
	hClassName
	hClassInfoCount
	hClassInfoIndex
	hMethodCount
	hMethodIndex
	hPropertyCount
	hPropertyIndex
	hEnumCount
	hEnumIndex
	hConstructorCount
	hConstructorIndex
	hFlags
	hSignalCount
	headerSize
)

const (
	methodStride    = 5
	propertyStride  = 3
	enumStride      = 4
	classInfoStride = 2
)

const noNotify = ^uint32(0)

// Encode flattens d into its compact table and string pool.
func Encode(d *Descriptor) (data []uint32, pool []byte) {
	strs := d.Strings.All()
	offsets := make([]uint32, len(strs))
	for i, s := range strs {
		offsets[i] = uint32(len(pool))
		pool = append(pool, s...)
		pool = append(pool, 0)
	}
	off := func(id uint32) uint32 {
		if int(id) < len(offsets) {
			return offsets[id]
		}
		return 0
	}

	data = make([]uint32, headerSize)
	data[hRevision] = uint32(d.Revision)
	data[hClassName] = off(d.ClassName)
	data[hFlags] = uint32(d.Flags)
	data[hSignalCount] = uint32(d.SignalCount)

	if n := len(d.ClassInfos); n > 0 {
		data[hClassInfoCount] = uint32(n)
		data[hClassInfoIndex] = uint32(len(data))
		for _, ci := range d.ClassInfos {
			data = append(data, off(ci.Name), off(ci.Value))
		}
	}

	encodeMethods := func(methods []MethodRecord, countIdx, indexIdx int) {
		if len(methods) == 0 {
			return
		}
		data[countIdx] = uint32(len(methods))
		data[indexIdx] = uint32(len(data))
		revisioned := false
		for _, m := range methods {
			data = append(data, off(m.Signature), off(m.ParamNames), off(m.ReturnType), off(m.Tag), uint32(m.Flags))
			revisioned = revisioned || m.Flags&MethodRevisioned != 0
		}
		if revisioned {
			for _, m := range methods {
				data = append(data, uint32(m.Revision))
			}
		}
	}
	encodeMethods(d.Methods, hMethodCount, hMethodIndex)

	if n := len(d.Properties); n > 0 {
		data[hPropertyCount] = uint32(n)
		data[hPropertyIndex] = uint32(len(data))
		notify, revisioned := false, false
		for _, p := range d.Properties {
			data = append(data, off(p.Name), off(p.TypeName), uint32(p.Flags))
			notify = notify || p.Flags&Notify != 0
			revisioned = revisioned || p.Flags&Revisioned != 0
		}
		if notify {
			for _, p := range d.Properties {
				if p.Notify < 0 {
					data = append(data, noNotify)
				} else {
					data = append(data, uint32(p.Notify))
				}
			}
		}
		if revisioned {
			for _, p := range d.Properties {
				data = append(data, uint32(p.Revision))
			}
		}
	}

	if n := len(d.Enums); n > 0 {
		data[hEnumCount] = uint32(n)
		data[hEnumIndex] = uint32(len(data))
		base := len(data)
		for _, e := range d.Enums {
			isFlag := uint32(0)
			if e.IsFlag {
				isFlag = 1
			}
			data = append(data, off(e.Name), isFlag, uint32(len(e.Keys)), 0)
		}
		for i, e := range d.Enums {
			data[base+i*enumStride+3] = uint32(len(data))
			for _, k := range e.Keys {
				data = append(data, off(k.Name), uint32(int32(k.Value)))
			}
		}
	}

	encodeMethods(d.Constructors, hConstructorCount, hConstructorIndex)
	return data, pool
}

// Decode rebuilds a descriptor from its compact form. Every offset and
// record range is bounds-checked; violations yield ErrCorruptDescriptor.
func Decode(data []uint32, pool []byte) (*Descriptor, error) {
	if len(data) < headerSize {
		return nil, corrupt("header truncated: %d words", len(data))
	}

	st := NewStringTable()
	str := func(off uint32) (uint32, error) {
		if int(off) >= len(pool) {
			return 0, corrupt("string offset %d beyond pool of %d bytes", off, len(pool))
		}
		end := bytes.IndexByte(pool[off:], 0)
		if end < 0 {
			return 0, corrupt("unterminated string at offset %d", off)
		}
		return st.Intern(string(pool[off : int(off)+end])), nil
	}
	section := func(what string, countIdx, indexIdx, stride int) (int, int, error) {
		count, start := int(data[countIdx]), int(data[indexIdx])
		if count == 0 {
			return 0, 0, nil
		}
		if count > len(data) || start < headerSize || start+count*stride > len(data) {
			return 0, 0, corrupt("%s table [%d+%d*%d] exceeds %d words", what, start, count, stride, len(data))
		}
		return start, count, nil
	}
	trailing := func(what string, pos, count int) error {
		if pos+count > len(data) {
			return corrupt("%s array exceeds data", what)
		}
		return nil
	}

	d := &Descriptor{
		Revision:    int(data[hRevision]),
		Flags:       ClassFlags(data[hFlags]),
		SignalCount: int(data[hSignalCount]),
		Strings:     st,
	}
	if d.Revision < 1 {
		return nil, corrupt("invalid revision %d", d.Revision)
	}
	var err error
	if d.ClassName, err = str(data[hClassName]); err != nil {
		return nil, err
	}

	start, count, err := section("classinfo", hClassInfoCount, hClassInfoIndex, classInfoStride)
	if err != nil {
		return nil, err
	}
	for i := 0; i < count; i++ {
		rec := data[start+i*classInfoStride:]
		var ci ClassInfoRecord
		if ci.Name, err = str(rec[0]); err != nil {
			return nil, err
		}
		if ci.Value, err = str(rec[1]); err != nil {
			return nil, err
		}
		d.ClassInfos = append(d.ClassInfos, ci)
	}

	decodeMethods := func(what string, countIdx, indexIdx int) ([]MethodRecord, error) {
		start, count, err := section(what, countIdx, indexIdx, methodStride)
		if err != nil || count == 0 {
			return nil, err
		}
		methods := make([]MethodRecord, count)
		revisioned := false
		for i := range methods {
			rec := data[start+i*methodStride:]
			m := &methods[i]
			if m.Signature, err = str(rec[0]); err != nil {
				return nil, err
			}
			if m.ParamNames, err = str(rec[1]); err != nil {
				return nil, err
			}
			if m.ReturnType, err = str(rec[2]); err != nil {
				return nil, err
			}
			if m.Tag, err = str(rec[3]); err != nil {
				return nil, err
			}
			m.Flags = MethodFlags(rec[4])
			revisioned = revisioned || m.Flags&MethodRevisioned != 0
		}
		if revisioned {
			pos := start + count*methodStride
			if err := trailing(what+" revision", pos, count); err != nil {
				return nil, err
			}
			for i := range methods {
				methods[i].Revision = int(data[pos+i])
			}
		}
		return methods, nil
	}

	if d.Methods, err = decodeMethods("method", hMethodCount, hMethodIndex); err != nil {
		return nil, err
	}
	if d.SignalCount > len(d.Methods) {
		return nil, corrupt("signal count %d exceeds method count %d", d.SignalCount, len(d.Methods))
	}

	start, count, err = section("property", hPropertyCount, hPropertyIndex, propertyStride)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		d.Properties = make([]PropertyRecord, count)
		notify, revisioned := false, false
		for i := range d.Properties {
			rec := data[start+i*propertyStride:]
			p := &d.Properties[i]
			if p.Name, err = str(rec[0]); err != nil {
				return nil, err
			}
			if p.TypeName, err = str(rec[1]); err != nil {
				return nil, err
			}
			p.Flags = PropertyFlags(rec[2])
			p.Notify = -1
			notify = notify || p.Flags&Notify != 0
			revisioned = revisioned || p.Flags&Revisioned != 0
		}
		pos := start + count*propertyStride
		if notify {
			if err := trailing("property notify", pos, count); err != nil {
				return nil, err
			}
			for i := range d.Properties {
				if n := data[pos+i]; n != noNotify {
					d.Properties[i].Notify = int(n)
				}
			}
			pos += count
		}
		if revisioned {
			if err := trailing("property revision", pos, count); err != nil {
				return nil, err
			}
			for i := range d.Properties {
				d.Properties[i].Revision = int(data[pos+i])
			}
		}
	}

	start, count, err = section("enum", hEnumCount, hEnumIndex, enumStride)
	if err != nil {
		return nil, err
	}
	for i := 0; i < count; i++ {
		rec := data[start+i*enumStride:]
		var e EnumRecord
		if e.Name, err = str(rec[0]); err != nil {
			return nil, err
		}
		e.IsFlag = rec[1] != 0
		keyCount, keyIndex := int(rec[2]), int(rec[3])
		if keyCount > len(data) || keyIndex+keyCount*2 > len(data) || (keyCount > 0 && keyIndex < headerSize) {
			return nil, corrupt("enum key table exceeds data")
		}
		for k := 0; k < keyCount; k++ {
			var key EnumKey
			if key.Name, err = str(data[keyIndex+2*k]); err != nil {
				return nil, err
			}
			key.Value = int(int32(data[keyIndex+2*k+1]))
			e.Keys = append(e.Keys, key)
		}
		d.Enums = append(d.Enums, e)
	}

	if d.Constructors, err = decodeMethods("constructor", hConstructorCount, hConstructorIndex); err != nil {
		return nil, err
	}
	return d, nil
}

func corrupt(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorruptDescriptor, fmt.Sprintf(format, args...))
}
