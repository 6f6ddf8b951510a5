/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-4 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package heap

import (
	"encoding/binary"
	"unicode/utf16"

	"jacobin/vm2/types"
)

// String coder values, matching java.lang.String's internal
// compact-string representation.
const (
	CoderLatin1 = 0
	CoderUTF16  = 1
)

// StringAllocator is the subset of the class-area surface the heap
// needs to build a java.lang.String instance: the String class's ID
// and instance size, and the byte-array element class ID used for the
// `value` field.
type StringAllocator struct {
	StringClassId    types.ClassId
	StringValueOff   int // byte offset of the `value` field
	StringCoderOff   int // byte offset of the `coder` field
	StringInstanceSz int
	ByteArrayClassId types.ClassId
}

// AllocStringFromStr allocates a java.lang.String instance for s,
// selecting the most compact coder: LATIN1 if every code point fits
// in a byte, else UTF-16LE pairs. charMapper, when non-nil, remaps
// each rune before encoding (used by native code that needs a custom
// charset view); nil uses runes as-is.
func (h *Heap) AllocStringFromStr(a StringAllocator, s string, charMapper func(rune) rune) (types.HeapRef, error) {
	runes := []rune(s)
	if charMapper != nil {
		for i, r := range runes {
			runes[i] = charMapper(r)
		}
	}

	latin1 := true
	for _, r := range runes {
		if r > 0xFF {
			latin1 = false
			break
		}
	}

	var valueRef types.HeapRef
	var coder int32
	var err error
	if latin1 {
		valueRef, err = h.AllocPrimitiveArray(a.ByteArrayClassId, types.TagByte, len(runes))
		if err != nil {
			return 0, err
		}
		raw := h.GetByteArraySliceMut(valueRef)
		for i, r := range runes {
			raw[i] = byte(r)
		}
		coder = CoderLatin1
	} else {
		units := utf16.Encode(runes)
		valueRef, err = h.AllocPrimitiveArray(a.ByteArrayClassId, types.TagByte, len(units)*2)
		if err != nil {
			return 0, err
		}
		raw := h.GetByteArraySliceMut(valueRef)
		for i, u := range units {
			binary.LittleEndian.PutUint16(raw[i*2:], u)
		}
		coder = CoderUTF16
	}

	obj, err := h.AllocInstance(a.StringInstanceSz, a.StringClassId)
	if err != nil {
		return 0, err
	}
	if err := h.WriteField(obj, a.StringValueOff, FieldRef, types.Ref(valueRef)); err != nil {
		return 0, err
	}
	if err := h.WriteField(obj, a.StringCoderOff, FieldByte, types.Integer(coder)); err != nil {
		return 0, err
	}
	return obj, nil
}

// GetGoStringFromJavaString decodes a java.lang.String instance back
// to a host string by reading its coder then its value array.
func (h *Heap) GetGoStringFromJavaString(a StringAllocator, ref types.HeapRef) string {
	coder := h.ReadField(ref, a.StringCoderOff, FieldByte).I
	valueVal := h.ReadField(ref, a.StringValueOff, FieldRef)
	if valueVal.IsNull() {
		return ""
	}
	raw := h.GetArrayBytes(valueVal.Ref)
	n := int(h.ArrayLength(valueVal.Ref))

	if coder == CoderLatin1 {
		b := make([]byte, n)
		copy(b, raw[:n])
		return string(b)
	}
	units := make([]uint16, n/2)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(raw[i*2:])
	}
	return string(utf16.Decode(units))
}

// GetStrFromPoolOrNew ensures at most one Java string instance exists
// per interned Symbol in the heap's intern pool.
func (h *Heap) GetStrFromPoolOrNew(a StringAllocator, sym types.Symbol, s string) (types.HeapRef, error) {
	h.mu.Lock()
	if ref, ok := h.internPool[sym]; ok {
		h.mu.Unlock()
		return ref, nil
	}
	h.mu.Unlock()

	ref, err := h.AllocStringFromStr(a, s, nil)
	if err != nil {
		return 0, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if existing, ok := h.internPool[sym]; ok {
		// Lost the race; keep the first winner, let ref become
		// garbage.
		return existing, nil
	}
	h.internPool[sym] = ref
	return ref, nil
}
