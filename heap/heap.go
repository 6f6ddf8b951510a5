/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-4 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package heap is a manual, bump-allocated object store with raw
// memory layout for instances and arrays. It never
// reclaims memory -- garbage collection is an explicit non-goal
// -- so it is exposed as a grow-once arena behind a flat
// API rather than a type hierarchy.
package heap

import (
	"encoding/binary"
	"math"
	"sync"

	"github.com/pkg/errors"

	"jacobin/vm2/types"
)

// Header layout:
//   offset 0: u32 total byte size
//   offset 4: u32 class_id (non-zero)
//   offset 8: u8  mark bit
//   offset 9: u8  is_array flag
//   offset 10-15: padding
const (
	// HeaderSize is every heap object's fixed header width.
	HeaderSize = 16

	alignment = 8

	// ArrayLenOffset and ArrayTagOffset are absolute offsets from an
	// array object's start, immediately following the header.
	ArrayLenOffset = HeaderSize     // i32 length
	ArrayTagOffset = HeaderSize + 4 // u8 element tag

	// ElementsOffset is the fixed absolute offset, from an array
	// object's start, at which its element data begins: the header,
	// then a 4-byte length, a 1-byte tag, and 3 bytes of padding.
	ElementsOffset = HeaderSize + 8
)

// ErrOutOfMemory is returned by every allocating operation once the
// arena is exhausted.
var ErrOutOfMemory = errors.New("heap: out of memory")

// ErrBounds is the bounds-check failure behind
// ArrayIndexOutOfBoundsException mapping at the interpreter boundary.
var ErrBounds = errors.New("heap: index out of bounds")

// ErrTypeMismatch signals a write whose Value kind does not match the
// target field/array-element type.
var ErrTypeMismatch = errors.New("heap: value kind does not match target type")

// Heap is a fixed-capacity byte arena. offset 0 is reserved so that
// types.NullRef (0) is never a valid object.
type Heap struct {
	mu   sync.Mutex
	buf  []byte
	next uint64 // next free offset; starts at alignment so 0 stays null

	// internPool maps an interned class/field-name Symbol-shaped
	// string key to the HeapRef of the unique java.lang.String
	// instance for it.
	internPool map[types.Symbol]types.HeapRef
}

// New allocates a fixed-size arena of capacityMB megabytes.
func New(capacityMB int) *Heap {
	return &Heap{
		buf:        make([]byte, capacityMB*1024*1024),
		next:       alignment,
		internPool: make(map[types.Symbol]types.HeapRef),
	}
}

// Capacity returns the heap's fixed total size in bytes, the value
// Runtime.maxMemory reports.
func (h *Heap) Capacity() int64 { return int64(len(h.buf)) }

func alignUp(n uint64) uint64 {
	return (n + alignment - 1) &^ (alignment - 1)
}

// reserve bump-allocates n bytes and returns the starting offset.
func (h *Heap) reserve(n uint64) (uint64, error) {
	n = alignUp(n)
	if h.next+n > uint64(len(h.buf)) {
		return 0, ErrOutOfMemory
	}
	off := h.next
	h.next += n
	return off, nil
}

// AllocInstance allocates header + size zeroed bytes for an ordinary
// object instance of the given class.
func (h *Heap) AllocInstance(size int, classId types.ClassId) (types.HeapRef, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	off, err := h.reserve(uint64(HeaderSize + size))
	if err != nil {
		return 0, err
	}
	h.writeHeaderLocked(off, uint32(HeaderSize+size), classId, false)
	return types.HeapRef(off), nil
}

// AllocPrimitiveArray allocates header + length-prefix + tag +
// elements for a primitive array (e.g. [I).
func (h *Heap) AllocPrimitiveArray(classId types.ClassId, elemTag types.PrimitiveTag, length int) (types.HeapRef, error) {
	if length < 0 {
		return 0, errors.New("heap: negative array length")
	}
	dataSize := ElementsOffset + length*elemTag.Size()
	h.mu.Lock()
	defer h.mu.Unlock()
	off, err := h.reserve(uint64(HeaderSize + dataSize))
	if err != nil {
		return 0, err
	}
	h.writeHeaderLocked(off, uint32(HeaderSize+dataSize), classId, true)
	binary.LittleEndian.PutUint32(h.buf[off+ArrayLenOffset:], uint32(length))
	h.buf[off+ArrayTagOffset] = uint8(elemTag)
	return types.HeapRef(off), nil
}

// AllocObjectArray allocates header + length-prefix + tag + an
// 8-byte-per-element HeapRef slot array for an object array (e.g.
// [Ljava/lang/String;).
func (h *Heap) AllocObjectArray(classId types.ClassId, length int) (types.HeapRef, error) {
	if length < 0 {
		return 0, errors.New("heap: negative array length")
	}
	const refSize = 8
	dataSize := ElementsOffset + length*refSize
	h.mu.Lock()
	defer h.mu.Unlock()
	off, err := h.reserve(uint64(HeaderSize + dataSize))
	if err != nil {
		return 0, err
	}
	h.writeHeaderLocked(off, uint32(HeaderSize+dataSize), classId, true)
	binary.LittleEndian.PutUint32(h.buf[off+ArrayLenOffset:], uint32(length))
	h.buf[off+ArrayTagOffset] = 0xFF // sentinel: reference-typed elements
	return types.HeapRef(off), nil
}

func (h *Heap) writeHeaderLocked(off uint64, size uint32, classId types.ClassId, isArray bool) {
	binary.LittleEndian.PutUint32(h.buf[off:], size)
	binary.LittleEndian.PutUint32(h.buf[off+4:], uint32(classId))
	h.buf[off+8] = 0
	if isArray {
		h.buf[off+9] = 1
	} else {
		h.buf[off+9] = 0
	}
}

// ClassIdOf returns the class_id recorded in ref's header.
func (h *Heap) ClassIdOf(ref types.HeapRef) types.ClassId {
	return types.ClassId(binary.LittleEndian.Uint32(h.buf[uint64(ref)+4:]))
}

// IsArray reports whether ref's header carries the array flag.
func (h *Heap) IsArray(ref types.HeapRef) bool {
	return h.buf[uint64(ref)+9] == 1
}

// SizeOf returns the total byte size recorded in ref's header
// (header included).
func (h *Heap) SizeOf(ref types.HeapRef) uint32 {
	return binary.LittleEndian.Uint32(h.buf[uint64(ref):])
}

// ArrayLength returns the element count of an array object.
func (h *Heap) ArrayLength(ref types.HeapRef) int32 {
	return int32(binary.LittleEndian.Uint32(h.buf[uint64(ref)+ArrayLenOffset:]))
}

// ArrayElementTag returns the element tag stored by
// AllocPrimitiveArray, or 0xFF for an object array.
func (h *Heap) ArrayElementTag(ref types.HeapRef) uint8 {
	return h.buf[uint64(ref)+ArrayTagOffset]
}

// FieldType tags the kind of a typed read/write.
type FieldType uint8

const (
	FieldBoolean FieldType = iota
	FieldByte
	FieldChar
	FieldShort
	FieldInt
	FieldLong
	FieldFloat
	FieldDouble
	FieldRef
)

func fieldSize(t FieldType) int {
	switch t {
	case FieldBoolean, FieldByte:
		return 1
	case FieldChar, FieldShort:
		return 2
	case FieldInt, FieldFloat:
		return 4
	case FieldLong, FieldDouble, FieldRef:
		return 8
	default:
		return 0
	}
}

// ReadField performs a typed read at ref+offset. Sub-int widths are
// sign- or zero-extended: byte and short sign-extend to int, char
// zero-extends, boolean yields 0/1 as an int.
func (h *Heap) ReadField(ref types.HeapRef, offset int, t FieldType) types.Value {
	base := uint64(ref) + HeaderSize + uint64(offset)
	switch t {
	case FieldBoolean:
		return types.Integer(int32(h.buf[base]))
	case FieldByte:
		return types.Integer(int32(int8(h.buf[base])))
	case FieldChar:
		return types.Integer(int32(binary.LittleEndian.Uint16(h.buf[base:])))
	case FieldShort:
		return types.Integer(int32(int16(binary.LittleEndian.Uint16(h.buf[base:]))))
	case FieldInt:
		return types.Integer(int32(binary.LittleEndian.Uint32(h.buf[base:])))
	case FieldFloat:
		bits := binary.LittleEndian.Uint32(h.buf[base:])
		return types.Float(float32FromBits(bits))
	case FieldLong:
		return types.Long(int64(binary.LittleEndian.Uint64(h.buf[base:])))
	case FieldDouble:
		bits := binary.LittleEndian.Uint64(h.buf[base:])
		return types.Double(float64FromBits(bits))
	case FieldRef:
		r := types.HeapRef(binary.LittleEndian.Uint64(h.buf[base:]))
		if r == types.NullRef {
			return types.Null()
		}
		return types.Ref(r)
	default:
		return types.Null()
	}
}

// WriteField performs a typed write at ref+offset, validating that
// v's Kind matches t.
func (h *Heap) WriteField(ref types.HeapRef, offset int, t FieldType, v types.Value) error {
	base := uint64(ref) + HeaderSize + uint64(offset)
	switch t {
	case FieldBoolean, FieldByte, FieldChar, FieldShort, FieldInt:
		if v.Kind != types.KindInteger {
			return ErrTypeMismatch
		}
	case FieldFloat:
		if v.Kind != types.KindFloat {
			return ErrTypeMismatch
		}
	case FieldLong:
		if v.Kind != types.KindLong {
			return ErrTypeMismatch
		}
	case FieldDouble:
		if v.Kind != types.KindDouble {
			return ErrTypeMismatch
		}
	case FieldRef:
		if v.Kind != types.KindRef && v.Kind != types.KindNull {
			return ErrTypeMismatch
		}
	}
	switch t {
	case FieldBoolean, FieldByte:
		h.buf[base] = byte(v.I)
	case FieldChar, FieldShort:
		binary.LittleEndian.PutUint16(h.buf[base:], uint16(v.I))
	case FieldInt:
		binary.LittleEndian.PutUint32(h.buf[base:], uint32(v.I))
	case FieldFloat:
		binary.LittleEndian.PutUint32(h.buf[base:], float32Bits(v.F))
	case FieldLong:
		binary.LittleEndian.PutUint64(h.buf[base:], uint64(v.L))
	case FieldDouble:
		binary.LittleEndian.PutUint64(h.buf[base:], float64Bits(v.D))
	case FieldRef:
		binary.LittleEndian.PutUint64(h.buf[base:], uint64(v.Ref))
	}
	return nil
}

// CompareAndSwapField atomically replaces the field at ref+offset with
// newVal if it currently holds oldVal, reporting whether the swap
// took effect. ReadField/WriteField assume no concurrent mutation of
// the same cell; this is the one place that assumption doesn't hold,
// since sun.misc.Unsafe's compareAndSet* natives are the VM's only
// cross-thread primitive.
func (h *Heap) CompareAndSwapField(ref types.HeapRef, offset int, t FieldType, oldVal, newVal types.Value) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	current := h.ReadField(ref, offset, t)
	if !fieldValuesEqual(current, oldVal, t) {
		return false
	}
	_ = h.WriteField(ref, offset, t, newVal)
	return true
}

func fieldValuesEqual(a, b types.Value, t FieldType) bool {
	switch t {
	case FieldRef:
		return a.Ref == b.Ref
	case FieldLong:
		return a.L == b.L
	case FieldFloat:
		return a.F == b.F
	case FieldDouble:
		return a.D == b.D
	default:
		return a.I == b.I
	}
}

// checkIndex bounds-checks i against ref's array length.
func (h *Heap) checkIndex(ref types.HeapRef, i int32) error {
	if i < 0 || i >= h.ArrayLength(ref) {
		return ErrBounds
	}
	return nil
}

// ReadArrayElement reads element i of a primitive or object array.
func (h *Heap) ReadArrayElement(ref types.HeapRef, i int32, t FieldType) (types.Value, error) {
	if err := h.checkIndex(ref, i); err != nil {
		return types.Value{}, err
	}
	off := int(i) * fieldSize(t)
	base := uint64(ref) + ElementsOffset + uint64(off)
	return h.readAt(base, t), nil
}

func (h *Heap) readAt(base uint64, t FieldType) types.Value {
	switch t {
	case FieldBoolean:
		return types.Integer(int32(h.buf[base]))
	case FieldByte:
		return types.Integer(int32(int8(h.buf[base])))
	case FieldChar:
		return types.Integer(int32(binary.LittleEndian.Uint16(h.buf[base:])))
	case FieldShort:
		return types.Integer(int32(int16(binary.LittleEndian.Uint16(h.buf[base:]))))
	case FieldInt:
		return types.Integer(int32(binary.LittleEndian.Uint32(h.buf[base:])))
	case FieldFloat:
		return types.Float(float32FromBits(binary.LittleEndian.Uint32(h.buf[base:])))
	case FieldLong:
		return types.Long(int64(binary.LittleEndian.Uint64(h.buf[base:])))
	case FieldDouble:
		return types.Double(float64FromBits(binary.LittleEndian.Uint64(h.buf[base:])))
	case FieldRef:
		r := types.HeapRef(binary.LittleEndian.Uint64(h.buf[base:]))
		if r == types.NullRef {
			return types.Null()
		}
		return types.Ref(r)
	}
	return types.Null()
}

// WriteArrayElement writes element i of a primitive or object array,
// bounds-checked.
func (h *Heap) WriteArrayElement(ref types.HeapRef, i int32, t FieldType, v types.Value) error {
	if err := h.checkIndex(ref, i); err != nil {
		return err
	}
	off := int(i) * fieldSize(t)
	base := uint64(ref) + ElementsOffset + uint64(off)
	switch t {
	case FieldBoolean, FieldByte:
		h.buf[base] = byte(v.I)
	case FieldChar, FieldShort:
		binary.LittleEndian.PutUint16(h.buf[base:], uint16(v.I))
	case FieldInt:
		binary.LittleEndian.PutUint32(h.buf[base:], uint32(v.I))
	case FieldFloat:
		binary.LittleEndian.PutUint32(h.buf[base:], float32Bits(v.F))
	case FieldLong:
		binary.LittleEndian.PutUint64(h.buf[base:], uint64(v.L))
	case FieldDouble:
		binary.LittleEndian.PutUint64(h.buf[base:], float64Bits(v.D))
	case FieldRef:
		binary.LittleEndian.PutUint64(h.buf[base:], uint64(v.Ref))
	}
	return nil
}

// CopyPrimitiveSlice implements memmove semantics for overlapping
// primitive-array slices (System.arraycopy's primitive path). Bounds
// are checked before any byte is written.
func (h *Heap) CopyPrimitiveSlice(src types.HeapRef, srcPos int32, dst types.HeapRef, dstPos int32, length int32, t FieldType) error {
	if length < 0 {
		return ErrBounds
	}
	if srcPos < 0 || srcPos+length > h.ArrayLength(src) {
		return ErrBounds
	}
	if dstPos < 0 || dstPos+length > h.ArrayLength(dst) {
		return ErrBounds
	}
	elemSize := fieldSize(t)
	srcBase := uint64(src) + ElementsOffset + uint64(srcPos)*uint64(elemSize)
	dstBase := uint64(dst) + ElementsOffset + uint64(dstPos)*uint64(elemSize)
	n := uint64(length) * uint64(elemSize)
	copy(h.buf[dstBase:dstBase+n], h.buf[srcBase:srcBase+n])
	return nil
}

// CloneObject performs a shallow copy of ref, including the
// is_array-ness and class_id carried by its header. Arrays clone all
// raw element bytes (a shallow copy of reference elements, per
// DESIGN.md's Open Question decision on Object.clone for object
// arrays).
func (h *Heap) CloneObject(ref types.HeapRef) (types.HeapRef, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	size := uint64(h.SizeOf(ref))
	off, err := h.reserve(size)
	if err != nil {
		return 0, err
	}
	copy(h.buf[off:off+size], h.buf[uint64(ref):uint64(ref)+size])
	return types.HeapRef(off), nil
}

// GetArrayBytes returns a zero-copy view over an entire array's raw
// element bytes.
func (h *Heap) GetArrayBytes(ref types.HeapRef) []byte {
	size := uint64(h.SizeOf(ref))
	return h.buf[uint64(ref)+ElementsOffset : uint64(ref)+size]
}

// GetByteArraySlice returns a read-only []int8 view of a byte array's
// elements.
func (h *Heap) GetByteArraySlice(ref types.HeapRef) []int8 {
	n := h.ArrayLength(ref)
	raw := h.GetArrayBytes(ref)
	out := make([]int8, n)
	for i := range out {
		out[i] = int8(raw[i])
	}
	return out
}

// GetByteArraySliceMut exposes the live backing bytes of a byte array
// for in-place mutation.
func (h *Heap) GetByteArraySliceMut(ref types.HeapRef) []byte {
	n := h.ArrayLength(ref)
	return h.GetArrayBytes(ref)[:n]
}

// GetCharArraySlice returns a read-only []uint16 view of a char
// array's elements.
func (h *Heap) GetCharArraySlice(ref types.HeapRef) []uint16 {
	n := int(h.ArrayLength(ref))
	raw := h.GetArrayBytes(ref)
	out := make([]uint16, n)
	for i := 0; i < n; i++ {
		out[i] = binary.LittleEndian.Uint16(raw[i*2:])
	}
	return out
}

// GetIntArraySlice returns a read-only []int32 view of an int array's
// elements.
func (h *Heap) GetIntArraySlice(ref types.HeapRef) []int32 {
	n := int(h.ArrayLength(ref))
	raw := h.GetArrayBytes(ref)
	out := make([]int32, n)
	for i := 0; i < n; i++ {
		out[i] = int32(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return out
}

func float32Bits(f float32) uint32     { return math.Float32bits(f) }
func float64Bits(f float64) uint64     { return math.Float64bits(f) }
func float32FromBits(b uint32) float32 { return math.Float32frombits(b) }
func float64FromBits(b uint64) float64 { return math.Float64frombits(b) }
