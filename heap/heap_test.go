/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-4 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package heap

import (
	"testing"

	"jacobin/vm2/types"
)

func TestAllocInstanceHeaderFields(t *testing.T) {
	h := New(1)
	ref, err := h.AllocInstance(24, 7)
	if err != nil {
		t.Fatalf("AllocInstance: %v", err)
	}
	if h.ClassIdOf(ref) != 7 {
		t.Errorf("ClassIdOf = %d, want 7", h.ClassIdOf(ref))
	}
	if h.IsArray(ref) {
		t.Error("instance should not be flagged as array")
	}
	if h.SizeOf(ref) != HeaderSize+24 {
		t.Errorf("SizeOf = %d, want %d", h.SizeOf(ref), HeaderSize+24)
	}
}

func TestFieldReadWriteRoundTrip(t *testing.T) {
	h := New(1)
	ref, _ := h.AllocInstance(16, 1)

	cases := []struct {
		t FieldType
		v types.Value
	}{
		{FieldBoolean, types.Integer(1)},
		{FieldByte, types.Integer(-5)},
		{FieldChar, types.Integer(65535)},
		{FieldShort, types.Integer(-12345)},
		{FieldInt, types.Integer(123456789)},
		{FieldLong, types.Long(-9000000000)},
		{FieldFloat, types.Float(3.25)},
		{FieldDouble, types.Double(-2.5)},
	}
	for _, c := range cases {
		if err := h.WriteField(ref, 0, c.t, c.v); err != nil {
			t.Fatalf("WriteField(%v): %v", c.t, err)
		}
		got := h.ReadField(ref, 0, c.t)
		switch c.t {
		case FieldBoolean, FieldByte, FieldChar, FieldShort, FieldInt:
			if got.I != c.v.I {
				t.Errorf("type %v: got %d want %d", c.t, got.I, c.v.I)
			}
		case FieldLong:
			if got.L != c.v.L {
				t.Errorf("long: got %d want %d", got.L, c.v.L)
			}
		case FieldFloat:
			if got.F != c.v.F {
				t.Errorf("float: got %v want %v", got.F, c.v.F)
			}
		case FieldDouble:
			if got.D != c.v.D {
				t.Errorf("double: got %v want %v", got.D, c.v.D)
			}
		}
	}
}

func TestFieldWriteRejectsKindMismatch(t *testing.T) {
	h := New(1)
	ref, _ := h.AllocInstance(16, 1)
	if err := h.WriteField(ref, 0, FieldLong, types.Integer(5)); err != ErrTypeMismatch {
		t.Errorf("expected ErrTypeMismatch, got %v", err)
	}
}

func TestArrayBoundsChecked(t *testing.T) {
	h := New(1)
	ref, _ := h.AllocPrimitiveArray(2, types.TagInt, 3)
	if err := h.WriteArrayElement(ref, 0, FieldInt, types.Integer(10)); err != nil {
		t.Fatalf("write in bounds: %v", err)
	}
	if _, err := h.ReadArrayElement(ref, 3, FieldInt); err != ErrBounds {
		t.Errorf("expected ErrBounds at index==length, got %v", err)
	}
	if _, err := h.ReadArrayElement(ref, -1, FieldInt); err != ErrBounds {
		t.Errorf("expected ErrBounds at negative index, got %v", err)
	}
}

func TestCopyPrimitiveSliceOverlapping(t *testing.T) {
	h := New(1)
	ref, _ := h.AllocPrimitiveArray(2, types.TagInt, 5)
	for i := int32(0); i < 5; i++ {
		_ = h.WriteArrayElement(ref, i, FieldInt, types.Integer(i+1))
	}
	// copy_primitive_slice(a, 0, a, 2, 3) should behave like memmove:
	// [1,2,3,4,5] -> [1,2,1,2,3]
	if err := h.CopyPrimitiveSlice(ref, 0, ref, 2, 3, FieldInt); err != nil {
		t.Fatalf("CopyPrimitiveSlice: %v", err)
	}
	want := []int32{1, 2, 1, 2, 3}
	got := h.GetIntArraySlice(ref)
	for i, w := range want {
		if got[i] != w {
			t.Errorf("index %d: got %d want %d (full=%v)", i, got[i], w, got)
		}
	}
}

func TestCloneObjectShallow(t *testing.T) {
	h := New(1)
	ref, _ := h.AllocInstance(8, 5)
	_ = h.WriteField(ref, 0, FieldInt, types.Integer(99))
	clone, err := h.CloneObject(ref)
	if err != nil {
		t.Fatalf("CloneObject: %v", err)
	}
	if clone == ref {
		t.Error("clone should be a distinct ref")
	}
	if h.ClassIdOf(clone) != h.ClassIdOf(ref) {
		t.Error("clone should preserve class_id")
	}
	if h.ReadField(clone, 0, FieldInt).I != 99 {
		t.Error("clone should copy field bytes")
	}
}

func TestStringRoundTripASCIIUsesLatin1(t *testing.T) {
	h := New(1)
	alloc := StringAllocator{
		StringClassId:    10,
		StringValueOff:   0,
		StringCoderOff:   8,
		StringInstanceSz: 16,
		ByteArrayClassId: 20,
	}
	ref, err := h.AllocStringFromStr(alloc, "Hello", nil)
	if err != nil {
		t.Fatalf("AllocStringFromStr: %v", err)
	}
	if coder := h.ReadField(ref, alloc.StringCoderOff, FieldByte).I; coder != CoderLatin1 {
		t.Errorf("coder = %d, want LATIN1", coder)
	}
	if got := h.GetGoStringFromJavaString(alloc, ref); got != "Hello" {
		t.Errorf("round-trip = %q, want Hello", got)
	}
}

func TestStringRoundTripNonASCIIUsesUTF16(t *testing.T) {
	h := New(1)
	alloc := StringAllocator{
		StringClassId:    10,
		StringValueOff:   0,
		StringCoderOff:   8,
		StringInstanceSz: 16,
		ByteArrayClassId: 20,
	}
	s := "héllo中"
	ref, err := h.AllocStringFromStr(alloc, s, nil)
	if err != nil {
		t.Fatalf("AllocStringFromStr: %v", err)
	}
	if coder := h.ReadField(ref, alloc.StringCoderOff, FieldByte).I; coder != CoderUTF16 {
		t.Errorf("coder = %d, want UTF16", coder)
	}
	if got := h.GetGoStringFromJavaString(alloc, ref); got != s {
		t.Errorf("round-trip = %q, want %q", got, s)
	}
}

func TestInternPoolSingleInstance(t *testing.T) {
	h := New(1)
	alloc := StringAllocator{StringClassId: 10, StringValueOff: 0, StringCoderOff: 8, StringInstanceSz: 16, ByteArrayClassId: 20}
	sym := types.Symbol(5)
	r1, _ := h.GetStrFromPoolOrNew(alloc, sym, "shared")
	r2, _ := h.GetStrFromPoolOrNew(alloc, sym, "shared")
	if r1 != r2 {
		t.Error("intern pool should return the same ref for the same symbol")
	}
}

func TestOutOfMemory(t *testing.T) {
	h := New(0) // effectively zero-capacity for this test's purposes
	h.buf = make([]byte, 32)
	h.next = alignment
	if _, err := h.AllocInstance(1000, 1); err != ErrOutOfMemory {
		t.Errorf("expected ErrOutOfMemory, got %v", err)
	}
}
