/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-4 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package gfunction

import (
	"testing"

	"jacobin/vm2/heap"
	"jacobin/vm2/types"
)

func TestSystemArraycopyCopiesPrimitiveSlice(t *testing.T) {
	ma := newTestMethodArea(8)
	h := ma.Heap()

	src, err := h.AllocPrimitiveArray(0, types.TagInt, 4)
	if err != nil {
		t.Fatalf("AllocPrimitiveArray(src): %v", err)
	}
	dst, err := h.AllocPrimitiveArray(0, types.TagInt, 4)
	if err != nil {
		t.Fatalf("AllocPrimitiveArray(dst): %v", err)
	}
	for i := int32(0); i < 4; i++ {
		if err := h.WriteArrayElement(src, i, heap.FieldInt, types.Integer(i+10)); err != nil {
			t.Fatalf("seed src[%d]: %v", i, err)
		}
	}

	args := []types.Value{types.Ref(src), types.Integer(1), types.Ref(dst), types.Integer(0), types.Integer(2)}
	if _, err := systemArraycopy(ma, nil, args); err != nil {
		t.Fatalf("arraycopy: %v", err)
	}

	for i := int32(0); i < 2; i++ {
		got, err := h.ReadArrayElement(dst, i, heap.FieldInt)
		if err != nil {
			t.Fatalf("read dst[%d]: %v", i, err)
		}
		if want := i + 11; got.I != want {
			t.Errorf("dst[%d] = %d, want %d", i, got.I, want)
		}
	}
}

func TestSystemArraycopyNullSourceThrowsNPE(t *testing.T) {
	ma := newTestMethodArea(8)
	args := []types.Value{types.Null(), types.Integer(0), types.Ref(1), types.Integer(0), types.Integer(1)}
	if _, err := systemArraycopy(ma, nil, args); err == nil {
		t.Fatal("expected NullPointerException for a null source array")
	}
}
