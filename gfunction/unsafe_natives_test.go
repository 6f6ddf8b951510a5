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

func TestUnsafeArrayBaseOffset0IsElementsOffset(t *testing.T) {
	v, err := unsafeArrayBaseOffset0(nil, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.I != int32(heap.ElementsOffset) {
		t.Errorf("arrayBaseOffset0 = %d, want %d", v.I, heap.ElementsOffset)
	}
}

func TestUnsafeFullFenceAndEnsureClassInitializedAreNoops(t *testing.T) {
	if v, err := unsafeFullFence(nil, nil, nil); v != nil || err != nil {
		t.Errorf("fullFence() = (%v, %v), want (nil, nil)", v, err)
	}
	if v, err := unsafeEnsureClassInitialized(nil, nil, nil); v != nil || err != nil {
		t.Errorf("ensureClassInitialized() = (%v, %v), want (nil, nil)", v, err)
	}
}

func TestUnsafeCompareAndSetIntSucceedsAndFails(t *testing.T) {
	ma := newTestMethodArea(8)
	h := ma.Heap()
	ref, err := h.AllocInstance(32, 0)
	if err != nil {
		t.Fatalf("AllocInstance: %v", err)
	}
	if err := h.WriteField(ref, 0, heap.FieldInt, types.Integer(5)); err != nil {
		t.Fatalf("seed field: %v", err)
	}

	args := []types.Value{types.Ref(ref), types.Long(0), types.Integer(5), types.Integer(9)}
	v, err := unsafeCompareAndSetInt(ma, nil, args)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.I != 1 {
		t.Errorf("CAS matching expected value should succeed, got %d", v.I)
	}

	staleArgs := []types.Value{types.Ref(ref), types.Long(0), types.Integer(5), types.Integer(100)}
	v2, err := unsafeCompareAndSetInt(ma, nil, staleArgs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v2.I != 0 {
		t.Errorf("CAS against a stale expected value should fail, got %d", v2.I)
	}
}

func TestUnsafeGetLongReadsWrittenField(t *testing.T) {
	ma := newTestMethodArea(8)
	h := ma.Heap()
	ref, err := h.AllocInstance(32, 0)
	if err != nil {
		t.Fatalf("AllocInstance: %v", err)
	}
	if err := h.WriteField(ref, 8, heap.FieldLong, types.Long(123456789)); err != nil {
		t.Fatalf("seed field: %v", err)
	}

	v, err := unsafeGetLong(ma, nil, []types.Value{types.Ref(ref), types.Long(8)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.L != 123456789 {
		t.Errorf("getLong = %d, want 123456789", v.L)
	}
}
