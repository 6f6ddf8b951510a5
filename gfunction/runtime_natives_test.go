/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-4 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package gfunction

import (
	"runtime"
	"testing"

	"jacobin/vm2/bootstrap"
	"jacobin/vm2/classloader"
	"jacobin/vm2/heap"
	"jacobin/vm2/interner"
)

func newTestMethodArea(heapMB int) *classloader.MethodArea {
	in := interner.New()
	h := heap.New(heapMB)
	boot := bootstrap.New(in)
	return classloader.New(in, h, boot)
}

func TestRuntimeMaxMemoryReportsHeapCapacity(t *testing.T) {
	ma := newTestMethodArea(64)
	v, err := runtimeMaxMemory(ma, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := ma.Heap().Capacity()
	if v.L != want {
		t.Errorf("maxMemory = %d, want %d", v.L, want)
	}
}

func TestRuntimeAvailableProcessorsMatchesHost(t *testing.T) {
	ma := newTestMethodArea(8)
	v, err := runtimeAvailableProcessors(ma, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if int(v.I) != runtime.NumCPU() {
		t.Errorf("availableProcessors = %d, want %d", v.I, runtime.NumCPU())
	}
}
