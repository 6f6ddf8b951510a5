/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-4 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package frames

import (
	"testing"

	"jacobin/vm2/classfile"
	"jacobin/vm2/types"
)

func TestPushPopRoundTrip(t *testing.T) {
	f := NewJavaFrame(1, 1, nil, 2, 4, nil)
	f.Push(types.Integer(7))
	f.Push(types.Long(99))
	if got := f.Pop(); got.L != 99 {
		t.Errorf("got %v, want Long(99)", got)
	}
	if got := f.Pop(); got.I != 7 {
		t.Errorf("got %v, want Integer(7)", got)
	}
}

func TestPeekDoesNotPop(t *testing.T) {
	f := NewJavaFrame(1, 1, nil, 0, 2, nil)
	f.Push(types.Integer(5))
	if got := f.Peek(); got.I != 5 {
		t.Errorf("Peek = %v, want 5", got)
	}
	if f.StackDepth() != 1 {
		t.Errorf("StackDepth after Peek = %d, want 1", f.StackDepth())
	}
}

func TestLocalsRoundTrip(t *testing.T) {
	f := NewJavaFrame(1, 1, nil, 3, 0, nil)
	f.SetLocal(1, types.Double(2.5))
	if got := f.GetLocal(1); got.D != 2.5 {
		t.Errorf("GetLocal(1) = %v, want 2.5", got)
	}
}

func TestReadOperandsAdvancePC(t *testing.T) {
	f := NewJavaFrame(1, 1, []byte{0x00, 0xFF, 0x01, 0x02}, 0, 0, nil)
	if got := f.ReadU8(); got != 0x00 {
		t.Errorf("ReadU8 = %x", got)
	}
	if got := f.ReadI8(); got != -1 {
		t.Errorf("ReadI8 = %d, want -1", got)
	}
	if got := f.ReadU16(); got != 0x0102 {
		t.Errorf("ReadU16 = %x, want 0x0102", got)
	}
	if f.PC != 4 {
		t.Errorf("PC = %d, want 4", f.PC)
	}
}

func TestHandlerForMatchesRangeAndType(t *testing.T) {
	exc := []classfile.ExceptionTableEntry{
		{StartPc: 0, EndPc: 10, HandlerPc: 20, CatchType: 5},
		{StartPc: 0, EndPc: 10, HandlerPc: 30, CatchType: 0}, // catch-all
	}
	f := NewJavaFrame(1, 1, nil, 0, 0, exc)

	matchesFive := func(ct uint16) bool { return ct == 5 }
	if got := f.HandlerFor(3, matchesFive); got != 20 {
		t.Errorf("HandlerFor matching type = %d, want 20", got)
	}

	matchesNone := func(ct uint16) bool { return false }
	if got := f.HandlerFor(3, matchesNone); got != 30 {
		t.Errorf("HandlerFor falling through to catch-all = %d, want 30", got)
	}

	if got := f.HandlerFor(15, matchesFive); got != -1 {
		t.Errorf("HandlerFor out of range = %d, want -1", got)
	}
}

func TestJavaFrameAndNativeFrameImplementFrame(t *testing.T) {
	var _ Frame = NewJavaFrame(1, 1, nil, 0, 0, nil)
	var _ Frame = &NativeFrame{Method: 2}

	nf := &NativeFrame{Method: 9}
	if !nf.IsNative() {
		t.Error("NativeFrame.IsNative() should be true")
	}
	if nf.MethodID() != 9 {
		t.Errorf("MethodID = %d, want 9", nf.MethodID())
	}
}
