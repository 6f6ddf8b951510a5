/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-4 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package classloader

import (
	"testing"

	"jacobin/vm2/heap"
)

func TestParseFieldTypePrimitives(t *testing.T) {
	cases := map[string]heap.FieldType{
		"Z": heap.FieldBoolean,
		"B": heap.FieldByte,
		"C": heap.FieldChar,
		"S": heap.FieldShort,
		"I": heap.FieldInt,
		"J": heap.FieldLong,
		"F": heap.FieldFloat,
		"D": heap.FieldDouble,
		"Ljava/lang/String;": heap.FieldRef,
		"[I":                 heap.FieldRef,
	}
	for desc, want := range cases {
		if got := parseFieldType(desc); got != want {
			t.Errorf("parseFieldType(%q) = %v, want %v", desc, got, want)
		}
	}
}

func TestParseMethodDescriptorParamsAndReturn(t *testing.T) {
	md := parseMethodDescriptor(0, "(ILjava/lang/String;[D)J")
	if md.ParamCount() != 3 {
		t.Fatalf("ParamCount = %d, want 3", md.ParamCount())
	}
	want := []heap.FieldType{heap.FieldInt, heap.FieldRef, heap.FieldRef}
	for i, k := range want {
		if md.Params[i] != k {
			t.Errorf("Params[%d] = %v, want %v", i, md.Params[i], k)
		}
	}
	if md.ReturnVoid || md.Return != heap.FieldLong {
		t.Errorf("Return = %v (void=%v), want FieldLong", md.Return, md.ReturnVoid)
	}
}

func TestParseMethodDescriptorVoidNoArgs(t *testing.T) {
	md := parseMethodDescriptor(0, "()V")
	if md.ParamCount() != 0 {
		t.Fatalf("ParamCount = %d, want 0", md.ParamCount())
	}
	if !md.ReturnVoid {
		t.Error("expected ReturnVoid")
	}
}

func TestInternFieldDescriptorCaches(t *testing.T) {
	ma := newTestArea(t)
	sym := ma.Interner().Intern("I")
	id1 := ma.internFieldDescriptor(sym, "I")
	id2 := ma.internFieldDescriptor(sym, "I")
	if id1 != id2 {
		t.Errorf("expected cached id, got %d then %d", id1, id2)
	}
	if ma.FieldDescriptorByID(id1).Kind != heap.FieldInt {
		t.Error("expected FieldInt kind")
	}
}

func TestInternMethodDescriptorCaches(t *testing.T) {
	ma := newTestArea(t)
	sym := ma.Interner().Intern("()V")
	id1 := ma.internMethodDescriptor(sym, "()V")
	id2 := ma.internMethodDescriptor(sym, "()V")
	if id1 != id2 {
		t.Errorf("expected cached id, got %d then %d", id1, id2)
	}
	if !ma.MethodDescriptorByID(id1).ReturnVoid {
		t.Error("expected ReturnVoid descriptor")
	}
}
