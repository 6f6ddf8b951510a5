/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-4 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package gfunction

import (
	"jacobin/vm2/bootstrap"
	"jacobin/vm2/classloader"
	"jacobin/vm2/heap"
	"jacobin/vm2/interner"
	"jacobin/vm2/thread"
	"jacobin/vm2/types"
)

// LoadLangString installs java.lang.String's one native method,
// intern, which folds the receiver into the heap's string pool keyed
// by its interned content symbol. Every other String method is
// ordinary Java, not a native, and so belongs in the bundled class
// library rather than this registry.
func LoadLangString(r *Registry, in *interner.Interner) {
	classSym := in.Intern("java/lang/String")
	r.Preregister(Key{Class: classSym, Name: in.Intern("intern"), Desc: in.Intern("()Ljava/lang/String;")},
		Func{ParamCount: 1, Call: stringIntern})
}

func stringIntern(ma *classloader.MethodArea, th *thread.Thread, args []types.Value) (*types.Value, error) {
	h := ma.Heap()
	a, err := stringAllocatorFor(ma)
	if err != nil {
		return nil, err
	}
	s := h.GetGoStringFromJavaString(a, args[0].Ref)
	sym := ma.Interner().Intern(s)
	ref, err := h.GetStrFromPoolOrNew(a, sym, s)
	if err != nil {
		return nil, err
	}
	v := types.Ref(ref)
	return &v, nil
}

// stringAllocatorFor builds a heap.StringAllocator from the already
// linked java.lang.String and byte-array classes; every caller needs
// this, so natives share it instead of re-deriving field offsets.
func stringAllocatorFor(ma *classloader.MethodArea) (heap.StringAllocator, error) {
	boot := ma.Bootstrap()
	strId := boot.Resolved(bootstrap.StringClass)
	baId := boot.Resolved(bootstrap.ByteArray)
	strClass := ma.ClassByID(strId)

	valueField := strClass.FieldsByName[ma.Interner().Intern("value")]
	coderField := strClass.FieldsByName[ma.Interner().Intern("coder")]

	return heap.StringAllocator{
		StringClassId:    strId,
		StringValueOff:   valueField.Offset,
		StringCoderOff:   coderField.Offset,
		StringInstanceSz: strClass.InstanceSize,
		ByteArrayClassId: baId,
	}, nil
}
