/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-4 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package gfunction

import (
	"jacobin/vm2/classloader"
	"jacobin/vm2/heap"
	"jacobin/vm2/interner"
	"jacobin/vm2/thread"
	"jacobin/vm2/types"
)

// LoadLangRefReference installs java.lang.ref.Reference's refersTo0,
// a plain reference-equality test. This VM has no
// garbage collector, so get()/clear() need no native help; only the
// identity check that bypasses a subclass's overridden get() is native
// in the JDK, and stays native here for the same reason.
func LoadLangRefReference(r *Registry, in *interner.Interner) {
	classSym := in.Intern("java/lang/ref/Reference")
	r.Preregister(Key{Class: classSym, Name: in.Intern("refersTo0"), Desc: in.Intern("(Ljava/lang/Object;)Z")},
		Func{ParamCount: 2, Call: referenceRefersTo0})
}

func referenceRefersTo0(ma *classloader.MethodArea, th *thread.Thread, args []types.Value) (*types.Value, error) {
	receiver, other := args[0], args[1]
	h := ma.Heap()

	refClassId := h.ClassIdOf(receiver.Ref)
	refClass := ma.ClassByID(refClassId)
	field := refClass.FieldsByName[ma.Interner().Intern("referent")]

	referent := h.ReadField(receiver.Ref, field.Offset, heap.FieldRef)
	var result int32
	if referent.Ref == other.Ref {
		result = 1
	}
	v := types.Integer(result)
	return &v, nil
}
