/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-4 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package gfunction

import (
	"jacobin/vm2/classloader"
	"jacobin/vm2/excNames"
	"jacobin/vm2/heap"
	"jacobin/vm2/interner"
	"jacobin/vm2/thread"
	"jacobin/vm2/types"
)

// LoadLangSystem installs java.lang.System's preregistered natives:
// registerNatives and arraycopy.
func LoadLangSystem(r *Registry, in *interner.Interner) {
	classSym := in.Intern("java/lang/System")

	r.Preregister(Key{Class: classSym, Name: in.Intern("registerNatives"), Desc: in.Intern("()V")},
		Func{ParamCount: 0, Call: justReturn})

	r.Preregister(Key{Class: classSym, Name: in.Intern("arraycopy"),
		Desc: in.Intern("(Ljava/lang/Object;ILjava/lang/Object;II)V")},
		Func{ParamCount: 5, Call: systemArraycopy})
}

// systemArraycopy: args are (src, srcPos, dst, dstPos, length).
func systemArraycopy(ma *classloader.MethodArea, th *thread.Thread, args []types.Value) (*types.Value, error) {
	src, srcPos, dst, dstPos, length := args[0], args[1], args[2], args[3], args[4]
	if src.IsNull() || dst.IsNull() {
		return nil, &classloader.LinkError{Payload: excNames.Simple(excNames.NullPointerException, "arraycopy: null array")}
	}
	h := ma.Heap()
	tag := h.ArrayElementTag(src.Ref)
	ft := fieldTypeFromArrayTag(tag)
	if err := h.CopyPrimitiveSlice(src.Ref, srcPos.I, dst.Ref, dstPos.I, length.I, ft); err != nil {
		return nil, &classloader.LinkError{Payload: excNames.Simple(excNames.ArrayIndexOutOfBoundsException, err.Error())}
	}
	return nil, nil
}

func fieldTypeFromArrayTag(tag uint8) heap.FieldType {
	if tag == 0xFF {
		return heap.FieldRef
	}
	return heap.FieldType(tag)
}
