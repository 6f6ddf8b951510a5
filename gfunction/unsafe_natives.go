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

// LoadMiscUnsafe installs jdk.internal.misc.Unsafe's low-level field
// and array natives as registrable, since real JDK class libraries
// only wire them in once Unsafe.registerNatives runs.
// Every offset Unsafe hands back is a direct field/array byte offset
// into this VM's own heap layout, not an opaque cookie, so
// objectFieldOffset1 and friends read straight off the already-linked
// InstanceField/array layout instead of maintaining a parallel table.
func LoadMiscUnsafe(r *Registry, in *interner.Interner) {
	classSym := in.Intern("jdk/internal/misc/Unsafe")

	reg := func(name, desc string, paramCount int, fn func(*classloader.MethodArea, *thread.Thread, []types.Value) (*types.Value, error)) {
		r.Registrable(Key{Class: classSym, Name: in.Intern(name), Desc: in.Intern(desc)}, Func{ParamCount: paramCount, Call: fn})
	}

	r.Preregister(Key{Class: classSym, Name: in.Intern("registerNatives"), Desc: in.Intern("()V")},
		Func{ParamCount: 0, Call: justReturn})

	reg("objectFieldOffset1", "(Ljava/lang/Class;Ljava/lang/String;)J", 3, unsafeObjectFieldOffset1)
	reg("arrayBaseOffset0", "(Ljava/lang/Class;)I", 2, unsafeArrayBaseOffset0)
	reg("arrayIndexScale0", "(Ljava/lang/Class;)I", 2, unsafeArrayIndexScale0)
	reg("compareAndSetInt", "(Ljava/lang/Object;JII)Z", 5, unsafeCompareAndSetInt)
	reg("compareAndSetLong", "(Ljava/lang/Object;JJJ)Z", 5, unsafeCompareAndSetLong)
	reg("compareAndSetReference", "(Ljava/lang/Object;JLjava/lang/Object;Ljava/lang/Object;)Z", 5, unsafeCompareAndSetReference)
	reg("getReferenceVolatile", "(Ljava/lang/Object;J)Ljava/lang/Object;", 3, unsafeGetReferenceVolatile)
	reg("getIntVolatile", "(Ljava/lang/Object;J)I", 3, unsafeGetIntVolatile)
	reg("getLong", "(Ljava/lang/Object;J)J", 3, unsafeGetLong)
	reg("fullFence", "()V", 1, unsafeFullFence)
	reg("ensureClassInitialized", "(Ljava/lang/Class;)V", 2, unsafeEnsureClassInitialized)
}

// unsafeObjectFieldOffset1 looks the named field up on the given
// Class mirror's backing class and returns its layout offset.
func unsafeObjectFieldOffset1(ma *classloader.MethodArea, th *thread.Thread, args []types.Value) (*types.Value, error) {
	classMirror, nameRef := args[1], args[2]
	classId, ok := ma.ClassForMirror(classMirror.Ref)
	if !ok {
		v := types.Long(0)
		return &v, nil
	}
	a, err := stringAllocatorFor(ma)
	if err != nil {
		return nil, err
	}
	fieldName := ma.Heap().GetGoStringFromJavaString(a, nameRef.Ref)
	c := ma.ClassByID(classId)
	field := c.FieldsByName[ma.Interner().Intern(fieldName)]
	v := types.Long(int64(field.Offset))
	return &v, nil
}

// unsafeArrayBaseOffset0 is constant across every array class: element
// storage always starts at heap.ElementsOffset.
func unsafeArrayBaseOffset0(ma *classloader.MethodArea, th *thread.Thread, args []types.Value) (*types.Value, error) {
	v := types.Integer(int32(heap.ElementsOffset))
	return &v, nil
}

func unsafeArrayIndexScale0(ma *classloader.MethodArea, th *thread.Thread, args []types.Value) (*types.Value, error) {
	classMirror := args[1]
	classId, ok := ma.ClassForMirror(classMirror.Ref)
	if !ok {
		v := types.Integer(0)
		return &v, nil
	}
	c := ma.ClassByID(classId)
	var scale int32
	switch c.Kind {
	case classloader.KindPrimitiveArray:
		scale = int32(c.ElementTag.Size())
	default:
		scale = 8 // object reference width, this heap's HeapRef size
	}
	v := types.Integer(scale)
	return &v, nil
}

func unsafeCompareAndSetInt(ma *classloader.MethodArea, th *thread.Thread, args []types.Value) (*types.Value, error) {
	receiver, offset, expect, update := args[0], args[1], args[2], args[3]
	ok := ma.Heap().CompareAndSwapField(receiver.Ref, int(offset.L), heap.FieldInt, expect, update)
	v := boolValue(ok)
	return &v, nil
}

func unsafeCompareAndSetLong(ma *classloader.MethodArea, th *thread.Thread, args []types.Value) (*types.Value, error) {
	receiver, offset, expect, update := args[0], args[1], args[2], args[3]
	ok := ma.Heap().CompareAndSwapField(receiver.Ref, int(offset.L), heap.FieldLong, expect, update)
	v := boolValue(ok)
	return &v, nil
}

func unsafeCompareAndSetReference(ma *classloader.MethodArea, th *thread.Thread, args []types.Value) (*types.Value, error) {
	receiver, offset, expect, update := args[0], args[1], args[2], args[3]
	ok := ma.Heap().CompareAndSwapField(receiver.Ref, int(offset.L), heap.FieldRef, expect, update)
	v := boolValue(ok)
	return &v, nil
}

func unsafeGetReferenceVolatile(ma *classloader.MethodArea, th *thread.Thread, args []types.Value) (*types.Value, error) {
	receiver, offset := args[0], args[1]
	v := ma.Heap().ReadField(receiver.Ref, int(offset.L), heap.FieldRef)
	return &v, nil
}

func unsafeGetIntVolatile(ma *classloader.MethodArea, th *thread.Thread, args []types.Value) (*types.Value, error) {
	receiver, offset := args[0], args[1]
	v := ma.Heap().ReadField(receiver.Ref, int(offset.L), heap.FieldInt)
	return &v, nil
}

func unsafeGetLong(ma *classloader.MethodArea, th *thread.Thread, args []types.Value) (*types.Value, error) {
	receiver, offset := args[0], args[1]
	v := ma.Heap().ReadField(receiver.Ref, int(offset.L), heap.FieldLong)
	return &v, nil
}

// unsafeFullFence is a no-op: this VM runs one interpreter thread at a
// time, so there is no weaker memory model to fence against.
func unsafeFullFence(ma *classloader.MethodArea, th *thread.Thread, args []types.Value) (*types.Value, error) {
	return nil, nil
}

// unsafeEnsureClassInitialized is a no-op here: triggering <clinit>
// requires running bytecode, which only the interpreter can do, and
// this registry is built beneath it to avoid an import cycle. The
// interpreter already runs ensure_initialized on every invokestatic
// and getstatic/putstatic, which covers every path real JDK code uses
// this native for.
func unsafeEnsureClassInitialized(ma *classloader.MethodArea, th *thread.Thread, args []types.Value) (*types.Value, error) {
	return nil, nil
}

func boolValue(b bool) types.Value {
	if b {
		return types.Integer(1)
	}
	return types.Integer(0)
}
