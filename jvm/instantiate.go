/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-4 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package jvm

import (
	"jacobin/vm2/classloader"
	"jacobin/vm2/excNames"
	"jacobin/vm2/heap"
	"jacobin/vm2/opcodes"
	"jacobin/vm2/thread"
	"jacobin/vm2/types"
)

// atypeLetter maps newarray's atype operand byte to the primitive-array
// descriptor letter GetClassIdOrLoad/loadArrayClass expects.
var atypeLetter = map[uint8]byte{
	opcodes.ArrBoolean: 'Z',
	opcodes.ArrChar:    'C',
	opcodes.ArrFloat:   'F',
	opcodes.ArrDouble:  'D',
	opcodes.ArrByte:    'B',
	opcodes.ArrShort:   'S',
	opcodes.ArrInt:     'I',
	opcodes.ArrLong:    'J',
}

// newInstance implements the `new` opcode: ensures classId is
// initialized (a class's first instance can't be created before its
// <clinit> has run) and bump-allocates header + zeroed fields. The
// heap zero-fills on allocation, so every reference field already
// reads null and every primitive field already reads its zero value
// without a separate field-init pass.
func (it *Interp) newInstance(th *thread.Thread, classId types.ClassId) (types.HeapRef, error) {
	if err := it.ensureInitialized(th, classId); err != nil {
		return 0, err
	}
	c := it.MA.ClassByID(classId)
	return it.heap().AllocInstance(c.InstanceSize, classId)
}

// newArrayLevel allocates a single array level of class arrayClassId
// (already loaded/synthesized), choosing the primitive or object
// allocator by the class's Kind.
func (it *Interp) newArrayLevel(arrayClassId types.ClassId, n int32) (types.HeapRef, error) {
	if n < 0 {
		return 0, raise(excNames.NegativeArraySizeException, "%d", n)
	}
	c := it.MA.ClassByID(arrayClassId)
	if c.Kind == classloader.KindPrimitiveArray {
		return it.heap().AllocPrimitiveArray(arrayClassId, c.ElementTag, int(n))
	}
	return it.heap().AllocObjectArray(arrayClassId, int(n))
}

// newPrimitiveArray implements `newarray`: atype is the array-type
// code read from the operand byte.
func (it *Interp) newPrimitiveArray(atype uint8, n int32) (types.HeapRef, error) {
	letter, ok := atypeLetter[atype]
	if !ok {
		return 0, raiseSimple(excNames.ClassFormatError, "invalid newarray atype")
	}
	id, err := it.MA.GetClassIdOrLoad("["+string(letter), it.Provider)
	if err != nil {
		return 0, err
	}
	return it.newArrayLevel(id, n)
}

// newObjectArray implements `anewarray`: componentName is the
// resolved Class constant naming the element type, exactly as it
// appears in the constant pool -- a plain binary class name
// ("java/lang/String") or, if the element is itself an array, an
// array descriptor ("[I") the code below detects and does not
// re-wrap.
func (it *Interp) newObjectArray(componentName string, n int32) (types.HeapRef, error) {
	var arrName string
	if len(componentName) > 0 && componentName[0] == '[' {
		arrName = "[" + componentName
	} else {
		arrName = "[L" + componentName + ";"
	}
	id, err := it.MA.GetClassIdOrLoad(arrName, it.Provider)
	if err != nil {
		return 0, err
	}
	return it.newArrayLevel(id, n)
}

// newMultiArray implements `multianewarray`: arrayClassId already
// names the full array type (e.g. "[[I"); counts[0] is the outermost
// dimension's length. Dimensions beyond len(counts) are left null,
// to be filled in by ordinary bytecode later, matching the JVM's own
// partial-dimension semantics.
func (it *Interp) newMultiArray(arrayClassId types.ClassId, counts []int32) (types.HeapRef, error) {
	ref, err := it.newArrayLevel(arrayClassId, counts[0])
	if err != nil {
		return 0, err
	}
	if len(counts) == 1 {
		return ref, nil
	}
	c := it.MA.ClassByID(arrayClassId)
	if c.Kind != classloader.KindObjectArray {
		// A primitive array can't carry further dimensions; a
		// well-formed class file never asks for more dims than the
		// array type's bracket depth supports.
		return ref, nil
	}
	for i := int32(0); i < counts[0]; i++ {
		inner, err := it.newMultiArray(c.ElementClassId, counts[1:])
		if err != nil {
			return 0, err
		}
		if err := it.heap().WriteArrayElement(ref, i, heap.FieldRef, types.Ref(inner)); err != nil {
			return 0, err
		}
	}
	return ref, nil
}
