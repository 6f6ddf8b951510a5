/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-4 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package jvm

import (
	"jacobin/vm2/classloader"
	"jacobin/vm2/excNames"
	"jacobin/vm2/frames"
	"jacobin/vm2/opcodes"
	"jacobin/vm2/rtpool"
	"jacobin/vm2/shutdown"
	"jacobin/vm2/thread"
	"jacobin/vm2/types"
)

func (it *Interp) poolOf(frame *frames.JavaFrame) *rtpool.Pool {
	return it.MA.ClassByID(frame.Class).Pool
}

// execLdc implements ldc/ldc_w/ldc2_w: resolves the constant at index
// and pushes it, materializing a String constant into a real
// java.lang.String instance and a Class constant into its mirror.
func (it *Interp) execLdc(frame *frames.JavaFrame, index uint16) error {
	c, err := it.poolOf(frame).GetConstant(index)
	if err != nil {
		return raiseSimple(excNames.ClassFormatError, err.Error())
	}
	switch c.Kind {
	case rtpool.ConstInt:
		frame.Push(types.Integer(c.I))
	case rtpool.ConstLong:
		frame.Push(types.Long(c.L))
	case rtpool.ConstFloat:
		frame.Push(types.Float(c.F))
	case rtpool.ConstDouble:
		frame.Push(types.Double(c.D))
	case rtpool.ConstStringSym:
		s := it.MA.Interner().MustResolve(c.Sym)
		ref, err := it.heap().GetStrFromPoolOrNew(it.stringAllocator(), c.Sym, s)
		if err != nil {
			return err
		}
		frame.Push(types.Ref(ref))
	case rtpool.ConstClassSym:
		name := it.MA.Interner().MustResolve(c.Sym)
		classId, err := it.MA.GetClassIdOrLoad(name, it.Provider)
		if err != nil {
			return err
		}
		ref, err := it.MA.GetMirrorRefOrCreate(classId)
		if err != nil {
			return err
		}
		frame.Push(types.Ref(ref))
	default:
		return raiseSimple(excNames.ClassFormatError, "unsupported ldc constant kind")
	}
	return nil
}

// resolveFieldRef resolves a Fieldref constant-pool entry to
// (ownerClassId, FieldKey).
func (it *Interp) resolveFieldRef(frame *frames.JavaFrame, index uint16) (types.ClassId, types.FieldKey, error) {
	nv, err := it.poolOf(frame).GetFieldView(index)
	if err != nil {
		return 0, types.FieldKey{}, raiseSimple(excNames.ClassFormatError, err.Error())
	}
	name := it.MA.Interner().MustResolve(nv.ClassSym)
	classId, err := it.MA.GetClassIdOrLoad(name, it.Provider)
	if err != nil {
		return 0, types.FieldKey{}, err
	}
	return classId, types.FieldKey{Name: nv.NameSym, Desc: nv.DescSym}, nil
}

func (it *Interp) execGetstatic(th *thread.Thread, frame *frames.JavaFrame) error {
	classId, key, err := it.resolveFieldRef(frame, frame.ReadU16())
	if err != nil {
		return err
	}
	if err := it.ensureInitialized(th, classId); err != nil {
		return err
	}
	slot, err := it.MA.ResolveStaticField(classId, key)
	if err != nil {
		return err
	}
	frame.Push(slot.Get())
	return nil
}

func (it *Interp) execPutstatic(th *thread.Thread, frame *frames.JavaFrame) error {
	classId, key, err := it.resolveFieldRef(frame, frame.ReadU16())
	if err != nil {
		return err
	}
	if err := it.ensureInitialized(th, classId); err != nil {
		return err
	}
	slot, err := it.MA.ResolveStaticField(classId, key)
	if err != nil {
		return err
	}
	slot.Set(frame.Pop())
	return nil
}

// instanceFieldFor resolves a Fieldref to the receiver class's own
// InstanceField, walking its ClassByID for the field descriptor's
// byte offset and heap.FieldType (fields never move once linked, so
// looking this up by name on every access is correct though not the
// fastest possible path).
func (it *Interp) instanceFieldFor(frame *frames.JavaFrame, index uint16, receiverClassId types.ClassId) (*classloader.InstanceField, error) {
	nv, err := it.poolOf(frame).GetFieldView(index)
	if err != nil {
		return nil, raiseSimple(excNames.ClassFormatError, err.Error())
	}
	c := it.MA.ClassByID(receiverClassId)
	if c == nil {
		return nil, raiseSimple("java/lang/NoClassDefFoundError", "")
	}
	key := types.FieldKey{Name: nv.NameSym, Desc: nv.DescSym}
	f, ok := c.FieldsByKey[key]
	if !ok {
		return nil, raiseSimple(excNames.NoSuchFieldError, it.MA.Interner().MustResolve(nv.NameSym))
	}
	return f, nil
}

func (it *Interp) execGetfield(frame *frames.JavaFrame) error {
	index := frame.ReadU16()
	ref := frame.Pop()
	if ref.IsNull() {
		return raiseSimple(excNames.NullPointerException, "")
	}
	f, err := it.instanceFieldFor(frame, index, it.heap().ClassIdOf(ref.Ref))
	if err != nil {
		return err
	}
	frame.Push(it.heap().ReadField(ref.Ref, f.Offset, f.Kind))
	return nil
}

func (it *Interp) execPutfield(frame *frames.JavaFrame) error {
	index := frame.ReadU16()
	v := frame.Pop()
	ref := frame.Pop()
	if ref.IsNull() {
		return raiseSimple(excNames.NullPointerException, "")
	}
	f, err := it.instanceFieldFor(frame, index, it.heap().ClassIdOf(ref.Ref))
	if err != nil {
		return err
	}
	return it.heap().WriteField(ref.Ref, f.Offset, f.Kind, v)
}

func (it *Interp) execNew(th *thread.Thread, frame *frames.JavaFrame) error {
	index := frame.ReadU16()
	sym, err := it.poolOf(frame).GetClassSym(index)
	if err != nil {
		return raiseSimple(excNames.ClassFormatError, err.Error())
	}
	name := it.MA.Interner().MustResolve(sym)
	classId, err := it.MA.GetClassIdOrLoad(name, it.Provider)
	if err != nil {
		return err
	}
	ref, err := it.newInstance(th, classId)
	if err != nil {
		return err
	}
	frame.Push(types.Ref(ref))
	return nil
}

func (it *Interp) execAnewarray(frame *frames.JavaFrame) error {
	index := frame.ReadU16()
	sym, err := it.poolOf(frame).GetClassSym(index)
	if err != nil {
		return raiseSimple(excNames.ClassFormatError, err.Error())
	}
	n := frame.Pop()
	name := it.MA.Interner().MustResolve(sym)
	ref, err := it.newObjectArray(name, n.I)
	if err != nil {
		return err
	}
	frame.Push(types.Ref(ref))
	return nil
}

func (it *Interp) execMultianewarray(frame *frames.JavaFrame) error {
	index := frame.ReadU16()
	dims := int(frame.ReadU8())
	sym, err := it.poolOf(frame).GetClassSym(index)
	if err != nil {
		return raiseSimple(excNames.ClassFormatError, err.Error())
	}
	name := it.MA.Interner().MustResolve(sym)
	arrClassId, err := it.MA.GetClassIdOrLoad(name, it.Provider)
	if err != nil {
		return err
	}
	counts := make([]int32, dims)
	for i := dims - 1; i >= 0; i-- {
		counts[i] = frame.Pop().I
	}
	ref, err := it.newMultiArray(arrClassId, counts)
	if err != nil {
		return err
	}
	frame.Push(types.Ref(ref))
	return nil
}

func (it *Interp) execCheckcast(frame *frames.JavaFrame) error {
	index := frame.ReadU16()
	sym, err := it.poolOf(frame).GetClassSym(index)
	if err != nil {
		return raiseSimple(excNames.ClassFormatError, err.Error())
	}
	v := frame.Peek()
	if v.IsNull() {
		return nil
	}
	name := it.MA.Interner().MustResolve(sym)
	targetId, err := it.MA.GetClassIdOrLoad(name, it.Provider)
	if err != nil {
		return err
	}
	objClassId := it.heap().ClassIdOf(v.Ref)
	if !it.MA.IsAssignableFrom(targetId, objClassId) {
		return raise(excNames.ClassCastException, "%s cannot be cast to %s",
			it.MA.Interner().MustResolve(it.MA.ClassByID(objClassId).NameSym), name)
	}
	return nil
}

func (it *Interp) execInstanceof(frame *frames.JavaFrame) error {
	index := frame.ReadU16()
	sym, err := it.poolOf(frame).GetClassSym(index)
	if err != nil {
		return raiseSimple(excNames.ClassFormatError, err.Error())
	}
	v := frame.Pop()
	if v.IsNull() {
		frame.Push(types.Integer(0))
		return nil
	}
	name := it.MA.Interner().MustResolve(sym)
	targetId, err := it.MA.GetClassIdOrLoad(name, it.Provider)
	if err != nil {
		return err
	}
	if it.MA.InstanceOf(it.heap().ClassIdOf(v.Ref), targetId) {
		frame.Push(types.Integer(1))
	} else {
		frame.Push(types.Integer(0))
	}
	return nil
}

// execWide implements the wide prefix opcode: it re-reads the
// following opcode and reruns the iload/istore/iinc/ret family with a
// 16-bit (rather than 8-bit) index operand.
func (it *Interp) execWide(frame *frames.JavaFrame) error {
	sub := frame.ReadU8()
	idx := int(frame.ReadU16())
	switch sub {
	case opcodes.Iload, opcodes.Lload, opcodes.Fload, opcodes.Dload, opcodes.Aload:
		frame.Push(frame.GetLocal(idx))
	case opcodes.Istore, opcodes.Lstore, opcodes.Fstore, opcodes.Dstore, opcodes.Astore:
		frame.SetLocal(idx, frame.Pop())
	case opcodes.Iinc:
		delta := int32(frame.ReadI16())
		cur := frame.GetLocal(idx)
		frame.SetLocal(idx, types.Integer(cur.I+delta))
	case opcodes.Ret:
		shutdown.Fatalf("wide ret is not supported: modern classfiles never emit subroutine opcodes")
	default:
		return raiseSimple(excNames.ClassFormatError, "invalid wide opcode")
	}
	return nil
}
