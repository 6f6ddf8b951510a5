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
	"jacobin/vm2/thread"
	"jacobin/vm2/types"
)

// compileTimeMethodId finds any method known by key against classId,
// used only to recover the declared parameter count/descriptor before
// the real dispatch decision is made -- declared, inherited-virtual,
// and inherited-interface methods all share one descriptor per key.
func compileTimeMethodId(c *classloader.Class, key types.MethodKey) (types.MethodId, bool) {
	if mid, ok := c.DeclaredMethodIndex[key]; ok {
		return mid, true
	}
	if slot, ok := c.VTableIndex[key]; ok {
		return c.VTable[slot], true
	}
	if mid, ok := c.ITable[key]; ok {
		return mid, true
	}
	return 0, false
}

func (it *Interp) pushReturn(frame *frames.JavaFrame, md classloader.MethodDescriptor, ret *types.Value) {
	if md.ReturnVoid || ret == nil {
		return
	}
	frame.Push(*ret)
}

func (it *Interp) execInvokevirtual(th *thread.Thread, frame *frames.JavaFrame) error {
	index := frame.ReadU16()
	nv, err := it.poolOf(frame).GetMethodView(index)
	if err != nil {
		return raiseSimple(excNames.ClassFormatError, err.Error())
	}
	name := it.MA.Interner().MustResolve(nv.ClassSym)
	compileTimeClassId, err := it.MA.GetClassIdOrLoad(name, it.Provider)
	if err != nil {
		return err
	}
	key := types.MethodKey{Name: nv.NameSym, Desc: nv.DescSym}

	c := it.MA.ClassByID(compileTimeClassId)
	declMid, ok := compileTimeMethodId(c, key)
	if !ok {
		return raiseSimple(excNames.NoSuchMethodError, it.MA.Interner().MustResolve(key.Name))
	}
	md := it.MA.MethodDescriptorByID(it.MA.MethodByID(declMid).DescId)

	args := popArgs(frame, md, true)
	if args[0].IsNull() {
		return raiseSimple(excNames.NullPointerException, "")
	}
	receiverClassId := it.heap().ClassIdOf(args[0].Ref)
	mid, err := it.resolveDynamic(receiverClassId, key)
	if err != nil {
		return err
	}
	ret, err := it.invokeMethodById(th, mid, args)
	if err != nil {
		return err
	}
	it.pushReturn(frame, md, ret)
	return nil
}

func (it *Interp) execInvokespecial(th *thread.Thread, frame *frames.JavaFrame) error {
	index := frame.ReadU16()
	nv, err := it.poolOf(frame).GetMethodOrInterfaceMethodView(index)
	if err != nil {
		return raiseSimple(excNames.ClassFormatError, err.Error())
	}
	name := it.MA.Interner().MustResolve(nv.ClassSym)
	resolvedClassId, err := it.MA.GetClassIdOrLoad(name, it.Provider)
	if err != nil {
		return err
	}
	key := types.MethodKey{Name: nv.NameSym, Desc: nv.DescSym}

	mid, err := it.resolveSpecial(resolvedClassId, key)
	if err != nil {
		return err
	}
	md := it.MA.MethodDescriptorByID(it.MA.MethodByID(mid).DescId)

	args := popArgs(frame, md, true)
	if args[0].IsNull() {
		return raiseSimple(excNames.NullPointerException, "")
	}
	ret, err := it.invokeMethodById(th, mid, args)
	if err != nil {
		return err
	}
	it.pushReturn(frame, md, ret)
	return nil
}

func (it *Interp) execInvokestatic(th *thread.Thread, frame *frames.JavaFrame) error {
	index := frame.ReadU16()
	nv, err := it.poolOf(frame).GetMethodOrInterfaceMethodView(index)
	if err != nil {
		return raiseSimple(excNames.ClassFormatError, err.Error())
	}
	name := it.MA.Interner().MustResolve(nv.ClassSym)
	resolvedClassId, err := it.MA.GetClassIdOrLoad(name, it.Provider)
	if err != nil {
		return err
	}
	key := types.MethodKey{Name: nv.NameSym, Desc: nv.DescSym}

	mid, err := it.resolveStatic(th, resolvedClassId, key)
	if err != nil {
		return err
	}
	md := it.MA.MethodDescriptorByID(it.MA.MethodByID(mid).DescId)

	args := popArgs(frame, md, false)
	ret, err := it.invokeMethodById(th, mid, args)
	if err != nil {
		return err
	}
	it.pushReturn(frame, md, ret)
	return nil
}

func (it *Interp) execInvokeinterface(th *thread.Thread, frame *frames.JavaFrame) error {
	index := frame.ReadU16()
	_ = frame.ReadU8() // count: redundant with the descriptor's own param count
	_ = frame.ReadU8() // reserved, always zero

	nv, err := it.poolOf(frame).GetInterfaceMethodView(index)
	if err != nil {
		return raiseSimple(excNames.ClassFormatError, err.Error())
	}
	name := it.MA.Interner().MustResolve(nv.ClassSym)
	ifaceClassId, err := it.MA.GetClassIdOrLoad(name, it.Provider)
	if err != nil {
		return err
	}
	key := types.MethodKey{Name: nv.NameSym, Desc: nv.DescSym}

	iface := it.MA.ClassByID(ifaceClassId)
	declMid, ok := compileTimeMethodId(iface, key)
	if !ok {
		return raiseSimple(excNames.NoSuchMethodError, it.MA.Interner().MustResolve(key.Name))
	}
	md := it.MA.MethodDescriptorByID(it.MA.MethodByID(declMid).DescId)

	args := popArgs(frame, md, true)
	if args[0].IsNull() {
		return raiseSimple(excNames.NullPointerException, "")
	}
	receiverClassId := it.heap().ClassIdOf(args[0].Ref)
	mid, err := it.resolveDynamic(receiverClassId, key)
	if err != nil {
		return err
	}
	ret, err := it.invokeMethodById(th, mid, args)
	if err != nil {
		return err
	}
	it.pushReturn(frame, md, ret)
	return nil
}
