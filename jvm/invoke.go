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
	"jacobin/vm2/gfunction"
	"jacobin/vm2/heap"
	"jacobin/vm2/shutdown"
	"jacobin/vm2/thread"
	"jacobin/vm2/types"
)

// maxCallDepth bounds Java recursion; exceeding it raises
// StackOverflowError rather than crashing the host process.
const maxCallDepth = 1500

// ensureInitialized drives classId through the method area's
// Linked->Initializing->Initialized state machine, supplying
// invokeMethodById as the callback that actually runs <clinit>.
func (it *Interp) ensureInitialized(th *thread.Thread, classId types.ClassId) error {
	return it.MA.EnsureInitialized(classId, func(clinitId types.MethodId) error {
		_, err := it.invokeMethodById(th, clinitId, nil)
		return err
	})
}

// localSlotWidth is the number of JVM local-variable slot indices a
// value of kind t occupies: 2 for long/double (matching the classic
// dual-slot indexing bytecode compiles against), 1 for everything
// else. This VM stores one types.Value per occupied slot and simply
// leaves the second slot of a wide value unused, since verified
// bytecode never addresses it directly.
func localSlotWidth(t heap.FieldType) int {
	if t == heap.FieldLong || t == heap.FieldDouble {
		return 2
	}
	return 1
}

// popArgs pops a method's arguments (and, for an instance call, its
// receiver) off frame's operand stack, returning them in call order
// (receiver first, if present).
func popArgs(frame *frames.JavaFrame, md classloader.MethodDescriptor, hasReceiver bool) []types.Value {
	n := md.ParamCount()
	if hasReceiver {
		n++
	}
	args := make([]types.Value, n)
	for i := n - 1; i >= 0; i-- {
		args[i] = frame.Pop()
	}
	return args
}

// buildLocals lays args out into a fresh locals array sized to the
// method's declared max_locals, honoring the dual-slot width of
// long/double parameters.
func buildLocals(method *classloader.Method, md classloader.MethodDescriptor, args []types.Value, hasReceiver bool) []types.Value {
	locals := make([]types.Value, method.Code.MaxLocals)
	slot := 0
	i := 0
	if hasReceiver {
		locals[0] = args[0]
		slot = 1
		i = 1
	}
	for _, pt := range md.Params {
		locals[slot] = args[i]
		slot += localSlotWidth(pt)
		i++
	}
	return locals
}

// invokeMethodById is the single call path every invoke* opcode and
// every ensure_initialized <clinit> run goes through: it pushes the
// right frame shape (Java or native), runs it, and pops it again
// before returning.
func (it *Interp) invokeMethodById(th *thread.Thread, methodId types.MethodId, args []types.Value) (*types.Value, error) {
	method := it.MA.MethodByID(methodId)
	if method == nil {
		return nil, raiseSimple(excNames.NoSuchMethodError, "")
	}

	switch method.Body {
	case classloader.BodyNative:
		return it.invokeNative(th, method, args)
	case classloader.BodyAbstract:
		return nil, raiseSimple(excNames.AbstractMethodError, nameOf(it, method))
	default:
		return it.invokeJava(th, method, args)
	}
}

func (it *Interp) invokeJava(th *thread.Thread, method *classloader.Method, args []types.Value) (*types.Value, error) {
	if th.Depth() >= maxCallDepth {
		return nil, raiseSimple(excNames.StackOverflowError, "")
	}
	md := it.MA.MethodDescriptorByID(method.DescId)
	frame := frames.NewJavaFrame(method.Id, method.Owner, method.Code.Code, method.Code.MaxLocals, method.Code.MaxStack, method.Code.Exceptions)
	frame.Locals = buildLocals(method, md, args, !method.IsStatic())

	th.PushFrame(frame)
	ret, err := it.runFrame(th, frame)
	th.PopFrame()
	return ret, err
}

func (it *Interp) invokeNative(th *thread.Thread, method *classloader.Method, args []types.Value) (*types.Value, error) {
	owner := it.MA.ClassByID(method.Owner)
	key := gfunction.Key{Class: owner.NameSym, Name: method.Key.Name, Desc: method.Key.Desc}
	fn, ok := it.Natives.Lookup(key, gfunction.CloneName)
	if !ok {
		return nil, raiseSimple(excNames.UnsatisfiedLinkError, nameOf(it, method))
	}

	th.PushFrame(&frames.NativeFrame{Method: method.Id, Class: method.Owner})
	ret, err := fn.Call(it.MA, th, args)
	th.PopFrame()
	return ret, err
}

func nameOf(it *Interp, method *classloader.Method) string {
	return it.MA.Interner().MustResolve(method.Key.Name)
}

// resolveDynamic looks up the method that actually runs for a
// (class, method) invocation resolved late: the compile-time
// Methodref's slot in receiverClassId's own vtable. Overriding never
// changes a method's vtable slot (see loadAndLink), so this one
// lookup serves both invokevirtual and invokeinterface.
func (it *Interp) resolveDynamic(receiverClassId types.ClassId, key types.MethodKey) (types.MethodId, error) {
	c := it.MA.ClassByID(receiverClassId)
	if c == nil {
		return 0, raiseSimple(excNames.NoSuchMethodError, "")
	}
	slot, ok := c.VTableIndex[key]
	if !ok {
		return 0, raiseSimple(excNames.NoSuchMethodError, it.MA.Interner().MustResolve(key.Name))
	}
	return c.VTable[slot], nil
}

// resolveSpecial implements invokespecial's non-virtual binding:
// <init>, a private method, or a superclass call all bind directly to
// resolvedClassId's own declared method (constructors and privates
// never enter a vtable) and fall back to its vtable slot otherwise
// (an ordinary super.foo() call).
func (it *Interp) resolveSpecial(resolvedClassId types.ClassId, key types.MethodKey) (types.MethodId, error) {
	c := it.MA.ClassByID(resolvedClassId)
	if c == nil {
		return 0, raiseSimple(excNames.NoSuchMethodError, "")
	}
	if mid, ok := c.DeclaredMethodIndex[key]; ok {
		return mid, nil
	}
	if slot, ok := c.VTableIndex[key]; ok {
		return c.VTable[slot], nil
	}
	return 0, raiseSimple(excNames.NoSuchMethodError, it.MA.Interner().MustResolve(key.Name))
}

// resolveStatic ensures resolvedClassId is initialized (a static
// method's first call triggers its class's <clinit>, just like a
// field access or instantiation does) and resolves key against the
// declared methods of the class and then of each superclass in turn.
func (it *Interp) resolveStatic(th *thread.Thread, resolvedClassId types.ClassId, key types.MethodKey) (types.MethodId, error) {
	if err := it.ensureInitialized(th, resolvedClassId); err != nil {
		return 0, err
	}
	for cid := resolvedClassId; cid != 0; {
		c := it.MA.ClassByID(cid)
		if c == nil {
			break
		}
		if mid, ok := c.DeclaredMethodIndex[key]; ok {
			return mid, nil
		}
		cid = c.SuperId
	}
	return 0, raiseSimple(excNames.NoSuchMethodError, it.MA.Interner().MustResolve(key.Name))
}

// Execute runs className's public static void main(String[]) to
// completion on a fresh main thread, returning the uncaught exception
// (if any) as a *ThrownException.
func (it *Interp) Execute(mainClass types.ClassId, args []types.HeapRef) error {
	th := thread.New("main")
	key := types.MethodKey{Name: it.MA.Interner().Intern("main"), Desc: it.MA.Bootstrap().MainDesc}
	mid, err := it.resolveStatic(th, mainClass, key)
	if err != nil {
		return err
	}

	argsArrayRef, err := it.newObjectArray("java/lang/String", int32(len(args)))
	if err != nil {
		return err
	}
	for i, ref := range args {
		if err := it.heap().WriteArrayElement(argsArrayRef, int32(i), heap.FieldRef, types.Ref(ref)); err != nil {
			return err
		}
	}

	_, err = it.invokeMethodById(th, mid, []types.Value{types.Ref(argsArrayRef)})
	if err != nil {
		if _, fatal := err.(*ThrownException); !fatal {
			shutdown.Fatalf("main: %v", err)
		}
		return err
	}
	return nil
}
