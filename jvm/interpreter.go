/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-4 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package jvm

import (
	"math"

	"jacobin/vm2/classloader"
	"jacobin/vm2/excNames"
	"jacobin/vm2/frames"
	"jacobin/vm2/heap"
	"jacobin/vm2/opcodes"
	"jacobin/vm2/shutdown"
	"jacobin/vm2/thread"
	"jacobin/vm2/types"
)

// runFrame executes frame's bytecode to completion, returning its
// return value (nil for a void method) or propagating an uncaught
// exception as *ThrownException.
func (it *Interp) runFrame(th *thread.Thread, frame *frames.JavaFrame) (*types.Value, error) {
	for {
		ret, done, err := it.step(th, frame)
		if err != nil {
			handled, herr := it.propagateOrHandle(th, frame, err)
			if herr != nil {
				return nil, herr
			}
			if handled {
				continue
			}
			return nil, herr
		}
		if done {
			return ret, nil
		}
	}
}

// propagateOrHandle turns err into a live exception object (if it
// isn't one already), searches frame's exception table for a matching
// handler, and either rewrites frame.PC to the handler and reports
// handled=true, or wraps the exception for the caller to keep
// propagating.
func (it *Interp) propagateOrHandle(th *thread.Thread, frame *frames.JavaFrame, err error) (bool, error) {
	var ref types.HeapRef
	switch e := err.(type) {
	case *ThrownException:
		ref = e.Ref
	case *classloader.LinkError:
		mref, merr := it.materialize(th, e)
		if merr != nil {
			return false, merr
		}
		ref = mref
	default:
		return false, err // VM-fatal, not a Java exception
	}

	excClassId := it.heap().ClassIdOf(ref)
	handlerPc := it.catchHandlerFor(frame, excClassId)
	if handlerPc < 0 {
		return false, &ThrownException{Ref: ref}
	}
	frame.ClearStack()
	frame.PC = handlerPc
	frame.Push(types.Ref(ref))
	return true, nil
}

// step decodes and executes a single instruction at frame.PC,
// returning (returnValue, true, nil) on a return opcode, (nil, false,
// nil) to continue, or a non-nil error for a thrown/VM-fatal
// condition.
func (it *Interp) step(th *thread.Thread, frame *frames.JavaFrame) (*types.Value, bool, error) {
	op := frame.ReadU8()

	switch op {
	case opcodes.Nop:
		return nil, false, nil

	case opcodes.AconstNull:
		frame.Push(types.Null())
	case opcodes.IconstM1, opcodes.Iconst0, opcodes.Iconst1, opcodes.Iconst2, opcodes.Iconst3, opcodes.Iconst4, opcodes.Iconst5:
		frame.Push(types.Integer(int32(op) - int32(opcodes.Iconst0)))
	case opcodes.Lconst0, opcodes.Lconst1:
		frame.Push(types.Long(int64(op) - int64(opcodes.Lconst0)))
	case opcodes.Fconst0, opcodes.Fconst1, opcodes.Fconst2:
		frame.Push(types.Float(float32(op) - float32(opcodes.Fconst0)))
	case opcodes.Dconst0, opcodes.Dconst1:
		frame.Push(types.Double(float64(op) - float64(opcodes.Dconst0)))
	case opcodes.Bipush:
		frame.Push(types.Integer(int32(frame.ReadI8())))
	case opcodes.Sipush:
		frame.Push(types.Integer(int32(frame.ReadI16())))
	case opcodes.Ldc:
		return nil, false, it.execLdc(frame, uint16(frame.ReadU8()))
	case opcodes.LdcW, opcodes.Ldc2W:
		return nil, false, it.execLdc(frame, frame.ReadU16())

	case opcodes.Iload, opcodes.Lload, opcodes.Fload, opcodes.Dload, opcodes.Aload:
		frame.Push(frame.GetLocal(int(frame.ReadU8())))
	case opcodes.Iload0, opcodes.Iload1, opcodes.Iload2, opcodes.Iload3:
		frame.Push(frame.GetLocal(int(op - opcodes.Iload0)))
	case opcodes.Lload0, opcodes.Lload1, opcodes.Lload2, opcodes.Lload3:
		frame.Push(frame.GetLocal(int(op - opcodes.Lload0)))
	case opcodes.Fload0, opcodes.Fload1, opcodes.Fload2, opcodes.Fload3:
		frame.Push(frame.GetLocal(int(op - opcodes.Fload0)))
	case opcodes.Dload0, opcodes.Dload1, opcodes.Dload2, opcodes.Dload3:
		frame.Push(frame.GetLocal(int(op - opcodes.Dload0)))
	case opcodes.Aload0, opcodes.Aload1, opcodes.Aload2, opcodes.Aload3:
		frame.Push(frame.GetLocal(int(op - opcodes.Aload0)))

	case opcodes.Istore, opcodes.Lstore, opcodes.Fstore, opcodes.Dstore, opcodes.Astore:
		frame.SetLocal(int(frame.ReadU8()), frame.Pop())
	case opcodes.Istore0, opcodes.Istore1, opcodes.Istore2, opcodes.Istore3:
		frame.SetLocal(int(op-opcodes.Istore0), frame.Pop())
	case opcodes.Lstore0, opcodes.Lstore1, opcodes.Lstore2, opcodes.Lstore3:
		frame.SetLocal(int(op-opcodes.Lstore0), frame.Pop())
	case opcodes.Fstore0, opcodes.Fstore1, opcodes.Fstore2, opcodes.Fstore3:
		frame.SetLocal(int(op-opcodes.Fstore0), frame.Pop())
	case opcodes.Dstore0, opcodes.Dstore1, opcodes.Dstore2, opcodes.Dstore3:
		frame.SetLocal(int(op-opcodes.Dstore0), frame.Pop())
	case opcodes.Astore0, opcodes.Astore1, opcodes.Astore2, opcodes.Astore3:
		frame.SetLocal(int(op-opcodes.Astore0), frame.Pop())

	case opcodes.Iaload, opcodes.Laload, opcodes.Faload, opcodes.Daload, opcodes.Aaload, opcodes.Baload, opcodes.Caload, opcodes.Saload:
		return nil, false, it.execArrayLoad(frame, op)
	case opcodes.Iastore, opcodes.Lastore, opcodes.Fastore, opcodes.Dastore, opcodes.Aastore, opcodes.Bastore, opcodes.Castore, opcodes.Sastore:
		return nil, false, it.execArrayStore(frame, op)

	case opcodes.Pop:
		frame.Pop()
	case opcodes.Pop2:
		frame.Pop()
		frame.Pop()
	case opcodes.Dup:
		v := frame.Peek()
		frame.Push(v)
	case opcodes.DupX1:
		v1, v2 := frame.Pop(), frame.Pop()
		frame.Push(v1)
		frame.Push(v2)
		frame.Push(v1)
	case opcodes.DupX2:
		v1, v2, v3 := frame.Pop(), frame.Pop(), frame.Pop()
		frame.Push(v1)
		frame.Push(v3)
		frame.Push(v2)
		frame.Push(v1)
	case opcodes.Dup2:
		v1, v2 := frame.Pop(), frame.Pop()
		frame.Push(v2)
		frame.Push(v1)
		frame.Push(v2)
		frame.Push(v1)
	case opcodes.Dup2X1:
		v1, v2, v3 := frame.Pop(), frame.Pop(), frame.Pop()
		frame.Push(v2)
		frame.Push(v1)
		frame.Push(v3)
		frame.Push(v2)
		frame.Push(v1)
	case opcodes.Dup2X2:
		v1, v2, v3, v4 := frame.Pop(), frame.Pop(), frame.Pop(), frame.Pop()
		frame.Push(v2)
		frame.Push(v1)
		frame.Push(v4)
		frame.Push(v3)
		frame.Push(v2)
		frame.Push(v1)
	case opcodes.Swap:
		v1, v2 := frame.Pop(), frame.Pop()
		frame.Push(v1)
		frame.Push(v2)

	case opcodes.Iadd, opcodes.Isub, opcodes.Imul, opcodes.Idiv, opcodes.Irem,
		opcodes.Iand, opcodes.Ior, opcodes.Ixor, opcodes.Ishl, opcodes.Ishr, opcodes.Iushr:
		return nil, false, it.execIntBinop(frame, op)
	case opcodes.Ladd, opcodes.Lsub, opcodes.Lmul, opcodes.Ldiv, opcodes.Lrem,
		opcodes.Land, opcodes.Lor, opcodes.Lxor, opcodes.Lshl, opcodes.Lshr, opcodes.Lushr:
		return nil, false, it.execLongBinop(frame, op)
	case opcodes.Fadd, opcodes.Fsub, opcodes.Fmul, opcodes.Fdiv, opcodes.Frem:
		execFloatBinop(frame, op)
	case opcodes.Dadd, opcodes.Dsub, opcodes.Dmul, opcodes.Ddiv, opcodes.Drem:
		execDoubleBinop(frame, op)
	case opcodes.Ineg:
		v := frame.Pop()
		frame.Push(types.Integer(-v.I))
	case opcodes.Lneg:
		v := frame.Pop()
		frame.Push(types.Long(-v.L))
	case opcodes.Fneg:
		v := frame.Pop()
		frame.Push(types.Float(-v.F))
	case opcodes.Dneg:
		v := frame.Pop()
		frame.Push(types.Double(-v.D))
	case opcodes.Iinc:
		idx := int(frame.ReadU8())
		delta := int32(frame.ReadI8())
		cur := frame.GetLocal(idx)
		frame.SetLocal(idx, types.Integer(cur.I+delta))

	case opcodes.I2l:
		v := frame.Pop()
		frame.Push(types.Long(int64(v.I)))
	case opcodes.I2f:
		v := frame.Pop()
		frame.Push(types.Float(float32(v.I)))
	case opcodes.I2d:
		v := frame.Pop()
		frame.Push(types.Double(float64(v.I)))
	case opcodes.L2i:
		v := frame.Pop()
		frame.Push(types.Integer(int32(v.L)))
	case opcodes.L2f:
		v := frame.Pop()
		frame.Push(types.Float(float32(v.L)))
	case opcodes.L2d:
		v := frame.Pop()
		frame.Push(types.Double(float64(v.L)))
	case opcodes.F2i:
		v := frame.Pop()
		frame.Push(types.Integer(f2i(v.F)))
	case opcodes.F2l:
		v := frame.Pop()
		frame.Push(types.Long(f2l(v.F)))
	case opcodes.F2d:
		v := frame.Pop()
		frame.Push(types.Double(float64(v.F)))
	case opcodes.D2i:
		v := frame.Pop()
		frame.Push(types.Integer(d2i(v.D)))
	case opcodes.D2l:
		v := frame.Pop()
		frame.Push(types.Long(d2l(v.D)))
	case opcodes.D2f:
		v := frame.Pop()
		frame.Push(types.Float(float32(v.D)))
	case opcodes.I2b:
		v := frame.Pop()
		frame.Push(types.Integer(int32(int8(v.I))))
	case opcodes.I2c:
		v := frame.Pop()
		frame.Push(types.Integer(int32(uint16(v.I))))
	case opcodes.I2s:
		v := frame.Pop()
		frame.Push(types.Integer(int32(int16(v.I))))

	case opcodes.Lcmp:
		b, a := frame.Pop(), frame.Pop()
		frame.Push(types.Integer(cmp64(a.L, b.L)))
	case opcodes.Fcmpl:
		b, a := frame.Pop(), frame.Pop()
		frame.Push(types.Integer(fcmp(a.F, b.F, -1)))
	case opcodes.Fcmpg:
		b, a := frame.Pop(), frame.Pop()
		frame.Push(types.Integer(fcmp(a.F, b.F, 1)))
	case opcodes.Dcmpl:
		b, a := frame.Pop(), frame.Pop()
		frame.Push(types.Integer(dcmp(a.D, b.D, -1)))
	case opcodes.Dcmpg:
		b, a := frame.Pop(), frame.Pop()
		frame.Push(types.Integer(dcmp(a.D, b.D, 1)))

	case opcodes.Ifeq, opcodes.Ifne, opcodes.Iflt, opcodes.Ifge, opcodes.Ifgt, opcodes.Ifle:
		execIfCmp0(frame, op)
	case opcodes.IfIcmpeq, opcodes.IfIcmpne, opcodes.IfIcmplt, opcodes.IfIcmpge, opcodes.IfIcmpgt, opcodes.IfIcmple:
		execIfICmp(frame, op)
	case opcodes.IfAcmpeq, opcodes.IfAcmpne:
		execIfACmp(frame, op)
	case opcodes.Ifnull, opcodes.Ifnonnull:
		execIfNull(frame, op)
	case opcodes.Goto:
		off := int(frame.ReadI16())
		frame.PC = branchTarget(frame.PC, 2, off)
	case opcodes.GotoW:
		off := int(frame.ReadI32())
		frame.PC = branchTarget(frame.PC, 4, off)
	case opcodes.Tableswitch:
		execTableswitch(frame)
	case opcodes.Lookupswitch:
		execLookupswitch(frame)
	case opcodes.Jsr, opcodes.JsrW, opcodes.Ret:
		shutdown.Fatalf("jsr/ret subroutine opcodes are not supported: modern classfiles never emit them")

	case opcodes.Ireturn:
		v := frame.Pop()
		return &v, true, nil
	case opcodes.Lreturn:
		v := frame.Pop()
		return &v, true, nil
	case opcodes.Freturn:
		v := frame.Pop()
		return &v, true, nil
	case opcodes.Dreturn:
		v := frame.Pop()
		return &v, true, nil
	case opcodes.Areturn:
		v := frame.Pop()
		return &v, true, nil
	case opcodes.Return:
		return nil, true, nil

	case opcodes.Getstatic:
		return nil, false, it.execGetstatic(th, frame)
	case opcodes.Putstatic:
		return nil, false, it.execPutstatic(th, frame)
	case opcodes.Getfield:
		return nil, false, it.execGetfield(frame)
	case opcodes.Putfield:
		return nil, false, it.execPutfield(frame)

	case opcodes.Invokevirtual:
		return nil, false, it.execInvokevirtual(th, frame)
	case opcodes.Invokespecial:
		return nil, false, it.execInvokespecial(th, frame)
	case opcodes.Invokestatic:
		return nil, false, it.execInvokestatic(th, frame)
	case opcodes.Invokeinterface:
		return nil, false, it.execInvokeinterface(th, frame)
	case opcodes.Invokedynamic:
		shutdown.Fatalf("invokedynamic is not supported")

	case opcodes.New:
		return nil, false, it.execNew(th, frame)
	case opcodes.Newarray:
		atype := frame.ReadU8()
		n := frame.Pop()
		ref, err := it.newPrimitiveArray(atype, n.I)
		if err != nil {
			return nil, false, err
		}
		frame.Push(types.Ref(ref))
	case opcodes.Anewarray:
		return nil, false, it.execAnewarray(frame)
	case opcodes.Arraylength:
		ref := frame.Pop()
		if ref.IsNull() {
			return nil, false, raiseSimple(excNames.NullPointerException, "")
		}
		frame.Push(types.Integer(it.heap().ArrayLength(ref.Ref)))
	case opcodes.Athrow:
		v := frame.Pop()
		if v.IsNull() {
			return nil, false, raiseSimple(excNames.NullPointerException, "")
		}
		return nil, false, &ThrownException{Ref: v.Ref}
	case opcodes.Checkcast:
		return nil, false, it.execCheckcast(frame)
	case opcodes.Instanceof:
		return nil, false, it.execInstanceof(frame)
	case opcodes.Monitorenter, opcodes.Monitorexit:
		frame.Pop() // single-threaded VM: monitors are no-ops

	case opcodes.Wide:
		return nil, false, it.execWide(frame)
	case opcodes.Multianewarray:
		return nil, false, it.execMultianewarray(frame)

	default:
		shutdown.Fatalf("unsupported opcode 0x%02x at pc=%d", op, frame.PC-1)
	}

	return nil, false, nil
}

func branchTarget(pcAfterOpcode int, operandWidth int, offset int) int {
	return pcAfterOpcode - 1 - operandWidth + offset
}

func execIfCmp0(frame *frames.JavaFrame, op uint8) {
	off := int(frame.ReadI16())
	v := frame.Pop().I
	taken := false
	switch op {
	case opcodes.Ifeq:
		taken = v == 0
	case opcodes.Ifne:
		taken = v != 0
	case opcodes.Iflt:
		taken = v < 0
	case opcodes.Ifge:
		taken = v >= 0
	case opcodes.Ifgt:
		taken = v > 0
	case opcodes.Ifle:
		taken = v <= 0
	}
	if taken {
		frame.PC = branchTarget(frame.PC, 2, off)
	}
}

func execIfICmp(frame *frames.JavaFrame, op uint8) {
	off := int(frame.ReadI16())
	b, a := frame.Pop().I, frame.Pop().I
	taken := false
	switch op {
	case opcodes.IfIcmpeq:
		taken = a == b
	case opcodes.IfIcmpne:
		taken = a != b
	case opcodes.IfIcmplt:
		taken = a < b
	case opcodes.IfIcmpge:
		taken = a >= b
	case opcodes.IfIcmpgt:
		taken = a > b
	case opcodes.IfIcmple:
		taken = a <= b
	}
	if taken {
		frame.PC = branchTarget(frame.PC, 2, off)
	}
}

func execIfACmp(frame *frames.JavaFrame, op uint8) {
	off := int(frame.ReadI16())
	b, a := frame.Pop(), frame.Pop()
	eq := a.Ref == b.Ref && a.IsNull() == b.IsNull()
	taken := eq
	if op == opcodes.IfAcmpne {
		taken = !eq
	}
	if taken {
		frame.PC = branchTarget(frame.PC, 2, off)
	}
}

func execIfNull(frame *frames.JavaFrame, op uint8) {
	off := int(frame.ReadI16())
	v := frame.Pop()
	taken := v.IsNull()
	if op == opcodes.Ifnonnull {
		taken = !taken
	}
	if taken {
		frame.PC = branchTarget(frame.PC, 2, off)
	}
}

// execTableswitch reads the tableswitch operands directly off
// frame.Code at frame.PC, since its padding-to-4-byte-alignment shape
// doesn't fit the fixed-width Read* helpers.
func execTableswitch(frame *frames.JavaFrame) {
	opcodePc := frame.PC - 1
	pad := (4 - (frame.PC % 4)) % 4
	frame.PC += pad
	def := frame.ReadI32()
	low := frame.ReadI32()
	high := frame.ReadI32()
	key := frame.Pop().I

	if key < low || key > high {
		frame.PC = opcodePc + int(def)
		return
	}
	frame.PC += int(key-low) * 4
	offset := frame.ReadI32()
	frame.PC = opcodePc + int(offset)
}

func execLookupswitch(frame *frames.JavaFrame) {
	opcodePc := frame.PC - 1
	pad := (4 - (frame.PC % 4)) % 4
	frame.PC += pad
	def := frame.ReadI32()
	n := frame.ReadI32()
	key := frame.Pop().I

	target := opcodePc + int(def)
	for i := int32(0); i < n; i++ {
		matchVal := frame.ReadI32()
		offset := frame.ReadI32()
		if matchVal == key {
			target = opcodePc + int(offset)
		}
	}
	frame.PC = target
}

func cmp64(a, b int64) int32 {
	switch {
	case a > b:
		return 1
	case a < b:
		return -1
	default:
		return 0
	}
}

// fcmp implements fcmpl/fcmpg: nanResult is the value to push when
// either operand is NaN (-1 for fcmpl, 1 for fcmpg).
func fcmp(a, b float32, nanResult int32) int32 {
	if math.IsNaN(float64(a)) || math.IsNaN(float64(b)) {
		return nanResult
	}
	switch {
	case a > b:
		return 1
	case a < b:
		return -1
	default:
		return 0
	}
}

func dcmp(a, b float64, nanResult int32) int32 {
	if math.IsNaN(a) || math.IsNaN(b) {
		return nanResult
	}
	switch {
	case a > b:
		return 1
	case a < b:
		return -1
	default:
		return 0
	}
}

// f2i/f2l/d2i/d2l follow JLS 5.1.3's narrowing-conversion rule for
// NaN (-> 0) and out-of-range values (-> MinValue/MaxValue), which
// differs from Go's overflow-wraps float-to-int conversion.
func f2i(f float32) int32 {
	if math.IsNaN(float64(f)) {
		return 0
	}
	d := float64(f)
	if d >= math.MaxInt32 {
		return math.MaxInt32
	}
	if d <= math.MinInt32 {
		return math.MinInt32
	}
	return int32(d)
}

func f2l(f float32) int64 {
	if math.IsNaN(float64(f)) {
		return 0
	}
	d := float64(f)
	if d >= math.MaxInt64 {
		return math.MaxInt64
	}
	if d <= math.MinInt64 {
		return math.MinInt64
	}
	return int64(d)
}

func d2i(d float64) int32 {
	if math.IsNaN(d) {
		return 0
	}
	if d >= math.MaxInt32 {
		return math.MaxInt32
	}
	if d <= math.MinInt32 {
		return math.MinInt32
	}
	return int32(d)
}

func d2l(d float64) int64 {
	if math.IsNaN(d) {
		return 0
	}
	if d >= math.MaxInt64 {
		return math.MaxInt64
	}
	if d <= math.MinInt64 {
		return math.MinInt64
	}
	return int64(d)
}

func execFloatBinop(frame *frames.JavaFrame, op uint8) {
	b, a := frame.Pop().F, frame.Pop().F
	var r float32
	switch op {
	case opcodes.Fadd:
		r = a + b
	case opcodes.Fsub:
		r = a - b
	case opcodes.Fmul:
		r = a * b
	case opcodes.Fdiv:
		r = a / b
	case opcodes.Frem:
		r = float32(math.Mod(float64(a), float64(b)))
	}
	frame.Push(types.Float(r))
}

func execDoubleBinop(frame *frames.JavaFrame, op uint8) {
	b, a := frame.Pop().D, frame.Pop().D
	var r float64
	switch op {
	case opcodes.Dadd:
		r = a + b
	case opcodes.Dsub:
		r = a - b
	case opcodes.Dmul:
		r = a * b
	case opcodes.Ddiv:
		r = a / b
	case opcodes.Drem:
		r = math.Mod(a, b)
	}
	frame.Push(types.Double(r))
}

func (it *Interp) execIntBinop(frame *frames.JavaFrame, op uint8) error {
	b, a := frame.Pop().I, frame.Pop().I
	var r int32
	switch op {
	case opcodes.Iadd:
		r = a + b
	case opcodes.Isub:
		r = a - b
	case opcodes.Imul:
		r = a * b
	case opcodes.Idiv:
		if b == 0 {
			return raiseSimple(excNames.ArithmeticException, "/ by zero")
		}
		if a == math.MinInt32 && b == -1 {
			r = a // JLS 15.17.2: overflow wraps rather than traps
		} else {
			r = a / b
		}
	case opcodes.Irem:
		if b == 0 {
			return raiseSimple(excNames.ArithmeticException, "/ by zero")
		}
		if a == math.MinInt32 && b == -1 {
			r = 0
		} else {
			r = a % b
		}
	case opcodes.Iand:
		r = a & b
	case opcodes.Ior:
		r = a | b
	case opcodes.Ixor:
		r = a ^ b
	case opcodes.Ishl:
		r = a << (uint32(b) & 0x1F)
	case opcodes.Ishr:
		r = a >> (uint32(b) & 0x1F)
	case opcodes.Iushr:
		r = int32(uint32(a) >> (uint32(b) & 0x1F))
	}
	frame.Push(types.Integer(r))
	return nil
}

func (it *Interp) execLongBinop(frame *frames.JavaFrame, op uint8) error {
	var b, a int64
	// Shift opcodes take an int (not long) shift-count operand.
	if op == opcodes.Lshl || op == opcodes.Lshr || op == opcodes.Lushr {
		shiftCount := frame.Pop().I
		a = frame.Pop().L
		var r int64
		switch op {
		case opcodes.Lshl:
			r = a << (uint64(shiftCount) & 0x3F)
		case opcodes.Lshr:
			r = a >> (uint64(shiftCount) & 0x3F)
		case opcodes.Lushr:
			r = int64(uint64(a) >> (uint64(shiftCount) & 0x3F))
		}
		frame.Push(types.Long(r))
		return nil
	}
	b, a = frame.Pop().L, frame.Pop().L
	var r int64
	switch op {
	case opcodes.Ladd:
		r = a + b
	case opcodes.Lsub:
		r = a - b
	case opcodes.Lmul:
		r = a * b
	case opcodes.Ldiv:
		if b == 0 {
			return raiseSimple(excNames.ArithmeticException, "/ by zero")
		}
		if a == math.MinInt64 && b == -1 {
			r = a
		} else {
			r = a / b
		}
	case opcodes.Lrem:
		if b == 0 {
			return raiseSimple(excNames.ArithmeticException, "/ by zero")
		}
		if a == math.MinInt64 && b == -1 {
			r = 0
		} else {
			r = a % b
		}
	case opcodes.Land:
		r = a & b
	case opcodes.Lor:
		r = a | b
	case opcodes.Lxor:
		r = a ^ b
	}
	frame.Push(types.Long(r))
	return nil
}

// arrayElemType maps the six typed array-access opcode families to the
// heap.FieldType used to size/tag the read or write.
func arrayElemType(op uint8) heap.FieldType {
	switch op {
	case opcodes.Iaload, opcodes.Iastore:
		return heap.FieldInt
	case opcodes.Laload, opcodes.Lastore:
		return heap.FieldLong
	case opcodes.Faload, opcodes.Fastore:
		return heap.FieldFloat
	case opcodes.Daload, opcodes.Dastore:
		return heap.FieldDouble
	case opcodes.Aaload, opcodes.Aastore:
		return heap.FieldRef
	case opcodes.Baload, opcodes.Bastore:
		return heap.FieldByte
	case opcodes.Caload, opcodes.Castore:
		return heap.FieldChar
	default: // Saload, Sastore
		return heap.FieldShort
	}
}

func (it *Interp) execArrayLoad(frame *frames.JavaFrame, op uint8) error {
	idx := frame.Pop().I
	ref := frame.Pop()
	if ref.IsNull() {
		return raiseSimple(excNames.NullPointerException, "")
	}
	v, err := it.heap().ReadArrayElement(ref.Ref, idx, arrayElemType(op))
	if err != nil {
		return raise(excNames.ArrayIndexOutOfBoundsException, "index %d out of bounds for length %d", idx, it.heap().ArrayLength(ref.Ref))
	}
	frame.Push(v)
	return nil
}

func (it *Interp) execArrayStore(frame *frames.JavaFrame, op uint8) error {
	v := frame.Pop()
	idx := frame.Pop().I
	ref := frame.Pop()
	if ref.IsNull() {
		return raiseSimple(excNames.NullPointerException, "")
	}
	if err := it.heap().WriteArrayElement(ref.Ref, idx, arrayElemType(op), v); err != nil {
		return raise(excNames.ArrayIndexOutOfBoundsException, "index %d out of bounds for length %d", idx, it.heap().ArrayLength(ref.Ref))
	}
	return nil
}
