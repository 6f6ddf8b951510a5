/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-4 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package frames implements the two frame shapes the interpreter
// pushes onto a thread's call stack: a Java frame (bytecode, operand
// stack, locals, exception table) and a native frame (bookkeeping for
// a call into the native registry).
package frames

import (
	"jacobin/vm2/classfile"
	"jacobin/vm2/shutdown"
	"jacobin/vm2/types"
)

// Frame is implemented by both JavaFrame and NativeFrame so a thread's
// call stack can hold either without a type switch at every push/pop.
type Frame interface {
	MethodID() types.MethodId
	IsNative() bool
}

// JavaFrame is one activation of a Java method: PC into its bytecode,
// a bounded operand stack, its locals array, and the exception table
// the interpreter walks on a thrown exception.
type JavaFrame struct {
	Method     types.MethodId
	Class      types.ClassId
	PC         int
	Code       []byte
	Locals     []types.Value
	Exceptions []classfile.ExceptionTableEntry

	stack []types.Value
	sp    int
}

// NewJavaFrame allocates a frame with maxLocals locals and a maxStack
// capacity operand stack, per the method's Code attribute.
func NewJavaFrame(method types.MethodId, class types.ClassId, code []byte, maxLocals, maxStack uint16, exceptions []classfile.ExceptionTableEntry) *JavaFrame {
	return &JavaFrame{
		Method:     method,
		Class:      class,
		Code:       code,
		Locals:     make([]types.Value, maxLocals),
		Exceptions: exceptions,
		stack:      make([]types.Value, maxStack),
	}
}

func (f *JavaFrame) MethodID() types.MethodId { return f.Method }
func (f *JavaFrame) IsNative() bool           { return false }

// Push pushes v onto the operand stack. A class that passed
// verification never overflows its declared max_stack; a frame that
// does indicates a corrupt frame or a bug in the interpreter, so this
// is VM-fatal rather than a recoverable Java exception.
func (f *JavaFrame) Push(v types.Value) {
	if f.sp >= len(f.stack) {
		shutdown.Fatalf("operand stack overflow: sp=%d max=%d", f.sp, len(f.stack))
	}
	f.stack[f.sp] = v
	f.sp++
}

// Pop pops and returns the top of the operand stack.
func (f *JavaFrame) Pop() types.Value {
	if f.sp <= 0 {
		shutdown.Fatalf("operand stack underflow")
	}
	f.sp--
	return f.stack[f.sp]
}

// Peek returns the top of the operand stack without popping it.
func (f *JavaFrame) Peek() types.Value {
	if f.sp <= 0 {
		shutdown.Fatalf("operand stack underflow on peek")
	}
	return f.stack[f.sp-1]
}

// StackDepth reports the current number of values on the operand
// stack, used by dup/swap family handlers to validate shape.
func (f *JavaFrame) StackDepth() int { return f.sp }

// ClearStack empties the operand stack, which a caught exception
// does at its handler: the JVM spec discards whatever the protected
// region left on the stack and starts the handler with just the
// exception reference pushed.
func (f *JavaFrame) ClearStack() { f.sp = 0 }

// GetLocal returns the local variable at index.
func (f *JavaFrame) GetLocal(index int) types.Value {
	if index < 0 || index >= len(f.Locals) {
		shutdown.Fatalf("local variable index out of range: index=%d max=%d", index, len(f.Locals))
	}
	return f.Locals[index]
}

// SetLocal sets the local variable at index.
func (f *JavaFrame) SetLocal(index int, v types.Value) {
	if index < 0 || index >= len(f.Locals) {
		shutdown.Fatalf("local variable index out of range: index=%d max=%d", index, len(f.Locals))
	}
	f.Locals[index] = v
}

// ReadU8 reads an unsigned operand byte and advances PC.
func (f *JavaFrame) ReadU8() uint8 {
	v := f.Code[f.PC]
	f.PC++
	return v
}

// ReadI8 reads a signed operand byte and advances PC.
func (f *JavaFrame) ReadI8() int8 {
	v := int8(f.Code[f.PC])
	f.PC++
	return v
}

// ReadU16 reads a big-endian unsigned 16-bit operand and advances PC
// by 2.
func (f *JavaFrame) ReadU16() uint16 {
	v := uint16(f.Code[f.PC])<<8 | uint16(f.Code[f.PC+1])
	f.PC += 2
	return v
}

// ReadI16 reads a big-endian signed 16-bit operand and advances PC by
// 2.
func (f *JavaFrame) ReadI16() int16 {
	return int16(f.ReadU16())
}

// ReadI32 reads a big-endian signed 32-bit operand (goto_w, jsr_w,
// invokedynamic padding) and advances PC by 4.
func (f *JavaFrame) ReadI32() int32 {
	v := uint32(f.Code[f.PC])<<24 | uint32(f.Code[f.PC+1])<<16 | uint32(f.Code[f.PC+2])<<8 | uint32(f.Code[f.PC+3])
	f.PC += 4
	return int32(v)
}

// HandlerFor returns the handler PC for an exception thrown at the
// current PC matching catchClass (0 = catch-all / finally), or -1 if
// the exception table has no matching entry in this frame.
func (f *JavaFrame) HandlerFor(pc int, matches func(catchType uint16) bool) int {
	for _, e := range f.Exceptions {
		if pc >= int(e.StartPc) && pc < int(e.EndPc) {
			if e.CatchType == 0 || matches(e.CatchType) {
				return int(e.HandlerPc)
			}
		}
	}
	return -1
}

// NativeFrame marks an activation of a registered native method; the
// interpreter pushes one while the gfunction registry runs the host
// function, so stack traces and recursive-call bookkeeping see a
// uniform frame stack.
type NativeFrame struct {
	Method types.MethodId
	Class  types.ClassId
}

func (f *NativeFrame) MethodID() types.MethodId { return f.Method }
func (f *NativeFrame) IsNative() bool           { return true }
