/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-4 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package jvm is the interpreter: the per-thread bytecode dispatch
// loop, exception propagation, class initialization, and method
// invocation dispatch (virtual, special, static, interface) that ties
// the method area, heap, frame stack, and native registry together
// into a running program.
package jvm

import (
	"jacobin/vm2/bootstrap"
	"jacobin/vm2/classloader"
	"jacobin/vm2/gfunction"
	"jacobin/vm2/heap"
	"jacobin/vm2/types"
)

// Interp owns the collaborators every dispatch-loop call needs: the
// method area (classes, methods, descriptors), the native registry,
// and the class-byte provider used to load a class the interpreter
// references for the first time (an exception class not yet touched,
// an array's element class, ...). One Interp serves every thread the
// VM ever starts.
type Interp struct {
	MA       *classloader.MethodArea
	Natives  *gfunction.Registry
	Provider classloader.ClassByteProvider

	stringAllocOnce bool
	stringAlloc     heap.StringAllocator
}

// New builds an Interp over an already-booted method area and native
// registry, using provider to load any class referenced for the
// first time after boot.
func New(ma *classloader.MethodArea, natives *gfunction.Registry, provider classloader.ClassByteProvider) *Interp {
	return &Interp{MA: ma, Natives: natives, Provider: provider}
}

func (it *Interp) heap() *heap.Heap { return it.MA.Heap() }

// ThrownException is the Go-level carrier for a live Java exception
// that has propagated all the way out of interpreted code: a heap
// reference to the exception instance. It implements error only so
// it composes with ordinary Go error returns at package boundaries
// (main.go's top-level catch); nothing inspects its Error() string to
// decide control flow.
type ThrownException struct {
	Ref types.HeapRef
}

func (e *ThrownException) Error() string { return "uncaught java exception" }

// stringAllocator lazily resolves java.lang.String's instance layout,
// needed by every exception message and by ldc of a String constant.
func (it *Interp) stringAllocator() heap.StringAllocator {
	if it.stringAllocOnce {
		return it.stringAlloc
	}
	strId := it.MA.Bootstrap().Resolved(bootstrap.StringClass)
	byteArrId := it.MA.Bootstrap().Resolved(bootstrap.ByteArray)
	strClass := it.MA.ClassByID(strId)

	valueSym := it.MA.Interner().Intern("value")
	coderSym := it.MA.Interner().Intern("coder")
	valueOff, coderOff := 0, 0
	if f, ok := strClass.FieldsByName[valueSym]; ok {
		valueOff = f.Offset
	}
	if f, ok := strClass.FieldsByName[coderSym]; ok {
		coderOff = f.Offset
	}

	it.stringAlloc = heap.StringAllocator{
		StringClassId:    strId,
		StringValueOff:   valueOff,
		StringCoderOff:   coderOff,
		StringInstanceSz: strClass.InstanceSize,
		ByteArrayClassId: byteArrId,
	}
	it.stringAllocOnce = true
	return it.stringAlloc
}

func (it *Interp) allocString(s string) (types.HeapRef, error) {
	return it.heap().AllocStringFromStr(it.stringAllocator(), s, nil)
}

// AllocString exposes allocString to callers outside the package --
// the boot sequence needs it to turn the command-line's String[] args
// into real heap instances before calling Execute.
func (it *Interp) AllocString(s string) (types.HeapRef, error) {
	return it.allocString(s)
}
