/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-4 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package gfunction is the native method registry: a process-wide
// table mapping (class, method, descriptor) symbol triples to
// host-implemented functions. It keeps the classic "MethodSignatures
// map + Load_* registration function per JDK class" shape, generalized
// from a single fully-qualified-signature string key to the
// Symbol-triple key the rest of this VM uses, and rebuilt to operate
// on heap.Heap/types.Value instead of interface{}/*object.Object.
package gfunction

import (
	"sync"

	"jacobin/vm2/classloader"
	"jacobin/vm2/interner"
	"jacobin/vm2/thread"
	"jacobin/vm2/types"
)

// Key identifies one native method: its declaring class, name, and
// descriptor, all interned symbols so lookup is a map hit, not a
// string compare. Class is cleared to types.NoSymbol for the array
// -clone sentinel entry.
type Key struct {
	Class types.Symbol
	Name  types.Symbol
	Desc  types.Symbol
}

// Func is a native method's host implementation. A nil return means a
// void method; ParamCount tells the caller how many operand-stack
// cells (including the receiver, for instance natives) to pop before
// calling.
type Func struct {
	ParamCount int
	Call       func(ma *classloader.MethodArea, th *thread.Thread, args []types.Value) (*types.Value, error)
}

// Registry holds the preregistered natives (active from VM start) and
// the registrable ones (staged until their owning class's
// registerNatives() is first invoked).
type Registry struct {
	mu sync.RWMutex

	in *interner.Interner

	active      map[Key]Func
	registrable map[types.Symbol]map[Key]Func // keyed by owning class symbol
	installed   map[types.Symbol]bool
}

// New creates an empty registry bound to in, the interner every Key's
// symbols are drawn from.
func New(in *interner.Interner) *Registry {
	return &Registry{
		in:          in,
		active:      make(map[Key]Func),
		registrable: make(map[types.Symbol]map[Key]Func),
		installed:   make(map[types.Symbol]bool),
	}
}

// Preregister installs fn as active immediately.
func (r *Registry) Preregister(key Key, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active[key] = fn
}

// Registrable stages fn under its owning class, to be activated the
// first time that class's registerNatives() runs.
func (r *Registry) Registrable(key Key, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.registrable[key.Class]
	if !ok {
		m = make(map[Key]Func)
		r.registrable[key.Class] = m
	}
	m[key] = fn
}

// InstallRegistrable activates every staged native for classSym, the
// effect of that class's registerNatives() running. Idempotent.
func (r *Registry) InstallRegistrable(classSym types.Symbol) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.installed[classSym] {
		return
	}
	r.installed[classSym] = true
	for k, fn := range r.registrable[classSym] {
		r.active[k] = fn
	}
}

// Lookup resolves key to its Func. For an instance "clone" native
// that has no entry under its own class, it retries with Class
// cleared to types.NoSymbol -- the sentinel a single Object.clone
// implementation is registered under to service every array type.
func (r *Registry) Lookup(key Key, cloneName types.Symbol) (Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if fn, ok := r.active[key]; ok {
		return fn, true
	}
	if key.Name == cloneName {
		sentinel := Key{Class: types.NoSymbol, Name: key.Name, Desc: key.Desc}
		if fn, ok := r.active[sentinel]; ok {
			return fn, true
		}
	}
	return Func{}, false
}
