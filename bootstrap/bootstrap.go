/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-4 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package bootstrap pre-interns the symbols and field/method keys of
// well-known JDK classes at VM start, so hot-path lookups never pay
// interning cost.
package bootstrap

import (
	"jacobin/vm2/interner"
	"jacobin/vm2/types"
)

// Names of the classes the boot sequence loads eagerly.
const (
	Object       = "java/lang/Object"
	Class        = "java/lang/Class"
	Throwable    = "java/lang/Throwable"
	SystemClass  = "java/lang/System"
	Thread       = "java/lang/Thread"
	ThreadGroup  = "java/lang/ThreadGroup"
	StringClass  = "java/lang/String"
	ByteArray    = "[B"
	CharArray    = "[C"
)

// Registry holds pre-interned symbols and pre-built keys for the
// bootstrap classes, plus the ClassId each resolves to once the
// method area has loaded them (filled in by the boot sequence, not by
// New itself -- the registry only owns the lookup scaffolding).
type Registry struct {
	in *interner.Interner

	ObjectSym      types.Symbol
	ClassSym       types.Symbol
	ThrowableSym   types.Symbol
	SystemSym      types.Symbol
	ThreadSym      types.Symbol
	ThreadGroupSym types.Symbol
	StringSym      types.Symbol
	ByteArraySym   types.Symbol
	CharArraySym   types.Symbol

	InitName    types.Symbol // "<init>"
	ClinitName  types.Symbol // "<clinit>"
	VoidNoArgs  types.Symbol // "()V"
	MainDesc    types.Symbol // "([Ljava/lang/String;)V"

	InitKey types.MethodKey // (<init>, ()V)

	// ResolvedClasses maps a bootstrap class name constant to the
	// ClassId the method area assigned it, once loaded. Populated by
	// the boot sequence after each eager load.
	ResolvedClasses map[string]types.ClassId
}

// New pre-interns every bootstrap symbol and key against in.
func New(in *interner.Interner) *Registry {
	r := &Registry{
		in:              in,
		ResolvedClasses: make(map[string]types.ClassId),
	}
	r.ObjectSym = in.Intern(Object)
	r.ClassSym = in.Intern(Class)
	r.ThrowableSym = in.Intern(Throwable)
	r.SystemSym = in.Intern(SystemClass)
	r.ThreadSym = in.Intern(Thread)
	r.ThreadGroupSym = in.Intern(ThreadGroup)
	r.StringSym = in.Intern(StringClass)
	r.ByteArraySym = in.Intern(ByteArray)
	r.CharArraySym = in.Intern(CharArray)

	r.InitName = in.Intern("<init>")
	r.ClinitName = in.Intern("<clinit>")
	r.VoidNoArgs = in.Intern("()V")
	r.MainDesc = in.Intern("([Ljava/lang/String;)V")

	r.InitKey = types.MethodKey{Name: r.InitName, Desc: r.VoidNoArgs}
	return r
}

// RecordResolved records the ClassId a bootstrap class name resolved
// to.
func (r *Registry) RecordResolved(name string, id types.ClassId) {
	r.ResolvedClasses[name] = id
}

// Resolved returns the ClassId recorded for a bootstrap class name,
// or 0 if it hasn't been loaded yet.
func (r *Registry) Resolved(name string) types.ClassId {
	return r.ResolvedClasses[name]
}

// EagerClasses is the ordered list of classes the boot sequence loads
// before the main class.
var EagerClasses = []string{
	Object, Class, Throwable, SystemClass, Thread, ThreadGroup, StringClass, ByteArray,
}
