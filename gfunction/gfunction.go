/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-4 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package gfunction

import "jacobin/vm2/interner"

// NewStandardRegistry builds a Registry with every JDK native this VM
// implements preregistered or staged, the one-stop entry point the
// boot sequence calls before loading the user's main class. Each
// Load_* function owns exactly one JDK class's natives, one file per
// class.
func NewStandardRegistry(in *interner.Interner) *Registry {
	r := New(in)

	LoadLangObject(r, in)
	LoadLangSystem(r, in)
	LoadLangThrowable(r, in)
	LoadLangThread(r, in)
	LoadLangFloat(r, in)
	LoadLangDouble(r, in)
	LoadLangRuntime(r, in)
	LoadLangString(r, in)
	LoadLangStackTraceElement(r, in)
	LoadLangRefReference(r, in)
	LoadMiscUnsafe(r, in)

	return r
}
