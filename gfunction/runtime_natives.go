/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-4 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package gfunction

import (
	"runtime"

	"jacobin/vm2/classloader"
	"jacobin/vm2/interner"
	"jacobin/vm2/thread"
	"jacobin/vm2/types"
)

// LoadLangRuntime installs java.lang.Runtime's maxMemory and
// availableProcessors, reporting the heap's configured capacity and
// the host's logical CPU count (runtime.NumCPU) respectively.
func LoadLangRuntime(r *Registry, in *interner.Interner) {
	classSym := in.Intern("java/lang/Runtime")

	r.Preregister(Key{Class: classSym, Name: in.Intern("maxMemory"), Desc: in.Intern("()J")},
		Func{ParamCount: 1, Call: runtimeMaxMemory})

	r.Preregister(Key{Class: classSym, Name: in.Intern("availableProcessors"), Desc: in.Intern("()I")},
		Func{ParamCount: 1, Call: runtimeAvailableProcessors})
}

func runtimeMaxMemory(ma *classloader.MethodArea, th *thread.Thread, args []types.Value) (*types.Value, error) {
	v := types.Long(ma.Heap().Capacity())
	return &v, nil
}

func runtimeAvailableProcessors(ma *classloader.MethodArea, th *thread.Thread, args []types.Value) (*types.Value, error) {
	v := types.Integer(int32(runtime.NumCPU()))
	return &v, nil
}
