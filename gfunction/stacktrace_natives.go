/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-4 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package gfunction

import (
	"jacobin/vm2/classloader"
	"jacobin/vm2/interner"
	"jacobin/vm2/thread"
	"jacobin/vm2/types"
)

// LoadLangStackTraceElement installs initStackTraceElements, the
// native java.lang.StackTraceElement calls to fill in a throwable's
// stack trace elements.
func LoadLangStackTraceElement(r *Registry, in *interner.Interner) {
	classSym := in.Intern("java/lang/StackTraceElement")
	r.Preregister(Key{Class: classSym, Name: in.Intern("initStackTraceElements"),
		Desc: in.Intern("([Ljava/lang/StackTraceElement;Ljava/lang/Throwable;I)V")},
		Func{ParamCount: 3, Call: initStackTraceElements})
}

// initStackTraceElements walks the calling thread's frame stack,
// innermost first, skipping native frames, and looks up each Java
// frame's Method. It writes nothing into the StackTraceElement array
// it is given, so the elements keep their default field values.
func initStackTraceElements(ma *classloader.MethodArea, th *thread.Thread, args []types.Value) (*types.Value, error) {
	frames := th.Frames()
	for i := len(frames) - 1; i >= 0; i-- {
		f := frames[i]
		if f.IsNative() {
			continue
		}
		_ = ma.MethodByID(f.MethodID()) // each frame's owning Method; the result is not used
	}
	return nil, nil
}
