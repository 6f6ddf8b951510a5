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

// LoadLangThrowable installs java.lang.Throwable's preregistered
// natives: registerNatives and fillInStackTrace, which returns the
// receiver without recording a backtrace.
func LoadLangThrowable(r *Registry, in *interner.Interner) {
	classSym := in.Intern("java/lang/Throwable")

	r.Preregister(Key{Class: classSym, Name: in.Intern("registerNatives"), Desc: in.Intern("()V")},
		Func{ParamCount: 0, Call: justReturn})

	r.Preregister(Key{Class: classSym, Name: in.Intern("fillInStackTrace"),
		Desc: in.Intern("(I)Ljava/lang/Throwable;")},
		Func{ParamCount: 2, Call: throwableFillInStackTrace})
}

// throwableFillInStackTrace returns the receiver unchanged and takes
// no snapshot of the frame stack; StackTraceElement's
// initStackTraceElements native does not record frames either.
func throwableFillInStackTrace(ma *classloader.MethodArea, th *thread.Thread, args []types.Value) (*types.Value, error) {
	receiver := args[0]
	return &receiver, nil
}
