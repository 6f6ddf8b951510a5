/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-4 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package gfunction

import (
	"time"

	"jacobin/vm2/classloader"
	"jacobin/vm2/interner"
	"jacobin/vm2/thread"
	"jacobin/vm2/types"
)

// LoadLangThread installs java.lang.Thread's preregistered natives:
// registerNatives, sleep, and currentThread. currentThread reports the
// calling *thread.Thread directly, since this VM's interpreter is
// single-threaded and always passes it in.
func LoadLangThread(r *Registry, in *interner.Interner) {
	classSym := in.Intern("java/lang/Thread")

	r.Preregister(Key{Class: classSym, Name: in.Intern("registerNatives"), Desc: in.Intern("()V")},
		Func{ParamCount: 0, Call: justReturn})

	r.Preregister(Key{Class: classSym, Name: in.Intern("sleep"), Desc: in.Intern("(J)V")},
		Func{ParamCount: 1, Call: threadSleep})

	r.Preregister(Key{Class: classSym, Name: in.Intern("currentThread"), Desc: in.Intern("()Ljava/lang/Thread;")},
		Func{ParamCount: 0, Call: threadCurrentThread})
}

func threadSleep(ma *classloader.MethodArea, th *thread.Thread, args []types.Value) (*types.Value, error) {
	time.Sleep(time.Duration(args[0].L) * time.Millisecond)
	return nil, nil
}

// threadCurrentThread returns the calling thread's own java.lang.Thread
// mirror, set once at thread creation by the boot sequence.
func threadCurrentThread(ma *classloader.MethodArea, th *thread.Thread, args []types.Value) (*types.Value, error) {
	v := types.Ref(th.ObjRef)
	return &v, nil
}
