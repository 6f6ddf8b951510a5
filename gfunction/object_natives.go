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

// CloneName is the interned "clone" symbol, exposed so the
// interpreter's invoke dispatch can pass it to Registry.Lookup for the
// array-clone sentinel retry.
var CloneName types.Symbol

// LoadLangObject installs java.lang.Object's preregistered natives:
// registerNatives, getClass, hashCode, notifyAll, and the sentinel
// clone implementation every array class shares.
func LoadLangObject(r *Registry, in *interner.Interner) {
	classSym := in.Intern("java/lang/Object")
	CloneName = in.Intern("clone")

	r.Preregister(Key{Class: classSym, Name: in.Intern("registerNatives"), Desc: in.Intern("()V")},
		Func{ParamCount: 0, Call: justReturn})

	r.Preregister(Key{Class: classSym, Name: in.Intern("getClass"), Desc: in.Intern("()Ljava/lang/Class;")},
		Func{ParamCount: 1, Call: objectGetClass})

	r.Preregister(Key{Class: classSym, Name: in.Intern("hashCode"), Desc: in.Intern("()I")},
		Func{ParamCount: 1, Call: objectHashCode})

	r.Preregister(Key{Class: classSym, Name: in.Intern("notifyAll"), Desc: in.Intern("()V")},
		Func{ParamCount: 1, Call: justReturn})

	// Sentinel: Class cleared to NoSymbol, shared by every array type's
	// clone().
	r.Preregister(Key{Class: types.NoSymbol, Name: CloneName, Desc: in.Intern("()Ljava/lang/Object;")},
		Func{ParamCount: 1, Call: objectClone})
}

func justReturn(ma *classloader.MethodArea, th *thread.Thread, args []types.Value) (*types.Value, error) {
	return nil, nil
}

func objectGetClass(ma *classloader.MethodArea, th *thread.Thread, args []types.Value) (*types.Value, error) {
	receiver := args[0]
	classId := ma.Heap().ClassIdOf(receiver.Ref)
	mirror, err := ma.GetMirrorRefOrCreate(classId)
	if err != nil {
		return nil, err
	}
	v := types.Ref(mirror)
	return &v, nil
}

func objectHashCode(ma *classloader.MethodArea, th *thread.Thread, args []types.Value) (*types.Value, error) {
	// Identity hash: the heap offset is stable for the object's
	// lifetime (the heap never moves or reclaims objects).
	v := types.Integer(int32(uint32(args[0].Ref)))
	return &v, nil
}

func objectClone(ma *classloader.MethodArea, th *thread.Thread, args []types.Value) (*types.Value, error) {
	ref, err := ma.Heap().CloneObject(args[0].Ref)
	if err != nil {
		return nil, err
	}
	v := types.Ref(ref)
	return &v, nil
}
