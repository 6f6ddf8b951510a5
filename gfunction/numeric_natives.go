/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-4 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package gfunction

import (
	"math"

	"jacobin/vm2/classloader"
	"jacobin/vm2/interner"
	"jacobin/vm2/thread"
	"jacobin/vm2/types"
)

// LoadLangFloat and LoadLangDouble install the IEEE-754 bit-cast
// natives Float and Double route straight to the host's math package.
func LoadLangFloat(r *Registry, in *interner.Interner) {
	classSym := in.Intern("java/lang/Float")
	r.Preregister(Key{Class: classSym, Name: in.Intern("floatToRawIntBits"), Desc: in.Intern("(F)I")},
		Func{ParamCount: 1, Call: floatToRawIntBits})
	r.Preregister(Key{Class: classSym, Name: in.Intern("intBitsToFloat"), Desc: in.Intern("(I)F")},
		Func{ParamCount: 1, Call: intBitsToFloat})
}

func LoadLangDouble(r *Registry, in *interner.Interner) {
	classSym := in.Intern("java/lang/Double")
	r.Preregister(Key{Class: classSym, Name: in.Intern("doubleToRawLongBits"), Desc: in.Intern("(D)J")},
		Func{ParamCount: 1, Call: doubleToRawLongBits})
	r.Preregister(Key{Class: classSym, Name: in.Intern("longBitsToDouble"), Desc: in.Intern("(J)D")},
		Func{ParamCount: 1, Call: longBitsToDouble})
}

func floatToRawIntBits(ma *classloader.MethodArea, th *thread.Thread, args []types.Value) (*types.Value, error) {
	v := types.Integer(int32(math.Float32bits(args[0].F)))
	return &v, nil
}

func intBitsToFloat(ma *classloader.MethodArea, th *thread.Thread, args []types.Value) (*types.Value, error) {
	v := types.Float(math.Float32frombits(uint32(args[0].I)))
	return &v, nil
}

func doubleToRawLongBits(ma *classloader.MethodArea, th *thread.Thread, args []types.Value) (*types.Value, error) {
	v := types.Long(int64(math.Float64bits(args[0].D)))
	return &v, nil
}

func longBitsToDouble(ma *classloader.MethodArea, th *thread.Thread, args []types.Value) (*types.Value, error) {
	v := types.Double(math.Float64frombits(uint64(args[0].L)))
	return &v, nil
}
