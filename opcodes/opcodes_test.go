/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-4 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package opcodes

import "testing"

func TestCategoryOf(t *testing.T) {
	cases := []struct {
		op   uint8
		want Category
	}{
		{Iconst0, CategoryConst},
		{Aload0, CategoryLoad},
		{Istore1, CategoryStore},
		{Iadd, CategoryMath},
		{Goto, CategoryControl},
		{Iaload, CategoryArray},
		{Getfield, CategoryObject},
		{Invokevirtual, CategoryInvoke},
	}
	for _, c := range cases {
		if got := CategoryOf(c.op); got != c.want {
			t.Errorf("CategoryOf(0x%02X) = %v, want %v", c.op, got, c.want)
		}
	}
}

func TestOperandSizeFixed(t *testing.T) {
	cases := []struct {
		op   uint8
		want int
	}{
		{Nop, 0},
		{Bipush, 1},
		{Sipush, 2},
		{Iinc, 2},
		{Invokeinterface, 4},
		{Goto, 2},
		{GotoW, 4},
	}
	for _, c := range cases {
		if got := OperandSize(c.op); got != c.want {
			t.Errorf("OperandSize(0x%02X) = %d, want %d", c.op, got, c.want)
		}
	}
}

func TestOperandSizeVariableLength(t *testing.T) {
	for _, op := range []uint8{Tableswitch, Lookupswitch, Wide} {
		if got := OperandSize(op); got != -1 {
			t.Errorf("OperandSize(0x%02X) = %d, want -1 (variable)", op, got)
		}
	}
}
