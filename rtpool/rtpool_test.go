/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-4 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package rtpool

import (
	"testing"

	"jacobin/vm2/classfile"
	"jacobin/vm2/interner"
)

// buildSamplePool hand-assembles a ClassFile whose constant pool
// exercises every entry kind rtpool resolves:
//
//	#1  Utf8    "Main"
//	#2  Class   -> #1
//	#3  Utf8    "java/lang/Object"
//	#4  Class   -> #3
//	#5  Utf8    "<init>"
//	#6  Utf8    "()V"
//	#7  NameAndType -> #5, #6
//	#8  Methodref -> #4, #7
//	#9  Utf8    "out"
//	#10 Utf8    "Ljava/io/PrintStream;"
//	#11 NameAndType -> #9, #10
//	#12 Fieldref -> #4, #11
//	#13 Utf8    "hello"
//	#14 String  -> #13
//	#15 Integer 42
func buildSamplePool() *classfile.ClassFile {
	cp := make([]classfile.ConstantPoolEntry, 16)
	cp[1] = &classfile.ConstantUtf8{Value: "Main"}
	cp[2] = &classfile.ConstantClass{NameIndex: 1}
	cp[3] = &classfile.ConstantUtf8{Value: "java/lang/Object"}
	cp[4] = &classfile.ConstantClass{NameIndex: 3}
	cp[5] = &classfile.ConstantUtf8{Value: "<init>"}
	cp[6] = &classfile.ConstantUtf8{Value: "()V"}
	cp[7] = &classfile.ConstantNameAndType{NameIndex: 5, DescriptorIndex: 6}
	cp[8] = &classfile.ConstantMethodref{ClassIndex: 4, NameAndTypeIndex: 7}
	cp[9] = &classfile.ConstantUtf8{Value: "out"}
	cp[10] = &classfile.ConstantUtf8{Value: "Ljava/io/PrintStream;"}
	cp[11] = &classfile.ConstantNameAndType{NameIndex: 9, DescriptorIndex: 10}
	cp[12] = &classfile.ConstantFieldref{ClassIndex: 4, NameAndTypeIndex: 11}
	cp[13] = &classfile.ConstantUtf8{Value: "hello"}
	cp[14] = &classfile.ConstantString{StringIndex: 13}
	cp[15] = &classfile.ConstantInteger{Value: 42}
	return &classfile.ClassFile{ConstantPool: cp, ThisClass: 2, SuperClass: 4}
}

func TestGetUtf8SymCachesResult(t *testing.T) {
	in := interner.New()
	p := New(buildSamplePool(), in)
	sym1, err := p.GetUtf8Sym(1)
	if err != nil {
		t.Fatalf("GetUtf8Sym: %v", err)
	}
	if got, _ := in.Resolve(sym1); got != "Main" {
		t.Errorf("resolved = %q, want Main", got)
	}
	sym2, err := p.GetUtf8Sym(1)
	if err != nil {
		t.Fatalf("GetUtf8Sym second call: %v", err)
	}
	if sym1 != sym2 {
		t.Error("expected cached symbol to be stable across calls")
	}
}

func TestGetClassSym(t *testing.T) {
	in := interner.New()
	p := New(buildSamplePool(), in)
	sym, err := p.GetClassSym(4)
	if err != nil {
		t.Fatalf("GetClassSym: %v", err)
	}
	if got, _ := in.Resolve(sym); got != "java/lang/Object" {
		t.Errorf("resolved = %q, want java/lang/Object", got)
	}
}

func TestGetStringSym(t *testing.T) {
	in := interner.New()
	p := New(buildSamplePool(), in)
	sym, err := p.GetStringSym(14)
	if err != nil {
		t.Fatalf("GetStringSym: %v", err)
	}
	if got, _ := in.Resolve(sym); got != "hello" {
		t.Errorf("resolved = %q, want hello", got)
	}
}

func TestGetMethodView(t *testing.T) {
	in := interner.New()
	p := New(buildSamplePool(), in)
	v, err := p.GetMethodView(8)
	if err != nil {
		t.Fatalf("GetMethodView: %v", err)
	}
	class, _ := in.Resolve(v.ClassSym)
	name, _ := in.Resolve(v.NameSym)
	desc, _ := in.Resolve(v.DescSym)
	if class != "java/lang/Object" || name != "<init>" || desc != "()V" {
		t.Errorf("got (%s, %s, %s)", class, name, desc)
	}
}

func TestGetFieldView(t *testing.T) {
	in := interner.New()
	p := New(buildSamplePool(), in)
	v, err := p.GetFieldView(12)
	if err != nil {
		t.Fatalf("GetFieldView: %v", err)
	}
	name, _ := in.Resolve(v.NameSym)
	desc, _ := in.Resolve(v.DescSym)
	if name != "out" || desc != "Ljava/io/PrintStream;" {
		t.Errorf("got (%s, %s)", name, desc)
	}
}

func TestGetFieldViewRejectsMethodref(t *testing.T) {
	in := interner.New()
	p := New(buildSamplePool(), in)
	if _, err := p.GetFieldView(8); err == nil {
		t.Error("expected kind mismatch resolving a Methodref as a Fieldref")
	} else if _, ok := err.(*ErrKindMismatch); !ok {
		t.Errorf("expected *ErrKindMismatch, got %T", err)
	}
}

func TestGetMethodOrInterfaceMethodViewAcceptsBoth(t *testing.T) {
	in := interner.New()
	cf := buildSamplePool()
	cf.ConstantPool = append(cf.ConstantPool, &classfile.ConstantInterfaceMethodref{ClassIndex: 4, NameAndTypeIndex: 7})
	p := New(cf, in)

	if _, err := p.GetMethodOrInterfaceMethodView(8); err != nil {
		t.Errorf("Methodref: %v", err)
	}
	if _, err := p.GetMethodOrInterfaceMethodView(16); err != nil {
		t.Errorf("InterfaceMethodref: %v", err)
	}
}

func TestOutOfRangeIndex(t *testing.T) {
	in := interner.New()
	p := New(buildSamplePool(), in)
	if _, err := p.GetUtf8Sym(999); err == nil {
		t.Error("expected out-of-range error")
	} else if _, ok := err.(*ErrOutOfRange); !ok {
		t.Errorf("expected *ErrOutOfRange, got %T", err)
	}
}

func TestGetConstantDispatchesOnTag(t *testing.T) {
	in := interner.New()
	p := New(buildSamplePool(), in)

	c, err := p.GetConstant(15)
	if err != nil {
		t.Fatalf("GetConstant(int): %v", err)
	}
	if c.Kind != ConstInt || c.I != 42 {
		t.Errorf("got %+v, want Integer 42", c)
	}

	c, err = p.GetConstant(14)
	if err != nil {
		t.Fatalf("GetConstant(string): %v", err)
	}
	if c.Kind != ConstStringSym {
		t.Errorf("got kind %v, want ConstStringSym", c.Kind)
	}
	if got, _ := in.Resolve(c.Sym); got != "hello" {
		t.Errorf("resolved = %q, want hello", got)
	}
}

func TestGetMethodHandleViewResolvesReferencedMethodref(t *testing.T) {
	in := interner.New()
	cf := buildSamplePool()
	const refInvokeStatic = 6
	cf.ConstantPool = append(cf.ConstantPool, &classfile.ConstantMethodHandle{ReferenceKind: refInvokeStatic, ReferenceIndex: 8})
	p := New(cf, in)

	v, err := p.GetMethodHandleView(16)
	if err != nil {
		t.Fatalf("GetMethodHandleView: %v", err)
	}
	if v.Kind != refInvokeStatic {
		t.Errorf("Kind = %d, want %d", v.Kind, refInvokeStatic)
	}
	name, _ := in.Resolve(v.Ref.NameSym)
	if name != "<init>" {
		t.Errorf("Ref.NameSym resolved = %q, want <init>", name)
	}

	// Second call should hit the cache and return the same view.
	v2, err := p.GetMethodHandleView(16)
	if err != nil {
		t.Fatalf("GetMethodHandleView second call: %v", err)
	}
	if v2.Ref.NameSym != v.Ref.NameSym {
		t.Error("cached MethodHandleView should match the first resolution")
	}
}

func TestGetConstantDispatchesMethodHandle(t *testing.T) {
	in := interner.New()
	cf := buildSamplePool()
	cf.ConstantPool = append(cf.ConstantPool, &classfile.ConstantMethodHandle{ReferenceKind: 6, ReferenceIndex: 8})
	p := New(cf, in)

	c, err := p.GetConstant(16)
	if err != nil {
		t.Fatalf("GetConstant(MethodHandle): %v", err)
	}
	if c.Kind != ConstMethodHandle {
		t.Errorf("Kind = %v, want ConstMethodHandle", c.Kind)
	}
	if name, _ := in.Resolve(c.Handle.Ref.NameSym); name != "<init>" {
		t.Errorf("Handle.Ref.NameSym resolved = %q, want <init>", name)
	}
}

func TestGetInvokeDynamicViewResolvesTarget(t *testing.T) {
	in := interner.New()
	cf := buildSamplePool()
	cf.ConstantPool = append(cf.ConstantPool, &classfile.ConstantInvokeDynamic{BootstrapMethodAttrIndex: 3, NameAndTypeIndex: 7})
	p := New(cf, in)

	v, err := p.GetInvokeDynamicView(16)
	if err != nil {
		t.Fatalf("GetInvokeDynamicView: %v", err)
	}
	if v.BootstrapIndex != 3 {
		t.Errorf("BootstrapIndex = %d, want 3", v.BootstrapIndex)
	}
	if name, _ := in.Resolve(v.Target.NameSym); name != "<init>" {
		t.Errorf("Target.NameSym resolved = %q, want <init>", name)
	}
}

func TestGetConstantDispatchesInvokeDynamic(t *testing.T) {
	in := interner.New()
	cf := buildSamplePool()
	cf.ConstantPool = append(cf.ConstantPool, &classfile.ConstantInvokeDynamic{BootstrapMethodAttrIndex: 0, NameAndTypeIndex: 11})
	p := New(cf, in)

	c, err := p.GetConstant(16)
	if err != nil {
		t.Fatalf("GetConstant(InvokeDynamic): %v", err)
	}
	if c.Kind != ConstInvokeDynamic {
		t.Errorf("Kind = %v, want ConstInvokeDynamic", c.Kind)
	}
	if name, _ := in.Resolve(c.Dyn.Target.NameSym); name != "out" {
		t.Errorf("Dyn.Target.NameSym resolved = %q, want out", name)
	}
}
