/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-4 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package classloader

import (
	"testing"

	"jacobin/vm2/classfile"
	"jacobin/vm2/types"
)

// testPool is a tiny builder for a ClassFile's Utf8-only constant
// pool, so loadAndLink can be exercised without parsing real .class
// bytes: each intern() call returns the 1-based index a Utf8 entry
// would occupy.
type testPool struct {
	entries []classfile.ConstantPoolEntry
}

func newTestPool() *testPool {
	return &testPool{entries: []classfile.ConstantPoolEntry{nil}} // index 0 unused
}

func (p *testPool) intern(s string) uint16 {
	p.entries = append(p.entries, &classfile.ConstantUtf8{Value: s})
	return uint16(len(p.entries) - 1)
}

// internClass adds a Class constant-pool entry for name, suitable for
// cf.Interfaces/cf.SuperClass.
func (p *testPool) internClass(name string) uint16 {
	nameIdx := p.intern(name)
	p.entries = append(p.entries, &classfile.ConstantClass{NameIndex: nameIdx})
	return uint16(len(p.entries) - 1)
}

// buildSimpleClassFile builds a class with one instance field "x:I",
// one static field "count:I", an instance method "foo:()V", a static
// method "bar:()I", and a <clinit>.
func buildSimpleClassFile(name string) *classfile.ClassFile {
	p := newTestPool()
	xName := p.intern("x")
	iDesc := p.intern("I")
	countName := p.intern("count")
	fooName := p.intern("foo")
	voidDesc := p.intern("()V")
	barName := p.intern("bar")
	intRetDesc := p.intern("()I")
	clinitName := p.intern("<clinit>")

	return &classfile.ClassFile{
		ConstantPool: p.entries,
		AccessFlags:  classfile.AccPublic,
		Fields: []classfile.FieldInfo{
			{AccessFlags: 0, NameIndex: xName, DescIndex: iDesc},
			{AccessFlags: classfile.AccStatic, NameIndex: countName, DescIndex: iDesc},
		},
		Methods: []classfile.MethodInfo{
			{AccessFlags: 0, NameIndex: fooName, DescIndex: voidDesc, Code: &classfile.CodeAttribute{MaxStack: 1, MaxLocals: 1, Code: []byte{0xb1}}},
			{AccessFlags: classfile.AccStatic, NameIndex: barName, DescIndex: intRetDesc, Code: &classfile.CodeAttribute{MaxStack: 1, MaxLocals: 0, Code: []byte{0xac}}},
			{AccessFlags: classfile.AccStatic, NameIndex: clinitName, DescIndex: voidDesc, Code: &classfile.CodeAttribute{MaxStack: 0, MaxLocals: 0, Code: []byte{0xb1}}},
		},
	}
}

func TestLoadAndLinkBuildsFieldsAndVTable(t *testing.T) {
	ma := newTestArea(t)
	nameSym := ma.Interner().Intern("test/Simple")
	cf := buildSimpleClassFile("test/Simple")

	id, err := ma.loadAndLink(nameSym, cf, 0, nil)
	if err != nil {
		t.Fatalf("loadAndLink failed: %v", err)
	}
	c := ma.ClassByID(id)
	if c.State() != StateLinked {
		t.Errorf("State = %v, want StateLinked", c.State())
	}
	if len(c.Fields) != 1 {
		t.Fatalf("expected 1 instance field, got %d", len(c.Fields))
	}
	if c.InstanceSize != 4 {
		t.Errorf("InstanceSize = %d, want 4", c.InstanceSize)
	}
	if len(c.Statics) != 1 {
		t.Errorf("expected 1 static field, got %d", len(c.Statics))
	}
	if c.ClinitId == 0 {
		t.Error("expected <clinit> to be recorded")
	}
	if len(c.VTable) != 1 {
		t.Errorf("expected 1 virtual method in vtable (foo), got %d", len(c.VTable))
	}
	if len(c.DeclaredMethodIndex) != 1 {
		t.Errorf("expected 1 declared static method (bar), got %d", len(c.DeclaredMethodIndex))
	}
}

func TestLoadAndLinkSubclassInheritsFieldsAndOverridesVTable(t *testing.T) {
	ma := newTestArea(t)
	superSym := ma.Interner().Intern("test/Super")
	superId, err := ma.loadAndLink(superSym, buildSimpleClassFile("test/Super"), 0, nil)
	if err != nil {
		t.Fatalf("super loadAndLink failed: %v", err)
	}

	// Subclass overrides foo() and adds its own instance field.
	p := newTestPool()
	fooName := p.intern("foo")
	voidDesc := p.intern("()V")
	yName := p.intern("y")
	iDesc := p.intern("I")
	sub := &classfile.ClassFile{
		ConstantPool: p.entries,
		AccessFlags:  classfile.AccPublic,
		Fields: []classfile.FieldInfo{
			{NameIndex: yName, DescIndex: iDesc},
		},
		Methods: []classfile.MethodInfo{
			{NameIndex: fooName, DescIndex: voidDesc, Code: &classfile.CodeAttribute{Code: []byte{0xb1}}},
		},
	}
	subSym := ma.Interner().Intern("test/Sub")
	subId, err := ma.loadAndLink(subSym, sub, superId, nil)
	if err != nil {
		t.Fatalf("sub loadAndLink failed: %v", err)
	}
	subClass := ma.ClassByID(subId)
	superClass := ma.ClassByID(superId)

	if len(subClass.Fields) != 2 {
		t.Fatalf("expected 2 fields (inherited x + own y), got %d", len(subClass.Fields))
	}
	if subClass.InstanceSize != 8 {
		t.Errorf("InstanceSize = %d, want 8", subClass.InstanceSize)
	}
	if len(subClass.VTable) != len(superClass.VTable) {
		t.Errorf("override should reuse the inherited vtable slot, got len %d want %d", len(subClass.VTable), len(superClass.VTable))
	}
	if subClass.VTable[0] == superClass.VTable[0] {
		t.Error("subclass vtable slot should point at the overriding method, not the inherited one")
	}
}

func TestGetClassIdOrLoadShortCircuitsAlreadyLoaded(t *testing.T) {
	ma := newTestArea(t)
	nameSym := ma.Interner().Intern("test/Simple")
	id, err := ma.loadAndLink(nameSym, buildSimpleClassFile("test/Simple"), 0, nil)
	if err != nil {
		t.Fatalf("loadAndLink failed: %v", err)
	}

	got, err := ma.GetClassIdOrLoad("test/Simple", func(string) ([]byte, error) {
		t.Fatal("provider should not be called for an already-loaded class")
		return nil, nil
	})
	if err != nil || got != id {
		t.Errorf("GetClassIdOrLoad = (%d, %v), want (%d, nil)", got, err, id)
	}
}

func TestGetClassIdOrLoadWrapsParseFailureAsClassFormatError(t *testing.T) {
	ma := newTestArea(t)
	_, err := ma.GetClassIdOrLoad("bad/Bytes", func(string) ([]byte, error) {
		return []byte{0x00, 0x00, 0x00, 0x00}, nil // bad magic
	})
	if err == nil {
		t.Fatal("expected a parse error")
	}
	le, ok := err.(*LinkError)
	if !ok {
		t.Fatalf("expected *LinkError, got %T", err)
	}
	if le.Payload.ClassName != "java/lang/ClassFormatError" {
		t.Errorf("ClassName = %q, want ClassFormatError", le.Payload.ClassName)
	}
}

// TestInterfaceInheritsDefaultMethodThroughTwoLevels builds Base (a
// default method "greet:()V"), Derived (extends Base, declares
// nothing of its own), and Impl (implements only Derived). Derived's
// own DeclaredMethodIndex must carry greet, not just its vtable/itable
// -- otherwise a class two levels down that only names Derived as a
// direct interface never sees Base's default through Derived.
func TestInterfaceInheritsDefaultMethodThroughTwoLevels(t *testing.T) {
	ma := newTestArea(t)

	basePool := newTestPool()
	greetName := basePool.intern("greet")
	voidDesc := basePool.intern("()V")
	baseCf := &classfile.ClassFile{
		ConstantPool: basePool.entries,
		AccessFlags:  classfile.AccInterface | classfile.AccAbstract,
		Methods: []classfile.MethodInfo{
			{AccessFlags: classfile.AccPublic, NameIndex: greetName, DescIndex: voidDesc,
				Code: &classfile.CodeAttribute{MaxStack: 0, MaxLocals: 1, Code: []byte{0xb1}}},
		},
	}
	baseSym := ma.Interner().Intern("test/Base")
	baseId, err := ma.loadAndLink(baseSym, baseCf, 0, nil)
	if err != nil {
		t.Fatalf("Base loadAndLink failed: %v", err)
	}

	derivedPool := newTestPool()
	baseIfaceIdx := derivedPool.internClass("test/Base")
	derivedCf := &classfile.ClassFile{
		ConstantPool: derivedPool.entries,
		AccessFlags:  classfile.AccInterface | classfile.AccAbstract,
		Interfaces:   []uint16{baseIfaceIdx},
	}
	derivedSym := ma.Interner().Intern("test/Derived")
	derivedId, err := ma.loadAndLink(derivedSym, derivedCf, 0, nil)
	if err != nil {
		t.Fatalf("Derived loadAndLink failed: %v", err)
	}
	derivedClass := ma.ClassByID(derivedId)

	greetKey := types.MethodKey{Name: ma.Interner().Intern("greet"), Desc: ma.Interner().Intern("()V")}
	mid, ok := derivedClass.DeclaredMethodIndex[greetKey]
	if !ok {
		t.Fatal("Derived.DeclaredMethodIndex should inherit greet from Base")
	}
	if ma.MethodByID(mid).Owner != baseId {
		t.Error("inherited greet should still resolve to Base's method")
	}

	implPool := newTestPool()
	derivedIfaceIdx := implPool.internClass("test/Derived")
	implCf := &classfile.ClassFile{
		ConstantPool: implPool.entries,
		AccessFlags:  classfile.AccPublic,
		Interfaces:   []uint16{derivedIfaceIdx},
	}
	implSym := ma.Interner().Intern("test/Impl")
	implId, err := ma.loadAndLink(implSym, implCf, 0, nil)
	if err != nil {
		t.Fatalf("Impl loadAndLink failed: %v", err)
	}
	implClass := ma.ClassByID(implId)
	if _, ok := implClass.VTableIndex[greetKey]; !ok {
		t.Error("Impl should inherit greet through Derived's vtable")
	}
}
