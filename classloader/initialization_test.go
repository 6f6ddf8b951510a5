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

// buildInterfaceWithClinit optionally adds a <clinit> to an otherwise
// empty interface, to probe interfaceNeedsInit's gating.
func buildInterfaceWithClinit(withClinit bool) *classfile.ClassFile {
	p := newTestPool()
	cf := &classfile.ClassFile{
		ConstantPool: p.entries,
		AccessFlags:  classfile.AccInterface | classfile.AccAbstract,
	}
	if withClinit {
		clinitName := p.intern("<clinit>")
		voidDesc := p.intern("()V")
		cf.ConstantPool = p.entries
		cf.Methods = []classfile.MethodInfo{
			{AccessFlags: classfile.AccStatic, NameIndex: clinitName, DescIndex: voidDesc,
				Code: &classfile.CodeAttribute{MaxStack: 0, MaxLocals: 0, Code: []byte{0xb1}}},
		}
	}
	return cf
}

func TestEnsureInitializedSkipsInterfaceWithNoClinitAnywhere(t *testing.T) {
	ma := newTestArea(t)

	baseSym := ma.Interner().Intern("test/Quiet")
	baseId, err := ma.loadAndLink(baseSym, buildInterfaceWithClinit(false), 0, nil)
	if err != nil {
		t.Fatalf("interface loadAndLink failed: %v", err)
	}

	implPool := newTestPool()
	ifaceIdx := implPool.internClass("test/Quiet")
	implCf := &classfile.ClassFile{
		ConstantPool: implPool.entries,
		AccessFlags:  classfile.AccPublic,
		Interfaces:   []uint16{ifaceIdx},
	}
	implSym := ma.Interner().Intern("test/Impl")
	implId, err := ma.loadAndLink(implSym, implCf, 0, nil)
	if err != nil {
		t.Fatalf("impl loadAndLink failed: %v", err)
	}

	var ranClinits []types.MethodId
	noop := func(mid types.MethodId) error {
		ranClinits = append(ranClinits, mid)
		return nil
	}
	if err := ma.EnsureInitialized(implId, noop); err != nil {
		t.Fatalf("EnsureInitialized: %v", err)
	}

	if ma.ClassByID(implId).State() != StateInitialized {
		t.Error("Impl should have reached StateInitialized")
	}
	if ma.ClassByID(baseId).State() != StateLinked {
		t.Error("an interface with no <clinit> anywhere in its chain should never be pushed past StateLinked")
	}
	if len(ranClinits) != 0 {
		t.Errorf("no <clinit> should have run, got %v", ranClinits)
	}
}

func TestEnsureInitializedRunsInterfaceThatDeclaresClinit(t *testing.T) {
	ma := newTestArea(t)

	baseSym := ma.Interner().Intern("test/Loud")
	baseId, err := ma.loadAndLink(baseSym, buildInterfaceWithClinit(true), 0, nil)
	if err != nil {
		t.Fatalf("interface loadAndLink failed: %v", err)
	}
	baseClinit := ma.ClassByID(baseId).ClinitId
	if baseClinit == 0 {
		t.Fatal("test/Loud should have recorded a <clinit>")
	}

	implPool := newTestPool()
	ifaceIdx := implPool.internClass("test/Loud")
	implCf := &classfile.ClassFile{
		ConstantPool: implPool.entries,
		AccessFlags:  classfile.AccPublic,
		Interfaces:   []uint16{ifaceIdx},
	}
	implSym := ma.Interner().Intern("test/Impl2")
	implId, err := ma.loadAndLink(implSym, implCf, 0, nil)
	if err != nil {
		t.Fatalf("impl loadAndLink failed: %v", err)
	}

	var ranClinits []types.MethodId
	noop := func(mid types.MethodId) error {
		ranClinits = append(ranClinits, mid)
		return nil
	}
	if err := ma.EnsureInitialized(implId, noop); err != nil {
		t.Fatalf("EnsureInitialized: %v", err)
	}

	if ma.ClassByID(baseId).State() != StateInitialized {
		t.Error("an interface declaring its own <clinit> must still be driven to StateInitialized")
	}
	found := false
	for _, mid := range ranClinits {
		if mid == baseClinit {
			found = true
		}
	}
	if !found {
		t.Errorf("expected test/Loud's <clinit> (%d) to run, got %v", baseClinit, ranClinits)
	}
}
