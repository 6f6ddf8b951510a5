/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-4 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package rtpool is the runtime constant pool (RCP): a lazy, typed
// view over a class file's constant pool, resolving index-to-
// symbol/view on demand and caching the result in a once-set cell so
// repeated lookups at the same index are O(1).
package rtpool

import (
	"sync"

	"jacobin/vm2/classfile"
	"jacobin/vm2/interner"
	"jacobin/vm2/types"
)

// ErrKindMismatch reports a tag mismatch at a given index: the caller
// expected one constant-pool entry shape and found another. The
// interpreter maps this to IncompatibleClassChangeError.
type ErrKindMismatch struct {
	Index    uint16
	Expected string
	Actual   string
}

func (e *ErrKindMismatch) Error() string {
	return "rtpool: index " + itoa(int(e.Index)) + ": expected " + e.Expected + ", got " + e.Actual
}

// ErrOutOfRange reports an out-of-range constant-pool index. The
// interpreter maps this to ClassFormatError.
type ErrOutOfRange struct{ Index uint16 }

func (e *ErrOutOfRange) Error() string {
	return "rtpool: index " + itoa(int(e.Index)) + " out of range"
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// NatView is the (class, name, descriptor) triple behind a Fieldref,
// Methodref, or InterfaceMethodref entry.
type NatView struct {
	ClassSym types.Symbol
	NameSym  types.Symbol
	DescSym  types.Symbol
}

// HandleKind distinguishes the 9 REF_ kinds of a MethodHandle entry.
type HandleKind uint8

// MethodHandleView is a resolved view over a MethodHandle constant.
type MethodHandleView struct {
	Kind HandleKind
	Ref  NatView
}

// InvokeDynamicView combines a call site's bootstrap-method index
// with the NameAndType it targets.
type InvokeDynamicView struct {
	BootstrapIndex uint16
	Target         struct {
		NameSym types.Symbol
		DescSym types.Symbol
	}
}

type cacheKind uint8

const (
	cacheNone cacheKind = iota
	cacheSymbol
	cacheNatView
	cacheHandleView
	cacheInvokeDynamicView
)

type cacheCell struct {
	kind   cacheKind
	sym    types.Symbol
	nat    NatView
	handle MethodHandleView
	invDyn InvokeDynamicView
}

// Pool is the lazily-resolved runtime view over one class file's
// constant pool.
type Pool struct {
	mu     sync.Mutex
	cf     *classfile.ClassFile
	in     *interner.Interner
	cache  []cacheCell
}

// New builds an RCP mirroring cf's constant pool, ready to resolve
// against in.
func New(cf *classfile.ClassFile, in *interner.Interner) *Pool {
	return &Pool{
		cf:    cf,
		in:    in,
		cache: make([]cacheCell, len(cf.ConstantPool)),
	}
}

func (p *Pool) entryAt(index uint16) (classfile.ConstantPoolEntry, error) {
	if int(index) <= 0 || int(index) >= len(p.cf.ConstantPool) {
		return nil, &ErrOutOfRange{Index: index}
	}
	return p.cf.ConstantPool[index], nil
}

// GetUtf8Sym returns the interned Symbol for a Utf8 constant.
func (p *Pool) GetUtf8Sym(index uint16) (types.Symbol, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if int(index) < len(p.cache) && p.cache[index].kind == cacheSymbol {
		return p.cache[index].sym, nil
	}
	e, err := p.entryAt(index)
	if err != nil {
		return 0, err
	}
	u, ok := e.(*classfile.ConstantUtf8)
	if !ok {
		return 0, &ErrKindMismatch{Index: index, Expected: "Utf8", Actual: kindName(e)}
	}
	sym := p.in.Intern(u.Value)
	p.cache[index] = cacheCell{kind: cacheSymbol, sym: sym}
	return sym, nil
}

// GetClassSym returns the interned Symbol for a Class constant's name.
func (p *Pool) GetClassSym(index uint16) (types.Symbol, error) {
	p.mu.Lock()
	if int(index) < len(p.cache) && p.cache[index].kind == cacheSymbol {
		sym := p.cache[index].sym
		p.mu.Unlock()
		return sym, nil
	}
	e, err := p.entryAt(index)
	p.mu.Unlock()
	if err != nil {
		return 0, err
	}
	c, ok := e.(*classfile.ConstantClass)
	if !ok {
		return 0, &ErrKindMismatch{Index: index, Expected: "Class", Actual: kindName(e)}
	}
	sym, err := p.GetUtf8Sym(c.NameIndex)
	if err != nil {
		return 0, err
	}
	p.mu.Lock()
	p.cache[index] = cacheCell{kind: cacheSymbol, sym: sym}
	p.mu.Unlock()
	return sym, nil
}

// GetStringSym returns the interned Symbol for a String constant's
// text.
func (p *Pool) GetStringSym(index uint16) (types.Symbol, error) {
	p.mu.Lock()
	if int(index) < len(p.cache) && p.cache[index].kind == cacheSymbol {
		sym := p.cache[index].sym
		p.mu.Unlock()
		return sym, nil
	}
	e, err := p.entryAt(index)
	p.mu.Unlock()
	if err != nil {
		return 0, err
	}
	s, ok := e.(*classfile.ConstantString)
	if !ok {
		return 0, &ErrKindMismatch{Index: index, Expected: "String", Actual: kindName(e)}
	}
	sym, err := p.GetUtf8Sym(s.StringIndex)
	if err != nil {
		return 0, err
	}
	p.mu.Lock()
	p.cache[index] = cacheCell{kind: cacheSymbol, sym: sym}
	p.mu.Unlock()
	return sym, nil
}

func (p *Pool) getNatView(index uint16, classIndex, natIndex uint16, expected string) (NatView, error) {
	p.mu.Lock()
	if p.cache[index].kind == cacheNatView {
		v := p.cache[index].nat
		p.mu.Unlock()
		return v, nil
	}
	p.mu.Unlock()

	classSym, err := p.GetClassSym(classIndex)
	if err != nil {
		return NatView{}, err
	}
	natEntry, err := p.entryAt(natIndex)
	if err != nil {
		return NatView{}, err
	}
	nat, ok := natEntry.(*classfile.ConstantNameAndType)
	if !ok {
		return NatView{}, &ErrKindMismatch{Index: natIndex, Expected: "NameAndType", Actual: kindName(natEntry)}
	}
	nameSym, err := p.GetUtf8Sym(nat.NameIndex)
	if err != nil {
		return NatView{}, err
	}
	descSym, err := p.GetUtf8Sym(nat.DescriptorIndex)
	if err != nil {
		return NatView{}, err
	}
	v := NatView{ClassSym: classSym, NameSym: nameSym, DescSym: descSym}
	p.mu.Lock()
	p.cache[index] = cacheCell{kind: cacheNatView, nat: v}
	p.mu.Unlock()
	_ = expected
	return v, nil
}

// GetNatView resolves a NameAndType entry directly (not via a
// Field/Method-ref indirection): returns (0-class, name, desc).
func (p *Pool) GetNatView(index uint16) (NatView, error) {
	e, err := p.entryAt(index)
	if err != nil {
		return NatView{}, err
	}
	nat, ok := e.(*classfile.ConstantNameAndType)
	if !ok {
		return NatView{}, &ErrKindMismatch{Index: index, Expected: "NameAndType", Actual: kindName(e)}
	}
	nameSym, err := p.GetUtf8Sym(nat.NameIndex)
	if err != nil {
		return NatView{}, err
	}
	descSym, err := p.GetUtf8Sym(nat.DescriptorIndex)
	if err != nil {
		return NatView{}, err
	}
	return NatView{NameSym: nameSym, DescSym: descSym}, nil
}

// GetMethodView resolves a Methodref entry to (class, name, desc).
func (p *Pool) GetMethodView(index uint16) (NatView, error) {
	e, err := p.entryAt(index)
	if err != nil {
		return NatView{}, err
	}
	m, ok := e.(*classfile.ConstantMethodref)
	if !ok {
		return NatView{}, &ErrKindMismatch{Index: index, Expected: "Methodref", Actual: kindName(e)}
	}
	return p.getNatView(index, m.ClassIndex, m.NameAndTypeIndex, "Methodref")
}

// GetInterfaceMethodView resolves an InterfaceMethodref entry.
func (p *Pool) GetInterfaceMethodView(index uint16) (NatView, error) {
	e, err := p.entryAt(index)
	if err != nil {
		return NatView{}, err
	}
	m, ok := e.(*classfile.ConstantInterfaceMethodref)
	if !ok {
		return NatView{}, &ErrKindMismatch{Index: index, Expected: "InterfaceMethodref", Actual: kindName(e)}
	}
	return p.getNatView(index, m.ClassIndex, m.NameAndTypeIndex, "InterfaceMethodref")
}

// GetFieldView resolves a Fieldref entry.
func (p *Pool) GetFieldView(index uint16) (NatView, error) {
	e, err := p.entryAt(index)
	if err != nil {
		return NatView{}, err
	}
	f, ok := e.(*classfile.ConstantFieldref)
	if !ok {
		return NatView{}, &ErrKindMismatch{Index: index, Expected: "Fieldref", Actual: kindName(e)}
	}
	return p.getNatView(index, f.ClassIndex, f.NameAndTypeIndex, "Fieldref")
}

// resolveRefNatView resolves the Fieldref/Methodref/InterfaceMethodref
// a MethodHandle's ReferenceIndex points at, whichever shape it is.
func (p *Pool) resolveRefNatView(refIndex uint16) (NatView, error) {
	e, err := p.entryAt(refIndex)
	if err != nil {
		return NatView{}, err
	}
	switch m := e.(type) {
	case *classfile.ConstantFieldref:
		return p.getNatView(refIndex, m.ClassIndex, m.NameAndTypeIndex, "Fieldref")
	case *classfile.ConstantMethodref:
		return p.getNatView(refIndex, m.ClassIndex, m.NameAndTypeIndex, "Methodref")
	case *classfile.ConstantInterfaceMethodref:
		return p.getNatView(refIndex, m.ClassIndex, m.NameAndTypeIndex, "InterfaceMethodref")
	default:
		return NatView{}, &ErrKindMismatch{Index: refIndex, Expected: "Field|Method|InterfaceMethodref", Actual: kindName(e)}
	}
}

// GetMethodHandleView resolves a MethodHandle constant to its REF_ kind
// and the field/method it targets.
func (p *Pool) GetMethodHandleView(index uint16) (MethodHandleView, error) {
	p.mu.Lock()
	if int(index) < len(p.cache) && p.cache[index].kind == cacheHandleView {
		v := p.cache[index].handle
		p.mu.Unlock()
		return v, nil
	}
	p.mu.Unlock()

	e, err := p.entryAt(index)
	if err != nil {
		return MethodHandleView{}, err
	}
	mh, ok := e.(*classfile.ConstantMethodHandle)
	if !ok {
		return MethodHandleView{}, &ErrKindMismatch{Index: index, Expected: "MethodHandle", Actual: kindName(e)}
	}
	ref, err := p.resolveRefNatView(mh.ReferenceIndex)
	if err != nil {
		return MethodHandleView{}, err
	}
	v := MethodHandleView{Kind: HandleKind(mh.ReferenceKind), Ref: ref}
	p.mu.Lock()
	p.cache[index] = cacheCell{kind: cacheHandleView, handle: v}
	p.mu.Unlock()
	return v, nil
}

// GetInvokeDynamicView resolves an InvokeDynamic constant to its
// bootstrap-method index and the NameAndType it targets. The
// bootstrap method table itself lives on the class file, not the RCP;
// callers pair BootstrapIndex with that table.
func (p *Pool) GetInvokeDynamicView(index uint16) (InvokeDynamicView, error) {
	p.mu.Lock()
	if int(index) < len(p.cache) && p.cache[index].kind == cacheInvokeDynamicView {
		v := p.cache[index].invDyn
		p.mu.Unlock()
		return v, nil
	}
	p.mu.Unlock()

	e, err := p.entryAt(index)
	if err != nil {
		return InvokeDynamicView{}, err
	}
	id, ok := e.(*classfile.ConstantInvokeDynamic)
	if !ok {
		return InvokeDynamicView{}, &ErrKindMismatch{Index: index, Expected: "InvokeDynamic", Actual: kindName(e)}
	}
	natEntry, err := p.entryAt(id.NameAndTypeIndex)
	if err != nil {
		return InvokeDynamicView{}, err
	}
	nat, ok := natEntry.(*classfile.ConstantNameAndType)
	if !ok {
		return InvokeDynamicView{}, &ErrKindMismatch{Index: id.NameAndTypeIndex, Expected: "NameAndType", Actual: kindName(natEntry)}
	}
	nameSym, err := p.GetUtf8Sym(nat.NameIndex)
	if err != nil {
		return InvokeDynamicView{}, err
	}
	descSym, err := p.GetUtf8Sym(nat.DescriptorIndex)
	if err != nil {
		return InvokeDynamicView{}, err
	}
	v := InvokeDynamicView{BootstrapIndex: id.BootstrapMethodAttrIndex}
	v.Target.NameSym = nameSym
	v.Target.DescSym = descSym
	p.mu.Lock()
	p.cache[index] = cacheCell{kind: cacheInvokeDynamicView, invDyn: v}
	p.mu.Unlock()
	return v, nil
}

// GetMethodOrInterfaceMethodView resolves either shape -- used by
// polymorphic consumers (e.g. invokespecial, which may target either).
func (p *Pool) GetMethodOrInterfaceMethodView(index uint16) (NatView, error) {
	e, err := p.entryAt(index)
	if err != nil {
		return NatView{}, err
	}
	switch m := e.(type) {
	case *classfile.ConstantMethodref:
		return p.getNatView(index, m.ClassIndex, m.NameAndTypeIndex, "Methodref")
	case *classfile.ConstantInterfaceMethodref:
		return p.getNatView(index, m.ClassIndex, m.NameAndTypeIndex, "InterfaceMethodref")
	default:
		return NatView{}, &ErrKindMismatch{Index: index, Expected: "Method|InterfaceMethod", Actual: kindName(e)}
	}
}

// ConstantKind is returned from GetConstant so polymorphic consumers
// like ldc can dispatch on shape.
type ConstantKind uint8

const (
	ConstInt ConstantKind = iota
	ConstLong
	ConstFloat
	ConstDouble
	ConstStringSym
	ConstClassSym
	ConstMethodHandle
	ConstMethodType
	ConstInvokeDynamic
)

// Constant is the tagged result of GetConstant.
type Constant struct {
	Kind   ConstantKind
	I      int32
	L      int64
	F      float32
	D      float64
	Sym    types.Symbol
	Handle MethodHandleView
	Dyn    InvokeDynamicView
}

// GetConstant dispatches on the constant-pool tag at index, for ldc /
// ldc_w / ldc2_w.
func (p *Pool) GetConstant(index uint16) (Constant, error) {
	e, err := p.entryAt(index)
	if err != nil {
		return Constant{}, err
	}
	switch c := e.(type) {
	case *classfile.ConstantInteger:
		return Constant{Kind: ConstInt, I: c.Value}, nil
	case *classfile.ConstantLong:
		return Constant{Kind: ConstLong, L: c.Value}, nil
	case *classfile.ConstantFloat:
		return Constant{Kind: ConstFloat, F: c.Value}, nil
	case *classfile.ConstantDouble:
		return Constant{Kind: ConstDouble, D: c.Value}, nil
	case *classfile.ConstantString:
		sym, err := p.GetStringSym(index)
		if err != nil {
			return Constant{}, err
		}
		return Constant{Kind: ConstStringSym, Sym: sym}, nil
	case *classfile.ConstantClass:
		sym, err := p.GetClassSym(index)
		if err != nil {
			return Constant{}, err
		}
		return Constant{Kind: ConstClassSym, Sym: sym}, nil
	case *classfile.ConstantMethodType:
		sym, err := p.GetUtf8Sym(c.DescriptorIndex)
		if err != nil {
			return Constant{}, err
		}
		return Constant{Kind: ConstMethodType, Sym: sym}, nil
	case *classfile.ConstantMethodHandle:
		v, err := p.GetMethodHandleView(index)
		if err != nil {
			return Constant{}, err
		}
		return Constant{Kind: ConstMethodHandle, Handle: v}, nil
	case *classfile.ConstantInvokeDynamic:
		v, err := p.GetInvokeDynamicView(index)
		if err != nil {
			return Constant{}, err
		}
		return Constant{Kind: ConstInvokeDynamic, Dyn: v}, nil
	default:
		return Constant{}, &ErrKindMismatch{Index: index, Expected: "loadable constant", Actual: kindName(e)}
	}
}

func kindName(e classfile.ConstantPoolEntry) string {
	if e == nil {
		return "<nil>"
	}
	switch e.(type) {
	case *classfile.ConstantUtf8:
		return "Utf8"
	case *classfile.ConstantClass:
		return "Class"
	case *classfile.ConstantString:
		return "String"
	case *classfile.ConstantFieldref:
		return "Fieldref"
	case *classfile.ConstantMethodref:
		return "Methodref"
	case *classfile.ConstantInterfaceMethodref:
		return "InterfaceMethodref"
	case *classfile.ConstantNameAndType:
		return "NameAndType"
	case *classfile.ConstantInteger:
		return "Integer"
	case *classfile.ConstantLong:
		return "Long"
	case *classfile.ConstantFloat:
		return "Float"
	case *classfile.ConstantDouble:
		return "Double"
	case *classfile.ConstantMethodHandle:
		return "MethodHandle"
	case *classfile.ConstantMethodType:
		return "MethodType"
	case *classfile.ConstantDynamic:
		return "Dynamic"
	case *classfile.ConstantInvokeDynamic:
		return "InvokeDynamic"
	default:
		return "unknown"
	}
}
