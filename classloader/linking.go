/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-4 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package classloader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"jacobin/vm2/classfile"
	"jacobin/vm2/excNames"
	"jacobin/vm2/heap"
	"jacobin/vm2/rtpool"
	"jacobin/vm2/trace"
	"jacobin/vm2/types"
)

// LinkError wraps a VM-detected class-loading/linking failure that
// the interpreter maps onto a Java exception object at the catch
// boundary. The method area itself never allocates the Java exception
// instance (that runs through the interpreter); it only carries which
// class and message to use.
type LinkError struct {
	Payload excNames.Payload
}

func (e *LinkError) Error() string {
	msg := e.Payload.Message()
	if msg == "" {
		return e.Payload.ClassName
	}
	return e.Payload.ClassName + ": " + msg
}

func linkErrf(className, format string, args ...interface{}) *LinkError {
	return &LinkError{Payload: excNames.NewPayload(className, func() string {
		return fmt.Sprintf(format, args...)
	})}
}

// ClassByteProvider reads the raw bytes of a named class ("java/lang/Object"
// style, no ".class" suffix) from wherever the host chooses -- platform
// module image, classpath directory, jar. The method area has zero
// knowledge of its implementation.
type ClassByteProvider func(name string) ([]byte, error)

// ClasspathProvider builds a ClassByteProvider that searches an
// ordered list of classpath directories for <name>.class. Jars are
// explicitly out of scope for the core.
func ClasspathProvider(dirs []string) ClassByteProvider {
	return func(name string) ([]byte, error) {
		rel := strings.ReplaceAll(name, "/", string(os.PathSeparator)) + ".class"
		for _, dir := range dirs {
			data, err := os.ReadFile(filepath.Join(dir, rel))
			if err == nil {
				return data, nil
			}
		}
		return nil, linkErrf(excNames.ClassNotFoundException, "%s", name)
	}
}

// GetClassIdOrLoad resolves name to a ClassId, loading and linking it
// (and its superclass, recursively) if this is the first reference,
// or returning the existing id if it was loaded already.
func (ma *MethodArea) GetClassIdOrLoad(name string, provider ClassByteProvider) (types.ClassId, error) {
	sym := ma.in.Intern(name)
	if id, ok := ma.ClassIDByName(sym); ok {
		return id, nil
	}
	if strings.HasPrefix(name, "[") {
		return ma.loadArrayClass(name, provider)
	}

	data, err := provider(name)
	if err != nil {
		return 0, linkErrf(excNames.ClassNotFoundException, "%s", name)
	}
	cf, err := classfile.ParseBytes(data)
	if err != nil {
		return 0, linkErrf(excNames.ClassFormatError, "%s: %v", name, err)
	}

	var superId types.ClassId
	if superName := cf.SuperClassName(); superName != "" {
		superId, err = ma.GetClassIdOrLoad(superName, provider)
		if err != nil {
			return 0, err
		}
	}

	id, err := ma.loadAndLink(sym, cf, superId, provider)
	if err != nil {
		return 0, err
	}
	trace.Trace("classloader: loaded " + name)
	return id, nil
}

// loadAndLink runs the four linking phases over a parsed ClassFile and
// registers the resulting Class.
func (ma *MethodArea) loadAndLink(nameSym types.Symbol, cf *classfile.ClassFile, superId types.ClassId, provider ClassByteProvider) (types.ClassId, error) {
	// Phase 1: Load.
	c := &Class{
		NameSym:       nameSym,
		Kind:          KindInstance,
		AccessFlags:   cf.AccessFlags,
		SuperId:       superId,
		AllInterfaces: make(map[types.ClassId]bool),
		Statics:       make(map[types.FieldKey]*StaticSlot),
		DeclaredMethodIndex: make(map[types.MethodKey]types.MethodId),
		VTableIndex:         make(map[types.MethodKey]uint16),
		ITable:              make(map[types.MethodKey]types.MethodId),
		FieldsByKey:         make(map[types.FieldKey]*InstanceField),
		FieldsByName:        make(map[types.Symbol]*InstanceField),
	}
	if cf.AccessFlags&classfile.AccInterface != 0 {
		c.Kind = KindInterface
	}
	if cf.SourceFile != "" {
		c.SourceFile = ma.in.Intern(cf.SourceFile)
	}
	c.Pool = rtpool.New(cf, ma.in)
	id := ma.registerClass(c)

	// Phase 2: Fields.
	var super *Class
	if superId != 0 {
		super = ma.ClassByID(superId)
		c.Fields = append(c.Fields, super.Fields...)
		c.InstanceSize = super.InstanceSize
		for k, v := range super.FieldsByKey {
			c.FieldsByKey[k] = v
		}
		for k, v := range super.FieldsByName {
			c.FieldsByName[k] = v
		}
	}
	for _, fi := range cf.Fields {
		nameSym := ma.in.Intern(cf.Utf8(fi.NameIndex))
		descStr := cf.Utf8(fi.DescIndex)
		descSym := ma.in.Intern(descStr)
		key := types.FieldKey{Name: nameSym, Desc: descSym}
		kind := parseFieldType(descStr)
		descId := ma.internFieldDescriptor(descSym, descStr)

		if fi.AccessFlags&classfile.AccStatic != 0 {
			c.Statics[key] = &StaticSlot{Value: zeroValue(kind), Owner: id}
			continue
		}
		width := fieldByteWidth(kind)
		c.InstanceSize = alignUpInt(c.InstanceSize, width)
		field := InstanceField{
			Key:         key,
			DescId:      descId,
			Kind:        kind,
			Offset:      c.InstanceSize,
			Owner:       id,
			AccessFlags: fi.AccessFlags,
		}
		c.InstanceSize += width
		c.Fields = append(c.Fields, field)
		// Overwriting by key/name on purpose: a subclass field with the
		// same name as an inherited one shadows it for name-only lookup,
		// but both remain addressable distinctly through FieldsByKey vs
		// a declaring-class-qualified lookup -- see getfield/putfield.
		fp := &c.Fields[len(c.Fields)-1]
		c.FieldsByKey[key] = fp
		c.FieldsByName[nameSym] = fp
	}

	// Phase 3: Methods.
	if super != nil {
		c.VTable = append(c.VTable, super.VTable...)
		for k, v := range super.VTableIndex {
			c.VTableIndex[k] = v
		}
	}
	for _, mi := range cf.Methods {
		nameSym := ma.in.Intern(cf.Utf8(mi.NameIndex))
		descStr := cf.Utf8(mi.DescIndex)
		descSym := ma.in.Intern(descStr)
		key := types.MethodKey{Name: nameSym, Desc: descSym}
		descId := ma.internMethodDescriptor(descSym, descStr)

		m := &Method{
			Owner:       id,
			Key:         key,
			DescId:      descId,
			AccessFlags: mi.AccessFlags,
		}
		code := mi.Code
		if code == nil {
			for _, a := range mi.Attributes {
				if cf.Utf8(a.NameIndex) != "Code" {
					continue
				}
				ca, err := classfile.ParseCodeAttribute(a.Data)
				if err != nil {
					return 0, linkErrf(excNames.ClassFormatError, "%s: bad Code attribute: %v", nameSymString(ma, c.NameSym), err)
				}
				code = ca
			}
		}
		switch {
		case mi.AccessFlags&classfile.AccNative != 0:
			m.Body = BodyNative
		case code == nil:
			m.Body = BodyAbstract
		default:
			m.Body = BodyInterpreted
			m.Code = code
		}
		mid := ma.registerMethod(m)

		clinitSym := ma.boot.ClinitName
		isInit := nameSym == ma.boot.InitName
		isClinit := nameSym == clinitSym
		isStatic := mi.AccessFlags&classfile.AccStatic != 0

		switch {
		case isClinit:
			c.ClinitId = mid
		case isStatic || isInit:
			c.DeclaredMethodIndex[key] = mid
		default:
			if slot, ok := c.VTableIndex[key]; ok {
				c.VTable[slot] = mid // override: reuse the superclass's slot
			} else {
				c.VTable = append(c.VTable, mid)
				c.VTableIndex[key] = uint16(len(c.VTable) - 1)
			}
		}
	}

	// Phase 4: Interfaces & itable.
	if super != nil {
		for iid := range super.AllInterfaces {
			c.AllInterfaces[iid] = true
		}
	}
	for _, idx := range cf.Interfaces {
		ifaceName := cf.ClassName(idx)
		ifaceId, err := ma.GetClassIdOrLoad(ifaceName, provider)
		if err != nil {
			return 0, err
		}
		c.DirectInterfaces = append(c.DirectInterfaces, ifaceId)
		c.AllInterfaces[ifaceId] = true
		iface := ma.ClassByID(ifaceId)
		for ifid := range iface.AllInterfaces {
			c.AllInterfaces[ifid] = true
		}
		for key, mid := range iface.DeclaredMethodIndex {
			if _, ok := c.VTableIndex[key]; ok {
				continue
			}
			m := ma.MethodByID(mid)
			if m.Body == BodyAbstract {
				continue
			}
			// Default (non-abstract) interface method missing from the
			// class's vtable: inherit it by appending.
			c.VTable = append(c.VTable, mid)
			c.VTableIndex[key] = uint16(len(c.VTable) - 1)
			c.ITable[key] = mid
		}
		for key := range iface.VTableIndex {
			if slot, ok := c.VTableIndex[key]; ok {
				c.ITable[key] = c.VTable[slot]
			}
		}
	}
	if c.Kind == KindInterface {
		// Interfaces carry their own declared-method index (keyed by
		// MethodKey -> MethodId) rather than a vtable; reuse
		// DeclaredMethodIndex for every declared method, not just
		// statics/<init>, so the Phase 4 interface walk of a class that
		// implements this interface can resolve default methods through it.
		for _, mi := range cf.Methods {
			nameSym := ma.in.Intern(cf.Utf8(mi.NameIndex))
			descSym := ma.in.Intern(cf.Utf8(mi.DescIndex))
			key := types.MethodKey{Name: nameSym, Desc: descSym}
			if _, ok := c.DeclaredMethodIndex[key]; !ok {
				if mid, ok2 := ma.findMethodIdForInterface(c, key); ok2 {
					c.DeclaredMethodIndex[key] = mid
				}
			}
		}
		// Default methods this interface doesn't declare itself but
		// inherits from a superinterface must also surface here, or a
		// class two levels down that only extends this interface
		// never sees them (AllInterfaces already walks transitively;
		// DeclaredMethodIndex needs to match it).
		for ifid := range c.AllInterfaces {
			iface := ma.ClassByID(ifid)
			if iface == nil {
				continue
			}
			for key, mid := range iface.DeclaredMethodIndex {
				if _, ok := c.DeclaredMethodIndex[key]; ok {
					continue
				}
				m := ma.MethodByID(mid)
				if m.Body == BodyAbstract {
					continue
				}
				c.DeclaredMethodIndex[key] = mid
			}
		}
	} else if cf.AccessFlags&classfile.AccAbstract == 0 {
		if ma.unresolvedInterfaceMethod(c) != nil {
			return 0, linkErrf(excNames.AbstractMethodError, "%s does not implement an inherited abstract method", nameSymString(ma, nameSym))
		}
	}

	c.setState(StateLinked)
	return id, nil
}

func (ma *MethodArea) findMethodIdForInterface(c *Class, key types.MethodKey) (types.MethodId, bool) {
	for _, mi := range ma.methodsOwnedBy(c.Id) {
		if mi.Key == key {
			return mi.Id, true
		}
	}
	return 0, false
}

func (ma *MethodArea) methodsOwnedBy(id types.ClassId) []*Method {
	ma.mu.RLock()
	defer ma.mu.RUnlock()
	var out []*Method
	for _, m := range ma.methodsById {
		if m != nil && m.Owner == id {
			out = append(out, m)
		}
	}
	return out
}

// unresolvedInterfaceMethod reports an interface MethodKey that
// AllInterfaces promises but neither the vtable nor the itable
// resolves. Returns nil if every interface method resolved.
func (ma *MethodArea) unresolvedInterfaceMethod(c *Class) *types.MethodKey {
	for ifid := range c.AllInterfaces {
		iface := ma.ClassByID(ifid)
		for key, mid := range iface.DeclaredMethodIndex {
			m := ma.MethodByID(mid)
			if m.Body == BodyAbstract {
				if _, ok := c.VTableIndex[key]; !ok {
					return &key
				}
			}
		}
	}
	return nil
}

func nameSymString(ma *MethodArea, sym types.Symbol) string {
	s, _ := ma.in.Resolve(sym)
	return s
}

// zeroValue is a static field's initial value before <clinit> runs:
// statics default to the type's zero value.
func zeroValue(kind heap.FieldType) types.Value {
	switch kind {
	case heap.FieldLong:
		return types.Long(0)
	case heap.FieldFloat:
		return types.Float(0)
	case heap.FieldDouble:
		return types.Double(0)
	case heap.FieldRef:
		return types.Null()
	default:
		return types.Integer(0)
	}
}

// fieldByteWidth is the in-object storage width of a field of kind,
// matching the widths heap.ReadField/WriteField assume.
func fieldByteWidth(kind heap.FieldType) int {
	switch kind {
	case heap.FieldBoolean, heap.FieldByte:
		return 1
	case heap.FieldChar, heap.FieldShort:
		return 2
	case heap.FieldInt, heap.FieldFloat:
		return 4
	default: // Long, Double, Ref
		return 8
	}
}

func alignUpInt(n, width int) int {
	if width <= 0 {
		return n
	}
	return (n + width - 1) / width * width
}
