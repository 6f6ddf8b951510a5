/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-4 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package classloader is the method area: it owns the authoritative,
// append-only vectors of classes, methods, and parsed descriptors, the
// name→ClassId index, the four-phase linker, array-class synthesis,
// assignability, and java.lang.Class mirrors.
package classloader

import (
	"sync"
	"sync/atomic"

	"jacobin/vm2/bootstrap"
	"jacobin/vm2/classfile"
	"jacobin/vm2/heap"
	"jacobin/vm2/interner"
	"jacobin/vm2/rtpool"
	"jacobin/vm2/types"
)

// Kind distinguishes the five class variants this VM models. Go has
// no sum types, so one Class struct carries every variant's fields;
// only the ones meaningful to Kind are populated.
type Kind uint8

const (
	KindInstance Kind = iota
	KindInterface
	KindPrimitiveArray
	KindObjectArray
	KindPrimitive
)

// InitState is a class's monotonic linking/initialization state:
// Loaded, then Linked, then Initializing, then Initialized.
type InitState int32

const (
	StateLoaded InitState = iota
	StateLinked
	StateInitializing
	StateInitialized
)

// InstanceField is one entry of an InstanceClass's field layout:
// declaring class, descriptor, and the stable byte offset computed
// once during linking.
type InstanceField struct {
	Key         types.FieldKey
	DescId      types.FieldDescriptorId
	Kind        heap.FieldType
	Offset      int
	Owner       types.ClassId
	AccessFlags uint16
}

// StaticSlot is one static field's independently-lockable boxed
// value.
type StaticSlot struct {
	mu    sync.RWMutex
	Value types.Value
	Owner types.ClassId
}

func (s *StaticSlot) Get() types.Value {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Value
}

func (s *StaticSlot) Set(v types.Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Value = v
}

// MethodBody tags which of the three method-body variants
// (Interpreted, Native, Abstract) a Method carries.
type MethodBody uint8

const (
	BodyInterpreted MethodBody = iota
	BodyNative
	BodyAbstract
)

// Method is one method_info's runtime form, addressable by its dense
// MethodId.
type Method struct {
	Id          types.MethodId
	Owner       types.ClassId
	Key         types.MethodKey
	DescId      types.MethodDescriptorId
	AccessFlags uint16
	Body        MethodBody
	Code        *classfile.CodeAttribute // non-nil iff Body == BodyInterpreted
}

func (m *Method) IsStatic() bool { return m.AccessFlags&classfile.AccStatic != 0 }
func (m *Method) IsNative() bool { return m.Body == BodyNative }

// Class is the method area's runtime representation of a loaded
// class: a BaseClass plus whichever
// variant fields its Kind uses.
type Class struct {
	Id          types.ClassId
	NameSym     types.Symbol
	Kind        Kind
	AccessFlags uint16
	SuperId     types.ClassId // 0 for java.lang.Object and primitives
	SourceFile  types.Symbol

	state InitState // read/written via atomic ops: monotonic linking/init state

	// AllInterfaces is the transitive closure; DirectInterfaces is what
	// the class_file itself declares.
	AllInterfaces    map[types.ClassId]bool
	DirectInterfaces []types.ClassId

	staticsMu sync.RWMutex
	Statics   map[types.FieldKey]*StaticSlot

	ClinitId types.MethodId // 0 if the class has no <clinit>

	mirrorMu sync.Mutex
	Mirror   types.HeapRef // 0 until GetMirrorRefOrCreate allocates it

	// Instance/Interface-only:
	Pool               *rtpool.Pool
	DeclaredMethodIndex map[types.MethodKey]types.MethodId // statics + <init>; interfaces: all declared and inherited default methods
	VTable              []types.MethodId
	VTableIndex         map[types.MethodKey]uint16
	ITable              map[types.MethodKey]types.MethodId
	Fields              []InstanceField
	FieldsByKey         map[types.FieldKey]*InstanceField
	FieldsByName        map[types.Symbol]*InstanceField
	InstanceSize        int

	// Array-only:
	ElementClassId types.ClassId   // ObjectArray: element's ClassId
	ElementTag     types.PrimitiveTag // PrimitiveArray: element's tag

	// Primitive-only:
	PrimitiveTag types.PrimitiveTag
}

// State returns the class's current linking/init state.
func (c *Class) State() InitState {
	return InitState(atomic.LoadInt32((*int32)(&c.state)))
}

func (c *Class) setState(s InitState) {
	atomic.StoreInt32((*int32)(&c.state), int32(s))
}

// casState attempts to move the class from `from` to `to`, returning
// whether it won the race -- the CAS guard EnsureInitialized relies
// on to prevent re-entrant <clinit> runs.
func (c *Class) casState(from, to InitState) bool {
	return atomic.CompareAndSwapInt32((*int32)(&c.state), int32(from), int32(to))
}

// MethodArea owns every loaded class and method, keyed by dense,
// never-reused IDs, plus the parsed descriptor tables referenced by
// InstanceField/Method.
type MethodArea struct {
	mu sync.RWMutex

	in   *interner.Interner
	heap *heap.Heap
	boot *bootstrap.Registry

	classesById   []*Class // index 0 unused
	classesByName map[types.Symbol]types.ClassId

	methodsById []*Method // index 0 unused

	fieldDescs      []FieldDescriptor
	fieldDescIndex  map[types.Symbol]types.FieldDescriptorId
	methodDescs     []MethodDescriptor
	methodDescIndex map[types.Symbol]types.MethodDescriptorId

	mirrorToClass map[types.HeapRef]types.ClassId

	prepareHook PrepareHook
}

// PrepareHook is invoked after a class is registered with the method
// area, before its fields and methods are linked. Nil by default; a
// debug agent (JDWP's ClassPrepare event, out of scope for this core)
// is the intended consumer.
type PrepareHook func(types.ClassId)

// SetPrepareHook installs hook as the method area's ClassPrepare
// observer, replacing any previously set hook.
func (ma *MethodArea) SetPrepareHook(hook PrepareHook) {
	ma.mu.Lock()
	defer ma.mu.Unlock()
	ma.prepareHook = hook
}

// New creates an empty method area bound to the given interner, heap,
// and bootstrap registry.
func New(in *interner.Interner, h *heap.Heap, boot *bootstrap.Registry) *MethodArea {
	return &MethodArea{
		in:              in,
		heap:            h,
		boot:            boot,
		classesById:     make([]*Class, 1), // index 0 reserved
		classesByName:   make(map[types.Symbol]types.ClassId),
		methodsById:     make([]*Method, 1),
		fieldDescIndex:  make(map[types.Symbol]types.FieldDescriptorId),
		methodDescIndex: make(map[types.Symbol]types.MethodDescriptorId),
		mirrorToClass:   make(map[types.HeapRef]types.ClassId),
	}
}

// Interner exposes the interner the method area resolves symbols
// against (native code and the interpreter share it).
func (ma *MethodArea) Interner() *interner.Interner { return ma.in }

// Heap exposes the heap the method area allocates mirrors and statics
// into.
func (ma *MethodArea) Heap() *heap.Heap { return ma.heap }

// Bootstrap exposes the pre-interned well-known symbols.
func (ma *MethodArea) Bootstrap() *bootstrap.Registry { return ma.boot }

func (ma *MethodArea) registerClass(c *Class) types.ClassId {
	ma.mu.Lock()
	ma.classesById = append(ma.classesById, c)
	id := types.ClassId(len(ma.classesById) - 1)
	c.Id = id
	ma.classesByName[c.NameSym] = id
	hook := ma.prepareHook
	ma.mu.Unlock()
	if hook != nil {
		hook(id)
	}
	return id
}

func (ma *MethodArea) registerMethod(m *Method) types.MethodId {
	ma.mu.Lock()
	defer ma.mu.Unlock()
	ma.methodsById = append(ma.methodsById, m)
	id := types.MethodId(len(ma.methodsById) - 1)
	m.Id = id
	return id
}

// ClassByID returns the class for a dense ClassId, or nil if out of
// range.
func (ma *MethodArea) ClassByID(id types.ClassId) *Class {
	ma.mu.RLock()
	defer ma.mu.RUnlock()
	if int(id) <= 0 || int(id) >= len(ma.classesById) {
		return nil
	}
	return ma.classesById[id]
}

// ClassIDByName returns the ClassId registered for an interned class
// name symbol, and whether it was found.
func (ma *MethodArea) ClassIDByName(sym types.Symbol) (types.ClassId, bool) {
	ma.mu.RLock()
	defer ma.mu.RUnlock()
	id, ok := ma.classesByName[sym]
	return id, ok
}

// MethodByID returns the method for a dense MethodId, or nil if out
// of range.
func (ma *MethodArea) MethodByID(id types.MethodId) *Method {
	ma.mu.RLock()
	defer ma.mu.RUnlock()
	if int(id) <= 0 || int(id) >= len(ma.methodsById) {
		return nil
	}
	return ma.methodsById[id]
}

// RecordMirror records the reflective HeapRef→ClassId mapping for
// natives that go the other direction (e.g. Class.forName0 results).
func (ma *MethodArea) RecordMirror(ref types.HeapRef, id types.ClassId) {
	ma.mu.Lock()
	defer ma.mu.Unlock()
	ma.mirrorToClass[ref] = id
}

// ClassForMirror is the reverse lookup RecordMirror populates.
func (ma *MethodArea) ClassForMirror(ref types.HeapRef) (types.ClassId, bool) {
	ma.mu.RLock()
	defer ma.mu.RUnlock()
	id, ok := ma.mirrorToClass[ref]
	return id, ok
}
