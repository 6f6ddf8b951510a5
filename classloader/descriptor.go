/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-4 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package classloader

import (
	"jacobin/vm2/heap"
	"jacobin/vm2/types"
)

// FieldDescriptor is the parsed shape of a field's type descriptor:
// enough to size and tag a heap slot for it.
type FieldDescriptor struct {
	Symbol types.Symbol
	Kind   heap.FieldType
}

// MethodDescriptor is the parsed shape of a method's descriptor:
// its parameter kinds (for argument-count and locals-slot sizing)
// and its return kind.
type MethodDescriptor struct {
	Symbol     types.Symbol
	Params     []heap.FieldType
	Return     heap.FieldType
	ReturnVoid bool
}

// ParamCount is the number of operand-stack cells a call consumes for
// arguments (excluding the receiver).
func (d *MethodDescriptor) ParamCount() int { return len(d.Params) }

// parseFieldType maps a single field-descriptor string
// ("I", "Z", "[B", "Ljava/lang/String;", ...) to the heap.FieldType
// used to size and tag its slot. Object and array types both become
// FieldRef: the heap stores a HeapRef for either.
func parseFieldType(desc string) heap.FieldType {
	if len(desc) == 0 {
		return heap.FieldRef
	}
	switch desc[0] {
	case 'Z':
		return heap.FieldBoolean
	case 'B':
		return heap.FieldByte
	case 'C':
		return heap.FieldChar
	case 'S':
		return heap.FieldShort
	case 'I':
		return heap.FieldInt
	case 'J':
		return heap.FieldLong
	case 'F':
		return heap.FieldFloat
	case 'D':
		return heap.FieldDouble
	case 'L', '[':
		return heap.FieldRef
	default:
		return heap.FieldRef
	}
}

// fieldTypeWidth returns the descriptor-string length of one field
// type starting at desc[i], used to walk a method descriptor's
// parameter list one type at a time.
func fieldTypeWidth(desc string, i int) int {
	switch desc[i] {
	case 'L':
		j := i
		for j < len(desc) && desc[j] != ';' {
			j++
		}
		return j - i + 1
	case '[':
		return 1 + fieldTypeWidth(desc, i+1)
	default:
		return 1
	}
}

// parseMethodDescriptor splits a method descriptor
// "(ILjava/lang/String;)V" into its parameter kinds and return kind.
func parseMethodDescriptor(sym types.Symbol, desc string) MethodDescriptor {
	md := MethodDescriptor{Symbol: sym}
	if len(desc) == 0 || desc[0] != '(' {
		return md
	}
	i := 1
	for i < len(desc) && desc[i] != ')' {
		w := fieldTypeWidth(desc, i)
		md.Params = append(md.Params, parseFieldType(desc[i:i+w]))
		i += w
	}
	if i+1 <= len(desc) {
		ret := desc[i+1:]
		if ret == "V" {
			md.ReturnVoid = true
		} else {
			md.Return = parseFieldType(ret)
		}
	}
	return md
}

// internFieldDescriptor returns the FieldDescriptorId for sym/desc,
// parsing and caching it on first use.
func (ma *MethodArea) internFieldDescriptor(sym types.Symbol, desc string) types.FieldDescriptorId {
	ma.mu.Lock()
	defer ma.mu.Unlock()
	if id, ok := ma.fieldDescIndex[sym]; ok {
		return id
	}
	ma.fieldDescs = append(ma.fieldDescs, FieldDescriptor{Symbol: sym, Kind: parseFieldType(desc)})
	id := types.FieldDescriptorId(len(ma.fieldDescs))
	ma.fieldDescIndex[sym] = id
	return id
}

// internMethodDescriptor returns the MethodDescriptorId for sym/desc,
// parsing and caching it on first use.
func (ma *MethodArea) internMethodDescriptor(sym types.Symbol, desc string) types.MethodDescriptorId {
	ma.mu.Lock()
	defer ma.mu.Unlock()
	if id, ok := ma.methodDescIndex[sym]; ok {
		return id
	}
	parsed := parseMethodDescriptor(sym, desc)
	ma.methodDescs = append(ma.methodDescs, parsed)
	id := types.MethodDescriptorId(len(ma.methodDescs))
	ma.methodDescIndex[sym] = id
	return id
}

// FieldDescriptorByID returns the parsed field descriptor for id.
func (ma *MethodArea) FieldDescriptorByID(id types.FieldDescriptorId) FieldDescriptor {
	ma.mu.RLock()
	defer ma.mu.RUnlock()
	return ma.fieldDescs[id-1]
}

// MethodDescriptorByID returns the parsed method descriptor for id.
func (ma *MethodArea) MethodDescriptorByID(id types.MethodDescriptorId) MethodDescriptor {
	ma.mu.RLock()
	defer ma.mu.RUnlock()
	return ma.methodDescs[id-1]
}
