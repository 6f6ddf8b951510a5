/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-4 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package classloader

import (
	"jacobin/vm2/bootstrap"
	"jacobin/vm2/types"
)

// primitiveTagFor maps a single array-descriptor element letter
// (Z B C S I F J D) to its PrimitiveTag, per the JVM SE spec's
// array-type descriptor grammar.
func primitiveTagFor(letter byte) (types.PrimitiveTag, bool) {
	switch letter {
	case 'Z':
		return types.TagBoolean, true
	case 'B':
		return types.TagByte, true
	case 'C':
		return types.TagChar, true
	case 'S':
		return types.TagShort, true
	case 'I':
		return types.TagInt, true
	case 'F':
		return types.TagFloat, true
	case 'J':
		return types.TagLong, true
	case 'D':
		return types.TagDouble, true
	default:
		return 0, false
	}
}

// loadArrayClass synthesizes the Class for an array type name
// ("[I", "[[Ljava/lang/String;", "[Ljava/lang/Object;", ...). Its
// superclass is always java.lang.Object, and the array class shares
// Object's vtable by copy (arrays expose Object's methods and nothing
// of their own).
func (ma *MethodArea) loadArrayClass(name string, provider ClassByteProvider) (types.ClassId, error) {
	objectId, err := ma.GetClassIdOrLoad(bootstrap.Object, provider)
	if err != nil {
		return 0, err
	}
	object := ma.ClassByID(objectId)

	rest := name[1:]
	c := &Class{
		NameSym:       ma.in.Intern(name),
		SuperId:       objectId,
		AllInterfaces: make(map[types.ClassId]bool),
		Statics:       make(map[types.FieldKey]*StaticSlot),
	}
	c.VTable = append(c.VTable, object.VTable...)
	c.VTableIndex = make(map[types.MethodKey]uint16, len(object.VTableIndex))
	for k, v := range object.VTableIndex {
		c.VTableIndex[k] = v
	}

	if tag, ok := primitiveTagFor(rest[0]); ok && len(rest) == 1 {
		c.Kind = KindPrimitiveArray
		c.ElementTag = tag
	} else {
		c.Kind = KindObjectArray
		var elemName string
		switch {
		case rest[0] == '[':
			elemName = rest
		case rest[0] == 'L':
			elemName = rest[1 : len(rest)-1] // strip "L" and trailing ";"
		default:
			elemName = rest
		}
		elemId, err := ma.GetClassIdOrLoad(elemName, provider)
		if err != nil {
			return 0, err
		}
		c.ElementClassId = elemId
	}

	id := ma.registerClass(c)
	c.setState(StateLinked)
	return id, nil
}
