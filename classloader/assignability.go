/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-4 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package classloader

import "jacobin/vm2/types"

// IsSubclassOf reports whether sub's superclass chain includes super,
// or sub == super.
func (ma *MethodArea) IsSubclassOf(sub, super types.ClassId) bool {
	for id := sub; id != 0; {
		if id == super {
			return true
		}
		c := ma.ClassByID(id)
		if c == nil {
			return false
		}
		id = c.SuperId
	}
	return false
}

// IsAssignableFrom reports whether a value of class source can be
// assigned to a variable of class target: target is source's
// superclass, or target is an interface source (or an ancestor of
// source) implements, or both are array classes whose element types
// satisfy the same rule.
func (ma *MethodArea) IsAssignableFrom(target, source types.ClassId) bool {
	if target == source {
		return true
	}
	tc := ma.ClassByID(target)
	sc := ma.ClassByID(source)
	if tc == nil || sc == nil {
		return false
	}

	if tc.Kind == KindInterface {
		for id := source; id != 0; {
			c := ma.ClassByID(id)
			if c == nil {
				break
			}
			if c.AllInterfaces[target] {
				return true
			}
			id = c.SuperId
		}
		return false
	}

	if sc.Kind == KindPrimitiveArray || sc.Kind == KindObjectArray {
		if tc.Kind != sc.Kind {
			// An array is still assignable to java.lang.Object; array
			// classes record no interfaces, so the interface branch above
			// does not match Cloneable or Serializable. Anything else
			// requires matching array kinds.
			return ma.IsSubclassOf(source, target)
		}
		if sc.Kind == KindPrimitiveArray {
			return tc.ElementTag == sc.ElementTag
		}
		return ma.IsAssignableFrom(tc.ElementClassId, sc.ElementClassId)
	}

	return ma.IsSubclassOf(source, target)
}

// InstanceOf reports whether the object whose class is objClassId
// satisfies an instanceof check against targetClassId -- a thin,
// more readable alias over IsAssignableFrom for interpreter call
// sites.
func (ma *MethodArea) InstanceOf(objClassId, targetClassId types.ClassId) bool {
	return ma.IsAssignableFrom(targetClassId, objClassId)
}
