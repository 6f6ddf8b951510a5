/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-4 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package classloader

import (
	"jacobin/vm2/excNames"
	"jacobin/vm2/types"
)

// ResolveStaticField walks startId's superclass chain and then its
// transitive interfaces looking for a declared static field named key;
// the whole superclass chain is searched before any interface. Returns the owning
// class's StaticSlot so getstatic/putstatic share one lock per field.
func (ma *MethodArea) ResolveStaticField(startId types.ClassId, key types.FieldKey) (*StaticSlot, error) {
	for id := startId; id != 0; {
		c := ma.ClassByID(id)
		if c == nil {
			break
		}
		c.staticsMu.RLock()
		slot, ok := c.Statics[key]
		c.staticsMu.RUnlock()
		if ok {
			return slot, nil
		}
		id = c.SuperId
	}

	start := ma.ClassByID(startId)
	if start != nil {
		for ifid := range start.AllInterfaces {
			iface := ma.ClassByID(ifid)
			if iface == nil {
				continue
			}
			iface.staticsMu.RLock()
			slot, ok := iface.Statics[key]
			iface.staticsMu.RUnlock()
			if ok {
				return slot, nil
			}
		}
	}

	return nil, linkErrf(excNames.NoSuchFieldError, "%s", nameSymString(ma, key.Name))
}
