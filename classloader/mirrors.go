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

// GetMirrorRefOrCreate returns the java.lang.Class instance mirroring
// id, allocating it on first request. The mirror's
// instance size comes from java.lang.Class itself, so Class must
// already be loaded before any other mirror is requested -- true from
// the moment the boot sequence runs.
func (ma *MethodArea) GetMirrorRefOrCreate(id types.ClassId) (types.HeapRef, error) {
	c := ma.ClassByID(id)
	if c == nil {
		return types.NullRef, linkErrf(bootstrap.Class, "no such class id")
	}

	c.mirrorMu.Lock()
	defer c.mirrorMu.Unlock()
	if c.Mirror != types.NullRef {
		return c.Mirror, nil
	}

	classClassId := ma.boot.Resolved(bootstrap.Class)
	classClass := ma.ClassByID(classClassId)
	size := 0
	if classClass != nil {
		size = classClass.InstanceSize
	}

	ref, err := ma.heap.AllocInstance(size, classClassId)
	if err != nil {
		return types.NullRef, err
	}
	c.Mirror = ref
	ma.RecordMirror(ref, id)
	return ref, nil
}
