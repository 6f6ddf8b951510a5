/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-4 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package classloader

import (
	"testing"

	"jacobin/vm2/bootstrap"
	"jacobin/vm2/types"
)

func TestGetMirrorRefOrCreateIsIdempotent(t *testing.T) {
	ma := newTestArea(t)
	objId := loadObject(t, ma)

	classSym := ma.Interner().Intern(bootstrap.Class)
	classId, err := ma.loadAndLink(classSym, emptyClassFile(), objId, nil)
	if err != nil {
		t.Fatal(err)
	}
	ma.Bootstrap().RecordResolved(bootstrap.Class, classId)

	ref1, err := ma.GetMirrorRefOrCreate(objId)
	if err != nil {
		t.Fatalf("GetMirrorRefOrCreate failed: %v", err)
	}
	if ref1 == types.NullRef {
		t.Fatal("expected a non-null mirror ref")
	}
	ref2, err := ma.GetMirrorRefOrCreate(objId)
	if err != nil {
		t.Fatal(err)
	}
	if ref1 != ref2 {
		t.Error("second call should return the cached mirror")
	}

	gotId, ok := ma.ClassForMirror(ref1)
	if !ok || gotId != objId {
		t.Errorf("ClassForMirror = (%d, %v), want (%d, true)", gotId, ok, objId)
	}
}
