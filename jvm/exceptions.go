/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-4 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package jvm

import (
	"fmt"

	"jacobin/vm2/classloader"
	"jacobin/vm2/excNames"
	"jacobin/vm2/frames"
	"jacobin/vm2/heap"
	"jacobin/vm2/thread"
	"jacobin/vm2/types"
)

// raise builds the *classloader.LinkError the rest of the interpreter
// uses as its one vocabulary for "a Java exception needs to be
// thrown here," whether the condition was detected deep inside the
// method area (a missing field) or right here in the dispatch loop (a
// null dereference, a division by zero). classloader.LinkError
// already carries a lazily-formatted excNames.Payload, so reusing it
// means catch-handling code only ever has to branch on one error
// shape.
func raise(className, format string, args ...interface{}) *classloader.LinkError {
	return &classloader.LinkError{Payload: excNames.NewPayload(className, func() string {
		if format == "" {
			return ""
		}
		return fmt.Sprintf(format, args...)
	})}
}

func raiseSimple(className, message string) *classloader.LinkError {
	return &classloader.LinkError{Payload: excNames.Simple(className, message)}
}

// materialize turns a LinkError into a live Throwable instance on the
// heap: loads and initializes the named exception class, allocates an
// instance, and -- when java.lang.Throwable declares a detailMessage
// field -- writes the formatted message into it. The result is what
// athrow, a native's thrown LinkError, or a VM-detected condition
// actually pushes as the caught exception object.
func (it *Interp) materialize(th *thread.Thread, le *classloader.LinkError) (types.HeapRef, error) {
	classId, err := it.MA.GetClassIdOrLoad(le.Payload.ClassName, it.Provider)
	if err != nil {
		return 0, err
	}
	if err := it.ensureInitialized(th, classId); err != nil {
		return 0, err
	}
	c := it.MA.ClassByID(classId)
	ref, err := it.heap().AllocInstance(c.InstanceSize, classId)
	if err != nil {
		return 0, err
	}

	if msg := le.Payload.Message(); msg != "" {
		if field, ok := c.FieldsByName[it.detailMessageSym()]; ok && field.Kind == heap.FieldRef {
			sref, err := it.allocString(msg)
			if err == nil {
				_ = it.heap().WriteField(ref, field.Offset, heap.FieldRef, types.Ref(sref))
			}
		}
	}
	return ref, nil
}

// catchHandlerFor searches frame's exception table for a handler
// whose catch type (resolved against frame's own constant pool) is
// assignable from the thrown exception's class, returning the handler
// PC or -1.
func (it *Interp) catchHandlerFor(frame *frames.JavaFrame, excClassId types.ClassId) int {
	pool := it.MA.ClassByID(frame.Class).Pool
	return frame.HandlerFor(frame.PC, func(catchType uint16) bool {
		name, err := pool.GetClassSym(catchType)
		if err != nil {
			return false
		}
		targetId, ok := it.MA.ClassIDByName(name)
		if !ok {
			// The catch type has never been loaded, so no exception of
			// this or a subclass has ever been thrown against it either.
			return false
		}
		return it.MA.IsAssignableFrom(targetId, excClassId)
	})
}

func (it *Interp) detailMessageSym() types.Symbol {
	return it.MA.Interner().Intern("detailMessage")
}
