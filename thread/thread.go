/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-4 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package thread models a single Java thread's execution state: its
// frame stack and the bookkeeping the interpreter needs to propagate
// an exception up through it. The VM starts one Thread for main() and
// never schedules more than one concurrently, but the type still
// carries an identity and a frame stack so native code that reads
// Thread.currentThread() sees something real.
package thread

import (
	"sync"

	"github.com/google/uuid"

	"jacobin/vm2/frames"
	"jacobin/vm2/types"
)

// ID uniquely identifies a thread for the lifetime of the process.
type ID string

// NewID mints a fresh thread identifier.
func NewID() ID {
	return ID(uuid.NewString())
}

// Thread is one Java thread's call stack plus identity.
type Thread struct {
	mu sync.Mutex

	ID      ID
	Name    string
	Daemon  bool
	ObjRef  types.HeapRef // the java.lang.Thread mirror, once created

	stack []frames.Frame
}

// New creates a thread named name with an empty frame stack.
func New(name string) *Thread {
	return &Thread{
		ID:    NewID(),
		Name:  name,
		stack: make([]frames.Frame, 0, 16),
	}
}

// PushFrame pushes f onto the thread's call stack.
func (t *Thread) PushFrame(f frames.Frame) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stack = append(t.stack, f)
}

// PopFrame pops and returns the top frame, or nil if the stack is
// empty.
func (t *Thread) PopFrame() frames.Frame {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := len(t.stack)
	if n == 0 {
		return nil
	}
	f := t.stack[n-1]
	t.stack = t.stack[:n-1]
	return f
}

// CurrentFrame returns the top frame without popping it, or nil if
// the stack is empty.
func (t *Thread) CurrentFrame() frames.Frame {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.stack) == 0 {
		return nil
	}
	return t.stack[len(t.stack)-1]
}

// Depth reports the current call-stack depth.
func (t *Thread) Depth() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.stack)
}

// Frames returns a snapshot of the call stack, innermost frame last,
// for StackTraceElement population.
func (t *Thread) Frames() []frames.Frame {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]frames.Frame, len(t.stack))
	copy(out, t.stack)
	return out
}
