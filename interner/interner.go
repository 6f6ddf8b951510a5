/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-4 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package interner hash-conses strings into stable Symbol IDs. Every
// class, field, and method name and descriptor in the VM is stored
// and compared as a Symbol rather than a string, so that comparisons
// used on hot paths (vtable lookup, constant-pool caching) are simple
// integer equality.
package interner

import (
	"sync"

	"jacobin/vm2/types"
)

// Interner is thread-safe and append-only: once a string is interned
// its Symbol is stable for the lifetime of the VM.
type Interner struct {
	mu      sync.RWMutex
	strings []string
	ids     map[string]types.Symbol
}

// New returns an empty Interner. Symbol 0 (types.NoSymbol) is never
// handed out; the backing slice carries a placeholder at index 0 so
// that Symbol values double as slice indices.
func New() *Interner {
	return &Interner{
		strings: []string{""},
		ids:     make(map[string]types.Symbol),
	}
}

// Intern returns the stable Symbol for s, assigning a new one the
// first time s is seen.
func (in *Interner) Intern(s string) types.Symbol {
	in.mu.RLock()
	if id, ok := in.ids[s]; ok {
		in.mu.RUnlock()
		return id
	}
	in.mu.RUnlock()

	in.mu.Lock()
	defer in.mu.Unlock()
	if id, ok := in.ids[s]; ok {
		return id
	}
	id := types.Symbol(len(in.strings))
	in.strings = append(in.strings, s)
	in.ids[s] = id
	return id
}

// Resolve returns the string behind sym. Resolving types.NoSymbol or
// an out-of-range Symbol returns "", false.
func (in *Interner) Resolve(sym types.Symbol) (string, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if sym == types.NoSymbol || int(sym) >= len(in.strings) {
		return "", false
	}
	return in.strings[sym], true
}

// MustResolve is Resolve without the ok flag, for call sites that can
// only ever be handed a Symbol they (or a cooperating component)
// already interned.
func (in *Interner) MustResolve(sym types.Symbol) string {
	s, _ := in.Resolve(sym)
	return s
}

// Len returns the number of distinct strings interned so far,
// including the index-0 placeholder.
func (in *Interner) Len() int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return len(in.strings)
}
