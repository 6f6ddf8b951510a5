/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-4 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package classloader

import "jacobin/vm2/types"

// EnsureInitialized drives a class through Linked -> Initializing ->
// Initialized, recursing first into its superclass and into each
// direct interface that interfaceNeedsInit selects, then invoking its
// <clinit> (via runClinit) before marking it Initialized. The
// casState guard means a class already Initializing or Initialized
// when another thread (or, on this single-threaded VM, a static
// initializer that re-enters its own class) observes it is left
// alone: Initializing is treated as "already in progress higher up
// this call stack, don't re-run or deadlock," and Initialized
// short-circuits immediately.
//
// runClinit is supplied by the interpreter, the only component that
// knows how to execute bytecode; the method area only owns the state
// transition itself.
func (ma *MethodArea) EnsureInitialized(id types.ClassId, runClinit func(types.MethodId) error) error {
	c := ma.ClassByID(id)
	if c == nil {
		return linkErrf("java/lang/NoClassDefFoundError", "no such class id %d", id)
	}

	switch c.State() {
	case StateInitialized, StateInitializing:
		return nil
	}

	if !c.casState(StateLinked, StateInitializing) {
		// Lost the race (or another caller already moved it past
		// Linked); either way the winner is responsible for finishing
		// initialization.
		return nil
	}

	if c.SuperId != 0 {
		if err := ma.EnsureInitialized(c.SuperId, runClinit); err != nil {
			return err
		}
	}
	for _, ifid := range c.DirectInterfaces {
		ifc := ma.ClassByID(ifid)
		if ifc == nil || !ma.interfaceNeedsInit(ifc) {
			continue
		}
		if err := ma.EnsureInitialized(ifid, runClinit); err != nil {
			return err
		}
	}

	if c.ClinitId != 0 {
		if err := runClinit(c.ClinitId); err != nil {
			return err
		}
	}

	c.setState(StateInitialized)
	return nil
}

// interfaceNeedsInit reports whether c itself declares a <clinit> or
// inherits one through a superinterface -- the JVM only runs a
// superinterface's initializer when it (or one further up) declares
// default methods backed by static initialization. An interface with
// no <clinit> anywhere in its chain is skipped rather than walked.
func (ma *MethodArea) interfaceNeedsInit(c *Class) bool {
	if c.ClinitId != 0 {
		return true
	}
	for ifid := range c.AllInterfaces {
		if ifc := ma.ClassByID(ifid); ifc != nil && ifc.ClinitId != 0 {
			return true
		}
	}
	return false
}
