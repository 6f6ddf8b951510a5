/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-4 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package shutdown centralizes process-exit behavior so that exit
// codes stay consistent regardless of which component detects the
// fatal condition.
package shutdown

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
)

// Exit codes: 0 on a clean exit (including an uncaught Java exception
// having reached the top-level driver -- see DESIGN.md's Open
// Question decision on this), 1 on a VM failure.
const (
	OK           = 0
	JVM_EXCEPTION = 1
)

// exitFunc is swapped out in tests so a fatal path can be observed
// without killing the test binary.
var exitFunc = os.Exit

// Exit terminates the process with the given code.
func Exit(code int) {
	exitFunc(code)
}

// Fatal wraps err with a stack trace via github.com/pkg/errors,
// prints it to stderr, and exits with JVM_EXCEPTION. Use for VM-fatal
// conditions (malformed class, exhausted heap, unsupported opcode,
// internal invariant breach) -- never for ordinary Java exceptions,
// which are propagated as heap objects, not host errors.
func Fatal(err error) {
	wrapped := errors.WithStack(err)
	fmt.Fprintf(os.Stderr, "jacobin: fatal: %+v\n", wrapped)
	Exit(JVM_EXCEPTION)
}

// Fatalf formats a message, wraps it with a stack trace, and exits.
func Fatalf(format string, args ...interface{}) {
	Fatal(errors.Errorf(format, args...))
}
