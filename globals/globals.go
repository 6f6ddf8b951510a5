/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-4 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package globals holds process-wide VM configuration gathered during
// the boot sequence: JAVA_HOME, the JDK version and the classpath
// chain.
package globals

import (
	"os"
	"path/filepath"
	"strings"
)

// Globals is the VM's singleton configuration record, assembled once
// at boot and read thereafter.
type Globals struct {
	JavaHome     string
	JavaVersion  string
	ModulesPath  string // ${JAVA_HOME}/lib/modules
	Classpath    []string
	JdwpPort     uint16
	JdwpEnabled  bool
	MainClass    string
	AppArgs      []string
}

var g Globals

// InitJavaHome reads JAVA_HOME and ${JAVA_HOME}/release. Returns an
// error if JAVA_HOME is unset; the release file's JAVA_VERSION line is
// optional (older JDK layouts omit it).
func InitJavaHome() error {
	home := os.Getenv("JAVA_HOME")
	if home == "" {
		return errJavaHomeUnset
	}
	g.JavaHome = home
	g.ModulesPath = filepath.Join(home, "lib", "modules")

	release, err := os.ReadFile(filepath.Join(home, "release"))
	if err == nil {
		for _, line := range strings.Split(string(release), "\n") {
			if strings.HasPrefix(line, "JAVA_VERSION=") {
				g.JavaVersion = strings.Trim(strings.TrimPrefix(line, "JAVA_VERSION="), "\"")
				break
			}
		}
	}
	return nil
}

var errJavaHomeUnset = &javaHomeError{}

type javaHomeError struct{}

func (*javaHomeError) Error() string { return "JAVA_HOME is not set" }

// SetClasspath splits a semicolon-separated path list into the
// ordered directory chain searched after the module image. An empty
// raw defaults to the current directory.
func SetClasspath(raw string) {
	if raw == "" {
		g.Classpath = []string{"."}
		return
	}
	g.Classpath = strings.Split(raw, ";")
}

func Get() *Globals { return &g }

// Reset restores package state; used between tests.
func Reset() { g = Globals{} }
