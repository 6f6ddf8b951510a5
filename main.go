/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-4 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Command jacobin is the VM's entry point: it parses the command
// line, boots the method area and native registry, loads the
// requested main class, and hands it to the interpreter.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"jacobin/vm2/bootstrap"
	"jacobin/vm2/classloader"
	"jacobin/vm2/gfunction"
	"jacobin/vm2/globals"
	"jacobin/vm2/heap"
	"jacobin/vm2/interner"
	"jacobin/vm2/jvm"
	"jacobin/vm2/shutdown"
	"jacobin/vm2/trace"
	"jacobin/vm2/types"
)

const version = "0.1.0"

// Log-level aliases so callers (and cli_test.go-style tests) can
// write SetLogLevel(WARNING) without importing trace directly.
const (
	FINE    = trace.FINE
	INFO    = trace.INFO
	WARNING = trace.WARNING
	SEVERE  = trace.SEVERE
)

const defaultHeapMB = 256

// Globals is the CLI's own boot-time record -- distinct from the
// globals package's JAVA_HOME/classpath record, which main populates
// but does not itself define.
type Globals struct {
	progName  string
	exitNow   bool
	verbosity trace.Level
	classpath string
	jdwpPort  uint16
	mainClass string
	appArgs   []string
}

var Global Globals

func initGlobals(progName string) Globals {
	return Globals{progName: progName, verbosity: WARNING}
}

// SetLogLevel updates both the CLI's own record and the trace
// package's active level.
func SetLogLevel(level trace.Level) {
	Global.verbosity = level
	_ = trace.Init(level == trace.FINE, level)
}

// option describes one recognized command-line flag: whether it takes
// a following value, and what to do with it.
type option struct {
	takesValue bool
	usage      string
	apply      func(value string)
}

var optionsTable map[string]option

// LoadOptionsTable builds the flag table HandleCli parses against.
// Jacobin mirrors the `java` launcher's own single-dash, multi-letter
// flag spelling (-cp, -jar, -showversion), which is not POSIX and so
// is parsed by this table rather than by pflag.
func LoadOptionsTable(g Globals) {
	optionsTable = map[string]option{
		"-help": {usage: "print this help message", apply: func(string) {
			printUsage()
			Global.exitNow = true
		}},
		"-h": {usage: "same as -help", apply: func(string) {
			printUsage()
			Global.exitNow = true
		}},
		"-showversion": {usage: "print version information and continue", apply: func(string) {
			showVersion()
		}},
		"-version": {usage: "print version information and exit", apply: func(string) {
			showVersion()
			Global.exitNow = true
		}},
		"-cp": {takesValue: true, usage: "class search path of directories", apply: func(v string) {
			Global.classpath = v
		}},
		"-classpath": {takesValue: true, usage: "same as -cp", apply: func(v string) {
			Global.classpath = v
		}},
		"-jdwp-port": {takesValue: true, usage: "port a debug agent would attach on (accepted, not served)", apply: func(v string) {
			if p, err := strconv.ParseUint(v, 10, 16); err == nil {
				Global.jdwpPort = uint16(p)
			}
		}},
		"-verbose": {takesValue: true, usage: "trace|fine|info|warning|severe", apply: func(v string) {
			SetLogLevel(trace.ParseLevel(v))
		}},
	}
}

// HandleCli parses args (args[0] is the program name, matching
// os.Args) against optionsTable. The first token that isn't a
// recognized flag is taken as the main class name; everything after
// it is passed through as the Java program's own arguments.
func HandleCli(args []string) {
	if envArgs := getEnvArgs(); envArgs != "" {
		trace.Trace("environment VM options: " + envArgs)
	}

	for i := 1; i < len(args); i++ {
		tok := args[i]
		if opt, ok := optionsTable[tok]; ok {
			value := ""
			if opt.takesValue {
				i++
				if i < len(args) {
					value = args[i]
				}
			}
			opt.apply(value)
			if Global.exitNow {
				return
			}
			continue
		}
		if strings.HasPrefix(tok, "-") {
			fmt.Fprintf(os.Stderr, "jacobin: unrecognized option: %s\n", tok)
			printUsage()
			Global.exitNow = true
			return
		}
		Global.mainClass = tok
		Global.appArgs = append([]string{}, args[i+1:]...)
		return
	}
}

// printUsage writes the launcher's usage summary to stderr, in the
// shape the real `java -help` output takes.
func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage: jacobin [options] class [args...]")
	fmt.Fprintln(os.Stderr, "           (to execute a class)")
	fmt.Fprintln(os.Stderr, "where options include:")
	for _, name := range []string{"-cp", "-classpath", "-jdwp-port", "-verbose", "-showversion", "-version", "-help"} {
		fmt.Fprintf(os.Stderr, "    %-14s %s\n", name, optionsTable[name].usage)
	}
}

func showVersion() {
	fmt.Fprintf(os.Stderr, "Jacobin VM v. %s\n", version)
}

func showCopyright() {
	fmt.Printf("Jacobin VM v. %s (c) Copyright 2021-4 by the Jacobin authors. All rights reserved.\n", version)
}

// getEnvArgs collects the JVM's three environment-variable option
// sources, in the order the real launcher reads them, joined by a
// single space. Unset variables contribute nothing.
func getEnvArgs() string {
	var parts []string
	for _, name := range []string{"JAVA_TOOL_OPTIONS", "_JAVA_OPTIONS", "JDK_JAVA_OPTIONS"} {
		if v := os.Getenv(name); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}

func newRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:                "jacobin [options] class [args...]",
		Short:              "Jacobin VM: a Java virtual machine",
		Version:            version,
		SilenceErrors:      true,
		SilenceUsage:       true,
		DisableFlagParsing: true, // java's own flags aren't POSIX; HandleCli owns argv
		RunE: func(cmd *cobra.Command, _ []string) error {
			HandleCli(os.Args)
			if Global.exitNow {
				return nil
			}
			if Global.mainClass == "" {
				printUsage()
				Global.exitNow = true
				return nil
			}
			return runVM()
		},
	}
}

// runVM boots a fresh method area and native registry, loads
// Global.mainClass off Global.classpath, and runs its main method to
// completion.
func runVM() error {
	if err := globals.InitJavaHome(); err != nil {
		trace.Warning(err.Error() + "; running with classpath-only class resolution")
	}
	dirs := []string{"."}
	if Global.classpath != "" {
		dirs = strings.Split(Global.classpath, string(os.PathListSeparator))
	}
	globals.SetClasspath(Global.classpath)
	provider := classloader.ClasspathProvider(dirs)

	in := interner.New()
	h := heap.New(defaultHeapMB)
	boot := bootstrap.New(in)
	ma := classloader.New(in, h, boot)
	natives := gfunction.NewStandardRegistry(in)

	for _, name := range bootstrap.EagerClasses {
		id, err := ma.GetClassIdOrLoad(name, provider)
		if err != nil {
			return err
		}
		boot.RecordResolved(name, id)
	}

	mainName := strings.ReplaceAll(Global.mainClass, ".", "/")
	mainClassId, err := ma.GetClassIdOrLoad(mainName, provider)
	if err != nil {
		return err
	}

	it := jvm.New(ma, natives, provider)

	argRefs := make([]types.HeapRef, len(Global.appArgs))
	for i, a := range Global.appArgs {
		ref, err := it.AllocString(a)
		if err != nil {
			return err
		}
		argRefs[i] = ref
	}

	if err := it.Execute(mainClassId, argRefs); err != nil {
		if _, uncaught := err.(*jvm.ThrownException); uncaught {
			return nil // an uncaught Java exception still exits 0, matching java's own convention for this VM
		}
		return err
	}
	return nil
}

func main() {
	Global = initGlobals(os.Args[0])
	SetLogLevel(WARNING)
	LoadOptionsTable(Global)

	cmd := newRootCmd()
	cmd.SetArgs(os.Args[1:])
	if err := cmd.Execute(); err != nil {
		shutdown.Fatalf("%v", err)
	}
}
