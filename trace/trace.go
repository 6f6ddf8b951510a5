/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-4 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package trace is the VM's leveled logger: a thin, free-function
// surface (so call sites never import zap directly) over a
// go.uber.org/zap SugaredLogger.
package trace

import (
	"sync"

	"go.uber.org/zap"
)

// Level is a logging severity, ordered from most to least verbose.
type Level int

const (
	FINE Level = iota
	INFO
	WARNING
	SEVERE
)

var (
	mu     sync.RWMutex
	logger *zap.SugaredLogger
	level  = WARNING
)

// Init builds the package logger. verbose selects a development
// (human-readable, colorized) zap config; otherwise a production
// (JSON) config is used. Safe to call more than once (e.g. from
// tests); the most recent call wins.
func Init(verbose bool, minLevel Level) error {
	var zl *zap.Logger
	var err error
	if verbose {
		zl, err = zap.NewDevelopment()
	} else {
		zl, err = zap.NewProduction()
	}
	if err != nil {
		return err
	}
	mu.Lock()
	logger = zl.Sugar()
	level = minLevel
	mu.Unlock()
	return nil
}

func ensure() *zap.SugaredLogger {
	mu.RLock()
	l := logger
	mu.RUnlock()
	if l != nil {
		return l
	}
	// Lazily fall back to a production (JSON) logger at WARNING so
	// that packages under test never need to call Init explicitly.
	_ = Init(false, WARNING)
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Log emits message at the given level. It returns an error for
// call-site compatibility with code that checks the result; it is
// always nil.
func Log(message string, lvl Level) error {
	if lvl < currentLevel() {
		return nil
	}
	l := ensure()
	switch lvl {
	case FINE:
		l.Debug(message)
	case INFO:
		l.Info(message)
	case WARNING:
		l.Warn(message)
	case SEVERE:
		l.Error(message)
	}
	return nil
}

func currentLevel() Level {
	mu.RLock()
	defer mu.RUnlock()
	return level
}

func Trace(message string) error   { return Log(message, FINE) }
func Info(message string) error    { return Log(message, INFO) }
func Warning(message string) error { return Log(message, WARNING) }
func Error(message string) error   { return Log(message, SEVERE) }

// ParseLevel maps the CLI's --verbose argument to a Level, defaulting
// to WARNING for anything unrecognized.
func ParseLevel(s string) Level {
	switch s {
	case "trace", "fine":
		return FINE
	case "info":
		return INFO
	case "warning":
		return WARNING
	case "severe":
		return SEVERE
	default:
		return WARNING
	}
}
