// Copyright (c) Contributors.
// All rights reserved. Use of this source code is governed by a
// MIT-style license that can be found in the LICENSE file.
package log

import (
	"fmt"
	"io"
	"log"
	"os"
)

// Provides a simple way of logging with different levels.
// Time/Date are omitted by default since most deployments run under
// a supervisor that timestamps its own output; SetLogDateTime(true) adds it.

var logDateTime bool

var (
	DebugWriter io.Writer = os.Stderr
	InfoWriter  io.Writer = os.Stderr
	WarnWriter  io.Writer = os.Stderr
	ErrWriter   io.Writer = os.Stderr
	CritWriter  io.Writer = os.Stderr
)

var (
	DebugPrefix string = "<7>[DEBUG]    "
	InfoPrefix  string = "<6>[INFO]     "
	WarnPrefix  string = "<4>[WARNING]  "
	ErrPrefix   string = "<3>[ERROR]    "
	CritPrefix  string = "<2>[CRITICAL] "
)

var (
	DebugLog *log.Logger = log.New(DebugWriter, DebugPrefix, 0)
	InfoLog  *log.Logger = log.New(InfoWriter, InfoPrefix, 0)
	WarnLog  *log.Logger = log.New(WarnWriter, WarnPrefix, log.Lshortfile)
	ErrLog   *log.Logger = log.New(ErrWriter, ErrPrefix, log.Llongfile)
	CritLog  *log.Logger = log.New(CritWriter, CritPrefix, log.Llongfile)

	DebugTimeLog *log.Logger = log.New(DebugWriter, DebugPrefix, log.LstdFlags)
	InfoTimeLog  *log.Logger = log.New(InfoWriter, InfoPrefix, log.LstdFlags)
	WarnTimeLog  *log.Logger = log.New(WarnWriter, WarnPrefix, log.LstdFlags|log.Lshortfile)
	ErrTimeLog   *log.Logger = log.New(ErrWriter, ErrPrefix, log.LstdFlags|log.Llongfile)
	CritTimeLog  *log.Logger = log.New(CritWriter, CritPrefix, log.LstdFlags|log.Llongfile)
)

/* CONFIG */

// SetLogLevel silences writers below the given level by pointing them at
// io.Discard. Levels cascade: "warn" also silences info and debug.
func SetLogLevel(lvl string) {
	switch lvl {
	case "crit":
		ErrWriter = io.Discard
		fallthrough
	case "err", "fatal":
		WarnWriter = io.Discard
		fallthrough
	case "warn":
		InfoWriter = io.Discard
		fallthrough
	case "info":
		DebugWriter = io.Discard
	case "debug":
		// Nothing to do, every level stays enabled.
	}

	rebuildLoggers()
}

func SetLogDateTime(b bool) {
	logDateTime = b
}

func rebuildLoggers() {
	DebugLog = log.New(DebugWriter, DebugPrefix, 0)
	InfoLog = log.New(InfoWriter, InfoPrefix, 0)
	WarnLog = log.New(WarnWriter, WarnPrefix, log.Lshortfile)
	ErrLog = log.New(ErrWriter, ErrPrefix, log.Llongfile)
	CritLog = log.New(CritWriter, CritPrefix, log.Llongfile)

	DebugTimeLog = log.New(DebugWriter, DebugPrefix, log.LstdFlags)
	InfoTimeLog = log.New(InfoWriter, InfoPrefix, log.LstdFlags)
	WarnTimeLog = log.New(WarnWriter, WarnPrefix, log.LstdFlags|log.Lshortfile)
	ErrTimeLog = log.New(ErrWriter, ErrPrefix, log.LstdFlags|log.Llongfile)
	CritTimeLog = log.New(CritWriter, CritPrefix, log.LstdFlags|log.Llongfile)
}

func dbg() *log.Logger {
	if logDateTime {
		return DebugTimeLog
	}
	return DebugLog
}

func inf() *log.Logger {
	if logDateTime {
		return InfoTimeLog
	}
	return InfoLog
}

func wrn() *log.Logger {
	if logDateTime {
		return WarnTimeLog
	}
	return WarnLog
}

func err() *log.Logger {
	if logDateTime {
		return ErrTimeLog
	}
	return ErrLog
}

func crt() *log.Logger {
	if logDateTime {
		return CritTimeLog
	}
	return CritLog
}

/* LOGGING */

func Debug(v ...interface{}) { dbg().Output(2, fmt.Sprintln(v...)) }
func Info(v ...interface{})  { inf().Output(2, fmt.Sprintln(v...)) }
func Warn(v ...interface{})  { wrn().Output(2, fmt.Sprintln(v...)) }
func Error(v ...interface{}) { err().Output(2, fmt.Sprintln(v...)) }
func Print(v ...interface{}) { inf().Output(2, fmt.Sprintln(v...)) }

func Fatal(v ...interface{}) {
	crt().Output(2, fmt.Sprintln(v...))
	os.Exit(1)
}

func Panic(v ...interface{}) {
	s := fmt.Sprintln(v...)
	crt().Output(2, s)
	panic(s)
}

func Debugf(format string, v ...interface{}) { dbg().Output(2, fmt.Sprintf(format, v...)) }
func Infof(format string, v ...interface{})  { inf().Output(2, fmt.Sprintf(format, v...)) }
func Warnf(format string, v ...interface{})  { wrn().Output(2, fmt.Sprintf(format, v...)) }
func Errorf(format string, v ...interface{}) { err().Output(2, fmt.Sprintf(format, v...)) }

func Fatalf(format string, v ...interface{}) {
	crt().Output(2, fmt.Sprintf(format, v...))
	os.Exit(1)
}

func Panicf(format string, v ...interface{}) {
	s := fmt.Sprintf(format, v...)
	crt().Output(2, s)
	panic(s)
}
