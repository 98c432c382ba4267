// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package log

import (
	"fmt"
	"sync"
	"time"

	"github.com/nmortari/nxospoap/pkg/log/flags"
)

// StackableLogger is one sink in the chain. Callers use the package-level
// functions; sinks are only touched when adding or removing them.
type StackableLogger interface {
	// AddEntry records e and must pass it on to Next() if non-nil.
	AddEntry(e LogEntry)
	// ForwardTo chains the next sink. Chaining twice is a programming error.
	ForwardTo(StackableLogger)
	// Ident names the sink type; a stack holds at most one of each.
	Ident() string
	Next() StackableLogger
	// Finalize flushes and releases resources, then finalizes Next().
	Finalize()
}

// Top of the stack; guarded by logStackMtx.
var logStack StackableLogger = &memLog{}

var logStackMtx sync.Mutex

type stackErr struct {
	Id string
}

func (se *stackErr) Error() string {
	return fmt.Sprintf("duplicate logger %s in stack", se.Id)
}

// Finalize flushes and closes every sink.
func Finalize() {
	logStackMtx.Lock()
	defer logStackMtx.Unlock()
	logStack.Finalize()
}

// DefaultLogStack finalizes the current stack and replaces it with a memLog.
func DefaultLogStack() { NewLogStack(&memLog{}) }

// NewLogStack finalizes the current stack and makes newLog the only sink.
func NewLogStack(newLog StackableLogger) {
	logStackMtx.Lock()
	defer logStackMtx.Unlock()
	if logStack != nil {
		logStack.Finalize()
	}
	logStack = newLog
	ClearAttrs()
}

// Stack returns the topmost sink.
func Stack() StackableLogger {
	logStackMtx.Lock()
	defer logStackMtx.Unlock()
	return logStack
}

// AddLogger pushes sl onto the stack. With addPrevious, entries retained by a
// memLog are replayed into sl first. The only error is a duplicate Ident.
func AddLogger(sl StackableLogger, addPrevious bool) error {
	logStackMtx.Lock()
	defer logStackMtx.Unlock()
	if err := checkDuplicate(sl, logStack); err != nil {
		return err
	}
	if addPrevious {
		replayInto(sl)
	}
	sl.ForwardTo(logStack)
	logStack = sl
	return nil
}

func checkDuplicate(newLogger, sl StackableLogger) error {
	for l := sl; l != nil; l = l.Next() {
		if newLogger.Ident() == l.Ident() {
			return &stackErr{Id: l.Ident()}
		}
	}
	return nil
}

// RemoveLogger unlinks and finalizes the sink with the given ident.
func RemoveLogger(id string) {
	logStackMtx.Lock()
	defer logStackMtx.Unlock()
	var prev StackableLogger
	for l := logStack; l != nil; l = l.Next() {
		if l.Ident() != id {
			prev = l
			continue
		}
		next := l.Next()
		l.ForwardTo(nil)
		l.Finalize()
		if prev == nil {
			logStack = next
			if logStack == nil {
				logStack = &nullLog{}
			}
		} else {
			prev.ForwardTo(nil)
			prev.ForwardTo(next)
		}
		return
	}
}

// LogEntry is one record as it travels down the stack.
type LogEntry struct {
	Time  time.Time `json:"t"`
	Msg   string
	Args  []interface{} `json:",omitempty"`
	Flags flags.Flag    `json:",omitempty"`
}

// FlaggedLogf is the backend of Logf, Msgf and Fatalf.
func FlaggedLogf(opts flags.Flag, f string, va ...interface{}) {
	logStackMtx.Lock()
	defer logStackMtx.Unlock()
	logStack.AddEntry(LogEntry{
		Time:  time.Now(),
		Flags: opts,
		Msg:   f,
		Args:  va,
	})
}

// Text renders the message with its args and redacts it.
func (le *LogEntry) Text() string {
	s := le.Msg
	if len(le.Args) > 0 {
		s = fmt.Sprintf(le.Msg, le.Args...)
	}
	return Redact(s)
}

// String renders the entry as written to console and file.
func (le *LogEntry) String() string {
	var div string
	switch {
	case le.Flags&flags.EndUser != 0:
		div = "-- "
	case le.Flags&flags.Fatal != 0:
		div = "!! "
	case le.Flags == 0:
		div = "*- "
	default:
		div = "?? "
	}
	return div + le.Time.Format(TimestampLayout) + " " + div + le.Text()
}

// replays memLog content into a sink that is about to join the stack.
// Caller holds logStackMtx.
func replayInto(newlog StackableLogger) {
	if _, isMem := newlog.(*memLog); isMem {
		return
	}
	if mem, ok := FindInStack(MemLogIdent).(*memLog); ok {
		for _, e := range mem.Entries() {
			newlog.AddEntry(e)
		}
	}
}

// InStack reports whether a sink with the given ident is present.
func InStack(id string) bool {
	return FindInStack(id) != nil
}

// FindInStack returns the sink with the given ident, or nil.
func FindInStack(id string) StackableLogger {
	for l := logStack; l != nil; l = l.Next() {
		if l.Ident() == id {
			return l
		}
	}
	return nil
}

// terminates the stack when every real sink has been removed
type nullLog struct{}

func (nullLog) AddEntry(LogEntry)         {}
func (nullLog) ForwardTo(StackableLogger) {}
func (nullLog) Ident() string             { return "nullLog" }
func (nullLog) Next() StackableLogger     { return nil }
func (nullLog) Finalize()                 {}
