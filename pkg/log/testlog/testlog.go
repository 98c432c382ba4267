// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Package testlog captures the output of pkg/log during tests, and can take
// over log.Cmd so code that shells out to the switch CLI is testable off-box.
package testlog

import (
	"bytes"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/nmortari/nxospoap/pkg/log"
	"github.com/nmortari/nxospoap/pkg/log/flags"
)

// TstLog is a StackableLogger that feeds testing.T or a buffer.
type TstLog struct {
	t          *testing.T
	Buf        *bytes.Buffer // if non-nil, entries go here instead of t.Log
	MsgCount   int
	LogCount   int
	FatalCount int
	// FatalIsNotErr stops Fatalf from failing the test.
	FatalIsNotErr bool
	stderr        bool
	freeze        bool
	mu            sync.Mutex
}

// NewTestLog replaces the log stack with a TstLog. Lines in Buf carry a MSG:
// or LOG: prefix so filters can tell Msgf from Logf. Do not share one TstLog
// between tests.
func NewTestLog(t *testing.T, bufferLog, stderr bool) *TstLog {
	tlog := &TstLog{t: t, stderr: stderr}
	if bufferLog {
		tlog.Buf = new(bytes.Buffer)
	}
	log.NewLogStack(tlog)
	log.SetFatalAction(log.FailAction{Terminator: func() {}})
	t.Cleanup(tlog.Freeze)
	return tlog
}

var _ log.StackableLogger = (*TstLog)(nil)

func (tlog *TstLog) AddEntry(e log.LogEntry) {
	tlog.mu.Lock()
	defer tlog.mu.Unlock()
	if tlog.freeze {
		return
	}
	var pfx string
	switch {
	case e.Flags&flags.Fatal != 0:
		tlog.FatalCount++
		pfx = ">>FATAL()<< "
	case e.Flags&flags.EndUser != 0:
		tlog.MsgCount++
		pfx = "MSG:"
	default:
		tlog.LogCount++
		pfx = "LOG:"
	}
	line := pfx + e.Text()
	if tlog.stderr {
		fmt.Fprintf(os.Stderr, "@%s: %s\n", e.Time.Format(stampMilli), line)
	}
	if e.Flags&flags.Fatal != 0 && !tlog.FatalIsNotErr {
		tlog.t.Errorf("@%s: %s", e.Time.Format(stampMilli), line)
		return
	}
	if tlog.Buf != nil {
		fmt.Fprintln(tlog.Buf, line)
	} else {
		tlog.t.Log(line)
	}
}

const TstLogIdent = "tstLog"

func (*TstLog) Ident() string                    { return TstLogIdent }
func (*TstLog) Next() log.StackableLogger        { return nil }
func (*TstLog) Finalize()                        {}
func (*TstLog) ForwardTo(_ log.StackableLogger) {}

// like time.StampMilli without the date
const stampMilli = "15:04:05.000"

// Freeze stops capture and restores the default stack, fatal action and
// command runner. Safe to call more than once.
func (tlog *TstLog) Freeze() {
	tlog.mu.Lock()
	if tlog.freeze {
		tlog.mu.Unlock()
		return
	}
	tlog.freeze = true
	tlog.mu.Unlock()
	log.DefaultLogStack()
	log.SetFatalAction(log.DefaultFatal)
	log.Cmd = log.DefaultCmd
}

// String returns the buffered lines.
func (tlog *TstLog) String() string {
	tlog.mu.Lock()
	defer tlog.mu.Unlock()
	if tlog.Buf == nil {
		return ""
	}
	return tlog.Buf.String()
}
