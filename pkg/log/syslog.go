// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package log

import (
	"fmt"
	"log/syslog"
	"os"

	"github.com/nmortari/nxospoap/pkg/log/flags"
)

// SyslogWriter is the subset of *syslog.Writer used by the syslog sink.
type SyslogWriter interface {
	Alert(m string) error
	Close() error
}

type syslogLog struct {
	w    SyslogWriter
	next StackableLogger
}

var _ StackableLogger = (*syslogLog)(nil)

const SyslogLogIdent = "syslogLog"

// AddSyslog mirrors entries to the local syslog daemon under the log prefix.
// POAP progress is reported at alert severity so it reaches the console of
// a switch with default logging levels.
func AddSyslog() error {
	w, err := syslog.New(syslog.LOG_USER|syslog.LOG_ALERT, GetPrefix())
	if err != nil {
		return err
	}
	return AddSyslogWriter(w)
}

// AddSyslogWriter is AddSyslog with a caller-supplied writer.
func AddSyslogWriter(w SyslogWriter) error {
	sl := &syslogLog{w: w}
	if err := AddLogger(sl, true); err != nil {
		w.Close()
		return err
	}
	return nil
}

func (sl *syslogLog) AddEntry(e LogEntry) {
	if e.Flags&flags.NotSyslog == 0 && sl.w != nil {
		if err := sl.w.Alert(e.Text()); err != nil {
			fmt.Fprintf(os.Stderr, "syslog: %s\n", err)
		}
	}
	if sl.next != nil {
		sl.next.AddEntry(e)
	}
}

func (sl *syslogLog) ForwardTo(next StackableLogger) {
	if sl.next == nil || next == nil {
		sl.next = next
	} else {
		panic("next already set")
	}
}

func (sl *syslogLog) Ident() string         { return SyslogLogIdent }
func (sl *syslogLog) Next() StackableLogger { return sl.next }

func (sl *syslogLog) Finalize() {
	if sl.w != nil {
		sl.w.Close()
		sl.w = nil
	}
	if sl.next != nil {
		sl.next.Finalize()
	}
}
