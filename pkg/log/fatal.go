// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package log

import (
	"os"
	"strings"

	"github.com/nmortari/nxospoap/pkg/log/flags"
)

// FatalFunc ends the process once the fatal entry has been written.
type FatalFunc func()

// PreFunc runs after the fatal entry is logged, while sinks are still open.
type PreFunc func(f string, va ...interface{})

// FailAction describes what Fatalf does after logging.
type FailAction struct {
	// Prefix for the fatal message
	MsgPfx string
	// Pre runs before Finalize, so it may still log.
	Pre PreFunc
	// Terminator runs after Finalize. Logs are closed by then.
	Terminator FatalFunc
}

var fatalAction = DefaultFatal

// SetFatalAction replaces the action taken by Fatalf.
func SetFatalAction(act FailAction) { fatalAction = act }

// DefaultFatal exits with status 1.
var DefaultFatal = FailAction{Terminator: DefaultFatalAction}

func DefaultFatalAction() {
	if strings.HasSuffix(os.Args[0], ".test") {
		panic("generic fatal called from test")
	}
	os.Exit(1)
}

// Fatalf logs with flags.Fatal, runs the FailAction and does not return
// unless the Terminator does.
func Fatalf(f string, va ...interface{}) {
	top := Stack()
	if top.Next() == nil && top.Ident() == MemLogIdent {
		//nothing would ever see the message otherwise
		AddConsoleLog(0)
		Log("Fatalf: logging unconfigured")
	}
	FlaggedLogf(flags.Fatal, fatalAction.MsgPfx+f, va...)
	if fatalAction.Pre != nil {
		fatalAction.Pre(fatalAction.MsgPfx+f, va...)
	}
	Finalize()
	fatalAction.Terminator()
}
