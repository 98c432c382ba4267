// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Package log is the run log of a provisioning attempt. Entries are fanned out
// to a stack of sinks (memory, console, the bootflash log file, syslog), and
// every rendered line has passwords blanked out.
//
// Entries are retained in memory until FlushMemLog is called, so a sink added
// late (the bootflash file, created only once options are known) still
// receives everything logged before it existed.
package log

import (
	"fmt"
	"os"

	"github.com/nmortari/nxospoap/pkg/log/flags"
)

var logPrefix string

// SetPrefix sets the prefix used by syslog and in file names.
func SetPrefix(pfx string) {
	logPrefix = pfx
}

// GetPrefix returns the prefix set by SetPrefix.
func GetPrefix() string { return logPrefix }

// Msgf is for short operator-facing progress messages.
func Msgf(f string, va ...interface{}) { FlaggedLogf(flags.EndUser, f, va...) }

// Msg is Msgf without formatting.
func Msg(message string) { Msgf("%s", message) }

// Logf is for everything else: decisions, command lines, command output.
func Logf(f string, va ...interface{}) { FlaggedLogf(flags.NA, f, va...) }

// Logln is Logf with fmt.Sprintln semantics.
func Logln(va ...interface{}) { Logf("%s", fmt.Sprintln(va...)) }

// Log is Logf without formatting.
func Log(message string) { Logf("%s", message) }

// DumpStderr writes the retained entries to stderr. No-op without a memLog.
func DumpStderr() {
	for _, e := range StoredEntries() {
		fmt.Fprintln(os.Stderr, e.String())
	}
}
