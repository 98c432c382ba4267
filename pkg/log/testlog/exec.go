// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package testlog

import (
	"errors"
	"os/exec"
	"strings"
	"sync"

	"github.com/nmortari/nxospoap/pkg/log"
)

// Key identifies a command line in a CmdMap.
type Key string

// CmdKey joins args with '|'.
func CmdKey(args []string) Key {
	return Key(strings.Join(args, "|") + "|")
}

// Result is what a hijacked command returns.
type Result struct {
	Out string
	Err error
}

// HijackerData is the CmdMap value for one command line.
type HijackerData struct {
	Result   Result
	RunCount int
	// Run executes the real command and records its result. Otherwise the
	// stored Result is returned without executing anything.
	Run bool
}

// CmdMap maps command lines to canned or recorded results.
type CmdMap map[Key]HijackerData

// ErrUnmapped is returned for commands absent from the map.
var ErrUnmapped = errors.New("command not in map")

// UseMappedCmdHijacker replaces log.Cmd. Unmapped commands fail with
// ErrUnmapped and are added to the map so tests can see what ran.
func (tlog *TstLog) UseMappedCmdHijacker(m CmdMap) {
	var mu sync.Mutex
	log.Cmd = func(cmd *exec.Cmd) (string, error) {
		key := CmdKey(cmd.Args)
		log.Logf("Running %v...", cmd.Args)
		mu.Lock()
		data, mapped := m[key]
		mu.Unlock()
		data.RunCount++
		switch {
		case !mapped:
			data.Result = Result{Err: ErrUnmapped}
		case data.Run:
			out, err := cmd.CombinedOutput()
			data.Result = Result{Out: string(out), Err: err}
		}
		mu.Lock()
		m[key] = data
		mu.Unlock()
		return data.Result.Out, data.Result.Err
	}
}
