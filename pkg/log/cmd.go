// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package log

import (
	"os/exec"
)

// CommandFunc runs cmd and returns its combined output.
type CommandFunc func(cmd *exec.Cmd) (out string, err error)

// Cmd runs local helper programs (the CLI shell, rpm, createrepo). Tests
// replace it through testlog to fake or record executions.
var Cmd CommandFunc = DefaultCmd

// DefaultCmd runs cmd, logging the command line and, on failure, the output.
// Output is returned on failure too; callers classify it.
func DefaultCmd(cmd *exec.Cmd) (string, error) {
	Logf("Running %v...", cmd.Args)
	out, err := cmd.CombinedOutput()
	if err != nil {
		Logf("Running %v: error %s\noutput:\n%s", cmd.Args, err, string(out))
	}
	return string(out), err
}
