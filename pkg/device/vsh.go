// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package device

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/google/shlex"

	"github.com/nmortari/nxospoap/pkg/log"
)

// Vsh runs commands through the on-box CLI program, by default
// "/isan/bin/vsh -c". The command line is passed as a single argument.
type Vsh struct {
	argv []string
}

var _ Channel = (*Vsh)(nil)

// NewVsh splits cliCommand into argv with shell quoting rules.
func NewVsh(cliCommand string) (*Vsh, error) {
	argv, err := shlex.Split(cliCommand)
	if err != nil {
		return nil, fmt.Errorf("cli_command %q: %w", cliCommand, err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("cli_command is empty")
	}
	return &Vsh{argv: argv}, nil
}

func (v *Vsh) Exec(ctx context.Context, cmd string) (string, error) {
	args := append(append([]string(nil), v.argv[1:]...), cmd)
	c := exec.CommandContext(ctx, v.argv[0], args...)
	out, err := log.Cmd(c)
	if cerr := Classify(ctx, cmd, out, err); cerr != nil {
		return out, cerr
	}
	return out, nil
}

func (v *Vsh) Close() error { return nil }
