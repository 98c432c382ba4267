// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Package device is the command channel to the switch CLI and the facts
// gathered through it.
//
// A Channel runs one CLI command line (several commands may be joined with
// " ; ") and returns its output. Failures are always *fault.Error; the text
// the CLI prints on failure is turned into a fault kind by Classify, which is
// the only place in this module that inspects error text.
package device

import (
	"context"
	"fmt"
	"time"

	"github.com/nmortari/nxospoap/pkg/options"
)

type Channel interface {
	Exec(ctx context.Context, cmd string) (string, error)
	Close() error
}

// Open returns the channel selected by the options.
func Open(ctx context.Context, o options.Options) (Channel, error) {
	switch o.Channel {
	case options.ChannelVsh, "":
		return NewVsh(o.CLICommand)
	case options.ChannelSSH:
		return DialSSH(ctx, SSHConfig{
			Address:    o.SSHAddress,
			User:       o.SSHUser,
			KeyFile:    o.SSHKeyFile,
			KnownHosts: o.SSHKnownHosts,
		})
	}
	return nil, fmt.Errorf("unknown channel %q", o.Channel)
}

// ExecTimeout runs cmd with a deadline of d from now. A zero d means no
// deadline beyond ctx's own.
func ExecTimeout(ctx context.Context, ch Channel, d time.Duration, cmd string) (string, error) {
	if d <= 0 {
		return ch.Exec(ctx, cmd)
	}
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return ch.Exec(ctx, cmd)
}
