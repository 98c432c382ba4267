// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package device

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nmortari/nxospoap/pkg/fault"
)

// The CLI reports failures only as text. Entries are checked in order and
// the first substring found decides the kind. failed entries only apply to
// commands that exited non-zero; install all and show output mention
// timeouts in passing.
var faultText = []struct {
	substr string
	kind   fault.Kind
	failed bool
}{
	{"Syntax error while parsing", fault.CommandRejected, false},
	{"Compaction is not supported on this platform", fault.CapabilityUnsupported, false},
	{"no such file", fault.NotFound, false},
	{"file not found", fault.NotFound, false},
	{"Permission denied", fault.PermissionDenied, false},
	{"No space left on device", fault.NoSpace, false},
	{"timed out", fault.TransportTimeout, true},
	{"Timeout", fault.TransportTimeout, true},
}

// Classify turns the outcome of one channel command into a fault. out is the
// command output and err the error from the channel, if any. The CLI may
// exit zero after printing an error, so for a successful command the last
// line of output is inspected. Returns nil when the command succeeded.
func Classify(ctx context.Context, op, out string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || (err != nil && ctx.Err() == context.DeadlineExceeded) {
		return fault.Wrap(err, fault.TransportTimeout, op)
	}
	if errors.Is(err, context.Canceled) {
		return fault.Wrap(err, fault.Interrupted, op)
	}
	var text string
	if err != nil {
		text = out + "\n" + err.Error()
	} else {
		text = lastLine(out)
	}
	for _, ft := range faultText {
		if ft.failed && err == nil {
			continue
		}
		if strings.Contains(text, ft.substr) {
			if err == nil {
				return &fault.Error{Kind: ft.kind, Op: op, Err: errors.New(text)}
			}
			return &fault.Error{Kind: ft.kind, Op: op, Err: cliError(out, err)}
		}
	}
	if err != nil {
		return &fault.Error{Kind: fault.Fatal, Op: op, Err: cliError(out, err)}
	}
	return nil
}

func lastLine(out string) string {
	out = strings.TrimSpace(out)
	if i := strings.LastIndexByte(out, '\n'); i >= 0 {
		return strings.TrimSpace(out[i+1:])
	}
	return out
}

func cliError(out string, err error) error {
	out = strings.TrimSpace(out)
	if out == "" {
		return err
	}
	return fmt.Errorf("%w: %s", err, out)
}
