// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package upgrade

import (
	"fmt"

	"github.com/nmortari/nxospoap/pkg/fault"
)

type Decision int

const (
	// the device already runs the last image of the path
	None Decision = iota
	// step to Target; configuration is not applied
	Intermediate
	// step to Target and apply the staged configuration
	Final
)

func (d Decision) String() string {
	switch d {
	case None:
		return "NONE"
	case Intermediate:
		return "INTERMEDIATE"
	case Final:
		return "FINAL"
	}
	return fmt.Sprintf("Decision(%d)", int(d))
}

// Result is the resolver's output. Target is empty for None.
type Result struct {
	Target   string
	Decision Decision
}

func (r Result) String() string {
	if r.Decision == None {
		return "NONE"
	}
	return fmt.Sprintf("%s %s", r.Decision, r.Target)
}

// Resolve picks the next step for a device running running.
//
// A device outside the path enters at its first image. On a multi-image path
// that first step is Intermediate, so configuration is only applied once the
// device reaches the end of the path. A single-image path is a downgrade or
// pin target and always applies configuration.
//
// Resolve does not require running to be on the path; see Member.
func Resolve(p Path, running string) Result {
	if running == p.Last() {
		return Result{Decision: None}
	}
	if i := p.index(running); i >= 0 {
		// running is not last, so i+1 is in range
		next := p.images[i+1]
		d := Intermediate
		if next == p.Last() {
			d = Final
		}
		return Result{Target: next, Decision: d}
	}
	if p.Len() > 1 {
		return Result{Target: p.images[0], Decision: Intermediate}
	}
	return Result{Target: p.images[0], Decision: Final}
}

// Member is the optional guard that confines a run to devices already on the
// path. It is applied before Resolve.
func Member(p Path, running string) error {
	if p.Contains(running) {
		return nil
	}
	return fault.New(fault.Validation, "upgrade path", "running image %s is not part of the upgrade path %s", running, p)
}
