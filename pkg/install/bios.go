// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package install

import (
	"context"
	"strconv"
	"strings"

	"github.com/nmortari/nxospoap/pkg/device"
	"github.com/nmortari/nxospoap/pkg/fault"
	"github.com/nmortari/nxospoap/pkg/log"
	"github.com/nmortari/nxospoap/pkg/upgrade"
)

// Lowest BIOS major version that can boot an nxos image.
const (
	minBIOS       = 3
	minBIOSFretta = 1
)

// NeedsBIOS reports whether the BIOS must be upgraded before the switch can
// boot target. A BIOS version that does not parse never needs an upgrade.
func NeedsBIOS(f device.Facts, target string) bool {
	log.Logf("Switch is running version %s with bios version %s image %s", f.Version, f.BIOS, target)
	if !upgrade.NXOSFamily(target) {
		log.Logf("Bios upgrade not needed")
		return false
	}
	bios, ok := parseBIOS(f.BIOS)
	if !ok {
		log.Logf("Could not convert BIOS '%s' to a number; skipping bios upgrade", f.BIOS)
		return false
	}
	base := minBIOS
	if f.Chassis == "Fretta" {
		base = minBIOSFretta
	}
	log.Logf("Comparing present BIOS version %g with base version %d", bios, base)
	if bios < float64(base) {
		log.Logf("Bios needs to be upgraded as switch is running older bios version")
		return true
	}
	log.Logf("Bios upgrade not needed")
	return false
}

// parseBIOS reads versions such as 05.45, or the major number of 5.4.1.
func parseBIOS(v string) (float64, bool) {
	v = strings.TrimSpace(v)
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f, true
	}
	major := strings.SplitN(v, ".", 2)[0]
	if n, err := strconv.Atoi(major); err == nil {
		return float64(n), true
	}
	return 0, false
}

func (o *Orchestrator) installBIOS(ctx context.Context, image string) error {
	cmd := "config terminal ; terminal dont-ask ; install all nxos " + image + " bios"
	log.Logf("Running command: %s", cmd)
	if _, err := device.ExecTimeout(ctx, o.Ch, o.InstallTimeout, cmd); err != nil {
		o.logFree()
		return fault.Wrap(err, fault.KindOf(err), "install bios")
	}
	log.Logf("Bios successfully upgraded")
	return nil
}
