// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package device

import (
	fp "path/filepath"
	"strings"

	"github.com/nmortari/nxospoap/pkg/fileutil"
	"github.com/nmortari/nxospoap/pkg/log"
	"github.com/nmortari/nxospoap/pkg/upgrade"
)

// Host locates the on-box files consulted besides the CLI. Paths are
// fields so tests can point them at a temp dir.
type Host struct {
	FirstSetupLog string // /tmp/first_setup.log
	ISANEtc       string // /isan/etc
}

var DefaultHost = Host{
	FirstSetupLog: "/tmp/first_setup.log",
	ISANEtc:       "/isan/etc",
}

// LegacyReload reports whether the switch applies some configuration only
// after a reload, which is the case when it did not boot in native N9K mode.
// The first line of the first-setup log starts with START in native mode.
// An unreadable log is treated as native mode.
func (h Host) LegacyReload() bool {
	line, err := fileutil.FirstLine(h.FirstSetupLog)
	if err != nil {
		log.Logf("cannot read %s (%s); assuming native mode", h.FirstSetupLog, err)
		return false
	}
	if !strings.Contains(line, "START") {
		log.Logf("Split config is required, because box is not in N9K mode.")
		return true
	}
	return false
}

// Variant reports the flavor of 64-bit image installed.
func (h Host) Variant() upgrade.Variant {
	if fileutil.Exists(fp.Join(h.ISANEtc, "cs.txt")) {
		return upgrade.VariantCS
	}
	if fileutil.Exists(fp.Join(h.ISANEtc, "noncs.txt")) {
		return upgrade.VariantMSLL
	}
	return upgrade.VariantPlain
}
