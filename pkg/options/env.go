// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package options

import (
	"fmt"
	"os"
)

// PhaseUSB is the POAP_PHASE value when the script runs from a USB stick.
const PhaseUSB = "USB"

// Env is the environment the POAP process hands to the script, captured once.
type Env struct {
	Phase    string // POAP_PHASE
	VRF      string // POAP_VRF
	Serial   string // POAP_SERIAL
	MAC      string // POAP_MAC, 12 hex digits without separators
	RMAC     string // POAP_RMAC
	MgmtMAC  string // POAP_MGMT_MAC
	HostName string // POAP_HOST_NAME
	Intf     string // POAP_INTF
	PID      string // POAP_PID
}

// LoadEnv captures the POAP variables through getenv. Pass nil for
// os.Getenv.
func LoadEnv(getenv func(string) string) Env {
	if getenv == nil {
		getenv = os.Getenv
	}
	return Env{
		Phase:    getenv("POAP_PHASE"),
		VRF:      getenv("POAP_VRF"),
		Serial:   getenv("POAP_SERIAL"),
		MAC:      getenv("POAP_MAC"),
		RMAC:     getenv("POAP_RMAC"),
		MgmtMAC:  getenv("POAP_MGMT_MAC"),
		HostName: getenv("POAP_HOST_NAME"),
		Intf:     getenv("POAP_INTF"),
		PID:      getenv("POAP_PID"),
	}
}

func (e Env) USB() bool { return e.Phase == PhaseUSB }

// SyslogPrefix identifies the device in syslog: S/N[serial], followed by
// -MAC[mac] when a MAC is known. Over USB the router MAC is preferred to
// the management MAC; otherwise POAP_MAC is shown colon-separated.
func (e Env) SyslogPrefix() string {
	var pfx string
	if e.Serial != "" {
		pfx = fmt.Sprintf("S/N[%s]", e.Serial)
	}
	var mac string
	switch {
	case e.USB() && e.RMAC != "":
		mac = e.RMAC
	case e.USB() && e.MgmtMAC != "":
		mac = e.MgmtMAC
	case !e.USB() && e.MAC != "":
		mac = FormatMAC(e.MAC)
	default:
		return pfx
	}
	return fmt.Sprintf("%s-MAC[%s]", pfx, mac)
}

// FormatMAC renders 12 hex digits as XX:XX:XX:XX:XX:XX. Other input is
// returned unchanged.
func FormatMAC(mac string) string {
	if len(mac) != 12 {
		return mac
	}
	return fmt.Sprintf("%s:%s:%s:%s:%s:%s", mac[0:2], mac[2:4], mac[4:6], mac[6:8], mac[8:10], mac[10:12])
}
