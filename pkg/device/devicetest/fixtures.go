// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package devicetest

// Canned CLI output for a 93180YC-EX running 9.3(9).
const (
	ShowVersion = `Cisco Nexus Operating System (NX-OS) Software
TAC support: http://www.cisco.com/tac
Software
  BIOS: version 05.45
  NXOS: version 9.3(9)
  BIOS compile time:  06/04/2021
  NXOS image file is: bootflash:///nxos.9.3.9.bin
  NXOS compile time:  12/20/2021 12:00:00 [12/21/2021 03:22:46]

Hardware
  cisco Nexus9000 C93180YC-EX chassis
  bootflash:   53298520 kB
`

	ShowModule = `Mod Ports             Module-Type                      Model           Status
--- ----- ------------------------------------- --------------------- ---------
1    54   48x10/25G + 6x40/100G Ethernet Module  N9K-C93180YC-EX       active *

Mod  Sw                       Hw    Slot
---  ----------------------- ------ ----
1    9.3(9)                   1.0    NA
`

	ShowChassisFamily = "Chassis family is Tor\n"

	ShowHosts = `DNS lookup enabled
Default domain for vrf:default is example.com
Name servers for vrf:default are:  10.0.0.2 10.0.0.3
`

	ShowIPBrief = `IP Interface Status for VRF "management"(2)
Interface            IP Address      Interface Status
mgmt0                10.0.0.50       protocol-up/link-up/admin-up
`
)

// Switch returns a script answering the fact queries with the fixtures.
func Switch() *Script {
	return New().
		OK("show version", ShowVersion).
		OK("show module", ShowModule).
		OK("show chassis-family", ShowChassisFamily).
		OK("show hosts", ShowHosts).
		OK("show ip interface brief vrf all", ShowIPBrief)
}
