// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package device

import (
	"context"
	"path"
	"strings"

	"github.com/nmortari/nxospoap/pkg/fault"
	"github.com/nmortari/nxospoap/pkg/log"
)

// Facts describe the switch as found at the start of a run.
type Facts struct {
	Model       string
	Version     string // e.g. 9.3(9)
	VersionDate string
	BIOS        string
	BIOSDate    string
	// file name the running image was booted from
	BootedImage string
	Chassis     string // last word of show chassis-family, e.g. Fretta
	// module table lists a 3548; 40G speed changes need member ports shut
	MTC bool
	// a standby supervisor is present
	Standby   bool
	DNS       string
	Addresses []string
}

const (
	CmdShowVersion = "show version"
	CmdShowModule  = "show module"
	CmdShowChassis = "show chassis-family"
	CmdShowHosts   = "show hosts"
	CmdShowIPBrief = "show ip interface brief vrf all"
)

// Gather queries the device. Version and module information are required;
// the remaining queries are informational and only logged when they fail.
func Gather(ctx context.Context, ch Channel) (Facts, error) {
	var f Facts
	out, err := ch.Exec(ctx, CmdShowVersion)
	if err != nil {
		return f, fault.Wrap(err, fault.KindOf(err), "detect NX-OS version")
	}
	f.parseVersion(out)
	if f.Version == "" {
		return f, fault.New(fault.Fatal, "detect NX-OS version", "no NXOS version in show version output")
	}
	if f.BootedImage == "" {
		return f, fault.New(fault.Fatal, "detect booted image", "no NXOS image file in show version output")
	}

	out, err = ch.Exec(ctx, CmdShowModule)
	if err != nil {
		return f, fault.Wrap(err, fault.KindOf(err), "detect system model")
	}
	f.parseModule(out)
	if f.Model == "" {
		return f, fault.New(fault.Fatal, "detect system model", "no N9K model in show module output")
	}

	if out, err = ch.Exec(ctx, CmdShowChassis); err != nil {
		log.Logf("Could not find chassis family: %s", err)
	} else {
		f.Chassis = lastField(out)
	}
	if out, err = ch.Exec(ctx, CmdShowHosts); err != nil {
		log.Logf("Unable to detect domain name servers: %s", err)
	} else {
		f.DNS = afterLabel(out, "Name servers")
	}
	if out, err = ch.Exec(ctx, CmdShowIPBrief); err != nil {
		log.Logf("Unable to detect interface IP information: %s", err)
	} else {
		for _, l := range strings.Split(out, "\n") {
			if strings.Contains(l, "protocol") {
				f.Addresses = append(f.Addresses, strings.TrimSpace(l))
			}
		}
	}
	f.log()
	return f, nil
}

func (f *Facts) log() {
	log.Logf("System model: %s", f.Model)
	log.Logf("System NX-OS version: %s", f.Version)
	log.Logf("System NX-OS version date: %s", f.VersionDate)
	log.Logf("System BIOS version: %s", f.BIOS)
	log.Logf("System BIOS version date: %s", f.BIOSDate)
	log.Logf("Currently booted filename is: %s", f.BootedImage)
	log.Logf("Domain name server(s): %s", f.DNS)
	log.Logf("This switch has the following IP address(es):")
	for _, a := range f.Addresses {
		log.Logf("%s", a)
	}
}

func (f *Facts) parseVersion(out string) {
	for _, l := range strings.Split(out, "\n") {
		l = strings.TrimSpace(l)
		switch {
		case strings.HasPrefix(l, "NXOS: version"):
			if f.Version == "" {
				f.Version = firstField(strings.TrimPrefix(l, "NXOS: version"))
			}
		case strings.HasPrefix(l, "BIOS: version"):
			f.BIOS = firstField(strings.TrimPrefix(l, "BIOS: version"))
		case strings.HasPrefix(l, "NXOS compile time:"):
			f.VersionDate = strings.TrimSpace(strings.TrimPrefix(l, "NXOS compile time:"))
		case strings.HasPrefix(l, "BIOS compile time:"):
			f.BIOSDate = strings.TrimSpace(strings.TrimPrefix(l, "BIOS compile time:"))
		case strings.HasPrefix(l, "NXOS image file is:"):
			f.BootedImage = BootedImageName(strings.TrimPrefix(l, "NXOS image file is:"))
		}
	}
}

// BootedImageName reduces "bootflash:///nxos.9.3.9.bin" to "nxos.9.3.9.bin".
func BootedImageName(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, ":"); i >= 0 {
		s = s[i+1:]
	}
	s = strings.Trim(s, "/")
	if s == "" {
		return ""
	}
	return path.Base(s)
}

func (f *Facts) parseModule(out string) {
	f.MTC = strings.Contains(out, "3548")
	f.Standby = strings.Contains(out, "ha-standby")
	for _, l := range strings.Split(out, "\n") {
		for _, w := range strings.Fields(l) {
			if strings.Contains(w, "N9K") {
				f.Model = w
				return
			}
		}
	}
}

func firstField(s string) string {
	fs := strings.Fields(s)
	if len(fs) == 0 {
		return ""
	}
	return fs[0]
}

func lastField(s string) string {
	fs := strings.Fields(s)
	if len(fs) == 0 {
		return ""
	}
	return fs[len(fs)-1]
}

// afterLabel returns the text after the last ": " on the first line
// containing label.
func afterLabel(out, label string) string {
	for _, l := range strings.Split(out, "\n") {
		if !strings.Contains(l, label) {
			continue
		}
		if i := strings.LastIndex(l, ": "); i >= 0 {
			return strings.TrimSpace(l[i+1:])
		}
	}
	return ""
}
