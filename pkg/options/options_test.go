// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package options

import (
	"strings"
	"testing"
	"time"

	"github.com/nmortari/nxospoap/pkg/fault"
)

const sample = `
username = "poap"
password = "s3cret"
hostname = "10.0.0.6"
transfer_protocol = "https"
mode = "serial_number"
upgrade_path = ["nxos.9.3.9.bin", "nxos.9.3.10.bin", "nxos64-cs.10.3.4a.M.bin"]
config_path = "/files/poap/config/"
upgrade_image_path = "/files/nxos/"
required_space = 10000
https_require_certificate = false
require_md5 = true
only_allow_versions_in_upgrade_path = true
timeout_copy_system = 3000
`

func mustParse(t *testing.T, s string) map[string]interface{} {
	t.Helper()
	raw, err := Parse([]byte(s))
	if err != nil {
		t.Fatal(err)
	}
	return raw
}

func TestBuildDefaults(t *testing.T) {
	raw := mustParse(t, sample)
	o, err := Build(raw, Env{VRF: "default"})
	if err != nil {
		t.Fatal(err)
	}
	for _, td := range []struct {
		name      string
		got, want interface{}
	}{
		{"vrf from env", o.VRF, "default"},
		{"destination_path", o.DestinationPath, "/bootflash/"},
		{"destination_config", o.DestinationConfig, "poap_conf.cfg"},
		{"timeout_config", o.TimeoutConfig, 120 * time.Second},
		{"timeout_copy_system", o.TimeoutCopySystem, 3000 * time.Second},
		{"timeout_copy_personality", o.TimeoutCopyPersonality, 900 * time.Second},
		{"destination_tarball", o.DestinationTarball, "personality.tar"},
		{"required_space", o.RequiredSpaceMB, 10000.0},
		{"usb_slot", o.USBSlot, 1},
		{"install_mode", o.InstallMode, InstallISSU},
		{"split first", o.SplitConfigFirst, "poap_1.cfg"},
		{"cli_command", o.CLICommand, "/isan/bin/vsh -c"},
		{"path len", len(o.UpgradePath), 3},
	} {
		t.Run(td.name, func(t *testing.T) {
			if td.got != td.want {
				t.Errorf("got %v want %v", td.got, td.want)
			}
		})
	}
	if _, exists := raw["vrf"]; exists {
		t.Error("Build modified its input")
	}
	o2, _ := Build(raw, Env{})
	if o2.VRF != "management" {
		t.Errorf("fallback vrf %q", o2.VRF)
	}
}

func TestBuildRejects(t *testing.T) {
	for _, td := range []struct {
		name  string
		extra string
		drop  string
		env   Env
		want  []string
	}{
		{name: "unknown keys listed", extra: "usernmae = \"x\"\nfoo = 1\n", want: []string{"invalid option foo", "invalid option usernmae"}},
		{name: "missing listed", drop: "hostname", want: []string{"missing required options: hostname"}},
		{name: "bad type", extra: "compact_image = \"yes\"\n", want: []string{"compact_image: want true or false"}},
		{name: "bad mode", extra: "install_mode = \"fast\"\n", want: []string{"install_mode: \"fast\" is not one of"}},
		{name: "ssh needs address", extra: "channel = \"ssh\"\n", want: []string{"ssh_address: required"}},
		{name: "personality over usb", extra: "", env: Env{Phase: PhaseUSB}, drop: "mode", want: []string{"personality is not supported via USB"}},
	} {
		t.Run(td.name, func(t *testing.T) {
			var lines []string
			for _, l := range strings.Split(sample, "\n") {
				if td.drop != "" && strings.HasPrefix(l, td.drop+" ") {
					continue
				}
				lines = append(lines, l)
			}
			doc := strings.Join(lines, "\n") + td.extra
			if td.name == "personality over usb" {
				doc += "mode = \"personality\"\n"
			}
			_, err := Build(mustParse(t, doc), td.env)
			if !fault.Is(err, fault.Validation) {
				t.Fatalf("want validation fault, got %v", err)
			}
			for _, w := range td.want {
				if !strings.Contains(err.Error(), w) {
					t.Errorf("%q missing from %q", w, err)
				}
			}
		})
	}
}

func TestUSBRelaxesRemoteKeys(t *testing.T) {
	raw := mustParse(t, `upgrade_path = ["nxos.9.3.10.bin"]`)
	if _, err := Build(raw, Env{}); err == nil {
		t.Fatal("remote phase must require credentials")
	}
	o, err := Build(raw, Env{Phase: PhaseUSB})
	if err != nil {
		t.Fatal(err)
	}
	if !o.RequireMD5 || o.Mode != ModeSerial {
		t.Errorf("defaults not applied: %+v", o)
	}
}

func TestPersonalityNeedsNoPath(t *testing.T) {
	raw := mustParse(t, strings.Replace(sample, `mode = "serial_number"`, `mode = "personality"`, 1))
	delete(raw, "upgrade_path")
	if _, err := Build(raw, Env{}); err != nil {
		t.Errorf("personality without upgrade_path: %v", err)
	}
}

func TestSyslogPrefix(t *testing.T) {
	for _, td := range []struct {
		env  Env
		want string
	}{
		{Env{Serial: "FOC123", MAC: "7426cc5c9180"}, "S/N[FOC123]-MAC[74:26:cc:5c:91:80]"},
		{Env{Serial: "FOC123", Phase: PhaseUSB, RMAC: "R", MgmtMAC: "M"}, "S/N[FOC123]-MAC[R]"},
		{Env{Serial: "FOC123", Phase: PhaseUSB, MgmtMAC: "M"}, "S/N[FOC123]-MAC[M]"},
		{Env{Serial: "FOC123"}, "S/N[FOC123]"},
	} {
		if got := td.env.SyslogPrefix(); got != td.want {
			t.Errorf("got %s want %s", got, td.want)
		}
	}
}

func TestLoadEnv(t *testing.T) {
	env := LoadEnv(func(k string) string {
		return map[string]string{"POAP_PHASE": "USB", "POAP_SERIAL": "FOC1", "POAP_PID": "42"}[k]
	})
	if !env.USB() || env.Serial != "FOC1" || env.PID != "42" {
		t.Errorf("got %+v", env)
	}
}
