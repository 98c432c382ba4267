// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Package options turns the operator's options file and the POAP environment
// into one immutable Options value. Every recognized key is listed in a
// single table along with its default and its effect; Build walks that table
// and nothing else reads the raw input.
package options

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/nmortari/nxospoap/pkg/fault"
)

// Identity modes.
const (
	ModeSerial      = "serial_number"
	ModeMAC         = "mac"
	ModeHostname    = "hostname"
	ModeLocation    = "location"
	ModePersonality = "personality"
	ModeRaw         = "raw"
)

// Install modes.
const (
	InstallISSU    = "issu"
	InstallClassic = "classic"
	InstallAuto    = "auto"
)

// Device channels.
const (
	ChannelVsh = "vsh"
	ChannelSSH = "ssh"
)

var (
	Modes        = []string{ModeLocation, ModeSerial, ModeMAC, ModeHostname, ModePersonality, ModeRaw}
	Protocols    = []string{"scp", "ftp", "sftp", "http", "https", "tftp", "s3"}
	InstallModes = []string{InstallISSU, InstallClassic, InstallAuto}
	Channels     = []string{ChannelVsh, ChannelSSH}
)

// Options is the validated run configuration. Build it with Build; treat it
// as read-only afterwards.
type Options struct {
	Username         string
	Password         string
	Hostname         string
	TransferProtocol string
	Mode             string
	UpgradePath      []string
	ConfigPath       string
	UpgradeImagePath string
	// free bootflash space, in MB, that must remain available
	RequiredSpaceMB float64

	HTTPSRequireCertificate bool
	RequireMD5              bool
	OnlyAllowVersionsInPath bool

	DestinationPath   string
	SourceConfigFile  string
	DestinationConfig string
	VRF               string

	TimeoutConfig          time.Duration
	TimeoutCopySystem      time.Duration
	TimeoutCopyPersonality time.Duration

	PersonalityPath    string
	SourceTarball      string
	DestinationTarball string

	CompactImage bool
	UseKstack    bool
	USBSlot      int

	// remote dir holding <serial>/<serial>.yaml recipes; empty disables them
	InstallPath string
	InstallMode string

	SplitConfigFirst  string
	SplitConfigSecond string

	Channel       string
	CLICommand    string
	SSHAddress    string
	SSHUser       string
	SSHKeyFile    string
	SSHKnownHosts string

	S3Region  string
	LogBucket string
	LogPrefix string

	Env Env
}

// Copy returns a copy that shares no slices with o.
func (o Options) Copy() Options {
	o.UpgradePath = append([]string(nil), o.UpgradePath...)
	return o
}

// Load reads a TOML options file into the raw form consumed by Build.
func Load(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fault.Wrap(err, fault.NotFound, "read options")
	}
	return Parse(data)
}

// Parse decodes TOML options.
func Parse(data []byte) (map[string]interface{}, error) {
	raw := map[string]interface{}{}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fault.Wrap(err, fault.Validation, "parse options")
	}
	return raw, nil
}

// Build applies defaults and validates. raw is not modified. All problems
// found are reported together in one Validation fault.
func Build(raw map[string]interface{}, env Env) (Options, error) {
	o := Options{Env: env}
	var problems []string

	var unknown []string
	for k := range raw {
		if _, ok := keyIndex[k]; !ok {
			unknown = append(unknown, k)
		}
	}
	sort.Strings(unknown)
	for _, k := range unknown {
		problems = append(problems, fmt.Sprintf("invalid option %s (check spelling, capitalization, and underscores)", k))
	}

	personality := false
	if m, ok := raw["mode"].(string); ok && m == ModePersonality {
		personality = true
	}
	var missing []string
	for _, k := range Keys {
		if _, ok := raw[k.Name]; ok {
			continue
		}
		if k.required(env.USB(), personality) {
			missing = append(missing, k.Name)
		}
	}
	if len(missing) > 0 {
		problems = append(problems, "missing required options: "+strings.Join(missing, ", "))
	}

	for _, k := range Keys {
		v, ok := raw[k.Name]
		if !ok {
			v = k.Default
			if k.derive != nil {
				v = k.derive(raw, env)
			}
		}
		if v == nil {
			continue
		}
		if err := k.set(&o, v); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %s", k.Name, err))
		}
	}

	problems = append(problems, o.check(personality)...)
	if len(problems) > 0 {
		return Options{}, fault.New(fault.Validation, "options", "%s", strings.Join(problems, "; "))
	}
	return o, nil
}

func (o *Options) check(personality bool) []string {
	var problems []string
	oneOf := func(name, val string, allowed []string) {
		for _, a := range allowed {
			if val == a {
				return
			}
		}
		problems = append(problems, fmt.Sprintf("%s: %q is not one of %s", name, val, strings.Join(allowed, ", ")))
	}
	oneOf("mode", o.Mode, Modes)
	oneOf("transfer_protocol", o.TransferProtocol, Protocols)
	oneOf("install_mode", o.InstallMode, InstallModes)
	oneOf("channel", o.Channel, Channels)

	if o.Env.USB() && personality {
		problems = append(problems, "POAP personality is not supported via USB")
	}
	if !personality && len(o.UpgradePath) == 0 {
		problems = append(problems, "upgrade_path: must list at least one image")
	}
	for i, img := range o.UpgradePath {
		if strings.TrimSpace(img) == "" {
			problems = append(problems, fmt.Sprintf("upgrade_path: entry %d is blank", i))
		}
	}
	if o.Channel == ChannelSSH && o.SSHAddress == "" {
		problems = append(problems, "ssh_address: required when channel is ssh")
	}
	if o.USBSlot < 1 {
		problems = append(problems, fmt.Sprintf("usb_slot: %d is not a slot", o.USBSlot))
	}
	return problems
}
