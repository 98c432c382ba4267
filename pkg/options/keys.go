// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package options

import (
	"fmt"
	"time"
)

// Key is one recognized option.
type Key struct {
	Name string
	// required unless the run is a USB phase
	Remote bool
	// nil means no default: required or left zero
	Default interface{}
	Doc     string

	derive func(raw map[string]interface{}, env Env) interface{}
	set    func(o *Options, v interface{}) error
}

func (k Key) required(usb, personality bool) bool {
	if k.Name == "upgrade_path" {
		return !personality
	}
	return k.Remote && !usb
}

// Keys is the table of recognized options, in documentation order.
var Keys = []Key{
	{Name: "username", Remote: true, Doc: "user on the remote server", set: str(func(o *Options) *string { return &o.Username })},
	{Name: "password", Remote: true, Doc: "password on the remote server; never logged", set: str(func(o *Options) *string { return &o.Password })},
	{Name: "hostname", Remote: true, Doc: "remote server name or address; the bucket for s3", set: str(func(o *Options) *string { return &o.Hostname })},
	{Name: "transfer_protocol", Remote: true, Default: "http", Doc: "scp, ftp, sftp, http, https, tftp or s3", set: str(func(o *Options) *string { return &o.TransferProtocol })},
	{Name: "mode", Remote: true, Default: ModeSerial, Doc: "how the config file name is chosen: serial_number, mac, hostname, location, personality or raw", set: str(func(o *Options) *string { return &o.Mode })},
	{Name: "upgrade_path", Doc: "ordered list of image file names to step through", set: strList(func(o *Options) *[]string { return &o.UpgradePath })},
	{Name: "config_path", Remote: true, Default: "/", Doc: "remote dir holding config files", set: str(func(o *Options) *string { return &o.ConfigPath })},
	{Name: "upgrade_image_path", Remote: true, Default: "/", Doc: "remote dir holding images", set: str(func(o *Options) *string { return &o.UpgradeImagePath })},
	{Name: "required_space", Remote: true, Default: int64(0), Doc: "MB of bootflash that must be free before anything is copied", set: float(func(o *Options) *float64 { return &o.RequiredSpaceMB })},
	{Name: "https_require_certificate", Remote: true, Default: false, Doc: "when false, https copies pass ignore-certificate", set: boolean(func(o *Options) *bool { return &o.HTTPSRequireCertificate })},
	{Name: "require_md5", Remote: true, Default: true, Doc: "verify every artifact against its .md5 sidecar", set: boolean(func(o *Options) *bool { return &o.RequireMD5 })},
	{Name: "only_allow_versions_in_upgrade_path", Remote: true, Default: true, Doc: "abort unless the booted image is listed in upgrade_path", set: boolean(func(o *Options) *bool { return &o.OnlyAllowVersionsInPath })},
	{Name: "destination_path", Default: "/bootflash/", Doc: "local dir for downloaded artifacts", set: str(func(o *Options) *string { return &o.DestinationPath })},
	{Name: "source_config_file", Default: "poap.cfg", Doc: "remote config file name; replaced by the identity mode", set: str(func(o *Options) *string { return &o.SourceConfigFile })},
	{Name: "destination_config", Default: "poap_conf.cfg", Doc: "local name of the downloaded config", set: str(func(o *Options) *string { return &o.DestinationConfig })},
	{Name: "vrf", Doc: "VRF used for copies; defaults to POAP_VRF, then management", derive: deriveVRF, set: str(func(o *Options) *string { return &o.VRF })},
	{Name: "timeout_config", Default: int64(120), Doc: "seconds allowed for config and sidecar copies", set: seconds(func(o *Options) *time.Duration { return &o.TimeoutConfig })},
	{Name: "timeout_copy_system", Default: int64(2100), Doc: "seconds allowed for image, recipe and package copies", set: seconds(func(o *Options) *time.Duration { return &o.TimeoutCopySystem })},
	{Name: "timeout_copy_personality", Default: int64(900), Doc: "seconds allowed for the personality tarball copy", set: seconds(func(o *Options) *time.Duration { return &o.TimeoutCopyPersonality })},
	{Name: "personality_path", Default: "/var/lib/tftpboot", Doc: "remote dir holding the personality tarball", set: str(func(o *Options) *string { return &o.PersonalityPath })},
	{Name: "source_tarball", Default: "personality.tar", Doc: "remote personality tarball name", set: str(func(o *Options) *string { return &o.SourceTarball })},
	{Name: "destination_tarball", Doc: "local personality tarball name; defaults to source_tarball", derive: deriveTarball, set: str(func(o *Options) *string { return &o.DestinationTarball })},
	{Name: "compact_image", Default: false, Doc: "request compact scp image copies, falling back to a normal copy", set: boolean(func(o *Options) *bool { return &o.CompactImage })},
	{Name: "use_kstack", Default: false, Doc: "append use-kstack to copy commands", set: boolean(func(o *Options) *bool { return &o.UseKstack })},
	{Name: "usb_slot", Default: int64(1), Doc: "USB slot read during the USB phase", set: integer(func(o *Options) *int { return &o.USBSlot })},
	{Name: "install_path", Default: "", Doc: "remote dir holding per-serial recipes; empty disables recipes", set: str(func(o *Options) *string { return &o.InstallPath })},
	{Name: "install_mode", Default: InstallISSU, Doc: "issu, classic, or auto", set: str(func(o *Options) *string { return &o.InstallMode })},
	{Name: "split_config_first", Default: "poap_1.cfg", Doc: "bootflash file for directives that need a reload", set: str(func(o *Options) *string { return &o.SplitConfigFirst })},
	{Name: "split_config_second", Default: "poap_2.cfg", Doc: "bootflash file for everything else", set: str(func(o *Options) *string { return &o.SplitConfigSecond })},
	{Name: "channel", Default: ChannelVsh, Doc: "device command channel: vsh or ssh", set: str(func(o *Options) *string { return &o.Channel })},
	{Name: "cli_command", Default: "/isan/bin/vsh -c", Doc: "local CLI program for the vsh channel", set: str(func(o *Options) *string { return &o.CLICommand })},
	{Name: "ssh_address", Default: "", Doc: "host:port for the ssh channel", set: str(func(o *Options) *string { return &o.SSHAddress })},
	{Name: "ssh_user", Default: "admin", Doc: "user for the ssh channel", set: str(func(o *Options) *string { return &o.SSHUser })},
	{Name: "ssh_key_file", Default: "", Doc: "private key for the ssh channel", set: str(func(o *Options) *string { return &o.SSHKeyFile })},
	{Name: "ssh_known_hosts", Default: "", Doc: "known_hosts file; empty accepts any host key", set: str(func(o *Options) *string { return &o.SSHKnownHosts })},
	{Name: "s3_region", Default: "us-east-1", Doc: "region for s3 transfers and log upload", set: str(func(o *Options) *string { return &o.S3Region })},
	{Name: "log_bucket", Default: "", Doc: "bucket receiving the run log; empty disables upload", set: str(func(o *Options) *string { return &o.LogBucket })},
	{Name: "log_prefix", Default: "poap/", Doc: "key prefix for uploaded run logs", set: str(func(o *Options) *string { return &o.LogPrefix })},
}

var keyIndex = func() map[string]int {
	m := make(map[string]int, len(Keys))
	for i, k := range Keys {
		m[k.Name] = i
	}
	return m
}()

func deriveVRF(_ map[string]interface{}, env Env) interface{} {
	if env.VRF != "" {
		return env.VRF
	}
	return "management"
}

func deriveTarball(raw map[string]interface{}, _ Env) interface{} {
	if s, ok := raw["source_tarball"].(string); ok {
		return s
	}
	return "personality.tar"
}

func str(field func(*Options) *string) func(*Options, interface{}) error {
	return func(o *Options, v interface{}) error {
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("want string, got %T", v)
		}
		*field(o) = s
		return nil
	}
}

func boolean(field func(*Options) *bool) func(*Options, interface{}) error {
	return func(o *Options, v interface{}) error {
		b, ok := v.(bool)
		if !ok {
			return fmt.Errorf("want true or false, got %T", v)
		}
		*field(o) = b
		return nil
	}
}

func toInt(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case float64:
		if n != float64(int64(n)) {
			return 0, fmt.Errorf("want whole number, got %v", n)
		}
		return int64(n), nil
	}
	return 0, fmt.Errorf("want number, got %T", v)
}

func integer(field func(*Options) *int) func(*Options, interface{}) error {
	return func(o *Options, v interface{}) error {
		n, err := toInt(v)
		if err != nil {
			return err
		}
		*field(o) = int(n)
		return nil
	}
}

func float(field func(*Options) *float64) func(*Options, interface{}) error {
	return func(o *Options, v interface{}) error {
		switch n := v.(type) {
		case float64:
			*field(o) = n
			return nil
		case int64:
			*field(o) = float64(n)
			return nil
		case int:
			*field(o) = float64(n)
			return nil
		}
		return fmt.Errorf("want number, got %T", v)
	}
}

func seconds(field func(*Options) *time.Duration) func(*Options, interface{}) error {
	return func(o *Options, v interface{}) error {
		n, err := toInt(v)
		if err != nil {
			return err
		}
		if n <= 0 {
			return fmt.Errorf("timeout must be positive, got %d", n)
		}
		*field(o) = time.Duration(n) * time.Second
		return nil
	}
}

func strList(field func(*Options) *[]string) func(*Options, interface{}) error {
	return func(o *Options, v interface{}) error {
		var out []string
		switch l := v.(type) {
		case []string:
			out = append(out, l...)
		case []interface{}:
			for i, e := range l {
				s, ok := e.(string)
				if !ok {
					return fmt.Errorf("entry %d: want string, got %T", i, e)
				}
				out = append(out, s)
			}
		default:
			return fmt.Errorf("want list of strings, got %T", v)
		}
		*field(o) = out
		return nil
	}
}
