// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package xfer

import (
	"context"
	"fmt"
	"strings"

	"github.com/nmortari/nxospoap/pkg/device"
	"github.com/nmortari/nxospoap/pkg/fileutil"
	"github.com/nmortari/nxospoap/pkg/log"
)

// DeviceCopy has the switch fetch files itself with the CLI copy command.
// dest must be under /bootflash.
type DeviceCopy struct {
	Ch       device.Channel
	Protocol string
	User     string
	Password string
	Host     string
	VRF      string
	// https without certificate validation
	IgnoreCertificate bool
	UseKstack         bool
}

var _ Transport = (*DeviceCopy)(nil)

func (d *DeviceCopy) String() string { return d.Protocol }

func (d *DeviceCopy) Copy(ctx context.Context, src, dest string, o CopyOpts) error {
	cmd := d.Command(src, dest, o.Compact)
	log.Logf("Command is : %s", cmd)
	_, err := device.ExecTimeout(ctx, d.Ch, o.Timeout, cmd)
	return err
}

// Command renders the CLI line for one copy.
func (d *DeviceCopy) Command(src, dest string, compact bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "terminal dont-ask ; terminal password %s ; ", d.Password)
	fmt.Fprintf(&b, "copy %s://%s@%s%s %s", d.Protocol, d.User, d.Host, src, fileutil.CLIPath(dest))
	switch {
	case compact:
		b.WriteString(" compact")
	case d.Protocol == "https" && d.IgnoreCertificate:
		b.WriteString(" ignore-certificate")
	}
	fmt.Fprintf(&b, " vrf %s", d.VRF)
	if d.UseKstack {
		b.WriteString(" use-kstack")
	}
	return b.String()
}
