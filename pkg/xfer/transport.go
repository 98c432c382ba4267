// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package xfer

import (
	"github.com/nmortari/nxospoap/pkg/device"
	"github.com/nmortari/nxospoap/pkg/options"
)

// ForOptions picks the transport for a run: the USB slot during the USB
// phase, the bucket named by hostname for s3, otherwise the switch's own
// copy command.
func ForOptions(o options.Options, ch device.Channel) (Transport, error) {
	switch {
	case o.Env.USB():
		return USBSlot(o.USBSlot), nil
	case o.TransferProtocol == "s3":
		return NewS3(o.S3Region, o.Hostname)
	}
	return &DeviceCopy{
		Ch:                ch,
		Protocol:          o.TransferProtocol,
		User:              o.Username,
		Password:          o.Password,
		Host:              o.Hostname,
		VRF:               o.VRF,
		IgnoreCertificate: !o.HTTPSRequireCertificate,
		UseKstack:         o.UseKstack,
	}, nil
}

// Compact reports whether image copies should first be tried compacted.
func Compact(o options.Options) bool {
	return o.CompactImage && o.TransferProtocol == "scp" && !o.Env.USB()
}
