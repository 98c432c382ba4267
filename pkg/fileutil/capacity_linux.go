// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package fileutil

import (
	"fmt"

	"golang.org/x/sys/unix"
)

const mega = 1024 * 1024

// Capacity describes the filesystem holding a directory, in MB.
type Capacity struct {
	TotalMB float64
	FreeMB  float64
}

func (c Capacity) UsedMB() float64 { return c.TotalMB - c.FreeMB }

// FreePercent is the share of the filesystem still available to users.
func (c Capacity) FreePercent() float64 {
	if c.TotalMB == 0 {
		return 0
	}
	return c.FreeMB / c.TotalMB * 100
}

func (c Capacity) String() string {
	return fmt.Sprintf("total %s, used %s, free %s", FormatMB(c.TotalMB), FormatMB(c.UsedMB()), FormatMB(c.FreeMB))
}

// StatCapacity reports the capacity of the filesystem containing dir.
func StatCapacity(dir string) (Capacity, error) {
	var fs unix.Statfs_t
	if err := unix.Statfs(dir, &fs); err != nil {
		return Capacity{}, err
	}
	bs := float64(fs.Bsize)
	return Capacity{
		TotalMB: float64(fs.Blocks) * bs / mega,
		FreeMB:  float64(fs.Bavail) * bs / mega,
	}, nil
}

// FormatMB renders mb with thousands separators and two decimals, e.g.
// "10,000.00 MB".
func FormatMB(mb float64) string {
	s := fmt.Sprintf("%.2f", mb)
	neg := mb < 0
	if neg {
		s = s[1:]
	}
	intPart, frac := s[:len(s)-3], s[len(s)-3:]
	var out []byte
	for i := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, intPart[i])
	}
	if neg {
		return "-" + string(out) + frac + " MB"
	}
	return string(out) + frac + " MB"
}
