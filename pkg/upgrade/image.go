// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package upgrade

import (
	"regexp"
	"strings"
)

// Variant is the flavor of 64-bit image installed, from marker files under
// /isan/etc.
type Variant int

const (
	VariantPlain Variant = iota // no marker file
	VariantMSLL                 // noncs.txt
	VariantCS                   // cs.txt
)

func (v Variant) prefix() string {
	switch v {
	case VariantCS:
		return "nxos64-cs"
	case VariantMSLL:
		return "nxos64-msll"
	}
	return "nxos64"
}

var versionSep = regexp.MustCompile(`[.()]`)

// VersionParts splits a version such as "9.3(9)" or "7.0(3)I4(1)" on dots
// and parentheses, dropping empty parts. Only the first word of version is
// used.
func VersionParts(version string) []string {
	fields := strings.Fields(version)
	if len(fields) == 0 {
		return nil
	}
	var parts []string
	for _, p := range versionSep.Split(fields[0], -1) {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// RunningImageNames returns the file names the running version could have
// been booted from: the 32-bit nxos.<v>.bin name and the 64-bit name for the
// installed variant. There is no CLI that says which of the two is running.
func RunningImageNames(version string, v Variant) (img32, img64 string) {
	parts := VersionParts(version)
	if len(parts) == 0 {
		return "", ""
	}
	join := func(pfx string) string {
		return pfx + "." + strings.Join(parts, ".") + ".bin"
	}
	return join("nxos"), join(v.prefix())
}

// IsRunning reports whether target names the running version.
func IsRunning(target, version string, v Variant) bool {
	img32, img64 := RunningImageNames(version, v)
	return target != "" && (target == img32 || target == img64)
}

var nxosFamily = regexp.MustCompile(`^nxos.`)

// NXOSFamily reports whether image belongs to the nxos image family: "nxos"
// followed by any character, so both nxos.9.3.10.bin and
// nxos64-cs.10.3.4a.M.bin qualify.
func NXOSFamily(image string) bool { return nxosFamily.MatchString(image) }
