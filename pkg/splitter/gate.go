// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package splitter

import (
	"strconv"
	"strings"

	"github.com/nmortari/nxospoap/pkg/log"
)

// NotNeeded reports whether a config for target can be applied in one go.
// That is the case unless the switch needs a reload for some settings and
// the target is a legacy image older than 7.0(3)I4. Names outside the
// nxos.M.m.r.Tn.p.bin scheme are not split.
func NotNeeded(target string, legacyReload bool) bool {
	if !legacyReload {
		return true
	}
	parts := strings.Split(target, ".")
	if len(parts) > 1 {
		if major, err := strconv.Atoi(parts[1]); err == nil && major >= 9 {
			log.Logf("Target image supports bootstrap replay. Split config is not required.")
			return true
		}
	}
	v, ok := parseLegacy(parts)
	if !ok {
		log.Logf("%s is not a legacy image name; not splitting config", target)
		return true
	}
	return v.atLeast(legacyThreshold)
}

// legacyVersion is nxos.<major>.<minor>.<rev>.<train>.<build>.bin.
type legacyVersion struct {
	major, minor, rev int
	train             string
}

// Images from 7.0(3)I4 on apply reload-time config without a reload.
var legacyThreshold = legacyVersion{7, 0, 3, "I4"}

func parseLegacy(parts []string) (legacyVersion, bool) {
	var v legacyVersion
	if len(parts) != 7 || parts[0] != "nxos" || parts[6] != "bin" {
		return v, false
	}
	var err error
	for i, dst := range []*int{&v.major, &v.minor, &v.rev} {
		if *dst, err = strconv.Atoi(parts[i+1]); err != nil {
			return v, false
		}
	}
	v.train = parts[4]
	return v, true
}

// atLeast compares numerically, except for the train which compares as text.
func (v legacyVersion) atLeast(t legacyVersion) bool {
	switch {
	case v.major != t.major:
		return v.major > t.major
	case v.minor != t.minor:
		return v.minor > t.minor
	case v.rev != t.rev:
		return v.rev > t.rev
	}
	return v.train >= t.train
}
