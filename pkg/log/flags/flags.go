// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Package flags holds the bits attached to each log entry. Sinks use them to
// decide whether an entry is theirs to write.
package flags

import (
	"encoding/json"
	"fmt"
	"strings"
)

type Flag int

const (
	NA Flag = 0

	//operator-facing progress message
	EndUser Flag = 1 << (iota - 1)
	//the run is aborting
	Fatal
	//keep out of the bootflash run log
	NotFile
	//keep out of syslog
	NotSyslog
)

var named = []Flag{EndUser, Fatal, NotFile, NotSyslog}

func (f Flag) MarshalJSON() ([]byte, error) { return json.Marshal(f.String()) }

func (f Flag) String() string {
	switch f {
	case NA:
		return ""
	case EndUser:
		return "user"
	case Fatal:
		return "fatal"
	case NotFile:
		return "not file"
	case NotSyslog:
		return "not syslog"
	}
	var parts []string
	rest := f
	for _, bit := range named {
		if rest&bit != 0 {
			parts = append(parts, bit.String())
			rest &^= bit
		}
	}
	if rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%x", int(rest)))
	}
	return strings.Join(parts, "|")
}
