// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package identity

import (
	"context"
	"regexp"
	"strings"

	"github.com/nmortari/nxospoap/pkg/fault"
	"github.com/nmortari/nxospoap/pkg/log"
)

var noteRe = regexp.MustCompile(`^\s*Note:`)

func (r *Resolver) location(ctx context.Context) (string, error) {
	intf := r.Opts.Env.Intf
	cmd := "show cdp neighbors interface " + intf
	log.Logf("%s", cmd)
	out, err := r.Ch.Exec(ctx, cmd)
	if err != nil {
		return "", err
	}
	sw, port, err := ParseCDP(out)
	if err != nil {
		return "", err
	}
	return LocationConfig(sw, port), nil
}

// LocationConfig names the configuration file for the neighbor sw, port.
func LocationConfig(sw, port string) string {
	return strings.Replace("conf_"+sw+"_"+port+".cfg", "/", "_", -1)
}

// ParseCDP extracts the first neighbor's name, without any serial number
// in parentheses, and its port from show cdp neighbors output.
func ParseCDP(out string) (sw, port string, err error) {
	const op = "cdp neighbors"
	lines := strings.Split(out, "\n")
	if strings.TrimSpace(out) == "" {
		return "", "", fault.New(fault.NotFound, op, "no CDP neighbor output")
	}
	if noteRe.MatchString(lines[0]) {
		return "", "", fault.New(fault.NotFound, op, "no CDP neighbors found")
	}
	i := 0
	for i < len(lines) && !strings.HasPrefix(lines[i], "Device-ID") {
		i++
	}
	if i == len(lines) {
		return "", "", fault.New(fault.Fatal, op, "improper CDP output (missing heading): %s", out)
	}
	info := strings.Fields(strings.Join(lines[i+1:], " "))
	if len(info) == 0 {
		return "", "", fault.New(fault.NotFound, op, "no CDP neighbors found")
	}
	name := strings.Split(info[0], "(")
	if len(name) > 2 {
		return "", "", fault.New(fault.Fatal, op, "improper CDP output (name and serial number malformed): %s", out)
	}
	sw = name[0]
	port = info[len(info)-1]
	// newer releases end with a "Total entries displayed" line
	for j, f := range info {
		if f == "Total" && j > 0 {
			port = info[j-1]
			break
		}
	}
	return sw, port, nil
}
