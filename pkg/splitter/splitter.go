// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Package splitter divides a switch configuration into the part that must be
// applied before the first reload and the part applied after it. Switches
// that are not in native N9K mode, running images older than 7.0(3)I4, only
// honor TCAM carving and similar settings after a reload.
package splitter

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/nmortari/nxospoap/pkg/fileutil"
	"github.com/nmortari/nxospoap/pkg/log"
)

// Class is the routing decision for one configuration line.
type Class int

const (
	Deferrable Class = iota
	ReloadRequired
	// inside a resource template block and naming a region
	ResourceTemplateDependent
)

func (c Class) String() string {
	switch c {
	case ReloadRequired:
		return "reload-required"
	case ResourceTemplateDependent:
		return "resource-template"
	}
	return "deferrable"
}

// Partition is an ordered list of configuration lines.
type Partition []string

// Splitter splits one configuration.
type Splitter struct {
	// Image is the boot target in CLI form, e.g. bootflash:nxos.7.0.3.I4.1.bin
	Image string
	// MTC platforms need member ports shut before a 40G speed change.
	MTC bool
}

// Classify returns the class of line. inBlock tells whether the previous
// lines opened a resource template block that is still going.
func Classify(line string, inBlock bool) Class {
	if inBlock && templateKeyword(line) {
		return ResourceTemplateDependent
	}
	for _, p := range reloadPrefixes {
		if strings.HasPrefix(line, p) {
			return ReloadRequired
		}
	}
	return Deferrable
}

func templateKeyword(line string) bool {
	for _, k := range resourceTemplateKeywords {
		if strings.Contains(line, k) {
			return true
		}
	}
	return false
}

// Split routes each line to pre or post, keeping input order in both, then
// appends the boot directive to pre if pre has content and to post
// otherwise.
func (s *Splitter) Split(lines []string) (pre, post Partition) {
	var intf string
	inBlock := false
	for _, line := range lines {
		if strings.HasPrefix(line, "interface Ethernet") {
			intf = line
		}
		class := Classify(line, inBlock)
		inBlock = class == ResourceTemplateDependent || strings.HasPrefix(line, resourceTemplateOpener)

		switch {
		case class != Deferrable:
			pre = append(pre, line)
		case s.MTC && intf != "" && strings.Contains(line, "speed 40000"):
			// the speed line itself is dropped from post
			pre = append(pre, mtcMemberPorts(intf)...)
		default:
			post = append(post, line)
		}
	}
	return s.addBoot(pre, post)
}

// Passthrough is Split for switches that need no split: everything goes to
// post along with the boot directive.
func (s *Splitter) Passthrough(lines []string) (pre, post Partition) {
	post = append(Partition(nil), lines...)
	return s.addBoot(nil, post)
}

func (s *Splitter) addBoot(pre, post Partition) (Partition, Partition) {
	boot := "boot nxos " + s.Image
	if len(pre) > 0 {
		log.Logf("writing boot command: %s to first config file", boot)
		return append(pre, boot), post
	}
	log.Logf("writing boot command: %s to second config file", boot)
	return pre, append(post, boot)
}

var digits = regexp.MustCompile(`\d+`)

// mtcMemberPorts shuts the four ports bundled into a 40G port starting at
// the interface on line intf, then brings the first one up at 40G. Port 0
// yields nothing.
func mtcMemberPorts(intf string) []string {
	nums := digits.FindAllString(intf, 2)
	if len(nums) < 2 {
		return nil
	}
	slot, _ := strconv.Atoi(nums[0])
	port, _ := strconv.Atoi(nums[1])
	if port == 0 {
		return nil
	}
	var out []string
	for i := 0; i < 4; i++ {
		out = append(out, fmt.Sprintf("interface Ethernet%d/%d", slot, port+i), "shut")
	}
	return append(out, fmt.Sprintf("interface Ethernet%d/%d", slot, port), "speed 40000", "no shut")
}

// ReadFile reads a configuration file into lines.
func ReadFile(name string) ([]string, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return fileutil.ReadLines(f)
}

// WriteFile writes p to name, one directive per line.
func (p Partition) WriteFile(name string) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	for _, l := range p {
		w.WriteString(l)
		w.WriteByte('\n')
	}
	if err = w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
