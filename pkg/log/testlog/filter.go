// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package testlog

import (
	"bufio"
	"bytes"
	"regexp"
	"strings"
)

// LineFilterer returns true if a buffered line should be kept.
type LineFilterer func(in string) bool

// FilterMsg passes Msgf output.
func FilterMsg() LineFilterer { return FilterPfx("MSG:") }

// FilterLog passes Logf output.
func FilterLog() LineFilterer { return FilterPfx("LOG:") }

func FilterPfx(pfx string) LineFilterer {
	return func(in string) bool { return strings.HasPrefix(in, pfx) }
}

func FilterLogPfx(pfx string) LineFilterer { return FilterPfx("LOG:" + pfx) }
func FilterMsgPfx(pfx string) LineFilterer { return FilterPfx("MSG:" + pfx) }

// FilterRe passes lines matching re. Panics on a bad expression.
func FilterRe(re string) LineFilterer {
	rx := regexp.MustCompile(re)
	return rx.MatchString
}

// Filter returns matching buffered lines. Unlike Contains, it does not
// consume the buffer.
func (tlog *TstLog) Filter(lf LineFilterer) []string {
	tlog.mu.Lock()
	defer tlog.mu.Unlock()
	if tlog.Buf == nil {
		tlog.t.Error("nil buffer")
		return nil
	}
	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(tlog.Buf.Bytes()))
	for scanner.Scan() {
		if lf(scanner.Text()) {
			lines = append(lines, scanner.Text())
		}
	}
	return lines
}

// Contains reports whether any buffered line contains sub.
func (tlog *TstLog) Contains(sub string) bool {
	return len(tlog.Filter(func(in string) bool { return strings.Contains(in, sub) })) > 0
}

// LinesMustMatch fails the test unless the filtered lines equal want.
func (tlog *TstLog) LinesMustMatch(lf LineFilterer, want []string) bool {
	tlog.t.Helper()
	got := tlog.Filter(lf)
	ok := len(got) == len(want)
	if !ok {
		tlog.t.Errorf("len mismatch - got %d want %d", len(got), len(want))
	}
	for i := range got {
		if i < len(want) && got[i] != want[i] {
			tlog.t.Errorf("\n got %s\nwant %s", got[i], want[i])
			ok = false
		}
	}
	if !ok {
		tlog.t.Logf("got:\n%#v\nwanted:\n%#v", got, want)
	}
	return ok
}
