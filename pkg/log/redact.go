// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package log

import (
	"strings"
)

// Redacted replaces secrets in rendered entries.
const Redacted = "<removed>"

// Redact replaces the word following each "password" word with Redacted.
// Words are split on whitespace and rejoined with single spaces, so a line
// containing "password" also loses its original spacing.
func Redact(s string) string {
	if !strings.Contains(s, "password") {
		return s
	}
	words := strings.Fields(s)
	for i := 0; i+1 < len(words); i++ {
		if words[i] == "password" {
			words[i+1] = Redacted
			i++
		}
	}
	return strings.Join(words, " ")
}
