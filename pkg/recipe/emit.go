// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package recipe

import (
	"fmt"
	"path"

	"github.com/nmortari/nxospoap/pkg/splitter"
)

const workspaceURI = "bootflash:" + WorkspaceName

// LicenseLines installs each staged license.
func (r *Recipe) LicenseLines() []string {
	var lines []string
	for _, l := range r.License {
		lines = append(lines, fmt.Sprintf("install license %s/%s", workspaceURI, path.Base(l)))
	}
	return lines
}

// TrustpointLines declares each CA and imports its PKCS#12 bundles.
func (r *Recipe) TrustpointLines() []string {
	var lines []string
	for _, ca := range r.CAs() {
		lines = append(lines, "crypto ca trustpoint "+ca)
		for _, c := range r.Certs(ca) {
			lines = append(lines, fmt.Sprintf("crypto ca import %s pkcs12 %s/%s/%s %s",
				ca, workspaceURI, ca, path.Base(c), r.Trustpoint[ca][c]))
		}
	}
	return lines
}

// Emit returns post with license installs in front and trustpoint imports
// at the end.
func (r *Recipe) Emit(post splitter.Partition) splitter.Partition {
	out := append(splitter.Partition(r.LicenseLines()), post...)
	return append(out, r.TrustpointLines()...)
}
