// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package recipe

import (
	"context"
	"path"
	fp "path/filepath"
	"strings"
	"time"

	"github.com/nmortari/nxospoap/pkg/fault"
	"github.com/nmortari/nxospoap/pkg/log"
	"github.com/nmortari/nxospoap/pkg/xfer"
)

const (
	// WorkspaceName is the directory, under the pipeline's directory, that
	// recipe files are staged into.
	WorkspaceName = "poap_files"
	// LocalName is where a fetched recipe is stored.
	LocalName = "poap_device_recipe.yaml"
)

// Lookup fetches <serial>/<serial>.yaml, falling back to
// <serial>/<serial>.yml, from installPath. It returns nil and no error when
// the server has neither.
func Lookup(ctx context.Context, p *xfer.Pipeline, installPath, serial string, requireMD5 bool, timeout time.Duration) (*Recipe, error) {
	for _, ext := range []string{".yaml", ".yml"} {
		req := xfer.Request{
			SourceDir:        path.Join(installPath, serial),
			SourceName:       serial + ext,
			DestName:         LocalName,
			Timeout:          timeout,
			RequireChecksum:  requireMD5,
			TolerateNotFound: true,
		}
		outcome, err := p.Fetch(ctx, req)
		if err != nil {
			return nil, err
		}
		if outcome == xfer.Absent {
			log.Logf("No recipe %s on server", req.SourceName)
			continue
		}
		r, err := Load(fp.Join(p.Dir, LocalName))
		if err != nil {
			return nil, err
		}
		log.Logf("Using %s: %s", req.SourceName, r)
		return r, nil
	}
	return nil, nil
}

// Stage fetches every file the recipe names into the workspace, then
// checks that each RPM's file name matches its package metadata.
func Stage(ctx context.Context, p *xfer.Pipeline, r *Recipe, installPath string, timeout time.Duration) error {
	for _, f := range r.Files() {
		req := xfer.Request{
			SourceDir:  installPath,
			SourceName: f.Remote,
			DestName:   path.Join(WorkspaceName, f.Local),
			Timeout:    timeout,
		}
		if _, err := p.Fetch(ctx, req); err != nil {
			return err
		}
	}
	return CheckRPMNames(fp.Join(p.Dir, WorkspaceName), r.RPMFiles())
}

// RPMFiles lists the base names of the recipe's RPMs.
func (r *Recipe) RPMFiles() []string {
	var names []string
	for _, f := range r.RPM {
		names = append(names, path.Base(f))
	}
	return names
}

// CheckRPMNames verifies that each staged RPM is named
// NAME-VERSION-RELEASE.ARCH.rpm, as the package manager requires. All
// mismatches are reported together.
func CheckRPMNames(dir string, files []string) error {
	var bad []string
	for _, file := range files {
		want, err := QueryRPM(fp.Join(dir, file), QueryFileName)
		if err != nil {
			return err
		}
		if want != file {
			log.Logf("%s should be renamed to %s", file, want)
			bad = append(bad, file)
		}
	}
	if len(bad) > 0 {
		return fault.New(fault.Validation, "rpm names",
			"RPM file names do not match package metadata: %s", strings.Join(bad, ", "))
	}
	return nil
}
