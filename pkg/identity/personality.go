// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package identity

import (
	"archive/tar"
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"regexp"
	"strings"

	"github.com/ulikunitz/xz"

	"github.com/nmortari/nxospoap/pkg/fault"
	"github.com/nmortari/nxospoap/pkg/fileutil"
	"github.com/nmortari/nxospoap/pkg/log"
	"github.com/nmortari/nxospoap/pkg/options"
	"github.com/nmortari/nxospoap/pkg/xfer"
)

var imageFileRe = regexp.MustCompile(`IMAGEFILE_(.+)`)

func (r *Resolver) personality(ctx context.Context, id Identity) (Identity, error) {
	o := r.Opts
	req := xfer.Request{
		SourceDir:       o.PersonalityPath,
		SourceName:      o.SourceTarball,
		DestName:        o.DestinationTarball,
		Timeout:         o.TimeoutCopyPersonality,
		RequireChecksum: o.RequireMD5,
	}
	if _, err := r.Pipeline.Fetch(ctx, req); err != nil {
		return id, err
	}
	id.Tarball = r.Pipeline.Artifact(req).Final
	log.Logf("INFO: Completed Copy of Tar file to %s", id.Tarball)
	img, err := ImageFromTarball(id.Tarball)
	if err != nil {
		return id, err
	}
	log.Logf("Using %s as the system image", img)
	id.Image = img
	return id, nil
}

// ImageFromTarball finds the system image a personality tarball was made
// for: either the suffix of an IMAGEFILE_<image> entry or the content of an
// IMAGEFILE entry. The last such entry wins. The tarball may be plain,
// gzip or xz compressed.
func ImageFromTarball(name string) (string, error) {
	const op = "personality tarball"
	f, err := os.Open(name)
	if err != nil {
		return "", fault.Wrap(err, fault.NotFound, op)
	}
	defer f.Close()

	var in io.Reader
	switch {
	case fileutil.IsXZ(name):
		if in, err = xz.NewReader(bufio.NewReader(f)); err != nil {
			return "", fault.Wrap(err, fault.Validation, op)
		}
	case isGzip(name):
		gz, err := gzip.NewReader(f)
		if err != nil {
			return "", fault.Wrap(err, fault.Validation, op)
		}
		defer gz.Close()
		in = gz
	default:
		in = f
	}

	var img string
	tr := tar.NewReader(in)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fault.Wrap(err, fault.Validation, op)
		}
		if m := imageFileRe.FindStringSubmatch(hdr.Name); m != nil {
			img = m[1]
		} else if path.Base(hdr.Name) == "IMAGEFILE" {
			data, err := io.ReadAll(tr)
			if err != nil {
				return "", fault.Wrap(err, fault.Validation, op)
			}
			img = strings.TrimSpace(string(data))
		}
	}
	if img == "" {
		return "", fault.New(fault.Validation, op, "Failed to find system image filename from tarball")
	}
	return img, nil
}

func isGzip(name string) bool {
	hdr, err := fileutil.ReadHeader(name, 2)
	return err == nil && len(hdr) == 2 && hdr[0] == 0x1f && hdr[1] == 0x8b
}

// RestoreCommand applies a personality tarball.
func RestoreCommand(o options.Options, tarball string) string {
	return fmt.Sprintf("personality restore %s user-name %s password %s hostname %s vrf %s",
		fileutil.CLIPath(tarball), o.Username, o.Password, o.Hostname, o.VRF)
}

// Restore applies the tarball fetched by Resolve.
func (r *Resolver) Restore(ctx context.Context, id Identity) error {
	cmd := RestoreCommand(r.Opts, id.Tarball)
	log.Logf("%s", log.Redact(cmd))
	if _, err := r.Ch.Exec(ctx, cmd); err != nil {
		return fault.Wrap(err, fault.Fatal, "personality restore")
	}
	return nil
}
