// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Package xfer stages remote files on local storage. Each fetch downloads
// into a temporary name, commits with a rename and verifies against an MD5
// sidecar published next to the remote file. A local file whose checksum
// already matches is not downloaded again, so an interrupted run can simply
// be restarted.
package xfer

import (
	"context"
	"os"
	"path"
	fp "path/filepath"
	"time"

	"github.com/nmortari/nxospoap/pkg/fault"
	"github.com/nmortari/nxospoap/pkg/fileutil"
	"github.com/nmortari/nxospoap/pkg/log"
)

// Outcome of a successful Fetch.
type Outcome int

const (
	// Failed accompanies a non-nil error.
	Failed Outcome = iota
	// SkippedValid means the local file was kept; no transfer happened.
	SkippedValid
	Fetched
	// Absent means the remote file does not exist and the request tolerated that.
	Absent
)

func (o Outcome) String() string {
	switch o {
	case SkippedValid:
		return "skipped (valid)"
	case Fetched:
		return "fetched"
	case Absent:
		return "absent"
	}
	return "failed"
}

// CopyOpts are per-transfer options passed to a Transport.
type CopyOpts struct {
	Timeout time.Duration
	// ask the remote side for a compacted image
	Compact bool
}

// Transport copies a remote file to a local path. Errors must be
// *fault.Error; a transport that cannot compact returns CapabilityUnsupported
// when asked to.
type Transport interface {
	Copy(ctx context.Context, src, dest string, o CopyOpts) error
	String() string
}

// Request describes one artifact to fetch.
type Request struct {
	SourceDir  string
	SourceName string
	// local name under the pipeline's directory; defaults to SourceName
	DestName string
	Timeout  time.Duration
	// fetch <SourceName>.md5 and verify against it
	RequireChecksum bool
	// known digest; when set no sidecar is fetched
	Checksum   Checksum
	TryCompact bool
	// a missing remote file (or sidecar) is not an error
	TolerateNotFound bool
	// without a checksum, keep an existing local file instead of downloading
	ReuseExisting bool
}

// Pipeline fetches artifacts into Dir through one Transport.
type Pipeline struct {
	Transport Transport
	Dir       string
	// timeout for sidecar downloads; Request.Timeout if zero
	SidecarTimeout time.Duration

	fetched []string
	calls   int
}

func New(t Transport, dir string) *Pipeline {
	return &Pipeline{Transport: t, Dir: dir}
}

// Artifact returns the artifact a request refers to.
func (p *Pipeline) Artifact(req Request) Artifact {
	dest := req.DestName
	if dest == "" {
		dest = req.SourceName
	}
	final := fp.Join(p.Dir, dest)
	return Artifact{
		Name:   dest,
		Source: path.Join(req.SourceDir, req.SourceName),
		Temp:   final + ".tmp",
		Final:  final,
	}
}

// Fetched lists files committed by this pipeline, sidecars excluded, in
// the order they were committed.
func (p *Pipeline) Fetched() []string { return append([]string(nil), p.fetched...) }

// Transfers counts calls made to the transport.
func (p *Pipeline) Transfers() int { return p.calls }

// Fetch stages one artifact. Only a NotFound fault is ever swallowed, and
// only when req.TolerateNotFound is set; the outcome is then Absent.
func (p *Pipeline) Fetch(ctx context.Context, req Request) (Outcome, error) {
	art := p.Artifact(req)
	log.Logf("Copying file options source=%s destination=%s timeout=%s", art.Source, art.Final, req.Timeout)

	art.Checksum = req.Checksum
	if req.RequireChecksum && art.Checksum == "" {
		sum, err := p.sidecar(ctx, req)
		switch {
		case err == nil:
			art.Checksum = sum
			log.Logf("MD5 for %s from server: %s", req.SourceName, sum)
		case req.TolerateNotFound && fault.Is(err, fault.NotFound):
			log.Logf("No MD5 for %s on server, continuing without", req.SourceName)
		default:
			return Failed, err
		}
	}

	if fileutil.Exists(art.Final) {
		switch {
		case art.Checksum != "":
			ok, err := art.Verify()
			if err != nil {
				log.Logf("cannot verify existing %s: %s", art.Final, err)
			}
			if ok {
				log.Logf("File %s already exists and MD5 matches", art.Final)
				return SkippedValid, nil
			}
		case req.ReuseExisting && !req.RequireChecksum:
			log.Logf("File %s already exists", art.Final)
			return SkippedValid, nil
		}
	}

	compact := req.TryCompact
	err := p.transfer(ctx, &art, compact, req.Timeout)
	if compact && (fault.Is(err, fault.CapabilityUnsupported) || fault.Is(err, fault.CommandRejected)) {
		log.Logf("INFO: compact copy failed; Try normal copy...")
		compact = false
		err = p.transfer(ctx, &art, compact, req.Timeout)
	}
	if err != nil {
		if req.TolerateNotFound && fault.Is(err, fault.NotFound) {
			log.Logf("%s not found on server", art.Source)
			return Absent, nil
		}
		return Failed, err
	}
	if err = commit(art); err != nil {
		return Failed, err
	}
	p.fetched = append(p.fetched, art.Final)

	if art.Checksum != "" {
		if compact {
			// compaction rewrites the image, so the published digest no longer applies
			log.Logf("%s was copied compacted; skipping MD5 verification", art.Final)
			return Fetched, nil
		}
		ok, err := art.Verify()
		if err != nil {
			return Failed, fault.Wrap(err, fault.Fatal, "verify "+art.Name)
		}
		if !ok {
			return Failed, fault.New(fault.ChecksumMismatch, "verify "+art.Name,
				"MD5 verification of %s failed", art.Final)
		}
	}
	return Fetched, nil
}

// sidecar downloads <SourceName>.md5, parses it and deletes the local copy.
func (p *Pipeline) sidecar(ctx context.Context, req Request) (Checksum, error) {
	log.Logf("Downloading MD5 information from remote source")
	name := req.SourceName + ".md5"
	final := fp.Join(p.Dir, name)
	art := Artifact{
		Name:   name,
		Source: path.Join(req.SourceDir, name),
		Temp:   final + ".tmp",
		Final:  final,
	}
	fileutil.RemoveIfFile(final)
	timeout := p.SidecarTimeout
	if timeout == 0 {
		timeout = req.Timeout
	}
	if err := p.transfer(ctx, &art, false, timeout); err != nil {
		return "", err
	}
	if err := commit(art); err != nil {
		return "", err
	}
	defer fileutil.RemoveIfFile(final)

	f, err := os.Open(final)
	if err != nil {
		return "", fault.Wrap(err, fault.Fatal, "read "+name)
	}
	defer f.Close()
	sum, err := ParseSidecar(f, req.SourceName)
	if err != nil {
		return "", fault.Wrap(err, fault.Fatal, "read "+name)
	}
	if sum == "" {
		return "", fault.New(fault.Validation, "read "+name, "Invalid MD5 from server")
	}
	return sum, nil
}

func (p *Pipeline) transfer(ctx context.Context, art *Artifact, compact bool, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return fault.Wrap(err, fault.Interrupted, "copy "+art.Name)
	}
	fileutil.RemoveIfFile(art.Temp)
	if err := os.MkdirAll(fp.Dir(art.Temp), 0755); err != nil {
		return fault.Wrap(err, fault.PermissionDenied, "copy "+art.Name)
	}
	log.Logf("Transferring using %s from %s to %s", p.Transport, art.Source, art.Temp)
	p.calls++
	if err := p.Transport.Copy(ctx, art.Source, art.Temp, CopyOpts{Timeout: timeout, Compact: compact}); err != nil {
		fileutil.RemoveIfFile(art.Temp)
		return err
	}
	if fi, err := os.Stat(art.Temp); err == nil {
		art.Size = fi.Size()
		log.Logf("*** Downloaded file is of size %d ***", art.Size)
	} else {
		log.Logf("WARN: Failed to get size of %s", art.Temp)
	}
	return nil
}

// commit moves the temp file to its final name.
func commit(art Artifact) error {
	if err := os.Rename(art.Temp, art.Final); err != nil {
		fileutil.RemoveIfFile(art.Temp)
		return fault.Wrap(err, fault.Fatal, "commit "+art.Name)
	}
	log.Logf("Renamed %s to %s", art.Temp, art.Final)
	return nil
}
