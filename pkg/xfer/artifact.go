// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package xfer

import (
	"bufio"
	"crypto/md5"
	"fmt"
	"io"
	"os"
	fp "path/filepath"
	"regexp"
	"strings"

	"github.com/nmortari/nxospoap/pkg/log"
)

// Checksum is a lowercase hex MD5 digest.
type Checksum string

// Artifact is one remote file staged to local storage. Temp holds the
// partial download; the file only appears under Final once complete.
type Artifact struct {
	Name     string
	Source   string // remote path, as understood by the transport
	Temp     string
	Final    string
	Checksum Checksum // empty if none was supplied
	Size     int64
}

// Verify compares the checksum of Final with a.Checksum. The file is synced
// first so the digest reflects what is on flash.
func (a *Artifact) Verify() (bool, error) {
	f, err := os.Open(a.Final)
	if err != nil {
		return false, err
	}
	defer f.Close()
	if err = f.Sync(); err != nil {
		log.Logf("sync %s: %s", a.Final, err)
	}
	sum, err := sumReader(f)
	if err != nil {
		return false, err
	}
	if fi, err := f.Stat(); err == nil {
		a.Size = fi.Size()
	}
	log.Logf("Verifying MD5 checksum of %s (size %d)", a.Final, a.Size)
	log.Logf("MD5 given: %s", a.Checksum)
	log.Logf("MD5 calculated: %s", sum)
	if sum != a.Checksum {
		log.Logf("MD5 mis-match for file: %s", a.Final)
		return false, nil
	}
	log.Logf("MD5 match for file: %s", a.Final)
	return true, nil
}

// FileMD5 returns the MD5 digest of the named file.
func FileMD5(name string) (Checksum, error) {
	f, err := os.Open(name)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return sumReader(f)
}

func sumReader(r io.Reader) (Checksum, error) {
	h := md5.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return Checksum(fmt.Sprintf("%x", h.Sum(nil))), nil
}

var md5Token = regexp.MustCompile(`^[0-9a-fA-F]{32}$`)

// ParseSidecar extracts the checksum for name from the content of a .md5
// file. Two line forms are accepted:
//
//	md5sum=<digest>
//	<digest>  <name>
//
// The first line yielding a 32 hex digit token wins. An empty name matches
// any line of the second form. Returns "" if no line qualifies.
func ParseSidecar(r io.Reader, name string) (Checksum, error) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		var tok string
		switch {
		case strings.HasPrefix(line, "md5sum"):
			if i := strings.Index(line, "="); i >= 0 {
				tok = strings.TrimSpace(line[i+1:])
			}
		case name == "" || strings.Contains(line, name):
			if f := strings.Fields(line); len(f) > 0 {
				tok = f[0]
			}
		}
		if md5Token.MatchString(tok) {
			return Checksum(strings.ToLower(tok)), nil
		}
		if line != "" {
			log.Logf("Found non-MD5 checksum line: %s", line)
		}
	}
	return "", sc.Err()
}

// WriteSidecar writes <name>.md5 next to name in the `<digest>  <base>`
// form. Returns the sidecar's path.
func WriteSidecar(name string) (string, error) {
	sum, err := FileMD5(name)
	if err != nil {
		return "", err
	}
	out := name + ".md5"
	line := fmt.Sprintf("%s  %s\n", sum, fp.Base(name))
	return out, os.WriteFile(out, []byte(line), 0644)
}
