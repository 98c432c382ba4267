// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Package fileutil holds the local-filesystem helpers shared by the
// provisioning steps: bootflash path conversion, file type sniffing, copies
// and removal of run artifacts.
package fileutil

import (
	"bufio"
	"bytes"
	"io"
	"os"
	fp "path/filepath"
	"sort"
	"strings"

	"github.com/nmortari/nxospoap/pkg/log"
)

var (
	xzId    = [6]byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00} // fd 37 7a 58 5a 00 -> xz archive
	utf8BOM = []byte{0xef, 0xbb, 0xbf}
)

// Bootflash is where the device mounts its local flash.
const Bootflash = "/bootflash"

//return n bytes from beginning of file
func ReadHeader(fname string, n int64) ([]byte, error) {
	f, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	head, err := io.ReadAll(io.LimitReader(f, n))
	if err != nil {
		return nil, err
	}
	if int64(len(head)) < n {
		return nil, io.ErrUnexpectedEOF
	}
	return head, nil
}

//checks for XZ header
func IsXZ(fname string) bool {
	head, err := ReadHeader(fname, int64(len(xzId)))
	if err != nil {
		log.Logf("failed to read head bytes from %s: %s", fname, err)
		return false
	}
	return bytes.Equal(head, xzId[:])
}

// CLIPath converts a local path under /bootflash into the device CLI form
// (bootflash:x). Other paths are returned unchanged.
func CLIPath(p string) string {
	if p == Bootflash {
		return "bootflash:"
	}
	if strings.HasPrefix(p, Bootflash+"/") {
		return "bootflash:" + strings.TrimPrefix(p, Bootflash+"/")
	}
	return p
}

// Exists reports whether p exists and is a regular file.
func Exists(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && fi.Mode().IsRegular()
}

// RemoveIfFile removes p if it exists and is not a directory. Failures are
// logged, not returned; cleanup continues past them.
func RemoveIfFile(p string) bool {
	if !Exists(p) {
		return false
	}
	log.Logf("Removing file: %s", p)
	if err := os.Remove(p); err != nil {
		log.Logf("Failed to remove %s: %s", p, err)
		return false
	}
	return true
}

// RemoveGlob removes regular files matching pattern, newest name first.
// Returns the number removed.
func RemoveGlob(pattern string) int {
	matches, err := fp.Glob(pattern)
	if err != nil {
		log.Logf("bad pattern %s: %s", pattern, err)
		return 0
	}
	sort.Sort(sort.Reverse(sort.StringSlice(matches)))
	n := 0
	for _, m := range matches {
		if RemoveIfFile(m) {
			n++
		}
	}
	return n
}

// FirstLine returns the first line of fname without its newline.
func FirstLine(fname string) (string, error) {
	f, err := os.Open(fname)
	if err != nil {
		return "", err
	}
	defer f.Close()
	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// SkipBOM discards a leading UTF-8 byte order mark. Config files edited on
// Windows hosts often carry one, and the CLI rejects the first line if so.
func SkipBOM(r *bufio.Reader) error {
	head, err := r.Peek(len(utf8BOM))
	if err == nil && bytes.Equal(head, utf8BOM) {
		_, err = r.Discard(len(utf8BOM))
		return err
	}
	if err == io.EOF || err == bufio.ErrBufferFull {
		return nil
	}
	return err
}

// ReadLines reads all lines of r, dropping a leading BOM and trailing
// carriage returns.
func ReadLines(r io.Reader) ([]string, error) {
	br := bufio.NewReader(r)
	if err := SkipBOM(br); err != nil {
		return nil, err
	}
	var lines []string
	scanner := bufio.NewScanner(br)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), "\r"))
	}
	return lines, scanner.Err()
}
