// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package fileutil

import (
	"fmt"
	"io"
	"os"
	fp "path/filepath"
	"strings"
	"syscall"

	"github.com/nmortari/nxospoap/pkg/log"
)

// Copy a file. Assumes any dirs have already been created. Copies metadata.
func CopyFile(src, dest string, destFlags int) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	return copyFileI(src, dest, info, destFlags)
}

//like CopyFile; use when file has already been stat'd.
func copyFileI(src, dest string, info os.FileInfo, destFlags int) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dest, os.O_RDWR|os.O_CREATE|os.O_TRUNC|destFlags, 0666)
	if err != nil {
		return err
	}
	defer out.Close()
	n, err := io.Copy(out, in)
	if err != nil {
		out.Close()
		os.Remove(dest)
		return err
	}
	if n < info.Size() {
		return fmt.Errorf("copied %d bytes, expected %d", n, info.Size())
	}
	if err = out.Chmod(info.Mode()); err != nil {
		return err
	}
	if sys, ok := info.Sys().(*syscall.Stat_t); ok {
		if err = out.Chown(int(sys.Uid), int(sys.Gid)); err != nil {
			log.Logf("error %s setting uid/gid of %s", err, dest)
		}
	}
	return os.Chtimes(dest, info.ModTime(), info.ModTime())
}

// RecursiveCopy copies dir src into dest, so that src's contents end up in
// dest/<base of src>. Used to mirror the workspace onto the standby
// supervisor's flash.
func RecursiveCopy(src, dest string) error {
	destDir := fp.Join(dest, fp.Base(src))
	if err := os.MkdirAll(destDir, 0777); err != nil {
		return err
	}
	return fp.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel := strings.TrimPrefix(path, src)
		destPath := fp.Join(destDir, rel)
		if info.IsDir() {
			if err := os.Mkdir(destPath, 0777); err != nil && !os.IsExist(err) {
				return err
			}
			return nil
		}
		if err := copyFileI(path, destPath, info, 0); err != nil {
			log.Logf("error %s copying %s to %s", err, path, destPath)
			return err
		}
		return nil
	})
}
