// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package xfer

import (
	"context"
	"errors"
	"fmt"
	"os"
	fp "path/filepath"
	"syscall"

	"github.com/nmortari/nxospoap/pkg/fault"
	"github.com/nmortari/nxospoap/pkg/fileutil"
	"github.com/nmortari/nxospoap/pkg/log"
)

// USB copies from a mounted USB slot.
type USB struct {
	Root string // e.g. /usbslot1
}

var _ Transport = USB{}

func USBSlot(n int) USB { return USB{Root: fmt.Sprintf("/usbslot%d", n)} }

func (u USB) String() string { return "usb " + u.Root }

func (u USB) Copy(ctx context.Context, src, dest string, o CopyOpts) error {
	op := "copy " + src
	if o.Compact {
		return fault.New(fault.CapabilityUnsupported, op, "compact copy is not possible from usb")
	}
	if err := ctx.Err(); err != nil {
		return fault.Wrap(err, fault.Interrupted, op)
	}
	from := fp.Join(u.Root, src)
	if !fileutil.Exists(from) {
		return fault.New(fault.NotFound, op, "%s does NOT exist", from)
	}
	log.Logf("Copying from %s to %s", from, dest)
	if err := fileutil.CopyFile(from, dest, 0); err != nil {
		return fault.Wrap(err, localKind(err), op)
	}
	return nil
}

// localKind classifies a local filesystem error.
func localKind(err error) fault.Kind {
	switch {
	case errors.Is(err, syscall.ENOSPC):
		return fault.NoSpace
	case errors.Is(err, os.ErrNotExist):
		return fault.NotFound
	case errors.Is(err, os.ErrPermission):
		return fault.PermissionDenied
	}
	return fault.Fatal
}
