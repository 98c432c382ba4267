// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Package upgrade decides which image a device should step to next, given the
// operator's ordered upgrade path and the image the device booted.
package upgrade

import (
	"strings"

	"github.com/nmortari/nxospoap/pkg/fault"
)

// Path is an ordered, non-empty list of image file names. The zero value is
// not a valid path; use NewPath.
type Path struct {
	images []string
}

// NewPath copies images into a Path. Empty input or blank entries are
// Validation faults.
func NewPath(images []string) (Path, error) {
	if len(images) == 0 {
		return Path{}, fault.New(fault.Validation, "upgrade path", "no images listed")
	}
	p := Path{images: make([]string, len(images))}
	for i, img := range images {
		img = strings.TrimSpace(img)
		if img == "" {
			return Path{}, fault.New(fault.Validation, "upgrade path", "entry %d is blank", i)
		}
		p.images[i] = img
	}
	return p, nil
}

func (p Path) Len() int { return len(p.images) }

// Last is the final image of the path.
func (p Path) Last() string { return p.images[len(p.images)-1] }

// Images returns a copy of the path.
func (p Path) Images() []string { return append([]string(nil), p.images...) }

// Contains reports whether img appears anywhere in the path.
func (p Path) Contains(img string) bool {
	return p.index(img) >= 0
}

func (p Path) index(img string) int {
	for i, e := range p.images {
		if e == img {
			return i
		}
	}
	return -1
}

func (p Path) String() string { return strings.Join(p.images, " -> ") }
