// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package log

import (
	"errors"
	"sync"
)

var (
	attrs   = map[string]interface{}{}
	attrsMu sync.Mutex
)

var EAttrExists = errors.New("an attr with this name already exists")

// Well-known attrs.
const (
	// path of the bootflash run log, set by AddNamedFileLog
	AttrFilename = "Filename"
)

// GetAttr returns an attribute registered by a sink.
func GetAttr(key string) (interface{}, bool) {
	attrsMu.Lock()
	defer attrsMu.Unlock()
	v, ok := attrs[key]
	return v, ok
}

// SetAttr registers an attribute. Names are unique per stack.
func SetAttr(key string, val interface{}) error {
	attrsMu.Lock()
	defer attrsMu.Unlock()
	if _, exists := attrs[key]; exists {
		return EAttrExists
	}
	attrs[key] = val
	return nil
}

// ClearAttrs forgets all attributes.
func ClearAttrs() {
	attrsMu.Lock()
	defer attrsMu.Unlock()
	for key := range attrs {
		delete(attrs, key)
	}
}

// LogFile returns the path of the bootflash run log, if one is open.
func LogFile() string {
	v, ok := GetAttr(AttrFilename)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}
