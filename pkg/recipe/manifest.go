// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package recipe

import (
	"fmt"
	"sort"
	"sync"

	"github.com/prologic/bitcask"
)

// Manifest records each package before it is registered with the switch,
// so an aborted run can undo exactly what it started. Entries survive a
// crash of the run itself.
type Manifest struct {
	bc *bitcask.Bitcask
	sync.Mutex
}

// OpenManifest opens or creates the store in dir.
func OpenManifest(dir string) (*Manifest, error) {
	bc, err := bitcask.Open(dir)
	if err != nil {
		return nil, err
	}
	return &Manifest{bc: bc}, nil
}

// Record appends name.
func (m *Manifest) Record(name string) error {
	m.Lock()
	defer m.Unlock()
	return m.bc.Put(seqKey(m.bc.Len()), []byte(name))
}

// Entries returns recorded names in the order recorded.
func (m *Manifest) Entries() ([]string, error) {
	m.Lock()
	defer m.Unlock()
	var keys []string
	for k := range m.bc.Keys() {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		v, err := m.bc.Get([]byte(k))
		if err != nil {
			return nil, err
		}
		names = append(names, string(v))
	}
	return names, nil
}

func (m *Manifest) Close() error {
	m.Lock()
	defer m.Unlock()
	return m.bc.Close()
}

func seqKey(n int) []byte { return []byte(fmt.Sprintf("%08d", n)) }
