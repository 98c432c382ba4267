// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package log

// memLimit bounds what memLog retains; older entries are dropped first.
const memLimit = 4096

// memLog is the initial sink. It keeps recent entries so sinks added later
// (the run log file once bootflash is known, syslog once the device prefix
// is) start with everything logged before them.
type memLog struct {
	entries []LogEntry
	dropped int
	next    StackableLogger
}

var _ StackableLogger = (*memLog)(nil)

const MemLogIdent = "memLog"

func (ml *memLog) AddEntry(e LogEntry) {
	if len(ml.entries) == memLimit {
		copy(ml.entries, ml.entries[1:])
		ml.entries = ml.entries[:memLimit-1]
		ml.dropped++
	}
	ml.entries = append(ml.entries, e)
	if ml.next != nil {
		ml.next.AddEntry(e)
	}
}

func (ml *memLog) ForwardTo(sl StackableLogger) {
	if ml.next != nil && sl != nil {
		panic("next already set")
	}
	ml.next = sl
}

func (ml *memLog) Ident() string         { return MemLogIdent }
func (ml *memLog) Next() StackableLogger { return ml.next }

func (ml *memLog) Finalize() {
	ml.entries = nil
	if ml.next != nil {
		ml.next.Finalize()
	}
}

func (ml *memLog) Entries() []LogEntry { return ml.entries }

// StoredEntries returns a copy of what the memLog holds, or nil without one.
func StoredEntries() []LogEntry {
	logStackMtx.Lock()
	defer logStackMtx.Unlock()
	mem, ok := FindInStack(MemLogIdent).(*memLog)
	if !ok {
		return nil
	}
	return append([]LogEntry(nil), mem.entries...)
}

// DroppedEntries is how many entries the memLog discarded for lack of room.
func DroppedEntries() int {
	logStackMtx.Lock()
	defer logStackMtx.Unlock()
	if mem, ok := FindInStack(MemLogIdent).(*memLog); ok {
		return mem.dropped
	}
	return 0
}

// FlushMemLog drops the memLog once a durable sink holds the history.
func FlushMemLog() {
	RemoveLogger(MemLogIdent)
}
