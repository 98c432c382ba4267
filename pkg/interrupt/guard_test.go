// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package interrupt

import (
	"context"
	"syscall"
	"testing"
	"time"

	"github.com/nmortari/nxospoap/pkg/fault"
	"github.com/nmortari/nxospoap/pkg/log/testlog"
)

func TestCleanupState(t *testing.T) {
	tlog := testlog.NewTestLog(t, true, false)
	g := New()
	ctx := g.Watch(context.Background())
	defer g.Stop()

	if err := g.Checkpoint("facts"); err != nil {
		t.Fatal(err)
	}
	g.Raise("terminated")
	if !fault.Is(g.Checkpoint("copy image"), fault.Interrupted) {
		t.Error("checkpoint passed after interrupt")
	}
	select {
	case <-ctx.Done():
	default:
		t.Error("context not canceled")
	}
	if !tlog.Contains("cleaning up") {
		t.Error(tlog.String())
	}
}

func TestDeferState(t *testing.T) {
	tlog := testlog.NewTestLog(t, true, false)
	g := New()
	ctx := g.Watch(context.Background())
	defer g.Stop()

	g.Defer()
	g.Raise("terminated")
	if err := g.Checkpoint("install"); err != nil {
		t.Errorf("deferred interrupt reported: %v", err)
	}
	if ctx.Err() != nil {
		t.Error("context canceled while deferred")
	}
	if !g.Pending() || g.State() != DeferOnInterrupt {
		t.Errorf("pending %t state %s", g.Pending(), g.State())
	}
	if !tlog.Contains("deferring") {
		t.Error(tlog.String())
	}
}

func TestSignal(t *testing.T) {
	testlog.NewTestLog(t, true, false)
	g := New()
	ctx := g.Watch(context.Background(), syscall.SIGUSR1)
	defer g.Stop()
	if err := syscall.Kill(syscall.Getpid(), syscall.SIGUSR1); err != nil {
		t.Fatal(err)
	}
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("signal not observed")
	}
	if !g.Pending() {
		t.Error("not pending")
	}
}

func TestEarlyInterruptSurvivesDefer(t *testing.T) {
	testlog.NewTestLog(t, true, false)
	g := New()
	g.Raise("interrupt")
	g.Defer()
	if !fault.Is(g.Checkpoint("rpm"), fault.Interrupted) {
		t.Error("interrupt before defer was lost")
	}
}
