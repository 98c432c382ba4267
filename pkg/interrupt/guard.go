// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Package interrupt tracks termination signals for a run. Early in a run a
// signal cancels the run context and the next checkpoint fails, so cleanup
// can happen. Once the switch is being modified in ways that must not stop
// halfway, the guard is moved to Defer: signals are logged and otherwise
// ignored until the run ends.
package interrupt

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/nmortari/nxospoap/pkg/fault"
	"github.com/nmortari/nxospoap/pkg/log"
)

type State int

const (
	CleanupOnInterrupt State = iota
	DeferOnInterrupt
)

func (s State) String() string {
	if s == DeferOnInterrupt {
		return "defer"
	}
	return "cleanup"
}

type sigChan chan os.Signal

// Guard is safe for use from the signal goroutine and the run.
type Guard struct {
	mu      sync.Mutex
	state   State
	pending bool
	// an interrupt arrived in the cleanup state
	early  bool
	cancel context.CancelFunc
	sig    sigChan
	done   chan struct{}
}

func New() *Guard { return &Guard{} }

// Watch starts listening for SIGTERM and SIGINT, or for sigs if given. The
// returned context is canceled by a signal arriving in the cleanup state.
// Call Stop when the run ends.
func (g *Guard) Watch(parent context.Context, sigs ...os.Signal) context.Context {
	if len(sigs) == 0 {
		sigs = []os.Signal{syscall.SIGTERM, syscall.SIGINT}
	}
	ctx, cancel := context.WithCancel(parent)
	g.mu.Lock()
	g.cancel = cancel
	g.sig = make(sigChan, 1)
	g.done = make(chan struct{})
	sig, done := g.sig, g.done
	g.mu.Unlock()

	signal.Notify(sig, sigs...)
	go func() {
		for {
			select {
			case s := <-sig:
				g.Raise(s.String())
			case <-done:
				return
			}
		}
	}()
	return ctx
}

// Stop stops signal delivery to the guard.
func (g *Guard) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sig == nil {
		return
	}
	signal.Stop(g.sig)
	close(g.done)
	g.sig = nil
	if g.cancel != nil {
		g.cancel()
	}
}

// Raise records an interrupt as if a signal named what had arrived.
func (g *Guard) Raise(what string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pending = true
	if g.state == DeferOnInterrupt {
		log.Logf("INFO: got %s, deferring until the install completes", what)
		return
	}
	log.Logf("INFO: got %s, cleaning up", what)
	g.early = true
	if g.cancel != nil {
		g.cancel()
	}
}

// Defer moves the guard to DeferOnInterrupt. There is no way back: once
// irrevocable changes start, the run either finishes or fails on its own.
// An interrupt that arrived earlier is still reported by Checkpoint.
func (g *Guard) Defer() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != DeferOnInterrupt {
		log.Logf("signals are now deferred")
	}
	g.state = DeferOnInterrupt
}

func (g *Guard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Pending reports whether an interrupt has been seen.
func (g *Guard) Pending() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pending
}

// Checkpoint returns an Interrupted fault if an interrupt arrived while the
// guard was in the cleanup state.
func (g *Guard) Checkpoint(op string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.early {
		return fault.New(fault.Interrupted, op, "termination signal received")
	}
	return nil
}
