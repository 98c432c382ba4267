// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Package devicetest provides a scripted device.Channel for tests.
package devicetest

import (
	"context"
	"strings"
	"sync"

	"github.com/nmortari/nxospoap/pkg/device"
	"github.com/nmortari/nxospoap/pkg/fault"
)

// Response is one scripted reply. Do, if set, runs before the reply is
// returned; use it for side effects such as creating the file a copy
// command would have written.
type Response struct {
	Out string
	Err error
	Do  func(cmd string)
}

// Handler answers every command starting with Prefix that has no exact entry.
type Handler struct {
	Prefix string
	Fn     func(cmd string) (string, error)
}

// Script is a fake channel. Exact entries are consumed in order; the last
// response for a command repeats once the others are used up. Commands with
// neither an entry nor a handler fail with a Fatal fault.
type Script struct {
	mu        sync.Mutex
	responses map[string][]Response
	handlers  []Handler
	calls     []string
}

var _ device.Channel = (*Script)(nil)

func New() *Script {
	return &Script{responses: map[string][]Response{}}
}

// On appends responses for cmd and returns s for chaining.
func (s *Script) On(cmd string, rs ...Response) *Script {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[cmd] = append(s.responses[cmd], rs...)
	return s
}

// OK scripts a successful cmd with output out.
func (s *Script) OK(cmd, out string) *Script { return s.On(cmd, Response{Out: out}) }

// Fail scripts cmd to fail with a fault of kind k carrying msg.
func (s *Script) Fail(cmd string, k fault.Kind, msg string) *Script {
	return s.On(cmd, Response{Out: msg, Err: &fault.Error{Kind: k, Op: cmd, Err: errString(msg)}})
}

// Handle adds a prefix handler.
func (s *Script) Handle(prefix string, fn func(cmd string) (string, error)) *Script {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, Handler{Prefix: prefix, Fn: fn})
	return s
}

func (s *Script) Exec(ctx context.Context, cmd string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", device.Classify(ctx, cmd, "", err)
	}
	s.mu.Lock()
	s.calls = append(s.calls, cmd)
	rs, ok := s.responses[cmd]
	var r Response
	if ok && len(rs) > 0 {
		r = rs[0]
		if len(rs) > 1 {
			s.responses[cmd] = rs[1:]
		}
	}
	var handler func(string) (string, error)
	if !ok {
		for _, h := range s.handlers {
			if strings.HasPrefix(cmd, h.Prefix) {
				handler = h.Fn
				break
			}
		}
	}
	s.mu.Unlock()

	switch {
	case ok:
		if r.Do != nil {
			r.Do(cmd)
		}
		return r.Out, r.Err
	case handler != nil:
		return handler(cmd)
	}
	return "", &fault.Error{Kind: fault.Fatal, Op: cmd, Err: errString("unscripted command")}
}

func (s *Script) Close() error { return nil }

// Calls returns every command executed so far, in order.
func (s *Script) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// Count returns how many executed commands start with prefix.
func (s *Script) Count(prefix string) int {
	n := 0
	for _, c := range s.Calls() {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

type errString string

func (e errString) Error() string { return string(e) }
