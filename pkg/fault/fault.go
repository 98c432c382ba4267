// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Package fault is the error taxonomy of a provisioning run. Components return
// *Error values carrying a Kind; callers branch on the kind, never on text.
package fault

import (
	"errors"
	"fmt"
)

type Kind int

const (
	// zero value; only returned by KindOf(nil)
	Unknown Kind = iota
	Validation
	NotFound
	PermissionDenied
	NoSpace
	TransportTimeout
	ChecksumMismatch
	// the remote side does not support a requested transfer option
	CapabilityUnsupported
	// the device CLI refused the command; may succeed when retried
	CommandRejected
	// a termination signal was observed at a checkpoint
	Interrupted
	Fatal
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case NotFound:
		return "not found"
	case PermissionDenied:
		return "permission denied"
	case NoSpace:
		return "no space"
	case TransportTimeout:
		return "transport timeout"
	case ChecksumMismatch:
		return "checksum mismatch"
	case CapabilityUnsupported:
		return "capability unsupported"
	case CommandRejected:
		return "command rejected"
	case Interrupted:
		return "interrupted"
	case Fatal:
		return "fatal"
	}
	return "unknown"
}

// Transfer reports whether k is one of the kinds a transport may surface.
func (k Kind) Transfer() bool {
	switch k {
	case NotFound, PermissionDenied, NoSpace, TransportTimeout:
		return true
	}
	return false
}

// Error is a classified failure. Op names the operation that failed, for
// example "copy poap.cfg" or "install all".
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op == "" && e.Err == nil:
		return e.Kind.String()
	case e.Err == nil:
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	case e.Op == "":
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an *Error with a formatted cause.
func New(kind Kind, op, format string, va ...interface{}) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, va...)}
}

// Wrap classifies err. A nil err yields nil.
func Wrap(err error, kind Kind, op string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the outermost *Error in err's chain. Errors
// without one are Fatal; nil is Unknown.
func KindOf(err error) Kind {
	if err == nil {
		return Unknown
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Fatal
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Recoverable reports whether err has a defined recovery: one alternate
// retry for CapabilityUnsupported, bounded retry for CommandRejected.
func Recoverable(err error) bool {
	switch KindOf(err) {
	case CapabilityUnsupported, CommandRejected:
		return true
	}
	return false
}
