// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package device

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/nmortari/nxospoap/pkg/fault"
	"github.com/nmortari/nxospoap/pkg/log"
)

// SSHConfig selects a remote CLI, for driving a switch from a staging host.
type SSHConfig struct {
	Address    string // host:port
	User       string
	KeyFile    string
	KnownHosts string // empty accepts any host key
}

// SSH runs each command in its own session on one connection.
type SSH struct {
	client *ssh.Client
}

var _ Channel = (*SSH)(nil)

func DialSSH(ctx context.Context, cfg SSHConfig) (*SSH, error) {
	var auth []ssh.AuthMethod
	if cfg.KeyFile != "" {
		key, err := os.ReadFile(cfg.KeyFile)
		if err != nil {
			return nil, fault.Wrap(err, fault.NotFound, "ssh key")
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fault.Wrap(err, fault.Validation, "ssh key")
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	hostKey := ssh.InsecureIgnoreHostKey()
	if cfg.KnownHosts != "" {
		cb, err := knownhosts.New(cfg.KnownHosts)
		if err != nil {
			return nil, fault.Wrap(err, fault.Validation, "ssh known hosts")
		}
		hostKey = cb
	}
	conf := &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            auth,
		HostKeyCallback: hostKey,
	}
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", cfg.Address)
	if err != nil {
		return nil, Classify(ctx, "ssh dial "+cfg.Address, "", err)
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, cfg.Address, conf)
	if err != nil {
		conn.Close()
		return nil, Classify(ctx, "ssh handshake "+cfg.Address, "", err)
	}
	log.Logf("ssh channel to %s@%s established", cfg.User, cfg.Address)
	return &SSH{client: ssh.NewClient(c, chans, reqs)}, nil
}

func (s *SSH) Exec(ctx context.Context, cmd string) (string, error) {
	log.Logf("Running over ssh: %s", cmd)
	sess, err := s.client.NewSession()
	if err != nil {
		return "", Classify(ctx, cmd, "", err)
	}
	defer sess.Close()
	var buf bytes.Buffer
	sess.Stdout = &buf
	sess.Stderr = &buf
	done := make(chan error, 1)
	go func() { done <- sess.Run(cmd) }()
	select {
	case err = <-done:
	case <-ctx.Done():
		sess.Signal(ssh.SIGTERM)
		sess.Close()
		<-done
		err = ctx.Err()
	}
	out := buf.String()
	if err != nil {
		log.Logf("ssh command %q: error %s\noutput:\n%s", cmd, err, out)
	}
	if cerr := Classify(ctx, cmd, out, err); cerr != nil {
		return out, cerr
	}
	return out, nil
}

func (s *SSH) Close() error {
	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	if err != nil {
		return fmt.Errorf("closing ssh channel: %w", err)
	}
	return nil
}
