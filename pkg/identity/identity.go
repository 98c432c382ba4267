// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Package identity works out which configuration file belongs to this switch,
// according to the configured mode.
package identity

import (
	"context"
	fp "path/filepath"

	"github.com/nmortari/nxospoap/pkg/device"
	"github.com/nmortari/nxospoap/pkg/fault"
	"github.com/nmortari/nxospoap/pkg/fileutil"
	"github.com/nmortari/nxospoap/pkg/log"
	"github.com/nmortari/nxospoap/pkg/options"
	"github.com/nmortari/nxospoap/pkg/xfer"
)

// Identity is what a mode resolves to.
type Identity struct {
	// name of the configuration file on the server
	ConfigFile string
	// key for per-device recipes
	Serial string

	// set in personality mode only
	Tarball string
	Image   string
}

// Resolver resolves the identity for one run.
type Resolver struct {
	Opts options.Options
	Ch   device.Channel
	// fetches the personality tarball
	Pipeline *xfer.Pipeline
	// probed for MAC-named configuration files in USB mode
	USBRoot string
}

func NewResolver(o options.Options, ch device.Channel, p *xfer.Pipeline) *Resolver {
	return &Resolver{Opts: o, Ch: ch, Pipeline: p, USBRoot: xfer.USBSlot(o.USBSlot).Root}
}

// Resolve applies the configured mode. Modes that find nothing better keep
// source_config_file.
func (r *Resolver) Resolve(ctx context.Context) (Identity, error) {
	env := r.Opts.Env
	id := Identity{ConfigFile: r.Opts.SourceConfigFile, Serial: env.Serial}
	switch r.Opts.Mode {
	case options.ModeSerial:
		log.Logf("Setting source configuration filename based on serial number")
		if env.Serial != "" {
			log.Logf("System serial number: %s", env.Serial)
			id.ConfigFile = "conf." + env.Serial
		}
	case options.ModeMAC:
		r.mac(&id)
	case options.ModeHostname:
		if env.HostName != "" {
			log.Logf("Host Name: [%s]", env.HostName)
			id.ConfigFile = "conf_" + env.HostName + ".cfg"
		} else {
			log.Logf("Host Name information missing, falling back to static mode")
		}
	case options.ModeLocation:
		name, err := r.location(ctx)
		if err != nil {
			return id, err
		}
		id.ConfigFile = name
	case options.ModePersonality:
		return r.personality(ctx, id)
	case options.ModeRaw:
	default:
		return id, fault.New(fault.Validation, "identity", "invalid mode %q", r.Opts.Mode)
	}
	log.Logf("Selected conf file name : %s", id.ConfigFile)
	return id, nil
}

func (r *Resolver) mac(id *Identity) {
	env := r.Opts.Env
	if !env.USB() {
		if env.MAC != "" {
			log.Logf("Interface MAC %s", env.MAC)
			id.ConfigFile = "conf_" + env.MAC + ".cfg"
			id.Serial = env.MAC
		}
		return
	}
	for _, m := range []struct{ what, mac string }{{"Router", env.RMAC}, {"MGMT", env.MgmtMAC}} {
		if m.mac == "" {
			continue
		}
		name := "conf_" + m.mac + ".cfg"
		id.Serial = m.mac
		log.Logf("%s MAC conf file name : %s", m.what, name)
		if fileutil.Exists(fp.Join(r.USBRoot, name)) {
			id.ConfigFile = name
			return
		}
	}
}
