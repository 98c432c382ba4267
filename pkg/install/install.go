// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Package install puts a staged image (and, on the last step of the upgrade
// path, a staged configuration) into effect.
package install

import (
	"context"
	"os"
	"time"

	"github.com/nmortari/nxospoap/pkg/device"
	"github.com/nmortari/nxospoap/pkg/fault"
	"github.com/nmortari/nxospoap/pkg/fileutil"
	"github.com/nmortari/nxospoap/pkg/interrupt"
	"github.com/nmortari/nxospoap/pkg/log"
	"github.com/nmortari/nxospoap/pkg/options"
	"github.com/nmortari/nxospoap/pkg/upgrade"
)

// IssuMarker exists while an in-service upgrade may be running. The switch
// checks for it after an unexpected reload.
const IssuMarker = "/tmp/poap_issu_started"

type Strategy int

const (
	// in-service upgrade with install all
	ISSU Strategy = iota
	// set the boot variable and save; the new image loads on next reload
	Classic
)

func (s Strategy) String() string {
	if s == Classic {
		return "classic"
	}
	return "issu"
}

// SelectStrategy maps install_mode to a strategy. Auto picks ISSU unless the
// device reloads the legacy way or the target is not an nxos image.
func SelectStrategy(mode string, legacyReload bool, target string) Strategy {
	switch mode {
	case options.InstallClassic:
		return Classic
	case options.InstallAuto:
		if legacyReload || !upgrade.NXOSFamily(target) {
			return Classic
		}
	}
	return ISSU
}

// Staged lists what the runner put on flash.
type Staged struct {
	// image name as resolved from the upgrade path
	Target string
	// local file that must exist before installing
	ImageFile string
	// image as the CLI addresses it, e.g. bootflash:nxos.9.3.9.bin
	Image string
	// configuration partitions in apply order, as CLI paths; FINAL only
	Configs []string
	// configuration was already restored another way (personality restore);
	// leave the startup configuration alone
	SkipErase bool
}

// Orchestrator runs the install commands.
type Orchestrator struct {
	Ch       device.Channel
	Facts    device.Facts
	Strategy Strategy
	// switched to deferral before anything is changed; may be nil
	Guard *interrupt.Guard

	// flash reported on install failure
	Flash  string
	Marker string
	// pause after commands that change device state
	Settle     time.Duration
	RetryEvery time.Duration
	RetryFor   time.Duration
	// deadline for install all
	InstallTimeout time.Duration

	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

func New(ch device.Channel, f device.Facts, s Strategy) *Orchestrator {
	return &Orchestrator{
		Ch:         ch,
		Facts:      f,
		Strategy:   s,
		Flash:      fileutil.Bootflash,
		Marker:     IssuMarker,
		Settle:     5 * time.Second,
		RetryEvery: 30 * time.Second,
		RetryFor:   10 * time.Minute,
		Now:        time.Now,
		Sleep:      sleep,
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return fault.Wrap(ctx.Err(), fault.Interrupted, "sleep")
	case <-t.C:
		return nil
	}
}

func (o *Orchestrator) exec(ctx context.Context, cmd string) (string, error) {
	log.Logf("Running command: %s", cmd)
	return o.Ch.Exec(ctx, cmd)
}

// Install applies decision d to the staged files.
func (o *Orchestrator) Install(ctx context.Context, d upgrade.Decision, s Staged) error {
	if d == upgrade.None {
		return fault.New(fault.Fatal, "install", "nothing to do: already running the last image of the upgrade path")
	}
	if o.Guard != nil {
		o.Guard.Defer()
	}
	if !fileutil.Exists(s.ImageFile) {
		return fault.New(fault.NotFound, "install",
			"File %s was not found on the bootflash! The installation cannot run.", s.ImageFile)
	}
	log.Logf("File %s was found on the bootflash", s.Image)

	if d == upgrade.Final && !s.SkipErase {
		if err := o.applyConfig(ctx, s.Configs); err != nil {
			return err
		}
	}

	log.Logf("Checking if bios upgrade is needed")
	if NeedsBIOS(o.Facts, s.Target) {
		log.Logf("Installing new BIOS (will take up to 5 minutes. Don't abort)")
		if err := o.installBIOS(ctx, s.Image); err != nil {
			return err
		}
	}

	log.Logf("Installing image %s using %s", s.Image, o.Strategy)
	if o.Strategy == Classic {
		return o.classic(ctx, s.Image)
	}
	return o.issu(ctx, s.Image)
}

// applyConfig erases the startup configuration so that install all is not
// blocked by incompatible configuration, then schedules the staged partitions.
func (o *Orchestrator) applyConfig(ctx context.Context, configs []string) error {
	for _, cmd := range []string{
		"config ; no boot poap enable",
		"copy running-config startup-config",
		"terminal dont-ask ; write erase",
	} {
		if _, err := o.exec(ctx, cmd); err != nil {
			log.Logf("Unable to erase startup configuration!")
			return fault.Wrap(err, fault.KindOf(err), "erase configuration")
		}
		if err := o.Sleep(ctx, o.Settle); err != nil {
			return err
		}
	}
	log.Logf("Startup configuration has been successfully erased")

	for _, cfg := range configs {
		if _, err := o.exec(ctx, "copy "+cfg+" scheduled-config"); err != nil {
			log.Logf("Could not copy configuration file %s to startup configuration!", cfg)
			return fault.Wrap(err, fault.KindOf(err), "schedule "+cfg)
		}
		if err := o.Sleep(ctx, o.Settle); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) issu(ctx context.Context, image string) error {
	if err := os.WriteFile(o.Marker, nil, 0644); err != nil {
		return fault.Wrap(err, fault.Fatal, "write "+o.Marker)
	}
	cmd := "terminal dont-ask ; install all nxos " + image + " non-interruptive"
	log.Logf("The script will run the following install command:")
	if _, err := device.ExecTimeout(ctx, o.Ch, o.InstallTimeout, cmd); err != nil {
		log.Logf("Failed to ISSU to image %s", image)
		o.logFree()
		return fault.Wrap(err, fault.KindOf(err), "install all")
	}
	return o.Sleep(ctx, o.Settle)
}

// ClearMarker removes the ISSU marker once the caller has seen the install
// succeed.
func (o *Orchestrator) ClearMarker() {
	fileutil.RemoveIfFile(o.Marker)
}

func (o *Orchestrator) classic(ctx context.Context, image string) error {
	if _, err := o.exec(ctx, "config terminal ; boot nxos "+image); err != nil {
		log.Logf("Failed to set NXOS boot variable to %s", image)
		return fault.Wrap(err, fault.KindOf(err), "boot nxos")
	}
	end := o.Now().Add(o.RetryFor)
	for {
		_, err := o.exec(ctx, "copy running-config startup-config")
		if err == nil {
			break
		}
		if !fault.Is(err, fault.CommandRejected) {
			return fault.Wrap(err, fault.KindOf(err), "copy running-config startup-config")
		}
		log.Logf("WARNING: copy run to start failed")
		if o.Now().After(end) {
			log.Logf("ERROR: time out waiting for \"copy run start\" to complete successfully")
			return fault.Wrap(err, fault.Fatal, "copy running-config startup-config")
		}
		log.Logf("WARNING: retry in %s", o.RetryEvery)
		if err := o.Sleep(ctx, o.RetryEvery); err != nil {
			return err
		}
	}
	log.Logf("INFO: Configuration successful")
	return nil
}

func (o *Orchestrator) logFree() {
	c, err := fileutil.StatCapacity(o.Flash)
	if err != nil {
		log.Logf("cannot stat %s: %s", o.Flash, err)
		return
	}
	log.Logf("%0.2f%% bootflash free", c.FreePercent())
}
