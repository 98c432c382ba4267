// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Package poap drives one Power-On Auto Provisioning run: it works out
// where the switch is on its upgrade path, stages the next image (and on the
// last step its configuration and recipe files), then installs. Any failure
// takes the abort path, which undoes what the run changed.
package poap

import (
	"context"
	"os"
	"path"
	fp "path/filepath"
	"runtime/debug"
	"strconv"

	"github.com/nmortari/nxospoap/pkg/device"
	"github.com/nmortari/nxospoap/pkg/fault"
	"github.com/nmortari/nxospoap/pkg/fileutil"
	"github.com/nmortari/nxospoap/pkg/identity"
	"github.com/nmortari/nxospoap/pkg/install"
	"github.com/nmortari/nxospoap/pkg/interrupt"
	"github.com/nmortari/nxospoap/pkg/log"
	"github.com/nmortari/nxospoap/pkg/options"
	"github.com/nmortari/nxospoap/pkg/recipe"
	"github.com/nmortari/nxospoap/pkg/splitter"
	"github.com/nmortari/nxospoap/pkg/upgrade"
	"github.com/nmortari/nxospoap/pkg/xfer"
)

const (
	// replay file left by an interrupted POAP configuration apply
	replayFile   = "poap_replay01.cfg"
	manifestName = ".success_install_list"
)

// Runner holds everything one run needs. Fields are set by the caller;
// unexported ones record what the run has done so far, for the abort path.
type Runner struct {
	Opts      options.Options
	Ch        device.Channel
	Host      device.Host
	Guard     *interrupt.Guard
	Transport xfer.Transport
	// local flash; /bootflash on the switch
	Flash string
	RunID string
	// adjusts the installer before use; may be nil
	Tune func(*install.Orchestrator)

	facts    device.Facts
	images   *xfer.Pipeline
	files    *xfer.Pipeline
	store    *recipe.Store
	manifest *recipe.Manifest
	split    []string
}

// Execute runs the sequence, turning a panic into a fault, and takes the
// abort path on any error.
func (r *Runner) Execute(ctx context.Context) (err error) {
	defer func() {
		if x := recover(); x != nil {
			stars := "***********************************************************"
			log.Logf("Exception: %T %v", x, x)
			log.Logf("%s\nstack trace:\n%s\n%s", stars, debug.Stack(), stars)
			err = fault.New(fault.Fatal, "run", "internal error: %v", x)
		}
		if err != nil {
			r.Abort(err)
		}
	}()
	return r.Run(ctx)
}

// Run performs the provisioning sequence without cleanup.
func (r *Runner) Run(ctx context.Context) error {
	o := r.Opts
	log.Logf("POAP run %s", r.RunID)
	if err := os.MkdirAll(o.DestinationPath, 0755); err != nil {
		return fault.Wrap(err, fault.PermissionDenied, "create "+o.DestinationPath)
	}
	r.images = xfer.New(r.Transport, o.DestinationPath)
	r.images.SidecarTimeout = o.TimeoutConfig
	r.files = xfer.New(r.Transport, r.Flash)
	r.files.SidecarTimeout = o.TimeoutConfig

	id, err := identity.NewResolver(o, r.Ch, r.images).Resolve(ctx)
	if err != nil {
		return err
	}
	if r.facts, err = device.Gather(ctx, r.Ch); err != nil {
		return err
	}
	legacy := r.Host.LegacyReload()
	variant := r.Host.Variant()

	p, err := r.path(id)
	if err != nil {
		return err
	}
	if o.OnlyAllowVersionsInPath {
		log.Logf("Only switches that are listed in your upgrade path will be affected")
		if err = upgrade.Member(p, r.facts.BootedImage); err != nil {
			return err
		}
	}
	if err = r.checkCapacity(); err != nil {
		return err
	}

	res := upgrade.Resolve(p, r.facts.BootedImage)
	log.Msgf("Upgrade path %s from %s: %s", p, r.facts.BootedImage, res)
	if res.Decision == upgrade.None {
		return r.orchestrator(install.ISSU).Install(ctx, res.Decision, install.Staged{})
	}
	if err = r.Guard.Checkpoint("resolve"); err != nil {
		return err
	}

	var rec *recipe.Recipe
	if o.InstallPath != "" && o.Mode != options.ModePersonality {
		if rec, err = r.recipe(ctx, id); err != nil {
			return err
		}
		if rec != nil && rec.TargetImage != "" {
			log.Logf("Recipe overrides target image %s with %s", res.Target, rec.TargetImage)
			res.Target = rec.TargetImage
		}
	}

	strategy := install.SelectStrategy(o.InstallMode, legacy, res.Target)
	orch := r.orchestrator(strategy)

	var configs []string
	if res.Decision == upgrade.Final && o.Mode != options.ModePersonality {
		log.Logf("The configuration will now be copied because this is the final upgrade")
		if configs, err = r.stageConfig(ctx, id, res.Target, legacy, rec); err != nil {
			return err
		}
	}

	staged, err := r.stageImage(ctx, res.Target, variant)
	if err != nil {
		return err
	}
	staged.Configs = configs
	staged.SkipErase = o.Mode == options.ModePersonality
	if err = r.Guard.Checkpoint("stage"); err != nil {
		return err
	}

	r.Guard.Defer()
	if rec != nil {
		if err = r.applyRecipe(rec); err != nil {
			return err
		}
	}
	if o.Mode == options.ModePersonality && res.Decision == upgrade.Final {
		resolver := identity.NewResolver(o, r.Ch, r.images)
		if err = resolver.Restore(ctx, id); err != nil {
			return err
		}
	}
	if err = orch.Install(ctx, res.Decision, staged); err != nil {
		return err
	}
	if strategy == install.ISSU {
		orch.ClearMarker()
	}
	if r.manifest != nil {
		r.manifest.Close()
		r.manifest = nil
	}
	log.Msgf("POAP run %s complete", r.RunID)
	return nil
}

// path is the configured upgrade path, or in personality mode the image the
// tarball was built for.
func (r *Runner) path(id identity.Identity) (upgrade.Path, error) {
	if r.Opts.Mode == options.ModePersonality {
		return upgrade.NewPath([]string{id.Image})
	}
	return upgrade.NewPath(r.Opts.UpgradePath)
}

func (r *Runner) orchestrator(s install.Strategy) *install.Orchestrator {
	orch := install.New(r.Ch, r.facts, s)
	orch.Guard = r.Guard
	orch.Flash = r.Flash
	orch.InstallTimeout = r.Opts.TimeoutCopySystem
	if r.Tune != nil {
		r.Tune(orch)
	}
	return orch
}

func (r *Runner) checkCapacity() error {
	log.Logf("Collecting bootflash storage information")
	c, err := fileutil.StatCapacity(r.Flash)
	if err != nil {
		return fault.Wrap(err, fault.Fatal, "stat "+r.Flash)
	}
	log.Logf("Bootflash total capacity: %s", fileutil.FormatMB(c.TotalMB))
	log.Logf("Bootflash used space: %s", fileutil.FormatMB(c.UsedMB()))
	log.Logf("Bootflash free space: %s", fileutil.FormatMB(c.FreeMB))
	need := fileutil.FormatMB(r.Opts.RequiredSpaceMB)
	if r.Opts.RequiredSpaceMB >= c.FreeMB {
		return fault.New(fault.NoSpace, "storage", "Bootflash free space does not meet the requirement of: %s", need)
	}
	log.Logf("Bootflash required space of %s has been satisfied", need)
	return nil
}

func (r *Runner) recipe(ctx context.Context, id identity.Identity) (*recipe.Recipe, error) {
	o := r.Opts
	rec, err := recipe.Lookup(ctx, r.files, o.InstallPath, id.Serial, o.RequireMD5, o.TimeoutCopySystem)
	if err != nil || rec == nil {
		if rec == nil && err == nil {
			log.Logf("Although 'install_path' is set, proceeding with legacy poap workflow because yaml file for device is not found")
		}
		return nil, err
	}
	if err = recipe.Stage(ctx, r.files, rec, o.InstallPath, o.TimeoutCopySystem); err != nil {
		return nil, err
	}
	return rec, nil
}

// stageConfig fetches the configuration, splits it and writes the
// partitions to flash. It returns their CLI paths in apply order.
func (r *Runner) stageConfig(ctx context.Context, id identity.Identity, target string, legacy bool, rec *recipe.Recipe) ([]string, error) {
	o := r.Opts
	req := xfer.Request{
		SourceDir:       o.ConfigPath,
		SourceName:      id.ConfigFile,
		DestName:        o.DestinationConfig,
		Timeout:         o.TimeoutConfig,
		RequireChecksum: o.RequireMD5,
		ReuseExisting:   true,
	}
	if _, err := r.images.Fetch(ctx, req); err != nil {
		return nil, err
	}
	local := r.images.Artifact(req).Final
	lines, err := splitter.ReadFile(local)
	if err != nil {
		return nil, fault.Wrap(err, fault.Fatal, "read "+local)
	}

	sp := splitter.Splitter{Image: fileutil.CLIPath(fp.Join(o.DestinationPath, target)), MTC: r.facts.MTC}
	var pre, post splitter.Partition
	if splitter.NotNeeded(target, legacy) {
		log.Logf("Skip split config as it isn't needed with %s", target)
		pre, post = sp.Passthrough(lines)
	} else {
		pre, post = sp.Split(lines)
	}
	if rec != nil {
		post = rec.Emit(post)
	}
	fileutil.RemoveIfFile(local)

	var configs []string
	for _, part := range []struct {
		name  string
		lines splitter.Partition
	}{{o.SplitConfigFirst, pre}, {o.SplitConfigSecond, post}} {
		if len(part.lines) == 0 {
			continue
		}
		name := fp.Join(r.Flash, part.name)
		r.split = append(r.split, name)
		if err := part.lines.WriteFile(name); err != nil {
			return nil, fault.Wrap(err, fault.NoSpace, "write "+name)
		}
		configs = append(configs, fileutil.CLIPath(name))
	}
	return configs, nil
}

// stageImage fetches target, unless the switch already runs it and no
// checksum is required.
func (r *Runner) stageImage(ctx context.Context, target string, variant upgrade.Variant) (install.Staged, error) {
	o := r.Opts
	staged := install.Staged{Target: target}
	if !o.RequireMD5 && upgrade.IsRunning(target, r.facts.Version, variant) {
		log.Logf("Currently running image is target image. Skipping system image download")
		staged.ImageFile = fp.Join(r.Flash, r.facts.BootedImage)
		staged.Image = fileutil.CLIPath(staged.ImageFile)
		return staged, nil
	}
	src := o.UpgradeImagePath
	if o.Mode == options.ModePersonality {
		src = o.PersonalityPath
	}
	req := xfer.Request{
		SourceDir:       src,
		SourceName:      target,
		Timeout:         o.TimeoutCopySystem,
		RequireChecksum: o.RequireMD5,
		TryCompact:      xfer.Compact(o),
	}
	log.Logf("INFO: Starting Copy of System Image")
	if _, err := r.images.Fetch(ctx, req); err != nil {
		return staged, err
	}
	staged.ImageFile = r.images.Artifact(req).Final
	staged.Image = fileutil.CLIPath(staged.ImageFile)
	log.Logf("INFO: Completed Copy of System Image to %s", staged.ImageFile)
	return staged, nil
}

// applyRecipe records the staged recipe files and registers its packages.
func (r *Runner) applyRecipe(rec *recipe.Recipe) error {
	ws := fp.Join(r.Flash, recipe.WorkspaceName)
	r.store = recipe.NewStore(ws, r.Flash, r.facts.Standby, r.major())
	if err := r.store.SyncStandby(); err != nil {
		return err
	}
	m, err := recipe.OpenManifest(fp.Join(ws, manifestName))
	if err != nil {
		return fault.Wrap(err, fault.Fatal, "open manifest")
	}
	r.manifest = m
	for _, l := range [][]string{rec.License, rec.Certificate} {
		for _, f := range l {
			if err = m.Record(path.Base(f)); err != nil {
				return fault.Wrap(err, fault.Fatal, "record "+f)
			}
		}
	}
	return r.store.Install(m, rec.RPMFiles())
}

func (r *Runner) major() int {
	parts := upgrade.VersionParts(r.facts.Version)
	if len(parts) == 0 {
		return 0
	}
	n, _ := strconv.Atoi(parts[0])
	return n
}

// Abort undoes the run: package registrations are rolled back and every
// file this run created is removed.
func (r *Runner) Abort(cause error) {
	log.Logf("ERROR: %s", cause)
	if r.manifest != nil {
		if err := r.store.Rollback(r.manifest); err != nil {
			log.Logf("rollback: %s", err)
		}
		r.manifest.Close()
		r.manifest = nil
	}
	log.Logf("Cleaning up all POAP files")
	for _, p := range []*xfer.Pipeline{r.images, r.files} {
		if p == nil {
			continue
		}
		for _, f := range p.Fetched() {
			fileutil.RemoveIfFile(f)
			fileutil.RemoveIfFile(f + ".tmp")
		}
	}
	for _, f := range r.split {
		fileutil.RemoveIfFile(f)
	}
	store := r.store
	if store == nil {
		store = recipe.NewStore(fp.Join(r.Flash, recipe.WorkspaceName), r.Flash, r.facts.Standby, 0)
	}
	store.RemoveWorkspace()
	fileutil.RemoveIfFile(fp.Join(r.Flash, replayFile))
}
