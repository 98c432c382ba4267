// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package recipe

import (
	"bufio"
	"bytes"
	"os"
	"os/exec"
	fp "path/filepath"
	"strings"

	"github.com/google/shlex"

	"github.com/nmortari/nxospoap/pkg/fault"
	"github.com/nmortari/nxospoap/pkg/fileutil"
	"github.com/nmortari/nxospoap/pkg/log"
)

// Standby supervisor flash, as mounted on the active one.
const StandbyRoot = "/bootflash_sup-remote"

// Paths under a flash root.
const (
	patchRepo   = ".rpmstore/patching/patchrepo"
	featureRepo = ".rpmstore/patching/localrepo"
	thirdRepo   = ".rpmstore/thirdparty"
	patchMeta   = ".rpmstore/patching/patchrepo/meta/patching_meta.inf"
	persisted   = ".rpmstore/nxos_rpms_persisted"
)

// Command templates, split with shell quoting rules.
const (
	rpmQueryCmd   = "/usr/bin/rpm -qp --qf"
	createrepoCmd = "sudo /usr/bin/createrepo_c --update"
	genpkgCmd     = "sudo /usr/bin/python /usr/share/createrepo/genpkgmetadata.py"
)

// Query formats.
const (
	QueryFileName = "%{NAME}-%{VERSION}-%{RELEASE}.%{ARCH}.rpm"
	queryName     = "%{NAME}"
	queryGroup    = "%{GROUP}"
	queryType     = "%{NXOSRPMTYPE}"
)

type RPMKind int

const (
	ThirdParty RPMKind = iota
	// NX-OS feature package
	Feature
	Patch
)

func (k RPMKind) String() string {
	switch k {
	case Feature:
		return "nxos"
	case Patch:
		return "patch"
	}
	return "third-party"
}

func (k RPMKind) repo() string {
	switch k {
	case Feature:
		return featureRepo
	case Patch:
		return patchRepo
	}
	return thirdRepo
}

func run(template string, args ...string) (string, error) {
	argv, err := shlex.Split(template)
	if err != nil {
		return "", err
	}
	argv = append(argv, args...)
	return log.Cmd(exec.Command(argv[0], argv[1:]...))
}

// QueryRPM runs rpm -qp with the given query format on file.
func QueryRPM(file, format string) (string, error) {
	out, err := run(rpmQueryCmd, format, file)
	if err != nil {
		return "", fault.Wrap(err, fault.Fatal, "query "+fp.Base(file))
	}
	return strings.TrimSpace(out), nil
}

// Store registers packages with the switch's package repositories. Every
// change is made on the active supervisor's flash and mirrored on the
// standby's when there is one.
type Store struct {
	Workspace string // staged files, e.g. /bootflash/poap_files
	Roots     []string
	// running NX-OS major version; selects the repo metadata tool
	Major int
}

// NewStore returns a store for the active root, plus the standby root when
// standby is set.
func NewStore(workspace, active string, standby bool, major int) *Store {
	s := &Store{Workspace: workspace, Roots: []string{active}, Major: major}
	if standby {
		s.Roots = append(s.Roots, StandbyRoot)
	}
	return s
}

// Classify queries the package group and NX-OS type of a staged RPM.
func (s *Store) Classify(file string) (RPMKind, error) {
	pkg := fp.Join(s.Workspace, file)
	grp, err := QueryRPM(pkg, queryGroup)
	if err != nil {
		return ThirdParty, err
	}
	if strings.Contains(grp, "Patch-RPM") {
		return Patch, nil
	}
	typ, err := QueryRPM(pkg, queryType)
	if err != nil {
		return ThirdParty, err
	}
	if strings.Contains(typ, "feature") {
		return Feature, nil
	}
	return ThirdParty, nil
}

// each runs fn for every root. A failure on the active root is returned;
// failures on the standby are logged.
func (s *Store) each(fn func(root string) error) error {
	for i, root := range s.Roots {
		if err := fn(root); err != nil {
			if i == 0 {
				return err
			}
			log.Logf("standby %s: %s", root, err)
		}
	}
	return nil
}

func (s *Store) refresh(root string, k RPMKind) error {
	dir := fp.Join(root, k.repo()) + "/"
	var err error
	switch {
	case s.Major >= 10:
		_, err = run(createrepoCmd, dir)
	case k == Patch:
		_, err = run(genpkgCmd, "--update", dir)
	default:
		_, err = run(genpkgCmd, dir)
	}
	if err != nil {
		return fault.Wrap(err, fault.Fatal, "refresh "+dir)
	}
	return nil
}

// Install schedules the named workspace RPMs for installation on the next
// reload. Each name is recorded in m before anything is changed for it.
func (s *Store) Install(m *Manifest, rpms []string) error {
	var patches []string
	for _, file := range rpms {
		log.Logf("Installing rpm file: %s", file)
		if err := m.Record(file); err != nil {
			return fault.Wrap(err, fault.Fatal, "record "+file)
		}
		kind, err := s.Classify(file)
		if err != nil {
			return err
		}
		log.Logf("RPM %s is a %s RPM", file, kind)
		if kind == Patch {
			name := strings.TrimSuffix(file, ".rpm")
			if metaHas(fp.Join(s.Roots[0], patchMeta), name) {
				log.Logf("patch %s already committed", name)
				continue
			}
			patches = append(patches, name)
		}
		err = s.each(func(root string) error {
			dir := fp.Join(root, kind.repo())
			if err := os.MkdirAll(dir, 0755); err != nil {
				return err
			}
			if err := fileutil.CopyFile(fp.Join(s.Workspace, file), fp.Join(dir, file), 0); err != nil {
				return fault.Wrap(err, fault.Fatal, "copy "+file)
			}
			return s.refresh(root, kind)
		})
		if err != nil {
			return err
		}
		if kind != Patch {
			name, err := QueryRPM(fp.Join(s.Workspace, file), queryName)
			if err != nil {
				return err
			}
			if err = s.each(func(root string) error { return addLine(fp.Join(root, persisted), name) }); err != nil {
				return fault.Wrap(err, fault.Fatal, "persist "+name)
			}
		}
		log.Logf("RPM %s scheduled to be installed on next reload.", file)
	}
	if len(patches) == 0 {
		return nil
	}
	return s.each(func(root string) error {
		if err := commitPatches(fp.Join(root, patchMeta), patches); err != nil {
			return fault.Wrap(err, fault.Fatal, "commit patches")
		}
		return nil
	})
}

// Rollback reverses Install for the RPMs in m, newest first. Other entries
// need nothing beyond removal of the workspace.
func (s *Store) Rollback(m *Manifest) error {
	entries, err := m.Entries()
	if err != nil {
		return err
	}
	for i := len(entries) - 1; i >= 0; i-- {
		file := entries[i]
		if !strings.HasSuffix(file, ".rpm") {
			continue
		}
		kind, err := s.Classify(file)
		kinds := []RPMKind{kind}
		if err != nil {
			log.Logf("cannot classify %s (%s); removing from every repo", file, err)
			kinds = []RPMKind{Patch, Feature, ThirdParty}
		}
		log.Logf("Rolling back %s RPM %s", kind, file)
		for _, k := range kinds {
			s.each(func(root string) error {
				fileutil.RemoveIfFile(fp.Join(root, k.repo(), file))
				if k == Patch {
					if err := dropPatch(fp.Join(root, patchMeta), strings.TrimSuffix(file, ".rpm")); err != nil {
						log.Logf("%s: %s", patchMeta, err)
					}
				}
				return s.refresh(root, k)
			})
		}
		if len(kinds) == 1 && kind == Patch {
			continue
		}
		log.Logf("Removal of RPM names from nxos_rpms_persisted list")
		name, err := QueryRPM(fp.Join(s.Workspace, file), queryName)
		if err != nil {
			log.Logf("%s", err)
			continue
		}
		s.each(func(root string) error { return dropLine(fp.Join(root, persisted), name) })
	}
	return nil
}

// RemoveWorkspace deletes the workspace on every root.
func (s *Store) RemoveWorkspace() {
	base := fp.Base(s.Workspace)
	for _, root := range s.Roots {
		dir := fp.Join(root, base)
		log.Logf("Removing %s", dir)
		if err := os.RemoveAll(dir); err != nil {
			log.Logf("remove %s: %s", dir, err)
		}
	}
}

// SyncStandby mirrors the workspace onto the standby supervisor's flash.
func (s *Store) SyncStandby() error {
	for _, root := range s.Roots[1:] {
		log.Logf("copying %s to %s", s.Workspace, root)
		if err := fileutil.RecursiveCopy(s.Workspace, root); err != nil {
			return fault.Wrap(err, fault.Fatal, "sync standby")
		}
	}
	return nil
}

func readLines(name string) ([]string, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return fileutil.ReadLines(f)
}

func writeLines(name string, lines []string) error {
	var b bytes.Buffer
	w := bufio.NewWriter(&b)
	for _, l := range lines {
		w.WriteString(l)
		w.WriteByte('\n')
	}
	w.Flush()
	if err := os.MkdirAll(fp.Dir(name), 0755); err != nil {
		return err
	}
	return os.WriteFile(name, b.Bytes(), 0644)
}

// addLine appends line to file unless an identical line exists.
func addLine(name, line string) error {
	lines, err := readLines(name)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	for _, l := range lines {
		if l == line {
			return nil
		}
	}
	return writeLines(name, append(lines, line))
}

func dropLine(name, line string) error {
	lines, err := readLines(name)
	if err != nil {
		return err
	}
	var keep []string
	for _, l := range lines {
		if l != line {
			keep = append(keep, l)
		}
	}
	return writeLines(name, keep)
}

const committedList = "committed_list = "

// metaHas reports whether patch name appears in the patching metadata.
func metaHas(meta, name string) bool {
	lines, err := readLines(meta)
	if err != nil {
		return false
	}
	for _, l := range lines {
		if strings.Contains(l, name) {
			return true
		}
	}
	return false
}

// commitPatches adds names to the committed_list line of the patching
// metadata, creating the line and the [patching] section as needed.
func commitPatches(meta string, names []string) error {
	lines, err := readLines(meta)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	joined := strings.Join(names, " ")
	section := false
	for i, l := range lines {
		if strings.Contains(l, "committed_list") {
			lines[i] = strings.TrimRight(l, " ") + " " + joined
			return writeLines(meta, lines)
		}
		if strings.Contains(l, "[patching]") {
			section = true
		}
	}
	if !section {
		lines = append(lines, "[patching]")
	}
	return writeLines(meta, append(lines, committedList+joined))
}

// dropPatch removes name from the committed_list line.
func dropPatch(meta, name string) error {
	lines, err := readLines(meta)
	if err != nil {
		return err
	}
	for i, l := range lines {
		if strings.Contains(l, "committed_list") {
			lines[i] = strings.Replace(l, " "+name, "", -1)
		}
	}
	return writeLines(meta, lines)
}
