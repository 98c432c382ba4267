// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package recipe

import (
	"context"
	"encoding/json"
	"os"
	fp "path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/nmortari/nxospoap/pkg/fault"
	"github.com/nmortari/nxospoap/pkg/log/testlog"
	"github.com/nmortari/nxospoap/pkg/splitter"
	"github.com/nmortari/nxospoap/pkg/xfer"
)

const fullRecipe = `Version: 1
Target_image: nxos.9.3.9.bin
License:
  - lic/LIC1.lic
RPM:
  - rpms/foo-1.0-1.x86_64.rpm
Certificate:
  - certs/a.pem
Trustpoint:
  ca1:
    certs/ca1/id.p12: "secret"
`

func TestParse(t *testing.T) {
	for _, td := range []struct {
		name, data string
		wantErr    string
	}{
		{name: "full", data: fullRecipe},
		{name: "minimal", data: "Version: 1\n"},
		{name: "extra keys", data: "Version: 1\nComment: hi\n"},
		{name: "no version", data: "License:\n  - a.lic\n", wantErr: "Version keyword not found"},
		{name: "version 2", data: "Version: 2\n", wantErr: "Version given is not 1"},
		{name: "version string", data: "Version: one\n", wantErr: "Version given is not 1"},
		{name: "null key", data: "Version: 1\nRPM:\n", wantErr: "keys with no value: RPM"},
		{name: "bad yaml", data: "Version: [1\n", wantErr: "parse recipe"},
		{name: "license ext", data: "Version: 1\nLicense:\n  - a.txt\n", wantErr: "a.txt"},
		{name: "rpm ext", data: "Version: 1\nRPM:\n  - a.deb\n  - b.tgz\n", wantErr: "b.tgz"},
		{name: "trustpoint ext", data: "Version: 1\nTrustpoint:\n  ca:\n    x.pem: pw\n", wantErr: "x.pem"},
		{name: "numeric passphrase", data: "Version: 1\nTrustpoint:\n  ca:\n    x.p12: 1234\n", wantErr: "parse recipe"},
		{name: "license not list", data: "Version: 1\nLicense: a.lic\n", wantErr: "parse recipe"},
	} {
		t.Run(td.name, func(t *testing.T) {
			testlog.NewTestLog(t, true, false)
			r, err := Parse([]byte(td.data))
			if td.wantErr == "" {
				if err != nil {
					t.Fatal(err)
				}
				if r.Version != 1 {
					t.Errorf("version %d", r.Version)
				}
				return
			}
			if err == nil {
				t.Fatalf("want error containing %q, got %s", td.wantErr, r)
			}
			if !fault.Is(err, fault.Validation) {
				t.Errorf("want validation fault, got %v", err)
			}
			if !strings.Contains(err.Error(), td.wantErr) {
				t.Errorf("error %q does not contain %q", err, td.wantErr)
			}
		})
	}
}

func TestFiles(t *testing.T) {
	testlog.NewTestLog(t, true, false)
	r, err := Parse([]byte(fullRecipe))
	if err != nil {
		t.Fatal(err)
	}
	if r.TargetImage != "nxos.9.3.9.bin" {
		t.Errorf("target %q", r.TargetImage)
	}
	want := []File{
		{Remote: "lic/LIC1.lic", Local: "LIC1.lic"},
		{Remote: "rpms/foo-1.0-1.x86_64.rpm", Local: "foo-1.0-1.x86_64.rpm"},
		{Remote: "certs/a.pem", Local: "a.pem"},
		{Remote: "certs/ca1/id.p12", Local: "ca1/id.p12"},
	}
	if got := r.Files(); !reflect.DeepEqual(got, want) {
		t.Errorf("\n got %#v\nwant %#v", got, want)
	}
	if got := r.RPMFiles(); !reflect.DeepEqual(got, []string{"foo-1.0-1.x86_64.rpm"}) {
		t.Errorf("rpm files %v", got)
	}
}

func TestEmit(t *testing.T) {
	testlog.NewTestLog(t, true, false)
	r, err := Parse([]byte(fullRecipe))
	if err != nil {
		t.Fatal(err)
	}
	got := r.Emit(splitter.Partition{"hostname sw1"})
	want := splitter.Partition{
		"install license bootflash:poap_files/LIC1.lic",
		"hostname sw1",
		"crypto ca trustpoint ca1",
		"crypto ca import ca1 pkcs12 bootflash:poap_files/ca1/id.p12 secret",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("\n got %q\nwant %q", got, want)
	}
}

func TestSchema(t *testing.T) {
	data, err := SchemaJSON()
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]interface{}
	if err = json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "Target_image") {
		t.Errorf("schema lacks Target_image:\n%s", data)
	}
}

func TestManifest(t *testing.T) {
	dir := t.TempDir()
	m, err := OpenManifest(fp.Join(dir, "manifest"))
	if err != nil {
		t.Fatal(err)
	}
	names := []string{"b.rpm", "a.lic", "c.rpm"}
	for _, n := range names {
		if err = m.Record(n); err != nil {
			t.Fatal(err)
		}
	}
	if err = m.Close(); err != nil {
		t.Fatal(err)
	}
	m, err = OpenManifest(fp.Join(dir, "manifest"))
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()
	got, err := m.Entries()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, names) {
		t.Errorf("got %v want %v", got, names)
	}
}

func rpmQuery(file, format string) testlog.Key {
	return testlog.CmdKey([]string{"/usr/bin/rpm", "-qp", "--qf", format, file})
}

func refresh(args ...string) testlog.Key {
	return testlog.CmdKey(append([]string{"sudo"}, args...))
}

func ok(out string) testlog.HijackerData {
	return testlog.HijackerData{Result: testlog.Result{Out: out}}
}

func readFile(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(name)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestStoreInstallRollback(t *testing.T) {
	tlog := testlog.NewTestLog(t, true, false)
	active, standby := t.TempDir(), t.TempDir()
	ws := fp.Join(active, WorkspaceName)
	if err := os.MkdirAll(ws, 0755); err != nil {
		t.Fatal(err)
	}
	const (
		third = "foo-1.0-1.x86_64.rpm"
		patch = "nxos.CSCab12345-n9k_ALL-1.0.0-9.3.9.lib32_n9000.rpm"
	)
	for _, f := range []string{third, patch} {
		if err := os.WriteFile(fp.Join(ws, f), []byte(f), 0644); err != nil {
			t.Fatal(err)
		}
	}
	s := NewStore(ws, active, false, 9)
	s.Roots = append(s.Roots, standby)

	cmds := testlog.CmdMap{
		rpmQuery(fp.Join(ws, third), queryGroup): ok("Applications/Internet\n"),
		rpmQuery(fp.Join(ws, third), queryType):  ok("(none)\n"),
		rpmQuery(fp.Join(ws, third), queryName):  ok("foo\n"),
		rpmQuery(fp.Join(ws, patch), queryGroup): ok("Patch-RPM/swid-n9k_ALL\n"),
	}
	for _, root := range s.Roots {
		cmds[refresh("/usr/bin/python", "/usr/share/createrepo/genpkgmetadata.py", fp.Join(root, thirdRepo)+"/")] = ok("")
		cmds[refresh("/usr/bin/python", "/usr/share/createrepo/genpkgmetadata.py", "--update", fp.Join(root, patchRepo)+"/")] = ok("")
	}
	tlog.UseMappedCmdHijacker(cmds)

	m, err := OpenManifest(fp.Join(t.TempDir(), "manifest"))
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()
	if err = s.Install(m, []string{third, patch}); err != nil {
		t.Fatal(err)
	}
	for _, root := range s.Roots {
		if readFile(t, fp.Join(root, thirdRepo, third)) != third {
			t.Errorf("%s: third-party rpm not copied", root)
		}
		if !fileExists(fp.Join(root, patchRepo, patch)) {
			t.Errorf("%s: patch not copied", root)
		}
		if got := readFile(t, fp.Join(root, persisted)); got != "foo\n" {
			t.Errorf("%s: persisted %q", root, got)
		}
		want := "[patching]\ncommitted_list = " + strings.TrimSuffix(patch, ".rpm") + "\n"
		if got := readFile(t, fp.Join(root, patchMeta)); got != want {
			t.Errorf("%s: meta\n got %q\nwant %q", root, got, want)
		}
	}
	entries, err := m.Entries()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(entries, []string{third, patch}) {
		t.Errorf("manifest %v", entries)
	}

	if err = s.Rollback(m); err != nil {
		t.Fatal(err)
	}
	for _, root := range s.Roots {
		if fileExists(fp.Join(root, thirdRepo, third)) || fileExists(fp.Join(root, patchRepo, patch)) {
			t.Errorf("%s: rpm left in repo", root)
		}
		if got := readFile(t, fp.Join(root, persisted)); got != "" {
			t.Errorf("%s: persisted %q", root, got)
		}
		if got := readFile(t, fp.Join(root, patchMeta)); got != "[patching]\ncommitted_list =\n" {
			t.Errorf("%s: meta %q", root, got)
		}
	}
}

func fileExists(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}

func TestCommitPatches(t *testing.T) {
	for _, td := range []struct {
		name, before, want string
	}{
		{name: "missing", want: "[patching]\ncommitted_list = p1 p2\n"},
		{name: "section only", before: "[patching]\n", want: "[patching]\ncommitted_list = p1 p2\n"},
		{name: "list", before: "[patching]\ncommitted_list = p0\n", want: "[patching]\ncommitted_list = p0 p1 p2\n"},
	} {
		t.Run(td.name, func(t *testing.T) {
			meta := fp.Join(t.TempDir(), "meta", "patching_meta.inf")
			if td.before != "" {
				os.MkdirAll(fp.Dir(meta), 0755)
				if err := os.WriteFile(meta, []byte(td.before), 0644); err != nil {
					t.Fatal(err)
				}
			}
			if err := commitPatches(meta, []string{"p1", "p2"}); err != nil {
				t.Fatal(err)
			}
			if got := readFile(t, meta); got != td.want {
				t.Errorf("\n got %q\nwant %q", got, td.want)
			}
			if !metaHas(meta, "p1") || metaHas(meta, "p9") {
				t.Error("metaHas")
			}
		})
	}
}

func TestCheckRPMNames(t *testing.T) {
	tlog := testlog.NewTestLog(t, true, false)
	dir := t.TempDir()
	tlog.UseMappedCmdHijacker(testlog.CmdMap{
		rpmQuery(fp.Join(dir, "good-1-1.x86_64.rpm"), QueryFileName): ok("good-1-1.x86_64.rpm\n"),
		rpmQuery(fp.Join(dir, "bad.rpm"), QueryFileName):             ok("bad-2-1.noarch.rpm\n"),
	})
	err := CheckRPMNames(dir, []string{"good-1-1.x86_64.rpm", "bad.rpm"})
	if !fault.Is(err, fault.Validation) || !strings.Contains(err.Error(), "bad.rpm") {
		t.Errorf("got %v", err)
	}
	if !tlog.Contains("bad.rpm should be renamed to bad-2-1.noarch.rpm") {
		t.Error("rename hint not logged")
	}
	if err = CheckRPMNames(dir, []string{"good-1-1.x86_64.rpm"}); err != nil {
		t.Error(err)
	}
}

// memRemote serves files from a map.
type memRemote map[string]string

func (m memRemote) String() string { return "mem" }

func (m memRemote) Copy(ctx context.Context, src, dest string, o xfer.CopyOpts) error {
	content, ok := m[src]
	if !ok {
		return fault.New(fault.NotFound, "copy "+src, "no such file")
	}
	return os.WriteFile(dest, []byte(content), 0644)
}

func TestLookup(t *testing.T) {
	for _, td := range []struct {
		name   string
		remote memRemote
		found  bool
	}{
		{name: "yaml", remote: memRemote{"/srv/SAL123/SAL123.yaml": "Version: 1\n"}, found: true},
		{name: "yml", remote: memRemote{"/srv/SAL123/SAL123.yml": "Version: 1\n"}, found: true},
		{name: "none", remote: memRemote{}},
	} {
		t.Run(td.name, func(t *testing.T) {
			testlog.NewTestLog(t, true, false)
			p := xfer.New(td.remote, t.TempDir())
			r, err := Lookup(context.Background(), p, "/srv", "SAL123", false, 0)
			if err != nil {
				t.Fatal(err)
			}
			if (r != nil) != td.found {
				t.Errorf("found=%t, want %t", r != nil, td.found)
			}
		})
	}
	t.Run("invalid", func(t *testing.T) {
		testlog.NewTestLog(t, true, false)
		p := xfer.New(memRemote{"/srv/SAL123/SAL123.yaml": "Version: 3\n"}, t.TempDir())
		if _, err := Lookup(context.Background(), p, "/srv", "SAL123", false, 0); !fault.Is(err, fault.Validation) {
			t.Errorf("got %v", err)
		}
	})
}

func TestStage(t *testing.T) {
	tlog := testlog.NewTestLog(t, true, false)
	r, err := Parse([]byte(fullRecipe))
	if err != nil {
		t.Fatal(err)
	}
	remote := memRemote{
		"/srv/lic/LIC1.lic":              "license",
		"/srv/rpms/foo-1.0-1.x86_64.rpm": "rpm",
		"/srv/certs/a.pem":               "pem",
		"/srv/certs/ca1/id.p12":          "p12",
	}
	dir := t.TempDir()
	ws := fp.Join(dir, WorkspaceName)
	tlog.UseMappedCmdHijacker(testlog.CmdMap{
		rpmQuery(fp.Join(ws, "foo-1.0-1.x86_64.rpm"), QueryFileName): ok("foo-1.0-1.x86_64.rpm"),
	})
	p := xfer.New(remote, dir)
	if err = Stage(context.Background(), p, r, "/srv", 0); err != nil {
		t.Fatal(err)
	}
	for name, want := range map[string]string{
		"LIC1.lic":             "license",
		"foo-1.0-1.x86_64.rpm": "rpm",
		"a.pem":                "pem",
		"ca1/id.p12":           "p12",
	} {
		if got := readFile(t, fp.Join(ws, name)); got != want {
			t.Errorf("%s: got %q want %q", name, got, want)
		}
	}

	delete(remote, "/srv/certs/a.pem")
	if err = Stage(context.Background(), xfer.New(remote, t.TempDir()), r, "/srv", 0); !fault.Is(err, fault.NotFound) {
		t.Errorf("missing file: got %v", err)
	}
}
