// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package identity

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"os"
	fp "path/filepath"
	"strings"
	"testing"

	"github.com/ulikunitz/xz"

	"github.com/nmortari/nxospoap/pkg/device/devicetest"
	"github.com/nmortari/nxospoap/pkg/fault"
	"github.com/nmortari/nxospoap/pkg/log/testlog"
	"github.com/nmortari/nxospoap/pkg/options"
	"github.com/nmortari/nxospoap/pkg/xfer"
)

const cdpNew = `Capability Codes: R - Router, T - Trans-Bridge, B - Source-Route-Bridge
                  S - Switch, H - Host, I - IGMP, r - Repeater,
                  V - VoIP-Phone, D - Remotely-Managed-Device,
                  s - Supports-STP-Dispute

Device-ID          Local Intrfce  Hldtme Capability  Platform      Port ID
spine1(FDO21120U8N)
                    mgmt0          148    R S I s   N9K-C9336C-FX Ethernet1/32

Total entries displayed: 1
`

const cdpOld = `Device-ID          Local Intrfce  Hldtme Capability  Platform      Port ID
leaf7               mgmt0          148    S I       N3K-C3064PQ   Eth1/7
`

func TestParseCDP(t *testing.T) {
	for _, td := range []struct {
		name, out string
		sw, port  string
		kind      fault.Kind
	}{
		{name: "with total", out: cdpNew, sw: "spine1", port: "Ethernet1/32"},
		{name: "without total", out: cdpOld, sw: "leaf7", port: "Eth1/7"},
		{name: "note", out: "Note: CDP Neighbors not found\n", kind: fault.NotFound},
		{name: "empty", out: "", kind: fault.NotFound},
		{name: "no heading", out: "garbage\nmore\n", kind: fault.Fatal},
		{name: "malformed name", out: "Device-ID x\na(b(c mgmt0 1 S N9K Eth1/1\n", kind: fault.Fatal},
	} {
		t.Run(td.name, func(t *testing.T) {
			sw, port, err := ParseCDP(td.out)
			if td.kind != fault.Unknown {
				if !fault.Is(err, td.kind) {
					t.Errorf("want %s, got %v", td.kind, err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if sw != td.sw || port != td.port {
				t.Errorf("got %s %s, want %s %s", sw, port, td.sw, td.port)
			}
		})
	}
}

func TestLocationConfig(t *testing.T) {
	if got := LocationConfig("spine1", "Ethernet1/32"); got != "conf_spine1_Ethernet1_32.cfg" {
		t.Errorf("got %s", got)
	}
}

func TestResolve(t *testing.T) {
	env := options.Env{
		Serial:   "FOC3825R1ML",
		MAC:      "7426CC5C9180",
		HostName: "TestingSw",
		Intf:     "mgmt0",
	}
	for _, td := range []struct {
		mode   string
		env    options.Env
		cfg    string
		serial string
	}{
		{mode: options.ModeSerial, env: env, cfg: "conf.FOC3825R1ML", serial: "FOC3825R1ML"},
		{mode: options.ModeSerial, env: options.Env{}, cfg: "poap.cfg"},
		{mode: options.ModeMAC, env: env, cfg: "conf_7426CC5C9180.cfg", serial: "7426CC5C9180"},
		{mode: options.ModeHostname, env: env, cfg: "conf_TestingSw.cfg", serial: "FOC3825R1ML"},
		{mode: options.ModeHostname, env: options.Env{Serial: "S1"}, cfg: "poap.cfg", serial: "S1"},
		{mode: options.ModeLocation, env: env, cfg: "conf_spine1_Ethernet1_32.cfg", serial: "FOC3825R1ML"},
		{mode: options.ModeRaw, env: env, cfg: "poap.cfg", serial: "FOC3825R1ML"},
	} {
		t.Run(td.mode, func(t *testing.T) {
			testlog.NewTestLog(t, true, false)
			o := options.Options{Mode: td.mode, SourceConfigFile: "poap.cfg", Env: td.env}
			ch := devicetest.New().OK("show cdp neighbors interface mgmt0", cdpNew)
			id, err := NewResolver(o, ch, nil).Resolve(context.Background())
			if err != nil {
				t.Fatal(err)
			}
			if id.ConfigFile != td.cfg || id.Serial != td.serial {
				t.Errorf("got %+v, want config %s serial %s", id, td.cfg, td.serial)
			}
		})
	}
	t.Run("invalid", func(t *testing.T) {
		testlog.NewTestLog(t, true, false)
		r := NewResolver(options.Options{Mode: "bogus"}, devicetest.New(), nil)
		if _, err := r.Resolve(context.Background()); !fault.Is(err, fault.Validation) {
			t.Errorf("got %v", err)
		}
	})
}

func TestResolveUSBMAC(t *testing.T) {
	env := options.Env{Phase: options.PhaseUSB, RMAC: "AABBCCDDEEFF", MgmtMAC: "001122334455"}
	for _, td := range []struct {
		name    string
		present []string
		cfg     string
		serial  string
	}{
		{name: "router", present: []string{"conf_AABBCCDDEEFF.cfg", "conf_001122334455.cfg"}, cfg: "conf_AABBCCDDEEFF.cfg", serial: "AABBCCDDEEFF"},
		{name: "mgmt", present: []string{"conf_001122334455.cfg"}, cfg: "conf_001122334455.cfg", serial: "001122334455"},
		{name: "neither", cfg: "poap.cfg", serial: "001122334455"},
	} {
		t.Run(td.name, func(t *testing.T) {
			testlog.NewTestLog(t, true, false)
			usb := t.TempDir()
			for _, f := range td.present {
				if err := os.WriteFile(fp.Join(usb, f), nil, 0644); err != nil {
					t.Fatal(err)
				}
			}
			o := options.Options{Mode: options.ModeMAC, SourceConfigFile: "poap.cfg", Env: env, USBSlot: 1}
			r := NewResolver(o, devicetest.New(), nil)
			r.USBRoot = usb
			id, err := r.Resolve(context.Background())
			if err != nil {
				t.Fatal(err)
			}
			if id.ConfigFile != td.cfg || id.Serial != td.serial {
				t.Errorf("got %+v", id)
			}
		})
	}
}

type tarEntry struct{ name, content string }

func makeTar(t *testing.T, entries []tarEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, e := range entries {
		hdr := &tar.Header{Name: e.name, Mode: 0644, Size: int64(len(e.content))}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if _, err := io.WriteString(tw, e.content); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func compress(t *testing.T, how string, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	var w io.WriteCloser
	var err error
	switch how {
	case "xz":
		w, err = xz.NewWriter(&buf)
	case "gz":
		w = gzip.NewWriter(&buf)
	default:
		return data
	}
	if err != nil {
		t.Fatal(err)
	}
	if _, err = w.Write(data); err != nil {
		t.Fatal(err)
	}
	if err = w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestImageFromTarball(t *testing.T) {
	for _, td := range []struct {
		name    string
		how     string
		entries []tarEntry
		want    string
	}{
		{name: "legacy", entries: []tarEntry{{"a/IMAGEFILE_nxos.9.3.9.bin", ""}}, want: "nxos.9.3.9.bin"},
		{name: "container", how: "gz", entries: []tarEntry{{"x/IMAGEFILE", "nxos.10.2.5.M.bin\n"}}, want: "nxos.10.2.5.M.bin"},
		{name: "xz", how: "xz", entries: []tarEntry{{"IMAGEFILE", "nxos.9.3.9.bin"}, {"config", "hostname a"}}, want: "nxos.9.3.9.bin"},
		{name: "last wins", entries: []tarEntry{{"IMAGEFILE_old.bin", ""}, {"IMAGEFILE", "new.bin"}}, want: "new.bin"},
		{name: "none", how: "xz", entries: []tarEntry{{"config", "hostname a"}}},
	} {
		t.Run(td.name, func(t *testing.T) {
			testlog.NewTestLog(t, true, false)
			name := fp.Join(t.TempDir(), "p.tar")
			if err := os.WriteFile(name, compress(t, td.how, makeTar(t, td.entries)), 0644); err != nil {
				t.Fatal(err)
			}
			got, err := ImageFromTarball(name)
			if td.want == "" {
				if !fault.Is(err, fault.Validation) {
					t.Errorf("want validation fault, got %v %q", err, got)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != td.want {
				t.Errorf("got %q want %q", got, td.want)
			}
		})
	}
}

// tarRemote serves one tarball.
type tarRemote struct {
	src  string
	data []byte
}

func (r tarRemote) String() string { return "tar" }

func (r tarRemote) Copy(ctx context.Context, src, dest string, o xfer.CopyOpts) error {
	if src != r.src {
		return fault.New(fault.NotFound, "copy "+src, "no such file")
	}
	return os.WriteFile(dest, r.data, 0644)
}

func TestPersonality(t *testing.T) {
	tlog := testlog.NewTestLog(t, true, false)
	dir := t.TempDir()
	remote := tarRemote{src: "/srv/pers/sw.tar", data: makeTar(t, []tarEntry{{"IMAGEFILE_nxos.9.3.9.bin", ""}})}
	o := options.Options{
		Mode:               options.ModePersonality,
		Username:           "admin",
		Password:           "hunter2",
		Hostname:           "10.0.0.1",
		VRF:                "management",
		PersonalityPath:    "/srv/pers",
		SourceTarball:      "sw.tar",
		DestinationTarball: "personality.tar",
	}
	ch := devicetest.New().OK("personality restore bootflash:personality.tar user-name admin password hunter2 hostname 10.0.0.1 vrf management", "")
	r := NewResolver(o, ch, xfer.New(remote, dir))
	id, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if id.Image != "nxos.9.3.9.bin" || id.Tarball != fp.Join(dir, "personality.tar") {
		t.Errorf("got %+v", id)
	}
	// restore addresses the tarball on bootflash
	id.Tarball = "/bootflash/personality.tar"
	if err = r.Restore(context.Background(), id); err != nil {
		t.Fatal(err)
	}
	if ch.Count("personality restore") != 1 {
		t.Errorf("calls %v", ch.Calls())
	}
	if tlog.Contains("hunter2") {
		t.Error("password logged")
	}
	if !strings.Contains(RestoreCommand(o, "/bootflash/p.tar"), "personality restore bootflash:p.tar ") {
		t.Error(RestoreCommand(o, "/bootflash/p.tar"))
	}
}
