// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package install

import (
	"context"
	"os"
	fp "path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/nmortari/nxospoap/pkg/device"
	"github.com/nmortari/nxospoap/pkg/device/devicetest"
	"github.com/nmortari/nxospoap/pkg/fault"
	"github.com/nmortari/nxospoap/pkg/interrupt"
	"github.com/nmortari/nxospoap/pkg/log/testlog"
	"github.com/nmortari/nxospoap/pkg/options"
	"github.com/nmortari/nxospoap/pkg/upgrade"
)

const (
	image     = "bootflash:nxos.9.3.9.bin"
	issuCmd   = "terminal dont-ask ; install all nxos " + image + " non-interruptive"
	biosCmd   = "config terminal ; terminal dont-ask ; install all nxos " + image + " bios"
	bootCmd   = "config terminal ; boot nxos " + image
	copyRS    = "copy running-config startup-config"
	noBoot    = "config ; no boot poap enable"
	writeEr   = "terminal dont-ask ; write erase"
	schedPre  = "copy bootflash:poap_1.cfg scheduled-config"
	schedPost = "copy bootflash:poap_2.cfg scheduled-config"
)

var current = device.Facts{Version: "9.3(5)", BIOS: "05.45", Chassis: "Tor"}

// fakeClock advances only when slept on.
type fakeClock struct {
	now   time.Time
	slept []time.Duration
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.slept = append(c.slept, d)
	c.now = c.now.Add(d)
	return nil
}

func setup(t *testing.T, ch device.Channel, s Strategy) (*Orchestrator, Staged, *fakeClock) {
	t.Helper()
	dir := t.TempDir()
	img := fp.Join(dir, "nxos.9.3.9.bin")
	if err := os.WriteFile(img, []byte("image"), 0644); err != nil {
		t.Fatal(err)
	}
	clock := &fakeClock{now: time.Unix(1600000000, 0)}
	o := New(ch, current, s)
	o.Flash = dir
	o.Marker = fp.Join(dir, "poap_issu_started")
	o.Now = clock.Now
	o.Sleep = clock.Sleep
	staged := Staged{
		Target:    "nxos.9.3.9.bin",
		ImageFile: img,
		Image:     image,
		Configs:   []string{"bootflash:poap_1.cfg", "bootflash:poap_2.cfg"},
	}
	return o, staged, clock
}

func TestInstallNone(t *testing.T) {
	testlog.NewTestLog(t, true, false)
	ch := devicetest.New()
	o, s, _ := setup(t, ch, ISSU)
	if err := o.Install(context.Background(), upgrade.None, s); !fault.Is(err, fault.Fatal) {
		t.Errorf("got %v", err)
	}
	if len(ch.Calls()) != 0 {
		t.Errorf("commands run: %v", ch.Calls())
	}
}

func TestInstallFinalISSU(t *testing.T) {
	testlog.NewTestLog(t, true, false)
	ch := devicetest.New()
	var markerSeen bool
	o, s, _ := setup(t, ch, ISSU)
	for _, c := range []string{noBoot, copyRS, writeEr, schedPre, schedPost} {
		ch.OK(c, "")
	}
	ch.On(issuCmd, devicetest.Response{Do: func(string) { markerSeen = fileExists(o.Marker) }})
	g := interrupt.New()
	o.Guard = g

	if err := o.Install(context.Background(), upgrade.Final, s); err != nil {
		t.Fatal(err)
	}
	want := []string{noBoot, copyRS, writeEr, schedPre, schedPost, issuCmd}
	if got := ch.Calls(); !reflect.DeepEqual(got, want) {
		t.Errorf("\n got %q\nwant %q", got, want)
	}
	if !markerSeen {
		t.Error("marker not written before install all")
	}
	if g.State() != interrupt.DeferOnInterrupt {
		t.Errorf("guard state %s", g.State())
	}
	o.ClearMarker()
	if fileExists(o.Marker) {
		t.Error("marker not cleared")
	}
}

func TestInstallIntermediateSkipsConfig(t *testing.T) {
	testlog.NewTestLog(t, true, false)
	ch := devicetest.New().OK(issuCmd, "")
	o, s, _ := setup(t, ch, ISSU)
	if err := o.Install(context.Background(), upgrade.Intermediate, s); err != nil {
		t.Fatal(err)
	}
	if got := ch.Calls(); !reflect.DeepEqual(got, []string{issuCmd}) {
		t.Errorf("got %q", got)
	}
}

func TestInstallFinalSkipErase(t *testing.T) {
	testlog.NewTestLog(t, true, false)
	ch := devicetest.New().OK(issuCmd, "")
	o, s, _ := setup(t, ch, ISSU)
	s.Configs = nil
	s.SkipErase = true
	if err := o.Install(context.Background(), upgrade.Final, s); err != nil {
		t.Fatal(err)
	}
	if got := ch.Calls(); !reflect.DeepEqual(got, []string{issuCmd}) {
		t.Errorf("got %q", got)
	}
}

func TestInstallISSUFailureKeepsMarker(t *testing.T) {
	tlog := testlog.NewTestLog(t, true, false)
	ch := devicetest.New().Fail(issuCmd, fault.CommandRejected, "% Install all failed")
	o, s, _ := setup(t, ch, ISSU)
	err := o.Install(context.Background(), upgrade.Intermediate, s)
	if !fault.Is(err, fault.CommandRejected) {
		t.Errorf("got %v", err)
	}
	if !fileExists(o.Marker) {
		t.Error("marker removed after failure")
	}
	if !tlog.Contains("bootflash free") {
		t.Error("free space not logged")
	}
}

func TestInstallMissingImage(t *testing.T) {
	testlog.NewTestLog(t, true, false)
	ch := devicetest.New()
	o, s, _ := setup(t, ch, ISSU)
	s.ImageFile += ".gone"
	if err := o.Install(context.Background(), upgrade.Final, s); !fault.Is(err, fault.NotFound) {
		t.Errorf("got %v", err)
	}
	if len(ch.Calls()) != 0 {
		t.Errorf("commands run: %v", ch.Calls())
	}
}

func TestInstallBIOS(t *testing.T) {
	testlog.NewTestLog(t, true, false)
	ch := devicetest.New().OK(biosCmd, "").OK(issuCmd, "")
	o, s, _ := setup(t, ch, ISSU)
	o.Facts.BIOS = "2.6"
	if err := o.Install(context.Background(), upgrade.Intermediate, s); err != nil {
		t.Fatal(err)
	}
	if got := ch.Calls(); !reflect.DeepEqual(got, []string{biosCmd, issuCmd}) {
		t.Errorf("got %q", got)
	}
}

func TestClassicRetry(t *testing.T) {
	testlog.NewTestLog(t, true, false)
	rejected := devicetest.Response{Err: &fault.Error{Kind: fault.CommandRejected, Op: copyRS}}
	ch := devicetest.New().OK(bootCmd, "").On(copyRS, rejected, rejected, devicetest.Response{})
	o, s, clock := setup(t, ch, Classic)
	if err := o.Install(context.Background(), upgrade.Intermediate, s); err != nil {
		t.Fatal(err)
	}
	if n := ch.Count(copyRS); n != 3 {
		t.Errorf("copy run start ran %d times", n)
	}
	if !reflect.DeepEqual(clock.slept, []time.Duration{30 * time.Second, 30 * time.Second}) {
		t.Errorf("slept %v", clock.slept)
	}
}

func TestClassicTimeout(t *testing.T) {
	testlog.NewTestLog(t, true, false)
	ch := devicetest.New().OK(bootCmd, "").Fail(copyRS, fault.CommandRejected, "% busy")
	o, s, clock := setup(t, ch, Classic)
	err := o.Install(context.Background(), upgrade.Intermediate, s)
	if !fault.Is(err, fault.Fatal) {
		t.Errorf("got %v", err)
	}
	// the attempt at the 10 minute mark still earns one more retry
	if n := ch.Count(copyRS); n != 22 {
		t.Errorf("copy run start ran %d times", n)
	}
	if elapsed := clock.now.Sub(time.Unix(1600000000, 0)); elapsed > 11*time.Minute {
		t.Errorf("ran for %s", elapsed)
	}
}

func TestClassicOtherFault(t *testing.T) {
	testlog.NewTestLog(t, true, false)
	ch := devicetest.New().OK(bootCmd, "").Fail(copyRS, fault.NoSpace, "no space")
	o, s, _ := setup(t, ch, Classic)
	if err := o.Install(context.Background(), upgrade.Intermediate, s); !fault.Is(err, fault.NoSpace) {
		t.Errorf("got %v", err)
	}
	if n := ch.Count(copyRS); n != 1 {
		t.Errorf("copy run start ran %d times", n)
	}
}

func TestNeedsBIOS(t *testing.T) {
	for _, td := range []struct {
		bios, chassis, target string
		want                  bool
	}{
		{bios: "05.45", target: "nxos.9.3.9.bin"},
		{bios: "2.6", target: "nxos.9.3.9.bin", want: true},
		{bios: "2.6.1", target: "nxos.9.3.9.bin", want: true},
		{bios: "2.6", chassis: "Fretta", target: "nxos.9.3.9.bin"},
		{bios: "0.9", chassis: "Fretta", target: "nxos.9.3.9.bin", want: true},
		{bios: "2.6", target: "n9000-dk9.7.0.3.I2.1.bin"},
		{bios: "v2", target: "nxos.9.3.9.bin"},
	} {
		testlog.NewTestLog(t, true, false)
		f := device.Facts{BIOS: td.bios, Chassis: td.chassis}
		if got := NeedsBIOS(f, td.target); got != td.want {
			t.Errorf("%+v: got %t", td, got)
		}
	}
}

func TestSelectStrategy(t *testing.T) {
	for _, td := range []struct {
		mode   string
		legacy bool
		target string
		want   Strategy
	}{
		{mode: options.InstallISSU, legacy: true, target: "x.bin", want: ISSU},
		{mode: options.InstallClassic, target: "nxos.9.3.9.bin", want: Classic},
		{mode: options.InstallAuto, target: "nxos.9.3.9.bin", want: ISSU},
		{mode: options.InstallAuto, legacy: true, target: "nxos.9.3.9.bin", want: Classic},
		{mode: options.InstallAuto, target: "n9000-dk9.7.0.3.I2.1.bin", want: Classic},
	} {
		if got := SelectStrategy(td.mode, td.legacy, td.target); got != td.want {
			t.Errorf("%+v: got %s", td, got)
		}
	}
}

func fileExists(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}
