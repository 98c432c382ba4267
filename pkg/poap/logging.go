// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package poap

import (
	"fmt"
	fp "path/filepath"
	"time"

	"github.com/nmortari/nxospoap/pkg/fileutil"
	"github.com/nmortari/nxospoap/pkg/log"
	"github.com/nmortari/nxospoap/pkg/options"
)

// LogName is the run log for a run started at now:
// <flash>/<UTC yyyymmddHHMMSS>_poap_<pid>_[usb_]script.log.
func LogName(env options.Env, flash string, now time.Time) string {
	usb := ""
	if env.USB() {
		usb = "usb_"
	}
	return fp.Join(flash, fmt.Sprintf("%s_poap_%s_%sscript.log", now.UTC().Format(log.FileStampLayout), env.PID, usb))
}

// SetupLogging removes the logs of earlier runs and starts logging to a
// new file and to syslog. It returns the log file name.
func SetupLogging(env options.Env, flash string, now time.Time) (string, error) {
	log.SetPrefix(env.SyslogPrefix())
	if err := log.AddSyslog(); err != nil {
		log.Logf("syslog unavailable: %s", err)
	}
	if n := fileutil.RemoveGlob(fp.Join(flash, "*poap*script.log")); n > 0 {
		log.Logf("Removed %d old POAP script logs", n)
	} else {
		log.Logf("No old POAP script logs were found")
	}
	name, err := log.AddNamedFileLog(LogName(env, flash, now))
	if err != nil {
		return "", err
	}
	log.Logf("Created logfile: %s", name)
	return name, nil
}
