// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package poap

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nmortari/nxospoap/pkg/device"
	"github.com/nmortari/nxospoap/pkg/fileutil"
	"github.com/nmortari/nxospoap/pkg/interrupt"
	"github.com/nmortari/nxospoap/pkg/log"
	"github.com/nmortari/nxospoap/pkg/options"
	"github.com/nmortari/nxospoap/pkg/xfer"
)

// Main performs a complete run on the switch and returns the exit status:
// 0 on success, 1 after an abort.
func Main(o options.Options) int {
	guard := interrupt.New()
	ctx := guard.Watch(context.Background())
	defer guard.Stop()

	runID := uuid.New().String()
	defer log.Finalize()
	logFile, err := SetupLogging(o.Env, fileutil.Bootflash, time.Now())
	if err != nil {
		log.Logf("Could not create log file! Error: %s", err)
		defer log.DumpStderr()
	} else {
		log.FlushMemLog()
	}

	status := 0
	if err = run(ctx, o, guard, runID); err != nil {
		status = 1
	}
	if logFile != "" && o.LogBucket != "" {
		upload(o, logFile, runID)
	}
	return status
}

func run(ctx context.Context, o options.Options, guard *interrupt.Guard, runID string) error {
	ch, err := device.Open(ctx, o)
	if err != nil {
		log.Logf("ERROR: cannot open device channel: %s", err)
		return err
	}
	defer ch.Close()
	t, err := xfer.ForOptions(o, ch)
	if err != nil {
		log.Logf("ERROR: cannot set up %s transfers: %s", o.TransferProtocol, err)
		return err
	}
	r := &Runner{
		Opts:      o,
		Ch:        ch,
		Host:      device.DefaultHost,
		Guard:     guard,
		Transport: t,
		Flash:     fileutil.Bootflash,
		RunID:     runID,
	}
	return r.Execute(ctx)
}

func upload(o options.Options, logFile, runID string) {
	up, err := xfer.NewLogUploader(o.S3Region, o.LogBucket, o.LogPrefix)
	if err != nil {
		log.Logf("log upload: %s", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), o.TimeoutConfig)
	defer cancel()
	up.Upload(ctx, logFile, runID)
}
