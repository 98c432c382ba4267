// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Poap is the power-on auto provisioning script for Nexus 9000 switches. The
// run subcommand is what the switch executes; the rest are tools for
// preparing and checking the files a run consumes.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/nmortari/nxospoap/pkg/log"
)

//in any binary with main.buildId string, it is set at compile time to $BUILD_INFO
var buildId string

// exitStatus carries a non-zero status out of a subcommand without printing
// anything further.
type exitStatus int

func (e exitStatus) Error() string { return fmt.Sprintf("exit status %d", int(e)) }

func main() {
	log.SetFatalAction(log.FailAction{MsgPfx: "ERROR: ", Terminator: log.DefaultFatalAction})
	runMain(os.Args, os.Stdin, os.Stdout, os.Stderr, os.Exit)
}

func runMain(args []string, stdin io.Reader, stdout, stderr io.Writer, exit func(int)) {
	err := execute(args, stdin, stdout, stderr)
	if err == nil {
		return
	}
	var st exitStatus
	if errors.As(err, &st) {
		exit(int(st))
		return
	}
	fmt.Fprintln(stderr, err)
	exit(1)
}

func execute(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cmd := newRootCmd()
	cmd.SetArgs(args[1:])
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return cmd.Execute()
}

func newRootCmd() *cobra.Command {
	version := buildId
	if version == "" {
		version = "dev"
	}
	cmd := &cobra.Command{
		Use:           "poap",
		Short:         "Nexus 9000 power-on auto provisioning",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(
		newRunCmd(),
		newResolveCmd(),
		newSplitCmd(),
		newRecipeCmd(),
		newSidecarCmd(),
	)
	return cmd
}
