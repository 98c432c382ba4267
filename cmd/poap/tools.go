// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package main

import (
	"fmt"
	fp "path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nmortari/nxospoap/pkg/fileutil"
	"github.com/nmortari/nxospoap/pkg/splitter"
	"github.com/nmortari/nxospoap/pkg/upgrade"
	"github.com/nmortari/nxospoap/pkg/xfer"
)

func newResolveCmd() *cobra.Command {
	var (
		images  []string
		running string
		strict  bool
	)
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Print the next upgrade step for a running image",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := upgrade.NewPath(images)
			if err != nil {
				return err
			}
			if strict {
				if err := upgrade.Member(p, running); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), upgrade.Resolve(p, running))
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&images, "path", nil, "upgrade path, oldest image first")
	cmd.Flags().StringVar(&running, "running", "", "image the switch booted")
	cmd.Flags().BoolVar(&strict, "only-in-path", false, "fail if the running image is not on the path")
	cmd.MarkFlagRequired("path")
	cmd.MarkFlagRequired("running")
	return cmd
}

func newSplitCmd() *cobra.Command {
	var (
		target, dir   string
		first, second string
		legacy, mtc   bool
	)
	cmd := &cobra.Command{
		Use:   "split",
		Short: "Split a configuration read from stdin for a boot target",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lines, err := fileutil.ReadLines(cmd.InOrStdin())
			if err != nil {
				return err
			}
			sp := splitter.Splitter{Image: fileutil.CLIPath(fp.Join(dir, target)), MTC: mtc}
			var pre, post splitter.Partition
			if splitter.NotNeeded(target, legacy) {
				pre, post = sp.Passthrough(lines)
			} else {
				pre, post = sp.Split(lines)
			}
			if first == "" && second == "" {
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, "!first")
				fmt.Fprint(out, joinLines(pre))
				fmt.Fprintln(out, "!second")
				fmt.Fprint(out, joinLines(post))
				return nil
			}
			for _, part := range []struct {
				name string
				p    splitter.Partition
			}{{first, pre}, {second, post}} {
				if part.name == "" || len(part.p) == 0 {
					continue
				}
				if err := part.p.WriteFile(part.name); err != nil {
					return err
				}
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&target, "target", "", "boot image name")
	f.StringVar(&dir, "dir", "/bootflash", "directory holding the boot image")
	f.BoolVar(&legacy, "legacy", false, "switch needs a reload for TCAM and similar settings")
	f.BoolVar(&mtc, "mtc", false, "switch is an MTC platform")
	f.StringVar(&first, "first", "", "write the pre-reload part here")
	f.StringVar(&second, "second", "", "write the post-reload part here")
	cmd.MarkFlagRequired("target")
	return cmd
}

func joinLines(p splitter.Partition) string {
	if len(p) == 0 {
		return ""
	}
	return strings.Join(p, "\n") + "\n"
}

func newSidecarCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sidecar FILE...",
		Short: "Write the .md5 file the switch verifies a download against",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range args {
				out, err := xfer.WriteSidecar(name)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), out)
			}
			return nil
		},
	}
}
