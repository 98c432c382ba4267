// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nmortari/nxospoap/pkg/recipe"
)

func newRecipeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recipe",
		Short: "Device recipe tools",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of a device recipe",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := recipe.SchemaJSON()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", data)
			return nil
		},
	}, &cobra.Command{
		Use:   "validate FILE...",
		Short: "Check device recipes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bad := 0
			for _, name := range args {
				r, err := recipe.Load(name)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", name, err)
					bad++
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", name, r)
			}
			if bad > 0 {
				return exitStatus(1)
			}
			return nil
		},
	})
	return cmd
}
