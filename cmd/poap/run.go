// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package main

import (
	"github.com/spf13/cobra"

	"github.com/nmortari/nxospoap/pkg/log"
	"github.com/nmortari/nxospoap/pkg/options"
	"github.com/nmortari/nxospoap/pkg/poap"
)

var runMainFunc = poap.Main

func newRunCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Provision this switch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := loadOptions(file)
			if err != nil {
				log.Fatalf("%s", err)
				return exitStatus(1)
			}
			if st := runMainFunc(o); st != 0 {
				return exitStatus(st)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "options", "/bootflash/poap_options.toml", "options file")
	return cmd
}

// loadOptions reads file and validates it against the POAP environment
// variables of this process.
func loadOptions(file string) (options.Options, error) {
	raw, err := options.Load(file)
	if err != nil {
		return options.Options{}, err
	}
	return options.Build(raw, options.LoadEnv(nil))
}
