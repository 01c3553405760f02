// Copyright (c) 2024 John Mylchreest <jmylchreest@gmail.com>
//
// This file is part of blsforme.
//
// blsforme is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// blsforme is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with blsforme. If not, see <https://www.gnu.org/licenses/>.

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listKernelsCmd = &cobra.Command{
	Use:   "list-kernels",
	Short: "List kernels currently installed on $BOOT",
	Long:  `Mount the ESP/XBOOTLDR if required and list every kernel version currently installed under $BOOT.`,
	RunE:  runListKernels,
}

func init() {
	rootCmd.AddCommand(listKernelsCmd)
}

func runListKernels(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfiguration()
	if err != nil {
		return err
	}

	m, err := buildManager(cfg)
	if err != nil {
		return err
	}

	bl, scope, err := m.Bootloader()
	if err != nil {
		return err
	}
	defer scope.Release()

	kernels, err := bl.InstalledKernels()
	if err != nil {
		return err
	}

	for _, k := range kernels {
		variant := k.Variant
		if variant == "" {
			variant = "-"
		}
		fmt.Printf("%s\t%s\n", k.Version, variant)
	}

	return nil
}
