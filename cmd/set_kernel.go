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

	"github.com/AerynOS/blsforme/internal/bootloader/systemdboot"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var setKernelCmd = &cobra.Command{
	Use:   "set-kernel <entry-id>",
	Short: "Set the kernel that will be used at next boot",
	Long: `Pin loader.conf's default directive to a single installed entry id,
overriding the namespace glob that update writes by default. The id must
match one already installed under loader/entries/.`,
	Args: cobra.ExactArgs(1),
	RunE: runSetKernel,
}

func init() {
	rootCmd.AddCommand(setKernelCmd)
}

func runSetKernel(cmd *cobra.Command, args []string) error {
	if err := requireRoot(); err != nil {
		return err
	}

	id := args[0]
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

	if !previewLoaderConf(bl, func(lc systemdboot.LoaderConf) systemdboot.LoaderConf { return lc.WithDefault(id) }) {
		return nil
	}

	if err := bl.SetDefault(id); err != nil {
		return fmt.Errorf("blsforme: set default entry %q: %w", id, err)
	}

	log.Info().Str("entry_id", id).Msg("pinned default boot entry")
	return nil
}
