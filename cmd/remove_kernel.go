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

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var removeKernelCmd = &cobra.Command{
	Use:   "remove-kernel <version>",
	Short: "Remove a specified kernel's loader entry from $BOOT",
	Long: `Drop the given kernel version from the entries attached to this
run before syncing, then run the same sync cleanup pass update does: the
kernel's loader entry and installed image directory are removed as stale
artefacts since nothing references them any more.`,
	Args: cobra.ExactArgs(1),
	RunE: runRemoveKernel,
}

func init() {
	rootCmd.AddCommand(removeKernelCmd)
}

func runRemoveKernel(cmd *cobra.Command, args []string) error {
	if err := requireRoot(); err != nil {
		return err
	}

	version := args[0]
	cfg, err := buildConfiguration()
	if err != nil {
		return err
	}

	s, entries, assets, err := discoverEntries(cfg)
	if err != nil {
		return err
	}

	kept := entries[:0]
	removed := false
	for _, e := range entries {
		if e.Kernel.Version == version {
			removed = true
			continue
		}
		kept = append(kept, e)
	}
	if !removed {
		return fmt.Errorf("blsforme: no installed kernel matches version %q", version)
	}

	m, err := buildManagerForSchema(cfg, s)
	if err != nil {
		return err
	}
	m.WithEntries(kept).WithBootloaderAssets(assets)

	if _, err := m.Sync(baseCmdline(cfg), excludedSnippets()); err != nil {
		return err
	}

	log.Info().Str("version", version).Bool("dry_run", m.Runner.IsDryRun()).Msg("removed kernel")
	return nil
}
