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
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Synchronise $BOOT with the discovered kernels",
	Long: `Discover kernels under the configured root, mount the ESP/XBOOTLDR
if required, write the bootloader binary and loader.conf, install every
discovered kernel as a loader entry, and remove stale entries no longer
backed by an installed kernel.`,
	RunE: runUpdate,
}

func init() {
	rootCmd.AddCommand(updateCmd)
}

func runUpdate(cmd *cobra.Command, args []string) error {
	if err := requireRoot(); err != nil {
		return err
	}

	cfg, err := buildConfiguration()
	if err != nil {
		return err
	}

	m, err := buildManagerWithEntries(cfg)
	if err != nil {
		return err
	}

	results, err := m.Sync(baseCmdline(cfg), excludedSnippets())
	if err != nil {
		return err
	}

	log.Info().Int("installed", len(results)).Bool("dry_run", m.Runner.IsDryRun()).Msg("synchronised boot entries")
	for _, r := range results {
		log.Info().Str("loader_conf", r.LoaderConf).Str("kernel_dir", r.KernelDir).Msg("installed entry")
	}

	return nil
}
