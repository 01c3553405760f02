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

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print discovered kernels and resolved boot environment (debugging)",
	Long: `Classify the root's naming schema, discover its kernels and
candidate bootloader binaries, resolve the boot environment, and print a
summary. Read-only: mount_partitions is still invoked in image mode, but
no bootloader state is written.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfiguration()
	if err != nil {
		return err
	}

	m, err := buildManagerWithEntries(cfg)
	if err != nil {
		return err
	}

	be, scope, err := m.MountPartitions()
	if err != nil {
		return err
	}
	defer scope.Release()

	log.Info().
		Str("root", cfg.Root.Path()).
		Str("firmware", be.Firmware.String()).
		Str("esp", be.ESP).
		Str("esp_mountpoint", be.ESPMountpoint).
		Str("xbootldr", be.XBOOTLDR).
		Str("xbootldr_mountpoint", be.XBOOTLDRMountpoint).
		Str("esp_superblock", be.ESPSuperblockKind).
		Int("entries", len(m.Entries())).
		Msg("resolved boot environment")

	base := baseCmdline(cfg)
	excl := excludedSnippets()
	for _, e := range m.Entries() {
		fmt.Printf("kernel %s (image %s, %d initrd(s), root=%s)\n",
			e.Kernel.Version, e.Kernel.Image, len(e.Kernel.Initrd), e.RootParameter(base, excl))
	}

	return nil
}
