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

var mountBootCmd = &cobra.Command{
	Use:   "mount-boot",
	Short: "Mount the $BOOT directories and leave them mounted",
	Long: `Resolve and mount the ESP/XBOOTLDR partitions in image mode (a
no-op in native mode, where mountpoints are expected to already exist), and
print the resulting mountpoints. Unlike every other command, the mounts are
deliberately left in place for a calling script to use; nothing unmounts
them afterwards.`,
	RunE: runMountBoot,
}

func init() {
	rootCmd.AddCommand(mountBootCmd)
}

func runMountBoot(cmd *cobra.Command, args []string) error {
	if err := requireRoot(); err != nil {
		return err
	}

	cfg, err := buildConfiguration()
	if err != nil {
		return err
	}

	m, err := buildManager(cfg)
	if err != nil {
		return err
	}

	be, _, err := m.MountPartitions()
	if err != nil {
		return err
	}

	if be.ESPMountpoint != "" {
		fmt.Printf("esp\t%s\n", be.ESPMountpoint)
	}
	if be.XBOOTLDRMountpoint != "" {
		fmt.Printf("xbootldr\t%s\n", be.XBOOTLDRMountpoint)
	}

	return nil
}
