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
	"strconv"

	"github.com/AerynOS/blsforme/internal/bootloader/systemdboot"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var setTimeoutCmd = &cobra.Command{
	Use:   "set-timeout <seconds>",
	Short: "Set the bootloader timeout value",
	Long:  `Pin loader.conf's timeout directive to the given number of seconds, preserving every other directive already present.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runSetTimeout,
}

func init() {
	rootCmd.AddCommand(setTimeoutCmd)
}

func runSetTimeout(cmd *cobra.Command, args []string) error {
	if err := requireRoot(); err != nil {
		return err
	}

	seconds, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("blsforme: invalid timeout %q: %w", args[0], err)
	}

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

	if !previewLoaderConf(bl, func(lc systemdboot.LoaderConf) systemdboot.LoaderConf { return lc.WithTimeout(seconds) }) {
		return nil
	}

	if err := bl.SetTimeout(seconds); err != nil {
		return err
	}

	log.Info().Int("timeout", seconds).Msg("set bootloader timeout")
	return nil
}
