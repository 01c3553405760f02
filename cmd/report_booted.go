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
	"bytes"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"
)

var reportBootedCmd = &cobra.Command{
	Use:   "report-booted",
	Short: "Report the currently running kernel as successfully booting",
	Long: `Resolve the running kernel release via uname(2) and confirm it
matches one of the kernels currently installed on $BOOT. Intended to be run
once early boot has succeeded, eg from a systemd unit, so a caller can tell
a successful boot from one that never got this far.`,
	RunE: runReportBooted,
}

func init() {
	rootCmd.AddCommand(reportBootedCmd)
}

func runningKernelRelease() (string, error) {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return "", fmt.Errorf("blsforme: uname: %w", err)
	}
	return string(bytes.TrimRight(uts.Release[:], "\x00")), nil
}

func runReportBooted(cmd *cobra.Command, args []string) error {
	release, err := runningKernelRelease()
	if err != nil {
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
		if k.Version == release {
			log.Info().Str("version", release).Msg("running kernel confirmed installed on $BOOT")
			return nil
		}
	}

	return fmt.Errorf("blsforme: running kernel %q is not among the kernels installed on $BOOT", release)
}
