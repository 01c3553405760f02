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

var getTimeoutCmd = &cobra.Command{
	Use:   "get-timeout",
	Short: "Print the bootloader timeout value",
	Long:  `Read loader.conf's timeout directive and print it, or "unset" if absent.`,
	RunE:  runGetTimeout,
}

func init() {
	rootCmd.AddCommand(getTimeoutCmd)
}

func runGetTimeout(cmd *cobra.Command, args []string) error {
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

	seconds, ok, err := bl.Timeout()
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("unset")
		return nil
	}

	fmt.Println(seconds)
	return nil
}
