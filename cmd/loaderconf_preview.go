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
	"os"
	"path/filepath"

	"github.com/AerynOS/blsforme/internal/bootloader"
	"github.com/AerynOS/blsforme/internal/bootloader/systemdboot"
	internaldiff "github.com/AerynOS/blsforme/internal/diff"
	"github.com/spf13/viper"
)

// previewLoaderConf shows the pending loader.conf change for a single
// directive mutation under --dry-run, and reports whether the caller should
// still go on to perform the real write. In dry-run mode the diff is
// printed and the write is skipped entirely, since systemd-boot's on-disk
// loader.conf is the only bootloader artefact these single-directive
// commands touch.
func previewLoaderConf(bl *bootloader.Bootloader, mutate func(systemdboot.LoaderConf) systemdboot.LoaderConf) (shouldWrite bool) {
	if bl.Systemd == nil || !viper.GetBool("dry_run") {
		return true
	}

	path := filepath.Join(bl.Systemd.BootRoot, "loader", "loader.conf")
	existing, _ := os.ReadFile(path)

	before := systemdboot.ParseLoaderConf(existing)
	after := mutate(before)

	internaldiff.ShowDiff(&internaldiff.FileDiff{
		Path:     path,
		Original: string(existing),
		Modified: after.Render(),
		IsNew:    len(existing) == 0,
	})

	return false
}
