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

// Package bootloader dispatches across the closed set of backends this
// module can sync entries to. Only systemd-boot is implemented; a BIOS
// backend is a named Non-goal and reports ErrUnsupported.
package bootloader

import (
	"github.com/AerynOS/blsforme/internal/blserrors"
	"github.com/AerynOS/blsforme/internal/bootloader/systemdboot"
	"github.com/AerynOS/blsforme/internal/entry"
	"github.com/AerynOS/blsforme/internal/kernel"
)

// InstallResult records where an installed entry landed, used by cleanup
// to know which paths are still referenced.
type InstallResult = systemdboot.InstallResult

// Bootloader is a closed tagged union over backends; only Systemd is ever
// populated today.
type Bootloader struct {
	Systemd *systemdboot.Loader
}

// Sync writes the bootloader binary itself and its top-level config.
func (b *Bootloader) Sync() error {
	if b.Systemd != nil {
		return b.Systemd.Sync()
	}
	return blserrors.ErrUnsupported
}

// SyncEntries installs every entry, then removes stale ones.
func (b *Bootloader) SyncEntries(baseCmdline string, entries []*entry.Entry, excludedSnippets map[string]bool) ([]InstallResult, error) {
	if b.Systemd != nil {
		return b.Systemd.SyncEntries(baseCmdline, entries, excludedSnippets)
	}
	return nil, blserrors.ErrUnsupported
}

// InstalledKernels reports the kernels currently installed on $BOOT.
func (b *Bootloader) InstalledKernels() ([]kernel.Kernel, error) {
	if b.Systemd != nil {
		return b.Systemd.InstalledKernels()
	}
	return nil, blserrors.ErrUnsupported
}

// Timeout reads the current loader.conf timeout directive, if any.
func (b *Bootloader) Timeout() (int, bool, error) {
	if b.Systemd != nil {
		return b.Systemd.Timeout()
	}
	return 0, false, blserrors.ErrUnsupported
}

// SetTimeout pins loader.conf's timeout directive.
func (b *Bootloader) SetTimeout(seconds int) error {
	if b.Systemd != nil {
		return b.Systemd.SetTimeout(seconds)
	}
	return blserrors.ErrUnsupported
}

// SetDefault pins loader.conf's default directive to a single entry id.
func (b *Bootloader) SetDefault(id string) error {
	if b.Systemd != nil {
		return b.Systemd.SetDefault(id)
	}
	return blserrors.ErrUnsupported
}
