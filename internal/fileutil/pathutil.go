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

// Package fileutil provides the filesystem primitives the bootloader
// layer needs for safely writing onto a mounted VFAT boot partition:
// case-insensitive path joining and atomic, change-detected copies.
package fileutil

import (
	"os"
	"path/filepath"
	"strings"
)

// JoinInsensitive joins base with components, matching each component
// against base's existing directory entries case-insensitively before
// falling back to the component as given. This keeps repeated operations
// against a case-preserving, case-insensitive filesystem (VFAT) from
// creating "EFI/Boot" alongside an existing "efi/boot".
func JoinInsensitive(base string, components ...string) string {
	current := base
	for _, comp := range components {
		current = joinOneInsensitive(current, comp)
	}
	return current
}

func joinOneInsensitive(dir, name string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return filepath.Join(dir, name)
	}
	for _, e := range entries {
		if strings.EqualFold(e.Name(), name) {
			return filepath.Join(dir, e.Name())
		}
	}
	return filepath.Join(dir, name)
}
