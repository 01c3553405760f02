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

// Package config holds the root Configuration handed by reference through
// every other package: where operations run, and whether this is a live
// host or an offline image tree.
package config

import "path/filepath"

// Root is a closed tagged union: either a Native installation (the running
// host, path must be "/") or an Image tree (an offline root, BLS variable
// reads must be skipped).
type Root interface {
	// Path returns the filesystem root this Root points at.
	Path() string
	isRoot()
}

// Native wraps a path known to be the currently running system.
type Native string

func (n Native) Path() string { return string(n) }
func (Native) isRoot()        {}

// Image wraps a path to an offline system root, eg a chroot or a disk
// image being assembled by another tool.
type Image string

func (i Image) Path() string { return string(i) }
func (Image) isRoot()        {}

// Configuration is the core configuration for boot management, created
// once by the caller and passed by reference thereafter.
type Configuration struct {
	// Root is the system root operations run against.
	Root Root

	// VFS is where sysfs/procfs/efivars are rooted, almost always "/".
	VFS string

	// SkipBLS forces BLS EFI variable reads to be skipped even when
	// Root is Native and firmware is UEFI. Wired from the CLI's
	// --no-efi-update flag.
	SkipBLS bool
}

// IsValid checks the Native-implies-root-is-"/" invariant from the data
// model.
func (c Configuration) IsValid() bool {
	if _, ok := c.Root.(Native); ok {
		return filepath.Clean(c.Root.Path()) == "/"
	}
	return true
}
