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

// Package blserrors holds the discrete failure kinds shared across the
// topology, schema, bootenv and bootloader packages.
package blserrors

import "errors"

// Sentinel errors, matched with errors.Is by callers.
var (
	// ErrNoEsp is returned when firmware is UEFI but no EFI System
	// Partition could be located.
	ErrNoEsp = errors.New("blsforme: no usable EFI System Partition detected")

	// ErrNoXbootldr is returned when a caller requires an XBOOTLDR
	// partition but none was found.
	ErrNoXbootldr = errors.New("blsforme: no XBOOTLDR partition detected")

	// ErrUnknownMount is returned when a mountpoint cannot be resolved to
	// a backing device by either stat or the mounts table.
	ErrUnknownMount = errors.New("blsforme: unknown mountpoint")

	// ErrInvalidFilesystem covers filename/path decode failures during
	// kernel discovery.
	ErrInvalidFilesystem = errors.New("blsforme: invalid filesystem state")

	// ErrUnsupported marks a code path that is intentionally
	// unimplemented (legacy BIOS bootloaders).
	ErrUnsupported = errors.New("blsforme: unsupported usage")

	// ErrUnmountedEsp is returned in native mode when an ESP was detected
	// on disk but has no corresponding mountpoint; native mode never
	// mounts partitions itself, so this is fatal rather than recoverable.
	ErrUnmountedEsp = errors.New("blsforme: detected ESP is not mounted")

	// ErrMissingMount is returned when an operation requires a boot
	// partition mountpoint that is not available.
	ErrMissingMount = errors.New("blsforme: missing required mountpoint")

	// ErrMissingFile is returned when a required bootloader asset (eg
	// systemd-bootx64.efi) cannot be found among the supplied assets.
	ErrMissingFile = errors.New("blsforme: missing required file")

	// ErrBootLoaderProtocol covers failures reading BLS EFI variables.
	ErrBootLoaderProtocol = errors.New("blsforme: boot loader protocol error")
)
