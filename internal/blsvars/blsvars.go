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

// Package blsvars reads the UEFI Boot Loader Specification's protocol
// variables, used to ask a running systemd-boot which partition it booted
// from without re-deriving it from scratch via GPT.
package blsvars

import (
	"fmt"
	"unicode/utf16"

	"github.com/AerynOS/blsforme/internal/blserrors"
	efi "github.com/canonical/go-efilib"
)

// Vendor is the BLS protocol's EFI variable vendor GUID.
var Vendor = efi.MakeGUID(0x4a67b082, 0x0a4c, 0x41cf, [2]byte{0xb6, 0xc7}, [6]byte{0x44, 0x0b, 0x29, 0xbb, 0x8c, 0x4f})

// decodeUCS2 converts a UEFI variable's little-endian UCS-2 payload,
// including its trailing NUL, to a Go string.
func decodeUCS2(data []byte) string {
	if len(data) < 2 {
		return ""
	}
	units := make([]uint16, 0, len(data)/2)
	for i := 0; i+1 < len(data); i += 2 {
		u := uint16(data[i]) | uint16(data[i+1])<<8
		if u == 0 {
			break
		}
		units = append(units, u)
	}
	return string(utf16.Decode(units))
}

// LoaderInfo reads the `LoaderInfo` variable, identifying the boot loader
// that booted the running system (eg "systemd-boot 255").
func LoaderInfo() (string, error) {
	data, _, err := efi.ReadVariable("LoaderInfo", Vendor)
	if err != nil {
		return "", fmt.Errorf("%w: LoaderInfo: %v", blserrors.ErrBootLoaderProtocol, err)
	}
	return decodeUCS2(data), nil
}

// LoaderDevicePartUUID reads the `LoaderDevicePartUUID` variable, the GPT
// partition GUID of the ESP the running system booted from.
func LoaderDevicePartUUID() (string, error) {
	data, _, err := efi.ReadVariable("LoaderDevicePartUUID", Vendor)
	if err != nil {
		return "", fmt.Errorf("%w: LoaderDevicePartUUID: %v", blserrors.ErrBootLoaderProtocol, err)
	}
	return decodeUCS2(data), nil
}
