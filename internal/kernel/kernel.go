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

// Package kernel discovers installed kernels and their auxiliary files
// (initrd, cmdline snippets, System.map, config, boot.json) under a system
// root, following either the Legacy (clr-boot-manager) or Blsforme naming
// schema.
package kernel

import (
	"encoding/json"
	"fmt"
)

// AuxiliaryKind classifies a file found alongside a kernel image.
type AuxiliaryKind int

const (
	Cmdline AuxiliaryKind = iota
	InitRd
	SystemMap
	Config
	BootJson
)

func (k AuxiliaryKind) String() string {
	switch k {
	case Cmdline:
		return "cmdline"
	case InitRd:
		return "initrd"
	case SystemMap:
		return "System.map"
	case Config:
		return "config"
	case BootJson:
		return "boot.json"
	default:
		return "unknown"
	}
}

// AuxiliaryFile is a single file discovered alongside a kernel image.
type AuxiliaryFile struct {
	Path string
	Kind AuxiliaryKind
}

// BootJSON is the optional boot.json sidecar file some distributions ship
// to record which variant (eg "lts", "hardened") a kernel build is.
type BootJSON struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Variant string `json:"variant"`
}

// ParseBootJSON decodes a boot.json document.
func ParseBootJSON(data []byte) (*BootJSON, error) {
	var doc BootJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("kernel: decode boot.json: %w", err)
	}
	return &doc, nil
}

// Kernel is a single discovered installed kernel: its version, the vmlinuz
// image path, and whatever auxiliary files were found alongside it.
type Kernel struct {
	// Version is the kernel release string, eg "6.9.3-201.fc40" or
	// "6.9.3-201" depending on schema.
	Version string

	// Image is the absolute path to the vmlinuz (or equivalent) image.
	Image string

	// Initrd lists discovered initrd/initramfs images for this kernel,
	// in path-sorted order. May be empty.
	Initrd []AuxiliaryFile

	// Extras lists every other auxiliary file attached to this kernel
	// (System.map, config, cmdline, boot.json), path-sorted.
	Extras []AuxiliaryFile

	// Variant records the kernel flavour (eg "lts"), sourced from the
	// filename under Legacy or from boot.json under Blsforme/OsInfo.
	Variant string
}

// CmdlineFiles returns the subset of Extras classified as Cmdline.
func (k Kernel) CmdlineFiles() []AuxiliaryFile {
	var out []AuxiliaryFile
	for _, f := range k.Extras {
		if f.Kind == Cmdline {
			out = append(out, f)
		}
	}
	return out
}
