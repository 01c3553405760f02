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

package kernel

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/AerynOS/blsforme/internal/schema"
	"github.com/rs/zerolog/log"
)

// Discover dispatches to the Legacy or Blsforme/OsInfo discovery algorithm
// according to s, over the given candidate paths (every file found under
// /usr/lib/kernel and its immediate subdirectories).
func Discover(s schema.Schema, paths []string) ([]Kernel, error) {
	switch v := s.(type) {
	case schema.Legacy:
		return legacyKernels(v.Namespace, paths)
	default:
		return blsformeKernels(paths)
	}
}

func sortAux(files []AuxiliaryFile) {
	sort.Slice(files, func(i, j int) bool {
		return strings.ToLower(files[i].Path) < strings.ToLower(files[j].Path)
	})
}

// legacyKernels implements the clr-boot-manager-compatible naming
// convention: `{namespace}.{variant}.{full_version}` kernel images, with
// auxiliary files named by exact or prefix match against that same tuple.
func legacyKernels(namespace string, paths []string) ([]Kernel, error) {
	prefix := namespace + "."
	kernels := make(map[string]*Kernel)
	var order []string

	for _, p := range paths {
		base := filepath.Base(p)
		if !strings.HasPrefix(base, prefix) {
			continue
		}
		remainder := base[len(prefix):]
		idx := strings.Index(remainder, ".")
		if idx < 0 {
			continue
		}
		variant := remainder[:idx]
		fullVersion := remainder[idx+1:]
		if !strings.Contains(fullVersion, "-") {
			log.Debug().Str("path", p).Msg("kernel candidate has no release suffix, skipping")
			continue
		}
		if _, exists := kernels[fullVersion]; exists {
			continue
		}
		kernels[fullVersion] = &Kernel{Version: fullVersion, Image: p, Variant: variant}
		order = append(order, fullVersion)
	}

	// Version-independent initrds: "initrd-{namespace}." followed by a
	// suffix with no further '.', attached to every discovered kernel.
	nsInitrdPrefix := "initrd-" + namespace + "."
	var sharedInitrd []AuxiliaryFile
	for _, p := range paths {
		base := filepath.Base(p)
		if !strings.HasPrefix(base, nsInitrdPrefix) {
			continue
		}
		rest := base[len(nsInitrdPrefix):]
		if strings.Contains(rest, ".") {
			continue
		}
		sharedInitrd = append(sharedInitrd, AuxiliaryFile{Path: p, Kind: InitRd})
	}

	sort.Strings(order)
	kernelList := make([]Kernel, 0, len(order))
	for _, version := range order {
		k := kernels[version]

		sysmapName := fmt.Sprintf("System.map-%s.%s", version, k.Variant)
		cmdlineName := fmt.Sprintf("cmdline-%s.%s", version, k.Variant)
		configName := fmt.Sprintf("config-%s.%s", version, k.Variant)
		initrdPrefix := fmt.Sprintf("initrd-%s.%s.%s", namespace, k.Variant, version)

		var extras []AuxiliaryFile
		for _, p := range paths {
			base := filepath.Base(p)
			switch {
			case base == sysmapName:
				extras = append(extras, AuxiliaryFile{Path: p, Kind: SystemMap})
			case base == cmdlineName:
				extras = append(extras, AuxiliaryFile{Path: p, Kind: Cmdline})
			case base == configName:
				extras = append(extras, AuxiliaryFile{Path: p, Kind: Config})
			case strings.HasPrefix(base, initrdPrefix):
				k.Initrd = append(k.Initrd, AuxiliaryFile{Path: p, Kind: InitRd})
			}
		}
		k.Initrd = append(k.Initrd, sharedInitrd...)
		k.Extras = extras

		sortAux(k.Initrd)
		sortAux(k.Extras)

		kernelList = append(kernelList, *k)
	}

	return kernelList, nil
}

// blsformeKernels implements the modern naming convention used by Blsforme
// and OsInfo schemas: kernels live as `{version}/vmlinuz` under the scan
// root, with sibling auxiliary files in the same directory.
func blsformeKernels(paths []string) ([]Kernel, error) {
	kernelsByParent := make(map[string]*Kernel)
	var order []string

	for _, p := range paths {
		if filepath.Base(p) != "vmlinuz" {
			continue
		}
		parent := filepath.Dir(p)
		version := filepath.Base(parent)
		kernelsByParent[parent] = &Kernel{Version: version, Image: p}
		order = append(order, parent)
	}
	sort.Strings(order)

	kernelList := make([]Kernel, 0, len(order))
	for _, parent := range order {
		k := kernelsByParent[parent]

		var extras []AuxiliaryFile
		for _, p := range paths {
			if p == k.Image || filepath.Dir(p) != parent {
				continue
			}
			base := filepath.Base(p)
			switch {
			case base == "System.map":
				extras = append(extras, AuxiliaryFile{Path: p, Kind: SystemMap})
			case base == "boot.json":
				extras = append(extras, AuxiliaryFile{Path: p, Kind: BootJson})
				if data, err := os.ReadFile(p); err == nil {
					if doc, err := ParseBootJSON(data); err == nil {
						k.Variant = doc.Variant
					} else {
						log.Warn().Err(err).Str("path", p).Msg("could not parse boot.json")
					}
				}
			case base == "config":
				extras = append(extras, AuxiliaryFile{Path: p, Kind: Config})
			case strings.HasSuffix(base, ".initrd"):
				k.Initrd = append(k.Initrd, AuxiliaryFile{Path: p, Kind: InitRd})
			case strings.HasSuffix(base, ".cmdline"):
				extras = append(extras, AuxiliaryFile{Path: p, Kind: Cmdline})
			}
		}
		k.Extras = extras

		sortAux(k.Initrd)
		sortAux(k.Extras)

		kernelList = append(kernelList, *k)
	}

	return kernelList, nil
}

// ScanPaths walks root/usr/lib/kernel and its immediate subdirectories,
// collecting every regular file path as a discovery candidate. This
// matches both schemas' input: Legacy kernels live flat in that directory;
// Blsforme kernels live one subdirectory deeper.
func ScanPaths(root string) ([]string, error) {
	base := filepath.Join(root, "usr", "lib", "kernel")
	var paths []string

	topEntries, err := os.ReadDir(base)
	if err != nil {
		return nil, fmt.Errorf("kernel: read %s: %w", base, err)
	}

	for _, e := range topEntries {
		full := filepath.Join(base, e.Name())
		if !e.IsDir() {
			paths = append(paths, full)
			continue
		}
		subEntries, err := os.ReadDir(full)
		if err != nil {
			log.Warn().Err(err).Str("path", full).Msg("could not read kernel subdirectory")
			continue
		}
		for _, se := range subEntries {
			if se.IsDir() {
				continue
			}
			paths = append(paths, filepath.Join(full, se.Name()))
		}
	}

	return paths, nil
}
