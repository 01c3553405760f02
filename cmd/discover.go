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
	"os"
	"path/filepath"
	"strings"

	"github.com/AerynOS/blsforme/internal/config"
	"github.com/AerynOS/blsforme/internal/entry"
	"github.com/AerynOS/blsforme/internal/kernel"
	"github.com/AerynOS/blsforme/internal/manager"
	"github.com/AerynOS/blsforme/internal/schema"
	"github.com/spf13/viper"
)

// discoverEntries scans {root}/usr/lib/kernel under cfg's root for kernels
// (the kernel.search_paths setting is not read), classifies its schema, builds an Entry per kernel with cmdline
// snippets loaded, and globs the candidate systemd-boot EFI binaries.
func discoverEntries(cfg config.Configuration) (schema.Schema, []*entry.Entry, []string, error) {
	s, err := schema.Classify(cfg.Root.Path())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("blsforme: classify schema: %w", err)
	}

	paths, err := kernel.ScanPaths(cfg.Root.Path())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("blsforme: scan kernel paths: %w", err)
	}

	kernels, err := kernel.Discover(s, paths)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("blsforme: discover kernels: %w", err)
	}

	entries := make([]*entry.Entry, 0, len(kernels))
	for _, k := range kernels {
		e := entry.New(k).WithSysroot(cfg.Root.Path())
		e.LoadCmdlineSnippets()
		entries = append(entries, e)
	}

	assets, err := kernel.DiscoverBootAssets(cfg.Root.Path())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("blsforme: discover bootloader assets: %w", err)
	}

	return s, entries, assets, nil
}

// baseCmdline reads {root}/etc/kernel/cmdline, the conventional
// kernel-install location for the distribution-wide command line, returning
// "" if it doesn't exist.
func baseCmdline(cfg config.Configuration) string {
	data, err := os.ReadFile(filepath.Join(cfg.Root.Path(), "etc", "kernel", "cmdline"))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// excludedSnippets reads behavior.excluded_cmdline_snippets into a set.
func excludedSnippets() map[string]bool {
	names := viper.GetStringSlice("behavior.excluded_cmdline_snippets")
	out := make(map[string]bool, len(names))
	for _, n := range names {
		out[n] = true
	}
	return out
}

// buildManagerWithEntries is buildManager plus a full kernel/entry/asset
// discovery pass, used by every subcommand that needs a ready-to-sync
// Manager rather than just a bare one.
func buildManagerWithEntries(cfg config.Configuration) (*manager.Manager, error) {
	s, entries, assets, err := discoverEntries(cfg)
	if err != nil {
		return nil, err
	}

	m, err := buildManagerForSchema(cfg, s)
	if err != nil {
		return nil, err
	}

	return m.WithEntries(entries).WithBootloaderAssets(assets), nil
}
