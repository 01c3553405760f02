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

// Package entry builds the loader-entry identity and on-disk naming for a
// single installed kernel: its .conf basename, its installed image name,
// and the cmdline snippets attached to it.
package entry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/AerynOS/blsforme/internal/kernel"
	"github.com/AerynOS/blsforme/internal/params"
	"github.com/AerynOS/blsforme/internal/schema"
	"github.com/rs/zerolog/log"
)

var cmdlineParser = params.NewSpaceParameterParser()

// CmdlineEntry is one named cmdline snippet, keyed by the basename of the
// file it was read from.
type CmdlineEntry struct {
	Name    string
	Snippet string
}

// Entry ties a discovered Kernel to the sysroot it was scanned from, plus
// whatever overrides a caller applies before installing it.
type Entry struct {
	Kernel   kernel.Kernel
	Sysroot  string
	Cmdline  []CmdlineEntry
	StateID  string
	Schema   schema.Schema // nil means "use the loader's schema"
}

// New creates an Entry for kernel k with no sysroot/state/schema override.
func New(k kernel.Kernel) *Entry {
	return &Entry{Kernel: k}
}

// WithSysroot overrides the sysroot cmdline snippets are read relative to.
func (e *Entry) WithSysroot(sysroot string) *Entry {
	e.Sysroot = sysroot
	return e
}

// WithStateID attaches a state identifier, appended to the entry id.
func (e *Entry) WithStateID(id string) *Entry {
	e.StateID = id
	return e
}

// WithSchema overrides the schema this entry is installed under.
func (e *Entry) WithSchema(s schema.Schema) *Entry {
	e.Schema = s
	return e
}

// WithCmdline appends a cmdline snippet directly, bypassing file discovery.
func (e *Entry) WithCmdline(c CmdlineEntry) *Entry {
	e.Cmdline = append(e.Cmdline, c)
	return e
}

// normaliseSnippet collapses every newline to a space and trims the
// result, matching the transform applied to cmdline.d files.
func normaliseSnippet(data []byte) string {
	s := strings.ReplaceAll(string(data), "\n", " ")
	return strings.TrimSpace(s)
}

// LoadCmdlineSnippets reads every AuxiliaryKind Cmdline file attached to
// the kernel, then the contents of {sysroot}/usr/lib/kernel/cmdline.d/, and
// attaches each under its basename. Unreadable or non-UTF-8 files are
// silently skipped.
func (e *Entry) LoadCmdlineSnippets() {
	for _, aux := range e.Kernel.CmdlineFiles() {
		data, err := os.ReadFile(aux.Path)
		if err != nil {
			log.Debug().Err(err).Str("path", aux.Path).Msg("skipping unreadable cmdline snippet")
			continue
		}
		if !isValidUTF8(data) {
			log.Debug().Str("path", aux.Path).Msg("skipping non-UTF-8 cmdline snippet")
			continue
		}
		e.Cmdline = append(e.Cmdline, CmdlineEntry{Name: filepath.Base(aux.Path), Snippet: normaliseSnippet(data)})
	}

	dir := filepath.Join(e.Sysroot, "usr", "lib", "kernel", "cmdline.d")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, de := range entries {
		if de.IsDir() {
			continue
		}
		path := filepath.Join(dir, de.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			log.Debug().Err(err).Str("path", path).Msg("skipping unreadable cmdline.d snippet")
			continue
		}
		if !isValidUTF8(data) {
			log.Debug().Str("path", path).Msg("skipping non-UTF-8 cmdline.d snippet")
			continue
		}
		e.Cmdline = append(e.Cmdline, CmdlineEntry{Name: de.Name(), Snippet: normaliseSnippet(data)})
	}
}

func isValidUTF8(b []byte) bool {
	return utf8.Valid(b)
}

// FilteredCmdline returns the cmdline snippets whose name is not present
// in excluded, preserving order.
func (e *Entry) FilteredCmdline(excluded map[string]bool) []CmdlineEntry {
	var out []CmdlineEntry
	for _, c := range e.Cmdline {
		if excluded[c.Name] {
			continue
		}
		out = append(out, c)
	}
	return out
}

// FullCmdline joins baseCmdline with this entry's filtered snippets.
func (e *Entry) FullCmdline(baseCmdline string, excluded map[string]bool) string {
	parts := []string{baseCmdline}
	for _, c := range e.FilteredCmdline(excluded) {
		parts = append(parts, c.Snippet)
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// effectiveSchema resolves the schema this entry installs under: its own
// override if set, else fall back to s.
func (e *Entry) effectiveSchema(s schema.Schema) schema.Schema {
	if e.Schema != nil {
		return e.Schema
	}
	return s
}

// EffectiveSchema exposes effectiveSchema to callers outside this package
// (eg the bootloader layer, which needs the resolved namespace to build
// kernel directory paths).
func (e *Entry) EffectiveSchema(s schema.Schema) schema.Schema {
	return e.effectiveSchema(s)
}

// ID computes the .conf basename (without extension) for this entry under
// the given fallback schema.
func (e *Entry) ID(s schema.Schema) string {
	eff := e.effectiveSchema(s)

	var namespaceLike string
	if legacy, ok := eff.(schema.Legacy); ok {
		namespaceLike = legacy.OsRelease.Name
	} else {
		namespaceLike = eff.OsID()
	}

	id := fmt.Sprintf("%s-%s", namespaceLike, e.Kernel.Version)
	if e.StateID != "" {
		id = fmt.Sprintf("%s-%s", id, e.StateID)
	}
	return id
}

// InstalledKernelName is the on-$BOOT filename of the vmlinuz image.
func (e *Entry) InstalledKernelName(s schema.Schema) string {
	eff := e.effectiveSchema(s)
	if _, ok := eff.(schema.Legacy); ok {
		return "kernel-" + filepath.Base(e.Kernel.Image)
	}
	return filepath.Join(e.Kernel.Version, "vmlinuz")
}

// InstalledAssetName is the on-$BOOT filename for an InitRd auxiliary
// file; other kinds return "", false since they are not installed.
func (e *Entry) InstalledAssetName(s schema.Schema, aux kernel.AuxiliaryFile) (string, bool) {
	if aux.Kind != kernel.InitRd {
		return "", false
	}
	eff := e.effectiveSchema(s)
	if _, ok := eff.(schema.Legacy); ok {
		return "initrd-" + filepath.Base(aux.Path), true
	}
	return filepath.Join(e.Kernel.Version, filepath.Base(aux.Path)), true
}

// RootParameter extracts the `root=` value from this entry's full cmdline,
// for display in debugging output; returns "" if none is set.
func (e *Entry) RootParameter(baseCmdline string, excluded map[string]bool) string {
	return cmdlineParser.Extract(e.FullCmdline(baseCmdline, excluded), "root")
}

// SortedCmdline returns a copy of e.Cmdline sorted by name, used only for
// deterministic test/diff output; FullCmdline preserves discovery order.
func (e *Entry) SortedCmdline() []CmdlineEntry {
	out := append([]CmdlineEntry(nil), e.Cmdline...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
