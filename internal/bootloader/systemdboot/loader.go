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

// Package systemdboot installs kernels and loader.conf entries for
// systemd-boot, the only bootloader backend this module implements.
package systemdboot

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/AerynOS/blsforme/internal/blserrors"
	"github.com/AerynOS/blsforme/internal/bootenv"
	"github.com/AerynOS/blsforme/internal/entry"
	"github.com/AerynOS/blsforme/internal/fileutil"
	"github.com/AerynOS/blsforme/internal/kernel"
	"github.com/AerynOS/blsforme/internal/runner"
	"github.com/AerynOS/blsforme/internal/schema"
	"github.com/rs/zerolog/log"
)

// InstallResult records where an installed entry landed.
type InstallResult struct {
	LoaderConf string
	KernelDir  string
}

// Loader is the systemd-boot backend: a base schema, the set of candidate
// bootloader assets to install from, and the resolved boot environment.
type Loader struct {
	Schema   schema.Schema
	Assets   []string
	Env      bootenv.BootEnvironment
	BootRoot string
	Runner   runner.Runner
}

// New builds a Loader, failing with ErrMissingMount if neither ESP nor
// XBOOTLDR has a usable mountpoint. r governs whether the installs and
// removals below actually touch disk or only log what they would do.
func New(s schema.Schema, assets []string, env bootenv.BootEnvironment, r runner.Runner) (*Loader, error) {
	bootRoot := env.BootRoot()
	if bootRoot == "" {
		return nil, fmt.Errorf("%w: ESP (/efi)", blserrors.ErrMissingMount)
	}
	return &Loader{Schema: s, Assets: assets, Env: env, BootRoot: bootRoot, Runner: r}, nil
}

// runnerOrReal returns l.Runner, falling back to a real runner for Loaders
// built directly as struct literals rather than through New.
func (l *Loader) runnerOrReal() runner.Runner {
	if l.Runner == nil {
		return &runner.RealRunner{}
	}
	return l.Runner
}

// Sync installs the systemd-boot binary and writes loader.conf.
func (l *Loader) Sync() error {
	var asset string
	for _, a := range l.Assets {
		if strings.HasSuffix(a, "systemd-bootx64.efi") {
			asset = a
			break
		}
	}
	if asset == "" {
		return fmt.Errorf("%w: systemd-bootx64.efi", blserrors.ErrMissingFile)
	}

	espRoot := l.Env.ESPMountpoint
	if espRoot == "" {
		return fmt.Errorf("%w: ESP not mounted", blserrors.ErrMissingMount)
	}

	r := l.runnerOrReal()

	bootDest := fileutil.JoinInsensitive(espRoot, "EFI", "Boot", "BOOTX64.EFI")
	systemdDest := fileutil.JoinInsensitive(espRoot, "EFI", "systemd", "systemd-bootx64.efi")
	for _, dest := range []string{bootDest, systemdDest} {
		if err := r.CopyFile(asset, dest, "install systemd-boot binary"); err != nil {
			return err
		}
	}

	namespace := l.Schema.OsNamespace()
	loaderConfPath := filepath.Join(l.BootRoot, "loader", "loader.conf")

	lc := LoaderConf{}
	if existing, err := os.ReadFile(loaderConfPath); err == nil {
		lc = ParseLoaderConf(existing)
	}
	lc.Default = namespace + "*"

	if err := r.WriteFile(loaderConfPath, []byte(lc.Render()), 0o644, "write loader.conf"); err != nil {
		return fmt.Errorf("systemdboot: write loader.conf: %w", err)
	}
	return nil
}

// SetTimeout pins loader.conf's timeout directive to seconds, preserving
// every other directive already present.
func (l *Loader) SetTimeout(seconds int) error {
	return l.updateLoaderConf(func(lc LoaderConf) LoaderConf { return lc.WithTimeout(seconds) })
}

// Timeout reads loader.conf's current timeout directive, if any.
func (l *Loader) Timeout() (int, bool, error) {
	path := filepath.Join(l.BootRoot, "loader", "loader.conf")
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false, fmt.Errorf("systemdboot: read loader.conf: %w", err)
	}
	lc := ParseLoaderConf(data)
	if lc.Timeout == nil {
		return 0, false, nil
	}
	return *lc.Timeout, true, nil
}

// SetDefault pins loader.conf's default directive to a single entry id
// (rather than the "{namespace}*" glob Sync writes), used by `set-kernel`.
func (l *Loader) SetDefault(id string) error {
	return l.updateLoaderConf(func(lc LoaderConf) LoaderConf { return lc.WithDefault(id) })
}

func (l *Loader) updateLoaderConf(mutate func(LoaderConf) LoaderConf) error {
	path := filepath.Join(l.BootRoot, "loader", "loader.conf")
	lc := LoaderConf{}
	if existing, err := os.ReadFile(path); err == nil {
		lc = ParseLoaderConf(existing)
	}
	lc = mutate(lc)
	if err := l.runnerOrReal().WriteFile(path, []byte(lc.Render()), 0o644, "update loader.conf"); err != nil {
		return fmt.Errorf("systemdboot: write loader.conf: %w", err)
	}
	return nil
}

// SyncEntries installs every entry, then removes anything stale.
func (l *Loader) SyncEntries(baseCmdline string, entries []*entry.Entry, excludedSnippets map[string]bool) ([]InstallResult, error) {
	results := make([]InstallResult, 0, len(entries))
	for _, e := range entries {
		full := e.FullCmdline(baseCmdline, excludedSnippets)
		res, err := l.install(full, e)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}

	l.cleanupStaleEntries(results)
	return results, nil
}

func (l *Loader) install(cmdline string, e *entry.Entry) (InstallResult, error) {
	effSchema := e.EffectiveSchema(l.Schema)

	r := l.runnerOrReal()

	loaderID := filepath.Join(l.BootRoot, "loader", "entries", e.ID(effSchema)+".conf")
	kernelDir := filepath.Join(l.BootRoot, "EFI", effSchema.OsNamespace())
	vmlinuzDest := filepath.Join(kernelDir, e.InstalledKernelName(effSchema))

	if err := r.CopyFile(e.Kernel.Image, vmlinuzDest, "install kernel image"); err != nil {
		return InstallResult{}, fmt.Errorf("systemdboot: install kernel image: %w", err)
	}

	var initrdDests []string
	for _, aux := range e.Kernel.Initrd {
		name, ok := e.InstalledAssetName(effSchema, aux)
		if !ok {
			continue
		}
		dest := filepath.Join(kernelDir, name)
		if err := r.CopyFile(aux.Path, dest, "install initrd"); err != nil {
			return InstallResult{}, fmt.Errorf("systemdboot: install initrd %s: %w", aux.Path, err)
		}
		initrdDests = append(initrdDests, dest)
	}

	if err := r.MkdirAll(filepath.Dir(loaderID), 0o755, "create loader entries directory"); err != nil {
		return InstallResult{}, fmt.Errorf("systemdboot: mkdir loader/entries: %w", err)
	}

	displayName := effSchema.OsName()
	if d, ok := effSchema.OsDisplayName(); ok {
		displayName = d
	}

	confText := generateEntry(displayName, e.Kernel.Version, l.BootRoot, vmlinuzDest, initrdDests, cmdline)
	if err := r.WriteFile(loaderID, []byte(confText), 0o644, "write loader entry"); err != nil {
		return InstallResult{}, fmt.Errorf("systemdboot: write %s: %w", loaderID, err)
	}

	return InstallResult{LoaderConf: loaderID, KernelDir: filepath.Dir(vmlinuzDest)}, nil
}

// generateEntry renders the systemd-boot entry text format exactly.
func generateEntry(title, version, bootRoot, vmlinuzDest string, initrdDests []string, cmdline string) string {
	assetDir := relSlash(bootRoot, filepath.Dir(vmlinuzDest))
	vmlinuzBase := filepath.Base(vmlinuzDest)

	var b strings.Builder
	fmt.Fprintf(&b, "title %s (%s)\n", title, version)
	fmt.Fprintf(&b, "linux /%s/%s\n", assetDir, vmlinuzBase)

	if len(initrdDests) == 0 {
		b.WriteString("\n")
	} else {
		for _, dest := range initrdDests {
			fmt.Fprintf(&b, "initrd /%s/%s\n", assetDir, filepath.Base(dest))
		}
	}

	fmt.Fprintf(&b, "options %s\n", cmdline)
	return b.String()
}

func relSlash(base, target string) string {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		rel = target
	}
	return filepath.ToSlash(rel)
}

// namespacePrefixMatch reports whether filename is prefixed by prefix in a
// way that cannot falsely match an unrelated, longer identity sharing the
// same leading characters: the character following prefix must be '-',
// '.', or the end of the string.
func namespacePrefixMatch(filename, prefix string) bool {
	if !strings.HasPrefix(filename, prefix) {
		return false
	}
	if len(filename) == len(prefix) {
		return true
	}
	next := filename[len(prefix)]
	return next == '-' || next == '.'
}

func (l *Loader) namespaceAndPrefixSets() (namespaces []string, prefixes []string) {
	if info, ok := l.Schema.(schema.OsInfo); ok {
		ids := append([]string{info.OsID()}, schema.FormerIdentities(l.Schema)...)
		return ids, ids
	}
	if legacy, ok := l.Schema.(schema.Legacy); ok {
		return []string{legacy.OsNamespace()}, []string{legacy.OsRelease.Name}
	}
	return []string{l.Schema.OsNamespace()}, []string{l.Schema.OsID()}
}

func (l *Loader) cleanupStaleEntries(installed []InstallResult) {
	r := l.runnerOrReal()
	namespaces, prefixes := l.namespaceAndPrefixSets()

	keepLoaderConf := make(map[string]bool, len(installed))
	keepKernelDir := make(map[string]bool, len(installed))
	for _, ir := range installed {
		keepLoaderConf[ir.LoaderConf] = true
		keepKernelDir[ir.KernelDir] = true
	}

	entriesDir := filepath.Join(l.BootRoot, "loader", "entries")
	if files, err := os.ReadDir(entriesDir); err == nil {
		for _, f := range files {
			if f.IsDir() {
				continue
			}
			matched := false
			for _, p := range prefixes {
				if namespacePrefixMatch(f.Name(), p) {
					matched = true
					break
				}
			}
			if !matched {
				continue
			}
			path := filepath.Join(entriesDir, f.Name())
			if keepLoaderConf[path] {
				continue
			}
			if err := r.Remove(path, "remove stale loader entry"); err != nil {
				log.Warn().Err(err).Str("path", path).Msg("could not remove stale loader entry")
			}
		}
	}

	for _, ns := range namespaces {
		nsDir := filepath.Join(l.BootRoot, "EFI", ns)
		dirs, err := os.ReadDir(nsDir)
		if err != nil {
			continue
		}
		for _, d := range dirs {
			if !d.IsDir() {
				continue
			}
			path := filepath.Join(nsDir, d.Name())
			if keepKernelDir[path] {
				continue
			}
			if err := r.RemoveAll(path, "remove stale kernel directory"); err != nil {
				log.Warn().Err(err).Str("path", path).Msg("could not remove stale kernel directory")
			}
		}
	}
}

// InstalledKernels walks {boot_root}/EFI/{namespace}/*/* and re-runs
// discovery over the resulting paths.
func (l *Loader) InstalledKernels() ([]kernel.Kernel, error) {
	nsDir := filepath.Join(l.BootRoot, "EFI", l.Schema.OsNamespace())
	versionDirs, err := os.ReadDir(nsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("systemdboot: read %s: %w", nsDir, err)
	}

	var paths []string
	for _, vd := range versionDirs {
		if !vd.IsDir() {
			continue
		}
		versionDir := filepath.Join(nsDir, vd.Name())
		files, err := os.ReadDir(versionDir)
		if err != nil {
			continue
		}
		for _, f := range files {
			if f.IsDir() {
				continue
			}
			paths = append(paths, filepath.Join(versionDir, f.Name()))
		}
	}

	return kernel.Discover(l.Schema, paths)
}
