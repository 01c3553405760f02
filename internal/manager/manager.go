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

// Package manager ties a Configuration to a Probe and a BootEnvironment,
// owning the scoped mount lifecycle image-mode operations require before a
// sync can run.
package manager

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/AerynOS/blsforme/internal/blserrors"
	"github.com/AerynOS/blsforme/internal/bootenv"
	"github.com/AerynOS/blsforme/internal/bootloader"
	"github.com/AerynOS/blsforme/internal/bootloader/systemdboot"
	"github.com/AerynOS/blsforme/internal/config"
	"github.com/AerynOS/blsforme/internal/entry"
	"github.com/AerynOS/blsforme/internal/runner"
	"github.com/AerynOS/blsforme/internal/schema"
	"github.com/AerynOS/blsforme/internal/topology"
	"github.com/rs/zerolog/log"
)

// Manager orchestrates a single sync operation: it resolves the boot
// environment, mounts whatever image-mode needs mounted, builds the
// bootloader backend, and drives install + cleanup.
type Manager struct {
	Config config.Configuration
	Probe  *topology.Probe
	Schema schema.Schema
	Runner runner.Runner

	entries []*entry.Entry
	assets  []string
}

// New creates a Manager for cfg, reusing probe for sysfs/devfs/procfs
// access and s as the classified schema of cfg.Root.
func New(cfg config.Configuration, probe *topology.Probe, s schema.Schema, r runner.Runner) *Manager {
	return &Manager{Config: cfg, Probe: probe, Schema: s, Runner: r}
}

// WithEntries attaches the entries a sync should install.
func (m *Manager) WithEntries(entries []*entry.Entry) *Manager {
	m.entries = entries
	return m
}

// Entries returns the entries currently attached via WithEntries.
func (m *Manager) Entries() []*entry.Entry { return m.entries }

// WithBootloaderAssets attaches the candidate bootloader binaries a sync
// may install from (eg a systemd-bootx64.efi extracted from a package).
func (m *Manager) WithBootloaderAssets(assets []string) *Manager {
	m.assets = assets
	return m
}

// MountScope is the handle returned by MountPartitions: its Release method
// unmounts and removes any mountpoints it created, and must be called on
// every exit path.
type MountScope struct {
	runner      runner.Runner
	tempMounts  []string
	releaseOnce bool
}

// Release unmounts and removes every temporary mountpoint this scope
// created. It is a no-op for native-mode scopes, which own no mounts.
// Failures are logged and swallowed: unmounting is best-effort cleanup,
// not a condition the caller can act on.
func (s *MountScope) Release() {
	if s == nil || s.releaseOnce {
		return
	}
	s.releaseOnce = true

	for i := len(s.tempMounts) - 1; i >= 0; i-- {
		mp := s.tempMounts[i]
		if err := s.runner.Unmount(mp, 0, "release scoped boot mount"); err != nil {
			log.Warn().Err(err).Str("mountpoint", mp).Msg("failed to unmount scoped boot partition")
			continue
		}
		if err := os.Remove(mp); err != nil {
			log.Warn().Err(err).Str("mountpoint", mp).Msg("failed to remove scoped mountpoint directory")
		}
	}
}

// MountPartitions resolves the BootEnvironment for this Manager. In image
// mode it creates private temporary mountpoints and mounts the ESP (and
// XBOOTLDR, if present) read-write; in native mode it reuses the probe's
// existing mountpoints and returns a no-op scope. Per the UEFI invariant,
// this fails rather than silently proceeding without a usable ESP.
func (m *Manager) MountPartitions() (*bootenv.BootEnvironment, *MountScope, error) {
	rootDiskParent := m.rootDiskParent()

	be, err := bootenv.New(m.Config, m.Probe, rootDiskParent)
	if err != nil {
		return nil, nil, err
	}

	if _, isImage := m.Config.Root.(config.Image); !isImage {
		if be.Firmware == bootenv.UEFI && be.ESPMountpoint == "" {
			return nil, nil, blserrors.ErrUnmountedEsp
		}
		return be, &MountScope{runner: m.Runner}, nil
	}

	scope := &MountScope{runner: m.Runner}

	if be.Firmware == bootenv.UEFI {
		if be.ESP == "" {
			return nil, nil, blserrors.ErrNoEsp
		}
		if be.ESPMountpoint == "" {
			mp, err := m.mountPrivate(be.ESP, "esp")
			if err != nil {
				scope.Release()
				return nil, nil, err
			}
			be.ESPMountpoint = mp
			scope.tempMounts = append(scope.tempMounts, mp)
		}
	}

	if be.XBOOTLDR != "" && be.XBOOTLDRMountpoint == "" {
		mp, err := m.mountPrivate(be.XBOOTLDR, "xbootldr")
		if err != nil {
			scope.Release()
			return nil, nil, err
		}
		be.XBOOTLDRMountpoint = mp
		scope.tempMounts = append(scope.tempMounts, mp)
	}

	if be.Firmware == bootenv.UEFI && be.BootRoot() == "" {
		scope.Release()
		return nil, nil, blserrors.ErrMissingMount
	}

	return be, scope, nil
}

func (m *Manager) mountPrivate(device, label string) (mountpoint string, err error) {
	base := filepath.Join(os.TempDir(), "blsforme-mounts")
	if err := os.MkdirAll(base, 0o700); err != nil {
		return "", fmt.Errorf("manager: create private mount base: %w", err)
	}
	mp, err := os.MkdirTemp(base, label+"-*")
	if err != nil {
		return "", fmt.Errorf("manager: create mountpoint for %s: %w", label, err)
	}

	if err := m.Runner.Mount(device, mp, "vfat", 0, "", "mount "+label); err != nil {
		os.Remove(mp)
		return "", fmt.Errorf("manager: mount %s at %s: %w", device, mp, err)
	}
	return mp, nil
}

// rootDiskParent resolves the physical disk backing cfg.Root, which
// bootenv.New scans via GPT when the BLS protocol is unavailable.
func (m *Manager) rootDiskParent() string {
	dev, err := m.Probe.GetRootfsDevice(m.Config.Root.Path())
	if err != nil {
		log.Debug().Err(err).Str("root", m.Config.Root.Path()).Msg("could not resolve root device for GPT fallback")
		return ""
	}
	parent, ok := m.Probe.GetDeviceParent(dev.Device)
	if !ok {
		return ""
	}
	return parent
}

// Sync resolves the boot environment, syncs the bootloader binary and
// loader.conf, installs every attached entry, and removes stale artefacts —
// releasing any scoped mounts it created on every exit path.
func (m *Manager) Sync(baseCmdline string, excludedSnippets map[string]bool) ([]bootloader.InstallResult, error) {
	bl, scope, err := m.Bootloader()
	if err != nil {
		return nil, err
	}
	defer scope.Release()

	if err := bl.Sync(); err != nil {
		return nil, err
	}

	return bl.SyncEntries(baseCmdline, m.entries, excludedSnippets)
}

// Bootloader resolves the boot environment and returns the Bootloader
// backend bound to it, alongside the scope that must be released once the
// caller is done (via defer). Used directly by read-only and single-shot
// operations (timeout/default queries, installed-kernel listing) that don't
// need the full Sync pipeline.
func (m *Manager) Bootloader() (*bootloader.Bootloader, *MountScope, error) {
	be, scope, err := m.MountPartitions()
	if err != nil {
		return nil, nil, err
	}

	loader, err := systemdboot.New(m.Schema, m.assets, *be, m.Runner)
	if err != nil {
		scope.Release()
		return nil, nil, err
	}

	return &bootloader.Bootloader{Systemd: loader}, scope, nil
}
