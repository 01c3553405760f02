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

package systemdboot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/AerynOS/blsforme/internal/bootenv"
	"github.com/AerynOS/blsforme/internal/entry"
	"github.com/AerynOS/blsforme/internal/kernel"
	"github.com/AerynOS/blsforme/internal/osinfo"
	"github.com/AerynOS/blsforme/internal/osrelease"
	"github.com/AerynOS/blsforme/internal/runner"
	"github.com/AerynOS/blsforme/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestGenerateEntryLoaderConfigText mirrors the spec's "Loader config
// text" scenario.
func TestGenerateEntryLoaderConfigText(t *testing.T) {
	text := generateEntry(
		"AerynOS",
		"6.9.0",
		"/boot",
		"/boot/EFI/aerynos/6.9.0/vmlinuz",
		[]string{"/boot/EFI/aerynos/6.9.0/initrd"},
		"root=PARTUUID=abc quiet",
	)

	expected := "title AerynOS (6.9.0)\n" +
		"linux /EFI/aerynos/6.9.0/vmlinuz\n" +
		"initrd /EFI/aerynos/6.9.0/initrd\n" +
		"options root=PARTUUID=abc quiet\n"
	assert.Equal(t, expected, text)
}

func TestGenerateEntryNoInitrdEmitsBlankLine(t *testing.T) {
	text := generateEntry("AerynOS", "6.9.0", "/boot", "/boot/EFI/aerynos/6.9.0/vmlinuz", nil, "quiet")
	expected := "title AerynOS (6.9.0)\n" +
		"linux /EFI/aerynos/6.9.0/vmlinuz\n" +
		"\n" +
		"options quiet\n"
	assert.Equal(t, expected, text)
}

func TestNamespacePrefixMatchTightened(t *testing.T) {
	assert.True(t, namespacePrefixMatch("aerynos-6.9.0.conf", "aerynos"))
	assert.True(t, namespacePrefixMatch("aerynos.conf", "aerynos"))
	assert.False(t, namespacePrefixMatch("aerynosx-6.9.0.conf", "aerynos"))
}

// TestCleanupAcrossIdentityRename mirrors the spec's "Stale cleanup across
// identity rename" scenario.
func TestCleanupAcrossIdentityRename(t *testing.T) {
	bootRoot := t.TempDir()
	entriesDir := filepath.Join(bootRoot, "loader", "entries")
	require.NoError(t, os.MkdirAll(entriesDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(entriesDir, "serpent-os-6.5-1.conf"), []byte("stale"), 0o644))

	oldKernelDir := filepath.Join(bootRoot, "EFI", "serpent-os", "6.5-1")
	require.NoError(t, os.MkdirAll(oldKernelDir, 0o755))

	info := &osinfo.OsInfo{}
	info.Metadata.Identity.ID = "aerynos"
	info.Metadata.Identity.FormerIdentities = []osinfo.FormerIdentity{{ID: "serpent-os"}}
	s := schema.OsInfo{Info: info}

	l := &Loader{Schema: s, BootRoot: bootRoot}

	newConf := filepath.Join(entriesDir, "aerynos-6.9.conf")
	require.NoError(t, os.WriteFile(newConf, []byte("new"), 0o644))
	newKernelDir := filepath.Join(bootRoot, "EFI", "aerynos", "6.9")
	require.NoError(t, os.MkdirAll(newKernelDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(newKernelDir, "vmlinuz"), []byte("x"), 0o644))

	l.cleanupStaleEntries([]InstallResult{{LoaderConf: newConf, KernelDir: newKernelDir}})

	_, err := os.Stat(filepath.Join(entriesDir, "serpent-os-6.5-1.conf"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(oldKernelDir)
	assert.True(t, os.IsNotExist(err))

	_, err = os.Stat(newConf)
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(newKernelDir, "vmlinuz"))
	assert.NoError(t, err)
}

func TestNewFailsWithoutBootRoot(t *testing.T) {
	rel := &osrelease.OsRelease{ID: "aerynos", Name: "AerynOS", VersionID: "1"}
	s := schema.Blsforme{OsRelease: rel}

	_, err := New(s, nil, bootenv.BootEnvironment{}, runner.New(false))
	assert.Error(t, err)
}

func TestSyncEntriesEmptyListStillWritesNothingButSucceeds(t *testing.T) {
	rel := &osrelease.OsRelease{ID: "aerynos", Name: "AerynOS", VersionID: "1"}
	s := schema.Blsforme{OsRelease: rel}
	bootRoot := t.TempDir()

	l := &Loader{Schema: s, BootRoot: bootRoot, Runner: runner.New(false)}
	results, err := l.SyncEntries("root=PARTUUID=abc", nil, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestInstallWritesKernelAndConf(t *testing.T) {
	rel := &osrelease.OsRelease{ID: "aerynos", Name: "AerynOS", VersionID: "1"}
	s := schema.Blsforme{OsRelease: rel}
	bootRoot := t.TempDir()
	l := &Loader{Schema: s, BootRoot: bootRoot, Runner: runner.New(false)}

	srcDir := t.TempDir()
	image := filepath.Join(srcDir, "vmlinuz")
	require.NoError(t, os.WriteFile(image, []byte("kernel-bytes"), 0o644))

	e := entry.New(kernel.Kernel{Version: "6.9.0", Image: image})
	results, err := l.SyncEntries("root=PARTUUID=abc quiet", []*entry.Entry{e}, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)

	data, err := os.ReadFile(filepath.Join(bootRoot, "EFI", "aerynos", "6.9.0", "vmlinuz"))
	require.NoError(t, err)
	assert.Equal(t, "kernel-bytes", string(data))

	confData, err := os.ReadFile(results[0].LoaderConf)
	require.NoError(t, err)
	assert.Contains(t, string(confData), "title AerynOS (6.9.0)")
	assert.Contains(t, string(confData), "options root=PARTUUID=abc quiet")
}

// TestSyncEntriesDryRunWritesNothing mirrors the spec's dry-run guarantee:
// a --dry-run sync must not touch $BOOT at all.
func TestSyncEntriesDryRunWritesNothing(t *testing.T) {
	rel := &osrelease.OsRelease{ID: "aerynos", Name: "AerynOS", VersionID: "1"}
	s := schema.Blsforme{OsRelease: rel}
	bootRoot := t.TempDir()
	l := &Loader{Schema: s, BootRoot: bootRoot, Runner: runner.New(true)}

	srcDir := t.TempDir()
	image := filepath.Join(srcDir, "vmlinuz")
	require.NoError(t, os.WriteFile(image, []byte("kernel-bytes"), 0o644))

	e := entry.New(kernel.Kernel{Version: "6.9.0", Image: image})
	results, err := l.SyncEntries("root=PARTUUID=abc quiet", []*entry.Entry{e}, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)

	_, err = os.Stat(filepath.Join(bootRoot, "EFI", "aerynos", "6.9.0", "vmlinuz"))
	assert.True(t, os.IsNotExist(err), "dry-run must not install the kernel image")
	_, err = os.Stat(results[0].LoaderConf)
	assert.True(t, os.IsNotExist(err), "dry-run must not write the loader entry")
}

// TestSyncDryRunWritesNothing mirrors the same guarantee for the
// systemd-boot binary and top-level loader.conf.
func TestSyncDryRunWritesNothing(t *testing.T) {
	rel := &osrelease.OsRelease{ID: "aerynos", Name: "AerynOS", VersionID: "1"}
	s := schema.Blsforme{OsRelease: rel}

	espRoot := t.TempDir()
	assetSrc := filepath.Join(t.TempDir(), "systemd-bootx64.efi")
	require.NoError(t, os.WriteFile(assetSrc, []byte("fake efi binary"), 0o644))

	env := bootenv.BootEnvironment{Firmware: bootenv.UEFI, ESPMountpoint: espRoot}
	l, err := New(s, []string{assetSrc}, env, runner.New(true))
	require.NoError(t, err)
	require.NoError(t, l.Sync())

	_, err = os.Stat(filepath.Join(espRoot, "EFI", "systemd", "systemd-bootx64.efi"))
	assert.True(t, os.IsNotExist(err), "dry-run must not install the systemd-boot binary")
	_, err = os.Stat(filepath.Join(espRoot, "loader", "loader.conf"))
	assert.True(t, os.IsNotExist(err), "dry-run must not write loader.conf")
}
