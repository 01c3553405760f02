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

package bootenv

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/AerynOS/blsforme/internal/config"
	"github.com/AerynOS/blsforme/internal/topology"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBIOSFirmwareDetection(t *testing.T) {
	vfs := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(vfs, "proc", "self"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(vfs, "proc", "self", "mounts"), []byte(""), 0o644))

	probe := topology.NewProbe(vfs)
	cfg := config.Configuration{Root: config.Native("/"), VFS: vfs}

	be, err := New(cfg, probe, "")
	require.NoError(t, err)
	assert.Equal(t, BIOS, be.Firmware)
	assert.Empty(t, be.ESP)
}

func TestUEFIWithNoEspFails(t *testing.T) {
	vfs := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(vfs, "sys", "firmware", "efi"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(vfs, "proc", "self"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(vfs, "proc", "self", "mounts"), []byte(""), 0o644))

	probe := topology.NewProbe(vfs)
	cfg := config.Configuration{Root: config.Image("/mnt/image"), VFS: vfs}

	_, err := New(cfg, probe, "")
	assert.Error(t, err)
}

func TestBootRootPrefersXbootldr(t *testing.T) {
	be := BootEnvironment{ESPMountpoint: "/boot/efi", XBOOTLDRMountpoint: "/boot"}
	assert.Equal(t, "/boot", be.BootRoot())

	be2 := BootEnvironment{ESPMountpoint: "/boot/efi"}
	assert.Equal(t, "/boot/efi", be2.BootRoot())
}

func TestFirmwareString(t *testing.T) {
	assert.Equal(t, "uefi", UEFI.String())
	assert.Equal(t, "bios", BIOS.String())
}
