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

// Package bootenv determines the firmware type and locates the ESP and
// XBOOTLDR partitions a system boots from.
package bootenv

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/AerynOS/blsforme/internal/blserrors"
	"github.com/AerynOS/blsforme/internal/blsvars"
	"github.com/AerynOS/blsforme/internal/config"
	"github.com/AerynOS/blsforme/internal/superblock"
	"github.com/AerynOS/blsforme/internal/topology"
	"github.com/rs/zerolog/log"
)

// Firmware is a closed tagged union of the two firmware families this
// module cares about.
type Firmware int

const (
	BIOS Firmware = iota
	UEFI
)

func (f Firmware) String() string {
	if f == UEFI {
		return "uefi"
	}
	return "bios"
}

// BootEnvironment is the resolved view of a system's boot partitions.
type BootEnvironment struct {
	Firmware Firmware

	// ESP is the canonicalised device path of the EFI System Partition.
	// Empty when none was found (only legal when Firmware == BIOS).
	ESP string

	// ESPGUID is the GPT partition GUID of ESP, if resolved.
	ESPGUID string

	// ESPMountpoint is where ESP is mounted, empty if not mounted.
	ESPMountpoint string

	// XBOOTLDR is the canonicalised device path of the Extended Boot
	// Loader Partition, empty if none exists.
	XBOOTLDR string

	// XBOOTLDRMountpoint is where XBOOTLDR is mounted, empty if not
	// mounted.
	XBOOTLDRMountpoint string

	// ESPSuperblockKind is the filesystem kind read from ESP's superblock,
	// for diagnostics only; "" if ESP is empty or its superblock could not
	// be read.
	ESPSuperblockKind string
}

// BootRoot returns $BOOT: the XBOOTLDR mountpoint if present, else the ESP
// mountpoint.
func (b BootEnvironment) BootRoot() string {
	if b.XBOOTLDRMountpoint != "" {
		return b.XBOOTLDRMountpoint
	}
	return b.ESPMountpoint
}

type mountMap map[string]string // canonical device path -> mountpoint

func buildMountMap(procfs string) (mountMap, error) {
	data, err := os.ReadFile(filepath.Join(procfs, "self", "mounts"))
	if err != nil {
		return nil, fmt.Errorf("bootenv: read mounts: %w", err)
	}
	m := make(mountMap)
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		if real, err := filepath.EvalSymlinks(fields[0]); err == nil {
			m[real] = fields[1]
		} else {
			m[fields[0]] = fields[1]
		}
	}
	return m, nil
}

// New determines the firmware and ESP/XBOOTLDR layout for cfg, using probe
// for sysfs/devfs/procfs access and rootDiskParent as the GPT disk to scan
// when falling back from BLS (typically the parent disk of the rootfs,
// from topology.GetRootfsDevice).
func New(cfg config.Configuration, probe *topology.Probe, rootDiskParent string) (*BootEnvironment, error) {
	be := &BootEnvironment{}

	if _, err := os.Stat(filepath.Join(probe.Sysfs, "firmware", "efi")); err == nil {
		be.Firmware = UEFI
	} else {
		be.Firmware = BIOS
	}

	mounts, err := buildMountMap(probe.Procfs)
	if err != nil {
		return nil, err
	}

	var espDevice, espGUID string

	_, isNative := cfg.Root.(config.Native)
	if isNative && be.Firmware == UEFI && !cfg.SkipBLS {
		if info, err := blsvars.LoaderInfo(); err == nil {
			log.Debug().Str("loader_info", info).Msg("BLS protocol confirmed, reading LoaderDevicePartUUID")
			if guid, err := blsvars.LoaderDevicePartUUID(); err == nil {
				candidate := filepath.Join(probe.Devfs, "disk", "by-partuuid", guid)
				if real, err := filepath.EvalSymlinks(candidate); err == nil {
					espDevice = real
					espGUID = guid
				}
			} else {
				log.Debug().Err(err).Msg("LoaderDevicePartUUID unavailable, falling back to GPT scan for ESP")
			}
		} else {
			log.Debug().Err(err).Msg("BLS protocol unavailable, falling back to GPT scan for ESP")
		}
	}

	if espDevice == "" && rootDiskParent != "" {
		if dev, guid, err := probe.FindPartitionByType(rootDiskParent, topology.PartTypeESP); err == nil {
			if real, err := filepath.EvalSymlinks(dev); err == nil {
				espDevice = real
			} else {
				espDevice = dev
			}
			espGUID = guid
		}
	}

	if be.Firmware == UEFI && espDevice == "" {
		return nil, blserrors.ErrNoEsp
	}

	be.ESP = espDevice
	be.ESPGUID = espGUID
	if be.ESP != "" {
		be.ESPMountpoint = mounts[be.ESP]
		if sb, err := probe.GetDeviceSuperblock(be.ESP); err == nil {
			be.ESPSuperblockKind = sb.Kind.String()
			if sb.Kind != superblock.Vfat {
				log.Warn().Str("esp", be.ESP).Str("kind", sb.Kind.String()).
					Msg("ESP superblock is not vfat")
			}
		} else {
			log.Debug().Err(err).Str("esp", be.ESP).Msg("could not read ESP superblock")
		}
	}

	if be.ESP != "" {
		espParent, ok := probe.GetDeviceParent(be.ESP)
		if ok {
			if dev, _, err := probe.FindPartitionByType(espParent, topology.PartTypeXBOOTLDR); err == nil {
				if real, err := filepath.EvalSymlinks(dev); err == nil {
					be.XBOOTLDR = real
				} else {
					be.XBOOTLDR = dev
				}
				be.XBOOTLDRMountpoint = mounts[be.XBOOTLDR]
			}
		}
	}

	return be, nil
}
