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

package topology

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/diskfs/go-diskfs"
	"github.com/diskfs/go-diskfs/partition/gpt"
)

// GPT partition type GUIDs this module cares about.
const (
	PartTypeESP       = "C12A7328-F81F-11D2-BA4B-00A0C93EC93B"
	PartTypeXBOOTLDR  = "BC13C2FF-59E6-4262-A352-B275FD6F7172"
	PartTypeLinuxData = "0FC63DAF-8483-4772-8E79-3D69D8477DE4"
)

// partitionNumber extracts the trailing partition index from a device node
// name, handling both "sda2" style and "nvme0n1p2"/"mmcblk0p1" style names.
func partitionNumber(name string) (int, error) {
	trimmed := strings.TrimRight(name, "0123456789")
	digits := name[len(trimmed):]
	if digits == "" {
		return 0, fmt.Errorf("topology: %s has no trailing partition number", name)
	}
	return strconv.Atoi(digits)
}

func openGPT(diskPath string) (*gpt.Table, error) {
	d, err := diskfs.Open(diskPath, diskfs.WithOpenMode(diskfs.ReadOnly))
	if err != nil {
		return nil, fmt.Errorf("topology: open %s: %w", diskPath, err)
	}
	table, err := d.GetPartitionTable()
	if err != nil {
		return nil, fmt.Errorf("topology: read partition table on %s: %w", diskPath, err)
	}
	gptTable, ok := table.(*gpt.Table)
	if !ok {
		return nil, fmt.Errorf("topology: %s does not carry a GPT partition table", diskPath)
	}
	return gptTable, nil
}

// GetDeviceGUID returns the GPT partition GUID of devPath, which must be a
// partition (not a whole disk).
func (p *Probe) GetDeviceGUID(devPath string) (string, error) {
	parent, ok := p.GetDeviceParent(devPath)
	if !ok {
		return "", fmt.Errorf("topology: %s has no parent disk to read a partition table from", devPath)
	}

	num, err := partitionNumber(filepath.Base(devPath))
	if err != nil {
		return "", err
	}

	table, err := openGPT(parent)
	if err != nil {
		return "", err
	}
	if num < 1 || num > len(table.Partitions) {
		return "", fmt.Errorf("topology: partition %d out of range on %s", num, parent)
	}
	return strings.ToUpper(table.Partitions[num-1].GUID), nil
}

// FindPartitionByType scans diskPath's GPT table for the first partition
// whose type GUID matches typeGUID, returning its device node path under
// this probe's devfs and its partition GUID.
func (p *Probe) FindPartitionByType(diskPath, typeGUID string) (devicePath, partGUID string, err error) {
	table, err := openGPT(diskPath)
	if err != nil {
		return "", "", err
	}

	for i, part := range table.Partitions {
		if part.Size == 0 {
			continue
		}
		if !strings.EqualFold(part.Type, typeGUID) {
			continue
		}
		name := partitionDeviceName(filepath.Base(diskPath), i+1)
		return filepath.Join(p.Devfs, name), strings.ToUpper(part.GUID), nil
	}
	return "", "", fmt.Errorf("topology: no partition of type %s found on %s", typeGUID, diskPath)
}

// partitionDeviceName builds the kernel device node name for partition
// index num on disk diskName, inserting the "p" separator that nvme/mmcblk
// style device names require.
func partitionDeviceName(diskName string, num int) string {
	if len(diskName) > 0 {
		last := diskName[len(diskName)-1]
		if last >= '0' && last <= '9' {
			return fmt.Sprintf("%sp%d", diskName, num)
		}
	}
	return fmt.Sprintf("%s%d", diskName, num)
}
