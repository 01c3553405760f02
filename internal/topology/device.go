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
	"os"
	"path/filepath"

	"github.com/AerynOS/blsforme/internal/superblock"
)

// BlockDevice is the composite device chain for a mountpoint: the leaf
// carries the mountpoint, each Custodian is an intermediate device-mapper
// layer (LVM, dm-crypt) between the leaf and the physical disk partition.
type BlockDevice struct {
	// Device is the final physical partition backing this chain (eg
	// /dev/sda2), used for GPT GUID lookups.
	Device string

	// Mountpoint is where the leaf of the chain is mounted.
	Mountpoint string

	// Custodians are the intermediate device-mapper nodes walked through
	// to reach Device, nearest-to-leaf first.
	Custodians []string

	// GUID is the GPT partition GUID of Device, if known.
	GUID string
}

// GetDeviceParent returns the sysfs parent of dev (eg the physical disk
// backing a partition), or false if dev has no further parent: it is a
// top-level disk or a virtual device such as a dm node.
func (p *Probe) GetDeviceParent(dev string) (string, bool) {
	name := filepath.Base(dev)
	classDir := filepath.Join(p.Sysfs, "class", "block", name)
	real, err := filepath.EvalSymlinks(classDir)
	if err != nil {
		return "", false
	}

	parentDir := filepath.Dir(real)
	parentName := filepath.Base(parentDir)
	if parentName == "block" {
		return "", false
	}
	return filepath.Join(p.Devfs, parentName), true
}

// GetDeviceChain walks the sysfs slaves/ hierarchy of dev depth-first,
// returning every device beneath it (device-mapper layers and the backing
// partition, not including dev itself), nearest-to-dev first.
func (p *Probe) GetDeviceChain(dev string) []string {
	var chain []string
	p.walkSlaves(filepath.Base(dev), &chain)
	return chain
}

func (p *Probe) walkSlaves(name string, chain *[]string) {
	slavesDir := filepath.Join(p.Sysfs, "class", "block", name, "slaves")
	entries, err := os.ReadDir(slavesDir)
	if err != nil {
		return
	}
	for _, e := range entries {
		*chain = append(*chain, filepath.Join(p.Devfs, e.Name()))
		p.walkSlaves(e.Name(), chain)
	}
}

// GetRootfsDevice resolves mountpoint to a fully-populated BlockDevice: the
// physical partition, its GPT GUID, and every device-mapper custodian
// layer walked through to reach it.
func (p *Probe) GetRootfsDevice(mountpoint string) (*BlockDevice, error) {
	leaf, err := p.DeviceFromMountpoint(mountpoint)
	if err != nil {
		return nil, err
	}

	chain := p.GetDeviceChain(leaf)

	tip := leaf
	custodians := []string{}
	if len(chain) > 0 {
		custodians = append(custodians, leaf)
		custodians = append(custodians, chain[:len(chain)-1]...)
		tip = chain[len(chain)-1]
	}

	guid, _ := p.GetDeviceGUID(tip)

	return &BlockDevice{
		Device:     tip,
		Mountpoint: mountpoint,
		Custodians: custodians,
		GUID:       guid,
	}, nil
}

// GetDeviceSuperblock opens the device node at devPath read-only and
// classifies its filesystem superblock by magic number. bootenv.New calls
// it on the discovered ESP to record its filesystem kind and log a warning
// when it is not vfat; the result does not block the ESP from being used.
func (p *Probe) GetDeviceSuperblock(devPath string) (superblock.Superblock, error) {
	return superblock.Probe(devPath)
}
