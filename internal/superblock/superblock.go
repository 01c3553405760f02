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

// Package superblock sniffs the on-disk filesystem superblock of a block
// device by magic number, the way blkid does, without linking against it.
package superblock

import (
	"encoding/binary"
	"fmt"
	"os"
)

// Kind identifies a recognised filesystem superblock.
type Kind int

const (
	Unknown Kind = iota
	Vfat
	Ext4
	Xfs
	Btrfs
)

func (k Kind) String() string {
	switch k {
	case Vfat:
		return "vfat"
	case Ext4:
		return "ext4"
	case Xfs:
		return "xfs"
	case Btrfs:
		return "btrfs"
	default:
		return "unknown"
	}
}

// Superblock is the subset of filesystem metadata this module needs: just
// enough to tell a caller what a device holds.
type Superblock struct {
	Kind Kind
	UUID string
}

const (
	ext4SuperblockOffset = 1024
	ext4MagicOffset      = 0x38
	ext4Magic            = 0xEF53

	xfsMagicOffset = 0
	xfsMagic       = "XFSB"

	btrfsSuperblockOffset = 0x10000
	btrfsMagicOffset      = 0x40
	btrfsMagic            = "_BHRfS_M"

	vfatBootSectorSize = 512
)

// Probe reads the superblock of the device at path and classifies it.
// Returns Kind Unknown with no error when nothing recognised is found.
func Probe(path string) (Superblock, error) {
	f, err := os.Open(path)
	if err != nil {
		return Superblock{}, fmt.Errorf("superblock: open %s: %w", path, err)
	}
	defer f.Close()

	if sb, ok, err := probeBtrfs(f); err != nil {
		return Superblock{}, err
	} else if ok {
		return sb, nil
	}

	if sb, ok, err := probeExt4(f); err != nil {
		return Superblock{}, err
	} else if ok {
		return sb, nil
	}

	if sb, ok, err := probeXfs(f); err != nil {
		return Superblock{}, err
	} else if ok {
		return sb, nil
	}

	if sb, ok, err := probeVfat(f); err != nil {
		return Superblock{}, err
	} else if ok {
		return sb, nil
	}

	return Superblock{Kind: Unknown}, nil
}

func probeBtrfs(f *os.File) (Superblock, bool, error) {
	buf := make([]byte, 8)
	if _, err := f.ReadAt(buf, btrfsSuperblockOffset+btrfsMagicOffset); err != nil {
		return Superblock{}, false, nil
	}
	if string(buf) != btrfsMagic {
		return Superblock{}, false, nil
	}

	uuidBuf := make([]byte, 16)
	if _, err := f.ReadAt(uuidBuf, btrfsSuperblockOffset+0x20); err != nil {
		return Superblock{}, false, fmt.Errorf("superblock: read btrfs uuid: %w", err)
	}
	return Superblock{Kind: Btrfs, UUID: formatUUID(uuidBuf)}, true, nil
}

func probeExt4(f *os.File) (Superblock, bool, error) {
	magic := make([]byte, 2)
	if _, err := f.ReadAt(magic, ext4SuperblockOffset+ext4MagicOffset); err != nil {
		return Superblock{}, false, nil
	}
	if binary.LittleEndian.Uint16(magic) != ext4Magic {
		return Superblock{}, false, nil
	}

	uuidBuf := make([]byte, 16)
	if _, err := f.ReadAt(uuidBuf, ext4SuperblockOffset+0x68); err != nil {
		return Superblock{}, false, fmt.Errorf("superblock: read ext4 uuid: %w", err)
	}
	return Superblock{Kind: Ext4, UUID: formatUUID(uuidBuf)}, true, nil
}

func probeXfs(f *os.File) (Superblock, bool, error) {
	magic := make([]byte, 4)
	if _, err := f.ReadAt(magic, xfsMagicOffset); err != nil {
		return Superblock{}, false, nil
	}
	if string(magic) != xfsMagic {
		return Superblock{}, false, nil
	}

	uuidBuf := make([]byte, 16)
	if _, err := f.ReadAt(uuidBuf, 32); err != nil {
		return Superblock{}, false, fmt.Errorf("superblock: read xfs uuid: %w", err)
	}
	return Superblock{Kind: Xfs, UUID: formatUUID(uuidBuf)}, true, nil
}

func probeVfat(f *os.File) (Superblock, bool, error) {
	buf := make([]byte, vfatBootSectorSize)
	n, err := f.ReadAt(buf, 0)
	if err != nil && n < vfatBootSectorSize {
		return Superblock{}, false, nil
	}
	if buf[510] != 0x55 || buf[511] != 0xAA {
		return Superblock{}, false, nil
	}

	// FAT32 extended BPB carries its volume serial at offset 0x43; FAT12/16
	// carries it at 0x27. Distinguish via the FAT32-only "FAT32   " label
	// at 0x52, which the BPB leaves blank on FAT12/16.
	serialOff := 0x27
	if string(buf[0x52:0x5A]) == "FAT32   " {
		serialOff = 0x43
	}
	serial := binary.LittleEndian.Uint32(buf[serialOff : serialOff+4])
	return Superblock{Kind: Vfat, UUID: fmt.Sprintf("%04X-%04X", serial>>16, serial&0xFFFF)}, true, nil
}

func formatUUID(b []byte) string {
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:16])
}
