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

// Package topology walks sysfs/devfs/procfs to resolve a mountpoint to its
// backing block device, follow device-mapper/LVM/dm-crypt chains down to
// physical disks, and read GPT partition metadata.
package topology

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/AerynOS/blsforme/internal/blserrors"
	"golang.org/x/sys/unix"
)

// Probe roots sysfs/devfs/procfs lookups under a virtual filesystem root,
// almost always "/" but overridable for tests.
type Probe struct {
	Sysfs  string
	Devfs  string
	Procfs string
}

// NewProbe builds a Probe rooted at vfsRoot (typically Configuration.VFS).
func NewProbe(vfsRoot string) *Probe {
	return &Probe{
		Sysfs:  filepath.Join(vfsRoot, "sys"),
		Devfs:  filepath.Join(vfsRoot, "dev"),
		Procfs: filepath.Join(vfsRoot, "proc"),
	}
}

// mountEntry is one line of /proc/self/mounts.
type mountEntry struct {
	device     string
	mountpoint string
	fstype     string
}

func (p *Probe) readMounts() ([]mountEntry, error) {
	path := filepath.Join(p.Procfs, "self", "mounts")
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("topology: open %s: %w", path, err)
	}
	defer f.Close()

	var entries []mountEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 {
			continue
		}
		entries = append(entries, mountEntry{device: fields[0], mountpoint: unescapeMount(fields[1]), fstype: fields[2]})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("topology: scan %s: %w", path, err)
	}
	return entries, nil
}

// unescapeMount reverses the octal escaping the kernel applies to spaces,
// tabs and backslashes in /proc/self/mounts.
func unescapeMount(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+3 < len(s) {
			var v int
			if _, err := fmt.Sscanf(s[i+1:i+4], "%03o", &v); err == nil {
				b.WriteByte(byte(v))
				i += 3
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// DeviceFromMountpoint resolves mountpoint to its backing device node path,
// first via stat's major:minor through /sys/dev/block, falling back to a
// scan of the mounts table.
func (p *Probe) DeviceFromMountpoint(mountpoint string) (string, error) {
	var st unix.Stat_t
	if err := unix.Lstat(mountpoint, &st); err == nil {
		major := unix.Major(uint64(st.Dev))
		minor := unix.Minor(uint64(st.Dev))
		link := filepath.Join(p.Sysfs, "dev", "block", fmt.Sprintf("%d:%d", major, minor))
		if target, err := os.Readlink(link); err == nil {
			return filepath.Join(p.Devfs, filepath.Base(target)), nil
		}
	}

	entries, err := p.readMounts()
	if err != nil {
		return "", err
	}
	cleaned := filepath.Clean(mountpoint)
	for _, e := range entries {
		if filepath.Clean(e.mountpoint) == cleaned {
			return e.device, nil
		}
	}
	return "", fmt.Errorf("%w: %s", blserrors.ErrUnknownMount, mountpoint)
}
