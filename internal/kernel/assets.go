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

package kernel

import (
	"path/filepath"
	"sort"
)

// DiscoverBootAssets globs root/usr/lib*/systemd/boot/efi/*.efi for
// candidate bootloader binaries, so callers don't need to pass them in by
// hand. Returns an empty slice, not an error, when nothing matches.
func DiscoverBootAssets(root string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(root, "usr", "lib*", "systemd", "boot", "efi", "*.efi"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}
