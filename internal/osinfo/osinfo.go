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

// Package osinfo parses os-info.json, the richer identity source used by
// modern distributions in place of (or alongside) os-release.
package osinfo

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// FormerIdentity is a prior OS ID value retained so that rename migrations
// can locate and remove old boot artefacts.
type FormerIdentity struct {
	ID string `json:"id"`
}

// Identity describes the current OS identity plus its history.
type Identity struct {
	ID               string           `json:"id"`
	Name             string           `json:"name"`
	Display          string           `json:"display"`
	FormerIdentities []FormerIdentity `json:"former_identities"`
}

// Metadata wraps Identity the way os-info.json nests it.
type Metadata struct {
	Identity Identity `json:"identity"`
}

// OsInfo is the top-level os-info.json document.
type OsInfo struct {
	Metadata Metadata `json:"metadata"`
}

// SearchPaths returns the standard os-info.json lookup order under root.
func SearchPaths(root string) []string {
	return []string{
		filepath.Join(root, "run", "os-info.json"),
		filepath.Join(root, "etc", "os-info.json"),
		filepath.Join(root, "usr", "lib", "os-info.json"),
	}
}

// Load scans SearchPaths(root) in order and parses the first file found.
func Load(root string) (*OsInfo, error) {
	for _, p := range SearchPaths(root) {
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		log.Trace().Str("path", p).Msg("reading os-info.json")
		var info OsInfo
		if err := json.Unmarshal(data, &info); err != nil {
			return nil, fmt.Errorf("osinfo: decode %s: %w", p, err)
		}
		if info.Metadata.Identity.ID == "" {
			return nil, fmt.Errorf("osinfo: %s missing metadata.identity.id", p)
		}
		return &info, nil
	}
	return nil, fmt.Errorf("osinfo: no os-info.json found under %s", root)
}
