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

// Package osrelease parses the freedesktop.org os-release key=value format.
package osrelease

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// OsRelease holds the fields this module cares about from os-release.
// Unrecognised keys are ignored.
type OsRelease struct {
	ID         string
	Name       string
	VersionID  string
	PrettyName string
}

// SearchPaths returns the standard os-release lookup order under root,
// matching the original blsctl CLI's scan order (run, etc, usr/lib).
func SearchPaths(root string) []string {
	return []string{
		filepath.Join(root, "run", "os-release"),
		filepath.Join(root, "etc", "os-release"),
		filepath.Join(root, "usr", "lib", "os-release"),
	}
}

// Load scans SearchPaths(root) in order and parses the first file found.
func Load(root string) (*OsRelease, error) {
	for _, p := range SearchPaths(root) {
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		log.Trace().Str("path", p).Msg("reading os-release")
		return Parse(string(data))
	}
	return nil, fmt.Errorf("osrelease: no os-release file found under %s", root)
}

// Parse decodes os-release's shell-subset key=value text into an
// OsRelease. Required keys: ID, NAME, VERSION_ID; PRETTY_NAME is optional.
func Parse(text string) (*OsRelease, error) {
	rel := &OsRelease{}

	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = unquote(strings.TrimSpace(value))

		switch key {
		case "ID":
			rel.ID = value
		case "NAME":
			rel.Name = value
		case "VERSION_ID":
			rel.VersionID = value
		case "PRETTY_NAME":
			rel.PrettyName = value
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("osrelease: scan: %w", err)
	}

	if rel.ID == "" || rel.Name == "" || rel.VersionID == "" {
		return nil, fmt.Errorf("osrelease: missing required key (ID/NAME/VERSION_ID)")
	}

	return rel, nil
}

// unquote strips a single layer of matching single or double quotes, the
// way a POSIX shell would when sourcing os-release.
func unquote(v string) string {
	if len(v) >= 2 {
		if (v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\'') {
			if unq, err := strconv.Unquote(v); err == nil {
				return unq
			}
			return v[1 : len(v)-1]
		}
	}
	return v
}
