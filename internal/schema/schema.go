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

// Package schema classifies a system root's kernel naming convention and
// exposes the accessors the bootloader layer needs to build paths.
package schema

import (
	"strings"

	"github.com/AerynOS/blsforme/internal/osinfo"
	"github.com/AerynOS/blsforme/internal/osrelease"
)

// Schema is a closed tagged union: Legacy, Blsforme, or OsInfo.
type Schema interface {
	// OsName is the human-facing OS name.
	OsName() string

	// OsNamespace is the directory name used under {boot_root}/EFI/ for
	// this OS's artefacts.
	OsNamespace() string

	// OsID is the `ID` field in os-release, or os-info's identity id.
	OsID() string

	// OsDisplayName is PRETTY_NAME / identity.display, if present.
	OsDisplayName() (string, bool)

	isSchema()
}

// Legacy is the clr-boot-manager-compatible schema, used by Solus 4 and
// Clear Linux OS installations under a fixed reverse-DNS namespace.
type Legacy struct {
	OsRelease *osrelease.OsRelease
	Namespace string // "com.solus-project" or "org.clearlinux"
}

func (l Legacy) OsName() string      { return l.OsRelease.Name }
func (l Legacy) OsNamespace() string { return l.Namespace }
func (l Legacy) OsID() string        { return l.OsRelease.ID }
func (l Legacy) OsDisplayName() (string, bool) {
	return l.OsRelease.PrettyName, l.OsRelease.PrettyName != ""
}
func (Legacy) isSchema() {}

// Blsforme is the modern schema, using `ID=` from os-release as the
// namespace.
type Blsforme struct {
	OsRelease *osrelease.OsRelease
}

func (b Blsforme) OsName() string      { return b.OsRelease.Name }
func (b Blsforme) OsNamespace() string { return b.OsRelease.ID }
func (b Blsforme) OsID() string        { return b.OsRelease.ID }
func (b Blsforme) OsDisplayName() (string, bool) {
	return b.OsRelease.PrettyName, b.OsRelease.PrettyName != ""
}
func (Blsforme) isSchema() {}

// OsInfo is the richest schema, sourced from os-info.json, carrying a list
// of former identities used during cleanup to locate legacy artefacts.
type OsInfo struct {
	Info *osinfo.OsInfo
}

func (o OsInfo) OsName() string      { return o.Info.Metadata.Identity.Name }
func (o OsInfo) OsNamespace() string { return o.Info.Metadata.Identity.ID }
func (o OsInfo) OsID() string        { return o.Info.Metadata.Identity.ID }
func (o OsInfo) OsDisplayName() (string, bool) {
	return o.Info.Metadata.Identity.Display, o.Info.Metadata.Identity.Display != ""
}
func (OsInfo) isSchema() {}

// FormerIdentities returns the prior OS IDs this schema knows about (only
// non-empty for OsInfo), used by cleanup to match legacy artefacts.
func FormerIdentities(s Schema) []string {
	info, ok := s.(OsInfo)
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(info.Info.Metadata.Identity.FormerIdentities))
	for _, f := range info.Info.Metadata.Identity.FormerIdentities {
		ids = append(ids, f.ID)
	}
	return ids
}

// FromOsRelease classifies a schema from os-release alone, matching the
// rule from blsctl's query_schema: Solus 4.x and Clear Linux OS use the
// Legacy clr-boot-manager namespace; everything else is Blsforme.
func FromOsRelease(rel *osrelease.OsRelease) Schema {
	switch rel.ID {
	case "solus":
		if strings.HasPrefix(rel.VersionID, "4.") {
			return Legacy{OsRelease: rel, Namespace: "com.solus-project"}
		}
		return Blsforme{OsRelease: rel}
	case "clear-linux-os":
		return Legacy{OsRelease: rel, Namespace: "org.clearlinux"}
	default:
		return Blsforme{OsRelease: rel}
	}
}

// Classify determines the Schema to use for a system root: it prefers
// os-info.json when present, falling back to os-release classification.
func Classify(root string) (Schema, error) {
	if info, err := osinfo.Load(root); err == nil {
		return OsInfo{Info: info}, nil
	}

	rel, err := osrelease.Load(root)
	if err != nil {
		return nil, err
	}
	return FromOsRelease(rel), nil
}
