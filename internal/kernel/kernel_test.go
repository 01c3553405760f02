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
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBootJSONRoundTrip(t *testing.T) {
	original := &BootJSON{Name: "linux-desktop", Version: "6.8.2-25.desktop", Variant: "desktop"}
	data, err := json.Marshal(original)
	require.NoError(t, err)

	parsed, err := ParseBootJSON(data)
	require.NoError(t, err)
	assert.Equal(t, original, parsed)
}

func TestCmdlineFiles(t *testing.T) {
	k := Kernel{Extras: []AuxiliaryFile{
		{Path: "a", Kind: Config},
		{Path: "b", Kind: Cmdline},
		{Path: "c", Kind: Cmdline},
	}}
	got := k.CmdlineFiles()
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].Path)
	assert.Equal(t, "c", got[1].Path)
}
