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

package systemdboot

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
)

// LoaderConf is a parsed loader/loader.conf: the handful of directives this
// module cares about, plus every other non-blank line preserved verbatim so
// `set-timeout`/`set-kernel` never clobber an operator's other settings.
type LoaderConf struct {
	Default string
	Timeout *int
	Extra   []string
}

// ParseLoaderConf reads a loader.conf's `default` and `timeout` directives,
// keeping every other non-blank line verbatim in Extra. Blank lines are
// dropped.
func ParseLoaderConf(data []byte) LoaderConf {
	var lc LoaderConf
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	for scanner.Scan() {
		line := scanner.Text()
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "default":
			lc.Default = strings.Trim(strings.TrimPrefix(line, "default"), " \t\"")
		case "timeout":
			if len(fields) >= 2 {
				if n, err := strconv.Atoi(fields[1]); err == nil {
					lc.Timeout = &n
				}
			}
		default:
			lc.Extra = append(lc.Extra, line)
		}
	}
	return lc
}

// Render writes lc back out in the conventional directive order:
// timeout, default, then everything else.
func (lc LoaderConf) Render() string {
	var b strings.Builder
	if lc.Timeout != nil {
		fmt.Fprintf(&b, "timeout %d\n", *lc.Timeout)
	}
	if lc.Default != "" {
		fmt.Fprintf(&b, "default %q\n", lc.Default)
	}
	for _, line := range lc.Extra {
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

// WithTimeout returns a copy of lc with Timeout set to seconds.
func (lc LoaderConf) WithTimeout(seconds int) LoaderConf {
	lc.Timeout = &seconds
	return lc
}

// WithDefault returns a copy of lc with Default pinned to id.
func (lc LoaderConf) WithDefault(id string) LoaderConf {
	lc.Default = id
	return lc
}
