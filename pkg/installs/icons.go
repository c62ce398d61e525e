// CM Launcher Core
// Copyright (c) 2026 The CM Launcher Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of CM Launcher Core.
//
// CM Launcher Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// CM Launcher Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with CM Launcher Core.  If not, see <http://www.gnu.org/licenses/>.

package installs

import (
	"math/rand/v2"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// AvailableIcons lists the icon files in the shared asset pool, sorted
// by name. Only common raster formats are considered.
func (s *Store) AvailableIcons() []string {
	if s.assetsDir == "" {
		return nil
	}
	entries, err := afero.ReadDir(s.fs, s.assetsDir)
	if err != nil {
		return nil
	}
	var icons []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(entryExt(entry.Name())) {
		case ".png", ".jpg", ".jpeg":
			icons = append(icons, entry.Name())
		}
	}
	sort.Strings(icons)
	return icons
}

// randomIcon picks an icon from the pool for new installations, empty
// when the pool is empty.
func (s *Store) randomIcon() string {
	icons := s.AvailableIcons()
	if len(icons) == 0 {
		return ""
	}
	return icons[rand.IntN(len(icons))]
}

func entryExt(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return ""
	}
	return name[idx:]
}
