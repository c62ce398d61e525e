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

// Package installs manages the on-disk set of named installations per
// game: directory trees with a Game content subtree, a Data sandbox
// subtree, and a JSON sidecar holding metadata.
package installs

import (
	"path/filepath"
	"time"
)

const (
	// GameDirName holds the materialized build content.
	GameDirName = "Game"
	// DataDirName is the isolated per-installation user-data sandbox
	// for the launched process.
	DataDirName = "Data"
	// SteamInstallationName is the display name of the synthesized
	// pseudo-installation backed by the vendor client's own copy.
	SteamInstallationName = "Steam Installation"
	// SteamSelector is the version selector meaning "use the vendor
	// client's copy" instead of a downloaded manifest.
	SteamSelector = "Steam Version"
)

// Installation is one named, user-visible instance of a game build.
// The store exclusively owns RootPath once created. The Steam
// pseudo-installation has no RootPath and no sidecar; it is synthesized
// at listing time and cannot be edited, duplicated or deleted.
type Installation struct {
	LastPlayed *time.Time
	GameKey    string
	Name       string
	// Manifest is the resolved content version, empty for the Steam
	// pseudo-installation.
	Manifest string
	// Version is the friendly display string.
	Version string
	// Icon is an opaque reference into the shared icon asset pool.
	Icon     string
	RootPath string
}

// IsSteam reports whether this is the synthesized pseudo-installation.
func (i Installation) IsSteam() bool {
	return i.RootPath == ""
}

// GamePath returns the build content directory.
func (i Installation) GamePath() string {
	return filepath.Join(i.RootPath, GameDirName)
}

// DataPath returns the per-installation user-data sandbox.
func (i Installation) DataPath() string {
	return filepath.Join(i.RootPath, DataDirName)
}
