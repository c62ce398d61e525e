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

// Package games defines the fixed set of titles the launcher manages.
package games

import "strings"

// Game describes one supported title and its Steam identifiers.
type Game struct {
	// Key is the short identifier used in config files and CLI flags.
	Key string
	// Name is the user-facing title name.
	Name string
	// Folder is the directory name under the launcher root.
	Folder string
	// AppID is the Steam application ID.
	AppID string
	// DepotID is the content depot queried for ownership and downloads.
	DepotID string
	// ExeName is the game's executable filename.
	ExeName string
	// CatalogURL points at the remote version-to-manifest catalog.
	// Empty means no catalog is published for this title.
	CatalogURL string
}

const (
	CMZKey = "cmz"
	CMWKey = "cmw"
)

var (
	// CMZ is CastleMiner Z.
	CMZ = Game{
		Key:     CMZKey,
		Name:    "CastleMiner Z",
		Folder:  "cmz",
		AppID:   "253430",
		DepotID: "253431",
		ExeName: "CastleMinerZ.exe",
		CatalogURL: "https://raw.githubusercontent.com/Zennara/CMLauncher" +
			"/refs/heads/main/data/cmz-manifests.json",
	}

	// CMW is CastleMiner Warfare. No version catalog is published for it.
	CMW = Game{
		Key:     CMWKey,
		Name:    "CastleMiner Warfare",
		Folder:  "cmw",
		AppID:   "675210",
		DepotID: "675211",
		ExeName: "CastleMinerWarfare.exe",
	}
)

// All returns every supported title in probe order. Ownership checks
// run against titles in exactly this order.
func All() []Game {
	return []Game{CMZ, CMW}
}

// ByKey looks up a title by its key, case-insensitively.
func ByKey(key string) (Game, bool) {
	for _, g := range All() {
		if strings.EqualFold(g.Key, key) {
			return g, true
		}
	}
	return Game{}, false
}
