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

package steam

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
)

// MetaFileName is the launcher's last-played marker inside a Steam
// game directory. The Steam pseudo-installation has no sidecar of its
// own, so this file is the only state the launcher keeps for it.
const MetaFileName = "cm_launcher_installation-info.json"

type metaFile struct {
	Timestamp string `json:"timestamp"`
}

// LastPlayed reads the launcher's last-played marker from a Steam game
// directory. Missing or malformed markers yield nil.
func LastPlayed(fsys afero.Fs, gameDir string) *time.Time {
	data, err := afero.ReadFile(fsys, filepath.Join(gameDir, MetaFileName))
	if err != nil {
		return nil
	}
	var meta metaFile
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil
	}
	ts, err := time.Parse(time.RFC3339, meta.Timestamp)
	if err != nil {
		return nil
	}
	return &ts
}

// MarkLaunched writes the last-played marker into a Steam game
// directory.
func MarkLaunched(fsys afero.Fs, gameDir string, now time.Time) error {
	data, err := json.MarshalIndent(metaFile{
		Timestamp: now.UTC().Format(time.RFC3339),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal steam meta: %w", err)
	}
	path := filepath.Join(gameDir, MetaFileName)
	if err := afero.WriteFile(fsys, path, data, 0o640); err != nil {
		return fmt.Errorf("failed to write steam meta: %w", err)
	}
	return nil
}
