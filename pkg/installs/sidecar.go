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
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// SidecarFile is the metadata file written inside every installation
// directory.
const SidecarFile = "installation-info.json"

// sidecar is the on-disk sidecar layout. Unknown fields in the file
// are ignored on read; absent fields stay empty.
type sidecar struct {
	Version   string `json:"version,omitempty"`
	Manifest  string `json:"manifest,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Icon      string `json:"icon,omitempty"`
}

// lastPlayed parses the sidecar timestamp. Malformed or absent
// timestamps yield nil, never an error.
func (s sidecar) lastPlayed() *time.Time {
	if s.Timestamp == "" {
		return nil
	}
	ts, err := time.Parse(time.RFC3339, s.Timestamp)
	if err != nil {
		return nil
	}
	return &ts
}

// readSidecar best-effort-parses an installation's sidecar. A missing
// or malformed file is "no metadata", not an error.
func readSidecar(fsys afero.Fs, dir string) (sidecar, bool) {
	path := filepath.Join(dir, SidecarFile)
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return sidecar{}, false
	}
	var sc sidecar
	if err := json.Unmarshal(data, &sc); err != nil {
		log.Debug().Err(err).Str("file", path).Msg("ignoring malformed sidecar")
		return sidecar{}, false
	}
	return sc, true
}

func writeSidecar(fsys afero.Fs, dir string, sc sidecar) error {
	data, err := json.MarshalIndent(sc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal sidecar: %w", err)
	}
	path := filepath.Join(dir, SidecarFile)
	if err := afero.WriteFile(fsys, path, data, 0o640); err != nil {
		return fmt.Errorf("failed to write sidecar: %w", err)
	}
	return nil
}

// updateSidecar applies fn to an installation's sidecar, tolerating a
// missing one, and writes the result back.
func updateSidecar(fsys afero.Fs, dir string, fn func(*sidecar)) error {
	sc, _ := readSidecar(fsys, dir)
	fn(&sc)
	return writeSidecar(fsys, dir, sc)
}
