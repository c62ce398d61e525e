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

// Package steam locates games installed through the vendor Steam
// client. It is a read-only collaborator: the launcher never mutates
// Steam's own library.
package steam

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/andygrunwald/vdf"
	"github.com/rs/zerolog/log"
)

// RootEnv overrides Steam root discovery when set.
const RootEnv = "CMLAUNCHER_STEAM_ROOT"

// RootCandidates returns possible Steam root directories for the
// current platform, most likely first.
func RootCandidates() []string {
	if root := os.Getenv(RootEnv); root != "" {
		return []string{root}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}

	switch runtime.GOOS {
	case "windows":
		candidates := []string{}
		if pf := os.Getenv("ProgramFiles(x86)"); pf != "" {
			candidates = append(candidates, filepath.Join(pf, "Steam"))
		}
		if pf := os.Getenv("ProgramFiles"); pf != "" {
			candidates = append(candidates, filepath.Join(pf, "Steam"))
		}
		return candidates
	case "darwin":
		return []string{filepath.Join(home, "Library", "Application Support", "Steam")}
	default:
		return []string{
			filepath.Join(home, ".steam", "steam"),
			filepath.Join(home, ".local", "share", "Steam"),
			filepath.Join(home, ".var", "app", "com.valvesoftware.Steam", ".local", "share", "Steam"),
		}
	}
}

// FindGamePath returns the install directory for a Steam app ID, or
// empty if the vendor client does not have it installed. All parse and
// I/O failures degrade to "not found".
func FindGamePath(appID string) string {
	for _, root := range RootCandidates() {
		steamApps := findSteamAppsDir(root)
		if steamApps == "" {
			continue
		}
		for _, lib := range libraryPaths(steamApps) {
			if dir := appInstallDir(lib, appID); dir != "" {
				return dir
			}
		}
	}
	return ""
}

// findSteamAppsDir handles the casing variants of the steamapps
// directory name.
func findSteamAppsDir(root string) string {
	for _, name := range []string{"steamapps", "SteamApps", "steamApps"} {
		dir := filepath.Join(root, name)
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir
		}
	}
	return ""
}

// libraryPaths parses libraryfolders.vdf and returns every library's
// steamapps directory, including the root library itself.
func libraryPaths(steamApps string) []string {
	paths := []string{steamApps}

	f, err := os.Open(filepath.Join(steamApps, "libraryfolders.vdf"))
	if err != nil {
		log.Debug().Err(err).Msg("no libraryfolders.vdf")
		return paths
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("error closing libraryfolders.vdf")
		}
	}()

	p := vdf.NewParser(f)
	m, err := p.Parse()
	if err != nil {
		log.Warn().Err(err).Msg("error parsing libraryfolders.vdf")
		return paths
	}

	lfs, ok := anyKey(m, "libraryfolders", "LibraryFolders")
	if !ok {
		return paths
	}

	for _, v := range lfs {
		switch lib := v.(type) {
		case map[string]any:
			if path, ok := lib["path"].(string); ok && path != "" {
				if apps := findSteamAppsDir(path); apps != "" {
					paths = append(paths, apps)
				}
			}
		case string:
			// Pre-2021 format: the value itself is the library path.
			if apps := findSteamAppsDir(lib); apps != "" {
				paths = append(paths, apps)
			}
		}
	}
	return paths
}

func anyKey(m map[string]any, keys ...string) (map[string]any, bool) {
	for _, k := range keys {
		if v, ok := m[k].(map[string]any); ok {
			return v, true
		}
	}
	return nil, false
}

// appInstallDir reads appmanifest_<appID>.acf in one library and
// returns the game's content directory if it exists on disk.
func appInstallDir(steamApps, appID string) string {
	manifestPath := filepath.Join(steamApps, fmt.Sprintf("appmanifest_%s.acf", appID))

	f, err := os.Open(manifestPath)
	if err != nil {
		return ""
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("error closing app manifest")
		}
	}()

	p := vdf.NewParser(f)
	m, err := p.Parse()
	if err != nil {
		log.Warn().Err(err).Str("appID", appID).Msg("failed to parse app manifest")
		return ""
	}

	appState, ok := anyKey(m, "AppState", "appstate")
	if !ok {
		return ""
	}
	installDir, ok := appState["installdir"].(string)
	if !ok || installDir == "" {
		return ""
	}

	dir := filepath.Join(steamApps, "common", installDir)
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		return dir
	}
	return ""
}
