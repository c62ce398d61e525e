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
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Zennara/cmlauncher-core/pkg/games"
	"github.com/Zennara/cmlauncher-core/pkg/helpers/command"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// SteamAppIDFile tells the Steamworks runtime which app a bare
// executable belongs to when it is started outside the vendor client.
const SteamAppIDFile = "steam_appid.txt"

// EnsureSteamAppID writes the app ID marker next to the executable so
// the Steamworks runtime initializes without a client-side launch.
func EnsureSteamAppID(fsys afero.Fs, gameDir, appID string) error {
	path := filepath.Join(gameDir, SteamAppIDFile)
	if exists, _ := afero.Exists(fsys, path); exists {
		return nil
	}
	if err := afero.WriteFile(fsys, path, []byte(appID), 0o640); err != nil {
		return fmt.Errorf("failed to write %s: %w", SteamAppIDFile, err)
	}
	return nil
}

// Launch starts an installation's executable. Managed installations run
// inside their Data sandbox: the user-profile environment variables are
// redirected there so saves and settings never leak between
// installations or into the real profile. The Steam pseudo-installation
// runs in place from the vendor client's directory.
func (s *Store) Launch(ctx context.Context, inst *Installation) error {
	game, ok := games.ByKey(inst.GameKey)
	if !ok {
		return fmt.Errorf("unknown game %q", inst.GameKey)
	}

	gameDir := inst.GamePath()
	if inst.IsSteam() {
		gameDir = s.steamPath(game)
		if gameDir == "" {
			return ErrNoVersionSource
		}
	}

	if err := EnsureSteamAppID(s.fs, gameDir, game.AppID); err != nil {
		log.Warn().Err(err).Msg("could not write steam app id marker")
	}

	exe := filepath.Join(gameDir, game.ExeName)
	if exists, _ := afero.Exists(s.fs, exe); !exists {
		return fmt.Errorf("executable not found: %s", exe)
	}

	opts := command.StartOptions{Dir: gameDir}
	if !inst.IsSteam() {
		if err := s.fs.MkdirAll(inst.DataPath(), 0o750); err != nil {
			return fmt.Errorf("failed to create data sandbox: %w", err)
		}
		opts.Env = sandboxEnv(os.Environ(), gameDir, inst.DataPath())
	}

	if err := s.exec.StartWithOptions(ctx, opts, exe); err != nil {
		return fmt.Errorf("failed to launch %s: %w", game.Name, err)
	}

	if err := s.MarkLaunched(inst); err != nil {
		log.Warn().Err(err).Str("name", inst.Name).Msg("could not record launch time")
	}
	return nil
}

// sandboxEnv rewrites the process environment so the game reads and
// writes user data inside the installation's Data directory. The game
// directory is prepended to PATH so bundled DLLs resolve first.
func sandboxEnv(base []string, gameDir, dataDir string) []string {
	redirect := map[string]string{
		"USERPROFILE":  dataDir,
		"APPDATA":      filepath.Join(dataDir, "AppData", "Roaming"),
		"LOCALAPPDATA": filepath.Join(dataDir, "AppData", "Local"),
		"HOME":         dataDir,
	}

	env := make([]string, 0, len(base))
	seen := make(map[string]bool, len(redirect))
	for _, kv := range base {
		key, _, ok := strings.Cut(kv, "=")
		if !ok {
			env = append(env, kv)
			continue
		}
		upper := strings.ToUpper(key)
		if val, hit := redirect[upper]; hit {
			env = append(env, key+"="+val)
			seen[upper] = true
			continue
		}
		if upper == "PATH" {
			env = append(env, key+"="+gameDir+string(os.PathListSeparator)+kv[len(key)+1:])
			continue
		}
		env = append(env, kv)
	}
	for key, val := range redirect {
		if !seen[key] {
			env = append(env, key+"="+val)
		}
	}
	return env
}
