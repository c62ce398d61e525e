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

// Package config is the launcher's persistent settings store. An
// explicit *Instance is passed to every component that reads or writes
// settings; there is no package-level current config.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Zennara/cmlauncher-core/pkg/helpers/syncutil"
	"github.com/adrg/xdg"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
)

// Values is the on-disk settings layout. Fields absent from the file
// keep their defaults; unknown fields in the file are ignored.
type Values struct {
	Steam         Steam                   `toml:"steam,omitempty"`
	Games         map[string]GameSettings `toml:"games,omitempty"`
	DebugLogging  bool                    `toml:"debug_logging"`
	CloseOnLaunch bool                    `toml:"close_on_launch"`
}

// Steam holds the saved downloader credentials and the per-title
// ownership flags resolved by the last successful login. Ownership is a
// tri-state: nil means never verified.
type Steam struct {
	Username string `toml:"username,omitempty"`
	Password string `toml:"password,omitempty"`
	OwnsCMZ  *bool  `toml:"owns_cmz,omitempty"`
	OwnsCMW  *bool  `toml:"owns_cmw,omitempty"`
}

// GameSettings holds per-title user preferences.
type GameSettings struct {
	// SteamPath overrides the detected Steam install directory.
	SteamPath string `toml:"steam_path,omitempty"`
	// LastSelected remembers the installation name last chosen.
	LastSelected string `toml:"last_selected,omitempty"`
}

var baseDefaults = Values{}

// Instance is a concurrency-safe view over one settings file.
type Instance struct {
	cfgPath  string
	vals     Values
	defaults Values
	mu       syncutil.RWMutex
}

// RootDir returns the launcher's data directory, honoring the RootEnv
// override.
func RootDir() string {
	if dir := os.Getenv(RootEnv); dir != "" {
		return dir
	}
	return filepath.Join(xdg.Home, RootFolderName)
}

// NewInstance loads the settings file under rootDir, creating it with
// defaults if missing.
func NewInstance(rootDir string) (*Instance, error) {
	cfgPath := os.Getenv(CfgEnv)
	if cfgPath == "" {
		cfgPath = filepath.Join(rootDir, CfgFile)
	}

	cfg := Instance{
		cfgPath:  cfgPath,
		vals:     baseDefaults,
		defaults: baseDefaults,
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		log.Info().Msg("saving new default settings to disk")

		if err := os.MkdirAll(filepath.Dir(cfgPath), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create settings directory: %w", err)
		}
		if err := cfg.Save(); err != nil {
			return nil, err
		}
	}

	if err := cfg.Load(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Load re-reads the settings file from disk.
func (c *Instance) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfgPath == "" {
		return errors.New("settings path not set")
	}

	data, err := os.ReadFile(c.cfgPath)
	if err != nil {
		return fmt.Errorf("failed to read settings file: %w", err)
	}

	// Start with defaults, then unmarshal file values on top so fields
	// missing from the file retain their default values.
	newVals := c.defaults
	if err := toml.Unmarshal(data, &newVals); err != nil {
		return fmt.Errorf("failed to unmarshal settings: %w", err)
	}

	c.vals = newVals
	return nil
}

// Save writes the current settings to disk. Credentials live in this
// file, so it is written with owner-only permissions.
func (c *Instance) Save() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.cfgPath == "" {
		return errors.New("settings path not set")
	}

	data, err := toml.Marshal(&c.vals)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	if err := os.WriteFile(c.cfgPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}
	return nil
}

// Credentials returns the saved downloader username and password.
// Either may be empty if no login has been saved.
func (c *Instance) Credentials() (username, password string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Steam.Username, c.vals.Steam.Password
}

// SetCredentials stores a username and password for later probes and
// downloads.
func (c *Instance) SetCredentials(username, password string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Steam.Username = username
	c.vals.Steam.Password = password
}

// ClearCredentials removes the saved credentials and resets both
// ownership flags to unverified. Used when the downloader rejects a
// stored access token mid-operation.
func (c *Instance) ClearCredentials() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Steam.Username = ""
	c.vals.Steam.Password = ""
	c.vals.Steam.OwnsCMZ = nil
	c.vals.Steam.OwnsCMW = nil
}

// Ownership reports the persisted ownership flag for a title key, or
// nil if ownership has never been verified.
func (c *Instance) Ownership(gameKey string) *bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	switch gameKey {
	case "cmw":
		return c.vals.Steam.OwnsCMW
	default:
		return c.vals.Steam.OwnsCMZ
	}
}

// SetOwnership persists the ownership flags for both titles.
func (c *Instance) SetOwnership(ownsCMZ, ownsCMW bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Steam.OwnsCMZ = &ownsCMZ
	c.vals.Steam.OwnsCMW = &ownsCMW
}

// SteamPathOverride returns the user-saved Steam install directory for
// a title, or empty if none was saved.
func (c *Instance) SteamPathOverride(gameKey string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Games[gameKey].SteamPath
}

// SetSteamPathOverride saves a Steam install directory for a title.
func (c *Instance) SetSteamPathOverride(gameKey, path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setGame(gameKey, func(gs *GameSettings) { gs.SteamPath = path })
}

// LastSelected returns the installation name last chosen for a title.
func (c *Instance) LastSelected(gameKey string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Games[gameKey].LastSelected
}

// SetLastSelected remembers the installation name last chosen for a
// title.
func (c *Instance) SetLastSelected(gameKey, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setGame(gameKey, func(gs *GameSettings) { gs.LastSelected = name })
}

func (c *Instance) setGame(gameKey string, fn func(*GameSettings)) {
	if c.vals.Games == nil {
		c.vals.Games = make(map[string]GameSettings)
	}
	gs := c.vals.Games[gameKey]
	fn(&gs)
	c.vals.Games[gameKey] = gs
}

// DebugLogging reports whether debug-level logging is enabled.
func (c *Instance) DebugLogging() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.DebugLogging
}

// SetDebugLogging toggles debug-level logging.
func (c *Instance) SetDebugLogging(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.DebugLogging = enabled
}

// CloseOnLaunch reports whether the launcher should exit after starting
// a game.
func (c *Instance) CloseOnLaunch() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.CloseOnLaunch
}
