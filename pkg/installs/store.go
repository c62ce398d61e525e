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
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Zennara/cmlauncher-core/pkg/config"
	"github.com/Zennara/cmlauncher-core/pkg/games"
	"github.com/Zennara/cmlauncher-core/pkg/helpers"
	"github.com/Zennara/cmlauncher-core/pkg/helpers/command"
	"github.com/Zennara/cmlauncher-core/pkg/steam"
	"github.com/Zennara/cmlauncher-core/pkg/versions"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

var (
	// ErrSteamInstallation is returned when a mutating operation is
	// attempted on the immutable Steam pseudo-installation.
	ErrSteamInstallation = errors.New("the Steam installation cannot be modified")
	// ErrNoVersionSource means a version selector could not be
	// materialized into content (no cache, no download, no Steam copy).
	ErrNoVersionSource = errors.New("no content source for the selected version")
)

// VersionSource resolves a version selector to a local content
// directory, downloading on demand.
type VersionSource interface {
	EnsureVersion(
		ctx context.Context,
		game games.Game,
		selector string,
		sink versions.ProgressSink,
	) (string, error)
}

// FriendlyLookup maps a manifest ID to a human version label, empty
// when unknown.
type FriendlyLookup interface {
	FriendlyVersion(ctx context.Context, game games.Game, manifestID string) string
}

// Locator finds the vendor client's install directory for a Steam app
// ID, empty when not installed.
type Locator func(appID string) string

// StoreDeps are the collaborators a Store needs. Fs and Clock default
// to the real implementations when nil.
type StoreDeps struct {
	Fs       afero.Fs
	Cfg      *config.Instance
	Resolver VersionSource
	Catalog  FriendlyLookup
	Locate   Locator
	Clock    clockwork.Clock
	Exec     command.Executor
	RootDir  string
	// AssetsDir is the shared icon pool directory.
	AssetsDir string
}

// Store performs all installation CRUD for every title. All operations
// are synchronous and directory-based; sidecar files and installation
// directories are created and destroyed together.
type Store struct {
	fs        afero.Fs
	cfg       *config.Instance
	resolver  VersionSource
	catalog   FriendlyLookup
	locate    Locator
	clock     clockwork.Clock
	exec      command.Executor
	rootDir   string
	assetsDir string
}

// NewStore wires a Store from its dependencies.
func NewStore(deps StoreDeps) *Store {
	fsys := deps.Fs
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	clock := deps.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Store{
		fs:        fsys,
		cfg:       deps.Cfg,
		resolver:  deps.Resolver,
		catalog:   deps.Catalog,
		locate:    deps.Locate,
		clock:     clock,
		exec:      deps.Exec,
		rootDir:   deps.RootDir,
		assetsDir: deps.AssetsDir,
	}
}

// InstallationsDir returns the directory holding a title's named
// installations.
func (s *Store) InstallationsDir(game games.Game) string {
	return filepath.Join(s.rootDir, game.Folder, "installations")
}

// steamPath returns the vendor client's install directory for a title,
// preferring the user-saved override.
func (s *Store) steamPath(game games.Game) string {
	if s.cfg != nil {
		if override := s.cfg.SteamPathOverride(game.Key); override != "" {
			return override
		}
	}
	if s.locate == nil {
		return ""
	}
	return s.locate(game.AppID)
}

// uniqueName resolves a name collision by suffixing " (n)" until the
// candidate directory does not exist.
func (s *Store) uniqueName(dir, name string) string {
	final := name
	for i := 1; ; i++ {
		exists, _ := afero.DirExists(s.fs, filepath.Join(dir, final))
		if !exists {
			return final
		}
		final = fmt.Sprintf("%s (%d)", name, i)
	}
}

// Create makes a new installation, materializing content for the given
// version selector. Name collisions are resolved by suffixing. The
// replacement source is resolved before anything is written, so a
// failed resolve leaves no half-created directory behind.
func (s *Store) Create(
	ctx context.Context,
	game games.Game,
	name, selector, icon string,
	sink versions.ProgressSink,
) (Installation, error) {
	source, manifestID, friendly, err := s.resolveSource(ctx, game, selector, sink)
	if err != nil {
		return Installation{}, err
	}

	installsRoot := s.InstallationsDir(game)
	if err := s.fs.MkdirAll(installsRoot, 0o750); err != nil {
		return Installation{}, fmt.Errorf("failed to create installations directory: %w", err)
	}

	finalName := s.uniqueName(installsRoot, name)
	rootPath := filepath.Join(installsRoot, finalName)
	gameDir := filepath.Join(rootPath, GameDirName)

	if err := s.fs.MkdirAll(gameDir, 0o750); err != nil {
		return Installation{}, fmt.Errorf("failed to create installation: %w", err)
	}
	if err := s.fs.MkdirAll(filepath.Join(rootPath, DataDirName), 0o750); err != nil {
		s.removeTree(rootPath)
		return Installation{}, fmt.Errorf("failed to create installation: %w", err)
	}

	s.copyContent(source, gameDir, game)

	if icon == "" {
		icon = s.randomIcon()
	}

	err = writeSidecar(s.fs, rootPath, sidecar{
		Version:  friendly,
		Manifest: manifestID,
		Icon:     icon,
	})
	if err != nil {
		s.removeTree(rootPath)
		return Installation{}, err
	}

	return Installation{
		GameKey:  game.Key,
		Name:     finalName,
		Manifest: manifestID,
		Version:  friendly,
		Icon:     icon,
		RootPath: rootPath,
	}, nil
}

// resolveSource turns a version selector into a content directory plus
// the manifest ID and friendly label to record. For the Steam sentinel
// the vendor copy is the source and no manifest is recorded.
func (s *Store) resolveSource(
	ctx context.Context,
	game games.Game,
	selector string,
	sink versions.ProgressSink,
) (source, manifestID, friendly string, err error) {
	if strings.EqualFold(selector, SteamSelector) {
		source = s.steamPath(game)
		if source == "" {
			return "", "", "", ErrNoVersionSource
		}
		friendly = steam.ExeVersion(s.fs, filepath.Join(source, game.ExeName))
		if friendly == "" {
			friendly = SteamSelector
		}
		return source, "", friendly, nil
	}

	manifestID, _ = versions.ParseSelector(selector)
	source, err = s.resolver.EnsureVersion(ctx, game, selector, sink)
	if err != nil {
		return "", "", "", err
	}

	friendly = ""
	if s.catalog != nil {
		friendly = s.catalog.FriendlyVersion(ctx, game, manifestID)
	}
	if friendly == "" {
		friendly = manifestID
	}
	return source, manifestID, friendly, nil
}

// copyContent copies a version source into a Game directory,
// best-effort, excluding the downloader's metadata folder.
func (s *Store) copyContent(source, gameDir string, game games.Game) {
	outcome, err := helpers.CopyDir(s.fs, source, gameDir, helpers.CopyOptions{
		SkipNames: []string{versions.ToolMetaDir},
	})
	if err != nil {
		log.Warn().Err(err).Str("source", source).Msg("failed to copy version content")
		return
	}
	if outcome.Partial() {
		log.Warn().
			Strs("failed", outcome.Failed).
			Str("game", game.Key).
			Msg("some files could not be copied into the installation")
	}
}

// Rename moves an installation to a new name, suffixing on collision.
func (s *Store) Rename(inst Installation, newName string) (Installation, error) {
	if inst.IsSteam() {
		return Installation{}, ErrSteamInstallation
	}

	root := filepath.Dir(inst.RootPath)
	if strings.EqualFold(newName, inst.Name) {
		return inst, nil
	}

	finalName := s.uniqueName(root, newName)
	destPath := filepath.Join(root, finalName)
	if err := s.fs.Rename(inst.RootPath, destPath); err != nil {
		return Installation{}, fmt.Errorf("failed to rename installation: %w", err)
	}

	renamed := inst
	renamed.Name = finalName
	renamed.RootPath = destPath
	return renamed, nil
}

// Duplicate makes a full recursive copy of an installation under a
// " - Copy" name, suffixing on collision. The copy's last-played
// timestamp is cleared.
func (s *Store) Duplicate(inst Installation) (Installation, error) {
	if inst.IsSteam() {
		return Installation{}, ErrSteamInstallation
	}

	root := filepath.Dir(inst.RootPath)
	finalName := s.uniqueName(root, inst.Name+" - Copy")
	destPath := filepath.Join(root, finalName)

	outcome, err := helpers.CopyDir(s.fs, inst.RootPath, destPath, helpers.CopyOptions{})
	if err != nil {
		return Installation{}, fmt.Errorf("failed to duplicate installation: %w", err)
	}
	if outcome.Partial() {
		log.Warn().
			Strs("failed", outcome.Failed).
			Str("name", inst.Name).
			Msg("some files could not be duplicated")
	}

	if err := updateSidecar(s.fs, destPath, func(sc *sidecar) { sc.Timestamp = "" }); err != nil {
		log.Warn().Err(err).Msg("failed to reset duplicate timestamp")
	}

	dup := inst
	dup.Name = finalName
	dup.RootPath = destPath
	dup.LastPlayed = nil
	return dup, nil
}

// Delete removes an installation's entire directory tree. Deletion is
// best-effort by design: the returned error reports what happened but
// callers are free to ignore it and move on.
func (s *Store) Delete(inst Installation) error {
	if inst.IsSteam() {
		return ErrSteamInstallation
	}
	if err := s.fs.RemoveAll(inst.RootPath); err != nil {
		log.Warn().Err(err).Str("path", inst.RootPath).Msg("failed to fully delete installation")
		return fmt.Errorf("failed to delete installation: %w", err)
	}
	return nil
}

// UpdateVersion switches an installation to another version. The
// replacement source is fully resolved before the old Game tree is
// cleared, so a failed resolve never leaves the installation empty.
func (s *Store) UpdateVersion(
	ctx context.Context,
	inst *Installation,
	selector string,
	sink versions.ProgressSink,
) error {
	if inst.IsSteam() {
		return ErrSteamInstallation
	}

	source, manifestID, friendly, err := s.resolveSource(ctx, inst.gameOrZero(), selector, sink)
	if err != nil {
		return err
	}

	gameDir := inst.GamePath()
	if err := s.fs.RemoveAll(gameDir); err != nil {
		log.Warn().Err(err).Str("dir", gameDir).Msg("failed to fully clear old game content")
	}
	if err := s.fs.MkdirAll(gameDir, 0o750); err != nil {
		return fmt.Errorf("failed to recreate game directory: %w", err)
	}

	s.copyContent(source, gameDir, inst.gameOrZero())

	err = updateSidecar(s.fs, inst.RootPath, func(sc *sidecar) {
		sc.Manifest = manifestID
		sc.Version = friendly
	})
	if err != nil {
		return err
	}

	inst.Manifest = manifestID
	inst.Version = friendly
	return nil
}

// SetIcon updates an installation's icon reference.
func (s *Store) SetIcon(inst *Installation, icon string) error {
	if inst.IsSteam() {
		return ErrSteamInstallation
	}
	err := updateSidecar(s.fs, inst.RootPath, func(sc *sidecar) { sc.Icon = icon })
	if err != nil {
		return err
	}
	inst.Icon = icon
	return nil
}

// MarkLaunched records the launch time for most-recently-played
// ordering, both on disk and on the in-memory object.
func (s *Store) MarkLaunched(inst *Installation) error {
	now := s.clock.Now().UTC()

	if inst.IsSteam() {
		dir := s.steamPath(mustGame(inst.GameKey))
		if dir == "" {
			return nil
		}
		if err := steam.MarkLaunched(s.fs, dir, now); err != nil {
			return err //nolint:wrapcheck // already wrapped with context
		}
		inst.LastPlayed = &now
		return nil
	}

	err := updateSidecar(s.fs, inst.RootPath, func(sc *sidecar) {
		sc.Timestamp = now.Format(time.RFC3339)
	})
	if err != nil {
		return err
	}
	inst.LastPlayed = &now
	return nil
}

// List enumerates a title's installations, including the synthesized
// Steam pseudo-installation when the vendor client has the game
// installed. Results are ordered most recently played first, then by
// name; never-played entries sort last.
func (s *Store) List(ctx context.Context, game games.Game) []Installation {
	var list []Installation

	if dir := s.steamPath(game); dir != "" {
		list = append(list, s.steamPseudo(game, dir))
	}

	installsRoot := s.InstallationsDir(game)
	entries, err := afero.ReadDir(s.fs, installsRoot)
	if err == nil {
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			list = append(list, s.loadOne(ctx, game, filepath.Join(installsRoot, entry.Name()), entry.Name()))
		}
	}

	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		switch {
		case a.LastPlayed != nil && b.LastPlayed != nil:
			if !a.LastPlayed.Equal(*b.LastPlayed) {
				return a.LastPlayed.After(*b.LastPlayed)
			}
		case a.LastPlayed != nil:
			return true
		case b.LastPlayed != nil:
			return false
		}
		return strings.ToLower(a.Name) < strings.ToLower(b.Name)
	})

	return list
}

func (s *Store) loadOne(ctx context.Context, game games.Game, dir, name string) Installation {
	sc, _ := readSidecar(s.fs, dir)
	inst := Installation{
		GameKey:    game.Key,
		Name:       name,
		Manifest:   sc.Manifest,
		Icon:       sc.Icon,
		LastPlayed: sc.lastPlayed(),
		RootPath:   dir,
	}
	inst.Version = s.friendlyVersion(ctx, game, inst, sc)
	return inst
}

// friendlyVersion resolves a display label for an installation, in
// priority order: the sidecar's stored label, a catalog lookup by
// manifest ID, the version resource of the installed executable, the
// raw manifest ID.
func (s *Store) friendlyVersion(
	ctx context.Context,
	game games.Game,
	inst Installation,
	sc sidecar,
) string {
	if sc.Version != "" {
		return sc.Version
	}
	if sc.Manifest != "" && s.catalog != nil {
		if label := s.catalog.FriendlyVersion(ctx, game, sc.Manifest); label != "" {
			return label
		}
	}
	if v := steam.ExeVersion(s.fs, filepath.Join(inst.GamePath(), game.ExeName)); v != "" {
		return v
	}
	if sc.Manifest != "" {
		return sc.Manifest
	}
	return "Unknown"
}

func (s *Store) steamPseudo(game games.Game, dir string) Installation {
	version := steam.ExeVersion(s.fs, filepath.Join(dir, game.ExeName))
	if version == "" {
		version = SteamSelector
	}
	return Installation{
		GameKey:    game.Key,
		Name:       SteamInstallationName,
		Version:    version,
		LastPlayed: steam.LastPlayed(s.fs, dir),
	}
}

func (s *Store) removeTree(path string) {
	if err := s.fs.RemoveAll(path); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("failed to clean up directory")
	}
}

func (inst *Installation) gameOrZero() games.Game {
	g, _ := games.ByKey(inst.GameKey)
	return g
}

func mustGame(key string) games.Game {
	g, _ := games.ByKey(key)
	return g
}
