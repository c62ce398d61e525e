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

// Package versions maps manifest identifiers to ready-to-use local
// cache directories, downloading through the external tool on demand.
package versions

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Zennara/cmlauncher-core/pkg/depot"
	"github.com/Zennara/cmlauncher-core/pkg/games"
	"github.com/Zennara/cmlauncher-core/pkg/helpers"
	"github.com/Zennara/cmlauncher-core/pkg/helpers/command"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

var (
	// ErrToolMissing means the downloader executable could not be
	// located. A soft failure: nothing was changed on disk.
	ErrToolMissing = errors.New("downloader tool not found")
	// ErrAccessDenied means the stored access token was rejected
	// mid-download; credentials have been invalidated and the caller
	// must re-authenticate.
	ErrAccessDenied = errors.New("access token rejected, login required")
	// ErrDownloadFailed means the tool ran but produced no usable
	// content.
	ErrDownloadFailed = errors.New("download produced no content")
)

// ToolMetaDir is the dot-prefixed metadata directory the downloader
// writes next to game content. It is never part of a build and is
// excluded from every copy out of a download directory.
const ToolMetaDir = ".DepotDownloader"

// ParseSelector splits a manifestId|branch selector. A bare manifest
// ID gets the default branch.
func ParseSelector(selector string) (manifestID, branch string) {
	parts := strings.SplitN(selector, "|", 2)
	manifestID = parts[0]
	branch = depot.DefaultBranch
	if len(parts) == 2 && parts[1] != "" {
		branch = parts[1]
	}
	return manifestID, branch
}

// Resolver ensures cache directories for exact manifests exist. The
// cache invariant is intentionally weak: directory existence is the
// sole truth of "already downloaded", with no checksum or
// manifest-match verification of its contents.
type Resolver struct {
	fs             afero.Fs
	exec           command.Executor
	rootDir        string
	creds          func() depot.Credentials
	onAccessDenied func()
	findTool       func() (string, bool)
}

// NewResolver wires a resolver. creds supplies the stored downloader
// credentials at call time; onAccessDenied fires when a download
// reveals a rejected access token (nil is allowed).
func NewResolver(
	fsys afero.Fs,
	exec command.Executor,
	rootDir string,
	creds func() depot.Credentials,
	onAccessDenied func(),
) *Resolver {
	return &Resolver{
		fs:             fsys,
		exec:           exec,
		rootDir:        rootDir,
		creds:          creds,
		onAccessDenied: onAccessDenied,
		findTool:       depot.FindTool,
	}
}

// SetToolLocator overrides downloader tool discovery. Used by tests.
func (r *Resolver) SetToolLocator(findTool func() (string, bool)) {
	r.findTool = findTool
}

// VersionsDir returns the version cache root for a title.
func (r *Resolver) VersionsDir(game games.Game) string {
	return filepath.Join(r.rootDir, game.Folder, "versions")
}

// CachedVersions lists the manifest IDs already present in a title's
// cache, sorted.
func (r *Resolver) CachedVersions(game games.Game) []string {
	entries, err := afero.ReadDir(r.fs, r.VersionsDir(game))
	if err != nil {
		return nil
	}
	var ids []string
	for _, entry := range entries {
		if entry.IsDir() && !strings.HasPrefix(entry.Name(), ".") {
			ids = append(ids, entry.Name())
		}
	}
	sort.Strings(ids)
	return ids
}

// EnsureVersion maps a manifestId|branch selector to a local cache
// directory, downloading if absent. If the directory already exists it
// is returned immediately with no re-verification or re-download.
func (r *Resolver) EnsureVersion(
	ctx context.Context,
	game games.Game,
	selector string,
	sink ProgressSink,
) (string, error) {
	if sink == nil {
		sink = NopSink{}
	}

	manifestID, branch := ParseSelector(selector)
	target := filepath.Join(r.VersionsDir(game), manifestID)

	if exists, _ := afero.DirExists(r.fs, target); exists {
		log.Debug().Str("manifest", manifestID).Msg("version already cached")
		return target, nil
	}

	toolPath, ok := r.findTool()
	if !ok {
		log.Warn().Str("manifest", manifestID).Msg("downloader tool not found, cannot fetch version")
		return "", ErrToolMissing
	}

	staging := filepath.Join(r.VersionsDir(game), ".staging-"+uuid.NewString())
	if err := r.fs.MkdirAll(staging, 0o750); err != nil {
		return "", fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer r.cleanupStaging(staging)

	sink.Status(fmt.Sprintf("Downloading %s manifest %s...", game.Name, manifestID))

	accessDenied := false
	opts := command.StreamOptions{
		Dir:        filepath.Dir(toolPath),
		HideWindow: true,
		OnLine: func(line string) {
			sink.Log(line)
			if pct, found := depot.ExtractPercent(line); found {
				sink.Progress(pct)
			}
			if !accessDenied && depot.ContainsAccessDenied(line) {
				accessDenied = true
			}
		},
	}

	args := depot.DownloadArgs(game, r.creds(), manifestID, branch, staging)
	runErr := r.exec.Stream(ctx, opts, toolPath, args...)

	if accessDenied {
		log.Warn().Str("manifest", manifestID).Msg("access token rejected during download")
		if r.onAccessDenied != nil {
			r.onAccessDenied()
		}
		return "", ErrAccessDenied
	}
	if runErr != nil {
		log.Error().Err(runErr).Str("manifest", manifestID).Msg("download process failed")
		return "", ErrDownloadFailed
	}
	if empty, _ := r.stagedEmpty(staging); empty {
		log.Error().Str("manifest", manifestID).Msg("download finished but wrote no content")
		return "", ErrDownloadFailed
	}

	sink.Status("Finalizing download...")

	// The tool's own metadata folder never enters the cache.
	outcome, err := helpers.CopyDir(r.fs, staging, target, helpers.CopyOptions{
		SkipNames: []string{ToolMetaDir},
	})
	if err != nil {
		return "", fmt.Errorf("failed to move download into cache: %w", err)
	}
	if outcome.Partial() {
		log.Warn().
			Strs("failed", outcome.Failed).
			Str("manifest", manifestID).
			Msg("some downloaded files could not be moved into the cache")
	}

	sink.Status("Download complete")
	sink.Progress(100)
	return target, nil
}

// stagedEmpty reports whether a staging dir holds no game content
// (ignoring the tool's metadata folder).
func (r *Resolver) stagedEmpty(staging string) (bool, error) {
	entries, err := afero.ReadDir(r.fs, staging)
	if err != nil {
		return true, err //nolint:wrapcheck // internal helper
	}
	for _, entry := range entries {
		if entry.Name() != ToolMetaDir {
			return false, nil
		}
	}
	return true, nil
}

func (r *Resolver) cleanupStaging(staging string) {
	if err := r.fs.RemoveAll(staging); err != nil {
		log.Warn().Err(err).Str("dir", staging).Msg("failed to remove staging directory")
	}
}
