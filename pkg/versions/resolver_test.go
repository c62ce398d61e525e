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

package versions

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/Zennara/cmlauncher-core/pkg/depot"
	"github.com/Zennara/cmlauncher-core/pkg/games"
	"github.com/Zennara/cmlauncher-core/pkg/helpers/command"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// downloadExecutor simulates the external tool: it emits scripted
// lines and optionally populates the -dir target on fs.
type downloadExecutor struct {
	fs       afero.Fs
	lines    []string
	exitErr  error
	populate map[string]string
	calls    int
}

func (d *downloadExecutor) Run(_ context.Context, _ string, _ ...string) error {
	return nil
}

func (d *downloadExecutor) StartWithOptions(
	_ context.Context, _ command.StartOptions, _ string, _ ...string,
) error {
	return nil
}

func (d *downloadExecutor) Stream(
	_ context.Context, opts command.StreamOptions, _ string, args ...string,
) error {
	d.calls++
	for _, line := range d.lines {
		if opts.OnLine != nil {
			opts.OnLine(line)
		}
	}
	if dir := dirArg(args); dir != "" && d.fs != nil {
		for name, content := range d.populate {
			path := filepath.Join(dir, name)
			_ = d.fs.MkdirAll(filepath.Dir(path), 0o750)
			_ = afero.WriteFile(d.fs, path, []byte(content), 0o640)
		}
	}
	return d.exitErr
}

func dirArg(args []string) string {
	for i, a := range args {
		if a == "-dir" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func newTestResolver(t *testing.T, exec *downloadExecutor) (*Resolver, afero.Fs, string) {
	t.Helper()
	fsys := afero.NewMemMapFs()
	exec.fs = fsys
	root := "/data"
	r := NewResolver(fsys, exec, root, func() depot.Credentials {
		return depot.Credentials{Username: "user", Password: "pw"}
	}, nil)
	r.SetToolLocator(func() (string, bool) { return "/opt/tools/DepotDownloader", true })
	return r, fsys, root
}

func TestParseSelector(t *testing.T) {
	t.Parallel()

	tests := []struct {
		selector     string
		wantManifest string
		wantBranch   string
	}{
		{"12345|public", "12345", "public"},
		{"12345|beta", "12345", "beta"},
		{"12345", "12345", "public"},
		{"12345|", "12345", "public"},
	}
	for _, tt := range tests {
		manifest, branch := ParseSelector(tt.selector)
		assert.Equal(t, tt.wantManifest, manifest, "selector: %q", tt.selector)
		assert.Equal(t, tt.wantBranch, branch, "selector: %q", tt.selector)
	}
}

func TestEnsureVersionCacheHit(t *testing.T) {
	t.Parallel()

	exec := &downloadExecutor{}
	r, fsys, root := newTestResolver(t, exec)

	cached := filepath.Join(root, "cmz", "versions", "12345")
	require.NoError(t, fsys.MkdirAll(cached, 0o750))

	dir, err := r.EnsureVersion(context.Background(), games.CMZ, "12345|public", nil)
	require.NoError(t, err)
	assert.Equal(t, cached, dir)
	assert.Zero(t, exec.calls, "a cache hit must not run the tool")
}

func TestEnsureVersionDownloads(t *testing.T) {
	t.Parallel()

	exec := &downloadExecutor{
		lines: []string{
			" 50.00% CastleMinerZ.exe",
			"100.00% done",
		},
		populate: map[string]string{
			"CastleMinerZ.exe":            "binary",
			ToolMetaDir + "/manifest.bin": "meta",
		},
	}
	r, fsys, root := newTestResolver(t, exec)

	sink := &recordingSink{}
	dir, err := r.EnsureVersion(context.Background(), games.CMZ, "12345|public", sink)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "cmz", "versions", "12345"), dir)

	exists, _ := afero.Exists(fsys, filepath.Join(dir, "CastleMinerZ.exe"))
	assert.True(t, exists)

	// The tool's metadata folder never enters the cache.
	metaExists, _ := afero.DirExists(fsys, filepath.Join(dir, ToolMetaDir))
	assert.False(t, metaExists)

	assert.Contains(t, sink.progress, 50.0)
	assert.Contains(t, sink.progress, 100.0)

	// No staging leftovers.
	entries, err := afero.ReadDir(fsys, filepath.Join(root, "cmz", "versions"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "12345", entries[0].Name())
}

func TestEnsureVersionIdempotent(t *testing.T) {
	t.Parallel()

	exec := &downloadExecutor{
		populate: map[string]string{"CastleMinerZ.exe": "binary"},
	}
	r, _, _ := newTestResolver(t, exec)

	_, err := r.EnsureVersion(context.Background(), games.CMZ, "12345", nil)
	require.NoError(t, err)
	_, err = r.EnsureVersion(context.Background(), games.CMZ, "12345", nil)
	require.NoError(t, err)

	assert.Equal(t, 1, exec.calls, "the second call must hit the cache")
}

func TestEnsureVersionToolMissing(t *testing.T) {
	t.Parallel()

	exec := &downloadExecutor{}
	r, _, _ := newTestResolver(t, exec)
	r.SetToolLocator(func() (string, bool) { return "", false })

	_, err := r.EnsureVersion(context.Background(), games.CMZ, "12345", nil)
	assert.ErrorIs(t, err, ErrToolMissing)
	assert.Zero(t, exec.calls)
}

func TestEnsureVersionAccessDenied(t *testing.T) {
	t.Parallel()

	exec := &downloadExecutor{
		lines: []string{"Encountered error: access token was rejected."},
	}
	fsys := afero.NewMemMapFs()
	exec.fs = fsys
	invalidated := false
	r := NewResolver(fsys, exec, "/data", func() depot.Credentials {
		return depot.Credentials{Username: "user", Password: "pw"}
	}, func() { invalidated = true })
	r.SetToolLocator(func() (string, bool) { return "/opt/tools/DepotDownloader", true })

	_, err := r.EnsureVersion(context.Background(), games.CMZ, "12345", nil)
	assert.ErrorIs(t, err, ErrAccessDenied)
	assert.True(t, invalidated, "access denial must invalidate credentials")

	// Nothing cached after a denied download.
	exists, _ := afero.DirExists(fsys, "/data/cmz/versions/12345")
	assert.False(t, exists)
}

func TestEnsureVersionEmptyDownloadFails(t *testing.T) {
	t.Parallel()

	exec := &downloadExecutor{
		populate: map[string]string{ToolMetaDir + "/manifest.bin": "meta"},
	}
	r, _, _ := newTestResolver(t, exec)

	_, err := r.EnsureVersion(context.Background(), games.CMZ, "12345", nil)
	assert.ErrorIs(t, err, ErrDownloadFailed)
}

func TestEnsureVersionProcessFailure(t *testing.T) {
	t.Parallel()

	exec := &downloadExecutor{exitErr: errors.New("tool exited: exit status 1")}
	r, _, _ := newTestResolver(t, exec)

	_, err := r.EnsureVersion(context.Background(), games.CMZ, "12345", nil)
	assert.ErrorIs(t, err, ErrDownloadFailed)
}

func TestCachedVersions(t *testing.T) {
	t.Parallel()

	exec := &downloadExecutor{}
	r, fsys, root := newTestResolver(t, exec)

	versionsDir := filepath.Join(root, "cmz", "versions")
	require.NoError(t, fsys.MkdirAll(filepath.Join(versionsDir, "222"), 0o750))
	require.NoError(t, fsys.MkdirAll(filepath.Join(versionsDir, "111"), 0o750))
	require.NoError(t, fsys.MkdirAll(filepath.Join(versionsDir, ".staging-x"), 0o750))

	assert.Equal(t, []string{"111", "222"}, r.CachedVersions(games.CMZ))
	assert.Nil(t, r.CachedVersions(games.CMW))
}

type recordingSink struct {
	statuses []string
	progress []float64
	lines    []string
}

func (s *recordingSink) Status(msg string)    { s.statuses = append(s.statuses, msg) }
func (s *recordingSink) Progress(pct float64) { s.progress = append(s.progress, pct) }
func (s *recordingSink) Log(line string)      { s.lines = append(s.lines, line) }
