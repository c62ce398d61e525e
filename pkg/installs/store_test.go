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
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/Zennara/cmlauncher-core/pkg/games"
	"github.com/Zennara/cmlauncher-core/pkg/versions"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// fakeSource maps selectors to prepared content directories.
type fakeSource struct {
	dirs  map[string]string
	err   error
	calls []string
}

func (f *fakeSource) EnsureVersion(
	_ context.Context, _ games.Game, selector string, _ versions.ProgressSink,
) (string, error) {
	f.calls = append(f.calls, selector)
	if f.err != nil {
		return "", f.err
	}
	dir, ok := f.dirs[selector]
	if !ok {
		return "", versions.ErrDownloadFailed
	}
	return dir, nil
}

// fakeCatalog maps manifest IDs to friendly labels.
type fakeCatalog struct {
	labels map[string]string
}

func (f *fakeCatalog) FriendlyVersion(
	_ context.Context, _ games.Game, manifestID string,
) string {
	return f.labels[manifestID]
}

type storeFixture struct {
	fs     afero.Fs
	source *fakeSource
	clock  *clockwork.FakeClock
	store  *Store
	root   string
}

// newFixture works under both *testing.T and *rapid.T.
func newFixture(t require.TestingT) *storeFixture {
	fsys := afero.NewMemMapFs()
	source := &fakeSource{dirs: map[string]string{}}
	clock := clockwork.NewFakeClockAt(
		time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	// A cached version directory the source can hand out.
	versionDir := "/data/cmz/versions/111111"
	require.NoError(t, fsys.MkdirAll(versionDir, 0o750))
	require.NoError(t, afero.WriteFile(fsys,
		filepath.Join(versionDir, "CastleMinerZ.exe"), []byte("binary"), 0o640))
	require.NoError(t, fsys.MkdirAll(
		filepath.Join(versionDir, versions.ToolMetaDir), 0o750))
	require.NoError(t, afero.WriteFile(fsys,
		filepath.Join(versionDir, versions.ToolMetaDir, "manifest.bin"),
		[]byte("meta"), 0o640))
	source.dirs["111111|public"] = versionDir

	store := NewStore(StoreDeps{
		Fs:       fsys,
		Resolver: source,
		Catalog:  &fakeCatalog{labels: map[string]string{"111111": "1.9.8"}},
		Locate:   func(string) string { return "" },
		Clock:    clock,
		RootDir:  "/data",
	})
	return &storeFixture{fs: fsys, source: source, clock: clock, store: store, root: "/data"}
}

func TestCreateInstallation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	inst, err := f.store.Create(
		context.Background(), games.CMZ, "Main", "111111|public", "", versions.NopSink{})
	require.NoError(t, err)

	assert.Equal(t, "Main", inst.Name)
	assert.Equal(t, "111111", inst.Manifest)
	assert.Equal(t, "1.9.8", inst.Version)
	assert.False(t, inst.IsSteam())

	exists, _ := afero.Exists(f.fs, filepath.Join(inst.GamePath(), "CastleMinerZ.exe"))
	assert.True(t, exists, "game content must be copied")

	dataExists, _ := afero.DirExists(f.fs, inst.DataPath())
	assert.True(t, dataExists, "data sandbox must exist")

	// The downloader's metadata folder never enters an installation.
	metaExists, _ := afero.DirExists(f.fs,
		filepath.Join(inst.GamePath(), versions.ToolMetaDir))
	assert.False(t, metaExists)

	sc, ok := readSidecar(f.fs, inst.RootPath)
	require.True(t, ok)
	assert.Equal(t, "111111", sc.Manifest)
	assert.Equal(t, "1.9.8", sc.Version)
	assert.Empty(t, sc.Timestamp, "a fresh installation was never played")
}

func TestCreateResolveFailureLeavesNothing(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.store.Create(
		context.Background(), games.CMZ, "Main", "999999|public", "", versions.NopSink{})
	require.Error(t, err)

	exists, _ := afero.DirExists(f.fs, filepath.Join(f.store.InstallationsDir(games.CMZ), "Main"))
	assert.False(t, exists, "a failed resolve must not leave a directory behind")
}

func TestCreateNameCollision(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	names := make([]string, 0, 3)
	for range 3 {
		inst, err := f.store.Create(
			context.Background(), games.CMZ, "Foo", "111111|public", "", versions.NopSink{})
		require.NoError(t, err)
		names = append(names, inst.Name)
	}
	assert.Equal(t, []string{"Foo", "Foo (1)", "Foo (2)"}, names)
}

func TestCreateCollisionProperty(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		f := newFixture(t)
		name := rapid.StringMatching(`[A-Za-z][A-Za-z0-9_-]{0,11}`).Draw(t, "name")
		count := rapid.IntRange(1, 5).Draw(t, "count")

		seen := map[string]bool{}
		for range count {
			inst, err := f.store.Create(
				context.Background(), games.CMZ, name, "111111|public", "", versions.NopSink{})
			if err != nil {
				t.Fatalf("create failed: %v", err)
			}
			if seen[inst.Name] {
				t.Fatalf("duplicate name %q", inst.Name)
			}
			seen[inst.Name] = true
		}
	})
}

func TestCreateSteamVersion(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	steamDir := "/steam/common/CastleMiner Z"
	require.NoError(t, f.fs.MkdirAll(steamDir, 0o750))
	require.NoError(t, afero.WriteFile(f.fs,
		filepath.Join(steamDir, "CastleMinerZ.exe"), []byte("binary"), 0o640))
	f.store.locate = func(appID string) string {
		if appID == games.CMZ.AppID {
			return steamDir
		}
		return ""
	}

	inst, err := f.store.Create(
		context.Background(), games.CMZ, "FromSteam", SteamSelector, "", versions.NopSink{})
	require.NoError(t, err)

	assert.Empty(t, inst.Manifest, "steam copies record no manifest")
	assert.Equal(t, SteamSelector, inst.Version,
		"an executable without a version resource falls back to the sentinel")
	assert.Empty(t, f.source.calls, "the steam sentinel must not trigger a download")

	exists, _ := afero.Exists(f.fs, filepath.Join(inst.GamePath(), "CastleMinerZ.exe"))
	assert.True(t, exists)
}

func TestCreateSteamVersionWithoutSteam(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.store.Create(
		context.Background(), games.CMZ, "FromSteam", SteamSelector, "", versions.NopSink{})
	assert.ErrorIs(t, err, ErrNoVersionSource)
}

func TestRename(t *testing.T) {
	t.Parallel()

	// Real filesystem: MemMapFs does not move directory children on
	// rename.
	fsys := afero.NewOsFs()
	root := t.TempDir()
	source := &fakeSource{dirs: map[string]string{}}
	versionDir := filepath.Join(root, "versions", "111111")
	require.NoError(t, fsys.MkdirAll(versionDir, 0o750))
	require.NoError(t, afero.WriteFile(fsys,
		filepath.Join(versionDir, "CastleMinerZ.exe"), []byte("binary"), 0o640))
	source.dirs["111111|public"] = versionDir

	store := NewStore(StoreDeps{
		Fs:       fsys,
		Resolver: source,
		Locate:   func(string) string { return "" },
		RootDir:  root,
	})

	inst, err := store.Create(
		context.Background(), games.CMZ, "Old", "111111|public", "", versions.NopSink{})
	require.NoError(t, err)
	taken, err := store.Create(
		context.Background(), games.CMZ, "Taken", "111111|public", "", versions.NopSink{})
	require.NoError(t, err)

	renamed, err := store.Rename(inst, "New")
	require.NoError(t, err)
	assert.Equal(t, "New", renamed.Name)

	exists, _ := afero.Exists(fsys, filepath.Join(renamed.GamePath(), "CastleMinerZ.exe"))
	assert.True(t, exists, "contents must move with the rename")
	oldExists, _ := afero.DirExists(fsys, inst.RootPath)
	assert.False(t, oldExists)

	// Renaming onto an existing name gets a suffix instead of clobbering.
	collided, err := store.Rename(renamed, taken.Name)
	require.NoError(t, err)
	assert.Equal(t, "Taken (1)", collided.Name)
}

func TestDuplicate(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	inst, err := f.store.Create(
		context.Background(), games.CMZ, "Main", "111111|public", "", versions.NopSink{})
	require.NoError(t, err)
	require.NoError(t, f.store.MarkLaunched(&inst))

	dup, err := f.store.Duplicate(inst)
	require.NoError(t, err)
	assert.Equal(t, "Main - Copy", dup.Name)
	assert.Nil(t, dup.LastPlayed, "the copy starts never-played")

	exists, _ := afero.Exists(f.fs, filepath.Join(dup.GamePath(), "CastleMinerZ.exe"))
	assert.True(t, exists, "duplicate must copy the full tree")

	sc, ok := readSidecar(f.fs, dup.RootPath)
	require.True(t, ok)
	assert.Empty(t, sc.Timestamp)
	assert.Equal(t, "111111", sc.Manifest)

	// The original keeps its timestamp.
	origSc, _ := readSidecar(f.fs, inst.RootPath)
	assert.NotEmpty(t, origSc.Timestamp)

	// Duplicating again suffixes.
	dup2, err := f.store.Duplicate(inst)
	require.NoError(t, err)
	assert.Equal(t, "Main - Copy (1)", dup2.Name)
}

func TestDelete(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	inst, err := f.store.Create(
		context.Background(), games.CMZ, "Doomed", "111111|public", "", versions.NopSink{})
	require.NoError(t, err)

	require.NoError(t, f.store.Delete(inst))
	exists, _ := afero.DirExists(f.fs, inst.RootPath)
	assert.False(t, exists)
}

func TestSteamPseudoIsImmutable(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	pseudo := Installation{GameKey: games.CMZKey, Name: SteamInstallationName}

	_, err := f.store.Rename(pseudo, "x")
	assert.ErrorIs(t, err, ErrSteamInstallation)
	_, err = f.store.Duplicate(pseudo)
	assert.ErrorIs(t, err, ErrSteamInstallation)
	assert.ErrorIs(t, f.store.Delete(pseudo), ErrSteamInstallation)
	assert.ErrorIs(t,
		f.store.UpdateVersion(context.Background(), &pseudo, "111111", nil),
		ErrSteamInstallation)
	assert.ErrorIs(t, f.store.SetIcon(&pseudo, "x.png"), ErrSteamInstallation)
}

func TestUpdateVersion(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	newDir := "/data/cmz/versions/222222"
	require.NoError(t, f.fs.MkdirAll(newDir, 0o750))
	require.NoError(t, afero.WriteFile(f.fs,
		filepath.Join(newDir, "NewContent.dll"), []byte("new"), 0o640))
	f.source.dirs["222222|public"] = newDir

	inst, err := f.store.Create(
		context.Background(), games.CMZ, "Main", "111111|public", "", versions.NopSink{})
	require.NoError(t, err)

	require.NoError(t,
		f.store.UpdateVersion(context.Background(), &inst, "222222|public", versions.NopSink{}))

	assert.Equal(t, "222222", inst.Manifest)

	newExists, _ := afero.Exists(f.fs, filepath.Join(inst.GamePath(), "NewContent.dll"))
	assert.True(t, newExists)
	oldExists, _ := afero.Exists(f.fs, filepath.Join(inst.GamePath(), "CastleMinerZ.exe"))
	assert.False(t, oldExists, "old content must be cleared")

	sc, _ := readSidecar(f.fs, inst.RootPath)
	assert.Equal(t, "222222", sc.Manifest)
}

// A failed resolve must leave the existing content untouched.
func TestUpdateVersionResolvesBeforeClearing(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	inst, err := f.store.Create(
		context.Background(), games.CMZ, "Main", "111111|public", "", versions.NopSink{})
	require.NoError(t, err)

	err = f.store.UpdateVersion(context.Background(), &inst, "404|public", versions.NopSink{})
	require.Error(t, err)

	exists, _ := afero.Exists(f.fs, filepath.Join(inst.GamePath(), "CastleMinerZ.exe"))
	assert.True(t, exists, "existing content must survive a failed update")
	assert.Equal(t, "111111", inst.Manifest)
}

func TestMarkLaunched(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	inst, err := f.store.Create(
		context.Background(), games.CMZ, "Main", "111111|public", "", versions.NopSink{})
	require.NoError(t, err)

	require.NoError(t, f.store.MarkLaunched(&inst))
	require.NotNil(t, inst.LastPlayed)
	assert.True(t, inst.LastPlayed.Equal(f.clock.Now()))

	sc, _ := readSidecar(f.fs, inst.RootPath)
	assert.Equal(t, f.clock.Now().UTC().Format(time.RFC3339), sc.Timestamp)
}

func TestListOrdering(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	base := f.clock.Now()

	mk := func(name, timestamp string) {
		dir := filepath.Join(f.store.InstallationsDir(games.CMZ), name)
		require.NoError(t, f.fs.MkdirAll(filepath.Join(dir, GameDirName), 0o750))
		require.NoError(t, writeSidecar(f.fs, dir, sidecar{
			Version:   "1.9.8",
			Timestamp: timestamp,
		}))
	}
	mk("Older", base.Add(-2*time.Hour).Format(time.RFC3339))
	mk("Newest", base.Format(time.RFC3339))
	mk("Beta", "")
	mk("alpha", "")

	list := f.store.List(context.Background(), games.CMZ)
	names := make([]string, len(list))
	for i, inst := range list {
		names[i] = inst.Name
	}

	// Most recently played first; never-played last, alphabetically.
	assert.Equal(t, []string{"Newest", "Older", "alpha", "Beta"}, names)
}

func TestListIncludesSteamPseudo(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	steamDir := "/steam/common/CastleMiner Z"
	require.NoError(t, f.fs.MkdirAll(steamDir, 0o750))
	f.store.locate = func(string) string { return steamDir }

	list := f.store.List(context.Background(), games.CMZ)
	require.Len(t, list, 1)
	assert.Equal(t, SteamInstallationName, list[0].Name)
	assert.True(t, list[0].IsSteam())
	assert.Equal(t, SteamSelector, list[0].Version)
}

// Sidecars written by other launcher builds may carry extra fields;
// they must parse and survive a rewrite.
func TestSidecarToleratesUnknownFields(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	dir := filepath.Join(f.store.InstallationsDir(games.CMZ), "Imported")
	require.NoError(t, f.fs.MkdirAll(dir, 0o750))
	raw := `{
  "version": "1.9.6",
  "manifest": "333333",
  "future_field": {"nested": true},
  "another": 42
}`
	require.NoError(t, afero.WriteFile(f.fs,
		filepath.Join(dir, SidecarFile), []byte(raw), 0o640))

	list := f.store.List(context.Background(), games.CMZ)
	require.Len(t, list, 1)
	assert.Equal(t, "1.9.6", list[0].Version)
	assert.Equal(t, "333333", list[0].Manifest)
}

func TestListMalformedSidecar(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	dir := filepath.Join(f.store.InstallationsDir(games.CMZ), "Broken")
	require.NoError(t, f.fs.MkdirAll(dir, 0o750))
	require.NoError(t, afero.WriteFile(f.fs,
		filepath.Join(dir, SidecarFile), []byte("{not json"), 0o640))

	list := f.store.List(context.Background(), games.CMZ)
	require.Len(t, list, 1, "a broken sidecar must not hide the installation")
	assert.Equal(t, "Broken", list[0].Name)
	assert.Equal(t, "Unknown", list[0].Version)
}

// The friendly-version chain falls back from sidecar label to catalog
// lookup to raw manifest ID.
func TestFriendlyVersionFallbacks(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	mk := func(name string, sc sidecar) {
		dir := filepath.Join(f.store.InstallationsDir(games.CMZ), name)
		require.NoError(t, f.fs.MkdirAll(dir, 0o750))
		require.NoError(t, writeSidecar(f.fs, dir, sc))
	}
	mk("HasLabel", sidecar{Version: "1.9.9", Manifest: "444444"})
	mk("CatalogKnown", sidecar{Manifest: "111111"})
	mk("CatalogUnknown", sidecar{Manifest: "555555"})

	byName := map[string]string{}
	for _, inst := range f.store.List(context.Background(), games.CMZ) {
		byName[inst.Name] = inst.Version
	}

	assert.Equal(t, "1.9.9", byName["HasLabel"])
	assert.Equal(t, "1.9.8", byName["CatalogKnown"])
	assert.Equal(t, "555555", byName["CatalogUnknown"])
}

func TestSidecarRoundTrip(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	require.NoError(t, fsys.MkdirAll("/inst", 0o750))

	want := sidecar{
		Version:   "1.9.8",
		Manifest:  "111111",
		Timestamp: "2026-03-01T12:00:00Z",
		Icon:      "block.png",
	}
	require.NoError(t, writeSidecar(fsys, "/inst", want))

	got, ok := readSidecar(fsys, "/inst")
	require.True(t, ok)
	assert.Equal(t, want, got)

	// Written sidecars are valid indented JSON.
	data, err := afero.ReadFile(fsys, filepath.Join("/inst", SidecarFile))
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
}

func TestAvailableIcons(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	require.NoError(t, fsys.MkdirAll("/assets", 0o750))
	for _, name := range []string{"zombie.png", "block.PNG", "knight.jpg", "readme.txt"} {
		require.NoError(t, afero.WriteFile(fsys,
			filepath.Join("/assets", name), []byte("x"), 0o640))
	}

	store := NewStore(StoreDeps{
		Fs:        fsys,
		Resolver:  &fakeSource{},
		RootDir:   "/data",
		AssetsDir: "/assets",
	})

	icons := store.AvailableIcons()
	assert.Equal(t, []string{"block.PNG", "knight.jpg", "zombie.png"}, icons)

	for range 10 {
		assert.Contains(t, icons, store.randomIcon())
	}
}

func TestUniqueNameFormat(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	dir := f.store.InstallationsDir(games.CMZ)
	require.NoError(t, f.fs.MkdirAll(filepath.Join(dir, "Foo"), 0o750))
	require.NoError(t, f.fs.MkdirAll(filepath.Join(dir, "Foo (1)"), 0o750))

	assert.Equal(t, "Foo (2)", f.store.uniqueName(dir, "Foo"))
	assert.Equal(t, "Bar", f.store.uniqueName(dir, "Bar"))
	assert.Equal(t, fmt.Sprintf("%s (1)", "Foo (1)"), f.store.uniqueName(dir, "Foo (1)"))
}
