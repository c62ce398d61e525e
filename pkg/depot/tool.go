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

package depot

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// ToolDirName is the directory the downloader tool ships in, relative
// to the launcher executable or working directory.
const ToolDirName = "depot-downloader"

func toolExeName() string {
	if runtime.GOOS == "windows" {
		return "DepotDownloader.exe"
	}
	return "DepotDownloader"
}

// FindTool locates the downloader executable. It checks next to the
// launcher binary first, then the working directory, then PATH.
// Returns false if the tool cannot be found anywhere; callers treat
// that as "cannot verify", never as a hard error.
func FindTool() (string, bool) {
	name := toolExeName()

	if exe, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(exe), ToolDirName, name)
		if fileExists(candidate) {
			return candidate, true
		}
	}

	if cwd, err := os.Getwd(); err == nil {
		candidate := filepath.Join(cwd, ToolDirName, name)
		if fileExists(candidate) {
			return candidate, true
		}
	}

	if path, err := exec.LookPath(name); err == nil {
		return path, true
	}

	return "", false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
