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

package helpers

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// CopyOptions controls recursive directory copies.
type CopyOptions struct {
	// SkipNames lists entry names excluded at any depth, e.g. a tool's
	// dot-prefixed metadata directory.
	SkipNames []string
}

// CopyOutcome reports what a best-effort copy actually did. Individual
// file failures do not abort the copy; they are collected here so
// callers can decide whether partial content is acceptable.
type CopyOutcome struct {
	Failed []string
	Copied int
}

// Partial reports whether any entry failed to copy.
func (o CopyOutcome) Partial() bool {
	return len(o.Failed) > 0
}

// CopyDir recursively copies src into dst on fsys, creating dst if
// needed. It returns an error only when src cannot be read or dst
// cannot be created; per-file failures are logged and reported in the
// outcome instead.
func CopyDir(fsys afero.Fs, src, dst string, opts CopyOptions) (CopyOutcome, error) {
	var outcome CopyOutcome

	info, err := fsys.Stat(src)
	if err != nil {
		return outcome, fmt.Errorf("failed to stat copy source: %w", err)
	}
	if !info.IsDir() {
		return outcome, fmt.Errorf("copy source %s is not a directory", src)
	}

	if err := fsys.MkdirAll(dst, 0o750); err != nil {
		return outcome, fmt.Errorf("failed to create copy destination: %w", err)
	}

	copyTree(fsys, src, dst, opts, &outcome)
	return outcome, nil
}

func copyTree(fsys afero.Fs, src, dst string, opts CopyOptions, outcome *CopyOutcome) {
	entries, err := afero.ReadDir(fsys, src)
	if err != nil {
		log.Warn().Err(err).Str("dir", src).Msg("failed to read directory during copy")
		outcome.Failed = append(outcome.Failed, src)
		return
	}

	for _, entry := range entries {
		if skipName(entry.Name(), opts.SkipNames) {
			continue
		}

		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())

		if entry.IsDir() {
			if err := fsys.MkdirAll(dstPath, 0o750); err != nil {
				log.Warn().Err(err).Str("dir", dstPath).Msg("failed to create directory during copy")
				outcome.Failed = append(outcome.Failed, srcPath)
				continue
			}
			copyTree(fsys, srcPath, dstPath, opts, outcome)
			continue
		}

		if err := copyFile(fsys, srcPath, dstPath); err != nil {
			log.Warn().Err(err).Str("file", srcPath).Msg("failed to copy file")
			outcome.Failed = append(outcome.Failed, srcPath)
			continue
		}
		outcome.Copied++
	}
}

func copyFile(fsys afero.Fs, src, dst string) error {
	in, err := fsys.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer func() {
		if closeErr := in.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Str("file", src).Msg("error closing source file")
		}
	}()

	out, err := fsys.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to copy file contents: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close destination file: %w", err)
	}
	return nil
}

func skipName(name string, skip []string) bool {
	for _, s := range skip {
		if name == s {
			return true
		}
	}
	return false
}
