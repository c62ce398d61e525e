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
	"strings"
	"unicode"

	"github.com/Zennara/cmlauncher-core/pkg/games"
)

// Credentials is a username/password pair for the downloader tool.
type Credentials struct {
	Username string
	Password string
}

// IsZero reports whether no credentials are set.
func (c Credentials) IsZero() bool {
	return c.Username == "" || c.Password == ""
}

// DefaultBranch is the content branch used when a selector names none.
const DefaultBranch = "public"

// GuardCodeFlag picks the tool flag for a second-factor code. Emailed
// auth codes contain letters; TOTP codes are all digits, and the tool
// accepts each only under its own flag.
func GuardCodeFlag(code string) string {
	for _, r := range code {
		if unicode.IsLetter(r) {
			return "-authcode"
		}
	}
	return "-twofactor"
}

func credentialArgs(creds Credentials, guardCode string) []string {
	if creds.IsZero() {
		return nil
	}
	args := []string{"-username", creds.Username, "-password", creds.Password}
	if code := strings.TrimSpace(guardCode); code != "" {
		args = append(args, GuardCodeFlag(code), code)
	}
	return args
}

// ProbeArgs builds the argument list for a manifest-only probe: it
// authenticates and queries the depot manifest but writes no game
// content.
func ProbeArgs(game games.Game, creds Credentials, guardCode string) []string {
	args := []string{"-app", game.AppID, "-depot", game.DepotID}
	args = append(args, credentialArgs(creds, guardCode)...)
	return append(args, "-manifest-only")
}

// DownloadArgs builds the argument list for downloading one manifest
// into dir.
func DownloadArgs(game games.Game, creds Credentials, manifestID, branch, dir string) []string {
	args := []string{
		"-app", game.AppID,
		"-depot", game.DepotID,
		"-manifest", manifestID,
	}
	if branch != "" && !strings.EqualFold(branch, DefaultBranch) {
		args = append(args, "-branch", branch)
	}
	args = append(args, credentialArgs(creds, "")...)
	if !creds.IsZero() {
		args = append(args, "-remember-password")
	}
	return append(args, "-dir", dir)
}
