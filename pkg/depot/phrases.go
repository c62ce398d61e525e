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

// Package depot drives the external DepotDownloader tool. All
// interaction with the tool happens over its stdout/stderr text; the
// phrase tables in this file are the protocol. Matching is always
// case-insensitive substring matching, per line.
package depot

import (
	"regexp"
	"strconv"
	"strings"
)

// steamGuardPhrases mark the tool blocked on a second-factor
// confirmation. The process is still alive and waiting when these
// appear; this is a paused state, not a failure.
var steamGuardPhrases = []string{
	"steam guard",
	"use the steam mobile app to confirm your sign in",
	"please enter the 2-factor code",
	"two-factor code",
	"please enter the auth code",
	"auth code sent to",
	"{input_here}",
}

// rateLimitPhrases short-circuit all other classification; the caller
// must back off before retrying.
var rateLimitPhrases = []string{
	"ratelimitexceeded",
	"rate limit",
	"toomanyrequests",
}

var invalidCredentialPhrases = []string{
	"failed to authenticate",
	"invalidpassword",
	"invalid password",
}

// ownedPhrases confirm the account owns the probed depot.
var ownedPhrases = []string{
	"got depot key",
	"processing depot",
}

// notOwnedPhrases mean authentication succeeded but the account does
// not own the title.
var notOwnedPhrases = []string{
	"is not available from this account",
}

// wrongGuardPhrases mean a supplied guard code was rejected; the flow
// should ask for a fresh code rather than fail outright.
var wrongGuardPhrases = []string{
	"previous 2-factor auth code",
	"2-factor auth code you have provided is incorrect",
	"invalid auth code",
	"invalid two-factor",
}

func matchesAny(line string, phrases []string) bool {
	lower := strings.ToLower(line)
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// ContainsSteamGuardPrompt reports whether a line is a Steam Guard
// prompt.
func ContainsSteamGuardPrompt(line string) bool {
	return matchesAny(line, steamGuardPhrases)
}

// ContainsRateLimit reports whether a line indicates rate limiting.
func ContainsRateLimit(line string) bool {
	return matchesAny(line, rateLimitPhrases)
}

// ContainsInvalidCredentials reports whether a line indicates the
// username/password pair was rejected.
func ContainsInvalidCredentials(line string) bool {
	return matchesAny(line, invalidCredentialPhrases)
}

// ContainsWrongGuardCode reports whether a line indicates a rejected
// second-factor code.
func ContainsWrongGuardCode(line string) bool {
	return matchesAny(line, wrongGuardPhrases)
}

// ContainsAccessDenied reports whether a line indicates the stored
// access token was rejected mid-download. Requires both substrings so
// unrelated "denied" chatter does not trip it.
func ContainsAccessDenied(line string) bool {
	lower := strings.ToLower(line)
	return strings.Contains(lower, "access token") &&
		(strings.Contains(lower, "denied") || strings.Contains(lower, "rejected"))
}

// Classification is the verdict over one full probe transcript.
type Classification struct {
	RateLimited        bool
	SteamGuard         bool
	InvalidCredentials bool
	WrongGuardCode     bool
	OwnershipConfirmed bool
	OwnershipDenied    bool
}

// Classify runs the phrase tables over every line of a transcript.
// Each category matches independently; precedence between categories is
// applied by AuthOK and OwnsTitle, not here.
func Classify(transcript string) Classification {
	var c Classification
	for _, line := range strings.Split(transcript, "\n") {
		if !c.RateLimited && ContainsRateLimit(line) {
			c.RateLimited = true
		}
		if !c.SteamGuard && ContainsSteamGuardPrompt(line) {
			c.SteamGuard = true
		}
		if !c.InvalidCredentials && ContainsInvalidCredentials(line) {
			c.InvalidCredentials = true
		}
		if !c.WrongGuardCode && ContainsWrongGuardCode(line) {
			c.WrongGuardCode = true
		}
		if !c.OwnershipConfirmed && matchesAny(line, ownedPhrases) {
			c.OwnershipConfirmed = true
		}
		if !c.OwnershipDenied && matchesAny(line, notOwnedPhrases) {
			c.OwnershipDenied = true
		}
	}
	return c
}

// AuthOK reports whether the transcript shows a successful
// authentication. Rate limiting and credential rejection always win
// over any ownership evidence in the same transcript.
func (c Classification) AuthOK() bool {
	if c.RateLimited || c.InvalidCredentials {
		return false
	}
	return c.OwnershipConfirmed || c.OwnershipDenied
}

// OwnsTitle reports whether the transcript confirms ownership of the
// probed title.
func (c Classification) OwnsTitle() bool {
	return c.AuthOK() && c.OwnershipConfirmed
}

// percentRe matches digits immediately followed by a percent sign, as
// the tool prints per-file download progress.
var percentRe = regexp.MustCompile(`(\d+(?:\.\d+)?)%`)

// ExtractPercent pulls a 0-100 progress percentage out of a raw output
// line, if one is present.
func ExtractPercent(line string) (float64, bool) {
	m := percentRe.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	pct, err := strconv.ParseFloat(m[1], 64)
	if err != nil || pct < 0 || pct > 100 {
		return 0, false
	}
	return pct, true
}
