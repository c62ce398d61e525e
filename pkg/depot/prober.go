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
	"context"
	"path/filepath"
	"strings"

	"github.com/Zennara/cmlauncher-core/pkg/games"
	"github.com/Zennara/cmlauncher-core/pkg/helpers/command"
	"github.com/rs/zerolog/log"
)

// ProbeResult is the raw outcome of one manifest-only tool run.
type ProbeResult struct {
	// Transcript is the full interleaved stdout+stderr output.
	Transcript string
	// SteamGuard is set the moment a guard prompt appears, which may be
	// while the process is still alive waiting for a mobile confirmation.
	SteamGuard bool
	// RateLimited is set when a rate-limit phrase appears.
	RateLimited bool
}

// ProbeHooks are optional callbacks fired while a probe is running.
// They are invoked from the probe's worker goroutine; callers that
// touch UI state must marshal accordingly.
type ProbeHooks struct {
	// OnSteamGuard fires once, on the first guard prompt line.
	OnSteamGuard func()
	// OnRateLimit fires once, on the first rate-limit line.
	OnRateLimit func()
	// OnLine receives every raw output line.
	OnLine func(line string)
}

// Prober runs the downloader tool in manifest-only mode and classifies
// its output. It never writes game content.
type Prober struct {
	exec     command.Executor
	findTool func() (string, bool)
}

// NewProber returns a Prober that runs the tool through exec.
func NewProber(exec command.Executor) *Prober {
	return &Prober{exec: exec, findTool: FindTool}
}

// NewProberWithTool returns a Prober with a custom tool locator, used
// by tests and by callers that manage the tool path themselves.
func NewProberWithTool(exec command.Executor, findTool func() (string, bool)) *Prober {
	return &Prober{exec: exec, findTool: findTool}
}

// Probe runs one manifest-only probe for a title. A missing tool
// yields a zero result rather than an error: the caller treats it as
// "cannot verify". Process exit failures are likewise folded into the
// transcript verdict, because line content is authoritative and a
// non-zero exit is expected on auth failures.
func (p *Prober) Probe(
	ctx context.Context,
	game games.Game,
	creds Credentials,
	guardCode string,
	hooks ProbeHooks,
) ProbeResult {
	toolPath, ok := p.findTool()
	if !ok {
		log.Warn().Str("game", game.Key).Msg("downloader tool not found, cannot probe")
		return ProbeResult{}
	}

	var (
		sb     strings.Builder
		result ProbeResult
	)

	opts := command.StreamOptions{
		Dir:        filepath.Dir(toolPath),
		HideWindow: true,
		OnLine: func(line string) {
			sb.WriteString(line)
			sb.WriteByte('\n')
			if hooks.OnLine != nil {
				hooks.OnLine(line)
			}
			if !result.SteamGuard && ContainsSteamGuardPrompt(line) {
				result.SteamGuard = true
				if hooks.OnSteamGuard != nil {
					hooks.OnSteamGuard()
				}
			}
			if !result.RateLimited && ContainsRateLimit(line) {
				result.RateLimited = true
				if hooks.OnRateLimit != nil {
					hooks.OnRateLimit()
				}
			}
		},
	}

	args := ProbeArgs(game, creds, guardCode)
	if err := p.exec.Stream(ctx, opts, toolPath, args...); err != nil {
		log.Debug().Err(err).Str("game", game.Key).Msg("probe process exited with error")
	}

	result.Transcript = sb.String()
	return result
}

// OwnershipResult is the classified outcome of one title probe.
type OwnershipResult struct {
	ProbeResult
	// AuthOK means the credentials authenticated, whether or not the
	// title is owned.
	AuthOK bool
	// Owns means the account owns the probed title.
	Owns bool
	// InvalidCredentials means the username/password was rejected.
	InvalidCredentials bool
	// WrongGuardCode means a supplied second-factor code was rejected.
	WrongGuardCode bool
}

// CheckOwnership probes one title and derives the ownership verdict
// from the transcript.
func (p *Prober) CheckOwnership(
	ctx context.Context,
	game games.Game,
	creds Credentials,
	guardCode string,
	hooks ProbeHooks,
) OwnershipResult {
	res := p.Probe(ctx, game, creds, guardCode, hooks)
	cls := Classify(res.Transcript)
	return OwnershipResult{
		ProbeResult:        res,
		AuthOK:             cls.AuthOK(),
		Owns:               cls.OwnsTitle(),
		InvalidCredentials: cls.InvalidCredentials,
		WrongGuardCode:     cls.WrongGuardCode,
	}
}
