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

// Package auth turns one or more downloader probes into a single
// authenticated/denied verdict with per-title ownership flags.
package auth

import (
	"context"
	"strings"

	"github.com/Zennara/cmlauncher-core/pkg/config"
	"github.com/Zennara/cmlauncher-core/pkg/depot"
	"github.com/Zennara/cmlauncher-core/pkg/games"
	"github.com/rs/zerolog/log"
)

// State is the controller's position in the login flow.
type State int

const (
	StateNeedCredentials State = iota
	StateProbing
	StateAuthenticated
	StateAuthFailed
	StateGuardPending
	StateRateLimited
)

func (s State) String() string {
	switch s {
	case StateNeedCredentials:
		return "need-credentials"
	case StateProbing:
		return "probing"
	case StateAuthenticated:
		return "authenticated"
	case StateAuthFailed:
		return "auth-failed"
	case StateGuardPending:
		return "guard-pending"
	case StateRateLimited:
		return "rate-limited"
	default:
		return "unknown"
	}
}

// TitleProber is the slice of depot.Prober the controller needs.
type TitleProber interface {
	CheckOwnership(
		ctx context.Context,
		game games.Game,
		creds depot.Credentials,
		guardCode string,
		hooks depot.ProbeHooks,
	) depot.OwnershipResult
}

// CodePrompter obtains a Steam Guard code out-of-band (a modal prompt,
// a terminal read). Returning ok=false abandons the login flow.
type CodePrompter func(ctx context.Context) (code string, ok bool)

// Result is the terminal outcome of one Login call. Ownership is only
// meaningful when State is StateAuthenticated.
type Result struct {
	Ownership  map[string]bool
	State      State
	SteamGuard bool
}

// Controller is the login state machine:
//
//	NeedCredentials -> Probing -> {Authenticated, AuthFailed, GuardPending, RateLimited}
//
// GuardPending and RateLimited are not terminal: GuardPending loops
// back to Probing once a code is supplied, RateLimited after whatever
// cool-down the caller chooses. Invalid credentials are never retried
// automatically.
type Controller struct {
	prober     TitleProber
	cfg        *config.Instance
	promptCode CodePrompter
	hooks      depot.ProbeHooks
	state      State
}

// NewController wires a controller to a prober, the settings store it
// persists verdicts into, and a guard-code prompter.
func NewController(
	prober TitleProber,
	cfg *config.Instance,
	promptCode CodePrompter,
	hooks depot.ProbeHooks,
) *Controller {
	return &Controller{
		prober:     prober,
		cfg:        cfg,
		promptCode: promptCode,
		hooks:      hooks,
		state:      StateNeedCredentials,
	}
}

// State returns the controller's current state.
func (c *Controller) State() State {
	return c.state
}

// Login probes every supported title sequentially with one credential
// set and resolves a single verdict. A rate limit or hard auth failure
// on any probe aborts the remaining titles; an "ownership denied"
// records false for that title and continues. On success the
// credentials and both ownership flags are persisted.
func (c *Controller) Login(ctx context.Context, creds depot.Credentials) Result {
	c.state = StateProbing
	owns := make(map[string]bool, 2)
	guardCode := ""
	guardSeen := false

	for _, game := range games.All() {
		for {
			res := c.prober.CheckOwnership(ctx, game, creds, guardCode, c.hooks)
			if res.SteamGuard {
				guardSeen = true
			}

			if res.RateLimited {
				log.Info().Str("game", game.Key).Msg("login rate limited, aborting remaining probes")
				c.state = StateRateLimited
				return Result{State: StateRateLimited, SteamGuard: guardSeen}
			}

			if res.AuthOK {
				owns[game.Key] = res.Owns
				break
			}

			// A guard prompt, or a rejected code on a re-probe, loops
			// back for a fresh code until the prompter abandons.
			retryGuard := res.SteamGuard ||
				(guardCode != "" && (res.WrongGuardCode || res.InvalidCredentials))
			if retryGuard {
				c.state = StateGuardPending
				code, ok := c.promptCode(ctx)
				if !ok || strings.TrimSpace(code) == "" {
					log.Info().Str("game", game.Key).Msg("steam guard prompt abandoned")
					c.state = StateAuthFailed
					return Result{State: StateAuthFailed, SteamGuard: guardSeen}
				}
				guardCode = strings.TrimSpace(code)
				c.state = StateProbing
				continue
			}

			// Invalid credentials, or nothing conclusive (e.g. tool
			// missing): the caller must re-collect credentials.
			log.Info().
				Str("game", game.Key).
				Bool("invalidCredentials", res.InvalidCredentials).
				Msg("login failed")
			c.state = StateAuthFailed
			return Result{State: StateAuthFailed, SteamGuard: guardSeen}
		}
	}

	c.state = StateAuthenticated
	c.persist(creds, owns)
	return Result{State: StateAuthenticated, Ownership: owns, SteamGuard: guardSeen}
}

func (c *Controller) persist(creds depot.Credentials, owns map[string]bool) {
	if c.cfg == nil {
		return
	}
	c.cfg.SetCredentials(creds.Username, creds.Password)
	c.cfg.SetOwnership(owns[games.CMZKey], owns[games.CMWKey])
	if err := c.cfg.Save(); err != nil {
		log.Error().Err(err).Msg("failed to persist login verdict")
	}
}

// InvalidateCredentials drops the stored credentials and ownership
// flags, forcing a fresh login. Called when a download reveals a
// rejected access token.
func (c *Controller) InvalidateCredentials() {
	c.state = StateNeedCredentials
	if c.cfg == nil {
		return
	}
	c.cfg.ClearCredentials()
	if err := c.cfg.Save(); err != nil {
		log.Error().Err(err).Msg("failed to persist credential invalidation")
	}
}
