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
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/Zennara/cmlauncher-core/pkg/games"
	"github.com/rs/zerolog/log"
)

// CatalogEntry maps one human version label to a manifest identifier.
type CatalogEntry struct {
	Version    string `json:"version"`
	ManifestID string `json:"manifest_id"` //nolint:tagliatelle // published catalog format
	Branch     string `json:"branch"`
	Timestamp  string `json:"timestamp"`
}

// Selector encodes the entry as a manifestId|branch selector string.
func (e CatalogEntry) Selector() string {
	branch := e.Branch
	if branch == "" {
		branch = "public"
	}
	return e.ManifestID + "|" + branch
}

const catalogTimeout = 30 * time.Second

var catalogTransport = &http.Transport{
	DialContext: (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
	ResponseHeaderTimeout: 30 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	MaxIdleConns:          10,
	IdleConnTimeout:       90 * time.Second,
}

// Catalog fetches the remote version-to-manifest catalog. It exists
// only to produce friendly labels; every failure degrades to an empty
// list and callers fall back to raw manifest IDs.
type Catalog struct {
	client *http.Client
	// urlFor allows tests to point a title at a local server.
	urlFor func(games.Game) string
}

// NewCatalog returns a catalog client with pooled transport and a
// request timeout.
func NewCatalog() *Catalog {
	return &Catalog{
		client: &http.Client{
			Transport: catalogTransport,
			Timeout:   catalogTimeout,
		},
		urlFor: func(g games.Game) string { return g.CatalogURL },
	}
}

// NewCatalogWithURL returns a catalog client that resolves every
// title's catalog to url. Used by tests.
func NewCatalogWithURL(client *http.Client, url string) *Catalog {
	if client == nil {
		client = http.DefaultClient
	}
	return &Catalog{
		client: client,
		urlFor: func(games.Game) string { return url },
	}
}

// Fetch returns the published catalog entries for a title. Titles with
// no catalog, network errors and parse errors all yield nil.
func (c *Catalog) Fetch(ctx context.Context, game games.Game) []CatalogEntry {
	url := c.urlFor(game)
	if url == "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		log.Warn().Err(err).Str("game", game.Key).Msg("failed to build catalog request")
		return nil
	}

	resp, err := c.client.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("game", game.Key).Msg("failed to fetch version catalog")
		return nil
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("error closing catalog response")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		log.Warn().Int("status", resp.StatusCode).Str("game", game.Key).Msg("version catalog request failed")
		return nil
	}

	var entries []CatalogEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		log.Warn().Err(err).Str("game", game.Key).Msg("failed to decode version catalog")
		return nil
	}
	return entries
}

// FriendlyVersion looks up the human label for a manifest ID. Returns
// empty when the catalog is unavailable or has no matching entry.
func (c *Catalog) FriendlyVersion(ctx context.Context, game games.Game, manifestID string) string {
	for _, entry := range c.Fetch(ctx, game) {
		if entry.ManifestID == manifestID {
			return entry.Version
		}
	}
	return ""
}
