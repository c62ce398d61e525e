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

// cmlauncher is the command-line front end for the CastleMiner launcher
// core: login and ownership verification, version management, and
// installation management for both titles.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Zennara/cmlauncher-core/pkg/auth"
	"github.com/Zennara/cmlauncher-core/pkg/config"
	"github.com/Zennara/cmlauncher-core/pkg/depot"
	"github.com/Zennara/cmlauncher-core/pkg/games"
	"github.com/Zennara/cmlauncher-core/pkg/helpers"
	"github.com/Zennara/cmlauncher-core/pkg/helpers/command"
	"github.com/Zennara/cmlauncher-core/pkg/installs"
	"github.com/Zennara/cmlauncher-core/pkg/steam"
	"github.com/Zennara/cmlauncher-core/pkg/versions"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

const usage = `Usage: cmlauncher <command> [flags]

Commands:
  login       verify credentials and title ownership
  logout      forget saved credentials
  versions    list cached and published versions for a title
  list        list installations for a title
  create      create a new installation
  rename      rename an installation
  duplicate   duplicate an installation
  delete      delete an installation
  update      switch an installation to another version
  launch      launch an installation
  version     print the launcher version
`

type app struct {
	cfg     *config.Instance
	store   *installs.Store
	catalog *versions.Catalog
	ctrl    *auth.Controller
	rootDir string
}

func run(args []string) error {
	if len(args) == 0 {
		fmt.Print(usage)
		return errors.New("no command given")
	}

	if args[0] == "version" {
		fmt.Println(config.AppName, config.AppVersion)
		return nil
	}

	rootDir := config.RootDir()
	cfg, err := config.NewInstance(rootDir)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	console := zerolog.ConsoleWriter{Out: os.Stderr}
	if err := helpers.InitLogging(rootDir, cfg.DebugLogging(), console); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM,
	)
	defer stop()

	fsys := afero.NewOsFs()
	exec := &command.RealExecutor{}
	catalog := versions.NewCatalog()
	prober := depot.NewProber(exec)
	ctrl := auth.NewController(prober, cfg, promptGuardCode, depot.ProbeHooks{
		OnSteamGuard: func() {
			fmt.Println("Steam Guard verification required.")
		},
		OnRateLimit: func() {
			fmt.Println("Steam is rate limiting login attempts. Try again later.")
		},
	})
	resolver := versions.NewResolver(fsys, exec, rootDir,
		func() depot.Credentials {
			user, pass := cfg.Credentials()
			return depot.Credentials{Username: user, Password: pass}
		},
		ctrl.InvalidateCredentials,
	)
	store := installs.NewStore(installs.StoreDeps{
		Fs:       fsys,
		Cfg:      cfg,
		Resolver: resolver,
		Catalog:  catalog,
		Locate:   steam.FindGamePath,
		Exec:     exec,
		RootDir:  rootDir,
	})

	a := &app{
		cfg:     cfg,
		store:   store,
		catalog: catalog,
		ctrl:    ctrl,
		rootDir: rootDir,
	}

	switch args[0] {
	case "login":
		return a.login(ctx, args[1:])
	case "logout":
		return a.logout()
	case "versions":
		return a.versions(ctx, args[1:])
	case "list":
		return a.list(ctx, args[1:])
	case "create":
		return a.create(ctx, args[1:])
	case "rename":
		return a.rename(ctx, args[1:])
	case "duplicate":
		return a.duplicate(ctx, args[1:])
	case "delete":
		return a.deleteCmd(ctx, args[1:])
	case "update":
		return a.update(ctx, args[1:])
	case "launch":
		return a.launch(ctx, args[1:])
	default:
		fmt.Print(usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

// promptGuardCode reads a Steam Guard code from the terminal. An empty
// line abandons the login.
func promptGuardCode(_ context.Context) (string, bool) {
	fmt.Print("Enter Steam Guard code (empty to cancel): ")
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", false
	}
	code := strings.TrimSpace(line)
	return code, code != ""
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	user := fs.String("user", "", "Steam account name")
	pass := fs.String("pass", "", "Steam account password")
	if err := fs.Parse(args); err != nil {
		return err //nolint:wrapcheck // flag errors are already descriptive
	}

	creds := depot.Credentials{Username: *user, Password: *pass}
	if creds.IsZero() {
		savedUser, savedPass := a.cfg.Credentials()
		creds = depot.Credentials{Username: savedUser, Password: savedPass}
	}
	if creds.IsZero() {
		return errors.New("no credentials: pass -user and -pass or log in once")
	}

	res := a.ctrl.Login(ctx, creds)
	switch res.State {
	case auth.StateAuthenticated:
		for _, game := range games.All() {
			verdict := "not owned"
			if res.Ownership[game.Key] {
				verdict = "owned"
			}
			fmt.Printf("%s: %s\n", game.Name, verdict)
		}
		return nil
	case auth.StateRateLimited:
		return errors.New("rate limited, wait before retrying")
	default:
		return errors.New("login failed")
	}
}

func (a *app) logout() error {
	a.ctrl.InvalidateCredentials()
	fmt.Println("Credentials forgotten.")
	return nil
}

func (a *app) versions(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("versions", flag.ContinueOnError)
	gameKey := fs.String("game", games.CMZKey, "title key (cmz or cmw)")
	if err := fs.Parse(args); err != nil {
		return err //nolint:wrapcheck // flag errors are already descriptive
	}
	game, ok := games.ByKey(*gameKey)
	if !ok {
		return fmt.Errorf("unknown game %q", *gameKey)
	}

	resolver := a.storeResolver()
	cached := map[string]bool{}
	for _, id := range resolver.CachedVersions(game) {
		cached[id] = true
	}

	entries := a.catalog.Fetch(ctx, game)
	if len(entries) == 0 && len(cached) == 0 {
		fmt.Println("No versions known.")
		return nil
	}

	for _, entry := range entries {
		marker := " "
		if cached[entry.ManifestID] {
			marker = "*"
			delete(cached, entry.ManifestID)
		}
		fmt.Printf("%s %-16s %s\n", marker, entry.Version, entry.Selector())
	}
	for id := range cached {
		fmt.Printf("* %-16s %s|public\n", "(cached)", id)
	}
	return nil
}

// storeResolver rebuilds a resolver for direct cache queries. The store
// holds its own through the VersionSource interface.
func (a *app) storeResolver() *versions.Resolver {
	return versions.NewResolver(
		afero.NewOsFs(), &command.RealExecutor{}, a.rootDir,
		func() depot.Credentials {
			user, pass := a.cfg.Credentials()
			return depot.Credentials{Username: user, Password: pass}
		},
		a.ctrl.InvalidateCredentials,
	)
}

func (a *app) list(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	gameKey := fs.String("game", games.CMZKey, "title key (cmz or cmw)")
	if err := fs.Parse(args); err != nil {
		return err //nolint:wrapcheck // flag errors are already descriptive
	}
	game, ok := games.ByKey(*gameKey)
	if !ok {
		return fmt.Errorf("unknown game %q", *gameKey)
	}

	list := a.store.List(ctx, game)
	if len(list) == 0 {
		fmt.Println("No installations.")
		return nil
	}
	for _, inst := range list {
		played := "never"
		if inst.LastPlayed != nil {
			played = inst.LastPlayed.Local().Format("2006-01-02 15:04")
		}
		fmt.Printf("%-30s %-16s last played %s\n", inst.Name, inst.Version, played)
	}
	return nil
}

func (a *app) create(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	gameKey := fs.String("game", games.CMZKey, "title key (cmz or cmw)")
	name := fs.String("name", "", "installation name")
	selector := fs.String("version", installs.SteamSelector,
		"version selector (manifestId|branch, or \"Steam Version\")")
	if err := fs.Parse(args); err != nil {
		return err //nolint:wrapcheck // flag errors are already descriptive
	}
	game, ok := games.ByKey(*gameKey)
	if !ok {
		return fmt.Errorf("unknown game %q", *gameKey)
	}
	if *name == "" {
		return errors.New("-name is required")
	}

	inst, err := a.store.Create(ctx, game, *name, *selector, "", consoleSink{})
	if err != nil {
		return fmt.Errorf("failed to create installation: %w", err)
	}
	fmt.Printf("Created %q (version %s)\n", inst.Name, inst.Version)
	return nil
}

func (a *app) rename(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("rename", flag.ContinueOnError)
	gameKey := fs.String("game", games.CMZKey, "title key (cmz or cmw)")
	name := fs.String("name", "", "installation to rename")
	to := fs.String("to", "", "new name")
	if err := fs.Parse(args); err != nil {
		return err //nolint:wrapcheck // flag errors are already descriptive
	}
	inst, err := a.find(ctx, *gameKey, *name)
	if err != nil {
		return err
	}
	renamed, err := a.store.Rename(inst, *to)
	if err != nil {
		return err //nolint:wrapcheck // store errors are already descriptive
	}
	fmt.Printf("Renamed to %q\n", renamed.Name)
	return nil
}

func (a *app) duplicate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("duplicate", flag.ContinueOnError)
	gameKey := fs.String("game", games.CMZKey, "title key (cmz or cmw)")
	name := fs.String("name", "", "installation to duplicate")
	if err := fs.Parse(args); err != nil {
		return err //nolint:wrapcheck // flag errors are already descriptive
	}
	inst, err := a.find(ctx, *gameKey, *name)
	if err != nil {
		return err
	}
	dup, err := a.store.Duplicate(inst)
	if err != nil {
		return err //nolint:wrapcheck // store errors are already descriptive
	}
	fmt.Printf("Duplicated as %q\n", dup.Name)
	return nil
}

func (a *app) deleteCmd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	gameKey := fs.String("game", games.CMZKey, "title key (cmz or cmw)")
	name := fs.String("name", "", "installation to delete")
	if err := fs.Parse(args); err != nil {
		return err //nolint:wrapcheck // flag errors are already descriptive
	}
	inst, err := a.find(ctx, *gameKey, *name)
	if err != nil {
		return err
	}
	if err := a.store.Delete(inst); err != nil {
		return err //nolint:wrapcheck // store errors are already descriptive
	}
	fmt.Printf("Deleted %q\n", inst.Name)
	return nil
}

func (a *app) update(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("update", flag.ContinueOnError)
	gameKey := fs.String("game", games.CMZKey, "title key (cmz or cmw)")
	name := fs.String("name", "", "installation to update")
	selector := fs.String("version", "", "version selector (manifestId|branch)")
	if err := fs.Parse(args); err != nil {
		return err //nolint:wrapcheck // flag errors are already descriptive
	}
	if *selector == "" {
		return errors.New("-version is required")
	}
	inst, err := a.find(ctx, *gameKey, *name)
	if err != nil {
		return err
	}
	if err := a.store.UpdateVersion(ctx, &inst, *selector, consoleSink{}); err != nil {
		return err //nolint:wrapcheck // store errors are already descriptive
	}
	fmt.Printf("%q is now on version %s\n", inst.Name, inst.Version)
	return nil
}

func (a *app) launch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("launch", flag.ContinueOnError)
	gameKey := fs.String("game", games.CMZKey, "title key (cmz or cmw)")
	name := fs.String("name", "", "installation to launch (default: last selected)")
	if err := fs.Parse(args); err != nil {
		return err //nolint:wrapcheck // flag errors are already descriptive
	}

	target := *name
	if target == "" {
		target = a.cfg.LastSelected(*gameKey)
	}
	if target == "" {
		return errors.New("-name is required (no previous selection)")
	}

	inst, err := a.find(ctx, *gameKey, target)
	if err != nil {
		return err
	}
	if err := a.store.Launch(ctx, &inst); err != nil {
		return err //nolint:wrapcheck // store errors are already descriptive
	}

	a.cfg.SetLastSelected(strings.ToLower(*gameKey), inst.Name)
	if err := a.cfg.Save(); err != nil {
		log.Warn().Err(err).Msg("failed to remember selection")
	}
	fmt.Printf("Launched %q\n", inst.Name)
	return nil
}

// find resolves an installation by title key and name, matching the
// Steam pseudo-installation by its display name.
func (a *app) find(ctx context.Context, gameKey, name string) (installs.Installation, error) {
	game, ok := games.ByKey(gameKey)
	if !ok {
		return installs.Installation{}, fmt.Errorf("unknown game %q", gameKey)
	}
	if name == "" {
		return installs.Installation{}, errors.New("-name is required")
	}
	for _, inst := range a.store.List(ctx, game) {
		if strings.EqualFold(inst.Name, name) {
			return inst, nil
		}
	}
	return installs.Installation{}, fmt.Errorf("no installation named %q", name)
}

// consoleSink prints download progress to stdout.
type consoleSink struct{}

func (consoleSink) Status(msg string)    { fmt.Println(msg) }
func (consoleSink) Progress(pct float64) { fmt.Printf("\r%5.1f%%", pct) }
func (consoleSink) Log(line string)      { log.Debug().Msg(line) }
