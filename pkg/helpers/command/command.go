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

// Package command provides an abstraction over exec.Command for testability.
package command

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// StartOptions configures command startup behavior.
type StartOptions struct {
	// Dir is the working directory for the command.
	Dir string
	// Env replaces the command's environment when non-empty.
	Env []string
	// HideWindow prevents a console window from appearing (Windows-only).
	// On non-Windows platforms, this field is ignored.
	HideWindow bool
}

// StreamOptions configures a streamed command run.
type StreamOptions struct {
	// OnLine receives every stdout and stderr line as it is read, in
	// arrival order. Calls are serialized; OnLine is never invoked
	// concurrently with itself.
	OnLine func(line string)
	// Dir is the working directory for the command.
	Dir string
	// HideWindow prevents a console window from appearing (Windows-only).
	HideWindow bool
}

// Executor provides an abstraction over exec.Command for testability.
// This allows commands to be mocked in tests without executing real
// system commands.
type Executor interface {
	// Run executes a command and waits for it to complete.
	Run(ctx context.Context, name string, args ...string) error

	// StartWithOptions starts a command without waiting for it to
	// complete (fire-and-forget), with platform-specific options.
	StartWithOptions(ctx context.Context, opts StartOptions, name string, args ...string) error

	// Stream runs a command with stdin detached and stdout/stderr fully
	// redirected, forwarding every output line to opts.OnLine as it
	// arrives. It blocks until the process exits. Cancelling ctx kills
	// the process and, where the platform allows, its process tree.
	Stream(ctx context.Context, opts StreamOptions, name string, args ...string) error
}

// RealExecutor uses actual exec.Command to execute system commands.
// This is the production implementation used in normal operation.
type RealExecutor struct{}

// Run executes a system command using exec.CommandContext.
//
//nolint:wrapcheck // Wrapping exec errors loses important context
func (*RealExecutor) Run(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

// Stream runs a command and forwards its interleaved stdout/stderr
// lines to opts.OnLine while the process is still running, so callers
// can react to prompts before exit.
func (*RealExecutor) Stream(ctx context.Context, opts StreamOptions, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = opts.Dir
	setProcAttr(cmd, opts.HideWindow)
	cmd.Cancel = func() error {
		return killTree(cmd)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to open stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to open stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", name, err)
	}

	var mu sync.Mutex
	emit := func(line string) {
		if opts.OnLine == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		opts.OnLine(line)
	}

	g := new(errgroup.Group)
	g.Go(func() error { return scanLines(stdout, emit) })
	g.Go(func() error { return scanLines(stderr, emit) })
	if err := g.Wait(); err != nil {
		// A broken pipe just means the process died; the exit status
		// from Wait is what matters.
		log.Debug().Err(err).Str("cmd", name).Msg("output scan ended early")
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("%s exited: %w", name, err)
	}
	return nil
}

func scanLines(r io.Reader, emit func(string)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		emit(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to scan process output: %w", err)
	}
	return nil
}
