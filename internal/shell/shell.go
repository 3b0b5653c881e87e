// Copyright (c) 2026 John Dewey

// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to
// deal in the Software without restriction, including without limitation the
// rights to use, copy, modify, merge, publish, distribute, sublicense, and/or
// sell copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:

// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.

// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING
// FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER
// DEALINGS IN THE SOFTWARE.

package shell

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/retr0h/whelk/internal/lookup"
)

// Shell resolves command names and hands out Commands that share its
// configuration. A Shell holds no per-call state and is safe for concurrent
// use.
type Shell struct {
	logger      *slog.Logger
	finder      lookup.Finder
	config      Config
	instruments *instruments
}

var (
	// DefaultShell runs commands immediately.
	DefaultShell = New(slog.Default(), lookup.New(afero.NewOsFs(), ""), DefaultConfig())
	// DefaultPipe builds deferred commands for pipelines.
	DefaultPipe = NewPipe(slog.Default(), lookup.New(afero.NewOsFs(), ""), DefaultConfig())
)

// New creates a Shell. The configuration is copied.
func New(
	logger *slog.Logger,
	finder lookup.Finder,
	config Config,
) *Shell {
	return &Shell{
		logger:      logger,
		finder:      finder,
		config:      config.clone(),
		instruments: newInstruments(),
	}
}

// NewPipe creates a Shell whose commands defer by default.
func NewPipe(
	logger *slog.Logger,
	finder lookup.Finder,
	config Config,
) *Shell {
	config.Defer = true

	return New(logger, finder, config)
}

// Config returns a copy of the shell's defaults.
func (s *Shell) Config() Config {
	return s.config.clone()
}

// Command resolves name into a fresh, uncalled Command.
func (s *Shell) Command(
	name string,
) (*Command, error) {
	path, err := s.finder.Find(name)
	if err != nil {
		return nil, fmt.Errorf("resolving %q: %w", name, err)
	}

	return &Command{
		id:    uuid.New(),
		shell: s,
		name:  name,
		path:  path,
		index: -1,
	}, nil
}

// Run resolves name and calls it with args.
func (s *Shell) Run(
	ctx context.Context,
	name string,
	args []string,
	opts ...Option,
) (*Result, error) {
	cmd, err := s.Command(name)
	if err != nil {
		return nil, err
	}

	return cmd.Call(ctx, args, opts...)
}

// Defer resolves name and calls it in deferred mode so it can be chained.
func (s *Shell) Defer(
	ctx context.Context,
	name string,
	args []string,
	opts ...Option,
) (*Command, error) {
	cmd, err := s.Command(name)
	if err != nil {
		return nil, err
	}

	opts = append(opts, WithDefer(true))
	if _, err := cmd.Call(ctx, args, opts...); err != nil {
		return nil, err
	}

	return cmd, nil
}

// Chain links cmds left to right and returns the tail.
func (s *Shell) Chain(
	cmds ...*Command,
) (*Command, error) {
	if len(cmds) == 0 {
		return nil, fmt.Errorf("%w: empty pipeline", ErrNotChainable)
	}

	tail := cmds[0]
	for _, next := range cmds[1:] {
		var err error
		tail, err = tail.Chain(next)
		if err != nil {
			return nil, err
		}
	}

	return tail, nil
}

// Pipeline runs the tail of a linked chain. See RunPipeline.
func (s *Shell) Pipeline(
	ctx context.Context,
	tail *Command,
) (*Result, error) {
	return RunPipeline(ctx, tail)
}
