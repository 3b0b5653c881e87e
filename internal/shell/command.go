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
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type state int

const (
	stateUnconfigured state = iota
	stateDeferred
	stateSpawned
	stateTerminated
)

// Command is a single-use invocation of one executable. It is created
// uncalled by Shell.Command, configured and started by Call, and, when
// deferred, linked into a pipeline with Chain. A Command is not safe for
// concurrent use.
type Command struct {
	id    uuid.UUID
	shell *Shell
	name  string
	path  string
	args  []string
	cfg   *callConfig
	state state
	proc  *process

	// spanCtx is the span context of the Call, reused when a deferred
	// command is spawned by Chain.
	spanCtx trace.SpanContext

	// mux, pipeline and started describe a run interrupted before its
	// streams were drained; Wait resumes it.
	mux      *multiplexer
	pipeline bool
	started  time.Time

	chain *chain
	index int
}

// ID returns the unique identifier of the command.
func (c *Command) ID() uuid.UUID {
	return c.id
}

// Name returns the name the command was resolved from.
func (c *Command) Name() string {
	return c.name
}

// Path returns the resolved executable path.
func (c *Command) Path() string {
	return c.path
}

// Args returns the arguments recorded by Call.
func (c *Command) Args() []string {
	return slices.Clone(c.args)
}

// Deferred reports whether the command was called in deferred mode.
func (c *Command) Deferred() bool {
	return c.cfg != nil && c.cfg.deferred
}

// Pid returns the process id once the command has been spawned, else zero.
func (c *Command) Pid() int {
	if c.proc == nil {
		return 0
	}

	return c.proc.pid()
}

// String returns the command line.
func (c *Command) String() string {
	if len(c.args) == 0 {
		return c.path
	}

	return c.path + " " + strings.Join(c.args, " ")
}

// Call records args and opts. A deferred command returns a nil Result and
// becomes linkable; otherwise the process is spawned, its I/O driven to
// completion and the Result returned. With raise-on-error set a nonzero exit
// status is reported as a CommandFailedError alongside the Result. A second
// Call fails with ErrAlreadyCalled.
func (c *Command) Call(
	ctx context.Context,
	args []string,
	opts ...Option,
) (*Result, error) {
	if c.state != stateUnconfigured {
		return nil, fmt.Errorf("%q: %w", c.name, ErrAlreadyCalled)
	}

	cfg, err := newCallConfig(c.shell.config, opts...)
	if err != nil {
		return nil, fmt.Errorf("configuring %q: %w", c.name, err)
	}

	c.args = slices.Clone(args)
	c.cfg = cfg
	c.spanCtx = trace.SpanContextFromContext(ctx)

	if cfg.deferred {
		c.state = stateDeferred
		c.shell.logger.DebugContext(
			ctx,
			"deferred command",
			slog.String("command", c.String()),
			slog.String("id", c.id.String()),
		)

		return nil, nil
	}

	return c.execute(ctx)
}

func (c *Command) execute(
	ctx context.Context,
) (*Result, error) {
	c.started = time.Now()
	ctx, span := c.shell.instruments.tracer.Start(ctx, "shell.call", trace.WithAttributes(
		attribute.String("command", c.String()),
		attribute.String("id", c.id.String()),
	))
	defer span.End()

	proc, err := c.spawn(ctx, nil, false)
	if err != nil {
		c.state = stateTerminated
		return nil, recordSpanError(span, err)
	}
	c.proc = proc
	c.state = stateSpawned

	if err := c.communicate(ctx, &proc.stdin, c.cfg.input); err != nil {
		return nil, recordSpanError(span, err)
	}

	return c.complete(ctx, span)
}

// Wait resumes a call or pipeline run that returned before its streams were
// drained, typically with a TimeoutExpiredError, and completes it. Input not
// yet written and output already captured carry over. The call's timeout no
// longer applies; ctx bounds the wait. Wait fails with ErrNotWaitable when
// there is no interrupted run.
func (c *Command) Wait(
	ctx context.Context,
) (*Result, error) {
	if c.mux == nil || c.state != stateSpawned {
		return nil, fmt.Errorf("%q: %w", c.name, ErrNotWaitable)
	}

	ctx, span := c.shell.instruments.tracer.Start(ctx, "shell.wait", trace.WithAttributes(
		attribute.String("command", c.String()),
		attribute.String("id", c.id.String()),
		attribute.Bool("pipeline", c.pipeline),
	))
	defer span.End()

	c.shell.logger.DebugContext(
		ctx,
		"resuming command",
		slog.String("command", c.String()),
		slog.String("id", c.id.String()),
	)

	c.mux.deadline = time.Time{}
	c.mux.timeout = 0
	if err := c.mux.run(ctx); err != nil {
		return nil, recordSpanError(span, err)
	}

	return c.complete(ctx, span)
}

// communicate multiplexes the command's captured streams, feeding input
// through stdin, which may belong to the head of the command's pipeline.
// The multiplexer stays on the command until the run completes.
func (c *Command) communicate(
	ctx context.Context,
	stdin **os.File,
	input []byte,
) error {
	c.mux = &multiplexer{
		owner:     c,
		observers: c.cfg.outputObservers,
		stdin:     stdin,
		input:     input,
		stdout:    &c.proc.stdout,
		stderr:    &c.proc.stderr,
		timeout:   c.cfg.timeout,
	}
	if c.cfg.timeout > 0 {
		c.mux.deadline = time.Now().Add(c.cfg.timeout)
	}

	return c.mux.run(ctx)
}

// complete collects exit statuses once the streams are drained and
// assembles the Result.
func (c *Command) complete(
	ctx context.Context,
	span trace.Span,
) (*Result, error) {
	m := c.mux
	c.mux = nil

	statuses, err := c.collectStatuses(ctx)
	if err != nil {
		return nil, recordSpanError(span, err)
	}

	res, err := c.buildResult(statuses, c.pipeline, m.captured(m.outBuf), m.captured(m.errBuf))
	if err != nil {
		return nil, recordSpanError(span, err)
	}

	return c.finish(ctx, span, res, c.started)
}

// collectStatuses waits on the command and every predecessor, tail to head,
// and returns their statuses ordered head to tail.
func (c *Command) collectStatuses(
	ctx context.Context,
) ([]int, error) {
	var statuses []int
	for n := c; n != nil; n = n.prev() {
		status, err := n.proc.wait()
		n.proc.closeAll()
		n.state = stateTerminated
		if err != nil {
			return nil, fmt.Errorf("waiting for %q: %w", n.name, err)
		}

		c.shell.instruments.recordExit(ctx, n.path, status)
		c.shell.logger.DebugContext(
			ctx,
			"process exited",
			slog.String("command", n.String()),
			slog.Int("pid", n.proc.pid()),
			slog.Int("exit_code", status),
			slog.Int64("duration_ms", time.Since(n.proc.started).Milliseconds()),
		)

		statuses = append(statuses, status)
	}
	slices.Reverse(statuses)

	return statuses, nil
}

func (c *Command) buildResult(
	statuses []int,
	pipeline bool,
	stdout []byte,
	stderr []byte,
) (*Result, error) {
	stdout, err := decodeOutput(c.cfg.encoding, stdout)
	if err != nil {
		return nil, fmt.Errorf("decoding stdout: %w", err)
	}

	stderr, err = decodeOutput(c.cfg.encoding, stderr)
	if err != nil {
		return nil, fmt.Errorf("decoding stderr: %w", err)
	}

	return newResult(statuses, pipeline, stdout, stderr), nil
}

// finish notifies exit observers and applies the failure policy.
func (c *Command) finish(
	ctx context.Context,
	span trace.Span,
	res *Result,
	start time.Time,
) (*Result, error) {
	for _, fn := range c.cfg.exitObservers {
		fn(c, res)
	}

	c.shell.instruments.recordDuration(ctx, res.IsPipeline(), start)
	span.SetAttributes(attribute.IntSlice("exit_codes", res.ExitCodes()))

	if c.cfg.raiseOnError && !res.Success() {
		err := &CommandFailedError{
			Command: c.String(),
			Result:  res,
		}
		span.SetStatus(codes.Error, err.Error())

		return res, err
	}

	return res, nil
}

// Kill terminates every process spawned for this command and, for a
// pipeline tail, for each of its predecessors. It is meant for cleaning up
// after a TimeoutExpiredError.
func (c *Command) Kill() error {
	var errs []error
	for n := c; n != nil; n = n.prev() {
		if n.proc == nil {
			continue
		}
		if err := n.proc.kill(); err != nil {
			errs = append(errs, err)
		}
		n.state = stateTerminated
	}
	c.mux = nil

	return errors.Join(errs...)
}

func recordSpanError(
	span trace.Span,
	err error,
) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	return err
}
