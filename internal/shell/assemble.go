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
	"os"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// RunPipeline spawns tail, the last and still unspawned command of a linked
// chain, drives its I/O to completion while feeding the head's input, then
// collects every stage's exit status head to tail. A deferred command that
// was never chained runs as a one-stage pipeline.
func RunPipeline(
	ctx context.Context,
	tail *Command,
) (*Result, error) {
	switch {
	case tail == nil:
		return nil, fmt.Errorf("%w: nil command", ErrNotChainable)
	case tail.state == stateUnconfigured:
		return nil, fmt.Errorf("%w: %q", ErrNotCallableYet, tail.name)
	case !tail.cfg.deferred:
		return nil, fmt.Errorf("%w: %q is not deferred", ErrNotChainable, tail.name)
	case tail.next() != nil:
		return nil, fmt.Errorf("%w: %q is not the tail of its pipeline", ErrAlreadyChained, tail.name)
	case tail.state != stateDeferred:
		return nil, fmt.Errorf("%q: %w", tail.name, ErrAlreadyCalled)
	}

	return tail.runTail(ctx)
}

func (c *Command) runTail(
	ctx context.Context,
) (*Result, error) {
	c.started = time.Now()
	c.pipeline = true
	attrs := []attribute.KeyValue{
		attribute.String("command", c.String()),
		attribute.Int("stages", c.Stages()),
	}
	if c.chain != nil {
		attrs = append(attrs, attribute.String("chain", c.chain.id.String()))
	}
	ctx, span := c.shell.instruments.tracer.Start(ctx, "shell.pipeline", trace.WithAttributes(attrs...))
	defer span.End()

	prev := c.prev()
	var upstream *os.File
	if prev != nil {
		upstream = prev.proc.stdout
	}

	proc, err := c.spawn(ctx, upstream, false)
	if err != nil {
		c.state = stateTerminated
		if prev != nil {
			_ = prev.Kill()
		}
		return nil, recordSpanError(span, err)
	}
	if prev != nil {
		closeFile(&prev.proc.stdout)
	}
	c.proc = proc
	c.state = stateSpawned

	stdin, input := &proc.stdin, c.cfg.input
	if head := c.head(); head != c {
		stdin, input = &head.proc.stdin, head.cfg.input
	}

	if err := c.communicate(ctx, stdin, input); err != nil {
		return nil, recordSpanError(span, err)
	}

	return c.complete(ctx, span)
}
