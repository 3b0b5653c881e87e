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
	"os"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// chain is an arena of linked commands. Links are indices into nodes, so
// commands never point at each other directly.
type chain struct {
	id    uuid.UUID
	nodes []node
}

type node struct {
	cmd  *Command
	prev int
	next int
}

func newChain(
	head *Command,
) *chain {
	ch := &chain{id: uuid.New()}
	ch.add(head)

	return ch
}

func (ch *chain) add(
	c *Command,
) int {
	ch.nodes = append(ch.nodes, node{cmd: c, prev: -1, next: -1})
	c.chain = ch
	c.index = len(ch.nodes) - 1

	return c.index
}

func (ch *chain) link(
	left int,
	right int,
) {
	ch.nodes[left].next = right
	ch.nodes[right].prev = left
}

func (c *Command) prev() *Command {
	if c.chain == nil {
		return nil
	}

	i := c.chain.nodes[c.index].prev
	if i < 0 {
		return nil
	}

	return c.chain.nodes[i].cmd
}

func (c *Command) next() *Command {
	if c.chain == nil {
		return nil
	}

	i := c.chain.nodes[c.index].next
	if i < 0 {
		return nil
	}

	return c.chain.nodes[i].cmd
}

func (c *Command) head() *Command {
	h := c
	for p := c.prev(); p != nil; p = p.prev() {
		h = p
	}

	return h
}

// Stages returns the length of the pipeline ending at c.
func (c *Command) Stages() int {
	n := 1
	for p := c.prev(); p != nil; p = p.prev() {
		n++
	}

	return n
}

// Chain links right behind c and returns right. Both commands must be
// deferred and already called; c must not have a successor, right must not
// belong to any pipeline yet and must carry no input. On success c's process
// is spawned with its stdout connected to what will become right's stdin.
func (c *Command) Chain(
	right *Command,
) (*Command, error) {
	if err := checkLink(c, right); err != nil {
		return nil, err
	}

	prev := c.prev()
	var upstream *os.File
	if prev != nil {
		upstream = prev.proc.stdout
	}

	ctx := trace.ContextWithSpanContext(context.Background(), c.spanCtx)
	proc, err := c.spawn(ctx, upstream, true)
	if err != nil {
		return nil, err
	}
	c.proc = proc
	c.state = stateSpawned

	if prev != nil {
		closeFile(&prev.proc.stdout)
	} else if len(c.cfg.input) == 0 {
		// The head's pending input is written when the tail runs. Without
		// input the head must see end of file right away.
		closeFile(&proc.stdin)
	}

	ch := c.chain
	if ch == nil {
		ch = newChain(c)
	}
	ch.link(c.index, ch.add(right))

	c.shell.logger.DebugContext(
		ctx,
		"chained commands",
		slog.String("chain", ch.id.String()),
		slog.String("left", c.String()),
		slog.String("right", right.String()),
		slog.Int("stages", right.Stages()),
	)

	return right, nil
}

// Chain links left and right. See Command.Chain.
func Chain(
	left *Command,
	right *Command,
) (*Command, error) {
	if left == nil {
		return nil, fmt.Errorf("%w: nil command", ErrNotChainable)
	}

	return left.Chain(right)
}

func checkLink(
	left *Command,
	right *Command,
) error {
	if left == nil || right == nil {
		return fmt.Errorf("%w: nil command", ErrNotChainable)
	}
	if left == right {
		return fmt.Errorf("%w: %q cannot be chained to itself", ErrAlreadyChained, left.name)
	}

	for _, c := range []*Command{left, right} {
		if c.state == stateUnconfigured {
			return fmt.Errorf("%w: %q", ErrNotCallableYet, c.name)
		}
	}

	for _, c := range []*Command{left, right} {
		if !c.cfg.deferred {
			return fmt.Errorf("%w: %q is not deferred", ErrNotChainable, c.name)
		}
	}

	if left.state != stateDeferred || left.next() != nil {
		return fmt.Errorf("%w: %q already has a successor", ErrAlreadyChained, left.name)
	}
	if right.state != stateDeferred || right.chain != nil {
		return fmt.Errorf("%w: %q already belongs to a pipeline", ErrAlreadyChained, right.name)
	}

	if len(right.cfg.input) > 0 {
		return fmt.Errorf("%w: %q", ErrConflictingInput, right.name)
	}

	return nil
}
