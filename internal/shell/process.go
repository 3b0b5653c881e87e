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
	"os/exec"
	"path/filepath"
	"slices"
	"time"

	"github.com/retr0h/whelk/internal/telemetry"
)

// process is the live OS process behind a spawned Command together with the
// parent-side ends of the pipes connected to it.
type process struct {
	cmd     *exec.Cmd
	stdin   *os.File
	stdout  *os.File
	stderr  *os.File
	started time.Time
	waited  bool
	status  int
}

// spawn starts the command's process. upstream, when set, becomes stdin.
// linked marks a stage whose stdout feeds the next stage: stdout is forced
// into a pipe and a captured stderr is discarded, since only the tail's
// streams are drained.
func (c *Command) spawn(
	ctx context.Context,
	upstream *os.File,
	linked bool,
) (*process, error) {
	cfg := c.cfg
	for _, fn := range cfg.runObservers {
		fn(c)
	}

	cmd := &exec.Cmd{
		Path: c.path,
		Args: append([]string{c.path}, c.args...),
		Dir:  cfg.dir,
		Env:  c.environ(ctx),
	}
	p := &process{cmd: cmd}

	var childEnds []*os.File
	fail := func(err error) (*process, error) {
		closeAll(childEnds)
		p.closeAll()

		return nil, fmt.Errorf("spawning %q: %w", c.name, err)
	}

	stdin := upstream
	if stdin == nil {
		f, created, err := p.wire(Stdin, cfg.stdin)
		if err != nil {
			return fail(err)
		}
		if created {
			childEnds = append(childEnds, f)
		}
		stdin = f
	}

	stdoutPolicy := cfg.stdout
	if linked {
		stdoutPolicy = Capture
	}
	stdout, created, err := p.wire(Stdout, stdoutPolicy)
	if err != nil {
		return fail(err)
	}
	if created {
		childEnds = append(childEnds, stdout)
	}

	var stderr *os.File
	switch {
	case cfg.stderr.kind == policyMergeStdout:
		stderr = stdout
	case linked && cfg.stderr.kind == policyCapture:
		stderr = nil
	default:
		stderr, created, err = p.wire(Stderr, cfg.stderr)
		if err != nil {
			return fail(err)
		}
		if created {
			childEnds = append(childEnds, stderr)
		}
	}

	// A nil *os.File stored in an io.Reader is not a nil interface, so only
	// assign real files and let exec fall back to the null device.
	if stdin != nil {
		cmd.Stdin = stdin
	}
	if stdout != nil {
		cmd.Stdout = stdout
	}
	if stderr != nil {
		cmd.Stderr = stderr
	}

	if err := cmd.Start(); err != nil {
		return fail(err)
	}
	closeAll(childEnds)
	p.started = time.Now()

	c.shell.instruments.recordSpawn(ctx, c.path)
	c.shell.logger.DebugContext(
		ctx,
		"spawned process",
		slog.String("command", c.String()),
		slog.Int("pid", cmd.Process.Pid),
		slog.Bool("linked", linked),
		slog.String("stdin", cfg.stdin.String()),
		slog.String("stdout", stdoutPolicy.String()),
		slog.String("stderr", cfg.stderr.String()),
	)

	return p, nil
}

// wire returns the child-side file for stream under policy. created reports
// whether the file is a pipe end the parent must close after the start.
func (p *process) wire(
	stream Stream,
	policy StreamPolicy,
) (*os.File, bool, error) {
	switch policy.kind {
	case policyInherit:
		switch stream {
		case Stdin:
			return os.Stdin, false, nil
		case Stdout:
			return os.Stdout, false, nil
		default:
			return os.Stderr, false, nil
		}
	case policyDiscard:
		return nil, false, nil
	case policyFile:
		return policy.file, false, nil
	case policyCapture:
		r, w, err := os.Pipe()
		if err != nil {
			return nil, false, fmt.Errorf("creating %s pipe: %w", stream, err)
		}
		switch stream {
		case Stdin:
			p.stdin = w
			return r, true, nil
		case Stdout:
			p.stdout = r
		default:
			p.stderr = r
		}
		return w, true, nil
	default:
		return nil, false, fmt.Errorf("%w: %s for %s", ErrInvalidStreamPolicy, policy, stream)
	}
}

// environ returns nil to inherit the environment untouched, or the inherited
// environment extended with PWD, the configured variables and the trace
// context.
func (c *Command) environ(
	ctx context.Context,
) []string {
	var pwd string
	if c.cfg.dir != "" {
		if abs, err := filepath.Abs(c.cfg.dir); err == nil {
			pwd = abs
		}
	}

	extra := telemetry.InjectTraceContextToEnv(ctx, c.cfg.env)
	if len(extra) == 0 && pwd == "" {
		return nil
	}

	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	env := os.Environ()
	if pwd != "" {
		env = append(env, "PWD="+pwd)
	}
	for _, k := range keys {
		env = append(env, k+"="+extra[k])
	}

	return env
}

func (p *process) pid() int {
	if p.cmd.Process == nil {
		return 0
	}

	return p.cmd.Process.Pid
}

// wait reaps the process once and caches its status.
func (p *process) wait() (int, error) {
	if p.waited {
		return p.status, nil
	}

	err := p.cmd.Wait()
	p.waited = true
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			p.status = -1
			return p.status, fmt.Errorf("waiting for process %d: %w", p.pid(), err)
		}
	}

	p.status = exitStatus(p.cmd.ProcessState)

	return p.status, nil
}

// kill terminates a process that has not been reaped yet.
func (p *process) kill() error {
	defer p.closeAll()

	if p.waited || p.cmd.Process == nil {
		return nil
	}

	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("killing process %d: %w", p.pid(), err)
	}

	_, err := p.wait()

	return err
}

func (p *process) closeAll() {
	closeFile(&p.stdin)
	closeFile(&p.stdout)
	closeFile(&p.stderr)
}

// closeFile closes *f once and clears it.
func closeFile(
	f **os.File,
) {
	if f == nil || *f == nil {
		return
	}

	_ = (*f).Close()
	*f = nil
}

func closeAll(
	files []*os.File,
) {
	for _, f := range files {
		if f != nil {
			_ = f.Close()
		}
	}
}
