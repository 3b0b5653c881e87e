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
	"strings"
	"time"
)

var (
	// ErrChaining is wrapped by every misuse of the chaining protocol.
	ErrChaining = errors.New("invalid pipeline chaining")
	// ErrNotCallableYet is returned when a command is linked or run before it was called.
	ErrNotCallableYet = fmt.Errorf("%w: command not called yet", ErrChaining)
	// ErrAlreadyChained is returned when a link slot is already taken.
	ErrAlreadyChained = fmt.Errorf("%w: command already chained", ErrChaining)
	// ErrConflictingInput is returned when the right-hand command carries its own input.
	ErrConflictingInput = fmt.Errorf("%w: cannot chain a command with input", ErrChaining)
	// ErrNotChainable is returned when an operand is not a deferred command.
	ErrNotChainable = fmt.Errorf("%w: command not chainable", ErrChaining)

	// ErrAlreadyCalled is returned when a command is called a second time.
	ErrAlreadyCalled = errors.New("command already called")
	// ErrNotWaitable is returned by Wait when the command has no interrupted run.
	ErrNotWaitable = errors.New("command has no interrupted run to wait for")
	// ErrEnvironmentUnsupported is returned when output observers are
	// requested on a platform without readiness-driven I/O.
	ErrEnvironmentUnsupported = errors.New("output observers are not supported on this platform")
	// ErrInvalidStreamPolicy is returned for stream policies that cannot be honoured.
	ErrInvalidStreamPolicy = errors.New("invalid stream policy")
)

// TimeoutExpiredError is returned when the deadline elapses while I/O is
// still being multiplexed. The processes are left running; Command.Kill
// terminates them.
type TimeoutExpiredError struct {
	// Command is the command line that timed out.
	Command string
	// Timeout is the configured bound, zero when the deadline came from a context.
	Timeout time.Duration
}

// Error implements the error interface.
func (e *TimeoutExpiredError) Error() string {
	if e.Timeout > 0 {
		return fmt.Sprintf("command %q timed out after %s", e.Command, e.Timeout)
	}

	return fmt.Sprintf("command %q timed out", e.Command)
}

// Unwrap lets callers match the error against context.DeadlineExceeded.
func (e *TimeoutExpiredError) Unwrap() error {
	return context.DeadlineExceeded
}

// CommandFailedError is returned when raise-on-error is set and a command,
// or any stage of a pipeline, exits nonzero.
type CommandFailedError struct {
	// Command is the command line of the command or pipeline tail.
	Command string
	// Result carries every exit status and the captured output.
	Result *Result
}

// Error implements the error interface.
func (e *CommandFailedError) Error() string {
	msg := fmt.Sprintf("command %q failed with exit status %s", e.Command, e.Result.statusString())

	stderr := strings.TrimSpace(string(e.Result.Stderr()))
	if stderr != "" {
		msg += ": " + stderr
	}

	return msg
}
