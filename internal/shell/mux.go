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
	"bytes"
	"context"
	"errors"
	"os"
	"time"
)

const (
	// writeChunkSize is PIPE_BUF on Linux: a write of this size to a
	// writable pipe never blocks.
	writeChunkSize = 4096
	readChunkSize  = 32 * 1024

	// cancelPollInterval bounds each wait when only a cancellable context
	// can end the loop.
	cancelPollInterval = 100 * time.Millisecond
)

// multiplexer drives one process's streams to completion. The stream fields
// point at the owner's handles so a stream closed here is cleared there.
type multiplexer struct {
	owner     *Command
	observers []OutputObserver

	stdin  **os.File
	input  []byte
	offset int

	stdout **os.File
	stderr **os.File
	outBuf *bytes.Buffer
	errBuf *bytes.Buffer

	deadline time.Time
	timeout  time.Duration

	platform platformState
}

func (m *multiplexer) notify(
	stream Stream,
	chunk []byte,
) {
	for _, fn := range m.observers {
		fn(m.owner, stream, chunk)
	}
}

func (m *multiplexer) buffer(
	stream Stream,
) *bytes.Buffer {
	if stream == Stderr {
		return m.errBuf
	}

	return m.outBuf
}

func (m *multiplexer) captured(
	b *bytes.Buffer,
) []byte {
	if b == nil {
		return nil
	}
	if b.Len() == 0 {
		return []byte{}
	}

	return b.Bytes()
}

// wait returns how long the next readiness wait may block. bounded is false
// when it may block indefinitely.
func (m *multiplexer) wait(
	ctx context.Context,
) (time.Duration, bool, error) {
	if err := ctx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return 0, false, m.timeoutError()
		}
		return 0, false, err
	}

	deadline := m.deadline
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}

	if deadline.IsZero() {
		if ctx.Done() != nil {
			return cancelPollInterval, true, nil
		}
		return 0, false, nil
	}

	left := time.Until(deadline)
	if left <= 0 {
		return 0, false, m.timeoutError()
	}
	if ctx.Done() != nil && left > cancelPollInterval {
		left = cancelPollInterval
	}

	return left, true, nil
}

func (m *multiplexer) timeoutError() error {
	return &TimeoutExpiredError{
		Command: m.owner.String(),
		Timeout: m.timeout,
	}
}
