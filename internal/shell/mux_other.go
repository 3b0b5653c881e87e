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

//go:build !unix

package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Without poll(2) the streams are copied by goroutines, so chunks cannot be
// delivered to observers from a single readiness loop.
const observersSupported = false

// platformState tracks the copy goroutines so an interrupted run can be
// resumed without starting them again.
type platformState struct {
	done chan struct{}
	errs []error
}

func (m *multiplexer) run(
	ctx context.Context,
) error {
	if m.platform.done == nil {
		m.start()
	}

	for {
		wait, bounded, err := m.wait(ctx)
		if err != nil {
			return err
		}

		var timer <-chan time.Time
		if bounded {
			timer = time.After(wait)
		}

		select {
		case <-m.platform.done:
			*m.stdin = nil
			closeFile(m.stdout)
			closeFile(m.stderr)
			return errors.Join(m.platform.errs...)
		case <-timer:
		}
	}
}

func (m *multiplexer) start() {
	var wg sync.WaitGroup
	errs := make([]error, 3)
	m.platform.errs = errs

	if *m.stdin != nil {
		if len(m.input) == 0 {
			closeFile(m.stdin)
		} else {
			w := *m.stdin
			wg.Add(1)
			go func() {
				defer wg.Done()
				n, err := w.Write(m.input)
				m.offset = n
				_ = w.Close()
				if err != nil && !errors.Is(err, os.ErrClosed) && !isBrokenPipe(err) {
					errs[0] = fmt.Errorf("writing stdin: %w", err)
				}
			}()
		}
	}

	drain := func(i int, stream Stream, f *os.File, buf *bytes.Buffer) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := io.Copy(buf, f); err != nil {
				errs[i] = fmt.Errorf("reading %s: %w", stream, err)
			}
		}()
	}
	if *m.stdout != nil {
		m.outBuf = new(bytes.Buffer)
		drain(1, Stdout, *m.stdout, m.outBuf)
	}
	if *m.stderr != nil {
		m.errBuf = new(bytes.Buffer)
		drain(2, Stderr, *m.stderr, m.errBuf)
	}

	done := make(chan struct{})
	m.platform.done = done
	go func() {
		wg.Wait()
		close(done)
	}()
}

func exitStatus(
	state *os.ProcessState,
) int {
	if state == nil {
		return -1
	}

	return state.ExitCode()
}
