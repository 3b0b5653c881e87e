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

//go:build unix

package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

const observersSupported = true

type muxStream struct {
	stream Stream
	file   **os.File
	fd     int
}

// platformState is empty: the poll loop keeps no state beyond the
// multiplexer's buffers and input offset.
type platformState struct{}

// run polls the open streams until every one of them is closed. Streams
// closed by an earlier, interrupted run stay closed, so run may be called
// again to resume.
func (m *multiplexer) run(
	ctx context.Context,
) error {
	if *m.stdin != nil && m.offset >= len(m.input) {
		closeFile(m.stdin)
	}

	var streams []*muxStream
	register := func(stream Stream, f **os.File) error {
		if *f == nil {
			return nil
		}
		fd, err := rawFd(*f)
		if err != nil {
			return fmt.Errorf("registering %s: %w", stream, err)
		}
		streams = append(streams, &muxStream{stream: stream, file: f, fd: fd})

		return nil
	}

	if err := register(Stdin, m.stdin); err != nil {
		return err
	}
	if *m.stdout != nil && m.outBuf == nil {
		m.outBuf = new(bytes.Buffer)
	}
	if err := register(Stdout, m.stdout); err != nil {
		return err
	}
	if *m.stderr != nil && m.errBuf == nil {
		m.errBuf = new(bytes.Buffer)
	}
	if err := register(Stderr, m.stderr); err != nil {
		return err
	}

	chunk := make([]byte, readChunkSize)
	for len(streams) > 0 {
		wait, bounded, err := m.wait(ctx)
		if err != nil {
			return err
		}
		timeout := -1
		if bounded {
			// Round up so a sub-millisecond remainder does not spin.
			timeout = int((wait + 999_999) / 1_000_000)
		}

		fds := make([]unix.PollFd, len(streams))
		for i, s := range streams {
			events := int16(unix.POLLIN)
			if s.stream == Stdin {
				events = unix.POLLOUT
			}
			fds[i] = unix.PollFd{Fd: int32(s.fd), Events: events}
		}

		n, err := unix.Poll(fds, timeout)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return fmt.Errorf("polling streams: %w", err)
		}
		if n == 0 {
			continue
		}

		var open []*muxStream
		for i, s := range streams {
			revents := fds[i].Revents
			if revents == 0 {
				open = append(open, s)
				continue
			}
			if revents&unix.POLLNVAL != 0 {
				return fmt.Errorf("polling %s: invalid descriptor", s.stream)
			}

			var done bool
			if s.stream == Stdin {
				done, err = m.writeInput(s)
			} else {
				done, err = m.readOutput(s, chunk)
			}
			if err != nil {
				return err
			}
			if !done {
				open = append(open, s)
			}
		}
		streams = open
	}

	return nil
}

// writeInput writes the next bounded chunk of input. done reports that stdin
// was closed, either because the input is exhausted or because the child
// stopped reading.
func (m *multiplexer) writeInput(
	s *muxStream,
) (bool, error) {
	end := min(m.offset+writeChunkSize, len(m.input))
	n, err := unix.Write(s.fd, m.input[m.offset:end])
	if n > 0 {
		m.offset += n
	}

	switch {
	case errors.Is(err, unix.EAGAIN), errors.Is(err, unix.EINTR):
		return false, nil
	case errors.Is(err, unix.EPIPE):
		closeFile(s.file)
		return true, nil
	case err != nil:
		return false, fmt.Errorf("writing stdin: %w", err)
	}

	if m.offset >= len(m.input) {
		closeFile(s.file)
		return true, nil
	}

	return false, nil
}

// readOutput reads one chunk. A zero-byte read is end of stream: observers
// receive a nil chunk and the stream is closed.
func (m *multiplexer) readOutput(
	s *muxStream,
	chunk []byte,
) (bool, error) {
	n, err := unix.Read(s.fd, chunk)
	switch {
	case errors.Is(err, unix.EAGAIN), errors.Is(err, unix.EINTR):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("reading %s: %w", s.stream, err)
	}

	if n <= 0 {
		m.notify(s.stream, nil)
		closeFile(s.file)
		return true, nil
	}

	data := chunk[:n]
	m.buffer(s.stream).Write(data)
	m.notify(s.stream, bytes.Clone(data))

	return false, nil
}

// rawFd returns the descriptor behind f switched to non-blocking mode.
func rawFd(
	f *os.File,
) (int, error) {
	sc, err := f.SyscallConn()
	if err != nil {
		return -1, err
	}

	fd := -1
	var setErr error
	if err := sc.Control(func(raw uintptr) {
		fd = int(raw)
		setErr = unix.SetNonblock(fd, true)
	}); err != nil {
		return -1, err
	}
	if setErr != nil {
		return -1, setErr
	}

	return fd, nil
}

// exitStatus reports a signalled process as the negated signal number.
func exitStatus(
	state *os.ProcessState,
) int {
	if state == nil {
		return -1
	}

	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return -int(ws.Signal())
	}

	return state.ExitCode()
}
