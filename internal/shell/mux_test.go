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
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type MultiplexerTestSuite struct {
	suite.Suite
}

func (s *MultiplexerTestSuite) TestWait() {
	tests := []struct {
		name         string
		setup        func() (*multiplexer, context.Context, context.CancelFunc)
		validateFunc func(time.Duration, bool, error)
	}{
		{
			name: "when no deadline and background context blocks indefinitely",
			setup: func() (*multiplexer, context.Context, context.CancelFunc) {
				return &multiplexer{owner: &Command{}}, context.Background(), func() {}
			},
			validateFunc: func(_ time.Duration, bounded bool, err error) {
				s.NoError(err)
				s.False(bounded)
			},
		},
		{
			name: "when cancellable context polls at the cancel interval",
			setup: func() (*multiplexer, context.Context, context.CancelFunc) {
				ctx, cancel := context.WithCancel(context.Background())

				return &multiplexer{owner: &Command{}}, ctx, cancel
			},
			validateFunc: func(wait time.Duration, bounded bool, err error) {
				s.NoError(err)
				s.True(bounded)
				s.Equal(cancelPollInterval, wait)
			},
		},
		{
			name: "when deadline is near waits only until it",
			setup: func() (*multiplexer, context.Context, context.CancelFunc) {
				m := &multiplexer{
					owner:    &Command{},
					deadline: time.Now().Add(50 * time.Millisecond),
				}

				return m, context.Background(), func() {}
			},
			validateFunc: func(wait time.Duration, bounded bool, err error) {
				s.NoError(err)
				s.True(bounded)
				s.LessOrEqual(wait, 50*time.Millisecond)
				s.Positive(wait)
			},
		},
		{
			name: "when deadline passed returns timeout",
			setup: func() (*multiplexer, context.Context, context.CancelFunc) {
				m := &multiplexer{
					owner:    &Command{path: "/bin/sleep", args: []string{"9"}},
					deadline: time.Now().Add(-time.Millisecond),
					timeout:  time.Second,
				}

				return m, context.Background(), func() {}
			},
			validateFunc: func(_ time.Duration, _ bool, err error) {
				var expired *TimeoutExpiredError
				s.Require().ErrorAs(err, &expired)
				s.Equal("/bin/sleep 9", expired.Command)
				s.ErrorIs(err, context.DeadlineExceeded)
				s.Contains(err.Error(), "timed out after 1s")
			},
		},
		{
			name: "when context deadline exceeded returns timeout",
			setup: func() (*multiplexer, context.Context, context.CancelFunc) {
				ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))

				return &multiplexer{owner: &Command{path: "cat"}}, ctx, cancel
			},
			validateFunc: func(_ time.Duration, _ bool, err error) {
				var expired *TimeoutExpiredError
				s.Require().ErrorAs(err, &expired)
				s.Zero(expired.Timeout)
				s.Equal(`command "cat" timed out`, err.Error())
			},
		},
		{
			name: "when context cancelled returns cancellation",
			setup: func() (*multiplexer, context.Context, context.CancelFunc) {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()

				return &multiplexer{owner: &Command{}}, ctx, cancel
			},
			validateFunc: func(_ time.Duration, _ bool, err error) {
				s.ErrorIs(err, context.Canceled)
			},
		},
	}

	for _, tc := range tests {
		s.Run(tc.name, func() {
			m, ctx, cancel := tc.setup()
			defer cancel()

			wait, bounded, err := m.wait(ctx)
			tc.validateFunc(wait, bounded, err)
		})
	}
}

func (s *MultiplexerTestSuite) TestCaptured() {
	m := &multiplexer{}

	s.Nil(m.captured(nil))
	s.Equal([]byte{}, m.captured(new(bytes.Buffer)))
	s.Equal([]byte("x"), m.captured(bytes.NewBufferString("x")))
}

func TestMultiplexerTestSuite(t *testing.T) {
	suite.Run(t, new(MultiplexerTestSuite))
}
