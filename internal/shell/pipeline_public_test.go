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

package shell_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/suite"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/retr0h/whelk/internal/lookup"
	"github.com/retr0h/whelk/internal/shell"
)

type PipelinePublicTestSuite struct {
	suite.Suite

	ctx  context.Context
	pipe *shell.Shell
	sh   *shell.Shell
}

func (s *PipelinePublicTestSuite) SetupTest() {
	s.ctx = context.Background()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	finder := lookup.New(afero.NewOsFs(), "")
	s.pipe = shell.NewPipe(logger, finder, shell.DefaultConfig())
	s.sh = shell.New(logger, finder, shell.DefaultConfig())
}

// deferred resolves and calls name in deferred mode.
func (s *PipelinePublicTestSuite) deferred(
	name string,
	args []string,
	opts ...shell.Option,
) *shell.Command {
	cmd, err := s.pipe.Command(name)
	s.Require().NoError(err)

	res, err := cmd.Call(s.ctx, args, opts...)
	s.Require().NoError(err)
	s.Require().Nil(res)
	s.Require().True(cmd.Deferred())

	return cmd
}

func (s *PipelinePublicTestSuite) TestRoundTrip() {
	text := []byte("the quick brown fox jumps over the lazy dog\n")

	tests := []struct {
		name   string
		input  []byte
		stages func() []*shell.Command
	}{
		{
			name:  "when input is empty returns empty output",
			input: []byte{},
			stages: func() []*shell.Command {
				return []*shell.Command{
					s.deferred("tr", []string{"a-z", "b-za"}),
					s.deferred("tr", []string{"b-za", "a-z"}),
				}
			},
		},
		{
			name:  "when shifted and unshifted returns the input",
			input: text,
			stages: func() []*shell.Command {
				return []*shell.Command{
					s.deferred("tr", []string{"a-z", "b-za"}, shell.WithInput(text)),
					s.deferred("tr", []string{"b-za", "a-z"}),
				}
			},
		},
		{
			name:  "when payload far exceeds pipe buffers through three stages",
			input: bytes.Repeat(text, (16<<20)/len(text)),
			stages: func() []*shell.Command {
				big := bytes.Repeat(text, (16<<20)/len(text))

				return []*shell.Command{
					s.deferred("tr", []string{"a-z", "b-za"}, shell.WithInput(big)),
					s.deferred("tr", []string{"b-za", "a-z"}),
					s.deferred("cat", nil),
				}
			},
		},
	}

	for _, tc := range tests {
		s.Run(tc.name, func() {
			stages := tc.stages()

			tail, err := s.pipe.Chain(stages...)
			s.Require().NoError(err)
			s.Same(stages[len(stages)-1], tail)
			s.Equal(len(stages), tail.Stages())

			res, err := s.pipe.Pipeline(s.ctx, tail)
			s.Require().NoError(err)

			s.True(res.IsPipeline())
			s.Equal(make([]int, len(stages)), res.ExitCodes())
			s.Equal(len(tc.input), len(res.Stdout()))
			s.True(bytes.Equal(tc.input, res.Stdout()))
		})
	}
}

func (s *PipelinePublicTestSuite) TestStatuses() {
	tests := []struct {
		name         string
		stages       func() []*shell.Command
		validateFunc func(*shell.Result, error)
	}{
		{
			name: "when stages fail statuses are ordered head to tail",
			stages: func() []*shell.Command {
				return []*shell.Command{
					s.deferred("sh", []string{"-c", "exit 1"}),
					s.deferred("sh", []string{"-c", "cat >/dev/null; exit 2"}),
					s.deferred("sh", []string{"-c", "cat >/dev/null"}),
				}
			},
			validateFunc: func(res *shell.Result, err error) {
				s.NoError(err)
				s.Equal([]int{1, 2, 0}, res.ExitCodes())
				s.Equal(2, res.ExitCode())
				s.False(res.Success())
			},
		},
		{
			name: "when raise on error and a middle stage fails returns command failed",
			stages: func() []*shell.Command {
				return []*shell.Command{
					s.deferred("echo", []string{"x"}),
					s.deferred("sh", []string{"-c", "cat >/dev/null; exit 4"}),
					s.deferred("cat", nil, shell.WithRaiseOnError(true)),
				}
			},
			validateFunc: func(res *shell.Result, err error) {
				var failed *shell.CommandFailedError
				s.Require().ErrorAs(err, &failed)
				s.Same(res, failed.Result)
				s.Contains(err.Error(), "[0 4 0]")
			},
		},
		{
			name: "when head carries input tail sees it",
			stages: func() []*shell.Command {
				return []*shell.Command{
					s.deferred("cat", nil, shell.WithInputString("whelk\n")),
					s.deferred("tr", []string{"a-z", "A-Z"}),
				}
			},
			validateFunc: func(res *shell.Result, err error) {
				s.NoError(err)
				s.Equal("WHELK\n", string(res.Stdout()))
			},
		},
		{
			name: "when head has no input it sees end of file",
			stages: func() []*shell.Command {
				return []*shell.Command{
					s.deferred("cat", nil),
					s.deferred("wc", []string{"-c"}),
				}
			},
			validateFunc: func(res *shell.Result, err error) {
				s.NoError(err)
				s.Equal("0", string(bytes.TrimSpace(res.Stdout())))
			},
		},
		{
			name: "when intermediate stage writes stderr it is not captured",
			stages: func() []*shell.Command {
				return []*shell.Command{
					s.deferred("sh", []string{"-c", "echo middle >&2; echo ok"}),
					s.deferred("cat", nil),
				}
			},
			validateFunc: func(res *shell.Result, err error) {
				s.NoError(err)
				s.Equal("ok\n", string(res.Stdout()))
				s.NotNil(res.Stderr())
				s.Empty(res.Stderr())
			},
		},
		{
			name: "when tail stops reading early head is not blocked",
			stages: func() []*shell.Command {
				return []*shell.Command{
					s.deferred("cat", nil, shell.WithInput(bytes.Repeat([]byte("y\n"), 1<<20))),
					s.deferred("head", []string{"-n", "1"}),
				}
			},
			validateFunc: func(res *shell.Result, err error) {
				s.NoError(err)
				s.Equal("y\n", string(res.Stdout()))
				s.Equal(0, res.ExitCodes()[1])
			},
		},
	}

	for _, tc := range tests {
		s.Run(tc.name, func() {
			tail, err := s.pipe.Chain(tc.stages()...)
			s.Require().NoError(err)

			res, err := shell.RunPipeline(s.ctx, tail)
			tc.validateFunc(res, err)
		})
	}
}

func (s *PipelinePublicTestSuite) TestSingleStage() {
	cmd := s.deferred("echo", []string{"alone"})

	res, err := shell.RunPipeline(s.ctx, cmd)
	s.Require().NoError(err)
	s.True(res.IsPipeline())
	s.Equal([]int{0}, res.ExitCodes())
	s.Equal("alone\n", string(res.Stdout()))
}

func (s *PipelinePublicTestSuite) TestChainErrors() {
	tests := []struct {
		name    string
		setup   func() (left *shell.Command, right *shell.Command, cleanup func())
		wantErr error
	}{
		{
			name: "when left is nil",
			setup: func() (*shell.Command, *shell.Command, func()) {
				return nil, s.deferred("cat", nil), nil
			},
			wantErr: shell.ErrNotChainable,
		},
		{
			name: "when right is nil",
			setup: func() (*shell.Command, *shell.Command, func()) {
				return s.deferred("cat", nil), nil, nil
			},
			wantErr: shell.ErrNotChainable,
		},
		{
			name: "when left was never called",
			setup: func() (*shell.Command, *shell.Command, func()) {
				left, err := s.pipe.Command("echo")
				s.Require().NoError(err)

				return left, s.deferred("cat", nil), nil
			},
			wantErr: shell.ErrNotCallableYet,
		},
		{
			name: "when right was never called",
			setup: func() (*shell.Command, *shell.Command, func()) {
				right, err := s.pipe.Command("cat")
				s.Require().NoError(err)

				return s.deferred("echo", nil), right, nil
			},
			wantErr: shell.ErrNotCallableYet,
		},
		{
			name: "when left ran immediately",
			setup: func() (*shell.Command, *shell.Command, func()) {
				left, err := s.sh.Command("true")
				s.Require().NoError(err)
				_, err = left.Call(s.ctx, nil)
				s.Require().NoError(err)

				return left, s.deferred("cat", nil), nil
			},
			wantErr: shell.ErrNotChainable,
		},
		{
			name: "when chained to itself",
			setup: func() (*shell.Command, *shell.Command, func()) {
				cmd := s.deferred("cat", nil)

				return cmd, cmd, nil
			},
			wantErr: shell.ErrAlreadyChained,
		},
		{
			name: "when left already has a successor",
			setup: func() (*shell.Command, *shell.Command, func()) {
				left := s.deferred("cat", nil)
				first := s.deferred("cat", nil)
				_, err := left.Chain(first)
				s.Require().NoError(err)

				return left, s.deferred("cat", nil), func() { s.NoError(first.Kill()) }
			},
			wantErr: shell.ErrAlreadyChained,
		},
		{
			name: "when right already belongs to a pipeline",
			setup: func() (*shell.Command, *shell.Command, func()) {
				head := s.deferred("cat", nil)
				right := s.deferred("cat", nil)
				_, err := head.Chain(right)
				s.Require().NoError(err)

				return s.deferred("echo", nil), right, func() { s.NoError(right.Kill()) }
			},
			wantErr: shell.ErrAlreadyChained,
		},
	}

	for _, tc := range tests {
		s.Run(tc.name, func() {
			left, right, cleanup := tc.setup()
			if cleanup != nil {
				defer cleanup()
			}
			leftPid, rightPid := pid(left), pid(right)

			tail, err := shell.Chain(left, right)
			s.Nil(tail)
			s.ErrorIs(err, tc.wantErr)
			s.ErrorIs(err, shell.ErrChaining)

			s.Equal(leftPid, pid(left))
			s.Equal(rightPid, pid(right))
		})
	}
}

func (s *PipelinePublicTestSuite) TestChainConflictingInput() {
	left := s.deferred("echo", []string{"a"})
	right := s.deferred("cat", nil, shell.WithInputString("b"))

	tail, err := left.Chain(right)
	s.Nil(tail)
	s.ErrorIs(err, shell.ErrConflictingInput)
	s.ErrorIs(err, shell.ErrChaining)

	s.Zero(left.Pid())
	s.Zero(right.Pid())
}

func (s *PipelinePublicTestSuite) TestRunPipelineErrors() {
	tests := []struct {
		name    string
		tail    func() (*shell.Command, func())
		wantErr error
	}{
		{
			name: "when tail is nil",
			tail: func() (*shell.Command, func()) {
				return nil, nil
			},
			wantErr: shell.ErrNotChainable,
		},
		{
			name: "when tail was never called",
			tail: func() (*shell.Command, func()) {
				cmd, err := s.pipe.Command("cat")
				s.Require().NoError(err)

				return cmd, nil
			},
			wantErr: shell.ErrNotCallableYet,
		},
		{
			name: "when tail ran immediately",
			tail: func() (*shell.Command, func()) {
				cmd, err := s.sh.Command("true")
				s.Require().NoError(err)
				_, err = cmd.Call(s.ctx, nil)
				s.Require().NoError(err)

				return cmd, nil
			},
			wantErr: shell.ErrNotChainable,
		},
		{
			name: "when command is not the tail",
			tail: func() (*shell.Command, func()) {
				head := s.deferred("echo", nil)
				tail := s.deferred("cat", nil)
				_, err := head.Chain(tail)
				s.Require().NoError(err)

				return head, func() { s.NoError(tail.Kill()) }
			},
			wantErr: shell.ErrAlreadyChained,
		},
		{
			name: "when pipeline already ran",
			tail: func() (*shell.Command, func()) {
				cmd := s.deferred("true", nil)
				_, err := shell.RunPipeline(s.ctx, cmd)
				s.Require().NoError(err)

				return cmd, nil
			},
			wantErr: shell.ErrAlreadyCalled,
		},
	}

	for _, tc := range tests {
		s.Run(tc.name, func() {
			tail, cleanup := tc.tail()
			if cleanup != nil {
				defer cleanup()
			}

			res, err := shell.RunPipeline(s.ctx, tail)
			s.Nil(res)
			s.ErrorIs(err, tc.wantErr)
		})
	}
}

func (s *PipelinePublicTestSuite) TestTimeout() {
	head := s.deferred("sleep", []string{"5"})
	tail := s.deferred("cat", nil, shell.WithTimeout(100*time.Millisecond))

	_, err := head.Chain(tail)
	s.Require().NoError(err)

	res, err := shell.RunPipeline(s.ctx, tail)
	s.Nil(res)

	var expired *shell.TimeoutExpiredError
	s.Require().ErrorAs(err, &expired)
	s.ErrorIs(err, context.DeadlineExceeded)

	s.NotZero(head.Pid())
	s.NotZero(tail.Pid())
	s.NoError(tail.Kill())
}

func (s *PipelinePublicTestSuite) TestWaitAfterTimeout() {
	head := s.deferred("sh", []string{"-c", "echo partial; sleep 1; echo rest"})
	mid := s.deferred("cat", nil)
	tail := s.deferred("tr", []string{"a-z", "A-Z"}, shell.WithTimeout(200*time.Millisecond))

	_, err := s.pipe.Chain(head, mid, tail)
	s.Require().NoError(err)

	res, err := shell.RunPipeline(s.ctx, tail)
	s.Nil(res)
	var expired *shell.TimeoutExpiredError
	s.Require().ErrorAs(err, &expired)

	_, err = mid.Wait(s.ctx)
	s.ErrorIs(err, shell.ErrNotWaitable)

	res, err = tail.Wait(s.ctx)
	s.Require().NoError(err)
	s.True(res.IsPipeline())
	s.Equal([]int{0, 0, 0}, res.ExitCodes())
	s.Equal("PARTIAL\nREST\n", string(res.Stdout()))

	_, err = shell.RunPipeline(s.ctx, tail)
	s.ErrorIs(err, shell.ErrAlreadyCalled)
}

func (s *PipelinePublicTestSuite) TestChainPropagatesTrace() {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0x0a, 0xf7, 0x65, 0x19, 0x16, 0xcd, 0x43, 0xdd},
		SpanID:     trace.SpanID{0xb7, 0xad, 0x6b, 0x71, 0x69, 0x20, 0x33, 0x31},
		TraceFlags: trace.FlagsSampled,
		Remote:     true,
	})
	ctx := trace.ContextWithRemoteSpanContext(s.ctx, sc)

	head, err := s.pipe.Command("sh")
	s.Require().NoError(err)
	_, err = head.Call(ctx, []string{"-c", `printf %s "$TRACEPARENT"`})
	s.Require().NoError(err)

	tail := s.deferred("cat", nil)
	_, err = head.Chain(tail)
	s.Require().NoError(err)

	res, err := shell.RunPipeline(s.ctx, tail)
	s.Require().NoError(err)
	s.Equal("00-"+sc.TraceID().String()+"-"+sc.SpanID().String()+"-01", string(res.Stdout()))
}

func (s *PipelinePublicTestSuite) TestObservers() {
	var (
		exits []*shell.Result
		runs  []string
		out   bytes.Buffer
	)
	record := shell.WithRunObserver(func(cmd *shell.Command) {
		runs = append(runs, cmd.Name())
	})

	head := s.deferred("printf", []string{"abc"}, record)
	tail := s.deferred(
		"tr",
		[]string{"a-z", "A-Z"},
		record,
		shell.WithOutputObserver(func(_ *shell.Command, stream shell.Stream, chunk []byte) {
			if stream == shell.Stdout {
				out.Write(chunk)
			}
		}),
		shell.WithExitObserver(func(_ *shell.Command, res *shell.Result) {
			exits = append(exits, res)
		}),
	)

	_, err := head.Chain(tail)
	s.Require().NoError(err)
	s.Equal([]string{"printf"}, runs)

	res, err := shell.RunPipeline(s.ctx, tail)
	s.Require().NoError(err)

	s.Equal([]string{"printf", "tr"}, runs)
	s.Require().Len(exits, 1)
	s.Same(res, exits[0])
	s.Equal([]int{0, 0}, exits[0].ExitCodes())
	s.Equal("ABC", out.String())
}

func (s *PipelinePublicTestSuite) TestShellDefer() {
	head, err := s.sh.Defer(s.ctx, "echo", []string{"deferred"})
	s.Require().NoError(err)
	s.True(head.Deferred())

	tail, err := s.sh.Defer(s.ctx, "cat", nil)
	s.Require().NoError(err)

	tail, err = s.sh.Chain(head, tail)
	s.Require().NoError(err)

	res, err := s.sh.Pipeline(s.ctx, tail)
	s.Require().NoError(err)
	s.Equal("deferred\n", string(res.Stdout()))

	_, err = s.sh.Chain()
	s.ErrorIs(err, shell.ErrNotChainable)
}

// pid returns the process id of cmd, or zero for a nil command.
func pid(
	cmd *shell.Command,
) int {
	if cmd == nil {
		return 0
	}

	return cmd.Pid()
}

func TestPipelinePublicTestSuite(t *testing.T) {
	suite.Run(t, new(PipelinePublicTestSuite))
}
