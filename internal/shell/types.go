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
	"fmt"
	"os"
)

// Stream identifies one of a process's standard streams.
type Stream int

const (
	// Stdin is the process's standard input.
	Stdin Stream = iota
	// Stdout is the process's standard output.
	Stdout
	// Stderr is the process's standard error.
	Stderr
)

// String returns the conventional name of the stream.
func (s Stream) String() string {
	switch s {
	case Stdin:
		return "stdin"
	case Stdout:
		return "stdout"
	case Stderr:
		return "stderr"
	default:
		return fmt.Sprintf("stream(%d)", int(s))
	}
}

type policyKind int

const (
	policyUnset policyKind = iota
	policyInherit
	policyCapture
	policyDiscard
	policyFile
	policyMergeStdout
)

// StreamPolicy decides what a process stream is connected to.
type StreamPolicy struct {
	kind policyKind
	file *os.File
}

var (
	// Inherit connects the stream to the calling process's own stream.
	Inherit = StreamPolicy{kind: policyInherit}
	// Capture connects the stream to a pipe drained or fed by the multiplexer.
	Capture = StreamPolicy{kind: policyCapture}
	// Discard connects the stream to the null device.
	Discard = StreamPolicy{kind: policyDiscard}
	// MergeStdout sends stderr wherever stdout goes. Only valid for stderr.
	MergeStdout = StreamPolicy{kind: policyMergeStdout}
)

// Redirect connects the stream directly to f.
func Redirect(
	f *os.File,
) StreamPolicy {
	return StreamPolicy{kind: policyFile, file: f}
}

// String describes the policy.
func (p StreamPolicy) String() string {
	switch p.kind {
	case policyInherit:
		return "inherit"
	case policyCapture:
		return "capture"
	case policyDiscard:
		return "discard"
	case policyFile:
		if p.file == nil {
			return "redirect(<nil>)"
		}
		return "redirect(" + p.file.Name() + ")"
	case policyMergeStdout:
		return "merge-stdout"
	default:
		return "unset"
	}
}

// OutputObserver receives every chunk read from a captured stdout or stderr,
// followed by exactly one nil chunk when the stream reaches end of file.
type OutputObserver func(cmd *Command, stream Stream, chunk []byte)

// ExitObserver receives the final Result once a command or pipeline has
// terminated.
type ExitObserver func(cmd *Command, res *Result)

// RunObserver is invoked immediately before a process is spawned.
type RunObserver func(cmd *Command)
