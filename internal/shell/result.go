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
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Result is the immutable outcome of a command or a pipeline.
//
// A captured stream that produced no output is an empty, non-nil slice; a
// stream that was not captured is nil.
type Result struct {
	statuses []int
	pipeline bool
	stdout   []byte
	stderr   []byte
}

func newResult(
	statuses []int,
	pipeline bool,
	stdout []byte,
	stderr []byte,
) *Result {
	return &Result{
		statuses: statuses,
		pipeline: pipeline,
		stdout:   stdout,
		stderr:   stderr,
	}
}

// ExitCode returns the exit status of a single command. For a pipeline it
// returns the status of the rightmost failing stage, or zero when every
// stage succeeded.
func (r *Result) ExitCode() int {
	for i := len(r.statuses) - 1; i >= 0; i-- {
		if r.statuses[i] != 0 {
			return r.statuses[i]
		}
	}

	return 0
}

// ExitCodes returns every stage's exit status ordered head to tail. A single
// command yields one element.
func (r *Result) ExitCodes() []int {
	return slices.Clone(r.statuses)
}

// Stdout returns the captured standard output of the command, or of the last
// stage of a pipeline. It is nil when stdout was not captured. The slice is
// a copy.
func (r *Result) Stdout() []byte {
	return slices.Clone(r.stdout)
}

// Stderr returns the captured standard error of the command, or of the last
// stage of a pipeline. It is nil when stderr was not captured. The slice is
// a copy.
func (r *Result) Stderr() []byte {
	return slices.Clone(r.stderr)
}

// IsPipeline reports whether the result came from the pipeline entry point.
func (r *Result) IsPipeline() bool {
	return r.pipeline
}

// Success reports whether every exit status is zero.
func (r *Result) Success() bool {
	for _, s := range r.statuses {
		if s != 0 {
			return false
		}
	}

	return true
}

func (r *Result) statusString() string {
	if !r.pipeline && len(r.statuses) == 1 {
		return fmt.Sprintf("%d", r.statuses[0])
	}

	parts := make([]string, 0, len(r.statuses))
	for _, s := range r.statuses {
		parts = append(parts, fmt.Sprintf("%d", s))
	}

	return "[" + strings.Join(parts, " ") + "]"
}

type resultJSON struct {
	ExitCodes []int   `json:"exit_codes"`
	Success   bool    `json:"success"`
	Stdout    *string `json:"stdout"`
	Stderr    *string `json:"stderr"`
}

// MarshalJSON renders captured output as text and absent streams as null.
func (r *Result) MarshalJSON() ([]byte, error) {
	out := resultJSON{
		ExitCodes: r.ExitCodes(),
		Success:   r.Success(),
	}
	if r.stdout != nil {
		s := string(r.stdout)
		out.Stdout = &s
	}
	if r.stderr != nil {
		s := string(r.stderr)
		out.Stderr = &s
	}

	return json.Marshal(out)
}
