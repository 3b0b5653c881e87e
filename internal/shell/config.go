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
	"maps"
	"slices"
	"time"

	"golang.org/x/text/encoding"
)

// Config holds the defaults a Shell applies to every call. It is copied by
// value into each Shell and never mutated afterwards.
type Config struct {
	// Redirect captures every stream the call does not configure explicitly.
	// When false those streams are inherited from the calling process.
	Redirect bool
	// Defer makes calls record their arguments instead of spawning, so the
	// command can be chained into a pipeline.
	Defer bool
	// RaiseOnError turns a nonzero exit status into a CommandFailedError.
	RaiseOnError bool
	// Encoding names the character set of text input and captured output.
	Encoding string
	// Timeout bounds the time spent multiplexing I/O. Zero means no bound.
	Timeout time.Duration
	// Dir is the working directory of spawned processes.
	Dir string
	// Env is added to the inherited environment of spawned processes.
	Env map[string]string
	// OutputObservers are used by calls that register none of their own.
	OutputObservers []OutputObserver
	// ExitObservers are used by calls that register none of their own.
	ExitObservers []ExitObserver
	// RunObservers are used by calls that register none of their own.
	RunObservers []RunObserver
}

// DefaultConfig returns the configuration of an immediate-mode Shell.
func DefaultConfig() Config {
	return Config{
		Redirect: true,
	}
}

func (c Config) clone() Config {
	c.Env = maps.Clone(c.Env)
	c.OutputObservers = slices.Clone(c.OutputObservers)
	c.ExitObservers = slices.Clone(c.ExitObservers)
	c.RunObservers = slices.Clone(c.RunObservers)

	return c
}

// Option configures a single call.
type Option func(*callConfig)

// WithStdin sets the stdin policy.
func WithStdin(
	p StreamPolicy,
) Option {
	return func(c *callConfig) {
		c.stdin = p
	}
}

// WithStdout sets the stdout policy.
func WithStdout(
	p StreamPolicy,
) Option {
	return func(c *callConfig) {
		c.stdout = p
	}
}

// WithStderr sets the stderr policy.
func WithStderr(
	p StreamPolicy,
) Option {
	return func(c *callConfig) {
		c.stderr = p
	}
}

// WithInput sets a byte payload written to stdin.
func WithInput(
	b []byte,
) Option {
	return func(c *callConfig) {
		c.input = slices.Clone(b)
		c.inputText = nil
	}
}

// WithInputString sets a text payload written to stdin. The text is encoded
// with the call's encoding when one is configured.
func WithInputString(
	s string,
) Option {
	return func(c *callConfig) {
		c.input = nil
		c.inputText = &s
	}
}

// WithEncoding sets the character set used for text input and output.
func WithEncoding(
	name string,
) Option {
	return func(c *callConfig) {
		c.encodingName = name
	}
}

// WithRedirect overrides Config.Redirect.
func WithRedirect(
	enabled bool,
) Option {
	return func(c *callConfig) {
		c.redirect = enabled
	}
}

// WithDefer overrides Config.Defer.
func WithDefer(
	enabled bool,
) Option {
	return func(c *callConfig) {
		c.deferred = enabled
	}
}

// WithRaiseOnError overrides Config.RaiseOnError.
func WithRaiseOnError(
	enabled bool,
) Option {
	return func(c *callConfig) {
		c.raiseOnError = enabled
	}
}

// WithTimeout overrides Config.Timeout.
func WithTimeout(
	d time.Duration,
) Option {
	return func(c *callConfig) {
		c.timeout = d
	}
}

// WithDir overrides Config.Dir.
func WithDir(
	dir string,
) Option {
	return func(c *callConfig) {
		c.dir = dir
	}
}

// WithEnv adds environment variables on top of Config.Env.
func WithEnv(
	env map[string]string,
) Option {
	return func(c *callConfig) {
		if c.env == nil {
			c.env = make(map[string]string, len(env))
		}
		maps.Copy(c.env, env)
	}
}

// WithOutputObserver registers fn for every chunk read from stdout or stderr.
func WithOutputObserver(
	fn OutputObserver,
) Option {
	return func(c *callConfig) {
		c.callOutputObservers = append(c.callOutputObservers, fn)
	}
}

// WithExitObserver registers fn for the final Result.
func WithExitObserver(
	fn ExitObserver,
) Option {
	return func(c *callConfig) {
		c.callExitObservers = append(c.callExitObservers, fn)
	}
}

// WithRunObserver registers fn to run just before the process is spawned.
func WithRunObserver(
	fn RunObserver,
) Option {
	return func(c *callConfig) {
		c.callRunObservers = append(c.callRunObservers, fn)
	}
}

// callConfig is the resolved configuration of one call.
type callConfig struct {
	stdin  StreamPolicy
	stdout StreamPolicy
	stderr StreamPolicy

	input        []byte
	inputText    *string
	encodingName string
	encoding     encoding.Encoding

	redirect     bool
	deferred     bool
	raiseOnError bool
	timeout      time.Duration
	dir          string
	env          map[string]string

	callOutputObservers []OutputObserver
	callExitObservers   []ExitObserver
	callRunObservers    []RunObserver

	outputObservers []OutputObserver
	exitObservers   []ExitObserver
	runObservers    []RunObserver
}

// newCallConfig applies opts on top of defaults and validates the result.
func newCallConfig(
	defaults Config,
	opts ...Option,
) (*callConfig, error) {
	c := &callConfig{
		encodingName: defaults.Encoding,
		redirect:     defaults.Redirect,
		deferred:     defaults.Defer,
		raiseOnError: defaults.RaiseOnError,
		timeout:      defaults.Timeout,
		dir:          defaults.Dir,
		env:          maps.Clone(defaults.Env),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.outputObservers = c.callOutputObservers
	if len(c.outputObservers) == 0 {
		c.outputObservers = defaults.OutputObservers
	}
	c.exitObservers = c.callExitObservers
	if len(c.exitObservers) == 0 {
		c.exitObservers = defaults.ExitObservers
	}
	c.runObservers = c.callRunObservers
	if len(c.runObservers) == 0 {
		c.runObservers = defaults.RunObservers
	}

	if len(c.outputObservers) > 0 && !observersSupported {
		return nil, ErrEnvironmentUnsupported
	}

	if err := c.resolveInput(); err != nil {
		return nil, err
	}

	if err := c.resolveStreams(); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *callConfig) resolveStreams() error {
	fallback := Inherit
	if c.redirect {
		fallback = Capture
	}

	if c.stdin.kind == policyUnset && len(c.input) > 0 {
		c.stdin = Capture
	}

	for _, p := range []*StreamPolicy{&c.stdin, &c.stdout, &c.stderr} {
		if p.kind == policyUnset {
			*p = fallback
		}
		if p.kind == policyFile && p.file == nil {
			return fmt.Errorf("%w: redirect to nil file", ErrInvalidStreamPolicy)
		}
	}

	if c.stdin.kind == policyMergeStdout || c.stdout.kind == policyMergeStdout {
		return fmt.Errorf("%w: merge-stdout is only valid for stderr", ErrInvalidStreamPolicy)
	}

	if len(c.input) > 0 && c.stdin.kind != policyCapture {
		return fmt.Errorf("%w: input requires a captured stdin, got %s", ErrInvalidStreamPolicy, c.stdin)
	}

	return nil
}

func (c *callConfig) resolveInput() error {
	if c.encodingName != "" {
		enc, err := lookupEncoding(c.encodingName)
		if err != nil {
			return err
		}
		c.encoding = enc
	}

	if c.inputText != nil {
		b, err := encodeText(c.encoding, *c.inputText)
		if err != nil {
			return fmt.Errorf("encoding input: %w", err)
		}
		c.input = b
		c.inputText = nil
	}

	return nil
}
