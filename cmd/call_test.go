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

package cmd

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/suite"

	"github.com/retr0h/whelk/internal/config"
	"github.com/retr0h/whelk/internal/lookup"
	"github.com/retr0h/whelk/internal/shell"
)

type CallTestSuite struct {
	suite.Suite

	ctx context.Context
}

func TestCallTestSuite(t *testing.T) {
	suite.Run(t, new(CallTestSuite))
}

func (suite *CallTestSuite) SetupTest() {
	suite.ctx = context.Background()
	appConfig = config.Config{}
}

func (suite *CallTestSuite) TearDownTest() {
	appConfig = config.Config{}
	appFs = afero.NewOsFs()
}

func (suite *CallTestSuite) TestSplitStages() {
	tests := []struct {
		name        string
		args        []string
		want        [][]string
		errContains string
	}{
		{
			name: "when single stage",
			args: []string{"ls", "-la"},
			want: [][]string{{"ls", "-la"}},
		},
		{
			name: "when stages separated by pipe",
			args: []string{"sort", "|", "uniq", "-c"},
			want: [][]string{{"sort"}, {"uniq", "-c"}},
		},
		{
			name: "when stages separated by broken bar",
			args: []string{"cat", "¦", "tr", "a-z", "A-Z", "¦", "wc", "-l"},
			want: [][]string{{"cat"}, {"tr", "a-z", "A-Z"}, {"wc", "-l"}},
		},
		{
			name:        "when pipeline starts with separator",
			args:        []string{"|", "cat"},
			errContains: "empty stage 1",
		},
		{
			name:        "when separators repeat",
			args:        []string{"cat", "|", "|", "wc"},
			errContains: "empty stage 2",
		},
		{
			name:        "when pipeline ends with separator",
			args:        []string{"cat", "¦"},
			errContains: "empty stage 2",
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			got, err := splitStages(tc.args)

			if tc.errContains != "" {
				suite.ErrorContains(err, tc.errContains)
				suite.Nil(got)
				return
			}

			suite.NoError(err)
			suite.Equal(tc.want, got)
		})
	}
}

func (suite *CallTestSuite) TestExitCode() {
	sh := shell.New(
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		lookup.New(afero.NewOsFs(), ""),
		shell.DefaultConfig(),
	)

	tests := []struct {
		name   string
		script string
		want   int
	}{
		{
			name:   "when success",
			script: "exit 0",
			want:   0,
		},
		{
			name:   "when exit status",
			script: "exit 5",
			want:   5,
		},
		{
			name:   "when killed by signal",
			script: "kill -9 $$",
			want:   137,
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			res, err := sh.Run(suite.ctx, "sh", []string{"-c", tc.script})
			suite.Require().NoError(err)

			suite.Equal(tc.want, exitCode(res))
		})
	}
}

func (suite *CallTestSuite) TestShellConfig() {
	tests := []struct {
		name         string
		cfg          config.Shell
		flags        callFlags
		changed      []string
		validateFunc func(shell.Config)
	}{
		{
			name: "when no flags changed uses configuration",
			cfg: config.Shell{
				Redirect:     true,
				RaiseOnError: true,
				Encoding:     "latin1",
				Timeout:      time.Minute,
				Dir:          "/tmp",
				Env:          map[string]string{"A": "1"},
			},
			flags: callFlags{raise: false, timeout: time.Second},
			validateFunc: func(cfg shell.Config) {
				suite.True(cfg.Redirect)
				suite.True(cfg.RaiseOnError)
				suite.Equal("latin1", cfg.Encoding)
				suite.Equal(time.Minute, cfg.Timeout)
				suite.Equal("/tmp", cfg.Dir)
				suite.Equal(map[string]string{"A": "1"}, cfg.Env)
				suite.False(cfg.Defer)
			},
		},
		{
			name: "when flags changed override configuration",
			cfg: config.Shell{
				Redirect: true,
				Env:      map[string]string{"A": "1", "B": "1"},
			},
			flags: callFlags{
				noRedirect: true,
				raise:      true,
				encoding:   "utf-8",
				timeout:    time.Second,
				dir:        "/",
				env:        map[string]string{"B": "2"},
			},
			changed: []string{"no-redirect", "raise", "encoding", "timeout", "dir"},
			validateFunc: func(cfg shell.Config) {
				suite.False(cfg.Redirect)
				suite.True(cfg.RaiseOnError)
				suite.Equal("utf-8", cfg.Encoding)
				suite.Equal(time.Second, cfg.Timeout)
				suite.Equal("/", cfg.Dir)
				suite.Equal(map[string]string{"A": "1", "B": "2"}, cfg.Env)
			},
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			appConfig.Shell = tc.cfg
			tc.flags.changed = func(name string) bool {
				for _, c := range tc.changed {
					if c == name {
						return true
					}
				}
				return false
			}

			tc.validateFunc(tc.flags.shellConfig())
		})
	}
}

func (suite *CallTestSuite) TestInputOption() {
	appFs = afero.NewMemMapFs()
	suite.Require().NoError(afero.WriteFile(appFs, "/input.txt", []byte("from file"), 0o644))

	sh := shell.New(
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		lookup.New(afero.NewOsFs(), ""),
		shell.DefaultConfig(),
	)

	tests := []struct {
		name        string
		flags       callFlags
		changed     bool
		want        string
		wantNil     bool
		errContains string
	}{
		{
			name:    "when no input",
			wantNil: true,
		},
		{
			name:    "when input flag set",
			flags:   callFlags{input: "from flag"},
			changed: true,
			want:    "from flag",
		},
		{
			name:    "when input flag set to empty string",
			flags:   callFlags{input: ""},
			changed: true,
			want:    "",
		},
		{
			name:  "when input file set",
			flags: callFlags{inputFile: "/input.txt"},
			want:  "from file",
		},
		{
			name:        "when input file missing",
			flags:       callFlags{inputFile: "/missing.txt"},
			errContains: "reading input file",
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			tc.flags.changed = func(string) bool { return tc.changed }

			opt, err := tc.flags.inputOption(appFs)
			if tc.errContains != "" {
				suite.ErrorContains(err, tc.errContains)
				return
			}
			suite.NoError(err)

			if tc.wantNil {
				suite.Nil(opt)
				return
			}
			suite.Require().NotNil(opt)

			res, err := sh.Run(suite.ctx, "cat", nil, opt)
			suite.Require().NoError(err)
			suite.Equal(tc.want, string(res.Stdout()))
		})
	}
}

func (suite *CallTestSuite) TestReport() {
	var code int
	originalExit := osExit
	osExit = func(c int) { code = c }
	defer func() { osExit = originalExit }()

	sh := shell.New(
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		lookup.New(afero.NewOsFs(), ""),
		shell.DefaultConfig(),
	)

	res, err := sh.Run(suite.ctx, "sh", []string{"-c", "exit 3"})
	suite.Require().NoError(err)

	report(suite.ctx, callFlags{stream: true}, commandOutput{Result: res}, nil)
	suite.Equal(3, code)

	code = 0
	res, err = sh.Run(suite.ctx, "true", nil)
	suite.Require().NoError(err)

	report(suite.ctx, callFlags{stream: true}, commandOutput{Result: res}, nil)
	suite.Zero(code)
}
