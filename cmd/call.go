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

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/retr0h/whelk/internal/cli"
	"github.com/retr0h/whelk/internal/lookup"
	"github.com/retr0h/whelk/internal/shell"
)

// osExit is replaced in tests.
var osExit = os.Exit

// callFlags are the per-call settings shared by run and pipe.
type callFlags struct {
	input      string
	inputFile  string
	encoding   string
	dir        string
	env        map[string]string
	timeout    time.Duration
	noRedirect bool
	raise      bool
	stream     bool
	summary    bool

	changed func(name string) bool
}

func addCallFlags(
	c *cobra.Command,
) {
	c.Flags().String("input", "", "Text written to the first command's stdin")
	c.Flags().String("input-file", "", "File whose contents are written to the first command's stdin")
	c.Flags().String("encoding", "", "Character encoding of input and output (e.g. latin1)")
	c.Flags().String("dir", "", "Working directory of the spawned processes")
	c.Flags().StringToString("env", nil, "Extra environment variables (KEY=VALUE)")
	c.Flags().Duration("timeout", 0, "Give up waiting for output after this long (e.g. 30s)")
	c.Flags().Bool("no-redirect", false, "Inherit stdout and stderr instead of capturing them")
	c.Flags().Bool("raise", false, "Fail when any exit status is nonzero")
	c.Flags().Bool("stream", false, "Echo output as it arrives instead of after exit")
	c.Flags().Bool("summary", false, "Print exit statuses and output sizes")

	c.MarkFlagsMutuallyExclusive("input", "input-file")
}

func readCallFlags(
	c *cobra.Command,
) callFlags {
	f := callFlags{changed: c.Flags().Changed}
	f.input, _ = c.Flags().GetString("input")
	f.inputFile, _ = c.Flags().GetString("input-file")
	f.encoding, _ = c.Flags().GetString("encoding")
	f.dir, _ = c.Flags().GetString("dir")
	f.env, _ = c.Flags().GetStringToString("env")
	f.timeout, _ = c.Flags().GetDuration("timeout")
	f.noRedirect, _ = c.Flags().GetBool("no-redirect")
	f.raise, _ = c.Flags().GetBool("raise")
	f.stream, _ = c.Flags().GetBool("stream")
	f.summary, _ = c.Flags().GetBool("summary")

	return f
}

// shellConfig merges the configured shell defaults with the flags that were
// set explicitly.
func (f callFlags) shellConfig() shell.Config {
	cfg := shell.DefaultConfig()
	cfg.Redirect = appConfig.Shell.Redirect
	cfg.RaiseOnError = appConfig.Shell.RaiseOnError
	cfg.Encoding = appConfig.Shell.Encoding
	cfg.Timeout = appConfig.Shell.Timeout
	cfg.Dir = appConfig.Shell.Dir
	cfg.Env = appConfig.Shell.Env

	if f.changed("no-redirect") {
		cfg.Redirect = !f.noRedirect
	}
	if f.changed("raise") {
		cfg.RaiseOnError = f.raise
	}
	if f.changed("encoding") {
		cfg.Encoding = f.encoding
	}
	if f.changed("timeout") {
		cfg.Timeout = f.timeout
	}
	if f.changed("dir") {
		cfg.Dir = f.dir
	}
	if len(f.env) > 0 {
		env := make(map[string]string, len(cfg.Env)+len(f.env))
		for k, v := range cfg.Env {
			env[k] = v
		}
		for k, v := range f.env {
			env[k] = v
		}
		cfg.Env = env
	}

	return cfg
}

// inputOption returns the stdin payload option, if any input was given.
func (f callFlags) inputOption(
	appFs afero.Fs,
) (shell.Option, error) {
	switch {
	case f.inputFile != "":
		data, err := afero.ReadFile(appFs, f.inputFile)
		if err != nil {
			return nil, fmt.Errorf("reading input file: %w", err)
		}
		return shell.WithInput(data), nil
	case f.changed("input"):
		return shell.WithInputString(f.input), nil
	default:
		return nil, nil
	}
}

func newFinder() lookup.Finder {
	return lookup.New(appFs, appConfig.Shell.Path)
}

// streamObserver copies every chunk to the matching standard stream.
func streamObserver(
	_ *shell.Command,
	stream shell.Stream,
	chunk []byte,
) {
	if chunk == nil {
		return
	}

	if stream == shell.Stderr {
		_, _ = os.Stderr.Write(chunk)
		return
	}
	_, _ = os.Stdout.Write(chunk)
}

// exitCode maps a result to the status whelk exits with. A stage killed by
// a signal exits 128 plus the signal number, as shells report it.
func exitCode(
	res *shell.Result,
) int {
	code := res.ExitCode()
	if code < 0 {
		return 128 - code
	}

	return code
}

// commandOutput is the JSON document printed by run and pipe.
type commandOutput struct {
	Command    string        `json:"command"`
	Stages     []string      `json:"stages,omitempty"`
	DurationMs int64         `json:"duration_ms"`
	Result     *shell.Result `json:"result"`
}

// report prints res, unless its output was already streamed, and exits with
// its status when that is nonzero.
func report(
	ctx context.Context,
	f callFlags,
	out commandOutput,
	stages [][]string,
) {
	res := out.Result

	if jsonOutput {
		b, err := json.Marshal(out)
		if err != nil {
			cli.LogFatal(logger, "failed to marshal result", err)
		}
		fmt.Println(string(b))
	} else {
		if !f.stream {
			_, _ = os.Stdout.Write(res.Stdout())
			_, _ = os.Stderr.Write(res.Stderr())
		}

		if f.summary {
			printSummary(out, stages)
		}
	}

	if code := exitCode(res); code != 0 {
		shutdownTelemetry(ctx)
		osExit(code)
	}
}

func printSummary(
	out commandOutput,
	stages [][]string,
) {
	res := out.Result

	fmt.Println()
	cli.PrintKV(
		"Exit Code", cli.FormatExitCode(res.ExitCode()),
		"Duration", (time.Duration(out.DurationMs) * time.Millisecond).String(),
	)
	cli.PrintKV(
		"Stdout", formatSize(res.Stdout()),
		"Stderr", formatSize(res.Stderr()),
	)

	if !res.IsPipeline() {
		return
	}

	codes := res.ExitCodes()
	rows := make([][]string, 0, len(stages))
	for i, stage := range stages {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			cli.FormatList(stage),
			cli.FormatExitCode(codes[i]),
		})
	}
	cli.PrintCompactTable([]cli.Section{{
		Title:   "Stages",
		Headers: []string{"#", "Command", "Exit Code"},
		Rows:    rows,
	}})
}

func formatSize(
	b []byte,
) string {
	if b == nil {
		return cli.DimStyle.Render("not captured")
	}

	return cli.FormatBytes(len(b))
}
