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
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/retr0h/whelk/internal/cli"
	"github.com/retr0h/whelk/internal/shell"
	"github.com/retr0h/whelk/internal/telemetry"
)

// stageSeparators split pipe arguments into stages. The broken bar avoids
// quoting the shell's own pipe character.
var stageSeparators = []string{"|", "¦"}

var pipeCmd = &cobra.Command{
	Use:   "pipe [flags] -- NAME [ARGS...] ¦ NAME [ARGS...]...",
	Short: "Run a pipeline of commands",
	Long: `Run commands connected stdout to stdin, separated by a quoted "|" or
"¦". Input is fed to the first command; the output and error of the last
command are collected. whelk exits with the rightmost nonzero status.

  whelk pipe --input "b\na\n" -- sort ¦ uniq -c
`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := telemetry.ExtractTraceContextFromEnv(cmd.Context())
		f := readCallFlags(cmd)

		stages, err := splitStages(args)
		if err != nil {
			cli.LogFatal(logger, "invalid pipeline", err)
		}

		sh := shell.NewPipe(logger, newFinder(), f.shellConfig())

		input, err := f.inputOption(appFs)
		if err != nil {
			cli.LogFatal(logger, "failed to read input", err)
		}

		cmds := make([]*shell.Command, 0, len(stages))
		for i, stage := range stages {
			var opts []shell.Option
			if i == 0 && input != nil {
				opts = append(opts, input)
			}
			if i == len(stages)-1 && f.stream {
				opts = append(opts, shell.WithOutputObserver(streamObserver))
			}

			c, err := sh.Defer(ctx, stage[0], stage[1:], opts...)
			if err != nil {
				cli.LogFatal(logger, "failed to prepare stage", err, "stage", i+1)
			}
			cmds = append(cmds, c)
		}

		start := time.Now()
		tail, err := sh.Chain(cmds...)
		if err != nil {
			for _, c := range cmds {
				_ = c.Kill()
			}
			cli.LogFatal(logger, "failed to chain pipeline", err)
		}

		res, err := sh.Pipeline(ctx, tail)
		var failed *shell.CommandFailedError
		switch {
		case errors.As(err, &failed):
			logger.Error(
				"pipeline failed",
				slog.String("command", tail.String()),
				slog.Any("exit_codes", res.ExitCodes()),
			)
		case err != nil:
			if killErr := tail.Kill(); killErr != nil {
				logger.Warn("failed to kill pipeline", slog.String("error", killErr.Error()))
			}
			cli.LogFatal(logger, "failed to run pipeline", err)
		}

		lines := make([]string, 0, len(stages))
		for _, c := range cmds {
			lines = append(lines, c.String())
		}

		report(ctx, f, commandOutput{
			Command:    strings.Join(lines, " | "),
			Stages:     lines,
			DurationMs: time.Since(start).Milliseconds(),
			Result:     res,
		}, stages)
	},
}

func init() {
	rootCmd.AddCommand(pipeCmd)

	addCallFlags(pipeCmd)
	pipeCmd.Flags().SetInterspersed(false)
}

// splitStages splits args on separator tokens into one argument list per
// stage.
func splitStages(
	args []string,
) ([][]string, error) {
	var (
		stages  [][]string
		current []string
	)

	flush := func() error {
		if len(current) == 0 {
			return fmt.Errorf("empty stage %d", len(stages)+1)
		}
		stages = append(stages, current)
		current = nil

		return nil
	}

	for _, arg := range args {
		if isSeparator(arg) {
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		}
		current = append(current, arg)
	}

	if err := flush(); err != nil {
		return nil, err
	}

	return stages, nil
}

func isSeparator(
	arg string,
) bool {
	for _, sep := range stageSeparators {
		if arg == sep {
			return true
		}
	}

	return false
}
