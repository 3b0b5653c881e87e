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
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/retr0h/whelk/internal/cli"
	"github.com/retr0h/whelk/internal/shell"
	"github.com/retr0h/whelk/internal/telemetry"
)

var runCmd = &cobra.Command{
	Use:   "run [flags] -- NAME [ARGS...]",
	Short: "Run a single command",
	Long: `Run a single command, feeding it optional input and collecting its
output without risking a pipe deadlock. whelk exits with the command's exit
status.
`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := telemetry.ExtractTraceContextFromEnv(cmd.Context())
		f := readCallFlags(cmd)

		sh := shell.New(logger, newFinder(), f.shellConfig())

		opts := []shell.Option{}
		input, err := f.inputOption(appFs)
		if err != nil {
			cli.LogFatal(logger, "failed to read input", err)
		}
		if input != nil {
			opts = append(opts, input)
		}
		if f.stream {
			opts = append(opts, shell.WithOutputObserver(streamObserver))
		}

		c, err := sh.Command(args[0])
		if err != nil {
			cli.LogFatal(logger, "failed to resolve command", err)
		}

		start := time.Now()
		res, err := c.Call(ctx, args[1:], opts...)
		var failed *shell.CommandFailedError
		switch {
		case errors.As(err, &failed):
			logger.Error(
				"command failed",
				slog.String("command", c.String()),
				slog.Any("exit_codes", res.ExitCodes()),
			)
		case err != nil:
			if killErr := c.Kill(); killErr != nil {
				logger.Warn("failed to kill command", slog.String("error", killErr.Error()))
			}
			cli.LogFatal(logger, "failed to run command", err, "command", c.String())
		}

		report(ctx, f, commandOutput{
			Command:    c.String(),
			DurationMs: time.Since(start).Milliseconds(),
			Result:     res,
		}, nil)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	addCallFlags(runCmd)
	runCmd.Flags().SetInterspersed(false)
}
