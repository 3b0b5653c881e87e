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
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/retr0h/whelk/internal/cli"
	"github.com/retr0h/whelk/internal/config"
	"github.com/retr0h/whelk/internal/telemetry"
)

var (
	appConfig  config.Config
	appFs      = afero.NewOsFs()
	logger     = slog.New(slog.NewTextHandler(os.Stderr, nil))
	jsonOutput bool

	shutdownTelemetry = func(context.Context) {}
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "whelk",
	Short: "Run processes and pipelines without deadlocks.",
	Long: `Run external programs and pipelines of them, feeding input and
collecting output through a single poll-driven loop.

         _ _
__ __ __| |_  ___| | __
\ V  V /| ' \/ -_) |/ /
 \_/\_/ |_||_\___|_|\_\

https://github.com/retr0h/whelk
`,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		initTelemetry(cmd.Context())
	},
	PersistentPostRun: func(cmd *cobra.Command, _ []string) {
		shutdownTelemetry(cmd.Context())
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initLogger)

	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Enable or disable debug mode")
	rootCmd.PersistentFlags().BoolVarP(&jsonOutput, "json", "j", false, "Enable JSON output")

	rootCmd.PersistentFlags().
		StringP("whelk-file", "f", "", "Path to config file")

	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("whelkFile", rootCmd.PersistentFlags().Lookup("whelk-file"))

	viper.SetDefault("shell.redirect", true)
}

func initConfig() {
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetConfigType("yaml")
	viper.AutomaticEnv()
	viper.SetEnvPrefix("whelk")

	// The config file is optional; flags and WHELK_* variables cover every
	// setting.
	if file := viper.GetString("whelkFile"); file != "" {
		viper.SetConfigFile(file)

		if err := viper.ReadInConfig(); err != nil {
			cli.LogFatal(logger, "failed to read config", err, "whelkFile", viper.ConfigFileUsed())
		}
	}

	if err := viper.Unmarshal(&appConfig); err != nil {
		cli.LogFatal(logger, "failed to unmarshal config", err, "whelkFile", viper.ConfigFileUsed())
	}

	// Auto-enable tracing in debug mode so trace_id appears in log lines.
	// No exporter is set, just log correlation and TRACEPARENT for children.
	if appConfig.Debug && !appConfig.Telemetry.Tracing.Enabled {
		appConfig.Telemetry.Tracing.Enabled = true
	}

	err := config.Validate(&appConfig)
	if err != nil {
		cli.LogFatal(logger, "validation failed", err, "whelkFile", viper.ConfigFileUsed())
	}
}

func initLogger() {
	logLevel := slog.LevelInfo
	if viper.GetBool("debug") {
		logLevel = slog.LevelDebug
	}

	var handler slog.Handler
	if jsonOutput {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	} else {
		handler = tint.NewHandler(os.Stderr, &tint.Options{
			Level:      logLevel,
			TimeFormat: time.Kitchen,
			NoColor:    !term.IsTerminal(int(os.Stderr.Fd())),
		})
	}

	handler = telemetry.NewTraceHandler(handler)
	logger = slog.New(handler)
}

// initTelemetry installs the tracer and, when enabled, the meter provider.
// Metrics are written once the command finishes.
func initTelemetry(
	ctx context.Context,
) {
	shutdownTracer, err := telemetry.InitTracer(ctx, "whelk", appConfig.Telemetry.Tracing)
	if err != nil {
		cli.LogFatal(logger, "failed to initialize tracer", err)
	}

	var meter *telemetry.Meter
	if appConfig.Telemetry.Metrics.Enabled {
		meter, err = telemetry.InitMeter()
		if err != nil {
			cli.LogFatal(logger, "failed to initialize meter", err)
		}
	}

	shutdownTelemetry = func(ctx context.Context) {
		if meter != nil {
			writeMetrics(meter)
			if err := meter.Shutdown(ctx); err != nil {
				logger.Warn("failed to shut down meter", slog.String("error", err.Error()))
			}
		}

		if err := shutdownTracer(ctx); err != nil {
			logger.Warn("failed to shut down tracer", slog.String("error", err.Error()))
		}
	}
}

func writeMetrics(
	meter *telemetry.Meter,
) {
	out := appConfig.Telemetry.Metrics.Output
	if out == "" {
		if err := meter.Write(os.Stderr); err != nil {
			logger.Warn("failed to write metrics", slog.String("error", err.Error()))
		}
		return
	}

	f, err := appFs.Create(out)
	if err != nil {
		logger.Warn("failed to create metrics file", slog.String("path", out), slog.String("error", err.Error()))
		return
	}
	defer func() { _ = f.Close() }()

	if err := meter.Write(f); err != nil {
		logger.Warn("failed to write metrics", slog.String("path", out), slog.String("error", err.Error()))
	}
}
