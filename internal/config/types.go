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

package config

import "time"

// Config represents the root structure of the YAML configuration file.
// This struct is used to unmarshal configuration data from Viper.
type Config struct {
	Shell     Shell     `mapstructure:"shell"`
	Telemetry Telemetry `mapstructure:"telemetry"`
	// Debug enable or disable debug option set from CLI.
	Debug bool `mapstructure:"debug"`
}

// Shell holds the defaults applied to every command the CLI runs.
type Shell struct {
	// Path overrides the PATH used to resolve command names.
	Path string `mapstructure:"path"`
	// Redirect captures stdout and stderr instead of inheriting them.
	Redirect bool `mapstructure:"redirect"`
	// RaiseOnError turns a nonzero exit status into an error.
	RaiseOnError bool `mapstructure:"raise_on_error"`
	// Encoding names the character encoding of input and output text.
	Encoding string `mapstructure:"encoding" validate:"omitempty,encoding"`
	// Timeout bounds the I/O of a single call or pipeline, e.g. "30s".
	Timeout time.Duration `mapstructure:"timeout"  validate:"duration"`
	// Dir is the working directory of spawned processes.
	Dir string `mapstructure:"dir"`
	// Env holds variables added to the inherited environment.
	Env map[string]string `mapstructure:"env"`
}

// Telemetry configuration settings.
type Telemetry struct {
	Tracing TracingConfig `mapstructure:"tracing,omitempty"`
	Metrics MetricsConfig `mapstructure:"metrics,omitempty"`
}

// MetricsConfig configuration settings for Prometheus metrics.
type MetricsConfig struct {
	// Enabled dumps the collected metrics in the Prometheus text format
	// when the command finishes.
	Enabled bool `mapstructure:"enabled"`
	// Output is the file the metrics are written to; stderr when empty.
	Output string `mapstructure:"output"`
}

// TracingConfig configuration settings for distributed tracing.
type TracingConfig struct {
	// Enabled enables or disables tracing.
	Enabled bool `mapstructure:"enabled"`
	// Exporter selects the trace exporter: "stdout" or "otlp".
	Exporter string `mapstructure:"exporter"      validate:"omitempty,oneof=none stdout otlp"`
	// OTLPEndpoint is the gRPC endpoint for the OTLP exporter (e.g., "localhost:4317").
	OTLPEndpoint string `mapstructure:"otlp_endpoint" validate:"required_if=Exporter otlp"`
}
