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
	"context"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/retr0h/whelk/internal/shell"

// instruments are created from the global providers, which forward to the
// real providers once telemetry is initialised.
type instruments struct {
	tracer   trace.Tracer
	spawned  metric.Int64Counter
	exits    metric.Int64Counter
	duration metric.Float64Histogram
}

func newInstruments() *instruments {
	meter := otel.Meter(instrumentationName)
	fallback := noop.NewMeterProvider().Meter(instrumentationName)

	spawned, err := meter.Int64Counter(
		"whelk.process.spawned",
		metric.WithDescription("Processes spawned."),
		metric.WithUnit("{process}"),
	)
	if err != nil {
		spawned, _ = fallback.Int64Counter("whelk.process.spawned")
	}

	exits, err := meter.Int64Counter(
		"whelk.process.exits",
		metric.WithDescription("Process exit statuses collected."),
		metric.WithUnit("{process}"),
	)
	if err != nil {
		exits, _ = fallback.Int64Counter("whelk.process.exits")
	}

	duration, err := meter.Float64Histogram(
		"whelk.call.duration",
		metric.WithDescription("Wall time of a call or pipeline run."),
		metric.WithUnit("s"),
	)
	if err != nil {
		duration, _ = fallback.Float64Histogram("whelk.call.duration")
	}

	return &instruments{
		tracer:   otel.Tracer(instrumentationName),
		spawned:  spawned,
		exits:    exits,
		duration: duration,
	}
}

func (i *instruments) recordSpawn(
	ctx context.Context,
	path string,
) {
	i.spawned.Add(ctx, 1, metric.WithAttributes(
		attribute.String("command", filepath.Base(path)),
	))
}

func (i *instruments) recordExit(
	ctx context.Context,
	path string,
	status int,
) {
	i.exits.Add(ctx, 1, metric.WithAttributes(
		attribute.String("command", filepath.Base(path)),
		attribute.Bool("success", status == 0),
	))
}

func (i *instruments) recordDuration(
	ctx context.Context,
	pipeline bool,
	start time.Time,
) {
	i.duration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
		attribute.Bool("pipeline", pipeline),
	))
}
