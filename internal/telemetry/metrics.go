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

package telemetry

import (
	"context"
	"fmt"
	"io"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// prometheusNewFn is the function used to create Prometheus exporters.
// It is a package-level variable so tests can replace it to simulate errors.
var prometheusNewFn = prometheus.New

// Meter owns the registry the Prometheus exporter collects into.
type Meter struct {
	registry *promclient.Registry
	provider *sdkmetric.MeterProvider
}

// InitMeter initializes the OpenTelemetry meter provider with a Prometheus
// exporter bound to a private registry and installs it globally.
func InitMeter() (*Meter, error) {
	registry := promclient.NewRegistry()

	exporter, err := prometheusNewFn(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("creating prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(mp)

	return &Meter{
		registry: registry,
		provider: mp,
	}, nil
}

// Write gathers every registered metric family and writes it to w in the
// Prometheus text exposition format.
func (m *Meter) Write(
	w io.Writer,
) error {
	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}

	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("writing metric family %q: %w", mf.GetName(), err)
		}
	}

	return nil
}

// Shutdown flushes and stops the meter provider.
func (m *Meter) Shutdown(
	ctx context.Context,
) error {
	return m.provider.Shutdown(ctx)
}
