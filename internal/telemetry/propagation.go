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
	"maps"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Compile-time check that envCarrier satisfies the TextMapCarrier interface.
var _ propagation.TextMapCarrier = envCarrier{}

// envCarrier implements propagation.TextMapCarrier over environment
// variables. Keys are upper-cased, so "traceparent" travels as TRACEPARENT.
type envCarrier map[string]string

// Get returns the value for the key.
func (c envCarrier) Get(
	key string,
) string {
	return c[strings.ToUpper(key)]
}

// Set stores a key-value pair.
func (c envCarrier) Set(
	key string,
	value string,
) {
	c[strings.ToUpper(key)] = value
}

// Keys returns all keys in the carrier.
func (c envCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}

	return keys
}

// InjectTraceContextToEnv returns a copy of env extended with the current
// span's trace context. If there is no active span, env is returned as is.
func InjectTraceContextToEnv(
	ctx context.Context,
	env map[string]string,
) map[string]string {
	if !trace.SpanContextFromContext(ctx).IsValid() {
		return env
	}

	out := make(envCarrier, len(env)+2)
	maps.Copy(out, env)
	otel.GetTextMapPropagator().Inject(ctx, out)

	return out
}

// ExtractTraceContextFromEnv extracts trace context from the process
// environment, letting a parent process continue its trace in this one. If
// no trace context is present, the original context is returned.
func ExtractTraceContextFromEnv(
	ctx context.Context,
) context.Context {
	carrier := envCarrier{}
	for _, key := range otel.GetTextMapPropagator().Fields() {
		if v, ok := os.LookupEnv(strings.ToUpper(key)); ok {
			carrier.Set(key, v)
		}
	}

	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}
