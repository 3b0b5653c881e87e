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
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// spanHandler stamps records with the ids of the span in their context and
// copies them onto that span as events, so process lifecycle lines show up
// in traces as well as in the log.
type spanHandler struct {
	inner slog.Handler
	attrs []attribute.KeyValue
	group string
}

// NewTraceHandler wraps inner with trace_id and span_id stamping and span
// events for records logged with a span in their context.
func NewTraceHandler(
	inner slog.Handler,
) slog.Handler {
	return &spanHandler{inner: inner}
}

// Enabled defers to the inner handler.
func (h *spanHandler) Enabled(
	ctx context.Context,
	level slog.Level,
) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *spanHandler) Handle(
	ctx context.Context,
	record slog.Record,
) error {
	span := trace.SpanFromContext(ctx)
	sc := span.SpanContext()
	if !sc.IsValid() {
		return h.inner.Handle(ctx, record)
	}

	if span.IsRecording() {
		attrs := make([]attribute.KeyValue, 0, len(h.attrs)+record.NumAttrs()+1)
		attrs = append(attrs, h.attrs...)
		attrs = append(attrs, attribute.String("level", record.Level.String()))
		record.Attrs(func(a slog.Attr) bool {
			attrs = appendAttr(attrs, h.group, a)
			return true
		})
		span.AddEvent(record.Message, trace.WithTimestamp(record.Time), trace.WithAttributes(attrs...))
	}

	record.AddAttrs(
		slog.String("trace_id", sc.TraceID().String()),
		slog.String("span_id", sc.SpanID().String()),
	)

	return h.inner.Handle(ctx, record)
}

// WithAttrs implements slog.Handler.
func (h *spanHandler) WithAttrs(
	attrs []slog.Attr,
) slog.Handler {
	next := &spanHandler{
		inner: h.inner.WithAttrs(attrs),
		attrs: append([]attribute.KeyValue(nil), h.attrs...),
		group: h.group,
	}
	for _, a := range attrs {
		next.attrs = appendAttr(next.attrs, h.group, a)
	}

	return next
}

// WithGroup implements slog.Handler.
func (h *spanHandler) WithGroup(
	name string,
) slog.Handler {
	group := name
	if h.group != "" {
		group = h.group + "." + name
	}

	return &spanHandler{
		inner: h.inner.WithGroup(name),
		attrs: h.attrs,
		group: group,
	}
}

// appendAttr flattens a into event attributes, prefixing keys with group.
func appendAttr(
	attrs []attribute.KeyValue,
	group string,
	a slog.Attr,
) []attribute.KeyValue {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return attrs
	}

	key := a.Key
	if group != "" {
		key = group + "." + key
	}

	switch a.Value.Kind() {
	case slog.KindGroup:
		for _, ga := range a.Value.Group() {
			attrs = appendAttr(attrs, key, ga)
		}
		return attrs
	case slog.KindBool:
		return append(attrs, attribute.Bool(key, a.Value.Bool()))
	case slog.KindInt64:
		return append(attrs, attribute.Int64(key, a.Value.Int64()))
	case slog.KindUint64:
		return append(attrs, attribute.Int64(key, int64(a.Value.Uint64())))
	case slog.KindFloat64:
		return append(attrs, attribute.Float64(key, a.Value.Float64()))
	default:
		return append(attrs, attribute.String(key, a.Value.String()))
	}
}
