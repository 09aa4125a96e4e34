/*
Package tracing provides lightweight request tracing.

# Overview

The host opens one span per HTTP request; the dispatcher opens a child span
for route matching and handler execution. Finished spans are handed to a
buffered collector that logs them through zap.

# Usage

	tracer := tracing.New("conduit", logger)
	defer tracer.Close()

	router.Use(tracing.HTTPMiddleware(tracer))

	span, ctx := tracer.StartSpan(ctx, "dispatch")
	defer tracer.Finish(span)
	span.SetTag("route", pattern)

# Propagation

Trace context travels in the X-Trace-ID and X-Span-ID headers. Both are
echoed on the response so a client can quote them in bug reports.
*/
package tracing
