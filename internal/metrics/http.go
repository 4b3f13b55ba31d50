package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// HTTPMetricsMiddleware records request counts and durations labelled by method,
// route pattern and status code. For relay routes the duration covers the whole
// stream, not only time to first byte. Aborted relays are recorded with the
// status that was already committed.
func HTTPMetricsMiddleware(meterProvider metric.MeterProvider, namespace string) gin.HandlerFunc {
	meter := meterProvider.Meter(namespace)

	passthrough := func(c *gin.Context) { c.Next() }

	requestCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_http_requests_total", namespace),
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return passthrough
	}

	durationHisto, err := meter.Float64Histogram(
		fmt.Sprintf("%s_http_request_duration_seconds", namespace),
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return passthrough
	}

	return func(c *gin.Context) {
		start := time.Now()

		defer func() {
			rec := recover()
			if rec != nil && rec != http.ErrAbortHandler {
				panic(rec)
			}

			attrs := metric.WithAttributes(
				attribute.String("method", c.Request.Method),
				attribute.String("path", sanitizePath(c.FullPath())),
				attribute.String("status_code", strconv.Itoa(c.Writer.Status())),
			)

			ctx := c.Request.Context()
			requestCounter.Add(ctx, 1, attrs)
			durationHisto.Record(ctx, time.Since(start).Seconds(), attrs)

			if rec != nil {
				panic(rec)
			}
		}()

		c.Next()
	}
}

// sanitizePath keeps label cardinality bounded: the route pattern is used as-is
// (the proxied url lives in the query string) and unmatched routes become "unknown".
func sanitizePath(fullPath string) string {
	if fullPath == "" {
		return "unknown"
	}
	return fullPath
}
