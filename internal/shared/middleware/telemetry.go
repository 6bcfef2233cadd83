package middleware

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Telemetry wraps the handler with otelhttp server instrumentation: a span
// per request plus the standard http.server.* metrics. Probe endpoints are
// filtered out so scrape traffic does not drown the trace backend.
func Telemetry(next http.Handler) http.Handler {
	return otelhttp.NewMiddleware("zzpboek-api",
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/health" && r.URL.Path != "/ready"
		}),
	)(next)
}
