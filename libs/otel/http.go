package otelx

import (
	"net/http"
	"time"

	"github.com/md-rashed-zaman/careportal/libs/httpx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// HTTPClient returns a client whose requests are traced and carry the
// inbound request id. A zero timeout leaves the client unbounded; callers
// still control deadlines through the request context.
func HTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(httpx.RequestIDTransport{Base: http.DefaultTransport}),
	}
}
