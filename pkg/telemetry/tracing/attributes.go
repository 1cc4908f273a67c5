package tracing

import (
	"net/http"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Span Attribute Helpers
//
// Server spans carry the stable HTTP semantic convention keys:
//   - http.request.method, url.path, url.scheme
//   - server.address, server.port
//   - user_agent.original, client.address
//   - http.response.status_code
//
// Keys owned by this service use the "observe.*" namespace.
const (
	AttrHTTPMethod     = "http.request.method"
	AttrHTTPRoute      = "http.route"
	AttrHTTPStatusCode = "http.response.status_code"
	AttrURLPath        = "url.path"
	AttrURLScheme      = "url.scheme"
	AttrServerAddress  = "server.address"
	AttrServerPort     = "server.port"
	AttrUserAgent      = "user_agent.original"
	AttrClientAddress  = "client.address"
	AttrErrorType      = "error.type"

	AttrRequestID    = "observe.request_id"
	AttrResponseSize = "observe.response.size"
	AttrPanic        = "observe.panic"
)

// RequestAttributes returns the attributes recorded on a server span when
// it starts.
func RequestAttributes(r *http.Request) []attribute.KeyValue {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}

	attrs := []attribute.KeyValue{
		attribute.String(AttrHTTPMethod, r.Method),
		attribute.String(AttrURLPath, r.URL.Path),
		attribute.String(AttrURLScheme, scheme),
	}

	host, port := splitHostPort(r.Host)
	if host != "" {
		attrs = append(attrs, attribute.String(AttrServerAddress, host))
	}
	if port > 0 {
		attrs = append(attrs, attribute.Int(AttrServerPort, port))
	}
	if ua := r.UserAgent(); ua != "" {
		attrs = append(attrs, attribute.String(AttrUserAgent, ua))
	}
	if client, _ := splitHostPort(r.RemoteAddr); client != "" {
		attrs = append(attrs, attribute.String(AttrClientAddress, client))
	}

	return attrs
}

// SetResponseAttributes records the outcome of a request on span.
func SetResponseAttributes(span trace.Span, status int, size int64) {
	attrs := []attribute.KeyValue{
		attribute.Int(AttrHTTPStatusCode, status),
		attribute.Int64(AttrResponseSize, size),
	}
	if status >= http.StatusInternalServerError {
		attrs = append(attrs, attribute.String(AttrErrorType, strconv.Itoa(status)))
	}
	span.SetAttributes(attrs...)
}

// SetRequestID records the request id on span.
func SetRequestID(span trace.Span, requestID string) {
	if requestID == "" {
		return
	}
	span.SetAttributes(attribute.String(AttrRequestID, requestID))
}

// splitHostPort splits "host:port", tolerating a missing port and IPv6
// brackets.
func splitHostPort(hostport string) (string, int) {
	if hostport == "" {
		return "", 0
	}

	host := hostport
	port := 0
	if i := strings.LastIndexByte(hostport, ':'); i >= 0 && !strings.HasSuffix(hostport, "]") {
		if p, err := strconv.Atoi(hostport[i+1:]); err == nil {
			host = hostport[:i]
			port = p
		}
	}

	return strings.TrimSuffix(strings.TrimPrefix(host, "["), "]"), port
}
