// Package handlers provides the HTTP endpoints of the demo service:
//
//   - GET /: calls GET /health on the service itself and answers "root"
//   - GET /health: answers "UP"
//   - GET /error: always answers 503
//
// They exist to exercise the tracing middleware: / produces a server span,
// a client span and a second server span in one trace.
package handlers
