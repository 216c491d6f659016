// Package server exposes the messaging backend over HTTP.
//
// The API router is built on chi with CORS, per-IP rate limiting and a
// JWT session middleware that resolves the signed-in user, loads their
// stored OAuth tokens and attaches a ready-to-use inbox service to the
// request context. Handlers answer with a uniform JSON envelope:
// {"success": true, ...} on success and {"success": false, "error": ...}
// on failure.
//
// Health probes live on the API port (/healthz, /readyz); Prometheus
// metrics are served on a dedicated port to keep operational data off
// the public surface.
package server
