// Package httpserver exposes the card issuing workflow over HTTP.
//
// The server wires the provisioning workflow and read-only issuer queries
// into a chi router, alongside the operational endpoints every service
// carries (livez, readyz, drain, undrain, optional pprof) and a separate
// Prometheus metrics listener.
package httpserver
