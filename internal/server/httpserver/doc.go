// Package httpserver serves the admin HTTP endpoints of respkv-server:
//
//   - GET /healthz: liveness, always 200 while the process runs
//   - GET /readyz: readiness, 503 until the RESP listeners are up
//   - GET /metrics: Prometheus exposition, optionally limited by an IP allowlist
//
// Every route runs behind RequestID, Recover and AccessLog. The data path
// is RESP only; nothing here reads or writes keys.
package httpserver
