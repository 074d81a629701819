// Package main provides the entry point for respkv-server.
//
// The server runs:
//
//   - a RESP listener for GET, SET, DEL, EXISTS, TTL and pub/sub commands
//   - an optional TLS RESP listener with certificate hot reload
//   - an admin HTTP listener for /healthz, /readyz and /metrics
//
// Usage:
//
//	respkv-server [flags]
//	respkv-server -config /etc/respkv/server.yaml
//
// Settings come from the config file, then .env and .env.local, then
// RESPKV_* environment variables. Nested keys use a double underscore,
// e.g. RESPKV_SERVER__REDIS__ADDR. Editing the config file at runtime
// changes the log level without a restart.
package main
