// Package config provides the respkv-server configuration.
//
//   - spec.go: ServerConfig struct definition
//   - default.go: Default configuration values
//   - verify.go: validation (address syntax, port conflicts, local socket, TLS files)
//
// Configuration is loaded via internal/infra/confloader from a YAML file,
// RESPKV_ environment variables and .env files.
package config
