// Package config holds the respkv-cli settings stored in
// ~/.respkv/cli.yaml: the default server, the output format, the request
// timeout, the REPL history file and named connection profiles.
package config
