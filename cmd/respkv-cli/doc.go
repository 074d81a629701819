// Package main provides the entry point for respkv-cli.
//
// respkv-cli talks to respkv-server over RESP. It runs single commands,
// streams subscriptions, benchmarks the server and, without a command,
// starts an interactive REPL.
//
// Usage:
//
//	respkv-cli [global flags] [command] [args]
//	respkv-cli --server 127.0.0.1:6379 set greeting hello --ttl 30s
//	respkv-cli -o json subscribe news
//	respkv-cli bench --clients 16 --requests 100000
package main
