// Package tlsroots builds TLS configurations for the RESP listener and the
// command line client.
//
// A Pool collects trusted CA certificates from PEM data or files. A Watcher
// holds the server key pair and reloads it when either file changes on
// disk, so certificates can be rotated without restarting the server.
package tlsroots
