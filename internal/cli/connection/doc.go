// Package connection is the RESP client used by respkv-cli.
//
// A Client owns one connection and issues one request at a time. Typed
// helpers turn Error replies into *ServerError. Subscribe switches the
// connection into subscribe mode and hands it to a Subscriber, after which
// the Client must not be used for other commands. Pool keeps a bounded set
// of Clients for concurrent callers such as the bench command.
package connection
