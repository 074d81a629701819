// Package redisserver serves the key-value store and pub/sub channels over
// the RESP protocol.
//
// Each accepted connection runs its own Handler goroutine that reads
// request frames, turns them into Commands and writes one reply per
// request. A SUBSCRIBE switches the connection into subscribe mode, where
// published messages are pushed as they arrive and only SUBSCRIBE,
// UNSUBSCRIBE, PING and QUIT are accepted.
//
// Supported commands:
//   - PING, QUIT
//   - GET, SET [EX seconds | PX milliseconds], DEL, EXISTS, TTL
//   - PUBLISH, SUBSCRIBE, UNSUBSCRIBE
package redisserver
