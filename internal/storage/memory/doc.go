// Package memory provides the in-memory key-value store and pub/sub registry.
//
// Features:
//
//   - Keys: byte values with optional expiry, last write wins
//   - Expiry: checked lazily on read and swept periodically by Run
//   - Pub/Sub: per-channel fan-out to buffered receivers
//   - Cleanup: a channel disappears with its last receiver
//
// Thread Safety:
//
// All state sits behind a single mutex. No method holds it across a blocking
// operation: publishing uses non-blocking sends, so a slow subscriber misses
// messages instead of stalling publishers.
package memory
