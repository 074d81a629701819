// Package confloader loads configuration into typed structs with koanf.
//
// Sources, from lowest to highest priority:
//
//  1. Values already present in the target struct (defaults)
//  2. The YAML configuration file
//  3. .env files, in the order given
//  4. Process environment variables
//
// Environment keys use the RESPKV_ prefix and a double underscore between
// sections, so RESPKV_SERVER__REDIS__READ_TIMEOUT sets
// server.redis.read_timeout.
//
// A Watcher reports changes to the configuration file so the server can
// Reload and apply settings that are safe to change at runtime.
package confloader
