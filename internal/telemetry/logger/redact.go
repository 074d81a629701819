package logger

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"
)

// MaxPayloadLen is the longest payload value logged verbatim.
const MaxPayloadLen = 64

// Keys whose string values are client payloads. Long values are truncated.
var payloadKeys = []string{
	"value",
	"payload",
	"message",
	"args",
}

// Key patterns whose values are never logged.
var secretKeyPatterns = []string{
	"password",
	"secret",
	"token",
	"credential",
}

// redactedValue replaces secret values.
const redactedValue = "***REDACTED***"

// redactAttr masks secrets and truncates payloads, recursing into groups.
func redactAttr(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindString:
		if IsSecretKey(a.Key) {
			if a.Value.String() != "" {
				return slog.String(a.Key, redactedValue)
			}
			return a
		}
		if isPayloadKey(a.Key) {
			return slog.String(a.Key, TruncatePayload(a.Value.String()))
		}
	case slog.KindGroup:
		attrs := a.Value.Group()
		out := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			out[i] = redactAttr(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	}
	return a
}

// TruncatePayload shortens s to MaxPayloadLen bytes and notes the original
// size. Invalid UTF-8 is rendered quoted so logs stay printable.
func TruncatePayload(s string) string {
	if !utf8.ValidString(s) {
		if len(s) > MaxPayloadLen {
			return fmt.Sprintf("%q...(%d bytes)", s[:MaxPayloadLen], len(s))
		}
		return fmt.Sprintf("%q", s)
	}
	if len(s) <= MaxPayloadLen {
		return s
	}
	cut := MaxPayloadLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return fmt.Sprintf("%s...(%d bytes)", s[:cut], len(s))
}

// IsSecretKey reports whether a key name suggests secret content.
func IsSecretKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range secretKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}

func isPayloadKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, k := range payloadKeys {
		if keyLower == k {
			return true
		}
	}
	return false
}
