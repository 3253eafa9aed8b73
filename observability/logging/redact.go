package logging

import (
	"log/slog"
	"strings"
)

// RedactedValue replaces values of keys that are not known to be safe.
const RedactedValue = "[REDACTED]"

// safeKeys are emitted verbatim. Everything else passed through MaskField is
// replaced, so new secrets are masked until someone opts them in here.
var safeKeys = map[string]struct{}{
	"service":    {},
	"env":        {},
	"message":    {},
	"severity":   {},
	"error":      {},
	"module":     {},
	"network":    {},
	"chain_id":   {},
	"program":    {},
	"state_root": {},
	"tx_type":    {},
	"tx_hash":    {},
	"outcome":    {},
	"kind":       {},
	"course_id":  {},
	"method":     {},
	"path":       {},
}

// IsSafeKey reports whether key is logged without masking.
func IsSafeKey(key string) bool {
	_, ok := safeKeys[strings.ToLower(strings.TrimSpace(key))]
	return ok
}

// MaskField redacts value unless key is safe. Empty values pass through.
func MaskField(key, value string) slog.Attr {
	if strings.TrimSpace(value) == "" || IsSafeKey(key) {
		return slog.String(key, value)
	}
	return slog.String(key, RedactedValue)
}

// ShortIdentity abbreviates a bech32 identity to its prefix and the last few
// characters, e.g. acad1qy…7k2m, enough to correlate log lines with an
// operator without writing the full key-derived address.
func ShortIdentity(id string) string {
	id = strings.TrimSpace(id)
	sep := strings.LastIndexByte(id, '1')
	if sep <= 0 || len(id)-sep <= 10 {
		return MaskValue(id)
	}
	return id[:sep+3] + "…" + id[len(id)-4:]
}

// IdentityField logs an abbreviated identity under key.
func IdentityField(key, id string) slog.Attr {
	return slog.String(key, ShortIdentity(id))
}

// MaskValue returns RedactedValue for non-empty input.
func MaskValue(value string) string {
	if strings.TrimSpace(value) == "" {
		return value
	}
	return RedactedValue
}
