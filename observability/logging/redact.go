package logging

import (
	"log/slog"
	"strings"
)

// RedactedValue replaces sensitive values in logs.
const RedactedValue = "[REDACTED]"

// Keys listed here are safe to log verbatim. Addresses and amounts are public
// chain data; credentials are not.
var redactionAllowlist = map[string]struct{}{
	"service":   {},
	"env":       {},
	"operation": {},
	"caller":    {},
	"market":    {},
	"amount":    {},
	"value":     {},
	"error":     {},
	"component": {},
	"issuer":    {},
}

// IsAllowlisted reports whether key may be logged unmasked.
func IsAllowlisted(key string) bool {
	_, ok := redactionAllowlist[strings.ToLower(strings.TrimSpace(key))]
	return ok
}

// MaskField redacts value unless key is allowlisted. Empty values pass through.
func MaskField(key, value string) slog.Attr {
	if strings.TrimSpace(value) == "" || IsAllowlisted(key) {
		return slog.String(key, value)
	}
	return slog.String(key, RedactedValue)
}
