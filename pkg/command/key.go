package command

import (
	"strings"
)

// keySeparator joins key segments and namespace prefixes.
const keySeparator = ":"

// Key builds a consistent cache key by joining a prefix and parts with
// colons. This keeps key naming uniform across caches and instances.
//
// Example:
//
//	key := command.Key("user", userID)                // "user:123"
//	key := command.Key("portfolio", portID, "stats")  // "portfolio:abc:stats"
//
// Empty parts are filtered out to prevent double colons.
func Key(prefix string, parts ...string) string {
	filtered := make([]string, 0, len(parts)+1)

	if prefix != "" {
		filtered = append(filtered, prefix)
	}

	for _, part := range parts {
		if part != "" {
			filtered = append(filtered, part)
		}
	}

	return strings.Join(filtered, keySeparator)
}
