package featureflags

import (
	"os"
	"strings"
)

// Flags gating optional subsystems.
const (
	OrderFeed    = "order_feed"    // websocket order feed
	CatalogCache = "catalog_cache" // Redis-backed list cache
)

// Enabled returns true if a flag is switched on via environment variable.
// Flags are read from env as FLAG_<NAME>=true/1/yes (case-insensitive);
// defaultOn applies when the variable is unset.
func Enabled(name string, defaultOn bool) bool {
	v, ok := os.LookupEnv("FLAG_" + strings.ToUpper(name))
	if !ok {
		return defaultOn
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
