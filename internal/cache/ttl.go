package cache

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// TTL configuration constants and defaults.
const (
	// DefaultTTLSeconds is the default rollup TTL (5 minutes).
	DefaultTTLSeconds = 300

	// MinTTLSeconds is the minimum allowed TTL (1 minute).
	MinTTLSeconds = 60

	// MaxTTLSeconds is the maximum allowed TTL (1 hour).
	MaxTTLSeconds = 3600

	// EnvTTLSeconds is the environment variable for overriding TTL.
	EnvTTLSeconds = "EIMPACT_CACHE_TTL_SECONDS"
)

// ErrInvalidTTL is returned for a TTL outside [MinTTLSeconds, MaxTTLSeconds].
var ErrInvalidTTL = fmt.Errorf("TTL must be between %d and %d seconds", MinTTLSeconds, MaxTTLSeconds)

// ParseTTL parses integer seconds ("300") or a duration ("5m") and checks the
// range.
func ParseTTL(s string) (time.Duration, error) {
	seconds, err := strconv.Atoi(s)
	if err != nil {
		d, derr := time.ParseDuration(s)
		if derr != nil {
			return 0, fmt.Errorf("invalid TTL format: %w", derr)
		}
		seconds = int(d.Seconds())
	}
	if seconds < MinTTLSeconds || seconds > MaxTTLSeconds {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidTTL, seconds)
	}
	return time.Duration(seconds) * time.Second, nil
}

// TTLFromEnv reads EnvTTLSeconds. Unset or invalid values give the default.
func TTLFromEnv() time.Duration {
	v := os.Getenv(EnvTTLSeconds)
	if v == "" {
		return DefaultTTLSeconds * time.Second
	}
	ttl, err := ParseTTL(v)
	if err != nil {
		return DefaultTTLSeconds * time.Second
	}
	return ttl
}
