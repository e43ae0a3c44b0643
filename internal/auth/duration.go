package auth

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var relativeExpiry = regexp.MustCompile(`^(\d+)([dwh])$`)

var expiryDateFormats = []string{
	"01/02/2006 15:04",
	"01/02/2006",
	"2006-01-02",
}

// ParseExpirationDuration turns a token lifetime into an expiry time. Accepted:
//   - "" or "never": no expiry (nil)
//   - any Go duration: "30m", "2h30m"
//   - day, week and hour counts: "30d", "2w", "24h"
//   - a future date: "12/25/2026", "12/25/2026 14:30" or "2026-12-25" (UTC)
func ParseExpirationDuration(expiresIn string) (*time.Time, error) {
	return parseExpiration(expiresIn, time.Now())
}

func parseExpiration(expiresIn string, now time.Time) (*time.Time, error) {
	expiresIn = strings.TrimSpace(expiresIn)
	if expiresIn == "" || strings.EqualFold(expiresIn, "never") {
		return nil, nil
	}

	if dur, err := time.ParseDuration(expiresIn); err == nil {
		if dur <= 0 {
			return nil, fmt.Errorf("expiration must be positive: %s", expiresIn)
		}
		t := now.Add(dur)
		return &t, nil
	}

	if m := relativeExpiry.FindStringSubmatch(expiresIn); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid number in expiration: %s", expiresIn)
		}
		unit := time.Hour
		switch m[2] {
		case "d":
			unit = 24 * time.Hour
		case "w":
			unit = 7 * 24 * time.Hour
		}
		t := now.Add(time.Duration(n) * unit)
		return &t, nil
	}

	for _, format := range expiryDateFormats {
		if t, err := time.Parse(format, expiresIn); err == nil {
			if !t.After(now) {
				return nil, fmt.Errorf("expiration date must be in the future: %s", expiresIn)
			}
			return &t, nil
		}
	}

	return nil, fmt.Errorf("invalid expiration format: %s (use 'never', '30d', '2w', '24h', '12/25/2026' or a Go duration like '30m')", expiresIn)
}
