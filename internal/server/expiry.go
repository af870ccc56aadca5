package server

import (
	"strconv"
	"time"
)

// expiryPresets maps the accepted expires_in shorthands to seconds.
var expiryPresets = map[string]int64{
	"1h":    3600,
	"6h":    21600,
	"12h":   43200,
	"1d":    86400,
	"3d":    259200,
	"1w":    604800,
	"2w":    1209600,
	"1m":    2592000,
	"never": 0,
}

const defaultExpirySeconds = 604800 // 1w

// parseExpiry turns an expires_in value into an absolute expiry timestamp.
// "never" or empty means permanent (nil). A bare positive integer is taken
// as seconds. Anything unrecognized falls back to one week.
func parseExpiry(input string, now time.Time) *int64 {
	if input == "" || input == "never" {
		return nil
	}
	if seconds, ok := expiryPresets[input]; ok && seconds > 0 {
		at := now.Unix() + seconds
		return &at
	}
	if n, err := strconv.ParseInt(input, 10, 64); err == nil && n > 0 {
		at := now.Unix() + n
		return &at
	}
	at := now.Unix() + defaultExpirySeconds
	return &at
}

// expiryTTL returns the validity window for an upload link: the preset's
// duration, or one hour for unknown values.
func expiryTTL(input string) time.Duration {
	if seconds, ok := expiryPresets[input]; ok && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if n, err := strconv.ParseInt(input, 10, 64); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return time.Hour
}
