package utils

import "time"

// GetCurrentTimeMillis returns current time in milliseconds since epoch.
func GetCurrentTimeMillis() int64 {
	return time.Now().UnixMilli()
}

// IsExpired reports whether an expiry timestamp (millis) lies before now (millis).
// A zero expiry means no expiry.
func IsExpired(expiresAt, now int64) bool {
	if expiresAt == 0 {
		return false
	}
	return expiresAt < now
}
