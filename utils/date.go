package utils

import "time"

// DateLayout is how booking dates are stored and accepted.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD booking date in UTC.
func ParseDate(value string) (time.Time, error) {
	return time.Parse(DateLayout, value)
}
