// ABOUTME: Time parsing utilities for the many date layouts found in feeds
// ABOUTME: Resolves an entry's publish time from parsed fields, raw strings, then a fallback

package time

import (
	"strings"
	"time"
)

// layouts seen in the wild beyond what the feed parser already handles
var layouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	time.RFC1123,
	time.RFC1123Z,
	time.RFC822,
	time.RFC822Z,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02",
	"02 Jan 2006 15:04:05 MST",
	"02 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 02 Jan 2006 15:04 MST",
	"Mon, 02 Jan 2006 15:04:05",
	"January 2, 2006 15:04",
	"January 2, 2006",
}

// ParseFlexibleTime attempts every known layout and returns the zero time on failure
func ParseFlexibleTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC()
		}
	}

	return time.Time{}
}

// Resolve picks the first usable timestamp: parsed candidates in order, then raw
// strings in order, then fallback. Times later than fallback+skew are treated as
// unusable, since future-dated entries would pin themselves to the top of a feed.
func Resolve(fallback time.Time, skew time.Duration, parsed []*time.Time, raw ...string) time.Time {
	limit := fallback.Add(skew)
	usable := func(t time.Time) bool {
		return !t.IsZero() && !t.After(limit)
	}

	for _, p := range parsed {
		if p != nil && usable(*p) {
			return p.UTC()
		}
	}
	for _, r := range raw {
		if t := ParseFlexibleTime(r); usable(t) {
			return t
		}
	}
	return fallback.UTC()
}
