package domain

import (
	"fmt"
	"strings"
	"time"
)

// TimestampLayout is the canonical HAPI timestamp form, second precision.
const TimestampLayout = "2006-01-02T15:04:05Z"

// DateLayout is the day-granularity form used for file date codes.
const DateLayout = "2006-01-02"

// legacyLayout matches instrument timestamps such as "21 Oct 2025 04:01:59".
const legacyLayout = "2 Jan 2006 15:04:05"

// isoLayouts are accepted for doppler rows and HAPI request times, tried in order.
var isoLayouts = []string{
	"2006-01-02T15:04:05.999999999Z",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04Z",
	"2006-01-02T15Z",
	"2006-01-02Z",
	"2006-01-02",
	"2006-002T15:04:05.999999999Z",
	"2006-002T15:04Z",
	"2006-002Z",
	"2006-002",
}

// FormatTimestamp renders t in canonical HAPI form, truncated to whole seconds.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(TimestampLayout)
}

// NormalizeTimestamp converts a legacy instrument timestamp into canonical
// form. Surrounding whitespace and double quotes are ignored.
func NormalizeTimestamp(token string) (string, error) {
	t, err := ParseLegacyTime(token)
	if err != nil {
		return "", err
	}
	return FormatTimestamp(t), nil
}

// FormatLegacyTime renders t the way instruments write it, without quotes.
func FormatLegacyTime(t time.Time) string {
	return t.UTC().Format(legacyLayout)
}

// ParseLegacyTime parses a "DD Mon YYYY HH:MM:SS" token as UTC.
func ParseLegacyTime(token string) (time.Time, error) {
	s := strings.Trim(strings.TrimSpace(token), `"`)
	t, err := time.ParseInLocation(legacyLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrTimestampParse, token)
	}
	return t, nil
}

// ParseISOTime parses the ISO 8601 variants seen in doppler archives and HAPI
// requests. Results are UTC and truncated to whole seconds.
func ParseISOTime(token string) (time.Time, error) {
	s := strings.Trim(strings.TrimSpace(token), `"`)
	for _, layout := range isoLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.Truncate(time.Second), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrTimestampParse, token)
}
