package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"21 Oct 2025 04:01:59", "2025-10-21T04:01:59Z"},
		{`"21 Oct 2025 04:01:59"`, "2025-10-21T04:01:59Z"},
		{" 1 Jan 2022 00:00:00 ", "2022-01-01T00:00:00Z"},
		{"29 Feb 2024 23:59:59", "2024-02-29T23:59:59Z"},
		{"05 DEC 2023 12:30:00", "2023-12-05T12:30:00Z"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeTimestamp(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeTimestamp_Invalid(t *testing.T) {
	for _, in := range []string{
		"",
		"2025-10-21T04:01:59Z",
		"21 Foo 2025 04:01:59",
		"31 Feb 2025 04:01:59",
		"21 Oct 2025",
	} {
		t.Run(in, func(t *testing.T) {
			_, err := NormalizeTimestamp(in)
			require.ErrorIs(t, err, ErrTimestampParse)
		})
	}
}

func TestParseISOTime(t *testing.T) {
	want := time.Date(2025, 10, 21, 4, 1, 59, 0, time.UTC)
	for _, in := range []string{
		"2025-10-21T04:01:59Z",
		"2025-10-21T04:01:59.250Z",
		"2025-10-21T04:01:59",
		"2025-10-21 04:01:59",
		"2025-294T04:01:59Z",
	} {
		t.Run(in, func(t *testing.T) {
			got, err := ParseISOTime(in)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}

	t.Run("date only", func(t *testing.T) {
		got, err := ParseISOTime("2025-10-21")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2025, 10, 21, 0, 0, 0, 0, time.UTC), got)
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := ParseISOTime("21 Oct 2025 04:01:59")
		require.ErrorIs(t, err, ErrTimestampParse)
	})
}

func TestFormatTimestamp(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*3600)
	got := FormatTimestamp(time.Date(2025, 10, 21, 6, 1, 59, 999_000_000, loc))
	assert.Equal(t, "2025-10-21T04:01:59Z", got)
}

func TestFormatLegacyTime(t *testing.T) {
	ts := time.Date(2025, time.October, 1, 4, 1, 59, 0, time.UTC)
	assert.Equal(t, "1 Oct 2025 04:01:59", FormatLegacyTime(ts))

	back, err := ParseLegacyTime(`"` + FormatLegacyTime(ts) + `"`)
	require.NoError(t, err)
	assert.Equal(t, ts, back)
}
