package ir

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp_AcceptedGrammars(t *testing.T) {
	want := time.Date(2025, 3, 14, 9, 26, 53, 589793000, time.UTC)

	tests := []struct {
		name string
		raw  string
	}{
		{"python isoformat with offset", "2025-03-14T09:26:53.589793+00:00"},
		{"rfc3339 zulu", "2025-03-14T09:26:53.589793Z"},
		{"rfc3339 non-utc offset", "2025-03-14T11:26:53.589793+02:00"},
		{"space separator", "2025-03-14 09:26:53.589793+00:00"},
		{"strptime compact offset", "2025-03-14T09:26:53.589793+0000"},
		{"strptime compact negative offset", "2025-03-14T04:26:53.589793-0500"},
		{"strptime zulu", "2025-03-14T09:26:53.589793Z"},
		{"naive", "2025-03-14T09:26:53.589793"},
		{"surrounding whitespace", "  2025-03-14T09:26:53.589793Z\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimestamp(tt.raw)
			require.NoError(t, err)
			assert.True(t, want.Equal(got), "got %s, want %s", got, want)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestParseTimestamp_WithoutFraction(t *testing.T) {
	got, err := ParseTimestamp("2025-03-14T09:26:53+00:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC), got)
}

func TestParseTimestamp_Malformed(t *testing.T) {
	inputs := []string{
		"yesterday",
		"2025-13-14T09:26:53Z",
		"2025-03-14T",
		"2025-03-14T09",
		"14/03/2025 09:26:53",
		"2025-03-14T09:26:53 +00:00",
	}

	for _, raw := range inputs {
		t.Run(raw, func(t *testing.T) {
			_, err := ParseTimestamp(raw)
			require.Error(t, err)
			assert.Equal(t, ErrCodeMalformedTimestamp, CodeOf(err))
			assert.True(t, IsValidationError(err))
		})
	}
}

func TestParseTimestamp_NaiveAndReducedPrecision(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Time
	}{
		{"2025-03-14 10:00:00", time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)},
		{"2025-03-14 10:00:00.123456", time.Date(2025, 3, 14, 10, 0, 0, 123456000, time.UTC)},
		{"2025-03-14T10:00", time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)},
		{"2025-03-14T12:00+02:00", time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)},
		{"2025-03-14 10:00", time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)},
		{"2025-03-14", time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseTimestamp(tt.raw)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s, want %s", got, tt.want)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestParseTimestamp_YearOutOfRange(t *testing.T) {
	inputs := []string{
		"9999-12-31T23:30:00-01:00",
		"0000-01-01T00:30:00+01:00",
		"9999-12-31 23:30:00-01:00",
	}

	for _, raw := range inputs {
		t.Run(raw, func(t *testing.T) {
			_, err := ParseTimestamp(raw)
			require.Error(t, err)
			assert.Equal(t, ErrCodeMalformedTimestamp, CodeOf(err))
		})
	}
}

func TestParseTimestamp_YearBounds(t *testing.T) {
	got, err := ParseTimestamp("9999-12-31T23:59:59.999999999Z")
	require.NoError(t, err)
	assert.Equal(t, 9999, got.Year())

	got, err = ParseTimestamp("0000-01-01T00:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, 0, got.Year())
}

func TestParseTimestamp_Empty(t *testing.T) {
	_, err := ParseTimestamp("   ")
	require.Error(t, err)
	assert.Equal(t, ErrCodeMissingField, CodeOf(err))
}

func TestFormatTimestamp_RoundTrip(t *testing.T) {
	in := time.Date(2025, 3, 14, 11, 26, 53, 500000000, time.FixedZone("EET", 2*3600))

	s := FormatTimestamp(in)
	assert.Equal(t, "2025-03-14T09:26:53.5Z", s)

	back, err := ParseTimestamp(s)
	require.NoError(t, err)
	assert.True(t, in.Equal(back))
}
