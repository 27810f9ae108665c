package ir

import (
	"fmt"
	"strings"
	"time"
)

// TimestampGrammar is one accepted spelling of updated_at.
type TimestampGrammar struct {
	Name   string
	Layout string
	// Naive grammars carry no offset; the instant is taken as UTC.
	Naive bool
}

// TimestampGrammars lists the accepted updated_at grammars in the order they
// are tried. The first grammar that parses wins.
//
// Go's parser accepts a fractional second after the seconds field even when
// the layout omits one, so every grammar takes optional sub-second precision.
var TimestampGrammars = []TimestampGrammar{
	{Name: "rfc3339", Layout: time.RFC3339Nano},
	{Name: "iso8601-space", Layout: "2006-01-02 15:04:05.999999999Z07:00"},
	{Name: "strptime-fz", Layout: "2006-01-02T15:04:05Z0700"},
	{Name: "iso8601-naive", Layout: "2006-01-02T15:04:05.999999999", Naive: true},
	{Name: "iso8601-space-naive", Layout: "2006-01-02 15:04:05.999999999", Naive: true},
	{Name: "iso8601-minute", Layout: "2006-01-02T15:04Z07:00"},
	{Name: "iso8601-minute-naive", Layout: "2006-01-02T15:04", Naive: true},
	{Name: "iso8601-space-minute-naive", Layout: "2006-01-02 15:04", Naive: true},
	{Name: "iso8601-date", Layout: "2006-01-02", Naive: true},
}

// Stored instants are fixed-width four-digit years in UTC; anything
// outside that range cannot be written and read back.
const (
	minTimestampYear = 0
	maxTimestampYear = 9999
)

// ParseTimestamp parses raw against TimestampGrammars in order and returns
// the instant in UTC.
//
// Returns an *Error with ErrCodeMissingField if raw is blank, or
// ErrCodeMalformedTimestamp if no grammar matches or the instant falls
// outside years 0000-9999 in UTC.
func ParseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, NewMissingFieldError("updated_at")
	}

	for _, g := range TimestampGrammars {
		var (
			t   time.Time
			err error
		)
		if g.Naive {
			t, err = time.ParseInLocation(g.Layout, raw, time.UTC)
		} else {
			t, err = time.Parse(g.Layout, raw)
		}
		if err != nil {
			continue
		}
		t = t.UTC()
		if y := t.Year(); y < minTimestampYear || y > maxTimestampYear {
			return time.Time{}, &Error{
				Code:    ErrCodeMalformedTimestamp,
				Message: fmt.Sprintf("%q is outside years %04d-%04d in UTC", raw, minTimestampYear, maxTimestampYear),
				Field:   "updated_at",
			}
		}
		return t, nil
	}

	return time.Time{}, &Error{
		Code:    ErrCodeMalformedTimestamp,
		Message: fmt.Sprintf("%q matches no accepted timestamp grammar", raw),
		Field:   "updated_at",
	}
}

// FormatTimestamp serializes t as RFC 3339 in UTC with the shortest exact
// fractional second.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
