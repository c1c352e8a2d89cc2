package core

import (
	"strings"
	"time"
)

var nowFunc = time.Now // mockable

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// Now is the current UTC time at the database's microsecond precision.
func Now() time.Time {
	return nowFunc().UTC().Truncate(time.Microsecond)
}

// CleanStringPtr is CleanString for optional values; blank strings become nil.
func CleanStringPtr(s *string) *string {
	if s == nil {
		return nil
	}
	c := CleanString(*s)
	if c == "" {
		return nil
	}
	return &c
}

// TruncateDate drops the clock part of t, keeping its calendar date in t's location.
func TruncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SetNowFunc overrides the clock used by Now and Config.Today. It returns a func restoring the previous one.
func SetNowFunc(fn func() time.Time) (reset func()) {
	prev := nowFunc
	nowFunc = fn
	return func() { nowFunc = prev }
}
