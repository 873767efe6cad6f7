package models

import "time"

// Bar represents one base-interval OHLCV record. Time is the interval start.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Session is the explicit per-unit session input: the trading date and the
// range anchor resolved in the session's local timezone.
type Session struct {
	Date     time.Time // local midnight of the trading date
	Anchor   time.Time // range start, timezone-aware
	Location *time.Location
}

// NewSession builds a session for date (local midnight) anchored at hh:mm local time.
func NewSession(date time.Time, hour, minute int, loc *time.Location) Session {
	if loc == nil {
		loc = time.UTC
	}
	d := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)
	return Session{
		Date:     d,
		Anchor:   time.Date(d.Year(), d.Month(), d.Day(), hour, minute, 0, 0, loc),
		Location: loc,
	}
}

// DateKey returns the trading date as YYYY-MM-DD.
func (s Session) DateKey() string {
	return s.Date.Format("2006-01-02")
}
