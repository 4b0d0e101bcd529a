package timeutil

import (
	"time"
)

// IST is the shop's local time zone (UTC+5:30)
var IST *time.Location

func init() {
	var err error
	IST, err = time.LoadLocation("Asia/Kolkata")
	if err != nil {
		// Fallback when tzdata is missing from the container image
		IST = time.FixedZone("IST", 5*60*60+30*60)
	}
}

// Clock returns the current time. Services take one so tests can pin time.
type Clock func() time.Time

// Now returns the current time in IST
func Now() time.Time {
	return time.Now().In(IST)
}

// OrNow returns c, or Now when c is nil
func OrNow(c Clock) Clock {
	if c == nil {
		return Now
	}
	return c
}

// Fixed returns a Clock that always reports t
func Fixed(t time.Time) Clock {
	return func() time.Time { return t }
}

// Manual is a settable clock for tests and scripted scenarios
type Manual struct {
	t time.Time
}

// NewManual starts a manual clock at t
func NewManual(t time.Time) *Manual {
	return &Manual{t: t}
}

// Now reports the manual clock's current time
func (m *Manual) Now() time.Time {
	return m.t
}

// Advance moves the clock forward by d
func (m *Manual) Advance(d time.Duration) {
	m.t = m.t.Add(d)
}

// FormatIST formats a time in IST using the given layout
func FormatIST(t time.Time, layout string) string {
	return t.In(IST).Format(layout)
}

const DateTimeLayout = "2006-01-02 15:04:05"
