package localtime

import (
	"fmt"
	"time"
)

const (
	daytimeStartHour = 6
	daytimeEndHour   = 20

	dayKeyLayout = "2006-01-02"
)

// Clock converts instants into the fixed display timezone. A single Clock is
// built at startup and shared by every component that buckets or labels by
// local day or hour, so all of them agree on where a day starts.
type Clock struct {
	loc *time.Location
}

// New loads the IANA timezone and returns a Clock for it.
func New(tz string) (*Clock, error) {
	if tz == "" {
		return nil, fmt.Errorf("timezone must not be empty")
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", tz, err)
	}
	return &Clock{loc: loc}, nil
}

// MustNew is New for tests and package-level defaults.
func MustNew(tz string) *Clock {
	c, err := New(tz)
	if err != nil {
		panic(err)
	}
	return c
}

// Location returns the display timezone.
func (c *Clock) Location() *time.Location {
	return c.loc
}

// Name returns the IANA name of the display timezone.
func (c *Clock) Name() string {
	return c.loc.String()
}

// In converts t into the display timezone.
func (c *Clock) In(t time.Time) time.Time {
	return t.In(c.loc)
}

// LocalHour returns the hour of day (0-23) of t in the display timezone.
func (c *Clock) LocalHour(t time.Time) int {
	return t.In(c.loc).Hour()
}

// DayLabel returns the short weekday name of t in the display timezone.
func (c *Clock) DayLabel(t time.Time) string {
	return t.In(c.loc).Format("Mon")
}

// DayKey returns the calendar date of t in the display timezone. Samples are
// grouped by this key; DayLabel alone repeats every seven days.
func (c *Clock) DayKey(t time.Time) string {
	return t.In(c.loc).Format(dayKeyLayout)
}

// IsDaytime reports whether the local hour of t is in [6,20).
func (c *Clock) IsDaytime(t time.Time) bool {
	h := c.LocalHour(t)
	return h >= daytimeStartHour && h < daytimeEndHour
}

// StartOfDay returns local midnight of the day t falls on.
func (c *Clock) StartOfDay(t time.Time) time.Time {
	lt := t.In(c.loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, c.loc)
}

// AddDays returns local midnight n days after the day t falls on.
func (c *Clock) AddDays(t time.Time, n int) time.Time {
	lt := t.In(c.loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day()+n, 0, 0, 0, 0, c.loc)
}

// HourLabel formats t as "15:04" in the display timezone.
func (c *Clock) HourLabel(t time.Time) string {
	return t.In(c.loc).Format("15:04")
}
