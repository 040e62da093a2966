// Package calendar lays out a full year as classified days.
package calendar

import (
	"fmt"
	"time"

	"github.com/tartampluch/go-bridgedays/internal/config"
	"github.com/tartampluch/go-bridgedays/internal/holiday"
)

// Kind classifies a single day. Every day has exactly one kind.
type Kind int

const (
	Workday Kind = iota
	Weekend
	Holiday
	BridgeCandidate
)

var kindNames = [...]string{"workday", "weekend", "holiday", "bridge"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Off reports whether the day is free without taking vacation.
func (k Kind) Off() bool { return k == Weekend || k == Holiday }

// Day is one date of the year.
type Day struct {
	Date time.Time
	Kind Kind
	// HolidayName is set for public holidays, including those on a weekend.
	HolidayName string
}

// Span is an inclusive range of dates.
type Span struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether d lies within the span.
func (s Span) Contains(d time.Time) bool {
	return !d.Before(s.Start) && !d.After(s.End)
}

// Days returns the number of dates covered by the span.
func (s Span) Days() int {
	return int(s.End.Sub(s.Start).Hours()/24) + 1
}

// Year is the ordered sequence of days from January 1 to December 31.
type Year struct {
	year int
	days []Day
}

// IsLeap applies the Gregorian leap rule.
func IsLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// DaysIn returns 366 for leap years and 365 otherwise.
func DaysIn(year int) int {
	if IsLeap(year) {
		return 366
	}
	return 365
}

// Build classifies every day of year. Weekends take precedence over
// holidays; holidays outside the year are ignored.
func Build(year int, holidays []holiday.Holiday) (*Year, error) {
	if err := holiday.DefaultYears.Check(year); err != nil {
		return nil, err
	}

	names := make(map[int]string, len(holidays))
	for _, h := range holidays {
		if h.Date.Year() != year {
			continue
		}
		yd := h.Date.YearDay()
		if prev, ok := names[yd]; ok && prev != h.Name {
			names[yd] = prev + config.HolidayNameJoin + h.Name
			continue
		}
		names[yd] = h.Name
	}

	n := DaysIn(year)
	y := &Year{year: year, days: make([]Day, n)}
	first := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	for i := range n {
		d := first.AddDate(0, 0, i)
		day := Day{Date: d, HolidayName: names[i+1]}
		switch {
		case d.Weekday() == time.Saturday || d.Weekday() == time.Sunday:
			day.Kind = Weekend
		case day.HolidayName != "":
			day.Kind = Holiday
		default:
			day.Kind = Workday
		}
		y.days[i] = day
	}
	return y, nil
}

// Number returns the calendar year.
func (y *Year) Number() int { return y.year }

// Len returns the number of days.
func (y *Year) Len() int { return len(y.days) }

// At returns the i-th day (0 is January 1).
func (y *Year) At(i int) Day { return y.days[i] }

// Days returns a copy of all days.
func (y *Year) Days() []Day {
	return append([]Day(nil), y.days...)
}

// Index returns the position of date in the year, or -1.
func (y *Year) Index(date time.Time) int {
	if date.Year() != y.year {
		return -1
	}
	return date.YearDay() - 1
}

// Day looks up a date.
func (y *Year) Day(date time.Time) (Day, bool) {
	i := y.Index(date)
	if i < 0 {
		return Day{}, false
	}
	return y.days[i], true
}

// Count returns how many days have kind k.
func (y *Year) Count(k Kind) int {
	n := 0
	for _, d := range y.days {
		if d.Kind == k {
			n++
		}
	}
	return n
}

// Mark returns a copy of y where the workdays inside spans become bridge
// candidates. Weekends and holidays are left alone.
func (y *Year) Mark(spans ...Span) *Year {
	out := &Year{year: y.year, days: y.Days()}
	for _, s := range spans {
		for i := range out.days {
			if out.days[i].Kind == Workday && s.Contains(out.days[i].Date) {
				out.days[i].Kind = BridgeCandidate
			}
		}
	}
	return out
}
