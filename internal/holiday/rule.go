package holiday

import (
	"fmt"
	"strings"
	"time"
)

// Kind selects how a Rule is anchored in the year.
type Kind string

const (
	// KindFixed is a fixed calendar date (Month, Day).
	KindFixed Kind = "fixed"
	// KindEaster is Easter Sunday shifted by Offset days.
	KindEaster Kind = "easter"
	// KindWeekday is the N-th Weekday of Month shifted by Offset days.
	KindWeekday Kind = "weekday"
)

// Rule describes how to compute one holiday for any year.
type Rule struct {
	Kind    Kind
	Month   time.Month
	Day     int
	Weekday time.Weekday
	N       int
	Offset  int
}

// Fixed returns a rule for a fixed calendar date.
func Fixed(month time.Month, day int) Rule {
	return Rule{Kind: KindFixed, Month: month, Day: day}
}

// EasterOffset returns a rule for a date relative to Easter Sunday.
func EasterOffset(days int) Rule {
	return Rule{Kind: KindEaster, Offset: days}
}

// NthWeekdayOffset returns a rule for the n-th weekday of a month, shifted by days.
func NthWeekdayOffset(month time.Month, wd time.Weekday, n, days int) Rule {
	return Rule{Kind: KindWeekday, Month: month, Weekday: wd, N: n, Offset: days}
}

// Resolve computes the date of r in year. It is the only place where
// movable feasts are evaluated.
func Resolve(r Rule, year int) time.Time {
	switch r.Kind {
	case KindEaster:
		return Easter(year).AddDate(0, 0, r.Offset)
	case KindWeekday:
		return NthWeekday(year, r.Month, r.Weekday, r.N).AddDate(0, 0, r.Offset)
	default:
		return time.Date(year, r.Month, r.Day, 0, 0, 0, 0, time.UTC)
	}
}

// Easter returns Easter Sunday of the Gregorian calendar using the
// anonymous Gregorian (Meeus/Jones/Butcher) algorithm.
func Easter(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := ((h + l - 7*m + 114) % 31) + 1

	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// NthWeekday returns the n-th (1-based) occurrence of wd in month.
func NthWeekday(year int, month time.Month, wd time.Weekday, n int) time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	delta := (int(wd) - int(first.Weekday()) + 7) % 7
	return first.AddDate(0, 0, delta+7*(n-1))
}

// validate reports structural problems that would make Resolve meaningless.
func (r Rule) validate() error {
	switch r.Kind {
	case KindFixed:
		if r.Month < time.January || r.Month > time.December || r.Day < 1 || r.Day > 31 {
			return fmt.Errorf("fixed rule needs month 1-12 and day 1-31, got %d/%d", r.Month, r.Day)
		}
		// Feb 29 would silently roll over to March 1 in common years.
		if time.Date(2001, r.Month, r.Day, 0, 0, 0, 0, time.UTC).Month() != r.Month {
			return fmt.Errorf("fixed rule %d/%d does not exist every year", r.Month, r.Day)
		}
	case KindEaster:
	case KindWeekday:
		if r.Month < time.January || r.Month > time.December {
			return fmt.Errorf("weekday rule needs month 1-12, got %d", r.Month)
		}
		if r.N < 1 || r.N > 4 {
			return fmt.Errorf("weekday rule needs nth 1-4, got %d", r.N)
		}
	default:
		return fmt.Errorf("unknown rule kind %q", r.Kind)
	}
	return nil
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func parseWeekday(s string) (time.Weekday, error) {
	wd, ok := weekdayNames[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("unknown weekday %q", s)
	}
	return wd, nil
}
