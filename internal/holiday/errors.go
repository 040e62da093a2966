package holiday

import (
	"errors"
	"fmt"

	"github.com/tartampluch/go-bridgedays/internal/config"
)

// Validation failures surfaced before any computation starts.
var (
	ErrInvalidCanton = errors.New(config.ErrInvalidCanton)
	ErrInvalidYear   = errors.New(config.ErrInvalidYear)
)

// YearRange is the inclusive range of supported years.
type YearRange struct {
	Min int
	Max int
}

// DefaultYears covers every year the Gregorian computus is defined for.
var DefaultYears = YearRange{Min: config.DefaultMinYear, Max: config.DefaultMaxYear}

// Check returns ErrInvalidYear when year is non-positive or outside the range.
func (r YearRange) Check(year int) error {
	if year <= 0 || year < r.Min || year > r.Max {
		return fmt.Errorf("%w: %d (supported %d-%d)", ErrInvalidYear, year, r.Min, r.Max)
	}
	return nil
}

// Clamp narrows r to DefaultYears, which is what the calendar accepts.
func (r YearRange) Clamp() YearRange {
	r.Min = max(r.Min, DefaultYears.Min)
	r.Max = min(r.Max, DefaultYears.Max)
	return r
}
