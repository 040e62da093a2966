// Package export serializes selected bridge days for calendar applications
// and spreadsheets.
package export

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/tartampluch/go-bridgedays/internal/bridge"
	"github.com/tartampluch/go-bridgedays/internal/config"
	"github.com/tartampluch/go-bridgedays/internal/engine"
)

// Sentinel errors.
var (
	ErrUnknownDate       = errors.New(config.ErrUnknownDate)
	ErrUnsupportedFormat = errors.New(config.ErrFormatUnsupport)
)

// Entry is one exported all-day event.
type Entry struct {
	Date        time.Time `json:"date"`
	Summary     string    `json:"summary"`
	Description string    `json:"description"`
}

// Meta describes the exported calendar as a whole.
type Meta struct {
	Canton string `json:"canton"`
	Year   int    `json:"year"`
	Name   string `json:"name"`
}

// Formatter turns recommendation details into display text. Nil fields fall
// back to the German defaults.
type Formatter struct {
	Summary     func(holidays string) string
	Description func(total, vacation int) string
	CalName     func(canton string, year int) string
}

func (f Formatter) summary(holidays string) string {
	if f.Summary != nil {
		return f.Summary(holidays)
	}
	return fmt.Sprintf(config.FallbackSummary, holidays)
}

func (f Formatter) description(total, vacation int) string {
	if f.Description != nil {
		return f.Description(total, vacation)
	}
	if vacation == 1 {
		return fmt.Sprintf(config.FallbackDescriptionOne, total, vacation)
	}
	return fmt.Sprintf(config.FallbackDescription, total, vacation)
}

func (f Formatter) calName(canton string, year int) string {
	if f.CalName != nil {
		return f.CalName(canton, year)
	}
	return fmt.Sprintf(config.FallbackCalName, canton, year)
}

// MetaFor returns the calendar metadata of res.
func (f Formatter) MetaFor(res *engine.Result) Meta {
	return Meta{Canton: string(res.Canton), Year: res.Year, Name: f.calName(res.CantonName, res.Year)}
}

// Entries returns one entry per recommended vacation day in date order.
// When picks is non-empty only those dates are exported and every pick must
// be a recommended vacation day.
func (f Formatter) Entries(res *engine.Result, picks []time.Time) ([]Entry, error) {
	byDate := make(map[time.Time]Entry)
	for _, r := range res.Recommendations {
		e := Entry{
			Summary:     f.summary(strings.Join(r.Holidays, config.HolidayNameJoin)),
			Description: f.description(r.TotalDaysOff, r.VacationDays),
		}
		for d := r.Vacation.Start; !d.After(r.Vacation.End); d = d.AddDate(0, 0, 1) {
			e.Date = d
			byDate[d] = e
		}
	}

	var out []Entry
	if len(picks) == 0 {
		out = make([]Entry, 0, len(byDate))
		for _, e := range byDate {
			out = append(out, e)
		}
	} else {
		seen := make(map[time.Time]bool, len(picks))
		for _, p := range picks {
			d := time.Date(p.Year(), p.Month(), p.Day(), 0, 0, 0, 0, time.UTC)
			e, ok := byDate[d]
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrUnknownDate, d.Format(config.DateFormatISO))
			}
			if !seen[d] {
				seen[d] = true
				out = append(out, e)
			}
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// ParsePicks parses a comma separated list of YYYY-MM-DD dates.
func ParsePicks(raw string) ([]time.Time, error) {
	var out []time.Time
	for _, part := range strings.Split(raw, config.PickSeparator) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, err := time.Parse(config.DateFormatISO, part)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", config.ErrPickParse, err)
		}
		out = append(out, d)
	}
	return out, nil
}

// PlanEntries is a shortcut selecting the vacation days of recs.
func PlanEntries(f Formatter, res *engine.Result, recs []bridge.Recommendation) ([]Entry, error) {
	var picks []time.Time
	for _, r := range recs {
		for d := r.Vacation.Start; !d.After(r.Vacation.End); d = d.AddDate(0, 0, 1) {
			picks = append(picks, d)
		}
	}
	if len(picks) == 0 {
		return nil, nil
	}
	return f.Entries(res, picks)
}

// FileName returns brueckentage_<CANTON>_<YEAR>.<ext>.
func FileName(canton string, year int, ext string) string {
	return fmt.Sprintf(config.FormatFileName, strings.ToUpper(canton), year, strings.TrimPrefix(ext, "."))
}

// ContentType returns the MIME type of format.
func ContentType(format string) (string, error) {
	switch format {
	case config.FormatICS:
		return config.MimeTextCalendar, nil
	case config.FormatCSV:
		return config.MimeTextCSV, nil
	case config.FormatJSON:
		return config.MimeJSON, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// Encode writes entries in format.
func Encode(w io.Writer, format string, meta Meta, entries []Entry, now time.Time) error {
	switch format {
	case config.FormatICS:
		return ICS(w, meta, entries, now)
	case config.FormatCSV:
		return CSV(w, entries)
	case config.FormatJSON:
		return JSON(w, meta, entries)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}
