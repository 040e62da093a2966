// Package view prepares computed years for display: month grids, the
// terminal renderer and recommendation texts.
package view

import (
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tartampluch/go-bridgedays/internal/bridge"
	"github.com/tartampluch/go-bridgedays/internal/calendar"
	"github.com/tartampluch/go-bridgedays/internal/config"
	"github.com/tartampluch/go-bridgedays/internal/i18n"
)

// Cell is one position of a month grid. Padding cells have a zero Date.
type Cell struct {
	Date  time.Time
	Kind  calendar.Kind
	Today bool
	// Label names the holiday, or the holidays a bridge day connects to.
	Label string
}

// Empty reports whether the cell is padding before the 1st or after the last day.
func (c Cell) Empty() bool { return c.Date.IsZero() }

// Day returns the day of month, or 0 for padding.
func (c Cell) Day() int {
	if c.Empty() {
		return 0
	}
	return c.Date.Day()
}

// Class is the CSS class used by the web page.
func (c Cell) Class() string {
	if c.Empty() {
		return "empty"
	}
	return c.Kind.String()
}

// Month is a Monday-first grid of weeks.
type Month struct {
	Month time.Month
	Weeks [][config.WeekColumns]Cell
}

// BuildMonths lays out y as twelve month grids. today is highlighted when it
// falls inside the year; recs provide the labels of bridge cells.
func BuildMonths(y *calendar.Year, today time.Time, recs []bridge.Recommendation) []Month {
	bridgeLabels := make(map[time.Time]string)
	for _, r := range recs {
		label := strings.Join(r.Holidays, config.HolidayNameJoin)
		for d := r.Vacation.Start; !d.After(r.Vacation.End); d = d.AddDate(0, 0, 1) {
			bridgeLabels[d] = label
		}
	}

	months := make([]Month, 0, 12)
	var current *Month
	var week [config.WeekColumns]Cell

	for i := range y.Len() {
		d := y.At(i)
		if current == nil || d.Date.Month() != current.Month {
			if current != nil && !weekEmpty(week) {
				current.Weeks = append(current.Weeks, week)
			}
			months = append(months, Month{Month: d.Date.Month()})
			current = &months[len(months)-1]
			week = [config.WeekColumns]Cell{}
		}

		col := (int(d.Date.Weekday()) + 6) % 7
		cell := Cell{
			Date:  d.Date,
			Kind:  d.Kind,
			Today: d.Date.Equal(today),
			Label: d.HolidayName,
		}
		if d.Kind == calendar.BridgeCandidate {
			cell.Label = bridgeLabels[d.Date]
		}
		week[col] = cell

		if col == config.WeekColumns-1 {
			current.Weeks = append(current.Weeks, week)
			week = [config.WeekColumns]Cell{}
		}
	}
	if current != nil && !weekEmpty(week) {
		current.Weeks = append(current.Weeks, week)
	}
	return months
}

func weekEmpty(w [config.WeekColumns]Cell) bool {
	for _, c := range w {
		if !c.Empty() {
			return false
		}
	}
	return true
}

// RenderTerminal prints the months side by side. With color the kinds are
// shown as ANSI colors, otherwise as trailing markers.
func RenderTerminal(w io.Writer, tr *i18n.Translator, year int, months []Month, color bool) error {
	blockWidth := config.WeekColumns*config.TermCellWidth + config.WeekColumns - 1
	header := strings.Join(padAll(tr.WeekHeader(), config.TermCellWidth), " ")

	var b strings.Builder
	for start := 0; start < len(months); start += config.TermMonthsPerRow {
		row := months[start:min(start+config.TermMonthsPerRow, len(months))]

		titles := make([]string, len(row))
		headers := make([]string, len(row))
		maxWeeks := 0
		for i, m := range row {
			titles[i] = pad(fmt.Sprintf("%s %d", tr.Month(m.Month), year), blockWidth)
			headers[i] = pad(header, blockWidth)
			maxWeeks = max(maxWeeks, len(m.Weeks))
		}
		b.WriteString(strings.Join(titles, config.TermMonthGap) + "\n")
		b.WriteString(strings.Join(headers, config.TermMonthGap) + "\n")

		for wk := range maxWeeks {
			lines := make([]string, len(row))
			for i, m := range row {
				if wk >= len(m.Weeks) {
					lines[i] = strings.Repeat(" ", blockWidth)
					continue
				}
				cells := make([]string, config.WeekColumns)
				for c, cell := range m.Weeks[wk] {
					cells[c] = renderCell(cell, color)
				}
				lines[i] = strings.Join(cells, " ")
			}
			b.WriteString(strings.TrimRight(strings.Join(lines, config.TermMonthGap), " ") + "\n")
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func renderCell(c Cell, color bool) string {
	if c.Empty() {
		return strings.Repeat(" ", config.TermCellWidth)
	}
	num := fmt.Sprintf("%2d", c.Day())

	if !color {
		mark := config.MarkNone
		switch {
		case c.Today:
			mark = config.MarkToday
		case c.Kind == calendar.Holiday:
			mark = config.MarkHoliday
		case c.Kind == calendar.BridgeCandidate:
			mark = config.MarkBridge
		}
		return num + mark
	}

	var codes string
	switch c.Kind {
	case calendar.Holiday:
		codes = config.ANSIHoliday
	case calendar.BridgeCandidate:
		codes = config.ANSIBridge
	case calendar.Weekend:
		codes = config.ANSIWeekend
	}
	if c.Today {
		codes += config.ANSIToday
	}
	if codes == "" {
		return num + " "
	}
	return codes + num + config.ANSIReset + " "
}

func pad(s string, width int) string {
	if n := utf8.RuneCountInString(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}

func padAll(in []string, width int) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = pad(s, width)
	}
	return out
}

// Describe returns the localized sentence for a recommendation.
func Describe(tr *i18n.Translator, r bridge.Recommendation) string {
	holidays := strings.Join(r.Holidays, config.HolidayNameJoin)
	if r.VacationDays == 1 {
		return tr.TData(config.TKeyBridgeSingle, map[string]any{
			"Date":    weekdayDate(tr, r.Vacation.Start),
			"Holiday": holidays,
			"Total":   r.TotalDaysOff,
		})
	}
	return tr.TData(config.TKeyBridgeRange, map[string]any{
		"From":     weekdayDate(tr, r.Vacation.Start),
		"To":       weekdayDate(tr, r.Vacation.End),
		"Holiday":  holidays,
		"Total":    r.TotalDaysOff,
		"Vacation": r.VacationDays,
	})
}

// Score formats the efficiency of r.
func Score(tr *i18n.Translator, r bridge.Recommendation) string {
	return tr.TData(config.TKeyBridgeScore, map[string]any{"Score": fmt.Sprintf("%.2f", r.Score)})
}

func weekdayDate(tr *i18n.Translator, d time.Time) string {
	return tr.Weekday(d.Weekday()) + " " + tr.Date(d)
}
