// Package bridge finds the workdays worth taking off between holidays and
// weekends.
package bridge

import (
	"sort"
	"time"

	"github.com/tartampluch/go-bridgedays/internal/calendar"
	"github.com/tartampluch/go-bridgedays/internal/config"
	"github.com/tartampluch/go-bridgedays/internal/holiday"
)

// Recommendation is a run of workdays that joins a holiday to the
// surrounding free days.
type Recommendation struct {
	// Vacation spans the workdays to take off.
	Vacation calendar.Span `json:"vacation"`
	// Off spans the whole consecutive free period that results.
	Off          calendar.Span `json:"off"`
	VacationDays int           `json:"vacation_days"`
	TotalDaysOff int           `json:"total_days_off"`
	Score        float64       `json:"score"`
	Holidays     []string      `json:"holidays"`
}

// better orders by score descending, comparing total/vacation ratios
// exactly, then by earlier vacation start.
func (r Recommendation) better(o Recommendation) bool {
	lhs := r.TotalDaysOff * o.VacationDays
	rhs := o.TotalDaysOff * r.VacationDays
	if lhs != rhs {
		return lhs > rhs
	}
	return r.Vacation.Start.Before(o.Vacation.Start)
}

// Analyzer scans a calendar for bridge days.
type Analyzer struct {
	// MaxVacationDays caps the run length. Zero or negative means the default.
	MaxVacationDays int
}

// NewAnalyzer returns an analyzer with the given cap.
func NewAnalyzer(maxVacationDays int) Analyzer {
	return Analyzer{MaxVacationDays: maxVacationDays}
}

func (a Analyzer) limit() int {
	if a.MaxVacationDays <= 0 {
		return config.DefaultMaxVacationDays
	}
	return a.MaxVacationDays
}

// Find returns every qualifying workday run, best first.
//
// A run of consecutive workdays qualifies when it is no longer than the cap,
// touches a weekend or holiday on at least one side within the year and the
// resulting free period contains at least one public holiday on a workday.
func (a Analyzer) Find(y *calendar.Year) []Recommendation {
	limit := a.limit()
	n := y.Len()
	off := func(i int) bool { return y.At(i).Kind.Off() }

	var recs []Recommendation
	for i := 0; i < n; {
		if off(i) {
			i++
			continue
		}
		j := i
		for j+1 < n && !off(j+1) {
			j++
		}

		// Runs are maximal, so an in-year neighbour is always off.
		flanked := i > 0 || j < n-1
		if j-i+1 <= limit && flanked {
			l, r := i, j
			for l > 0 && off(l-1) {
				l--
			}
			for r < n-1 && off(r+1) {
				r++
			}
			if rec, ok := newRecommendation(y, l, i, j, r); ok {
				recs = append(recs, rec)
			}
		}
		i = j + 1
	}

	sort.SliceStable(recs, func(i, j int) bool { return recs[i].better(recs[j]) })
	return recs
}

func newRecommendation(y *calendar.Year, l, i, j, r int) (Recommendation, bool) {
	var names []string
	for k := l; k <= r; k++ {
		if d := y.At(k); d.Kind == calendar.Holiday {
			names = append(names, d.HolidayName)
		}
	}
	if len(names) == 0 {
		return Recommendation{}, false
	}

	vacation := j - i + 1
	total := r - l + 1
	return Recommendation{
		Vacation:     calendar.Span{Start: y.At(i).Date, End: y.At(j).Date},
		Off:          calendar.Span{Start: y.At(l).Date, End: y.At(r).Date},
		VacationDays: vacation,
		TotalDaysOff: total,
		Score:        float64(total) / float64(vacation),
		Holidays:     names,
	}, true
}

// Spans returns the vacation spans of recs, ready for calendar.Year.Mark.
func Spans(recs []Recommendation) []calendar.Span {
	out := make([]calendar.Span, len(recs))
	for i, r := range recs {
		out[i] = r.Vacation
	}
	return out
}

// Plan greedily picks recommendations by rank while their vacation days
// fit budget. The picks are returned in date order.
func Plan(recs []Recommendation, budget int) []Recommendation {
	if budget <= 0 {
		return nil
	}
	ranked := append([]Recommendation(nil), recs...)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].better(ranked[j]) })

	var picked []Recommendation
	left := budget
	for _, r := range ranked {
		if r.VacationDays > left {
			continue
		}
		picked = append(picked, r)
		left -= r.VacationDays
	}
	sort.Slice(picked, func(i, j int) bool { return picked[i].Vacation.Start.Before(picked[j].Vacation.Start) })
	return picked
}

// Summary is the stats bar of a computed year.
type Summary struct {
	Holidays        int `json:"holidays"`
	OnWorkdays      int `json:"on_workdays"`
	Recommendations int `json:"recommendations"`
	FreeDays        int `json:"free_days"`
}

// Summarize counts holidays, those on workdays, the recommendations and
// the free days they would yield together.
func Summarize(holidays []holiday.Holiday, recs []Recommendation) Summary {
	s := Summary{Holidays: len(holidays), Recommendations: len(recs)}
	for _, h := range holidays {
		if wd := h.Date.Weekday(); wd != time.Saturday && wd != time.Sunday {
			s.OnWorkdays++
		}
	}
	for _, r := range recs {
		s.FreeDays += r.TotalDaysOff
	}
	return s
}
