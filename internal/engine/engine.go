package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/panjf2000/ants"
	"go.uber.org/zap"

	"github.com/tartampluch/go-bridgedays/internal/bridge"
	"github.com/tartampluch/go-bridgedays/internal/calendar"
	"github.com/tartampluch/go-bridgedays/internal/config"
	"github.com/tartampluch/go-bridgedays/internal/holiday"
)

// LoadTable opens the holiday table selected by src and bounds it to years.
// The embedded table is used when src.Source is empty.
func LoadTable(ctx context.Context, src config.TableSettings, years holiday.YearRange, fetcher TableFetcher, log *zap.Logger) (*holiday.Table, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(
		zap.String(config.LogKeyComponent, config.CompEngine),
		zap.String(config.LogKeySource, src.Source),
	)

	var (
		tbl *holiday.Table
		err error
	)
	switch src.Source {
	case "", config.TableSourceEmbedded:
		tbl, err = holiday.DefaultTable()
		if err == nil {
			tbl = tbl.WithYears(years)
		}
	default:
		var rc io.ReadCloser
		rc, err = acquireStream(ctx, src, fetcher)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%s: %w", config.ErrTableRead, err)
		}
		defer func() { _ = rc.Close() }()
		// viper drops reader errors, so the document is buffered first.
		var data []byte
		data, err = io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", config.ErrTableRead, err)
		}
		tbl, err = holiday.LoadTable(bytes.NewReader(data), holiday.WithYearRange(years))
	}
	if err != nil {
		return nil, err
	}

	log.Info(config.MsgTableLoaded, zap.Int(config.LogKeyCantons, len(holiday.Cantons())))
	return tbl, nil
}

// acquireStream opens the appropriate data source based on configuration.
func acquireStream(ctx context.Context, src config.TableSettings, fetcher TableFetcher) (io.ReadCloser, error) {
	switch src.Source {
	case config.TableSourceLocal:
		if src.Path == "" {
			return nil, errors.New(config.ErrTablePathEmpty)
		}
		return os.Open(src.Path)
	case config.TableSourceWeb:
		if src.URL == "" {
			return nil, errors.New(config.ErrTableURLEmpty)
		}
		if fetcher == nil {
			return nil, errors.New(config.ErrFetcherMissing)
		}
		return fetcher.Fetch(ctx, src.URL)
	default:
		return nil, fmt.Errorf("%s: %q", config.ErrSourceUnsupport, src.Source)
	}
}

// Result is everything computed for one canton and year.
type Result struct {
	Canton          holiday.Canton
	CantonName      string
	Year            int
	Today           time.Time
	Holidays        []holiday.Holiday
	Calendar        *calendar.Year // bridge candidates marked
	Recommendations []bridge.Recommendation
	Summary         bridge.Summary
}

// CantonSummary is one row of the multi-canton overview.
type CantonSummary struct {
	Canton  holiday.Canton         `json:"canton"`
	Name    string                 `json:"name"`
	Summary bridge.Summary         `json:"summary"`
	Best    *bridge.Recommendation `json:"best,omitempty"`
}

// Planner runs the table, calendar and analyzer pipeline. It holds no
// per-request state and is safe for concurrent use.
type Planner struct {
	Table    *holiday.Table
	Analyzer bridge.Analyzer
	Clock    Clock
	Log      *zap.Logger
}

// NewPlanner wires a planner. A nil clock or logger gets a default.
func NewPlanner(tbl *holiday.Table, a bridge.Analyzer, clock Clock, log *zap.Logger) *Planner {
	if clock == nil {
		clock = RealClock{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Planner{Table: tbl, Analyzer: a, Clock: clock, Log: log}
}

// PlanOption tweaks a single Plan call.
type PlanOption func(*bridge.Analyzer)

// WithMaxVacationDays overrides the analyzer cap for one call. Values <= 0
// keep the planner's setting.
func WithMaxVacationDays(n int) PlanOption {
	return func(a *bridge.Analyzer) {
		if n > 0 {
			a.MaxVacationDays = n
		}
	}
}

// Plan validates the input and computes holidays, the marked calendar,
// ranked recommendations and the summary. No partial result is returned.
func (p *Planner) Plan(code string, year int, opts ...PlanOption) (*Result, error) {
	start := time.Now()

	hs, err := p.Table.HolidaysFor(code, year)
	if err != nil {
		return nil, err
	}
	c, _ := holiday.ParseCanton(code)

	cal, err := calendar.Build(year, hs)
	if err != nil {
		return nil, err
	}

	a := p.Analyzer
	for _, opt := range opts {
		opt(&a)
	}
	recs := a.Find(cal)

	res := &Result{
		Canton:          c,
		CantonName:      c.Name(),
		Year:            year,
		Today:           Today(p.Clock),
		Holidays:        hs,
		Calendar:        cal.Mark(bridge.Spans(recs)...),
		Recommendations: recs,
		Summary:         bridge.Summarize(hs, recs),
	}

	p.Log.Debug(config.MsgPlanComputed,
		zap.String(config.LogKeyComponent, config.CompEngine),
		zap.String(config.LogKeyCanton, string(c)),
		zap.Int(config.LogKeyYear, year),
		zap.Int(config.LogKeyHolidays, len(hs)),
		zap.Int(config.LogKeyBridges, len(recs)),
		zap.Int64(config.LogKeyDuration, time.Since(start).Milliseconds()),
	)
	return res, nil
}

// Overview plans every canton for year on a bounded worker pool and ranks
// them by potential free days, then by code.
func (p *Planner) Overview(ctx context.Context, year int, opts ...PlanOption) ([]CantonSummary, error) {
	if err := p.Table.Years().Check(year); err != nil {
		return nil, err
	}

	pool, err := ants.NewPool(config.OverviewPoolSize)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrPoolCreate, err)
	}
	defer pool.Release()

	cantons := holiday.Cantons()
	rows := make([]CantonSummary, len(cantons))
	errs := make([]error, len(cantons))

	var wg sync.WaitGroup
	for i, c := range cantons {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return nil, err
		}
		wg.Add(1)
		task := func() {
			defer wg.Done()
			res, err := p.Plan(string(c), year, opts...)
			if err != nil {
				errs[i] = err
				return
			}
			row := CantonSummary{Canton: c, Name: res.CantonName, Summary: res.Summary}
			if len(res.Recommendations) > 0 {
				best := res.Recommendations[0]
				row.Best = &best
			}
			rows[i] = row
		}
		if err := pool.Submit(task); err != nil {
			wg.Done()
			wg.Wait()
			return nil, fmt.Errorf("%s: %w", config.ErrPoolSubmit, err)
		}
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Summary.FreeDays != rows[j].Summary.FreeDays {
			return rows[i].Summary.FreeDays > rows[j].Summary.FreeDays
		}
		return rows[i].Canton < rows[j].Canton
	})

	p.Log.Info(config.MsgOverviewDone,
		zap.String(config.LogKeyComponent, config.CompEngine),
		zap.Int(config.LogKeyYear, year),
		zap.Int(config.LogKeyCantons, len(rows)),
	)
	return rows, nil
}
