package server

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/vmihailenco/msgpack"

	"github.com/tartampluch/go-bridgedays/internal/bridge"
	"github.com/tartampluch/go-bridgedays/internal/config"
	"github.com/tartampluch/go-bridgedays/internal/engine"
	"github.com/tartampluch/go-bridgedays/internal/export"
	"github.com/tartampluch/go-bridgedays/internal/holiday"
	"github.com/tartampluch/go-bridgedays/internal/i18n"
	"github.com/tartampluch/go-bridgedays/internal/view"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// -----------------------------------------------------------------------------
// Wire types
// -----------------------------------------------------------------------------

type cantonDTO struct {
	Code string `json:"code" msgpack:"code"`
	Name string `json:"name" msgpack:"name"`
}

type defaultsDTO struct {
	Canton          string `json:"canton" msgpack:"canton"`
	Year            int    `json:"year" msgpack:"year"`
	Language        string `json:"language" msgpack:"language"`
	MaxVacationDays int    `json:"max_vacation_days" msgpack:"max_vacation_days"`
}

type yearsDTO struct {
	Min int `json:"min" msgpack:"min"`
	Max int `json:"max" msgpack:"max"`
}

type configDTO struct {
	Cantons   []cantonDTO `json:"cantons" msgpack:"cantons"`
	Languages []string    `json:"languages" msgpack:"languages"`
	Formats   []string    `json:"formats" msgpack:"formats"`
	Defaults  defaultsDTO `json:"defaults" msgpack:"defaults"`
	Years     yearsDTO    `json:"years" msgpack:"years"`
}

type holidayDTO struct {
	Date    string `json:"date" msgpack:"date"`
	Weekday string `json:"weekday" msgpack:"weekday"`
	Name    string `json:"name" msgpack:"name"`
}

type holidaysDTO struct {
	Canton   string       `json:"canton" msgpack:"canton"`
	Name     string       `json:"name" msgpack:"name"`
	Year     int          `json:"year" msgpack:"year"`
	Holidays []holidayDTO `json:"holidays" msgpack:"holidays"`
}

type summaryDTO struct {
	Holidays        int `json:"holidays" msgpack:"holidays"`
	OnWorkdays      int `json:"on_workdays" msgpack:"on_workdays"`
	Recommendations int `json:"recommendations" msgpack:"recommendations"`
	FreeDays        int `json:"free_days" msgpack:"free_days"`
}

type dayDTO struct {
	Date string `json:"date" msgpack:"date"`
	Kind string `json:"kind" msgpack:"kind"`
	Name string `json:"name,omitempty" msgpack:"name,omitempty"`
}

type calendarDTO struct {
	Canton  string     `json:"canton" msgpack:"canton"`
	Year    int        `json:"year" msgpack:"year"`
	Today   string     `json:"today" msgpack:"today"`
	Days    []dayDTO   `json:"days" msgpack:"days"`
	Summary summaryDTO `json:"summary" msgpack:"summary"`
}

type recommendationDTO struct {
	VacationStart string   `json:"vacation_start" msgpack:"vacation_start"`
	VacationEnd   string   `json:"vacation_end" msgpack:"vacation_end"`
	OffStart      string   `json:"off_start" msgpack:"off_start"`
	OffEnd        string   `json:"off_end" msgpack:"off_end"`
	VacationDays  int      `json:"vacation_days" msgpack:"vacation_days"`
	TotalDaysOff  int      `json:"total_days_off" msgpack:"total_days_off"`
	Score         float64  `json:"score" msgpack:"score"`
	Holidays      []string `json:"holidays" msgpack:"holidays"`
	Text          string   `json:"text" msgpack:"text"`
}

type bridgesDTO struct {
	Canton          string              `json:"canton" msgpack:"canton"`
	Name            string              `json:"name" msgpack:"name"`
	Year            int                 `json:"year" msgpack:"year"`
	MaxVacationDays int                 `json:"max_vacation_days" msgpack:"max_vacation_days"`
	Budget          int                 `json:"budget,omitempty" msgpack:"budget,omitempty"`
	Recommendations []recommendationDTO `json:"recommendations" msgpack:"recommendations"`
	Summary         summaryDTO          `json:"summary" msgpack:"summary"`
}

type overviewRowDTO struct {
	Canton  string             `json:"canton" msgpack:"canton"`
	Name    string             `json:"name" msgpack:"name"`
	Summary summaryDTO         `json:"summary" msgpack:"summary"`
	Best    *recommendationDTO `json:"best,omitempty" msgpack:"best,omitempty"`
}

type overviewDTO struct {
	Year    int              `json:"year" msgpack:"year"`
	Cantons []overviewRowDTO `json:"cantons" msgpack:"cantons"`
}

func iso(t time.Time) string { return t.Format(config.DateFormatISO) }

func newSummaryDTO(s bridge.Summary) summaryDTO {
	return summaryDTO{
		Holidays:        s.Holidays,
		OnWorkdays:      s.OnWorkdays,
		Recommendations: s.Recommendations,
		FreeDays:        s.FreeDays,
	}
}

func newRecommendationDTO(tr *i18n.Translator, r bridge.Recommendation) recommendationDTO {
	return recommendationDTO{
		VacationStart: iso(r.Vacation.Start),
		VacationEnd:   iso(r.Vacation.End),
		OffStart:      iso(r.Off.Start),
		OffEnd:        iso(r.Off.End),
		VacationDays:  r.VacationDays,
		TotalDaysOff:  r.TotalDaysOff,
		Score:         r.Score,
		Holidays:      r.Holidays,
		Text:          view.Describe(tr, r),
	}
}

func newRecommendationDTOs(tr *i18n.Translator, recs []bridge.Recommendation) []recommendationDTO {
	out := make([]recommendationDTO, len(recs))
	for i, r := range recs {
		out[i] = newRecommendationDTO(tr, r)
	}
	return out
}

func newHolidayDTOs(tr *i18n.Translator, hs []holiday.Holiday) []holidayDTO {
	out := make([]holidayDTO, len(hs))
	for i, h := range hs {
		out[i] = holidayDTO{Date: iso(h.Date), Weekday: tr.WeekdayLong(h.Date.Weekday()), Name: h.Name}
	}
	return out
}

// -----------------------------------------------------------------------------
// Encoding
// -----------------------------------------------------------------------------

func wantsMsgpack(r *http.Request) bool {
	return strings.Contains(r.Header.Get(config.HeaderAccept), config.MimeMsgpack) ||
		r.URL.Query().Get(config.QueryFormat) == config.FormatMsgpack
}

// writeData answers with v as msgpack when asked for, JSON otherwise.
func (s *Server) writeData(w http.ResponseWriter, r *http.Request, v any) {
	var (
		data []byte
		err  error
		ct   = config.MimeJSON
	)
	if wantsMsgpack(r) {
		ct = config.MimeMsgpack
		data, err = msgpack.Marshal(v)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeBody(w, r, ct, data)
}

// -----------------------------------------------------------------------------
// Handlers
// -----------------------------------------------------------------------------

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	cantons := holiday.Cantons()
	dto := configDTO{
		Cantons:   make([]cantonDTO, len(cantons)),
		Languages: s.Catalog.Languages(),
		Formats:   []string{config.FormatICS, config.FormatCSV, config.FormatJSON},
		Defaults: defaultsDTO{
			Canton:          s.Settings.Defaults.Canton,
			Year:            s.defaultYear(),
			Language:        s.Settings.Defaults.Language,
			MaxVacationDays: s.Settings.Analyzer.MaxVacationDays,
		},
		Years: yearsDTO{Min: s.Planner.Table.Years().Min, Max: s.Planner.Table.Years().Max},
	}
	for i, c := range cantons {
		dto.Cantons[i] = cantonDTO{Code: string(c), Name: c.Name()}
	}
	s.writeData(w, r, dto)
}

func (s *Server) handleHolidays(w http.ResponseWriter, r *http.Request) {
	sel, err := s.selection(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	hs, err := s.Planner.Table.HolidaysFor(sel.canton, sel.year)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	c, _ := holiday.ParseCanton(sel.canton)
	s.writeData(w, r, holidaysDTO{
		Canton:   string(c),
		Name:     c.Name(),
		Year:     sel.year,
		Holidays: newHolidayDTOs(sel.tr, hs),
	})
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	sel, err := s.selection(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.plan(sel)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	days := res.Calendar.Days()
	dto := calendarDTO{
		Canton:  string(res.Canton),
		Year:    res.Year,
		Today:   iso(res.Today),
		Days:    make([]dayDTO, len(days)),
		Summary: newSummaryDTO(res.Summary),
	}
	for i, d := range days {
		dto.Days[i] = dayDTO{Date: iso(d.Date), Kind: d.Kind.String(), Name: d.HolidayName}
	}
	s.writeData(w, r, dto)
}

func (s *Server) handleBridges(w http.ResponseWriter, r *http.Request) {
	sel, err := s.selection(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	budget := 0
	if raw := r.URL.Query().Get(config.QueryBudget); raw != "" {
		if budget, err = positiveInt(config.QueryBudget, raw); err != nil {
			s.fail(w, r, err)
			return
		}
	}
	res, err := s.plan(sel)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	recs := res.Recommendations
	if budget > 0 {
		recs = bridge.Plan(recs, budget)
	}
	s.writeData(w, r, bridgesDTO{
		Canton:          string(res.Canton),
		Name:            res.CantonName,
		Year:            res.Year,
		MaxVacationDays: sel.max,
		Budget:          budget,
		Recommendations: newRecommendationDTOs(sel.tr, recs),
		Summary:         newSummaryDTO(res.Summary),
	})
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	sel, err := s.selection(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	rows, err := s.Planner.Overview(r.Context(), sel.year, engine.WithMaxVacationDays(sel.max))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	dto := overviewDTO{Year: sel.year, Cantons: make([]overviewRowDTO, len(rows))}
	for i, row := range rows {
		dto.Cantons[i] = overviewRowDTO{Canton: string(row.Canton), Name: row.Name, Summary: newSummaryDTO(row.Summary)}
		if row.Best != nil {
			best := newRecommendationDTO(sel.tr, *row.Best)
			dto.Cantons[i].Best = &best
		}
	}
	s.writeData(w, r, dto)
}

// handleDownload serves the selected bridge days as an attachment.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	sel, err := s.selection(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	q := r.URL.Query()

	format := strings.ToLower(strings.TrimSpace(q.Get(config.QueryFormat)))
	if format == "" {
		format = config.FormatICS
	}
	ct, err := export.ContentType(format)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	picks, err := export.ParsePicks(q.Get(config.QueryPick))
	if err != nil {
		s.fail(w, r, requestError{err})
		return
	}

	res, err := s.plan(sel)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	f := sel.tr.ExportFormatter()
	entries, err := f.Entries(res, picks)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := export.Encode(&buf, format, f.MetaFor(res), entries, s.Planner.Clock.Now()); err != nil {
		s.fail(w, r, err)
		return
	}

	name := export.FileName(string(res.Canton), res.Year, format)
	w.Header().Set(config.HeaderContentDisposition, fmt.Sprintf(config.FormatAttachment, name))
	s.writeBody(w, r, ct, buf.Bytes())
}

// handleSubscribe serves /api/subscribe/<CANTON>.ics with conditional
// request support so calendar clients can poll cheaply.
func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, config.RouteSubscribe)
	if !strings.HasSuffix(strings.ToLower(name), config.ExtICS) || strings.Contains(name, "/") {
		http.Error(w, config.ErrFeedPath, http.StatusNotFound)
		return
	}

	sel, err := s.selection(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sel.canton = name[:len(name)-len(config.ExtICS)]

	res, err := s.plan(sel)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	f := sel.tr.ExportFormatter()
	entries, err := f.Entries(res, nil)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	// DTSTAMP is the day, not the instant: same body and ETag until midnight.
	var buf bytes.Buffer
	if err := export.ICS(&buf, f.MetaFor(res), entries, res.Today); err != nil {
		s.fail(w, r, err)
		return
	}

	key := fmt.Sprintf("%s|%d|%d|%s", res.Canton, res.Year, sel.max, sel.lang)
	item := s.feeds.update(key, buf.Bytes())

	w.Header().Set(config.HeaderCacheControl, config.CacheControlPrivate)
	w.Header().Set(config.HeaderETag, item.etag)
	w.Header().Set(config.HeaderLastModified, item.lastModified)

	if notModified(r, item) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	s.writeBody(w, r, config.MimeTextCalendar, item.data)
}
