package server

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/tartampluch/go-bridgedays/internal/bridge"
	"github.com/tartampluch/go-bridgedays/internal/config"
	"github.com/tartampluch/go-bridgedays/internal/holiday"
	"github.com/tartampluch/go-bridgedays/internal/i18n"
	"github.com/tartampluch/go-bridgedays/internal/view"
)

//go:embed templates/index.html
var templateFS embed.FS

func parsePage() (*template.Template, error) {
	return template.ParseFS(templateFS, "templates/index.html")
}

type option struct {
	Value    string
	Label    string
	Selected bool
}

type monthView struct {
	Title string
	Weeks [][config.WeekColumns]view.Cell
}

type card struct {
	Text  string
	Days  string
	Score string
}

type link struct {
	Label string
	URL   string
}

type pageData struct {
	Tr        *i18n.Translator
	Lang      string
	Canton    string
	Name      string
	Year      int
	Max       int
	Cantons   []option
	Languages []option
	Summary   bridge.Summary
	Header    []string
	Months    []monthView
	Cards     []card
	Holidays  []holidayDTO
	Downloads []link
	Feed      string
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != config.RouteRoot {
		http.Error(w, config.HTTPMsgNotFound, http.StatusNotFound)
		return
	}
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
	tr := sel.tr

	data := pageData{
		Tr:      tr,
		Lang:    sel.lang,
		Canton:  string(res.Canton),
		Name:    res.CantonName,
		Year:    res.Year,
		Max:     sel.max,
		Summary: res.Summary,
		Header:  tr.WeekHeader(),
	}
	for _, c := range holiday.Cantons() {
		data.Cantons = append(data.Cantons, option{Value: string(c), Label: string(c) + " " + c.Name(), Selected: c == res.Canton})
	}
	for _, l := range s.Catalog.Languages() {
		data.Languages = append(data.Languages, option{Value: l, Label: strings.ToUpper(l), Selected: l == sel.lang})
	}
	for _, m := range view.BuildMonths(res.Calendar, res.Today, res.Recommendations) {
		data.Months = append(data.Months, monthView{Title: tr.Month(m.Month), Weeks: m.Weeks})
	}
	for _, rec := range res.Recommendations {
		data.Cards = append(data.Cards, card{
			Text:  view.Describe(tr, rec),
			Days:  tr.Plural(config.TKeyBridgeDaysOff, rec.TotalDaysOff),
			Score: view.Score(tr, rec),
		})
	}
	for _, h := range res.Holidays {
		data.Holidays = append(data.Holidays, holidayDTO{
			Date:    tr.Date(h.Date),
			Weekday: tr.WeekdayLong(h.Date.Weekday()),
			Name:    h.Name,
		})
	}

	q := url.Values{}
	q.Set(config.QueryCanton, data.Canton)
	q.Set(config.QueryYear, strconv.Itoa(data.Year))
	q.Set(config.QueryMax, strconv.Itoa(data.Max))
	q.Set(config.QueryLang, data.Lang)
	for _, f := range []string{config.FormatICS, config.FormatCSV, config.FormatJSON} {
		q.Set(config.QueryFormat, f)
		data.Downloads = append(data.Downloads, link{Label: strings.ToUpper(f), URL: config.RouteDownload + "?" + q.Encode()})
	}
	q.Del(config.QueryCanton)
	q.Del(config.QueryFormat)
	data.Feed = config.RouteSubscribe + data.Canton + config.ExtICS + "?" + q.Encode()

	var buf bytes.Buffer
	if err := s.page.Execute(&buf, data); err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeBody(w, r, config.MimeHTML, buf.Bytes())
}
