package holiday

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rickar/cal/v2"
	"github.com/spf13/viper"

	"github.com/tartampluch/go-bridgedays/internal/config"
)

//go:embed cantons.yaml
var embeddedTable []byte

// Holiday is one public holiday on a concrete date. Several holidays falling
// on the same date are merged into one entry.
type Holiday struct {
	Date time.Time `json:"date" msgpack:"date"`
	Name string    `json:"name" msgpack:"name"`
}

// Definition is a named rule from the table.
type Definition struct {
	ID    string
	Name  string
	Rule  Rule
	Since int
}

type cantonEntry struct {
	defs     []Definition
	business *cal.BusinessCalendar
	rules    []*cal.Holiday
}

// Table maps every canton to the holidays it observes. It is immutable after
// loading and safe for concurrent use.
type Table struct {
	years   YearRange
	cantons map[Canton]*cantonEntry
}

// Option customizes LoadTable.
type Option func(*Table)

// WithYearRange restricts the years accepted by HolidaysFor.
func WithYearRange(r YearRange) Option {
	return func(t *Table) { t.years = r.Clamp() }
}

type tableDoc struct {
	Holidays map[string]holidayDoc `mapstructure:"holidays"`
	National []string              `mapstructure:"national"`
	Cantons  map[string]cantonDoc  `mapstructure:"cantons"`
}

type holidayDoc struct {
	Name    string `mapstructure:"name"`
	Kind    string `mapstructure:"kind"`
	Month   int    `mapstructure:"month"`
	Day     int    `mapstructure:"day"`
	Weekday string `mapstructure:"weekday"`
	Nth     int    `mapstructure:"nth"`
	Offset  int    `mapstructure:"offset"`
	Since   int    `mapstructure:"since"`
}

type cantonDoc struct {
	Holidays []string `mapstructure:"holidays"`
}

// LoadTable decodes a YAML holiday table. Every one of the 26 cantons must be
// present and every referenced holiday must be defined.
func LoadTable(r io.Reader, opts ...Option) (*Table, error) {
	v := viper.New()
	v.SetConfigType(config.ConfigFileType)
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrTableRead, err)
	}

	var doc tableDoc
	if err := v.Unmarshal(&doc); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrTableDecode, err)
	}

	t := &Table{years: DefaultYears, cantons: make(map[Canton]*cantonEntry, len(cantonOrder))}
	for _, opt := range opts {
		opt(t)
	}

	defs := make(map[string]Definition, len(doc.Holidays))
	for id, hd := range doc.Holidays {
		def, err := hd.definition(id)
		if err != nil {
			return nil, fmt.Errorf("%s: holiday %q: %w", config.ErrTableInvalid, id, err)
		}
		defs[def.ID] = def
	}

	// viper lowercases map keys, canton codes are restored here.
	byCode := make(map[Canton]cantonDoc, len(doc.Cantons))
	for code, cd := range doc.Cantons {
		c, err := ParseCanton(code)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", config.ErrTableInvalid, err)
		}
		byCode[c] = cd
	}

	for _, c := range cantonOrder {
		cd, ok := byCode[c]
		if !ok {
			return nil, fmt.Errorf("%s: canton %s missing", config.ErrTableInvalid, c)
		}
		entry, err := newCantonEntry(defs, doc.National, cd.Holidays)
		if err != nil {
			return nil, fmt.Errorf("%s: canton %s: %w", config.ErrTableInvalid, c, err)
		}
		t.cantons[c] = entry
	}
	return t, nil
}

var (
	defaultOnce  sync.Once
	defaultTable *Table
	defaultErr   error
)

// DefaultTable returns the table compiled into the binary.
func DefaultTable() (*Table, error) {
	defaultOnce.Do(func() {
		defaultTable, defaultErr = LoadTable(bytes.NewReader(embeddedTable))
	})
	return defaultTable, defaultErr
}

// EmbeddedYAML returns a copy of the compiled-in table source.
func EmbeddedYAML() []byte {
	return bytes.Clone(embeddedTable)
}

// WithYears returns a copy of t bounded to r. Rule data is shared.
func (t *Table) WithYears(r YearRange) *Table {
	return &Table{years: r.Clamp(), cantons: t.cantons}
}

// Years returns the supported year range.
func (t *Table) Years() YearRange { return t.years }

// Definitions returns the rules observed in canton c, national ones first.
func (t *Table) Definitions(c Canton) []Definition {
	e, ok := t.cantons[c]
	if !ok {
		return nil
	}
	return append([]Definition(nil), e.defs...)
}

// HolidaysFor returns the holidays of canton code in year, sorted by date.
// Holidays sharing a date are merged with their names joined.
func (t *Table) HolidaysFor(code string, year int) ([]Holiday, error) {
	c, err := ParseCanton(code)
	if err != nil {
		return nil, err
	}
	if err := t.years.Check(year); err != nil {
		return nil, err
	}

	entry := t.cantons[c]
	out := make([]Holiday, 0, len(entry.rules))
	for i, h := range entry.rules {
		if since := entry.defs[i].Since; since > 0 && year < since {
			continue
		}
		actual, _ := h.Calc(year)
		if actual.IsZero() {
			continue
		}
		out = append(out, Holiday{Date: actual, Name: h.Name})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return merge(out), nil
}

// IsHoliday reports whether d is a public holiday in canton c and names it.
func (t *Table) IsHoliday(c Canton, d time.Time) (bool, string) {
	e, ok := t.cantons[c]
	if !ok {
		return false, ""
	}
	actual, _, h := e.business.IsHoliday(d)
	if !actual || h == nil {
		return false, ""
	}
	return true, h.Name
}

func merge(in []Holiday) []Holiday {
	if len(in) < 2 {
		return in
	}
	out := in[:1]
	for _, h := range in[1:] {
		last := &out[len(out)-1]
		if last.Date.Equal(h.Date) {
			last.Name += config.HolidayNameJoin + h.Name
			continue
		}
		out = append(out, h)
	}
	return out
}

func newCantonEntry(defs map[string]Definition, national, extra []string) (*cantonEntry, error) {
	e := &cantonEntry{business: cal.NewBusinessCalendar()}
	seen := make(map[string]bool, len(national)+len(extra))

	for _, raw := range append(append([]string(nil), national...), extra...) {
		id := strings.ToLower(strings.TrimSpace(raw))
		if seen[id] {
			continue
		}
		def, ok := defs[id]
		if !ok {
			return nil, fmt.Errorf("unknown holiday %q", raw)
		}
		seen[id] = true

		h := def.calHoliday()
		e.defs = append(e.defs, def)
		e.rules = append(e.rules, h)
		e.business.AddHoliday(h)
	}
	return e, nil
}

func (d Definition) calHoliday() *cal.Holiday {
	rule := d.Rule
	return &cal.Holiday{
		Name:      d.Name,
		Type:      cal.ObservancePublic,
		StartYear: d.Since,
		Func: func(_ *cal.Holiday, year int) time.Time {
			return Resolve(rule, year)
		},
	}
}

func (hd holidayDoc) definition(id string) (Definition, error) {
	def := Definition{
		ID:    strings.ToLower(id),
		Name:  strings.TrimSpace(hd.Name),
		Since: hd.Since,
	}
	if def.Name == "" {
		return def, fmt.Errorf("name is empty")
	}

	switch Kind(strings.ToLower(hd.Kind)) {
	case KindFixed:
		def.Rule = Fixed(time.Month(hd.Month), hd.Day)
	case KindEaster:
		def.Rule = EasterOffset(hd.Offset)
	case KindWeekday:
		wd, err := parseWeekday(hd.Weekday)
		if err != nil {
			return def, err
		}
		def.Rule = NthWeekdayOffset(time.Month(hd.Month), wd, hd.Nth, hd.Offset)
	default:
		return def, fmt.Errorf("unknown rule kind %q", hd.Kind)
	}
	return def, def.Rule.validate()
}
