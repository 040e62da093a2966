// Package i18n loads the embedded translations and localizes dates and
// recommendation texts.
package i18n

import (
	"embed"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	goi18n "github.com/nicksnyder/go-i18n/v2/i18n"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/tartampluch/go-bridgedays/internal/config"
	"github.com/tartampluch/go-bridgedays/internal/export"
)

//go:embed locales/*.json
var localeFS embed.FS

// Catalog holds every loaded language. It is immutable once built.
type Catalog struct {
	bundle  *goi18n.Bundle
	langs   []string
	matcher language.Matcher
	log     *zap.Logger
}

// NewCatalog loads the embedded active.<lang>.json files. German is the base
// language and is always listed first.
func NewCatalog(log *zap.Logger) (*Catalog, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String(config.LogKeyComponent, config.CompI18n))

	bundle := goi18n.NewBundle(language.German)
	bundle.RegisterUnmarshalFunc("json", jsoniter.Unmarshal)

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrLocalesAccess, err)
	}

	var langs []string
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "active.") || !strings.HasSuffix(name, ".json") {
			log.Debug(config.MsgLocaleSkip, zap.String(config.LogKeyFile, name))
			continue
		}

		langCode := strings.TrimSuffix(strings.TrimPrefix(name, "active."), ".json")
		if langCode == "" {
			log.Warn(config.MsgLocaleBadName, zap.String(config.LogKeyFile, name))
			continue
		}

		if _, err := bundle.LoadMessageFileFS(localeFS, "locales/"+name); err != nil {
			return nil, fmt.Errorf("%s %s: %w", config.ErrLocaleLoad, name, err)
		}
		langs = append(langs, langCode)
		log.Debug(config.MsgLocaleLoaded, zap.String(config.LogKeyLang, langCode), zap.String(config.LogKeyFile, name))
	}

	// The matcher falls back to its first tag.
	slices.SortStableFunc(langs, func(a, b string) int {
		switch {
		case a == config.DefaultLanguage:
			return -1
		case b == config.DefaultLanguage:
			return 1
		default:
			return strings.Compare(a, b)
		}
	})
	tags := make([]language.Tag, len(langs))
	for i, l := range langs {
		tags[i] = language.Make(l)
	}

	return &Catalog{bundle: bundle, langs: langs, matcher: language.NewMatcher(tags), log: log}, nil
}

// Languages returns the loaded language codes, default first.
func (c *Catalog) Languages() []string {
	return append([]string(nil), c.langs...)
}

// Supports reports whether lang was loaded.
func (c *Catalog) Supports(lang string) bool {
	return slices.Contains(c.langs, lang)
}

// Match picks the best loaded language for an explicit choice and an
// Accept-Language header, in that order.
func (c *Catalog) Match(explicit, acceptLanguage string) string {
	if l := strings.ToLower(strings.TrimSpace(explicit)); c.Supports(l) {
		return l
	}
	if len(c.langs) == 0 {
		return config.DefaultLanguage
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return c.langs[0]
	}
	_, idx, conf := c.matcher.Match(tags...)
	if conf == language.No {
		return c.langs[0]
	}
	return c.langs[idx]
}

// Translator returns a localizer for lang, falling back to the default.
func (c *Catalog) Translator(lang string) *Translator {
	if !c.Supports(lang) {
		lang = config.DefaultLanguage
	}
	return &Translator{
		lang: lang,
		loc:  goi18n.NewLocalizer(c.bundle, lang, config.DefaultLanguage),
		log:  c.log,
	}
}

// Translator localizes keys for one language.
type Translator struct {
	lang string
	loc  *goi18n.Localizer
	log  *zap.Logger
}

// Lang returns the language code in use.
func (t *Translator) Lang() string { return t.lang }

// T translates key, returning the key itself when it is missing.
func (t *Translator) T(key string) string {
	return t.localize(&goi18n.LocalizeConfig{MessageID: key}, key)
}

// TData translates key with template data.
func (t *Translator) TData(key string, data map[string]any) string {
	return t.localize(&goi18n.LocalizeConfig{MessageID: key, TemplateData: data}, key)
}

// Plural translates key for count. Count is also passed as template data.
func (t *Translator) Plural(key string, count int) string {
	return t.PluralData(key, count, map[string]any{"Count": count})
}

// PluralData picks the plural form for count and renders it with data.
func (t *Translator) PluralData(key string, count int, data map[string]any) string {
	return t.localize(&goi18n.LocalizeConfig{
		MessageID:    key,
		PluralCount:  count,
		TemplateData: data,
	}, key)
}

func (t *Translator) localize(lc *goi18n.LocalizeConfig, key string) string {
	if t == nil || t.loc == nil {
		return key
	}
	msg, err := t.loc.Localize(lc)
	if err != nil {
		t.log.Debug(config.MsgTransMissing, zap.String(config.LogKeyKey, key), zap.Error(err))
		return key
	}
	return msg
}

// Month returns the localized month name.
func (t *Translator) Month(m time.Month) string {
	return t.T(config.TKeyMonthPrefix + strconv.Itoa(int(m)))
}

// Weekday returns the two-letter weekday abbreviation.
func (t *Translator) Weekday(wd time.Weekday) string {
	return t.T(config.TKeyWeekdayPrefix + strconv.Itoa(int(wd)))
}

// WeekdayLong returns the full weekday name.
func (t *Translator) WeekdayLong(wd time.Weekday) string {
	return t.T(config.TKeyWdLongPrefix + strconv.Itoa(int(wd)))
}

// WeekHeader returns the abbreviations in Monday-first order.
func (t *Translator) WeekHeader() []string {
	out := make([]string, 0, config.WeekColumns)
	for i := range config.WeekColumns {
		out = append(out, t.Weekday(time.Weekday((i+1)%7)))
	}
	return out
}

// Date formats d with the localized layout. Month names in English layouts
// are rendered by the time package and are therefore always English.
func (t *Translator) Date(d time.Time) string {
	return d.Format(t.layout(config.TKeyFormatDate, config.DateFormatDisplay))
}

// ShortDate formats d without the year.
func (t *Translator) ShortDate(d time.Time) string {
	return d.Format(t.layout(config.TKeyFormatDateShort, config.DateFormatShort))
}

func (t *Translator) layout(key, fallback string) string {
	if l := t.T(key); l != key {
		return l
	}
	return fallback
}

// ExportFormatter localizes the exported event texts.
func (t *Translator) ExportFormatter() export.Formatter {
	return export.Formatter{
		Summary: func(holidays string) string {
			return t.TData(config.TKeyEvtSummary, map[string]any{"Holiday": holidays})
		},
		Description: func(total, vacation int) string {
			return t.PluralData(config.TKeyEvtDescription, vacation, map[string]any{"Total": total, "Vacation": vacation})
		},
		CalName: func(canton string, year int) string {
			return t.TData(config.TKeyCalName, map[string]any{"Canton": canton, "Year": year})
		},
	}
}
