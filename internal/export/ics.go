package export

import (
	"crypto/sha256"
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"

	"github.com/tartampluch/go-bridgedays/internal/config"
)

// ICS writes an RFC 5545 calendar with one all-day event per entry.
// An empty selection still yields a valid VCALENDAR.
func ICS(w io.Writer, meta Meta, entries []Entry, now time.Time) error {
	if len(entries) == 0 {
		if _, err := io.WriteString(w, config.StubVCalendar); err != nil {
			return fmt.Errorf("%s: %w", config.ErrICalEncode, err)
		}
		return nil
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(config.PropVersion, config.ICalVersion)
	cal.Props.SetText(config.PropProdid, config.ICalProdid)
	cal.Props.SetText(config.PropCalScale, config.ICalScale)
	cal.Props.SetText(config.PropMethod, config.ICalMethod)
	if meta.Name != "" {
		cal.Props.Set(plainProp(config.PropXWRCalName, meta.Name))
	}
	cal.Props.Set(plainProp(config.PropXPublishedTT, config.PublishedTTL))

	refresh := ical.NewProp(config.PropRefresh)
	refresh.SetDuration(config.DefaultICalRefresh)
	cal.Props.Set(refresh)

	stamp := ical.NewProp(config.PropDTStamp)
	stamp.SetDateTime(now.UTC())

	for _, e := range entries {
		event := ical.NewEvent()
		event.Props.SetText(config.PropUID, UID(meta.Canton, e.Date))
		event.Props.Set(stamp)
		event.Props.SetText(config.PropSummary, e.Summary)
		if e.Description != "" {
			event.Props.SetText(config.PropDescription, e.Description)
		}

		start := ical.NewProp(config.PropDTStart)
		start.SetDate(e.Date)
		event.Props.Set(start)

		end := ical.NewProp(config.PropDTEnd)
		end.SetDate(e.Date.AddDate(0, 0, 1))
		event.Props.Set(end)

		event.Props.SetText(config.PropTransp, config.ICalTransparent)
		cal.Children = append(cal.Children, event.Component)
	}

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("%s: %w", config.ErrICalEncode, err)
	}
	return nil
}

// plainProp builds an extension property without a VALUE parameter.
// SetText would tag non-standard names as VALUE=TEXT.
func plainProp(name, value string) *ical.Prop {
	p := ical.NewProp(name)
	p.Value = value
	return p
}

// UID derives a stable event identifier from canton and date.
func UID(canton string, d time.Time) string {
	input := fmt.Sprintf(config.FormatHashInput, canton, d.Format(config.DateFormatISO), config.UIDSalt)
	hash := sha256.Sum256([]byte(input))
	return fmt.Sprintf(config.FormatUID, fmt.Sprintf("%x", hash[:config.UIDHashLength]), config.ICalDomain)
}
