package export

import (
	"encoding/csv"
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"

	"github.com/tartampluch/go-bridgedays/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// CSV writes a header row followed by one row per entry.
func CSV(w io.Writer, entries []Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{config.CSVHeaderDate, config.CSVHeaderSummary, config.CSVHeaderDescription}); err != nil {
		return fmt.Errorf("%s: %w", config.ErrCSVEncode, err)
	}
	for _, e := range entries {
		if err := cw.Write([]string{e.Date.Format(config.DateFormatISO), e.Summary, e.Description}); err != nil {
			return fmt.Errorf("%s: %w", config.ErrCSVEncode, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("%s: %w", config.ErrCSVEncode, err)
	}
	return nil
}

type jsonEntry struct {
	Date        string `json:"date"`
	Summary     string `json:"summary"`
	Description string `json:"description"`
}

type jsonDocument struct {
	Meta
	Entries []jsonEntry `json:"entries"`
}

// JSON writes the calendar metadata and entries as one document.
func JSON(w io.Writer, meta Meta, entries []Entry) error {
	doc := jsonDocument{Meta: meta, Entries: make([]jsonEntry, len(entries))}
	for i, e := range entries {
		doc.Entries[i] = jsonEntry{Date: e.Date.Format(config.DateFormatISO), Summary: e.Summary, Description: e.Description}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("%s: %w", config.ErrJSONEncode, err)
	}
	return nil
}
