package holiday

import (
	"fmt"
	"strings"
)

// Canton is the two-letter code of one of the 26 Swiss cantons.
type Canton string

// cantonNames is the closed set of cantons with their German names.
var cantonNames = map[Canton]string{
	"AG": "Aargau",
	"AI": "Appenzell Innerrhoden",
	"AR": "Appenzell Ausserrhoden",
	"BE": "Bern",
	"BL": "Basel-Landschaft",
	"BS": "Basel-Stadt",
	"FR": "Freiburg",
	"GE": "Genf",
	"GL": "Glarus",
	"GR": "Graubünden",
	"JU": "Jura",
	"LU": "Luzern",
	"NE": "Neuenburg",
	"NW": "Nidwalden",
	"OW": "Obwalden",
	"SG": "St. Gallen",
	"SH": "Schaffhausen",
	"SO": "Solothurn",
	"SZ": "Schwyz",
	"TG": "Thurgau",
	"TI": "Tessin",
	"UR": "Uri",
	"VD": "Waadt",
	"VS": "Wallis",
	"ZG": "Zug",
	"ZH": "Zürich",
}

// cantonOrder lists the codes alphabetically.
var cantonOrder = []Canton{
	"AG", "AI", "AR", "BE", "BL", "BS", "FR", "GE", "GL", "GR", "JU", "LU", "NE",
	"NW", "OW", "SG", "SH", "SO", "SZ", "TG", "TI", "UR", "VD", "VS", "ZG", "ZH",
}

// Cantons returns all 26 canton codes in alphabetical order.
func Cantons() []Canton {
	out := make([]Canton, len(cantonOrder))
	copy(out, cantonOrder)
	return out
}

// ParseCanton normalizes a user supplied code ("zh", " ZH ") and checks it
// against the closed set.
func ParseCanton(code string) (Canton, error) {
	c := Canton(strings.ToUpper(strings.TrimSpace(code)))
	if _, ok := cantonNames[c]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidCanton, code)
	}
	return c, nil
}

// Name returns the German display name, or the code for unknown values.
func (c Canton) Name() string {
	if n, ok := cantonNames[c]; ok {
		return n
	}
	return string(c)
}

func (c Canton) String() string { return string(c) }
