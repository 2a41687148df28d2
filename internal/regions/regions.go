package regions

import (
	"strings"
	"unicode"
)

var cantonCodes = map[string]struct{}{
	"ZH": {}, "BE": {}, "LU": {}, "UR": {}, "SZ": {}, "OW": {}, "NW": {},
	"GL": {}, "ZG": {}, "FR": {}, "SO": {}, "BS": {}, "BL": {}, "SH": {},
	"AR": {}, "AI": {}, "SG": {}, "GR": {}, "AG": {}, "TG": {}, "TI": {},
	"VD": {}, "VS": {}, "NE": {}, "GE": {}, "JU": {},
}

// Common canton and city names in German, French, Italian, and English,
// keyed by their normalized form.
var aliases = map[string]string{
	"zurich": "ZH", "zuerich": "ZH", "zürich": "ZH", "zurigo": "ZH",
	"bern": "BE", "berne": "BE", "berna": "BE",
	"luzern": "LU", "lucerne": "LU", "lucerna": "LU",
	"uri": "UR",
	"schwyz": "SZ", "schwytz": "SZ",
	"obwalden": "OW", "obwald": "OW",
	"nidwalden": "NW", "nidwald": "NW",
	"glarus": "GL", "glaris": "GL",
	"zug": "ZG", "zoug": "ZG", "zugo": "ZG",
	"fribourg": "FR", "freiburg": "FR", "friburgo": "FR",
	"solothurn": "SO", "soleure": "SO",
	"basel": "BS", "bale": "BS", "bâle": "BS", "basilea": "BS", "basel stadt": "BS",
	"basel land": "BL", "basel landschaft": "BL", "bale campagne": "BL",
	"schaffhausen": "SH", "schaffhouse": "SH",
	"appenzell ausserrhoden": "AR",
	"appenzell innerrhoden": "AI", "appenzell": "AI",
	"st gallen": "SG", "sankt gallen": "SG", "saint gall": "SG", "san gallo": "SG",
	"graubunden": "GR", "graubuenden": "GR", "graubünden": "GR", "grisons": "GR", "grigioni": "GR", "chur": "GR",
	"aargau": "AG", "argovie": "AG", "argovia": "AG",
	"thurgau": "TG", "thurgovie": "TG", "turgovia": "TG",
	"ticino": "TI", "tessin": "TI", "lugano": "TI", "bellinzona": "TI",
	"vaud": "VD", "waadt": "VD", "lausanne": "VD",
	"valais": "VS", "wallis": "VS", "vallese": "VS", "sion": "VS",
	"neuchatel": "NE", "neuchâtel": "NE", "neuenburg": "NE",
	"geneva": "GE", "geneve": "GE", "genève": "GE", "genf": "GE", "ginevra": "GE",
	"jura": "JU", "delemont": "JU",
	"winterthur": "ZH",
}

// IsCode reports whether s is one of the 26 two-letter canton codes.
func IsCode(s string) bool {
	_, ok := cantonCodes[s]
	return ok
}

// Normalize maps a free-text region name to a two-letter canton code.
// Codes pass through uppercased, known aliases resolve through the table,
// and unknown values pass through uppercased as a best-effort code.
func Normalize(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	upper := strings.ToUpper(trimmed)
	if IsCode(upper) {
		return upper
	}
	if code, ok := aliases[normalizeKey(trimmed)]; ok {
		return code
	}
	return upper
}

// normalizeKey lowercases and collapses punctuation runs to single spaces so
// "St. Gallen", "st-gallen", and "st gallen" share one alias entry.
func normalizeKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	b.Grow(len(s))
	prevSpace := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			prevSpace = false
			continue
		}
		if !prevSpace {
			b.WriteByte(' ')
			prevSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}
