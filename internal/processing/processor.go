package processing

import (
	"crypto/sha1"
	"encoding/hex"
	"html"
	"regexp"
	"strings"
	"time"
)

var uidPattern = regexp.MustCompile(`CHE[-\s]?\d{3}[.\s]?\d{3}[.\s]?\d{3}`)

var cantonPattern = regexp.MustCompile(`\b(ZH|BE|LU|UR|SZ|OW|NW|GL|ZG|FR|SO|BS|BL|SH|AR|AI|SG|GR|AG|TG|TI|VD|VS|NE|GE|JU)\b`)

var whitespace = regexp.MustCompile(`\s+`)

// Title suffixes that search engines append to registry detail pages.
var titleSuffixes = []string{
	"| zefix",
	"- zefix",
	"zentraler firmenindex",
	"index central des raisons de commerce",
	"commercial register",
	"registre du commerce",
	"handelsregister",
	"registro di commercio",
	"shab",
	"fosc",
	"fusc",
}

// ExtractUID returns the first registry identifier found in the text,
// normalized to CHE-###.###.###, or an empty string.
func ExtractUID(text string) string {
	match := uidPattern.FindString(text)
	if match == "" {
		return ""
	}
	return NormalizeUID(match)
}

// NormalizeUID rewrites any accepted UID spelling to CHE-###.###.###.
func NormalizeUID(raw string) string {
	digits := make([]byte, 0, 9)
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits = append(digits, byte(r))
		}
	}
	if len(digits) != 9 {
		return ""
	}
	return "CHE-" + string(digits[:3]) + "." + string(digits[3:6]) + "." + string(digits[6:])
}

// ExtractCanton returns the first two-letter canton code found in the
// text. "AG" doubles as the Aktiengesellschaft legal-form suffix, so any
// other code wins over it.
func ExtractCanton(text string) string {
	matches := cantonPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return ""
	}
	for _, m := range matches {
		if m != "AG" {
			return m
		}
	}
	return "AG"
}

// CleanTitle strips HTML entities, search-result decorations, and registry
// site suffixes from a result title, leaving a best-effort company name.
func CleanTitle(title string) string {
	decoded := html.UnescapeString(title)
	decoded = whitespace.ReplaceAllString(decoded, " ")
	decoded = strings.TrimSpace(decoded)

	// Search engines separate the page name from the site name.
	for _, sep := range []string{" | ", " – ", " — ", " - "} {
		if i := strings.Index(decoded, sep); i > 0 {
			decoded = decoded[:i]
		}
	}

	lower := strings.ToLower(decoded)
	for _, suffix := range titleSuffixes {
		if strings.HasSuffix(lower, suffix) {
			decoded = strings.TrimSpace(decoded[:len(decoded)-len(suffix)])
			lower = strings.ToLower(decoded)
		}
	}

	decoded = strings.TrimRight(decoded, " -–|,")
	decoded = strings.TrimSuffix(decoded, "...")
	return strings.TrimSpace(decoded)
}

// BuildSignalID hashes the most stable fields to form deterministic IDs.
// The UID dominates when present so the same entity collapses to one
// document regardless of which source discovered it.
func BuildSignalID(uid, name string, date time.Time) string {
	key := uid
	if key == "" {
		key = strings.ToLower(strings.TrimSpace(name)) + "|" + date.UTC().Format("2006-01-02")
	}
	s := sha1.Sum([]byte(key))
	return hex.EncodeToString(s[:])
}
