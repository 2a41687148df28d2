package registry

import (
	"strings"

	"github.com/mvonlanthen/registry-radar/internal/models"
)

// Structured mutation-type vocabulary for new registrations, keyed by the
// normalized tag (lowercased, whitespace/hyphen/underscore stripped).
var newRegistrationTags = map[string]struct{}{
	"neueintragung":       {},
	"nouvelleinscription": {},
	"nuovaiscrizione":     {},
	"newregistration":     {},
}

// Gazette phrases that mark an entry as something other than a first
// registration: amendments, dissolutions, deletions, seat transfers,
// capital changes, and re-registrations, in German, French, and Italian.
var exclusionPhrases = []string{
	"änderung", "statutenänderung", "löschung", "auflösung",
	"sitzverlegung", "kapitalerhöhung", "kapitalherabsetzung",
	"konkurs", "liquidation", "wiedereintragung",
	"modification", "radiation", "dissolution", "transfert de siège",
	"augmentation du capital", "réduction du capital", "faillite",
	"réinscription",
	"modifica", "cancellazione", "scioglimento", "trasferimento della sede",
	"aumento del capitale", "riduzione del capitale", "fallimento",
	"reiscrizione",
}

// Opening phrases of a genuine first registration.
var newRegistrationPhrases = []string{
	"neueintragung", "neugründung", "erstmalige eintragung",
	"nouvelle inscription", "première inscription",
	"nuova iscrizione", "prima iscrizione",
	"new registration",
}

// A first-registration entry can still describe an entity born from a
// corporate restructuring; those do not count as organically new.
var transformationPhrases = []string{
	"fusion", "fusione", "merger",
	"spaltung", "abspaltung", "scission", "scissione",
	"umwandlung", "transformation", "trasformazione",
	"vermögensübertragung", "transfert de patrimoine", "trasferimento di patrimonio",
}

type matchScope int

const (
	scopePrefix matchScope = iota
	scopeAnywhere
)

type ruleVerdict int

const (
	verdictReject ruleVerdict = iota
	verdictAccept
)

// phraseRule is one gate in the ordered classifier table. The first rule
// whose phrase list matches the message wins. An accept verdict is still
// overridden when any of the unless phrases occurs anywhere in the
// message, and remains subject to the company-status veto.
type phraseRule struct {
	phrases []string
	scope   matchScope
	verdict ruleVerdict
	unless  []string
}

// messageRules orders negative prefix matches before positive ones, and
// prefix matches before anywhere matches, so explicit negative phrases
// dominate explicit positive phrases. Precision over recall.
var messageRules = []phraseRule{
	{phrases: exclusionPhrases, scope: scopePrefix, verdict: verdictReject},
	{phrases: newRegistrationPhrases, scope: scopePrefix, verdict: verdictAccept, unless: transformationPhrases},
	{phrases: exclusionPhrases, scope: scopeAnywhere, verdict: verdictReject},
	{phrases: newRegistrationPhrases, scope: scopeAnywhere, verdict: verdictAccept},
}

func (r phraseRule) matches(msg string) bool {
	for _, p := range r.phrases {
		switch r.scope {
		case scopePrefix:
			if strings.HasPrefix(msg, p) {
				return true
			}
		case scopeAnywhere:
			if strings.Contains(msg, p) {
				return true
			}
		}
	}
	return false
}

func containsAny(msg string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// normalizeTag strips whitespace, hyphens, and underscores and lowercases,
// so "NEW_REGISTRATION" and "Neueintragung " normalize to vocabulary keys.
func normalizeTag(tag string) string {
	var b strings.Builder
	b.Grow(len(tag))
	for _, r := range strings.ToLower(tag) {
		switch r {
		case ' ', '\t', '\n', '-', '_':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func hasNewRegistrationTag(tags []string) bool {
	for _, tag := range tags {
		if _, ok := newRegistrationTags[normalizeTag(tag)]; ok {
			return true
		}
	}
	return false
}

func statusAllows(c *models.CompanyRecord) bool {
	if c == nil {
		return true
	}
	if c.Status == models.StatusCancelled || c.Status == models.StatusBeingCancelled {
		return false
	}
	return c.DeletionDate == ""
}

// Classify decides whether a gazette entry represents a genuine new
// registration. Structured mutation tags are authoritative over free text
// when present; company status vetoes any positive match. Pure function.
func Classify(tags []string, message string, company *models.CompanyRecord) bool {
	if len(tags) > 0 && !hasNewRegistrationTag(tags) {
		return false
	}

	msg := strings.ToLower(strings.TrimLeft(message, " \t\r\n"))
	for _, rule := range messageRules {
		if !rule.matches(msg) {
			continue
		}
		if rule.verdict == verdictReject {
			return false
		}
		if containsAny(msg, rule.unless) {
			return false
		}
		return statusAllows(company)
	}

	// No phrase matched either way; structured metadata alone carries the
	// entry through to the status check.
	if len(tags) > 0 {
		return statusAllows(company)
	}
	return false
}
