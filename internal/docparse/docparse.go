// Package docparse pulls structured identity fields out of raw OCR text and
// provides the matching rules the verification decision is built on. All
// functions are pure.
package docparse

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

type DocumentType string

const (
	DocumentPassport        DocumentType = "passport"
	DocumentDrivingLicence  DocumentType = "driving_licence"
	DocumentNationalID      DocumentType = "national_id"
	DocumentInstitutionCard DocumentType = "institution_card"
)

func ValidDocumentType(t DocumentType) bool {
	switch t {
	case DocumentPassport, DocumentDrivingLicence, DocumentNationalID, DocumentInstitutionCard:
		return true
	}
	return false
}

// Fields holds the best-effort parse of one document's OCR text. Name and
// DOB are empty when nothing usable was found; that is not an error.
type Fields struct {
	RawText string
	Name    string
	DOB     string
}

// dobPattern accepts dd/mm/yyyy and yyyy-mm-dd with slash or dash separators.
var dobPattern = regexp.MustCompile(`\b(\d{4}[-/]\d{2}[-/]\d{2}|\d{2}[-/]\d{2}[-/]\d{4})\b`)

// Words that appear on the documents themselves and must never be mistaken
// for part of a person's name.
var nameStopwords = map[string]bool{
	"passport": true, "passeport": true, "republic": true, "kingdom": true,
	"united": true, "states": true, "identity": true, "national": true,
	"card": true, "licence": true, "license": true, "driving": true,
	"driver": true, "date": true, "birth": true, "nationality": true,
	"sex": true, "issue": true, "issued": true, "expiry": true,
	"expires": true, "expiration": true, "signature": true, "number": true,
	"document": true, "authority": true, "university": true, "college": true,
	"student": true, "staff": true, "valid": true, "until": true,
	"surname": true, "given": true, "names": true, "name": true,
	"type": true, "code": true, "place": true, "holder": true,
}

func Parse(rawText string, docType DocumentType) Fields {
	fields := Fields{RawText: rawText}

	if strings.TrimSpace(rawText) == "" {
		return fields
	}

	if docType == DocumentPassport {
		if name, ok := parseMRZName(rawText); ok {
			fields.Name = name
		}
	}

	if fields.Name == "" {
		fields.Name = parseNameLine(rawText)
	}

	if m := dobPattern.FindString(rawText); m != "" {
		if iso, ok := NormalizeDOB(m); ok {
			fields.DOB = iso
		}
	}

	return fields
}

// parseMRZName reads the name from the first machine-readable zone line of a
// passport, e.g. "P<GBRDOE<<JANE<ELIZABETH<<<<". Returns "JANE ELIZABETH DOE".
func parseMRZName(rawText string) (string, bool) {
	for _, line := range strings.Split(rawText, "\n") {
		line = strings.TrimSpace(line)
		if len(line) < 6 || !strings.HasPrefix(line, "P<") {
			continue
		}

		// Skip the document code and the three-letter issuing country.
		rest := line[5:]
		parts := strings.SplitN(rest, "<<", 2)
		if len(parts) != 2 {
			continue
		}

		surname := strings.TrimSpace(strings.ReplaceAll(parts[0], "<", " "))
		given := strings.TrimSpace(strings.ReplaceAll(parts[1], "<", " "))
		name := strings.TrimSpace(given + " " + surname)
		if name != "" {
			return name, true
		}
	}

	return "", false
}

// parseNameLine picks the first line that looks like a person's name: two to
// four alphabetic tokens, none of them document boilerplate.
func parseNameLine(rawText string) string {
	for _, line := range strings.Split(rawText, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		tokens := strings.Fields(line)
		if len(tokens) < 2 || len(tokens) > 4 {
			continue
		}

		ok := true
		for _, token := range tokens {
			if !alphabeticToken(token) || nameStopwords[strings.ToLower(strings.Trim(token, ".,'-"))] {
				ok = false
				break
			}
		}

		if ok {
			return line
		}
	}

	return ""
}

func alphabeticToken(token string) bool {
	for _, r := range token {
		if !unicode.IsLetter(r) && r != '.' && r != '-' && r != '\'' {
			return false
		}
	}
	return token != ""
}

// NormalizeDOB converts an accepted date string to ISO 8601 (yyyy-mm-dd).
// Day-first orderings are assumed for dd/mm/yyyy inputs.
func NormalizeDOB(value string) (string, bool) {
	value = strings.ReplaceAll(strings.TrimSpace(value), "/", "-")

	for _, layout := range []string{"2006-01-02", "02-01-2006"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format("2006-01-02"), true
		}
	}

	return "", false
}

var diacriticStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowercases, strips diacritics and collapses whitespace. The
// result still contains spaces between tokens.
func Normalize(s string) string {
	stripped, _, err := transform.String(diacriticStripper, s)
	if err != nil {
		stripped = s
	}

	var b strings.Builder
	for _, r := range strings.ToLower(stripped) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

func compact(s string) string {
	return strings.ReplaceAll(Normalize(s), " ", "")
}

// ContainsName is the minimum bar for matching a claimed name against OCR
// text: case-insensitive containment after normalization, ignoring spacing.
func ContainsName(rawText, claimedName string) bool {
	name := compact(claimedName)
	if name == "" {
		return false
	}

	return strings.Contains(compact(rawText), name)
}

// ContainsDOB matches a claimed date of birth against OCR text by comparing
// digit-only sequences, so "1999-05-02" finds both "02/05/1999" and
// "1999-05-02" regardless of separators.
func ContainsDOB(rawText, claimedDOB string) bool {
	textDigits := digits(rawText)
	if textDigits == "" {
		return false
	}

	if iso, ok := NormalizeDOB(claimedDOB); ok {
		t, _ := time.Parse("2006-01-02", iso)
		for _, candidate := range []string{t.Format("20060102"), t.Format("02012006")} {
			if strings.Contains(textDigits, candidate) {
				return true
			}
		}
		return false
	}

	claimed := digits(claimedDOB)
	return claimed != "" && strings.Contains(textDigits, claimed)
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NamesMatch compares two names extracted from different documents. Both are
// normalized and tokenized; single-letter tokens (initials) are dropped, and
// the names match when the remaining token sets intersect. Empty input never
// matches.
func NamesMatch(a, b string) bool {
	tokensA := nameTokens(a)
	tokensB := nameTokens(b)

	if len(tokensA) == 0 || len(tokensB) == 0 {
		return false
	}

	for token := range tokensA {
		if tokensB[token] {
			return true
		}
	}

	return false
}

func nameTokens(name string) map[string]bool {
	tokens := make(map[string]bool)
	for _, token := range strings.Fields(Normalize(name)) {
		if len(token) >= 2 {
			tokens[token] = true
		}
	}
	return tokens
}
