package lifecycle

import (
	"regexp"
	"strings"
)

// DefaultInstitutionCode prefixes bare student ids when no code is configured.
const DefaultInstitutionCode = "ETS"

var bareIDPattern = regexp.MustCompile(`^\d{4}/\d{2}$`)

// Canonicalizer normalizes student ids so every read and write agrees on one
// key. Build it with NewCanonicalizer.
type Canonicalizer struct {
	code     string
	prefixed *regexp.Regexp
}

func NewCanonicalizer(code string) Canonicalizer {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		code = DefaultInstitutionCode
	}
	return Canonicalizer{
		code:     code,
		prefixed: regexp.MustCompile(`(?i)^` + regexp.QuoteMeta(code) + `\d{4}/\d{2}$`),
	}
}

// Canonicalize maps dddd/dd to <CODE>dddd/dd, uppercases an already prefixed
// id and passes anything else through trimmed.
func (c Canonicalizer) Canonicalize(id string) string {
	id = strings.TrimSpace(id)
	switch {
	case bareIDPattern.MatchString(id):
		return c.code + id
	case c.prefixed.MatchString(id):
		return strings.ToUpper(id)
	default:
		return id
	}
}
