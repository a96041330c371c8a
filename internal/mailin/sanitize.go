package mailin

import (
	"regexp"
	"strings"
)

// Field limits applied during sanitization
const (
	MaxAddressLength = 254
	MaxSubjectLength = 200
	MaxBodyLength    = 5000
)

// DefaultSubject replaces a subject that is empty after sanitization
const DefaultSubject = "(no subject)"

// Conservative address shape: local@domain with a 2+ letter TLD. Stricter
// than RFC 5322 on purpose; anything exotic is rejected rather than guessed.
var addressPattern = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`)

// SanitizeEmailAddress trims, lowercases and validates an address claim.
// Returns "" for anything that does not look like a plain mailbox address.
func SanitizeEmailAddress(raw string) string {
	addr := strings.ToLower(strings.TrimSpace(raw))
	if addr == "" || len(addr) > MaxAddressLength {
		return ""
	}
	if !addressPattern.MatchString(addr) {
		return ""
	}
	return addr
}

// LocalPart returns the part of an address before '@' in its original
// casing. The local part is the user identifier on inbound mail and
// identifier matching is case-sensitive, so no lowercasing happens here.
func LocalPart(raw string) string {
	addr := strings.TrimSpace(raw)
	at := strings.IndexByte(addr, '@')
	if at <= 0 {
		return ""
	}
	return addr[:at]
}

// SanitizeSubject strips angle brackets and control characters, trims and
// truncates a subject line. An empty result maps to DefaultSubject.
func SanitizeSubject(raw string) string {
	s := stripAngleBrackets(raw)
	s = stripControl(s, false)
	s = strings.TrimSpace(s)
	s = truncateRunes(s, MaxSubjectLength)
	if s == "" {
		return DefaultSubject
	}
	return s
}

// SanitizeBody strips angle brackets and control characters (keeping line
// structure), decodes the five basic HTML entities, trims and truncates.
func SanitizeBody(raw string) string {
	s := stripAngleBrackets(raw)
	s = stripControl(s, true)
	s = decodeBasicEntities(s)
	s = strings.TrimSpace(s)
	return truncateRunes(s, MaxBodyLength)
}

var angleBracketReplacer = strings.NewReplacer("<", "", ">", "")

func stripAngleBrackets(s string) string {
	return angleBracketReplacer.Replace(s)
}

// stripControl removes control characters. With keepLines set, newlines and
// tabs survive so later line-based cleaning still works.
func stripControl(s string, keepLines bool) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			if keepLines {
				return r
			}
			return ' '
		}
		if r == '\r' {
			return -1
		}
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
}

var basicEntityReplacer = strings.NewReplacer(
	"&quot;", `"`,
	"&lt;", "<",
	"&gt;", ">",
	"&#39;", "'",
	"&amp;", "&",
)

func decodeBasicEntities(s string) string {
	return basicEntityReplacer.Replace(s)
}

func truncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return strings.TrimSpace(string(r[:max]))
}
