// Package naming turns documentation labels into Go identifiers.
package naming

import (
	"regexp"
	"strings"
)

var (
	nonAlnum        = regexp.MustCompile(`[^A-Za-z0-9]+`)
	acronymBoundary = regexp.MustCompile(`([A-Z]+)([A-Z][a-z])`)
	camelBoundary   = regexp.MustCompile(`([a-z0-9])([A-Z])`)
)

var digits = [...]string{"zero", "one", "two", "three", "four", "five", "six", "seven", "eight", "nine"}

// initialisms are kept upper case in identifiers
var initialisms = map[string]bool{
	"ACL": true, "API": true, "CPU": true, "CSV": true, "DNS": true, "EOF": true,
	"HTML": true, "HTTP": true, "HTTPS": true, "ID": true, "IP": true, "JSON": true,
	"MAC": true, "PSTN": true, "SIP": true, "SMS": true, "SQL": true, "TLS": true,
	"TTL": true, "UI": true, "URI": true, "URL": true, "UTC": true, "UUID": true,
	"XML": true,
}

// Snake converts a label to snake case: non-alphanumeric runs become underscores,
// camel case is split and a leading digit is spelled out (7days -> seven_days).
func Snake(label string) string {
	s := nonAlnum.ReplaceAllString(label, "_")
	s = acronymBoundary.ReplaceAllString(s, "${1}_${2}")
	s = camelBoundary.ReplaceAllString(s, "${1}_${2}")
	s = strings.Trim(strings.ToLower(s), "_")
	return spellLeadingDigit(s)
}

func spellLeadingDigit(s string) string {
	if s == "" || s[0] < '0' || s[0] > '9' {
		return s
	}
	word := digits[s[0]-'0']
	rest := strings.Trim(s[1:], "_")
	if rest == "" {
		return word
	}
	return word + "_" + rest
}

// Pascal joins snake case parts into an exported identifier
func Pascal(snake string) string {
	var b strings.Builder
	for _, part := range strings.Split(snake, "_") {
		if part == "" {
			continue
		}
		if up := strings.ToUpper(part); initialisms[up] {
			b.WriteString(up)
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	return b.String()
}

// Identifier converts a label to an exported Go identifier; empty when the label has no usable characters
func Identifier(label string) string {
	return Pascal(Snake(label))
}

// NeedsAlias reports whether a label differs from its normalized field name and must be kept for serialization
func NeedsAlias(label string) bool {
	return strings.ContainsFunc(label, func(r rune) bool {
		return r == ' ' || r == '\t' || (r >= 'A' && r <= 'Z')
	})
}
