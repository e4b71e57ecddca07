package ics

import (
	"strings"
	"unicode/utf8"

	ical "github.com/arran4/golang-ical"
)

// EscapeText escapes a value for a TEXT property such as SUMMARY
// (RFC 5545 section 3.3.11). CRLF line breaks are folded to "\n" first.
func EscapeText(s string) string {
	if s == "" {
		return ""
	}
	return ical.ToText(strings.ReplaceAll(s, "\r\n", "\n"))
}

// UnescapeText decodes an escaped TEXT property value. Both "\n" and "\N"
// decode to a newline, and an escaped backslash followed by "n" stays a
// literal backslash + n.
func UnescapeText(s string) string {
	if s == "" {
		return ""
	}
	return ical.FromText(s)
}

// splitTextList splits a comma-separated TEXT list (CATEGORIES) on commas
// that are not escaped, then unescapes and trims each item. Empty items
// are dropped.
func splitTextList(s string) []string {
	var out []string
	var cur strings.Builder
	flush := func() {
		item := strings.TrimSpace(UnescapeText(cur.String()))
		if item != "" {
			out = append(out, item)
		}
		cur.Reset()
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\\' && i+1 < len(s) {
			cur.WriteByte(c)
			cur.WriteByte(s[i+1])
			i++
			continue
		}
		if c == ',' {
			flush()
			continue
		}
		cur.WriteByte(c)
	}
	flush()
	return out
}

func joinTextList(items []string) string {
	escaped := make([]string, 0, len(items))
	for _, it := range items {
		if it == "" {
			continue
		}
		escaped = append(escaped, EscapeText(it))
	}
	return strings.Join(escaped, ",")
}

// decodeQuotedPrintable decodes "=XX" escapes into raw bytes and reads the
// result as UTF-8, so multi-byte characters split over several escapes
// come back whole. A lone "=" at the end is a soft line break and is
// dropped. ok is false when an escape was malformed or the decoded bytes
// are not UTF-8; in that case the bytes are read as Latin-1.
func decodeQuotedPrintable(s string) (string, bool) {
	if s == "" {
		return "", true
	}
	ok := true
	buf := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '=' {
			buf = append(buf, c)
			continue
		}
		if i == len(s)-1 {
			break
		}
		if i+2 < len(s) {
			hi, okHi := unhex(s[i+1])
			lo, okLo := unhex(s[i+2])
			if okHi && okLo {
				buf = append(buf, hi<<4|lo)
				i += 2
				continue
			}
		}
		ok = false
		buf = append(buf, c)
	}
	if utf8.Valid(buf) {
		return string(buf), ok
	}
	runes := make([]rune, len(buf))
	for i, b := range buf {
		runes[i] = rune(b)
	}
	return string(runes), false
}

func unhex(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
