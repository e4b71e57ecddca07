package ics

import (
	"strings"
	"unicode/utf8"
)

// maxLineOctets is the RFC 5545 section 3.1 content line limit, excluding
// the CRLF.
const maxLineOctets = 75

// contentLine is one logical (unfolded) line and the physical line number
// where it started.
type contentLine struct {
	text string
	line int
}

// unfold joins folded physical lines. A line starting with a single space
// or tab continues the previous line with that one character removed.
//
// Legacy vCalendar exporters also break Quoted-Printable values with a
// trailing "=" (soft line break) and no leading whitespace on the next
// line; those are joined too, with the "=" dropped.
func unfold(text string) []contentLine {
	text = strings.TrimPrefix(text, "\ufeff")
	physical := strings.Split(text, "\n")

	out := make([]contentLine, 0, len(physical))
	var cur strings.Builder
	curLine := 0
	open := false
	softBreak := false

	for i, raw := range physical {
		l := strings.TrimSuffix(raw, "\r")
		switch {
		case open && (softBreak || strings.HasPrefix(l, " ") || strings.HasPrefix(l, "\t")):
			if softBreak {
				cur.WriteString(l)
			} else {
				cur.WriteString(l[1:])
			}
		default:
			if open {
				out = append(out, contentLine{text: cur.String(), line: curLine})
				cur.Reset()
			}
			cur.WriteString(l)
			curLine = i + 1
			open = true
		}

		softBreak = false
		if s := cur.String(); strings.HasSuffix(s, "=") && isQuotedPrintableLine(s) {
			softBreak = true
			trimmed := strings.TrimSuffix(s, "=")
			cur.Reset()
			cur.WriteString(trimmed)
		}
	}
	if open && cur.Len() > 0 {
		out = append(out, contentLine{text: cur.String(), line: curLine})
	}
	return out
}

func isQuotedPrintableLine(s string) bool {
	idx := valueSeparator(s)
	if idx < 0 {
		return false
	}
	return strings.Contains(strings.ToUpper(s[:idx]), "ENCODING=QUOTED-PRINTABLE")
}

// fold splits a content line into physical lines of at most 75 octets.
// Continuation lines start with a single space. Splits never land inside
// a UTF-8 sequence.
func fold(line string) []string {
	if len(line) <= maxLineOctets {
		return []string{line}
	}
	var out []string
	rest := line
	limit := maxLineOctets
	for len(rest) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(rest[cut]) {
			cut--
		}
		if cut == 0 {
			cut = limit
		}
		out = append(out, rest[:cut])
		rest = rest[cut:]
		// the leading space of continuation lines counts toward the limit
		limit = maxLineOctets - 1
	}
	out = append(out, rest)
	for i := 1; i < len(out); i++ {
		out[i] = " " + out[i]
	}
	return out
}
