package ics

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"

	"calengine/internal/model"
)

// DefaultProdID is the PRODID written when ExportOptions.ProdID is empty.
const DefaultProdID = "-//calengine//Calendar 1.0//CN"

// ExportOptions tunes the VCALENDAR wrapper.
type ExportOptions struct {
	ProdID string
	// Now supplies DTSTAMP for events that have none. Defaults to time.Now.
	Now func() time.Time
	// NoFold disables 75-octet line folding.
	NoFold bool
}

// Export serializes events into a complete VCALENDAR document using the
// default options.
func Export(events []model.VEvent) string {
	return ExportWith(events, ExportOptions{})
}

// ExportWith is Export with explicit options.
func ExportWith(events []model.VEvent, opts ExportOptions) string {
	var b strings.Builder
	// strings.Builder never fails to write.
	_ = WriteCalendar(&b, events, opts)
	return b.String()
}

// WriteCalendar streams the VCALENDAR document for events to w. Every
// line ends with CRLF.
func WriteCalendar(w io.Writer, events []model.VEvent, opts ExportOptions) error {
	if opts.ProdID == "" {
		opts.ProdID = DefaultProdID
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	bw := bufio.NewWriter(w)
	lw := &lineWriter{w: bw, fold: !opts.NoFold}

	lw.line("BEGIN:VCALENDAR")
	lw.line("VERSION:2.0")
	lw.line("PRODID:" + opts.ProdID)
	lw.line("CALSCALE:GREGORIAN")
	lw.line("METHOD:PUBLISH")
	for i := range events {
		writeEvent(lw, &events[i], opts)
	}
	lw.line("END:VCALENDAR")

	if lw.err != nil {
		return lw.err
	}
	return bw.Flush()
}

func writeEvent(lw *lineWriter, ev *model.VEvent, opts ExportOptions) {
	lw.line("BEGIN:VEVENT")
	lw.line("UID:" + ev.UID)

	stamp := ev.DTStamp
	if stamp == "" {
		stamp = FormatDateTime(opts.Now())
	}
	lw.line("DTSTAMP:" + stamp)

	start, end := ev.DTStart, ev.DTEnd
	if ev.AllDay {
		start, end = dateOnly(start), dateOnly(end)
		lw.line("DTSTART;VALUE=DATE:" + start)
		if end != "" && end != start {
			lw.line("DTEND;VALUE=DATE:" + end)
		}
	} else {
		lw.line("DTSTART:" + start)
		if end != "" && end != start {
			lw.line("DTEND:" + end)
		}
	}

	if ev.Summary != "" {
		lw.line("SUMMARY:" + EscapeText(ev.Summary))
	}
	if ev.Description != "" {
		lw.line("DESCRIPTION:" + EscapeText(ev.Description))
	}
	if ev.Location != "" {
		lw.line("LOCATION:" + EscapeText(ev.Location))
	}
	if ev.Status != "" {
		lw.line("STATUS:" + string(ev.Status))
	}
	lw.line("PRIORITY:" + strconv.Itoa(ev.Priority))
	if cats := joinTextList(ev.Categories); cats != "" {
		lw.line("CATEGORIES:" + cats)
	}
	if ev.RRule != "" {
		lw.line("RRULE:" + ev.RRule)
	}
	if ev.Created != "" {
		lw.line("CREATED:" + ev.Created)
	}
	if ev.LastModified != "" {
		lw.line("LAST-MODIFIED:" + ev.LastModified)
	}
	lw.line("SEQUENCE:" + strconv.Itoa(ev.Sequence))

	for _, a := range ev.Alarms {
		writeAlarm(lw, a)
	}
	lw.line("END:VEVENT")
}

func writeAlarm(lw *lineWriter, a model.VAlarm) {
	lw.line("BEGIN:VALARM")
	lw.line("ACTION:" + string(a.Action))
	lw.line("TRIGGER:" + a.Trigger)
	if a.Description != "" {
		lw.line("DESCRIPTION:" + EscapeText(a.Description))
	}
	if a.Repeat > 0 {
		lw.line("REPEAT:" + strconv.Itoa(a.Repeat))
		lw.line("DURATION:" + a.Duration)
	}
	lw.line("END:VALARM")
}

// lineWriter writes CRLF-terminated content lines and remembers the first
// write error.
type lineWriter struct {
	w    *bufio.Writer
	fold bool
	err  error
}

func (lw *lineWriter) line(s string) {
	if lw.err != nil {
		return
	}
	parts := []string{s}
	if lw.fold {
		parts = fold(s)
	}
	for _, p := range parts {
		if _, err := lw.w.WriteString(p + "\r\n"); err != nil {
			lw.err = err
			return
		}
	}
}
