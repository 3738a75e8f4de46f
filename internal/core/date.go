package core

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// isoLayouts are tried in order. Layouts without a zone are interpreted in
// the parser's location.
var isoLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"2006/01/02",
}

// localePattern matches "3月10日 9:00:00", with optional seconds and time.
var localePattern = regexp.MustCompile(`^(\d{1,2})月(\d{1,2})日(?:\s*(\d{1,2}):(\d{2})(?::(\d{2}))?)?$`)

// DateParser turns source date strings into Dates.
type DateParser struct {
	// Location is used for values without an explicit zone. Defaults to UTC.
	Location *time.Location
	// Now supplies the reference date for year inference. Defaults to time.Now.
	Now func() time.Time
}

// NewDateParser returns a parser for the given location using the wall clock.
func NewDateParser(loc *time.Location) DateParser {
	return DateParser{Location: loc, Now: time.Now}
}

func (p DateParser) location() *time.Location {
	if p.Location == nil {
		return time.UTC
	}
	return p.Location
}

func (p DateParser) now() time.Time {
	if p.Now == nil {
		return time.Now().In(p.location())
	}
	return p.Now().In(p.location())
}

// Parse returns a valid Date, or an invalid Date when s is empty or matches
// no known format. It never fails.
func (p DateParser) Parse(s string) Date {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}
	}
	loc := p.location()
	for _, layout := range isoLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return NewDate(t.In(loc))
		}
	}
	return p.parseLocale(s)
}

// parseLocale handles the year-less "<month>月<day>日 H:mm:ss" export format.
// A month later than the current month belongs to the previous year.
func (p DateParser) parseLocale(s string) Date {
	m := localePattern.FindStringSubmatch(s)
	if m == nil {
		return Date{}
	}
	month, _ := strconv.Atoi(m[1])
	day, _ := strconv.Atoi(m[2])
	var hour, minute, second int
	if m[3] != "" {
		hour, _ = strconv.Atoi(m[3])
		minute, _ = strconv.Atoi(m[4])
	}
	if m[5] != "" {
		second, _ = strconv.Atoi(m[5])
	}
	if month < 1 || month > 12 || hour > 23 || minute > 59 || second > 59 {
		return Date{}
	}

	now := p.now()
	year := now.Year()
	if month > int(now.Month()) {
		year--
	}
	if day < 1 || day > DaysInMonth(year, month) {
		return Date{}
	}
	return NewDate(time.Date(year, time.Month(month), day, hour, minute, second, 0, p.location()))
}
