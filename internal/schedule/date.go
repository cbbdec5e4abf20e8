// Package schedule decides, on a best-effort basis, whether an event described
// by free-text date strings has already happened.
package schedule

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

type Verdict int

const (
	Unknown Verdict = iota
	Past
	Future
)

func (v Verdict) String() string {
	switch v {
	case Past:
		return "past"
	case Future:
		return "future"
	}
	return "unknown"
}

// recentWindow is how far back a year-less date may lie and still be read as
// this year's (already past) date rather than next year's.
const recentWindow = 2

var months = map[string]time.Month{
	"enero": time.January, "ene": time.January, "january": time.January, "jan": time.January,
	"febrero": time.February, "feb": time.February, "february": time.February,
	"marzo": time.March, "mar": time.March, "march": time.March,
	"abril": time.April, "abr": time.April, "april": time.April, "apr": time.April,
	"mayo": time.May, "may": time.May,
	"junio": time.June, "jun": time.June, "june": time.June,
	"julio": time.July, "jul": time.July, "july": time.July,
	"agosto": time.August, "ago": time.August, "august": time.August, "aug": time.August,
	"septiembre": time.September, "setiembre": time.September, "sep": time.September, "sept": time.September, "september": time.September,
	"octubre": time.October, "oct": time.October, "october": time.October,
	"noviembre": time.November, "nov": time.November, "november": time.November,
	"diciembre": time.December, "dic": time.December, "december": time.December, "dec": time.December,
}

var (
	isoDate     = regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`)
	numericDate = regexp.MustCompile(`\b(\d{1,2})[/.](\d{1,2})(?:[/.](\d{2,4}))?\b`)
	wordSplit   = regexp.MustCompile(`[^a-z0-9]+`)
	ordinal     = regexp.MustCompile(`^(\d{1,2})(st|nd|rd|th|o)$`)
	clockTime   = regexp.MustCompile(`(\d{1,2})([:.])(\d{2})(?:\s*(am|pm|hrs|hr|h)\b)?`)
)

// Classify reports whether the event on date (free text such as
// "Sábado 15 de Noviembre", "Sat, Nov 15 2025", "15/11/2025" or "2025-11-15")
// falls before now's calendar day. An event happening today is not past.
// Unknown is returned when no day and month can be recognised.
func Classify(date string, now time.Time) Verdict {
	day, month, year, ok := parse(date)
	if !ok {
		return Unknown
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if year == 0 {
		year = inferYear(day, month, today)
	}
	when := time.Date(year, month, day, 0, 0, 0, 0, now.Location())
	if when.Day() != day || when.Month() != month {
		return Unknown
	}

	if when.Before(today) {
		return Past
	}
	return Future
}

// inferYear picks the year for a date written without one: this year, unless
// that lands more than recentWindow months behind today, in which case the
// date is read as next year's.
func inferYear(day int, month time.Month, today time.Time) int {
	candidate := time.Date(today.Year(), month, day, 0, 0, 0, 0, today.Location())
	if candidate.Before(today.AddDate(0, -recentWindow, 0)) {
		return today.Year() + 1
	}
	return today.Year()
}

func parse(raw string) (day int, month time.Month, year int, ok bool) {
	s := stripClockTimes(fold(raw))
	if strings.TrimSpace(s) == "" {
		return 0, 0, 0, false
	}

	if m := isoDate.FindStringSubmatch(s); m != nil {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		if validDayMonth(d, mo) {
			return d, time.Month(mo), y, true
		}
		return 0, 0, 0, false
	}

	if m := numericDate.FindStringSubmatch(s); m != nil {
		d, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		if validDayMonth(d, mo) {
			if m[3] != "" {
				y, _ := strconv.Atoi(m[3])
				return d, time.Month(mo), normalizeYear(y), true
			}
			return d, time.Month(mo), 0, true
		}
	}

	for _, w := range wordSplit.Split(s, -1) {
		if w == "" {
			continue
		}
		if mo, found := months[w]; found && month == 0 {
			month = mo
			continue
		}
		if om := ordinal.FindStringSubmatch(w); om != nil {
			w = om[1]
		}
		n, err := strconv.Atoi(w)
		if err != nil {
			continue
		}
		switch {
		case len(w) == 4 && year == 0:
			year = n
		case n >= 1 && n <= 31 && day == 0:
			day = n
		}
	}
	if day == 0 || month == 0 {
		return 0, 0, 0, false
	}
	return day, month, year, true
}

// stripClockTimes blanks out times of day such as "20:00", "8:30 pm" or
// "20.30 hrs" so their digits are not read as a day. A dotted pair with no
// suffix is kept when it reads as a day and month ("15.11") or continues into
// a longer date ("15.11.2025").
func stripClockTimes(s string) string {
	var b strings.Builder
	last := 0
	for _, m := range clockTime.FindAllStringSubmatchIndex(s, -1) {
		start, end := m[0], m[1]
		if start > 0 && isDateByte(s[start-1]) {
			continue
		}
		if end < len(s) && isDigit(s[end]) {
			continue
		}
		if end+1 < len(s) && (s[end] == '.' || s[end] == '/') && isDigit(s[end+1]) {
			continue
		}
		if s[m[4]:m[5]] == "." && m[8] < 0 {
			h, _ := strconv.Atoi(s[m[2]:m[3]])
			mm, _ := strconv.Atoi(s[m[6]:m[7]])
			if validDayMonth(h, mm) {
				continue
			}
		}
		b.WriteString(s[last:start])
		b.WriteByte(' ')
		last = end
	}
	b.WriteString(s[last:])
	return b.String()
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isDateByte(c byte) bool { return isDigit(c) || c == '.' || c == '/' || c == '-' || c == ':' }

func validDayMonth(d, m int) bool {
	return d >= 1 && d <= 31 && m >= 1 && m <= 12
}

func normalizeYear(y int) int {
	if y < 100 {
		return 2000 + y
	}
	return y
}

// fold lowercases s and strips diacritics so "Sábado" matches "sabado".
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}
