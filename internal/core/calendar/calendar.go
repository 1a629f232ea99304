// Package calendar maps timestamps to the integer day and week buckets
// used to group tracked items, and back again.
//
// A day number is the UTC date concatenated as YYYYMMDD. A week number is
// the ISO-8601 week-year followed by the week, so weeks 1-9 produce a
// five digit number (20201 for 2020-W01) and weeks 10-53 a six digit one
// (202010). Both forms decode unambiguously for years 1000-9999.
package calendar

import (
	"fmt"
	"time"
)

// DayInfo describes one day bucket.
type DayInfo struct {
	Year   int
	Month  int
	Day    int
	Number int

	// Path is "YYYY/MM/DD".
	Path string

	// ID is "YYYY-MM-DD".
	ID string

	// Name is the display form, e.g. "Jan 02, 2020".
	Name string

	// Date is midnight UTC of the day.
	Date time.Time
}

// WeekInfo describes one ISO week bucket.
type WeekInfo struct {
	Year   int
	Week   int
	Number int

	// Path is "YYYY/W".
	Path string

	// ID is "YYYY-W".
	ID string

	// Name is the display range, e.g. "Dec 30 - Jan 05, 2019".
	Name string

	// Date is midnight UTC of the week's Monday.
	Date time.Time
}

// DayNumber returns the YYYYMMDD bucket of t's UTC date.
func DayNumber(t time.Time) int {
	y, m, d := t.UTC().Date()
	return y*10000 + int(m)*100 + d
}

// ParseDayInfo decodes a day number.
func ParseDayInfo(n int) (DayInfo, error) {
	year, month, day := n/10000, n/100%100, n%100
	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if month < 1 || month > 12 || day < 1 || date.Day() != day || year < 1000 {
		return DayInfo{}, fmt.Errorf("invalid day number %d", n)
	}
	return DayInfo{
		Year:   year,
		Month:  month,
		Day:    day,
		Number: n,
		Path:   fmt.Sprintf("%d/%02d/%02d", year, month, day),
		ID:     fmt.Sprintf("%d-%02d-%02d", year, month, day),
		Name:   date.Format("Jan 02, 2006"),
		Date:   date,
	}, nil
}

// WeekNumber returns the ISO week bucket of t's UTC date.
func WeekNumber(t time.Time) int {
	year, week := t.UTC().ISOWeek()
	return EncodeWeek(year, week)
}

// EncodeWeek joins an ISO week-year and week.
func EncodeWeek(year, week int) int {
	if week < 10 {
		return year*10 + week
	}
	return year*100 + week
}

// DecodeWeek splits a week number into ISO week-year and week.
func DecodeWeek(n int) (year, week int) {
	if n < 100000 {
		return n / 10, n % 10
	}
	return n / 100, n % 100
}

// ParseWeekInfo decodes a week number.
func ParseWeekInfo(n int) (WeekInfo, error) {
	year, week := DecodeWeek(n)
	if year < 1000 || week < 1 || week > 53 {
		return WeekInfo{}, fmt.Errorf("invalid week number %d", n)
	}
	monday := ISOWeekStart(year, week)
	if y, w := monday.ISOWeek(); y != year || w != week {
		return WeekInfo{}, fmt.Errorf("invalid week number %d: %d has no week %d", n, year, week)
	}
	sunday := monday.AddDate(0, 0, 6)
	return WeekInfo{
		Year:   year,
		Week:   week,
		Number: n,
		Path:   fmt.Sprintf("%d/%d", year, week),
		ID:     fmt.Sprintf("%d-%d", year, week),
		Name:   fmt.Sprintf("%s - %s, %d", monday.Format("Jan 02"), sunday.Format("Jan 02"), monday.Year()),
		Date:   monday,
	}, nil
}

// ISOWeekStart returns the Monday of ISO week week in year. Week 1 is the
// week containing January 4th.
func ISOWeekStart(year, week int) time.Time {
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	offset := (int(jan4.Weekday()) + 6) % 7
	week1 := jan4.AddDate(0, 0, -offset)
	return week1.AddDate(0, 0, (week-1)*7)
}

// TruncateDay returns midnight UTC of t's UTC date.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
