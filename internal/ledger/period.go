package ledger

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"spendlog/internal/storage"
)

// AllMonths is the month value that selects a whole year in the history form.
const AllMonths = "00"

// PeriodKind distinguishes the shapes a Period can take.
type PeriodKind int

const (
	// PeriodCurrentMonth is the zero value: the calendar month containing now.
	PeriodCurrentMonth PeriodKind = iota
	PeriodMonth
	PeriodYear
	PeriodAllTime
)

// Period selects a calendar window of transactions.
type Period struct {
	Kind  PeriodKind
	Year  int
	Month time.Month
}

func Month(year int, month time.Month) Period {
	return Period{Kind: PeriodMonth, Year: year, Month: month}
}

func Year(year int) Period {
	return Period{Kind: PeriodYear, Year: year}
}

func AllTime() Period {
	return Period{Kind: PeriodAllTime}
}

// ParsePeriod reads the month/year pair posted by the history form.
// A month of "00" selects the whole year.
func ParsePeriod(month, year string) (Period, error) {
	y, err := strconv.Atoi(strings.TrimSpace(year))
	if err != nil || y < 1900 || y > 9999 {
		return Period{}, fmt.Errorf("invalid year %q", year)
	}

	month = strings.TrimSpace(month)
	if month == AllMonths {
		return Year(y), nil
	}
	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || m > 12 {
		return Period{}, fmt.Errorf("invalid month %q", month)
	}
	return Month(y, time.Month(m)), nil
}

// Range converts the period into a half-open interval in loc.
func (p Period) Range(now time.Time, loc *time.Location) storage.TimeRange {
	switch p.Kind {
	case PeriodMonth:
		start := time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, loc)
		return storage.TimeRange{From: start, To: start.AddDate(0, 1, 0)}
	case PeriodYear:
		start := time.Date(p.Year, time.January, 1, 0, 0, 0, 0, loc)
		return storage.TimeRange{From: start, To: start.AddDate(1, 0, 0)}
	case PeriodAllTime:
		return storage.TimeRange{}
	default:
		return MonthRange(now, loc)
	}
}

// Label is a human description used as the page subtitle.
func (p Period) Label(now time.Time, loc *time.Location) string {
	switch p.Kind {
	case PeriodMonth:
		return fmt.Sprintf("%s %d", p.Month, p.Year)
	case PeriodYear:
		return strconv.Itoa(p.Year)
	case PeriodAllTime:
		return "All time"
	default:
		n := now.In(loc)
		return fmt.Sprintf("%s %d", n.Month(), n.Year())
	}
}

// MonthRange is the calendar month containing now, in loc.
func MonthRange(now time.Time, loc *time.Location) storage.TimeRange {
	n := now.In(loc)
	start := time.Date(n.Year(), n.Month(), 1, 0, 0, 0, 0, loc)
	return storage.TimeRange{From: start, To: start.AddDate(0, 1, 0)}
}

// InMonth reports whether t falls in the calendar month containing now, in loc.
func InMonth(t, now time.Time, loc *time.Location) bool {
	a, b := t.In(loc), now.In(loc)
	return a.Year() == b.Year() && a.Month() == b.Month()
}
