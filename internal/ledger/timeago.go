package ledger

import (
	"fmt"
	"time"
)

// RelativeWindow is how recent an entry must be to show as "time ago".
const RelativeWindow = 12 * time.Hour

// AbsoluteLayout renders dates like "05 March, 2025".
const AbsoluteLayout = "02 January, 2006"

// unit thresholds: seconds, minutes, hours, days, weeks, months
var unitSteps = [...]float64{60, 60, 24, 7, 365.0 / 7.0 / 12.0, 12}

// phrases[i] holds the past and future forms; even indexes are singular.
var phrases = [...][2]string{
	{"just now", "right now"},
	{"%d seconds ago", "in %d seconds"},
	{"1 minute ago", "in 1 minute"},
	{"%d minutes ago", "in %d minutes"},
	{"1 hour ago", "in 1 hour"},
	{"%d hours ago", "in %d hours"},
	{"1 day ago", "in 1 day"},
	{"%d days ago", "in %d days"},
	{"1 week ago", "in 1 week"},
	{"%d weeks ago", "in %d weeks"},
	{"1 month ago", "in 1 month"},
	{"%d months ago", "in %d months"},
	{"1 year ago", "in 1 year"},
	{"%d years ago", "in %d years"},
}

// TimeAgo renders the distance between date and now, e.g. "5 minutes ago".
// Dates after now read "in 5 minutes".
func TimeAgo(date, now time.Time) string {
	diff := now.Sub(date).Seconds()
	form := 0
	if diff < 0 {
		form = 1
		diff = -diff
	}

	i := 0
	for i < len(unitSteps) && diff >= unitSteps[i] {
		diff /= unitSteps[i]
		i++
	}
	n := int(diff)

	i *= 2
	threshold := 1
	if i == 0 {
		threshold = 9
	}
	if n > threshold {
		i++
	}

	phrase := phrases[i][form]
	if i%2 == 1 {
		return fmt.Sprintf(phrase, n)
	}
	return phrase
}

// FormatDate shows entries younger than RelativeWindow (and future ones) as
// relative time, everything else as an absolute date in loc.
func FormatDate(date, now time.Time, loc *time.Location) string {
	if now.Sub(date) < RelativeWindow {
		return TimeAgo(date, now)
	}
	return FormatAbsolute(date, loc)
}

// FormatAbsolute renders date with AbsoluteLayout in loc.
func FormatAbsolute(date time.Time, loc *time.Location) string {
	return date.In(loc).Format(AbsoluteLayout)
}
