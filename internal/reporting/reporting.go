// Package reporting computes the spending aggregates behind the charts,
// the dashboard and the offline export.
package reporting

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"spendlog/internal/models"
	"spendlog/internal/storage"
)

// DailyWindow is the trailing window of the daily spend series.
const DailyWindow = 30 * 24 * time.Hour

// DayLayout keys daily points.
const DayLayout = "2006-01-02"

// MonthLabels are the short month names used on chart axes.
var MonthLabels = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// Store is the subset of storage reporting reads from.
type Store interface {
	CategoryTotals(ctx context.Context, userID int64, r storage.TimeRange) ([]models.CategoryTotal, error)
	SumTransactions(ctx context.Context, userID int64, r storage.TimeRange) (int64, error)
	DatedAmounts(ctx context.Context, userID int64, r storage.TimeRange) ([]models.DatedAmount, error)
}

// MonthPoint is the total for one calendar month.
type MonthPoint struct {
	Month int    `json:"month"`
	Label string `json:"label"`
	Total int64  `json:"total"`
}

// DayPoint is the total for one calendar day.
type DayPoint struct {
	Date  string `json:"date"`
	Total int64  `json:"amount"`
}

// YearComparison holds this year's and last year's spend per month.
type YearComparison struct {
	Year     int        `json:"year"`
	Labels   [12]string `json:"labels"`
	ThisYear [12]int64  `json:"this_year"`
	LastYear [12]int64  `json:"last_year"`
}

// Dashboard is the data for the dashboard page.
type Dashboard struct {
	Daily         []DayPoint             `json:"daily_spending"`
	Categories    []models.CategoryTotal `json:"category_spending"`
	TotalSpending int64                  `json:"total_spending"`
}

// YearReport summarises one calendar year for export.
type YearReport struct {
	Year       int                    `json:"year"`
	Months     [12]int64              `json:"months"`
	Categories []models.CategoryTotal `json:"categories"`
	Total      int64                  `json:"total"`
}

// Service computes aggregates. Nothing is cached.
type Service struct {
	store Store
	now   func() time.Time
	loc   *time.Location
}

// New returns a reporting service. A nil clock means time.Now; a nil location means time.Local.
func New(store Store, now func() time.Time, loc *time.Location) *Service {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	return &Service{store: store, now: now, loc: loc}
}

func (s *Service) yearRange(year int) storage.TimeRange {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, s.loc)
	return storage.TimeRange{From: start, To: start.AddDate(1, 0, 0)}
}

func (s *Service) currentYear() int {
	return s.now().In(s.loc).Year()
}

// CategorySpend sums the current year's spend per category, ordered by category.
func (s *Service) CategorySpend(ctx context.Context, userID int64) ([]models.CategoryTotal, error) {
	totals, err := s.store.CategoryTotals(ctx, userID, s.yearRange(s.currentYear()))
	if err != nil {
		return nil, fmt.Errorf("category spend: %w", err)
	}
	return totals, nil
}

// YearComparison buckets this year's and last year's spend into months.
// Months without spend are zero.
func (s *Service) YearComparison(ctx context.Context, userID int64) (*YearComparison, error) {
	year := s.currentYear()
	rows, err := s.store.DatedAmounts(ctx, userID, storage.TimeRange{
		From: s.yearRange(year - 1).From,
		To:   s.yearRange(year).To,
	})
	if err != nil {
		return nil, fmt.Errorf("year comparison: %w", err)
	}
	return &YearComparison{
		Year:     year,
		Labels:   MonthLabels,
		ThisYear: BucketByMonth(rows, year, s.loc),
		LastYear: BucketByMonth(rows, year-1, s.loc),
	}, nil
}

// MonthlySpend lists the current year's months that have spend, in order.
func (s *Service) MonthlySpend(ctx context.Context, userID int64) ([]MonthPoint, error) {
	year := s.currentYear()
	rows, err := s.store.DatedAmounts(ctx, userID, s.yearRange(year))
	if err != nil {
		return nil, fmt.Errorf("monthly spend: %w", err)
	}
	return NonEmptyMonths(BucketByMonth(rows, year, s.loc)), nil
}

// DailySpend totals each day in the trailing DailyWindow that has spend, oldest first.
func (s *Service) DailySpend(ctx context.Context, userID int64) ([]DayPoint, error) {
	rows, err := s.store.DatedAmounts(ctx, userID, storage.TimeRange{From: s.now().Add(-DailyWindow)})
	if err != nil {
		return nil, fmt.Errorf("daily spend: %w", err)
	}
	return BucketByDay(rows, s.loc), nil
}

// Dashboard gathers daily spend, all-time category spend and all-time total.
func (s *Service) Dashboard(ctx context.Context, userID int64) (*Dashboard, error) {
	daily, err := s.DailySpend(ctx, userID)
	if err != nil {
		return nil, err
	}
	cats, err := s.store.CategoryTotals(ctx, userID, storage.TimeRange{})
	if err != nil {
		return nil, fmt.Errorf("dashboard categories: %w", err)
	}
	total, err := s.store.SumTransactions(ctx, userID, storage.TimeRange{})
	if err != nil {
		return nil, fmt.Errorf("dashboard total: %w", err)
	}
	return &Dashboard{Daily: daily, Categories: cats, TotalSpending: total}, nil
}

// YearReport summarises a whole calendar year.
func (s *Service) YearReport(ctx context.Context, userID int64, year int) (*YearReport, error) {
	r := s.yearRange(year)
	rows, err := s.store.DatedAmounts(ctx, userID, r)
	if err != nil {
		return nil, fmt.Errorf("year report: %w", err)
	}
	cats, err := s.store.CategoryTotals(ctx, userID, r)
	if err != nil {
		return nil, fmt.Errorf("year report categories: %w", err)
	}

	rep := &YearReport{Year: year, Months: BucketByMonth(rows, year, s.loc), Categories: cats}
	for _, m := range rep.Months {
		rep.Total += m
	}
	return rep, nil
}

// BucketByMonth sums rows falling in year into twelve monthly buckets, in loc.
func BucketByMonth(rows []models.DatedAmount, year int, loc *time.Location) [12]int64 {
	var out [12]int64
	for _, r := range rows {
		d := r.Date.In(loc)
		if d.Year() == year {
			out[d.Month()-1] += r.Amount
		}
	}
	return out
}

// NonEmptyMonths keeps only the months with spend.
func NonEmptyMonths(buckets [12]int64) []MonthPoint {
	var out []MonthPoint
	for i, total := range buckets {
		if total != 0 {
			out = append(out, MonthPoint{Month: i + 1, Label: MonthLabels[i], Total: total})
		}
	}
	return out
}

// BucketByDay sums rows per calendar day in loc, ordered by day.
func BucketByDay(rows []models.DatedAmount, loc *time.Location) []DayPoint {
	var out []DayPoint
	index := map[string]int{}
	for _, r := range rows {
		key := r.Date.In(loc).Format(DayLayout)
		if i, ok := index[key]; ok {
			out[i].Total += r.Amount
			continue
		}
		index[key] = len(out)
		out = append(out, DayPoint{Date: key, Total: r.Amount})
	}
	slices.SortFunc(out, func(a, b DayPoint) int { return strings.Compare(a.Date, b.Date) })
	return out
}
