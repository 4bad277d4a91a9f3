// Package budget manages the password-gated monthly budget and per-category limits.
package budget

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"spendlog/internal/auth"
	"spendlog/internal/ledger"
	"spendlog/internal/models"
	"spendlog/internal/storage"
)

// MaxMonthlyUpdates caps monthly budget writes per calendar month.
const MaxMonthlyUpdates = 3

var (
	ErrPasswordNotSet       = errors.New("budget password not set")
	ErrPasswordAlreadySet   = errors.New("budget password already set")
	ErrPasswordMismatch     = errors.New("passwords do not match")
	ErrInvalidPassword      = errors.New("invalid budget password")
	ErrUpdateLimitReached   = errors.New("monthly budget update limit reached")
	ErrCategoryBudgetExists = errors.New("category budget already exists")
	ErrInvalidAmount        = errors.New("amount must not be negative")
	ErrInvalidCategory      = errors.New("category must be 1 to 200 characters")
)

// Store is the subset of storage the budget tracker needs.
type Store interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	SetBudgetPassword(ctx context.Context, userID int64, hash string) error
	GetMonthlyBudget(ctx context.Context, userID int64) (*models.MonthlyBudget, error)
	UpsertMonthlyBudget(ctx context.Context, b models.MonthlyBudget) error
	BudgetUpdateTimes(ctx context.Context, userID int64, since time.Time) ([]time.Time, error)
	CreateCategoryBudget(ctx context.Context, b models.CategoryBudget) (*models.CategoryBudget, error)
	GetCategoryBudget(ctx context.Context, userID int64, category string) (*models.CategoryBudget, error)
	DeleteCategoryBudget(ctx context.Context, userID int64, category string) error
	CategoryBudgetStatuses(ctx context.Context, userID int64, r storage.TimeRange) ([]models.CategoryBudgetStatus, error)
	DistinctCategories(ctx context.Context, userID int64) ([]string, error)
}

// TxStore is a Store that can run a function atomically.
type TxStore interface {
	Store
	WithTx(ctx context.Context, fn func(tx *storage.Store) error) error
}

// Overview is everything the budget page shows.
type Overview struct {
	HasPassword      bool
	Monthly          models.MonthlyBudget
	UpdatesThisMonth int
	UpdatesLeft      int
	Categories       []string
	CategoryBudgets  []models.CategoryBudgetStatus
}

// Service implements the budget operations.
type Service struct {
	store TxStore
	now   func() time.Time
	loc   *time.Location
}

// New returns a budget service. A nil clock means time.Now; a nil location means time.Local.
func New(store TxStore, now func() time.Time, loc *time.Location) *Service {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	return &Service{store: store, now: now, loc: loc}
}

// SetPassword creates the budget password. It can only be set once.
func (s *Service) SetPassword(ctx context.Context, userID int64, password, confirm string) error {
	if password == "" || password != confirm {
		return ErrPasswordMismatch
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		// auth.ErrPasswordTooLong passes through for the caller to report.
		return err
	}
	if err := s.store.SetBudgetPassword(ctx, userID, hash); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return ErrPasswordAlreadySet
		}
		return fmt.Errorf("set budget password: %w", err)
	}
	return nil
}

// UpdateMonthly checks the budget password and the monthly cap, then saves
// the budget and logs the update, all in one transaction.
func (s *Service) UpdateMonthly(ctx context.Context, userID int64, password string, budget, savingsGoal int64) error {
	if budget < 0 || savingsGoal < 0 {
		return ErrInvalidAmount
	}
	now := s.now()

	return s.store.WithTx(ctx, func(tx *storage.Store) error {
		user, err := tx.GetUserByID(ctx, userID)
		if err != nil {
			return err
		}
		if !user.HasBudgetPassword() {
			return ErrPasswordNotSet
		}
		if !auth.CheckPassword(password, user.BudgetPasswordHash) {
			return ErrInvalidPassword
		}

		monthStart := ledger.MonthRange(now, s.loc).From
		times, err := tx.BudgetUpdateTimes(ctx, userID, monthStart)
		if err != nil {
			return fmt.Errorf("load budget updates: %w", err)
		}
		if CountInMonth(times, now, s.loc) >= MaxMonthlyUpdates {
			return ErrUpdateLimitReached
		}

		return tx.UpsertMonthlyBudget(ctx, models.MonthlyBudget{
			UserID:      userID,
			Budget:      budget,
			SavingsGoal: savingsGoal,
			UpdatedAt:   now,
		})
	})
}

// CountInMonth counts the timestamps falling in the calendar month of now, in loc.
func CountInMonth(times []time.Time, now time.Time, loc *time.Location) int {
	n := 0
	for _, t := range times {
		if ledger.InMonth(t, now, loc) {
			n++
		}
	}
	return n
}

// CreateCategoryBudget sets a spend limit for a category. An existing limit
// is never overwritten.
func (s *Service) CreateCategoryBudget(ctx context.Context, userID int64, category string, limit int64) error {
	category = strings.TrimSpace(category)
	if n := utf8.RuneCountInString(category); n == 0 || n > ledger.MaxTextLen {
		return ErrInvalidCategory
	}
	if limit <= 0 {
		return ErrInvalidAmount
	}

	if _, err := s.store.GetCategoryBudget(ctx, userID, category); err == nil {
		return ErrCategoryBudgetExists
	} else if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("lookup category budget: %w", err)
	}

	_, err := s.store.CreateCategoryBudget(ctx, models.CategoryBudget{
		UserID:    userID,
		Category:  category,
		Limit:     limit,
		CreatedAt: s.now(),
	})
	if errors.Is(err, storage.ErrConflict) {
		return ErrCategoryBudgetExists
	}
	return err
}

// DeleteCategoryBudget removes the limit for a category.
func (s *Service) DeleteCategoryBudget(ctx context.Context, userID int64, category string) error {
	return s.store.DeleteCategoryBudget(ctx, userID, category)
}

// Overview gathers the budget page data. Category spend covers the current
// month; remaining may be negative.
func (s *Service) Overview(ctx context.Context, userID int64) (*Overview, error) {
	now := s.now()
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	ov := &Overview{HasPassword: user.HasBudgetPassword(), Monthly: models.MonthlyBudget{UserID: userID}}

	b, err := s.store.GetMonthlyBudget(ctx, userID)
	switch {
	case err == nil:
		ov.Monthly = *b
	case !errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("load monthly budget: %w", err)
	}

	month := ledger.MonthRange(now, s.loc)
	times, err := s.store.BudgetUpdateTimes(ctx, userID, month.From)
	if err != nil {
		return nil, fmt.Errorf("load budget updates: %w", err)
	}
	ov.UpdatesThisMonth = CountInMonth(times, now, s.loc)
	ov.UpdatesLeft = max(MaxMonthlyUpdates-ov.UpdatesThisMonth, 0)

	if ov.Categories, err = s.store.DistinctCategories(ctx, userID); err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	if ov.CategoryBudgets, err = s.store.CategoryBudgetStatuses(ctx, userID, month); err != nil {
		return nil, fmt.Errorf("load category budgets: %w", err)
	}
	return ov, nil
}
