// Package ledger records expenses and answers filtered queries over them.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"spendlog/internal/models"
	"spendlog/internal/storage"
)

const (
	MinAmount  = 1
	MaxAmount  = 1_000_000
	MaxTextLen = 200
)

var (
	// ErrNotCurrentMonth rejects edits to entries outside the current calendar month.
	ErrNotCurrentMonth = errors.New("transaction is not from the current month")
	// ErrNotFound is returned for missing entries and entries owned by someone else.
	ErrNotFound = storage.ErrNotFound
)

// Store is the subset of storage the ledger needs.
type Store interface {
	InsertTransaction(ctx context.Context, t models.Transaction) (*models.Transaction, error)
	GetTransaction(ctx context.Context, userID, id int64) (*models.Transaction, error)
	UpdateTransaction(ctx context.Context, userID, id, amount int64, description string) error
	DeleteTransaction(ctx context.Context, userID, id int64) error
	ListTransactions(ctx context.Context, userID int64, q storage.TransactionQuery) ([]models.Transaction, error)
	DistinctCategories(ctx context.Context, userID int64) ([]string, error)
}

// Entry is a transaction as submitted by the user.
type Entry struct {
	Amount      int64
	Category    string
	Description string
	Date        time.Time // zero means now
}

// ValidationErrors maps form field names to messages.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for field, msg := range v {
		parts = append(parts, field+": "+msg)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Validate checks the amount and text bounds. Category and description are trimmed.
func (e *Entry) Validate() error {
	errs := ValidationErrors{}
	e.Category = strings.TrimSpace(e.Category)
	e.Description = strings.TrimSpace(e.Description)

	if e.Amount < MinAmount || e.Amount > MaxAmount {
		errs["amount"] = fmt.Sprintf("Amount must be between %d and %d", MinAmount, MaxAmount)
	}
	if err := checkText(e.Category); err != "" {
		errs["category"] = err
	}
	if err := checkText(e.Description); err != "" {
		errs["description"] = err
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func checkText(s string) string {
	n := utf8.RuneCountInString(s)
	if n < 1 || n > MaxTextLen {
		return fmt.Sprintf("Field must be between 1 and %d characters long.", MaxTextLen)
	}
	return ""
}

// Filter narrows a listing. The zero Filter is the current month, any category.
type Filter struct {
	Period   Period
	Category string
}

// Listing is a filtered set of transactions plus the sum of their amounts.
type Listing struct {
	Transactions []models.Transaction
	Total        int64
}

// Service implements the ledger operations over a Store.
type Service struct {
	store Store
	now   func() time.Time
	loc   *time.Location
}

// New returns a ledger service. A nil clock means time.Now; a nil location means time.Local.
func New(store Store, now func() time.Time, loc *time.Location) *Service {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	return &Service{store: store, now: now, loc: loc}
}

// Add records a new expense for the user.
func (s *Service) Add(ctx context.Context, userID int64, e Entry) (*models.Transaction, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	date := e.Date
	if date.IsZero() {
		date = s.now()
	}
	t, err := s.store.InsertTransaction(ctx, models.Transaction{
		UserID:      userID,
		Amount:      e.Amount,
		Category:    e.Category,
		Description: e.Description,
		Date:        date,
	})
	if err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}
	return t, nil
}

// Get returns one of the user's transactions.
func (s *Service) Get(ctx context.Context, userID, id int64) (*models.Transaction, error) {
	return s.store.GetTransaction(ctx, userID, id)
}

// List returns the user's transactions matching f, newest first, with their sum.
func (s *Service) List(ctx context.Context, userID int64, f Filter) (*Listing, error) {
	txs, err := s.store.ListTransactions(ctx, userID, storage.TransactionQuery{
		Range:    f.Period.Range(s.now(), s.loc),
		Category: f.Category,
	})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return &Listing{Transactions: txs, Total: Sum(txs)}, nil
}

// UpdateCurrentMonth edits the amount and description of an entry recorded
// in the current calendar month.
func (s *Service) UpdateCurrentMonth(ctx context.Context, userID, id, amount int64, description string) error {
	t, err := s.store.GetTransaction(ctx, userID, id)
	if err != nil {
		return err
	}
	if !InMonth(t.Date, s.now(), s.loc) {
		return ErrNotCurrentMonth
	}

	e := Entry{Amount: amount, Category: t.Category, Description: description}
	if err := e.Validate(); err != nil {
		return err
	}
	return s.store.UpdateTransaction(ctx, userID, id, e.Amount, e.Description)
}

// Delete removes one of the user's transactions.
func (s *Service) Delete(ctx context.Context, userID, id int64) error {
	return s.store.DeleteTransaction(ctx, userID, id)
}

// DeleteCurrentMonth removes an entry only if it belongs to the current month.
func (s *Service) DeleteCurrentMonth(ctx context.Context, userID, id int64) error {
	t, err := s.store.GetTransaction(ctx, userID, id)
	if err != nil {
		return err
	}
	if !InMonth(t.Date, s.now(), s.loc) {
		return ErrNotCurrentMonth
	}
	return s.store.DeleteTransaction(ctx, userID, id)
}

// Categories lists the distinct categories the user has used.
func (s *Service) Categories(ctx context.Context, userID int64) ([]string, error) {
	return s.store.DistinctCategories(ctx, userID)
}

// Now returns the service clock's current time.
func (s *Service) Now() time.Time {
	return s.now()
}

// Location returns the time zone used for calendar boundaries.
func (s *Service) Location() *time.Location {
	return s.loc
}

// Sum adds up the amounts of txs.
func Sum(txs []models.Transaction) int64 {
	var total int64
	for _, t := range txs {
		total += t.Amount
	}
	return total
}
