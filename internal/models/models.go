package models

import "time"

// User represents a registered account.
type User struct {
	ID                 int64     `json:"id"`
	FirstName          string    `json:"first_name"`
	LastName           string    `json:"last_name"`
	Email              string    `json:"email"`
	Username           string    `json:"username"`
	PasswordHash       string    `json:"-"`
	BudgetPasswordHash string    `json:"-"`
	CreatedAt          time.Time `json:"created_at"`
}

// HasBudgetPassword reports whether the budget page has been unlocked once.
func (u *User) HasBudgetPassword() bool {
	return u.BudgetPasswordHash != ""
}

// Session represents a user session.
type Session struct {
	Token        string    `json:"token"`
	UserID       int64     `json:"user_id"`
	ExpiresAt    time.Time `json:"expires_at"`
	LastActivity time.Time `json:"last_activity"`
}

// Transaction is a single expense record. Amounts are whole currency units.
type Transaction struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Amount      int64     `json:"amount"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
}

// MonthlyBudget holds the per-user monthly budget and savings goal.
type MonthlyBudget struct {
	UserID      int64     `json:"user_id"`
	Budget      int64     `json:"monthly_budget"`
	SavingsGoal int64     `json:"monthly_savings_goal"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CategoryBudget is a spend limit for one category.
type CategoryBudget struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Category  string    `json:"category"`
	Limit     int64     `json:"budget_limit"`
	CreatedAt time.Time `json:"created_at"`
}

// CategoryBudgetStatus pairs a category budget with the current month's spend.
type CategoryBudgetStatus struct {
	Category  string `json:"category"`
	Limit     int64  `json:"budget_limit"`
	Spent     int64  `json:"spent"`
	Remaining int64  `json:"remaining"`
}

// CategoryTotal is the summed amount for one category.
type CategoryTotal struct {
	Category string `json:"category"`
	Total    int64  `json:"total"`
}

// DatedAmount is a raw (date, amount) pair used for time bucketing.
type DatedAmount struct {
	Date   time.Time
	Amount int64
}
