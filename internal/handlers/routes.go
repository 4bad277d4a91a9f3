package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes registers every page and endpoint on r. authLimit, when non-nil,
// wraps the credential endpoints.
func (h *Handlers) Routes(r chi.Router, authLimit func(next http.Handler) http.Handler) {
	r.Get("/", h.Index)
	r.Get("/about", h.About)
	r.Get("/healthz", h.Healthz)

	r.Group(func(r chi.Router) {
		if authLimit != nil {
			r.Use(authLimit)
		}
		r.Get("/signup", h.SignupForm)
		r.Post("/signup", h.Signup)
		r.Get("/login", h.LoginForm)
		r.Post("/login", h.Login)
		r.Get("/reset_request", h.ResetRequestForm)
		r.Post("/reset_request", h.ResetRequest)
		r.Get("/reset_password/{token}", h.ResetPasswordForm)
		r.Post("/reset_password/{token}", h.ResetPassword)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.AuthMiddleware)

		r.Get("/logout", h.Logout)

		r.Get("/addTransactions", h.AddTransactionsPage)
		r.Post("/addTransactions", h.AddTransaction)
		r.Get("/transactionHistory", h.TransactionHistory)
		r.Post("/transactionHistory", h.FilterTransactionHistory)
		r.Get("/editCurrentMonthTransaction/{id}", h.EditTransactionForm)
		r.Post("/editCurrentMonthTransaction/{id}", h.EditTransaction)
		r.Post("/deleteCurrentMonthTransaction/{id}", h.DeleteCurrentMonthTransaction)
		r.Post("/deleteTransaction/{id}", h.DeleteTransaction)

		r.Get("/track_budget", h.TrackBudget)
		r.Post("/track_budget", h.UpdateBudget)
		r.Post("/set_category_budget", h.SetCategoryBudget)
		r.Post("/category_budget/delete", h.DeleteCategoryBudget)

		r.Get("/dashboard", h.Dashboard)
		r.Get("/category", h.CategoryChart)
		r.Get("/yearly_bar", h.YearlyBar)
		r.Get("/monthly_bar", h.MonthlyBar)
	})
}
