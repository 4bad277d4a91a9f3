package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"spendlog/internal/auth"
	"spendlog/internal/budget"
	"spendlog/internal/ledger"
	"spendlog/internal/log"
	"spendlog/internal/storage"
)

// TrackBudget renders the budget page.
func (h *Handlers) TrackBudget(w http.ResponseWriter, r *http.Request) {
	rc := FromContext(r.Context())

	ov, err := h.budgetFor(rc).Overview(r.Context(), rc.User.ID)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "track_budget.html", Page{Title: "Track Budget", Data: ov})
}

// UpdateBudget creates the budget password on first use, and afterwards
// updates the monthly budget and savings goal.
func (h *Handlers) UpdateBudget(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rc := FromContext(ctx)
	svc := h.budgetFor(rc)
	logger := log.FromContext(ctx).WithComponent(log.ComponentBudget)

	user, err := rc.Store.GetUserByID(ctx, rc.User.ID)
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	if !user.HasBudgetPassword() {
		err := svc.SetPassword(ctx, rc.User.ID, r.PostFormValue("new_password"), r.PostFormValue("confirm_password"))
		switch {
		case err == nil:
			logger.InfoContext(ctx, "budget password created", log.FieldOperation, log.OpCreate)
			h.redirect(w, r, FlashSuccess, "Budget password created successfully. You can now update your budget.", "/track_budget")
		case errors.Is(err, budget.ErrPasswordMismatch):
			h.redirect(w, r, FlashDanger, "Passwords do not match. Please try again.", "/track_budget")
		case errors.Is(err, auth.ErrPasswordTooLong):
			h.redirect(w, r, FlashDanger, fmt.Sprintf("Password must be at most %d bytes long.", auth.MaxPasswordBytes), "/track_budget")
		case errors.Is(err, budget.ErrPasswordAlreadySet):
			h.redirect(w, r, FlashInfo, "A budget password already exists.", "/track_budget")
		default:
			h.serverError(w, r, err)
		}
		return
	}

	monthly, ok1 := parseAmount(r.PostFormValue("monthly_budget"))
	savings, ok2 := parseAmount(r.PostFormValue("monthly_savings_goal"))
	if !ok1 || !ok2 {
		h.redirect(w, r, FlashDanger, "Please enter valid budget amounts.", "/track_budget")
		return
	}

	err = svc.UpdateMonthly(ctx, rc.User.ID, r.PostFormValue("password"), monthly, savings)
	switch {
	case err == nil:
		logger.InfoContext(ctx, "monthly budget updated", "budget", monthly, "savings_goal", savings, log.FieldOperation, log.OpUpdate)
		h.redirect(w, r, FlashSuccess, "Budget updated successfully", "/track_budget")
	case errors.Is(err, budget.ErrInvalidPassword):
		h.redirect(w, r, FlashDanger, "Invalid password. Please try again.", "/track_budget")
	case errors.Is(err, budget.ErrUpdateLimitReached):
		logger.InfoContext(ctx, "monthly budget update rejected", log.FieldReason, "limit_reached")
		h.redirect(w, r, FlashWarning, "You have reached the maximum number of updates for this month.", "/track_budget")
	case errors.Is(err, budget.ErrInvalidAmount):
		h.redirect(w, r, FlashDanger, "Please enter valid budget amounts.", "/track_budget")
	case errors.Is(err, budget.ErrPasswordNotSet):
		h.redirect(w, r, FlashInfo, "Create a budget password first.", "/track_budget")
	default:
		h.serverError(w, r, err)
	}
}

// SetCategoryBudget creates a spend limit for one category.
func (h *Handlers) SetCategoryBudget(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rc := FromContext(ctx)

	category := strings.TrimSpace(r.PostFormValue("category"))
	limit, ok := parseAmount(r.PostFormValue("budget_limit"))
	if !ok {
		h.redirect(w, r, FlashDanger, "Please choose a category and a positive limit.", "/track_budget")
		return
	}

	err := h.budgetFor(rc).CreateCategoryBudget(ctx, rc.User.ID, category, limit)
	switch {
	case err == nil:
		log.FromContext(ctx).WithComponent(log.ComponentBudget).InfoContext(ctx, "category budget set",
			log.FieldCategory, category, log.FieldAmount, limit, log.FieldOperation, log.OpCreate)
		h.redirect(w, r, FlashSuccess, "Category budget set successfully", "/track_budget")
	case errors.Is(err, budget.ErrCategoryBudgetExists):
		h.redirect(w, r, FlashDanger, "Budget limit already exists. Delete this current one to proceed.", "/track_budget")
	case errors.Is(err, budget.ErrInvalidCategory):
		h.redirect(w, r, FlashDanger, fmt.Sprintf("Category must be between 1 and %d characters long.", ledger.MaxTextLen), "/track_budget")
	case errors.Is(err, budget.ErrInvalidAmount):
		h.redirect(w, r, FlashDanger, "Please choose a category and a positive limit.", "/track_budget")
	default:
		log.FromContext(ctx).ErrorContext(ctx, "set category budget failed", log.FieldError, err, log.FieldErrorType, log.ErrorTypeDatabase)
		h.redirect(w, r, FlashDanger, "An error occurred while setting the budget. Please try again.", "/track_budget")
	}
}

// DeleteCategoryBudget removes the spend limit for the posted category.
func (h *Handlers) DeleteCategoryBudget(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rc := FromContext(ctx)
	category := r.PostFormValue("category")

	err := h.budgetFor(rc).DeleteCategoryBudget(ctx, rc.User.ID, category)
	switch {
	case err == nil:
		log.FromContext(ctx).WithComponent(log.ComponentBudget).InfoContext(ctx, "category budget deleted",
			log.FieldCategory, category, log.FieldOperation, log.OpDelete)
		h.redirect(w, r, FlashSuccess, "Category budget deleted successfully", "/track_budget")
	case errors.Is(err, storage.ErrNotFound):
		h.redirect(w, r, FlashDanger, "Error deleting category budget", "/track_budget")
	default:
		log.FromContext(ctx).ErrorContext(ctx, "delete category budget failed", log.FieldError, err, log.FieldErrorType, log.ErrorTypeDatabase)
		h.redirect(w, r, FlashDanger, "Error deleting category budget", "/track_budget")
	}
}
