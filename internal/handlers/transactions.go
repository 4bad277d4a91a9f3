package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"spendlog/internal/ledger"
	"spendlog/internal/log"
	"spendlog/internal/models"
)

// LedgerView is the data for the add-transaction page.
type LedgerView struct {
	Month        string
	Total        int64
	Transactions []models.Transaction
}

// MonthOption is one entry of the history month selector.
type MonthOption struct {
	Value string
	Label string
}

// HistoryView is the data for the transaction history page.
type HistoryView struct {
	Period           string
	Total            int64
	Transactions     []models.Transaction
	Categories       []string
	SelectedCategory string
	SelectedMonth    string
	SelectedYear     string
	Months           []MonthOption
}

// EditView is the data for the edit-transaction page.
type EditView struct {
	Transaction *models.Transaction
}

var monthOptions = func() []MonthOption {
	opts := []MonthOption{{Value: ledger.AllMonths, Label: "All months"}}
	for m := time.January; m <= time.December; m++ {
		opts = append(opts, MonthOption{Value: fmt.Sprintf("%02d", int(m)), Label: m.String()})
	}
	return opts
}()

func (h *Handlers) currentMonthPage(w http.ResponseWriter, r *http.Request, status int, page Page) {
	rc := FromContext(r.Context())
	svc := h.ledgerFor(rc)

	listing, err := svc.List(r.Context(), rc.User.ID, ledger.Filter{})
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	page.Title = "Add Transactions"
	page.Data = LedgerView{
		Month:        ledger.Period{}.Label(h.now(), h.loc),
		Total:        listing.Total,
		Transactions: listing.Transactions,
	}
	h.render(w, r, status, "transactions.html", page)
}

// AddTransactionsPage lists the current month's transactions under the entry form.
func (h *Handlers) AddTransactionsPage(w http.ResponseWriter, r *http.Request) {
	h.currentMonthPage(w, r, http.StatusOK, Page{})
}

// AddTransaction records a new expense.
func (h *Handlers) AddTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rc := FromContext(ctx)

	entry, errs := parseEntry(r, h.loc)
	if len(errs) > 0 {
		h.currentMonthPage(w, r, http.StatusUnprocessableEntity, Page{Errors: errs, Form: r.PostForm})
		return
	}

	t, err := h.ledgerFor(rc).Add(ctx, rc.User.ID, entry)
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	log.FromContext(ctx).WithComponent(log.ComponentLedger).InfoContext(ctx, "transaction recorded",
		"transaction_id", t.ID, log.FieldCategory, t.Category, log.FieldAmount, t.Amount, log.FieldOperation, log.OpCreate)
	h.redirect(w, r, FlashSuccess, "Transaction Successfully Recorded", "/addTransactions")
}

// TransactionHistory lists all transactions, optionally narrowed to one category.
func (h *Handlers) TransactionHistory(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	filter := ledger.Filter{Period: ledger.AllTime(), Category: category}
	h.historyPage(w, r, filter, HistoryView{SelectedCategory: category})
}

// FilterTransactionHistory lists transactions for the posted month and year.
func (h *Handlers) FilterTransactionHistory(w http.ResponseWriter, r *http.Request) {
	month, year := r.PostFormValue("month"), r.PostFormValue("year")
	period, err := ledger.ParsePeriod(month, year)
	if err != nil {
		h.redirect(w, r, FlashDanger, "Please select a valid month and year.", "/transactionHistory")
		return
	}
	h.historyPage(w, r, ledger.Filter{Period: period}, HistoryView{SelectedMonth: month, SelectedYear: year})
}

func (h *Handlers) historyPage(w http.ResponseWriter, r *http.Request, filter ledger.Filter, view HistoryView) {
	ctx := r.Context()
	rc := FromContext(ctx)
	svc := h.ledgerFor(rc)

	listing, err := svc.List(ctx, rc.User.ID, filter)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	categories, err := svc.Categories(ctx, rc.User.ID)
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	view.Period = filter.Period.Label(h.now(), h.loc)
	view.Total = listing.Total
	view.Transactions = listing.Transactions
	view.Categories = categories
	view.Months = monthOptions
	if view.SelectedYear == "" {
		view.SelectedYear = strconv.Itoa(h.now().In(h.loc).Year())
	}

	h.render(w, r, http.StatusOK, "history.html", Page{Title: "Transaction History", Data: view})
}

func transactionID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

// EditTransactionForm renders the edit form for a current-month transaction.
func (h *Handlers) EditTransactionForm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rc := FromContext(ctx)

	id, ok := transactionID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	t, err := h.ledgerFor(rc).Get(ctx, rc.User.ID, id)
	if errors.Is(err, ledger.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	if !ledger.InMonth(t.Date, h.now(), h.loc) {
		h.redirect(w, r, FlashWarning, "Only transactions from the current month can be edited.", "/addTransactions")
		return
	}

	h.render(w, r, http.StatusOK, "edit_transaction.html", Page{Title: "Edit Transaction", Data: EditView{Transaction: t}})
}

// EditTransaction updates the amount and description of a current-month transaction.
func (h *Handlers) EditTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rc := FromContext(ctx)
	svc := h.ledgerFor(rc)

	id, ok := transactionID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	amount, amountOK := parseAmount(r.PostFormValue("amount"))
	description := strings.TrimSpace(r.PostFormValue("description"))

	err := svc.UpdateCurrentMonth(ctx, rc.User.ID, id, amount, description)
	var verrs ledger.ValidationErrors
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		http.NotFound(w, r)
		return
	case errors.Is(err, ledger.ErrNotCurrentMonth):
		h.redirect(w, r, FlashWarning, "Only transactions from the current month can be edited.", "/addTransactions")
		return
	case !amountOK || errors.As(err, &verrs):
		errs := fieldErrors{}
		for field, msg := range verrs {
			errs[field] = msg
		}
		if !amountOK {
			errs["amount"] = "Not a valid integer value."
		}
		t, getErr := svc.Get(ctx, rc.User.ID, id)
		if getErr != nil {
			h.serverError(w, r, getErr)
			return
		}
		h.render(w, r, http.StatusUnprocessableEntity, "edit_transaction.html", Page{
			Title: "Edit Transaction", Errors: errs, Form: r.PostForm, Data: EditView{Transaction: t},
		})
		return
	case err != nil:
		h.serverError(w, r, err)
		return
	}

	log.FromContext(ctx).WithComponent(log.ComponentLedger).InfoContext(ctx, "transaction updated",
		"transaction_id", id, log.FieldOperation, log.OpUpdate)
	h.redirect(w, r, FlashSuccess, "Transaction Updated", "/addTransactions")
}

// DeleteCurrentMonthTransaction deletes a transaction from the add-transaction page.
func (h *Handlers) DeleteCurrentMonthTransaction(w http.ResponseWriter, r *http.Request) {
	rc := FromContext(r.Context())
	id, ok := transactionID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	err := h.ledgerFor(rc).DeleteCurrentMonth(r.Context(), rc.User.ID, id)
	h.afterDelete(w, r, err, id, "/addTransactions")
}

// DeleteTransaction deletes any of the user's transactions from the history page.
func (h *Handlers) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	rc := FromContext(r.Context())
	id, ok := transactionID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	err := h.ledgerFor(rc).Delete(r.Context(), rc.User.ID, id)
	h.afterDelete(w, r, err, id, "/transactionHistory")
}

func (h *Handlers) afterDelete(w http.ResponseWriter, r *http.Request, err error, id int64, target string) {
	switch {
	case err == nil:
		log.FromContext(r.Context()).WithComponent(log.ComponentLedger).InfoContext(r.Context(), "transaction deleted",
			"transaction_id", id, log.FieldOperation, log.OpDelete)
		h.redirect(w, r, FlashSuccess, "Transaction Deleted", target)
	case errors.Is(err, ledger.ErrNotFound):
		h.redirect(w, r, FlashDanger, "Transaction not found", target)
	case errors.Is(err, ledger.ErrNotCurrentMonth):
		h.redirect(w, r, FlashWarning, "Only transactions from the current month can be deleted here.", target)
	default:
		h.serverError(w, r, err)
	}
}
