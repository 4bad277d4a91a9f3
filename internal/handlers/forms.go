package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"spendlog/internal/auth"
	"spendlog/internal/ledger"
)

// fieldErrors maps form field names to messages.
type fieldErrors map[string]string

func (e fieldErrors) lengthBetween(field, value string, min, max int) {
	n := utf8.RuneCountInString(value)
	if n < min || n > max {
		e[field] = "Field must be between " + strconv.Itoa(min) + " and " + strconv.Itoa(max) + " characters long."
	}
}

func (e fieldErrors) required(field, value string) {
	if value == "" {
		e[field] = "This field is required."
	}
}

func (e fieldErrors) email(field, value string) {
	if value == "" {
		e[field] = "This field is required."
		return
	}
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value || !strings.Contains(addr.Address[strings.IndexByte(addr.Address, '@')+1:], ".") {
		e[field] = "Invalid email address."
	}
}

func (e fieldErrors) passwordPair(password, confirm string) {
	switch {
	case password == "":
		e["password"] = "This field is required."
	case len(password) > auth.MaxPasswordBytes:
		e["password"] = fmt.Sprintf("Password must be at most %d bytes long.", auth.MaxPasswordBytes)
	case password != confirm:
		e["password"] = "Passwords do not match"
	}
}

type signupForm struct {
	FirstName string
	LastName  string
	Email     string
	Username  string
	Password  string
	Confirm   string
}

func parseSignup(r *http.Request) signupForm {
	return signupForm{
		FirstName: strings.TrimSpace(r.PostFormValue("first_name")),
		LastName:  strings.TrimSpace(r.PostFormValue("last_name")),
		Email:     strings.TrimSpace(r.PostFormValue("email")),
		Username:  strings.TrimSpace(r.PostFormValue("username")),
		Password:  r.PostFormValue("password"),
		Confirm:   r.PostFormValue("confirm"),
	}
}

func (f signupForm) validate() fieldErrors {
	errs := fieldErrors{}
	errs.lengthBetween("first_name", f.FirstName, 1, 100)
	errs.lengthBetween("last_name", f.LastName, 1, 100)
	errs.email("email", f.Email)
	errs.lengthBetween("username", f.Username, 4, 100)
	errs.passwordPair(f.Password, f.Confirm)
	return errs
}

type loginForm struct {
	Username string
	Password string
}

func parseLogin(r *http.Request) loginForm {
	return loginForm{
		Username: strings.TrimSpace(r.PostFormValue("username")),
		Password: r.PostFormValue("password"),
	}
}

func (f loginForm) validate() fieldErrors {
	errs := fieldErrors{}
	errs.lengthBetween("username", f.Username, 4, 100)
	errs.required("password", f.Password)
	return errs
}

// parseEntry reads the add-transaction form. An empty date means now.
func parseEntry(r *http.Request, loc *time.Location) (ledger.Entry, fieldErrors) {
	errs := fieldErrors{}
	entry := ledger.Entry{
		Category:    r.PostFormValue("category"),
		Description: r.PostFormValue("description"),
	}

	amount, ok := parseAmount(r.PostFormValue("amount"))
	if !ok {
		errs["amount"] = "Not a valid integer value."
	}
	entry.Amount = amount

	if raw := strings.TrimSpace(r.PostFormValue("date")); raw != "" {
		d, err := time.ParseInLocation("2006-01-02", raw, loc)
		if err != nil {
			errs["date"] = "Not a valid date."
		}
		entry.Date = d
	}

	var verrs ledger.ValidationErrors
	if err := entry.Validate(); errors.As(err, &verrs) {
		for field, msg := range verrs {
			if _, seen := errs[field]; !seen {
				errs[field] = msg
			}
		}
	}
	return entry, errs
}

func parseAmount(raw string) (int64, bool) {
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
