package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"spendlog/internal/auth"
	"spendlog/internal/log"
	"spendlog/internal/mail"
	"spendlog/internal/storage"
)

const mailTimeout = 10 * time.Second

// Index renders the landing page.
func (h *Handlers) Index(w http.ResponseWriter, r *http.Request) {
	page := Page{Title: "Home"}
	if info, _, ok := h.session(r); ok {
		page.User = info.User
	}
	h.render(w, r, http.StatusOK, "index.html", page)
}

// About renders the about page.
func (h *Handlers) About(w http.ResponseWriter, r *http.Request) {
	page := Page{Title: "About"}
	if info, _, ok := h.session(r); ok {
		page.User = info.User
	}
	h.render(w, r, http.StatusOK, "about.html", page)
}

// SignupForm renders the registration page.
func (h *Handlers) SignupForm(w http.ResponseWriter, r *http.Request) {
	if h.redirectIfLoggedIn(w, r, "/addTransactions") {
		return
	}
	h.render(w, r, http.StatusOK, "signup.html", Page{Title: "Sign Up"})
}

// Signup registers a new user.
func (h *Handlers) Signup(w http.ResponseWriter, r *http.Request) {
	if h.redirectIfLoggedIn(w, r, "/addTransactions") {
		return
	}
	ctx := r.Context()
	logger := log.FromContext(ctx).WithComponent(log.ComponentAuth)

	form := parseSignup(r)
	if errs := form.validate(); len(errs) > 0 {
		h.render(w, r, http.StatusUnprocessableEntity, "signup.html", Page{
			Title: "Sign Up", Errors: errs, Form: r.PostForm,
		})
		return
	}

	exists, err := h.db.EmailExists(ctx, form.Email)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	if exists {
		h.redirect(w, r, FlashInfo,
			"The entered email address has already been taken. Please try using or creating another one.", "/signup")
		return
	}

	hash, err := auth.HashPassword(form.Password)
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	user, err := h.db.CreateUser(ctx, storage.NewUser{
		FirstName:    form.FirstName,
		LastName:     form.LastName,
		Email:        form.Email,
		Username:     form.Username,
		PasswordHash: hash,
	}, h.now())
	if errors.Is(err, storage.ErrConflict) {
		h.redirect(w, r, FlashInfo, "The entered username has already been taken. Please choose another one.", "/signup")
		return
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	logger.InfoContext(ctx, "user registered", log.FieldUserID, user.ID, log.FieldOperation, log.OpSignup)
	h.redirect(w, r, FlashSuccess, "You are now registered and can log in", "/login")
}

// LoginForm renders the login page.
func (h *Handlers) LoginForm(w http.ResponseWriter, r *http.Request) {
	if h.redirectIfLoggedIn(w, r, "/addTransactions") {
		return
	}
	h.render(w, r, http.StatusOK, "login.html", Page{Title: "Login"})
}

// Login handles the login form submission.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	if h.redirectIfLoggedIn(w, r, "/addTransactions") {
		return
	}
	ctx := r.Context()
	logger := log.FromContext(ctx).WithComponent(log.ComponentAuth)

	form := parseLogin(r)
	page := Page{Title: "Login", Form: r.PostForm}
	if errs := form.validate(); len(errs) > 0 {
		page.Errors = errs
		h.render(w, r, http.StatusUnprocessableEntity, "login.html", page)
		return
	}

	user, err := h.db.GetUserByUsername(ctx, form.Username)
	if errors.Is(err, storage.ErrNotFound) {
		page.Errors = fieldErrors{"form": "Username not found"}
		h.render(w, r, http.StatusUnauthorized, "login.html", page)
		return
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	if !auth.CheckPassword(form.Password, user.PasswordHash) {
		logger.InfoContext(ctx, "login failed", log.FieldUserID, user.ID, log.FieldReason, "bad_password")
		page.Errors = fieldErrors{"form": "Invalid Password"}
		h.render(w, r, http.StatusUnauthorized, "login.html", page)
		return
	}

	token, err := auth.GenerateSessionToken()
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	now := h.now()
	if err := h.db.CreateSession(ctx, token, user.ID, now.Add(h.sessionDuration), now); err != nil {
		h.serverError(w, r, err)
		return
	}
	h.setSessionCookie(w, token)

	logger.InfoContext(ctx, "user logged in", log.FieldUserID, user.ID, log.FieldOperation, log.OpLogin)
	h.redirect(w, r, FlashSuccess, "You are now logged in", "/addTransactions")
}

// Logout handles user logout.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	rc := FromContext(r.Context())
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		if err := rc.Store.DeleteSession(r.Context(), cookie.Value); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "failed to delete session", log.FieldError, err)
		}
	}
	h.clearSessionCookie(w)
	h.redirect(w, r, FlashSuccess, "You are now logged out", "/login")
}

// ResetRequestForm renders the "forgot password" page.
func (h *Handlers) ResetRequestForm(w http.ResponseWriter, r *http.Request) {
	if h.redirectIfLoggedIn(w, r, "/") {
		return
	}
	h.render(w, r, http.StatusOK, "reset_request.html", Page{Title: "Reset Password"})
}

// ResetRequest emails a reset link to the account owning the submitted address.
func (h *Handlers) ResetRequest(w http.ResponseWriter, r *http.Request) {
	if h.redirectIfLoggedIn(w, r, "/") {
		return
	}
	ctx := r.Context()
	logger := log.FromContext(ctx).WithComponent(log.ComponentAuth)

	email := strings.TrimSpace(r.PostFormValue("email"))
	errs := fieldErrors{}
	errs.email("email", email)
	if len(errs) > 0 {
		h.render(w, r, http.StatusUnprocessableEntity, "reset_request.html", Page{
			Title: "Reset Password", Errors: errs, Form: r.PostForm,
		})
		return
	}

	user, err := h.db.GetUserByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		h.redirect(w, r, FlashWarning, "There is no account with that email. You must register first.", "/signup")
		return
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	token, err := h.resetTokens.Issue(user.ID)
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	msg := mail.ResetMessage(h.mailFrom, user.FirstName+" "+user.LastName, user.Email,
		h.absoluteURL("/reset_password/"+token))
	h.sendMail(ctx, msg)

	logger.InfoContext(ctx, "password reset requested", log.FieldUserID, user.ID, log.FieldOperation, log.OpReset)
	h.redirect(w, r, FlashInfo, "An email has been sent with instructions to reset your password.", "/login")
}

// sendMail delivers msg without letting a mail failure reach the user.
func (h *Handlers) sendMail(ctx context.Context, msg mail.Message) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), mailTimeout)
	defer cancel()

	if err := h.mailer.Send(ctx, msg); err != nil {
		log.FromContext(ctx).WithComponent(log.ComponentMail).ErrorContext(ctx, "failed to send email",
			log.FieldError, err, log.FieldErrorType, log.ErrorTypeNetwork, log.FieldOperation, log.OpSend)
	}
}

func (h *Handlers) verifyResetToken(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, err := h.resetTokens.Verify(chi.URLParam(r, "token"))
	if err != nil {
		log.FromContext(r.Context()).WithComponent(log.ComponentAuth).InfoContext(r.Context(),
			"reset token rejected", log.FieldReason, auth.Reason(err))
		h.redirect(w, r, FlashWarning, "That is an invalid or expired token", "/reset_request")
		return 0, false
	}
	return userID, true
}

// ResetPasswordForm renders the new-password form for a valid token.
func (h *Handlers) ResetPasswordForm(w http.ResponseWriter, r *http.Request) {
	if h.redirectIfLoggedIn(w, r, "/") {
		return
	}
	if _, ok := h.verifyResetToken(w, r); !ok {
		return
	}
	h.render(w, r, http.StatusOK, "reset_password.html", Page{Title: "Reset Password"})
}

// ResetPassword sets a new password for the token's user and ends their sessions.
func (h *Handlers) ResetPassword(w http.ResponseWriter, r *http.Request) {
	if h.redirectIfLoggedIn(w, r, "/") {
		return
	}
	userID, ok := h.verifyResetToken(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	password, confirm := r.PostFormValue("password"), r.PostFormValue("confirm")
	errs := fieldErrors{}
	errs.passwordPair(password, confirm)
	if len(errs) > 0 {
		h.render(w, r, http.StatusUnprocessableEntity, "reset_password.html", Page{Title: "Reset Password", Errors: errs})
		return
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	err = h.db.WithTx(ctx, func(tx *storage.Store) error {
		if err := tx.UpdatePassword(ctx, userID, hash); err != nil {
			return err
		}
		return tx.DeleteUserSessions(ctx, userID)
	})
	if errors.Is(err, storage.ErrNotFound) {
		h.redirect(w, r, FlashWarning, "That is an invalid or expired token", "/reset_request")
		return
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	log.FromContext(ctx).WithComponent(log.ComponentAuth).InfoContext(ctx, "password reset",
		log.FieldUserID, userID, log.FieldOperation, log.OpReset)
	h.redirect(w, r, FlashSuccess, "Your password has been updated! You are now able to log in", "/login")
}
