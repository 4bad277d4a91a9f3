package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"

	"spendlog/internal/auth"
	"spendlog/internal/budget"
	"spendlog/internal/ledger"
	"spendlog/internal/log"
	"spendlog/internal/mail"
	"spendlog/internal/models"
	"spendlog/internal/reporting"
	"spendlog/internal/storage"
)

const (
	// SessionCookieName is the name of the session cookie.
	SessionCookieName = "session"
	// DefaultSessionDuration is how long sessions last (30 days).
	DefaultSessionDuration = 30 * 24 * time.Hour

	flashCookieName = "flash"
)

// Flash categories.
const (
	FlashSuccess = "success"
	FlashInfo    = "info"
	FlashWarning = "warning"
	FlashDanger  = "danger"
)

// Options holds the dependencies of Handlers.
type Options struct {
	DB              *storage.DB
	Templates       fs.FS
	Mailer          mail.Mailer
	ResetTokens     *auth.ResetTokens
	Logger          *log.Logger
	Now             func() time.Time
	Location        *time.Location
	SessionDuration time.Duration
	SecureCookie    bool
	BaseURL         string
	MailFrom        string
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	db              *storage.DB
	pages           map[string]*template.Template
	mailer          mail.Mailer
	resetTokens     *auth.ResetTokens
	logger          *log.Logger
	now             func() time.Time
	loc             *time.Location
	sessionDuration time.Duration
	secureCookie    bool
	baseURL         string
	mailFrom        string
}

// New creates a Handlers instance and parses every page template.
func New(opts Options) (*Handlers, error) {
	if opts.DB == nil {
		return nil, errors.New("handlers: DB is required")
	}
	if opts.Templates == nil {
		return nil, errors.New("handlers: templates are required")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	if opts.Mailer == nil {
		opts.Mailer = mail.NewLogMailer(opts.Logger)
	}
	if opts.SessionDuration <= 0 {
		opts.SessionDuration = DefaultSessionDuration
	}
	if opts.ResetTokens == nil {
		return nil, errors.New("handlers: reset tokens are required")
	}

	h := &Handlers{
		db:              opts.DB,
		mailer:          opts.Mailer,
		resetTokens:     opts.ResetTokens,
		logger:          opts.Logger,
		now:             opts.Now,
		loc:             opts.Location,
		sessionDuration: opts.SessionDuration,
		secureCookie:    opts.SecureCookie,
		baseURL:         opts.BaseURL,
		mailFrom:        opts.MailFrom,
	}

	pages, err := h.parsePages(opts.Templates)
	if err != nil {
		return nil, err
	}
	h.pages = pages
	return h, nil
}

// RequestContext is the per-request state of an authenticated request: the
// user and a store scope that is released when the request ends.
type RequestContext struct {
	User  *models.User
	Store *storage.Scope
}

type contextKey struct{}

// FromContext returns the RequestContext set by AuthMiddleware, or nil.
func FromContext(ctx context.Context) *RequestContext {
	rc, _ := ctx.Value(contextKey{}).(*RequestContext)
	return rc
}

func (h *Handlers) ledgerFor(rc *RequestContext) *ledger.Service {
	return ledger.New(rc.Store, h.now, h.loc)
}

func (h *Handlers) budgetFor(rc *RequestContext) *budget.Service {
	return budget.New(rc.Store, h.now, h.loc)
}

func (h *Handlers) reportingFor(rc *RequestContext) *reporting.Service {
	return reporting.New(rc.Store, h.now, h.loc)
}

// session looks up the session named by the request's cookie.
func (h *Handlers) session(r *http.Request) (*storage.SessionInfo, string, bool) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil, "", false
	}
	info, err := h.db.ValidateSession(r.Context(), cookie.Value, h.now())
	if err != nil {
		return nil, cookie.Value, false
	}
	return info, cookie.Value, true
}

// AuthMiddleware wraps handlers to require authentication.
// It also implements rolling sessions: if a session is past the halfway point
// of its lifetime, it automatically renews the session.
func (h *Handlers) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := log.FromContext(ctx).WithComponent(log.ComponentAuth)

		info, token, ok := h.session(r)
		if !ok {
			if token != "" {
				h.clearSessionCookie(w)
			}
			h.flash(w, FlashInfo, "Please login")
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}

		now := h.now()
		if info.ExpiresAt.Sub(now) < h.sessionDuration/2 {
			if err := h.db.RenewSession(ctx, token, now.Add(h.sessionDuration), now); err != nil {
				logger.WarnContext(ctx, "session renewal failed", log.FieldError, err)
			} else {
				h.setSessionCookie(w, token)
			}
		}

		scope, err := h.db.Acquire(ctx)
		if err != nil {
			h.serverError(w, r, fmt.Errorf("acquire store: %w", err))
			return
		}
		defer scope.Release()

		rc := &RequestContext{User: info.User, Store: scope}
		ctx = context.WithValue(ctx, contextKey{}, rc)
		ctx = log.NewContext(ctx, log.FromContext(ctx).With(log.FieldUserID, info.User.ID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// redirectIfLoggedIn sends a logged-in visitor to target and reports whether it did.
func (h *Handlers) redirectIfLoggedIn(w http.ResponseWriter, r *http.Request, target string) bool {
	if _, _, ok := h.session(r); !ok {
		return false
	}
	h.flash(w, FlashInfo, "You are already logged in")
	http.Redirect(w, r, target, http.StatusFound)
	return true
}

func (h *Handlers) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.sessionDuration.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handlers) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Category string `json:"c"`
	Message  string `json:"m"`
}

func (h *Handlers) flash(w http.ResponseWriter, category, message string) {
	raw, err := json.Marshal([]Flash{{Category: category, Message: message}})
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    base64.RawURLEncoding.EncodeToString(raw),
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handlers) popFlashes(w http.ResponseWriter, r *http.Request) []Flash {
	cookie, err := r.Cookie(flashCookieName)
	if err != nil {
		return nil
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	raw, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return nil
	}
	var flashes []Flash
	if err := json.Unmarshal(raw, &flashes); err != nil {
		return nil
	}
	return flashes
}

// Page is the data passed to every template.
type Page struct {
	Title   string
	User    *models.User
	Flashes []Flash
	Errors  map[string]string
	Form    url.Values
	Data    any
}

func (h *Handlers) parsePages(fsys fs.FS) (map[string]*template.Template, error) {
	names, err := fs.Glob(fsys, "*.html")
	if err != nil {
		return nil, err
	}

	pages := make(map[string]*template.Template, len(names))
	for _, name := range names {
		if name == "base.html" {
			continue
		}
		tmpl, err := template.New(name).Funcs(h.funcs()).ParseFS(fsys, "base.html", name)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		pages[name] = tmpl
	}
	return pages, nil
}

func (h *Handlers) funcs() template.FuncMap {
	return template.FuncMap{
		"when": func(t time.Time) string { return ledger.FormatDate(t, h.now(), h.loc) },
		"date": func(t time.Time) string { return ledger.FormatAbsolute(t, h.loc) },
		"money": formatAmount,
		"monthName": func(m time.Month) string {
			return m.String()
		},
	}
}

// render executes a page template. HTMX requests receive only the content block.
func (h *Handlers) render(w http.ResponseWriter, r *http.Request, status int, name string, page Page) {
	logger := log.FromContext(r.Context()).WithComponent(log.ComponentTemplate)

	tmpl, ok := h.pages[name]
	if !ok {
		logger.ErrorContext(r.Context(), "unknown template", "template", name)
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}

	if page.User == nil {
		if rc := FromContext(r.Context()); rc != nil {
			page.User = rc.User
		}
	}
	page.Flashes = append(page.Flashes, h.popFlashes(w, r)...)

	target := "base.html"
	if r.Header.Get("HX-Request") == "true" {
		target = "content"
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, target, page); err != nil {
		logger.ErrorContext(r.Context(), "template execution failed",
			"template", name, log.FieldError, err, log.FieldOperation, log.OpRender)
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (h *Handlers) writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "encode JSON response", log.FieldError, err)
	}
}

// serverError logs an unexpected failure and answers 500.
func (h *Handlers) serverError(w http.ResponseWriter, r *http.Request, err error) {
	log.FromContext(r.Context()).ErrorContext(r.Context(), "request failed",
		log.FieldError, err,
		log.FieldErrorType, log.ErrorTypeDatabase,
		log.FieldPath, r.URL.Path,
	)
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}

func (h *Handlers) redirect(w http.ResponseWriter, r *http.Request, category, message, target string) {
	h.flash(w, category, message)
	http.Redirect(w, r, target, http.StatusFound)
}

// absoluteURL joins p onto the configured base URL.
func (h *Handlers) absoluteURL(p string) string {
	base, err := url.Parse(h.baseURL)
	if err != nil || base.Host == "" {
		return p
	}
	base.Path = path.Join(base.Path, p)
	return base.String()
}

// formatAmount renders an integer amount with thousands separators.
func formatAmount(v int64) string {
	s := strconv.FormatInt(v, 10)
	neg := v < 0
	if neg {
		s = s[1:]
	}
	var b bytes.Buffer
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
