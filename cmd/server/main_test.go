package main

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendlog/internal/auth"
	"spendlog/internal/handlers"
	"spendlog/internal/log"
	"spendlog/internal/mail"
	"spendlog/internal/middleware"
	"spendlog/internal/storage"
	"spendlog/web"
)

func newTestRouter(t *testing.T, limiter *middleware.RateLimiter, trustProxy bool) http.Handler {
	t.Helper()

	db, err := storage.NewDB(":memory:")
	require.NoError(t, err, "failed to create database")
	t.Cleanup(func() { db.Close() })

	h, err := handlers.New(handlers.Options{
		DB:          db,
		Templates:   web.Templates(),
		Mailer:      mail.NewLogMailer(log.Discard()),
		ResetTokens: auth.NewResetTokens("router-test-secret-key", nil),
		Logger:      log.Discard(),
	})
	require.NoError(t, err)

	// Route conflicts panic here.
	return setupRouter(h, web.Static(), log.Discard(), limiter, trustProxy)
}

func TestSetupRouter(t *testing.T) {
	mux := newTestRouter(t, nil, false)

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		location   string
	}{
		{name: "Home page", method: "GET", path: "/", wantStatus: http.StatusOK},
		{name: "About page", method: "GET", path: "/about", wantStatus: http.StatusOK},
		{name: "Login page", method: "GET", path: "/login", wantStatus: http.StatusOK},
		{name: "Signup page", method: "GET", path: "/signup", wantStatus: http.StatusOK},
		{name: "Health check", method: "GET", path: "/healthz", wantStatus: http.StatusOK},
		{name: "Static file access", method: "GET", path: "/static/style.css", wantStatus: http.StatusOK},
		{name: "Chart script", method: "GET", path: "/static/charts.js", wantStatus: http.StatusOK},
		{name: "Add transactions requires auth", method: "GET", path: "/addTransactions", wantStatus: http.StatusFound, location: "/login"},
		{name: "Dashboard requires auth", method: "GET", path: "/dashboard", wantStatus: http.StatusFound, location: "/login"},
		{name: "Chart data requires auth", method: "GET", path: "/yearly_bar", wantStatus: http.StatusFound, location: "/login"},
		{name: "Unknown route", method: "GET", path: "/expenses", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, http.NoBody)
			w := httptest.NewRecorder()

			mux.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code, "%s %s returned unexpected status", tt.method, tt.path)
			if tt.location != "" {
				assert.Equal(t, tt.location, w.Header().Get("Location"))
			}
		})
	}
}

func TestRouterSetsCommonHeaders(t *testing.T) {
	mux := newTestRouter(t, nil, false)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "default-src 'self'")

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/static/style.css", http.NoBody))
	assert.Contains(t, w.Header().Get("Cache-Control"), "max-age=3600")
}

func TestRouterThrottlesCredentialPosts(t *testing.T) {
	mux := newTestRouter(t, middleware.NewRateLimiter(2), false)

	post := func() int {
		body := url.Values{"username": {"nobody"}, "password": {"x"}}.Encode()
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.RemoteAddr = "203.0.113.7:5555"
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusUnauthorized, post())
	assert.Equal(t, http.StatusUnauthorized, post())
	assert.Equal(t, http.StatusTooManyRequests, post())

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/login", http.NoBody))
	assert.Equal(t, http.StatusOK, w.Code, "page views are not throttled")
}

func credentialPost(mux http.Handler, forwardedFor string) int {
	body := url.Values{"username": {"nobody"}, "password": {"x"}}.Encode()
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Forwarded-For", forwardedFor)
	req.RemoteAddr = "203.0.113.7:5555"
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w.Code
}

func TestRouterIgnoresForwardedForByDefault(t *testing.T) {
	mux := newTestRouter(t, middleware.NewRateLimiter(2), false)

	assert.Equal(t, http.StatusUnauthorized, credentialPost(mux, "198.51.100.1"))
	assert.Equal(t, http.StatusUnauthorized, credentialPost(mux, "198.51.100.2"))
	assert.Equal(t, http.StatusTooManyRequests, credentialPost(mux, "198.51.100.3"),
		"rotating X-Forwarded-For must not reset the limit")
}

func TestRouterTrustsForwardedForBehindProxy(t *testing.T) {
	mux := newTestRouter(t, middleware.NewRateLimiter(1), true)

	assert.Equal(t, http.StatusUnauthorized, credentialPost(mux, "198.51.100.1"))
	assert.Equal(t, http.StatusTooManyRequests, credentialPost(mux, "198.51.100.1"))
	assert.Equal(t, http.StatusUnauthorized, credentialPost(mux, "198.51.100.2"), "each forwarded client has its own budget")
}
