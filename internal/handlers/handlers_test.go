package handlers

import (
	"context"
	"encoding/json"
	"html"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"spendlog/internal/auth"
	"spendlog/internal/log"
	"spendlog/internal/mail"
	"spendlog/internal/models"
	"spendlog/internal/reporting"
	"spendlog/internal/storage"
	"spendlog/web"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []mail.Message
}

func (m *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) last() (mail.Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return mail.Message{}, false
	}
	return m.sent[len(m.sent)-1], true
}

type HandlersTestSuite struct {
	suite.Suite
	db      *storage.DB
	now     time.Time
	mailer  *recordingMailer
	router  http.Handler
	cookies map[string]*http.Cookie
}

func (s *HandlersTestSuite) SetupTest() {
	db, err := storage.NewDB(":memory:")
	s.Require().NoError(err)
	s.db = db
	s.now = time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)
	s.mailer = &recordingMailer{}
	s.cookies = map[string]*http.Cookie{}

	clock := func() time.Time { return s.now }
	h, err := New(Options{
		DB:          db,
		Templates:   web.Templates(),
		Mailer:      s.mailer,
		ResetTokens: auth.NewResetTokens("handlers-test-secret-key", clock),
		Logger:      log.Discard(),
		Now:         clock,
		Location:    time.UTC,
		BaseURL:     "http://localhost:8080",
		MailFrom:    "noreply@demo.com",
	})
	s.Require().NoError(err)

	r := chi.NewRouter()
	r.Use(log.Middleware(log.Discard()))
	h.Routes(r, nil)
	s.router = r
}

func (s *HandlersTestSuite) TearDownTest() {
	s.db.Close()
}

// do sends a request carrying the suite's cookies and keeps any cookies set in the response.
func (s *HandlersTestSuite) do(method, target string, form url.Values) (*http.Response, string) {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for _, c := range s.cookies {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	res := rec.Result()
	for _, c := range res.Cookies() {
		if c.MaxAge < 0 || c.Value == "" {
			delete(s.cookies, c.Name)
		} else {
			s.cookies[c.Name] = c
		}
	}

	raw, err := io.ReadAll(res.Body)
	s.Require().NoError(err)
	return res, string(raw)
}

func (s *HandlersTestSuite) get(target string) (*http.Response, string) {
	return s.do(http.MethodGet, target, nil)
}

func (s *HandlersTestSuite) post(target string, form url.Values) (*http.Response, string) {
	if form == nil {
		form = url.Values{}
	}
	return s.do(http.MethodPost, target, form)
}

// follow asserts a redirect to location and returns the body of the target page.
func (s *HandlersTestSuite) follow(res *http.Response, location string) string {
	s.Require().Equal(http.StatusFound, res.StatusCode)
	s.Require().Equal(location, res.Header.Get("Location"))
	_, body := s.get(location)
	return body
}

func (s *HandlersTestSuite) signup(username, email string) {
	res, _ := s.post("/signup", url.Values{
		"first_name": {"Ada"},
		"last_name":  {"Lovelace"},
		"email":      {email},
		"username":   {username},
		"password":   {"correct-horse"},
		"confirm":    {"correct-horse"},
	})
	s.Require().Equal(http.StatusFound, res.StatusCode)
	s.Require().Equal("/login", res.Header.Get("Location"))
}

func (s *HandlersTestSuite) login(username, password string) *http.Response {
	res, _ := s.post("/login", url.Values{"username": {username}, "password": {password}})
	return res
}

func (s *HandlersTestSuite) signupAndLogin() {
	s.signup("ada_l", "ada@example.com")
	res := s.login("ada_l", "correct-horse")
	s.Require().Equal(http.StatusFound, res.StatusCode)
	s.Require().Contains(s.cookies, SessionCookieName)
}

func (s *HandlersTestSuite) userID() int64 {
	u, err := s.db.GetUserByUsername(context.Background(), "ada_l")
	s.Require().NoError(err)
	return u.ID
}

func (s *HandlersTestSuite) TestPublicPages() {
	res, body := s.get("/")
	s.Equal(http.StatusOK, res.StatusCode)
	s.Contains(body, "Spendlog")

	res, _ = s.get("/about")
	s.Equal(http.StatusOK, res.StatusCode)

	res, body = s.get("/healthz")
	s.Equal(http.StatusOK, res.StatusCode)
	s.Equal("ok", body)
}

func (s *HandlersTestSuite) TestSignupFlashesAndCreatesUser() {
	s.signup("ada_l", "ada@example.com")
	_, body := s.get("/login")
	s.Contains(body, "You are now registered and can log in")

	n, err := s.db.UserCount(context.Background())
	s.Require().NoError(err)
	s.Equal(1, n)
}

func (s *HandlersTestSuite) TestSignupDuplicateEmailRejected() {
	s.signup("ada_l", "ada@example.com")

	res, _ := s.post("/signup", url.Values{
		"first_name": {"Other"}, "last_name": {"Person"}, "email": {"ada@example.com"},
		"username": {"someone"}, "password": {"pw"}, "confirm": {"pw"},
	})
	body := s.follow(res, "/signup")
	s.Contains(body, "The entered email address has already been taken.")

	n, err := s.db.UserCount(context.Background())
	s.Require().NoError(err)
	s.Equal(1, n)
}

func (s *HandlersTestSuite) TestSignupDuplicateUsernameRejected() {
	s.signup("ada_l", "ada@example.com")

	res, _ := s.post("/signup", url.Values{
		"first_name": {"Other"}, "last_name": {"Person"}, "email": {"other@example.com"},
		"username": {"ada_l"}, "password": {"pw"}, "confirm": {"pw"},
	})
	body := s.follow(res, "/signup")
	s.Contains(body, "The entered username has already been taken.")
}

func (s *HandlersTestSuite) TestSignupValidation() {
	res, body := s.post("/signup", url.Values{
		"first_name": {""}, "last_name": {"L"}, "email": {"not-an-email"},
		"username": {"abc"}, "password": {"one"}, "confirm": {"two"},
	})
	s.Equal(http.StatusUnprocessableEntity, res.StatusCode)
	s.Contains(body, "Invalid email address.")
	s.Contains(body, "Passwords do not match")
	s.Contains(body, "Field must be between 4 and 100 characters long.")
	s.Contains(body, `value="L"`, "valid input is kept")

	n, err := s.db.UserCount(context.Background())
	s.Require().NoError(err)
	s.Zero(n)
}

// bcrypt only accepts 72 bytes, so longer passwords are a form error.
func (s *HandlersTestSuite) TestSignupRejectsOverlongPassword() {
	long := strings.Repeat("p", auth.MaxPasswordBytes+8)
	res, body := s.post("/signup", url.Values{
		"first_name": {"Ada"}, "last_name": {"Lovelace"}, "email": {"ada@example.com"},
		"username": {"ada_l"}, "password": {long}, "confirm": {long},
	})
	s.Equal(http.StatusUnprocessableEntity, res.StatusCode)
	s.Contains(body, "Password must be at most 72 bytes long.")

	n, err := s.db.UserCount(context.Background())
	s.Require().NoError(err)
	s.Zero(n)
}

func (s *HandlersTestSuite) TestLoginWrongPasswordSetsNoSession() {
	s.signup("ada_l", "ada@example.com")

	res, body := s.post("/login", url.Values{"username": {"ada_l"}, "password": {"wrong"}})
	s.Equal(http.StatusUnauthorized, res.StatusCode)
	s.Contains(body, "Invalid Password")
	s.NotContains(s.cookies, SessionCookieName)

	res, body = s.post("/login", url.Values{"username": {"nobody"}, "password": {"wrong"}})
	s.Equal(http.StatusUnauthorized, res.StatusCode)
	s.Contains(body, "Username not found")
	s.NotContains(s.cookies, SessionCookieName)
}

func (s *HandlersTestSuite) TestLoginAndLogout() {
	s.signup("ada_l", "ada@example.com")
	res := s.login("ada_l", "correct-horse")
	body := s.follow(res, "/addTransactions")
	s.Contains(body, "You are now logged in")
	s.Contains(body, "ada_l")

	res, _ = s.get("/login")
	body = s.follow(res, "/addTransactions")
	s.Contains(body, "You are already logged in")

	res, _ = s.get("/logout")
	body = s.follow(res, "/login")
	s.Contains(body, "You are now logged out")
	s.NotContains(s.cookies, SessionCookieName)

	res, _ = s.get("/addTransactions")
	body = s.follow(res, "/login")
	s.Contains(body, "Please login")
}

func (s *HandlersTestSuite) TestProtectedRoutesRequireLogin() {
	for _, path := range []string{"/addTransactions", "/transactionHistory", "/track_budget", "/dashboard", "/category", "/yearly_bar", "/monthly_bar", "/logout"} {
		res, _ := s.get(path)
		s.Equal(http.StatusFound, res.StatusCode, path)
		s.Equal("/login", res.Header.Get("Location"), path)
	}
}

func (s *HandlersTestSuite) TestSessionRenewedPastHalfLife() {
	s.signupAndLogin()
	token := s.cookies[SessionCookieName].Value

	s.now = s.now.Add(20 * 24 * time.Hour)
	res, _ := s.get("/addTransactions")
	s.Equal(http.StatusOK, res.StatusCode)

	info, err := s.db.ValidateSession(context.Background(), token, s.now)
	s.Require().NoError(err)
	s.True(info.ExpiresAt.Equal(s.now.Add(DefaultSessionDuration)))
}

func (s *HandlersTestSuite) TestAddTransactionsSumsCurrentMonth() {
	s.signupAndLogin()

	for _, amount := range []string{"50", "30"} {
		res, _ := s.post("/addTransactions", url.Values{"amount": {amount}, "category": {"Food"}, "description": {"lunch"}})
		body := s.follow(res, "/addTransactions")
		s.Contains(body, "Transaction Successfully Recorded")
	}

	_, body := s.get("/addTransactions")
	s.Contains(body, `id="month-total">80<`)
	s.Contains(body, "just now")

	res, body := s.get("/category")
	s.Equal(http.StatusOK, res.StatusCode)
	var pie PieData
	s.Require().NoError(json.Unmarshal([]byte(body), &pie))
	s.Equal([]string{"Food"}, pie.Labels)
	s.Equal([]int64{80}, pie.Values)
}

func (s *HandlersTestSuite) TestAddTransactionValidation() {
	s.signupAndLogin()

	res, body := s.post("/addTransactions", url.Values{"amount": {"0"}, "category": {""}, "description": {"x"}})
	s.Equal(http.StatusUnprocessableEntity, res.StatusCode)
	s.Contains(body, "Amount must be between 1 and 1000000")

	res, body = s.post("/addTransactions", url.Values{"amount": {"abc"}, "category": {"Food"}, "description": {"x"}})
	s.Equal(http.StatusUnprocessableEntity, res.StatusCode)
	s.Contains(body, "Not a valid integer value.")

	listing, err := s.db.ListTransactions(context.Background(), s.userID(), storage.TransactionQuery{})
	s.Require().NoError(err)
	s.Empty(listing)
}

func (s *HandlersTestSuite) insert(amount int64, category string, date time.Time) *models.Transaction {
	t, err := s.db.InsertTransaction(context.Background(), models.Transaction{
		UserID: s.userID(), Amount: amount, Category: category, Description: "seed", Date: date,
	})
	s.Require().NoError(err)
	return t
}

func (s *HandlersTestSuite) TestHistoryWholeYearAndCategory() {
	s.signupAndLogin()
	s.insert(10, "Food", time.Date(2025, time.January, 5, 9, 0, 0, 0, time.UTC))
	s.insert(20, "Rent", time.Date(2025, time.February, 5, 9, 0, 0, 0, time.UTC))
	s.insert(40, "Food", time.Date(2024, time.June, 5, 9, 0, 0, 0, time.UTC))

	_, body := s.get("/transactionHistory")
	s.Contains(body, `id="history-total">70<`)
	s.Contains(body, "05 January, 2025")

	_, body = s.post("/transactionHistory", url.Values{"month": {"00"}, "year": {"2025"}})
	s.Contains(body, `id="history-total">30<`)
	s.Contains(body, "05 February, 2025")
	s.NotContains(body, "05 June, 2024")

	_, body = s.post("/transactionHistory", url.Values{"month": {"02"}, "year": {"2025"}})
	s.Contains(body, `id="history-total">20<`)

	_, body = s.get("/transactionHistory?category=Food")
	s.Contains(body, `id="history-total">50<`)
	s.NotContains(body, "05 February, 2025")

	_, body = s.get("/transactionHistory?category=" + url.QueryEscape("Food' OR '1'='1"))
	s.Contains(body, `id="history-total">0<`)

	res, _ := s.post("/transactionHistory", url.Values{"month": {"13"}, "year": {"2025"}})
	body = s.follow(res, "/transactionHistory")
	s.Contains(body, "Please select a valid month and year.")
}

func (s *HandlersTestSuite) TestEditCurrentMonthOnly() {
	s.signupAndLogin()
	current := s.insert(10, "Food", s.now.Add(-time.Hour))
	old := s.insert(10, "Food", time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC))

	res, body := s.get("/editCurrentMonthTransaction/" + itoa(current.ID))
	s.Equal(http.StatusOK, res.StatusCode)
	s.Contains(body, `value="10"`)

	res, _ = s.post("/editCurrentMonthTransaction/"+itoa(current.ID), url.Values{"amount": {"25"}, "description": {"dinner"}})
	body = s.follow(res, "/addTransactions")
	s.Contains(body, "Transaction Updated")
	s.Contains(body, "dinner")

	res, body = s.post("/editCurrentMonthTransaction/"+itoa(current.ID), url.Values{"amount": {"0"}, "description": {"dinner"}})
	s.Equal(http.StatusUnprocessableEntity, res.StatusCode)
	s.Contains(body, "Amount must be between")

	res, _ = s.post("/editCurrentMonthTransaction/"+itoa(old.ID), url.Values{"amount": {"99"}, "description": {"x"}})
	body = s.follow(res, "/addTransactions")
	s.Contains(body, "Only transactions from the current month can be edited.")

	t, err := s.db.GetTransaction(context.Background(), s.userID(), old.ID)
	s.Require().NoError(err)
	s.EqualValues(10, t.Amount)

	res, _ = s.get("/editCurrentMonthTransaction/999")
	s.Equal(http.StatusNotFound, res.StatusCode)
}

func (s *HandlersTestSuite) TestDeleteTransactions() {
	s.signupAndLogin()
	current := s.insert(10, "Food", s.now)
	old := s.insert(10, "Food", time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC))

	res, _ := s.post("/deleteCurrentMonthTransaction/"+itoa(old.ID), nil)
	body := s.follow(res, "/addTransactions")
	s.Contains(body, "Only transactions from the current month can be deleted here.")

	res, _ = s.post("/deleteCurrentMonthTransaction/"+itoa(current.ID), nil)
	body = s.follow(res, "/addTransactions")
	s.Contains(body, "Transaction Deleted")

	res, _ = s.post("/deleteTransaction/"+itoa(old.ID), nil)
	body = s.follow(res, "/transactionHistory")
	s.Contains(body, "Transaction Deleted")

	res, _ = s.post("/deleteTransaction/"+itoa(old.ID), nil)
	body = s.follow(res, "/transactionHistory")
	s.Contains(body, "Transaction not found")
}

func (s *HandlersTestSuite) TestBudgetPasswordAndMonthlyCap() {
	s.signupAndLogin()

	res, body := s.get("/track_budget")
	s.Equal(http.StatusOK, res.StatusCode)
	s.Contains(body, "Create a budget password")

	res, _ = s.post("/track_budget", url.Values{"new_password": {"a"}, "confirm_password": {"b"}})
	body = s.follow(res, "/track_budget")
	s.Contains(body, "Passwords do not match. Please try again.")

	long := strings.Repeat("b", auth.MaxPasswordBytes+1)
	res, _ = s.post("/track_budget", url.Values{"new_password": {long}, "confirm_password": {long}})
	body = s.follow(res, "/track_budget")
	s.Contains(body, "Password must be at most 72 bytes long.")
	s.Contains(body, "Create a budget password", "nothing was stored")

	res, _ = s.post("/track_budget", url.Values{"new_password": {"budget-pw"}, "confirm_password": {"budget-pw"}})
	body = s.follow(res, "/track_budget")
	s.Contains(body, "Budget password created successfully.")

	res, _ = s.post("/track_budget", url.Values{"password": {"nope"}, "monthly_budget": {"1000"}, "monthly_savings_goal": {"100"}})
	body = s.follow(res, "/track_budget")
	s.Contains(body, "Invalid password. Please try again.")

	update := func(amount string) string {
		res, _ := s.post("/track_budget", url.Values{"password": {"budget-pw"}, "monthly_budget": {amount}, "monthly_savings_goal": {"100"}})
		return s.follow(res, "/track_budget")
	}
	for _, amount := range []string{"1000", "1100", "1200"} {
		s.Contains(update(amount), "Budget updated successfully")
	}
	body = update("1300")
	s.Contains(body, "You have reached the maximum number of updates for this month.")
	s.Contains(body, `id="monthly-budget">1,200<`)

	s.now = time.Date(2025, time.April, 1, 8, 0, 0, 0, time.UTC)
	body = update("1300")
	s.Contains(body, "Budget updated successfully")
	s.Contains(body, `id="monthly-budget">1,300<`)
}

func (s *HandlersTestSuite) TestCategoryBudgets() {
	s.signupAndLogin()
	s.insert(80, "Food", s.now)

	res, _ := s.post("/set_category_budget", url.Values{"category": {"Food"}, "budget_limit": {"100"}})
	body := s.follow(res, "/track_budget")
	s.Contains(body, "Category budget set successfully")
	s.Contains(body, `<td class="num">20</td>`)

	res, _ = s.post("/set_category_budget", url.Values{"category": {"Food"}, "budget_limit": {"500"}})
	body = s.follow(res, "/track_budget")
	s.Contains(body, "Budget limit already exists. Delete this current one to proceed.")
	s.Contains(body, `<td class="num">100</td>`)

	res, _ = s.post("/set_category_budget", url.Values{"category": {"Food"}, "budget_limit": {"x"}})
	body = s.follow(res, "/track_budget")
	s.Contains(body, "Please choose a category and a positive limit.")

	res, _ = s.post("/set_category_budget", url.Values{"category": {strings.Repeat("c", 201)}, "budget_limit": {"10"}})
	body = s.follow(res, "/track_budget")
	s.Contains(body, "Category must be between 1 and 200 characters long.")

	res, _ = s.post("/category_budget/delete", url.Values{"category": {"Food"}})
	body = s.follow(res, "/track_budget")
	s.Contains(body, "Category budget deleted successfully")

	res, _ = s.post("/category_budget/delete", url.Values{"category": {"Food"}})
	body = s.follow(res, "/track_budget")
	s.Contains(body, "Error deleting category budget")
}

var deleteCategoryInput = regexp.MustCompile(`action="/category_budget/delete"[^>]*>\s*<input type="hidden" name="category" value="([^"]*)">`)

// Categories are free text, so the delete form must round-trip characters
// that mean something in a URL path.
func (s *HandlersTestSuite) TestDeleteCategoryBudgetWithURLCharacters() {
	s.signupAndLogin()

	for _, category := range []string{"Pets?", "Food/Drinks", "Fun #1"} {
		res, _ := s.post("/set_category_budget", url.Values{"category": {category}, "budget_limit": {"50"}})
		s.Contains(s.follow(res, "/track_budget"), "Category budget set successfully")
	}

	_, body := s.get("/track_budget")
	var rendered []string
	for _, m := range deleteCategoryInput.FindAllStringSubmatch(body, -1) {
		rendered = append(rendered, html.UnescapeString(m[1]))
	}
	s.ElementsMatch([]string{"Pets?", "Food/Drinks", "Fun #1"}, rendered)

	for _, category := range rendered {
		res, _ := s.post("/category_budget/delete", url.Values{"category": {category}})
		s.Contains(s.follow(res, "/track_budget"), "Category budget deleted successfully", category)
	}

	for _, category := range rendered {
		_, err := s.db.GetCategoryBudget(context.Background(), s.userID(), category)
		s.ErrorIs(err, storage.ErrNotFound, category)
	}
}

func (s *HandlersTestSuite) TestPasswordResetFlow() {
	s.signup("ada_l", "ada@example.com")

	res, _ := s.post("/reset_request", url.Values{"email": {"nobody@example.com"}})
	body := s.follow(res, "/signup")
	s.Contains(body, "There is no account with that email.")

	res, _ = s.post("/reset_request", url.Values{"email": {"ada@example.com"}})
	body = s.follow(res, "/login")
	s.Contains(body, "An email has been sent with instructions to reset your password.")

	msg, ok := s.mailer.last()
	s.Require().True(ok)
	s.Equal("ada@example.com", msg.To)
	s.Equal(mail.ResetSubject, msg.Subject)

	const prefix = "http://localhost:8080/reset_password/"
	start := strings.Index(msg.Text, prefix)
	s.Require().GreaterOrEqual(start, 0)
	link := strings.Fields(msg.Text[start:])[0]
	path := strings.TrimPrefix(link, "http://localhost:8080")

	res, _ = s.get(path)
	s.Equal(http.StatusOK, res.StatusCode)

	res, body = s.post(path, url.Values{"password": {"new-pass"}, "confirm": {"other"}})
	s.Equal(http.StatusUnprocessableEntity, res.StatusCode)
	s.Contains(body, "Passwords do not match")

	long := strings.Repeat("n", auth.MaxPasswordBytes+1)
	res, body = s.post(path, url.Values{"password": {long}, "confirm": {long}})
	s.Equal(http.StatusUnprocessableEntity, res.StatusCode)
	s.Contains(body, "Password must be at most 72 bytes long.")

	res, _ = s.post(path, url.Values{"password": {"new-pass"}, "confirm": {"new-pass"}})
	body = s.follow(res, "/login")
	s.Contains(body, "Your password has been updated!")

	s.Equal(http.StatusUnauthorized, s.login("ada_l", "correct-horse").StatusCode)
	s.Equal(http.StatusFound, s.login("ada_l", "new-pass").StatusCode)
}

func (s *HandlersTestSuite) TestResetTokenExpires() {
	s.signup("ada_l", "ada@example.com")
	s.post("/reset_request", url.Values{"email": {"ada@example.com"}})
	msg, ok := s.mailer.last()
	s.Require().True(ok)
	path := strings.TrimPrefix(strings.Fields(msg.Text[strings.Index(msg.Text, "http://"):])[0], "http://localhost:8080")

	s.now = s.now.Add(29 * time.Minute)
	res, _ := s.get(path)
	s.Equal(http.StatusOK, res.StatusCode)

	s.now = s.now.Add(2 * time.Minute)
	res, _ = s.get(path)
	body := s.follow(res, "/reset_request")
	s.Contains(body, "That is an invalid or expired token")

	res, _ = s.get("/reset_password/garbage")
	s.Equal("/reset_request", res.Header.Get("Location"))
}

func (s *HandlersTestSuite) TestDashboardAndCharts() {
	s.signupAndLogin()
	s.insert(50, "Food", s.now)
	s.insert(30, "Bus", time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC))
	s.insert(5, "Bus", time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC))

	res, body := s.get("/dashboard")
	s.Equal(http.StatusOK, res.StatusCode)
	s.Contains(body, `id="total-spending">85<`)
	s.Contains(body, `id="dashboard-data"`)

	_, body = s.get("/yearly_bar")
	var cmp reporting.YearComparison
	s.Require().NoError(json.Unmarshal([]byte(body), &cmp))
	s.Equal(2025, cmp.Year)
	s.EqualValues(30, cmp.ThisYear[0])
	s.EqualValues(50, cmp.ThisYear[2])
	s.EqualValues(5, cmp.LastYear[0])

	_, body = s.get("/monthly_bar")
	var bars BarData
	s.Require().NoError(json.Unmarshal([]byte(body), &bars))
	s.Equal([]string{"Jan", "Mar"}, bars.Labels)
	s.Equal([]int64{30, 50}, bars.Values)
}

func (s *HandlersTestSuite) TestHTMXRequestRendersContentOnly() {
	req := httptest.NewRequest(http.MethodGet, "/about", nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	s.Equal(http.StatusOK, rec.Code)
	s.NotContains(rec.Body.String(), "<!DOCTYPE html>")
	s.Contains(rec.Body.String(), "About")
}

func TestHandlersTestSuite(t *testing.T) {
	suite.Run(t, new(HandlersTestSuite))
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func TestFormatAmount(t *testing.T) {
	cases := map[int64]string{
		0:        "0",
		80:       "80",
		1200:     "1,200",
		-25:      "-25",
		1000000:  "1,000,000",
		-123456:  "-123,456",
		12345678: "12,345,678",
	}
	for in, want := range cases {
		assert.Equal(t, want, formatAmount(in), "formatAmount(%d)", in)
	}
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)

	db, err := storage.NewDB(":memory:")
	require.NoError(t, err)
	defer db.Close()

	_, err = New(Options{DB: db, Templates: web.Templates()})
	assert.ErrorContains(t, err, "reset tokens")
}

func TestFlashCookieKeepsSecureAttributes(t *testing.T) {
	db, err := storage.NewDB(":memory:")
	require.NoError(t, err)
	defer db.Close()

	h, err := New(Options{
		DB:           db,
		Templates:    web.Templates(),
		Mailer:       &recordingMailer{},
		ResetTokens:  auth.NewResetTokens("handlers-test-secret-key", nil),
		Logger:       log.Discard(),
		SecureCookie: true,
	})
	require.NoError(t, err)
	r := chi.NewRouter()
	r.Use(log.Middleware(log.Discard()))
	h.Routes(r, nil)

	findFlash := func(res *http.Response) *http.Cookie {
		for _, c := range res.Cookies() {
			if c.Name == flashCookieName {
				return c
			}
		}
		return nil
	}

	// Setting a flash.
	req := httptest.NewRequest(http.MethodGet, "/addTransactions", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	set := findFlash(rec.Result())
	require.NotNil(t, set)
	assert.True(t, set.Secure)
	assert.Equal(t, http.SameSiteLaxMode, set.SameSite)

	// Clearing it on the next render.
	req = httptest.NewRequest(http.MethodGet, "/login", nil)
	req.AddCookie(&http.Cookie{Name: set.Name, Value: set.Value})
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	cleared := findFlash(rec.Result())
	require.NotNil(t, cleared)
	assert.Negative(t, cleared.MaxAge)
	assert.True(t, cleared.HttpOnly)
	assert.True(t, cleared.Secure)
	assert.Equal(t, http.SameSiteLaxMode, cleared.SameSite)
	assert.Contains(t, rec.Body.String(), "Please login")
}
