package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"atlas/internal/auth"
	"atlas/internal/core"
	"atlas/internal/log"
	"atlas/internal/services"
	"atlas/internal/storage"
)

var testNow = time.Date(2024, 2, 24, 9, 30, 0, 0, time.UTC)

type testServer struct {
	t       *testing.T
	srv     *Server
	repo    *storage.SQLiteRepository
	authSvc *services.AuthService
}

func newTestServer(t *testing.T, opts Options) *testServer {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "atlas.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	repo.SetClock(func() time.Time { return testNow })
	t.Cleanup(func() { repo.Close() })

	clock := services.FixedClock(testNow)
	tokens := auth.NewTokenManager("test-secret-0123456789", time.Hour).WithClock(clock.Now)
	authSvc := services.NewAuthService(repo, tokens)

	if opts.Logger == nil {
		opts.Logger = log.New(log.Config{Output: io.Discard})
	}
	srv, err := NewServer(":0", Services{
		Auth:       authSvc,
		Ledger:     services.NewLedgerService(repo, nil),
		Tracker:    services.NewTrackerService(repo, clock),
		Settings:   services.NewSettingsService(repo),
		Categories: services.NewCategoryService(repo),
		Dashboard:  services.NewDashboardService(repo, clock),
		Clock:      clock,
		Store:      repo,
	}, opts)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	t.Cleanup(func() { srv.Shutdown(context.Background()) })

	return &testServer{t: t, srv: srv, repo: repo, authSvc: authSvc}
}

// register creates a user through the API and returns its token.
func (ts *testServer) register(phone, email string) string {
	ts.t.Helper()
	rr := ts.do(http.MethodPost, "/api/register", "", map[string]string{
		"phone": phone, "email": email, "name": "Test", "password": "secret1",
	})
	if rr.Code != http.StatusCreated {
		ts.t.Fatalf("register status = %d: %s", rr.Code, rr.Body.String())
	}
	var session services.Session
	decodeBody(ts.t, rr, &session)
	return session.Token
}

func (ts *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	ts.t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			ts.t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	ts.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("status = %d, want %d: %s", rr.Code, want, rr.Body.String())
	}
}

func TestHealthReadyMetrics(t *testing.T) {
	ts := newTestServer(t, Options{})

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		rr := ts.do(http.MethodGet, path, "", nil)
		expectStatus(t, rr, http.StatusOK)
		if rr.Header().Get("X-Request-ID") == "" {
			t.Errorf("%s: missing X-Request-ID", path)
		}
	}

	rr := ts.do(http.MethodGet, "/metrics", "", nil)
	if !strings.Contains(rr.Body.String(), "http_requests_total") {
		t.Errorf("metrics body = %s", rr.Body.String())
	}

	ts.repo.Close()
	expectStatus(t, ts.do(http.MethodGet, "/readyz", "", nil), http.StatusServiceUnavailable)
}

func TestAuthFlow(t *testing.T) {
	ts := newTestServer(t, Options{})
	token := ts.register("11987654321", "ana@example.com")

	rr := ts.do(http.MethodGet, "/api/verify", token, nil)
	expectStatus(t, rr, http.StatusOK)
	if !strings.Contains(rr.Body.String(), `"email":"ana@example.com"`) {
		t.Errorf("verify body = %s", rr.Body.String())
	}

	tests := []struct {
		name string
		body any
		want int
	}{
		{"login by phone", map[string]string{"phone": "11987654321", "password": "secret1"}, http.StatusOK},
		{"wrong password", map[string]string{"phone": "11987654321", "password": "nope!!"}, http.StatusUnauthorized},
		{"missing fields", map[string]string{"password": "secret1"}, http.StatusBadRequest},
		{"malformed", "{", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectStatus(t, ts.do(http.MethodPost, "/api/login", "", tt.body), tt.want)
		})
	}

	rr = ts.do(http.MethodPost, "/api/register", "", map[string]string{
		"phone": "11987654321", "email": "other@example.com", "name": "Dup", "password": "secret1",
	})
	expectStatus(t, rr, http.StatusBadRequest)

	for _, header := range []string{"", "Bearer garbage"} {
		req := httptest.NewRequest(http.MethodGet, "/api/transactions", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rr := httptest.NewRecorder()
		ts.srv.Handler.ServeHTTP(rr, req)
		expectStatus(t, rr, http.StatusUnauthorized)
	}
}

func TestAdminStats(t *testing.T) {
	ts := newTestServer(t, Options{})
	userToken := ts.register("11911110000", "user@example.com")

	expectStatus(t, ts.do(http.MethodGet, "/api/admin/stats", userToken, nil), http.StatusForbidden)

	if _, err := ts.authSvc.EnsureAdmin(context.Background(), "11900000001", "root@example.com", "adminpass"); err != nil {
		t.Fatalf("EnsureAdmin: %v", err)
	}
	rr := ts.do(http.MethodPost, "/api/login", "", map[string]string{"phone": "11900000001", "password": "adminpass"})
	expectStatus(t, rr, http.StatusOK)
	var session services.Session
	decodeBody(t, rr, &session)

	rr = ts.do(http.MethodGet, "/api/admin/stats", session.Token, nil)
	expectStatus(t, rr, http.StatusOK)
	var stats core.AdminStats
	decodeBody(t, rr, &stats)
	if stats.Users != 2 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestTransactionLifecycle(t *testing.T) {
	ts := newTestServer(t, Options{})
	token := ts.register("11987654321", "ana@example.com")
	other := ts.register("11912345678", "bia@example.com")

	rr := ts.do(http.MethodPost, "/api/transactions", token, map[string]any{
		"type": "expense", "amount": "1500.00", "name": "Aluguel", "category": "Moradia", "date": "2024-03-05",
	})
	expectStatus(t, rr, http.StatusCreated)
	var created core.Transaction
	decodeBody(t, rr, &created)
	if created.ID == 0 || created.Amount.String() != "1500.00" || created.Date.String() != "2024-03-05" {
		t.Fatalf("created = %+v", created)
	}

	rr = ts.do(http.MethodPost, "/api/transactions", token, map[string]any{
		"type": "expense", "amount": 45.5, "name": "Farmácia", "date": "2024-02-10",
	})
	expectStatus(t, rr, http.StatusCreated)

	var list []core.Transaction
	decodeBody(t, ts.do(http.MethodGet, "/api/transactions", token, nil), &list)
	if len(list) != 2 || list[0].ID != created.ID {
		t.Fatalf("list = %+v", list)
	}

	decodeBody(t, ts.do(http.MethodGet, "/api/transactions/2024/2", token, nil), &list)
	if len(list) != 1 || list[0].Name != "Farmácia" {
		t.Fatalf("month list = %+v", list)
	}
	decodeBody(t, ts.do(http.MethodGet, "/api/transactions?year=2024&month=3", token, nil), &list)
	if len(list) != 1 || list[0].ID != created.ID {
		t.Fatalf("query month list = %+v", list)
	}
	expectStatus(t, ts.do(http.MethodGet, "/api/transactions/2024/13", token, nil), http.StatusBadRequest)
	expectStatus(t, ts.do(http.MethodGet, "/api/transactions?year=2024", token, nil), http.StatusBadRequest)

	decodeBody(t, ts.do(http.MethodGet, "/api/transactions", other, nil), &list)
	if len(list) != 0 {
		t.Fatalf("other user sees %d rows", len(list))
	}

	path := "/api/transactions/" + itoa(created.ID)
	rr = ts.do(http.MethodPut, path, token, map[string]any{"amount": "1550", "notes": "reajuste"})
	expectStatus(t, rr, http.StatusOK)
	var updated core.Transaction
	decodeBody(t, rr, &updated)
	if updated.Amount.String() != "1550.00" || updated.Name != "Aluguel" || updated.Notes != "reajuste" {
		t.Fatalf("updated = %+v", updated)
	}

	expectStatus(t, ts.do(http.MethodPut, path, token, map[string]any{"amount": "1", "bogus": 1}), http.StatusBadRequest)
	expectStatus(t, ts.do(http.MethodPut, path, token, map[string]any{"type": "transfer"}), http.StatusBadRequest)
	expectStatus(t, ts.do(http.MethodPut, path, other, map[string]any{"name": "x"}), http.StatusNotFound)
	expectStatus(t, ts.do(http.MethodDelete, path, other, nil), http.StatusNotFound)
	expectStatus(t, ts.do(http.MethodDelete, "/api/transactions/abc", token, nil), http.StatusBadRequest)

	rr = ts.do(http.MethodDelete, path, token, nil)
	expectStatus(t, rr, http.StatusOK)
	if !strings.Contains(rr.Body.String(), `"message"`) {
		t.Errorf("delete body = %s", rr.Body.String())
	}
	expectStatus(t, ts.do(http.MethodDelete, path, token, nil), http.StatusNotFound)
}

func TestCreateTransactionValidation(t *testing.T) {
	ts := newTestServer(t, Options{})
	token := ts.register("11987654321", "ana@example.com")

	tests := []struct {
		name string
		body any
	}{
		{"bad type", map[string]any{"type": "gift", "amount": "1", "name": "x", "date": "2024-01-01"}},
		{"bad amount", map[string]any{"type": "income", "amount": "abc", "name": "x", "date": "2024-01-01"}},
		{"bad date", map[string]any{"type": "income", "amount": "1", "name": "x", "date": "2024-02-30"}},
		{"no name", map[string]any{"type": "income", "amount": "1", "date": "2024-01-01"}},
		{"empty body", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.do(http.MethodPost, "/api/transactions", token, tt.body)
			expectStatus(t, rr, http.StatusBadRequest)
			var body map[string]string
			decodeBody(t, rr, &body)
			if body["error"] == "" {
				t.Errorf("body = %s", rr.Body.String())
			}
		})
	}
}

func TestNotifications(t *testing.T) {
	ts := newTestServer(t, Options{})
	token := ts.register("11987654321", "ana@example.com")
	other := ts.register("11912345678", "bia@example.com")

	var rent core.Transaction
	decodeBody(t, ts.do(http.MethodPost, "/api/transactions", token, map[string]any{
		"type": "expense", "amount": "1500.00", "name": "Aluguel", "date": "2024-03-05",
	}), &rent)
	var luz core.Transaction
	decodeBody(t, ts.do(http.MethodPost, "/api/transactions", token, map[string]any{
		"type": "expense", "amount": "95", "name": "Luz", "date": "2024-02-26",
	}), &luz)

	expectStatus(t, ts.do(http.MethodPost, "/api/notifications/read", token, map[string]any{"transaction_id": luz.ID}), http.StatusOK)
	expectStatus(t, ts.do(http.MethodPost, "/api/notifications/read", token, map[string]any{"transaction_id": itoa(luz.ID)}), http.StatusOK)
	expectStatus(t, ts.do(http.MethodPost, "/api/notifications/read", other, map[string]any{"transaction_id": luz.ID}), http.StatusNotFound)
	expectStatus(t, ts.do(http.MethodPost, "/api/notifications/read", token, map[string]any{}), http.StatusBadRequest)

	var reminders []core.Reminder
	decodeBody(t, ts.do(http.MethodGet, "/api/notifications", token, nil), &reminders)
	if len(reminders) != 2 {
		t.Fatalf("reminders = %+v", reminders)
	}

	for i, want := range []float64{1, 0} {
		rr := ts.do(http.MethodPost, "/api/notifications/read-all", token, nil)
		expectStatus(t, rr, http.StatusOK)
		var body map[string]any
		decodeBody(t, rr, &body)
		if body["count"] != want || body["message"] == "" {
			t.Errorf("read-all #%d body = %v", i+1, body)
		}
	}
}

func TestSettingsEndpoints(t *testing.T) {
	ts := newTestServer(t, Options{})
	token := ts.register("11987654321", "ana@example.com")

	var settings core.Settings
	decodeBody(t, ts.do(http.MethodGet, "/api/settings", token, nil), &settings)
	if settings.SavingsRate.String() != "0.3" {
		t.Fatalf("settings = %+v", settings)
	}

	rr := ts.do(http.MethodPut, "/api/settings", token, map[string]any{"monthly_budget": "4600", "savings_rate": "0.25"})
	expectStatus(t, rr, http.StatusOK)
	decodeBody(t, rr, &settings)
	if settings.MonthlyBudget.String() != "4600.00" || settings.SavingsRate.String() != "0.25" {
		t.Fatalf("updated = %+v", settings)
	}

	expectStatus(t, ts.do(http.MethodPut, "/api/settings", token, map[string]any{"savings_rate": "2"}), http.StatusBadRequest)
	expectStatus(t, ts.do(http.MethodPut, "/api/settings", token, map[string]any{"theme": "dark"}), http.StatusBadRequest)
}

func TestCategoryEndpoints(t *testing.T) {
	ts := newTestServer(t, Options{})
	token := ts.register("11987654321", "ana@example.com")

	var categories []core.Category
	decodeBody(t, ts.do(http.MethodGet, "/api/categories/investment", token, nil), &categories)
	if len(categories) != 6 {
		t.Fatalf("investment categories = %d", len(categories))
	}
	expectStatus(t, ts.do(http.MethodGet, "/api/categories/bogus", token, nil), http.StatusBadRequest)

	rr := ts.do(http.MethodPost, "/api/categories", token, map[string]string{"name": "Pets", "type": "expense"})
	expectStatus(t, rr, http.StatusCreated)
	var pets core.Category
	decodeBody(t, rr, &pets)

	rr = ts.do(http.MethodPost, "/api/categories", token, map[string]string{"name": "Pets", "type": "expense"})
	expectStatus(t, rr, http.StatusBadRequest)
	if !strings.Contains(rr.Body.String(), "already exists") {
		t.Errorf("duplicate body = %s", rr.Body.String())
	}

	path := "/api/categories/" + itoa(pets.ID)
	expectStatus(t, ts.do(http.MethodPut, path, token, map[string]string{"icon": "paw"}), http.StatusOK)

	rr = ts.do(http.MethodDelete, path, token, nil)
	expectStatus(t, rr, http.StatusOK)
	if !strings.Contains(rr.Body.String(), `"deactivated":false`) {
		t.Errorf("delete body = %s", rr.Body.String())
	}
	expectStatus(t, ts.do(http.MethodDelete, path, token, nil), http.StatusNotFound)
}

func TestDashboardEndpoints(t *testing.T) {
	ts := newTestServer(t, Options{})
	token := ts.register("11987654321", "ana@example.com")

	ts.do(http.MethodPost, "/api/transactions", token, map[string]any{
		"type": "income", "amount": "4850", "name": "Salário", "date": "2024-02-05",
	})
	ts.do(http.MethodPost, "/api/transactions", token, map[string]any{
		"type": "expense", "amount": "120", "name": "Internet", "date": "2024-02-26",
		"category": "Moradia", "master_id": "net", "recurrence_type": "monthly",
	})

	var overview core.MonthOverview
	decodeBody(t, ts.do(http.MethodGet, "/api/dashboard/overview", token, nil), &overview)
	if overview.Year != 2024 || overview.Month != 2 || overview.Balance.String() != "4730.00" {
		t.Fatalf("overview = %+v", overview)
	}

	var days []core.CalendarDay
	decodeBody(t, ts.do(http.MethodGet, "/api/dashboard/calendar?year=2024&month=2", token, nil), &days)
	if len(days) != 1 || days[0].Day != 26 || days[0].Status != core.DueSoon {
		t.Fatalf("calendar = %+v", days)
	}

	for _, path := range []string{"/api/dashboard/categories", "/api/dashboard/recurring"} {
		expectStatus(t, ts.do(http.MethodGet, path+"?year=2024&month=2", token, nil), http.StatusOK)
	}
	expectStatus(t, ts.do(http.MethodGet, "/api/dashboard/overview?month=x", token, nil), http.StatusBadRequest)
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, Options{RateLimitPerMinute: 2})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, ts.do(http.MethodGet, "/api/verify", "", nil).Code)
	}
	if codes[0] != http.StatusUnauthorized || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v", codes)
	}

	// Health checks are outside the limiter.
	expectStatus(t, ts.do(http.MethodGet, "/healthz", "", nil), http.StatusOK)
}

func TestUnknownAPIRoute(t *testing.T) {
	ts := newTestServer(t, Options{})
	rr := ts.do(http.MethodGet, "/api/nope", "", nil)
	expectStatus(t, rr, http.StatusNotFound)
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q", ct)
	}
	var body map[string]string
	decodeBody(t, rr, &body)
	if body["error"] != "no such endpoint" {
		t.Errorf("body = %s", rr.Body.String())
	}
}

func TestMethodNotAllowed(t *testing.T) {
	ts := newTestServer(t, Options{})
	token := ts.register("11987654321", "ana@example.com")

	rr := ts.do(http.MethodDelete, "/api/settings", token, nil)
	expectStatus(t, rr, http.StatusMethodNotAllowed)
	allow := rr.Header().Get("Allow")
	if !strings.Contains(allow, "GET") || !strings.Contains(allow, "PUT") {
		t.Errorf("Allow = %q", allow)
	}
	var body map[string]string
	decodeBody(t, rr, &body)
	if body["error"] != "method not allowed" {
		t.Errorf("body = %s", rr.Body.String())
	}
}

func TestTransactionAmountBounds(t *testing.T) {
	ts := newTestServer(t, Options{})
	token := ts.register("11987654321", "ana@example.com")

	for _, body := range []string{
		`{"type":"expense","name":"x","date":"2024-03-05","amount":1e20000000}`,
		`{"type":"expense","name":"x","date":"2024-03-05","amount":"100000000"}`,
	} {
		expectStatus(t, ts.do(http.MethodPost, "/api/transactions", token, body), http.StatusBadRequest)
	}
	expectStatus(t, ts.do(http.MethodPut, "/api/settings", token, `{"savings_rate":1e20000000}`), http.StatusBadRequest)
}

func TestUpdateClearsSeriesWithNull(t *testing.T) {
	ts := newTestServer(t, Options{})
	token := ts.register("11987654321", "ana@example.com")

	var row core.Transaction
	decodeBody(t, ts.do(http.MethodPost, "/api/transactions", token, map[string]any{
		"type": "expense", "amount": "210", "name": "Sofá", "date": "2024-03-05",
		"master_id": "sofa-1", "current_installment": 2, "total_installments": 10, "due_day": 5,
	}), &row)

	rr := ts.do(http.MethodPut, "/api/transactions/"+itoa(row.ID), token,
		`{"master_id":null,"current_installment":null,"total_installments":null,"due_day":null}`)
	expectStatus(t, rr, http.StatusOK)

	var updated core.Transaction
	decodeBody(t, rr, &updated)
	if updated.MasterID != nil || updated.CurrentInstallment != nil || updated.TotalInstallments != nil || updated.DueDay != nil {
		t.Fatalf("updated = %+v", updated)
	}
}

func TestRecoverer(t *testing.T) {
	ts := newTestServer(t, Options{})
	h := ts.srv.recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(errors.New("boom"))
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/x", nil))
	expectStatus(t, rr, http.StatusInternalServerError)
	if strings.Contains(rr.Body.String(), "boom") {
		t.Error("panic detail leaked to the client")
	}
	if !strings.Contains(ts.do(http.MethodGet, "/metrics", "", nil).Body.String(), "handler_panics_total 1") {
		t.Error("panic not counted")
	}
}

func TestNewServerRejectsBadProxy(t *testing.T) {
	_, err := NewServer(":0", Services{}, Options{TrustedProxies: []string{"nope"}})
	if err == nil {
		t.Fatal("expected error for invalid trusted proxy")
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
