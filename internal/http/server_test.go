package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"saldo/internal/aggregate"
	"saldo/internal/controller"
	"saldo/internal/core"
	api "saldo/internal/http"
	"saldo/internal/ledger"
	"saldo/internal/services"
	"saldo/internal/session"
	"saldo/internal/storage/memory"
	"saldo/internal/taxonomy"
	"saldo/internal/wire"
)

var mar = core.Period{Year: 2024, Month: 3}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	repo := memory.New()
	srv := api.NewServer(api.Config{Categories: taxonomy.Default(), RateLimitPerMinute: 1000},
		services.NewLedgerService(repo, nil, nil),
		services.NewAuthService(repo, time.Hour, nil, services.WithBcryptCost(bcrypt.MinCost)))
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(func() {
		ts.Close()
		_ = srv.Shutdown(context.Background())
	})
	return ts
}

func newClient(t *testing.T, ts *httptest.Server, email string) *ledger.Client {
	t.Helper()
	c := ledger.New(ledger.Config{BaseURL: ts.URL, Categories: taxonomy.Default()}, session.New())
	if err := c.Register(context.Background(), "Teste", email, "segredo1"); err != nil {
		t.Fatalf("Register(%s): %v", email, err)
	}
	return c
}

func errorBody(t *testing.T, resp *http.Response) wire.ErrorResponse {
	t.Helper()
	var body wire.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}
	if resp.Header.Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing")
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/gastos/2024/3", "/salario", "/gastos-acumulados"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		body := errorBody(t, resp)
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized || body.Error != "unauthorized" {
			t.Errorf("GET %s = %d %+v, want 401 unauthorized", path, resp.StatusCode, body)
		}
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/salario", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("unknown token status = %d, want 401", resp.StatusCode)
	}
}

func TestBadRequestsAreJSONErrors(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/login", "application/json", strings.NewReader("{"))
	if err != nil {
		t.Fatal(err)
	}
	body := errorBody(t, resp)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest || body.Error != "invalid_request" {
		t.Errorf("malformed login = %d %+v", resp.StatusCode, body)
	}

	resp, err = http.Get(ts.URL + "/nope")
	if err != nil {
		t.Fatal(err)
	}
	body = errorBody(t, resp)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound || body.Error != "not_found" {
		t.Errorf("unknown route = %d %+v", resp.StatusCode, body)
	}
}

func TestClientAgainstServer(t *testing.T) {
	ts := newTestServer(t)
	c := newClient(t, ts, "ana@example.com")
	ctx := context.Background()

	if got, err := c.WriteSalary(ctx, core.Money{Cents: 500000}); err != nil || got.Cents != 500000 {
		t.Fatalf("WriteSalary() = %v, %v", got, err)
	}
	if got, err := c.ReadSalary(ctx); err != nil || got.Cents != 500000 {
		t.Fatalf("ReadSalary() = %v, %v", got, err)
	}

	food, err := c.Create(ctx, core.ExpenseInput{
		Date: core.NewDate(2024, 3, 2), Description: "Mercado", Amount: core.Money{Cents: 50000},
		Status: core.StatusPending, Category: core.CategoryFood,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if food.ID == "" || food.Category != core.CategoryFood || food.Status != core.StatusPending {
		t.Errorf("Create() = %+v", food)
	}

	none, err := c.Create(ctx, core.ExpenseInput{
		Date: core.NewDate(2024, 3, 3), Description: "Presente", Amount: core.Money{Cents: 1999},
		Status: core.StatusPaid, Category: core.CategoryUncategorized,
	})
	if err != nil {
		t.Fatalf("Create(uncategorized) error = %v", err)
	}
	if none.Category != core.CategoryUncategorized {
		t.Errorf("uncategorized round trip = %q", none.Category)
	}

	records, err := c.LoadPeriod(ctx, mar)
	if err != nil {
		t.Fatalf("LoadPeriod() error = %v", err)
	}
	if len(records) != 2 || records[0].ID != food.ID || records[1].Amount.Cents != 1999 {
		t.Errorf("LoadPeriod() = %+v", records)
	}

	empty, err := c.LoadPeriod(ctx, core.Period{Year: 2024, Month: 4})
	if err != nil || len(empty) != 0 {
		t.Errorf("LoadPeriod(empty) = %v, %v", empty, err)
	}

	updated, err := c.Update(ctx, food.ID, core.ExpenseInput{
		Date: core.NewDate(2024, 2, 28), Description: "Mercado", Amount: core.Money{Cents: 45000},
		Status: core.StatusPaid, Category: core.CategoryFood,
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Status != core.StatusPaid || updated.Amount.Cents != 45000 {
		t.Errorf("Update() = %+v", updated)
	}

	history, err := c.ReadHistory(ctx)
	if err != nil {
		t.Fatalf("ReadHistory() error = %v", err)
	}
	if len(history) != 2 || history[0].Period.Month != 2 || history[0].Total.Cents != 45000 || history[1].Total.Cents != 1999 {
		t.Errorf("ReadHistory() = %+v", history)
	}

	deleted, err := c.Delete(ctx, none.ID)
	if err != nil || !deleted {
		t.Fatalf("Delete() = %v, %v", deleted, err)
	}
	if _, err := c.Delete(ctx, none.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("second Delete() error = %v, want not found", err)
	}
}

func TestStoreRejectsInvalidRecord(t *testing.T) {
	ts := newTestServer(t)
	newClient(t, ts, "ana@example.com")

	resp, err := http.Post(ts.URL+"/login", "application/json",
		strings.NewReader(`{"email":"ana@example.com","password":"segredo1"}`))
	if err != nil {
		t.Fatal(err)
	}
	var tok wire.TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/gastos",
		strings.NewReader(`{"value": 10, "description": "", "status": "pendente", "date": "2024-03-02T00:00:00Z"}`))
	req.Header.Set("Authorization", "Bearer "+tok.Token)
	req.Header.Set("Content-Type", "application/json")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	body := errorBody(t, resp)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest || body.Error != "invalid_request" {
		t.Errorf("empty description = %d %+v, want 400 invalid_request", resp.StatusCode, body)
	}

	req, _ = http.NewRequest(http.MethodPost, ts.URL+"/gastos",
		strings.NewReader(`{"value": -10, "description": "x", "status": "pendente", "date": "2024-03-02T00:00:00Z"}`))
	req.Header.Set("Authorization", "Bearer "+tok.Token)
	req.Header.Set("Content-Type", "application/json")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	body = errorBody(t, resp)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest || body.Error != "invalid_request" {
		t.Errorf("negative value = %d %+v, want 400 invalid_request", resp.StatusCode, body)
	}

	req, _ = http.NewRequest(http.MethodGet, ts.URL+"/gastos/2024/13", nil)
	req.Header.Set("Authorization", "Bearer "+tok.Token)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("month 13 status = %d, want 400", resp.StatusCode)
	}
}

func TestLoginFailures(t *testing.T) {
	ts := newTestServer(t)
	newClient(t, ts, "ana@example.com")
	ctx := context.Background()

	c := ledger.New(ledger.Config{BaseURL: ts.URL, Categories: taxonomy.Default()}, session.New())
	if err := c.Login(ctx, "ana@example.com", "errada"); !errors.Is(err, core.ErrAuth) {
		t.Errorf("wrong password error = %v, want auth error", err)
	}
	if err := c.Register(ctx, "Outra", "ANA@example.com", "segredo2"); !errors.Is(err, core.ErrValidation) {
		t.Errorf("duplicate register error = %v, want validation", err)
	}
	if err := c.Login(ctx, "ana@example.com", "segredo1"); err != nil {
		t.Errorf("Login() error = %v", err)
	}
}

func TestOwnersAreIsolated(t *testing.T) {
	ts := newTestServer(t)
	ana := newClient(t, ts, "ana@example.com")
	bia := newClient(t, ts, "bia@example.com")
	ctx := context.Background()

	e, err := ana.Create(ctx, core.ExpenseInput{
		Date: core.NewDate(2024, 3, 2), Description: "Mercado", Amount: core.Money{Cents: 100},
		Status: core.StatusPending, Category: core.CategoryFood,
	})
	if err != nil {
		t.Fatal(err)
	}

	if records, err := bia.LoadPeriod(ctx, mar); err != nil || len(records) != 0 {
		t.Errorf("other owner LoadPeriod() = %v, %v", records, err)
	}
	if _, err := bia.Delete(ctx, e.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("other owner Delete() error = %v, want not found", err)
	}
}

func TestControllerAgainstServer(t *testing.T) {
	ts := newTestServer(t)
	c := newClient(t, ts, "ana@example.com")
	ctx := context.Background()

	if _, err := c.WriteSalary(ctx, core.Money{Cents: 500000}); err != nil {
		t.Fatal(err)
	}
	for _, in := range []core.ExpenseInput{
		{Date: core.NewDate(2024, 3, 2), Description: "Mercado", Amount: core.Money{Cents: 50000}, Status: core.StatusPending, Category: core.CategoryFood},
		{Date: core.NewDate(2024, 3, 4), Description: "Ônibus", Amount: core.Money{Cents: 30000}, Status: core.StatusPaid, Category: core.CategoryTransport},
	} {
		if _, err := c.Create(ctx, in); err != nil {
			t.Fatal(err)
		}
	}

	ctl := controller.New(c,
		controller.WithPeriod(mar),
		controller.WithClock(func() time.Time { return time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC) }))
	if err := ctl.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	v := ctl.Snapshot()
	if v.Summary.Total.Cents != 80000 || v.Summary.Balance.Cents != 420000 {
		t.Fatalf("summary = %+v", v.Summary)
	}

	created, err := ctl.Submit(ctx, core.ExpenseInput{Description: "Cinema", Amount: core.Money{Cents: 20000}, Category: core.CategoryLeisure})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if created.Date != core.NewDate(2024, 3, 15) {
		t.Errorf("default date = %s, want 2024-03-15", created.Date)
	}

	v = ctl.Snapshot()
	if v.Summary.Total.Cents != 100000 || v.Summary.Balance.Cents != 400000 {
		t.Errorf("after create summary = %+v", v.Summary)
	}
	if v.Summary.ByCategory[core.CategoryLeisure].Cents != 20000 {
		t.Errorf("leisure = %v", v.Summary.ByCategory[core.CategoryLeisure])
	}

	if err := ctl.RequestDelete(created.ID); err != nil {
		t.Fatal(err)
	}
	if err := ctl.ConfirmDelete(ctx); err != nil {
		t.Fatalf("ConfirmDelete() error = %v", err)
	}
	if got := ctl.Visible(aggregate.Filter{}); len(got) != 2 {
		t.Errorf("after delete %d records visible, want 2", len(got))
	}

	if err := ctl.Reload(ctx); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if v := ctl.Snapshot(); v.Drift != nil {
		t.Errorf("unexpected drift after delete: %v", v.Drift)
	}
}
