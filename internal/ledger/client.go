// Package ledger is the typed gateway to the ledger store. It translates
// domain operations into HTTP calls and maps every failure onto the core
// error taxonomy. It neither caches nor aggregates.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"saldo/internal/core"
	"saldo/internal/log"
	"saldo/internal/session"
	"saldo/internal/taxonomy"
	"saldo/internal/wire"
)

// Config represents the configuration for the ledger client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration         // Default: 15 seconds
	Categories wire.CategoryResolver // Default: taxonomy.Default()
	Transport  http.RoundTripper     // Default: http.DefaultTransport
	Logger     *log.Logger
}

// Client talks to the ledger store on behalf of one session.
type Client struct {
	authed     *http.Client
	anon       *http.Client
	baseURL    string
	categories wire.CategoryResolver
	session    *session.Session
	logger     *log.Logger
}

// New creates a client whose authenticated calls take their bearer token
// from sess.
func New(cfg Config, sess *session.Session) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	base := cfg.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Discard()
	}
	categories := cfg.Categories
	if categories == nil {
		categories = taxonomy.Default()
	}

	return &Client{
		authed: &http.Client{
			Timeout:   timeout,
			Transport: &oauth2.Transport{Source: sess, Base: base},
		},
		anon: &http.Client{
			Timeout:   timeout,
			Transport: base,
		},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		categories: categories,
		session:    sess,
		logger:     logger.WithComponent(log.ComponentLedger),
	}
}

// LoadPeriod lists the records of period in store order. An empty period
// is not an error.
func (c *Client) LoadPeriod(ctx context.Context, period core.Period) ([]core.Expense, error) {
	if err := period.Validate(); err != nil {
		return nil, err
	}
	var recs []wire.Record
	path := fmt.Sprintf("/gastos/%d/%d", period.Year, period.Month)
	if err := c.call(ctx, c.authed, log.OpLoad, http.MethodGet, path, nil, &recs); err != nil {
		return nil, err
	}

	out := make([]core.Expense, 0, len(recs))
	for _, r := range recs {
		e, err := r.Expense(c.categories)
		if err != nil {
			return nil, fmt.Errorf("ledger %s: %w: %w", log.OpLoad, core.ErrNetwork, err)
		}
		out = append(out, e)
	}
	return out, nil
}

// Create stores a new record. Invalid input is rejected before any
// request is sent.
func (c *Client) Create(ctx context.Context, in core.ExpenseInput) (core.Expense, error) {
	in = in.Normalized()
	if err := in.Validate(); err != nil {
		return core.Expense{}, err
	}
	var rec wire.Record
	if err := c.call(ctx, c.authed, log.OpCreate, http.MethodPost, "/gastos", wire.FromInput(in), &rec); err != nil {
		return core.Expense{}, err
	}
	return c.decode(log.OpCreate, rec)
}

// Update replaces every mutable field of record id.
func (c *Client) Update(ctx context.Context, id string, in core.ExpenseInput) (core.Expense, error) {
	if strings.TrimSpace(id) == "" {
		return core.Expense{}, core.ErrMissingExpenseID
	}
	in = in.Normalized()
	if err := in.Validate(); err != nil {
		return core.Expense{}, err
	}
	var rec wire.Record
	if err := c.call(ctx, c.authed, log.OpUpdate, http.MethodPut, "/gastos/"+url.PathEscape(id), wire.FromInput(in), &rec); err != nil {
		return core.Expense{}, err
	}
	if rec.ID == "" {
		rec.ID = id
	}
	return c.decode(log.OpUpdate, rec)
}

// Delete removes record id. The flag is the store's acknowledgement; a
// record that is already gone yields core.ErrNotFound.
func (c *Client) Delete(ctx context.Context, id string) (bool, error) {
	if strings.TrimSpace(id) == "" {
		return false, core.ErrMissingExpenseID
	}
	resp := wire.DeleteResponse{Deleted: true}
	if err := c.call(ctx, c.authed, log.OpDelete, http.MethodDelete, "/gastos/"+url.PathEscape(id), nil, &resp); err != nil {
		return false, err
	}
	return resp.Deleted, nil
}

func (c *Client) ReadSalary(ctx context.Context) (core.Money, error) {
	var raw json.RawMessage
	if err := c.call(ctx, c.authed, log.OpSalary, http.MethodGet, "/salario", nil, &raw); err != nil {
		return core.Money{}, err
	}
	return c.salary(raw)
}

// WriteSalary stores amount and returns the value the store echoed.
func (c *Client) WriteSalary(ctx context.Context, amount core.Money) (core.Money, error) {
	if err := amount.Validate(); err != nil {
		return core.Money{}, err
	}
	var raw json.RawMessage
	body := wire.SalaryRequest{Value: amount.Float64()}
	if err := c.call(ctx, c.authed, log.OpSalary, http.MethodPost, "/salario", body, &raw); err != nil {
		return core.Money{}, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return amount, nil
	}
	return c.salary(raw)
}

// ReadHistory returns the store's monthly totals ascending by period.
func (c *Client) ReadHistory(ctx context.Context) ([]core.MonthlyAggregate, error) {
	var entries []wire.HistoryEntry
	if err := c.call(ctx, c.authed, log.OpHistory, http.MethodGet, "/gastos-acumulados", nil, &entries); err != nil {
		return nil, err
	}
	out := make([]core.MonthlyAggregate, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Aggregate())
	}
	slices.SortStableFunc(out, func(a, b core.MonthlyAggregate) int {
		switch {
		case a.Period.Before(b.Period):
			return -1
		case b.Period.Before(a.Period):
			return 1
		default:
			return 0
		}
	})
	return out, nil
}

// Login exchanges credentials for a bearer token and starts the session.
func (c *Client) Login(ctx context.Context, email, password string) error {
	return c.authenticate(ctx, log.OpLogin, "/login", wire.Credentials{Email: email, Password: password})
}

// Register creates an account and starts a session for it.
func (c *Client) Register(ctx context.Context, name, email, password string) error {
	return c.authenticate(ctx, log.OpRegister, "/register", wire.Credentials{Name: name, Email: email, Password: password})
}

// Logout ends the session locally. The store keeps no logout endpoint.
func (c *Client) Logout() error {
	return c.session.Logout()
}

func (c *Client) authenticate(ctx context.Context, op, path string, creds wire.Credentials) error {
	if strings.TrimSpace(creds.Email) == "" || creds.Password == "" {
		return fmt.Errorf("%w: email and password are required", core.ErrValidation)
	}
	var tok wire.TokenResponse
	if err := c.call(ctx, c.anon, op, http.MethodPost, path, creds, &tok); err != nil {
		return err
	}
	if tok.Token == "" {
		return fmt.Errorf("ledger %s: %w: empty token", op, core.ErrAuth)
	}
	return c.session.Login(tok.Token, tok.ExpiresAt)
}

func (c *Client) decode(op string, rec wire.Record) (core.Expense, error) {
	e, err := rec.Expense(c.categories)
	if err != nil {
		return core.Expense{}, fmt.Errorf("ledger %s: %w: %w", op, core.ErrNetwork, err)
	}
	return e, nil
}

func (c *Client) salary(raw json.RawMessage) (core.Money, error) {
	m, err := wire.DecodeSalary(raw)
	if err != nil {
		return core.Money{}, fmt.Errorf("ledger %s: %w: %w", log.OpSalary, core.ErrNetwork, err)
	}
	return m, nil
}

// call performs one request and decodes a 2xx JSON body into out. An
// empty body leaves out untouched.
func (c *Client) call(ctx context.Context, hc *http.Client, op, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("ledger %s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("ledger %s: failed to create request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		c.logger.DebugContext(ctx, "ledger request failed", log.FieldOperation, op, log.FieldError, err.Error())
		return transportError(op, err)
	}
	defer resp.Body.Close()

	c.logger.DebugContext(ctx, "ledger request",
		log.FieldOperation, op,
		log.FieldMethod, method,
		log.FieldPath, path,
		log.FieldStatusCode, resp.StatusCode,
		log.FieldDuration, time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseError(op, resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportError(op, err)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("ledger %s: %w: failed to decode response: %w", op, core.ErrNetwork, err)
	}
	return nil
}
