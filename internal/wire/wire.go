// Package wire holds the JSON shapes spoken between the ledger client and
// the ledger store.
package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"saldo/internal/core"
)

// Record is an expense as the store serialises it. Status and category
// travel as pt-BR labels.
type Record struct {
	ID          string    `json:"_id,omitempty"`
	Value       float64   `json:"value"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Category    string    `json:"category"`
	UserID      string    `json:"userId,omitempty"`
	Date        time.Time `json:"date"`
}

// PeriodKey identifies a month in history entries.
type PeriodKey struct {
	Year  int `json:"ano"`
	Month int `json:"mes"`
}

// HistoryEntry is one row of GET /gastos-acumulados.
type HistoryEntry struct {
	ID    PeriodKey `json:"_id"`
	Total float64   `json:"total"`
}

type SalaryRequest struct {
	Value float64 `json:"value"`
}

type DeleteResponse struct {
	Deleted bool `json:"deleted"`
}

type Credentials struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
}

// ErrorResponse is the body of every non-2xx store response.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// CategoryResolver maps a wire label back to the closed set.
type CategoryResolver interface {
	Resolve(raw string) core.Category
}

// FromInput builds the request body for create and update.
func FromInput(in core.ExpenseInput) Record {
	cat := ""
	if in.Category != core.CategoryUncategorized && in.Category != "" {
		cat = in.Category.Label()
	}
	return Record{
		Value:       in.Amount.Float64(),
		Description: in.Description,
		Status:      in.Status.Label(),
		Category:    cat,
		Date:        in.Date.Time,
	}
}

// FromExpense serialises a stored expense.
func FromExpense(e core.Expense) Record {
	r := FromInput(e.Input())
	r.ID = e.ID
	r.UserID = e.Owner
	return r
}

// Input decodes the mutable fields of r.
func (r Record) Input(categories CategoryResolver) (core.ExpenseInput, error) {
	status, err := core.ParseStatus(r.Status)
	if err != nil {
		return core.ExpenseInput{}, err
	}
	var date core.Date
	if !r.Date.IsZero() {
		date = core.DateOf(r.Date.UTC())
	}
	amount := core.MoneyFromFloat(r.Value)
	if err := amount.Validate(); err != nil {
		return core.ExpenseInput{}, err
	}
	return core.ExpenseInput{
		Date:        date,
		Description: r.Description,
		Amount:      amount,
		Status:      status,
		Category:    categories.Resolve(r.Category),
	}, nil
}

// Expense decodes a stored record.
func (r Record) Expense(categories CategoryResolver) (core.Expense, error) {
	in, err := r.Input(categories)
	if err != nil {
		return core.Expense{}, fmt.Errorf("record %s: %w", r.ID, err)
	}
	return core.Expense{ID: r.ID, Owner: r.UserID}.Apply(in), nil
}

// FromAggregate serialises a monthly total.
func FromAggregate(a core.MonthlyAggregate) HistoryEntry {
	return HistoryEntry{
		ID:    PeriodKey{Year: a.Period.Year, Month: a.Period.Month},
		Total: a.Total.Float64(),
	}
}

func (h HistoryEntry) Aggregate() core.MonthlyAggregate {
	return core.MonthlyAggregate{
		Period: core.Period{Year: h.ID.Year, Month: h.ID.Month},
		Total:  core.MoneyFromFloat(h.Total),
	}
}

// DecodeSalary accepts either a bare number or {"value": n}.
func DecodeSalary(data []byte) (core.Money, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return core.Money{}, nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		return core.MoneyFromFloat(n), nil
	}
	var req SalaryRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return core.Money{}, fmt.Errorf("decode salary: %w", err)
	}
	return core.MoneyFromFloat(req.Value), nil
}
