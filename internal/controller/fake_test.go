package controller

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"saldo/internal/core"
)

// fakeLedger is an in-memory ledger store. Loads of a period listed in
// gates block until the gate channel is closed.
type fakeLedger struct {
	mu      sync.Mutex
	records []core.Expense
	salary  core.Money
	nextID  int

	loads     map[core.Period]int
	started   chan core.Period
	gates     map[core.Period]chan struct{}
	loadErr   error
	deleteErr error
	writeErr  error
	hideOnce  string // id skipped once by Delete, as if removed by someone else
}

func newFakeLedger(records ...core.Expense) *fakeLedger {
	return &fakeLedger{
		records: records,
		loads:   make(map[core.Period]int),
		gates:   make(map[core.Period]chan struct{}),
		started: make(chan core.Period, 16),
	}
}

func (f *fakeLedger) gate(p core.Period) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[p] = ch
	return ch
}

func (f *fakeLedger) loadCount(p core.Period) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loads[p]
}

func (f *fakeLedger) LoadPeriod(ctx context.Context, p core.Period) ([]core.Expense, error) {
	f.mu.Lock()
	f.loads[p]++
	gate := f.gates[p]
	delete(f.gates, p)
	var out []core.Expense
	for _, r := range f.records {
		if r.Period() == p {
			out = append(out, r)
		}
	}
	err := f.loadErr
	f.mu.Unlock()

	select {
	case f.started <- p:
	default:
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (f *fakeLedger) Create(ctx context.Context, in core.ExpenseInput) (core.Expense, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	in = in.Normalized()
	if err := in.Validate(); err != nil {
		return core.Expense{}, err
	}
	f.nextID++
	e := core.Expense{ID: fmt.Sprintf("new-%d", f.nextID), Owner: "u1"}.Apply(in)
	f.records = append(f.records, e)
	return e, nil
}

func (f *fakeLedger) Update(ctx context.Context, id string, in core.ExpenseInput) (core.Expense, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	in = in.Normalized()
	if err := in.Validate(); err != nil {
		return core.Expense{}, err
	}
	for i, r := range f.records {
		if r.ID == id {
			f.records[i] = r.Apply(in)
			return f.records[i], nil
		}
	}
	return core.Expense{}, fmt.Errorf("update %s: %w", id, core.ErrNotFound)
}

func (f *fakeLedger) Delete(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return false, f.deleteErr
	}
	if f.hideOnce == id {
		f.hideOnce = ""
		f.records = slices.DeleteFunc(f.records, func(r core.Expense) bool { return r.ID == id })
		return false, fmt.Errorf("delete %s: %w", id, core.ErrNotFound)
	}
	n := len(f.records)
	f.records = slices.DeleteFunc(f.records, func(r core.Expense) bool { return r.ID == id })
	if len(f.records) == n {
		return false, fmt.Errorf("delete %s: %w", id, core.ErrNotFound)
	}
	return true, nil
}

func (f *fakeLedger) ReadSalary(ctx context.Context) (core.Money, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.salary, nil
}

func (f *fakeLedger) WriteSalary(ctx context.Context, m core.Money) (core.Money, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return core.Money{}, f.writeErr
	}
	f.salary = m
	return m, nil
}

func (f *fakeLedger) ReadHistory(ctx context.Context) ([]core.MonthlyAggregate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	totals := map[core.Period]core.Money{}
	for _, r := range f.records {
		totals[r.Period()] = totals[r.Period()].Add(r.Amount)
	}
	var out []core.MonthlyAggregate
	for p, t := range totals {
		out = append(out, core.MonthlyAggregate{Period: p, Total: t})
	}
	return out, nil
}

func (f *fakeLedger) setLoadErr(err error) {
	f.mu.Lock()
	f.loadErr = err
	f.mu.Unlock()
}

// historyTotal looks up the history point of p in a view.
func historyTotal(v View, p core.Period) (core.Money, bool) {
	for _, h := range v.History {
		if h.Period == p {
			return h.Total, true
		}
	}
	return core.Money{}, false
}
