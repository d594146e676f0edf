// Package memory is a process-local storage backend used by tests and by
// the ledger store when DATA_BACKEND=memory.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"saldo/internal/core"
	"saldo/internal/storage"
)

type Store struct {
	mu       sync.Mutex
	expenses []core.Expense // insertion order
	salaries map[string]core.Money
	users    map[string]storage.User // by id
}

var _ storage.Repository = (*Store)(nil)

func New() *Store {
	return &Store{
		salaries: make(map[string]core.Money),
		users:    make(map[string]storage.User),
	}
}

func (s *Store) Close() error { return nil }

func (s *Store) CreateExpense(_ context.Context, owner string, in core.ExpenseInput) (core.Expense, error) {
	e := core.Expense{ID: uuid.NewString(), Owner: owner}.Apply(in)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expenses = append(s.expenses, e)
	return e, nil
}

func (s *Store) UpdateExpense(_ context.Context, owner, id string, in core.ExpenseInput) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(owner, id)
	if i < 0 {
		return core.Expense{}, fmt.Errorf("expense %s: %w", id, core.ErrNotFound)
	}
	s.expenses[i] = s.expenses[i].Apply(in)
	return s.expenses[i], nil
}

func (s *Store) DeleteExpense(_ context.Context, owner, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(owner, id)
	if i < 0 {
		return fmt.Errorf("expense %s: %w", id, core.ErrNotFound)
	}
	s.expenses = slices.Delete(s.expenses, i, i+1)
	return nil
}

func (s *Store) GetExpense(_ context.Context, owner, id string) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(owner, id)
	if i < 0 {
		return core.Expense{}, fmt.Errorf("expense %s: %w", id, core.ErrNotFound)
	}
	return s.expenses[i], nil
}

func (s *Store) ListExpenses(_ context.Context, owner string, period core.Period) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.Expense{}
	for _, e := range s.expenses {
		if e.Owner == owner && e.Period() == period {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) indexLocked(owner, id string) int {
	return slices.IndexFunc(s.expenses, func(e core.Expense) bool {
		return e.ID == id && e.Owner == owner
	})
}

func (s *Store) GetSalary(_ context.Context, owner string) (core.Money, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.salaries[owner], nil
}

func (s *Store) SetSalary(_ context.Context, owner string, amount core.Money) (core.Money, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.salaries[owner] = amount
	return amount, nil
}

func (s *Store) MonthlyTotals(_ context.Context, owner string) ([]core.MonthlyAggregate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	totals := make(map[core.Period]core.Money)
	for _, e := range s.expenses {
		if e.Owner == owner {
			totals[e.Period()] = totals[e.Period()].Add(e.Amount)
		}
	}
	out := make([]core.MonthlyAggregate, 0, len(totals))
	for p, t := range totals {
		out = append(out, core.MonthlyAggregate{Period: p, Total: t})
	}
	slices.SortFunc(out, func(a, b core.MonthlyAggregate) int {
		if a.Period.Before(b.Period) {
			return -1
		}
		if b.Period.Before(a.Period) {
			return 1
		}
		return 0
	})
	return out, nil
}

func (s *Store) CreateUser(_ context.Context, u storage.User) (storage.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Email = storage.NormalizeEmail(u.Email)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return storage.User{}, storage.ErrEmailTaken
		}
	}
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) UserByEmail(_ context.Context, email string) (storage.User, error) {
	email = storage.NormalizeEmail(email)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return storage.User{}, fmt.Errorf("user: %w", core.ErrNotFound)
}

func (s *Store) UserByID(_ context.Context, id string) (storage.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return storage.User{}, fmt.Errorf("user: %w", core.ErrNotFound)
	}
	return u, nil
}
