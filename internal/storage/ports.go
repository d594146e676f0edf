// Package storage persists the ledger store's users, expenses and salaries.
package storage

import (
	"context"
	"fmt"

	"saldo/internal/core"
)

var ErrEmailTaken = fmt.Errorf("%w: email already registered", core.ErrValidation)

// User is an account of the ledger store.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
}

// Ports implemented by every backend. Every expense operation is scoped to
// an owner; another owner's record reads as not found.
type (
	ExpenseStore interface {
		CreateExpense(ctx context.Context, owner string, in core.ExpenseInput) (core.Expense, error)
		UpdateExpense(ctx context.Context, owner, id string, in core.ExpenseInput) (core.Expense, error)
		DeleteExpense(ctx context.Context, owner, id string) error
		GetExpense(ctx context.Context, owner, id string) (core.Expense, error)
		// ListExpenses returns the records of period in insertion order.
		ListExpenses(ctx context.Context, owner string, period core.Period) ([]core.Expense, error)
	}

	SalaryStore interface {
		// GetSalary returns zero when no salary was ever set.
		GetSalary(ctx context.Context, owner string) (core.Money, error)
		SetSalary(ctx context.Context, owner string, amount core.Money) (core.Money, error)
	}

	HistoryReader interface {
		// MonthlyTotals sums every record per period, ascending.
		MonthlyTotals(ctx context.Context, owner string) ([]core.MonthlyAggregate, error)
	}

	UserStore interface {
		CreateUser(ctx context.Context, u User) (User, error)
		UserByEmail(ctx context.Context, email string) (User, error)
		UserByID(ctx context.Context, id string) (User, error)
	}

	// Repository is a complete backend.
	Repository interface {
		ExpenseStore
		SalaryStore
		HistoryReader
		UserStore
		Close() error
	}
)
