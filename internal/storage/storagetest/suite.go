// Package storagetest checks a storage.Repository against the behaviour
// every backend must share.
package storagetest

import (
	"context"
	"errors"
	"testing"

	"saldo/internal/core"
	"saldo/internal/storage"
)

// Run exercises repo. newRepo must return an empty repository.
func Run(t *testing.T, newRepo func(t *testing.T) storage.Repository) {
	t.Run("users", func(t *testing.T) { testUsers(t, newRepo(t)) })
	t.Run("expenses", func(t *testing.T) { testExpenses(t, newRepo(t)) })
	t.Run("owner isolation", func(t *testing.T) { testIsolation(t, newRepo(t)) })
	t.Run("salary", func(t *testing.T) { testSalary(t, newRepo(t)) })
	t.Run("monthly totals", func(t *testing.T) { testTotals(t, newRepo(t)) })
}

func input(y, m, d int, desc string, cents int64, c core.Category) core.ExpenseInput {
	return core.ExpenseInput{
		Date:        core.NewDate(y, m, d),
		Description: desc,
		Amount:      core.Money{Cents: cents},
		Status:      core.StatusPending,
		Category:    c,
	}
}

func mustUser(t *testing.T, repo storage.Repository, email string) storage.User {
	t.Helper()
	u, err := repo.CreateUser(context.Background(), storage.User{Name: "Test", Email: email, PasswordHash: "hash"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return u
}

func testUsers(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	u := mustUser(t, repo, " Ana@Example.com ")
	if u.ID == "" || u.Email != "ana@example.com" {
		t.Fatalf("unexpected user %+v", u)
	}
	if _, err := repo.CreateUser(ctx, storage.User{Email: "ANA@example.com", PasswordHash: "x"}); !errors.Is(err, storage.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	got, err := repo.UserByEmail(ctx, "ana@EXAMPLE.com")
	if err != nil || got.ID != u.ID || got.PasswordHash != "hash" {
		t.Fatalf("UserByEmail: %+v %v", got, err)
	}
	if got, err := repo.UserByID(ctx, u.ID); err != nil || got.Email != u.Email {
		t.Fatalf("UserByID: %+v %v", got, err)
	}
	if _, err := repo.UserByEmail(ctx, "nobody@example.com"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func testExpenses(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	u := mustUser(t, repo, "bia@example.com")
	mar := core.Period{Year: 2024, Month: 3}

	first, err := repo.CreateExpense(ctx, u.ID, input(2024, 3, 20, "Mercado", 50000, core.CategoryFood))
	if err != nil {
		t.Fatal(err)
	}
	second, err := repo.CreateExpense(ctx, u.ID, input(2024, 3, 2, "Uber", 30000, core.CategoryTransport))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := repo.CreateExpense(ctx, u.ID, input(2024, 2, 28, "Fevereiro", 1, core.CategoryOther)); err != nil {
		t.Fatal(err)
	}
	if first.ID == "" || first.ID == second.ID || first.Owner != u.ID {
		t.Fatalf("ids not assigned: %+v %+v", first, second)
	}

	list, err := repo.ListExpenses(ctx, u.ID, mar)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0] != first || list[1] != second {
		t.Fatalf("expected insertion order, got %+v", list)
	}

	empty, err := repo.ListExpenses(ctx, u.ID, core.Period{Year: 2020, Month: 1})
	if err != nil || empty == nil || len(empty) != 0 {
		t.Fatalf("empty period should be an empty slice: %v %v", empty, err)
	}

	in := input(2024, 4, 1, "Uber (abril)", 35000, core.CategoryTransport)
	in.Status = core.StatusPaid
	updated, err := repo.UpdateExpense(ctx, u.ID, second.ID, in)
	if err != nil {
		t.Fatal(err)
	}
	if updated.ID != second.ID || updated.Owner != u.ID || updated.Input() != in {
		t.Fatalf("unexpected update %+v", updated)
	}
	if got, err := repo.GetExpense(ctx, u.ID, second.ID); err != nil || got != updated {
		t.Fatalf("GetExpense: %+v %v", got, err)
	}
	if list, _ := repo.ListExpenses(ctx, u.ID, mar); len(list) != 1 {
		t.Fatalf("moved record still listed in its old period: %+v", list)
	}

	if err := repo.DeleteExpense(ctx, u.ID, first.ID); err != nil {
		t.Fatal(err)
	}
	if err := repo.DeleteExpense(ctx, u.ID, first.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := repo.UpdateExpense(ctx, u.ID, first.ID, in); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := repo.GetExpense(ctx, u.ID, first.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func testIsolation(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	a := mustUser(t, repo, "a@example.com")
	b := mustUser(t, repo, "b@example.com")

	e, err := repo.CreateExpense(ctx, a.ID, input(2024, 3, 1, "A", 100, core.CategoryFood))
	if err != nil {
		t.Fatal(err)
	}
	if list, _ := repo.ListExpenses(ctx, b.ID, e.Period()); len(list) != 0 {
		t.Fatalf("b sees a's records: %+v", list)
	}
	if _, err := repo.GetExpense(ctx, b.ID, e.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := repo.DeleteExpense(ctx, b.ID, e.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if totals, _ := repo.MonthlyTotals(ctx, b.ID); len(totals) != 0 {
		t.Fatalf("b sees a's totals: %+v", totals)
	}
}

func testSalary(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	u := mustUser(t, repo, "c@example.com")

	if m, err := repo.GetSalary(ctx, u.ID); err != nil || !m.IsZero() {
		t.Fatalf("unset salary should read zero: %v %v", m, err)
	}
	for _, cents := range []int64{500000, 420000} {
		m, err := repo.SetSalary(ctx, u.ID, core.Money{Cents: cents})
		if err != nil || m.Cents != cents {
			t.Fatalf("SetSalary: %v %v", m, err)
		}
		if m, _ := repo.GetSalary(ctx, u.ID); m.Cents != cents {
			t.Fatalf("GetSalary = %d, want %d", m.Cents, cents)
		}
	}
}

func testTotals(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	u := mustUser(t, repo, "d@example.com")
	for _, in := range []core.ExpenseInput{
		input(2024, 3, 1, "x", 50000, core.CategoryFood),
		input(2023, 12, 5, "y", 1000, core.CategoryOther),
		input(2024, 3, 9, "z", 30000, core.CategoryTransport),
		input(2024, 1, 9, "w", 250, core.CategoryUncategorized),
	} {
		if _, err := repo.CreateExpense(ctx, u.ID, in); err != nil {
			t.Fatal(err)
		}
	}
	totals, err := repo.MonthlyTotals(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	want := []core.MonthlyAggregate{
		{Period: core.Period{Year: 2023, Month: 12}, Total: core.Money{Cents: 1000}},
		{Period: core.Period{Year: 2024, Month: 1}, Total: core.Money{Cents: 250}},
		{Period: core.Period{Year: 2024, Month: 3}, Total: core.Money{Cents: 80000}},
	}
	if len(totals) != len(want) {
		t.Fatalf("got %+v", totals)
	}
	for i := range want {
		if totals[i] != want[i] {
			t.Errorf("totals[%d] = %+v, want %+v", i, totals[i], want[i])
		}
	}
}
