package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"saldo/internal/core"
	"saldo/internal/log"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db     *sql.DB
	logger *log.Logger
}

var _ Repository = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	if logger == nil {
		logger = log.Discard()
	}
	return &SQLiteRepository{db: db, logger: logger.WithComponent(log.ComponentStorage)}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const expenseColumns = `id, owner_id, day, description, amount_cents, status, category`

func scanExpense(row interface{ Scan(...any) error }) (core.Expense, error) {
	var (
		e      core.Expense
		day    string
		status string
		cat    string
	)
	if err := row.Scan(&e.ID, &e.Owner, &day, &e.Description, &e.Amount.Cents, &status, &cat); err != nil {
		return core.Expense{}, err
	}
	d, err := core.ParseDate(day)
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense %s: %w", e.ID, err)
	}
	e.Date = d
	e.Status = core.Status(status)
	e.Category = core.Category(cat).Normalize()
	return e, nil
}

func (r *SQLiteRepository) CreateExpense(ctx context.Context, owner string, in core.ExpenseInput) (core.Expense, error) {
	e := core.Expense{ID: uuid.NewString(), Owner: owner}.Apply(in)
	p := e.Period()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (id, owner_id, day, year, month, description, amount_cents, status, category)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, owner, e.Date.String(), p.Year, p.Month, e.Description, e.Amount.Cents, string(e.Status), string(e.Category))
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	r.logger.DebugContext(ctx, "Expense saved to SQLite",
		log.FieldExpenseID, e.ID,
		log.FieldAmountCents, e.Amount.Cents,
		log.FieldPeriod, p.String())
	return e, nil
}

func (r *SQLiteRepository) UpdateExpense(ctx context.Context, owner, id string, in core.ExpenseInput) (core.Expense, error) {
	e := core.Expense{ID: id, Owner: owner}.Apply(in)
	p := e.Period()
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses
		    SET day = ?, year = ?, month = ?, description = ?, amount_cents = ?, status = ?, category = ?,
		        updated_at = CURRENT_TIMESTAMP
		  WHERE id = ? AND owner_id = ?`,
		e.Date.String(), p.Year, p.Month, e.Description, e.Amount.Cents, string(e.Status), string(e.Category), id, owner)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Expense{}, fmt.Errorf("expense %s: %w", id, core.ErrNotFound)
	}
	return e, nil
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, owner, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ? AND owner_id = ?`, id, owner)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("expense %s: %w", id, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, owner, id string) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE id = ? AND owner_id = ?`, id, owner)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, fmt.Errorf("expense %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

func (r *SQLiteRepository) ListExpenses(ctx context.Context, owner string, period core.Period) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses
		  WHERE owner_id = ? AND year = ? AND month = ?
		  ORDER BY rowid`, owner, period.Year, period.Month)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	out := []core.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetSalary(ctx context.Context, owner string) (core.Money, error) {
	var cents int64
	err := r.db.QueryRowContext(ctx, `SELECT amount_cents FROM salaries WHERE owner_id = ?`, owner).Scan(&cents)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Money{}, nil
	}
	if err != nil {
		return core.Money{}, fmt.Errorf("get salary: %w", err)
	}
	return core.Money{Cents: cents}, nil
}

func (r *SQLiteRepository) SetSalary(ctx context.Context, owner string, amount core.Money) (core.Money, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO salaries (owner_id, amount_cents) VALUES (?, ?)
		 ON CONFLICT (owner_id) DO UPDATE SET amount_cents = excluded.amount_cents, updated_at = CURRENT_TIMESTAMP`,
		owner, amount.Cents)
	if err != nil {
		return core.Money{}, fmt.Errorf("set salary: %w", err)
	}
	return amount, nil
}

func (r *SQLiteRepository) MonthlyTotals(ctx context.Context, owner string) ([]core.MonthlyAggregate, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT year, month, SUM(amount_cents) FROM expenses
		  WHERE owner_id = ?
		  GROUP BY year, month
		  ORDER BY year, month`, owner)
	if err != nil {
		return nil, fmt.Errorf("monthly totals: %w", err)
	}
	defer rows.Close()

	out := []core.MonthlyAggregate{}
	for rows.Next() {
		var a core.MonthlyAggregate
		if err := rows.Scan(&a.Period.Year, &a.Period.Month, &a.Total.Cents); err != nil {
			return nil, fmt.Errorf("scan monthly total: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateUser(ctx context.Context, u User) (User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Email = NormalizeEmail(u.Email)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, password_hash) VALUES (?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, u.PasswordHash)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return User{}, ErrEmailTaken
		}
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (r *SQLiteRepository) UserByEmail(ctx context.Context, email string) (User, error) {
	return r.user(ctx, `SELECT id, name, email, password_hash FROM users WHERE email = ?`, NormalizeEmail(email))
}

func (r *SQLiteRepository) UserByID(ctx context.Context, id string) (User, error) {
	return r.user(ctx, `SELECT id, name, email, password_hash FROM users WHERE id = ?`, id)
}

func (r *SQLiteRepository) user(ctx context.Context, query string, arg string) (User, error) {
	var u User
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, fmt.Errorf("user: %w", core.ErrNotFound)
	}
	if err != nil {
		return User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// NormalizeEmail is the canonical form emails are stored and looked up in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
