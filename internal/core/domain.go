package core

import (
	"fmt"
	"strings"
	"time"
)

// MaxDescriptionLen bounds the description of an expense.
const MaxDescriptionLen = 200

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
)

const (
	CategoryFood          Category = "food"
	CategoryTransport     Category = "transport"
	CategoryServices      Category = "services"
	CategoryLeisure       Category = "leisure"
	CategoryOther         Category = "other"
	CategoryUncategorized Category = "uncategorized"
)

type (
	Status   string
	Category string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Period is the (year, month) window expenses are loaded under.
	Period struct {
		Year  int
		Month int // 1-12
	}

	// Expense is one persisted expense entry. ID and Owner are assigned by
	// the ledger store and never supplied by the caller.
	Expense struct {
		ID          string
		Owner       string
		Date        Date
		Description string
		Amount      Money
		Status      Status
		Category    Category
	}

	// ExpenseInput carries the mutable fields of an expense, used both for
	// creation and for a full replacement on update.
	ExpenseInput struct {
		Date        Date
		Description string
		Amount      Money
		Status      Status
		Category    Category
	}

	// MonthlyAggregate is a store-computed total for one period.
	MonthlyAggregate struct {
		Period Period
		Total  Money
	}
)

var categoryOrder = []Category{
	CategoryFood,
	CategoryTransport,
	CategoryServices,
	CategoryLeisure,
	CategoryOther,
	CategoryUncategorized,
}

var categoryLabels = map[Category]string{
	CategoryFood:          "Alimentação",
	CategoryTransport:     "Transporte",
	CategoryServices:      "Serviços",
	CategoryLeisure:       "Lazer",
	CategoryOther:         "Outros",
	CategoryUncategorized: "Sem categoria",
}

// Categories returns the closed category set, Uncategorized last.
func Categories() []Category {
	return append([]Category(nil), categoryOrder...)
}

// Valid reports whether c belongs to the closed set.
func (c Category) Valid() bool {
	_, ok := categoryLabels[c]
	return ok
}

// Label returns the display name used by the ledger store and the UI.
func (c Category) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return categoryLabels[CategoryUncategorized]
}

// Normalize collapses anything outside the closed set into Uncategorized.
func (c Category) Normalize() Category {
	if c.Valid() {
		return c
	}
	return CategoryUncategorized
}

func (s Status) Valid() bool {
	return s == StatusPending || s == StatusPaid
}

// Label returns the pt-BR label the ledger store persists.
func (s Status) Label() string {
	switch s {
	case StatusPaid:
		return "pago"
	default:
		return "pendente"
	}
}

// ParseStatus accepts the store labels as well as the English names.
// An empty string means Pending, the default of a new expense.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "pending", "pendente":
		return StatusPending, nil
	case "paid", "pago":
		return StatusPaid, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day of t as seen in t's location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a date string in YYYY-MM-DD format.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: date cannot be zero", ErrInvalidDate)
	}
	return nil
}

// Period returns the (year, month) the date belongs to.
func (d Date) Period() Period {
	return Period{Year: d.Time.Year(), Month: int(d.Time.Month())}
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(time.DateOnly)
}

// NewPeriod validates year and month.
func NewPeriod(year, month int) (Period, error) {
	p := Period{Year: year, Month: month}
	if err := p.Validate(); err != nil {
		return Period{}, err
	}
	return p, nil
}

// PeriodOf returns the period containing t.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: int(t.Month())}
}

func (p Period) Validate() error {
	if p.Month < 1 || p.Month > 12 {
		return fmt.Errorf("%w: month %d", ErrInvalidPeriod, p.Month)
	}
	if p.Year < 1 || p.Year > 9999 {
		return fmt.Errorf("%w: year %d", ErrInvalidPeriod, p.Year)
	}
	return nil
}

// Contains reports whether d falls inside p.
func (p Period) Contains(d Date) bool {
	return d.Period() == p
}

// FirstDay returns the first calendar day of the period.
func (p Period) FirstDay() Date {
	return NewDate(p.Year, p.Month, 1)
}

// Before orders periods chronologically.
func (p Period) Before(o Period) bool {
	if p.Year != o.Year {
		return p.Year < o.Year
	}
	return p.Month < o.Month
}

// String formats the period as YYYY-MM.
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// Label formats the period the way the history chart shows it, e.g. "3/2024".
func (p Period) Label() string {
	return fmt.Sprintf("%d/%d", p.Month, p.Year)
}

// Period returns the period the expense is loaded under.
func (e Expense) Period() Period {
	return e.Date.Period()
}

// Input returns the mutable fields of e.
func (e Expense) Input() ExpenseInput {
	return ExpenseInput{
		Date:        e.Date,
		Description: e.Description,
		Amount:      e.Amount,
		Status:      e.Status,
		Category:    e.Category,
	}
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return ErrMissingExpenseID
	}
	return e.Input().Validate()
}

func (in ExpenseInput) Validate() error {
	if err := in.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(in.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(in.Description) > MaxDescriptionLen {
		return ErrLongDescription
	}
	if err := in.Amount.Validate(); err != nil {
		return err
	}
	if !in.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, in.Status)
	}
	if !in.Category.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, in.Category)
	}
	return nil
}

// Normalized trims the description, defaults the status to Pending and
// collapses unknown categories into Uncategorized.
func (in ExpenseInput) Normalized() ExpenseInput {
	in.Description = strings.TrimSpace(in.Description)
	if in.Status == "" {
		in.Status = StatusPending
	}
	in.Category = in.Category.Normalize()
	return in
}

// Apply returns e with its mutable fields replaced by in. ID and Owner are
// preserved.
func (e Expense) Apply(in ExpenseInput) Expense {
	e.Date = in.Date
	e.Description = in.Description
	e.Amount = in.Amount
	e.Status = in.Status
	e.Category = in.Category
	return e
}
