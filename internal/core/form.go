package core

import (
	"fmt"
	"strings"
)

// CategoryResolver maps free-form category text onto the closed set.
type CategoryResolver interface {
	Resolve(raw string) Category
}

// ExpenseForm is the raw, unvalidated input of an expense as typed by a user.
type ExpenseForm struct {
	Description string
	Amount      string
	Status      string
	Category    string
	Date        string // YYYY-MM-DD, optional
}

// Parse validates the form and converts it into an ExpenseInput. A missing
// date is left zero for the caller to default.
func (f ExpenseForm) Parse(categories CategoryResolver) (ExpenseInput, error) {
	desc := strings.TrimSpace(f.Description)
	if desc == "" {
		return ExpenseInput{}, ErrEmptyDescription
	}
	if len(desc) > MaxDescriptionLen {
		return ExpenseInput{}, ErrLongDescription
	}

	amount, err := ParseMoney(f.Amount)
	if err != nil {
		return ExpenseInput{}, fmt.Errorf("amount %q: %w", f.Amount, err)
	}

	status, err := ParseStatus(f.Status)
	if err != nil {
		return ExpenseInput{}, err
	}

	in := ExpenseInput{
		Description: desc,
		Amount:      amount,
		Status:      status,
		Category:    categories.Resolve(f.Category),
	}

	if strings.TrimSpace(f.Date) != "" {
		d, err := ParseDate(f.Date)
		if err != nil {
			return ExpenseInput{}, err
		}
		in.Date = d
	}

	return in, nil
}
