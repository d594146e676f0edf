// Package aggregate derives the figures shown for a period from the loaded
// record set and the salary. Everything here is a pure function of its
// inputs and is recomputed from scratch on every change.
package aggregate

import (
	"fmt"
	"slices"

	"saldo/internal/core"
)

// CategoryAmount represents an amount aggregated by category.
type CategoryAmount struct {
	Category core.Category
	Amount   core.Money
}

// Distribution maps every category of the closed set to the sum spent on it.
type Distribution map[core.Category]core.Money

// Summary is the set of derived figures for one period.
type Summary struct {
	Period     core.Period
	Salary     core.Money
	Total      core.Money // every record, pending or paid
	Pending    core.Money
	Paid       core.Money
	Balance    core.Money
	ByCategory Distribution
	Count      int
}

// HistoryPoint is one month of the accumulated history chart.
type HistoryPoint struct {
	Period core.Period
	Label  string
	Total  core.Money
}

// PeriodTotal sums the amount of every record regardless of status.
func PeriodTotal(records []core.Expense) core.Money {
	var total core.Money
	for _, r := range records {
		total = total.Add(r.Amount)
	}
	return total
}

// StatusTotal sums the records with the given status.
func StatusTotal(records []core.Expense, status core.Status) core.Money {
	var total core.Money
	for _, r := range records {
		if r.Status == status {
			total = total.Add(r.Amount)
		}
	}
	return total
}

// Balance is salary minus the period total. It may be negative.
func Balance(salary, total core.Money) core.Money {
	return salary.Sub(total)
}

// CategoryDistribution returns a map holding every category of the closed
// set, zero when nothing was spent on it. Categories outside the set are
// counted as Uncategorized.
func CategoryDistribution(records []core.Expense) Distribution {
	d := make(Distribution, len(core.Categories()))
	for _, c := range core.Categories() {
		d[c] = core.Money{}
	}
	for _, r := range records {
		c := r.Category.Normalize()
		d[c] = d[c].Add(r.Amount)
	}
	return d
}

// Total sums the distribution.
func (d Distribution) Total() core.Money {
	var total core.Money
	for _, m := range d {
		total = total.Add(m)
	}
	return total
}

// Entries lists the distribution in closed-set order.
func (d Distribution) Entries() []CategoryAmount {
	out := make([]CategoryAmount, 0, len(d))
	for _, c := range core.Categories() {
		out = append(out, CategoryAmount{Category: c, Amount: d[c]})
	}
	return out
}

// Summarize computes every derived figure of a period.
func Summarize(period core.Period, salary core.Money, records []core.Expense) Summary {
	total := PeriodTotal(records)
	return Summary{
		Period:     period,
		Salary:     salary,
		Total:      total,
		Pending:    StatusTotal(records, core.StatusPending),
		Paid:       StatusTotal(records, core.StatusPaid),
		Balance:    Balance(salary, total),
		ByCategory: CategoryDistribution(records),
		Count:      len(records),
	}
}

// Verify checks the internal consistency of a summary.
func Verify(s Summary) error {
	if got := s.ByCategory.Total(); got != s.Total {
		return fmt.Errorf("%w: distribution sums to %s, total is %s", core.ErrAggregationInconsistency, got, s.Total)
	}
	if got := s.Pending.Add(s.Paid); got != s.Total {
		return fmt.Errorf("%w: pending+paid is %s, total is %s", core.ErrAggregationInconsistency, got, s.Total)
	}
	if s.Balance != Balance(s.Salary, s.Total) {
		return fmt.Errorf("%w: balance %s does not match salary %s minus total %s", core.ErrAggregationInconsistency, s.Balance, s.Salary, s.Total)
	}
	return nil
}

// CompareTotals reports whether figures computed after an optimistic local
// change agree with the ones derived from an authoritative reload.
func CompareTotals(optimistic, authoritative Summary) error {
	if optimistic.Period != authoritative.Period {
		return nil
	}
	if optimistic.Total != authoritative.Total || optimistic.Count != authoritative.Count {
		return fmt.Errorf("%w: period %s local total %s (%d records), store total %s (%d records)",
			core.ErrAggregationInconsistency, optimistic.Period,
			optimistic.Total, optimistic.Count, authoritative.Total, authoritative.Count)
	}
	for _, c := range core.Categories() {
		if optimistic.ByCategory[c] != authoritative.ByCategory[c] {
			return fmt.Errorf("%w: period %s category %s local %s, store %s",
				core.ErrAggregationInconsistency, optimistic.Period, c,
				optimistic.ByCategory[c], authoritative.ByCategory[c])
		}
	}
	return nil
}

// HistorySeries shapes store aggregates into chart points, ascending by
// period. Totals are taken as given.
func HistorySeries(aggs []core.MonthlyAggregate) []HistoryPoint {
	out := make([]HistoryPoint, 0, len(aggs))
	for _, a := range aggs {
		out = append(out, HistoryPoint{Period: a.Period, Label: a.Period.Label(), Total: a.Total})
	}
	slices.SortStableFunc(out, func(a, b HistoryPoint) int {
		switch {
		case a.Period.Before(b.Period):
			return -1
		case b.Period.Before(a.Period):
			return 1
		default:
			return 0
		}
	})
	return out
}
