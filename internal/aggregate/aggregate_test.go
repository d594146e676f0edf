package aggregate

import (
	"errors"
	"math/rand/v2"
	"testing"

	"saldo/internal/core"
)

func rec(id string, cents int64, c core.Category, s core.Status) core.Expense {
	return core.Expense{
		ID:          id,
		Date:        core.NewDate(2024, 3, 10),
		Description: "expense " + id,
		Amount:      core.Money{Cents: cents},
		Status:      s,
		Category:    c,
	}
}

func money(units int64) core.Money { return core.Money{Cents: units * 100} }

func TestScenarioSalaryAndTwoRecords(t *testing.T) {
	records := []core.Expense{
		rec("a", 50000, core.CategoryFood, core.StatusPending),
		rec("b", 30000, core.CategoryTransport, core.StatusPaid),
	}
	s := Summarize(core.Period{Year: 2024, Month: 3}, money(5000), records)

	if s.Total != money(800) {
		t.Fatalf("total = %s", s.Total)
	}
	if s.Balance != money(4200) {
		t.Fatalf("balance = %s", s.Balance)
	}
	want := map[core.Category]core.Money{
		core.CategoryFood:          money(500),
		core.CategoryTransport:     money(300),
		core.CategoryServices:      {},
		core.CategoryLeisure:       {},
		core.CategoryOther:         {},
		core.CategoryUncategorized: {},
	}
	if len(s.ByCategory) != len(want) {
		t.Fatalf("distribution has %d keys", len(s.ByCategory))
	}
	for c, m := range want {
		got, ok := s.ByCategory[c]
		if !ok || got != m {
			t.Errorf("%s = %s (present=%v), want %s", c, got, ok, m)
		}
	}
	if s.Pending != money(500) || s.Paid != money(300) {
		t.Fatalf("pending=%s paid=%s", s.Pending, s.Paid)
	}
	if err := Verify(s); err != nil {
		t.Fatal(err)
	}

	// create {200, Leisure}
	records = append(records, rec("c", 20000, core.CategoryLeisure, core.StatusPending))
	s = Summarize(s.Period, s.Salary, records)
	if s.Total != money(1000) || s.Balance != money(4000) || s.ByCategory[core.CategoryLeisure] != money(200) {
		t.Fatalf("after create: total=%s balance=%s leisure=%s", s.Total, s.Balance, s.ByCategory[core.CategoryLeisure])
	}
}

func TestPeriodTotalIgnoresOrderAndStatus(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	cats := core.Categories()
	var records []core.Expense
	var want int64
	for i := range 50 {
		cents := r.Int64N(100000)
		status := core.StatusPending
		if i%2 == 0 {
			status = core.StatusPaid
		}
		records = append(records, rec(string(rune('a'+i%26)), cents, cats[r.IntN(len(cats))], status))
		want += cents
	}

	for range 10 {
		r.Shuffle(len(records), func(i, j int) { records[i], records[j] = records[j], records[i] })
		if got := PeriodTotal(records); got.Cents != want {
			t.Fatalf("total = %d, want %d", got.Cents, want)
		}
		d := CategoryDistribution(records)
		if d.Total().Cents != want {
			t.Fatalf("distribution sums to %d, want %d", d.Total().Cents, want)
		}
		if len(d) != len(cats) {
			t.Fatalf("distribution has %d keys", len(d))
		}
	}
}

func TestEmptyRecordSet(t *testing.T) {
	s := Summarize(core.Period{Year: 2024, Month: 1}, money(100), nil)
	if !s.Total.IsZero() || s.Balance != money(100) || len(s.ByCategory) != 6 {
		t.Fatalf("unexpected %+v", s)
	}
	for _, e := range s.ByCategory.Entries() {
		if !e.Amount.IsZero() {
			t.Fatalf("%s should be zero", e.Category)
		}
	}
}

func TestBalanceMayGoNegative(t *testing.T) {
	if got := Balance(money(100), money(250)); got != money(-150) {
		t.Fatalf("balance = %s", got)
	}
}

func TestUnknownCategoryCountsAsUncategorized(t *testing.T) {
	d := CategoryDistribution([]core.Expense{rec("x", 700, "rent", core.StatusPaid)})
	if d[core.CategoryUncategorized].Cents != 700 {
		t.Fatalf("unexpected %v", d)
	}
	if _, ok := d["rent"]; ok {
		t.Fatal("arbitrary category leaked into the distribution")
	}
}

func TestDeleteReducesTotalByAmount(t *testing.T) {
	records := []core.Expense{
		rec("a", 1234, core.CategoryFood, core.StatusPaid),
		rec("b", 999, core.CategoryOther, core.StatusPending),
		rec("c", 5, core.CategoryLeisure, core.StatusPending),
	}
	before := PeriodTotal(records)
	after := PeriodTotal(append(records[:1:1], records[2:]...))
	if before.Sub(after).Cents != 999 {
		t.Fatalf("delta = %d", before.Sub(after).Cents)
	}
}

func TestEditChangesTotalByDelta(t *testing.T) {
	records := []core.Expense{
		rec("a", 1000, core.CategoryFood, core.StatusPaid),
		rec("b", 2500, core.CategoryOther, core.StatusPending),
	}
	before := PeriodTotal(records)
	edited := append([]core.Expense(nil), records...)
	edited[1].Amount = core.Money{Cents: 400}
	after := PeriodTotal(edited)
	if after.Sub(before).Cents != 400-2500 {
		t.Fatalf("delta = %d", after.Sub(before).Cents)
	}
}

func TestEntriesOrder(t *testing.T) {
	entries := CategoryDistribution(nil).Entries()
	for i, c := range core.Categories() {
		if entries[i].Category != c {
			t.Fatalf("entry %d is %s, want %s", i, entries[i].Category, c)
		}
	}
}

func TestVerifyDetectsDrift(t *testing.T) {
	s := Summarize(core.Period{Year: 2024, Month: 3}, money(10), []core.Expense{rec("a", 100, core.CategoryFood, core.StatusPaid)})
	s.Total = core.Money{Cents: 90}
	if err := Verify(s); !errors.Is(err, core.ErrAggregationInconsistency) {
		t.Fatalf("expected inconsistency, got %v", err)
	}
}

func TestCompareTotals(t *testing.T) {
	p := core.Period{Year: 2024, Month: 3}
	a := Summarize(p, money(10), []core.Expense{rec("a", 100, core.CategoryFood, core.StatusPaid)})
	b := Summarize(p, money(10), []core.Expense{rec("a", 100, core.CategoryFood, core.StatusPaid)})
	if err := CompareTotals(a, b); err != nil {
		t.Fatalf("identical loads should agree: %v", err)
	}

	moved := Summarize(p, money(10), []core.Expense{rec("a", 100, core.CategoryLeisure, core.StatusPaid)})
	if err := CompareTotals(a, moved); !errors.Is(err, core.ErrAggregationInconsistency) {
		t.Fatalf("expected inconsistency, got %v", err)
	}

	more := Summarize(p, money(10), []core.Expense{rec("a", 100, core.CategoryFood, core.StatusPaid), rec("b", 1, core.CategoryFood, core.StatusPaid)})
	if err := CompareTotals(a, more); !errors.Is(err, core.ErrAggregationInconsistency) {
		t.Fatalf("expected inconsistency, got %v", err)
	}

	other := Summarize(core.Period{Year: 2024, Month: 4}, money(10), nil)
	if err := CompareTotals(a, other); err != nil {
		t.Fatalf("different periods are not compared: %v", err)
	}
}

func TestHistorySeries(t *testing.T) {
	aggs := []core.MonthlyAggregate{
		{Period: core.Period{Year: 2024, Month: 2}, Total: money(800)},
		{Period: core.Period{Year: 2023, Month: 12}, Total: money(1200)},
		{Period: core.Period{Year: 2024, Month: 1}, Total: core.Money{Cents: 12345}},
	}
	got := HistorySeries(aggs)
	wantLabels := []string{"12/2023", "1/2024", "2/2024"}
	wantTotals := []int64{120000, 12345, 80000}
	if len(got) != 3 {
		t.Fatalf("len = %d", len(got))
	}
	for i := range got {
		if got[i].Label != wantLabels[i] || got[i].Total.Cents != wantTotals[i] {
			t.Errorf("point %d = %+v", i, got[i])
		}
	}
	if aggs[0].Period.Month != 2 {
		t.Fatal("input mutated")
	}
	if len(HistorySeries(nil)) != 0 {
		t.Fatal("expected empty series")
	}
}
