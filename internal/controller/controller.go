// Package controller holds the view state of one signed-in user: the
// selected period, its records, the salary, the history, a single edit
// target and the delete-confirmation gate. Every mutation goes through the
// ledger first; derived figures are recomputed from scratch on read.
package controller

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"saldo/internal/aggregate"
	"saldo/internal/core"
	"saldo/internal/log"
)

var (
	// ErrSuperseded marks the result of a request that a newer request
	// replaced before it completed. Its response was discarded.
	ErrSuperseded = errors.New("superseded by a newer request")

	ErrNoPendingDelete = fmt.Errorf("%w: no delete awaiting confirmation", core.ErrValidation)
)

// Ledger is the subset of the ledger client the controller drives.
type Ledger interface {
	LoadPeriod(ctx context.Context, period core.Period) ([]core.Expense, error)
	Create(ctx context.Context, in core.ExpenseInput) (core.Expense, error)
	Update(ctx context.Context, id string, in core.ExpenseInput) (core.Expense, error)
	Delete(ctx context.Context, id string) (bool, error)
	ReadSalary(ctx context.Context) (core.Money, error)
	WriteSalary(ctx context.Context, amount core.Money) (core.Money, error)
	ReadHistory(ctx context.Context) ([]core.MonthlyAggregate, error)
}

type Controller struct {
	ledger Ledger
	logger *log.Logger
	now    func() time.Time

	mu         sync.Mutex
	period     core.Period
	generation uint64
	loaded     bool
	records    []core.Expense

	salary          core.Money
	confirmedSalary core.Money
	salarySeq       uint64

	history    []core.MonthlyAggregate
	historySeq uint64

	edit          EditState
	pendingDelete string

	optimistic *aggregate.Summary
	drift      error
}

type Option func(*Controller)

func WithLogger(l *log.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithClock replaces time.Now, used for the default period and dates.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithPeriod sets the initially selected period.
func WithPeriod(p core.Period) Option {
	return func(c *Controller) { c.period = p }
}

// New creates a controller in the Idle state. Nothing is loaded until
// Start or SelectPeriod is called.
func New(ledger Ledger, opts ...Option) *Controller {
	c := &Controller{ledger: ledger, now: time.Now}
	for _, o := range opts {
		o(c)
	}
	if c.logger == nil {
		c.logger = log.Discard()
	}
	c.logger = c.logger.WithComponent(log.ComponentController)
	if c.period == (core.Period{}) {
		c.period = core.PeriodOf(c.now())
	}
	return c
}

// Start loads the salary, the selected period and the history
// concurrently.
func (c *Controller) Start(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error { return c.RefreshSalary(ctx) })
	g.Go(func() error { return c.Reload(ctx) })
	g.Go(func() error { return c.RefreshHistory(ctx) })
	return g.Wait()
}

// SelectPeriod switches to period and loads it. A load still in flight for
// any earlier selection is superseded and its response discarded.
func (c *Controller) SelectPeriod(ctx context.Context, period core.Period) error {
	if err := period.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	if period != c.period {
		c.period = period
		c.records = nil
		c.loaded = false
	}
	gen := c.nextGenerationLocked()
	c.mu.Unlock()

	return c.load(ctx, gen, period)
}

// Reload fetches the selected period again.
func (c *Controller) Reload(ctx context.Context) error {
	c.mu.Lock()
	period := c.period
	gen := c.nextGenerationLocked()
	c.mu.Unlock()

	return c.load(ctx, gen, period)
}

func (c *Controller) nextGenerationLocked() uint64 {
	c.generation++
	return c.generation
}

func (c *Controller) load(ctx context.Context, gen uint64, period core.Period) error {
	records, err := c.ledger.LoadPeriod(ctx, period)

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		c.logger.DebugContext(ctx, "discarding stale load", log.NewFields().
			WithPeriod(period.String(), gen).
			WithOperation(log.OpLoad).ToSlice()...)
		return fmt.Errorf("load %s (generation %d): %w", period, gen, ErrSuperseded)
	}
	if err != nil {
		c.logger.WarnContext(ctx, "period load failed", log.NewFields().
			WithPeriod(period.String(), gen).
			WithError(err).ToSlice()...)
		return fmt.Errorf("load %s: %w", period, err)
	}

	c.records = slices.Clone(records)
	c.loaded = true

	if c.optimistic != nil {
		opt := *c.optimistic
		c.optimistic = nil
		if opt.Period == period {
			fresh := aggregate.Summarize(period, c.salary, c.records)
			if err := aggregate.CompareTotals(opt, fresh); err != nil {
				c.drift = err
				c.logger.WarnContext(ctx, "local totals diverged from the store, using store data",
					log.NewFields().WithPeriod(period.String(), gen).
						WithErrorType(log.ErrorTypeInternal).
						WithError(err).ToSlice()...)
			}
		}
	}
	return nil
}

// RefreshSalary reads the stored salary. A ChangeSalary issued meanwhile
// takes precedence over the value read.
func (c *Controller) RefreshSalary(ctx context.Context) error {
	c.mu.Lock()
	seq := c.salarySeq
	c.mu.Unlock()

	amount, err := c.ledger.ReadSalary(ctx)
	if err != nil {
		return fmt.Errorf("read salary: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.salarySeq {
		return nil
	}
	c.salary = amount
	c.confirmedSalary = amount
	return nil
}

// ChangeSalary shows amount immediately and persists it. If the write
// fails the last confirmed value is restored, unless a newer change has
// been issued since.
func (c *Controller) ChangeSalary(ctx context.Context, amount core.Money) error {
	if err := amount.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	c.salarySeq++
	seq := c.salarySeq
	c.salary = amount
	c.mu.Unlock()

	stored, err := c.ledger.WriteSalary(ctx, amount)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		if seq == c.salarySeq {
			c.salary = c.confirmedSalary
		}
		c.logger.WarnContext(ctx, "salary write failed", log.FieldOperation, log.OpSalary, log.FieldError, err.Error())
		return fmt.Errorf("write salary: %w", err)
	}
	c.confirmedSalary = stored
	if seq == c.salarySeq {
		c.salary = stored
	}
	return nil
}

// RefreshHistory fetches the store's monthly totals. Only the newest
// refresh is applied.
func (c *Controller) RefreshHistory(ctx context.Context) error {
	c.mu.Lock()
	c.historySeq++
	seq := c.historySeq
	c.mu.Unlock()

	history, err := c.ledger.ReadHistory(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.historySeq {
		return fmt.Errorf("history refresh: %w", ErrSuperseded)
	}
	if err != nil {
		return fmt.Errorf("read history: %w", err)
	}
	c.history = slices.Clone(history)
	return nil
}

// BeginEdit moves to Editing(r), replacing any other target.
func (c *Controller) BeginEdit(r core.Expense) error {
	if r.ID == "" {
		return core.ErrMissingExpenseID
	}
	c.mu.Lock()
	c.edit = Editing(r)
	c.mu.Unlock()
	return nil
}

// CancelEdit returns to Idle.
func (c *Controller) CancelEdit() {
	c.mu.Lock()
	c.edit = Idle()
	c.mu.Unlock()
}

// Submit updates the record under edit, or creates a new one when Idle.
// On success the edit state returns to Idle and the period and history are
// refreshed; refresh failures are joined to the returned error while the
// stored record is still returned.
func (c *Controller) Submit(ctx context.Context, in core.ExpenseInput) (core.Expense, error) {
	c.mu.Lock()
	edit := c.edit
	period := c.period
	c.mu.Unlock()

	target, editing := edit.Target()
	if in.Date.IsZero() {
		in.Date = c.defaultDate(period, edit)
	}

	var (
		saved core.Expense
		err   error
	)
	if editing {
		saved, err = c.ledger.Update(ctx, target.ID, in)
	} else {
		saved, err = c.ledger.Create(ctx, in)
	}

	if err != nil {
		if editing && errors.Is(err, core.ErrNotFound) {
			c.clearEditIf(target.ID)
			return core.Expense{}, errors.Join(err, ignoreSuperseded(c.Reload(ctx)))
		}
		return core.Expense{}, err
	}

	op := log.OpCreate
	if editing {
		op = log.OpUpdate
		c.clearEditIf(target.ID)
	}
	c.logger.InfoContext(ctx, "expense saved", log.NewFields().
		WithOperation(op).
		WithExpense(saved.ID, saved.Description, saved.Amount.Cents, string(saved.Category), string(saved.Status)).
		ToSlice()...)

	return saved, c.refresh(ctx)
}

func (c *Controller) defaultDate(period core.Period, edit EditState) core.Date {
	if target, ok := edit.Target(); ok {
		return target.Date
	}
	today := core.DateOf(c.now())
	if period.Contains(today) {
		return today
	}
	return period.FirstDay()
}

func (c *Controller) clearEditIf(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if target, ok := c.edit.Target(); ok && target.ID == id {
		c.edit = Idle()
	}
}

// refresh reloads the period and the history concurrently.
func (c *Controller) refresh(ctx context.Context) error {
	var reloadErr, historyErr error
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		reloadErr = ignoreSuperseded(c.Reload(ctx))
	}()
	go func() {
		defer wg.Done()
		historyErr = ignoreSuperseded(c.RefreshHistory(ctx))
	}()
	wg.Wait()
	return errors.Join(reloadErr, historyErr)
}

// RequestDelete closes the gate on id. Nothing is sent to the store until
// ConfirmDelete.
func (c *Controller) RequestDelete(id string) error {
	if id == "" {
		return core.ErrMissingExpenseID
	}
	c.mu.Lock()
	c.pendingDelete = id
	c.mu.Unlock()
	return nil
}

// CancelDelete opens the gate without contacting the store.
func (c *Controller) CancelDelete() {
	c.mu.Lock()
	c.pendingDelete = ""
	c.mu.Unlock()
}

// ConfirmDelete deletes the record awaiting confirmation. On success it is
// removed from the local set at once and the history is refreshed. When
// the store no longer has it the period is reloaded to reconcile. Other
// failures keep the gate so the caller may confirm again.
func (c *Controller) ConfirmDelete(ctx context.Context) error {
	c.mu.Lock()
	id := c.pendingDelete
	c.mu.Unlock()
	if id == "" {
		return ErrNoPendingDelete
	}

	deleted, err := c.ledger.Delete(ctx, id)
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return err
	}

	c.mu.Lock()
	if c.pendingDelete == id {
		c.pendingDelete = ""
	}
	if target, ok := c.edit.Target(); ok && target.ID == id {
		c.edit = Idle()
	}
	if err != nil || !deleted {
		c.mu.Unlock()
		c.logger.InfoContext(ctx, "record already gone, reloading period", log.FieldExpenseID, id)
		return errors.Join(err, ignoreSuperseded(c.Reload(ctx)))
	}

	// a load issued before the delete would bring the record back
	c.nextGenerationLocked()
	c.records = slices.DeleteFunc(slices.Clone(c.records), func(r core.Expense) bool { return r.ID == id })
	if c.loaded {
		s := aggregate.Summarize(c.period, c.salary, c.records)
		c.optimistic = &s
	}
	c.mu.Unlock()

	c.logger.InfoContext(ctx, "expense deleted", log.FieldOperation, log.OpDelete, log.FieldExpenseID, id)
	return ignoreSuperseded(c.RefreshHistory(ctx))
}

// Snapshot returns a copy of the state with derived figures.
func (c *Controller) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	records := slices.Clone(c.records)
	return View{
		Period:        c.period,
		Generation:    c.generation,
		Loaded:        c.loaded,
		Salary:        c.salary,
		Records:       records,
		Summary:       aggregate.Summarize(c.period, c.salary, records),
		History:       aggregate.HistorySeries(c.history),
		Edit:          c.edit,
		PendingDelete: c.pendingDelete,
		Drift:         c.drift,
	}
}

// Visible returns the loaded records that pass f, in store order.
func (c *Controller) Visible(f aggregate.Filter) []core.Expense {
	c.mu.Lock()
	defer c.mu.Unlock()
	return f.Apply(c.records)
}

// Find returns the loaded record with the given id.
func (c *Controller) Find(id string) (core.Expense, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.records {
		if r.ID == id {
			return r, true
		}
	}
	return core.Expense{}, false
}

func ignoreSuperseded(err error) error {
	if errors.Is(err, ErrSuperseded) {
		return nil
	}
	return err
}
