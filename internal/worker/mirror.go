// Package worker mirrors ledger changes to the spreadsheet.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"saldo/internal/amqp"
	"saldo/internal/core"
	"saldo/internal/log"
)

// Source reads the records the mirror exports.
type Source interface {
	ListExpenses(ctx context.Context, owner string, period core.Period) ([]core.Expense, error)
	MonthlyTotals(ctx context.Context, owner string) ([]core.MonthlyAggregate, error)
}

// Exporter writes a whole period to the mirror.
type Exporter interface {
	ExportPeriod(ctx context.Context, period core.Period, records []core.Expense) error
}

// Consumer delivers change messages until ctx is done or the delivery
// channel breaks.
type Consumer interface {
	ConsumeChanges(ctx context.Context, handler func(context.Context, amqp.ChangeMessage) error) error
}

// Config holds configuration for the mirror.
type Config struct {
	// Owner restricts mirroring to one account. Empty mirrors every owner.
	Owner string

	// RetryInterval is the pause before consuming again after the
	// delivery channel broke (default: 5s).
	RetryInterval time.Duration
}

func DefaultConfig() Config {
	return Config{RetryInterval: 5 * time.Second}
}

// Mirror keeps one spreadsheet tab per period in line with the ledger.
type Mirror struct {
	source   Source
	exporter Exporter
	consumer Consumer
	config   Config
	logger   *log.Logger

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewMirror(source Source, exporter Exporter, consumer Consumer, config Config, logger *log.Logger) *Mirror {
	if config.RetryInterval <= 0 {
		config.RetryInterval = DefaultConfig().RetryInterval
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Mirror{
		source:   source,
		exporter: exporter,
		consumer: consumer,
		config:   config,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// HandleChange re-exports the period a change touched. Changes of other
// owners are skipped when the mirror is pinned to one.
func (m *Mirror) HandleChange(ctx context.Context, msg amqp.ChangeMessage) error {
	if m.config.Owner != "" && msg.Owner != m.config.Owner {
		m.logger.DebugContext(ctx, "Skipping change of another owner", log.FieldExpenseID, msg.ExpenseID)
		return nil
	}

	period := msg.Period()
	m.logger.InfoContext(ctx, "Processing change message",
		append(log.NewFields().
			WithOperation(string(msg.Op)).
			WithUser(msg.Owner).
			ToSlice(), log.FieldPeriod, period.String())...)

	return m.exportPeriod(ctx, msg.Owner, period)
}

func (m *Mirror) exportPeriod(ctx context.Context, owner string, period core.Period) error {
	records, err := m.source.ListExpenses(ctx, owner, period)
	if err != nil {
		return fmt.Errorf("list %s: %w", period, err)
	}
	if err := m.exporter.ExportPeriod(ctx, period, records); err != nil {
		return fmt.Errorf("export %s: %w", period, err)
	}
	return nil
}

// Resync exports every period the pinned owner has records in. It does
// nothing when the mirror serves every owner.
func (m *Mirror) Resync(ctx context.Context) error {
	if m.config.Owner == "" {
		return nil
	}
	totals, err := m.source.MonthlyTotals(ctx, m.config.Owner)
	if err != nil {
		return fmt.Errorf("read monthly totals: %w", err)
	}
	var errs []error
	for _, agg := range totals {
		if err := m.exportPeriod(ctx, m.config.Owner, agg.Period); err != nil {
			errs = append(errs, err)
		}
	}
	m.logger.InfoContext(ctx, "Startup resync finished", "periods", len(totals), "failed", len(errs))
	return errors.Join(errs...)
}

// Start begins consuming changes. Returns an error if already running.
func (m *Mirror) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("mirror is already running")
	}
	m.running = true
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	m.mu.Unlock()

	if err := m.Resync(ctx); err != nil {
		m.logger.WarnContext(ctx, "Startup resync incomplete", log.FieldError, err.Error())
	}

	runCtx, cancel := context.WithCancel(ctx)
	go func() {
		select {
		case <-m.stopCh:
			cancel()
		case <-runCtx.Done():
		}
	}()
	go m.run(runCtx, cancel)

	m.logger.InfoContext(ctx, "Mirror started", "owner", m.config.Owner)
	return nil
}

func (m *Mirror) run(ctx context.Context, cancel context.CancelFunc) {
	defer close(m.doneCh)
	defer cancel()

	for {
		err := m.consumer.ConsumeChanges(ctx, m.HandleChange)
		if ctx.Err() != nil {
			return
		}
		m.logger.WarnContext(ctx, "Change consumption interrupted, retrying",
			log.FieldError, fmt.Sprint(err),
			"retry_in", m.config.RetryInterval)

		select {
		case <-ctx.Done():
			return
		case <-time.After(m.config.RetryInterval):
		}
	}
}

// Stop gracefully stops the mirror and waits for the in-flight message.
func (m *Mirror) Stop(ctx context.Context) error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	close(m.stopCh)

	select {
	case <-m.doneCh:
		m.logger.InfoContext(ctx, "Mirror stopped gracefully")
	case <-ctx.Done():
		m.logger.WarnContext(ctx, "Mirror stop timed out")
		return ctx.Err()
	}

	m.mu.Lock()
	m.running = false
	m.mu.Unlock()

	return nil
}

// IsRunning returns whether the mirror is currently consuming.
func (m *Mirror) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}
