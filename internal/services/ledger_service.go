package services

import (
	"context"
	"errors"
	"fmt"

	"saldo/internal/amqp"
	"saldo/internal/core"
	"saldo/internal/log"
	"saldo/internal/storage"
)

// Publisher delivers change notifications. *amqp.Client implements it.
type Publisher interface {
	PublishChange(ctx context.Context, msg amqp.ChangeMessage) error
	Close() error
}

// LedgerService validates and persists expenses for an owner and notifies
// consumers about every mutation.
type LedgerService struct {
	repo      storage.Repository
	publisher Publisher
	logger    *log.Logger
}

// NewLedgerService creates the service. publisher may be nil, in which case
// no notifications are sent.
func NewLedgerService(repo storage.Repository, publisher Publisher, logger *log.Logger) *LedgerService {
	if logger == nil {
		logger = log.Discard()
	}
	return &LedgerService{
		repo:      repo,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentStorage),
	}
}

func (s *LedgerService) List(ctx context.Context, owner string, period core.Period) ([]core.Expense, error) {
	if err := period.Validate(); err != nil {
		return nil, err
	}
	return s.repo.ListExpenses(ctx, owner, period)
}

func (s *LedgerService) Create(ctx context.Context, owner string, in core.ExpenseInput) (core.Expense, error) {
	in = in.Normalized()
	if err := in.Validate(); err != nil {
		return core.Expense{}, err
	}
	e, err := s.repo.CreateExpense(ctx, owner, in)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}
	s.logger.InfoContext(ctx, "Expense created", log.NewFields().
		WithOperation(log.OpCreate).
		WithUser(owner).
		WithExpense(e.ID, e.Description, e.Amount.Cents, string(e.Category), string(e.Status)).
		ToSlice()...)
	s.publish(ctx, owner, e.ID, amqp.OpCreated, e.Period())
	return e, nil
}

// Update replaces the mutable fields of a record. When the date moves the
// record to another period both periods are announced.
func (s *LedgerService) Update(ctx context.Context, owner, id string, in core.ExpenseInput) (core.Expense, error) {
	in = in.Normalized()
	if err := in.Validate(); err != nil {
		return core.Expense{}, err
	}
	before, err := s.repo.GetExpense(ctx, owner, id)
	if err != nil {
		return core.Expense{}, err
	}
	e, err := s.repo.UpdateExpense(ctx, owner, id, in)
	if err != nil {
		return core.Expense{}, err
	}
	s.logger.InfoContext(ctx, "Expense updated", log.NewFields().
		WithOperation(log.OpUpdate).
		WithUser(owner).
		WithExpense(e.ID, e.Description, e.Amount.Cents, string(e.Category), string(e.Status)).
		ToSlice()...)
	s.publish(ctx, owner, e.ID, amqp.OpUpdated, e.Period())
	if before.Period() != e.Period() {
		s.publish(ctx, owner, e.ID, amqp.OpUpdated, before.Period())
	}
	return e, nil
}

func (s *LedgerService) Delete(ctx context.Context, owner, id string) error {
	e, err := s.repo.GetExpense(ctx, owner, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteExpense(ctx, owner, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Expense deleted",
		log.FieldOperation, log.OpDelete,
		log.FieldUserID, owner,
		log.FieldExpenseID, id)
	s.publish(ctx, owner, id, amqp.OpDeleted, e.Period())
	return nil
}

func (s *LedgerService) Salary(ctx context.Context, owner string) (core.Money, error) {
	return s.repo.GetSalary(ctx, owner)
}

func (s *LedgerService) SetSalary(ctx context.Context, owner string, amount core.Money) (core.Money, error) {
	if err := amount.Validate(); err != nil {
		return core.Money{}, err
	}
	return s.repo.SetSalary(ctx, owner, amount)
}

func (s *LedgerService) History(ctx context.Context, owner string) ([]core.MonthlyAggregate, error) {
	return s.repo.MonthlyTotals(ctx, owner)
}

// publish never fails the request: the record is already stored.
func (s *LedgerService) publish(ctx context.Context, owner, id string, op amqp.ChangeOp, period core.Period) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishChange(ctx, amqp.NewChangeMessage(owner, id, op, period)); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish change message",
			log.FieldExpenseID, id,
			log.FieldPeriod, period.String(),
			log.FieldError, err.Error())
	}
}

// Close closes both storage and AMQP connections
func (s *LedgerService) Close() error {
	var errs []error

	if s.repo != nil {
		if err := s.repo.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %w", errors.Join(errs...))
	}
	return nil
}
