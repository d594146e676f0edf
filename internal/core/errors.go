package core

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the ledger client, the controller and the store.
// Every more specific error in this module wraps exactly one of these, so
// callers only ever need errors.Is against this list.
var (
	ErrValidation               = errors.New("validation error")
	ErrNotFound                 = errors.New("not found")
	ErrNetwork                  = errors.New("network error")
	ErrAuth                     = errors.New("authentication error")
	ErrAggregationInconsistency = errors.New("aggregation inconsistency")
)

var (
	ErrInvalidAmount    = fmt.Errorf("%w: invalid amount", ErrValidation)
	ErrMissingAmount    = fmt.Errorf("%w: amount is required", ErrValidation)
	ErrEmptyDescription = fmt.Errorf("%w: empty description", ErrValidation)
	ErrLongDescription  = fmt.Errorf("%w: description too long (max %d characters)", ErrValidation, MaxDescriptionLen)
	ErrInvalidStatus    = fmt.Errorf("%w: invalid status", ErrValidation)
	ErrInvalidCategory  = fmt.Errorf("%w: invalid category", ErrValidation)
	ErrInvalidDate      = fmt.Errorf("%w: invalid date", ErrValidation)
	ErrInvalidPeriod    = fmt.Errorf("%w: invalid period", ErrValidation)
	ErrMissingExpenseID = fmt.Errorf("%w: expense id is required", ErrValidation)
)
