package controller

import (
	"saldo/internal/aggregate"
	"saldo/internal/core"
)

// EditState is either Idle or Editing(record). The zero value is Idle.
type EditState struct {
	editing bool
	target  core.Expense
}

// Idle is the state with no record under edit.
func Idle() EditState { return EditState{} }

// Editing is the state with r under edit.
func Editing(r core.Expense) EditState { return EditState{editing: true, target: r} }

// Target returns the record under edit and whether there is one.
func (s EditState) Target() (core.Expense, bool) {
	return s.target, s.editing
}

func (s EditState) IsEditing() bool { return s.editing }

func (s EditState) String() string {
	if !s.editing {
		return "idle"
	}
	return "editing(" + s.target.ID + ")"
}

// View is a consistent copy of the controller state with every derived
// figure computed from it.
type View struct {
	Period        core.Period
	Generation    uint64
	Loaded        bool // records reflect a completed load of Period
	Salary        core.Money
	Records       []core.Expense
	Summary       aggregate.Summary
	History       []aggregate.HistoryPoint
	Edit          EditState
	PendingDelete string // empty when the gate is closed
	Drift         error  // last ErrAggregationInconsistency seen, if any
}
