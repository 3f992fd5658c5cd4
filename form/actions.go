package form

import (
	"fmt"
	"strings"
)

type ActionID string

const (
	ActionNew      ActionID = "new"
	ActionDelete   ActionID = "delete"
	ActionRestore  ActionID = "restore"
	ActionFindNext ActionID = "find"
	ActionFindPrev ActionID = "prev"
	ActionClose    ActionID = "close"
)

// Action is a button of the form
type Action struct {
	ID      ActionID
	Label   string
	Enabled bool
}

// Actions are the form's buttons, in display order.
// Delete, Restore and Find Prev are shown but have no behavior.
var Actions = []Action{
	{ActionNew, "New", true},
	{ActionDelete, "Delete", false},
	{ActionRestore, "Restore", false},
	{ActionFindNext, "Find Next", true},
	{ActionFindPrev, "Find Prev", false},
	{ActionClose, "Close", true},
}

// FindAction matches s against action id or label, case-insensitive
func FindAction(s string) (Action, bool) {
	s = strings.TrimSpace(s)
	for _, a := range Actions {
		if strings.EqualFold(s, string(a.ID)) || strings.EqualFold(s, a.Label) {
			return a, true
		}
	}
	return Action{}, false
}

// Result is the outcome of Controller.Do
type Result struct {
	Values Values
	Dialog Dialog
	Err    error
}

// Do dispatches an action. v is the current state of the form and
// Result.Values is the state after the action.
func (c *Controller) Do(id ActionID, v Values) Result {
	a, ok := FindAction(string(id))
	if !ok {
		return Result{Values: v, Err: fmt.Errorf("unknown action '%s'", id)}
	}
	if !a.Enabled {
		return Result{Values: v, Err: fmt.Errorf("%s: %w", a.Label, ErrActionDisabled)}
	}
	switch a.ID {
	case ActionNew:
		d, err := c.Submit(v)
		return Result{Values: v, Dialog: d, Err: err}
	case ActionFindNext:
		v2, d, err := c.Find(v)
		return Result{Values: v2, Dialog: d, Err: err}
	case ActionClose:
		return Result{Values: v, Err: c.Close()}
	}
	panic(fmt.Sprintf("unhandled action '%s'", a.ID))
}
