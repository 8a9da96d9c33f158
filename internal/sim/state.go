package sim

import (
	"context"

	"genosim/internal/population"
)

// StopKey is the Globals entry that ends a run when set to true.
const StopKey = "stop"

// State is the shared, mutable state operators read and change every cycle.
type State struct {
	Globals     map[string]any
	Individuals []*population.Individual
	Operators   []Operator
	Cycle       int
}

func NewState(individuals []*population.Individual, operators []Operator) *State {
	return &State{
		Globals:     map[string]any{StopKey: false},
		Individuals: individuals,
		Operators:   operators,
	}
}

func (s *State) Stopped() bool {
	stop, _ := s.Globals[StopKey].(bool)
	return stop
}

func (s *State) Stop() {
	s.Globals[StopKey] = true
}

// Operator is one pluggable unit of per-cycle behavior. Changes to State.Operators take
// effect from the next cycle.
type Operator interface {
	Name() string
	Change(ctx context.Context, state *State) error
}

// OperatorFunc adapts a function to Operator.
type OperatorFunc struct {
	Label string
	Fn    func(ctx context.Context, state *State) error
}

func (o OperatorFunc) Name() string {
	return o.Label
}

func (o OperatorFunc) Change(ctx context.Context, state *State) error {
	return o.Fn(ctx, state)
}
