package sim

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
)

// CycleStop requests the run to end once the cycle counter reaches Target.
type CycleStop struct {
	Target int
}

func (CycleStop) Name() string {
	return "cycle_stop"
}

func (o CycleStop) Change(ctx context.Context, state *State) error {
	if state.Cycle == o.Target {
		logr.FromContextOrDiscard(ctx).V(2).Info("Target cycle reached", "cycle", state.Cycle)
		state.Stop()
	}
	return nil
}

// Statistic computes a value from the state every cycle.
type Statistic interface {
	Name() string
	Compute(ctx context.Context, state *State) (any, error)
}

// StatisticsOperator stores a statistic's value in Globals under the statistic's name.
type StatisticsOperator struct {
	Statistic Statistic
}

func (o StatisticsOperator) Name() string {
	return "statistics:" + o.Statistic.Name()
}

func (o StatisticsOperator) Change(ctx context.Context, state *State) error {
	value, err := o.Statistic.Compute(ctx, state)
	if err != nil {
		return fmt.Errorf("compute %s: %w", o.Statistic.Name(), err)
	}
	state.Globals[o.Statistic.Name()] = value
	return nil
}
