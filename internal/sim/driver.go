package sim

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-logr/logr"

	"genosim/internal/population"
)

var ErrRunFinished = errors.New("run already stopped")

// StepCycle applies every operator once, in list order, then advances the cycle counter.
// The operator list is read once up front, so an operator replacing State.Operators only
// affects later cycles. The first operator error aborts the cycle.
func StepCycle(ctx context.Context, state *State) error {
	logger := logr.FromContextOrDiscard(ctx)
	operators := append([]Operator(nil), state.Operators...)
	for _, op := range operators {
		if err := op.Change(ctx, state); err != nil {
			return fmt.Errorf("cycle %d: operator %s: %w", state.Cycle, op.Name(), err)
		}
	}
	state.Cycle++
	logger.V(1).Info("Cycle complete", "cycle", state.Cycle, "individuals", len(state.Individuals), "stopped", state.Stopped())
	return nil
}

// RunUnspecified steps cycles until an operator sets the stop flag or ctx is done.
func RunUnspecified(ctx context.Context, state *State) (*State, error) {
	for !state.Stopped() {
		if err := ctx.Err(); err != nil {
			return state, err
		}
		if err := StepCycle(ctx, state); err != nil {
			return state, err
		}
	}
	return state, nil
}

// DoNCycles runs individuals through operators until cycle n has been processed. Starting
// from cycle 0 the final counter is n+1.
func DoNCycles(ctx context.Context, n int, individuals []*population.Individual, operators []Operator) (*State, error) {
	if n < 0 {
		return nil, fmt.Errorf("cycle count must be >= 0")
	}
	ops := append(append([]Operator(nil), operators...), CycleStop{Target: n})
	return RunUnspecified(ctx, NewState(individuals, ops))
}

// Resume runs the next cycle and invokes the continuation again.
type Resume func() error

// AsyncCycles performs a single cycle and hands the state to cont together with a Resume
// for the next cycle. Resume is nil once the run has stopped. Nothing runs unless the
// caller invokes Resume.
func AsyncCycles(ctx context.Context, state *State, cont func(*State, Resume)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := StepCycle(ctx, state); err != nil {
		return err
	}
	if state.Stopped() {
		cont(state, nil)
		return nil
	}
	cont(state, func() error {
		return AsyncCycles(ctx, state, cont)
	})
	return nil
}

// Step is the handle form of AsyncCycles: the state after one cycle, resumable until the
// run stops.
type Step struct {
	State *State
}

// Start performs the first cycle of a stepwise run.
func Start(ctx context.Context, state *State) (Step, error) {
	if state.Stopped() {
		return Step{State: state}, ErrRunFinished
	}
	if err := ctx.Err(); err != nil {
		return Step{State: state}, err
	}
	if err := StepCycle(ctx, state); err != nil {
		return Step{State: state}, err
	}
	return Step{State: state}, nil
}

func (s Step) Done() bool {
	return s.State.Stopped()
}

// Resume performs one more cycle. It fails with ErrRunFinished once Done.
func (s Step) Resume(ctx context.Context) (Step, error) {
	return Start(ctx, s.State)
}
