package ops

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/go-logr/logr"

	"genosim/internal/genome"
	"genosim/internal/population"
	"genosim/internal/reproduction"
	"genosim/internal/sim"
)

// AssignSex gives every individual with unassigned sex a random one.
type AssignSex struct {
	Builder *population.Builder
}

func (AssignSex) Name() string {
	return "assign_sex"
}

func (o AssignSex) Change(_ context.Context, state *sim.State) error {
	for _, ind := range state.Individuals {
		if ind.Sex == genome.SexUnknown {
			o.Builder.AssignRandomSex(ind)
		}
	}
	return nil
}

// Reproduce adds Offspring children per cycle. Parents are drawn from the individuals alive
// at the start of the cycle: a female and a male when both sexes are present, otherwise two
// distinct individuals.
type Reproduce struct {
	Engine    *reproduction.Engine
	Offspring int
}

func (Reproduce) Name() string {
	return "reproduce"
}

func (o Reproduce) Change(ctx context.Context, state *sim.State) error {
	if o.Engine == nil {
		return fmt.Errorf("reproduction engine is required")
	}
	if o.Offspring < 0 {
		return fmt.Errorf("offspring per cycle must be >= 0, got %d", o.Offspring)
	}
	var females, males, all []*population.Individual
	for _, ind := range state.Individuals {
		if !ind.Alive {
			continue
		}
		all = append(all, ind)
		switch ind.Sex {
		case genome.SexFemale:
			females = append(females, ind)
		case genome.SexMale:
			males = append(males, ind)
		}
	}
	if len(all) < 2 {
		logr.FromContextOrDiscard(ctx).V(2).Info("Too few parents, skipping reproduction", "cycle", state.Cycle, "alive", len(all))
		return nil
	}

	rng := o.Engine.Rand()
	children := make([]*population.Individual, 0, o.Offspring)
	for i := 0; i < o.Offspring; i++ {
		var parents [2]*population.Individual
		if len(females) > 0 && len(males) > 0 {
			parents = [2]*population.Individual{pick(rng, females), pick(rng, males)}
		} else {
			a, b := distinctPair(rng, len(all))
			parents = [2]*population.Individual{all[a], all[b]}
		}
		child, err := o.Engine.Offspring(parents, state.Cycle)
		if err != nil {
			return err
		}
		children = append(children, child)
	}
	state.Individuals = append(state.Individuals, children...)
	return nil
}

func pick(rng *rand.Rand, from []*population.Individual) *population.Individual {
	return from[rng.Intn(len(from))]
}

func distinctPair(rng *rand.Rand, n int) (int, int) {
	a := rng.Intn(n)
	b := rng.Intn(n - 1)
	if b >= a {
		b++
	}
	return a, b
}

// CullByAge drops individuals that are dead or older than MaxAge cycles.
type CullByAge struct {
	MaxAge int
}

func (CullByAge) Name() string {
	return "cull_by_age"
}

func (o CullByAge) Change(ctx context.Context, state *sim.State) error {
	kept := state.Individuals[:0]
	removed := 0
	for _, ind := range state.Individuals {
		if state.Cycle-ind.CycleBorn > o.MaxAge {
			ind.Alive = false
		}
		if !ind.Alive {
			removed++
			continue
		}
		kept = append(kept, ind)
	}
	clear(state.Individuals[len(kept):])
	state.Individuals = kept
	logr.FromContextOrDiscard(ctx).V(2).Info("Culled by age", "cycle", state.Cycle, "removed", removed)
	return nil
}

// CullToCapacity removes random individuals until at most Capacity remain.
type CullToCapacity struct {
	Capacity int
	Rand     *rand.Rand
}

func (CullToCapacity) Name() string {
	return "cull_to_capacity"
}

func (o CullToCapacity) Change(_ context.Context, state *sim.State) error {
	if o.Capacity < 0 {
		return fmt.Errorf("capacity must be >= 0")
	}
	excess := len(state.Individuals) - o.Capacity
	if excess <= 0 {
		return nil
	}
	o.Rand.Shuffle(len(state.Individuals), func(i, j int) {
		state.Individuals[i], state.Individuals[j] = state.Individuals[j], state.Individuals[i]
	})
	for _, ind := range state.Individuals[o.Capacity:] {
		ind.Alive = false
	}
	state.Individuals = state.Individuals[:o.Capacity]
	return nil
}
