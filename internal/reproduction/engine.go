package reproduction

import (
	"fmt"
	"math/rand"

	"genosim/internal/genome"
	"genosim/internal/population"
)

// Engine synthesizes offspring genomes chromosome by chromosome. All stochastic choice
// lives inside each chromosome's transmission rule.
type Engine struct {
	builder *population.Builder
}

func NewEngine(builder *population.Builder) (*Engine, error) {
	if builder == nil {
		return nil, fmt.Errorf("builder is required")
	}
	return &Engine{builder: builder}, nil
}

func (e *Engine) Rand() *rand.Rand {
	return e.builder.Rand
}

// Offspring creates one child of the two parents born at cycle. Parents are expected to
// share a species; the child takes parents[0]'s.
func (e *Engine) Offspring(parents [2]*population.Individual, cycle int) (*population.Individual, error) {
	for i, p := range parents {
		if p == nil {
			return nil, fmt.Errorf("parent %d is nil", i)
		}
	}
	species := parents[0].Species
	if species == nil || species.Layout == nil {
		return nil, fmt.Errorf("parent %d has no species layout", parents[0].ID)
	}
	layout := species.Layout

	child := e.builder.GenerateBasicIndividual(species, cycle)
	if layout.HasSexLinked() {
		e.builder.AssignRandomSex(child)
	}
	child.Genome = make([]byte, layout.Size())

	carriers := [2]genome.Carrier{parents[0].Carrier(), parents[1].Carrier()}
	for _, entry := range layout.Entries() {
		start, _ := layout.MarkerStart(entry.Name)
		if err := entry.Chromosome.Reproduce(e.builder.Rand, child.Carrier(), carriers, start); err != nil {
			return nil, fmt.Errorf("reproduce chromosome %s: %w", entry.Name, err)
		}
	}
	return child, nil
}
