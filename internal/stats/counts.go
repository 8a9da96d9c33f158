package stats

import (
	"context"
	"fmt"

	"genosim/internal/genome"
	"genosim/internal/population"
	"genosim/internal/sim"
)

// AlleleCounts maps chromosome name to one allele frequency table per locus.
type AlleleCounts map[string][]map[uint8]int

// Reducer turns raw allele counts into the value stored in Globals.
type Reducer func(counts AlleleCounts) any

func IdentityReducer(counts AlleleCounts) any {
	return counts
}

// GenomeCount tallies allele occurrences per locus across every individual. Every copy an
// individual really carries is counted once: both copies of an autosome or a female X, one
// copy of a male's X or Y, of a mitochondrion, or of a haploid chromosome, and none of a
// female's Y.
type GenomeCount struct {
	Label  string
	Reduce Reducer
}

func (g GenomeCount) Name() string {
	if g.Label == "" {
		return "genome_count"
	}
	return g.Label
}

func (g GenomeCount) Compute(_ context.Context, state *sim.State) (any, error) {
	counts, err := CountAlleles(state.Individuals)
	if err != nil {
		return nil, err
	}
	reduce := g.Reduce
	if reduce == nil {
		reduce = IdentityReducer
	}
	return reduce(counts), nil
}

// CountAlleles scans individuals against the layout of the first one's species.
func CountAlleles(individuals []*population.Individual) (AlleleCounts, error) {
	counts := AlleleCounts{}
	layout := layoutOf(individuals)
	if layout == nil {
		return counts, nil
	}
	for _, entry := range layout.Entries() {
		counts[entry.Name] = newTables(entry.Chromosome.Loci())
	}
	for _, ind := range individuals {
		if len(ind.Genome) != layout.Size() {
			return nil, fmt.Errorf("individual %d genome length %d, layout size %d", ind.ID, len(ind.Genome), layout.Size())
		}
		eachLocus(layout, ind.Genome, ind.Sex, func(name string, locus int, first, second byte, copies int) {
			tables := counts[name]
			tables[locus][first]++
			if copies == 2 {
				tables[locus][second]++
			}
		})
	}
	return counts, nil
}

func newTables(loci int) []map[uint8]int {
	tables := make([]map[uint8]int, loci)
	for i := range tables {
		tables[i] = map[uint8]int{}
	}
	return tables
}

// eachLocus calls fn once per locus that an individual of the given sex carries, with the
// number of copies it carries (1 or 2). second equals first for single-copy loci.
func eachLocus(layout *genome.Layout, buf []byte, sex genome.Sex, fn func(name string, locus int, first, second byte, copies int)) {
	for _, entry := range layout.Entries() {
		copies := entry.Chromosome.Copies(sex)
		if copies == 0 {
			continue
		}
		start, _ := layout.MarkerStart(entry.Name)
		loci := entry.Chromosome.Loci()
		for i := 0; i < loci; i++ {
			first := buf[start+i]
			second := first
			if copies == 2 {
				second = buf[start+loci+i]
			}
			fn(entry.Name, i, first, second, copies)
		}
	}
}

func layoutOf(individuals []*population.Individual) *genome.Layout {
	for _, ind := range individuals {
		if ind.Species != nil && ind.Species.Layout != nil {
			return ind.Species.Layout
		}
	}
	return nil
}
