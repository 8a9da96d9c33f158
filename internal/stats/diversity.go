package stats

import (
	"context"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"genosim/internal/model"
	"genosim/internal/sim"
)

// Diversity summarizes per-chromosome allelic diversity into model.CycleSummary rows.
type Diversity struct{}

func (Diversity) Name() string {
	return "diversity"
}

func (Diversity) Compute(_ context.Context, state *sim.State) (any, error) {
	return Summarize(state)
}

// Summarize computes one CycleSummary per chromosome for the current state.
func Summarize(state *sim.State) ([]model.CycleSummary, error) {
	layout := layoutOf(state.Individuals)
	if layout == nil {
		return nil, nil
	}
	counts, err := CountAlleles(state.Individuals)
	if err != nil {
		return nil, err
	}

	// Observed heterozygosity is taken over the individuals carrying two copies of a locus.
	heterozygous := map[string][]int{}
	paired := map[string][]int{}
	for _, entry := range layout.Entries() {
		heterozygous[entry.Name] = make([]int, entry.Chromosome.Loci())
		paired[entry.Name] = make([]int, entry.Chromosome.Loci())
	}
	for _, ind := range state.Individuals {
		eachLocus(layout, ind.Genome, ind.Sex, func(name string, locus int, first, second byte, copies int) {
			if copies != 2 {
				return
			}
			paired[name][locus]++
			if first != second {
				heterozygous[name][locus]++
			}
		})
	}

	summaries := make([]model.CycleSummary, 0, len(layout.Entries()))
	for _, entry := range layout.Entries() {
		tables := counts[entry.Name]
		alleles := make([]float64, len(tables))
		expected := make([]float64, len(tables))
		observed := make([]float64, len(tables))
		for i, table := range tables {
			alleles[i] = float64(len(table))
			expected[i] = expectedHeterozygosity(table)
			if n := paired[entry.Name][i]; n > 0 {
				observed[i] = float64(heterozygous[entry.Name][i]) / float64(n)
			}
		}
		summary := model.CycleSummary{
			Cycle:       state.Cycle,
			Individuals: len(state.Individuals),
			Chromosome:  entry.Name,
			Loci:        len(tables),
		}
		if len(tables) > 0 {
			summary.MeanAlleles = stat.Mean(alleles, nil)
			summary.ExpectedHeterozygosity, summary.HeterozygosityStdDev = stat.PopMeanStdDev(expected, nil)
			summary.ObservedHeterozygosity = stat.Mean(observed, nil)
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// expectedHeterozygosity is 1 - sum(p_i^2) over the allele frequencies of one locus.
func expectedHeterozygosity(table map[uint8]int) float64 {
	if len(table) == 0 {
		return 0
	}
	freqs := make([]float64, 0, len(table))
	for _, n := range table {
		freqs = append(freqs, float64(n))
	}
	total := floats.Sum(freqs)
	if total == 0 {
		return 0
	}
	homozygosity := 0.0
	for _, n := range freqs {
		p := n / total
		homozygosity += p * p
	}
	return 1 - homozygosity
}
