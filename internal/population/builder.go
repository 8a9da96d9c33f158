package population

import (
	"fmt"
	"math/rand"

	"genosim/internal/genome"
)

// AlleleChooser picks the initial allele of a locus from its possible values.
type AlleleChooser func(possible []uint8) uint8

// RandomAllele picks uniformly among the possible values.
func RandomAllele(rng *rand.Rand) AlleleChooser {
	return func(possible []uint8) uint8 {
		return possible[rng.Intn(len(possible))]
	}
}

// ZeroAllele fills every locus with 0 regardless of the allowed values.
func ZeroAllele(_ []uint8) uint8 {
	return 0
}

// SequenceAllele emits 0, 1, 2, ... wrapping at 256. Used to make genome contents
// distinguishable in tests.
type SequenceAllele struct {
	next uint8
}

func (s *SequenceAllele) Choose(_ []uint8) uint8 {
	v := s.next
	s.next++
	return v
}

type Builder struct {
	IDs  *IDSource
	Rand *rand.Rand
}

func NewBuilder(ids *IDSource, rng *rand.Rand) (*Builder, error) {
	if ids == nil {
		return nil, fmt.Errorf("id source is required")
	}
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}
	return &Builder{IDs: ids, Rand: rng}, nil
}

// GenerateBasicIndividual allocates a live individual with a fresh id and no genome.
func (b *Builder) GenerateBasicIndividual(species *Species, cycle int) *Individual {
	return &Individual{
		ID:        b.IDs.Next(),
		Species:   species,
		Alive:     true,
		CycleBorn: cycle,
	}
}

// AssignRandomSex picks female or male with equal odds. An existing genome is conformed to
// the new sex.
func (b *Builder) AssignRandomSex(ind *Individual) {
	if b.Rand.Intn(2) == 0 {
		ind.Sex = genome.SexFemale
	} else {
		ind.Sex = genome.SexMale
	}
	if ind.Genome != nil && ind.Species != nil && ind.Species.Layout != nil {
		ind.Species.Layout.Conform(ind.Genome, ind.Sex)
	}
}

// CreateSimpleGenome allocates the genome buffer and writes chooser's allele for every
// locus of every chromosome, then conforms sex-linked and mitochondrial regions to the
// individual's sex.
func (b *Builder) CreateSimpleGenome(ind *Individual, chooser AlleleChooser) error {
	if ind.Species == nil || ind.Species.Layout == nil {
		return fmt.Errorf("individual %d has no species layout", ind.ID)
	}
	layout := ind.Species.Layout
	buf := make([]byte, layout.Size())
	for _, entry := range layout.Entries() {
		start, _ := layout.MarkerStart(entry.Name)
		for i, locus := range entry.Chromosome.Markers() {
			buf[start+i] = chooser(locus.PossibleValues())
		}
	}
	layout.Conform(buf, ind.Sex)
	ind.Genome = buf
	return nil
}

// Populate builds n individuals with random sex and chooser-filled genomes.
func (b *Builder) Populate(species *Species, n, cycle int, chooser AlleleChooser) ([]*Individual, error) {
	if n < 0 {
		return nil, fmt.Errorf("population size must be >= 0, got %d", n)
	}
	out := make([]*Individual, 0, n)
	for i := 0; i < n; i++ {
		ind := b.GenerateBasicIndividual(species, cycle)
		b.AssignRandomSex(ind)
		if err := b.CreateSimpleGenome(ind, chooser); err != nil {
			return nil, err
		}
		out = append(out, ind)
	}
	return out, nil
}
