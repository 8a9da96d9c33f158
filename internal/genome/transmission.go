package genome

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

var ErrOffspringSexUnknown = errors.New("offspring sex must be assigned before sex-linked transmission")

type Sex int8

const (
	SexUnknown Sex = iota
	SexFemale
	SexMale
)

func (s Sex) String() string {
	switch s {
	case SexFemale:
		return "female"
	case SexMale:
		return "male"
	default:
		return "unknown"
	}
}

// Carrier is a genome buffer together with the sex of its owner.
type Carrier struct {
	Genome []byte
	Sex    Sex
}

// Reproduce writes the offspring's region [position, position+Size()) from the two parents'
// regions at the same position.
func (c *Chromosome) Reproduce(rng *rand.Rand, offspring Carrier, parents [2]Carrier, position int) error {
	if rng == nil {
		return fmt.Errorf("random source is required")
	}
	size := c.Size()
	if position < 0 || position+size > len(offspring.Genome) {
		return fmt.Errorf("offspring genome too short: position=%d size=%d len=%d", position, size, len(offspring.Genome))
	}
	for i, parent := range parents {
		if position+size > len(parent.Genome) {
			return fmt.Errorf("parent %d genome too short: position=%d size=%d len=%d", i, position, size, len(parent.Genome))
		}
	}

	switch c.kind {
	case Haploid:
		p := parents[rng.Intn(2)]
		copyHaploid(offspring.Genome, p.Genome, position, position, size)
	case Autosomal:
		c.reproduceAutosome(rng, offspring, parents, position, c.linkedGamete)
	case UnlinkedAutosomal:
		c.reproduceAutosome(rng, offspring, parents, position, c.unlinkedGamete)
	case LinkedAutosomal:
		c.reproduceAutosome(rng, offspring, parents, position, c.recombinantGamete)
	case Mitochondrial:
		c.reproduceMito(rng, offspring, parents, position)
	case YLinked:
		return c.reproduceY(offspring, parents, position)
	case XLinked:
		return c.reproduceX(rng, offspring, parents, position)
	default:
		return fmt.Errorf("%w: %d", ErrUnknownKind, int(c.kind))
	}
	return nil
}

// copyHaploid copies size alleles verbatim from a parent slot into the offspring.
func copyHaploid(dst, src []byte, ofsPosition, parentPosition, size int) {
	copy(dst[ofsPosition:ofsPosition+size], src[parentPosition:parentPosition+size])
}

// gameteFn writes one haploid gamete of the parent region at src into dst.
type gameteFn func(rng *rand.Rand, dst, src []byte)

func (c *Chromosome) reproduceAutosome(rng *rand.Rand, offspring Carrier, parents [2]Carrier, position int, gamete gameteFn) {
	half := len(c.markers)
	for slot, parentIdx := range rng.Perm(2) {
		src := parents[parentIdx].Genome[position : position+2*half]
		dst := offspring.Genome[position+slot*half : position+(slot+1)*half]
		gamete(rng, dst, src)
	}
}

// linkedGamete passes one whole parental copy, chosen by coin flip.
func (c *Chromosome) linkedGamete(rng *rand.Rand, dst, src []byte) {
	half := len(c.markers)
	copyHaploid(dst, src, 0, rng.Intn(2)*half, half)
}

// unlinkedGamete draws every locus independently from either parental copy.
func (c *Chromosome) unlinkedGamete(rng *rand.Rand, dst, src []byte) {
	half := len(c.markers)
	for i := 0; i < half; i++ {
		dst[i] = src[rng.Intn(2)*half+i]
	}
}

// recombinantGamete walks the loci, switching parental copy with the Haldane recombination
// fraction of each inter-marker distance.
func (c *Chromosome) recombinantGamete(rng *rand.Rand, dst, src []byte) {
	half := len(c.markers)
	strand := rng.Intn(2)
	for i := 0; i < half; i++ {
		if i > 0 && rng.Float64() < haldane(c.distances[i-1]) {
			strand = 1 - strand
		}
		dst[i] = src[strand*half+i]
	}
}

func haldane(morgans float64) float64 {
	if morgans <= 0 {
		return 0
	}
	return 0.5 * (1 - math.Exp(-2*morgans))
}

func (c *Chromosome) reproduceMito(rng *rand.Rand, offspring Carrier, parents [2]Carrier, position int) {
	half := len(c.markers)
	mother := pickParent(parents, SexFemale, 0)
	src := position + rng.Intn(2)*half
	copyHaploid(offspring.Genome, mother.Genome, position, src, half)
	copyHaploid(offspring.Genome, mother.Genome, position+half, src, half)
}

func (c *Chromosome) reproduceY(offspring Carrier, parents [2]Carrier, position int) error {
	half := len(c.markers)
	switch offspring.Sex {
	case SexMale:
		father := pickParent(parents, SexMale, 1)
		copyHaploid(offspring.Genome, father.Genome, position, position, half)
		copyHaploid(offspring.Genome, father.Genome, position+half, position, half)
	case SexFemale:
		clear(offspring.Genome[position : position+2*half])
	default:
		return ErrOffspringSexUnknown
	}
	return nil
}

func (c *Chromosome) reproduceX(rng *rand.Rand, offspring Carrier, parents [2]Carrier, position int) error {
	half := len(c.markers)
	if offspring.Sex == SexUnknown {
		return ErrOffspringSexUnknown
	}
	mother := pickParent(parents, SexFemale, 0)
	copyHaploid(offspring.Genome, mother.Genome, position, position+rng.Intn(2)*half, half)
	if offspring.Sex == SexFemale {
		father := pickParent(parents, SexMale, 1)
		copyHaploid(offspring.Genome, father.Genome, position+half, position, half)
		return nil
	}
	copyHaploid(offspring.Genome, offspring.Genome, position+half, position, half)
	return nil
}

// pickParent returns the only parent of the wanted sex, or parents[fallback] when the
// parents' sexes do not single one out.
func pickParent(parents [2]Carrier, want Sex, fallback int) Carrier {
	first := parents[0].Sex == want
	second := parents[1].Sex == want
	switch {
	case first && !second:
		return parents[0]
	case second && !first:
		return parents[1]
	default:
		return parents[fallback]
	}
}

// Copies is the number of allele copies of each locus an individual of the given sex really
// carries: 0 for a female's Y, 1 for haploid, mitochondrial, and a male's X or Y, 2 otherwise.
func (c *Chromosome) Copies(sex Sex) int {
	switch c.kind {
	case Haploid, Mitochondrial:
		return 1
	case YLinked:
		if sex == SexFemale {
			return 0
		}
		return 1
	case XLinked:
		if sex == SexMale {
			return 1
		}
		return 2
	default:
		return 2
	}
}

// Conform rewrites the region at position into the shape transmission produces for an
// individual of the given sex: an empty Y for females, and the first copy mirrored into the
// second for mitochondria and a male's X or Y.
func (c *Chromosome) Conform(buf []byte, position int, sex Sex) {
	if !c.kind.IsDiploid() {
		return
	}
	half := len(c.markers)
	region := buf[position : position+2*half]
	switch c.Copies(sex) {
	case 0:
		clear(region)
	case 1:
		copy(region[half:], region[:half])
	}
}
