package genome

import (
	"errors"
	"fmt"
)

var (
	ErrDistanceCount     = errors.New("distances must have one entry fewer than markers")
	ErrDistancesRequired = errors.New("linked autosome requires inter-marker distances")
	ErrUnknownKind       = errors.New("unknown chromosome kind")
)

// Kind selects how a chromosome is stored and transmitted.
type Kind int

const (
	Haploid Kind = iota
	Autosomal
	UnlinkedAutosomal
	LinkedAutosomal
	Mitochondrial
	YLinked
	XLinked
)

var kindNames = map[Kind]string{
	Haploid:           "haploid",
	Autosomal:         "autosome",
	UnlinkedAutosomal: "unlinked_autosome",
	LinkedAutosomal:   "linked_autosome",
	Mitochondrial:     "mito",
	YLinked:           "y",
	XLinked:           "x",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind resolves the config name of a kind.
func ParseKind(name string) (Kind, error) {
	for kind, kindName := range kindNames {
		if kindName == name {
			return kind, nil
		}
	}
	return Haploid, fmt.Errorf("%w: %q", ErrUnknownKind, name)
}

// IsAutosomal reports whether the kind is one of the autosome variants.
func (k Kind) IsAutosomal() bool {
	return k == Autosomal || k == UnlinkedAutosomal || k == LinkedAutosomal
}

// IsDiploid reports whether two gamete copies are stored side by side.
func (k Kind) IsDiploid() bool {
	return k != Haploid
}

// IsSexLinked reports whether transmission depends on the offspring's sex.
func (k Kind) IsSexLinked() bool {
	return k == YLinked || k == XLinked
}

// Chromosome is an ordered set of markers with a transmission kind.
type Chromosome struct {
	kind      Kind
	markers   []Marker
	distances []float64
}

// NewChromosome builds a chromosome. distances is optional; when present it holds the
// genetic distance in Morgans between consecutive markers.
func NewChromosome(kind Kind, markers []Marker, distances []float64) (*Chromosome, error) {
	if _, ok := kindNames[kind]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(kind))
	}
	if distances != nil && len(distances) != len(markers)-1 {
		return nil, fmt.Errorf("%w: markers=%d distances=%d", ErrDistanceCount, len(markers), len(distances))
	}
	if kind == LinkedAutosomal && distances == nil && len(markers) > 1 {
		return nil, ErrDistancesRequired
	}
	return &Chromosome{
		kind:      kind,
		markers:   append([]Marker(nil), markers...),
		distances: append([]float64(nil), distances...),
	}, nil
}

func (c *Chromosome) Kind() Kind {
	return c.kind
}

func (c *Chromosome) IsAutosomal() bool {
	return c.kind.IsAutosomal()
}

// Loci is the number of independent loci, regardless of ploidy.
func (c *Chromosome) Loci() int {
	return len(c.markers)
}

// Size is the number of genome bytes the chromosome occupies.
func (c *Chromosome) Size() int {
	if c.kind.IsDiploid() {
		return 2 * len(c.markers)
	}
	return len(c.markers)
}

// Markers returns one marker per genome byte. Diploid kinds repeat the base markers for
// the second copy.
func (c *Chromosome) Markers() []Marker {
	if !c.kind.IsDiploid() {
		return c.markers
	}
	out := make([]Marker, 0, 2*len(c.markers))
	out = append(out, c.markers...)
	return append(out, c.markers...)
}

func (c *Chromosome) Distances() []float64 {
	return c.distances
}
