package population

import (
	"sync/atomic"

	"genosim/internal/genome"
)

// Species pairs a name with the genome layout its individuals share.
type Species struct {
	Name   string
	Layout *genome.Layout
}

type Individual struct {
	ID        uint64
	Species   *Species
	Alive     bool
	CycleBorn int
	Sex       genome.Sex
	Genome    []byte
}

// IsFemale reports the sex flag; ok is false while sex is unassigned.
func (i *Individual) IsFemale() (female bool, ok bool) {
	switch i.Sex {
	case genome.SexFemale:
		return true, true
	case genome.SexMale:
		return false, true
	default:
		return false, false
	}
}

// Carrier exposes the individual to chromosome transmission.
func (i *Individual) Carrier() genome.Carrier {
	return genome.Carrier{Genome: i.Genome, Sex: i.Sex}
}

// IDSource hands out monotonically increasing individual identifiers.
type IDSource struct {
	next atomic.Uint64
}

// NewIDSource starts numbering after last.
func NewIDSource(last uint64) *IDSource {
	s := &IDSource{}
	s.next.Store(last)
	return s
}

func (s *IDSource) Next() uint64 {
	return s.next.Add(1)
}

// Last returns the most recently issued identifier.
func (s *IDSource) Last() uint64 {
	return s.next.Load()
}
