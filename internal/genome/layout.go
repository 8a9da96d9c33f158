package genome

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyLayout         = errors.New("genome layout requires at least one chromosome")
	ErrDuplicateChromosome = errors.New("duplicate chromosome name")
)

// UnlinkedChromosomeName names the single chromosome built by GenerateUnlinkedLayout.
const UnlinkedChromosomeName = "unlinked"

type Entry struct {
	Name       string
	Chromosome *Chromosome
}

// Layout flattens named chromosomes into one contiguous byte sequence. Chromosomes are laid
// out in the order they were given.
type Layout struct {
	entries []Entry
	byName  map[string]int
	starts  []int
	size    int
}

func NewLayout(entries ...Entry) (*Layout, error) {
	if len(entries) == 0 {
		return nil, ErrEmptyLayout
	}
	l := &Layout{
		entries: make([]Entry, 0, len(entries)),
		byName:  make(map[string]int, len(entries)),
		starts:  make([]int, 0, len(entries)),
	}
	for i, entry := range entries {
		if entry.Chromosome == nil {
			return nil, fmt.Errorf("chromosome %q is nil", entry.Name)
		}
		if _, exists := l.byName[entry.Name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateChromosome, entry.Name)
		}
		l.byName[entry.Name] = i
		l.entries = append(l.entries, entry)
		l.starts = append(l.starts, l.size)
		l.size += entry.Chromosome.Size()
	}
	return l, nil
}

// GenerateUnlinkedLayout builds numMarkers independent markers into a single unlinked
// autosome pair.
func GenerateUnlinkedLayout(numMarkers int, markerGenerator func() Marker) (*Layout, error) {
	if numMarkers < 0 {
		return nil, fmt.Errorf("marker count must be >= 0, got %d", numMarkers)
	}
	markers := make([]Marker, 0, numMarkers)
	for i := 0; i < numMarkers; i++ {
		markers = append(markers, markerGenerator())
	}
	chromosome, err := NewChromosome(UnlinkedAutosomal, markers, nil)
	if err != nil {
		return nil, err
	}
	return NewLayout(Entry{Name: UnlinkedChromosomeName, Chromosome: chromosome})
}

// Size is the total genome length in bytes.
func (l *Layout) Size() int {
	return l.size
}

func (l *Layout) MarkerOrder() []string {
	names := make([]string, 0, len(l.entries))
	for _, entry := range l.entries {
		names = append(names, entry.Name)
	}
	return names
}

func (l *Layout) Entries() []Entry {
	return l.entries
}

// MarkerStart returns the byte offset of the named chromosome.
func (l *Layout) MarkerStart(name string) (int, bool) {
	idx, ok := l.byName[name]
	if !ok {
		return 0, false
	}
	return l.starts[idx], true
}

func (l *Layout) Chromosome(name string) (*Chromosome, bool) {
	idx, ok := l.byName[name]
	if !ok {
		return nil, false
	}
	return l.entries[idx].Chromosome, true
}

// HasSexLinked reports whether any chromosome needs the offspring's sex to transmit.
func (l *Layout) HasSexLinked() bool {
	for _, entry := range l.entries {
		if entry.Chromosome.Kind().IsSexLinked() {
			return true
		}
	}
	return false
}

// Conform applies Chromosome.Conform to every chromosome of buf. Buffers that do not match
// the layout size are left alone.
func (l *Layout) Conform(buf []byte, sex Sex) {
	if len(buf) != l.size {
		return
	}
	for i, entry := range l.entries {
		entry.Chromosome.Conform(buf, l.starts[i], sex)
	}
}
