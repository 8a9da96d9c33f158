package genome

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"
)

func snps(n int) []Marker {
	out := make([]Marker, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, NewSNP())
	}
	return out
}

func TestNewChromosomeValidatesDistances(t *testing.T) {
	c, err := NewChromosome(Haploid, snps(4), []float64{0.1, 0.2, 0.3})
	if err != nil {
		t.Fatalf("new chromosome: %v", err)
	}
	if c.Size() != 4 {
		t.Fatalf("unexpected size: got=%d want=4", c.Size())
	}

	if _, err := NewChromosome(Haploid, snps(4), []float64{0.1}); !errors.Is(err, ErrDistanceCount) {
		t.Fatalf("expected distance count error, got %v", err)
	}
	if _, err := NewChromosome(Autosomal, snps(2), []float64{0.1, 0.2}); !errors.Is(err, ErrDistanceCount) {
		t.Fatalf("expected distance count error, got %v", err)
	}
	if _, err := NewChromosome(LinkedAutosomal, snps(3), nil); !errors.Is(err, ErrDistancesRequired) {
		t.Fatalf("expected distances required error, got %v", err)
	}
	if _, err := NewChromosome(Kind(42), snps(1), nil); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected unknown kind error, got %v", err)
	}
}

func TestDiploidKindsDoubleSizeAndMarkers(t *testing.T) {
	for _, kind := range []Kind{Autosomal, UnlinkedAutosomal, Mitochondrial, YLinked, XLinked} {
		c, err := NewChromosome(kind, snps(3), nil)
		if err != nil {
			t.Fatalf("%s: %v", kind, err)
		}
		if c.Size() != 6 {
			t.Fatalf("%s: unexpected size %d", kind, c.Size())
		}
		markers := c.Markers()
		if len(markers) != 6 {
			t.Fatalf("%s: unexpected marker count %d", kind, len(markers))
		}
		for i := 0; i < 3; i++ {
			if markers[i] != markers[i+3] {
				t.Fatalf("%s: copy %d does not share marker", kind, i)
			}
		}
	}
	auto, _ := NewChromosome(Autosomal, snps(1), nil)
	mito, _ := NewChromosome(Mitochondrial, snps(1), nil)
	if !auto.IsAutosomal() || mito.IsAutosomal() {
		t.Fatal("unexpected autosomal capability flags")
	}
}

func TestParseKindRoundTrip(t *testing.T) {
	for kind := range kindNames {
		got, err := ParseKind(kind.String())
		if err != nil || got != kind {
			t.Fatalf("parse %s: got=%v err=%v", kind, got, err)
		}
	}
	if _, err := ParseKind("plastid"); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected unknown kind, got %v", err)
	}
}

func TestMicroSatelliteRequiresValues(t *testing.T) {
	if _, err := NewMicroSatellite(nil); !errors.Is(err, ErrNoPossibleValues) {
		t.Fatalf("expected no values error, got %v", err)
	}
	m, err := NewMicroSatellite([]uint8{3, 5, 7})
	if err != nil {
		t.Fatalf("new microsatellite: %v", err)
	}
	if err := m.SetPossibleValues([]uint8{1}); err != nil {
		t.Fatalf("set values: %v", err)
	}
	if got := m.PossibleValues(); len(got) != 1 || got[0] != 1 {
		t.Fatalf("unexpected values: %v", got)
	}
	if got := NewSNP().PossibleValues(); len(got) != 2 || got[0] != 0 || got[1] != 1 {
		t.Fatalf("unexpected snp default: %v", got)
	}
}

func TestLayoutOffsets(t *testing.T) {
	a, _ := NewChromosome(Autosomal, snps(3), nil)
	b, _ := NewChromosome(Haploid, snps(2), nil)
	x, _ := NewChromosome(XLinked, snps(4), nil)

	layout, err := NewLayout(
		Entry{Name: "chr1", Chromosome: a},
		Entry{Name: "plasmid", Chromosome: b},
		Entry{Name: "x", Chromosome: x},
	)
	if err != nil {
		t.Fatalf("new layout: %v", err)
	}
	if layout.Size() != 6+2+8 {
		t.Fatalf("unexpected size: %d", layout.Size())
	}

	order := layout.MarkerOrder()
	prevEnd := 0
	for _, name := range order {
		start, ok := layout.MarkerStart(name)
		if !ok {
			t.Fatalf("missing start for %s", name)
		}
		c, _ := layout.Chromosome(name)
		if start != prevEnd {
			t.Fatalf("%s: start=%d want=%d", name, start, prevEnd)
		}
		prevEnd = start + c.Size()
		if prevEnd > layout.Size() {
			t.Fatalf("%s overruns genome", name)
		}
	}
	if prevEnd != layout.Size() {
		t.Fatalf("last chromosome ends at %d, size %d", prevEnd, layout.Size())
	}
	if _, ok := layout.MarkerStart("missing"); ok {
		t.Fatal("expected unknown chromosome lookup to fail")
	}
	if !layout.HasSexLinked() {
		t.Fatal("expected sex-linked layout")
	}
}

func TestLayoutConstructionErrors(t *testing.T) {
	if _, err := NewLayout(); !errors.Is(err, ErrEmptyLayout) {
		t.Fatalf("expected empty layout error, got %v", err)
	}
	c, _ := NewChromosome(Haploid, snps(1), nil)
	_, err := NewLayout(Entry{Name: "a", Chromosome: c}, Entry{Name: "a", Chromosome: c})
	if !errors.Is(err, ErrDuplicateChromosome) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestGenerateUnlinkedLayout(t *testing.T) {
	layout, err := GenerateUnlinkedLayout(5, func() Marker { return NewSNP() })
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if layout.Size() != 10 {
		t.Fatalf("unexpected size: %d", layout.Size())
	}
	c, ok := layout.Chromosome(UnlinkedChromosomeName)
	if !ok || c.Kind() != UnlinkedAutosomal {
		t.Fatalf("unexpected chromosome: %+v", c)
	}
}

func TestGenerateUnlinkedLayoutRejectsNegativeCount(t *testing.T) {
	if _, err := GenerateUnlinkedLayout(-1, func() Marker { return NewSNP() }); err == nil {
		t.Fatal("expected negative marker count error")
	}
}

func TestCopiesBySex(t *testing.T) {
	cases := []struct {
		kind   Kind
		female int
		male   int
	}{
		{Haploid, 1, 1},
		{Autosomal, 2, 2},
		{LinkedAutosomal, 2, 2},
		{Mitochondrial, 1, 1},
		{YLinked, 0, 1},
		{XLinked, 2, 1},
	}
	for _, tc := range cases {
		c, err := NewChromosome(tc.kind, snps(1), nil)
		if err != nil {
			t.Fatalf("%s: %v", tc.kind, err)
		}
		if got := c.Copies(SexFemale); got != tc.female {
			t.Fatalf("%s female copies: got=%d want=%d", tc.kind, got, tc.female)
		}
		if got := c.Copies(SexMale); got != tc.male {
			t.Fatalf("%s male copies: got=%d want=%d", tc.kind, got, tc.male)
		}
	}
}

func TestLayoutConformMatchesTransmission(t *testing.T) {
	y, _ := NewChromosome(YLinked, snps(2), nil)
	x, _ := NewChromosome(XLinked, snps(2), nil)
	auto, _ := NewChromosome(Autosomal, snps(2), nil)
	layout, err := NewLayout(Entry{Name: "y", Chromosome: y}, Entry{Name: "x", Chromosome: x}, Entry{Name: "a", Chromosome: auto})
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	fresh := func() []byte { return []byte{1, 2, 2, 1, 1, 2, 2, 1, 1, 2, 2, 1} }

	female := fresh()
	layout.Conform(female, SexFemale)
	if want := []byte{0, 0, 0, 0, 1, 2, 2, 1, 1, 2, 2, 1}; !bytes.Equal(female, want) {
		t.Fatalf("female: got=%v want=%v", female, want)
	}
	male := fresh()
	layout.Conform(male, SexMale)
	if want := []byte{1, 2, 1, 2, 1, 2, 1, 2, 1, 2, 2, 1}; !bytes.Equal(male, want) {
		t.Fatalf("male: got=%v want=%v", male, want)
	}
	short := []byte{1, 2}
	layout.Conform(short, SexFemale)
	if !bytes.Equal(short, []byte{1, 2}) {
		t.Fatalf("mismatched buffer was modified: %v", short)
	}
}

// Parent regions: mother copies are {1,1,1}/{2,2,2}, father copies {3,3,3}/{4,4,4}.
func testParents() [2]Carrier {
	return [2]Carrier{
		{Genome: []byte{1, 1, 1, 2, 2, 2}, Sex: SexFemale},
		{Genome: []byte{3, 3, 3, 4, 4, 4}, Sex: SexMale},
	}
}

func TestAutosomeTakesOneCopyFromEachParent(t *testing.T) {
	c, _ := NewChromosome(Autosomal, snps(3), nil)
	rng := rand.New(rand.NewSource(7))
	seen := map[byte]bool{}
	for i := 0; i < 200; i++ {
		child := Carrier{Genome: make([]byte, 6)}
		if err := c.Reproduce(rng, child, testParents(), 0); err != nil {
			t.Fatalf("reproduce: %v", err)
		}
		first, second := child.Genome[:3], child.Genome[3:]
		if !uniform(first) || !uniform(second) {
			t.Fatalf("linked gamete was split: %v", child.Genome)
		}
		if fromMother(first[0]) == fromMother(second[0]) {
			t.Fatalf("both gametes from one parent: %v", child.Genome)
		}
		seen[first[0]] = true
		seen[second[0]] = true
	}
	for _, allele := range []byte{1, 2, 3, 4} {
		if !seen[allele] {
			t.Fatalf("parental copy %d never transmitted", allele)
		}
	}
}

func TestUnlinkedAutosomeDrawsEachLocusFromParent(t *testing.T) {
	c, _ := NewChromosome(UnlinkedAutosomal, snps(3), nil)
	rng := rand.New(rand.NewSource(11))
	mixed := false
	for i := 0; i < 200; i++ {
		child := Carrier{Genome: make([]byte, 6)}
		if err := c.Reproduce(rng, child, testParents(), 0); err != nil {
			t.Fatalf("reproduce: %v", err)
		}
		for _, half := range [][]byte{child.Genome[:3], child.Genome[3:]} {
			for _, allele := range half {
				if fromMother(allele) != fromMother(half[0]) {
					t.Fatalf("gamete mixes parents: %v", child.Genome)
				}
			}
			if !uniform(half) {
				mixed = true
			}
		}
	}
	if !mixed {
		t.Fatal("expected independent segregation to mix parental copies")
	}
}

func TestLinkedAutosomeWithoutDistanceKeepsCopies(t *testing.T) {
	c, err := NewChromosome(LinkedAutosomal, snps(3), []float64{0, 0})
	if err != nil {
		t.Fatalf("new chromosome: %v", err)
	}
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 100; i++ {
		child := Carrier{Genome: make([]byte, 6)}
		if err := c.Reproduce(rng, child, testParents(), 0); err != nil {
			t.Fatalf("reproduce: %v", err)
		}
		if !uniform(child.Genome[:3]) || !uniform(child.Genome[3:]) {
			t.Fatalf("unexpected recombination: %v", child.Genome)
		}
	}
	if got := haldane(100); got <= 0.49 || got > 0.5 {
		t.Fatalf("unexpected haldane limit: %v", got)
	}
}

func TestMitoIsMaternal(t *testing.T) {
	c, _ := NewChromosome(Mitochondrial, snps(3), nil)
	rng := rand.New(rand.NewSource(5))
	parents := testParents()
	parents[0], parents[1] = parents[1], parents[0]
	for i := 0; i < 50; i++ {
		child := Carrier{Genome: make([]byte, 6)}
		if err := c.Reproduce(rng, child, parents, 0); err != nil {
			t.Fatalf("reproduce: %v", err)
		}
		for _, allele := range child.Genome {
			if !fromMother(allele) {
				t.Fatalf("paternal mito transmitted: %v", child.Genome)
			}
		}
		if !bytes.Equal(child.Genome[:3], child.Genome[3:]) {
			t.Fatalf("mito copies differ: %v", child.Genome)
		}
	}
}

func TestYIsPaternalAndMaleOnly(t *testing.T) {
	c, _ := NewChromosome(YLinked, snps(3), nil)
	rng := rand.New(rand.NewSource(5))

	son := Carrier{Genome: make([]byte, 6), Sex: SexMale}
	if err := c.Reproduce(rng, son, testParents(), 0); err != nil {
		t.Fatalf("reproduce son: %v", err)
	}
	if !bytes.Equal(son.Genome, []byte{3, 3, 3, 3, 3, 3}) {
		t.Fatalf("unexpected son y: %v", son.Genome)
	}

	daughter := Carrier{Genome: []byte{9, 9, 9, 9, 9, 9}, Sex: SexFemale}
	if err := c.Reproduce(rng, daughter, testParents(), 0); err != nil {
		t.Fatalf("reproduce daughter: %v", err)
	}
	if !bytes.Equal(daughter.Genome, make([]byte, 6)) {
		t.Fatalf("daughter carries y: %v", daughter.Genome)
	}

	unknown := Carrier{Genome: make([]byte, 6)}
	if err := c.Reproduce(rng, unknown, testParents(), 0); !errors.Is(err, ErrOffspringSexUnknown) {
		t.Fatalf("expected unknown sex error, got %v", err)
	}
}

func TestXDependsOnOffspringSex(t *testing.T) {
	c, _ := NewChromosome(XLinked, snps(3), nil)
	rng := rand.New(rand.NewSource(9))
	for i := 0; i < 50; i++ {
		daughter := Carrier{Genome: make([]byte, 6), Sex: SexFemale}
		if err := c.Reproduce(rng, daughter, testParents(), 0); err != nil {
			t.Fatalf("reproduce daughter: %v", err)
		}
		if !fromMother(daughter.Genome[0]) || !bytes.Equal(daughter.Genome[3:], []byte{3, 3, 3}) {
			t.Fatalf("unexpected daughter x: %v", daughter.Genome)
		}

		son := Carrier{Genome: make([]byte, 6), Sex: SexMale}
		if err := c.Reproduce(rng, son, testParents(), 0); err != nil {
			t.Fatalf("reproduce son: %v", err)
		}
		if !fromMother(son.Genome[0]) || !bytes.Equal(son.Genome[:3], son.Genome[3:]) {
			t.Fatalf("unexpected son x: %v", son.Genome)
		}
	}
}

func TestReproduceAtOffset(t *testing.T) {
	c, _ := NewChromosome(Haploid, snps(2), nil)
	parents := [2]Carrier{{Genome: []byte{0, 0, 5, 5}}, {Genome: []byte{0, 0, 5, 5}}}
	child := Carrier{Genome: make([]byte, 4)}
	if err := c.Reproduce(rand.New(rand.NewSource(1)), child, parents, 2); err != nil {
		t.Fatalf("reproduce: %v", err)
	}
	if !bytes.Equal(child.Genome, []byte{0, 0, 5, 5}) {
		t.Fatalf("unexpected child: %v", child.Genome)
	}
	if err := c.Reproduce(rand.New(rand.NewSource(1)), child, parents, 3); err == nil {
		t.Fatal("expected out of range error")
	}
}

func uniform(b []byte) bool {
	for _, v := range b {
		if v != b[0] {
			return false
		}
	}
	return true
}

func fromMother(allele byte) bool {
	return allele == 1 || allele == 2
}
