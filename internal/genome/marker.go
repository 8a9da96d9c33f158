package genome

import (
	"errors"
	"fmt"
)

var ErrNoPossibleValues = errors.New("marker requires at least one possible value")

// Marker describes a single locus and the allele values it may take.
type Marker interface {
	PossibleValues() []uint8
}

// SNP is a bi-allelic marker. The zero value allows {0, 1}.
type SNP struct {
	values []uint8
}

func NewSNP() *SNP {
	return &SNP{}
}

func (m *SNP) PossibleValues() []uint8 {
	if len(m.values) == 0 {
		return []uint8{0, 1}
	}
	return m.values
}

func (m *SNP) SetPossibleValues(values []uint8) error {
	if len(values) == 0 {
		return ErrNoPossibleValues
	}
	m.values = append([]uint8(nil), values...)
	return nil
}

// MicroSatellite is a multi-allelic marker with an explicit value set.
type MicroSatellite struct {
	values []uint8
}

func NewMicroSatellite(values []uint8) (*MicroSatellite, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("microsatellite: %w", ErrNoPossibleValues)
	}
	return &MicroSatellite{values: append([]uint8(nil), values...)}, nil
}

func (m *MicroSatellite) PossibleValues() []uint8 {
	return m.values
}

func (m *MicroSatellite) SetPossibleValues(values []uint8) error {
	if len(values) == 0 {
		return ErrNoPossibleValues
	}
	m.values = append([]uint8(nil), values...)
	return nil
}
