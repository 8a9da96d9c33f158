// Package config loads simulation settings from YAML on top of embedded defaults.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"genosim/internal/genome"
)

//go:embed defaults.yaml
var defaultsYAML []byte

var ErrInvalidConfig = errors.New("invalid config")

// Config holds all simulation configuration parameters.
type Config struct {
	Species    SpeciesConfig    `yaml:"species"`
	Population PopulationConfig `yaml:"population"`
	Simulation SimulationConfig `yaml:"simulation"`
	Output     OutputConfig     `yaml:"output"`
	Store      StoreConfig      `yaml:"store"`
}

type SpeciesConfig struct {
	Name        string             `yaml:"name"`
	Chromosomes []ChromosomeConfig `yaml:"chromosomes"`
}

// ChromosomeConfig describes one chromosome. Markers are expanded in order; distances, when
// given, must cover every adjacent marker pair after expansion.
type ChromosomeConfig struct {
	Name      string         `yaml:"name"`
	Kind      string         `yaml:"kind"`
	Markers   []MarkerConfig `yaml:"markers"`
	Distances []float64      `yaml:"distances,omitempty"`
}

type MarkerConfig struct {
	Type   string  `yaml:"type"`            // snp or microsatellite
	Count  int     `yaml:"count"`           // repeats of this marker; 0 means 1
	Values []uint8 `yaml:"values,omitempty"` // allele values; snp defaults to {0,1}
}

type PopulationConfig struct {
	InitialSize    int    `yaml:"initial_size"`
	InitialAlleles string `yaml:"initial_alleles"` // random or zero
}

type SimulationConfig struct {
	Cycles            int   `yaml:"cycles"`
	Seed              int64 `yaml:"seed"`
	OffspringPerCycle int   `yaml:"offspring_per_cycle"`
	MaxAge            int   `yaml:"max_age"`  // negative disables age culling
	Capacity          int   `yaml:"capacity"` // 0 disables capacity culling
}

type OutputConfig struct {
	CSVPath       string `yaml:"csv_path"`
	SnapshotEvery int    `yaml:"snapshot_every"`
}

type StoreConfig struct {
	Kind   string `yaml:"kind"` // memory or sqlite; empty picks the build's default store`
	DBPath string `yaml:"db_path"`
}

// Default returns the embedded defaults.
func Default() (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}
	return cfg, nil
}

// Load reads path over the defaults. An empty path yields the defaults alone.
func Load(path string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if len(c.Species.Chromosomes) == 0 {
		return fmt.Errorf("%w: species needs at least one chromosome", ErrInvalidConfig)
	}
	if c.Population.InitialSize < 0 {
		return fmt.Errorf("%w: initial population size must be >= 0", ErrInvalidConfig)
	}
	switch c.Population.InitialAlleles {
	case "", "random", "zero":
	default:
		return fmt.Errorf("%w: unknown initial alleles %q", ErrInvalidConfig, c.Population.InitialAlleles)
	}
	if c.Simulation.Cycles < 0 {
		return fmt.Errorf("%w: cycles must be >= 0", ErrInvalidConfig)
	}
	if c.Simulation.OffspringPerCycle < 0 {
		return fmt.Errorf("%w: offspring per cycle must be >= 0", ErrInvalidConfig)
	}
	if c.Simulation.Capacity < 0 {
		return fmt.Errorf("%w: capacity must be >= 0", ErrInvalidConfig)
	}
	_, err := c.Layout()
	return err
}

// Layout builds the genome layout the species section describes.
func (c *Config) Layout() (*genome.Layout, error) {
	entries := make([]genome.Entry, 0, len(c.Species.Chromosomes))
	for _, cc := range c.Species.Chromosomes {
		kind, err := genome.ParseKind(cc.Kind)
		if err != nil {
			return nil, fmt.Errorf("%w: chromosome %s: %v", ErrInvalidConfig, cc.Name, err)
		}
		markers, err := cc.buildMarkers()
		if err != nil {
			return nil, fmt.Errorf("%w: chromosome %s: %v", ErrInvalidConfig, cc.Name, err)
		}
		chromosome, err := genome.NewChromosome(kind, markers, cc.Distances)
		if err != nil {
			return nil, fmt.Errorf("%w: chromosome %s: %w", ErrInvalidConfig, cc.Name, err)
		}
		entries = append(entries, genome.Entry{Name: cc.Name, Chromosome: chromosome})
	}
	layout, err := genome.NewLayout(entries...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return layout, nil
}

func (cc ChromosomeConfig) buildMarkers() ([]genome.Marker, error) {
	var markers []genome.Marker
	for _, mc := range cc.Markers {
		count := mc.Count
		if count <= 0 {
			count = 1
		}
		for i := 0; i < count; i++ {
			marker, err := mc.build()
			if err != nil {
				return nil, err
			}
			markers = append(markers, marker)
		}
	}
	return markers, nil
}

func (mc MarkerConfig) build() (genome.Marker, error) {
	switch mc.Type {
	case "", "snp":
		snp := genome.NewSNP()
		if len(mc.Values) > 0 {
			if err := snp.SetPossibleValues(mc.Values); err != nil {
				return nil, err
			}
		}
		return snp, nil
	case "microsatellite":
		return genome.NewMicroSatellite(mc.Values)
	default:
		return nil, fmt.Errorf("unknown marker type %q", mc.Type)
	}
}

// WriteYAML saves the configuration to path.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config %s: %w", path, err)
	}
	return nil
}
