package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// TimestampLayout is the fixed-width UTC layout of CreatedAtUTC.
const TimestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

type RunRecord struct {
	VersionedRecord
	ID               string `json:"id"`
	Species          string `json:"species"`
	CreatedAtUTC     string `json:"created_at_utc"`
	Seed             int64  `json:"seed"`
	InitialSize      int    `json:"initial_size"`
	Cycles           int    `json:"cycles"`
	FinalCycle       int    `json:"final_cycle"`
	FinalIndividuals int    `json:"final_individuals"`
}

type IndividualRecord struct {
	ID        uint64 `json:"id"`
	Sex       string `json:"sex"`
	Alive     bool   `json:"alive"`
	CycleBorn int    `json:"cycle_born"`
	Genome    []byte `json:"genome"`
}

type PopulationSnapshot struct {
	VersionedRecord
	RunID       string             `json:"run_id"`
	Cycle       int                `json:"cycle"`
	Individuals []IndividualRecord `json:"individuals"`
}

// CycleSummary is one chromosome's diversity at the end of a cycle.
type CycleSummary struct {
	Cycle                  int     `json:"cycle" csv:"cycle" db:"cycle"`
	Individuals            int     `json:"individuals" csv:"individuals" db:"individuals"`
	Chromosome             string  `json:"chromosome" csv:"chromosome" db:"chromosome"`
	Loci                   int     `json:"loci" csv:"loci" db:"loci"`
	MeanAlleles            float64 `json:"mean_alleles" csv:"mean_alleles" db:"mean_alleles"`
	ExpectedHeterozygosity float64 `json:"expected_heterozygosity" csv:"expected_heterozygosity" db:"expected_heterozygosity"`
	HeterozygosityStdDev   float64 `json:"heterozygosity_stddev" csv:"heterozygosity_stddev" db:"heterozygosity_stddev"`
	ObservedHeterozygosity float64 `json:"observed_heterozygosity" csv:"observed_heterozygosity" db:"observed_heterozygosity"`
}
