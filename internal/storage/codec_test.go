package storage

import (
	"errors"
	"testing"

	"genosim/internal/model"
)

func TestDecodePopulationKeepsGenomes(t *testing.T) {
	in := model.PopulationSnapshot{
		VersionedRecord: CurrentVersion(),
		RunID:           "run-1",
		Cycle:           3,
		Individuals: []model.IndividualRecord{
			{ID: 7, Sex: "female", Alive: true, CycleBorn: 2, Genome: []byte{0, 1, 14, 10}},
		},
	}
	data, err := EncodePopulation(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := DecodePopulation(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Individuals) != 1 || string(out.Individuals[0].Genome) != string(in.Individuals[0].Genome) {
		t.Fatalf("unexpected individuals: %+v", out.Individuals)
	}
}

func TestDecodeRejectsOtherVersions(t *testing.T) {
	run := model.RunRecord{VersionedRecord: model.VersionedRecord{SchemaVersion: CurrentSchemaVersion + 1, CodecVersion: CurrentCodecVersion}, ID: "r"}
	data, err := EncodeRun(run)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DecodeRun(data); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected version mismatch, got %v", err)
	}
	if _, err := DecodePopulation([]byte(`{"schema_version":0,"codec_version":0}`)); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected version mismatch for population, got %v", err)
	}
}
