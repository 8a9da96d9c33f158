package ops

import (
	"context"
	"fmt"
	"maps"

	"genosim/internal/model"
	"genosim/internal/observe"
	"genosim/internal/sim"
	"genosim/internal/stats"
	"genosim/internal/storage"
)

// Persist saves a population snapshot every Every cycles, starting at cycle 0.
type Persist struct {
	Store storage.Store
	RunID string
	Every int
}

func (Persist) Name() string {
	return "persist"
}

func (o Persist) Change(ctx context.Context, state *sim.State) error {
	every := o.Every
	if every <= 0 {
		every = 1
	}
	if state.Cycle%every != 0 {
		return nil
	}
	if err := o.Store.SavePopulation(ctx, Snapshot(o.RunID, state)); err != nil {
		return fmt.Errorf("save population at cycle %d: %w", state.Cycle, err)
	}
	return nil
}

// Snapshot converts the state's individuals to a storable record.
func Snapshot(runID string, state *sim.State) model.PopulationSnapshot {
	records := make([]model.IndividualRecord, 0, len(state.Individuals))
	for _, ind := range state.Individuals {
		records = append(records, model.IndividualRecord{
			ID:        ind.ID,
			Sex:       ind.Sex.String(),
			Alive:     ind.Alive,
			CycleBorn: ind.CycleBorn,
			Genome:    append([]byte(nil), ind.Genome...),
		})
	}
	return model.PopulationSnapshot{
		VersionedRecord: storage.CurrentVersion(),
		RunID:           runID,
		Cycle:           state.Cycle,
		Individuals:     records,
	}
}

// RecordSummaries appends the cycle's diversity summaries to the store.
type RecordSummaries struct {
	Store storage.Store
	RunID string
}

func (RecordSummaries) Name() string {
	return "record_summaries"
}

func (o RecordSummaries) Change(ctx context.Context, state *sim.State) error {
	summaries, err := stats.Summarize(state)
	if err != nil {
		return err
	}
	return o.Store.AppendCycleSummaries(ctx, o.RunID, summaries)
}

// Publish pushes a copy of Globals to the broker's subscribers every cycle.
type Publish struct {
	Broker *observe.Broker[map[string]any]
}

func (Publish) Name() string {
	return "publish"
}

func (o Publish) Change(_ context.Context, state *sim.State) error {
	o.Broker.Publish(maps.Clone(state.Globals))
	return nil
}
