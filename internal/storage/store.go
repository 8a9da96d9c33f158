package storage

import (
	"context"
	"sort"
	"time"

	"genosim/internal/model"
)

// Store defines persistence for simulation runs, population snapshots, and per-cycle
// diversity summaries.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run model.RunRecord) error
	GetRun(ctx context.Context, id string) (model.RunRecord, bool, error)
	ListRuns(ctx context.Context) ([]model.RunRecord, error)
	SavePopulation(ctx context.Context, snapshot model.PopulationSnapshot) error
	GetPopulation(ctx context.Context, runID string, cycle int) (model.PopulationSnapshot, bool, error)
	LatestPopulation(ctx context.Context, runID string) (model.PopulationSnapshot, bool, error)
	AppendCycleSummaries(ctx context.Context, runID string, summaries []model.CycleSummary) error
	GetCycleSummaries(ctx context.Context, runID string) ([]model.CycleSummary, bool, error)
}

// sortRunsNewestFirst orders runs by parsed creation time, newest first, breaking ties by id.
// Unparseable timestamps sort last.
func sortRunsNewestFirst(runs []model.RunRecord) {
	created := make(map[string]time.Time, len(runs))
	for _, run := range runs {
		ts, err := time.Parse(time.RFC3339Nano, run.CreatedAtUTC)
		if err == nil {
			created[run.ID] = ts
		}
	}
	sort.SliceStable(runs, func(i, j int) bool {
		a, b := created[runs[i].ID], created[runs[j].ID]
		if a.Equal(b) {
			return runs[i].ID < runs[j].ID
		}
		return a.After(b)
	})
}
