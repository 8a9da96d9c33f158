package storage

import (
	"context"
	"errors"
	"slices"
	"sync"

	"genosim/internal/model"
)

var ErrNotInitialized = errors.New("store is not initialized")

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	runs        map[string]model.RunRecord
	populations map[string]map[int]model.PopulationSnapshot
	summaries   map[string][]model.CycleSummary
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.runs = make(map[string]model.RunRecord)
	s.populations = make(map[string]map[int]model.PopulationSnapshot)
	s.summaries = make(map[string][]model.CycleSummary)
	return nil
}

func (s *MemoryStore) SaveRun(_ context.Context, run model.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	s.runs[run.ID] = run
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (model.RunRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	return run, ok, nil
}

// ListRuns returns runs newest first.
func (s *MemoryStore) ListRuns(_ context.Context) ([]model.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]model.RunRecord, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, run)
	}
	sortRunsNewestFirst(runs)
	return runs, nil
}

func (s *MemoryStore) SavePopulation(_ context.Context, snapshot model.PopulationSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	byCycle, ok := s.populations[snapshot.RunID]
	if !ok {
		byCycle = make(map[int]model.PopulationSnapshot)
		s.populations[snapshot.RunID] = byCycle
	}
	byCycle[snapshot.Cycle] = snapshot
	return nil
}

func (s *MemoryStore) GetPopulation(_ context.Context, runID string, cycle int) (model.PopulationSnapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot, ok := s.populations[runID][cycle]
	return snapshot, ok, nil
}

func (s *MemoryStore) LatestPopulation(_ context.Context, runID string) (model.PopulationSnapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		latest model.PopulationSnapshot
		found  bool
	)
	for cycle, snapshot := range s.populations[runID] {
		if !found || cycle > latest.Cycle {
			latest = snapshot
			found = true
		}
	}
	return latest, found, nil
}

func (s *MemoryStore) AppendCycleSummaries(_ context.Context, runID string, summaries []model.CycleSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	existing := s.summaries[runID]
	for _, summary := range summaries {
		idx := slices.IndexFunc(existing, func(prev model.CycleSummary) bool {
			return prev.Cycle == summary.Cycle && prev.Chromosome == summary.Chromosome
		})
		if idx >= 0 {
			existing[idx] = summary
			continue
		}
		existing = append(existing, summary)
	}
	s.summaries[runID] = existing
	return nil
}

func (s *MemoryStore) GetCycleSummaries(_ context.Context, runID string) ([]model.CycleSummary, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries, ok := s.summaries[runID]
	if !ok {
		return nil, false, nil
	}
	return append([]model.CycleSummary(nil), summaries...), true, nil
}
