//go:build sqlite

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"genosim/internal/model"
)

type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sqlx.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sqlx.Open("sqlite", s.path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run model.RunRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeRun(run)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO runs (id, created_at_utc, schema_version, codec_version, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			created_at_utc = excluded.created_at_utc,
			schema_version = excluded.schema_version,
			codec_version = excluded.codec_version,
			payload = excluded.payload
	`, run.ID, run.CreatedAtUTC, run.SchemaVersion, run.CodecVersion, payload)
	return err
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (model.RunRecord, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.RunRecord{}, false, err
	}

	var payload []byte
	err = db.GetContext(ctx, &payload, `SELECT payload FROM runs WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.RunRecord{}, false, nil
		}
		return model.RunRecord{}, false, err
	}

	run, err := DecodeRun(payload)
	if err != nil {
		return model.RunRecord{}, false, fmt.Errorf("decode run %s: %w", id, err)
	}
	return run, true, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context) ([]model.RunRecord, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	var payloads [][]byte
	if err := db.SelectContext(ctx, &payloads, `SELECT payload FROM runs ORDER BY created_at_utc DESC, id ASC`); err != nil {
		return nil, err
	}
	runs := make([]model.RunRecord, 0, len(payloads))
	for _, payload := range payloads {
		run, err := DecodeRun(payload)
		if err != nil {
			return nil, fmt.Errorf("decode run: %w", err)
		}
		runs = append(runs, run)
	}
	sortRunsNewestFirst(runs)
	return runs, nil
}

func (s *SQLiteStore) SavePopulation(ctx context.Context, snapshot model.PopulationSnapshot) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodePopulation(snapshot)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO populations (run_id, cycle, payload)
		VALUES (?, ?, ?)
		ON CONFLICT(run_id, cycle) DO UPDATE SET payload = excluded.payload
	`, snapshot.RunID, snapshot.Cycle, payload)
	return err
}

func (s *SQLiteStore) GetPopulation(ctx context.Context, runID string, cycle int) (model.PopulationSnapshot, bool, error) {
	return s.queryPopulation(ctx, `SELECT payload FROM populations WHERE run_id = ? AND cycle = ?`, runID, cycle)
}

func (s *SQLiteStore) LatestPopulation(ctx context.Context, runID string) (model.PopulationSnapshot, bool, error) {
	return s.queryPopulation(ctx, `SELECT payload FROM populations WHERE run_id = ? ORDER BY cycle DESC LIMIT 1`, runID)
}

func (s *SQLiteStore) queryPopulation(ctx context.Context, query string, args ...any) (model.PopulationSnapshot, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.PopulationSnapshot{}, false, err
	}

	var payload []byte
	err = db.GetContext(ctx, &payload, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.PopulationSnapshot{}, false, nil
		}
		return model.PopulationSnapshot{}, false, err
	}

	snapshot, err := DecodePopulation(payload)
	if err != nil {
		return model.PopulationSnapshot{}, false, fmt.Errorf("decode population: %w", err)
	}
	return snapshot, true, nil
}

type summaryRow struct {
	RunID string `db:"run_id"`
	model.CycleSummary
}

func (s *SQLiteStore) AppendCycleSummaries(ctx context.Context, runID string, summaries []model.CycleSummary) error {
	if len(summaries) == 0 {
		return nil
	}
	db, err := s.getDB()
	if err != nil {
		return err
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	for _, summary := range summaries {
		if _, err := tx.NamedExecContext(ctx, insertSummarySQL, summaryRow{RunID: runID, CycleSummary: summary}); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

const insertSummarySQL = `
	INSERT INTO cycle_summaries (
		run_id, cycle, individuals, chromosome, loci, mean_alleles,
		expected_heterozygosity, heterozygosity_stddev, observed_heterozygosity
	) VALUES (
		:run_id, :cycle, :individuals, :chromosome, :loci, :mean_alleles,
		:expected_heterozygosity, :heterozygosity_stddev, :observed_heterozygosity
	)
	ON CONFLICT(run_id, cycle, chromosome) DO UPDATE SET
		individuals = excluded.individuals,
		loci = excluded.loci,
		mean_alleles = excluded.mean_alleles,
		expected_heterozygosity = excluded.expected_heterozygosity,
		heterozygosity_stddev = excluded.heterozygosity_stddev,
		observed_heterozygosity = excluded.observed_heterozygosity
`

func (s *SQLiteStore) GetCycleSummaries(ctx context.Context, runID string) ([]model.CycleSummary, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, false, err
	}

	var summaries []model.CycleSummary
	err = db.SelectContext(ctx, &summaries, `
		SELECT cycle, individuals, chromosome, loci, mean_alleles,
			expected_heterozygosity, heterozygosity_stddev, observed_heterozygosity
		FROM cycle_summaries
		WHERE run_id = ?
		ORDER BY cycle ASC, rowid ASC
	`, runID)
	if err != nil {
		return nil, false, err
	}
	if len(summaries) == 0 {
		return nil, false, nil
	}
	return summaries, true, nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sqlx.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, ErrNotInitialized
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			created_at_utc TEXT NOT NULL,
			schema_version INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS populations (
			run_id TEXT NOT NULL,
			cycle INTEGER NOT NULL,
			payload BLOB NOT NULL,
			PRIMARY KEY (run_id, cycle)
		);
		CREATE TABLE IF NOT EXISTS cycle_summaries (
			run_id TEXT NOT NULL,
			cycle INTEGER NOT NULL,
			individuals INTEGER NOT NULL,
			chromosome TEXT NOT NULL,
			loci INTEGER NOT NULL,
			mean_alleles REAL NOT NULL,
			expected_heterozygosity REAL NOT NULL,
			heterozygosity_stddev REAL NOT NULL,
			observed_heterozygosity REAL NOT NULL,
			PRIMARY KEY (run_id, cycle, chromosome)
		);
	`)
	return err
}
