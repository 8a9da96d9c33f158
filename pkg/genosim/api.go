package genosim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"genosim/internal/config"
	"genosim/internal/model"
	"genosim/internal/observe"
	"genosim/internal/ops"
	"genosim/internal/population"
	"genosim/internal/reproduction"
	"genosim/internal/sim"
	"genosim/internal/stats"
	"genosim/internal/storage"
)

const defaultDBPath = "genosim.db"

var ErrRunNotFound = errors.New("run not found")

type Options struct {
	StoreKind string
	DBPath    string
	Logger    logr.Logger
}

type Client struct {
	store  storage.Store
	logger logr.Logger
	events *observe.Broker[map[string]any]
}

type RunRequest struct {
	Config *config.Config
	RunID  string
	// CSVPath overrides Config.Output.CSVPath when set.
	CSVPath string
}

type RunSummary struct {
	RunID            string
	FinalCycle       int
	FinalIndividuals int
	Diversity        []model.CycleSummary
	AlleleCounts     stats.AlleleCounts
}

type SummariesRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}
	if err := store.Init(context.Background()); err != nil {
		_ = storage.CloseIfSupported(store)
		return nil, err
	}
	return &Client{
		store:  store,
		logger: opts.Logger,
		events: observe.NewBroker[map[string]any](),
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

// Subscribe registers fn to receive a copy of the simulation globals after every cycle of
// every run.
func (c *Client) Subscribe(fn func(map[string]any)) (unsubscribe func()) {
	return c.events.Subscribe(fn)
}

func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	cfg := req.Config
	if cfg == nil {
		var err error
		if cfg, err = config.Default(); err != nil {
			return RunSummary{}, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return RunSummary{}, err
	}
	layout, err := cfg.Layout()
	if err != nil {
		return RunSummary{}, err
	}

	runID := req.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	logger := c.logger.WithValues("run", runID)
	ctx = logr.NewContext(ctx, logger)

	rng := rand.New(rand.NewSource(cfg.Simulation.Seed))
	builder, err := population.NewBuilder(population.NewIDSource(0), rng)
	if err != nil {
		return RunSummary{}, err
	}
	engine, err := reproduction.NewEngine(builder)
	if err != nil {
		return RunSummary{}, err
	}

	species := &population.Species{Name: cfg.Species.Name, Layout: layout}
	chooser := population.RandomAllele(rng)
	if cfg.Population.InitialAlleles == "zero" {
		chooser = population.ZeroAllele
	}
	individuals, err := builder.Populate(species, cfg.Population.InitialSize, 0, chooser)
	if err != nil {
		return RunSummary{}, err
	}

	run := model.RunRecord{
		VersionedRecord: storage.CurrentVersion(),
		ID:              runID,
		Species:         species.Name,
		CreatedAtUTC:    time.Now().UTC().Format(model.TimestampLayout),
		Seed:            cfg.Simulation.Seed,
		InitialSize:     len(individuals),
		Cycles:          cfg.Simulation.Cycles,
	}
	if err := c.store.SaveRun(ctx, run); err != nil {
		return RunSummary{}, fmt.Errorf("save run: %w", err)
	}

	operators := []sim.Operator{ops.AssignSex{Builder: builder}}
	if cfg.Simulation.OffspringPerCycle > 0 {
		operators = append(operators, ops.Reproduce{Engine: engine, Offspring: cfg.Simulation.OffspringPerCycle})
	}
	if cfg.Simulation.MaxAge >= 0 {
		operators = append(operators, ops.CullByAge{MaxAge: cfg.Simulation.MaxAge})
	}
	if cfg.Simulation.Capacity > 0 {
		operators = append(operators, ops.CullToCapacity{Capacity: cfg.Simulation.Capacity, Rand: rng})
	}
	operators = append(operators,
		sim.StatisticsOperator{Statistic: stats.GenomeCount{}},
		sim.StatisticsOperator{Statistic: stats.Diversity{}},
		ops.RecordSummaries{Store: c.store, RunID: runID},
		ops.Persist{Store: c.store, RunID: runID, Every: cfg.Output.SnapshotEvery},
	)

	csvPath := cfg.Output.CSVPath
	if req.CSVPath != "" {
		csvPath = req.CSVPath
	}
	var csvFile *os.File
	if csvPath != "" {
		if err := os.MkdirAll(filepath.Dir(csvPath), 0o755); err != nil {
			return RunSummary{}, fmt.Errorf("creating output directory: %w", err)
		}
		csvFile, err = os.Create(csvPath)
		if err != nil {
			return RunSummary{}, fmt.Errorf("creating %s: %w", csvPath, err)
		}
		operators = append(operators, stats.NewCSVRecorder(csvFile))
	}
	operators = append(operators, ops.Publish{Broker: c.events})

	logger.Info("Starting run", "species", species.Name, "individuals", len(individuals), "cycles", cfg.Simulation.Cycles, "genomeSize", layout.Size())
	state, runErr := sim.DoNCycles(ctx, cfg.Simulation.Cycles, individuals, operators)
	if csvFile != nil {
		if err := csvFile.Close(); err != nil {
			runErr = errors.Join(runErr, fmt.Errorf("closing %s: %w", csvPath, err))
		}
	}
	if state == nil {
		return RunSummary{}, runErr
	}

	run.FinalCycle = state.Cycle
	run.FinalIndividuals = len(state.Individuals)
	if err := c.store.SaveRun(ctx, run); err != nil {
		return RunSummary{}, errors.Join(runErr, fmt.Errorf("save run: %w", err))
	}
	if err := c.store.SavePopulation(ctx, ops.Snapshot(runID, state)); err != nil {
		return RunSummary{}, errors.Join(runErr, fmt.Errorf("save final population: %w", err))
	}
	if runErr != nil {
		return RunSummary{}, runErr
	}
	logger.Info("Run complete", "finalCycle", state.Cycle, "individuals", len(state.Individuals))

	summary := RunSummary{
		RunID:            runID,
		FinalCycle:       state.Cycle,
		FinalIndividuals: len(state.Individuals),
	}
	summary.Diversity, _ = state.Globals[stats.Diversity{}.Name()].([]model.CycleSummary)
	summary.AlleleCounts, _ = state.Globals[stats.GenomeCount{}.Name()].(stats.AlleleCounts)
	return summary, nil
}

// Runs lists stored runs newest first, capped at limit when limit > 0.
func (c *Client) Runs(ctx context.Context, limit int) ([]model.RunRecord, error) {
	runs, err := c.store.ListRuns(ctx)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func (c *Client) Summaries(ctx context.Context, req SummariesRequest) ([]model.CycleSummary, error) {
	runID, err := c.resolveRunID(ctx, req.RunID, req.Latest)
	if err != nil {
		return nil, err
	}
	summaries, ok, err := c.store.GetCycleSummaries(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: no summaries for %s", ErrRunNotFound, runID)
	}
	if req.Limit > 0 && len(summaries) > req.Limit {
		summaries = summaries[len(summaries)-req.Limit:]
	}
	return summaries, nil
}

// Export writes the run record, its latest population snapshot, and its per-cycle
// summaries into OutDir/<run id>.
func (c *Client) Export(ctx context.Context, req ExportRequest) (string, error) {
	runID, err := c.resolveRunID(ctx, req.RunID, req.Latest)
	if err != nil {
		return "", err
	}
	run, ok, err := c.store.GetRun(ctx, runID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	outDir := req.OutDir
	if outDir == "" {
		outDir = "exports"
	}
	dir := filepath.Join(outDir, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating export directory: %w", err)
	}

	if err := writeJSON(filepath.Join(dir, "run.json"), run); err != nil {
		return "", err
	}
	if snapshot, ok, err := c.store.LatestPopulation(ctx, runID); err != nil {
		return "", err
	} else if ok {
		if err := writeJSON(filepath.Join(dir, "population.json"), snapshot); err != nil {
			return "", err
		}
	}
	summaries, _, err := c.store.GetCycleSummaries(ctx, runID)
	if err != nil {
		return "", err
	}
	if err := writeSummariesCSV(filepath.Join(dir, "summaries.csv"), summaries); err != nil {
		return "", err
	}
	return dir, nil
}

func writeSummariesCSV(path string, summaries []model.CycleSummary) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", path, closeErr)
		}
	}()
	return stats.NewCSVRecorder(f).Write(summaries)
}

func (c *Client) resolveRunID(ctx context.Context, runID string, latest bool) (string, error) {
	if runID != "" {
		return runID, nil
	}
	if !latest {
		return "", errors.New("run id is required unless latest is set")
	}
	runs, err := c.store.ListRuns(ctx)
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "", fmt.Errorf("%w: no runs stored", ErrRunNotFound)
	}
	return runs[0].ID, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
