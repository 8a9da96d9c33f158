package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"

	"genosim/internal/config"
	"genosim/internal/storage"
	"genosim/pkg/genosim"
)

const (
	defaultDBPath = "genosim.db"
	exportsDir    = "exports"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "run":
		return runRun(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "summaries":
		return runSummaries(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", "", "simulation config YAML; embedded defaults when empty")
	storeKind := fs.String("store", "", "store backend: memory|sqlite (default from config)")
	dbPath := fs.String("db-path", "", "sqlite database path (default from config)")
	cycles := fs.Int("cycles", 0, "number of cycles to run")
	seed := fs.Int64("seed", 0, "random seed")
	pop := fs.Int("pop", 0, "initial population size")
	offspring := fs.Int("offspring", 0, "offspring produced per cycle")
	capacity := fs.Int("capacity", 0, "population capacity, 0 disables")
	csvPath := fs.String("csv", "", "write per-cycle diversity summaries to this CSV file")
	saveConfig := fs.String("save-config", "", "write the effective config YAML to this path")
	verbosity := fs.Int("v", 0, "log verbosity")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "cycles":
			cfg.Simulation.Cycles = *cycles
		case "seed":
			cfg.Simulation.Seed = *seed
		case "pop":
			cfg.Population.InitialSize = *pop
		case "offspring":
			cfg.Simulation.OffspringPerCycle = *offspring
		case "capacity":
			cfg.Simulation.Capacity = *capacity
		case "store":
			cfg.Store.Kind = *storeKind
		case "db-path":
			cfg.Store.DBPath = *dbPath
		}
	})
	if err := cfg.Validate(); err != nil {
		return err
	}
	if *saveConfig != "" {
		if err := cfg.WriteYAML(*saveConfig); err != nil {
			return err
		}
	}

	client, err := genosim.New(genosim.Options{
		StoreKind: cfg.Store.Kind,
		DBPath:    cfg.Store.DBPath,
		Logger:    newLogger(*verbosity),
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Run(ctx, genosim.RunRequest{Config: cfg, CSVPath: *csvPath})
	if err != nil {
		return err
	}

	fmt.Printf("run_id=%s species=%s final_cycle=%d individuals=%d\n",
		summary.RunID,
		cfg.Species.Name,
		summary.FinalCycle,
		summary.FinalIndividuals,
	)
	for _, s := range summary.Diversity {
		fmt.Printf("chromosome=%s loci=%d mean_alleles=%.3f he=%.4f he_sd=%.4f ho=%.4f\n",
			s.Chromosome,
			s.Loci,
			s.MeanAlleles,
			s.ExpectedHeterozygosity,
			s.HeterozygosityStdDev,
			s.ObservedHeterozygosity,
		)
	}
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	limit := fs.Int("limit", 20, "max runs to list")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	client, err := genosim.New(genosim.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	runs, err := client.Runs(ctx, *limit)
	if err != nil {
		return err
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}
	for _, r := range runs {
		fmt.Printf("run_id=%s created_at=%s species=%s seed=%d initial=%d cycles=%d final_cycle=%d final_individuals=%d\n",
			r.ID,
			r.CreatedAtUTC,
			r.Species,
			r.Seed,
			r.InitialSize,
			r.Cycles,
			r.FinalCycle,
			r.FinalIndividuals,
		)
	}
	return nil
}

func runSummaries(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("summaries", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show the most recent run")
	limit := fs.Int("limit", 0, "show only the last N rows, 0 for all")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := checkRunSelection(*runID, *latest); err != nil {
		return err
	}

	client, err := genosim.New(genosim.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summaries, err := client.Summaries(ctx, genosim.SummariesRequest{RunID: *runID, Latest: *latest, Limit: *limit})
	if err != nil {
		return err
	}
	for _, s := range summaries {
		fmt.Printf("cycle=%d individuals=%d chromosome=%s loci=%d mean_alleles=%.3f he=%.4f he_sd=%.4f ho=%.4f\n",
			s.Cycle,
			s.Individuals,
			s.Chromosome,
			s.Loci,
			s.MeanAlleles,
			s.ExpectedHeterozygosity,
			s.HeterozygosityStdDev,
			s.ObservedHeterozygosity,
		)
	}
	return nil
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "export the most recent run")
	outDir := fs.String("out", exportsDir, "export output directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := checkRunSelection(*runID, *latest); err != nil {
		return err
	}

	client, err := genosim.New(genosim.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	exportedDir, err := client.Export(ctx, genosim.ExportRequest{RunID: *runID, Latest: *latest, OutDir: *outDir})
	if err != nil {
		return err
	}
	fmt.Printf("exported to=%s\n", filepath.Clean(exportedDir))
	return nil
}

func checkRunSelection(runID string, latest bool) error {
	if runID != "" && latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if runID == "" && !latest {
		return errors.New("requires --run-id or --latest")
	}
	return nil
}

func newLogger(verbosity int) logr.Logger {
	stdr.SetVerbosity(verbosity)
	return stdr.New(log.New(os.Stderr, "", log.LstdFlags)).WithName("genosimctl")
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: genosimctl <run|runs|summaries|export> [flags]", msg)
}
