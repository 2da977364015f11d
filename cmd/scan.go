package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dispatchly/ghostload/internal/fleet"
	"github.com/dispatchly/ghostload/internal/insertion"
	"github.com/dispatchly/ghostload/internal/matching"
	"github.com/dispatchly/ghostload/internal/opportunity"
	"github.com/dispatchly/ghostload/internal/scanner"
	"github.com/dispatchly/ghostload/internal/source"
	"github.com/dispatchly/ghostload/pkg/config"
	json "github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run a single scan and match cycle",
	Long: `Runs one discovery cycle against the load board, analyzes the fetched
postings against the current fleet snapshot, and prints the ranked match
candidates as JSON. Useful for checking board and telemetry connectivity
without starting the full engine.`,
	RunE: runScanOnce,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(scanCmd)
}

func runScanOnce(cmd *cobra.Command, args []string) error {
	// Optional .env for local development
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	registry := opportunity.NewRegistry(&opportunity.RegistryConfig{
		CostPerMile: cfg.TotalCostPerMile,
		Logger:      logger,
	})

	adapter := source.NewClient(cfg.SourceBaseURL, cfg.SourceBatchLimit, cfg.SourceTimeout, logger)
	fleetClient := fleet.NewClient(cfg.FleetBaseURL, cfg.FleetTimeout, logger)

	analyzer := insertion.NewAnalyzer(insertion.Params{
		DetourSlackMiles:      cfg.DetourSlackMiles,
		DeadheadCapMiles:      cfg.DeadheadCapMiles,
		AvgSpeedMPH:           cfg.AvgSpeedMPH,
		FuelCostPerMile:       cfg.FuelCostPerMile,
		TotalCostPerMile:      cfg.TotalCostPerMile,
		RequireEquipmentMatch: cfg.RequireEquipmentMatch,
	}, logger)

	optimizer := matching.New(matching.Config{
		MinFeasibility:  cfg.MatchMinFeasibility,
		TopK:            cfg.MatchTopK,
		Workers:         cfg.MatchWorkers,
		SnapshotTimeout: cfg.FleetTimeout,
		Logger:          logger,
	}, registry, fleetClient, analyzer, matching.NewHeuristicAcceptance(time.Now().UnixNano()))

	scan := scanner.New(&scanner.Config{
		Adapter:       adapter,
		Registry:      registry,
		ScanInterval:  cfg.ScanInterval,
		SweepInterval: cfg.RetentionSweep,
		Retention:     cfg.RetentionWindow,
		SourceTimeout: cfg.SourceTimeout,
		Logger:        logger,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*cfg.SourceTimeout+cfg.FleetTimeout)
	defer cancel()

	err = scan.Scan(ctx)
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}

	optimizer.RunCycle(ctx)

	matches := optimizer.TopMatches()
	fmt.Fprintf(os.Stderr, "ranked %d match candidates from %d opportunities\n",
		len(matches), registry.Count())

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	err = enc.Encode(matches)
	if err != nil {
		return fmt.Errorf("encode matches: %w", err)
	}

	return nil
}
