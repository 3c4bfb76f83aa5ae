package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/perfa/internal/report"
	"github.com/wonny/perfa/pkg/config"
	"github.com/wonny/perfa/pkg/database"
	"github.com/wonny/perfa/pkg/logger"
	"github.com/wonny/perfa/pkg/redis"
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run the full analysis over the ledger",
	Long: `Loads the transaction ledger, price table, and optional benchmark
and industry files, builds the daily snapshot series, and computes the
per-horizon metric and attribution tables.

This command:
- builds daily positions, cash, and NAV from the ledger
- computes risk/return metrics per horizon (inception, 1y, 6m, 3m, 1m)
- decomposes excess return with Brinson attribution
- prints a summary table, optionally writes JSON and/or persists to DB

Example:
  go run ./cmd/perfa analyze
  go run ./cmd/perfa analyze --out report.json
  go run ./cmd/perfa analyze --persist`,
	RunE: runAnalyze,
}

var (
	analyzeOut     string
	analyzePersist bool
)

func init() {
	rootCmd.AddCommand(analyzeCmd)

	// Flags
	analyzeCmd.Flags().StringVar(&analyzeOut, "out", "", "write the full report as JSON to this path")
	analyzeCmd.Flags().BoolVar(&analyzePersist, "persist", false, "save snapshots and report to the database")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	fmt.Println("=== perfa analyze ===")

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Initialize logger
	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Env: cfg.Env})

	// 3. Optional persistence and cache
	var repo *report.Repository
	if analyzePersist {
		db, err := database.New(cfg.Database)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer db.Close()
		repo = report.NewRepository(db.Pool)
		log.Info("Connected to database")
	}

	var cache *redis.Cache
	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, continuing without cache")
	} else if redisClient.Enabled() {
		defer redisClient.Close()
		cache = redis.NewCache(redisClient, "perfa")
	}

	// 4. Run the pipeline with cancellation on Ctrl+C
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pipeline := report.NewPipeline(cfg, repo, cache, log)
	rpt, err := pipeline.Run(ctx)
	if err != nil {
		return err
	}

	// 5. Print the horizon table
	printSummary(rpt)

	// 6. Optional JSON output
	if analyzeOut != "" {
		doc, err := json.MarshalIndent(rpt, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal report: %w", err)
		}
		if err := os.WriteFile(analyzeOut, doc, 0o644); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		fmt.Printf("\nReport written to %s\n", analyzeOut)
	}

	return nil
}

func printSummary(rpt *report.Report) {
	fmt.Printf("\nPeriod: %s .. %s  (%d snapshots",
		rpt.StartDate.Format("2006-01-02"), rpt.EndDate.Format("2006-01-02"), len(rpt.Snapshots))
	if rpt.Truncated {
		fmt.Print(", truncated")
	}
	fmt.Println(")")
	if rpt.BenchmarkName != "" {
		fmt.Printf("Benchmark: %s\n", rpt.BenchmarkName)
	}

	fmt.Printf("\n%-10s %10s %10s %8s %8s %8s %8s %8s\n",
		"horizon", "return%", "annual%", "vol%", "mdd%", "sharpe", "beta", "excess")
	for _, hr := range rpt.Horizons {
		m := hr.Metrics
		var excess float64
		if hr.Brinson != nil {
			excess = hr.Brinson.TotalExcess * 100
		}
		fmt.Printf("%-10s %10.2f %10.2f %8.2f %8.2f %8.2f %8.2f %8.2f\n",
			hr.Horizon.Name, m.PeriodReturn, m.AnnualizedReturn,
			m.Volatility, m.MaxDrawdown, m.Sharpe, m.Beta, excess)
	}

	if last := len(rpt.Snapshots); last > 0 {
		s := rpt.Snapshots[last-1]
		fmt.Printf("\nLatest NAV %.6f  total %.4f  stock %.4f  cash %.4f\n",
			s.NAV, s.TotalAssets, s.StockValue, s.Cash)
	}
}
