package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/perfa/internal/report"
	"github.com/wonny/perfa/internal/scheduler"
	"github.com/wonny/perfa/internal/scheduler/jobs"
	"github.com/wonny/perfa/pkg/config"
	"github.com/wonny/perfa/pkg/database"
	"github.com/wonny/perfa/pkg/logger"
	"github.com/wonny/perfa/pkg/redis"
)

// scheduleCmd represents the schedule command
var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the report scheduler daemon",
	Long: `Starts the scheduler and registers the nightly report
regeneration job.

Registered jobs:
- report_regeneration: rebuilds snapshots and the full report after the
  daily price data settles (REPORT_CRON_SPEC, default 18:30)

The scheduler stops on Ctrl+C.

Example:
  go run ./cmd/perfa schedule
  go run ./cmd/perfa schedule --now`,
	RunE: runSchedule,
}

var scheduleNow bool

func init() {
	rootCmd.AddCommand(scheduleCmd)

	// Flags
	scheduleCmd.Flags().BoolVar(&scheduleNow, "now", false, "run the report job immediately on startup")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	fmt.Println("=== perfa Scheduler ===")

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Initialize logger
	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Env: cfg.Env})

	// 3. Connect to database
	db, err := database.New(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	// 4. Optional redis cache
	var cache *redis.Cache
	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, continuing without cache")
	} else if redisClient.Enabled() {
		defer redisClient.Close()
		cache = redis.NewCache(redisClient, "perfa")
	}

	// 5. Create pipeline and register the job
	pipeline := report.NewPipeline(cfg, report.NewRepository(db.Pool), cache, log)

	sched := scheduler.New(log)
	reportJob := jobs.NewReportJob(pipeline, cfg.ReportCronSpec, log)
	if err := sched.AddJob(reportJob); err != nil {
		return fmt.Errorf("register report job: %w", err)
	}

	sched.Start()
	defer sched.Stop()

	if scheduleNow {
		if err := sched.RunJob(reportJob.Name()); err != nil {
			return fmt.Errorf("run report job: %w", err)
		}
	}

	fmt.Printf("\nScheduler running (report job: %s)\n", cfg.ReportCronSpec)
	fmt.Println("Press Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	return nil
}
