package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/perfa/internal/api"
	"github.com/wonny/perfa/internal/api/handlers"
	"github.com/wonny/perfa/internal/report"
	"github.com/wonny/perfa/pkg/config"
	"github.com/wonny/perfa/pkg/database"
	"github.com/wonny/perfa/pkg/logger"
	"github.com/wonny/perfa/pkg/redis"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the analytics API server",
	Long: `Starts the REST API server over the stored reports.

Endpoints:
  GET  /health                     - Health check
  GET  /api/v1/reports/{horizon}   - Per-horizon metrics and attribution
  GET  /api/v1/nav                 - NAV, cumulative return, drawdown series
  GET  /api/v1/attribution         - Attribution tables (?horizon=inception)

Example:
  go run ./cmd/perfa serve
  go run ./cmd/perfa serve --port 8090`,
	RunE: runServe,
}

var servePort string

func init() {
	rootCmd.AddCommand(serveCmd)

	// Flags
	serveCmd.Flags().StringVar(&servePort, "port", "", "API server port (defaults to PORT)")
}

func runServe(cmd *cobra.Command, args []string) error {
	fmt.Println("=== perfa API Server ===")

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if servePort != "" {
		cfg.Port = servePort
	}

	// 2. Initialize logger
	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Env: cfg.Env})

	log.WithFields(map[string]interface{}{
		"port": cfg.Port,
		"env":  cfg.Env,
	}).Info("Initializing API server")

	// 3. Connect to database
	db, err := database.New(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	log.Info("Connected to database")

	// 4. Optional redis cache
	var cache *redis.Cache
	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, continuing without cache")
	} else if redisClient.Enabled() {
		defer redisClient.Close()
		cache = redis.NewCache(redisClient, "perfa")
	}

	// 5. Create handler and router
	repo := report.NewRepository(db.Pool)
	reportHandler := handlers.NewReportHandler(repo, cache, log)
	router := api.NewRouter(reportHandler, log)

	// 6. Start server with graceful shutdown
	server := api.New(cfg, log, router)
	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	log.Info("API server started successfully")
	fmt.Printf("\nServer running on http://localhost:%s\n", cfg.Port)
	fmt.Println("\nAvailable endpoints:")
	fmt.Println("  GET  /health")
	fmt.Println("  GET  /api/v1/reports/{horizon}")
	fmt.Println("  GET  /api/v1/nav")
	fmt.Println("  GET  /api/v1/attribution")
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
