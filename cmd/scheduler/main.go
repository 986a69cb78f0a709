// Package main is the entry point for the flowplane scheduler.
// It runs the trigger evaluation loop and the admin API in one process.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"flowplane/internal/config"
	"flowplane/internal/controller"
	"flowplane/internal/logger"
	"flowplane/internal/observability"
	"flowplane/internal/schedule"
	"flowplane/internal/scheduler"
	"flowplane/internal/store/postgres"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

func main() {
	// Parse flags
	migrateFlag := flag.Bool("migrate", false, "Run database migrations before starting")
	configPath := flag.String("config", "", "Path to config file (default: flowplane.yaml in current directory)")
	flag.Parse()

	// Load Config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	slogger := logger.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to Postgres
	pgStore, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer pgStore.Close()

	// Run migrations if requested
	if *migrateFlag {
		log.Println("Running database migrations...")
		if err := postgres.Migrate(pgStore.DB()); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("Migrations completed successfully")
	}

	// Tracing
	shutdownTracer, err := observability.InitTracer(ctx, "flowplane-scheduler", cfg.OTELEndpoint)
	if err != nil {
		log.Fatalf("Failed to init tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			log.Printf("Failed to shutdown tracer: %v", err)
		}
	}()

	// Metrics
	metricsHandler, shutdownMetrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatalf("Failed to init metrics: %v", err)
	}
	defer func() {
		if err := shutdownMetrics(context.Background()); err != nil {
			log.Printf("Failed to shutdown metrics: %v", err)
		}
	}()

	// Use an Observable Gauge (Async) that queries the DB only when scraped.
	meter := otel.Meter("flowplane-scheduler")
	_, err = meter.Int64ObservableGauge("flowplane.triggers.due",
		metric.WithDescription("Number of enabled triggers whose next date has passed"),
		metric.WithInt64Callback(func(ctx context.Context, obs metric.Int64Observer) error {
			var count int64
			row := pgStore.DB().QueryRowContext(ctx,
				"SELECT COUNT(*) FROM trigger_states WHERE disabled = FALSE AND next_date <= NOW()")
			if err := row.Scan(&count); err != nil {
				log.Printf("Failed to count due triggers: %v", err)
				return nil // Don't crash metrics scrape on DB error
			}
			obs.Observe(count)
			return nil
		}),
	)
	if err != nil {
		log.Printf("Failed to register due triggers metric: %v", err)
	}

	// Scheduler
	sched := scheduler.New(pgStore, pgStore, pgStore, schedule.NewTemplateRenderer(), slogger, scheduler.Config{
		Concurrency:  cfg.SchedulerConcurrency,
		PollInterval: cfg.SchedulerPollInterval,
		MaxBackoff:   cfg.SchedulerMaxBackoff,
		BatchSize:    cfg.SchedulerBatchSize,
	})

	// Register triggers for flows already in the store.
	if err := sched.SyncFlows(ctx, cfg.DefaultTenant); err != nil {
		log.Fatalf("Failed to sync flows: %v", err)
	}

	go func() {
		slogger.Info("scheduler loop starting")
		if err := sched.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("Scheduler stopped: %v", err)
		}
	}()

	// Admin API
	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	srv := controller.New(controller.Config{
		Addr:           addr,
		DefaultTenant:  cfg.DefaultTenant,
		RateLimit:      cfg.APIRateLimit,
		RateLimitBurst: cfg.APIRateLimitBurst,
	}, pgStore, sched, metricsHandler)

	go func() {
		log.Printf("FlowPlane Scheduler starting on %s", addr)
		if err := srv.Run(ctx); err != nil {
			log.Printf("Server stopped: %v", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down scheduler...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	select {
	case <-sched.Done():
	case <-shutdownCtx.Done():
		log.Println("Scheduler loop did not drain in time")
	}
	log.Println("Server exited properly")
}
