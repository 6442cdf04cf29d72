package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"avaliar/appraisal-backend/internal/config"
	"avaliar/appraisal-backend/internal/samples"
	"avaliar/appraisal-backend/internal/workers"
)

func main() {
	configPath := flag.String("config", "config.json", "path to the JSON config file")
	once := flag.Bool("once", false, "purge once and exit")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if cfg.Database.Disabled {
		logger.Fatal("The sample janitor needs a database; unset DATABASE_DISABLED")
	}

	db, err := sqlx.Connect("postgres", cfg.Database.GetDatabaseURL())
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("Connected to database", zap.String("host", cfg.Database.Host), zap.String("db", cfg.Database.DBName))

	service := samples.NewService(samples.NewPostgresRepository(db), logger.Named("samples"))
	janitor, err := workers.NewJanitor(service, cfg.Workers.JanitorSchedule, cfg.Workers.MaxSampleAge, logger.Named("janitor"))
	if err != nil {
		logger.Fatal("Failed to create janitor", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *once {
		if _, err := janitor.RunOnce(ctx); err != nil {
			logger.Fatal("Sample purge failed", zap.Error(err))
		}
		return
	}

	if err := janitor.Start(); err != nil {
		logger.Fatal("Failed to start janitor", zap.Error(err))
	}

	<-ctx.Done()
	logger.Info("Shutdown signal received")
	janitor.Stop()
	logger.Info("Workers stopped")
}
