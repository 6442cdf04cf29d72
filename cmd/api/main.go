package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	v1 "avaliar/appraisal-backend/api/v1"
	"avaliar/appraisal-backend/internal/appraisals"
	"avaliar/appraisal-backend/internal/config"
	"avaliar/appraisal-backend/internal/locations"
	"avaliar/appraisal-backend/internal/samples"
	"avaliar/appraisal-backend/internal/valuation"
	"avaliar/appraisal-backend/pkg/storage"
)

func main() {
	configPath := flag.String("config", "config.json", "path to the JSON config file")
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Repositories
	local := samples.NewMemoryRepository()
	if cfg.Database.SamplesFile != "" {
		local, err = samples.LoadMemoryRepository(cfg.Database.SamplesFile)
		if err != nil {
			logger.Fatal("Failed to load samples file", zap.Error(err))
		}
		logger.Info("Local sample store seeded", zap.String("file", cfg.Database.SamplesFile))
	}

	var (
		sampleRepo    samples.Repository = local
		appraisalRepo appraisals.Repository
	)
	if cfg.Database.Disabled {
		logger.Warn("Database disabled, running on in-memory stores")
		appraisalRepo = appraisals.NewMemoryRepository()
	} else {
		db, gormDB, err := connectDatabase(ctx, cfg.Database)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()

		postgresSamples := samples.NewPostgresRepository(db)
		if err := postgresSamples.Migrate(ctx); err != nil {
			logger.Fatal("Failed to migrate samples", zap.Error(err))
		}
		gormAppraisals := appraisals.NewGormRepository(gormDB)
		if err := gormAppraisals.Migrate(); err != nil {
			logger.Fatal("Failed to migrate appraisals", zap.Error(err))
		}

		sampleRepo = samples.NewFallbackRepository(postgresSamples, local, logger.Named("samples"))
		appraisalRepo = gormAppraisals
		logger.Info("Connected to database", zap.String("host", cfg.Database.Host), zap.String("db", cfg.Database.DBName))
	}

	resolver, closeResolver, err := buildResolver(cfg.Locations, logger.Named("locations"))
	if err != nil {
		logger.Fatal("Failed to set up neighbor resolution", zap.Error(err))
	}
	defer closeResolver()

	var archiver storage.Archiver = storage.NopArchiver{}
	if cfg.Storage.Enabled() {
		s3Archiver, err := storage.NewS3Archiver(ctx, storage.S3Options{
			Bucket:    cfg.Storage.S3Bucket,
			Region:    cfg.Storage.S3Region,
			Prefix:    cfg.Storage.S3Prefix,
			AccessKey: cfg.Storage.S3AccessKey,
			SecretKey: cfg.Storage.S3SecretKey,
		})
		if err != nil {
			logger.Fatal("Failed to set up report archive", zap.Error(err))
		}
		archiver = s3Archiver
		logger.Info("Report archive enabled", zap.String("bucket", cfg.Storage.S3Bucket))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	api := v1.SetupAPI(v1.Dependencies{
		Samples:    sampleRepo,
		Appraisals: appraisalRepo,
		Resolver:   resolver,
		Archiver:   archiver,
		Registerer: registry,
		Valuation:  cfg.Valuation,
		Logger:     logger,
	})

	// Setup Router
	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	v1.RegisterRoutes(router.Group("/api/v1"), api)

	srv := &http.Server{
		Addr:         cfg.Server.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.String("addr", srv.Addr))

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exiting")
}

// connectDatabase opens the sqlx pool used by the sample store and the gorm
// handle used for appraisal snapshots.
func connectDatabase(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, *gorm.DB, error) {
	dsn := cfg.GetDatabaseURL()

	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, nil, err
	}
	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MaxLifetime)

	gormDB, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to open gorm connection: %w", err)
	}
	return db, gormDB, nil
}

// buildResolver chains the static adjacency table with the model-backed
// resolver, whichever are configured. It returns a nil resolver when neither
// is.
func buildResolver(cfg config.LocationsConfig, logger *zap.Logger) (valuation.NeighborResolver, func(), error) {
	var resolvers []valuation.NeighborResolver
	closeFn := func() {}

	if cfg.NeighborsFile != "" {
		static, err := locations.LoadStaticResolver(cfg.NeighborsFile)
		if err != nil {
			return nil, closeFn, err
		}
		resolvers = append(resolvers, static)
	}

	if cfg.AnthropicAPIKey != "" {
		model, err := locations.NewAnthropicResolver(cfg.AnthropicAPIKey, cfg.AnthropicModel, logger)
		if err != nil {
			return nil, closeFn, err
		}
		cached := locations.NewCachedResolver(model, cfg.CacheTTL, logger)
		closeFn = cached.Stop
		resolvers = append(resolvers, cached)
	}

	switch len(resolvers) {
	case 0:
		logger.Warn("No neighbor resolver configured; the neighboring-municipality tier is disabled")
		return nil, closeFn, nil
	case 1:
		return resolvers[0], closeFn, nil
	default:
		return locations.NewChainResolver(logger, resolvers...), closeFn, nil
	}
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("Request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
