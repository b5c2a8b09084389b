package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"demand-forecast-service/internal/adapters/primary/http/handlers"
	"demand-forecast-service/internal/adapters/primary/http/middleware"
	"demand-forecast-service/internal/adapters/secondary/fsregistry"
	"demand-forecast-service/internal/adapters/secondary/postgres"
	"demand-forecast-service/internal/adapters/secondary/purchasesale"
	"demand-forecast-service/internal/config"
	ports "demand-forecast-service/internal/core/ports/output"
	"demand-forecast-service/internal/core/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	initLogger(cfg)

	// Storage backend selection happens once, at process start: a configured
	// database gets the Postgres registry plus feature/prediction stores,
	// otherwise the service runs on the filesystem registry alone.
	var (
		pool            *pgxpool.Pool
		registry        ports.ModelRegistry
		featureStore    ports.FeatureStore
		predictionStore ports.PredictionStore
	)

	if cfg.Database.Enabled() {
		poolCfg, err := pgxpool.ParseConfig(cfg.Database.DSN())
		if err != nil {
			log.Fatalf("parse db config: %v", err)
		}
		poolCfg.MaxConns = int32(cfg.Database.MaxOpenConns)
		poolCfg.MinConns = int32(cfg.Database.MaxIdleConns)
		poolCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime

		pool, err = pgxpool.NewWithConfig(context.Background(), poolCfg)
		if err != nil {
			log.Fatalf("create db pool: %v", err)
		}
		defer pool.Close()

		if err := pool.Ping(context.Background()); err != nil {
			log.Fatalf("ping db: %v", err)
		}
		log.Info("database connection established")

		if cfg.Database.AutoCreate {
			if err := postgres.EnsureSchema(context.Background(), pool); err != nil {
				log.Fatalf("ensure schema: %v", err)
			}
		}

		registry = postgres.NewModelArtifactRepository(pool, cfg.Model.Name)
		featureStore = postgres.NewTrainingFeatureRepository(pool)
		predictionStore = postgres.NewPredictionRepository(pool)
	} else {
		registry = fsregistry.New(cfg.Model.Dir, cfg.Model.Name)
		log.WithField("dir", cfg.Model.Dir).Info("database not configured, using filesystem registry")
	}

	// Upstream collaborators
	contractClient := purchasesale.NewContractClient(cfg.Upstream.PurchaseSaleURL, cfg.Upstream.Timeout, cfg.Upstream.InternalKey)
	vehicleClient := purchasesale.NewVehicleClient(cfg.Upstream.VehicleURL, cfg.Upstream.Timeout, cfg.Upstream.InternalKey)
	loader := purchasesale.NewLoader(contractClient, vehicleClient)

	// Core services
	builder := services.NewFeatureBuilder()
	trainer := services.NewTrainingService(builder, registry, featureStore, cfg.Model.MinHistoryMonths, cfg.Model.TestFraction)
	forecaster := services.NewForecaster(builder)
	predictionSvc := services.NewPredictionService(loader, trainer, forecaster, registry, featureStore, predictionStore, cfg.Model.DefaultHorizonMonths)

	// HTTP surface
	h := handlers.New(predictionSvc)

	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Logging(), gin.Recovery())

	api := router.Group("/api/v1/ml")
	h.RegisterRoutes(api)

	router.GET("/healthz", func(c *gin.Context) {
		if pool != nil {
			if err := pool.Ping(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Infof("starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server forced shutdown: %v", err)
	}

	log.Info("server stopped")
}

func initLogger(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.Logger.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Logger.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}
