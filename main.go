package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mymodels-api/apiv1"
	"mymodels-api/config"
	"mymodels-api/internal"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var configPath = flag.String("config", "", "path to a YAML config file")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := internal.NewLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	db, err := internal.OpenDatabase(cfg.Database, logger)
	if err != nil {
		return err
	}
	defer internal.CloseDatabase(db)

	if err := internal.NewDAO[apiv1.MyModel](db).AutoMigrate(); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	gin.SetMode(cfg.Server.Mode)
	router, err := newEngine(cfg, logger, db, reg)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}
	logger.Info("server exiting")
	return nil
}

// newEngine builds the HTTP handler with both endpoint styles mounted. reg
// may be nil when metrics are disabled.
func newEngine(cfg *config.Config, logger *zap.Logger, db *gorm.DB, reg *prometheus.Registry) (*gin.Engine, error) {
	router := gin.New()
	router.HandleMethodNotAllowed = true

	router.Use(ginzap.Ginzap(logger, time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(logger, true))
	router.Use(cors.Default())
	router.Use(internal.RequestID())

	if cfg.Metrics.Enabled && reg != nil {
		metrics, err := internal.NewMetrics(reg)
		if err != nil {
			return nil, err
		}
		router.Use(metrics.Handler())
		router.GET("/metrics", metrics.Expose())
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
	})
	router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"detail": fmt.Sprintf("Method %q not allowed.", c.Request.Method)})
	})
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	internal.RegisterResource[apiv1.MyModel](router, db, logger, cfg.Views.Path)
	internal.NewRouter[apiv1.MyModel](db, logger).Register(router, cfg.Views.ClassPath)

	return router, nil
}
