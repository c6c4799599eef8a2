package main

import (
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"firedetect/config"
	"firedetect/db"
	"firedetect/errs"
	qhttp "firedetect/http"
	"firedetect/logging"
	"firedetect/ml"
	"firedetect/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the service configuration")
	flag.Parse()

	// 1. Load config
	cfg, err := config.Load(config.ResolvePath(*configPath))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	// 2. Load model and schema; the service never starts without both
	schema, err := cfg.Schema()
	if err != nil {
		logger.Fatal("invalid predictor schema", zap.Error(err))
	}
	model, err := ml.LoadModel(cfg.ProductionModelPath)
	if err == nil {
		err = ml.CheckFeatureNames(model, cfg.Predictors)
	}
	if err != nil {
		if errors.Is(err, errs.ErrModelUnavailable) {
			logger.Fatal("model unavailable", zap.String("path", cfg.ProductionModelPath), zap.Error(err))
		}
		logger.Fatal("failed to load model", zap.Error(err))
	}
	logger.Info("model loaded",
		zap.String("type", model.Type),
		zap.String("path", cfg.ProductionModelPath))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts := []service.Option{
		service.WithLogger(logger),
		service.WithMetrics(service.NewMetrics(reg)),
	}

	// 3. Optional prediction journal
	var journal qhttp.JournalReader
	if cfg.Database.Path != "" {
		store, err := db.Open(cfg.Database.Path)
		if err != nil {
			logger.Fatal("failed to open prediction journal", zap.Error(err))
		}
		defer store.Close()
		opts = append(opts, service.WithJournal(store))
		journal = store
		logger.Info("prediction journal enabled", zap.String("path", cfg.Database.Path))
	}

	predictor, err := service.NewPredictor(schema, model, opts...)
	if err != nil {
		logger.Fatal("failed to build predictor", zap.Error(err))
	}

	// 4. Start HTTP server
	handlers := qhttp.NewHandlers(predictor, journal, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), logger)
	server := qhttp.NewServer(qhttp.ServerConfig{
		Host:         cfg.Http.Host,
		Port:         cfg.Http.Port,
		Timeout:      cfg.Http.Timeout,
		MaxBodyBytes: cfg.Http.MaxBodyBytes,
	}, handlers, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// 5. Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			logger.Error("http server failed", zap.Error(err))
		}
	}

	if err := server.Stop(); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("exiting")
}
