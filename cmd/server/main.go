package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/Brownie44l1/deepeye-api/internal/config"
	"github.com/Brownie44l1/deepeye-api/internal/diagnosis"
	"github.com/Brownie44l1/deepeye-api/internal/handlers"
	"github.com/Brownie44l1/deepeye-api/internal/logging"
	"github.com/Brownie44l1/deepeye-api/internal/model"
	"github.com/Brownie44l1/deepeye-api/internal/predict"
	"github.com/Brownie44l1/deepeye-api/internal/preprocess"
	"github.com/Brownie44l1/deepeye-api/internal/routes"
)

func main() {
	addrFlag := flag.String("addr", "", "HTTP listen address (overrides config)")
	configPath := flag.String("config", "deepeye.yaml", "Path to DeepEye config file")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: failed to read .env: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *addrFlag != "" {
		cfg.Server.Addr = *addrFlag
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger, err := logging.New(cfg.Logging, os.Stderr)
	if err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}
	reporter, err := logging.NewReporter(cfg.Logging.SentryDSN)
	if err != nil {
		logger.WithError(err).Warn("error reporting disabled")
		reporter = logging.NopReporter()
	}

	if cfg.Server.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	logger.Info("Starting DeepEye API...")

	layout, err := model.ParseLayout(cfg.Models.Layout)
	if err != nil {
		logger.WithError(err).Fatal("Invalid model layout")
	}
	pre := preprocess.New(cfg.Models.ImageSize, layout)
	pre.MaxPixels = cfg.Models.MaxImagePixels

	registry := model.Load(cfg.Models, onnxLoader(cfg, layout, logger), logger)
	defer func() {
		if err := registry.Close(); err != nil {
			logger.WithError(err).Warn("failed to release models")
		}
		model.ShutdownRuntime()
	}()

	service := predict.NewService(registry, pre, predict.Options{
		Interpret: diagnosis.Options{
			NormalDiseaseName:  cfg.Response.NormalDiseaseName,
			OmitPredictedClass: !cfg.Response.PredictedClassEnabled(),
		},
		MaxConcurrentInferences: cfg.Runtime.MaxConcurrentInferences,
	}, logger)

	handler := handlers.NewHandler(service, registry, cfg.Server.MaxUploadBytes, reporter, logger)
	router := routes.SetupRoutes(handler, cfg.Server, logger, reporter)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.WithFields(logrus.Fields{
			"addr":          cfg.Server.Addr,
			"models_loaded": registry.Status(),
		}).Info("Server starting")
		logger.Info("Endpoints: GET / | GET /health | POST /predict | POST /predict/ensemble")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("Server failed")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("Graceful shutdown failed")
	}
}

// onnxLoader initializes onnxruntime lazily so that a missing runtime only
// disables the slots whose files exist, never the process.
func onnxLoader(cfg *config.Config, layout model.Layout, logger logrus.FieldLogger) model.Loader {
	load := model.ONNXLoader(layout.Shape(cfg.Models.ImageSize), len(diagnosis.Labels))
	libPath := model.ResolveSharedLibraryPath(cfg.Runtime.SharedLibraryPath, cfg.Models.Dir)

	return func(path string, slot config.SlotConfig) (model.Model, error) {
		if err := model.InitRuntime(libPath); err != nil {
			return nil, err
		}
		logger.WithField("library", libPath).Debug("onnxruntime ready")
		return load(path, slot)
	}
}
