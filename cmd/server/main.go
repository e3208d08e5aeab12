package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/franckalain/caloriesense/internal/config"
	"github.com/franckalain/caloriesense/internal/gate"
	"github.com/franckalain/caloriesense/internal/gate/mobilenet"
	"github.com/franckalain/caloriesense/internal/logging"
	"github.com/franckalain/caloriesense/internal/ml"
	"github.com/franckalain/caloriesense/internal/pipeline"
	"github.com/franckalain/caloriesense/internal/server"
)

// Version is the application version.
const Version = "0.1.0"

var configPath string

var rootCmd = &cobra.Command{
	Use:          "caloriesense",
	Short:        "Food photo nutrition estimates and calorie analytics",
	Version:      Version,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "", "path to configuration file (default: $CALORIESENSE_CONFIG, config/config.json or config.json)")
}

func main() {
	// Stop on Ctrl+C or SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logging.New(cfg.Server.Mode)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logging.Sync(log)

	log.Info("starting caloriesense", zap.String("version", Version))

	foodGate, closeGate := loadGate(cfg.Gate, log)
	defer closeGate.Close()

	models, err := ml.NewModels(ctx, cfg.ML, log)
	if err != nil {
		return fmt.Errorf("failed to create models: %w", err)
	}
	defer models.Close()

	svc := pipeline.New(foodGate, models.Estimator, models.Coach, models.Lookup, log)

	gin.SetMode(cfg.Server.Mode)
	srv := server.New(svc, cfg.Server, log)
	return srv.Start(ctx)
}

type noopCloser struct{}

func (noopCloser) Close() error { return nil }

// loadGate makes the single attempt at loading the food classifier. Any
// failure leaves the gate unavailable for the life of the process.
func loadGate(cfg config.GateConfig, log *zap.Logger) (*gate.Gate, io.Closer) {
	if cfg.ModelPath == "" {
		log.Warn("no food classifier configured, food gate disabled")
		return gate.NewUnavailable(log), noopCloser{}
	}

	classifier, err := mobilenet.Load(mobilenet.Config{
		ModelPath:  cfg.ModelPath,
		LabelsPath: cfg.LabelsPath,
		Workers:    cfg.Workers,
		Preprocess: mobilenet.Preprocess{
			Mean: [3]float64(cfg.Mean),
			Std:  [3]float64(cfg.Std),
		},
	})
	if err != nil {
		log.Warn("failed to load food classifier, food gate disabled", zap.Error(err))
		return gate.NewUnavailable(log), noopCloser{}
	}

	log.Info("food classifier loaded",
		zap.String("model", cfg.ModelPath),
		zap.Int("workers", cfg.Workers))
	return gate.New(classifier, log), classifier
}
