package ml

import (
	"context"
	"fmt"

	"github.com/franckalain/caloriesense/internal/imaging"
	"github.com/franckalain/caloriesense/internal/models"
	"go.uber.org/zap"
)

// Estimator turns a food photo into a nutrition estimate
type Estimator interface {
	Estimate(ctx context.Context, img *imaging.Image) (*models.NutritionEstimate, error)
}

// Coach writes a short motivational tip. Implementations never fail: any
// problem is replaced by a fixed fallback message.
type Coach interface {
	Insight(ctx context.Context, goal models.MacroGoal) string
}

// FoodLookup estimates nutrition for a food given by name
type FoodLookup interface {
	Lookup(ctx context.Context, name string) (*models.NutritionEstimate, error)
}

// Models bundles the strategies selected once at startup
type Models struct {
	Backend   string // "google" or "mock"
	Estimator Estimator
	Coach     Coach
	Lookup    FoodLookup

	client *GoogleClient
}

// NewModels selects the remote or the mock implementations depending on
// whether credentials are configured.
func NewModels(ctx context.Context, cfg Config, log *zap.Logger) (*Models, error) {
	if !cfg.Google.HasCredentials() {
		log.Warn("GOOGLE_PROJECT_ID not found, returning mock data")
		return &Models{
			Backend:   "mock",
			Estimator: NewMockEstimator(log),
			Coach:     MockCoach{},
			Lookup:    MockFoodLookup{},
		}, nil
	}

	client, err := NewGoogleClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create google client: %w", err)
	}

	log.Info("using vertex ai models",
		zap.String("project_id", cfg.Google.ProjectID),
		zap.String("location", cfg.Google.Location),
		zap.String("vision_model", cfg.Google.VisionModel),
		zap.String("text_model", cfg.Google.TextModel))

	return &Models{
		Backend:   "google",
		Estimator: NewGoogleEstimator(client.VisionModel(), cfg.Timeout, log),
		Coach:     NewGoogleCoach(client.CoachModel(), cfg.Timeout, log),
		Lookup:    NewGoogleFoodLookup(client.LookupModel(), cfg.Timeout, log),
		client:    client,
	}, nil
}

// Close releases the remote client, if any.
func (m *Models) Close() error {
	if m.client == nil {
		return nil
	}
	return m.client.Close()
}
