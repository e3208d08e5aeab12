// Package pipeline composes the decoder, the food gate and the remote models
// into the operations exposed by the transport.
package pipeline

import (
	"context"
	"errors"
	"strings"

	"github.com/franckalain/caloriesense/internal/analytics"
	"github.com/franckalain/caloriesense/internal/gate"
	"github.com/franckalain/caloriesense/internal/imaging"
	"github.com/franckalain/caloriesense/internal/ml"
	"github.com/franckalain/caloriesense/internal/models"
	"go.uber.org/zap"
)

// ErrEmptyFoodName is returned by LookupFood for a blank name.
var ErrEmptyFoodName = errors.New("food name is required")

// Service holds the components built at startup. It has no mutable state
// and is safe for concurrent use.
type Service struct {
	gate      *gate.Gate
	estimator ml.Estimator
	coach     ml.Coach
	lookup    ml.FoodLookup
	log       *zap.Logger
}

func New(g *gate.Gate, estimator ml.Estimator, coach ml.Coach, lookup ml.FoodLookup, log *zap.Logger) *Service {
	return &Service{
		gate:      g,
		estimator: estimator,
		coach:     coach,
		lookup:    lookup,
		log:       log,
	}
}

// AnalyzeImage decodes the upload, runs the advisory food gate and asks the
// estimator for a nutrition estimate. The gate never stops the estimate.
func (s *Service) AnalyzeImage(ctx context.Context, upload models.UploadedImage) (*models.NutritionEstimate, error) {
	img, err := imaging.Decode(upload)
	if err != nil {
		return nil, err
	}

	verdict := s.gate.Check(ctx, img)
	s.log.Debug("food gate checked",
		zap.Bool("skipped", verdict.Skipped),
		zap.Bool("is_food", verdict.IsFood),
		zap.String("format", img.Format()),
		zap.Int("width", img.Width()),
		zap.Int("height", img.Height()))

	est, err := s.estimator.Estimate(ctx, img)
	if err != nil {
		return nil, err
	}

	s.log.Info("image analyzed",
		zap.String("food", est.Name),
		zap.Int("calories", est.Calories),
		zap.Float64("protein", est.Protein),
		zap.Float64("carbs", est.Carbs),
		zap.Float64("fat", est.Fat))
	return est, nil
}

// GetInsight never fails; the coach replaces any problem with a fallback message.
func (s *Service) GetInsight(ctx context.Context, goal models.MacroGoal) models.InsightResponse {
	return models.InsightResponse{Insight: s.coach.Insight(ctx, goal)}
}

func (s *Service) ProcessAnalytics(_ context.Context, meals []models.MealEntry) (*models.AnalyticsResult, error) {
	return analytics.Process(meals)
}

// LookupFood estimates nutrition for a food given by name.
func (s *Service) LookupFood(ctx context.Context, name string) (*models.NutritionEstimate, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyFoodName
	}
	return s.lookup.Lookup(ctx, name)
}
