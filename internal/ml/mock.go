package ml

import (
	"context"
	"fmt"

	"github.com/franckalain/caloriesense/internal/imaging"
	"github.com/franckalain/caloriesense/internal/models"
	"go.uber.org/zap"
)

const (
	// MockInsight is returned when no credentials are configured.
	MockInsight = "Keep going! You're doing great! (Mock Insight - API Key missing)"
	// FallbackInsight is returned when the remote coach fails.
	FallbackInsight = "Stay consistent and hydrated! (Fallback Insight)"
)

// MockEstimate is the placeholder returned for every image when no
// credentials are configured. image is the data URI of the upload.
func MockEstimate(image string) *models.NutritionEstimate {
	return &models.NutritionEstimate{
		Name:         "Mock Apple",
		Calories:     95,
		Protein:      0,
		Carbs:        25,
		Fat:          0,
		Fiber:        4,
		Sugar:        19,
		Sodium:       1,
		ServingSize:  "1 medium",
		ServingSizes: []string{"1 medium", "1 cup slices"},
		Image:        image,
		Confidence:   models.ConfidenceHigh,
	}
}

// DefaultFoodEstimate is used for a name lookup whose reply could not be read.
func DefaultFoodEstimate(name string) *models.NutritionEstimate {
	return &models.NutritionEstimate{
		Name:         name,
		Calories:     200,
		Protein:      5,
		Carbs:        25,
		Fat:          8,
		Fiber:        2,
		Sugar:        3,
		Sodium:       150,
		ServingSize:  "1 serving",
		ServingSizes: []string{"1 serving", "100g"},
		Description:  fmt.Sprintf("Estimated nutritional values for %s", name),
		Image:        "🍽️",
	}
}

// MockEstimator returns MockEstimate for every image
type MockEstimator struct {
	log *zap.Logger
}

func NewMockEstimator(log *zap.Logger) *MockEstimator {
	return &MockEstimator{log: log}
}

func (m *MockEstimator) Estimate(_ context.Context, img *imaging.Image) (*models.NutritionEstimate, error) {
	data, err := img.PNG()
	if err != nil {
		return nil, err
	}
	m.log.Debug("no credentials configured, returning mock estimate")
	return MockEstimate(imaging.DataURI(data)), nil
}

// MockCoach returns MockInsight
type MockCoach struct{}

func (MockCoach) Insight(context.Context, models.MacroGoal) string { return MockInsight }

// MockFoodLookup returns DefaultFoodEstimate for every name
type MockFoodLookup struct{}

func (MockFoodLookup) Lookup(_ context.Context, name string) (*models.NutritionEstimate, error) {
	return DefaultFoodEstimate(name), nil
}
