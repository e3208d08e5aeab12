package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"testing"

	"cloud.google.com/go/vertexai/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/franckalain/caloriesense/internal/analytics"
	"github.com/franckalain/caloriesense/internal/gate"
	"github.com/franckalain/caloriesense/internal/imaging"
	"github.com/franckalain/caloriesense/internal/ml"
	"github.com/franckalain/caloriesense/internal/models"
)

type fakeClassifier struct {
	preds []models.Prediction
	calls int
}

func (f *fakeClassifier) Classify(_ context.Context, img *imaging.Image) ([]models.Prediction, error) {
	f.calls++
	if img.Width() != gate.InputSize || img.Height() != gate.InputSize {
		return nil, fmt.Errorf("unexpected size %dx%d", img.Width(), img.Height())
	}
	return f.preds, nil
}

type fakeEstimator struct {
	est   *models.NutritionEstimate
	err   error
	calls int
}

func (f *fakeEstimator) Estimate(context.Context, *imaging.Image) (*models.NutritionEstimate, error) {
	f.calls++
	return f.est, f.err
}

type failingGenerator struct{}

func (failingGenerator) GenerateContent(context.Context, ...genai.Part) (*genai.GenerateContentResponse, error) {
	return nil, errors.New("service unavailable")
}

func pngUpload(t *testing.T, c color.Color) models.UploadedImage {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 24))
	for y := 0; y < 24; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return models.UploadedImage{Data: buf.Bytes(), ContentType: "image/png"}
}

func TestAnalyzeImage_RejectsNonImageBeforeDecode(t *testing.T) {
	classifier := &fakeClassifier{}
	estimator := &fakeEstimator{est: &models.NutritionEstimate{Name: "x"}}
	svc := New(gate.New(classifier, zap.NewNop()), estimator, ml.MockCoach{}, ml.MockFoodLookup{}, zap.NewNop())

	for _, ct := range []string{"text/plain", "application/pdf", "", "application/octet-stream"} {
		upload := pngUpload(t, color.White)
		upload.ContentType = ct

		_, err := svc.AnalyzeImage(context.Background(), upload)
		assert.ErrorIs(t, err, imaging.ErrUnsupportedContentType, ct)
		assert.Equal(t, ClientFault, Classify(err))
	}
	assert.Zero(t, classifier.calls)
	assert.Zero(t, estimator.calls)
}

func TestAnalyzeImage_CorruptImage(t *testing.T) {
	estimator := &fakeEstimator{}
	svc := New(gate.NewUnavailable(zap.NewNop()), estimator, ml.MockCoach{}, ml.MockFoodLookup{}, zap.NewNop())

	_, err := svc.AnalyzeImage(context.Background(), models.UploadedImage{Data: []byte("not an image"), ContentType: "image/jpeg"})
	assert.ErrorIs(t, err, imaging.ErrDecode)
	assert.Equal(t, ClientFault, Classify(err))
	assert.Zero(t, estimator.calls)
}

func TestAnalyzeImage_MockWithoutCredentials(t *testing.T) {
	backend, err := ml.NewModels(context.Background(), ml.Config{}, zap.NewNop())
	require.NoError(t, err)

	svc := New(gate.NewUnavailable(zap.NewNop()), backend.Estimator, backend.Coach, backend.Lookup, zap.NewNop())

	for _, c := range []color.Color{color.White, color.Black, color.RGBA{R: 200, G: 30, B: 40, A: 255}} {
		est, err := svc.AnalyzeImage(context.Background(), pngUpload(t, c))
		require.NoError(t, err)

		assert.Equal(t, "Mock Apple", est.Name)
		assert.Equal(t, 95, est.Calories)
		assert.Zero(t, est.Protein)
		assert.Equal(t, 25.0, est.Carbs)
		assert.Zero(t, est.Fat)
		assert.Equal(t, 4.0, est.Fiber)
		assert.Equal(t, 19.0, est.Sugar)
		assert.Equal(t, 1.0, est.Sodium)
	}
}

func TestAnalyzeImage_GateIsAdvisory(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	log := zap.New(core)

	classifier := &fakeClassifier{preds: []models.Prediction{{Label: "laptop", Confidence: 0.9}}}
	estimator := &fakeEstimator{est: &models.NutritionEstimate{Name: "Laptop Surprise", Calories: 10}}
	svc := New(gate.New(classifier, log), estimator, ml.MockCoach{}, ml.MockFoodLookup{}, log)

	est, err := svc.AnalyzeImage(context.Background(), pngUpload(t, color.White))
	require.NoError(t, err)
	assert.Equal(t, "Laptop Surprise", est.Name)
	assert.Equal(t, 1, classifier.calls)
	assert.Equal(t, 1, estimator.calls)
	assert.Equal(t, 1, logs.FilterMessage("image might not be food").Len())
}

func TestAnalyzeImage_UnavailableGateIsSilent(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	log := zap.New(core)

	estimator := &fakeEstimator{est: &models.NutritionEstimate{Name: "Toast"}}
	svc := New(gate.NewUnavailable(log), estimator, ml.MockCoach{}, ml.MockFoodLookup{}, log)

	_, err := svc.AnalyzeImage(context.Background(), pngUpload(t, color.White))
	require.NoError(t, err)
	assert.Zero(t, logs.Len())
}

func TestAnalyzeImage_EstimatorErrors(t *testing.T) {
	t.Run("parse failure is a server fault", func(t *testing.T) {
		estimator := &fakeEstimator{err: fmt.Errorf("wrapped: %w", ml.ErrEstimationParse)}
		svc := New(gate.NewUnavailable(zap.NewNop()), estimator, ml.MockCoach{}, ml.MockFoodLookup{}, zap.NewNop())

		_, err := svc.AnalyzeImage(context.Background(), pngUpload(t, color.White))
		assert.ErrorIs(t, err, ml.ErrEstimationParse)
		assert.Equal(t, ServerFault, Classify(err))
	})

	t.Run("network failure is a server fault", func(t *testing.T) {
		estimator := &fakeEstimator{err: errors.New("dial tcp: i/o timeout")}
		svc := New(gate.NewUnavailable(zap.NewNop()), estimator, ml.MockCoach{}, ml.MockFoodLookup{}, zap.NewNop())

		_, err := svc.AnalyzeImage(context.Background(), pngUpload(t, color.White))
		assert.Error(t, err)
		assert.Equal(t, ServerFault, Classify(err))
	})
}

func TestGetInsight_NeverFails(t *testing.T) {
	goals := []models.MacroGoal{
		{Protein: 0, Carbs: 0, Goal: 0},
		{Protein: 120, Carbs: 250, Goal: 2500},
		{Protein: -5, Carbs: 10, Goal: 1800},
	}

	coach := ml.NewGoogleCoach(failingGenerator{}, 0, zap.NewNop())
	svc := New(gate.NewUnavailable(zap.NewNop()), &fakeEstimator{}, coach, ml.MockFoodLookup{}, zap.NewNop())

	for _, goal := range goals {
		assert.Equal(t, ml.FallbackInsight, svc.GetInsight(context.Background(), goal).Insight)
	}

	svc = New(gate.NewUnavailable(zap.NewNop()), &fakeEstimator{}, ml.MockCoach{}, ml.MockFoodLookup{}, zap.NewNop())
	assert.Equal(t, ml.MockInsight, svc.GetInsight(context.Background(), goals[1]).Insight)
}

func TestProcessAnalytics(t *testing.T) {
	svc := New(gate.NewUnavailable(zap.NewNop()), &fakeEstimator{}, ml.MockCoach{}, ml.MockFoodLookup{}, zap.NewNop())

	res, err := svc.ProcessAnalytics(context.Background(), []models.MealEntry{
		{Name: "a", Calories: "100", Date: "2024-01-01"},
		{Name: "b", Calories: "200", Date: "2024-01-01"},
		{Name: "c", Calories: "50", Date: "2024-01-02"},
	})
	require.NoError(t, err)
	assert.Equal(t, 116, res.AverageCalories)
	assert.Equal(t, 150, *res.DailyAverage)

	_, err = svc.ProcessAnalytics(context.Background(), []models.MealEntry{{Name: "a", Calories: "?", Date: "2024-01-01"}})
	assert.ErrorIs(t, err, analytics.ErrAggregation)
	assert.Equal(t, ServerFault, Classify(err))
}

func TestLookupFood(t *testing.T) {
	svc := New(gate.NewUnavailable(zap.NewNop()), &fakeEstimator{}, ml.MockCoach{}, ml.MockFoodLookup{}, zap.NewNop())

	est, err := svc.LookupFood(context.Background(), "  paneer tikka ")
	require.NoError(t, err)
	assert.Equal(t, "paneer tikka", est.Name)

	_, err = svc.LookupFood(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyFoodName)
	assert.Equal(t, ClientFault, Classify(err))
}

func TestClassify(t *testing.T) {
	assert.Equal(t, ClientFault, Classify(fmt.Errorf("bind: %w", ErrBadRequest)))
	assert.Equal(t, ServerFault, Classify(errors.New("boom")))
	assert.Equal(t, "client", ClientFault.String())
	assert.Equal(t, "server", ServerFault.String())
}
