// Package gate implements the local food check run before an image is sent
// to the remote estimator. The verdict is advisory: it is logged, never enforced.
package gate

import (
	"context"
	"sort"

	"github.com/franckalain/caloriesense/internal/imaging"
	"github.com/franckalain/caloriesense/internal/models"
	"go.uber.org/zap"
)

const (
	// InputSize is the square resolution the classifier expects.
	InputSize = 224
	// TopK is the number of predictions inspected by the gate.
	TopK = 5
)

// Classifier labels an image. Implementations must be safe for concurrent use.
type Classifier interface {
	Classify(ctx context.Context, img *imaging.Image) ([]models.Prediction, error)
}

// State tells whether the gate has a usable classifier
type State int

const (
	StateUnavailable State = iota
	StateReady
)

func (s State) String() string {
	if s == StateReady {
		return "ready"
	}
	return "unavailable"
}

// Verdict is the outcome of one gate check
type Verdict struct {
	Skipped     bool
	IsFood      bool
	Predictions []models.Prediction
}

// Gate is built once at startup and never changes afterwards.
type Gate struct {
	state      State
	classifier Classifier
	log        *zap.Logger
}

// New returns a ready gate backed by classifier.
func New(classifier Classifier, log *zap.Logger) *Gate {
	return &Gate{state: StateReady, classifier: classifier, log: log}
}

// NewUnavailable returns a gate that skips every check. It is used when the
// classifier failed to load; loading is not retried.
func NewUnavailable(log *zap.Logger) *Gate {
	return &Gate{state: StateUnavailable, log: log}
}

// State of the gate
func (g *Gate) State() State { return g.state }

// Check classifies img and reports whether it looks like food. A negative
// verdict or a classifier error is logged and otherwise ignored.
func (g *Gate) Check(ctx context.Context, img *imaging.Image) Verdict {
	if g.state != StateReady {
		return Verdict{Skipped: true}
	}

	preds, err := g.classifier.Classify(ctx, img.Resize(InputSize, InputSize))
	if err != nil {
		g.log.Warn("food gate classification failed", zap.Error(err))
		return Verdict{Skipped: true}
	}
	preds = topPredictions(preds, TopK)

	for _, p := range preds {
		if keyword, ok := MatchKeyword(p.Label); ok {
			g.log.Info("detected food",
				zap.String("label", p.Label),
				zap.String("keyword", keyword),
				zap.Float64("confidence", p.Confidence))
			return Verdict{IsFood: true, Predictions: preds}
		}
	}

	fields := []zap.Field{zap.Strings("labels", labels(preds))}
	if len(preds) > 0 {
		fields = append(fields, zap.String("top_label", preds[0].Label))
	}
	g.log.Warn("image might not be food", fields...)
	return Verdict{IsFood: false, Predictions: preds}
}

// IsFood reports whether any prediction label contains a food keyword.
func IsFood(preds []models.Prediction) bool {
	for _, p := range topPredictions(preds, TopK) {
		if _, ok := MatchKeyword(p.Label); ok {
			return true
		}
	}
	return false
}

// topPredictions orders preds by descending confidence and keeps the first k.
func topPredictions(preds []models.Prediction, k int) []models.Prediction {
	out := make([]models.Prediction, len(preds))
	copy(out, preds)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	if len(out) > k {
		out = out[:k]
	}
	return out
}

func labels(preds []models.Prediction) []string {
	out := make([]string, 0, len(preds))
	for _, p := range preds {
		out = append(out, p.Label)
	}
	return out
}
