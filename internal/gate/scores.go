package gate

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/franckalain/caloriesense/internal/models"
)

// Predictions turns raw classifier output into the k most likely labels.
// Scores that are not already a probability distribution are passed through softmax.
func Predictions(scores []float32, labels []string, k int) ([]models.Prediction, error) {
	if len(scores) != len(labels) {
		return nil, fmt.Errorf("classifier returned %d scores for %d labels", len(scores), len(labels))
	}

	probs := toProbabilities(scores)
	idx := make([]int, len(probs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return probs[idx[a]] > probs[idx[b]] })
	if len(idx) > k {
		idx = idx[:k]
	}

	out := make([]models.Prediction, 0, len(idx))
	for _, i := range idx {
		out = append(out, models.Prediction{Label: labels[i], Confidence: probs[i]})
	}
	return out, nil
}

func toProbabilities(scores []float32) []float64 {
	out := make([]float64, len(scores))
	var sum float64
	normalized := true
	for i, s := range scores {
		out[i] = float64(s)
		sum += out[i]
		if out[i] < 0 || out[i] > 1 {
			normalized = false
		}
	}
	if normalized && math.Abs(sum-1) < 1e-3 {
		return out
	}

	// softmax
	maxScore := math.Inf(-1)
	for _, v := range out {
		maxScore = math.Max(maxScore, v)
	}
	sum = 0
	for i, v := range out {
		out[i] = math.Exp(v - maxScore)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// ParseLabels reads one class name per line. A leading WordNet id such as
// "n07753592 banana" is dropped and only the first synonym is kept.
func ParseLabels(r io.Reader) ([]string, error) {
	var labels []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if id, rest, ok := strings.Cut(line, " "); ok && isWordNetID(id) {
			line = strings.TrimSpace(rest)
		}
		if name, _, ok := strings.Cut(line, ","); ok {
			line = strings.TrimSpace(name)
		}
		labels = append(labels, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read labels: %w", err)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("labels file is empty")
	}
	return labels, nil
}

func isWordNetID(s string) bool {
	if len(s) != 9 || s[0] != 'n' {
		return false
	}
	for _, c := range s[1:] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
