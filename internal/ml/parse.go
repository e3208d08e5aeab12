package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/franckalain/caloriesense/internal/models"
)

// ErrEstimationParse is returned when a model reply is not a JSON object.
var ErrEstimationParse = errors.New("failed to parse AI response")

var (
	leadingNumber = regexp.MustCompile(`^-?\d+(?:\.\d+)?`)
	jsonObject    = regexp.MustCompile(`\{[\s\S]*\}`)
)

// ParseEstimate parses the text reply of the estimator model. Code fence
// markers anywhere in the reply are removed before parsing. Only JSON
// validity is enforced: missing keys stay zero and unknown keys are kept.
func ParseEstimate(text string) (*models.NutritionEstimate, error) {
	cleaned := strings.ReplaceAll(text, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	return decodeEstimate(strings.TrimSpace(cleaned))
}

// ParseFoodLookup extracts the first JSON object embedded in a reply that may
// contain surrounding prose.
func ParseFoodLookup(text string) (*models.NutritionEstimate, error) {
	match := jsonObject.FindString(text)
	if match == "" {
		return nil, fmt.Errorf("%w: no JSON object found", ErrEstimationParse)
	}
	return decodeEstimate(match)
}

func decodeEstimate(text string) (*models.NutritionEstimate, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEstimationParse, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: reply is not a JSON object", ErrEstimationParse)
	}

	est := &models.NutritionEstimate{}
	for key, value := range raw {
		switch key {
		case "name":
			est.Name = stringValue(value)
		case "calories":
			est.Calories = int(math.Round(quantity(value)))
		case "protein":
			est.Protein = quantity(value)
		case "carbs":
			est.Carbs = quantity(value)
		case "fat":
			est.Fat = quantity(value)
		case "fiber":
			est.Fiber = quantity(value)
		case "sugar":
			est.Sugar = quantity(value)
		case "sodium":
			est.Sodium = quantity(value)
		case "servingSize":
			est.ServingSize = stringValue(value)
		case "servingSizes":
			est.ServingSizes = stringList(value)
		case "description":
			est.Description = stringValue(value)
		case "image":
			est.Image = stringValue(value)
		case "confidence":
			est.Confidence = models.Confidence(stringValue(value))
		default:
			if est.Extra == nil {
				est.Extra = make(map[string]json.RawMessage)
			}
			est.Extra[key] = value
		}
	}
	return est, nil
}

// maxQuantity bounds any single amount so calories always fit an int.
const maxQuantity = math.MaxInt32

// quantity reads a nutrient amount given as a number or as text such as
// "12.5 g". Anything unreadable, negative or above maxQuantity counts as zero.
func quantity(value json.RawMessage) float64 {
	var n float64
	if err := json.Unmarshal(value, &n); err != nil {
		var s string
		if json.Unmarshal(value, &s) != nil {
			return 0
		}
		m := leadingNumber.FindString(strings.TrimSpace(s))
		if m == "" {
			return 0
		}
		n, _ = strconv.ParseFloat(m, 64)
	}
	if n < 0 || n > maxQuantity || math.IsNaN(n) {
		return 0
	}
	return n
}

func stringValue(value json.RawMessage) string {
	var s string
	if err := json.Unmarshal(value, &s); err == nil {
		return s
	}
	if string(value) == "null" {
		return ""
	}
	return string(value)
}

func stringList(value json.RawMessage) []string {
	var items []json.RawMessage
	if err := json.Unmarshal(value, &items); err != nil {
		if s := stringValue(value); s != "" {
			return []string{s}
		}
		return nil
	}
	var out []string
	for _, item := range items {
		if s := stringValue(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}
