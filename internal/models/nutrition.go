package models

import (
	"encoding/json"
)

// Confidence tags how sure the estimator is about a NutritionEstimate
type Confidence string

const (
	ConfidenceHigh Confidence = "high"
)

// NutritionEstimate represents the nutritional information estimated for one food photo
type NutritionEstimate struct {
	Name     string `json:"name"`
	Calories int    `json:"calories"` // kcal for the default serving

	// Macronutrients for the default serving
	Protein float64 `json:"protein"` // grams
	Carbs   float64 `json:"carbs"`   // grams
	Fat     float64 `json:"fat"`     // grams
	Fiber   float64 `json:"fiber"`   // grams
	Sugar   float64 `json:"sugar"`   // grams
	Sodium  float64 `json:"sodium"`  // milligrams

	ServingSize  string   `json:"servingSize"`
	ServingSizes []string `json:"servingSizes,omitempty"`
	Description  string   `json:"description,omitempty"`

	// Additional information
	Image      string     `json:"image,omitempty"` // data URI of the re-encoded upload
	Confidence Confidence `json:"confidence,omitempty"`

	// Extra holds keys the model returned that are not part of the record above.
	// They are passed through untouched when the estimate is serialized.
	Extra map[string]json.RawMessage `json:"-"`
}

// MarshalJSON writes the known fields and any extra keys as one flat object.
// Known fields win over extra keys with the same name.
func (e NutritionEstimate) MarshalJSON() ([]byte, error) {
	type alias NutritionEstimate
	known, err := json.Marshal(alias(e))
	if err != nil || len(e.Extra) == 0 {
		return known, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(known, &fields); err != nil {
		return nil, err
	}
	merged := make(map[string]json.RawMessage, len(e.Extra)+len(fields))
	for k, v := range e.Extra {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return json.Marshal(merged)
}

// Prediction is one label produced by the local image classifier
type Prediction struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"` // in [0,1]
}

// UploadedImage is the raw upload as received from the transport
type UploadedImage struct {
	Data        []byte
	ContentType string
}
