package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MacroGoal carries today's macro intake and the calorie goal of the caller
type MacroGoal struct {
	Protein int `json:"protein"` // grams
	Carbs   int `json:"carbs"`   // grams
	Goal    int `json:"goal"`    // kcal
}

// InsightResponse is the reply of the insight operation
type InsightResponse struct {
	Insight string `json:"insight"`
}

// Calories is the raw calorie value of a meal entry. It accepts a JSON number
// or a string and is only interpreted when analytics are computed, so a
// malformed value is reported by the aggregator instead of the decoder.
type Calories string

// UnmarshalJSON keeps the raw token of the value.
func (c *Calories) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = Calories(s)
		return nil
	}
	*c = Calories(data)
	return nil
}

// MarshalJSON writes numeric values as JSON numbers and anything else as a string.
func (c Calories) MarshalJSON() ([]byte, error) {
	if v, err := c.Float64(); err == nil {
		return json.Marshal(v)
	}
	return json.Marshal(string(c))
}

// Float64 interprets the value as a number.
func (c Calories) Float64() (float64, error) {
	s := strings.TrimSpace(string(c))
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("calories %q is not numeric", string(c))
	}
	return v, nil
}

// MealEntry is one meal of the history supplied for analytics
type MealEntry struct {
	Name     string   `json:"name"`
	Calories Calories `json:"calories"`
	Date     string   `json:"date"` // YYYY-MM-DD
}

// AnalyticsResult summarises a meal history. DailyAverage and HighestCalories
// are nil when the history was empty.
type AnalyticsResult struct {
	AverageCalories   int    `json:"average_calories"`
	DailyAverage      *int   `json:"daily_average,omitempty"`
	HighestCalorieDay string `json:"highest_calorie_day"`
	HighestCalories   *int   `json:"highest_calories,omitempty"`
}
