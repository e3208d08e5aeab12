package ml

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEstimate(t *testing.T) {
	t.Run("plain json", func(t *testing.T) {
		est, err := ParseEstimate(`{"name":"Banana","calories":105,"protein":1.3,"carbs":27,"fat":0.4,"fiber":3.1,"sugar":14.4,"sodium":1,"servingSize":"1 medium","servingSizes":["1 medium","100g"],"description":"A ripe banana"}`)
		require.NoError(t, err)
		assert.Equal(t, "Banana", est.Name)
		assert.Equal(t, 105, est.Calories)
		assert.InDelta(t, 1.3, est.Protein, 1e-9)
		assert.InDelta(t, 27, est.Carbs, 1e-9)
		assert.InDelta(t, 0.4, est.Fat, 1e-9)
		assert.InDelta(t, 3.1, est.Fiber, 1e-9)
		assert.InDelta(t, 14.4, est.Sugar, 1e-9)
		assert.InDelta(t, 1, est.Sodium, 1e-9)
		assert.Equal(t, "1 medium", est.ServingSize)
		assert.Equal(t, []string{"1 medium", "100g"}, est.ServingSizes)
		assert.Equal(t, "A ripe banana", est.Description)
		assert.Nil(t, est.Extra)
	})

	t.Run("strips code fences", func(t *testing.T) {
		est, err := ParseEstimate("```json\n{\"name\": \"Salad\", \"calories\": 150}\n```")
		require.NoError(t, err)
		assert.Equal(t, "Salad", est.Name)
		assert.Equal(t, 150, est.Calories)
	})

	t.Run("strips bare fences and whitespace", func(t *testing.T) {
		est, err := ParseEstimate("  ```\n{\"name\": \"Soup\"}\n```  ")
		require.NoError(t, err)
		assert.Equal(t, "Soup", est.Name)
	})

	t.Run("missing keys stay zero", func(t *testing.T) {
		est, err := ParseEstimate(`{"name":"Mystery"}`)
		require.NoError(t, err)
		assert.Zero(t, est.Calories)
		assert.Empty(t, est.ServingSizes)
	})

	t.Run("extra keys are kept", func(t *testing.T) {
		est, err := ParseEstimate(`{"name":"Taco","cholesterol":30,"detectedItems":["tortilla","beef"]}`)
		require.NoError(t, err)
		require.Len(t, est.Extra, 2)
		assert.JSONEq(t, `30`, string(est.Extra["cholesterol"]))
		assert.JSONEq(t, `["tortilla","beef"]`, string(est.Extra["detectedItems"]))
	})

	t.Run("tolerates loosely typed values", func(t *testing.T) {
		est, err := ParseEstimate(`{"name":"Rice","calories":"206 kcal","protein":"4.3g","fat":-2,"carbs":44.6,"servingSizes":"1 cup"}`)
		require.NoError(t, err)
		assert.Equal(t, 206, est.Calories)
		assert.InDelta(t, 4.3, est.Protein, 1e-9)
		assert.Zero(t, est.Fat)
		assert.Equal(t, []string{"1 cup"}, est.ServingSizes)

		est, err = ParseEstimate(`{"name":"x","calories":1e30,"protein":"9999999999 g","sugar":5}`)
		require.NoError(t, err)
		assert.Zero(t, est.Calories)
		assert.Zero(t, est.Protein)
		assert.InDelta(t, 5.0, est.Sugar, 1e-9)
	})

	t.Run("rounds fractional calories", func(t *testing.T) {
		est, err := ParseEstimate(`{"calories": 94.6}`)
		require.NoError(t, err)
		assert.Equal(t, 95, est.Calories)
	})

	t.Run("invalid json", func(t *testing.T) {
		for _, text := range []string{
			"I think this is an apple with about 95 calories.",
			`{"name": "Apple", "calories": }`,
			"",
			"null",
			`["not", "an", "object"]`,
		} {
			_, err := ParseEstimate(text)
			assert.ErrorIs(t, err, ErrEstimationParse, text)
		}
	})
}

func TestParseFoodLookup(t *testing.T) {
	t.Run("extracts the object from prose", func(t *testing.T) {
		est, err := ParseFoodLookup("Sure! Here it is:\n{\"name\":\"Dosa\",\"calories\":168,\"image\":\"🥞\"}\nEnjoy.")
		require.NoError(t, err)
		assert.Equal(t, "Dosa", est.Name)
		assert.Equal(t, 168, est.Calories)
		assert.Equal(t, "🥞", est.Image)
	})

	t.Run("no object", func(t *testing.T) {
		_, err := ParseFoodLookup("no idea")
		assert.ErrorIs(t, err, ErrEstimationParse)
	})
}

func TestNutritionEstimate_MarshalExtra(t *testing.T) {
	est, err := ParseEstimate(`{"name":"Taco","calories":200,"cholesterol":30}`)
	require.NoError(t, err)

	out, err := json.Marshal(est)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(out, &m))
	assert.Equal(t, "Taco", m["name"])
	assert.Equal(t, float64(200), m["calories"])
	assert.Equal(t, float64(30), m["cholesterol"])
}
