package mobilenet

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Errors(t *testing.T) {
	t.Run("no model configured", func(t *testing.T) {
		_, err := Load(Config{})
		assert.Error(t, err)
	})

	t.Run("missing labels", func(t *testing.T) {
		_, err := Load(Config{ModelPath: "model.onnx", LabelsPath: filepath.Join(t.TempDir(), "labels.txt")})
		assert.ErrorContains(t, err, "failed to open labels file")
	})

	t.Run("zero std", func(t *testing.T) {
		_, err := Load(Config{
			ModelPath:  "model.onnx",
			Preprocess: Preprocess{Mean: ImageNet.Mean, Std: [3]float64{58.395, 0, 57.375}},
		})
		assert.ErrorContains(t, err, "std for channel 1")
	})
}

func TestPreprocess_Defaults(t *testing.T) {
	assert.Equal(t, ImageNet, Preprocess{}.orDefault())
	assert.Equal(t, Inception, Inception.orDefault())

	assert.Equal(t, [3]float64{123.675, 116.28, 103.53}, ImageNet.Mean)
	assert.Equal(t, [3]float64{58.395, 57.12, 57.375}, ImageNet.Std)
}

func TestPreprocess_Standardize(t *testing.T) {
	// a 1x2 image, one white and one black pixel, after mean subtraction
	blob := func(p Preprocess) []float32 {
		out := make([]float32, 0, 6)
		for c := 0; c < 3; c++ {
			out = append(out, float32(255-p.Mean[c]), float32(0-p.Mean[c]))
		}
		return out
	}

	t.Run("imagenet", func(t *testing.T) {
		data := blob(ImageNet)
		ImageNet.standardize(data)

		want := []float64{
			(255 - 123.675) / 58.395, -123.675 / 58.395,
			(255 - 116.28) / 57.12, -116.28 / 57.12,
			(255 - 103.53) / 57.375, -103.53 / 57.375,
		}
		for i, w := range want {
			assert.InDelta(t, w, data[i], 1e-5, "element %d", i)
		}
	})

	t.Run("inception scales to unit range", func(t *testing.T) {
		data := blob(Inception)
		Inception.standardize(data)

		for c := 0; c < 3; c++ {
			assert.InDelta(t, 1.0, data[2*c], 1e-6)
			assert.InDelta(t, -1.0, data[2*c+1], 1e-6)
		}
	})
}
