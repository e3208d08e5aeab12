// Package mobilenet runs a pretrained ImageNet MobileNetV2 through OpenCV's
// DNN module. It is the production classifier behind the food gate.
package mobilenet

import (
	"context"
	"fmt"
	"image"
	"os"

	"github.com/franckalain/caloriesense/internal/gate"
	"github.com/franckalain/caloriesense/internal/imaging"
	"github.com/franckalain/caloriesense/internal/models"
	"gocv.io/x/gocv"
)

// Config locates the network weights and the class names
type Config struct {
	ModelPath  string // ONNX export of MobileNetV2
	LabelsPath string // one ImageNet class per line
	Workers    int    // number of network copies used for concurrent inference
	Preprocess Preprocess
}

// Preprocess normalizes each RGB channel of the NCHW input blob as
// (pixel - Mean[c]) / Std[c]. The zero value means ImageNet.
type Preprocess struct {
	Mean [3]float64
	Std  [3]float64
}

// ImageNet matches the ONNX model zoo export (mobilenetv2-12.onnx).
var ImageNet = Preprocess{
	Mean: [3]float64{123.675, 116.28, 103.53},
	Std:  [3]float64{58.395, 57.12, 57.375},
}

// Inception matches MobileNetV2 exports taken from Keras, which expect
// pixels scaled to [-1, 1].
var Inception = Preprocess{
	Mean: [3]float64{127.5, 127.5, 127.5},
	Std:  [3]float64{127.5, 127.5, 127.5},
}

func (p Preprocess) orDefault() Preprocess {
	if p == (Preprocess{}) {
		return ImageNet
	}
	return p
}

func (p Preprocess) validate() error {
	for c, std := range p.Std {
		if std <= 0 {
			return fmt.Errorf("preprocess std for channel %d must be positive, got %v", c, std)
		}
	}
	return nil
}

// standardize divides each channel plane of a mean-subtracted NCHW blob
// by its standard deviation.
func (p Preprocess) standardize(blob []float32) {
	plane := len(blob) / len(p.Std)
	for c, std := range p.Std {
		inv := float32(1 / std)
		for i := c * plane; i < (c+1)*plane; i++ {
			blob[i] *= inv
		}
	}
}

// Classifier implements gate.Classifier. OpenCV networks keep per-inference
// state, so each call borrows one network from a fixed pool.
type Classifier struct {
	nets       chan gocv.Net
	labels     []string
	preprocess Preprocess
}

// Load reads the network and labels. Errors here leave the gate unavailable.
func Load(cfg Config) (*Classifier, error) {
	if cfg.ModelPath == "" {
		return nil, fmt.Errorf("model path is not configured")
	}
	preprocess := cfg.Preprocess.orDefault()
	if err := preprocess.validate(); err != nil {
		return nil, err
	}

	f, err := os.Open(cfg.LabelsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open labels file: %w", err)
	}
	defer f.Close()
	labels, err := gate.ParseLabels(f)
	if err != nil {
		return nil, err
	}

	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}

	c := &Classifier{nets: make(chan gocv.Net, workers), labels: labels, preprocess: preprocess}
	for i := 0; i < workers; i++ {
		net := gocv.ReadNet(cfg.ModelPath, "")
		if net.Empty() {
			c.Close()
			return nil, fmt.Errorf("failed to read network from %s", cfg.ModelPath)
		}
		c.nets <- net
	}
	return c, nil
}

// Classify returns the top predictions for img.
func (c *Classifier) Classify(ctx context.Context, img *imaging.Image) ([]models.Prediction, error) {
	var net gocv.Net
	select {
	case net = <-c.nets:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { c.nets <- net }()

	mat, err := gocv.ImageToMatRGB(img.Pixels())
	if err != nil {
		return nil, fmt.Errorf("failed to convert image: %w", err)
	}
	defer mat.Close()

	// the Mat is BGR, swapRB gives the network RGB planes
	mean := c.preprocess.Mean
	blob := gocv.BlobFromImage(mat, 1.0, image.Pt(gate.InputSize, gate.InputSize),
		gocv.NewScalar(mean[0], mean[1], mean[2], 0), true, false)
	defer blob.Close()

	pixels, err := blob.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to read input blob: %w", err)
	}
	c.preprocess.standardize(pixels)

	net.SetInput(blob, "")
	prob := net.Forward("")
	defer prob.Close()

	scores, err := prob.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to read network output: %w", err)
	}
	out := make([]float32, len(scores))
	copy(out, scores)

	return gate.Predictions(out, c.labels, gate.TopK)
}

// Close releases every network in the pool.
func (c *Classifier) Close() error {
	for {
		select {
		case net := <-c.nets:
			net.Close()
		default:
			return nil
		}
	}
}
