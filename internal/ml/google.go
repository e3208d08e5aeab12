package ml

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/vertexai/genai"
	"github.com/franckalain/caloriesense/internal/imaging"
	"github.com/franckalain/caloriesense/internal/models"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// generator is the part of *genai.GenerativeModel the estimators use
type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// GoogleClient wraps the Vertex AI client and builds the configured models
type GoogleClient struct {
	cfg    Config
	client *genai.Client
}

// NewGoogleClient connects to Vertex AI
func NewGoogleClient(ctx context.Context, cfg Config) (*GoogleClient, error) {
	opts := []option.ClientOption{}

	if cfg.Google.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.Google.CredentialsFile))
	}

	client, err := genai.NewClient(ctx, cfg.Google.ProjectID, cfg.Google.Location, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return &GoogleClient{cfg: cfg, client: client}, nil
}

// VisionModel is the multimodal model used for photos
func (c *GoogleClient) VisionModel() *genai.GenerativeModel {
	model := c.client.GenerativeModel(c.cfg.Google.VisionModel)
	model.ResponseMIMEType = "application/json"
	if c.cfg.MaxOutputTokens > 0 {
		model.SetMaxOutputTokens(c.cfg.MaxOutputTokens)
	}
	return model
}

// CoachModel is the text model with the nutrition coach persona
func (c *GoogleClient) CoachModel() *genai.GenerativeModel {
	model := c.client.GenerativeModel(c.cfg.Google.TextModel)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(coachInstruction)}}
	return model
}

// LookupModel is the text model used to estimate food given by name
func (c *GoogleClient) LookupModel() *genai.GenerativeModel {
	model := c.client.GenerativeModel(c.cfg.Google.TextModel)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(lookupInstruction)}}
	if c.cfg.MaxOutputTokens > 0 {
		model.SetMaxOutputTokens(c.cfg.MaxOutputTokens)
	}
	return model
}

func (c *GoogleClient) Close() error {
	return c.client.Close()
}

// GoogleEstimator implements Estimator with a Gemini multimodal model
type GoogleEstimator struct {
	model   generator
	timeout time.Duration
	log     *zap.Logger
}

func NewGoogleEstimator(model generator, timeout time.Duration, log *zap.Logger) *GoogleEstimator {
	return &GoogleEstimator{model: model, timeout: timeout, log: log}
}

// Estimate sends the prompt and the image in a single request and parses the reply.
// Remote failures are returned as is; there is no retry and no mock fallback.
func (e *GoogleEstimator) Estimate(ctx context.Context, img *imaging.Image) (*models.NutritionEstimate, error) {
	data, err := img.PNG()
	if err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, e.timeout)
	defer cancel()

	e.log.Debug("calling the vision model", zap.Int("image_bytes", len(data)))
	resp, err := e.model.GenerateContent(ctx, genai.Text(estimatePrompt), genai.ImageData("png", data))
	if err != nil {
		return nil, fmt.Errorf("failed to call ai: %w", err)
	}

	text, err := responseText(resp)
	if err != nil {
		return nil, err
	}

	est, err := ParseEstimate(text)
	if err != nil {
		e.log.Error("failed to parse model response", zap.String("response", text), zap.Error(err))
		return nil, err
	}

	est.Image = imaging.DataURI(data)
	est.Confidence = models.ConfidenceHigh
	return est, nil
}

// GoogleCoach implements Coach with a Gemini text model
type GoogleCoach struct {
	model   generator
	timeout time.Duration
	log     *zap.Logger
}

func NewGoogleCoach(model generator, timeout time.Duration, log *zap.Logger) *GoogleCoach {
	return &GoogleCoach{model: model, timeout: timeout, log: log}
}

func (c *GoogleCoach) Insight(ctx context.Context, goal models.MacroGoal) string {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.model.GenerateContent(ctx, genai.Text(insightPrompt(goal)))
	if err != nil {
		c.log.Error("insight request failed", zap.Error(err))
		return FallbackInsight
	}

	text, err := responseText(resp)
	if err != nil {
		c.log.Error("insight response unusable", zap.Error(err))
		return FallbackInsight
	}
	return text
}

// GoogleFoodLookup implements FoodLookup with a Gemini text model
type GoogleFoodLookup struct {
	model   generator
	timeout time.Duration
	log     *zap.Logger
}

func NewGoogleFoodLookup(model generator, timeout time.Duration, log *zap.Logger) *GoogleFoodLookup {
	return &GoogleFoodLookup{model: model, timeout: timeout, log: log}
}

// Lookup asks the model about a food name. An unreadable reply falls back
// to DefaultFoodEstimate; a failed call is returned as an error.
func (l *GoogleFoodLookup) Lookup(ctx context.Context, name string) (*models.NutritionEstimate, error) {
	ctx, cancel := withTimeout(ctx, l.timeout)
	defer cancel()

	l.log.Info("analyzing food", zap.String("food", name))
	resp, err := l.model.GenerateContent(ctx, genai.Text(lookupPrompt(name)))
	if err != nil {
		return nil, fmt.Errorf("failed to call ai: %w", err)
	}

	text, err := responseText(resp)
	if err != nil {
		return nil, err
	}

	est, err := ParseFoodLookup(text)
	if err != nil {
		l.log.Warn("failed to parse food lookup, using default values",
			zap.String("food", name), zap.String("response", text), zap.Error(err))
		return DefaultFoodEstimate(name), nil
	}
	return est, nil
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errors.New("no response generated")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", errors.New("no content in response")
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", errors.New("no text in response")
	}
	return text, nil
}
