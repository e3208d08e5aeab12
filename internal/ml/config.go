package ml

import (
	"context"
	"time"
)

// GoogleConfig holds configuration for the Vertex AI models
type GoogleConfig struct {
	ProjectID       string `mapstructure:"project_id"`
	Location        string `mapstructure:"location"`
	CredentialsFile string `mapstructure:"credentials_file"`
	VisionModel     string `mapstructure:"vision_model"`
	TextModel       string `mapstructure:"text_model"`
}

// HasCredentials reports whether remote models can be used. Without a
// project the mock implementations are selected.
func (c GoogleConfig) HasCredentials() bool {
	return c.ProjectID != ""
}

// Config holds configuration shared by all remote model calls
type Config struct {
	Google          GoogleConfig  `mapstructure:"google"`
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxOutputTokens int32         `mapstructure:"max_output_tokens"`
}

// withTimeout bounds a remote call. A zero timeout leaves ctx untouched.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
