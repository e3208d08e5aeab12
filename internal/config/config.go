package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/franckalain/caloriesense/internal/ml"
)

// Config holds all application configuration
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Gate   GateConfig   `mapstructure:"gate"`
	ML     ml.Config    `mapstructure:"ml"`
}

type ServerConfig struct {
	Port           string        `mapstructure:"port"`
	Mode           string        `mapstructure:"mode"` // gin mode, "release" also switches to JSON logs
	MaxUploadSize  int64         `mapstructure:"max_upload_size"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

// GateConfig locates the local food classifier. Leaving ModelPath empty
// disables the gate. Mean and Std are the per-channel RGB normalization the
// model was trained with.
type GateConfig struct {
	ModelPath  string    `mapstructure:"model_path"`
	LabelsPath string    `mapstructure:"labels_path"`
	Workers    int       `mapstructure:"workers"`
	Mean       []float64 `mapstructure:"mean"`
	Std        []float64 `mapstructure:"std"`
}

// Load reads the JSON configuration at configPath, then applies environment
// overrides. Variables from a .env file in the working directory are loaded
// first. When configPath is empty the default location is used and a
// missing file falls back to defaults.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	optional := configPath == ""
	if optional {
		configPath = GetConfigPath()
	}

	v := viper.New()
	setDefaults(v)
	bindEnv(v)

	v.SetConfigFile(configPath)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		if !optional || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// GetConfigPath returns the path to the configuration file
func GetConfigPath() string {
	// First try environment variables
	for _, name := range []string{"CALORIESENSE_CONFIG", "NUTRITIONAL_CONFIG"} {
		if path := os.Getenv(name); path != "" {
			return path
		}
	}

	// Then try config directory
	configDir := "config"
	if _, err := os.Stat(configDir); err == nil {
		return filepath.Join(configDir, "config.json")
	}

	// Finally, try current directory
	return "config.json"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", ":8000")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.max_upload_size", 10*1024*1024)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 90*time.Second)
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("gate.model_path", "")
	v.SetDefault("gate.labels_path", "")
	v.SetDefault("gate.workers", 1)
	// ImageNet statistics, as expected by the ONNX model zoo MobileNetV2
	v.SetDefault("gate.mean", []float64{123.675, 116.28, 103.53})
	v.SetDefault("gate.std", []float64{58.395, 57.12, 57.375})

	v.SetDefault("ml.google.project_id", "")
	v.SetDefault("ml.google.location", "us-central1")
	v.SetDefault("ml.google.credentials_file", "")
	v.SetDefault("ml.google.vision_model", "gemini-1.5-flash")
	v.SetDefault("ml.google.text_model", "gemini-1.5-flash")
	v.SetDefault("ml.timeout", 60*time.Second)
	v.SetDefault("ml.max_output_tokens", 500)
}

// bindEnv maps CALORIESENSE_SERVER_PORT style variables onto every key. The
// Google settings also accept their conventional unprefixed names.
func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("CALORIESENSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("ml.google.project_id", "CALORIESENSE_ML_GOOGLE_PROJECT_ID", "GOOGLE_PROJECT_ID")
	_ = v.BindEnv("ml.google.location", "CALORIESENSE_ML_GOOGLE_LOCATION", "GOOGLE_LOCATION")
	_ = v.BindEnv("ml.google.credentials_file", "CALORIESENSE_ML_GOOGLE_CREDENTIALS_FILE", "GOOGLE_CREDENTIALS_FILE", "GOOGLE_APPLICATION_CREDENTIALS")
}

func (c *Config) validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is not set")
	}
	if !strings.Contains(c.Server.Port, ":") {
		c.Server.Port = ":" + c.Server.Port
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("server mode %q must be debug, release or test", c.Server.Mode)
	}
	if c.Server.MaxUploadSize <= 0 {
		return fmt.Errorf("server max_upload_size must be positive")
	}
	if c.Gate.Workers < 1 {
		c.Gate.Workers = 1
	}
	if len(c.Gate.Mean) != 3 || len(c.Gate.Std) != 3 {
		return fmt.Errorf("gate mean and std need one value per RGB channel")
	}
	for _, std := range c.Gate.Std {
		if std <= 0 {
			return fmt.Errorf("gate std values must be positive")
		}
	}
	return nil
}
