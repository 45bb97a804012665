// Package config loads the application configuration from YAML and applies
// defaults. The loaded value is threaded explicitly through the component
// constructors; there is no global state.
package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// EmbedderConfig configures the OpenAI-compatible embeddings client.
type EmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	Dimension   int    `yaml:"dimension"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries"`
	Concurrency int    `yaml:"concurrency"`
}

// SegmenterConfig holds the word-count bands for segment packing.
type SegmenterConfig struct {
	MinWords     int `yaml:"min_words"`
	TargetLow    int `yaml:"target_low"`
	TargetHigh   int `yaml:"target_high"`
	MaxWords     int `yaml:"max_words"`
	LowException int `yaml:"low_exception"`
	StretchMax   int `yaml:"stretch_max"`
}

// StorageConfig names the segment directory and the index file.
type StorageConfig struct {
	SegmentDir string `yaml:"segment_dir"`
	IndexPath  string `yaml:"index_path"`
}

// QueryConfig holds query defaults.
type QueryConfig struct {
	TopK int `yaml:"top_k"`
}

// ChatConfig configures the optional generative answer/review layer.
type ChatConfig struct {
	Enabled     bool   `yaml:"enabled"`
	AnswerModel string `yaml:"answer_model"`
	ReviewModel string `yaml:"review_model"`
	Review      bool   `yaml:"review"`
}

// QdrantConfig contains connection details for the optional index mirror.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKey      string `yaml:"api_key"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Embedder  EmbedderConfig  `yaml:"embedder"`
	Segmenter SegmenterConfig `yaml:"segmenter"`
	Storage   StorageConfig   `yaml:"storage"`
	Query     QueryConfig     `yaml:"query"`
	Chat      ChatConfig      `yaml:"chat"`
	Qdrant    *QdrantConfig   `yaml:"qdrant,omitempty"`
}

// Load reads a config from path. If the file does not exist, defaults apply.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/segsearch/config.yaml.
// If neither exists, it writes defaults to the user path and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "segsearch", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *AppConfig) {
	e := &cfg.Embedder
	if e.APIKeyEnv == "" {
		e.APIKeyEnv = "OPENAI_API_KEY"
	}
	if e.Model == "" {
		e.Model = "text-embedding-3-large"
	}
	if e.TimeoutSecs == 0 {
		e.TimeoutSecs = 30
	}
	if e.MaxRetries == 0 {
		e.MaxRetries = 5
	}
	if e.Concurrency == 0 {
		e.Concurrency = 8
	}

	s := &cfg.Segmenter
	if s.MinWords == 0 {
		s.MinWords = 150
	}
	if s.TargetLow == 0 {
		s.TargetLow = 180
	}
	if s.TargetHigh == 0 {
		s.TargetHigh = 350
	}
	if s.MaxWords == 0 {
		s.MaxWords = 400
	}
	if s.LowException == 0 {
		s.LowException = 120
	}
	if s.StretchMax == 0 {
		s.StretchMax = 550
	}

	if cfg.Storage.SegmentDir == "" {
		cfg.Storage.SegmentDir = filepath.Join("data", "segmente")
	}
	if cfg.Storage.IndexPath == "" {
		cfg.Storage.IndexPath = filepath.Join("data", "index.json")
	}
	if cfg.Query.TopK == 0 {
		cfg.Query.TopK = 4
	}
	if cfg.Chat.AnswerModel == "" {
		cfg.Chat.AnswerModel = "gpt-4o-mini"
	}
	if cfg.Chat.ReviewModel == "" {
		cfg.Chat.ReviewModel = cfg.Chat.AnswerModel
	}
	if cfg.Qdrant != nil && cfg.Qdrant.TimeoutSecs == 0 {
		cfg.Qdrant.TimeoutSecs = 15
	}
}
