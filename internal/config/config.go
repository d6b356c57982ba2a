package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	Size           int `yaml:"size"`
	Overlap        int `yaml:"overlap"`
	BoundaryWindow int `yaml:"boundary_window"`
}

// EmbedderConfig configures the local embedding service.
type EmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	Model       string `yaml:"model"`
	BatchSize   int    `yaml:"batch_size"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Collection string `yaml:"collection"`
}

// StoreConfig selects and configures the vector store implementation.
type StoreConfig struct {
	Type   string        `yaml:"type"` // sqlite, qdrant or memory
	Path   string        `yaml:"path,omitempty"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// AnswerConfig configures optional answer synthesis via a local
// completion service. Retrieval works without it.
type AnswerConfig struct {
	Enabled          bool   `yaml:"enabled"`
	BaseURL          string `yaml:"base_url"`
	Model            string `yaml:"model"`
	TimeoutSecs      int    `yaml:"timeout_secs"`
	MaxContextChunks int    `yaml:"max_context_chunks"`
}

// SearchConfig holds query-time defaults.
type SearchConfig struct {
	TopK int `yaml:"top_k"`
}

// LogConfig controls logging output.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	DataDir  string         `yaml:"data_dir"`
	Workers  int            `yaml:"workers"`
	Chunker  ChunkerConfig  `yaml:"chunker"`
	Embedder EmbedderConfig `yaml:"embedder"`
	Store    StoreConfig    `yaml:"store"`
	Answer   AnswerConfig   `yaml:"answer"`
	Search   SearchConfig   `yaml:"search"`
	Log      LogConfig      `yaml:"log"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			return cfg, nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/docqa/config.yaml.
// If neither exists, it writes defaults to ~/.config/docqa/config.yaml and returns them.
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

// Save writes the config to the given path, creating directories as needed.
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
	return filepath.Join(home, ".config", "docqa", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	return &AppConfig{
		DataDir: "data",
		Workers: 4,
		Chunker: ChunkerConfig{Size: 800, Overlap: 200, BoundaryWindow: 100},
		Embedder: EmbedderConfig{
			BaseURL:     "http://localhost:11434",
			Model:       "nomic-embed-text",
			BatchSize:   32,
			TimeoutSecs: 30,
		},
		Store: StoreConfig{Type: "sqlite", Path: filepath.Join("db", "docqa.db")},
		Answer: AnswerConfig{
			Enabled:          true,
			BaseURL:          "http://localhost:11434",
			Model:            "llama3.2",
			TimeoutSecs:      60,
			MaxContextChunks: 5,
		},
		Search: SearchConfig{TopK: 5},
		Log:    LogConfig{Level: "info"},
	}
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.DataDir == "" {
		cfg.DataDir = "data"
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.Chunker.Size <= 0 {
		cfg.Chunker.Size = 800
	}
	if cfg.Chunker.Overlap < 0 {
		cfg.Chunker.Overlap = 0
	}
	if cfg.Chunker.BoundaryWindow < 0 {
		cfg.Chunker.BoundaryWindow = 0
	}
	if cfg.Embedder.BaseURL == "" {
		cfg.Embedder.BaseURL = "http://localhost:11434"
	}
	if cfg.Embedder.Model == "" {
		cfg.Embedder.Model = "nomic-embed-text"
	}
	if cfg.Embedder.BatchSize <= 0 {
		cfg.Embedder.BatchSize = 32
	}
	if cfg.Embedder.TimeoutSecs <= 0 {
		cfg.Embedder.TimeoutSecs = 30
	}
	if cfg.Store.Type == "" {
		cfg.Store.Type = "sqlite"
	}
	if cfg.Store.Type == "sqlite" && cfg.Store.Path == "" {
		cfg.Store.Path = filepath.Join("db", "docqa.db")
	}
	if cfg.Store.Type == "qdrant" && cfg.Store.Qdrant != nil {
		if cfg.Store.Qdrant.Host == "" {
			cfg.Store.Qdrant.Host = "localhost"
		}
		if cfg.Store.Qdrant.Port == 0 {
			cfg.Store.Qdrant.Port = 6334
		}
		if cfg.Store.Qdrant.Collection == "" {
			cfg.Store.Qdrant.Collection = "notes"
		}
	}
	if cfg.Answer.BaseURL == "" {
		cfg.Answer.BaseURL = "http://localhost:11434"
	}
	if cfg.Answer.Model == "" {
		cfg.Answer.Model = "llama3.2"
	}
	if cfg.Answer.TimeoutSecs <= 0 {
		cfg.Answer.TimeoutSecs = 60
	}
	if cfg.Answer.MaxContextChunks <= 0 {
		cfg.Answer.MaxContextChunks = 5
	}
	if cfg.Search.TopK <= 0 {
		cfg.Search.TopK = 5
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}
