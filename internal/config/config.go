package config

import (
	"log/slog"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server     ServerConfig     `toml:"server"`
	LLM        LLMConfig        `toml:"llm"`
	Embedding  EmbeddingConfig  `toml:"embedding"`
	Qdrant     QdrantConfig     `toml:"qdrant"`
	Store      StoreConfig      `toml:"store"`
	Classifier ClassifierConfig `toml:"classifier"`
	Engine     EngineConfig     `toml:"engine"`
	Observer   ObserverConfig   `toml:"observer"`
}

type ServerConfig struct {
	Addr   string `toml:"addr"`
	APIKey string `toml:"api_key"`
}

type LLMConfig struct {
	BaseURL string `toml:"base_url"`
	Model   string `toml:"model"`
	APIKey  string `toml:"api_key"`
}

type EmbeddingConfig struct {
	BaseURL    string `toml:"base_url"`
	Model      string `toml:"model"`
	Dimensions int    `toml:"dimensions"`
	APIKey     string `toml:"api_key"`
}

type QdrantConfig struct {
	Host       string `toml:"host"`
	Port       int    `toml:"port"`
	APIKey     string `toml:"api_key"`
	UseTLS     bool   `toml:"use_tls"`
	Collection string `toml:"collection"`
	ContentKey string `toml:"content_key"`
}

type StoreConfig struct {
	// Backend selects the conversation store: "sqlite" or "postgres".
	Backend     string `toml:"backend"`
	Path        string `toml:"path"`         // sqlite file
	PostgresURL string `toml:"postgres_url"` // pgx connection string
	TTLHours    int    `toml:"ttl_hours"`
}

type ClassifierConfig struct {
	BaseURL string `toml:"base_url"` // empty = classification disabled
}

type EngineConfig struct {
	MaxSteps    int `toml:"max_steps"`
	MaxHistory  int `toml:"max_history"`
	TopK        int `toml:"top_k"`
	ResultCap   int `toml:"result_cap"`
	FanOut      int `toml:"fan_out"`
	LockWaitSec int `toml:"lock_wait_sec"`
}

type ObserverConfig struct {
	Enabled bool `toml:"enabled"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Server:    ServerConfig{Addr: ":8080"},
		LLM:       LLMConfig{BaseURL: "https://api.openai.com/v1", Model: "gpt-4o-mini"},
		Embedding: EmbeddingConfig{BaseURL: "https://api.openai.com/v1", Model: "text-embedding-3-small", Dimensions: 1536},
		Qdrant:    QdrantConfig{Host: "localhost", Port: 6334, Collection: "documents"},
		Store:     StoreConfig{Backend: "sqlite", Path: "aksara.db", TTLHours: 24},
		Engine:    EngineConfig{MaxSteps: 10, MaxHistory: 20, TopK: 10, ResultCap: 10, FanOut: 5, LockWaitSec: 10},
	}
}

// Load reads config: defaults -> TOML file -> env vars (env wins).
func Load(path string) Config {
	cfg := Default()

	if path == "" {
		path = "aksara.toml"
	}

	if data, err := os.ReadFile(path); err == nil {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			slog.Warn("ignoring malformed config file", "path", path, "error", err)
		}
	}

	// Env overrides
	if v := os.Getenv("AKSARA_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("AKSARA_API_KEY"); v != "" {
		cfg.Server.APIKey = v
	}
	if v := os.Getenv("AKSARA_LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("AKSARA_LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("AKSARA_EMBEDDING_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}
	if v := os.Getenv("AKSARA_QDRANT_HOST"); v != "" {
		cfg.Qdrant.Host = v
	}
	if v := os.Getenv("AKSARA_QDRANT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Qdrant.Port = port
		}
	}
	if v := os.Getenv("AKSARA_QDRANT_API_KEY"); v != "" {
		cfg.Qdrant.APIKey = v
	}
	if v := os.Getenv("AKSARA_POSTGRES_URL"); v != "" {
		cfg.Store.Backend = "postgres"
		cfg.Store.PostgresURL = v
	}
	if v := os.Getenv("AKSARA_CLASSIFIER_URL"); v != "" {
		cfg.Classifier.BaseURL = v
	}
	if v := os.Getenv("AKSARA_OBSERVER_ENABLED"); v == "true" || v == "1" {
		cfg.Observer.Enabled = true
	}

	// Fallbacks
	if cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = cfg.LLM.APIKey
	}

	return cfg
}
