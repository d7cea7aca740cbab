package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// IndexConfig names the vector index and bounds its consistency waits.
type IndexConfig struct {
	Name         string        `yaml:"name"`
	DeleteSettle time.Duration `yaml:"delete_settle"`
	CreateSettle time.Duration `yaml:"create_settle"`
	SampleCap    int           `yaml:"sample_cap"`
	TopK         int           `yaml:"top_k"`
}

// MilvusConfig contains connection details for Milvus.
type MilvusConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
}

// Address returns host:port.
func (m MilvusConfig) Address() string {
	return m.Host + ":" + m.Port
}

// VectorStoreConfig selects the vector store implementation.
type VectorStoreConfig struct {
	Type   string       `yaml:"type"`
	Milvus MilvusConfig `yaml:"milvus"`
}

// EmbedderConfig selects and configures the embedding service.
type EmbedderConfig struct {
	Provider    string        `yaml:"provider"`
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	BatchSize   int           `yaml:"batch_size"`
	Concurrency int           `yaml:"concurrency"`
	Timeout     time.Duration `yaml:"timeout"`
}

// LLMConfig configures the generative model.
type LLMConfig struct {
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	Temperature float32       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// PersonaConfig points at the persona the answers are written as.
type PersonaConfig struct {
	File string `yaml:"file"`
	Name string `yaml:"name"`
}

// AuthConfig lists API keys allowed to reset the index. Empty means open.
type AuthConfig struct {
	ResetAPIKeys string `yaml:"reset_api_keys"`
}

// Config is the root application configuration.
type Config struct {
	ListenAddr  string            `yaml:"listen_addr"`
	CorpusPath  string            `yaml:"corpus_path"`
	LogLevel    string            `yaml:"log_level"`
	Index       IndexConfig       `yaml:"index"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	LLM         LLMConfig         `yaml:"llm"`
	Persona     PersonaConfig     `yaml:"persona"`
	Auth        AuthConfig        `yaml:"auth"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ListenAddr: ":5000",
		CorpusPath: "sachin-info",
		LogLevel:   "info",
		Index: IndexConfig{
			Name:         "webrag",
			DeleteSettle: 10 * time.Second,
			CreateSettle: 15 * time.Second,
			SampleCap:    1000,
			TopK:         5,
		},
		VectorStore: VectorStoreConfig{
			Type:   "milvus",
			Milvus: MilvusConfig{Host: "milvus", Port: "19530"},
		},
		Embedder: EmbedderConfig{
			Provider:    "openai",
			BaseURL:     "http://localhost:8080/v1",
			Model:       "sentence-transformers/all-MiniLM-L6-v2",
			BatchSize:   32,
			Concurrency: 4,
			Timeout:     30 * time.Second,
		},
		LLM: LLMConfig{
			BaseURL:     "https://openrouter.ai/api/v1",
			Model:       "google/gemini-flash-1.5",
			Temperature: 0.3,
			Timeout:     120 * time.Second,
		},
	}
}

// Load reads a YAML config from path on top of the defaults, then applies
// environment overrides. A missing file is not an error; an empty path skips
// the file entirely.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	cfg.ListenAddr = getEnvWithDefault("LISTEN_ADDR", cfg.ListenAddr)
	cfg.CorpusPath = getEnvWithDefault("CORPUS_PATH", cfg.CorpusPath)
	cfg.LogLevel = getEnvWithDefault("LOG_LEVEL", cfg.LogLevel)

	cfg.Index.Name = getEnvWithDefault("INDEX_NAME", cfg.Index.Name)
	cfg.VectorStore.Type = getEnvWithDefault("VECTOR_STORE", cfg.VectorStore.Type)
	cfg.VectorStore.Milvus.Host = getEnvWithDefault("MILVUS_HOST", cfg.VectorStore.Milvus.Host)
	cfg.VectorStore.Milvus.Port = getEnvWithDefault("MILVUS_PORT", cfg.VectorStore.Milvus.Port)

	cfg.Embedder.Provider = getEnvWithDefault("EMBED_PROVIDER", cfg.Embedder.Provider)
	cfg.Embedder.BaseURL = getEnvWithDefault("EMBED_BASE_URL", cfg.Embedder.BaseURL)
	cfg.Embedder.APIKey = getEnvWithDefault("EMBED_API_KEY", cfg.Embedder.APIKey)
	cfg.Embedder.Model = getEnvWithDefault("EMBED_MODEL", cfg.Embedder.Model)

	cfg.LLM.BaseURL = getEnvWithDefault("OPENROUTER_BASE_URL", cfg.LLM.BaseURL)
	cfg.LLM.APIKey = getEnvWithDefault("OPENROUTER_API_KEY", cfg.LLM.APIKey)
	cfg.LLM.Model = getEnvWithDefault("OPENROUTER_MODEL", cfg.LLM.Model)

	cfg.Persona.File = getEnvWithDefault("PERSONA_FILE", cfg.Persona.File)
	cfg.Persona.Name = getEnvWithDefault("PERSONA_NAME", cfg.Persona.Name)
	cfg.Auth.ResetAPIKeys = getEnvWithDefault("RESET_API_KEYS", cfg.Auth.ResetAPIKeys)

	var err error
	if cfg.Index.DeleteSettle, err = getEnvDuration("DELETE_SETTLE", cfg.Index.DeleteSettle); err != nil {
		return err
	}
	if cfg.Index.CreateSettle, err = getEnvDuration("CREATE_SETTLE", cfg.Index.CreateSettle); err != nil {
		return err
	}
	if cfg.Index.SampleCap, err = getEnvInt("SAMPLE_CAP", cfg.Index.SampleCap); err != nil {
		return err
	}
	if cfg.Index.TopK, err = getEnvInt("TOP_K", cfg.Index.TopK); err != nil {
		return err
	}
	if v := os.Getenv("LLM_TEMPERATURE"); v != "" {
		t, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return fmt.Errorf("invalid LLM_TEMPERATURE %q: %w", v, err)
		}
		cfg.LLM.Temperature = float32(t)
	}
	return nil
}

func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.Index.Name == "" {
		cfg.Index.Name = def.Index.Name
	}
	if cfg.Index.SampleCap <= 0 {
		cfg.Index.SampleCap = def.Index.SampleCap
	}
	if cfg.Index.TopK <= 0 {
		cfg.Index.TopK = def.Index.TopK
	}
	if cfg.Index.DeleteSettle <= 0 {
		cfg.Index.DeleteSettle = def.Index.DeleteSettle
	}
	if cfg.Index.CreateSettle <= 0 {
		cfg.Index.CreateSettle = def.Index.CreateSettle
	}
	if cfg.Embedder.BatchSize <= 0 {
		cfg.Embedder.BatchSize = def.Embedder.BatchSize
	}
	if cfg.Embedder.Concurrency <= 0 {
		cfg.Embedder.Concurrency = def.Embedder.Concurrency
	}
	if cfg.Embedder.Timeout <= 0 {
		cfg.Embedder.Timeout = def.Embedder.Timeout
	}
	if cfg.LLM.Timeout <= 0 {
		cfg.LLM.Timeout = def.LLM.Timeout
	}
	cfg.VectorStore.Type = strings.ToLower(cfg.VectorStore.Type)
	cfg.Embedder.Provider = strings.ToLower(cfg.Embedder.Provider)
}

// Validate checks the settings required by the selected providers.
func (c *Config) Validate() error {
	switch c.VectorStore.Type {
	case "milvus", "memory":
	default:
		return fmt.Errorf("unknown vector store: %s", c.VectorStore.Type)
	}
	switch c.Embedder.Provider {
	case "openai", "local":
	default:
		return fmt.Errorf("unknown embed provider: %s", c.Embedder.Provider)
	}
	// Zero is dropped from the request body and the provider default applies.
	if c.LLM.Temperature <= 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("LLM_TEMPERATURE must be in (0, 2], got %v", c.LLM.Temperature)
	}
	if c.LLM.APIKey == "" {
		return errors.New("OPENROUTER_API_KEY environment variable is required")
	}
	return nil
}

// getEnvWithDefault gets an environment variable or returns a default value.
func getEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return d, nil
}
