package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig      `toml:"app"`
	Auth     AuthConfig     `toml:"auth"`
	Log      LogConfig      `toml:"log"`
	LLM      LLMConfig      `toml:"llm"`
	Search   SearchConfig   `toml:"search"`
	Blob     BlobConfig     `toml:"blob"`
	History  HistoryConfig  `toml:"history"`
	RAG      RAGConfig      `toml:"rag"`
	Upstream UpstreamConfig `toml:"upstream"`
}

type AppConfig struct {
	Name    string `toml:"name"`
	Env     string `toml:"env"`
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
	GinMode string `toml:"gin_mode"`
}

// AuthConfig holds the shared secret expected in X-API-Key. Empty disables the check.
type AuthConfig struct {
	APIKey string `toml:"api_key"`
}

type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// LLMConfig describes the Azure OpenAI resource used for both chat and embeddings.
type LLMConfig struct {
	Endpoint        string `toml:"endpoint"`
	APIKey          string `toml:"api_key"`
	Deployment      string `toml:"deployment"`
	APIVersion      string `toml:"api_version"`
	EmbedDeployment string `toml:"embed_deployment"`
	EmbedAPIVersion string `toml:"embed_api_version"`
	EmbedBatchSize  int    `toml:"embed_batch_size"`
	EmbedDimensions int    `toml:"embed_dimensions"`
}

type SearchConfig struct {
	Endpoint   string `toml:"endpoint"`
	APIKey     string `toml:"api_key"`
	Index      string `toml:"index"`
	APIVersion string `toml:"api_version"`
}

type BlobConfig struct {
	Account   string `toml:"account"`
	Container string `toml:"container"`

	// ConnectionString enables reading documents straight from the container.
	ConnectionString string `toml:"connection_string"`
}

type HistoryConfig struct {
	RedisURL          string `toml:"redis_url"`
	TTLSeconds        int    `toml:"ttl_seconds"`
	MemoryMaxSessions int    `toml:"memory_max_sessions"`
}

type RAGConfig struct {
	TopK         int `toml:"top_k"`
	ChunkSize    int `toml:"chunk_size"`
	ChunkOverlap int `toml:"chunk_overlap"`
}

type UpstreamConfig struct {
	TimeoutSeconds int `toml:"timeout_seconds"`
	MaxRetries     int `toml:"max_retries"`
}

func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := defaultConfig()

	configPath := getEnv("CONFIG_FILE", "configs/config.toml")
	if _, err := os.Stat(configPath); err == nil {
		if _, err := toml.DecodeFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("decode config file failed: %w", err)
		}
	}

	overrideByEnv(cfg)
	return cfg, nil
}

func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.App.Host, c.App.Port)
}

// Validate reports every required upstream setting that is still empty.
func (c *Config) Validate() error {
	required := []struct {
		env   string
		value string
	}{
		{"AZURE_OPENAI_ENDPOINT", c.LLM.Endpoint},
		{"AZURE_OPENAI_API_KEY", c.LLM.APIKey},
		{"AZURE_SEARCH_ENDPOINT", c.Search.Endpoint},
		{"AZURE_SEARCH_KEY", c.Search.APIKey},
		{"AZURE_SEARCH_INDEX", c.Search.Index},
	}
	var missing []string
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.App.Env, "prod") || strings.EqualFold(c.App.Env, "production")
}

func defaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:    "ragdesk",
			Env:     "dev",
			Host:    "0.0.0.0",
			Port:    8000,
			GinMode: "release",
		},
		Log: LogConfig{
			Level: "INFO",
		},
		LLM: LLMConfig{
			Deployment:      "gpt-4o-mini",
			APIVersion:      "2024-10-01-preview",
			EmbedDeployment: "text-embedding-3-large",
			EmbedAPIVersion: "2024-10-01-preview",
			EmbedBatchSize:  16,
			EmbedDimensions: 3072,
		},
		Search: SearchConfig{
			APIVersion: "2024-07-01",
		},
		Blob: BlobConfig{
			Container: "docs",
		},
		History: HistoryConfig{
			TTLSeconds:        604800,
			MemoryMaxSessions: 10000,
		},
		RAG: RAGConfig{
			TopK:         4,
			ChunkSize:    1200,
			ChunkOverlap: 200,
		},
		Upstream: UpstreamConfig{
			TimeoutSeconds: 60,
			MaxRetries:     0,
		},
	}
}

func overrideByEnv(cfg *Config) {
	cfg.App.Name = getEnv("APP_NAME", cfg.App.Name)
	cfg.App.Env = getEnv("APP_ENV", cfg.App.Env)
	cfg.App.Host = getEnv("APP_HOST", cfg.App.Host)
	cfg.App.Port = getEnvAsInt("APP_PORT", cfg.App.Port)
	cfg.App.GinMode = getEnv("GIN_MODE", cfg.App.GinMode)

	cfg.Auth.APIKey = getEnv("API_KEY", cfg.Auth.APIKey)

	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.File = getEnv("LOG_FILE", cfg.Log.File)

	cfg.LLM.Endpoint = getEnv("AZURE_OPENAI_ENDPOINT", cfg.LLM.Endpoint)
	cfg.LLM.APIKey = getEnv("AZURE_OPENAI_API_KEY", cfg.LLM.APIKey)
	cfg.LLM.Deployment = getEnv("AZURE_OPENAI_DEPLOYMENT", cfg.LLM.Deployment)
	cfg.LLM.APIVersion = getEnv("AZURE_OPENAI_API_VERSION", cfg.LLM.APIVersion)
	cfg.LLM.EmbedDeployment = getEnv("AZURE_OPENAI_EMBED_DEP", cfg.LLM.EmbedDeployment)
	cfg.LLM.EmbedAPIVersion = getEnv("AZURE_OPENAI_EMBED_API_VERSION", cfg.LLM.EmbedAPIVersion)
	cfg.LLM.EmbedBatchSize = getEnvAsInt("AZURE_OPENAI_EMBED_BATCH_SIZE", cfg.LLM.EmbedBatchSize)
	cfg.LLM.EmbedDimensions = getEnvAsInt("AZURE_OPENAI_EMBED_DIMENSIONS", cfg.LLM.EmbedDimensions)

	cfg.Search.Endpoint = getEnv("AZURE_SEARCH_ENDPOINT", cfg.Search.Endpoint)
	cfg.Search.APIKey = getEnv("AZURE_SEARCH_KEY", cfg.Search.APIKey)
	cfg.Search.Index = getEnv("AZURE_SEARCH_INDEX", cfg.Search.Index)
	cfg.Search.APIVersion = getEnv("AZURE_SEARCH_API_VERSION", cfg.Search.APIVersion)

	cfg.Blob.Account = getEnv("BLOB_ACCOUNT_NAME", cfg.Blob.Account)
	cfg.Blob.Container = getEnv("BLOB_CONTAINER", cfg.Blob.Container)
	cfg.Blob.ConnectionString = getEnv("AZURE_BLOB_CONN", cfg.Blob.ConnectionString)

	cfg.History.RedisURL = getEnv("REDIS_URL", cfg.History.RedisURL)
	cfg.History.TTLSeconds = getEnvAsInt("REDIS_TTL_SECONDS", cfg.History.TTLSeconds)
	cfg.History.MemoryMaxSessions = getEnvAsInt("HISTORY_MEMORY_MAX_SESSIONS", cfg.History.MemoryMaxSessions)

	cfg.RAG.TopK = getEnvAsInt("RAG_TOP_K", cfg.RAG.TopK)
	cfg.RAG.ChunkSize = getEnvAsInt("RAG_CHUNK_SIZE", cfg.RAG.ChunkSize)
	cfg.RAG.ChunkOverlap = getEnvAsInt("RAG_CHUNK_OVERLAP", cfg.RAG.ChunkOverlap)

	cfg.Upstream.TimeoutSeconds = getEnvAsInt("UPSTREAM_TIMEOUT_SECONDS", cfg.Upstream.TimeoutSeconds)
	cfg.Upstream.MaxRetries = getEnvAsInt("UPSTREAM_MAX_RETRIES", cfg.Upstream.MaxRetries)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}
