package config

import (
	"fmt"
)

type Config struct {
	Server    ServerConfig
	LLM       LLMConfig
	Storage   StorageConfig
	Catalog   CatalogConfig
	Retrieval RetrievalConfig
	Dedupe    DedupeConfig
	Region    RegionConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port    int
	MCPPort int
}

type LLMConfig struct {
	AnthropicAPIKey string
	OpenAIAPIKey    string
	Model           string
	EmbedModel      string
	MaxTokens       int
}

type StorageConfig struct {
	DataDir string
}

type CatalogConfig struct {
	FeedURL        string
	MatchThreshold int
}

type RetrievalConfig struct {
	TopK int
}

type DedupeConfig struct {
	HardWindowDays int
	SoftWindowDays int
}

type RegionConfig struct {
	DocsDir string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:    4600,
			MCPPort: 4601,
		},
		LLM: LLMConfig{
			Model:      "claude-sonnet-4-20250514",
			EmbedModel: "text-embedding-3-small",
			MaxTokens:  2048,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Catalog: CatalogConfig{
			FeedURL:        "https://todoparaelcampo.com.mx/products.json?limit=200",
			MatchThreshold: 80,
		},
		Retrieval: RetrievalConfig{
			TopK: 7,
		},
		Dedupe: DedupeConfig{
			HardWindowDays: 10,
			SoftWindowDays: 3,
		},
		Region: RegionConfig{
			DocsDir: "docs",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the JSON file backend at
// $XDG_CONFIG_HOME/surco/config.json, then applies SURCO_* environment
// variable overrides. API keys are never stored in the file backend and
// must come from the environment.
func Load() (Config, error) {
	return loadWith(newFileBackend())
}

func loadWith(b Backend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.LLM.AnthropicAPIKey == "" {
		return Config{}, fmt.Errorf("missing required config: Anthropic API key. Set it via environment variable SURCO_ANTHROPIC_API_KEY")
	}
	if cfg.LLM.OpenAIAPIKey == "" {
		return Config{}, fmt.Errorf("missing required config: OpenAI API key (embeddings). Set it via environment variable SURCO_OPENAI_API_KEY")
	}

	return cfg, nil
}
