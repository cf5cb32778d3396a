package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "SURCO_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.mcp_port", typ: kInt, env: "SURCO_SERVER_MCP_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.MCPPort = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.MCPPort },
	},
	{
		key: "llm.anthropic_api_key", typ: kString, env: "SURCO_ANTHROPIC_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.LLM.AnthropicAPIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.AnthropicAPIKey },
	},
	{
		key: "llm.openai_api_key", typ: kString, env: "SURCO_OPENAI_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.LLM.OpenAIAPIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.OpenAIAPIKey },
	},
	{
		key: "llm.model", typ: kString, env: "SURCO_LLM_MODEL",
		apply:   func(cfg *Config, v any) { cfg.LLM.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.Model },
	},
	{
		key: "llm.embed_model", typ: kString, env: "SURCO_LLM_EMBED_MODEL",
		apply:   func(cfg *Config, v any) { cfg.LLM.EmbedModel = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.EmbedModel },
	},
	{
		key: "llm.max_tokens", typ: kInt, env: "SURCO_LLM_MAX_TOKENS",
		apply:   func(cfg *Config, v any) { cfg.LLM.MaxTokens = v.(int) },
		extract: func(cfg Config) any { return cfg.LLM.MaxTokens },
	},
	{
		key: "storage.data_dir", typ: kString, env: "SURCO_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "catalog.feed_url", typ: kString, env: "SURCO_CATALOG_FEED_URL",
		apply:   func(cfg *Config, v any) { cfg.Catalog.FeedURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Catalog.FeedURL },
	},
	{
		key: "catalog.match_threshold", typ: kInt, env: "SURCO_CATALOG_MATCH_THRESHOLD",
		apply:   func(cfg *Config, v any) { cfg.Catalog.MatchThreshold = v.(int) },
		extract: func(cfg Config) any { return cfg.Catalog.MatchThreshold },
	},
	{
		key: "retrieval.top_k", typ: kInt, env: "SURCO_RETRIEVAL_TOP_K",
		apply:   func(cfg *Config, v any) { cfg.Retrieval.TopK = v.(int) },
		extract: func(cfg Config) any { return cfg.Retrieval.TopK },
	},
	{
		key: "dedupe.hard_window_days", typ: kInt, env: "SURCO_DEDUPE_HARD_WINDOW_DAYS",
		apply:   func(cfg *Config, v any) { cfg.Dedupe.HardWindowDays = v.(int) },
		extract: func(cfg Config) any { return cfg.Dedupe.HardWindowDays },
	},
	{
		key: "dedupe.soft_window_days", typ: kInt, env: "SURCO_DEDUPE_SOFT_WINDOW_DAYS",
		apply:   func(cfg *Config, v any) { cfg.Dedupe.SoftWindowDays = v.(int) },
		extract: func(cfg Config) any { return cfg.Dedupe.SoftWindowDays },
	},
	{
		key: "region.docs_dir", typ: kString, env: "SURCO_REGION_DOCS_DIR",
		apply:   func(cfg *Config, v any) { cfg.Region.DocsDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Region.DocsDir },
	},
	{
		key: "log.level", typ: kString, env: "SURCO_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b Backend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
