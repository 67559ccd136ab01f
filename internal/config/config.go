package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Agent    AgentConfig    `toml:"agent"`
	Decider  DeciderConfig  `toml:"decider"`
	Database DatabaseConfig `toml:"database"`
	Search   SearchConfig   `toml:"search"`
	Observer ObserverConfig `toml:"observer"`
}

type AgentConfig struct {
	WorkspacePath      string `toml:"workspace_path"`
	MaxIterations      int    `toml:"max_iterations"`
	SubAgentIterations int    `toml:"sub_agent_iterations"`
	MaxDepth           int    `toml:"max_depth"`
	DefaultBashTimeout int    `toml:"default_bash_timeout_ms"`
}

type DeciderConfig struct {
	URL    string `toml:"url"`
	APIKey string `toml:"api_key"`
}

type DatabaseConfig struct {
	Path        string `toml:"path"`
	PostgresURL string `toml:"postgres_url"`
}

type SearchConfig struct {
	BraveAPIKey string `toml:"brave_api_key"`
}

type ObserverConfig struct {
	Enabled     bool   `toml:"enabled"`
	Endpoint    string `toml:"endpoint"`
	ServiceName string `toml:"service_name"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	home, _ := os.UserHomeDir()
	if home == "" {
		home = "/tmp"
	}
	return Config{
		Agent: AgentConfig{
			WorkspacePath:      filepath.Join(home, "tatty-workspace"),
			MaxIterations:      20,
			SubAgentIterations: 50,
			MaxDepth:           5,
			DefaultBashTimeout: 120000,
		},
		Database: DatabaseConfig{Path: "tatty.db"},
		Observer: ObserverConfig{ServiceName: "tatty"},
	}
}

// Load reads config: defaults -> TOML file -> env vars (env wins).
func Load(path string) Config {
	cfg := Default()

	if path == "" {
		path = "tatty.toml"
	}

	if data, err := os.ReadFile(path); err == nil {
		_ = toml.Unmarshal(data, &cfg)
	}

	// Env overrides
	if v := os.Getenv("TATTY_WORKSPACE"); v != "" {
		cfg.Agent.WorkspacePath = v
	}
	if v := os.Getenv("TATTY_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("TATTY_POSTGRES_URL"); v != "" {
		cfg.Database.PostgresURL = v
	}
	if v := os.Getenv("TATTY_DECIDER_URL"); v != "" {
		cfg.Decider.URL = v
	}
	if v := os.Getenv("TATTY_DECIDER_API_KEY"); v != "" {
		cfg.Decider.APIKey = v
	}
	if v := os.Getenv("TATTY_BRAVE_API_KEY"); v != "" {
		cfg.Search.BraveAPIKey = v
	}
	if v := os.Getenv("TATTY_OBSERVER_ENDPOINT"); v != "" {
		cfg.Observer.Endpoint = v
	}
	if os.Getenv("TATTY_OBSERVER_ENABLED") == "true" || os.Getenv("TATTY_OBSERVER_ENABLED") == "1" {
		cfg.Observer.Enabled = true
	}

	// Fallbacks
	if cfg.Agent.MaxIterations <= 0 {
		cfg.Agent.MaxIterations = 20
	}
	if cfg.Agent.SubAgentIterations <= 0 {
		cfg.Agent.SubAgentIterations = 50
	}
	if cfg.Agent.MaxDepth <= 0 {
		cfg.Agent.MaxDepth = 5
	}

	return cfg
}
