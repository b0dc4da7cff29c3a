package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/adhocore/gronx"
	"github.com/caarlos0/env/v11"
)

// FlexibleStringSlice is a []string that also accepts JSON numbers,
// so allow_from can contain both "123" and 123.
type FlexibleStringSlice []string

func (f *FlexibleStringSlice) UnmarshalJSON(data []byte) error {
	// Try []string first
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}

	// Try []interface{} to handle mixed types
	var raw []interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	result := make([]string, 0, len(raw))
	for _, v := range raw {
		switch val := v.(type) {
		case string:
			result = append(result, val)
		case float64:
			result = append(result, fmt.Sprintf("%.0f", val))
		default:
			result = append(result, fmt.Sprintf("%v", val))
		}
	}
	*f = result
	return nil
}

type Config struct {
	Storage  StorageConfig  `json:"storage"`
	Engine   EngineConfig   `json:"engine"`
	Channels ChannelsConfig `json:"channels"`
	Logging  LoggingConfig  `json:"logging"`
	mu       sync.RWMutex
}

type StorageConfig struct {
	Workspace string      `json:"workspace" env:"OMOKAGE_STORAGE_WORKSPACE"`
	Backend   string      `json:"backend" env:"OMOKAGE_STORAGE_BACKEND"` // "sqlite" or "redis"
	Redis     RedisConfig `json:"redis"`
}

type RedisConfig struct {
	Addr     string `json:"addr" env:"OMOKAGE_STORAGE_REDIS_ADDR"`
	Password string `json:"password,omitempty" env:"OMOKAGE_STORAGE_REDIS_PASSWORD"`
	DB       int    `json:"db" env:"OMOKAGE_STORAGE_REDIS_DB"`
	Prefix   string `json:"prefix" env:"OMOKAGE_STORAGE_REDIS_PREFIX"`
}

type EngineConfig struct {
	WindowSize             int    `json:"window_size" env:"OMOKAGE_ENGINE_WINDOW_SIZE"`
	HistoryLimit           int    `json:"history_limit" env:"OMOKAGE_ENGINE_HISTORY_LIMIT"`
	PruneSchedule          string `json:"prune_schedule" env:"OMOKAGE_ENGINE_PRUNE_SCHEDULE"`
	MaxLearnedKeywords     int    `json:"max_learned_keywords" env:"OMOKAGE_ENGINE_MAX_LEARNED_KEYWORDS"`
	MaxResponsesPerKeyword int    `json:"max_responses_per_keyword" env:"OMOKAGE_ENGINE_MAX_RESPONSES_PER_KEYWORD"`
}

type ChannelsConfig struct {
	Discord DiscordConfig `json:"discord"`
}

type DiscordConfig struct {
	Token     string              `json:"token" env:"OMOKAGE_CHANNELS_DISCORD_TOKEN"`
	AllowFrom FlexibleStringSlice `json:"allow_from" env:"OMOKAGE_CHANNELS_DISCORD_ALLOW_FROM"`
}

type LoggingConfig struct {
	Level string `json:"level" env:"OMOKAGE_LOGGING_LEVEL"`
}

func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Workspace: "~/.omokage",
			Backend:   "sqlite",
			Redis: RedisConfig{
				Addr:   "127.0.0.1:6379",
				Prefix: "omokage",
			},
		},
		Engine: EngineConfig{
			WindowSize:             1000,
			HistoryLimit:           50,
			PruneSchedule:          "0 4 * * *",
			MaxLearnedKeywords:     2000,
			MaxResponsesPerKeyword: 20,
		},
		Channels: ChannelsConfig{
			Discord: DiscordConfig{
				Token:     "",
				AllowFrom: FlexibleStringSlice{},
			},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	// Env overrides and validation apply even before onboarding has
	// written a config file.
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	case os.IsNotExist(err):
	default:
		return nil, err
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

func (c *Config) validate() error {
	switch c.Storage.Backend {
	case "sqlite", "redis":
	default:
		return fmt.Errorf("storage.backend must be \"sqlite\" or \"redis\", got %q", c.Storage.Backend)
	}
	if c.Engine.PruneSchedule != "" && !gronx.New().IsValid(c.Engine.PruneSchedule) {
		return fmt.Errorf("engine.prune_schedule is not a valid cron expression: %q", c.Engine.PruneSchedule)
	}
	return nil
}

func (c *Config) WorkspacePath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return expandHome(c.Storage.Workspace)
}

// PersonaDir is where persona TOML files live.
func (c *Config) PersonaDir() string {
	return filepath.Join(c.WorkspacePath(), "personas")
}

// StatePath is the SQLite database location under the workspace.
func (c *Config) StatePath() string {
	return filepath.Join(c.WorkspacePath(), "state", "omokage.db")
}

func expandHome(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		home, _ := os.UserHomeDir()
		if len(path) > 1 && path[1] == '/' {
			return home + path[1:]
		}
		return home
	}
	return path
}
