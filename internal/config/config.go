// Package config loads wassistant settings from an optional YAML file, a
// .env file and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	OpenAI     OpenAIConfig     `yaml:"openai"`
	Store      StoreConfig      `yaml:"store"`
	Vision     VisionConfig     `yaml:"vision"`
	Poll       PollConfig       `yaml:"poll"`
	Admin      AdminConfig      `yaml:"admin"`
	Logging    LoggingConfig    `yaml:"logging"`
	Middleware MiddlewareConfig `yaml:"middleware"`

	// TurnTimeout bounds one inbound message end to end.
	TurnTimeout    time.Duration `yaml:"-"`
	TurnTimeoutRaw string        `yaml:"turn_timeout"`
}

type OpenAIConfig struct {
	APIKey      string `yaml:"api_key"`
	AssistantID string `yaml:"assistant_id"`
	BaseURL     string `yaml:"base_url"`
}

type StoreConfig struct {
	Backend string `yaml:"backend"` // file, sqlite or pebble
	Path    string `yaml:"path"`
	// CompareAndSet keeps the first stored thread when two first-contact
	// turns race. Ignored by the file backend.
	CompareAndSet bool `yaml:"compare_and_set"`
}

type VisionConfig struct {
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	APIKey    string `yaml:"api_key"`
	MaxTokens int    `yaml:"max_tokens"`
}

type PollConfig struct {
	Interval    time.Duration `yaml:"-"`
	IntervalRaw string        `yaml:"interval"`
	MaxAttempts int           `yaml:"max_attempts"`
}

type AdminConfig struct {
	Addr string `yaml:"addr"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

type MiddlewareConfig struct {
	Disabled []string `yaml:"disabled"`
	DebugLog string   `yaml:"debug_log"`
}

// Default returns the settings used when nothing else is configured.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Backend: "file",
			Path:    "threads_db",
		},
		Vision: VisionConfig{
			Provider:  "openai",
			Model:     "gpt-4o",
			MaxTokens: 500,
		},
		Poll: PollConfig{
			Interval:    500 * time.Millisecond,
			MaxAttempts: 240,
		},
		TurnTimeout: 5 * time.Minute,
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads .env (if present), then the YAML file at path (if path is not
// empty), then environment overrides. It does not validate.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.parseDurations(); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		path = filepath.Join(home, path[2:])
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), c); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} with the variable's value, or nothing when
// it is unset.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
	})
}

func (c *Config) applyEnv() error {
	setString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString(&c.OpenAI.APIKey, "OPENAI_API_KEY")
	setString(&c.OpenAI.AssistantID, "OPENAI_ASSISTANT_ID")
	setString(&c.OpenAI.BaseURL, "OPENAI_BASE_URL")
	setString(&c.Store.Backend, "WASSISTANT_STORE_BACKEND")
	setString(&c.Store.Path, "WASSISTANT_STORE_PATH")
	setString(&c.Vision.Provider, "WASSISTANT_VISION_PROVIDER")
	setString(&c.Vision.Model, "WASSISTANT_VISION_MODEL")
	setString(&c.Vision.BaseURL, "WASSISTANT_VISION_BASE_URL")
	setString(&c.Vision.APIKey, "WASSISTANT_VISION_API_KEY")
	setString(&c.Poll.IntervalRaw, "WASSISTANT_POLL_INTERVAL")
	setString(&c.TurnTimeoutRaw, "WASSISTANT_TURN_TIMEOUT")
	setString(&c.Admin.Addr, "WASSISTANT_ADMIN_ADDR")
	setString(&c.Logging.Level, "WASSISTANT_LOG_LEVEL")
	setString(&c.Logging.Format, "WASSISTANT_LOG_FORMAT")
	setString(&c.Middleware.DebugLog, "WASSISTANT_MIDDLEWARE_DEBUG_LOG")

	ints := []struct {
		dst *int
		key string
	}{
		{&c.Poll.MaxAttempts, "WASSISTANT_POLL_MAX_ATTEMPTS"},
		{&c.Vision.MaxTokens, "WASSISTANT_VISION_MAX_TOKENS"},
	}
	for _, e := range ints {
		v := os.Getenv(e.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", e.key, err)
		}
		*e.dst = n
	}

	if v := os.Getenv("WASSISTANT_STORE_CAS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("WASSISTANT_STORE_CAS: %w", err)
		}
		c.Store.CompareAndSet = b
	}
	return nil
}

func (c *Config) parseDurations() error {
	if c.Poll.IntervalRaw != "" {
		d, err := time.ParseDuration(c.Poll.IntervalRaw)
		if err != nil {
			return fmt.Errorf("poll.interval: %w", err)
		}
		c.Poll.Interval = d
	}
	if c.TurnTimeoutRaw != "" {
		d, err := time.ParseDuration(c.TurnTimeoutRaw)
		if err != nil {
			return fmt.Errorf("turn_timeout: %w", err)
		}
		c.TurnTimeout = d
	}
	return nil
}

// Validate checks what answering messages needs: credentials, an assistant
// to run and sane bounds.
func (c *Config) Validate() error {
	if err := c.ValidateCredentials(); err != nil {
		return err
	}
	if c.OpenAI.AssistantID == "" {
		return errors.New("openai.assistant_id is required (set OPENAI_ASSISTANT_ID or run provision)")
	}
	switch c.Store.Backend {
	case "", "file", "sqlite", "pebble":
	default:
		return fmt.Errorf("store.backend %q is not one of file, sqlite, pebble", c.Store.Backend)
	}
	if c.Store.Path == "" {
		return errors.New("store.path is required")
	}
	if c.Poll.Interval <= 0 {
		return errors.New("poll.interval must be positive")
	}
	if c.Poll.MaxAttempts <= 0 {
		return errors.New("poll.max_attempts must be positive")
	}
	return nil
}

// ValidateCredentials checks only what talking to the remote service needs.
func (c *Config) ValidateCredentials() error {
	if c.OpenAI.APIKey == "" {
		return errors.New("openai.api_key is required (set OPENAI_API_KEY)")
	}
	return nil
}

// SlogLevel maps the configured level name to a slog level. Unknown names
// mean info.
func (l LoggingConfig) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(l.Level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
