package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kalambet/journal-ai/internal/provider"
)

// Secret store coordinates of the cloud API key.
const (
	keychainService = "journal-ai"
	keychainAccount = "openai_api_key"
)

type Config struct {
	Providers   ProvidersConfig
	Structuring StructuringConfig
	Journal     JournalConfig
	Log         LogConfig

	// Path is the config file the values were read from. It may not exist.
	Path string
}

type ProvidersConfig struct {
	// Order is a comma-separated provider list, e.g. "local,cloud".
	Order string
	Local LocalConfig
	Cloud CloudConfig
}

type LocalConfig struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

type CloudConfig struct {
	BaseURL string
	Model   string
	Timeout time.Duration
	APIKey  string
}

type StructuringConfig struct {
	MaxTags        int
	MaxTitleLength int
	ReparseRetry   bool
}

type JournalConfig struct {
	Command    string
	AppendTags bool
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Providers: ProvidersConfig{
			Order: "local,cloud",
			Local: LocalConfig{
				BaseURL: "http://localhost:11434",
				Model:   "llama3.2",
				Timeout: 60 * time.Second,
			},
			Cloud: CloudConfig{
				BaseURL: "https://api.openai.com/v1",
				Model:   "gpt-4o-mini",
				Timeout: 60 * time.Second,
			},
		},
		Structuring: StructuringConfig{
			MaxTags:        10,
			MaxTitleLength: 120,
			ReparseRetry:   true,
		},
		Journal: JournalConfig{
			Command:    "file-journal",
			AppendTags: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the JSON config file, environment variables
// and the platform secret store.
//
// The file lives at $XDG_CONFIG_HOME/journal-ai/config.json unless path is
// set. A missing file is not an error. Environment variables (JOURNAL_AI_*)
// override file values. The cloud API key is read from
// JOURNAL_AI_OPENAI_API_KEY or OPENAI_API_KEY, falling back to macOS
// Keychain (service: journal-ai, account: openai_api_key) or the
// secrets file elsewhere. A missing key is not a load error; the cloud
// provider reports it when called.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	b, err := newFileBackend(path)
	if err != nil {
		return Config{}, err
	}
	cfg, err := loadWith(b, keychainReader{})
	if err != nil {
		return Config{}, err
	}
	cfg.Path = path
	return cfg, nil
}

// keychain abstracts secret store access for testing.
type keychain interface {
	Get(service, account string) (string, error)
}

func loadWith(b ConfigBackend, kc keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.Providers.Cloud.APIKey == "" {
		if key, err := kc.Get(keychainService, keychainAccount); err == nil && key != "" {
			cfg.Providers.Cloud.APIKey = key
		}
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (cfg Config) validate() error {
	if _, err := cfg.ProviderOrder(); err != nil {
		return fmt.Errorf("invalid config providers.order: %w", err)
	}
	if _, err := ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("invalid config log.level: %w", err)
	}
	if cfg.Structuring.MaxTags <= 0 {
		return fmt.Errorf("invalid config structuring.max_tags: %d, must be positive", cfg.Structuring.MaxTags)
	}
	if cfg.Structuring.MaxTitleLength <= 0 {
		return fmt.Errorf("invalid config structuring.max_title_length: %d, must be positive", cfg.Structuring.MaxTitleLength)
	}
	return nil
}

// ProviderOrder parses Providers.Order.
func (cfg Config) ProviderOrder() ([]provider.ID, error) {
	return provider.ParseOrder(cfg.Providers.Order)
}

// HasAPIKey reports whether a cloud credential was found.
func (cfg Config) HasAPIKey() bool {
	return strings.TrimSpace(cfg.Providers.Cloud.APIKey) != ""
}

// ParseLevel maps a log.level value to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown level %q (use debug, info, warn or error)", s)
}

// keychainReader reads from the platform secret store.
type keychainReader struct{}

func (keychainReader) Get(service, account string) (string, error) {
	out, err := keychainGet(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
