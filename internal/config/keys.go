package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
	kDuration
)

func (t keyType) String() string {
	switch t {
	case kInt:
		return "int"
	case kBool:
		return "bool"
	case kDuration:
		return "duration"
	}
	return "string"
}

type keySpec struct {
	key     string
	typ     keyType
	env     string
	envAlt  string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "providers.order", typ: kString, env: "JOURNAL_AI_PROVIDERS_ORDER",
		apply:   func(cfg *Config, v any) { cfg.Providers.Order = v.(string) },
		extract: func(cfg Config) any { return cfg.Providers.Order },
	},
	{
		key: "providers.local.base_url", typ: kString, env: "JOURNAL_AI_LOCAL_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Providers.Local.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Providers.Local.BaseURL },
	},
	{
		key: "providers.local.model", typ: kString, env: "JOURNAL_AI_LOCAL_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Providers.Local.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Providers.Local.Model },
	},
	{
		key: "providers.local.timeout", typ: kDuration, env: "JOURNAL_AI_LOCAL_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Providers.Local.Timeout = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Providers.Local.Timeout },
	},
	{
		key: "providers.cloud.base_url", typ: kString, env: "JOURNAL_AI_CLOUD_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Providers.Cloud.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Providers.Cloud.BaseURL },
	},
	{
		key: "providers.cloud.model", typ: kString, env: "JOURNAL_AI_CLOUD_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Providers.Cloud.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Providers.Cloud.Model },
	},
	{
		key: "providers.cloud.timeout", typ: kDuration, env: "JOURNAL_AI_CLOUD_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Providers.Cloud.Timeout = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Providers.Cloud.Timeout },
	},
	{
		key: "providers.cloud.api_key", typ: kString, env: "JOURNAL_AI_OPENAI_API_KEY", envAlt: "OPENAI_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Providers.Cloud.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Providers.Cloud.APIKey },
	},
	{
		key: "structuring.max_tags", typ: kInt, env: "JOURNAL_AI_MAX_TAGS",
		apply:   func(cfg *Config, v any) { cfg.Structuring.MaxTags = v.(int) },
		extract: func(cfg Config) any { return cfg.Structuring.MaxTags },
	},
	{
		key: "structuring.max_title_length", typ: kInt, env: "JOURNAL_AI_MAX_TITLE_LENGTH",
		apply:   func(cfg *Config, v any) { cfg.Structuring.MaxTitleLength = v.(int) },
		extract: func(cfg Config) any { return cfg.Structuring.MaxTitleLength },
	},
	{
		key: "structuring.reparse_retry", typ: kBool, env: "JOURNAL_AI_REPARSE_RETRY",
		apply:   func(cfg *Config, v any) { cfg.Structuring.ReparseRetry = v.(bool) },
		extract: func(cfg Config) any { return cfg.Structuring.ReparseRetry },
	},
	{
		key: "journal.command", typ: kString, env: "JOURNAL_AI_JOURNAL_COMMAND",
		apply:   func(cfg *Config, v any) { cfg.Journal.Command = v.(string) },
		extract: func(cfg Config) any { return cfg.Journal.Command },
	},
	{
		key: "journal.append_tags", typ: kBool, env: "JOURNAL_AI_APPEND_TAGS",
		apply:   func(cfg *Config, v any) { cfg.Journal.AppendTags = v.(bool) },
		extract: func(cfg Config) any { return cfg.Journal.AppendTags },
	},
	{
		key: "log.level", typ: kString, env: "JOURNAL_AI_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func lookupSpec(key string) (keySpec, bool) {
	for _, s := range specs {
		if s.key == key {
			return s, true
		}
	}
	return keySpec{}, false
}

func applyBackend(cfg *Config, b ConfigBackend) error {
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
		case kBool:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if bv, err := strconv.ParseBool(v); err == nil {
					s.apply(cfg, bv)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		case kDuration:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if d, err := parseDuration(v); err == nil {
					s.apply(cfg, d)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse duration from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
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
		name := s.env
		raw := os.Getenv(name)
		if raw == "" && s.envAlt != "" {
			name = s.envAlt
			raw = os.Getenv(name)
		}
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
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", name, raw, err)
			}
		case kBool:
			if b, err := strconv.ParseBool(raw); err == nil {
				s.apply(cfg, b)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from env var %s=%q: %v. Using default value.\n", name, raw, err)
			}
		case kDuration:
			if d, err := parseDuration(raw); err == nil {
				s.apply(cfg, d)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse duration from env var %s=%q: %v. Using default value.\n", name, raw, err)
			}
		}
	}
}

// parseDuration accepts Go durations ("90s", "2m") and bare seconds ("90").
func parseDuration(s string) (time.Duration, error) {
	if secs, err := strconv.Atoi(s); err == nil {
		if secs <= 0 {
			return 0, fmt.Errorf("duration must be positive")
		}
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive")
	}
	return d, nil
}
