package config

import (
	"fmt"
	"strconv"
)

// KeyInfo describes a config key for display purposes.
type KeyInfo struct {
	Key    string
	EnvVar string
	Value  string
}

// ShowAll returns all config key/value pairs from the current config.
// Secret values are never included; only whether they are set.
func ShowAll(cfg Config) []KeyInfo {
	var result []KeyInfo
	for _, s := range specs {
		value := fmt.Sprintf("%v", s.extract(cfg))
		if s.secret {
			value = "(not set)"
			if s.extract(cfg) != "" {
				value = "(set)"
			}
		}
		result = append(result, KeyInfo{
			Key:    s.key,
			EnvVar: s.env,
			Value:  value,
		})
	}
	return result
}

// SetKey validates value for key and writes it to the config file at path
// (the default location when empty). Secret keys go to the platform
// secret store instead.
func SetKey(path, key, value string) error {
	s, ok := lookupSpec(key)
	if !ok {
		return fmt.Errorf("unknown config key: %q", key)
	}
	if s.secret {
		if value == "" {
			return fmt.Errorf("empty value for %s", key)
		}
		return keychainSet(keychainService, keychainAccount, value)
	}

	if path == "" {
		path = DefaultPath()
	}
	b, err := newFileBackend(path)
	if err != nil {
		return err
	}

	switch s.typ {
	case kInt:
		i, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value for %s: %w", key, err)
		}
		return b.SetInt(key, i)
	case kBool:
		bv, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid bool value for %s: %w", key, err)
		}
		return b.SetString(key, strconv.FormatBool(bv))
	case kDuration:
		d, err := parseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration value for %s: %w", key, err)
		}
		return b.SetString(key, d.String())
	}

	// Reject values that would make the next load fail.
	probe := defaults()
	s.apply(&probe, value)
	if err := probe.validate(); err != nil {
		return err
	}
	return b.SetString(key, value)
}

// UnsetKey removes key from the config file so its default applies again.
func UnsetKey(path, key string) error {
	s, ok := lookupSpec(key)
	if !ok {
		return fmt.Errorf("unknown config key: %q", key)
	}
	if s.secret {
		return fmt.Errorf("cannot unset secret %q from the config file; unset %s or remove it from the secret store", key, s.env)
	}
	if path == "" {
		path = DefaultPath()
	}
	b, err := newFileBackend(path)
	if err != nil {
		return err
	}
	return b.Delete(key)
}

// ValidKeys returns the list of valid config key names with their types.
func ValidKeys() []string {
	var keys []string
	for _, s := range specs {
		keys = append(keys, fmt.Sprintf("%s (%s)", s.key, s.typ))
	}
	return keys
}
