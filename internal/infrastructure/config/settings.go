package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
)

// settingFns apply one host setting. Keys outside this table are rejected.
var settingFns = map[string]func(cfg *Config, v any) error{
	"host":                  func(c *Config, v any) error { return setString(&c.Server.Host, v) },
	"port":                  func(c *Config, v any) error { return setString(&c.Server.Port, v) },
	"document_root":         func(c *Config, v any) error { return setString(&c.Server.DocumentRoot, v) },
	"static_prefix":         func(c *Config, v any) error { return setString(&c.Server.StaticPrefix, v) },
	"enable_static_handler": func(c *Config, v any) error { return setBool(&c.Server.EnableStatic, v) },
	"http_compression":      func(c *Config, v any) error { return setBool(&c.Server.Gzip, v) },
	"read_timeout":          func(c *Config, v any) error { return setDuration(&c.Server.ReadTimeout, v) },
	"write_timeout":         func(c *Config, v any) error { return setDuration(&c.Server.WriteTimeout, v) },
	"max_header_bytes":      func(c *Config, v any) error { return setInt(&c.Server.MaxHeaderBytes, v) },
	"log_level":             func(c *Config, v any) error { return setString(&c.Logging.Level, v) },
}

// ApplySettingsFile overlays host settings from a YAML or TOML file
func ApplySettingsFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read settings: %w", err)
	}

	settings := map[string]any{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &settings)
	case ".toml":
		err = toml.Unmarshal(data, &settings)
	default:
		return fmt.Errorf("unsupported settings format %q", filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("failed to parse settings: %w", err)
	}
	return ApplySettings(cfg, settings)
}

// ApplySettings overlays host settings. Unknown keys fail the whole call.
func ApplySettings(cfg *Config, settings map[string]any) error {
	keys := make([]string, 0, len(settings))
	for k := range settings {
		if _, ok := settingFns[k]; !ok {
			return fmt.Errorf("setting %q is not supported", k)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if err := settingFns[k](cfg, settings[k]); err != nil {
			return fmt.Errorf("setting %q: %w", k, err)
		}
	}
	return nil
}

func setString(dst *string, v any) error {
	switch t := v.(type) {
	case string:
		*dst = t
	case int, int64, uint64, float64:
		*dst = fmt.Sprint(t)
	default:
		return fmt.Errorf("expected string, got %T", v)
	}
	return nil
}

func setBool(dst *bool, v any) error {
	switch t := v.(type) {
	case bool:
		*dst = t
	case string:
		b, err := strconv.ParseBool(t)
		if err != nil {
			return err
		}
		*dst = b
	default:
		return fmt.Errorf("expected bool, got %T", v)
	}
	return nil
}

func setInt(dst *int, v any) error {
	switch t := v.(type) {
	case int:
		*dst = t
	case int64:
		*dst = int(t)
	case uint64:
		*dst = int(t)
	case float64:
		*dst = int(t)
	case string:
		n, err := strconv.Atoi(t)
		if err != nil {
			return err
		}
		*dst = n
	default:
		return fmt.Errorf("expected integer, got %T", v)
	}
	return nil
}

// setDuration accepts Go duration strings or whole seconds
func setDuration(dst *time.Duration, v any) error {
	if s, ok := v.(string); ok {
		d, err := time.ParseDuration(s)
		if err != nil {
			return err
		}
		*dst = d
		return nil
	}
	var secs int
	if err := setInt(&secs, v); err != nil {
		return err
	}
	*dst = time.Duration(secs) * time.Second
	return nil
}
