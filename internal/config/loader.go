package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load resolves the configuration at path, or the default path when path is
// empty. A missing file yields the defaults. Environment overrides are
// applied and the result is validated.
func Load(path string) (*Config, error) {
	home, err := Home()
	if err != nil {
		return nil, err
	}
	if path == "" {
		path = filepath.Join(home, "config.yaml")
	}

	cfg, err := LoadFrom(path, home)
	var notFound *ConfigNotFoundError
	if errors.As(err, &notFound) {
		cfg = NewConfig(home)
	} else if err != nil {
		return nil, err
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.ExpandPaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		var ice *InvalidConfigError
		if errors.As(err, &ice) {
			ice.Path = path
		}
		return nil, err
	}
	return cfg, nil
}

// LoadFrom reads the file at path over the defaults rooted at home.
func LoadFrom(path, home string) (*Config, error) {
	// Check file existence first
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, &ConfigNotFoundError{
				Path: path,
				Hint: "Run 'study-advisor config init' to create configuration",
			}
		}
		return nil, fmt.Errorf("failed to access config: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsPermission(err) {
			return nil, &PermissionError{
				Path:    path,
				Op:      "read",
				Fix:     getReadPermissionFix(path),
				Details: getPermissionDetails(path),
			}
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := NewConfig(home)
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, &InvalidConfigError{
			Path:    path,
			Message: fmt.Sprintf("YAML parse error: %v", err),
			Hint:    "Restore from the .bak file if available, or run 'study-advisor config init --force'",
			Err:     err,
		}
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvBackendURL); v != "" {
		c.Backend.URL = v
	}
	if v := os.Getenv(EnvModel); v != "" {
		c.Backend.Model = v
	}
	if v := os.Getenv(EnvLLMTimeout); v != "" {
		d, err := parseSeconds(EnvLLMTimeout, v)
		if err != nil {
			return err
		}
		c.Backend.LLMTimeout = d
	}
	if v := os.Getenv(EnvChatTimeout); v != "" {
		d, err := parseSeconds(EnvChatTimeout, v)
		if err != nil {
			return err
		}
		c.Backend.ChatTimeout = d
	}
	if v := os.Getenv(EnvMaxHistory); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvMaxHistory, v, err)
		}
		c.Chat.MaxHistory = n
	}
	return nil
}

// parseSeconds accepts a bare number of seconds or a Go duration.
func parseSeconds(name, v string) (time.Duration, error) {
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, v, err)
	}
	return d, nil
}

// ExpandPaths expands environment variables and a leading ~ in every
// directory setting.
func (c *Config) ExpandPaths() error {
	for _, p := range []*string{
		&c.Cache.Dir,
		&c.Knowledge.Dir,
		&c.Templates.File,
		&c.Backend.ModelsDir,
		&c.Sessions.Dir,
	} {
		expanded, err := expandPath(*p)
		if err != nil {
			return err
		}
		*p = expanded
	}
	return nil
}

func expandPath(p string) (string, error) {
	if p == "" {
		return p, nil
	}
	p = os.ExpandEnv(p)
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		p = filepath.Join(home, strings.TrimPrefix(p, "~"))
	}
	return p, nil
}

// getReadPermissionFix returns platform-specific fix command
func getReadPermissionFix(path string) string {
	switch runtime.GOOS {
	case "windows":
		return fmt.Sprintf("Right-click %s → Properties → Security → Edit permissions", path)
	default:
		return fmt.Sprintf("Run: chmod 644 %s", path)
	}
}

// getPermissionDetails reports the current file mode.
func getPermissionDetails(path string) string {
	if runtime.GOOS == "windows" {
		return ""
	}
	info, err := os.Stat(path)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("Current permissions: %04o", info.Mode().Perm())
}
