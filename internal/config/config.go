package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultAPIURL  = "http://localhost:8000/api"
	DefaultTimeout = 10 * time.Second
)

type Config struct {
	// APIURL is the base URL of the task REST API (without the /tasks/ suffix).
	APIURL string `json:"apiUrl,omitempty"`

	// TimeoutSeconds bounds every API request. 0 means DefaultTimeout.
	TimeoutSeconds int `json:"timeoutSeconds,omitempty"`

	// TUI holds optional user preferences for the interactive TUI.
	TUI *TUIConfig `json:"tui,omitempty"`
}

type TUIConfig struct {
	// Glyphs selects the glyph set ("unicode" or "ascii").
	Glyphs string `json:"glyphs,omitempty"`
	// Theme forces the palette variant ("auto", "light" or "dark").
	Theme string `json:"theme,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		APIURL:         DefaultAPIURL,
		TimeoutSeconds: int(DefaultTimeout / time.Second),
	}
}

func (c *Config) Timeout() time.Duration {
	if c == nil || c.TimeoutSeconds <= 0 {
		return DefaultTimeout
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c *Config) Glyphs() string {
	if c == nil || c.TUI == nil {
		return ""
	}
	return c.TUI.Glyphs
}

func (c *Config) Theme() string {
	if c == nil || c.TUI == nil {
		return ""
	}
	return c.TUI.Theme
}

func Dir() (string, error) {
	// Test/advanced override (keeps unit tests from touching ~/.tasklist).
	if v := strings.TrimSpace(os.Getenv("TASKLIST_CONFIG_DIR")); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".tasklist"), nil
}

func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads config.json on top of the defaults. A missing file is not an error.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if strings.TrimSpace(cfg.APIURL) == "" {
		cfg.APIURL = DefaultAPIURL
	}
	return cfg, nil
}

func atomicWriteFile(dir, tmpPattern, path string, b []byte, perm os.FileMode) error {
	f, err := os.CreateTemp(dir, tmpPattern)
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	_ = os.Chmod(tmp, perm)
	return os.Rename(tmp, path)
}

func Save(cfg *Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	// Unique temp name + rename so a CLI write never races a running TUI into a torn file.
	return atomicWriteFile(dir, "config.json.*.tmp", path, b, 0o600)
}

// Keys lists the settable keys in the order `config show` prints them.
var Keys = []string{"api-url", "timeout", "tui.glyphs", "tui.theme"}

// Set assigns a single key from its string form.
func (c *Config) Set(key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case "api-url":
		if value == "" {
			return errors.New("api-url cannot be empty")
		}
		c.APIURL = strings.TrimRight(value, "/")
	case "timeout":
		d, err := parseTimeout(value)
		if err != nil {
			return err
		}
		c.TimeoutSeconds = int(d / time.Second)
	case "tui.glyphs":
		switch strings.ToLower(value) {
		case "unicode", "ascii":
		default:
			return fmt.Errorf("invalid tui.glyphs %q (want unicode|ascii)", value)
		}
		c.tui().Glyphs = strings.ToLower(value)
	case "tui.theme":
		switch strings.ToLower(value) {
		case "auto", "light", "dark":
		default:
			return fmt.Errorf("invalid tui.theme %q (want auto|light|dark)", value)
		}
		c.tui().Theme = strings.ToLower(value)
	default:
		return fmt.Errorf("unknown config key: %s (known: %s)", key, strings.Join(Keys, ", "))
	}
	return nil
}

func (c *Config) tui() *TUIConfig {
	if c.TUI == nil {
		c.TUI = &TUIConfig{}
	}
	return c.TUI
}

// parseTimeout accepts a Go duration ("5s") or a plain number of seconds ("5").
func parseTimeout(s string) (time.Duration, error) {
	if n, err := strconv.Atoi(s); err == nil {
		if n <= 0 {
			return 0, fmt.Errorf("timeout must be positive: %s", s)
		}
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", s, err)
	}
	if d < time.Second {
		return 0, fmt.Errorf("timeout must be at least 1s: %s", s)
	}
	return d, nil
}

// ParseTimeout is the flag/env form of the timeout setting.
func ParseTimeout(s string) (time.Duration, error) {
	return parseTimeout(strings.TrimSpace(s))
}
