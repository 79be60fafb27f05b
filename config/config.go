package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
)

// EnvPrefix starts every environment override
const EnvPrefix = "COMENTARIO_"

// Config is the configuration of the terminal embed
type Config struct {
	// ServerURL is the comment server, e.g. https://comments.example.com
	ServerURL string `toml:"server_url" yaml:"server_url"`

	// PageURL is the page whose comments are shown. Its host is the
	// domain and its path the page path; a fragment focuses a comment.
	PageURL string `toml:"page_url" yaml:"page_url"`

	// PageID replaces the path taken from PageURL
	PageID string `toml:"page_id,omitempty" yaml:"page_id,omitempty"`

	HideDeleted bool `toml:"hide_deleted" yaml:"hide_deleted"`

	// AutoInit loads comments at startup. When false the UI waits for a keypress.
	AutoInit bool `toml:"auto_init" yaml:"auto_init"`

	// Plain disables colours and borders
	Plain bool `toml:"plain" yaml:"plain"`

	LogDir   string `toml:"log_dir" yaml:"log_dir"`
	LogLevel string `toml:"log_level" yaml:"log_level"`

	// TokenPath is where the commenter token is kept between runs
	TokenPath string `toml:"token_path" yaml:"token_path"`

	// BrowserDir holds the OAuth browser profile
	BrowserDir string `toml:"browser_dir" yaml:"browser_dir"`
	ChromePath string `toml:"chrome_path,omitempty" yaml:"chrome_path,omitempty"`

	RequestsPerSecond float64 `toml:"requests_per_second" yaml:"requests_per_second"`
	Burst             int     `toml:"burst" yaml:"burst"`

	Theme ThemeConfig `toml:"theme" yaml:"theme"`
}

// ThemeConfig overrides colours. Empty values keep the defaults.
type ThemeConfig struct {
	Accent string `toml:"accent,omitempty" yaml:"accent,omitempty"`
	Muted  string `toml:"muted,omitempty" yaml:"muted,omitempty"`
	Error  string `toml:"error,omitempty" yaml:"error,omitempty"`
	Sticky string `toml:"sticky,omitempty" yaml:"sticky,omitempty"`
}

// Page identifies the page being commented on
type Page struct {
	Domain   string
	Path     string
	Fragment string
}

// NewConfig returns a Config with defaults rooted at baseDir
func NewConfig(baseDir string) *Config {
	return &Config{
		AutoInit:          true,
		LogDir:            filepath.Join(baseDir, "log"),
		LogLevel:          "info",
		TokenPath:         filepath.Join(baseDir, "token.toml"),
		BrowserDir:        filepath.Join(baseDir, "chrome-data"),
		RequestsPerSecond: 5,
		Burst:             10,
	}
}

// DefaultBaseDir is the per-user configuration directory
func DefaultBaseDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "comentario")
}

// DefaultPath is the config file used when none is given
func DefaultPath() string {
	return filepath.Join(DefaultBaseDir(), "config.toml")
}

// Format is a config file encoding
type Format int

const (
	FormatTOML Format = iota
	FormatYAML
)

// FormatFor picks the encoding from a file extension
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatTOML
	}
}

// Manager handles reading and writing configuration.
type Manager struct {
	Format Format
}

// Read decodes a Config from r on top of the defaults in base.
func (m *Manager) Read(r io.Reader, base *Config) (*Config, error) {
	cfg := *base

	switch m.Format {
	case FormatYAML:
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config: %w", err)
		}
	default:
		if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config: %w", err)
		}
	}
	return &cfg, nil
}

// Write encodes a Config to w.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	switch m.Format {
	case FormatYAML:
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	default:
		if err := toml.NewEncoder(w).Encode(cfg); err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
	}
	return nil
}

// ReadFromFile reads the config at path over the defaults. A missing file
// yields the defaults.
func ReadFromFile(path string) (*Config, error) {
	base := NewConfig(DefaultBaseDir())

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return base, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}

	m := &Manager{Format: FormatFor(path)}
	cfg, err := m.Read(bytes.NewReader(data), base)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// Init writes cfg to a new file at path. It refuses to overwrite.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{Format: FormatFor(path)}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}

// LoadEnv reads .env from the working directory, if present, then applies
// COMENTARIO_* variables onto cfg. It reports whether any were used.
func LoadEnv(cfg *Config) (bool, error) {
	_ = godotenv.Load(".env")
	return ApplyEnv(cfg, os.LookupEnv)
}

// ApplyEnv applies overrides read through lookup
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) (bool, error) {
	used := false
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dst = v
			used = true
		}
	}
	var errs []error
	boolean := func(name string, dst *bool) {
		v, ok := lookup(EnvPrefix + name)
		if !ok || v == "" {
			return
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
			return
		}
		*dst = b
		used = true
	}

	str("SERVER_URL", &cfg.ServerURL)
	str("PAGE_URL", &cfg.PageURL)
	str("PAGE_ID", &cfg.PageID)
	str("LOG_DIR", &cfg.LogDir)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("TOKEN_PATH", &cfg.TokenPath)
	str("BROWSER_DIR", &cfg.BrowserDir)
	str("CHROME_PATH", &cfg.ChromePath)
	boolean("HIDE_DELETED", &cfg.HideDeleted)
	boolean("AUTO_INIT", &cfg.AutoInit)
	boolean("PLAIN", &cfg.Plain)

	if v, ok := lookup(EnvPrefix + "RATE_RPS"); ok && v != "" {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sRATE_RPS: %w", EnvPrefix, err))
		} else {
			cfg.RequestsPerSecond = f
			used = true
		}
	}
	if v, ok := lookup(EnvPrefix + "RATE_BURST"); ok && v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%sRATE_BURST: %w", EnvPrefix, err))
		} else {
			cfg.Burst = n
			used = true
		}
	}
	return used, errors.Join(errs...)
}

// Validate checks the fields needed to talk to a server
func (c *Config) Validate() error {
	if c.ServerURL == "" {
		return errors.New("server_url is not set")
	}
	u, err := url.Parse(c.ServerURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("server_url %q is not an absolute URL", c.ServerURL)
	}
	if _, err := c.Page(); err != nil {
		return err
	}
	return nil
}

// Page splits PageURL into the domain, path and fragment the server
// keys comments by. PageID, when set, replaces the path.
func (c *Config) Page() (Page, error) {
	if c.PageURL == "" {
		return Page{}, errors.New("page_url is not set")
	}
	u, err := url.Parse(c.PageURL)
	if err != nil {
		return Page{}, fmt.Errorf("parsing page_url: %w", err)
	}
	if u.Host == "" {
		return Page{}, fmt.Errorf("page_url %q has no host", c.PageURL)
	}

	p := Page{Domain: u.Host, Path: u.Path, Fragment: u.Fragment}
	if c.PageID != "" {
		p.Path = c.PageID
	}
	if p.Path == "" {
		p.Path = "/"
	}
	return p, nil
}
