package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Spotify  SpotifyConfig  `toml:"spotify"`
	Auth     AuthConfig     `toml:"auth"`
	HTTP     HTTPConfig     `toml:"http"`
	Fetch    FetchConfig    `toml:"fetch"`
	Report   ReportConfig   `toml:"report"`
	Database DatabaseConfig `toml:"database"`
}

// SpotifyConfig contains the Spotify app registration and endpoint locations.
type SpotifyConfig struct {
	ClientID     string   `toml:"client_id"`
	RedirectBase string   `toml:"redirect_base"`
	CallbackPath string   `toml:"callback_path"`
	Scopes       []string `toml:"scopes"`
	AuthURL      string   `toml:"auth_url"`
	TokenURL     string   `toml:"token_url"`
	APIURL       string   `toml:"api_url"`
}

// RedirectURI joins the redirect base and callback path the way the callback listener binds them.
func (s SpotifyConfig) RedirectURI() string {
	return s.RedirectBase + s.CallbackPath
}

// AuthConfig controls the browser half of the authorization flow.
type AuthConfig struct {
	Timeout time.Duration `toml:"timeout"`
}

// HTTPConfig applies to every outbound request (token and collection endpoints).
type HTTPConfig struct {
	Timeout   time.Duration `toml:"timeout"`
	RateLimit float64       `toml:"rate_limit"`
}

// FetchConfig controls saved-track pagination.
type FetchConfig struct {
	PageSize int `toml:"page_size"`
	MaxPages int `toml:"max_pages"`
}

// ReportConfig controls the ranking output.
type ReportConfig struct {
	Top int `toml:"top"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrMissingConfig, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// LoadConfigOrDefault loads path when it exists and falls back to [DefaultConfig] otherwise.
func LoadConfigOrDefault(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	if _, err := os.Stat(path); err != nil {
		return DefaultConfig(), nil
	}
	return LoadConfig(path)
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// Validate checks the values the authorization flow and fetcher cannot work without.
func (c *Config) Validate() error {
	base, err := url.Parse(c.Spotify.RedirectBase)
	if err != nil {
		return fmt.Errorf("%w: redirect_base: %v", ErrInvalidConfig, err)
	}
	if base.Scheme != "http" || base.Host == "" {
		return fmt.Errorf("%w: redirect_base must be an http URL with a host, got %q", ErrInvalidConfig, c.Spotify.RedirectBase)
	}
	if len(c.Spotify.CallbackPath) == 0 || c.Spotify.CallbackPath[0] != '/' {
		return fmt.Errorf("%w: callback_path must start with '/', got %q", ErrInvalidConfig, c.Spotify.CallbackPath)
	}
	if c.Auth.Timeout <= 0 {
		return fmt.Errorf("%w: auth.timeout must be positive", ErrInvalidConfig)
	}
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("%w: http.timeout must be positive", ErrInvalidConfig)
	}
	if c.Fetch.PageSize < 1 || c.Fetch.PageSize > 50 {
		return fmt.Errorf("%w: fetch.page_size must be between 1 and 50, got %d", ErrInvalidConfig, c.Fetch.PageSize)
	}
	return nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
