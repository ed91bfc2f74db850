// Package config provides configuration management for the storyboard agent.
// Configuration is loaded from defaults, then an optional TOML file, then
// environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	// Default values
	DefaultPort     = 8788
	DefaultLogLevel = "info"
	DefaultDataDir  = ".storyboard-agent"

	DefaultAPIBaseURL             = "http://127.0.0.1:8000"
	DefaultPollIntervalS          = 10
	DefaultGenerationPollInterval = 5
	DefaultRequestTimeoutS        = 60

	// Environment variable names
	EnvConfigFile             = "STORYBOARD_CONFIG"
	EnvPort                   = "STORYBOARD_PORT"
	EnvLogLevel               = "STORYBOARD_LOG_LEVEL"
	EnvDataDir                = "STORYBOARD_DATA_DIR"
	EnvAPIBaseURL             = "STORYBOARD_API_BASE_URL"
	EnvAPIToken               = "STORYBOARD_API_TOKEN"
	EnvOffline                = "STORYBOARD_OFFLINE"
	EnvPollInterval           = "STORYBOARD_POLL_INTERVAL"
	EnvGenerationPollInterval = "STORYBOARD_GENERATION_POLL_INTERVAL"
	EnvRequestTimeout         = "STORYBOARD_REQUEST_TIMEOUT"

	// Database filename
	DBFilename = "storyboard-agent.db"

	// ConfigFilename is looked up in the data directory when EnvConfigFile is unset.
	ConfigFilename = "config.toml"
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	ExportDir() string
	APIBaseURL() string
	APIToken() string
	Offline() bool
	PollInterval() time.Duration
	GenerationPollInterval() time.Duration
	RequestTimeout() time.Duration
}

// fileConfig mirrors the TOML file. Pointer fields distinguish unset keys from zero values.
type fileConfig struct {
	Port     *int    `toml:"port"`
	LogLevel *string `toml:"log_level"`
	DataDir  *string `toml:"data_dir"`

	API struct {
		BaseURL         *string `toml:"base_url"`
		Token           *string `toml:"token"`
		Offline         *bool   `toml:"offline"`
		RequestTimeoutS *int    `toml:"request_timeout_seconds"`
	} `toml:"api"`

	Polling struct {
		StoryboardS *int `toml:"storyboard_interval_seconds"`
		GenerationS *int `toml:"generation_interval_seconds"`
	} `toml:"polling"`
}

// EnvConfig holds the resolved configuration.
type EnvConfig struct {
	port     int
	logLevel string
	dataDir  string

	apiBaseURL      string
	apiToken        string
	offline         bool
	requestTimeoutS int

	pollIntervalS           int
	generationPollIntervalS int

	source string
}

// New creates a new EnvConfig with defaults, file values and environment variable overrides
func New() (*EnvConfig, error) {
	cfg := &EnvConfig{
		port:                    DefaultPort,
		logLevel:                DefaultLogLevel,
		dataDir:                 defaultDataDir(),
		apiBaseURL:              DefaultAPIBaseURL,
		requestTimeoutS:         DefaultRequestTimeoutS,
		pollIntervalS:           DefaultPollIntervalS,
		generationPollIntervalS: DefaultGenerationPollInterval,
	}

	// Data dir may move the default config file location, so resolve it first.
	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}

	path := os.Getenv(EnvConfigFile)
	explicit := path != ""
	if !explicit {
		path = filepath.Join(cfg.dataDir, ConfigFilename)
	}
	if err := cfg.loadFile(path, explicit); err != nil {
		return nil, err
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *EnvConfig) loadFile(path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if fc.Port != nil {
		c.port = *fc.Port
	}
	if fc.LogLevel != nil {
		c.logLevel = *fc.LogLevel
	}
	if fc.DataDir != nil && os.Getenv(EnvDataDir) == "" {
		c.dataDir = expandHome(*fc.DataDir)
	}
	if fc.API.BaseURL != nil {
		c.apiBaseURL = *fc.API.BaseURL
	}
	if fc.API.Token != nil {
		c.apiToken = *fc.API.Token
	}
	if fc.API.Offline != nil {
		c.offline = *fc.API.Offline
	}
	if fc.API.RequestTimeoutS != nil {
		c.requestTimeoutS = *fc.API.RequestTimeoutS
	}
	if fc.Polling.StoryboardS != nil {
		c.pollIntervalS = *fc.Polling.StoryboardS
	}
	if fc.Polling.GenerationS != nil {
		c.generationPollIntervalS = *fc.Polling.GenerationS
	}

	c.source = path
	return nil
}

func (c *EnvConfig) applyEnv() error {
	// Override port from environment
	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		c.port = port
	}

	if ll := os.Getenv(EnvLogLevel); ll != "" {
		c.logLevel = ll
	}
	if u := os.Getenv(EnvAPIBaseURL); u != "" {
		c.apiBaseURL = u
	}
	if tok := os.Getenv(EnvAPIToken); tok != "" {
		c.apiToken = tok
	}
	if off := os.Getenv(EnvOffline); off != "" {
		v, err := strconv.ParseBool(off)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvOffline, err)
		}
		c.offline = v
	}

	seconds := []struct {
		env string
		dst *int
	}{
		{EnvPollInterval, &c.pollIntervalS},
		{EnvGenerationPollInterval, &c.generationPollIntervalS},
		{EnvRequestTimeout, &c.requestTimeoutS},
	}
	for _, s := range seconds {
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", s.env, err)
		}
		*s.dst = v
	}
	return nil
}

func (c *EnvConfig) validate() error {
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port %d: port must be between 1 and 65535", c.port)
	}
	if c.pollIntervalS < 1 {
		return fmt.Errorf("invalid storyboard poll interval %ds: must be at least 1", c.pollIntervalS)
	}
	if c.generationPollIntervalS < 1 {
		return fmt.Errorf("invalid generation poll interval %ds: must be at least 1", c.generationPollIntervalS)
	}
	if c.requestTimeoutS < 1 {
		return fmt.Errorf("invalid request timeout %ds: must be at least 1", c.requestTimeoutS)
	}
	if !c.offline && strings.TrimSpace(c.apiBaseURL) == "" {
		return fmt.Errorf("api base url is required unless offline mode is enabled")
	}
	c.apiBaseURL = strings.TrimRight(c.apiBaseURL, "/")
	return nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// ExportDir returns the directory export files are written to
func (c *EnvConfig) ExportDir() string {
	return filepath.Join(c.dataDir, "exports")
}

// APIBaseURL returns the remote storyboard API base URL without a trailing slash
func (c *EnvConfig) APIBaseURL() string {
	return c.apiBaseURL
}

func (c *EnvConfig) APIToken() string {
	return c.apiToken
}

// Offline reports whether the agent should use the in-memory remote instead of HTTP
func (c *EnvConfig) Offline() bool {
	return c.offline
}

func (c *EnvConfig) PollInterval() time.Duration {
	return time.Duration(c.pollIntervalS) * time.Second
}

func (c *EnvConfig) GenerationPollInterval() time.Duration {
	return time.Duration(c.generationPollIntervalS) * time.Second
}

func (c *EnvConfig) RequestTimeout() time.Duration {
	return time.Duration(c.requestTimeoutS) * time.Second
}

// Source returns the config file that was loaded, or "" when only defaults and env were used
func (c *EnvConfig) Source() string {
	return c.source
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
