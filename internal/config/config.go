package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultConfigRelPath = ".webexdocs/config.yaml"

type ScrapeConfig struct {
	BaseURL        string        `yaml:"base_url"`
	ReferenceURL   string        `yaml:"reference_url"`
	Timeout        time.Duration `yaml:"timeout"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	StaleRetries   int           `yaml:"stale_retries"`
	IgnoreSections []string      `yaml:"ignore_sections"`
	OnlySections   []string      `yaml:"only_sections"`
	NewOnly        bool          `yaml:"new_only"`
	SnapshotDir    string        `yaml:"snapshot_dir"`
	UserAgent      string        `yaml:"user_agent"`
}

type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Path    string        `yaml:"path"`
	TTL     time.Duration `yaml:"ttl"`
}

type OutputConfig struct {
	Schema     string `yaml:"schema"`
	Classes    string `yaml:"classes"`
	Package    string `yaml:"package"`
	OpenAPIDir string `yaml:"openapi_dir"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

type Config struct {
	Scrape  ScrapeConfig  `yaml:"scrape"`
	Cache   CacheConfig   `yaml:"cache"`
	Output  OutputConfig  `yaml:"output"`
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// DefaultPath returns ~/.webexdocs/config.yaml
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, defaultConfigRelPath), nil
}

// Load loads YAML config, then applies env overrides.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}
	cfg.SetDefaults()

	if configPath == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		configPath = p
	}

	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read config: %w", err)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// Save writes the config as YAML
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func (c *Config) SetDefaults() {
	if c.Scrape.BaseURL == "" {
		c.Scrape.BaseURL = "https://developer.webex.com"
	}
	if c.Scrape.ReferenceURL == "" {
		c.Scrape.ReferenceURL = "https://developer.webex.com/docs/api/getting-started"
	}
	if c.Scrape.Timeout == 0 {
		c.Scrape.Timeout = 10 * time.Second
	}
	if c.Scrape.PollInterval == 0 {
		c.Scrape.PollInterval = 250 * time.Millisecond
	}
	if c.Scrape.StaleRetries == 0 {
		c.Scrape.StaleRetries = 3
	}
	if c.Scrape.IgnoreSections == nil {
		c.Scrape.IgnoreSections = []string{
			"BroadWorks Billing Reports",
			"BroadWorks Device Provisioning",
			"BroadWorks Enterprises",
			"BroadWorks Subscribers",
			"Recording Report",
			"Video Mesh",
			"Wholesale Billing Reports",
			"Wholesale Customers",
			"Wholesale Subscribers",
		}
	}
	if c.Cache.Path == "" {
		c.Cache.Path = "./webexdocs.db"
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = 24 * time.Hour
	}
	if c.Output.Schema == "" {
		c.Output.Schema = "./developer_webex_com.yml"
	}
	if c.Output.Classes == "" {
		c.Output.Classes = "./generated/models.go"
	}
	if c.Output.Package == "" {
		c.Output.Package = "models"
	}
	if c.Output.OpenAPIDir == "" {
		c.Output.OpenAPIDir = "./openapi"
	}
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 3000
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func (c *Config) Validate() error {
	for name, raw := range map[string]string{
		"scrape.base_url":      c.Scrape.BaseURL,
		"scrape.reference_url": c.Scrape.ReferenceURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s must be an absolute url, got %q", name, raw)
		}
	}
	if c.Scrape.Timeout <= 0 {
		return errors.New("scrape.timeout must be positive")
	}
	if c.Scrape.StaleRetries < 1 {
		return errors.New("scrape.stale_retries must be at least 1")
	}
	if strings.TrimSpace(c.Output.Schema) == "" {
		return errors.New("output.schema cannot be empty")
	}
	if strings.TrimSpace(c.Output.Package) == "" {
		return errors.New("output.package cannot be empty")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	return nil
}

// Addr returns the preview server listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func applyEnvOverrides(c *Config) {
	setString(&c.Scrape.BaseURL, "WEBEXDOCS_BASE_URL")
	setString(&c.Scrape.ReferenceURL, "WEBEXDOCS_REFERENCE_URL")
	setDuration(&c.Scrape.Timeout, "WEBEXDOCS_TIMEOUT")
	setList(&c.Scrape.OnlySections, "WEBEXDOCS_ONLY_SECTIONS")
	setString(&c.Scrape.SnapshotDir, "WEBEXDOCS_SNAPSHOT_DIR")
	setString(&c.Scrape.UserAgent, "WEBEXDOCS_USER_AGENT")
	setBool(&c.Cache.Enabled, "WEBEXDOCS_CACHE_ENABLED")
	setString(&c.Cache.Path, "WEBEXDOCS_CACHE_PATH")
	setString(&c.Output.Schema, "WEBEXDOCS_SCHEMA")
	setString(&c.Output.Classes, "WEBEXDOCS_CLASSES")
	setString(&c.Server.Host, "WEBEXDOCS_SERVER_HOST")
	setInt(&c.Server.Port, "WEBEXDOCS_SERVER_PORT")
	setString(&c.Log.Level, "WEBEXDOCS_LOG_LEVEL")
	setString(&c.Metrics.Textfile, "WEBEXDOCS_METRICS_TEXTFILE")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

func setList(dst *[]string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		var out []string
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		*dst = out
	}
}
