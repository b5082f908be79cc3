package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSetDefaults(t *testing.T) {
	c := &Config{}
	c.SetDefaults()
	if c.Scrape.Timeout != 10*time.Second {
		t.Fatalf("expected 10s timeout, got %s", c.Scrape.Timeout)
	}
	if c.Scrape.StaleRetries != 3 {
		t.Fatalf("expected 3 stale retries")
	}
	if len(c.Scrape.IgnoreSections) != 9 {
		t.Fatalf("expected 9 ignored sections, got %d", len(c.Scrape.IgnoreSections))
	}
	if c.Server.Port != 3000 {
		t.Fatalf("expected port 3000")
	}
	if c.Log.Level != "info" {
		t.Fatalf("expected info level")
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoadFromYAML(t *testing.T) {
	tmp := t.TempDir()
	cfgPath := filepath.Join(tmp, "config.yaml")
	data := "scrape:\n  timeout: 30s\n  ignore_sections: []\n  only_sections: [Locations]\nserver:\n  port: 8080\noutput:\n  package: webex\n"
	if err := os.WriteFile(cfgPath, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Scrape.Timeout != 30*time.Second {
		t.Fatalf("unexpected timeout %s", cfg.Scrape.Timeout)
	}
	if len(cfg.Scrape.IgnoreSections) != 0 {
		t.Fatalf("explicit empty ignore list should win, got %v", cfg.Scrape.IgnoreSections)
	}
	if len(cfg.Scrape.OnlySections) != 1 || cfg.Scrape.OnlySections[0] != "Locations" {
		t.Fatalf("unexpected only sections %v", cfg.Scrape.OnlySections)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("unexpected port %d", cfg.Server.Port)
	}
	if cfg.Output.Package != "webex" {
		t.Fatalf("unexpected package %s", cfg.Output.Package)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Scrape.BaseURL != "https://developer.webex.com" {
		t.Fatalf("expected default base url, got %s", cfg.Scrape.BaseURL)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("WEBEXDOCS_SERVER_PORT", "9090")
	t.Setenv("WEBEXDOCS_TIMEOUT", "2s")
	t.Setenv("WEBEXDOCS_ONLY_SECTIONS", "Locations, Rooms,")
	t.Setenv("WEBEXDOCS_CACHE_ENABLED", "true")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 9090 {
		t.Fatalf("unexpected port %d", cfg.Server.Port)
	}
	if cfg.Scrape.Timeout != 2*time.Second {
		t.Fatalf("unexpected timeout %s", cfg.Scrape.Timeout)
	}
	if len(cfg.Scrape.OnlySections) != 2 || cfg.Scrape.OnlySections[1] != "Rooms" {
		t.Fatalf("unexpected only sections %v", cfg.Scrape.OnlySections)
	}
	if !cfg.Cache.Enabled {
		t.Fatalf("expected cache enabled")
	}
}

func TestValidate(t *testing.T) {
	tests := map[string]func(c *Config){
		"relative base url": func(c *Config) { c.Scrape.BaseURL = "developer.webex.com" },
		"zero retries":      func(c *Config) { c.Scrape.StaleRetries = -1 },
		"bad log level":     func(c *Config) { c.Log.Level = "verbose" },
		"bad port":          func(c *Config) { c.Server.Port = 70000 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			c := &Config{}
			c.SetDefaults()
			mutate(c)
			if err := c.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	c := &Config{}
	c.SetDefaults()
	c.Scrape.NewOnly = true
	if err := c.Save(path); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !loaded.Scrape.NewOnly || loaded.Scrape.Timeout != c.Scrape.Timeout {
		t.Fatalf("round trip mismatch: %+v", loaded.Scrape)
	}
}
