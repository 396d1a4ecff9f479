package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// Config holds all runtime configuration parameters
type Config struct {
	SeedURL            string `json:"seed_url"`
	MaxDepth           int    `json:"max_depth"`
	BaseURL            string `json:"base_url"`
	ArticlePrefix      string `json:"article_prefix"`
	NamespaceSeparator string `json:"namespace_separator"`
	RequestDelayMs     int    `json:"request_delay_ms"`
	RequestTimeoutMs   int    `json:"request_timeout_ms"`
	UserAgent          string `json:"user_agent"`
	DBPath             string `json:"db_path"`
	MetricsPath        string `json:"metrics_path"`
	DOTPath            string `json:"dot_path"`
	ReportPath         string `json:"report_path"`
	LogLevel           string `json:"log_level"`
}

// Default returns the configuration used for keys absent from the file
func Default() *Config {
	return &Config{
		SeedURL:            "https://en.wikipedia.org/wiki/Philosophy",
		MaxDepth:           2,
		BaseURL:            "https://en.wikipedia.org",
		ArticlePrefix:      "/wiki/",
		NamespaceSeparator: ":",
		RequestDelayMs:     1000,
		RequestTimeoutMs:   10000,
		UserAgent:          "wiki-weaver/1.0 (+https://github.com/alvmarrod/wiki-weaver)",
		DBPath:             "wiki_graph.db",
		MetricsPath:        "metrics.json",
		DOTPath:            "graph.dot",
		ReportPath:         "graph.md",
		LogLevel:           "info",
	}
}

// LoadConfig reads and validates configuration from a JSON file.
// Keys missing from the file keep their default value.
func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := Default()
	decoder := json.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that required fields are present and values are sensible
func Validate(cfg *Config) error {
	if cfg.SeedURL == "" {
		return fmt.Errorf("seed_url is required")
	}
	if err := requireAbsolute("seed_url", cfg.SeedURL); err != nil {
		return err
	}
	if err := requireAbsolute("base_url", cfg.BaseURL); err != nil {
		return err
	}
	if cfg.MaxDepth < 0 {
		return fmt.Errorf("max_depth must be >= 0")
	}
	if cfg.ArticlePrefix == "" {
		return fmt.Errorf("article_prefix is required")
	}
	if cfg.NamespaceSeparator == "" {
		return fmt.Errorf("namespace_separator is required")
	}
	if cfg.RequestDelayMs < 0 {
		return fmt.Errorf("request_delay_ms must be >= 0")
	}
	if cfg.RequestTimeoutMs < 1000 {
		return fmt.Errorf("request_timeout_ms must be >= 1000")
	}
	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}

// RequestDelay returns the pause imposed between page fetches
func (c *Config) RequestDelay() time.Duration {
	return time.Duration(c.RequestDelayMs) * time.Millisecond
}

// RequestTimeout returns the per-request timeout
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMs) * time.Millisecond
}

func requireAbsolute(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be an absolute http(s) URL, got %q", key, raw)
	}
	return nil
}
