// Package config loads hashdrop.yaml.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Kush-Singh-26/hashdrop/engine/models"
)

// FileName is the configuration file looked up in the working directory.
const FileName = "hashdrop.yaml"

// Config holds every tunable of the share tree.
type Config struct {
	BaseDir  string `yaml:"baseDir"`  // served tree (default: files)
	StateDir string `yaml:"stateDir"` // ledger and lock files (default: .hashdrop)

	// Index files
	IndexMaxBytes    int64  `yaml:"indexMaxBytes"`    // rollover ceiling (default: 100KiB)
	RolloverAttempts int    `yaml:"rolloverAttempts"` // numbered rollovers per day (default: 100)
	Header           string `yaml:"header"`           // empty selects the built-in header
	MinifyHeader     bool   `yaml:"minifyHeader"`

	OnDuplicate   string        `yaml:"onDuplicate"` // ignore | error
	FileLocks     bool          `yaml:"fileLocks"`   // cross-process flock on bucket writes
	Ledger        bool          `yaml:"ledger"`
	LedgerTimeout time.Duration `yaml:"ledgerTimeout"` // BoltDB open timeout (default: 10s)
	VerifyWorkers int           `yaml:"verifyWorkers"`

	Pages PagesConfig `yaml:"pages"`
	Inbox InboxConfig `yaml:"inbox"`
}

// PagesConfig controls display-name page buckets.
type PagesConfig struct {
	Enabled        bool `yaml:"enabled"`
	MinTokenLength int  `yaml:"minTokenLength"`
	SkipDigits     bool `yaml:"skipDigits"`
	SkipStopWords  bool `yaml:"skipStopWords"`
	MaxTokens      int  `yaml:"maxTokens"`
}

// InboxConfig controls the drop-folder watcher.
type InboxConfig struct {
	Dir       string        `yaml:"dir"`
	Category  string        `yaml:"category"`
	Debounce  time.Duration `yaml:"debounce"`
	KeepFiles bool          `yaml:"keepFiles"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		BaseDir:          "files",
		StateDir:         ".hashdrop",
		IndexMaxBytes:    100 * 1024,
		RolloverAttempts: 100,
		OnDuplicate:      "ignore",
		FileLocks:        true,
		Ledger:           true,
		LedgerTimeout:    10 * time.Second,
		VerifyWorkers:    8,
		Pages: PagesConfig{
			Enabled:        true,
			MinTokenLength: 3,
			SkipDigits:     true,
			MaxTokens:      32,
		},
		Inbox: InboxConfig{
			Dir:      "inbox",
			Debounce: 500 * time.Millisecond,
		},
	}
}

// Load reads path over the defaults. A missing file yields the defaults;
// a malformed one is an error. An empty path selects FileName.
func Load(path string) (*Config, error) {
	if path == "" {
		path = FileName
	}
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DuplicatePolicy returns the parsed OnDuplicate value.
func (c *Config) DuplicatePolicy() models.DuplicatePolicy {
	p, _ := models.ParseDuplicatePolicy(c.OnDuplicate)
	return p
}

// LedgerPath is the BoltDB file inside StateDir.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.StateDir, "ledger.db")
}

// LocksDir holds the per-bucket lock files.
func (c *Config) LocksDir() string {
	return filepath.Join(c.StateDir, "locks")
}

// validate clamps numeric values into range and rejects unknown enums.
func (c *Config) validate() error {
	if c.BaseDir == "" {
		c.BaseDir = "files"
	}
	if c.StateDir == "" {
		c.StateDir = ".hashdrop"
	}

	if c.IndexMaxBytes < 1024 {
		c.IndexMaxBytes = 1024
	}
	if c.IndexMaxBytes > 64*1024*1024 {
		c.IndexMaxBytes = 64 * 1024 * 1024
	}
	if c.RolloverAttempts < 1 {
		c.RolloverAttempts = 1
	}
	if c.RolloverAttempts > 10000 {
		c.RolloverAttempts = 10000
	}

	if _, err := models.ParseDuplicatePolicy(c.OnDuplicate); err != nil {
		return err
	}

	if c.LedgerTimeout < time.Second {
		c.LedgerTimeout = time.Second
	}
	if c.LedgerTimeout > time.Minute {
		c.LedgerTimeout = time.Minute
	}
	if c.VerifyWorkers < 1 {
		c.VerifyWorkers = 1
	}
	if c.VerifyWorkers > 64 {
		c.VerifyWorkers = 64
	}

	if c.Pages.MinTokenLength < 1 {
		c.Pages.MinTokenLength = 1
	}
	if c.Pages.MaxTokens < 1 {
		c.Pages.MaxTokens = 1
	}
	if c.Pages.MaxTokens > 256 {
		c.Pages.MaxTokens = 256
	}

	if c.Inbox.Debounce < 10*time.Millisecond {
		c.Inbox.Debounce = 10 * time.Millisecond
	}
	if c.Inbox.Debounce > 10*time.Second {
		c.Inbox.Debounce = 10 * time.Second
	}
	return nil
}
