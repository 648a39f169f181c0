package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/miku/skmerge"
	"github.com/miku/skmerge/merge"
	"github.com/miku/skmerge/remote"
	"gopkg.in/yaml.v3"
)

// DefaultOutputPath is used when no output is given.
const DefaultOutputPath = "./out.csv"

var (
	ErrMissingCSV  = errors.New("the path to the csv file to process has not been indicated")
	ErrMissingJSON = errors.New("the path to the json file to be used for aggregation has not been indicated")
)

// Config for a merge run. Values are taken from defaults, then an optional
// YAML file, then command line flags.
type Config struct {
	// CSVPath is the table to enrich.
	CSVPath string `yaml:"csv"`
	// JSONPath is the supplementary data, a file or an http(s) URL.
	JSONPath string `yaml:"json"`
	// OutputPath is where the enriched table goes.
	OutputPath string `yaml:"output"`
	// ByName resolves columns by header name instead of position.
	ByName     bool          `yaml:"by_name"`
	Columns    merge.Columns `yaml:"columns"`
	CacheTTL   time.Duration `yaml:"cache_ttl"`
	MaxRetries int           `yaml:"max_retries"`
	Verbose    bool          `yaml:"verbose"`
}

// Default returns a configuration with default values.
func Default() *Config {
	return &Config{
		OutputPath: DefaultOutputPath,
		Columns:    merge.DefaultColumns(),
		CacheTTL:   remote.DefaultCacheTTL,
		MaxRetries: remote.DefaultMaxRetries,
	}
}

// DefaultFile returns the path to the user config file, which may not exist.
func DefaultFile() string {
	return filepath.Join(xdg.ConfigHome, skmerge.AppName, "config.yml")
}

// LoadFile overlays values from a YAML file. A missing file is not an error,
// if optional is true.
func (c *Config) LoadFile(filename string, optional bool) error {
	b, err := os.ReadFile(filename)
	if err != nil {
		if optional && os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parsing config %s: %w", filename, err)
	}
	return nil
}

// Validate checks for required values.
func (c *Config) Validate() error {
	switch {
	case c.CSVPath == "":
		return ErrMissingCSV
	case c.JSONPath == "":
		return ErrMissingJSON
	}
	if c.OutputPath == "" {
		c.OutputPath = DefaultOutputPath
	}
	return nil
}

// LayoutFunc returns the column layout strategy for this configuration.
func (c *Config) LayoutFunc() merge.LayoutFunc {
	if c.ByName {
		return merge.NamedLayout(c.Columns)
	}
	return merge.PositionalLayout
}
