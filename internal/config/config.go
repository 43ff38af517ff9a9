package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/rvudash/rvudash/internal/model"
)

// FileName is the default config file name.
const FileName = "rvudash.yaml"

// Config represents the top-level rvudash.yaml configuration.
type Config struct {
	Data           DataConfig           `yaml:"data"`
	Providers      map[string][]string  `yaml:"providers"` // alias -> source-system spellings
	Classification ClassificationConfig `yaml:"classification"`
	Formats        FormatsConfig        `yaml:"formats"`
	Fetch          FetchConfig          `yaml:"fetch"`
	Ingest         IngestConfig         `yaml:"ingest"`
	Cache          CacheConfig          `yaml:"cache"`
	Watch          WatchConfig          `yaml:"watch"`
}

// DataConfig says where billing exports come from.
type DataConfig struct {
	Dir     string   `yaml:"dir"`
	Sources []string `yaml:"sources,omitempty"` // paths or URLs; overrides Dir when set
}

// ClassificationConfig holds the location and payer rules used by enrichment.
type ClassificationConfig struct {
	InpatientLocations []string `yaml:"inpatient_locations"`
	MedicaidPrefix     string   `yaml:"medicaid_prefix"`
}

// FormatsConfig describes the layout of each export format.
type FormatsConfig struct {
	Spreadsheet SpreadsheetConfig `yaml:"spreadsheet"`
	FixedWidth  FixedWidthConfig  `yaml:"fixed_width"`
}

// SpreadsheetConfig maps canonical columns to spreadsheet column letters.
type SpreadsheetConfig struct {
	Columns []string `yaml:"columns"`
}

// FixedWidthConfig holds the character offsets of the print layout.
type FixedWidthConfig struct {
	Offsets []int `yaml:"offsets"`
}

// FetchConfig bounds remote fetches.
type FetchConfig struct {
	Timeout time.Duration `yaml:"timeout"`
	Retries int           `yaml:"retries"`
}

// IngestConfig controls failure handling and run history.
type IngestConfig struct {
	SkipFailedSources bool   `yaml:"skip_failed_sources"`
	History           string `yaml:"history"` // CSV of past runs; empty disables
}

// CacheConfig sizes the filter-result cache.
type CacheConfig struct {
	FilterEntries int `yaml:"filter_entries"`
}

// WatchConfig controls directory watching.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// Load reads an rvudash.yaml file from disk and applies env overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	// yaml.v3 merges into non-nil maps; a providers block replaces the defaults.
	defaultProviders := cfg.Providers
	cfg.Providers = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.Providers == nil {
		cfg.Providers = defaultProviders
	}
	ApplyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault is Load, except a missing file yields Default with env overrides.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg = Default()
		ApplyEnv(cfg)
		return cfg, cfg.Validate()
	}
	return cfg, err
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config matching the clinic's current export layouts.
func Default() *Config {
	return &Config{
		Data: DataConfig{Dir: "data"},
		Providers: map[string][]string{
			"Lee":     {"Lee , Jonathan MD"},
			"Mike":    {"Frostad, Michael J. MD"},
			"Gordon":  {"Gordon, Methuel A. MD"},
			"Katie":   {"Hryniewicz, Kathryn N. MD"},
			"Shields": {"Shields, Maricarmen S. MD"},
		},
		Classification: ClassificationConfig{
			InpatientLocations: []string{"Pullman Regional Hospital IP"},
			MedicaidPrefix:     "medicaid",
		},
		Formats: FormatsConfig{
			Spreadsheet: SpreadsheetConfig{
				Columns: []string{"B", "C", "D", "E", "G", "H", "I", "K", "N", "P", "R", "S", "T"},
			},
			FixedWidth: FixedWidthConfig{
				// Epic Report Settings > Print Layout
				Offsets: []int{0, 12, 24, 50, 62, 62, 83, 164, 170, 178, 178, 187, 223, 264},
			},
		},
		Fetch: FetchConfig{
			Timeout: 30 * time.Second,
			Retries: 1,
		},
		Ingest: IngestConfig{History: "logs/ingest-log.csv"},
		Cache:  CacheConfig{FilterEntries: 64},
		Watch:  WatchConfig{Debounce: 2 * time.Second},
	}
}

// Validate checks that the format layouts line up with the canonical columns.
func (c *Config) Validate() error {
	n := len(model.Columns)
	if got := len(c.Formats.Spreadsheet.Columns); got != n {
		return fmt.Errorf("invalid config: spreadsheet columns: expected %d, got %d", n, got)
	}
	offsets := c.Formats.FixedWidth.Offsets
	if len(offsets) != n+1 {
		return fmt.Errorf("invalid config: fixed_width offsets: expected %d, got %d", n+1, len(offsets))
	}
	for i := 1; i < len(offsets); i++ {
		if offsets[i] < offsets[i-1] {
			return fmt.Errorf("invalid config: fixed_width offsets must not decrease (%d after %d)", offsets[i], offsets[i-1])
		}
	}
	if c.Fetch.Retries < 0 {
		return fmt.Errorf("invalid config: fetch retries must be >= 0, got %d", c.Fetch.Retries)
	}
	return nil
}

// Sources returns the explicit source list, or nil when sources come from Data.Dir.
func (c *Config) Sources() []string {
	if len(c.Data.Sources) == 0 {
		return nil
	}
	return c.Data.Sources
}

// LoadEnv loads a .env file into the process environment if one exists.
func LoadEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("loading %s: %w", path, err)
}

// ApplyEnv overrides config values from RVUDASH_* environment variables.
func ApplyEnv(cfg *Config) {
	if v := getenv("RVUDASH_DATA_FILES", ""); v != "" {
		cfg.Data.Sources = splitList(v)
	}
	cfg.Data.Dir = getenv("RVUDASH_DATA_DIR", cfg.Data.Dir)
	cfg.Fetch.Timeout = getenvDuration("RVUDASH_FETCH_TIMEOUT", cfg.Fetch.Timeout)
	cfg.Ingest.SkipFailedSources = getenvBool("RVUDASH_SKIP_FAILED_SOURCES", cfg.Ingest.SkipFailedSources)
	cfg.Ingest.History = getenv("RVUDASH_HISTORY", cfg.Ingest.History)
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
