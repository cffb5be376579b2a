package config

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/viper"

	"github.com/jobharvest/rod-jobs/internal/browser"
	"github.com/jobharvest/rod-jobs/internal/filter"
	"github.com/jobharvest/rod-jobs/internal/job"
)

// EnvPrefix namespaces environment overrides, e.g. RODJOBS_N_PROCESS.
const EnvPrefix = "RODJOBS"

type FilterConfig struct {
	Includes []string `mapstructure:"includes"`
	Excludes []string `mapstructure:"excludes"`
}

type Config struct {
	Search    string                  `mapstructure:"search"`
	Visualize bool                    `mapstructure:"visualize"`
	NProcess  int                     `mapstructure:"n_process"`
	Filters   map[string]FilterConfig `mapstructure:"filters"`

	Timeout   time.Duration `mapstructure:"timeout"`
	WarmupURL string        `mapstructure:"warmup_url"`
	MaxPages  int           `mapstructure:"max_pages"`
	// BlockMedia keeps images, fonts and media out of every session.
	BlockMedia bool `mapstructure:"block_media"`

	OutputDir string `mapstructure:"output_dir"`
	Database  string `mapstructure:"database"`
	LogFile   string `mapstructure:"log_file"`
	Debug     bool   `mapstructure:"debug"`
}

// SetDefaults registers the default of every optional key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("visualize", false)
	v.SetDefault("n_process", 4)
	v.SetDefault("timeout", browser.DefaultTimeout)
	v.SetDefault("warmup_url", "https://www.google.com")
	v.SetDefault("max_pages", 0)
	v.SetDefault("block_media", true)
	v.SetDefault("output_dir", "data")
	v.SetDefault("database", "jobs.db")
	v.SetDefault("debug", false)
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Search == "" {
		errs = append(errs, errors.New("search keyword is required"))
	}
	if c.NProcess < 1 {
		errs = append(errs, fmt.Errorf("n_process must be positive, got %d", c.NProcess))
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %s", c.Timeout))
	}
	if c.MaxPages < 0 {
		errs = append(errs, fmt.Errorf("max_pages must not be negative, got %d", c.MaxPages))
	}
	if _, err := c.FilterSpec(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// FilterSpec converts the filters section, ordered by column. Keys may be a
// field key or the site label of the field.
func (c *Config) FilterSpec() (filter.Spec, error) {
	spec := make(filter.Spec, 0, len(c.Filters))
	seen := map[job.Field]string{}
	for name, fc := range c.Filters {
		f, ok := job.ParseField(name)
		if !ok {
			return nil, fmt.Errorf("filters: unknown field %q", name)
		}
		if prev, dup := seen[f]; dup {
			return nil, fmt.Errorf("filters: %q and %q name the same field", prev, name)
		}
		seen[f] = name
		if len(fc.Includes) == 0 && len(fc.Excludes) == 0 {
			continue
		}
		spec = append(spec, filter.Rule{Field: f, Includes: fc.Includes, Excludes: fc.Excludes})
	}
	sort.Slice(spec, func(i, j int) bool { return spec[i].Field < spec[j].Field })
	return spec, nil
}
