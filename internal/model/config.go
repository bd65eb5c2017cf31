package model

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Config holds all fieldharvest configuration
type Config struct {
	API     APIConfig     `mapstructure:"api" yaml:"api"`
	Pacing  PacingConfig  `mapstructure:"pacing" yaml:"pacing"`
	Filter  FilterConfig  `mapstructure:"filter" yaml:"filter"`
	Output  OutputConfig  `mapstructure:"output" yaml:"output"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Fields  []FieldConfig `mapstructure:"fields" yaml:"fields"`
}

// APIConfig configures access to the OpenAlex API
type APIConfig struct {
	BaseURL           string        `mapstructure:"base_url" yaml:"base_url"`
	UserAgent         string        `mapstructure:"user_agent" yaml:"user_agent"`
	Mailto            string        `mapstructure:"mailto" yaml:"mailto"`                 // contact email for the OpenAlex polite pool
	PageSize          int           `mapstructure:"page_size" yaml:"page_size"`           // authors per page (max 200)
	MaxRetries        int           `mapstructure:"max_retries" yaml:"max_retries"`       // 0 = retry transient errors forever
	MaxRequestsPerSec float64       `mapstructure:"max_rps" yaml:"max_rps"`               // hard ceiling on request rate
	Burst             int           `mapstructure:"burst" yaml:"burst"`                   // rate limiter burst size
	AuthorsTimeout    time.Duration `mapstructure:"authors_timeout" yaml:"authors_timeout"`
	ConceptsTimeout   time.Duration `mapstructure:"concepts_timeout" yaml:"concepts_timeout"`
	WorksTimeout      time.Duration `mapstructure:"works_timeout" yaml:"works_timeout"`
}

// PacingConfig controls the adaptive inter-request delay
type PacingConfig struct {
	Initial            time.Duration `mapstructure:"initial" yaml:"initial"`
	Min                time.Duration `mapstructure:"min" yaml:"min"`
	Max                time.Duration `mapstructure:"max" yaml:"max"`
	BackoffMultiplier  float64       `mapstructure:"backoff_multiplier" yaml:"backoff_multiplier"`
	CooldownMultiplier float64       `mapstructure:"cooldown_multiplier" yaml:"cooldown_multiplier"`
	PreloadDelay       time.Duration `mapstructure:"preload_delay" yaml:"preload_delay"`             // courtesy delay between concept pages
	CountDelay         time.Duration `mapstructure:"count_delay" yaml:"count_delay"`                 // courtesy delay after each count query
	PauseBetweenFields time.Duration `mapstructure:"pause_between_fields" yaml:"pause_between_fields"`
}

// FilterConfig holds the relevance filter thresholds
type FilterConfig struct {
	MinScore        float64 `mapstructure:"min_score" yaml:"min_score"`               // absolute floor for the best in-field topic (0-100)
	TopK            int     `mapstructure:"top_k" yaml:"top_k"`                       // field must appear in the top-K topics; 0 disables the gate
	MinRelative     float64 `mapstructure:"min_relative" yaml:"min_relative"`         // best in-field score vs. top topic score; 0 disables the gate
	BorderlineScore float64 `mapstructure:"borderline_score" yaml:"borderline_score"` // below this, the works-share check kicks in
	MinShare        float64 `mapstructure:"min_share" yaml:"min_share"`               // minimum in-field share of total works for borderline authors

	// SkipShareIfPrimaryInField skips the works-share check when the
	// author's top topic already belongs to the field subtree.
	SkipShareIfPrimaryInField bool `mapstructure:"skip_share_if_primary_in_field" yaml:"skip_share_if_primary_in_field"`
}

// OutputConfig controls output files and flushing
type OutputConfig struct {
	Dir        string `mapstructure:"dir" yaml:"dir"`
	FlushPages int    `mapstructure:"flush_pages" yaml:"flush_pages"` // flush the CSV every N pages
}

// LoggingConfig toggles zap development features
type LoggingConfig struct {
	Development bool `mapstructure:"development" yaml:"development"`
}

// FilterOverrides adjusts individual filter thresholds for one field.
// A nil field inherits the global value, so a field tuning one threshold
// keeps the rest of the global configuration.
type FilterOverrides struct {
	MinScore                  *float64 `mapstructure:"min_score" yaml:"min_score,omitempty"`
	TopK                      *int     `mapstructure:"top_k" yaml:"top_k,omitempty"`
	MinRelative               *float64 `mapstructure:"min_relative" yaml:"min_relative,omitempty"`
	BorderlineScore           *float64 `mapstructure:"borderline_score" yaml:"borderline_score,omitempty"`
	MinShare                  *float64 `mapstructure:"min_share" yaml:"min_share,omitempty"`
	SkipShareIfPrimaryInField *bool    `mapstructure:"skip_share_if_primary_in_field" yaml:"skip_share_if_primary_in_field,omitempty"`
}

// FieldConfig describes one taxonomy field to collect authors for
type FieldConfig struct {
	ID       string `mapstructure:"id" yaml:"id"`               // root concept id (e.g. C162324750)
	Name     string `mapstructure:"name" yaml:"name"`           // display name (e.g. "Economics")
	SafeName string `mapstructure:"safe_name" yaml:"safe_name"` // file-name slug; derived from Name when empty

	OutputFile string `mapstructure:"output_file" yaml:"output_file"` // overrides the derived CSV path
	CursorFile string `mapstructure:"cursor_file" yaml:"cursor_file"` // overrides the derived cursor path

	// Filter overrides individual global thresholds for this field only.
	Filter *FilterOverrides `mapstructure:"filter" yaml:"filter,omitempty"`
}

// Slug returns the file-name slug for the field
func (f FieldConfig) Slug() string {
	if f.SafeName != "" {
		return f.SafeName
	}
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(f.Name), " ", "_"))
}

// OutputPath returns the CSV path for the field under dir
func (f FieldConfig) OutputPath(dir string) string {
	if f.OutputFile != "" {
		return f.OutputFile
	}
	return filepath.Join(dir, "authors_"+f.Slug()+".csv")
}

// CursorPath returns the checkpoint path for the field under dir
func (f FieldConfig) CursorPath(dir string) string {
	if f.CursorFile != "" {
		return f.CursorFile
	}
	return filepath.Join(dir, "cursor_"+f.Slug()+".txt")
}

// EffectiveFilter merges the field's overrides over the global thresholds,
// key by key
func (f FieldConfig) EffectiveFilter(base FilterConfig) FilterConfig {
	o := f.Filter
	if o == nil {
		return base
	}
	if o.MinScore != nil {
		base.MinScore = *o.MinScore
	}
	if o.TopK != nil {
		base.TopK = *o.TopK
	}
	if o.MinRelative != nil {
		base.MinRelative = *o.MinRelative
	}
	if o.BorderlineScore != nil {
		base.BorderlineScore = *o.BorderlineScore
	}
	if o.MinShare != nil {
		base.MinShare = *o.MinShare
	}
	if o.SkipShareIfPrimaryInField != nil {
		base.SkipShareIfPrimaryInField = *o.SkipShareIfPrimaryInField
	}
	return base
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			BaseURL:           "https://api.openalex.org",
			UserAgent:         "fieldharvest/0.2 (+https://github.com/rmoretti/fieldharvest)",
			PageSize:          200,
			MaxRetries:        0,
			MaxRequestsPerSec: 10,
			Burst:             1,
			AuthorsTimeout:    20 * time.Second,
			ConceptsTimeout:   20 * time.Second,
			WorksTimeout:      25 * time.Second,
		},
		Pacing: PacingConfig{
			Initial:            150 * time.Millisecond,
			Min:                50 * time.Millisecond,
			Max:                1250 * time.Millisecond,
			BackoffMultiplier:  1.5,
			CooldownMultiplier: 0.9,
			PreloadDelay:       200 * time.Millisecond,
			CountDelay:         100 * time.Millisecond,
			PauseBetweenFields: 5 * time.Second,
		},
		Filter: FilterConfig{
			MinScore:                  20,
			TopK:                      5,
			MinRelative:               0.6,
			BorderlineScore:           45,
			MinShare:                  0.40,
			SkipShareIfPrimaryInField: true,
		},
		Output: OutputConfig{
			Dir:        "openalex_field_outputs",
			FlushPages: 5,
		},
		Logging: LoggingConfig{
			Development: true,
		},
	}
}

// Validate enforces required values and reasonable limits
func (c Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url must be set")
	}
	if c.API.PageSize <= 0 || c.API.PageSize > 200 {
		return fmt.Errorf("api.page_size must be in 1..200")
	}
	if c.Pacing.Min <= 0 || c.Pacing.Max < c.Pacing.Min {
		return fmt.Errorf("pacing.min must be > 0 and <= pacing.max")
	}
	if c.Pacing.BackoffMultiplier <= 1 {
		return fmt.Errorf("pacing.backoff_multiplier must be > 1")
	}
	if c.Pacing.CooldownMultiplier <= 0 || c.Pacing.CooldownMultiplier >= 1 {
		return fmt.Errorf("pacing.cooldown_multiplier must be in (0, 1)")
	}
	if c.Output.FlushPages < 0 {
		return fmt.Errorf("output.flush_pages must be >= 0")
	}
	for i, f := range c.Fields {
		if f.ID == "" || f.Name == "" {
			return fmt.Errorf("fields[%d]: id and name must be set", i)
		}
	}
	return nil
}
