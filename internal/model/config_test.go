package model

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaultConfig_Validates(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestValidate_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty base url", func(c *Config) { c.API.BaseURL = "" }},
		{"page size zero", func(c *Config) { c.API.PageSize = 0 }},
		{"page size over cap", func(c *Config) { c.API.PageSize = 500 }},
		{"max below min", func(c *Config) { c.Pacing.Max = c.Pacing.Min / 2 }},
		{"backoff not growing", func(c *Config) { c.Pacing.BackoffMultiplier = 1 }},
		{"cooldown not shrinking", func(c *Config) { c.Pacing.CooldownMultiplier = 1 }},
		{"field without id", func(c *Config) { c.Fields = []FieldConfig{{Name: "Economics"}} }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestFieldConfig_Paths(t *testing.T) {
	f := FieldConfig{ID: "C162324750", Name: "Political Science"}

	assert.Equal(t, "political_science", f.Slug())
	assert.Equal(t, filepath.Join("out", "authors_political_science.csv"), f.OutputPath("out"))
	assert.Equal(t, filepath.Join("out", "cursor_political_science.txt"), f.CursorPath("out"))

	f.SafeName = "polisci"
	assert.Equal(t, "polisci", f.Slug())

	f.OutputFile = "custom.csv"
	f.CursorFile = "custom.txt"
	assert.Equal(t, "custom.csv", f.OutputPath("out"))
	assert.Equal(t, "custom.txt", f.CursorPath("out"))
}

func ptr[T any](v T) *T { return &v }

func TestFieldConfig_EffectiveFilter(t *testing.T) {
	base := DefaultConfig().Filter

	f := FieldConfig{ID: "C1", Name: "Economics"}
	assert.Equal(t, base, f.EffectiveFilter(base))

	f.Filter = &FilterOverrides{MinScore: ptr(50.0), TopK: ptr(3)}
	got := f.EffectiveFilter(base)
	assert.Equal(t, 50.0, got.MinScore)
	assert.Equal(t, 3, got.TopK)

	// Unset keys inherit the globals instead of zeroing out
	assert.Equal(t, base.MinRelative, got.MinRelative)
	assert.Equal(t, base.BorderlineScore, got.BorderlineScore)
	assert.Equal(t, base.MinShare, got.MinShare)
	assert.Equal(t, base.SkipShareIfPrimaryInField, got.SkipShareIfPrimaryInField)

	f.Filter = &FilterOverrides{SkipShareIfPrimaryInField: ptr(false)}
	assert.False(t, f.EffectiveFilter(base).SkipShareIfPrimaryInField,
		"an explicit false override wins over the global true")
}

func TestFieldConfig_PartialOverrideFromYAML(t *testing.T) {
	var f FieldConfig
	require.NoError(t, yaml.Unmarshal([]byte(
		"id: C162324750\nname: Economics\nfilter:\n  min_score: 50\n"), &f))

	got := f.EffectiveFilter(DefaultConfig().Filter)
	assert.Equal(t, 50.0, got.MinScore)
	assert.Equal(t, 5, got.TopK)
	assert.Equal(t, 0.6, got.MinRelative)
	assert.Equal(t, 45.0, got.BorderlineScore)
	assert.Equal(t, 0.40, got.MinShare)
	assert.True(t, got.SkipShareIfPrimaryInField)
}
