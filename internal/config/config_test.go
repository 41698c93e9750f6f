package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeConfig(t *testing.T) {
	cfg := DefaultConfig()
	mergeConfig(cfg, Options{
		Output:       "/tmp/out",
		ImageWorkers: 4,
		MinWidth:     600,
		AutoRent:     true,
	})

	assert.Equal(t, "/tmp/out", cfg.Output)
	assert.Equal(t, 4, cfg.ImageWorkers)
	assert.False(t, cfg.AutoWorkers, "explicit worker count disables auto")
	assert.Equal(t, 600, cfg.MinWidth)
	assert.True(t, cfg.AutoConfirmUseRental)
	assert.False(t, cfg.AutoConfirmPurchase)
}

func TestNormalizeDefaults(t *testing.T) {
	cfg := &Config{ScrollMs: 100, PNGLevel: 42}
	normalizeDefaults(cfg)

	assert.Equal(t, ".", cfg.Output)
	assert.Equal(t, 3000, cfg.ScrollMs)
	assert.Equal(t, 9, cfg.PNGLevel)

	cfg = &Config{PNGLevel: -3}
	normalizeDefaults(cfg)
	assert.Equal(t, 0, cfg.PNGLevel)
}

func TestYAMLRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")

	in := DefaultConfig()
	in.StitchCount = 5
	in.MinWidth = 720
	in.AutoConfirmUseRental = true

	assert.NoError(t, SaveYAML(in, path))

	out, err := loadYAML(path)
	assert.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestLoadMerged_IgnoreConfig(t *testing.T) {
	cfg, used, err := LoadMerged(Options{IgnoreConfig: true, Output: "/x"})
	assert.NoError(t, err)
	assert.Equal(t, "(ignored config)", used)
	assert.Equal(t, "/x", cfg.Output)
	assert.Equal(t, 30000, cfg.ScrollMs)
}
