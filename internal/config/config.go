package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Output       string `yaml:"output"`
	ImageWorkers int    `yaml:"image_workers"`
	AutoWorkers  bool   `yaml:"auto_workers"`
	Debug        bool   `yaml:"debug"`

	MinWidth int `yaml:"min_width"`
	ScrollMs int `yaml:"scroll_ms"`

	AutoConfirmPurchase  bool `yaml:"auto_confirm_purchase"`
	AutoConfirmUseRental bool `yaml:"auto_confirm_use_rental"`

	StitchCount    int  `yaml:"stitch_count"`
	StitchHeight   int  `yaml:"stitch_height"`
	StitchWidth    int  `yaml:"stitch_width"`
	StitchSameDir  bool `yaml:"stitch_same_dir"`
	PNGLevel       int  `yaml:"png_level"`
	Optimize       bool `yaml:"optimize"`
	StripMetadata  bool `yaml:"strip_metadata"`
	DeleteSources  bool `yaml:"delete_sources"`
	DeleteURLCache bool `yaml:"delete_url_cache"`

	UserAgent string `yaml:"user_agent"`
}

type Options struct {
	IgnoreConfig bool
	Debug        bool
	Output       string
	ImageWorkers int
	MinWidth     int
	ScrollMs     int
	AutoRent     bool
	AutoBuy      bool
	UserAgent    string
}

func DefaultConfig() *Config {
	return &Config{
		Output:       ".",
		ImageWorkers: 0,
		AutoWorkers:  true,
		MinWidth:     0,
		ScrollMs:     30000,
		PNGLevel:     6,
	}
}

func SaveYAML(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func loadYAML(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	return &c, nil
}

func LoadMerged(opts Options) (*Config, string, error) {
	if opts.IgnoreConfig {
		cfg := DefaultConfig()
		mergeConfig(cfg, opts)
		normalizeDefaults(cfg)
		return cfg, "(ignored config)", nil
	}

	activePath, err := ActiveConfigPath()
	if err == ErrNoConfig || activePath == "" {
		cfg := DefaultConfig()
		mergeConfig(cfg, opts)
		normalizeDefaults(cfg)
		return cfg, "(default config in memory)\nRun `kpdl config init` to create an actual config\n", nil
	}
	if err != nil {
		return nil, "", err
	}

	cfg, err := loadYAML(activePath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config %s: %w", activePath, err)
	}

	mergeConfig(cfg, opts)
	normalizeDefaults(cfg)

	return cfg, activePath, nil
}

func mergeConfig(c *Config, o Options) {
	if o.Output != "" {
		c.Output = o.Output
	}
	if o.ImageWorkers != 0 {
		c.ImageWorkers = o.ImageWorkers
		c.AutoWorkers = false
	}
	if o.MinWidth != 0 {
		c.MinWidth = o.MinWidth
	}
	if o.ScrollMs != 0 {
		c.ScrollMs = o.ScrollMs
	}
	if o.Debug {
		c.Debug = true
	}
	if o.AutoRent {
		c.AutoConfirmUseRental = true
	}
	if o.AutoBuy {
		c.AutoConfirmPurchase = true
	}
	if o.UserAgent != "" {
		c.UserAgent = o.UserAgent
	}
}

func normalizeDefaults(c *Config) {
	if c.Output == "" {
		c.Output = "."
	}
	if c.ScrollMs < 3000 {
		c.ScrollMs = 3000
	}
	if c.PNGLevel < 0 {
		c.PNGLevel = 0
	}
	if c.PNGLevel > 9 {
		c.PNGLevel = 9
	}
}

func (c *Config) Print() {
	fmt.Printf(" -output: %s\n", c.Output)
	if c.AutoWorkers {
		fmt.Printf(" -image_workers: auto\n")
	} else {
		fmt.Printf(" -image_workers: %d\n", c.ImageWorkers)
	}
	if c.MinWidth > 0 {
		fmt.Printf(" -min_width: %d\n", c.MinWidth)
	}
	fmt.Printf(" -scroll_ms: %d\n", c.ScrollMs)
	if c.AutoConfirmUseRental {
		fmt.Printf(" -auto_confirm_use_rental: %t\n", c.AutoConfirmUseRental)
	}
	if c.AutoConfirmPurchase {
		fmt.Printf(" -auto_confirm_purchase: %t\n", c.AutoConfirmPurchase)
	}
	if c.StitchCount > 0 {
		fmt.Printf(" -stitch_count: %d\n", c.StitchCount)
	}
	if c.StitchHeight > 0 {
		fmt.Printf(" -stitch_height: %d\n", c.StitchHeight)
	}
	if c.Debug {
		fmt.Printf(" -debug: %t\n", c.Debug)
	}
}
