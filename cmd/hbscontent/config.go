package main

import (
	"os"

	"github.com/fwojciec/hbscontent"
	yaml "gopkg.in/yaml.v3"
)

// LoadConfig reads a YAML config file over the defaults.
// An empty path returns the defaults.
func LoadConfig(path string) (hbscontent.Config, error) {
	cfg := hbscontent.DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, hbscontent.Errorf(hbscontent.EINVALID, "invalid config file %s: %v", path, err)
	}
	return cfg, nil
}

// config resolves the build configuration: defaults, then the config
// file, then flags and the environment.
func (c *BuildCmd) config(envIndex string) (hbscontent.Config, error) {
	cfg, err := LoadConfig(c.Config)
	if err != nil {
		return cfg, err
	}

	if len(c.Ext) > 0 {
		cfg.Extensions = c.Ext
	}
	if c.Target != "" {
		cfg.TargetExtension = c.Target
	}
	if c.Concurrency > 0 {
		cfg.Concurrency = c.Concurrency
	}
	if c.Index != "" {
		cfg.Index = c.Index
	} else if cfg.Index == "" {
		cfg.Index = envIndex
	}
	if c.SkipInvalid {
		cfg.SkipInvalid = true
	}

	return cfg, cfg.Validate()
}
