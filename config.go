package hbscontent

import "strings"

// Build defaults.
const (
	DefaultExtension       = ".hbs"
	DefaultTargetExtension = "template-contents"
	DefaultConcurrency     = 4
)

// Config holds build settings, usually read from a YAML file.
type Config struct {
	// Extensions selects which source files are templates.
	Extensions []string `yaml:"extensions"`

	// TargetExtension replaces the template extension in output names.
	TargetExtension string `yaml:"target_extension"`

	Concurrency int `yaml:"concurrency"`

	// Index is the path of the SQLite search index. Empty disables indexing.
	Index string `yaml:"index"`

	// SkipInvalid skips templates that fail to parse instead of failing the build.
	SkipInvalid bool `yaml:"skip_invalid"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Extensions:      []string{DefaultExtension},
		TargetExtension: DefaultTargetExtension,
		Concurrency:     DefaultConcurrency,
	}
}

// Validate returns an error if the configuration contains invalid fields.
func (c *Config) Validate() error {
	if len(c.Extensions) == 0 {
		return Errorf(EINVALID, "at least one template extension required")
	}
	for _, ext := range c.Extensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			return Errorf(EINVALID, "template extension %q must start with a dot", ext)
		}
	}
	if c.TargetExtension == "" || strings.ContainsAny(c.TargetExtension, `/\`) {
		return Errorf(EINVALID, "invalid target extension %q", c.TargetExtension)
	}
	if c.Concurrency < 0 {
		return Errorf(EINVALID, "concurrency must not be negative")
	}
	return nil
}
