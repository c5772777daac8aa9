package gen

import (
	"errors"
	"go/token"
	"runtime"
	"time"
)

// Default package names and runtime import path of generated Go code.
const (
	DefaultModelPackage     = "models"
	DefaultParserPackage    = "parsers"
	DefaultValidatorPackage = "validators"
	DefaultRuntimePath      = "github.com/syssam/metricgen"
)

// Config holds the settings shared by every target.
type Config struct {
	// OutDir is the root directory artifacts are written under.
	OutDir string
	// GeneratedAt is stamped into artifact headers. The zero time omits
	// the line, which makes output reproducible.
	GeneratedAt time.Time
	// StrictSlash makes slash rules yield no value for tokens without a
	// slash instead of the whole token.
	StrictSlash bool
	// Package names of the generated Go artifacts.
	ModelPackage     string
	ParserPackage    string
	ValidatorPackage string
	// RuntimePath is the import path prefix of the extract, coerce and
	// validate packages.
	RuntimePath string
	// Workers bounds the number of targets run in parallel.
	Workers int
}

// Option configures code generation.
type Option func(*Config) error

// WithOutDir sets the output directory.
func WithOutDir(dir string) Option {
	return func(c *Config) error {
		if dir == "" {
			return NewConfigError("OutDir", nil, "output directory cannot be empty")
		}
		c.OutDir = dir
		return nil
	}
}

// WithGeneratedAt sets the header timestamp. Pass the zero time for
// reproducible output.
func WithGeneratedAt(t time.Time) Option {
	return func(c *Config) error {
		c.GeneratedAt = t
		return nil
	}
}

// WithStrictSlash toggles strict slash extraction in generated parsers.
func WithStrictSlash(strict bool) Option {
	return func(c *Config) error {
		c.StrictSlash = strict
		return nil
	}
}

func packageName(option string, dst *string, name string) error {
	if !token.IsIdentifier(name) || token.IsKeyword(name) {
		return NewConfigError(option, name, "not a valid Go package name")
	}
	*dst = name
	return nil
}

// WithModelPackage sets the package name of generated models.
func WithModelPackage(name string) Option {
	return func(c *Config) error {
		return packageName("ModelPackage", &c.ModelPackage, name)
	}
}

// WithParserPackage sets the package name of generated parsers.
func WithParserPackage(name string) Option {
	return func(c *Config) error {
		return packageName("ParserPackage", &c.ParserPackage, name)
	}
}

// WithValidatorPackage sets the package name of generated validators.
func WithValidatorPackage(name string) Option {
	return func(c *Config) error {
		return packageName("ValidatorPackage", &c.ValidatorPackage, name)
	}
}

// WithRuntimePath sets the import path prefix of the runtime packages,
// for projects that vendor them under another module.
func WithRuntimePath(path string) Option {
	return func(c *Config) error {
		if path == "" {
			return NewConfigError("RuntimePath", nil, "runtime path cannot be empty")
		}
		c.RuntimePath = path
		return nil
	}
}

// WithWorkers sets the number of targets generated in parallel.
func WithWorkers(n int) Option {
	return func(c *Config) error {
		if n < 1 {
			return NewConfigError("Workers", n, "workers must be positive")
		}
		c.Workers = n
		return nil
	}
}

// ApplyAll applies options and collects all errors.
// Returns a joined error if any options failed.
func (c *Config) ApplyAll(opts ...Option) error {
	var errs []error
	for _, opt := range opts {
		if err := opt(c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Validate checks settings that span options. Each Go target writes its own
// package directory, so the package names must differ.
func (c *Config) Validate() error {
	seen := make(map[string]string, 3)
	for _, p := range []struct{ option, name string }{
		{"ModelPackage", c.ModelPackage},
		{"ParserPackage", c.ParserPackage},
		{"ValidatorPackage", c.ValidatorPackage},
	} {
		if prev, ok := seen[p.name]; ok {
			return NewConfigError(p.option, p.name, "package name already used by "+prev)
		}
		seen[p.name] = p.option
	}
	return nil
}

// NewConfig creates a Config with defaults, applies the given options and
// validates the result. Every failing option is reported.
func NewConfig(opts ...Option) (*Config, error) {
	c := &Config{
		OutDir:           ".",
		ModelPackage:     DefaultModelPackage,
		ParserPackage:    DefaultParserPackage,
		ValidatorPackage: DefaultValidatorPackage,
		RuntimePath:      DefaultRuntimePath,
		Workers:          runtime.GOMAXPROCS(0),
	}
	if err := c.ApplyAll(opts...); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// MustNewConfig creates a new Config with the given options.
// It panics if any option fails.
func MustNewConfig(opts ...Option) *Config {
	c, err := NewConfig(opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// RuntimePkg returns the import path of a runtime package such as "extract".
func (c *Config) RuntimePkg(name string) string {
	return c.RuntimePath + "/" + name
}
