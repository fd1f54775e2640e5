package config

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/brownwork/internal/dynamo"
)

const (
	DefaultK     = 1.0
	DefaultBeta  = 1.0
	DefaultGamma = 1.0
	DefaultOut   = "trajectory.csv"
)

type Config struct {
	Physics      PhysicsConfig `yaml:"physics"`
	Steps        int           `yaml:"steps"`
	Dt           float64       `yaml:"dt"`
	Displacement float64       `yaml:"lambda"`
	Samples      int           `yaml:"samples"`
	Seed         int64         `yaml:"seed"`
	Workers      int           `yaml:"workers"`
	BatchSize    int           `yaml:"batch_size"`
	Output       string        `yaml:"output"`
}

type PhysicsConfig struct {
	K     float64 `yaml:"k"`
	Beta  float64 `yaml:"beta"`
	Gamma float64 `yaml:"gamma"`
}

func DefaultConfig() *Config {
	return &Config{
		Physics: PhysicsConfig{
			K:     DefaultK,
			Beta:  DefaultBeta,
			Gamma: DefaultGamma,
		},
		Steps:        dynamo.DefaultSteps,
		Dt:           dynamo.DefaultDt,
		Displacement: dynamo.DefaultDisplacement,
		Samples:      dynamo.DefaultSamples,
		Workers:      1,
		BatchSize:    dynamo.DefaultBatchSize,
	}
}

// Load reads a yaml file on top of the defaults. Missing keys keep their
// default values.
func Load(path string) (*Config, error) {
	return LoadFrom(path, DefaultConfig())
}

// LoadFrom reads a yaml file on top of a copy of base, e.g. a preset.
func LoadFrom(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := *base
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Protocol() dynamo.Protocol {
	batch := c.BatchSize
	if batch <= 0 {
		batch = dynamo.DefaultBatchSize
	}
	return dynamo.Protocol{
		K:            c.Physics.K,
		Beta:         c.Physics.Beta,
		Gamma:        c.Physics.Gamma,
		Steps:        c.Steps,
		Dt:           c.Dt,
		Displacement: c.Displacement,
		Samples:      c.Samples,
		Seed:         c.Seed,
		Workers:      c.Workers,
		BatchSize:    batch,
	}
}

// OutputPath is the table destination for Output. An existing directory, or
// a path ending in a separator, receives a table named DefaultOut.
func (c *Config) OutputPath() string {
	if c.Output == "" {
		return ""
	}
	if strings.HasSuffix(c.Output, string(filepath.Separator)) {
		return filepath.Join(c.Output, DefaultOut)
	}
	if info, err := os.Stat(c.Output); err == nil && info.IsDir() {
		return filepath.Join(c.Output, DefaultOut)
	}
	return c.Output
}

// Validate checks the protocol the config describes.
func (c *Config) Validate() error {
	return c.Protocol().Validate()
}
