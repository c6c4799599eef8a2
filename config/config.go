// Package config loads the service configuration from YAML with
// FIREDETECT_* environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"firedetect/errs"
	"firedetect/logging"
	"firedetect/sensor"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

const envPrefix = "firedetect"

type Config struct {
	Predictors          []string             `yaml:"predictors"`
	Ranges              map[string][]float64 `yaml:"ranges"`
	ProductionModelPath string               `yaml:"production_model_path"`
	Http                struct {
		Host         string        `yaml:"host"`
		Port         int           `yaml:"port"`
		Timeout      time.Duration `yaml:"timeout"`
		MaxBodyBytes int64         `yaml:"max_body_bytes"`
	} `yaml:"http"`
	Log      logging.Config `yaml:"log"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
}

// envOverrides are applied on top of the file, FIREDETECT_HTTP_PORT etc.
// Paths given here stay relative to the working directory.
type envOverrides struct {
	HTTPHost  string `envconfig:"HTTP_HOST"`
	HTTPPort  int    `envconfig:"HTTP_PORT"`
	LogLevel  string `envconfig:"LOG_LEVEL"`
	ModelPath string `envconfig:"MODEL_PATH"`
	DBPath    string `envconfig:"DB_PATH"`
}

// ResolvePath looks for name in the working directory, then one level up,
// so binaries run from cmd/ still find the root config.
func ResolvePath(name string) string {
	if _, err := os.Stat(name); os.IsNotExist(err) && !filepath.IsAbs(name) {
		parent := filepath.Join("..", name)
		if _, err := os.Stat(parent); err == nil {
			return parent
		}
	}
	return name
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrInvalidConfig, err)
	}
	defer file.Close()

	config := defaults()
	if err := yaml.NewDecoder(file).Decode(config); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", errs.ErrInvalidConfig, path, err)
	}
	config.resolveRelative(filepath.Dir(path))
	if err := config.applyEnv(); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func defaults() *Config {
	c := &Config{}
	c.Http.Host = "0.0.0.0"
	c.Http.Port = 8080
	c.Http.Timeout = 30 * time.Second
	c.Http.MaxBodyBytes = 64 << 10
	c.Log.Level = "info"
	return c
}

func (c *Config) applyEnv() error {
	var env envOverrides
	if err := envconfig.Process(envPrefix, &env); err != nil {
		return fmt.Errorf("%w: environment: %w", errs.ErrInvalidConfig, err)
	}
	if env.HTTPHost != "" {
		c.Http.Host = env.HTTPHost
	}
	if env.HTTPPort != 0 {
		c.Http.Port = env.HTTPPort
	}
	if env.LogLevel != "" {
		c.Log.Level = env.LogLevel
	}
	if env.ModelPath != "" {
		c.ProductionModelPath = env.ModelPath
	}
	if env.DBPath != "" {
		c.Database.Path = env.DBPath
	}
	return nil
}

// resolveRelative makes file paths from the config file relative to its directory.
func (c *Config) resolveRelative(dir string) {
	rebase := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	c.ProductionModelPath = rebase(c.ProductionModelPath)
	c.Database.Path = rebase(c.Database.Path)
	c.Log.File = rebase(c.Log.File)
}

func (c *Config) Validate() error {
	if c.ProductionModelPath == "" {
		return fmt.Errorf("%w: production_model_path is required", errs.ErrInvalidConfig)
	}
	if c.Http.Port <= 0 || c.Http.Port > 65535 {
		return fmt.Errorf("%w: http.port %d out of range", errs.ErrInvalidConfig, c.Http.Port)
	}
	if c.Http.Timeout <= 0 {
		return fmt.Errorf("%w: http.timeout must be positive", errs.ErrInvalidConfig)
	}
	if c.Http.MaxBodyBytes <= 0 {
		return fmt.Errorf("%w: http.max_body_bytes must be positive", errs.ErrInvalidConfig)
	}
	_, err := c.Schema()
	return err
}

// Schema builds the predictor layout with one range rule per predictor.
func (c *Config) Schema() (sensor.Schema, error) {
	rules := make(map[string]sensor.RangeRule, len(c.Ranges))
	for name, bounds := range c.Ranges {
		if len(bounds) != 2 {
			return sensor.Schema{}, fmt.Errorf("%w: range for %q needs [min, max], got %v", errs.ErrInvalidConfig, name, bounds)
		}
		rules[name] = sensor.RangeRule{Min: bounds[0], Max: bounds[1]}
	}
	return sensor.NewSchema(c.Predictors, rules)
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Http.Host, c.Http.Port)
}
