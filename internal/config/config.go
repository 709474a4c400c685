// Package config holds the settings of gasflow, stored as YAML.
package config

import (
	"os"
	"strings"

	"github.com/ansel1/merry"
	"github.com/fpawel/gasflow/internal/metering"
	"github.com/fpawel/gasflow/internal/pkg/cfgfile"
	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

const DefaultFilename = "gasflow.yaml"

type Config struct {
	LogLevel       string       `yaml:"log_level"`
	FloatPrecision int          `yaml:"float_precision"`
	SessionKey     string       `yaml:"session_key"`
	StandardPreset string       `yaml:"standard_preset"`
	HTTP           HTTP         `yaml:"http"`
	DB             DB           `yaml:"db"`
	Evaluator      Evaluator    `yaml:"evaluator"`
	ThriftServer   ThriftServer `yaml:"thrift_server"`
}

type HTTP struct {
	Addr      string `yaml:"addr"`
	StaticDir string `yaml:"static_dir"`
	LogFile   bool   `yaml:"log_file"`
}

type DB struct {
	Filename string `yaml:"filename"`
}

// ThriftServer exposes the configured evaluator over thrift. Empty Addr
// disables it.
type ThriftServer struct {
	Addr string `yaml:"addr"`
}

// Load reads the config file. A missing file is created with the defaults.
func Load(filename string) (Config, error) {
	if filename == "" {
		filename = DefaultFilename
	}
	f := cfgfile.New(filename, yaml.Marshal, yaml.Unmarshal)
	c := defaultConfig()
	err := f.Get(&c)
	if os.IsNotExist(err) {
		return c, f.Set(c)
	}
	if err != nil {
		return c, err
	}
	c.validate()
	if err := c.Validate(); err != nil {
		return c, merry.Append(err, f.Filename())
	}
	return c, nil
}

func Save(filename string, c Config) error {
	c.validate()
	if err := c.Validate(); err != nil {
		return err
	}
	return cfgfile.New(filename, yaml.Marshal, yaml.Unmarshal).Set(c)
}

// Parse decodes YAML on top of the defaults.
func Parse(b []byte) (Config, error) {
	c := defaultConfig()
	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, merry.Wrap(err)
	}
	c.validate()
	return c, c.Validate()
}

// Validate reports every problem of c at once.
func (c Config) Validate() error {
	var errs *multierror.Error
	if c.FloatPrecision < 0 || c.FloatPrecision > 15 {
		errs = multierror.Append(errs, merry.Errorf("float_precision: must be in [0, 15], got %d", c.FloatPrecision))
	}
	if _, err := metering.ParsePreset(c.StandardPreset); err != nil {
		errs = multierror.Append(errs, merry.Prepend(err, "standard_preset"))
	}
	if strings.TrimSpace(c.HTTP.Addr) == "" {
		errs = multierror.Append(errs, merry.New("http.addr: not set"))
	}
	if strings.TrimSpace(c.DB.Filename) == "" {
		errs = multierror.Append(errs, merry.New("db.filename: not set"))
	}
	if err := c.Evaluator.Validate(); err != nil {
		errs = multierror.Append(errs, err)
	}
	return errs.ErrorOrNil()
}

func (c *Config) validate() {
	d := defaultConfig()
	if c.SessionKey == "" {
		c.SessionKey = d.SessionKey
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = d.HTTP.Addr
	}
	if c.DB.Filename == "" {
		c.DB.Filename = d.DB.Filename
	}
	if c.Evaluator.Kind == "" {
		c.Evaluator.Kind = EvaluatorNone
	}
	c.Evaluator.Kind = EvaluatorKind(strings.ToLower(string(c.Evaluator.Kind)))
	if c.Evaluator.Timeout == 0 {
		c.Evaluator.Timeout = d.Evaluator.Timeout
	}
}
