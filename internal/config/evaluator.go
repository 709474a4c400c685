package config

import (
	"context"
	"strings"
	"time"

	"github.com/ansel1/merry"
	"github.com/fpawel/gasflow/internal/evaluator/httpeval"
	"github.com/fpawel/gasflow/internal/evaluator/leekesler"
	"github.com/fpawel/gasflow/internal/evaluator/luaeval"
	"github.com/fpawel/gasflow/internal/evaluator/thrifteval"
	"github.com/fpawel/gasflow/internal/zfactor"
	"github.com/hashicorp/go-multierror"
)

type EvaluatorKind string

const (
	EvaluatorNone      EvaluatorKind = "none"
	EvaluatorLeeKesler EvaluatorKind = "lee-kesler"
	EvaluatorLua       EvaluatorKind = "lua"
	EvaluatorHTTP      EvaluatorKind = "http"
	EvaluatorThrift    EvaluatorKind = "thrift"
)

// Evaluator selects the high-fidelity Z evaluator used for composition mode.
type Evaluator struct {
	Kind       EvaluatorKind `yaml:"kind"`
	Script     string        `yaml:"script,omitempty"`
	URL        string        `yaml:"url,omitempty"`
	ZPath      string        `yaml:"z_path,omitempty"`
	MethodPath string        `yaml:"method_path,omitempty"`
	Addr       string        `yaml:"addr,omitempty"`
	Timeout    time.Duration `yaml:"timeout"`
}

func (c Evaluator) Validate() error {
	var errs *multierror.Error
	switch c.Kind {
	case EvaluatorNone, EvaluatorLeeKesler:
	case EvaluatorLua:
		if strings.TrimSpace(c.Script) == "" {
			errs = multierror.Append(errs, merry.New("evaluator.script: not set"))
		}
	case EvaluatorHTTP:
		if strings.TrimSpace(c.URL) == "" {
			errs = multierror.Append(errs, merry.New("evaluator.url: not set"))
		}
	case EvaluatorThrift:
		if strings.TrimSpace(c.Addr) == "" {
			errs = multierror.Append(errs, merry.New("evaluator.addr: not set"))
		}
	default:
		errs = multierror.Append(errs, merry.Errorf("evaluator.kind: unknown %q", c.Kind))
	}
	if c.Timeout < 0 {
		errs = multierror.Append(errs, merry.Errorf("evaluator.timeout: must not be negative, got %v", c.Timeout))
	}
	return errs.ErrorOrNil()
}

// New returns the configured evaluator, or nil for EvaluatorNone. The Lua
// script is loaded on first use.
func (c Evaluator) New() (zfactor.Evaluator, error) {
	switch c.Kind {
	case EvaluatorNone, "":
		return nil, nil
	case EvaluatorLeeKesler:
		return leekesler.New(), nil
	case EvaluatorLua:
		script := c.Script
		return zfactor.NewLazy(func(context.Context) (zfactor.Evaluator, error) {
			ev, err := luaeval.Open(script)
			if err != nil {
				return nil, err
			}
			return ev, nil
		}), nil
	case EvaluatorHTTP:
		cfg := httpeval.DefaultConfig(c.URL)
		cfg.ZPath = c.ZPath
		cfg.MethodPath = c.MethodPath
		if c.Timeout > 0 {
			cfg.Timeout = c.Timeout
		}
		ev, err := httpeval.New(cfg)
		if err != nil {
			return nil, err
		}
		return ev, nil
	case EvaluatorThrift:
		return thrifteval.NewClient(c.Addr, c.Timeout), nil
	default:
		return nil, merry.Errorf("evaluator.kind: unknown %q", c.Kind)
	}
}

// Build returns the configured evaluator together with an engine wired to it.
// The evaluator is returned so the caller can close it.
func (c Evaluator) Build() (zfactor.Evaluator, *zfactor.Engine, error) {
	ev, err := c.New()
	if err != nil {
		return nil, nil, err
	}
	opts := []zfactor.Option{zfactor.WithEvaluator(ev)}
	if c.Timeout > 0 {
		opts = append(opts, zfactor.WithTimeout(c.Timeout))
	}
	return ev, zfactor.New(opts...), nil
}

// Engine builds the Z-factor engine with the configured evaluator.
func (c Evaluator) Engine() (*zfactor.Engine, error) {
	_, engine, err := c.Build()
	return engine, err
}
