// Package zfactor determines the gas compressibility factor from a manual
// value, the gas specific gravity or the gas composition.
package zfactor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ansel1/merry"
	"github.com/fpawel/gasflow/internal/calcerr"
	"github.com/fpawel/gasflow/internal/gas"
	"github.com/powerman/structlog"
)

var log = structlog.New(structlog.KeyUnit, "zfactor")

type Mode string

const (
	ModeManual      Mode = "manual"
	ModeGravity     Mode = "gravity"
	ModeComposition Mode = "composition"
)

// ParseMode accepts the mode names and the short form "compo".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "manual":
		return ModeManual, nil
	case "gravity":
		return ModeGravity, nil
	case "composition", "compo":
		return ModeComposition, nil
	default:
		return "", calcerr.InvalidField("z_mode", "unknown mode %q", s)
	}
}

// Method tags which path produced Z.
type Method string

const (
	MethodManual       Method = "manual"
	MethodGravityPapay Method = "gravity-papay"
	MethodKayPapay     Method = "kay-papay"
	MethodEvaluator    Method = "evaluator"
)

type Result struct {
	Z      float64             `json:"z"`
	Method Method              `json:"method"`
	Source string              `json:"source,omitempty"`
	Detail string              `json:"detail"`
	Pseudo *gas.PseudoCritical `json:"pseudo_critical,omitempty"`
}

// OutOfRange reports whether Z lies outside (0, 2). Only correlation results
// can be out of range.
func (r Result) OutOfRange() bool {
	return !ValidZ(r.Z)
}

// ValidZ reports whether z is strictly inside (0, 2).
func ValidZ(z float64) bool {
	return z > 0 && z < 2
}

// Request carries the line state in absolute units: pressure in psia,
// temperature in °R.
type Request struct {
	Mode         Mode
	ManualZ      float64
	Gravity      float64
	Composition  gas.Composition
	PressurePsia float64
	TemperatureR float64
}

type Engine struct {
	evaluator Evaluator
	timeout   time.Duration
}

type Option func(*Engine)

// WithEvaluator sets the evaluator consulted in composition mode. Nil means
// no evaluator.
func WithEvaluator(ev Evaluator) Option {
	return func(x *Engine) {
		x.evaluator = ev
	}
}

// WithTimeout bounds every evaluator call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(x *Engine) {
		x.timeout = d
	}
}

const DefaultTimeout = 5 * time.Second

func New(opts ...Option) *Engine {
	x := &Engine{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

func (x *Engine) HasEvaluator() bool {
	return x.evaluator != nil
}

// Compute returns Z for the request. Manual and gravity inputs outside (0, 2)
// are ErrInvalidInput; an empty or undeterminable composition is
// ErrCompositionInvalid. Evaluator failures never reach the caller.
func (x *Engine) Compute(ctx context.Context, r Request) (Result, error) {
	switch r.Mode {
	case ModeManual:
		return manual(r.ManualZ)
	case ModeGravity:
		return gravity(r.Gravity, r.PressurePsia, r.TemperatureR)
	case ModeComposition:
		return x.composition(ctx, r.Composition, r.PressurePsia, r.TemperatureR)
	default:
		return Result{}, calcerr.InvalidField("z_mode", "unknown mode %q", r.Mode)
	}
}

func manual(z float64) (Result, error) {
	if !ValidZ(z) {
		return Result{}, calcerr.InvalidField("manual_z", "Z must be in (0, 2), got %v", z)
	}
	return Result{
		Z:      z,
		Method: MethodManual,
		Detail: "Manual Z",
	}, nil
}

func gravity(gamma, p, t float64) (Result, error) {
	if !(gamma > 0 && gamma < 2) {
		return Result{}, calcerr.InvalidField("gravity", "specific gravity must be in (0, 2), got %v", gamma)
	}
	pc := gas.FromGravity(gamma)
	r := papay(pc, p, t)
	r.Method = MethodGravityPapay
	r.Detail = fmt.Sprintf("Papay via γg=%g", gamma)
	return r, nil
}

// KayPapay is the composition correlation used when no evaluator answers.
func KayPapay(c gas.Composition, p, t float64) (Result, error) {
	if c.Empty() {
		return Result{}, calcerr.CompositionInvalid("no recognized species")
	}
	pc, ok := gas.Kay(c)
	if !ok || !pc.Valid() {
		return Result{}, calcerr.CompositionInvalid("pseudo-critical properties undetermined")
	}
	r := papay(pc, p, t)
	r.Method = MethodKayPapay
	r.Detail = fmt.Sprintf("Papay via Kay mix (Ppc=%.5g psia, Tpc=%.5g °R)", pc.Ppc, pc.Tpc)
	return r, nil
}

func papay(pc gas.PseudoCritical, p, t float64) Result {
	pr, tr := pc.Reduced(p, t)
	z := gas.Papay(pr, tr)
	if !ValidZ(z) {
		log.Warn("correlation Z out of range", "z", z, "pr", pr, "tr", tr)
	}
	return Result{Z: z, Pseudo: &pc}
}

func (x *Engine) composition(ctx context.Context, c gas.Composition, p, t float64) (Result, error) {
	fallback, err := KayPapay(c, p, t)
	if err != nil {
		return Result{}, err
	}
	if x.evaluator == nil {
		return fallback, nil
	}
	r, err := x.evaluate(ctx, c, p, t)
	if err != nil {
		log.Warn("evaluator fallback", "kind", calcerr.Kind(err), "reason", err)
		return fallback, nil
	}
	return r, nil
}

func (x *Engine) evaluate(ctx context.Context, c gas.Composition, p, t float64) (Result, error) {
	if x.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, x.timeout)
		defer cancel()
	}
	reply, err := x.evaluator.Evaluate(ctx, p, t, c.Mixture())
	if err != nil {
		if merry.Is(err, calcerr.ErrEvaluatorUnavailable) || merry.Is(err, calcerr.ErrEvaluatorResultRejected) {
			return Result{}, err
		}
		return Result{}, calcerr.ErrEvaluatorUnavailable.Here().Append(err.Error())
	}
	if !ValidZ(reply.Z) {
		return Result{}, calcerr.ErrEvaluatorResultRejected.Here().
			Appendf("Z=%v from %q", reply.Z, reply.Method)
	}
	return Result{
		Z:      reply.Z,
		Method: MethodEvaluator,
		Source: reply.Method,
		Detail: reply.Method,
	}, nil
}
