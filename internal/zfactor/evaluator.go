package zfactor

import (
	"context"

	"github.com/ansel1/merry"
	"github.com/fpawel/gasflow/internal/calcerr"
	"github.com/fpawel/gasflow/internal/gas"
)

// Evaluator is a high-fidelity equation-of-state backend: given absolute
// pressure in psia, absolute temperature in °R and a mixture in the AGA8
// component schema it returns Z and the name of the method used.
type Evaluator interface {
	Evaluate(ctx context.Context, pressurePsia, temperatureR float64, mix gas.Mixture) (Reply, error)
}

type Reply struct {
	Z      float64 `json:"Z"`
	Method string  `json:"method"`
}

// EvaluatorFunc adapts a function to Evaluator.
type EvaluatorFunc func(ctx context.Context, pressurePsia, temperatureR float64, mix gas.Mixture) (Reply, error)

func (f EvaluatorFunc) Evaluate(ctx context.Context, pressurePsia, temperatureR float64, mix gas.Mixture) (Reply, error) {
	return f(ctx, pressurePsia, temperatureR, mix)
}

// InitFunc loads or connects an evaluator.
type InitFunc func(ctx context.Context) (Evaluator, error)

// Lazy initializes an evaluator on first use and reuses the first successful
// result. A failed initialization is reported as ErrEvaluatorUnavailable and
// retried on the next call. Callers waiting for another call's initialization
// give up with ErrEvaluatorUnavailable when their own ctx is done.
type Lazy struct {
	sem  chan struct{}
	init InitFunc
	ev   Evaluator
}

func NewLazy(init InitFunc) *Lazy {
	return &Lazy{sem: make(chan struct{}, 1), init: init}
}

func (x *Lazy) lock(ctx context.Context) error {
	select {
	case x.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (x *Lazy) unlock() {
	<-x.sem
}

func (x *Lazy) get(ctx context.Context) (Evaluator, error) {
	if err := x.lock(ctx); err != nil {
		return nil, calcerr.ErrEvaluatorUnavailable.Here().Append("waiting for initialization: " + err.Error())
	}
	defer x.unlock()
	if x.ev != nil {
		return x.ev, nil
	}
	ev, err := x.init(ctx)
	if err != nil {
		return nil, calcerr.ErrEvaluatorUnavailable.Here().Append(err.Error())
	}
	if ev == nil {
		return nil, calcerr.ErrEvaluatorUnavailable.Here().Append("initialization returned no evaluator")
	}
	x.ev = ev
	log.Debug("evaluator initialized")
	return ev, nil
}

func (x *Lazy) Evaluate(ctx context.Context, pressurePsia, temperatureR float64, mix gas.Mixture) (Reply, error) {
	ev, err := x.get(ctx)
	if err != nil {
		return Reply{}, err
	}
	return ev.Evaluate(ctx, pressurePsia, temperatureR, mix)
}

// Close closes the initialized evaluator when it implements io.Closer.
func (x *Lazy) Close() error {
	x.sem <- struct{}{}
	defer x.unlock()
	if c, ok := x.ev.(interface{ Close() error }); ok {
		return merry.Wrap(c.Close())
	}
	return nil
}
