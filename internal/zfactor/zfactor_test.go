package zfactor

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fpawel/gasflow/internal/calcerr"
	"github.com/fpawel/gasflow/internal/gas"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testP = 50 * 14.5037738
	testT = (20 + 273.15) * 9 / 5
)

var testCompo = gas.ParseComposition("CH4=93.2, C2=3.2, CO2=1.0, N2=2.6")

func compoRequest() Request {
	return Request{
		Mode:         ModeComposition,
		Composition:  testCompo,
		PressurePsia: testP,
		TemperatureR: testT,
	}
}

func TestManualBounds(t *testing.T) {
	x := New()
	for _, z := range []float64{0, -1, 2, 2.5, math.NaN(), math.Inf(1)} {
		_, err := x.Compute(context.Background(), Request{Mode: ModeManual, ManualZ: z})
		require.Error(t, err, "z = %v", z)
		assert.True(t, calcerr.Is(err, calcerr.ErrInvalidInput))
		assert.Equal(t, "manual_z", calcerr.Field(err))
		assert.Contains(t, calcerr.Message(err), "manual_z")
	}
	for _, z := range []float64{1.999, 0.95, 1e-9} {
		r, err := x.Compute(context.Background(), Request{Mode: ModeManual, ManualZ: z})
		require.NoError(t, err)
		assert.Equal(t, z, r.Z)
		assert.Equal(t, MethodManual, r.Method)
		assert.Equal(t, "Manual Z", r.Detail)
		assert.Nil(t, r.Pseudo)
	}
}

func TestGravity(t *testing.T) {
	x := New()
	r, err := x.Compute(context.Background(), Request{
		Mode:         ModeGravity,
		Gravity:      0.65,
		PressurePsia: testP,
		TemperatureR: testT,
	})
	require.NoError(t, err)
	assert.Equal(t, MethodGravityPapay, r.Method)
	assert.InDelta(t, 0.8635625, r.Z, 1e-6)
	assert.Equal(t, "Papay via γg=0.65", r.Detail)
	require.NotNil(t, r.Pseudo)
	assert.Equal(t, gas.FromGravity(0.65), *r.Pseudo)
	assert.False(t, r.OutOfRange())

	for _, g := range []float64{0, 2, -0.1, math.NaN()} {
		_, err := x.Compute(context.Background(), Request{Mode: ModeGravity, Gravity: g, PressurePsia: testP, TemperatureR: testT})
		require.Error(t, err)
		assert.True(t, calcerr.Is(err, calcerr.ErrInvalidInput))
		assert.Equal(t, "gravity", calcerr.Field(err))
	}
}

func TestCompositionWithoutEvaluator(t *testing.T) {
	r, err := New().Compute(context.Background(), compoRequest())
	require.NoError(t, err)
	assert.Equal(t, MethodKayPapay, r.Method)
	assert.True(t, r.Z > 0.80 && r.Z < 0.99, "z = %v", r.Z)
	assert.Contains(t, r.Detail, "Papay via Kay mix (Ppc=667.81 psia, Tpc=348.65 °R)")
	assert.Empty(t, r.Source)
}

func TestCompositionInvalid(t *testing.T) {
	x := New(WithEvaluator(EvaluatorFunc(func(context.Context, float64, float64, gas.Mixture) (Reply, error) {
		t.Fatal("evaluator must not be called")
		return Reply{}, nil
	})))
	req := compoRequest()
	req.Composition = gas.ParseComposition("hello")
	_, err := x.Compute(context.Background(), req)
	require.Error(t, err)
	assert.True(t, calcerr.Is(err, calcerr.ErrCompositionInvalid))
	assert.Equal(t, "composition", calcerr.Field(err))

	req.Composition = gas.Composition{gas.Species(77): 1}
	_, err = x.Compute(context.Background(), req)
	assert.True(t, calcerr.Is(err, calcerr.ErrCompositionInvalid))
}

func TestEvaluatorAccepted(t *testing.T) {
	var got gas.Mixture
	var gotP, gotT float64
	x := New(WithEvaluator(EvaluatorFunc(func(_ context.Context, p, t float64, mix gas.Mixture) (Reply, error) {
		gotP, gotT, got = p, t, mix
		return Reply{Z: 0.9012, Method: "Detail"}, nil
	})))
	r, err := x.Compute(context.Background(), compoRequest())
	require.NoError(t, err)
	assert.Equal(t, Result{Z: 0.9012, Method: MethodEvaluator, Source: "Detail", Detail: "Detail"}, r)
	assert.Equal(t, testP, gotP)
	assert.Equal(t, testT, gotT)
	assert.Len(t, got, len(gas.MixNames()))
	assert.InDelta(t, 0.932, got["methane"], 1e-12)
	assert.Equal(t, 0.0, got["hydrogen"])
}

func TestFallbackDeterminism(t *testing.T) {
	want, err := KayPapay(testCompo, testP, testT)
	require.NoError(t, err)

	pc, _ := gas.Kay(testCompo)
	pr, tr := pc.Reduced(testP, testT)
	require.Equal(t, gas.Papay(pr, tr), want.Z)

	for name, ev := range map[string]Evaluator{
		"none": nil,
		"error": EvaluatorFunc(func(context.Context, float64, float64, gas.Mixture) (Reply, error) {
			return Reply{}, errors.New("connection refused")
		}),
		"zero": EvaluatorFunc(func(context.Context, float64, float64, gas.Mixture) (Reply, error) {
			return Reply{Z: 0, Method: "GERG-2008"}, nil
		}),
		"two": EvaluatorFunc(func(context.Context, float64, float64, gas.Mixture) (Reply, error) {
			return Reply{Z: 2, Method: "GERG-2008"}, nil
		}),
		"nan": EvaluatorFunc(func(context.Context, float64, float64, gas.Mixture) (Reply, error) {
			return Reply{Z: math.NaN(), Method: "Detail"}, nil
		}),
		"init failure": NewLazy(func(context.Context) (Evaluator, error) {
			return nil, errors.New("module not found")
		}),
	} {
		t.Run(name, func(t *testing.T) {
			r, err := New(WithEvaluator(ev)).Compute(context.Background(), compoRequest())
			require.NoError(t, err)
			assert.Equal(t, want, r)
			assert.Equal(t, math.Float64bits(want.Z), math.Float64bits(r.Z))
		})
	}
}

func TestEvaluatorTimeout(t *testing.T) {
	x := New(WithTimeout(10*time.Millisecond), WithEvaluator(EvaluatorFunc(func(ctx context.Context, _, _ float64, _ gas.Mixture) (Reply, error) {
		<-ctx.Done()
		return Reply{}, ctx.Err()
	})))
	r, err := x.Compute(context.Background(), compoRequest())
	require.NoError(t, err)
	assert.Equal(t, MethodKayPapay, r.Method)
}

func TestEvaluatorErrorKinds(t *testing.T) {
	x := New(WithEvaluator(EvaluatorFunc(func(context.Context, float64, float64, gas.Mixture) (Reply, error) {
		return Reply{Z: 3, Method: "Detail"}, nil
	})))
	_, err := x.evaluate(context.Background(), testCompo, testP, testT)
	assert.Equal(t, "evaluator_result_rejected", calcerr.Kind(err))

	x = New(WithEvaluator(EvaluatorFunc(func(context.Context, float64, float64, gas.Mixture) (Reply, error) {
		return Reply{}, errors.New("boom")
	})))
	_, err = x.evaluate(context.Background(), testCompo, testP, testT)
	assert.Equal(t, "evaluator_unavailable", calcerr.Kind(err))
}

func TestCorrelationOutOfRangeFlagged(t *testing.T) {
	// far outside the correlation's range Papay diverges
	r, err := New().Compute(context.Background(), Request{
		Mode:         ModeGravity,
		Gravity:      0.65,
		PressurePsia: 20000,
		TemperatureR: 400,
	})
	require.NoError(t, err)
	assert.True(t, r.OutOfRange(), "z = %v", r.Z)
}

func TestLazy(t *testing.T) {
	var calls int32
	ok := EvaluatorFunc(func(context.Context, float64, float64, gas.Mixture) (Reply, error) {
		return Reply{Z: 0.9, Method: "stub"}, nil
	})
	lazy := NewLazy(func(context.Context) (Evaluator, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return nil, errors.New("not yet")
		}
		return ok, nil
	})

	_, err := lazy.Evaluate(context.Background(), testP, testT, nil)
	require.Error(t, err)
	assert.True(t, calcerr.Is(err, calcerr.ErrEvaluatorUnavailable))

	for i := 0; i < 3; i++ {
		r, err := lazy.Evaluate(context.Background(), testP, testT, nil)
		require.NoError(t, err)
		assert.Equal(t, "stub", r.Method)
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.NoError(t, lazy.Close())
}

func TestLazyWaitHonorsContext(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	lazy := NewLazy(func(context.Context) (Evaluator, error) {
		close(started)
		<-release
		return EvaluatorFunc(func(context.Context, float64, float64, gas.Mixture) (Reply, error) {
			return Reply{Z: 0.9, Method: "stub"}, nil
		}), nil
	})

	done := make(chan error, 1)
	go func() {
		_, err := lazy.Evaluate(context.Background(), testP, testT, nil)
		done <- err
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	begin := time.Now()
	_, err := lazy.Evaluate(ctx, testP, testT, nil)
	require.Error(t, err)
	assert.True(t, calcerr.Is(err, calcerr.ErrEvaluatorUnavailable))
	assert.Less(t, int64(time.Since(begin)), int64(time.Second))

	close(release)
	require.NoError(t, <-done)
	r, err := lazy.Evaluate(context.Background(), testP, testT, nil)
	require.NoError(t, err)
	assert.Equal(t, "stub", r.Method)
	assert.NoError(t, lazy.Close())
}

func TestParseMode(t *testing.T) {
	for s, want := range map[string]Mode{
		"manual": ModeManual, "Gravity": ModeGravity, "composition": ModeComposition, "compo": ModeComposition,
	} {
		m, err := ParseMode(s)
		require.NoError(t, err)
		assert.Equal(t, want, m)
	}
	_, err := ParseMode("aga8")
	assert.Equal(t, "z_mode", calcerr.Field(err))
}
