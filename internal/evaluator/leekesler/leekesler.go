// Package leekesler is a Z evaluator built on the Lee-Kesler corresponding
// states correlation: the mixture Z is interpolated by acentric factor between
// a simple fluid and a reference fluid, each described by a modified BWR
// equation in reduced variables.
//
// Coefficients follow R. Sonntag, C. Borgnakke and G. J. Van Wylen,
// Fundamentals of Classical Thermodynamics, 5th Ed.
package leekesler

import (
	"context"
	"math"

	"github.com/ansel1/merry"
	"github.com/fpawel/gasflow/internal/gas"
	"github.com/fpawel/gasflow/internal/zfactor"
)

const MethodName = "Lee-Kesler"

// acentric factor of the reference fluid, n-octane
const omegaRef = 0.3978

type fluid struct {
	b1, b2, b3, b4 float64
	c1, c2, c3, c4 float64
	d1, d2         float64
	beta, gamma    float64
}

var (
	simpleFluid = fluid{
		b1: 0.1181193, b2: 0.265728, b3: 0.154790, b4: 0.030323,
		c1: 0.0236744, c2: 0.0186984, c3: 0, c4: 0.042724,
		d1: 0.155488e-4, d2: 0.623689e-4,
		beta: 0.65392, gamma: 0.060167,
	}
	referenceFluid = fluid{
		b1: 0.2026579, b2: 0.331511, b3: 0.027655, b4: 0.203488,
		c1: 0.0313385, c2: 0.0503618, c3: 0.016901, c4: 0.041577,
		d1: 0.48736e-5, d2: 0.740336e-5,
		beta: 1.226, gamma: 0.03754,
	}
)

var ErrNotConverged = merry.New("Lee-Kesler volume iteration did not converge")

const (
	maxIter   = 50
	tolerance = 1e-12
)

// z solves the fluid's equation of state for the reduced volume by Newton
// iteration from the ideal gas volume Tr/Pr.
func (f fluid) z(pr, tr float64) (float64, error) {
	var (
		tr2 = tr * tr
		tr3 = tr2 * tr
		b   = f.b1 - f.b2/tr - f.b3/tr2 - f.b4/tr3
		c   = f.c1 - f.c2/tr + f.c3/tr3
		d   = f.d1 + f.d2/tr
		k   = f.c4 / tr3
	)
	v := tr / pr
	for i := 0; i < maxIter; i++ {
		v2 := v * v
		v3 := v2 * v
		v4 := v2 * v2
		v5 := v4 * v
		e := math.Exp(-f.gamma / v2)

		g := 1 + b/v + c/v2 + d/v5 + k*(f.beta/v2+f.gamma/v4)*e - pr*v/tr
		dg := -b/v2 - 2*c/v3 - 5*d/(v5*v) +
			k*e*(-2*f.beta/v3-4*f.gamma/v5+(f.beta/v2+f.gamma/v4)*2*f.gamma/v3) -
			pr/tr

		dv := g / dg
		v -= dv
		if !(v > 0) || math.IsInf(v, 0) {
			return 0, ErrNotConverged.Here().Appendf("Pr=%g Tr=%g: volume left the physical range", pr, tr)
		}
		if math.Abs(dv) <= tolerance*v {
			return pr * v / tr, nil
		}
	}
	return 0, ErrNotConverged.Here().Appendf("Pr=%g Tr=%g: %d iterations", pr, tr, maxIter)
}

// Z returns the compressibility factor at reduced pressure pr and reduced
// temperature tr for a fluid with acentric factor omega.
func Z(pr, tr, omega float64) (float64, error) {
	if !(pr > 0) || !(tr > 0) {
		return 0, merry.Errorf("reduced state must be positive: Pr=%g Tr=%g", pr, tr)
	}
	z0, err := simpleFluid.z(pr, tr)
	if err != nil {
		return 0, merry.Append(err, "simple fluid")
	}
	zr, err := referenceFluid.z(pr, tr)
	if err != nil {
		return 0, merry.Append(err, "reference fluid")
	}
	return z0 + omega/omegaRef*(zr-z0), nil
}

// Evaluator computes mixture Z with Kay pseudo-critical properties and the
// mole-fraction weighted acentric factor.
type Evaluator struct{}

func New() Evaluator {
	return Evaluator{}
}

func (Evaluator) Evaluate(ctx context.Context, pressurePsia, temperatureR float64, mix gas.Mixture) (zfactor.Reply, error) {
	if err := ctx.Err(); err != nil {
		return zfactor.Reply{}, merry.Wrap(err)
	}
	c := mix.Composition().Normalized()
	pc, ok := gas.Kay(c)
	if !ok {
		return zfactor.Reply{}, merry.New("mixture has no component with known critical properties")
	}
	pr, tr := pc.Reduced(pressurePsia, temperatureR)
	z, err := Z(pr, tr, gas.MixtureOmega(c))
	if err != nil {
		return zfactor.Reply{}, err
	}
	return zfactor.Reply{Z: z, Method: MethodName}, nil
}
