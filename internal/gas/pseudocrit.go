package gas

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// PseudoCritical is the mixture's effective critical point: Tpc in °R, Ppc in psia.
type PseudoCritical struct {
	Tpc float64 `json:"tpc_r"`
	Ppc float64 `json:"ppc_psia"`
}

// FromGravity estimates pseudo-critical properties of a sweet natural gas
// from its specific gravity (air = 1).
func FromGravity(gamma float64) PseudoCritical {
	return PseudoCritical{
		Ppc: 677 + 15*gamma - 37.5*gamma*gamma,
		Tpc: 168 + 325*gamma - 12.5*gamma*gamma,
	}
}

// Kay mixes critical properties by mole fraction. ok is false when no species
// of c has a critical-table entry.
func Kay(c Composition) (pc PseudoCritical, ok bool) {
	x, tc, pcs, _ := c.criticalVectors()
	if len(x) == 0 || !(floats.Sum(x) > 0) {
		return PseudoCritical{}, false
	}
	return PseudoCritical{
		Tpc: floats.Dot(x, tc),
		Ppc: floats.Dot(x, pcs),
	}, true
}

// MixtureOmega is the mole-fraction weighted acentric factor of c.
func MixtureOmega(c Composition) float64 {
	x, _, _, omega := c.criticalVectors()
	if len(x) == 0 {
		return 0
	}
	return floats.Dot(x, omega)
}

func (c Composition) criticalVectors() (x, tc, pc, omega []float64) {
	for _, s := range c.Species() {
		crit, ok := s.Critical()
		if !ok {
			continue
		}
		x = append(x, c[s])
		tc = append(tc, crit.Tc)
		pc = append(pc, crit.Pc)
		omega = append(omega, crit.Omega)
	}
	return
}

// Reduced returns reduced pressure and temperature for absolute pressure
// p (psia) and temperature t (°R).
func (pc PseudoCritical) Reduced(p, t float64) (pr, tr float64) {
	return p / pc.Ppc, t / pc.Tpc
}

func (pc PseudoCritical) Valid() bool {
	return pc.Ppc > 0 && pc.Tpc > 0 && !math.IsInf(pc.Ppc, 0) && !math.IsInf(pc.Tpc, 0)
}

// Papay approximates Z from reduced pressure and temperature.
func Papay(pr, tr float64) float64 {
	return 1 - 3.52*pr*math.Exp(-2.26*tr) + 0.247*pr*pr*math.Exp(-1.878*tr)
}
