// Package liquid corrects a liquid volume for temperature (CTL) and derives
// mass and energy from the corrected volume.
package liquid

import (
	"math"
	"strings"

	"github.com/fpawel/gasflow/internal/calcerr"
)

type VolumeUnit string

const (
	M3    VolumeUnit = "m3"
	Liter VolumeUnit = "L"
	Bbl   VolumeUnit = "bbl"
	GalUS VolumeUnit = "galUS"
)

var m3PerUnit = map[VolumeUnit]float64{
	M3:    1,
	Liter: 0.001,
	Bbl:   0.1589872949,
	GalUS: 0.003785411784,
}

func ParseVolumeUnit(s string) (VolumeUnit, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return M3, nil
	}
	for u := range m3PerUnit {
		if strings.EqualFold(string(u), s) {
			return u, nil
		}
	}
	return "", calcerr.InvalidField("volume_unit", "unknown unit %q", s)
}

// M3 converts v from unit u to cubic metres.
func (u VolumeUnit) M3(v float64) float64 {
	return v * m3PerUnit[u]
}

func (u VolumeUnit) FromM3(v float64) float64 {
	return v / m3PerUnit[u]
}

type Mode string

const (
	ModeManual Mode = "manual"
	ModeApprox Mode = "approx"
)

// ApproxCTL approximates the correction with a constant thermal expansion
// coefficient alpha, 1/°C.
func ApproxCTL(alpha, t, tref float64) float64 {
	return math.Exp(-alpha * (t - tref))
}

type Input struct {
	Volume          float64 `json:"volume"`
	VolumeUnit      string  `json:"volume_unit"`
	TemperatureC    float64 `json:"temperature_c"`
	RefTemperatureC float64 `json:"ref_temperature_c"`
	Mode            string  `json:"ctl_mode"`
	Alpha           float64 `json:"alpha,omitempty"`
	ManualCTL       float64 `json:"ctl,omitempty"`
	Density         float64 `json:"density,omitempty"`
	HeatingValue    float64 `json:"hhv,omitempty"`
}

// Result holds the corrected volume in the input unit, mass in kg when a
// density was given and energy in MJ when a heating value was given as well.
type Result struct {
	CTL             float64    `json:"ctl"`
	VolumeUnit      VolumeUnit `json:"volume_unit"`
	CorrectedVolume float64    `json:"corrected_volume"`
	CorrectedM3     float64    `json:"corrected_m3"`
	Mass            *float64   `json:"mass_kg,omitempty"`
	Energy          *float64   `json:"energy_mj,omitempty"`
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// Correct applies CTL to the input volume. Errors are ErrInvalidInput naming
// the offending field.
func Correct(in Input) (Result, error) {
	unit, err := ParseVolumeUnit(in.VolumeUnit)
	if err != nil {
		return Result{}, err
	}
	if !(in.Volume > 0) || !finite(in.Volume) {
		return Result{}, calcerr.InvalidField("volume", "must be a positive number, got %v", in.Volume)
	}
	if !finite(in.TemperatureC) {
		return Result{}, calcerr.InvalidField("temperature_c", "must be a number, got %v", in.TemperatureC)
	}
	if !finite(in.RefTemperatureC) {
		return Result{}, calcerr.InvalidField("ref_temperature_c", "must be a number, got %v", in.RefTemperatureC)
	}

	var ctl float64
	switch Mode(strings.ToLower(strings.TrimSpace(in.Mode))) {
	case ModeManual:
		if !(in.ManualCTL > 0) || !finite(in.ManualCTL) {
			return Result{}, calcerr.InvalidField("ctl", "must be positive, got %v", in.ManualCTL)
		}
		ctl = in.ManualCTL
	case ModeApprox, "":
		if !(in.Alpha > 0 && in.Alpha < 0.01) {
			return Result{}, calcerr.InvalidField("alpha", "must be in (0, 0.01), got %v", in.Alpha)
		}
		ctl = ApproxCTL(in.Alpha, in.TemperatureC, in.RefTemperatureC)
	default:
		return Result{}, calcerr.InvalidField("ctl_mode", "unknown mode %q", in.Mode)
	}

	r := Result{
		CTL:         ctl,
		VolumeUnit:  unit,
		CorrectedM3: unit.M3(in.Volume) * ctl,
	}
	r.CorrectedVolume = unit.FromM3(r.CorrectedM3)
	if in.Density > 0 {
		mass := r.CorrectedM3 * in.Density
		r.Mass = &mass
		if in.HeatingValue > 0 {
			energy := mass * in.HeatingValue
			r.Energy = &energy
		}
	}
	return r, nil
}
