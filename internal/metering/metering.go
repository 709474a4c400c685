// Package metering converts line flow into flow at standard conditions by the
// real-gas law and derives mass and energy flow.
package metering

import (
	"context"
	"math"
	"strings"

	"github.com/ansel1/merry"
	"github.com/fpawel/gasflow/internal/calcerr"
	"github.com/fpawel/gasflow/internal/gas"
	"github.com/fpawel/gasflow/internal/units"
	"github.com/fpawel/gasflow/internal/zfactor"
)

// StdAirDensity is the density of air at 15 °C and 1 atm, kg/m³.
const StdAirDensity = 1.225

type Preset string

const (
	Preset60F Preset = "60F"
	Preset15C Preset = "15C"
)

// Conditions are standard conditions in psia and °R.
type Conditions struct {
	PressurePsia float64
	TemperatureR float64
}

func ParsePreset(s string) (Preset, error) {
	switch p := Preset(strings.ToUpper(strings.TrimSpace(s))); p {
	case Preset60F, Preset15C:
		return p, nil
	case "":
		return Preset15C, nil
	default:
		return "", calcerr.InvalidField("preset", "unknown standard conditions %q", s)
	}
}

func (p Preset) Conditions() Conditions {
	if p == Preset60F {
		return Conditions{PressurePsia: 14.696, TemperatureR: 60 + 459.67}
	}
	return Conditions{PressurePsia: 14.6959, TemperatureR: units.CelsiusToRankine(15)}
}

// StandardFlow applies Qstd = Q·(P/(Z·Pstd))·(Tstd/T). Arguments are not
// validated: Z, std.PressurePsia and t must be positive.
func StandardFlow(q, p, t, z float64, std Conditions) float64 {
	return q * (p / (z * std.PressurePsia)) * (std.TemperatureR / t)
}

// MassEnergy holds the optional outputs of DeriveMassEnergy.
type MassEnergy struct {
	Density    *float64
	MassFlow   *float64
	EnergyFlow *float64
}

// DeriveMassEnergy computes mass flow from a density or specific gravity
// input and energy flow from a heating value. Inputs not above zero leave the
// corresponding output unset. A density input up to 2 is taken as specific
// gravity relative to air.
func DeriveMassEnergy(qstd, densityOrGravity, heatingValue float64) MassEnergy {
	var r MassEnergy
	if densityOrGravity > 0 {
		rho := densityOrGravity
		if rho <= 2 {
			rho *= StdAirDensity
		}
		mass := rho * qstd
		r.Density = &rho
		r.MassFlow = &mass
	}
	if heatingValue > 0 {
		energy := heatingValue * qstd
		r.EnergyFlow = &energy
	}
	return r
}

// Input is a standardization request in user units.
type Input struct {
	LineFlow         float64 `json:"line_flow"`
	FlowUnit         string  `json:"flow_unit"`
	Pressure         float64 `json:"pressure"`
	PressureUnit     string  `json:"pressure_unit"`
	TemperatureC     float64 `json:"temperature_c"`
	ZMode            string  `json:"z_mode"`
	ManualZ          float64 `json:"manual_z,omitempty"`
	Gravity          float64 `json:"gravity,omitempty"`
	CompositionText  string  `json:"composition,omitempty"`
	DensityOrGravity float64 `json:"density,omitempty"`
	HeatingValue     float64 `json:"heating_value,omitempty"`
	Preset           string  `json:"preset"`
}

// Result is a standardization result. StdFlow is in sm³/h, mass flow in
// kg/h and energy flow in heating value units per hour.
type Result struct {
	Z               float64             `json:"z"`
	Method          zfactor.Method      `json:"method"`
	Source          string              `json:"source,omitempty"`
	Detail          string              `json:"detail"`
	OutOfRange      bool                `json:"z_out_of_range,omitempty"`
	StdFlow         float64             `json:"std_flow_sm3h"`
	PressurePsia    float64             `json:"pressure_psia"`
	TemperatureR    float64             `json:"temperature_r"`
	StdPressurePsia float64             `json:"std_pressure_psia"`
	StdTemperatureR float64             `json:"std_temperature_r"`
	Density         *float64            `json:"density,omitempty"`
	MassFlow        *float64            `json:"mass_flow,omitempty"`
	EnergyFlow      *float64            `json:"energy_flow,omitempty"`
	PseudoCritical  *gas.PseudoCritical `json:"pseudo_critical,omitempty"`
}

// ZSource computes Z for the line state. *zfactor.Engine implements it.
type ZSource interface {
	Compute(ctx context.Context, r zfactor.Request) (zfactor.Result, error)
}

// Standardize validates the input, determines Z and converts the line flow
// to standard conditions. Errors are ErrInvalidInput or
// ErrCompositionInvalid and name the offending field.
func Standardize(ctx context.Context, zs ZSource, in Input) (Result, error) {
	req, err := in.parse()
	if err != nil {
		return Result{}, err
	}
	z, err := zs.Compute(ctx, req.z)
	if err != nil {
		return Result{}, merry.Append(err, "z-factor")
	}
	if !(z.Z > 0) || !finite(z.Z) {
		return Result{}, calcerr.InvalidField("z", "%s gives Z = %v at %.4g psia, %.4g °R, no physical solution",
			z.Method, z.Z, req.z.PressurePsia, req.z.TemperatureR)
	}
	std := req.preset.Conditions()
	qstd := units.SCFHToM3h(StandardFlow(req.flowSCFH, req.z.PressurePsia, req.z.TemperatureR, z.Z, std))
	if !finite(qstd) {
		return Result{}, calcerr.InvalidField("line_flow", "standard flow is out of range")
	}
	me := DeriveMassEnergy(qstd, in.DensityOrGravity, in.HeatingValue)
	return Result{
		Z:               z.Z,
		Method:          z.Method,
		Source:          z.Source,
		Detail:          z.Detail,
		OutOfRange:      z.OutOfRange(),
		StdFlow:         qstd,
		PressurePsia:    req.z.PressurePsia,
		TemperatureR:    req.z.TemperatureR,
		StdPressurePsia: std.PressurePsia,
		StdTemperatureR: std.TemperatureR,
		Density:         me.Density,
		MassFlow:        me.MassFlow,
		EnergyFlow:      me.EnergyFlow,
		PseudoCritical:  z.Pseudo,
	}, nil
}

type request struct {
	z        zfactor.Request
	flowSCFH float64
	preset   Preset
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

func (in Input) parse() (request, error) {
	var r request
	if !(in.LineFlow > 0) || !finite(in.LineFlow) {
		return r, calcerr.InvalidField("line_flow", "must be a positive number, got %v", in.LineFlow)
	}
	flowUnit, err := units.ParseFlowUnit(in.FlowUnit)
	if err != nil {
		return r, err
	}
	if r.flowSCFH = units.FlowToSCFH(in.LineFlow, flowUnit); !finite(r.flowSCFH) {
		return r, calcerr.InvalidField("line_flow", "%v %s is out of range", in.LineFlow, flowUnit)
	}
	pressureUnit, err := units.ParsePressureUnit(in.PressureUnit)
	if err != nil {
		return r, err
	}
	if !(in.Pressure > 0) || !finite(in.Pressure) {
		return r, calcerr.InvalidField("pressure", "must be a positive absolute pressure, got %v", in.Pressure)
	}
	psia := units.PressureToPsia(in.Pressure, pressureUnit)
	if !(psia > 0) || !finite(psia) {
		return r, calcerr.InvalidField("pressure", "%v %s is out of range", in.Pressure, pressureUnit)
	}
	if !(in.TemperatureC > -273.15) || !finite(in.TemperatureC) {
		return r, calcerr.InvalidField("temperature_c", "must be above absolute zero, got %v", in.TemperatureC)
	}
	if !finite(in.DensityOrGravity) {
		return r, calcerr.InvalidField("density", "must be a number, got %v", in.DensityOrGravity)
	}
	if !finite(in.HeatingValue) {
		return r, calcerr.InvalidField("heating_value", "must be a number, got %v", in.HeatingValue)
	}
	if r.preset, err = ParsePreset(in.Preset); err != nil {
		return r, err
	}
	mode, err := zfactor.ParseMode(in.ZMode)
	if err != nil {
		return r, err
	}
	r.z = zfactor.Request{
		Mode:         mode,
		ManualZ:      in.ManualZ,
		Gravity:      in.Gravity,
		PressurePsia: psia,
		TemperatureR: units.CelsiusToRankine(in.TemperatureC),
	}
	if mode == zfactor.ModeComposition {
		r.z.Composition = gas.ParseComposition(in.CompositionText)
	}
	return r, nil
}
