// Package units converts line measurements into the internal unit system:
// psia for pressure, degrees Rankine for temperature and scfh for volumetric flow.
package units

import (
	"strings"

	"github.com/fpawel/gasflow/internal/calcerr"
)

const (
	PsiaPerBar = 14.5037738
	PsiaPerKPa = 0.145037738
	SCFHPerM3h = 35.3146667
)

type PressureUnit string

const (
	Bar  PressureUnit = "bar"
	KPa  PressureUnit = "kpa"
	Psia PressureUnit = "psia"
)

type FlowUnit string

const (
	M3h   FlowUnit = "m3h"
	MSCFH FlowUnit = "mscfh" // thousand scfh
	SCFH  FlowUnit = "scfh"
)

func ParsePressureUnit(s string) (PressureUnit, error) {
	switch u := PressureUnit(strings.ToLower(strings.TrimSpace(s))); u {
	case Bar, KPa, Psia:
		return u, nil
	case "":
		return Psia, nil
	default:
		return "", calcerr.InvalidField("pressure_unit", "unknown unit %q", s)
	}
}

func ParseFlowUnit(s string) (FlowUnit, error) {
	switch u := FlowUnit(strings.ToLower(strings.TrimSpace(s))); u {
	case M3h, MSCFH, SCFH:
		return u, nil
	case "m3/h":
		return M3h, nil
	case "":
		return SCFH, nil
	default:
		return "", calcerr.InvalidField("flow_unit", "unknown unit %q", s)
	}
}

// PressureToPsia converts p from unit u to psia. Unknown units pass through.
func PressureToPsia(p float64, u PressureUnit) float64 {
	switch u {
	case Bar:
		return p * PsiaPerBar
	case KPa:
		return p * PsiaPerKPa
	default:
		return p
	}
}

func PressureFromPsia(p float64, u PressureUnit) float64 {
	switch u {
	case Bar:
		return p / PsiaPerBar
	case KPa:
		return p / PsiaPerKPa
	default:
		return p
	}
}

func CelsiusToRankine(t float64) float64 {
	return (t + 273.15) * 9 / 5
}

func RankineToCelsius(t float64) float64 {
	return t*5/9 - 273.15
}

func M3hToSCFH(q float64) float64 {
	return q * SCFHPerM3h
}

func SCFHToM3h(q float64) float64 {
	return q / SCFHPerM3h
}

// FlowToSCFH converts q from unit u to scfh. Unknown units pass through.
func FlowToSCFH(q float64, u FlowUnit) float64 {
	switch u {
	case M3h:
		return M3hToSCFH(q)
	case MSCFH:
		return q * 1000
	default:
		return q
	}
}

func FlowFromSCFH(q float64, u FlowUnit) float64 {
	switch u {
	case M3h:
		return SCFHToM3h(q)
	case MSCFH:
		return q / 1000
	default:
		return q
	}
}
