// Package report exports calculation results to xlsx.
package report

import (
	"io"
	"os"
	"strings"

	"github.com/ansel1/merry"
	"github.com/fpawel/gasflow/internal/liquid"
	"github.com/fpawel/gasflow/internal/metering"
	"github.com/fpawel/gasflow/internal/zfactor"
	"github.com/powerman/structlog"
	"github.com/tealeg/xlsx/v3"
)

var log = structlog.New(structlog.KeyUnit, "report")

const (
	SheetGas = "GasCalc"
	SheetCTL = "CustodyCalc"
)

// WriteXLSX writes the standardization input and result as a sheet of
// parameter, value and unit rows. Floats are rounded to precision decimals
// in the number format only.
func WriteXLSX(w io.Writer, in metering.Input, r metering.Result, precision int) error {
	wb := xlsx.NewFile()
	sh, err := wb.AddSheet(SheetGas)
	if err != nil {
		return merry.Wrap(err)
	}
	defer sh.Close()
	t := table{sh: sh, numFmt: numFmt(precision)}

	t.text("Parameter", "Value", "Unit")
	t.num("Line flow", in.LineFlow, in.FlowUnit)
	t.num("Pressure", in.Pressure, in.PressureUnit)
	t.num("Temperature", in.TemperatureC, "°C")
	t.text("Z mode", in.ZMode, "")
	// Only the input of the selected mode; the others may hold stale values.
	mode, _ := zfactor.ParseMode(in.ZMode)
	switch mode {
	case zfactor.ModeManual:
		t.num("Manual Z", in.ManualZ, "")
	case zfactor.ModeGravity:
		t.num("Gas gravity", in.Gravity, "")
	case zfactor.ModeComposition:
		t.text("Composition", in.CompositionText, "mol %")
	}
	t.optNum("Density or gravity", positive(in.DensityOrGravity), "")
	t.optNum("Heating value", positive(in.HeatingValue), "")
	t.text("Standard conditions", in.Preset, "")

	t.num("Z", r.Z, "")
	t.text("Method", string(r.Method), "")
	t.text("Detail", r.Detail, "")
	if r.OutOfRange {
		t.text("Z out of range", "yes", "")
	}
	t.num("Standard flow", r.StdFlow, "sm³/h")
	t.num("Line pressure", r.PressurePsia, "psia")
	t.num("Line temperature", r.TemperatureR, "°R")
	t.num("Standard pressure", r.StdPressurePsia, "psia")
	t.num("Standard temperature", r.StdTemperatureR, "°R")
	if r.PseudoCritical != nil {
		t.num("Pseudo-critical pressure", r.PseudoCritical.Ppc, "psia")
		t.num("Pseudo-critical temperature", r.PseudoCritical.Tpc, "°R")
	}
	t.optNum("Density", r.Density, "kg/m³")
	t.optNum("Mass flow", r.MassFlow, "kg/h")
	t.optNum("Energy flow", r.EnergyFlow, "MJ/h")

	return merry.Wrap(wb.Write(w))
}

// WriteCTLXLSX writes the liquid correction as the custody calculation
// sheet.
func WriteCTLXLSX(w io.Writer, in liquid.Input, r liquid.Result, precision int) error {
	wb := xlsx.NewFile()
	sh, err := wb.AddSheet(SheetCTL)
	if err != nil {
		return merry.Wrap(err)
	}
	defer sh.Close()
	t := table{sh: sh, numFmt: numFmt(precision)}

	t.num("Input Volume", in.Volume, string(r.VolumeUnit))
	t.num("Measured Temp", in.TemperatureC, "°C")
	t.num("Reference Temp", in.RefTemperatureC, "°C")
	t.num("CTL", r.CTL, "")
	t.num("Corrected Volume", r.CorrectedVolume, string(r.VolumeUnit))
	t.optNum("Mass (kg)", r.Mass, "")
	t.optNum("Energy (MJ)", r.Energy, "")

	return merry.Wrap(wb.Write(w))
}

// SaveXLSX creates filename and writes to it with write.
func SaveXLSX(filename string, write func(io.Writer) error) error {
	f, err := os.Create(filename)
	if err != nil {
		return merry.Wrap(err)
	}
	if err := write(f); err != nil {
		log.ErrIfFail(f.Close)
		return merry.Append(err, filename)
	}
	return merry.Append(f.Close(), filename)
}

type table struct {
	sh     *xlsx.Sheet
	numFmt string
}

func (t table) text(name, value, unit string) {
	row := t.sh.AddRow()
	row.AddCell().SetString(name)
	row.AddCell().SetString(value)
	row.AddCell().SetString(unit)
}

func (t table) num(name string, value float64, unit string) {
	row := t.sh.AddRow()
	row.AddCell().SetString(name)
	row.AddCell().SetFloatWithFormat(value, t.numFmt)
	row.AddCell().SetString(unit)
}

// optNum leaves the value cell empty for a missing value.
func (t table) optNum(name string, value *float64, unit string) {
	if value == nil {
		t.text(name, "", unit)
		return
	}
	t.num(name, *value, unit)
}

func positive(v float64) *float64 {
	if v > 0 {
		return &v
	}
	return nil
}

func numFmt(precision int) string {
	if precision <= 0 {
		return "0"
	}
	return "0." + strings.Repeat("#", precision)
}
