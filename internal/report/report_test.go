package report

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/fpawel/gasflow/internal/liquid"
	"github.com/fpawel/gasflow/internal/metering"
	"github.com/fpawel/gasflow/internal/zfactor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v3"
)

type cells struct {
	value string
	unit  string
	num   float64
}

func readSheet(t *testing.T, wb *xlsx.File, name string) map[string]cells {
	sh, ok := wb.Sheet[name]
	require.True(t, ok, "sheet %s", name)
	m := make(map[string]cells)
	for r := 0; r < sh.MaxRow; r++ {
		label, err := sh.Cell(r, 0)
		require.NoError(t, err)
		value, err := sh.Cell(r, 1)
		require.NoError(t, err)
		unit, err := sh.Cell(r, 2)
		require.NoError(t, err)
		x := cells{value: value.Value, unit: unit.Value}
		x.num, _ = value.Float()
		m[label.Value] = x
	}
	return m
}

func TestWriteXLSX(t *testing.T) {
	in := metering.Input{
		LineFlow:        1000,
		FlowUnit:        "m3h",
		Pressure:        50,
		PressureUnit:    "bar",
		TemperatureC:    20,
		ZMode:           "composition",
		CompositionText: "CH4=93.2, C2=3.2, CO2=1.0, N2=2.6",
		HeatingValue:    38,
		Preset:          "15C",
	}
	r, err := metering.Standardize(context.Background(), zfactor.New(), in)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, in, r, 4))

	wb, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	m := readSheet(t, wb, SheetGas)

	assert.Equal(t, "Value", m["Parameter"].value)
	assert.Equal(t, 1000.0, m["Line flow"].num)
	assert.Equal(t, "m3h", m["Line flow"].unit)
	assert.Equal(t, "composition", m["Z mode"].value)
	assert.InDelta(t, r.Z, m["Z"].num, 1e-12)
	assert.Equal(t, string(zfactor.MethodKayPapay), m["Method"].value)
	assert.Equal(t, r.Detail, m["Detail"].value)
	assert.InDelta(t, r.StdFlow, m["Standard flow"].num, 1e-9)
	assert.Equal(t, "sm³/h", m["Standard flow"].unit)
	assert.InDelta(t, r.PseudoCritical.Ppc, m["Pseudo-critical pressure"].num, 1e-9)
	assert.Equal(t, "", m["Mass flow"].value)
	assert.InDelta(t, *r.EnergyFlow, m["Energy flow"].num, 1e-6)
	_, flagged := m["Z out of range"]
	assert.False(t, flagged)
}

func TestWriteXLSXModeRows(t *testing.T) {
	in := metering.Input{
		LineFlow:        1000,
		FlowUnit:        "m3h",
		Pressure:        50,
		PressureUnit:    "bar",
		TemperatureC:    20,
		ZMode:           "gravity",
		ManualZ:         0.95,
		Gravity:         0.65,
		CompositionText: "CH4=100",
		Preset:          "15C",
	}
	r, err := metering.Standardize(context.Background(), zfactor.New(), in)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, in, r, 4))
	wb, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	m := readSheet(t, wb, SheetGas)

	assert.Equal(t, 0.65, m["Gas gravity"].num)
	_, ok := m["Manual Z"]
	assert.False(t, ok)
	_, ok = m["Composition"]
	assert.False(t, ok)
}

func TestWriteCTLXLSX(t *testing.T) {
	in := liquid.Input{Volume: 1000, VolumeUnit: "bbl", TemperatureC: 35, RefTemperatureC: 15, Mode: "approx", Alpha: 0.00095}
	r, err := liquid.Correct(in)
	require.NoError(t, err)

	filename := filepath.Join(t.TempDir(), "custody_calculation.xlsx")
	require.NoError(t, SaveXLSX(filename, func(w io.Writer) error {
		return WriteCTLXLSX(w, in, r, 6)
	}))

	wb, err := xlsx.OpenFile(filename)
	require.NoError(t, err)
	m := readSheet(t, wb, SheetCTL)
	assert.Len(t, m, 7)
	assert.Equal(t, "bbl", m["Input Volume"].unit)
	assert.InDelta(t, r.CTL, m["CTL"].num, 1e-15)
	assert.InDelta(t, r.CorrectedVolume, m["Corrected Volume"].num, 1e-9)
	assert.Equal(t, "°C", m["Reference Temp"].unit)
	assert.Equal(t, "", m["Mass (kg)"].value)
	assert.Equal(t, "", m["Energy (MJ)"].value)
}

func TestNumFmt(t *testing.T) {
	assert.Equal(t, "0", numFmt(0))
	assert.Equal(t, "0.###", numFmt(3))
}
