package liquid

import (
	"math"
	"testing"

	"github.com/fpawel/gasflow/internal/calcerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorrectApprox(t *testing.T) {
	r, err := Correct(Input{
		Volume:          1000,
		VolumeUnit:      "bbl",
		TemperatureC:    35,
		RefTemperatureC: 15,
		Mode:            "approx",
		Alpha:           0.00095,
		Density:         850,
		HeatingValue:    45.5,
	})
	require.NoError(t, err)

	ctl := math.Exp(-0.00095 * 20)
	assert.InDelta(t, ctl, r.CTL, 1e-15)
	assert.Equal(t, Bbl, r.VolumeUnit)
	assert.InDelta(t, 1000*ctl, r.CorrectedVolume, 1e-9)
	assert.InDelta(t, 1000*0.1589872949*ctl, r.CorrectedM3, 1e-9)
	require.NotNil(t, r.Mass)
	assert.InDelta(t, r.CorrectedM3*850, *r.Mass, 1e-9)
	require.NotNil(t, r.Energy)
	assert.InDelta(t, *r.Mass*45.5, *r.Energy, 1e-6)
}

func TestCorrectManual(t *testing.T) {
	r, err := Correct(Input{Volume: 500, VolumeUnit: "L", Mode: "manual", ManualCTL: 0.9875, HeatingValue: 40})
	require.NoError(t, err)
	assert.Equal(t, 0.9875, r.CTL)
	assert.InDelta(t, 493.75, r.CorrectedVolume, 1e-9)
	assert.InDelta(t, 0.49375, r.CorrectedM3, 1e-12)
	assert.Nil(t, r.Mass)
	assert.Nil(t, r.Energy, "energy needs mass")
}

func TestCorrectAtReferenceTemperature(t *testing.T) {
	r, err := Correct(Input{Volume: 10, VolumeUnit: "galUS", TemperatureC: 15, RefTemperatureC: 15, Alpha: 0.001})
	require.NoError(t, err)
	assert.Equal(t, 1.0, r.CTL)
	assert.InDelta(t, 10, r.CorrectedVolume, 1e-12)
}

func TestCorrectValidation(t *testing.T) {
	base := Input{Volume: 1, VolumeUnit: "m3", Mode: "approx", Alpha: 0.001}
	for field, mutate := range map[string]func(*Input){
		"volume":            func(x *Input) { x.Volume = 0 },
		"volume_unit":       func(x *Input) { x.VolumeUnit = "cup" },
		"temperature_c":     func(x *Input) { x.TemperatureC = math.NaN() },
		"ref_temperature_c": func(x *Input) { x.RefTemperatureC = math.Inf(-1) },
		"alpha":             func(x *Input) { x.Alpha = 0.01 },
		"ctl":               func(x *Input) { x.Mode, x.ManualCTL = "manual", 0 },
		"ctl_mode":          func(x *Input) { x.Mode = "api" },
	} {
		in := base
		mutate(&in)
		_, err := Correct(in)
		require.Error(t, err, field)
		assert.True(t, calcerr.Is(err, calcerr.ErrInvalidInput))
		assert.Equal(t, field, calcerr.Field(err))
	}
}

func TestVolumeUnits(t *testing.T) {
	for _, u := range []VolumeUnit{M3, Liter, Bbl, GalUS} {
		assert.InEpsilon(t, 123.4, u.FromM3(u.M3(123.4)), 1e-12)
		got, err := ParseVolumeUnit(string(u))
		require.NoError(t, err)
		assert.Equal(t, u, got)
	}
	u, err := ParseVolumeUnit("l")
	require.NoError(t, err)
	assert.Equal(t, Liter, u)
}
