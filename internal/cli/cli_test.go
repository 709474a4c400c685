package cli

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fpawel/gasflow/internal/liquid"
	"github.com/fpawel/gasflow/internal/metering"
	"github.com/fpawel/gasflow/internal/zfactor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v3"
)

func run(t *testing.T, args ...string) (string, error) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "gasflow.yaml")}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestCalc(t *testing.T) {
	xlsxFile := filepath.Join(t.TempDir(), "gas.xlsx")
	out, err := run(t, "calc",
		"--flow", "1000", "--pressure", "50", "--temp", "20",
		"--mode", "composition", "--compo", "CH4=93.2, C2=3.2, CO2=1.0, N2=2.6",
		"--xlsx", xlsxFile)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Z:             0.891988")
	assert.Contains(t, out, "Papay via Kay mix (Ppc=667.81 psia, Tpc=348.65 °R)")

	wb, err := xlsx.OpenFile(xlsxFile)
	require.NoError(t, err)
	assert.Contains(t, wb.Sheet, "GasCalc")
}

func TestCalcJSON(t *testing.T) {
	out, err := run(t, "calc", "--flow", "1000", "--pressure", "50", "--temp", "20", "--z", "0.9", "--json", "--preset", "60F")
	require.NoError(t, err, out)
	var r metering.Result
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	assert.Equal(t, zfactor.MethodManual, r.Method)
	assert.InDelta(t, 519.67, r.StdTemperatureR, 1e-9)
}

func TestCalcErrors(t *testing.T) {
	_, err := run(t, "calc", "--pressure", "50")
	assert.Error(t, err, "flow is required")

	_, err = run(t, "calc", "--flow", "1000", "--pressure", "50", "--z", "2.5")
	assert.Error(t, err)
}

func TestCTL(t *testing.T) {
	xlsxFile := filepath.Join(t.TempDir(), "ctl.xlsx")
	out, err := run(t, "ctl", "--volume", "500", "--unit", "L", "--mode", "manual", "--ctl", "0.9875", "--json", "--xlsx", xlsxFile)
	require.NoError(t, err, out)
	var r liquid.Result
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	assert.InDelta(t, 493.75, r.CorrectedVolume, 1e-9)

	wb, err := xlsx.OpenFile(xlsxFile)
	require.NoError(t, err)
	assert.Contains(t, wb.Sheet, "CustodyCalc")

	out, err = run(t, "ctl", "--volume", "1000", "--unit", "bbl", "--temp", "35", "--density", "850", "--hhv", "45.5")
	require.NoError(t, err, out)
	assert.Contains(t, out, "corrected volume:")
	assert.Contains(t, out, "energy:")

	_, err = run(t, "ctl", "--volume", "1", "--alpha", "0.02")
	assert.Error(t, err)
}

func TestBatch(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.csv")
	out := filepath.Join(dir, "out.csv")
	require.NoError(t, os.WriteFile(in, []byte(`line_flow,pressure,temperature_c,manual_z
1000,50,20,0.9
1000,50,20,3
`), 0666))

	stdout, err := run(t, "batch", "--mode", "manual", "-q", in, out)
	require.NoError(t, err, stdout)
	assert.Contains(t, stdout, "2 rows, 1 failed")

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "0.9", rows[1][4])
	assert.True(t, strings.HasPrefix(rows[2][len(rows[2])-1], "invalid_input"), rows[2])

	_, err = run(t, "batch", filepath.Join(dir, "missing.csv"), out)
	assert.Error(t, err)
}

func TestConfigIsCreated(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "custom.yaml")
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", filename, "ctl", "--volume", "1"})
	require.NoError(t, cmd.Execute())
	_, err := os.Stat(filename)
	assert.NoError(t, err)
}
