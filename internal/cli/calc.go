package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fpawel/gasflow/internal/metering"
	"github.com/fpawel/gasflow/internal/pkg"
	"github.com/fpawel/gasflow/internal/report"
	"github.com/spf13/cobra"
)

func calcCmd(g *globals) *cobra.Command {
	var (
		in       metering.Input
		xlsxFile string
		asJSON   bool
	)
	c := &cobra.Command{
		Use:   "calc",
		Short: "Convert a line flow to standard conditions",
		Example: `  gasflow calc --flow 1000 --flow-unit m3h --pressure 50 --pressure-unit bar --temp 20 \
    --mode composition --compo "CH4=93.2, C2=3.2, CO2=1.0, N2=2.6"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if in.Preset == "" {
				in.Preset = g.cfg.StandardPreset
			}
			engine, err := g.cfg.Evaluator.Engine()
			if err != nil {
				return err
			}
			r, err := metering.Standardize(cmd.Context(), engine, in)
			if err != nil {
				return err
			}
			if xlsxFile != "" {
				if err := report.SaveXLSX(xlsxFile, func(w io.Writer) error {
					return report.WriteXLSX(w, in, r, g.cfg.FloatPrecision)
				}); err != nil {
					return err
				}
			}
			w := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(r)
			}
			printResult(w, r, g.cfg.FloatPrecision)
			return nil
		},
	}
	f := c.Flags()
	f.Float64Var(&in.LineFlow, "flow", 0, "line flow")
	f.StringVar(&in.FlowUnit, "flow-unit", "m3h", "flow unit: m3h, mscfh or scfh")
	f.Float64Var(&in.Pressure, "pressure", 0, "absolute line pressure")
	f.StringVar(&in.PressureUnit, "pressure-unit", "bar", "pressure unit: bar, kpa or psia")
	f.Float64Var(&in.TemperatureC, "temp", 15, "line temperature, °C")
	f.StringVar(&in.ZMode, "mode", "manual", "Z mode: manual, gravity or composition")
	f.Float64Var(&in.ManualZ, "z", 0, "Z for manual mode")
	f.Float64Var(&in.Gravity, "gravity", 0, "gas specific gravity for gravity mode")
	f.StringVar(&in.CompositionText, "compo", "", `mole percent composition, e.g. "CH4=93.2, C2=3.2"`)
	f.Float64Var(&in.DensityOrGravity, "density", 0, "standard density kg/m³, or specific gravity when not above 2")
	f.Float64Var(&in.HeatingValue, "hv", 0, "heating value per sm³")
	f.StringVar(&in.Preset, "preset", "", "standard conditions: 15C or 60F; defaults to the config")
	f.StringVar(&xlsxFile, "xlsx", "", "also save the result to this xlsx file")
	f.BoolVar(&asJSON, "json", false, "print the result as JSON")
	_ = c.MarkFlagRequired("flow")
	_ = c.MarkFlagRequired("pressure")
	return c
}

func printResult(w io.Writer, r metering.Result, precision int) {
	ff := func(v float64) string {
		return pkg.FormatFloat(v, precision)
	}
	fmt.Fprintf(w, "Z:             %s\n", ff(r.Z))
	fmt.Fprintf(w, "method:        %s\n", r.Detail)
	if r.OutOfRange {
		fmt.Fprintln(w, "warning:       Z is outside (0, 2)")
	}
	fmt.Fprintf(w, "std flow:      %s sm³/h\n", ff(r.StdFlow))
	fmt.Fprintf(w, "line:          %s psia, %s °R\n", ff(r.PressurePsia), ff(r.TemperatureR))
	fmt.Fprintf(w, "standard:      %s psia, %s °R\n", ff(r.StdPressurePsia), ff(r.StdTemperatureR))
	if r.PseudoCritical != nil {
		fmt.Fprintf(w, "pseudo-crit:   %s psia, %s °R\n", ff(r.PseudoCritical.Ppc), ff(r.PseudoCritical.Tpc))
	}
	if r.MassFlow != nil {
		fmt.Fprintf(w, "mass flow:     %s kg/h (ρ=%s kg/m³)\n", ff(*r.MassFlow), ff(*r.Density))
	}
	if r.EnergyFlow != nil {
		fmt.Fprintf(w, "energy flow:   %s per h\n", ff(*r.EnergyFlow))
	}
}
