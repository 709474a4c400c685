package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fpawel/gasflow/internal/liquid"
	"github.com/fpawel/gasflow/internal/pkg"
	"github.com/fpawel/gasflow/internal/report"
	"github.com/spf13/cobra"
)

func ctlCmd(g *globals) *cobra.Command {
	var (
		in       liquid.Input
		xlsxFile string
		asJSON   bool
	)
	c := &cobra.Command{
		Use:   "ctl",
		Short: "Correct a liquid volume for temperature",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := liquid.Correct(in)
			if err != nil {
				return err
			}
			if xlsxFile != "" {
				if err := report.SaveXLSX(xlsxFile, func(w io.Writer) error {
					return report.WriteCTLXLSX(w, in, r, g.cfg.FloatPrecision)
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
			ff := func(v float64) string {
				return pkg.FormatFloat(v, g.cfg.FloatPrecision)
			}
			fmt.Fprintf(w, "CTL:              %s\n", ff(r.CTL))
			fmt.Fprintf(w, "corrected volume: %s %s\n", ff(r.CorrectedVolume), r.VolumeUnit)
			if r.Mass != nil {
				fmt.Fprintf(w, "mass:             %s kg\n", ff(*r.Mass))
			}
			if r.Energy != nil {
				fmt.Fprintf(w, "energy:           %s MJ\n", ff(*r.Energy))
			}
			return nil
		},
	}
	f := c.Flags()
	f.Float64Var(&in.Volume, "volume", 0, "measured volume")
	f.StringVar(&in.VolumeUnit, "unit", "m3", "volume unit: m3, L, bbl or galUS")
	f.Float64Var(&in.TemperatureC, "temp", 15, "measured temperature, °C")
	f.Float64Var(&in.RefTemperatureC, "ref-temp", 15, "reference temperature, °C")
	f.StringVar(&in.Mode, "mode", "approx", "CTL mode: approx or manual")
	f.Float64Var(&in.Alpha, "alpha", 0.00095, "thermal expansion coefficient, 1/°C")
	f.Float64Var(&in.ManualCTL, "ctl", 0, "CTL for manual mode")
	f.Float64Var(&in.Density, "density", 0, "density at reference temperature, kg/m³")
	f.Float64Var(&in.HeatingValue, "hhv", 0, "heating value, MJ/kg")
	f.StringVar(&xlsxFile, "xlsx", "", "also save the result to this xlsx file")
	f.BoolVar(&asJSON, "json", false, "print the result as JSON")
	_ = c.MarkFlagRequired("volume")
	return c
}
