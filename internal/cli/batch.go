package cli

import (
	"fmt"
	"os"

	"github.com/ansel1/merry"
	"github.com/fpawel/gasflow/internal/batch"
	"github.com/fpawel/gasflow/internal/metering"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
)

func batchCmd(g *globals) *cobra.Command {
	var (
		defaults metering.Input
		quiet    bool
	)
	c := &cobra.Command{
		Use:   "batch <in.csv> <out.csv>",
		Short: "Standardize every row of a CSV file",
		Long: `Standardize every row of a CSV file.

The header names the columns: line_flow, flow_unit, pressure, pressure_unit,
temperature_c, z_mode, manual_z, gravity, composition, density,
heating_value, preset. line_flow, pressure and temperature_c are required.
Failed rows are written with the error and do not stop the run.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if defaults.Preset == "" {
				defaults.Preset = g.cfg.StandardPreset
			}
			engine, err := g.cfg.Evaluator.Engine()
			if err != nil {
				return err
			}
			in, err := os.Open(args[0])
			if err != nil {
				return merry.Wrap(err)
			}
			defer log.ErrIfFail(in.Close)
			out, err := os.Create(args[1])
			if err != nil {
				return merry.Wrap(err)
			}

			opts := batch.Options{
				Precision: g.cfg.FloatPrecision,
				Defaults:  defaults,
			}
			if !quiet {
				opts.Progress = cmd.ErrOrStderr()
			}
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			n, err := batch.Run(ctx, engine, in, out, opts)
			if errClose := out.Close(); errClose != nil && err == nil {
				err = merry.Wrap(errClose)
			}
			failed := 0
			if merr, ok := err.(*multierror.Error); ok {
				failed = len(merr.Errors)
				for _, e := range merr.Errors {
					log.Warn(e.Error())
				}
				err = nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d rows, %d failed: %s\n", n, failed, args[1])
			return nil
		},
	}
	f := c.Flags()
	f.StringVar(&defaults.FlowUnit, "flow-unit", "m3h", "flow unit of rows without flow_unit")
	f.StringVar(&defaults.PressureUnit, "pressure-unit", "bar", "pressure unit of rows without pressure_unit")
	f.StringVar(&defaults.ZMode, "mode", "", "Z mode of rows without z_mode")
	f.StringVar(&defaults.Preset, "preset", "", "standard conditions of rows without preset; defaults to the config")
	f.BoolVarP(&quiet, "quiet", "q", false, "no progress bar")
	return c
}
