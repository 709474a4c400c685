// Package batch standardizes every row of a CSV file.
//
// The first input row names the columns after the JSON fields of
// metering.Input. The output repeats the input columns followed by the
// result columns. A row that fails is written with an empty result and the
// error text, and processing continues.
package batch

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ansel1/merry"
	"github.com/fpawel/gasflow/internal/calcerr"
	"github.com/fpawel/gasflow/internal/metering"
	"github.com/fpawel/gasflow/internal/pkg"
	"github.com/hashicorp/go-multierror"
	"github.com/powerman/structlog"
	"github.com/schollz/progressbar/v3"
)

var log = structlog.New(structlog.KeyUnit, "batch")

var ResultColumns = []string{
	"z", "method", "detail", "z_out_of_range", "std_flow_sm3h", "mass_flow", "energy_flow", "error",
}

type setter func(x *metering.Input, s string) error

func number(field string, p func(*metering.Input) *float64) setter {
	return func(x *metering.Input, s string) error {
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return calcerr.InvalidField(field, "not a number %q", s)
		}
		*p(x) = v
		return nil
	}
}

func text(p func(*metering.Input) *string) setter {
	return func(x *metering.Input, s string) error {
		if s = strings.TrimSpace(s); s != "" {
			*p(x) = s
		}
		return nil
	}
}

var columns = map[string]setter{
	"line_flow":     number("line_flow", func(x *metering.Input) *float64 { return &x.LineFlow }),
	"flow_unit":     text(func(x *metering.Input) *string { return &x.FlowUnit }),
	"pressure":      number("pressure", func(x *metering.Input) *float64 { return &x.Pressure }),
	"pressure_unit": text(func(x *metering.Input) *string { return &x.PressureUnit }),
	"temperature_c": number("temperature_c", func(x *metering.Input) *float64 { return &x.TemperatureC }),
	"z_mode":        text(func(x *metering.Input) *string { return &x.ZMode }),
	"manual_z":      number("manual_z", func(x *metering.Input) *float64 { return &x.ManualZ }),
	"gravity":       number("gravity", func(x *metering.Input) *float64 { return &x.Gravity }),
	"composition":   text(func(x *metering.Input) *string { return &x.CompositionText }),
	"density":       number("density", func(x *metering.Input) *float64 { return &x.DensityOrGravity }),
	"heating_value": number("heating_value", func(x *metering.Input) *float64 { return &x.HeatingValue }),
	"preset":        text(func(x *metering.Input) *string { return &x.Preset }),
}

var requiredColumns = []string{"line_flow", "pressure", "temperature_c"}

type Options struct {
	// Precision of the output numbers, decimals.
	Precision int
	// Defaults fills the fields of columns the file does not have.
	Defaults metering.Input
	// Progress receives a progress bar when not nil.
	Progress io.Writer
}

// Run reads CSV rows from r and writes results to w. It returns the number of
// rows processed. Row failures are collected into a *multierror.Error; they
// do not stop the run. Malformed CSV and write failures do.
func Run(ctx context.Context, zs metering.ZSource, r io.Reader, w io.Writer, opts Options) (int, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return 0, merry.Prepend(err, "read csv")
	}
	if len(records) == 0 {
		return 0, merry.New("csv: no header row")
	}
	header := records[0]
	setters, err := parseHeader(header)
	if err != nil {
		return 0, err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(append(append([]string{}, header...), ResultColumns...)); err != nil {
		return 0, merry.Wrap(err)
	}

	var bar *progressbar.ProgressBar
	if opts.Progress != nil {
		bar = progressbar.NewOptions(len(records)-1,
			progressbar.OptionSetWriter(opts.Progress),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionSetDescription("standardize"),
		)
	}

	var errs *multierror.Error
	n := 0
	for i, rec := range records[1:] {
		if err := ctx.Err(); err != nil {
			return n, merry.Wrap(err)
		}
		line := i + 2
		res, err := row(ctx, zs, setters, rec, opts.Defaults)
		if err != nil {
			log.Debug("row failed", "line", line, "error", err)
			errs = multierror.Append(errs, merry.Prependf(err, "line %d", line))
		}
		if err := cw.Write(append(rec, format(res, err, opts.Precision)...)); err != nil {
			return n, merry.Wrap(err)
		}
		n++
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	if bar != nil {
		_ = bar.Finish()
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return n, merry.Wrap(err)
	}
	return n, errs.ErrorOrNil()
}

func parseHeader(header []string) ([]setter, error) {
	setters := make([]setter, len(header))
	seen := make(map[string]bool)
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(name))
		f, ok := columns[name]
		if !ok {
			return nil, merry.Errorf("csv: unknown column %q", header[i])
		}
		if seen[name] {
			return nil, merry.Errorf("csv: duplicate column %q", name)
		}
		seen[name] = true
		setters[i] = f
	}
	var missing []string
	for _, name := range requiredColumns {
		if !seen[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, merry.Errorf("csv: missing columns %s", strings.Join(missing, ", "))
	}
	return setters, nil
}

func row(ctx context.Context, zs metering.ZSource, setters []setter, rec []string, in metering.Input) (metering.Result, error) {
	for i, f := range setters {
		if err := f(&in, rec[i]); err != nil {
			return metering.Result{}, err
		}
	}
	return metering.Standardize(ctx, zs, in)
}

func format(r metering.Result, err error, precision int) []string {
	if err != nil {
		xs := make([]string, len(ResultColumns))
		xs[len(xs)-1] = fmt.Sprintf("%s: %s", calcerr.Kind(err), calcerr.Message(err))
		return xs
	}
	optional := func(v *float64) string {
		if v == nil {
			return ""
		}
		return pkg.FormatFloat(*v, precision)
	}
	return []string{
		pkg.FormatFloat(r.Z, precision),
		string(r.Method),
		r.Detail,
		strconv.FormatBool(r.OutOfRange),
		pkg.FormatFloat(r.StdFlow, precision),
		optional(r.MassFlow),
		optional(r.EnergyFlow),
		"",
	}
}
