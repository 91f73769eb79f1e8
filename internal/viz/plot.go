package viz

import (
	"fmt"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/loopsim/internal/analysis"
	"github.com/san-kum/loopsim/internal/run"
)

type PlotOptions struct {
	Width  int
	Height int
	// Output adds a second chart with the controller output.
	Output bool
}

func DefaultPlotOptions() PlotOptions {
	return PlotOptions{Width: 70, Height: 15}
}

// PlotRun charts PV against the setpoint.
func PlotRun(r *run.SimulationRun, opts PlotOptions) string {
	if r.Len() == 0 {
		return fmt.Sprintf("%s: no samples\n", r.Name())
	}

	pv := r.Series(func(p run.DataPoint) float64 { return p.PV })
	sp := r.Series(func(p run.DataPoint) float64 { return p.Setpoint })

	caption := fmt.Sprintf("%s  PV / setpoint  (%s)", r.Name(), r.Metrics())
	out := asciigraph.PlotMany([][]float64{pv, sp},
		asciigraph.Width(opts.Width),
		asciigraph.Height(opts.Height),
		asciigraph.SeriesColors(CurrentTheme.PV, CurrentTheme.Setpoint),
		asciigraph.Caption(caption),
	) + "\n"

	if opts.Output {
		u := r.Series(func(p run.DataPoint) float64 { return p.Output })
		out += "\n" + asciigraph.Plot(u,
			asciigraph.Width(opts.Width),
			asciigraph.Height(max(opts.Height/2, 3)),
			asciigraph.SeriesColors(CurrentTheme.Output),
			asciigraph.Caption("controller output"),
		) + "\n"
	}
	return out
}

// PlotSpectrum charts the magnitude spectrum and marks the dominant bin.
func PlotSpectrum(res *analysis.Result, opts PlotOptions) string {
	f, mag := res.Dominant()
	caption := fmt.Sprintf("|X(f)|/n, %d-point FFT, %.4f Hz/bin, peak %.4f at %.3f Hz", res.N, res.Resolution(), mag, f)
	return asciigraph.Plot(res.Magnitudes(),
		asciigraph.Width(opts.Width),
		asciigraph.Height(opts.Height),
		asciigraph.SeriesColors(CurrentTheme.PV),
		asciigraph.Caption(caption),
	) + "\n"
}

// PhasePlot traces error against controller output on a braille canvas.
func PhasePlot(samples []run.DataPoint, w, h int) string {
	errs := make([]float64, len(samples))
	outs := make([]float64, len(samples))
	for i, p := range samples {
		errs[i] = p.Setpoint - p.PV
		outs[i] = p.Output
	}
	c := NewCanvas(w, h)
	c.Trace(errs, outs)
	return c.String()
}
