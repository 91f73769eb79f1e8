// Package export renders saved runs to standalone files.
package export

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/san-kum/loopsim/internal/run"
)

// SVGOptions controls RunToSVG.
type SVGOptions struct {
	Width  int
	Height int
	// Output adds the controller output as a third trace on its own scale.
	Output bool
}

func DefaultSVGOptions() SVGOptions {
	return SVGOptions{Width: 800, Height: 400}
}

const (
	pvColor       = "#00ffff"
	setpointColor = "#ffff00"
	outputColor   = "#ff00ff"
)

type bounds struct {
	minX, maxX, minY, maxY float64
}

func (b *bounds) add(x, y float64) {
	if math.IsNaN(y) || math.IsInf(y, 0) {
		return
	}
	b.minX = math.Min(b.minX, x)
	b.maxX = math.Max(b.maxX, x)
	b.minY = math.Min(b.minY, y)
	b.maxY = math.Max(b.maxY, y)
}

// pad widens the box by 10% so traces do not touch the border.
func (b *bounds) pad() {
	rx, ry := b.maxX-b.minX, b.maxY-b.minY
	if rx == 0 {
		rx = 1
	}
	if ry == 0 {
		ry = 1
	}
	b.minY -= ry * 0.1
	b.maxY += ry * 0.1
	b.maxX = b.minX + rx
}

func newBounds() bounds {
	return bounds{minX: math.Inf(1), maxX: math.Inf(-1), minY: math.Inf(1), maxY: math.Inf(-1)}
}

// pathData maps the samples picked by y into SVG path coordinates.
// Non-finite samples break the path.
func pathData(samples []run.DataPoint, y func(run.DataPoint) float64, b bounds, width, height int) string {
	var sb strings.Builder
	move := true
	for _, p := range samples {
		v := y(p)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			move = true
			continue
		}
		px := (p.Time - b.minX) / (b.maxX - b.minX) * float64(width)
		py := float64(height) - (v-b.minY)/(b.maxY-b.minY)*float64(height)
		if move {
			fmt.Fprintf(&sb, "M%.1f,%.1f", px, py)
			move = false
		} else {
			fmt.Fprintf(&sb, " L%.1f,%.1f", px, py)
		}
	}
	return sb.String()
}

// RunToSVG draws the PV and setpoint of r against time.
func RunToSVG(w io.Writer, r *run.SimulationRun, opts SVGOptions) error {
	samples := r.Samples()
	if len(samples) < 2 {
		return fmt.Errorf("run %q: need at least 2 samples to plot", r.Name())
	}

	b := newBounds()
	for _, p := range samples {
		b.add(p.Time, p.PV)
		b.add(p.Time, p.Setpoint)
	}
	b.pad()

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<title>%s</title>
`, opts.Width, opts.Height, opts.Width, opts.Height, escape(r.Name()))

	fmt.Fprintf(&sb, `<path fill="none" stroke="%s" stroke-width="1" stroke-dasharray="6 4" d="%s"/>
`, setpointColor, pathData(samples, func(p run.DataPoint) float64 { return p.Setpoint }, b, opts.Width, opts.Height))
	fmt.Fprintf(&sb, `<path fill="none" stroke="%s" stroke-width="1.5" d="%s"/>
`, pvColor, pathData(samples, func(p run.DataPoint) float64 { return p.PV }, b, opts.Width, opts.Height))

	if opts.Output {
		ob := newBounds()
		for _, p := range samples {
			ob.add(p.Time, p.Output)
		}
		ob.pad()
		fmt.Fprintf(&sb, `<path fill="none" stroke="%s" stroke-width="1" opacity="0.6" d="%s"/>
`, outputColor, pathData(samples, func(p run.DataPoint) float64 { return p.Output }, ob, opts.Width, opts.Height))
	}

	fmt.Fprintf(&sb, `<text x="8" y="16" fill="#ffffff" font-family="monospace" font-size="12">%s</text>
`, escape(r.Metrics().String()))
	sb.WriteString("</svg>\n")

	_, err := io.WriteString(w, sb.String())
	return err
}

var escaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

func escape(s string) string { return escaper.Replace(s) }
