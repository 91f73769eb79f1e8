package analysis

import (
	"errors"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// MinSamples is the shortest series Spectrum accepts.
const MinSamples = 16

var (
	ErrTooShort  = errors.New("analysis: need at least 16 samples")
	ErrInvalidDt = errors.New("analysis: dt must be positive")
)

type Window int

const (
	NoWindow Window = iota
	Hann
)

// Bin is one line of a one-sided magnitude spectrum.
type Bin struct {
	Frequency float64
	Magnitude float64
}

type Result struct {
	Bins []Bin
	// N is the transform length actually used.
	N  int
	Dt float64
}

// Spectrum transforms the last 2^k samples of data, k maximal. Magnitudes
// are |X_i|/n for i < n/2 at frequency i/(n*dt).
func Spectrum(data []float64, dt float64, w Window) (*Result, error) {
	if !(dt > 0) {
		return nil, ErrInvalidDt
	}
	if len(data) < MinSamples {
		return nil, ErrTooShort
	}

	mean := 0.0
	for _, v := range data {
		mean += v
	}
	mean /= float64(len(data))

	n := 1
	for n*2 <= len(data) {
		n *= 2
	}
	tail := data[len(data)-n:]

	buf := make([]complex128, n)
	for i, v := range tail {
		v -= mean
		if w == Hann {
			v *= 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
		}
		buf[i] = complex(v, 0)
	}

	x := fft.FFT(buf)

	res := &Result{Bins: make([]Bin, n/2), N: n, Dt: dt}
	for i := range res.Bins {
		res.Bins[i] = Bin{
			Frequency: float64(i) / (float64(n) * dt),
			Magnitude: cmplx.Abs(x[i]) / float64(n),
		}
	}
	return res, nil
}

// Dominant returns the strongest bin above DC.
func (r *Result) Dominant() (freq, mag float64) {
	for _, b := range r.Bins[1:] {
		if b.Magnitude > mag {
			freq, mag = b.Frequency, b.Magnitude
		}
	}
	return freq, mag
}

// Magnitudes returns the magnitude column, for plotting.
func (r *Result) Magnitudes() []float64 {
	out := make([]float64, len(r.Bins))
	for i, b := range r.Bins {
		out[i] = b.Magnitude
	}
	return out
}

// Resolution is the spacing between bins in Hz.
func (r *Result) Resolution() float64 {
	return 1 / (float64(r.N) * r.Dt)
}

// DominantFrequency is shorthand for Spectrum followed by Dominant.
func DominantFrequency(data []float64, dt float64) (float64, error) {
	res, err := Spectrum(data, dt, NoWindow)
	if err != nil {
		return 0, err
	}
	f, _ := res.Dominant()
	return f, nil
}
