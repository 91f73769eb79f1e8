package analysis

import (
	"errors"
	"math"
	"testing"
)

func sine(n int, dt, freq, amp, offset float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amp*math.Sin(2*math.Pi*freq*float64(i)*dt) + offset
	}
	return out
}

func TestSpectrum_Errors(t *testing.T) {
	if _, err := Spectrum(make([]float64, 15), 0.1, NoWindow); !errors.Is(err, ErrTooShort) {
		t.Errorf("expected ErrTooShort, got %v", err)
	}
	if _, err := Spectrum(make([]float64, 32), 0, NoWindow); !errors.Is(err, ErrInvalidDt) {
		t.Errorf("expected ErrInvalidDt, got %v", err)
	}
}

func TestSpectrum_Window(t *testing.T) {
	tests := []struct {
		samples int
		n       int
	}{
		{16, 16},
		{17, 16},
		{31, 16},
		{32, 32},
		{400, 256},
	}
	for _, tt := range tests {
		res, err := Spectrum(make([]float64, tt.samples), 0.05, NoWindow)
		if err != nil {
			t.Fatal(err)
		}
		if res.N != tt.n || len(res.Bins) != tt.n/2 {
			t.Errorf("%d samples: n=%d bins=%d, want n=%d", tt.samples, res.N, len(res.Bins), tt.n)
		}
	}
}

func TestSpectrum_PureTone(t *testing.T) {
	// 256 samples at dt=0.05 -> 0.078125 Hz bins; 1.25 Hz is bin 16
	dt := 0.05
	data := sine(256, dt, 1.25, 2, 5)

	res, err := Spectrum(data, dt, NoWindow)
	if err != nil {
		t.Fatal(err)
	}

	if math.Abs(res.Resolution()-0.078125) > 1e-12 {
		t.Errorf("resolution %f", res.Resolution())
	}

	f, mag := res.Dominant()
	if math.Abs(f-1.25) > 1e-9 {
		t.Errorf("dominant frequency %f, want 1.25", f)
	}
	// a bin-centred tone of amplitude A shows A/2 in a one-sided |X|/n spectrum
	if math.Abs(mag-1.0) > 1e-9 {
		t.Errorf("dominant magnitude %f, want 1.0", mag)
	}
	if res.Bins[0].Magnitude > 1e-9 {
		t.Errorf("DC not removed: %f", res.Bins[0].Magnitude)
	}
}

func TestSpectrum_Hann(t *testing.T) {
	dt := 0.05
	data := sine(300, dt, 1.3, 1, 0)

	res, err := Spectrum(data, dt, Hann)
	if err != nil {
		t.Fatal(err)
	}
	f, _ := res.Dominant()
	if math.Abs(f-1.3) > res.Resolution() {
		t.Errorf("dominant frequency %f, want ~1.3", f)
	}
}

func TestDominantFrequency(t *testing.T) {
	f, err := DominantFrequency(sine(512, 0.01, 5, 1, 0), 0.01)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(f-5) > 1/(512*0.01) {
		t.Errorf("got %f, want ~5", f)
	}
}
