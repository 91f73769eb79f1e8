// Package analysis looks at recorded runs in the frequency domain.
//
//	spec, err := analysis.Spectrum(r.Series(func(p run.DataPoint) float64 { return p.PV }), dt, analysis.NoWindow)
//	f, mag := spec.Dominant()
//
// The trailing power-of-two window of the series is transformed with the
// mean of the whole series removed, so a settled loop shows no DC peak.
package analysis
