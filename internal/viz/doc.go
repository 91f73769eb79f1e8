// Package viz renders control loops in the terminal.
//
// [PlotRun] and [PlotSpectrum] produce static asciigraph charts for the CLI.
// [LiveModel] is a Bubble Tea program that steps a simulator on a timer.
//
// # Key Bindings
//
//	Space - Pause/Resume simulation
//	A     - Start relay auto-tune
//	R     - Reset (aborts a running tune)
//	Tab   - Cycle controller parameters, Up/Down to adjust
//	P     - Error vs output phase view
//	Q     - Quit
package viz
