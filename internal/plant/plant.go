// Package plant provides discrete-time process models driven by a single
// control input.
//
// Every model advances by one fixed step per [Plant.Update] call. Plants
// carry mutable state and are not safe for concurrent use.
package plant

import "errors"

var ErrZeroTimeConstant = errors.New("plant: time constant must be non-zero")

// Plant is the process under control.
type Plant interface {
	// Update advances the model by one step and returns the new process value.
	Update(input float64) float64
	// State returns the current process value without advancing.
	State() float64
	Reset()
	Name() string
}
