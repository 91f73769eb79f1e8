// Package control provides feedback controllers for single-loop plants.
//
// Controllers implement the [Algorithm] interface so a simulation driver
// can run any of them uniformly:
//
//   - [PID]: discrete PID with relay-feedback auto-tuning
//   - [OpenLoop]: constant output, no feedback
//
// # Usage
//
//	pid, _ := control.NewPID(1.0, 0.1, 0.05, 0.05) // Kp, Ki, Kd, dt
//	u := pid.Calculate(setpoint, pv, t)
//
// # Auto-tuning
//
// [PID.StartAutoTune] replaces the PID law with a relay until three full
// oscillation cycles have been observed, then derives gains with the
// selected [TuningRule]. Completion is reported as a [TuneResult] on
// [PID.Results] and through [PID.LastResult]; the caller polls, nothing is
// called back.
//
// Controllers are not safe for concurrent use. One goroutine owns a
// controller for the duration of a run.
package control
