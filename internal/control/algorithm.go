package control

// Algorithm is the contract a simulation driver depends on.
type Algorithm interface {
	Calculate(setpoint, pv, currentTime float64) float64
	Reset()
	Name() string
	ParameterNames() []string
	Parameters() map[string]float64
	// SetParameters ignores unknown keys and leaves missing keys unchanged.
	SetParameters(params map[string]float64)
	IsAutoTuning() bool
}

// noCopy makes go vet flag controllers copied by value.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
