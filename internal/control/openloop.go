package control

// OpenLoop drives the plant with a fixed output and ignores the measurement.
type OpenLoop struct {
	U float64
}

func NewOpenLoop(u float64) *OpenLoop {
	return &OpenLoop{U: u}
}

func (o *OpenLoop) Calculate(setpoint, pv, currentTime float64) float64 {
	return o.U
}

func (o *OpenLoop) Reset() {}

func (o *OpenLoop) Name() string { return "Open Loop" }

func (o *OpenLoop) ParameterNames() []string { return []string{"U"} }

func (o *OpenLoop) Parameters() map[string]float64 {
	return map[string]float64{"U": o.U}
}

func (o *OpenLoop) SetParameters(params map[string]float64) {
	if v, ok := params["U"]; ok {
		o.U = v
	}
}

func (o *OpenLoop) IsAutoTuning() bool { return false }
