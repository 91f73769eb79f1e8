package control

import (
	"fmt"
	"strings"
)

// TuningRule selects how ultimate gain and period map to PID gains. The
// zero value is the default, NoOvershoot.
type TuningRule int

const (
	NoOvershoot TuningRule = iota
	SomeOvershoot
	ClassicZN
)

// Gains is a PID gain set.
type Gains struct {
	Kp float64
	Ki float64
	Kd float64
}

type ruleSpec struct {
	name string
	slug string
	kp   float64 // Kp = kp*Ku
	ki   float64 // Ki = ki*Ku/Tu
	kd   float64 // Kd = kd*Ku*Tu/8
}

var rules = map[TuningRule]ruleSpec{
	ClassicZN:     {name: "Classic Z-N (Aggressive)", slug: "classic-zn", kp: 0.6, ki: 1.2, kd: 0.6},
	SomeOvershoot: {name: "Some Overshoot (Balanced)", slug: "some-overshoot", kp: 0.33, ki: 0.66, kd: 0.33},
	NoOvershoot:   {name: "No Overshoot (Smooth)", slug: "no-overshoot", kp: 0.2, ki: 0.4, kd: 0.2},
}

// TuningRules lists every rule, most aggressive first.
func TuningRules() []TuningRule {
	return []TuningRule{ClassicZN, SomeOvershoot, NoOvershoot}
}

func (r TuningRule) spec() ruleSpec {
	if s, ok := rules[r]; ok {
		return s
	}
	return rules[NoOvershoot]
}

func (r TuningRule) String() string { return r.spec().name }

// Slug is the identifier used on the command line and in config files.
func (r TuningRule) Slug() string { return r.spec().slug }

// Gains applies the rule to an ultimate gain ku and period tu. Unknown
// rules fall back to NoOvershoot.
func (r TuningRule) Gains(ku, tu float64) Gains {
	s := r.spec()
	return Gains{
		Kp: s.kp * ku,
		Ki: (s.ki * ku) / tu,
		Kd: (s.kd * ku * tu) / 8.0,
	}
}

func ParseTuningRule(s string) (TuningRule, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for _, r := range TuningRules() {
		spec := rules[r]
		if key == spec.slug || key == strings.ToLower(spec.name) {
			return r, nil
		}
	}
	switch key {
	case "zn", "classic", "aggressive":
		return ClassicZN, nil
	case "balanced":
		return SomeOvershoot, nil
	case "", "smooth":
		return NoOvershoot, nil
	}
	return NoOvershoot, fmt.Errorf("unknown tuning rule: %s", s)
}

func (r TuningRule) MarshalText() ([]byte, error) {
	return []byte(r.Slug()), nil
}

func (r *TuningRule) UnmarshalText(text []byte) error {
	parsed, err := ParseTuningRule(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
