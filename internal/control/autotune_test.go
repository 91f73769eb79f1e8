package control_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/loopsim/internal/control"
)

const (
	dt         = 0.05
	setpoint   = 5.0
	relayAmp   = 80.0
	hysteresis = 0.5
)

// squareWave alternates between setpoint+a0 and setpoint-a0 every
// halfSteps samples, starting high.
func squareWave(k, halfSteps int, a0 float64) float64 {
	if (k/halfSteps)%2 == 0 {
		return setpoint + a0
	}
	return setpoint - a0
}

// feed drives pid with pv(k) at t=k*dt until tuning stops or maxSteps is
// reached. It returns the step index and output of the last call.
func feed(pid *control.PID, pv func(k int) float64, maxSteps int) (int, float64) {
	var u float64
	for k := 0; k < maxSteps; k++ {
		u = pid.Calculate(setpoint, pv(k), float64(k)*dt)
		if !pid.IsAutoTuning() {
			return k, u
		}
	}
	return maxSteps, u
}

func receive(pid *control.PID) control.TuneResult {
	var res control.TuneResult
	Eventually(pid.Results()).Should(Receive(&res))
	return res
}

var _ = Describe("Relay auto-tune", func() {
	var pid *control.PID

	BeforeEach(func() {
		var err error
		pid, err = control.NewPID(1.0, 0.1, 0.05, dt)
		Expect(err).NotTo(HaveOccurred())
		pid.SetRelay(relayAmp, hysteresis)
	})

	It("enters tuning and primes the relay output", func() {
		pid.StartAutoTune(setpoint, control.ClassicZN)
		Expect(pid.IsAutoTuning()).To(BeTrue())

		u := pid.Calculate(123, 0, 0)
		Expect(u).To(Equal(relayAmp))
		Expect(pid.AutoTuneStatus()).To(Equal("Tuning (Classic Z-N (Aggressive))... Cycle 1 of 3"))
	})

	It("applies hysteresis to the relay", func() {
		pid.StartAutoTune(setpoint, control.NoOvershoot)
		pid.Calculate(setpoint, 0, 0)

		Expect(pid.Calculate(setpoint, setpoint-1, dt)).To(Equal(relayAmp))
		Expect(pid.Calculate(setpoint, setpoint+0.4, 2*dt)).To(Equal(relayAmp), "inside the band the output holds")
		Expect(pid.Calculate(setpoint, setpoint+0.6, 3*dt)).To(Equal(-relayAmp))
		Expect(pid.Calculate(setpoint, setpoint-0.4, 4*dt)).To(Equal(-relayAmp), "inside the band the output holds")
		Expect(pid.Calculate(setpoint, setpoint-0.6, 5*dt)).To(Equal(relayAmp))
	})

	It("ignores the caller's setpoint while tuning", func() {
		pid.StartAutoTune(setpoint, control.NoOvershoot)
		pid.Calculate(1000, 0, 0)
		Expect(pid.Calculate(-1000, setpoint+1, dt)).To(Equal(-relayAmp))
	})

	DescribeTable("identifies a square-wave oscillation exactly",
		func(rule control.TuningRule, kp, ki, kd float64) {
			const a0, halfSteps = 2.0, 20
			t0 := 2 * halfSteps * dt

			pid.StartAutoTune(setpoint, rule)
			k, u := feed(pid, func(k int) float64 { return squareWave(k, halfSteps, a0) }, 1000)

			// first crossing only starts the clock, then six are recorded
			Expect(k).To(Equal(7 * halfSteps))

			res := receive(pid)
			Expect(res.Success).To(BeTrue())
			Expect(res.Err).NotTo(HaveOccurred())
			Expect(res.Rule).To(Equal(rule))

			ku := 4 * relayAmp / (math.Pi * a0)
			Expect(res.Tu).To(BeNumerically("~", t0, 1e-9))
			Expect(res.Ku).To(BeNumerically("~", ku, 1e-9))

			g := pid.Gains()
			Expect(g.Kp).To(BeNumerically("~", kp*ku, 1e-9))
			Expect(g.Ki).To(BeNumerically("~", ki*ku/t0, 1e-9))
			Expect(g.Kd).To(BeNumerically("~", kd*ku*t0/8, 1e-9))
			Expect(res.Gains).To(Equal(g))

			Expect(res.Message).To(ContainSubstring(rule.String()))
			Expect(res.Message).To(ContainSubstring("Ku="))
			Expect(res.Message).To(ContainSubstring("Tu="))
			Expect(res.Message).To(ContainSubstring("Kp="))

			// the terminating tick already runs the new PID law on a fresh loop memory
			e := setpoint - squareWave(k, halfSteps, a0)
			Expect(u).To(BeNumerically("~", g.Kp*e+g.Ki*e*dt+g.Kd*e/dt, 1e-9))
		},
		Entry("classic Z-N", control.ClassicZN, 0.6, 1.2, 0.6),
		Entry("some overshoot", control.SomeOvershoot, 0.33, 0.66, 0.33),
		Entry("no overshoot", control.NoOvershoot, 0.2, 0.4, 0.2),
	)

	It("estimates the period and peak amplitude of a sampled sine", func() {
		const a0, t0, phase = 1.5, 2.0, 0.123
		pid.SetAmplitudeEstimator(control.PeakDeviation)
		pid.StartAutoTune(setpoint, control.NoOvershoot)

		sine := func(k int) float64 {
			t := float64(k) * dt
			return setpoint + a0*math.Sin(2*math.Pi*(t+phase)/t0)
		}
		_, _ = feed(pid, sine, 10000)
		Expect(pid.IsAutoTuning()).To(BeFalse())

		res := receive(pid)
		Expect(res.Success).To(BeTrue())
		Expect(res.Tu).To(BeNumerically("~", t0, dt))
		Expect(res.Ku).To(BeNumerically("~", 4*relayAmp/(math.Pi*a0), 0.05*4*relayAmp/(math.Pi*a0)))
	})

	It("records the deviation just before each crossing by default", func() {
		pid.StartAutoTune(setpoint, control.NoOvershoot)

		// +1 for one sample, then ramps through the setpoint in 0.25 steps
		// so the pre-crossing sample always sits 0.25 away
		pattern := []float64{1, 0.25, -1, -0.25}
		_, _ = feed(pid, func(k int) float64 { return setpoint + pattern[k%4]*1 }, 1000)

		res := receive(pid)
		Expect(res.Success).To(BeTrue())
		// crossings happen between pattern[1] and pattern[2], and pattern[3] and pattern[0]
		Expect(res.Ku).To(BeNumerically("~", 4*relayAmp/(math.Pi*0.25), 1e-9))
		Expect(res.Tu).To(BeNumerically("~", 4*dt, 1e-9))
	})

	It("reports progress in full cycles", func() {
		pid.StartAutoTune(setpoint, control.SomeOvershoot)
		_, _ = feed(pid, func(k int) float64 { return squareWave(k, 10, 2) }, 10*3+1)
		// crossings at k=10 (clock start), 20, 30 -> two recorded half-periods
		Expect(pid.IsAutoTuning()).To(BeTrue())
		Expect(pid.AutoTuneStatus()).To(Equal("Tuning (Some Overshoot (Balanced))... Cycle 2 of 3"))
	})

	Context("when the process never crosses the setpoint", func() {
		BeforeEach(func() {
			pid.StartAutoTune(setpoint, control.ClassicZN)
			_, _ = feed(pid, func(int) float64 { return setpoint + 10*hysteresis }, 5000)
		})

		It("keeps tuning indefinitely", func() {
			Expect(pid.IsAutoTuning()).To(BeTrue())
			Consistently(pid.Results()).ShouldNot(Receive())
		})

		It("aborts on reset with a failure and leaves gains unchanged", func() {
			pid.Reset()
			Expect(pid.IsAutoTuning()).To(BeFalse())

			res := receive(pid)
			Expect(res.Success).To(BeFalse())
			Expect(res.Err).To(MatchError(control.ErrTuneAborted))
			Expect(res.Message).NotTo(BeEmpty())

			Expect(pid.Gains()).To(Equal(control.Gains{Kp: 1.0, Ki: 0.1, Kd: 0.05}))
			last, ok := pid.LastResult()
			Expect(ok).To(BeTrue())
			Expect(last.Err).To(MatchError(control.ErrTuneAborted))
		})

		It("fails with insufficient cycles when stopped early", func() {
			Expect(pid.StopAutoTune()).To(BeTrue())

			res := receive(pid)
			Expect(res.Success).To(BeFalse())
			Expect(res.Err).To(MatchError(control.ErrInsufficientCycles))
			Expect(pid.Gains()).To(Equal(control.Gains{Kp: 1.0, Ki: 0.1, Kd: 0.05}))
		})
	})

	It("aborts a running tune when a new one starts", func() {
		pid.StartAutoTune(setpoint, control.ClassicZN)
		pid.StartAutoTune(setpoint, control.NoOvershoot)

		res := receive(pid)
		Expect(res.Err).To(MatchError(control.ErrTuneAborted))
		Expect(res.Rule).To(Equal(control.ClassicZN))
		Expect(pid.IsAutoTuning()).To(BeTrue())
		Expect(pid.AutoTuneStatus()).To(ContainSubstring("No Overshoot"))
	})

	It("returns to plain PID control after tuning", func() {
		pid.StartAutoTune(setpoint, control.NoOvershoot)
		_, _ = feed(pid, func(k int) float64 { return squareWave(k, 20, 2) }, 1000)
		Expect(pid.IsAutoTuning()).To(BeFalse())

		pid.Reset()
		Expect(pid.Calculate(setpoint, setpoint, 0)).To(BeZero())
	})
})
