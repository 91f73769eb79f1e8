package viz

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/loopsim/internal/control"
	"github.com/san-kum/loopsim/internal/run"
	"github.com/san-kum/loopsim/internal/sim"
)

const (
	historyCapacity = 600
	frameRate       = 30
	graphWidth      = 60
	graphHeight     = 12
)

type TickMsg time.Time

// SaveFunc stores a finished or paused session.
type SaveFunc func(res *sim.Result) (string, error)

// LiveModel steps a simulator on a timer and charts it.
type LiveModel struct {
	sim   *sim.Simulator
	cfg   sim.Config
	sess  *sim.Session
	tuner sim.Tuner
	rule  control.TuningRule
	save  SaveFunc

	pv, sp, out []float64
	phase       []run.DataPoint

	running      bool
	stepsPerTick int
	message      string
	failed       bool
	tuneShown    bool
	paramKeys    []string
	selected     int
	showHelp     bool
	showPhase    bool
	err          error
}

// NewLiveModel starts a session immediately. save may be nil.
func NewLiveModel(s *sim.Simulator, cfg sim.Config, rule control.TuningRule, save SaveFunc) (LiveModel, error) {
	m := LiveModel{
		sim:          s,
		cfg:          cfg,
		rule:         rule,
		save:         save,
		running:      true,
		stepsPerTick: 1,
		paramKeys:    s.Controller().ParameterNames(),
	}
	if t, ok := s.Controller().(sim.Tuner); ok {
		m.tuner = t
	}
	sort.Strings(m.paramKeys)
	if err := m.restart(); err != nil {
		return m, err
	}
	return m, nil
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/frameRate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m LiveModel) Init() tea.Cmd {
	return tick()
}

// Update handles input events and steps the simulation.
func (m LiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.sim.Reset()
			m.err = m.restart()
			m.running = true
		case "a":
			m.startTune()
		case "n":
			m.rule = nextRule(m.rule)
		case "s":
			m.saveRun()
		case "tab":
			if len(m.paramKeys) > 0 {
				m.selected = (m.selected + 1) % len(m.paramKeys)
			}
		case "up", "k":
			m.adjustParam(1.05)
		case "down", "j":
			m.adjustParam(0.95)
		case "+", "=":
			m.stepsPerTick = min(m.stepsPerTick*2, 64)
		case "-", "_":
			m.stepsPerTick = max(m.stepsPerTick/2, 1)
		case "p":
			m.showPhase = !m.showPhase
		case "t":
			NextTheme()
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.running {
			m.advance(m.stepsPerTick)
		}
		return m, tick()
	}
	return m, nil
}

// restart begins a new session from a reset plant.
func (m *LiveModel) restart() error {
	sess, err := m.sim.Begin(m.cfg)
	if err != nil {
		return err
	}
	m.sess = sess
	m.pv, m.sp, m.out, m.phase = m.pv[:0], m.sp[:0], m.out[:0], m.phase[:0]
	m.tuneShown = false
	return nil
}

func (m *LiveModel) startTune() {
	if m.tuner == nil {
		m.message, m.failed = m.sim.Controller().Name()+" cannot auto-tune", true
		return
	}
	m.tuner.StartAutoTune(m.cfg.Setpoint, m.rule)
	m.message, m.failed = "", false
	m.err = m.restart()
	m.running = true
}

func (m *LiveModel) advance(steps int) {
	for i := 0; i < steps; i++ {
		if m.sess == nil || m.sess.Done() {
			m.running = false
			m.complete()
			return
		}
		m.record(m.sess.Step())
		if res, ok := m.sess.Tune(); ok {
			m.showTune(res)
		}
	}
}

const completeHint = "Run complete. Press r to restart or s to save."

// complete ends a tune the run was too short for and keeps its result
// visible alongside the completion hint.
func (m *LiveModel) complete() {
	if m.sess != nil {
		if res, ok := m.sess.StopTune(); ok {
			m.showTune(res)
		}
	}
	switch {
	case !m.tuneShown:
		m.message, m.failed = completeHint, false
	case !strings.HasSuffix(m.message, completeHint):
		m.message += " " + completeHint
	}
}

func (m *LiveModel) showTune(res control.TuneResult) {
	if m.tuneShown {
		return
	}
	m.tuneShown = true
	m.message, m.failed = res.Message, !res.Success
}

func (m *LiveModel) record(p run.DataPoint) {
	push := func(buf []float64, v float64) []float64 {
		buf = append(buf, v)
		if len(buf) > historyCapacity {
			buf = buf[1:]
		}
		return buf
	}
	m.pv = push(m.pv, p.PV)
	m.sp = push(m.sp, p.Setpoint)
	m.out = push(m.out, p.Output)
	m.phase = append(m.phase, p)
	if len(m.phase) > historyCapacity {
		m.phase = m.phase[1:]
	}
}

func nextRule(r control.TuningRule) control.TuningRule {
	rules := control.TuningRules()
	for i, rule := range rules {
		if rule == r {
			return rules[(i+1)%len(rules)]
		}
	}
	return rules[0]
}

func (m *LiveModel) adjustParam(factor float64) {
	if len(m.paramKeys) == 0 {
		return
	}
	ctrl := m.sim.Controller()
	key := m.paramKeys[m.selected]
	val := ctrl.Parameters()[key]
	if val == 0 {
		val = 1e-3
	}
	ctrl.SetParameters(map[string]float64{key: val * factor})
}

func (m *LiveModel) saveRun() {
	if m.save == nil || m.sess == nil {
		m.message, m.failed = "Saving is not available.", true
		return
	}
	name, err := m.save(m.sess.Result())
	if err != nil {
		m.message, m.failed = "Save failed: "+err.Error(), true
		return
	}
	m.message, m.failed = fmt.Sprintf("Saved run %q", name), false
}

// Running reports whether the timer is stepping the simulation.
func (m LiveModel) Running() bool { return m.running }

func (m LiveModel) Message() string { return m.message }

func (m LiveModel) Session() *sim.Session { return m.sess }

func (m LiveModel) Rule() control.TuningRule { return m.rule }

func (m LiveModel) status(st styles) string {
	switch {
	case m.sim.Controller().IsAutoTuning():
		return st.Tuning.Render(m.tuner.AutoTuneStatus())
	case !m.running:
		return st.Paused.Render("PAUSED")
	default:
		return st.Running.Render(fmt.Sprintf("RUNNING x%d", m.stepsPerTick))
	}
}

// View renders the TUI interface.
func (m LiveModel) View() string {
	st := themed(CurrentTheme)

	var left strings.Builder
	left.WriteString(st.Header.Render(m.sim.Plant().Name()+"  ·  "+m.sim.Controller().Name()) + "\n")
	left.WriteString(m.status(st) + "\n\n")

	if m.showPhase && len(m.phase) > 1 {
		left.WriteString(PhasePlot(m.phase, graphWidth/2, graphHeight/2))
		left.WriteString(st.KeyHint.Render("error vs output") + "\n")
	} else if len(m.pv) > 1 {
		chart := asciigraph.PlotMany([][]float64{m.pv, m.sp},
			asciigraph.Height(graphHeight),
			asciigraph.Width(graphWidth),
			asciigraph.SeriesColors(CurrentTheme.PV, CurrentTheme.Setpoint),
			asciigraph.Caption("PV / setpoint"))
		left.WriteString(chart + "\n")
	}
	left.WriteString("\n" + st.Label.Render("output   ") + SparklineChart(st, m.out, graphWidth) + "\n")
	if m.sess != nil {
		left.WriteString(st.Label.Render("progress ") + ProgressBar(st, float64(len(m.sess.Samples()))/float64(m.cfg.Steps()), 30) + "\n")
	}

	var right strings.Builder
	right.WriteString(st.Header.Render("LOOP") + "\n")
	row := func(label, value string) {
		right.WriteString(st.Label.Render(fmt.Sprintf("%-15s", label)) + st.Value.Render(value) + "\n")
	}
	if m.sess != nil {
		row("Time", fmt.Sprintf("%.2fs", m.sess.Time()))
	}
	if n := len(m.pv); n > 0 {
		row("PV", fmt.Sprintf("%.3f", m.pv[n-1]))
		row("Setpoint", fmt.Sprintf("%.3f", m.sp[n-1]))
		row("Output", fmt.Sprintf("%.3f", m.out[n-1]))
	}
	if m.sess != nil {
		metrics := m.sess.Metrics()
		names := make([]string, 0, len(metrics))
		for k := range metrics {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			row(k, fmt.Sprintf("%.3f", metrics[k]))
		}
	}

	right.WriteString("\n" + st.Header.Render("PARAMETERS") + "\n")
	params := m.sim.Controller().Parameters()
	for i, k := range m.paramKeys {
		line := fmt.Sprintf("%-4s %8.4f", k, params[k])
		if i == m.selected {
			right.WriteString(st.Active.Render("> "+line) + "\n")
		} else {
			right.WriteString("  " + st.Value.Render(line) + "\n")
		}
	}
	row("Rule", m.rule.String())

	if m.message != "" {
		msgStyle := st.Message
		if m.failed {
			msgStyle = st.Failure
		}
		right.WriteString("\n" + msgStyle.Width(40).Render(m.message) + "\n")
	}
	if m.err != nil {
		right.WriteString("\n" + st.Failure.Render(m.err.Error()) + "\n")
	}

	right.WriteString("\n" + st.KeyHint.Render("space pause  a tune  r reset  q quit  ? help"))

	view := lipgloss.JoinHorizontal(lipgloss.Top, left.String(), "  ", st.Panel.Render(right.String()))
	if m.showHelp {
		return st.Panel.Render(helpText) + "\n" + view
	}
	return view
}

const helpText = `KEYBOARD SHORTCUTS
  Space    Pause/Resume simulation
  A        Start relay auto-tune
  N        Next tuning rule
  R        Reset (aborts a running tune)
  S        Save run
  Tab      Cycle parameters
  Up/K     Increase parameter (+5%)
  Down/J   Decrease parameter (-5%)
  +/-      Faster / slower
  P        Toggle error/output phase view
  T        Cycle themes
  ?        Toggle this help
  Q        Quit`
