package viz

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/loopsim/internal/config"
	"github.com/san-kum/loopsim/internal/experiment"
)

const (
	stateMenu = iota
	stateSim
)

type presetEntry struct {
	group, name string
	cfg         *config.Config
}

// picker lists the presets and opens a live view on the chosen one.
type picker struct {
	state    int
	cursor   int
	entries  []presetEntry
	registry *experiment.Registry
	save     SaveFunc
	live     LiveModel
	err      error
}

func NewPicker(reg *experiment.Registry, save SaveFunc) tea.Model {
	p := &picker{registry: reg, save: save}
	for _, group := range config.ListGroups() {
		for _, name := range config.ListPresets(group) {
			p.entries = append(p.entries, presetEntry{group: group, name: name, cfg: config.GetPreset(group, name)})
		}
	}
	return p
}

func (p *picker) Init() tea.Cmd { return nil }

func (p *picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if p.state == stateSim {
		if k, ok := msg.(tea.KeyMsg); ok && k.String() == "esc" {
			p.state = stateMenu
			return p, nil
		}
		next, cmd := p.live.Update(msg)
		p.live = next.(LiveModel)
		return p, cmd
	}

	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return p, nil
	}
	switch k.String() {
	case "q", "ctrl+c":
		return p, tea.Quit
	case "up", "k":
		if p.cursor > 0 {
			p.cursor--
		}
	case "down", "j":
		if p.cursor < len(p.entries)-1 {
			p.cursor++
		}
	case "enter", " ":
		return p, p.start(p.entries[p.cursor].cfg)
	}
	return p, nil
}

func (p *picker) start(cfg *config.Config) tea.Cmd {
	exp := experiment.New(cfg, p.registry)
	s, err := exp.Build()
	if err != nil {
		p.err = err
		return nil
	}
	simCfg, err := cfg.SimConfig()
	if err != nil {
		p.err = err
		return nil
	}
	rule, err := cfg.Rule()
	if err != nil {
		p.err = err
		return nil
	}
	live, err := NewLiveModel(s, simCfg, rule, p.save)
	if err != nil {
		p.err = err
		return nil
	}
	p.live, p.state, p.err = live, stateSim, nil
	return live.Init()
}

func (p *picker) View() string {
	if p.state == stateSim {
		return p.live.View()
	}

	st := themed(CurrentTheme)
	var b strings.Builder
	b.WriteString("\n  " + st.Header.Render("LOOPSIM") + "\n  " + st.KeyHint.Render("pick a plant") + "\n\n")
	for i, e := range p.entries {
		label := fmt.Sprintf("%-14s %-12s", e.group, e.name)
		desc := fmt.Sprintf("dt=%.3g  %.0fs", e.cfg.Dt, e.cfg.Duration)
		if i == p.cursor {
			b.WriteString("  " + st.Active.Render("▸ "+label) + " " + st.Value.Render(desc) + "\n")
		} else {
			b.WriteString("    " + st.Label.Render(label) + " " + st.KeyHint.Render(desc) + "\n")
		}
	}
	if p.err != nil {
		b.WriteString("\n  " + st.Failure.Render(p.err.Error()) + "\n")
	}
	b.WriteString("\n  " + st.KeyHint.Render("j/k navigate  enter start  esc back  q quit") + "\n")
	return b.String()
}

// RunInteractive opens the preset picker full screen.
func RunInteractive(reg *experiment.Registry, save SaveFunc) error {
	_, err := tea.NewProgram(NewPicker(reg, save), tea.WithAltScreen()).Run()
	return err
}

// RunLive opens a live view on an already built simulator.
func RunLive(m LiveModel) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
