package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type styles struct {
	Header    lipgloss.Style
	Label     lipgloss.Style
	Value     lipgloss.Style
	Active    lipgloss.Style
	Running   lipgloss.Style
	Paused    lipgloss.Style
	Tuning    lipgloss.Style
	Message   lipgloss.Style
	Failure   lipgloss.Style
	KeyHint   lipgloss.Style
	Panel     lipgloss.Style
	SparkHigh lipgloss.Style
	SparkMid  lipgloss.Style
	SparkLow  lipgloss.Style
}

// themed builds the styles for t.
func themed(t Theme) styles {
	return styles{
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(t.Primary).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(t.Muted),
		Label:   lipgloss.NewStyle().Foreground(t.Muted),
		Value:   lipgloss.NewStyle().Foreground(t.Text),
		Active:  lipgloss.NewStyle().Foreground(t.Secondary).Bold(true),
		Running: lipgloss.NewStyle().Foreground(t.Success).Bold(true),
		Paused:  lipgloss.NewStyle().Foreground(t.Warning).Bold(true),
		Tuning:  lipgloss.NewStyle().Foreground(t.Accent).Bold(true),
		Message: lipgloss.NewStyle().Foreground(t.Success),
		Failure: lipgloss.NewStyle().Foreground(t.Error),
		KeyHint: lipgloss.NewStyle().Foreground(t.Muted).Italic(true),
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Muted).
			Padding(0, 1),
		SparkHigh: lipgloss.NewStyle().Foreground(t.Success),
		SparkMid:  lipgloss.NewStyle().Foreground(t.Warning),
		SparkLow:  lipgloss.NewStyle().Foreground(t.Error),
	}
}

// ProgressBar renders a bar filled to percent (0..1).
func ProgressBar(st styles, percent float64, width int) string {
	filled := int(percent * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)

	if percent > 0.8 {
		return st.SparkHigh.Render(bar)
	} else if percent > 0.4 {
		return st.SparkMid.Render(bar)
	}
	return st.SparkLow.Render(bar)
}

// SparklineChart renders a mini sparkline from values
func SparklineChart(st styles, values []float64, width int) string {
	if len(values) == 0 {
		return strings.Repeat("─", width)
	}

	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	// newest samples win when there are more values than columns
	if len(values) > width {
		values = values[len(values)-width:]
	}

	lo, hi := bounds(values)
	rng := hi - lo
	if rng == 0 {
		rng = 1
	}

	var result strings.Builder
	for _, v := range values {
		norm := (v - lo) / rng
		if !finite(norm) {
			norm = 0
		}
		idx := int(norm * float64(len(chars)-1))
		idx = max(0, min(idx, len(chars)-1))

		c := string(chars[idx])
		switch {
		case norm > 0.7:
			result.WriteString(st.SparkHigh.Render(c))
		case norm > 0.3:
			result.WriteString(st.SparkMid.Render(c))
		default:
			result.WriteString(st.SparkLow.Render(c))
		}
	}

	return result.String()
}
