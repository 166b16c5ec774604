package color

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
)

// Styles groups the semantic styles used by console reporters.
type Styles struct {
	Success lipgloss.Style
	Failure lipgloss.Style
	Warning lipgloss.Style
	Muted   lipgloss.Style
	Header  lipgloss.Style
}

var (
	successColor = lipgloss.AdaptiveColor{Light: "#00875A", Dark: "#36B37E"}
	failureColor = lipgloss.AdaptiveColor{Light: "#BF2600", Dark: "#FF5630"}
	warningColor = lipgloss.AdaptiveColor{Light: "#B76E00", Dark: "#FFAB00"}
	mutedColor   = lipgloss.AdaptiveColor{Light: "#6B778C", Dark: "#8993A4"}
)

// NewStyles returns styles rendering for w. With enabled set to false, or
// NO_COLOR set in the environment, every style renders plain text.
func NewStyles(w io.Writer, enabled bool) Styles {
	if !enabled || os.Getenv("NO_COLOR") != "" {
		return Plain()
	}

	r := lipgloss.NewRenderer(w)
	return Styles{
		Success: r.NewStyle().Foreground(successColor),
		Failure: r.NewStyle().Foreground(failureColor).Bold(true),
		Warning: r.NewStyle().Foreground(warningColor),
		Muted:   r.NewStyle().Foreground(mutedColor),
		Header:  r.NewStyle().Bold(true),
	}
}

// Plain returns styles that leave text untouched.
func Plain() Styles {
	plain := lipgloss.NewStyle()
	return Styles{
		Success: plain,
		Failure: plain,
		Warning: plain,
		Muted:   plain,
		Header:  plain,
	}
}
