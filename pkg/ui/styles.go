package ui

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	Primary   = lipgloss.Color("#7D56F4") // Purple - brand color
	Secondary = lipgloss.Color("#00D4AA") // Teal

	Success = lipgloss.Color("#00D26A")
	Warning = lipgloss.Color("#FFB800")
	Error   = lipgloss.Color("#FF3838")
	Muted   = lipgloss.Color("#6B7280")
	Light   = lipgloss.Color("#FAFAFA")
	Badge   = lipgloss.Color("#3B3B4F")
)

// Styles is the set of styles a Printer renders with. Every style is
// bound to the Printer's renderer so colour decisions follow its writer.
type Styles struct {
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Section  lipgloss.Style
	Label    lipgloss.Style
	Value    lipgloss.Style
	Header   lipgloss.Style
	Cell     lipgloss.Style
	Border   lipgloss.Style
	Enabled  lipgloss.Style
	Disabled lipgloss.Style
	Locked   lipgloss.Style
	Success  lipgloss.Style
	Warning  lipgloss.Style
	Error    lipgloss.Style
	Muted    lipgloss.Style
	Badge    lipgloss.Style
	Added    lipgloss.Style
	Removed  lipgloss.Style
	Hunk     lipgloss.Style
}

// NewStyles builds the palette on r.
func NewStyles(r *lipgloss.Renderer) Styles {
	return Styles{
		Title: r.NewStyle().
			Bold(true).
			Foreground(Light).
			Background(Primary).
			Padding(0, 1),
		Subtitle: r.NewStyle().
			Foreground(Muted).
			Italic(true),
		Section: r.NewStyle().
			Foreground(Secondary).
			Bold(true).
			MarginTop(1),
		Label: r.NewStyle().
			Foreground(Muted).
			Width(16),
		Value:    r.NewStyle(),
		Header:   r.NewStyle().Bold(true).Foreground(Primary).Padding(0, 1),
		Cell:     r.NewStyle().Padding(0, 1),
		Border:   r.NewStyle().Foreground(Muted),
		Enabled:  r.NewStyle().Bold(true).Foreground(Success),
		Disabled: r.NewStyle().Foreground(Muted),
		Locked:   r.NewStyle().Bold(true).Foreground(Warning),
		Success:  r.NewStyle().Bold(true).Foreground(Success),
		Warning:  r.NewStyle().Bold(true).Foreground(Warning),
		Error:    r.NewStyle().Bold(true).Foreground(Error),
		Muted:    r.NewStyle().Foreground(Muted),
		Badge: r.NewStyle().
			Foreground(Light).
			Background(Badge).
			Padding(0, 1),
		Added:   r.NewStyle().Foreground(Success),
		Removed: r.NewStyle().Foreground(Error),
		Hunk:    r.NewStyle().Foreground(Secondary),
	}
}
