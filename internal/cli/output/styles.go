package output

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles used in text mode.
type Styles struct {
	Header1       lipgloss.Style
	Header2       lipgloss.Style
	Bold          lipgloss.Style
	Muted         lipgloss.Style
	Info          lipgloss.Style
	Success       lipgloss.Style
	Warning       lipgloss.Style
	Error         lipgloss.Style
	StatusSuccess lipgloss.Style
	StatusFailed  lipgloss.Style
	ToolID        lipgloss.Style
	Field         lipgloss.Style
}

// NewStyles builds the styles for a lipgloss renderer. The renderer's color
// profile decides whether escape codes are emitted.
func NewStyles(lr *lipgloss.Renderer) *Styles {
	return &Styles{
		Header1:       lr.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		Header2:       lr.NewStyle().Bold(true),
		Bold:          lr.NewStyle().Bold(true),
		Muted:         lr.NewStyle().Foreground(lipgloss.Color("8")),
		Info:          lr.NewStyle().Foreground(lipgloss.Color("14")),
		Success:       lr.NewStyle().Foreground(lipgloss.Color("10")),
		Warning:       lr.NewStyle().Foreground(lipgloss.Color("11")),
		Error:         lr.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		StatusSuccess: lr.NewStyle().Foreground(lipgloss.Color("10")),
		StatusFailed:  lr.NewStyle().Foreground(lipgloss.Color("9")),
		ToolID:        lr.NewStyle().Foreground(lipgloss.Color("13")),
		Field:         lr.NewStyle().Foreground(lipgloss.Color("14")),
	}
}
