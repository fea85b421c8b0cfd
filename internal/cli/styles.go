package cli

import (
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/HendryAvila/semantic-hooks/internal/semantic"
)

// styles renders for one writer. A writer that is not a terminal gets
// plain text.
type styles struct {
	title lipgloss.Style
	dim   lipgloss.Style
	ok    lipgloss.Style
	bad   lipgloss.Style
	zones map[semantic.Zone]lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		title: r.NewStyle().Bold(true),
		dim:   r.NewStyle().Faint(true),
		ok:    r.NewStyle().Foreground(lipgloss.Color("10")),
		bad:   r.NewStyle().Foreground(lipgloss.Color("9")),
		zones: map[semantic.Zone]lipgloss.Style{
			semantic.ZoneSafe:         r.NewStyle().Foreground(lipgloss.Color("10")),
			semantic.ZoneTransitional: r.NewStyle().Foreground(lipgloss.Color("11")),
			semantic.ZoneRisk:         r.NewStyle().Foreground(lipgloss.Color("208")),
			semantic.ZoneDanger:       r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		},
	}
}

func (s styles) zone(z semantic.Zone, text string) string {
	if st, ok := s.zones[z]; ok {
		return st.Render(text)
	}
	return text
}
