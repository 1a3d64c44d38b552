package summary

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	bucketStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Underline(true)

	entryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	emptyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

// Model shows the plain-text day summary in a scrollable viewport
type Model struct {
	viewport viewport.Model
	text     string
}

func New(width, height int) Model {
	return Model{viewport: viewport.New(width, height)}
}

func (m *Model) SetText(text string) {
	m.text = text
	m.viewport.SetContent(Render(text))
	m.viewport.GotoTop()
}

func (m Model) Text() string {
	return m.text
}

// Render styles the summary line by line: header, bucket labels, entries
func Render(text string) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	out := make([]string, 0, len(lines))
	for i, line := range lines {
		switch {
		case i == 0:
			out = append(out, headerStyle.Render(line))
		case strings.HasPrefix(line, "  "):
			out = append(out, entryStyle.Render(line))
		case strings.HasSuffix(line, ":"):
			out = append(out, bucketStyle.Render(line))
		default:
			out = append(out, emptyStyle.Render(line))
		}
	}
	return strings.Join(out, "\n")
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	return m.viewport.View()
}

func (m *Model) SetSize(width, height int) {
	m.viewport.Width = width
	m.viewport.Height = height
}
