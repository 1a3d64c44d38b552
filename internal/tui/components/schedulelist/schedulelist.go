package schedulelist

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/agenda/internal/manager"
	"github.com/julianstephens/agenda/internal/models"
)

type ConfirmMsg struct {
	ID string
}

type RejectMsg struct {
	ID string
}

type DeleteMsg struct {
	ID    string
	Title string
}

type Item struct {
	Schedule models.Schedule
}

func (i Item) Title() string {
	return manager.FormatEntry(i.Schedule)
}

func (i Item) Description() string {
	desc := fmt.Sprintf("%s | %s | %s", i.Schedule.Type, i.Schedule.Priority, manager.BucketFor(i.Schedule))
	if i.Schedule.IsRecurring() {
		desc += " | " + string(i.Schedule.Recurrence.Pattern)
	}
	if !i.Schedule.IsConfirmed() {
		desc += " | " + i.Schedule.Date
	}
	return desc
}

func (i Item) FilterValue() string { return i.Schedule.Title }

type KeyMap struct {
	Confirm key.Binding
	Reject  key.Binding
	Delete  key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Confirm: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "confirm"),
		),
		Reject: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "reject"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
	}
}

// Model lists schedules. Pending lists offer confirm/reject, the others
// offer delete.
type Model struct {
	list    list.Model
	keys    KeyMap
	pending bool
	empty   string
}

func New(title string, pending bool, width, height int) Model {
	l := list.New(nil, list.NewDefaultDelegate(), width, height)
	l.Title = title
	l.SetShowTitle(false)
	l.SetShowHelp(false)

	keys := DefaultKeyMap()
	actions := []key.Binding{keys.Delete}
	empty := "\n  No schedules on this day."
	if pending {
		actions = []key.Binding{keys.Confirm, keys.Reject}
		empty = "\n  Nothing awaiting confirmation."
	}
	l.AdditionalShortHelpKeys = func() []key.Binding { return actions }
	l.AdditionalFullHelpKeys = func() []key.Binding { return actions }

	return Model{list: l, keys: keys, pending: pending, empty: empty}
}

func (m *Model) SetSchedules(schedules []models.Schedule) {
	items := make([]list.Item, len(schedules))
	for i, s := range schedules {
		items[i] = Item{Schedule: s}
	}
	m.list.SetItems(items)
}

func (m Model) Len() int {
	return len(m.list.Items())
}

func (m Model) Selected() (models.Schedule, bool) {
	i, ok := m.list.SelectedItem().(Item)
	return i.Schedule, ok
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && m.list.FilterState() != list.Filtering {
		s, selected := m.Selected()
		switch {
		case !selected:
		case m.pending && key.Matches(msg, m.keys.Confirm):
			return m, func() tea.Msg { return ConfirmMsg{ID: s.ID} }
		case m.pending && key.Matches(msg, m.keys.Reject):
			return m, func() tea.Msg { return RejectMsg{ID: s.ID} }
		case !m.pending && key.Matches(msg, m.keys.Delete):
			return m, func() tea.Msg { return DeleteMsg{ID: s.ID, Title: s.Title} }
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if len(m.list.Items()) == 0 && m.list.FilterState() != list.Filtering {
		return m.empty
	}
	return m.list.View()
}

func (m *Model) SetSize(width, height int) {
	m.list.SetSize(width, height)
}
