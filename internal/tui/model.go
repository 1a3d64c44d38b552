// Package tui is a terminal day view over the schedule manager: the
// confirmed schedules of a day, the pending queue and the day summary.
package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/agenda/internal/manager"
	"github.com/julianstephens/agenda/internal/tui/components/schedulelist"
	"github.com/julianstephens/agenda/internal/tui/components/summary"
	"github.com/julianstephens/agenda/internal/utils"
)

type SessionState int

const (
	StateDay SessionState = iota
	StatePending
	StateSummary
	StateConfirmDelete
)

const tabCount = 3

var tabTitles = []string{"Day", "Pending", "Summary"}

type Model struct {
	mgr          *manager.Manager
	now          func() time.Time
	date         time.Time
	state        SessionState
	keys         KeyMap
	help         help.Model
	dayList      schedulelist.Model
	pendingList  schedulelist.Model
	summaryView  summary.Model
	toDelete     schedulelist.DeleteMsg
	lastConflict string // id of the last confirm that hit a tie
	status       string
	statusErr    bool
	quitting     bool
	width        int
	height       int
}

// NewModel opens on date, or on today per now when date is zero
func NewModel(mgr *manager.Manager, date time.Time, now func() time.Time) Model {
	if now == nil {
		now = time.Now
	}
	if date.IsZero() {
		date = now()
	}

	m := Model{
		mgr:         mgr,
		now:         now,
		date:        utils.DateOnly(date),
		state:       StateDay,
		keys:        DefaultKeyMap(),
		help:        help.New(),
		dayList:     schedulelist.New("Day", false, 0, 0),
		pendingList: schedulelist.New("Pending", true, 0, 0),
		summaryView: summary.New(0, 0),
	}
	m.refresh()
	return m
}

func (m Model) Date() time.Time {
	return m.date
}

func (m Model) State() SessionState {
	return m.state
}

func (m Model) Status() string {
	return m.status
}

func (m Model) ShortHelp() []key.Binding {
	return m.keys.ShortHelp()
}

func (m Model) FullHelp() [][]key.Binding {
	return m.keys.FullHelp()
}

func (m Model) Init() tea.Cmd {
	return nil
}

// refresh reloads every tab from the manager for the current date
func (m *Model) refresh() {
	day, err := m.mgr.SchedulesForDate(m.date)
	if err != nil {
		m.setError(err)
		return
	}
	m.dayList.SetSchedules(day)

	pending, err := m.mgr.Pending()
	if err != nil {
		m.setError(err)
		return
	}
	m.pendingList.SetSchedules(pending)

	m.summaryView.SetText(manager.FormatSummary(m.date, day))
}

func (m *Model) setStatus(msg string) {
	m.status = msg
	m.statusErr = false
}

func (m *Model) setError(err error) {
	m.status = err.Error()
	m.statusErr = true
}

func (m *Model) resize() {
	h := m.height - 6
	if h < 0 {
		h = 0
	}
	w := m.width - 4
	if w < 0 {
		w = 0
	}
	m.dayList.SetSize(w, h)
	m.pendingList.SetSize(w, h)
	m.summaryView.SetSize(w, h)
}
