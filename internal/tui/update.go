package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/agenda/internal/conflict"
	"github.com/julianstephens/agenda/internal/manager"
	"github.com/julianstephens/agenda/internal/tui/components/schedulelist"
	"github.com/julianstephens/agenda/internal/utils"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.resize()
		return m, nil

	case schedulelist.ConfirmMsg:
		m.confirm(msg.ID, false)
		return m, nil

	case schedulelist.RejectMsg:
		if err := m.mgr.Reject(msg.ID); err != nil {
			m.setError(err)
		} else {
			m.setStatus("Rejected.")
		}
		m.refresh()
		return m, nil

	case schedulelist.DeleteMsg:
		m.toDelete = msg
		m.state = StateConfirmDelete
		return m, nil

	case tea.KeyMsg:
		if m.state == StateConfirmDelete {
			return m.updateConfirmDelete(msg)
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(msg, m.keys.Tab):
			m.state = (m.state + 1) % tabCount
			return m, nil
		case key.Matches(msg, m.keys.ShiftTab):
			m.state = (m.state - 1 + tabCount) % tabCount
			return m, nil
		case key.Matches(msg, m.keys.PrevDay):
			m.date = m.date.AddDate(0, 0, -1)
			m.refresh()
			return m, nil
		case key.Matches(msg, m.keys.NextDay):
			m.date = m.date.AddDate(0, 0, 1)
			m.refresh()
			return m, nil
		case key.Matches(msg, m.keys.Today):
			m.date = utils.DateOnly(m.now())
			m.refresh()
			return m, nil
		case key.Matches(msg, m.keys.Force):
			if m.lastConflict != "" {
				m.confirm(m.lastConflict, true)
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	switch m.state {
	case StateDay:
		m.dayList, cmd = m.dayList.Update(msg)
	case StatePending:
		m.pendingList, cmd = m.pendingList.Update(msg)
	case StateSummary:
		m.summaryView, cmd = m.summaryView.Update(msg)
	}
	return m, cmd
}

func (m *Model) confirm(id string, force bool) {
	var opts []manager.AddOption
	if force {
		opts = append(opts, manager.ForceOverride())
	}

	s, err := m.mgr.Confirm(id, opts...)
	m.lastConflict = ""
	switch ce, ok := conflict.AsConflict(err); {
	case err == nil:
		m.setStatus(fmt.Sprintf("Confirmed %q.", s.Title))
	case ok && ce.Ambiguous():
		m.lastConflict = id
		m.setError(fmt.Errorf("%v (press f to override)", err))
	default:
		m.setError(err)
	}
	m.refresh()
}

func (m Model) updateConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Yes):
		if err := m.mgr.Delete(m.toDelete.ID); err != nil {
			m.setError(err)
		} else {
			m.setStatus(fmt.Sprintf("Deleted %q.", m.toDelete.Title))
		}
		m.state = StateDay
		m.refresh()
	case key.Matches(msg, m.keys.No):
		m.state = StateDay
	}
	return m, nil
}
