package tui

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"indicadores/cmd/indicadores/ui"
	"indicadores/internal/catalog"
	"indicadores/internal/selection"
)

// Layout rows outside the result viewport: header, input panel, checklist
// panel, status line and footer.
const chromeHeight = 8

// Update handles incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = max(msg.Width, 0), max(msg.Height, 0)
		m.ready = true
		m.viewport.Width = max(m.width-4, 20)
		m.viewport.Height = max(m.height-chromeHeight-catalog.Len(), 3)
		m.input.Width = max(m.width-8, 10)
		m.renderer = ui.NewRenderer(m.styles.Theme, m.viewport.Width-2)
		m.refreshResult()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if m.inflight == 0 {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case submitResultMsg:
		m.inflight = max(m.inflight-1, 0)
		if msg.outcome.Kind == selection.OutcomeSuperseded {
			return m, nil
		}
		m.refreshResult()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.adapter.Cancel()
		return m, tea.Quit

	case "tab", "shift+tab":
		if m.focus == focusInput {
			m.focus = focusIndicators
			m.input.Blur()
		} else {
			m.focus = focusInput
			return m, m.input.Focus()
		}
		return m, nil

	case "ctrl+r":
		m.showHistory = !m.showHistory
		m.refreshResult()
		return m, nil

	case "enter":
		m.adapter.SetRawText(m.input.Value())
		m.showHistory = false
		m.inflight++
		m.refreshResult()
		return m, tea.Batch(m.spinner.Tick, m.submit())

	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	if m.focus == focusIndicators {
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < catalog.Len()-1 {
				m.cursor++
			}
		case " ", "x":
			id := catalog.All()[m.cursor].ID
			_, _ = m.adapter.Toggle(id)
		case "ctrl+l":
			m.adapter.ClearSelection()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.adapter.SetRawText(m.input.Value())
	return m, cmd
}

// refreshResult redraws the result panel from the adapter state.
func (m *Model) refreshResult() {
	if m.showHistory {
		m.viewport.SetContent(m.renderHistory())
	} else {
		m.viewport.SetContent(m.renderResult(m.adapter.Snapshot()))
	}
	m.viewport.GotoTop()
}
