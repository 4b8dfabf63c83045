package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"indicadores/cmd/indicadores/ui"
	"indicadores/internal/backend"
	"indicadores/internal/catalog"
	"indicadores/internal/selection"
)

// View renders the form.
func (m Model) View() string {
	snap := m.adapter.Snapshot()

	inputPanel := m.styles.Panel
	listPanel := m.styles.Panel
	if m.focus == focusInput {
		inputPanel = m.styles.Focus
	} else {
		listPanel = m.styles.Focus
	}

	sections := []string{
		m.styles.Header.Render("Indicadores"),
		inputPanel.Render(m.input.View() + "\n" + m.renderNumbers()),
		listPanel.Render(m.renderChecklist(snap.Selected)),
		m.renderStatus(snap),
		m.styles.Panel.Render(m.viewport.View()),
		m.styles.Footer.Render("tab foco • ↑/↓ mover • espaço marcar • enter enviar • ctrl+r histórico • esc sair"),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderNumbers previews what the raw text parses to.
func (m Model) renderNumbers() string {
	numbers := selection.ParseNumbers(m.input.Value())
	if len(numbers) == 0 {
		return m.styles.Muted.Render("nenhuma dezena")
	}
	parts := make([]string, len(numbers))
	for i, n := range numbers {
		parts[i] = fmt.Sprintf("%02d", n)
	}
	return m.styles.Muted.Render("dezenas: ") + m.styles.Numbers.Render(strings.Join(parts, " "))
}

func (m Model) renderChecklist(selected []string) string {
	chosen := make(map[string]bool, len(selected))
	for _, id := range selected {
		chosen[id] = true
	}

	var sb strings.Builder
	for i, ind := range catalog.All() {
		cursor := "  "
		if m.focus == focusIndicators && i == m.cursor {
			cursor = m.styles.Cursor.Render("▸ ")
		}
		box := "[ ]"
		label := m.styles.Body.Render(ind.Label)
		if chosen[ind.ID] {
			box = m.styles.Checked.Render("[x]")
			label = m.styles.Selected.Render(ind.Label)
		}
		sb.WriteString(cursor + box + " " + label)
		if i < catalog.Len()-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func (m Model) renderStatus(snap selection.State) string {
	if m.inflight > 0 {
		return m.spinner.View() + m.styles.Info.Render(" consultando o backend...")
	}
	switch snap.Status {
	case selection.StatusDisplaying:
		return m.styles.Success.Render(fmt.Sprintf("✓ resultado #%d", snap.Seq))
	case selection.StatusFailed:
		return m.styles.Error.Render(fmt.Sprintf("✗ envio #%d falhou", snap.Seq))
	default:
		return m.styles.Muted.Render(fmt.Sprintf("%d indicador(es) selecionado(s)", len(snap.Selected)))
	}
}

// renderResult describes the latest completed submission.
func (m Model) renderResult(snap selection.State) string {
	switch snap.Status {
	case selection.StatusDisplaying:
		md := ui.PayloadMarkdown(snap.Result)
		key := ui.RenderKey(md, m.viewport.Width, m.styles.Theme.IsDark)
		return m.renders.GetOrCompute(key, func() string {
			return ui.Render(m.renderer, md)
		})
	case selection.StatusFailed:
		return m.renderError(snap.Err)
	default:
		return m.styles.Muted.Render("Digite as dezenas, marque os indicadores e pressione enter.")
	}
}

func (m Model) renderError(err error) string {
	title := "Falha na requisição"
	if kind, ok := backend.KindOf(err); ok && kind == backend.KindDecode {
		title = "Resposta inválida do backend"
	}

	var sb strings.Builder
	sb.WriteString(m.styles.Error.Render(title))
	sb.WriteString("\n")
	var berr *backend.Error
	if errors.As(err, &berr) && berr.StatusCode != 0 {
		sb.WriteString(m.styles.Warning.Render(fmt.Sprintf("HTTP %d", berr.StatusCode)))
		sb.WriteString("\n")
	}
	if err != nil {
		sb.WriteString(m.styles.Body.Render(err.Error()))
	}
	return sb.String()
}

func (m Model) renderHistory() string {
	if m.history == nil || m.history.Len() == 0 {
		return m.styles.Muted.Render("Nenhum envio nesta sessão.")
	}

	var sb strings.Builder
	sb.WriteString(m.styles.Title.Render("Histórico"))
	sb.WriteString("\n")
	for _, e := range m.history.Recent() {
		status := m.styles.Success.Render(e.Outcome)
		if e.Error != "" {
			status = m.styles.Error.Render(e.Outcome)
		}
		labels := make([]string, len(e.Indicators))
		for i, id := range e.Indicators {
			labels[i] = catalog.Label(id)
		}
		fmt.Fprintf(&sb, "#%d %s %s  %v  %s\n",
			e.Seq,
			e.At.Format("15:04:05"),
			status,
			e.Numbers,
			m.styles.Muted.Render(strings.Join(labels, ", ")),
		)
	}
	return sb.String()
}
