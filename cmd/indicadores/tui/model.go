// Package tui is the interactive terminal form: a text input for the
// numbers, a checklist of indicators and a panel with the latest result.
// All form state lives in a selection.Adapter; the Model only tracks focus,
// cursor and layout.
package tui

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"indicadores/cmd/indicadores/ui"
	"indicadores/internal/history"
	"indicadores/internal/selection"
)

// Config wires the form to its collaborators.
type Config struct {
	Adapter *selection.Adapter
	History *history.History
	Theme   string
}

// focusArea is the widget receiving keys.
type focusArea int

const (
	focusInput focusArea = iota
	focusIndicators
)

// submitResultMsg carries a finished submission back into Update.
type submitResultMsg struct {
	outcome selection.Outcome
}

// Model is the bubbletea model for the form.
type Model struct {
	ctx      context.Context
	adapter  *selection.Adapter
	history  *history.History
	styles   ui.Styles
	renderer *glamour.TermRenderer
	renders  *ui.RenderCache

	input    textinput.Model
	spinner  spinner.Model
	viewport viewport.Model

	focus       focusArea
	cursor      int
	showHistory bool
	inflight    int

	width  int
	height int
	ready  bool
}

// New builds the form model.
func New(ctx context.Context, cfg Config) Model {
	styles := ui.NewStyles(ui.ThemeFor(cfg.Theme))

	ti := textinput.New()
	ti.Placeholder = "ex.: 4, 8 15 16,23 42"
	ti.Prompt = "› "
	ti.PromptStyle = styles.Cursor
	ti.CharLimit = 512
	ti.Width = 60
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	vp := viewport.New(80, 12)

	m := Model{
		ctx:      ctx,
		adapter:  cfg.Adapter,
		history:  cfg.History,
		styles:   styles,
		renderer: ui.NewRenderer(styles.Theme, 78),
		renders:  ui.NewRenderCache(32),
		input:    ti,
		spinner:  sp,
		viewport: vp,
	}
	m.refreshResult()
	return m
}

// Init starts the cursor blink.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Run starts the program and blocks until the user quits or ctx is done.
func Run(ctx context.Context, cfg Config) error {
	p := tea.NewProgram(New(ctx, cfg), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// submit runs one submission off the update loop.
func (m Model) submit() tea.Cmd {
	adapter, ctx := m.adapter, m.ctx
	return func() tea.Msg {
		return submitResultMsg{outcome: adapter.Submit(ctx)}
	}
}
