// Package tui is the interactive display surface: a findings table, the
// selected finding's detail and the deep-analysis panel for one input.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/models"
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/session"
)

const (
	defaultTableHeight    = 10
	defaultAnalysisHeight = 8
	headerHeight          = 4
)

// analysisDoneMsg carries the outcome of one analysis request back into the
// event loop.
type analysisDoneMsg struct {
	generation uint64
	result     *models.AnalysisResult
	err        error
}

// Model is the Bubble Tea model. The session state is owned by the model
// and only changed through session.Transition.
type Model struct {
	ctx     context.Context
	analyst session.Analyst
	state   session.State

	table          table.Model
	analysisOffset int
	analysisHeight int
	width          int
	height         int
}

// New creates a model over an already scanned state. analyst may be nil, in
// which case the analyze key does nothing.
func New(ctx context.Context, st session.State, analyst session.Analyst) Model {
	return Model{
		ctx:            ctx,
		analyst:        analyst,
		state:          st,
		table:          newTable(buildRows(st.Findings()), defaultTableHeight),
		analysisHeight: defaultAnalysisHeight,
		width:          80,
		height:         24,
	}
}

// State returns the session snapshot the model currently displays.
func (m Model) State() session.State { return m.state }

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetWidth(msg.Width)
		free := msg.Height - headerHeight - detailHeight - 4
		tableH := max(free/2, 3)
		m.table.SetHeight(tableH)
		m.analysisHeight = max(free-tableH, 3)
		return m, nil

	case analysisDoneMsg:
		if msg.err != nil {
			m.state = session.Transition(m.state, session.AnalysisFailed{Generation: msg.generation, Err: msg.err})
		} else {
			m.state = session.Transition(m.state, session.AnalysisSucceeded{Generation: msg.generation, Result: msg.result})
		}
		m.analysisOffset = 0
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Analyze):
		return m.startAnalysis()
	case key.Matches(msg, keys.Reset):
		m.table.SetCursor(0)
		m.analysisOffset = 0
		return m, nil
	case key.Matches(msg, keys.PanelDown):
		m.analysisOffset = min(m.analysisOffset+m.analysisHeight, max(len(analysisLines(m.state))-1, 0))
		return m, nil
	case key.Matches(msg, keys.PanelUp):
		m.analysisOffset = max(m.analysisOffset-m.analysisHeight, 0)
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// startAnalysis moves the state to analyzing and returns the command that
// performs the request. It is a no-op while a request is in flight or when
// nothing was scanned.
func (m Model) startAnalysis() (tea.Model, tea.Cmd) {
	if m.analyst == nil || !m.state.CanAnalyze() {
		return m, nil
	}
	m.state = session.Transition(m.state, session.AnalyzeRequested{})
	m.analysisOffset = 0

	ctx, analyst := m.ctx, m.analyst
	gen, req := m.state.Generation, m.state.AnalysisRequest()
	return m, func() tea.Msg {
		res, err := analyst.Analyze(ctx, req)
		return analysisDoneMsg{generation: gen, result: res, err: err}
	}
}

func (m Model) selectedFinding() *models.Finding {
	findings := m.state.Findings()
	cursor := m.table.Cursor()
	if cursor < 0 || cursor >= len(findings) {
		return nil
	}
	return &findings[cursor]
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(renderHeader(m.state, m.width))
	b.WriteString("\n")

	if len(m.state.Findings()) == 0 {
		b.WriteString(styleMuted.Render("  No issues found by the first-pass filter."))
	} else {
		b.WriteString(m.table.View())
	}
	b.WriteString("\n")

	b.WriteString(renderDetail(m.selectedFinding(), m.width))
	b.WriteString("\n")

	b.WriteString(renderAnalysis(analysisLines(m.state), m.analysisOffset, m.analysisHeight, m.width))
	b.WriteString("\n")

	b.WriteString(m.renderFooter())
	return b.String()
}

func (m Model) renderFooter() string {
	left := "q:quit  a:analyze  r:reset  pgup/pgdn:scroll analysis"
	right := fmt.Sprintf("%s  %d findings", m.state.Phase, len(m.state.Findings()))

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return styleFooter.Render(left + strings.Repeat(" ", gap) + right)
}

// Run starts the Bubble Tea program and returns the final session state.
func Run(ctx context.Context, st session.State, analyst session.Analyst) (session.State, error) {
	p := tea.NewProgram(New(ctx, st, analyst), tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if m, ok := final.(Model); ok {
		return m.state, err
	}
	return st, err
}
