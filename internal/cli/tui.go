package cli

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/paulmach/orb"

	"github.com/toucan4life/gamemap/pkg/errors"
	"github.com/toucan4life/gamemap/pkg/graph"
	"github.com/toucan4life/gamemap/pkg/neighborhood"
	"github.com/toucan4life/gamemap/pkg/viewer"
)

// Viewer panel styles
var (
	panelStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorDim).Padding(0, 1)
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorPink)
	cursorStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	normalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	mutedStyle    = lipgloss.NewStyle().Foreground(colorDim)
	errorStyle    = lipgloss.NewStyle().Foreground(colorRed)
)

const (
	logPanelLines   = 8
	neighborRows    = 10
	refreshInterval = 100 * time.Millisecond
)

// =============================================================================
// Messages
// =============================================================================

// logMsg is a progress line from the neighborhood builder.
type logMsg string

// statusMsg reports the layout starting (true) or stopping (false).
type statusMsg bool

// clickMsg reports a node selected on the surface.
type clickMsg viewer.NodeInfo

// loadErrMsg reports a failed neighborhood load.
type loadErrMsg struct{ err error }

// refreshMsg redraws the state line while the layout runs.
type refreshMsg time.Time

// =============================================================================
// Event Bridge
// =============================================================================

// events carries viewer callbacks, which run on viewer goroutines, into the
// bubbletea update loop.
type events struct {
	ch   chan tea.Msg
	done chan struct{}
}

func newEvents() *events {
	return &events{ch: make(chan tea.Msg, 64), done: make(chan struct{})}
}

// send delivers m unless the program has exited.
func (e *events) send(m tea.Msg) {
	select {
	case e.ch <- m:
	case <-e.done:
	}
}

// close stops delivery; pending sends return immediately.
func (e *events) close() {
	select {
	case <-e.done:
	default:
		close(e.done)
	}
}

// wait returns a command that yields the next event.
func (e *events) wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case m := <-e.ch:
			return m
		case <-e.done:
			return nil
		}
	}
}

// =============================================================================
// ViewModel - Interactive layout viewer
// =============================================================================

// viewModel is the bubbletea model of the view command.
type viewModel struct {
	v       *viewer.Viewer
	surface *viewer.MemorySurface
	events  *events
	title   string

	running bool
	err     error
	logs    []string

	// anchor is the node whose neighbors n and p cycle through.
	anchor    graph.NodeID
	neighbors []neighborhood.Neighbor
	cursor    int
}

func newViewModel(v *viewer.Viewer, surface *viewer.MemorySurface, ev *events, title string) viewModel {
	return viewModel{
		v:       v,
		surface: surface,
		events:  ev,
		title:   title,
		anchor:  v.Root(),
		cursor:  -1,
	}
}

func refresh() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return refreshMsg(t) })
}

func (m viewModel) Init() tea.Cmd {
	return tea.Batch(m.events.wait(), refresh())
}

func (m viewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case logMsg:
		m.logs = appendLog(m.logs, string(msg))
		return m, m.events.wait()
	case statusMsg:
		m.running = bool(msg)
		if m.running {
			m.cursor = -1
			m.neighbors = nil
		}
		return m, m.events.wait()
	case clickMsg:
		m.setAnchor(msg.ID)
		return m, m.events.wait()
	case loadErrMsg:
		m.err = msg.err
		m.logs = appendLog(m.logs, "error: "+errors.UserMessage(msg.err))
		return m, m.events.wait()
	case refreshMsg:
		return m, refresh()
	}
	return m, nil
}

func (m viewModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		m.events.close()
		return m, tea.Quit
	case "s":
		m.v.StopLayout()
	case "r":
		m.v.ResumeLayout()
		m.setAnchor(m.v.Root())
	case "n", "down", "j":
		m.cycle(1)
	case "p", "up", "k":
		m.cycle(-1)
	case "c":
		root := m.v.Root()
		if sel, ok := m.v.Selected(); !ok || sel != root {
			m.v.HandleSelectionChange(root)
		}
		m.v.Recenter()
		m.setAnchor(root)
	}
	return m, nil
}

// setAnchor makes id the node whose neighbors are cycled.
func (m *viewModel) setAnchor(id graph.NodeID) {
	m.anchor = id
	m.neighbors = nil
	m.cursor = -1
}

// cycle selects the next (delta 1) or previous (delta -1) neighbor of the
// anchor.
func (m *viewModel) cycle(delta int) {
	if m.neighbors == nil {
		g := m.v.Graph()
		if g == nil {
			return
		}
		m.neighbors = neighborhood.DirectNeighbors(g, m.anchor)
	}
	n := len(m.neighbors)
	if n == 0 {
		return
	}
	switch {
	case m.cursor < 0 && delta < 0:
		m.cursor = n - 1
	case m.cursor < 0:
		m.cursor = 0
	default:
		m.cursor = (m.cursor + delta + n) % n
	}
	m.v.HandleSelectionChange(m.neighbors[m.cursor].ID)
}

func appendLog(logs []string, line string) []string {
	logs = append(logs, line)
	if len(logs) > logPanelLines {
		logs = logs[len(logs)-logPanelLines:]
	}
	return logs
}

func (m viewModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(m.title))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("s stop  r resume  n/p cycle neighbors  c recenter  q quit"))
	b.WriteString("\n\n")

	b.WriteString(m.statusLine())
	b.WriteString("\n")
	if sel := m.selectionLine(); sel != "" {
		b.WriteString(sel)
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if list := m.neighborList(); list != "" {
		b.WriteString(panelStyle.Render(list))
		b.WriteString("\n")
	}

	logs := mutedStyle.Render("waiting for progress...")
	if len(m.logs) > 0 {
		logs = strings.Join(m.logs, "\n")
	}
	b.WriteString(panelStyle.Render(logs))
	b.WriteString("\n")
	return b.String()
}

func (m viewModel) statusLine() string {
	state := m.v.State()
	parts := []string{"state " + StyleHighlight.Render(state.String())}
	if m.running {
		parts = append(parts, StyleSuccess.Render("running"))
	}
	if state == viewer.LayingOut {
		parts = append(parts, fmt.Sprintf("steps left %s", StyleNumber.Render(fmt.Sprint(m.v.StepsLeft()))))
	}
	if g := m.v.Graph(); g != nil {
		parts = append(parts, fmt.Sprintf("%d games", g.NodeCount()), fmt.Sprintf("%d links", g.LinkCount()))
	}
	if c := m.surface.Center(); c != (orb.Point{}) {
		parts = append(parts, fmt.Sprintf("center (%.4f, %.4f)", c.Lon(), c.Lat()))
	}
	if m.err != nil {
		parts = append(parts, errorStyle.Render(errors.UserMessage(m.err)))
	}
	return strings.Join(parts, StyleDim.Render(" · "))
}

func (m viewModel) selectionLine() string {
	id, ok := m.v.Selected()
	if !ok {
		return ""
	}
	info, ok := m.v.Coordinates(id)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%s %s %s",
		selectedStyle.Render(info.Label),
		StyleDim.Render(fmt.Sprintf("#%d", info.ID)),
		StyleDim.Render(fmt.Sprintf("(%.4f, %.4f)", info.Lon, info.Lat)))
}

func (m viewModel) neighborList() string {
	ns := m.neighbors
	if ns == nil {
		if g := m.v.Graph(); g != nil {
			ns = neighborhood.DirectNeighbors(g, m.anchor)
		}
	}
	if len(ns) == 0 {
		return ""
	}
	lines := make([]string, 0, neighborRows+1)
	for i, n := range ns {
		if i == neighborRows {
			lines = append(lines, mutedStyle.Render(fmt.Sprintf("  … %d more", len(ns)-neighborRows)))
			break
		}
		line := fmt.Sprintf("%-32s %.4f", truncate(n.Data.Label, 32), n.Weight)
		if i == m.cursor {
			lines = append(lines, cursorStyle.Render("▸ "+line))
		} else {
			lines = append(lines, normalStyle.Render("  "+line))
		}
	}
	return strings.Join(lines, "\n")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
