package sim

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"fixturegen/internal/signalk"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// logMsg carries a log line for the viewport.
type logMsg struct{ line string }

// fleetMsg carries the rendered vessel rows of one document.
type fleetMsg struct {
	rows  []table.Row
	stamp string
}

const maxLogLines = 500

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	stampStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
)

// TUIWriter renders fleet documents using a bubbletea TUI.
type TUIWriter struct {
	program    teaProgram
	done       chan struct{}
	sendSignal atomic.Bool
	interrupt  func()
	steps      int
}

// NewTUIWriter starts a bubbletea program and returns a TUIWriter. Quitting
// the TUI interrupts the process so the running simulation stops too.
func NewTUIWriter(title string) *TUIWriter {
	w := &TUIWriter{done: make(chan struct{}), interrupt: interruptSelf}
	w.sendSignal.Store(true)
	p := tea.NewProgram(newTUIModel(title), tea.WithAltScreen())
	w.program = p
	go func() {
		_, _ = p.Run()
		w.exited()
	}()
	return w
}

func interruptSelf() {
	if proc, err := os.FindProcess(os.Getpid()); err == nil {
		_ = proc.Signal(os.Interrupt)
	}
}

// exited runs once the program has stopped. The interrupt must be decided
// before done is closed, since waiters start tearing down signal handling
// as soon as done closes.
func (w *TUIWriter) exited() {
	if w.sendSignal.Load() && w.interrupt != nil {
		w.interrupt()
	}
	close(w.done)
}

// Finished tells the TUI the run is over. Quitting afterwards only ends the
// TUI and no longer interrupts the process.
func (w *TUIWriter) Finished() {
	w.sendSignal.Store(false)
}

// WriteFleet implements FleetWriter.
func (w *TUIWriter) WriteFleet(doc *signalk.Document) error {
	keys := doc.Keys()
	rows := make([]table.Row, 0, len(keys))
	var sumLat, sumLon, sumSog float64
	for _, key := range keys {
		v := doc.Vessels[key]
		p := v.Navigation.Position
		sumLat += p.Latitude
		sumLon += p.Longitude
		sumSog += v.SpeedOverGround
		rows = append(rows, table.Row{
			key,
			v.MMSI,
			fmt.Sprintf("%.5f", p.Latitude),
			fmt.Sprintf("%.5f", p.Longitude),
			fmt.Sprintf("%.1f", v.Heading.TrueHeading),
			fmt.Sprintf("%.0f", v.SpeedOverGround),
		})
	}

	stamp := doc.Timestamp
	if stamp == "" {
		stamp = "initial"
	}
	line := fmt.Sprintf("%s step=%d vessels=%d", stampStyle.Render("["+stamp+"]"), w.steps, len(keys))
	if n := float64(len(keys)); n > 0 {
		line += fmt.Sprintf(" centroid=(%.5f,%.5f) mean_sog=%.1f", sumLat/n, sumLon/n, sumSog/n)
	}
	w.steps++

	w.program.Send(fleetMsg{rows: rows, stamp: stamp})
	w.program.Send(logMsg{line: line})
	return nil
}

// Wait blocks until the user quits the TUI.
func (w *TUIWriter) Wait() {
	if w.done != nil {
		<-w.done
	}
}

// Close shuts down the TUI program and waits for cleanup.
func (w *TUIWriter) Close() error {
	w.sendSignal.Store(false)
	if w.program != nil {
		w.program.Send(tea.Quit())
	}
	if w.done != nil {
		<-w.done
	}
	return nil
}

type tuiModel struct {
	title      string
	table      table.Model
	vp         viewport.Model
	logs       []string
	stamp      string
	wrap       bool
	autoscroll bool
	width      int
	height     int
}

func newTUIModel(title string) tuiModel {
	cols := []table.Column{
		{Title: "Vessel", Width: 9},
		{Title: "MMSI", Width: 10},
		{Title: "Latitude", Width: 10},
		{Title: "Longitude", Width: 11},
		{Title: "Heading", Width: 8},
		{Title: "SOG", Width: 4},
	}
	t := table.New(table.WithColumns(cols), table.WithHeight(10))
	return tuiModel{
		title:      title,
		table:      t,
		vp:         viewport.New(0, 0),
		autoscroll: true,
	}
}

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetWidth(msg.Width)
		m.vp.Width = msg.Width
		m.updateViewportHeight()
		m.refreshViewport()
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "w":
			m.wrap = !m.wrap
			m.refreshViewport()
			return m, nil
		case "s":
			m.autoscroll = !m.autoscroll
			if m.autoscroll {
				m.vp.GotoBottom()
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.vp, cmd = m.vp.Update(msg)
		return m, cmd
	case fleetMsg:
		m.stamp = msg.stamp
		m.table.SetRows(msg.rows)
		m.updateViewportHeight()
	case logMsg:
		m.logs = append(m.logs, msg.line)
		if len(m.logs) > maxLogLines {
			m.logs = m.logs[len(m.logs)-maxLogLines:]
		}
		m.refreshViewport()
	}
	return m, nil
}

func (m *tuiModel) updateViewportHeight() {
	rows := len(m.table.Rows())
	if rows > 15 {
		rows = 15
	}
	m.table.SetHeight(rows + 1)
	h := m.height - lipgloss.Height(m.renderHeader()) - lipgloss.Height(m.table.View()) - 2
	if h < 1 {
		h = 1
	}
	m.vp.Height = h
}

func (m *tuiModel) refreshViewport() {
	lines := m.logs
	if m.wrap && m.vp.Width > 0 {
		lines = make([]string, len(m.logs))
		for i, l := range m.logs {
			lines[i] = wordwrap.String(l, m.vp.Width)
		}
	}
	m.vp.SetContent(strings.Join(lines, "\n"))
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m tuiModel) renderHeader() string {
	stamp := m.stamp
	if stamp == "" {
		stamp = "waiting for fleet"
	}
	return titleStyle.Render(m.title) + "  " + stampStyle.Render(stamp)
}

func (m tuiModel) View() string {
	help := helpStyle.Render("q quit • w wrap • s autoscroll • ↑/↓ scroll")
	return lipgloss.JoinVertical(lipgloss.Left, m.renderHeader(), m.table.View(), m.vp.View(), help)
}
