package progress

import (
	"fmt"
	"sort"
	"strings"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/muesli/reflow/wordwrap"
)

var (
	labelStyle = lipgloss.NewStyle().Bold(true)
	doneStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

type datasetState struct {
	bar        progress.Model
	stage      string
	bytesDone  int64
	bytesTotal int64
	done       bool
	err        error
}

// Model is a tea.Model that tracks one progress.Model per dataset
// currently transferring, added and updated as Events arrive on the
// channel passed to Run.
type Model struct {
	events <-chan Event
	order  []string
	states map[string]*datasetState
	width  int
	quit   bool
}

// New builds a Model that reads from events until it is closed.
func New(events <-chan Event) Model {
	return Model{events: events, states: make(map[string]*datasetState)}
}

type eventMsg Event
type channelClosedMsg struct{}

func waitForEvent(events <-chan Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return channelClosedMsg{}
		}
		return eventMsg(ev)
	}
}

func (m Model) Init() (tea.Model, tea.Cmd) {
	return m, waitForEvent(m.events)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			m.quit = true
			return m, tea.Quit
		}
		return m, nil

	case eventMsg:
		m.apply(Event(msg))
		return m, waitForEvent(m.events)

	case channelClosedMsg:
		m.quit = true
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) apply(ev Event) {
	st, ok := m.states[ev.Dataset]
	if !ok {
		st = &datasetState{bar: progress.New(progress.WithDefaultGradient())}
		m.states[ev.Dataset] = st
		m.order = append(m.order, ev.Dataset)
	}
	st.stage = ev.Stage
	st.bytesDone = ev.BytesDone
	st.bytesTotal = ev.BytesTotal
	st.done = ev.Done
	st.err = ev.Err
}

func (m Model) View() string {
	width := m.width
	if width <= 0 {
		width = 80
	}
	order := append([]string(nil), m.order...)
	sort.Strings(order)

	var b strings.Builder
	for _, ds := range order {
		st := m.states[ds]
		b.WriteString(renderLine(ds, st, width))
		b.WriteString("\n")
	}
	if m.quit {
		b.WriteString("\n")
	}
	return wordwrap.String(b.String(), width)
}

func renderLine(dataset string, st *datasetState, width int) string {
	label := labelStyle.Render(fmt.Sprintf("%s [%s]", dataset, st.stage))
	switch {
	case st.err != nil:
		return fmt.Sprintf("%s %s", label, errStyle.Render("failed: "+st.err.Error()))
	case st.done:
		return fmt.Sprintf("%s %s", label, doneStyle.Render("done"))
	case st.bytesTotal > 0:
		pct := float64(st.bytesDone) / float64(st.bytesTotal)
		return fmt.Sprintf("%s\n  %s %s/%s", label, st.bar.ViewAs(pct), formatBytes(st.bytesDone), formatBytes(st.bytesTotal))
	default:
		return fmt.Sprintf("%s %s transferred", label, formatBytes(st.bytesDone))
	}
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
