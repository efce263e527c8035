package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	bubblespin "github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/slimdeps/pkg/observability"
)

const (
	tuiBarWidth       = 40
	tuiRecentLines    = 8
	tuiProgressPeriod = 100 * time.Millisecond
)

var tuiBarStyle = lipgloss.NewStyle().Foreground(colorCyan)

// =============================================================================
// Messages
// =============================================================================

type downloadStartMsg struct {
	dependency string
	total      int64
}

type downloadProgressMsg struct {
	dependency     string
	written, total int64
}

type downloadDoneMsg struct {
	dependency string
	reused     bool
	err        error
}

type injectedMsg struct {
	dependency string
	depth      int
	err        error
}

type finishedMsg struct{ err error }

// =============================================================================
// Hooks
// =============================================================================

// teaHooks forwards injection events to a running program. Progress events
// are throttled per dependency.
type teaHooks struct {
	observability.NoopInjectHooks

	send func(tea.Msg)

	mu   sync.Mutex
	last map[string]time.Time
}

func newTeaHooks(send func(tea.Msg)) *teaHooks {
	return &teaHooks{send: send, last: make(map[string]time.Time)}
}

func (h *teaHooks) OnDownloadStart(_ context.Context, dep, _ string, total int64) {
	h.send(downloadStartMsg{dependency: dep, total: total})
}

func (h *teaHooks) OnDownloadProgress(_ context.Context, dep string, written, total int64) {
	now := time.Now()
	h.mu.Lock()
	if now.Sub(h.last[dep]) < tuiProgressPeriod && written != total {
		h.mu.Unlock()
		return
	}
	h.last[dep] = now
	h.mu.Unlock()
	h.send(downloadProgressMsg{dependency: dep, written: written, total: total})
}

func (h *teaHooks) OnDownloadComplete(_ context.Context, dep, _ string, reused bool, _ time.Duration, err error) {
	h.mu.Lock()
	delete(h.last, dep)
	h.mu.Unlock()
	h.send(downloadDoneMsg{dependency: dep, reused: reused, err: err})
}

func (h *teaHooks) OnInject(_ context.Context, dep, _ string, depth int, err error) {
	h.send(injectedMsg{dependency: dep, depth: depth, err: err})
}

// =============================================================================
// Model
// =============================================================================

type transfer struct {
	written, total int64
}

// injectModel renders a live view of an injection pass.
type injectModel struct {
	total    int
	injected int
	failed   int
	reused   int
	fetched  int

	active map[string]transfer
	order  []string
	recent []string
	spin   bubblespin.Model

	cancel     context.CancelFunc
	cancelling bool
	done       bool
	err        error
}

func newInjectModel(total int, cancel context.CancelFunc) injectModel {
	return injectModel{
		total:  total,
		active: make(map[string]transfer),
		spin:   bubblespin.New(bubblespin.WithSpinner(bubblespin.MiniDot), bubblespin.WithStyle(styleIconSpinner)),
		cancel: cancel,
	}
}

func (m injectModel) Init() tea.Cmd { return m.spin.Tick }

func (m injectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case bubblespin.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			if !m.cancelling && m.cancel != nil {
				m.cancel()
			}
			m.cancelling = true
		}
	case downloadStartMsg:
		if _, ok := m.active[msg.dependency]; !ok {
			m.order = append(m.order, msg.dependency)
		}
		m.active[msg.dependency] = transfer{total: msg.total}
	case downloadProgressMsg:
		if _, ok := m.active[msg.dependency]; ok {
			m.active[msg.dependency] = transfer{written: msg.written, total: msg.total}
		}
	case downloadDoneMsg:
		m.removeActive(msg.dependency)
		switch {
		case msg.err != nil:
		case msg.reused:
			m.reused++
		default:
			m.fetched++
		}
	case injectedMsg:
		m.injected++
		line := strings.Repeat("  ", msg.depth) + styleIconSuccess.Render(iconSuccess) + " " + msg.dependency
		if msg.err != nil {
			m.failed++
			line = strings.Repeat("  ", msg.depth) + styleIconError.Render(iconError) + " " + msg.dependency
		}
		m.recent = append(m.recent, line)
		if len(m.recent) > tuiRecentLines {
			m.recent = m.recent[len(m.recent)-tuiRecentLines:]
		}
	case finishedMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m *injectModel) removeActive(dep string) {
	delete(m.active, dep)
	for i, d := range m.order {
		if d == dep {
			m.order = append(m.order[:i:i], m.order[i+1:]...)
			break
		}
	}
}

func (m injectModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(fmt.Sprintf("Injecting %d dependencies", m.total)))
	b.WriteString("\n\n")
	b.WriteString(renderBar(m.injected, m.total))
	fmt.Fprintf(&b, " %d/%d\n\n", m.injected, m.total)

	for _, dep := range m.order {
		t := m.active[dep]
		b.WriteString(m.spin.View() + " " + dep)
		if t.total > 0 {
			fmt.Fprintf(&b, " %s", StyleDim.Render(fmt.Sprintf("%3d%%", t.written*100/t.total)))
		}
		b.WriteString("\n")
	}
	for _, line := range m.recent {
		b.WriteString(line + "\n")
	}

	b.WriteString("\n")
	stats := fmt.Sprintf("%d %s · %d %s · %d failed", m.fetched, iconFresh, m.reused, iconCached, m.failed)
	b.WriteString(StyleDim.Render(stats))
	b.WriteString("\n")
	switch {
	case m.done:
	case m.cancelling:
		b.WriteString(StyleWarning.Render("Cancelling...") + "\n")
	default:
		b.WriteString(StyleDim.Render("ctrl+c to cancel") + "\n")
	}
	return b.String()
}

func renderBar(n, total int) string {
	filled := 0
	if total > 0 {
		filled = min(tuiBarWidth, n*tuiBarWidth/total)
	}
	return tuiBarStyle.Render(strings.Repeat("█", filled)) + StyleDim.Render(strings.Repeat("░", tuiBarWidth-filled))
}

// runInjectTUI runs fn while rendering its events. Quitting the view
// cancels fn's context; the view stays up until fn returns.
func runInjectTUI(ctx context.Context, total int, fn func(context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newInjectModel(total, cancel), tea.WithOutput(os.Stderr))
	observability.SetInjectHooks(newTeaHooks(p.Send))
	defer observability.Reset()

	result := make(chan error, 1)
	go func() {
		err := fn(ctx)
		result <- err
		p.Send(finishedMsg{err: err})
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-result
		return fmt.Errorf("progress view: %w", err)
	}
	return <-result
}
