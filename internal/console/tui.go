package console

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	primaryColor = lipgloss.Color("#7C3AED")
	accentColor  = lipgloss.Color("#10B981")
	errorColor   = lipgloss.Color("#EF4444")
	mutedColor   = lipgloss.Color("#6B7280")

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1)

	messagePanelStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(mutedColor).
				Padding(0, 1)

	inputStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(accentColor).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Padding(0, 1)

	errorLineStyle = lipgloss.NewStyle().
			Foreground(errorColor).
			Italic(true)
)

// Node is what the terminal UI needs from a mesh node.
type Node interface {
	Sender
	Label() string
	Peers() []string
}

// Feed buffers displayed lines for the UI. Push never blocks, so it is safe
// to use as the node's display callback.
type Feed struct {
	mu      sync.Mutex
	pending []string
	notify  chan struct{}
}

func NewFeed() *Feed {
	return &Feed{notify: make(chan struct{}, 1)}
}

func (f *Feed) Push(line string) {
	f.mu.Lock()
	f.pending = append(f.pending, line)
	f.mu.Unlock()

	select {
	case f.notify <- struct{}{}:
	default:
	}
}

func (f *Feed) drain() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	lines := f.pending
	f.pending = nil
	return lines
}

type linesMsg []string

type tickMsg time.Time

// wait blocks until lines were pushed and delivers them as one batch.
func (f *Feed) wait() tea.Cmd {
	return func() tea.Msg {
		<-f.notify
		return linesMsg(f.drain())
	}
}

type Model struct {
	node     Node
	feed     *Feed
	lines    []string
	peers    int
	viewport viewport.Model
	input    textinput.Model
	ready    bool
	width    int
	quit     bool
}

func NewModel(node Node, feed *Feed) *Model {
	ti := textinput.New()
	ti.Placeholder = "Type a message, @host:port message, or quit"
	ti.Prompt = "> "
	ti.CharLimit = 4096
	ti.Focus()

	return &Model{
		node:     node,
		feed:     feed,
		peers:    len(node.Peers()),
		viewport: viewport.New(80, 20),
		input:    ti,
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.feed.wait(), tickCmd())
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
	)
	m.input, tiCmd = m.input.Update(msg)
	m.viewport, vpCmd = m.viewport.Update(msg)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.quit = true
			return m, tea.Quit
		case tea.KeyEnter:
			line := strings.TrimSpace(m.input.Value())
			m.input.Reset()
			if line == "" {
				return m, nil
			}
			if IsQuit(line) {
				m.quit = true
				return m, tea.Quit
			}
			if err := m.node.SendLine(line); err != nil {
				m.appendLines(errorLineStyle.Render(fmt.Sprintf("Failed to send message: %v", err)))
			}
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.ready = true
		// header 3, input 3, status 1, panel borders 2
		m.viewport.Width = max(msg.Width-4, 10)
		m.viewport.Height = max(msg.Height-9, 3)
		m.input.Width = max(msg.Width-8, 10)
		m.refresh()

	case linesMsg:
		m.appendLines(msg...)
		return m, m.feed.wait()

	case tickMsg:
		m.peers = len(m.node.Peers())
		return m, tickCmd()
	}

	return m, tea.Batch(tiCmd, vpCmd)
}

func (m *Model) appendLines(lines ...string) {
	m.lines = append(m.lines, lines...)
	m.refresh()
	m.viewport.GotoBottom()
}

func (m *Model) refresh() {
	m.viewport.SetContent(strings.Join(m.lines, "\n"))
}

func (m *Model) View() string {
	if !m.ready {
		return "\n  Starting mesh chat...\n"
	}

	header := headerStyle.Render("Mesh chat " + m.node.Label())
	messages := messagePanelStyle.Width(m.width - 2).Render(m.viewport.View())
	status := statusBarStyle.Render(fmt.Sprintf("Node: %s | Peers: %d | Esc to quit", m.node.Label(), m.peers))
	input := inputStyle.Width(m.width - 2).Render(m.input.View())

	return lipgloss.JoinVertical(lipgloss.Left, header, messages, status, input)
}

// RunTUI runs the terminal UI until the user quits or ctx is done. Quitting
// from the UI returns ErrQuit, like the line console.
func RunTUI(ctx context.Context, node Node, feed *Feed) error {
	model := NewModel(node, feed)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	_, err := p.Run()
	switch {
	case err != nil && ctx.Err() != nil && errors.Is(err, tea.ErrProgramKilled):
		return nil
	case err != nil:
		return fmt.Errorf("terminal UI failed: %w", err)
	case model.quit:
		return ErrQuit
	}
	return nil
}
