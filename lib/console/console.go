// Package console renders the agent status dashboard in the terminal. It
// polls the control server over JSON-RPC and refreshes once a second; the
// agent process itself stays untouched.
package console

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/samber/oops"

	"github.com/go-otbr/go-otbr/lib/control"
)

// refreshInterval is the dashboard poll period.
const refreshInterval = time.Second

// statusFetcher narrows the control client to what the dashboard needs.
type statusFetcher interface {
	FetchStatus() (control.AgentStatus, error)
}

type statusMsg control.AgentStatus

type statusErrMsg struct{ err error }

type tickMsg time.Time

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))
	labelStyle = lipgloss.NewStyle().
			Bold(true).
			Width(16).
			Foreground(lipgloss.Color("245"))
	goodStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	badStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle = lipgloss.NewStyle().Faint(true)
)

// Model is the bubbletea model behind the dashboard.
type Model struct {
	client  statusFetcher
	status  control.AgentStatus
	err     error
	fetched bool
	updated time.Time
}

// NewModel creates a dashboard model polling the given client.
func NewModel(client statusFetcher) Model {
	return Model{client: client}
}

// Init fires the first fetch and starts the refresh ticker.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetchStatus, tick())
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// fetchStatus queries the control server. Runs in a bubbletea command
// goroutine, so the blocking HTTP call never stalls the UI.
func (m Model) fetchStatus() tea.Msg {
	status, err := m.client.FetchStatus()
	if err != nil {
		return statusErrMsg{err: err}
	}
	return statusMsg(status)
}

// Update handles key presses, refresh ticks, and fetch results.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "r":
			return m, m.fetchStatus
		}

	case tickMsg:
		return m, tea.Batch(m.fetchStatus, tick())

	case statusMsg:
		m.status = control.AgentStatus(msg)
		m.err = nil
		m.fetched = true
		m.updated = time.Now()
		return m, nil

	case statusErrMsg:
		m.err = msg.err
		return m, nil
	}
	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("go-otbr agent status"))
	b.WriteString("\n\n")

	switch {
	case m.err != nil:
		b.WriteString(badStyle.Render(fmt.Sprintf("cannot reach agent: %v", m.err)))
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("is the agent running with its control server enabled?  r refresh, q quit"))

	case !m.fetched:
		b.WriteString("connecting...\n\n")
		b.WriteString(helpStyle.Render("q quit"))

	default:
		rows := []struct {
			label string
			value string
		}{
			{"Role", m.status.Role},
			{"Attached", renderBool(m.status.Attached)},
			{"Network", m.status.NetworkName},
			{"Ext PAN ID", m.status.ExtPanID},
			{"Thread version", threadVersionName(m.status.ThreadVersion)},
			{"Radio", m.status.RadioURL},
			{"Uptime", formatUptime(m.status.Uptime)},
			{"Loop running", renderBool(m.status.Running)},
		}
		for _, row := range rows {
			b.WriteString(labelStyle.Render(row.label))
			b.WriteString(row.value)
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render(fmt.Sprintf("updated %s  r refresh, q quit",
			m.updated.Format("15:04:05"))))
	}

	b.WriteString("\n")
	return b.String()
}

func renderBool(v bool) string {
	if v {
		return goodStyle.Render("yes")
	}
	return badStyle.Render("no")
}

// threadVersionName maps the stack's protocol version number to the
// marketing version.
func threadVersionName(version uint16) string {
	switch version {
	case 2:
		return "1.1"
	case 3:
		return "1.2"
	case 4:
		return "1.3"
	case 0:
		return "unknown"
	default:
		return fmt.Sprintf("%d", version)
	}
}

// formatUptime renders milliseconds as a compact duration.
func formatUptime(ms int64) string {
	if ms <= 0 {
		return "0s"
	}
	return (time.Duration(ms) * time.Millisecond).Truncate(time.Second).String()
}

// Run starts the dashboard against the given control endpoint and blocks
// until the user quits.
func Run(endpoint, password string) error {
	client := control.NewClient(endpoint, password)
	program := tea.NewProgram(NewModel(client), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return oops.Errorf("console: %w", err)
	}
	return nil
}
