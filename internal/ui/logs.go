package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/lifetime-memories/albumkeeper/internal/logtail"
)

// logLevels is the order f cycles the minimum level through.
var logLevels = []log.Level{log.DebugLevel, log.InfoLevel, log.WarnLevel, log.ErrorLevel}

type logState struct {
	follow    bool
	search    textinput.Model
	searching bool
	filter    logtail.Filter
	entries   []logtail.Entry
	viewport  viewport.Model
	source    string
	err       error
}

type logsMsg struct {
	source  string
	entries []logtail.Entry
	err     error
}

func (m *Model) resizeLogViewport() {
	w := maxInt(m.width-4, 10)
	h := maxInt(m.contentHeight()-4, 1)
	if m.logs.viewport.Width == 0 && m.logs.viewport.Height == 0 {
		m.logs.viewport = viewport.New(w, h)
	} else {
		m.logs.viewport.Width = w
		m.logs.viewport.Height = h
	}
	m.syncLogViewport()
}

// refreshLogsCmd reads the tail of this session's log, or the newest log in
// the log directory when the session has none.
func (m Model) refreshLogsCmd() tea.Cmd {
	path, dir, filter := m.logPath, m.logDir, m.logs.filter
	return func() tea.Msg {
		if path == "" && dir != "" {
			latest, err := logtail.Latest(dir)
			if err != nil {
				return logsMsg{err: err}
			}
			path = latest
		}
		if path == "" {
			return logsMsg{}
		}
		entries, err := logtail.Tail(path, LogTailLimit, filter)
		return logsMsg{source: path, entries: entries, err: err}
	}
}

func (m *Model) handleLogs(msg logsMsg) {
	m.logs.err = msg.err
	if msg.err != nil {
		return
	}
	m.logs.source = msg.source
	m.logs.entries = msg.entries
	m.syncLogViewport()
}

func (m *Model) syncLogViewport() {
	if m.logs.viewport.Width == 0 {
		return
	}
	styles := m.theme.Styles()
	lines := make([]string, 0, len(m.logs.entries))
	for _, e := range m.logs.entries {
		lines = append(lines, formatLogEntry(styles, e, m.logs.viewport.Width))
	}
	m.logs.viewport.SetContent(strings.Join(lines, "\n"))
	if m.logs.follow {
		m.logs.viewport.GotoBottom()
	}
}

func formatLogEntry(styles Styles, e logtail.Entry, width int) string {
	if e.Time.IsZero() && len(e.Fields) == 0 && e.Prefix == "" {
		return styles.MutedText.Render(truncate(e.Raw, width))
	}
	level := strings.ToUpper(e.Level.String())
	if len(level) > 4 {
		level = level[:4]
	}
	var b strings.Builder
	if !e.Time.IsZero() {
		b.WriteString(styles.FaintText.Render(e.Time.Local().Format("15:04:05")))
		b.WriteString(" ")
	}
	b.WriteString(styles.StatusStyle(e.Level.String()).Render(padRight(level, 4)))
	b.WriteString(" ")
	if e.Prefix != "" {
		b.WriteString(styles.AccentText.Render(e.Prefix + ":"))
		b.WriteString(" ")
	}
	b.WriteString(styles.Text.Render(e.Message))
	for _, f := range e.Fields {
		b.WriteString(" ")
		b.WriteString(styles.MutedText.Render(f.Key + "="))
		b.WriteString(styles.Text.Render(f.Value))
	}
	return b.String()
}

func (m Model) handleLogsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.keys
	switch {
	case key.Matches(msg, k.ToggleFollow):
		m.logs.follow = !m.logs.follow
		if m.logs.follow {
			m.logs.viewport.GotoBottom()
			m.setFlash("Following log")
		} else {
			m.setFlash("Paused log")
		}
		return m, nil
	case key.Matches(msg, k.CycleLevel):
		m.logs.filter.MinLevel = nextLogLevel(m.logs.filter.MinLevel)
		m.setFlash("Minimum level: " + m.logs.filter.MinLevel.String())
		return m, m.refreshLogsCmd()
	case key.Matches(msg, k.Search):
		m.logs.searching = true
		m.logs.search.SetValue(m.logs.filter.Query)
		m.logs.search.Focus()
		return m, textinput.Blink
	case key.Matches(msg, k.Top):
		m.logs.follow = false
		m.logs.viewport.GotoTop()
		return m, nil
	case key.Matches(msg, k.Bottom):
		m.logs.follow = true
		m.logs.viewport.GotoBottom()
		return m, nil
	case key.Matches(msg, k.Up), key.Matches(msg, k.Down):
		m.logs.follow = false
		var cmd tea.Cmd
		m.logs.viewport, cmd = m.logs.viewport.Update(msg)
		return m, cmd
	}
	var cmd tea.Cmd
	m.logs.viewport, cmd = m.logs.viewport.Update(msg)
	return m, cmd
}

// handleLogSearchKey edits the log query; enter applies it and esc discards.
func (m Model) handleLogSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.logs.searching = false
		m.logs.search.Blur()
		m.logs.filter.Query = strings.TrimSpace(m.logs.search.Value())
		return m, m.refreshLogsCmd()
	case tea.KeyEsc:
		m.logs.searching = false
		m.logs.search.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.logs.search, cmd = m.logs.search.Update(msg)
	return m, cmd
}

func nextLogLevel(current log.Level) log.Level {
	for i, l := range logLevels {
		if l == current {
			return logLevels[(i+1)%len(logLevels)]
		}
	}
	return logLevels[0]
}

// renderLogs renders the log viewer with its filter line.
func (m Model) renderLogs() string {
	styles := m.theme.Styles()
	height := m.contentHeight()

	follow := "paused"
	if m.logs.follow {
		follow = "following"
	}
	status := fmt.Sprintf("level ≥ %s · %s · %s", m.logs.filter.MinLevel, follow, plural(len(m.logs.entries), "line"))
	if m.logs.filter.Query != "" {
		status += " · /" + m.logs.filter.Query
	}
	top := styles.MutedText.Render(status)
	if m.logs.searching {
		top = styles.AccentText.Render("/") + m.logs.search.View()
	}

	var body string
	switch {
	case m.logs.err != nil:
		body = styles.DangerText.Render("Log unavailable: " + m.logs.err.Error())
	case len(m.logs.entries) == 0:
		body = styles.MutedText.Render("No log lines match.")
	default:
		body = m.logs.viewport.View()
	}

	title := "Logs"
	if m.logs.source != "" {
		title += " · " + truncateMiddle(m.logs.source, maxInt(m.width/2, 20))
	}
	return m.renderBox(title, top+"\n\n"+body, m.width, height, true)
}
