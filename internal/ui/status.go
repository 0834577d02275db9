package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/lifetime-memories/albumkeeper/internal/pages"
	"github.com/lifetime-memories/albumkeeper/internal/publish"
)

// historyLimit caps the transitions kept for the Pages view.
const historyLimit = 50

// buildState tracks the watched Pages build.
type buildState struct {
	spinner  spinner.Model
	watching string
	history  []pages.Update
	siteURL  string
}

type buildMsg pages.Update

type publishRequest struct {
	repo string
	opts publish.Options
}

type publishedMsg struct {
	repo string
	res  publish.Result
	err  error
}

type watchStartedMsg struct {
	repo string
	err  error
}

type watchStoppedMsg struct{}

func newPublishModal(repo string, layout publish.Layout) Modal {
	return newFormModal("Publish "+repo,
		"Layouts: "+layoutNames()+".",
		[]formField{
			newField("Title", repo, "", 120),
			newField("Description", "optional", "", 500),
			newField("Layout", string(layout), string(layout), 20),
		},
		func(values []string) (tea.Msg, error) {
			l, err := publish.ParseLayout(values[2])
			if err != nil {
				return nil, err
			}
			return publishRequest{repo: repo, opts: publish.Options{
				Title:       values[0],
				Description: values[1],
				Layout:      l,
			}}, nil
		})
}

func layoutNames() string {
	names := make([]string, 0, len(publish.Layouts))
	for _, l := range publish.Layouts {
		names = append(names, string(l))
	}
	return strings.Join(names, ", ")
}

// startPublish publishes in a command; build updates stream through the
// event channel while the command waits for the commit.
func (m Model) startPublish(req publishRequest) (tea.Model, tea.Cmd) {
	m.build.watching = req.repo
	m.build.siteURL = ""
	m.currentView = ViewStatus
	m.setFlash("Publishing " + req.repo + "...")

	ctx, backend := m.ctx, m.backend
	emit := m.emit
	return m, func() tea.Msg {
		res, err := backend.Publish(ctx, req.repo, req.opts, func(u pages.Update) {
			emit(buildMsg(u))
		})
		return publishedMsg{repo: req.repo, res: res, err: err}
	}
}

func (m Model) handlePublished(msg publishedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		if m.build.watching == msg.repo {
			m.build.watching = ""
		}
		m.setError(msg.err, "publish "+msg.repo)
		return m, nil
	}
	if msg.res.SiteURL != "" {
		m.build.siteURL = msg.res.SiteURL
	}
	m.setFlash(fmt.Sprintf("Published %s (%s); waiting for Pages", msg.repo, plural(msg.res.Images, "photo")))
	return m, fetchSnapshotCmd(m.store)
}

func (m Model) handleBuild(u pages.Update) (tea.Model, tea.Cmd) {
	m.build.history = append(m.build.history, u)
	if len(m.build.history) > historyLimit {
		m.build.history = m.build.history[len(m.build.history)-historyLimit:]
	}
	if u.SiteURL != "" {
		m.build.siteURL = u.SiteURL
	}
	if u.Status.Terminal() && m.build.watching == u.Repo {
		m.build.watching = ""
		switch u.Status {
		case pages.Completed:
			m.setFlash(u.Repo + " is live")
		case pages.TimedOut:
			m.setFlashError(u.Repo + ": Pages build timed out")
		default:
			m.setFlashError(u.Repo + ": Pages build failed")
		}
	}
	return m, fetchSnapshotCmd(m.store)
}

// startWatch follows repo's current Pages build without publishing.
func (m Model) startWatch(repo string) (tea.Model, tea.Cmd) {
	m.build.watching = repo
	m.setFlash("Watching " + repo)
	ctx, backend := m.ctx, m.backend
	emit := m.emit
	return m, func() tea.Msg {
		err := backend.Watch(ctx, repo, func(u pages.Update) {
			emit(buildMsg(u))
		})
		return watchStartedMsg{repo: repo, err: err}
	}
}

func (m Model) stopWatchCmd() tea.Cmd {
	backend := m.backend
	return func() tea.Msg {
		backend.StopWatch()
		return watchStoppedMsg{}
	}
}

func (m Model) handleStatusKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.StopWatch):
		if m.build.watching == "" {
			return m, nil
		}
		return m, m.stopWatchCmd()
	case key.Matches(msg, m.keys.Refresh):
		return m, m.refreshReposCmd(true)
	}
	return m.handleRepoActionKey(msg)
}

// renderStatus shows the watched build and the last known status per repo.
func (m Model) renderStatus() string {
	styles := m.theme.Styles()
	height := m.contentHeight()
	var lines []string

	if m.build.watching != "" {
		current := pages.NotStarted
		if u, ok := m.snapshot.Build(m.build.watching); ok {
			current = u.Status
		}
		lines = append(lines, m.build.spinner.View()+" "+styles.Text.Render("Watching "+m.build.watching)+" "+
			styles.StatusStyle(string(current)).Render(string(current)))
	} else {
		lines = append(lines, styles.MutedText.Render("Not watching. Press p to publish or w to watch the selected repository."))
	}
	if m.build.siteURL != "" {
		lines = append(lines, styles.AccentText.Render(m.build.siteURL))
	}
	lines = append(lines, "")

	repos := m.snapshot.BuildRepos()
	if len(repos) > 0 {
		lines = append(lines, styles.FaintText.Render(padRight("REPOSITORY", 30)+"  "+padRight("STATUS", 12)+"  UPDATED"))
		for _, name := range repos {
			u, _ := m.snapshot.Build(name)
			badge := styles.StatusStyle(string(u.Status)).Render(padRight(string(u.Status), 10))
			row := styles.Text.Render(padRight(truncate(name, 30), 30)) + "  " + badge + "  " + styles.MutedText.Render(since(u.At))
			if u.Err != nil {
				row += "  " + styles.DangerText.Render(truncate(u.Err.Error(), maxInt(m.width-64, 10)))
			}
			lines = append(lines, row)
		}
		lines = append(lines, "")
	}

	if len(m.build.history) > 0 {
		lines = append(lines, styles.FaintText.Render("TRANSITIONS"))
		rows := maxInt(height-len(lines)-2, 1)
		history := m.build.history
		if len(history) > rows {
			history = history[len(history)-rows:]
		}
		for _, u := range history {
			from := string(u.Previous)
			if from == "" {
				from = "-"
			}
			text := fmt.Sprintf("%s  %s  %s → %s", u.At.Local().Format("15:04:05"), u.Repo, from, u.Status)
			if u.Raw != "" {
				text += " (" + u.Raw + ")"
			}
			lines = append(lines, styles.Text.Render(truncate(text, m.width-6)))
		}
	}
	return m.renderBox("Pages", strings.Join(lines, "\n"), m.width, height, true)
}
