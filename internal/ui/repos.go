package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/lifetime-memories/albumkeeper/internal/catalog"
	"github.com/lifetime-memories/albumkeeper/internal/github"
)

// selectedRepo is the name of the highlighted repository, or "".
func (m Model) selectedRepo() string {
	repos := m.snapshot.Repos
	if len(repos) == 0 {
		return ""
	}
	if m.repoSel < 0 || m.repoSel >= len(repos) {
		return ""
	}
	return repos[m.repoSel].Name
}

// syncRepoSelection keeps the highlight on the same repository by name when
// the list changes underneath it.
func (m *Model) syncRepoSelection() {
	repos := m.snapshot.Repos
	if len(repos) == 0 {
		m.repoSel = 0
		return
	}
	if m.repoName != "" {
		for i, r := range repos {
			if r.Name == m.repoName {
				m.repoSel = i
				return
			}
		}
	}
	m.repoSel = clampInt(m.repoSel, 0, len(repos)-1)
	m.repoName = repos[m.repoSel].Name
}

func (m *Model) moveRepo(delta int, absolute bool) {
	n := len(m.snapshot.Repos)
	if n == 0 {
		return
	}
	if absolute {
		m.repoSel = clampInt(delta, 0, n-1)
	} else {
		m.repoSel = clampInt(m.repoSel+delta, 0, n-1)
	}
	m.repoName = m.snapshot.Repos[m.repoSel].Name
}

// handleReposKey processes keyboard input for the repository list.
func (m Model) handleReposKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.keys
	switch {
	case key.Matches(msg, k.Down):
		m.moveRepo(1, false)
	case key.Matches(msg, k.Up):
		m.moveRepo(-1, false)
	case key.Matches(msg, k.Top):
		m.moveRepo(0, true)
	case key.Matches(msg, k.Bottom):
		m.moveRepo(len(m.snapshot.Repos)-1, true)
	case key.Matches(msg, k.Refresh):
		m.setFlash("Refreshing repositories...")
		return m, m.refreshReposCmd(true)
	case key.Matches(msg, k.NewRepo):
		m.modal = newCreateRepoModal()
		return m, textinput.Blink
	case key.Matches(msg, k.DeleteRepo):
		if repo := m.selectedRepo(); repo != "" {
			m.modal = &confirmModal{
				title:   "Delete " + repo + "?",
				message: "This permanently deletes the repository, its photos and its gallery on GitHub.",
				danger:  true,
				onYes:   deleteRepoRequest{name: repo},
			}
		}
	case key.Matches(msg, k.Open):
		if repo := m.selectedRepo(); repo != "" {
			m.prefs.LastRepo = repo
			m.persistPrefs()
			m.currentView = ViewImages
			return m.openImages(repo, false)
		}
	default:
		return m.handleRepoActionKey(msg)
	}
	return m, nil
}

func newCreateRepoModal() Modal {
	return newFormModal("New gallery repository",
		"Letters, digits, '-', '_' and '.'; no spaces.",
		[]formField{
			newField("Name", "summer-2024", "", 100),
			newField("Description", catalog.DefaultDescription, "", 200),
		},
		func(values []string) (tea.Msg, error) {
			name, err := catalog.ValidateRepoName(values[0])
			if err != nil {
				return nil, errors.New(validationText(err))
			}
			return createRepoRequest{name: name, description: values[1]}, nil
		})
}

// renderRepos renders the repository table.
func (m Model) renderRepos() string {
	styles := m.theme.Styles()
	height := m.contentHeight()
	repos := m.snapshot.Repos

	var lines []string
	if len(repos) == 0 {
		msg := "No repositories yet. Press n to create one."
		if m.snapshot.LastUpdated.IsZero() {
			msg = "Loading repositories..."
		}
		lines = append(lines, styles.MutedText.Render(msg))
		return m.renderBox("Repositories", strings.Join(lines, "\n"), m.width, height, true)
	}

	wide := m.width >= LayoutUpdatedWidth
	nameWidth := clampInt(m.width/3, 16, 40)
	header := padRight("NAME", nameWidth) + "  " + padRight("VISIBILITY", 10) + "  " + padRight("PAGES", 12) + "  " + padRight("SIZE", 9)
	if wide {
		header += "  UPDATED"
	}
	lines = append(lines, styles.FaintText.Render(header))

	start, end := visibleRange(m.repoSel, len(repos), height-3)
	for i := start; i < end; i++ {
		r := repos[i]
		pagesLabel := "-"
		if u, ok := m.snapshot.Build(r.Name); ok {
			pagesLabel = string(u.Status)
		} else if r.HasPages {
			pagesLabel = "enabled"
		}
		row := padRight(truncate(r.Name, nameWidth), nameWidth) + "  " +
			padRight(r.VisibilityLabel(), 10) + "  " +
			padRight(pagesLabel, 12) + "  " +
			padRight(humanize.Bytes(uint64(r.SizeKB)*1024), 9)
		if wide && !r.UpdatedAt.IsZero() {
			row += "  " + humanize.Time(r.UpdatedAt)
		}
		if i == m.repoSel {
			row = styles.Selected.Render(padRight(row, m.width-4))
		} else {
			row = styles.Text.Render(row)
		}
		lines = append(lines, row)
	}

	title := fmt.Sprintf("Repositories (%d)", len(repos))
	return m.renderBox(title, strings.Join(lines, "\n"), m.width, height, true)
}

// visibleRange returns the window of rows to draw so that sel stays visible.
func visibleRange(sel, total, rows int) (int, int) {
	if rows <= 0 || total <= rows {
		return 0, total
	}
	start := sel - rows/2
	if start < 0 {
		start = 0
	}
	if start+rows > total {
		start = total - rows
	}
	return start, start + rows
}

// validationText is the reason carried by a local validation error.
func validationText(err error) string {
	var apiErr *github.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}
