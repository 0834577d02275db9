package ui

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/kballard/go-shellquote"

	"github.com/lifetime-memories/albumkeeper/internal/catalog"
	"github.com/lifetime-memories/albumkeeper/internal/upload"
)

// uploadState tracks the batch shown in the upload view.
type uploadState struct {
	bar     progress.Model
	active  bool
	repo    string
	total   int
	results []upload.Result
	report  *upload.Report
	started time.Time
}

type uploadRequest struct {
	repo  string
	files []string
}

type uploadProgressMsg struct {
	repo   string
	result upload.Result
}

type uploadDoneMsg struct {
	repo   string
	report upload.Report
}

func newUploadModal(repo string) Modal {
	return newFormModal("Upload photos to "+repo,
		"Files, directories or globs, separated by spaces. Quote paths with spaces.",
		[]formField{newField("Paths", "~/Pictures/summer/*.jpg", "", 4096)},
		func(values []string) (tea.Msg, error) {
			files, err := expandUploadPaths(values[0])
			if err != nil {
				return nil, err
			}
			return uploadRequest{repo: repo, files: files}, nil
		})
}

// expandUploadPaths splits input like a shell would and resolves each word:
// directories contribute their JPEG and PNG files, globs their matches and
// anything else is passed through for the uploader to validate.
func expandUploadPaths(input string) ([]string, error) {
	words, err := shellquote.Split(input)
	if err != nil {
		return nil, fmt.Errorf("paths: %w", err)
	}
	if len(words) == 0 {
		return nil, errors.New("enter at least one file or directory")
	}
	var files []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		files = append(files, p)
	}
	for _, word := range words {
		if strings.HasPrefix(word, "~") {
			if home, err := os.UserHomeDir(); err == nil {
				word = filepath.Join(home, strings.TrimPrefix(word, "~"))
			}
		}
		if info, err := os.Stat(word); err == nil && info.IsDir() {
			entries, err := os.ReadDir(word)
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", word, err)
			}
			var names []string
			for _, e := range entries {
				if !e.IsDir() && catalog.IsImageName(e.Name()) {
					names = append(names, e.Name())
				}
			}
			sort.Strings(names)
			for _, name := range names {
				add(filepath.Join(word, name))
			}
			continue
		}
		if strings.ContainsAny(word, "*?[") {
			matches, err := filepath.Glob(word)
			if err != nil {
				return nil, fmt.Errorf("pattern %q: %w", word, err)
			}
			if len(matches) == 0 {
				return nil, fmt.Errorf("no files match %q", word)
			}
			for _, match := range matches {
				add(match)
			}
			continue
		}
		add(word)
	}
	if len(files) == 0 {
		return nil, errors.New("no photos found")
	}
	return files, nil
}

// startUpload runs the batch in a command; progress and the final report
// arrive through the event channel in order.
func (m Model) startUpload(req uploadRequest) (tea.Model, tea.Cmd) {
	if m.upload.active {
		m.setFlashError("An upload is already running")
		return m, nil
	}
	m.upload.active = true
	m.upload.repo = req.repo
	m.upload.total = len(req.files)
	m.upload.results = nil
	m.upload.report = nil
	m.upload.started = time.Now()
	m.currentView = ViewUpload
	m.setFlash(fmt.Sprintf("Uploading %s to %s", plural(len(req.files), "file"), req.repo))

	ctx, backend := m.ctx, m.backend
	emit := m.emit
	run := func() tea.Msg {
		report := backend.Upload(ctx, req.repo, req.files, func(res upload.Result) {
			emit(uploadProgressMsg{repo: req.repo, result: res})
		})
		emit(uploadDoneMsg{repo: req.repo, report: report})
		return nil
	}
	return m, tea.Batch(run, m.upload.bar.SetPercent(0))
}

func (m Model) handleUploadProgress(msg uploadProgressMsg) (tea.Model, tea.Cmd) {
	if !m.upload.active || msg.repo != m.upload.repo {
		return m, nil
	}
	m.upload.results = append(m.upload.results, msg.result)
	if m.upload.total == 0 {
		return m, nil
	}
	return m, m.upload.bar.SetPercent(float64(len(m.upload.results)) / float64(m.upload.total))
}

func (m Model) handleUploadDone(msg uploadDoneMsg) (tea.Model, tea.Cmd) {
	m.upload.active = false
	report := msg.report
	m.upload.report = &report
	m.upload.results = report.Results

	ok, failed := len(report.Succeeded()), len(report.Failed())
	if failed > 0 {
		m.setFlashError(fmt.Sprintf("Uploaded %d of %d to %s; %d failed", ok, len(report.Results), msg.repo, failed))
	} else {
		m.setFlash(fmt.Sprintf("Uploaded %s to %s", plural(ok, "photo"), msg.repo))
	}

	cmds := []tea.Cmd{m.upload.bar.SetPercent(1), m.refreshReposCmd(false)}
	if m.imagesRepo == msg.repo {
		next, cmd := m.openImages(msg.repo, true)
		m = next.(Model)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// renderUpload shows the running or last batch.
func (m Model) renderUpload() string {
	styles := m.theme.Styles()
	height := m.contentHeight()
	u := m.upload

	if u.repo == "" {
		msg := "No uploads yet. Select a repository and press u."
		return m.renderBox("Upload", styles.MutedText.Render(msg), m.width, height, true)
	}

	var lines []string
	done := len(u.results)
	status := fmt.Sprintf("%d/%d files", done, u.total)
	if u.active {
		status = m.build.spinner.View() + " " + status + " · " + humanize.Time(u.started)
	} else if u.report != nil {
		status += fmt.Sprintf(" · %d uploaded · %d failed · took %s",
			len(u.report.Succeeded()), len(u.report.Failed()),
			u.report.Finished.Sub(u.report.Started).Round(time.Second))
	}
	lines = append(lines, styles.Text.Render(status))
	lines = append(lines, u.bar.View(), "")

	var bytes int64
	for _, res := range u.results {
		bytes += res.Size
	}
	nameWidth := clampInt(m.width/2, 20, 60)
	rows := maxInt(height-7, 1)
	results := u.results
	if len(results) > rows {
		results = results[len(results)-rows:]
	}
	for _, res := range results {
		badge := styles.StatusStyle(string(res.State)).Render(padRight(string(res.State), 8))
		detail := ""
		switch {
		case res.OK() && res.Width > 0:
			detail = fmt.Sprintf("%dx%d %s", res.Width, res.Height, humanize.Bytes(uint64(res.Size)))
		case res.Err != nil:
			detail = string(res.Reason) + ": " + res.Err.Error()
		}
		lines = append(lines, badge+" "+styles.Text.Render(padRight(truncateMiddle(res.Filename, nameWidth), nameWidth))+
			"  "+styles.MutedText.Render(truncate(detail, maxInt(m.width-nameWidth-18, 10))))
	}

	title := "Upload to " + u.repo
	if bytes > 0 && !u.active {
		title += " (" + humanize.Bytes(uint64(bytes)) + ")"
	}
	return m.renderBox(title, strings.Join(lines, "\n"), m.width, height, true)
}
