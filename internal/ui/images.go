package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/lifetime-memories/albumkeeper/internal/catalog"
)

type imagesMsg struct {
	repo   string
	images []catalog.RemoteImage
	err    error
}

// openImages loads the listing for repo in the background.
func (m Model) openImages(repo string, refresh bool) (tea.Model, tea.Cmd) {
	if m.imagesRepo != repo {
		m.images = nil
		m.imageSel = 0
	}
	m.imagesRepo = repo
	m.imagesLoading = true
	ctx, backend := m.ctx, m.backend
	return m, func() tea.Msg {
		images, err := backend.Images(ctx, repo, refresh)
		return imagesMsg{repo: repo, images: images, err: err}
	}
}

func (m Model) handleImages(msg imagesMsg) (tea.Model, tea.Cmd) {
	if msg.repo != m.imagesRepo {
		return m, nil
	}
	m.imagesLoading = false
	if msg.err != nil {
		m.setError(msg.err, "list images")
		return m, nil
	}
	m.images = msg.images
	m.imageSel = clampInt(m.imageSel, 0, maxInt(len(m.images)-1, 0))
	return m, nil
}

func (m Model) handleImagesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.keys
	n := len(m.images)
	switch {
	case key.Matches(msg, k.Down):
		m.imageSel = clampInt(m.imageSel+1, 0, maxInt(n-1, 0))
	case key.Matches(msg, k.Up):
		m.imageSel = clampInt(m.imageSel-1, 0, maxInt(n-1, 0))
	case key.Matches(msg, k.Top):
		m.imageSel = 0
	case key.Matches(msg, k.Bottom):
		m.imageSel = maxInt(n-1, 0)
	case key.Matches(msg, k.Refresh):
		repo := m.imagesRepo
		if repo == "" {
			repo = m.selectedRepo()
		}
		if repo == "" {
			return m, nil
		}
		m.setFlash("Reloading " + repo + "...")
		return m.openImages(repo, true)
	default:
		return m.handleRepoActionKey(msg)
	}
	return m, nil
}

// imageColumnsWidth is the width of every images column but FILE, with gaps.
const imageColumnsWidth = 9 + 9 + 7 + 10 + 4*2

func uploadedLabel(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02")
}

// renderImages lists the photos of the open repository.
func (m Model) renderImages() string {
	styles := m.theme.Styles()
	height := m.contentHeight()

	if m.imagesRepo == "" {
		return m.renderBox("Images", styles.MutedText.Render("Select a repository and press enter."), m.width, height, true)
	}
	title := m.imagesRepo
	if m.imagesLoading {
		title += " " + m.build.spinner.View()
	}
	if len(m.images) == 0 {
		msg := "No photos yet. Press u to upload some."
		if m.imagesLoading {
			msg = "Loading images..."
		}
		return m.renderBox(title, styles.MutedText.Render(msg), m.width, height, true)
	}

	var total int64
	thumbs := 0
	for _, img := range m.images {
		total += img.Size
		if img.HasThumbnail() {
			thumbs++
		}
	}
	title = fmt.Sprintf("%s (%s, %s)", title, plural(len(m.images), "photo"), humanize.Bytes(uint64(total)))

	nameWidth := clampInt(m.width-4-imageColumnsWidth, 12, 60)
	header := padRight("FILE", nameWidth) + "  " + padRight("SIZE", 9) + "  " + padRight("THUMB", 9) + "  " +
		padRight("SHA", 7) + "  UPLOADED"
	lines := []string{styles.FaintText.Render(header)}
	start, end := visibleRange(m.imageSel, len(m.images), height-4)
	for i := start; i < end; i++ {
		img := m.images[i]
		thumb := "-"
		if img.HasThumbnail() {
			thumb = humanize.Bytes(uint64(img.ThumbnailSize))
		}
		row := padRight(truncateMiddle(img.Name, nameWidth), nameWidth) + "  " +
			padRight(humanize.Bytes(uint64(img.Size)), 9) + "  " +
			padRight(thumb, 9) + "  " +
			padRight(img.ShortSHA(), 7) + "  " +
			uploadedLabel(img.UploadedAt)
		if i == m.imageSel {
			row = styles.Selected.Render(padRight(row, m.width-4))
		} else {
			row = styles.Text.Render(row)
		}
		lines = append(lines, row)
	}
	if missing := len(m.images) - thumbs; missing > 0 {
		lines = append(lines, styles.WarningText.Render(plural(missing, "photo")+" without a thumbnail"))
	}
	if sel := m.images[clampInt(m.imageSel, 0, len(m.images)-1)]; sel.DownloadURL != "" && m.width >= LayoutCompactWidth {
		lines = append(lines, styles.FaintText.Render(truncate(sel.DownloadURL, m.width-6)))
	}
	return m.renderBox(title, strings.Join(lines, "\n"), m.width, height, true)
}
