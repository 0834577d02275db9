package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

// renderHeader renders the status bar: account, quota, cache and watch state.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	compact := m.width < LayoutCompactWidth
	snap := m.snapshot

	parts := []string{bg.Render("albumkeeper", styles.Logo)}

	owner := snap.Owner
	if owner == "" {
		owner = "personal account"
	}
	parts = append(parts, bg.Render(owner, styles.Text))

	switch {
	case snap.IsOffline():
		parts = append(parts, bg.Render("● OFFLINE", styles.DangerText))
	case snap.LastError != nil:
		parts = append(parts, bg.Render("● retrying", styles.WarningText))
	case !snap.LastUpdated.IsZero():
		parts = append(parts, bg.Render("● online", styles.SuccessText))
	default:
		parts = append(parts, bg.Render("Connecting to GitHub...", styles.WarningText))
	}

	parts = append(parts, bg.Render("Repos:", styles.MutedText)+bg.Spaces(1)+
		bg.Render(fmt.Sprintf("%d", len(snap.Repos)), styles.Text))

	if rl := snap.RateLimit; rl.Known() {
		quota := styles.Text
		switch {
		case rl.Remaining < 10:
			quota = styles.DangerText
		case rl.Remaining < 100:
			quota = styles.WarningText
		}
		label := fmt.Sprintf("%d/%d", rl.Remaining, rl.Limit)
		if !compact && !rl.Reset.IsZero() {
			label += " resets " + rl.Reset.Local().Format("15:04")
		}
		parts = append(parts, bg.Render("API:", styles.MutedText)+bg.Spaces(1)+bg.Render(label, quota))
	}

	if c := snap.Cache; c.Enabled && !compact {
		label := fmt.Sprintf("%d/%d", c.Valid, c.Max)
		if total := c.Hits + c.Misses; total > 0 {
			label += fmt.Sprintf(" hit %d%%", c.Hits*100/total)
		}
		parts = append(parts, bg.Render("Cache:", styles.MutedText)+bg.Spaces(1)+bg.Render(label, styles.Text))
	}

	if m.build.watching != "" {
		parts = append(parts, bg.Render(m.build.spinner.View()+" "+m.build.watching, styles.InfoText))
	}

	if !compact && !m.lastUpdated.IsZero() {
		parts = append(parts, bg.Render(m.lastUpdated.Format("15:04:05"), styles.FaintText))
	}

	return styles.Header.Width(m.width).Render(bg.Join(parts, "  "))
}

// renderCommandBar lists the views with the current one highlighted.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles()
	var tabs []string
	for i, v := range viewOrder {
		label := fmt.Sprintf(" %d %s ", i+1, v)
		if v == m.currentView {
			tabs = append(tabs, styles.Selected.Bold(true).Render(label))
		} else {
			tabs = append(tabs, styles.MutedText.Render(label))
		}
	}
	repo := m.selectedRepo()
	right := ""
	if repo != "" {
		right = styles.AccentText.Render(repo) + styles.FaintText.Render(" · "+string(m.layout))
	}
	left := strings.Join(tabs, " ")
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		return left
	}
	return left + strings.Repeat(" ", gap) + right
}

// renderFooter shows the latest flash message or the key hints.
func (m Model) renderFooter() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	if m.flash != "" {
		style := styles.InfoText
		if m.flashErr {
			style = styles.DangerText
		}
		return styles.Footer.Width(m.width).Render(bg.Render(truncate(m.flash, m.width-2), style))
	}
	hints := []string{"? help", "tab views", "u upload", "p publish", "q quit"}
	if m.currentView == ViewRepos {
		hints = []string{"? help", "enter open", "n new", "d delete", "u upload", "p publish", "w watch", "r refresh", "q quit"}
	}
	return styles.Footer.Width(m.width).Render(bg.Render(strings.Join(hints, "  "), styles.MutedText))
}

// since formats t relative to now for tables.
func since(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}
