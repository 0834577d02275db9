package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/lifetime-memories/albumkeeper/internal/pages"
)

var headerStyle = lipgloss.NewStyle().Bold(true)

// printTable writes rows under headers without borders.
func printTable(w io.Writer, headers []string, rows [][]string) {
	t := table.New().
		Border(lipgloss.HiddenBorder()).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().PaddingRight(2)
			if row == table.HeaderRow {
				return s.Inherit(headerStyle)
			}
			return s
		})
	fmt.Fprintln(w, t.Render())
}

func printBuild(cmd *cobra.Command, u pages.Update) {
	line := fmt.Sprintf("%s  %s", u.Repo, u.Status)
	if u.Raw != "" && u.Raw != string(u.Status) {
		line += " (" + u.Raw + ")"
	}
	if !u.At.IsZero() {
		line += "  " + humanize.Time(u.At)
	}
	if u.Err != nil {
		line += "  " + u.Err.Error()
	}
	fmt.Fprintln(cmd.OutOrStdout(), line)
}
