package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Modal is the interface for modal dialogs.
// The Update method returns the updated modal, a command, and a bool indicating if the modal should close.
type Modal interface {
	Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool)
	View(theme Theme, width, height int) string
}

type formField struct {
	label string
	input textinput.Model
}

// formModal collects one or more text values. submit validates them and
// returns the message to send; a non-nil error keeps the modal open.
type formModal struct {
	title  string
	hint   string
	fields []formField
	focus  int
	err    string
	submit func(values []string) (tea.Msg, error)
}

func newField(label, placeholder, value string, limit int) formField {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = limit
	ti.SetValue(value)
	return formField{label: label, input: ti}
}

func newFormModal(title, hint string, fields []formField, submit func([]string) (tea.Msg, error)) *formModal {
	m := &formModal{title: title, hint: hint, fields: fields, submit: submit}
	if len(m.fields) > 0 {
		m.fields[0].input.Focus()
	}
	return m
}

func (f *formModal) setFocus(i int) {
	if len(f.fields) == 0 {
		return
	}
	f.fields[f.focus].input.Blur()
	f.focus = (i + len(f.fields)) % len(f.fields)
	f.fields[f.focus].input.Focus()
}

// Values returns the trimmed field values in order.
func (f *formModal) Values() []string {
	out := make([]string, len(f.fields))
	for i, field := range f.fields {
		out[i] = strings.TrimSpace(field.input.Value())
	}
	return out
}

func (f *formModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch {
		case k.Type == tea.KeyEsc:
			return f, nil, true
		case key.Matches(k, keys.Confirm):
			out, err := f.submit(f.Values())
			if err != nil {
				f.err = err.Error()
				return f, nil, false
			}
			return f, func() tea.Msg { return out }, true
		case k.Type == tea.KeyTab || k.Type == tea.KeyDown:
			f.setFocus(f.focus + 1)
			return f, nil, false
		case k.Type == tea.KeyShiftTab || k.Type == tea.KeyUp:
			f.setFocus(f.focus - 1)
			return f, nil, false
		}
		f.err = ""
	}
	if len(f.fields) == 0 {
		return f, nil, false
	}
	var cmd tea.Cmd
	f.fields[f.focus].input, cmd = f.fields[f.focus].input.Update(msg)
	return f, cmd, false
}

func (f *formModal) View(theme Theme, width, height int) string {
	styles := theme.Styles()
	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render(f.title))
	b.WriteString("\n\n")
	for i, field := range f.fields {
		label := styles.MutedText
		if i == f.focus {
			label = styles.AccentText
		}
		b.WriteString(label.Render(field.label))
		b.WriteString("\n")
		b.WriteString(field.input.View())
		b.WriteString("\n\n")
	}
	if f.err != "" {
		b.WriteString(styles.DangerText.Render(f.err))
		b.WriteString("\n\n")
	}
	hint := "enter confirm · tab next field · esc cancel"
	if f.hint != "" {
		hint = f.hint + "\n" + hint
	}
	b.WriteString(styles.FaintText.Render(hint))
	return placeModal(theme, width, height, 60, b.String())
}

// confirmModal asks a yes/no question and sends onYes on confirmation.
type confirmModal struct {
	title   string
	message string
	danger  bool
	onYes   tea.Msg
}

func (c *confirmModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return c, nil, false
	}
	switch k.String() {
	case "y", "Y":
		out := c.onYes
		return c, func() tea.Msg { return out }, true
	case "n", "N", "esc", "q":
		return c, nil, true
	}
	return c, nil, false
}

func (c *confirmModal) View(theme Theme, width, height int) string {
	styles := theme.Styles()
	title := styles.Text.Bold(true)
	if c.danger {
		title = styles.DangerText
	}
	body := title.Render(c.title) + "\n\n" +
		styles.Text.Render(c.message) + "\n\n" +
		styles.FaintText.Render("y confirm · n/esc cancel")
	return placeModal(theme, width, height, 56, body)
}

func placeModal(theme Theme, width, height, modalWidth int, content string) string {
	if width > 0 && modalWidth > width-4 {
		modalWidth = maxInt(width-4, 20)
	}
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(theme.Accent)).
		Padding(1, 2).
		Width(modalWidth).
		Render(content)
	return lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		box,
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(theme.Background)),
	)
}
