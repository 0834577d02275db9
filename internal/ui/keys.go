package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the application.
type keyMap struct {
	// Global
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	Tab        key.Binding
	ShiftTab   key.Binding
	Escape     key.Binding

	// View switching
	ViewRepos  key.Binding
	ViewImages key.Binding
	ViewUpload key.Binding
	ViewStatus key.Binding
	ViewLogs   key.Binding

	// Repository actions
	Open        key.Binding
	Refresh     key.Binding
	NewRepo     key.Binding
	DeleteRepo  key.Binding
	Upload      key.Binding
	Publish     key.Binding
	Watch       key.Binding
	StopWatch   key.Binding
	CycleLayout key.Binding

	// Navigation
	Up     key.Binding
	Down   key.Binding
	Top    key.Binding
	Bottom key.Binding

	// Logs
	ToggleFollow key.Binding
	CycleLevel   key.Binding
	Search       key.Binding

	// Modal input
	Confirm  key.Binding
	NextItem key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit:       key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "Quit")),
		Help:       key.NewBinding(key.WithKeys("?", "h"), key.WithHelp("?/h", "Toggle help")),
		CycleTheme: key.NewBinding(key.WithKeys("T"), key.WithHelp("T", "Cycle theme")),
		Tab:        key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "Next view")),
		ShiftTab:   key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "Previous view")),
		Escape:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "Back / close")),

		ViewRepos:  key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "Repositories")),
		ViewImages: key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "Images")),
		ViewUpload: key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "Upload")),
		ViewStatus: key.NewBinding(key.WithKeys("4"), key.WithHelp("4", "Pages status")),
		ViewLogs:   key.NewBinding(key.WithKeys("5", "l"), key.WithHelp("5/l", "Logs")),

		Open:        key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "Open images")),
		Refresh:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "Refresh")),
		NewRepo:     key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "New repository")),
		DeleteRepo:  key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "Delete repository")),
		Upload:      key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "Upload photos")),
		Publish:     key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "Publish gallery")),
		Watch:       key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "Watch Pages build")),
		StopWatch:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "Stop watching")),
		CycleLayout: key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "Cycle gallery layout")),

		Up:     key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/up", "Move up")),
		Down:   key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/down", "Move down")),
		Top:    key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g", "Go to top")),
		Bottom: key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "Go to bottom")),

		ToggleFollow: key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "Toggle follow")),
		CycleLevel:   key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "Cycle minimum level")),
		Search:       key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "Filter logs")),

		Confirm:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "Confirm")),
		NextItem: key.NewBinding(key.WithKeys("tab", "down"), key.WithHelp("tab", "Next field")),
	}
}

// ShortHelp returns key bindings for the footer.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

// FullHelp returns key bindings grouped for the help overlay.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.ViewRepos, k.ViewImages, k.ViewUpload, k.ViewStatus, k.ViewLogs, k.Escape},
		{k.Up, k.Down, k.Top, k.Bottom},
		{k.Open, k.Refresh, k.NewRepo, k.DeleteRepo, k.Upload, k.Publish, k.Watch, k.StopWatch, k.CycleLayout},
		{k.ToggleFollow, k.CycleLevel, k.Search},
		{k.CycleTheme, k.Help, k.Quit},
	}
}
