package ui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/lifetime-memories/albumkeeper/internal/catalog"
	"github.com/lifetime-memories/albumkeeper/internal/github"
	"github.com/lifetime-memories/albumkeeper/internal/logtail"
	"github.com/lifetime-memories/albumkeeper/internal/pages"
	"github.com/lifetime-memories/albumkeeper/internal/prefs"
	"github.com/lifetime-memories/albumkeeper/internal/publish"
	"github.com/lifetime-memories/albumkeeper/internal/state"
	"github.com/lifetime-memories/albumkeeper/internal/upload"
)

// View represents the current active view.
type View int

const (
	ViewRepos View = iota
	ViewImages
	ViewUpload
	ViewStatus
	ViewLogs
)

var viewOrder = []View{ViewRepos, ViewImages, ViewUpload, ViewStatus, ViewLogs}

func (v View) String() string {
	switch v {
	case ViewImages:
		return "Images"
	case ViewUpload:
		return "Upload"
	case ViewStatus:
		return "Pages"
	case ViewLogs:
		return "Logs"
	default:
		return "Repositories"
	}
}

// Backend is everything the UI asks of the application. Calls block and are
// always made from commands, never from Update.
type Backend interface {
	Repositories(ctx context.Context, refresh bool) ([]github.Repository, error)
	CreateRepo(ctx context.Context, name, description string) (*github.Repository, error)
	DeleteRepo(ctx context.Context, name string) error
	Images(ctx context.Context, repo string, refresh bool) ([]catalog.RemoteImage, error)
	Upload(ctx context.Context, repo string, files []string, onProgress func(upload.Result)) upload.Report
	Publish(ctx context.Context, repo string, opts publish.Options, onUpdate func(pages.Update)) (publish.Result, error)
	Watch(ctx context.Context, repo string, onUpdate func(pages.Update)) error
	StopWatch()
}

// Options configures the UI.
type Options struct {
	Context   context.Context
	Backend   Backend
	Store     *state.Store
	Logger    *log.Logger
	LogPath   string
	LogDir    string
	Prefs     prefs.Prefs
	SavePrefs func(prefs.Prefs) error
	// Layout is the configured gallery layout, used when no preference is saved.
	Layout   publish.Layout
	PollTick time.Duration
}

// Model is the root application state for Bubble Tea.
type Model struct {
	ctx       context.Context
	backend   Backend
	store     *state.Store
	logger    *log.Logger
	logPath   string
	logDir    string
	prefs     prefs.Prefs
	savePrefs func(prefs.Prefs) error
	pollTick  time.Duration
	events    chan tea.Msg

	keys        keyMap
	theme       Theme
	currentView View
	width       int
	height      int
	ready       bool

	snapshot    state.Snapshot
	lastUpdated time.Time

	repoSel  int
	repoName string

	imagesRepo    string
	images        []catalog.RemoteImage
	imageSel      int
	imagesLoading bool

	layout publish.Layout

	modal    Modal
	showHelp bool

	flash    string
	flashErr bool
	flashAt  time.Time

	upload uploadState
	build  buildState
	logs   logState
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	pollTick := opts.PollTick
	if pollTick <= 0 || pollTick > DefaultUIInterval {
		pollTick = DefaultUIInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	layout := opts.Layout
	if strings.TrimSpace(opts.Prefs.Layout) != "" {
		layout = opts.Prefs.GalleryLayout()
	}
	if layout == "" {
		layout = publish.LayoutJustified
	}
	themeName := opts.Prefs.Theme
	if themeName == "" {
		themeName = "Dracula"
	}

	search := textinput.New()
	search.Placeholder = "filter logs..."
	search.CharLimit = 100

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	return Model{
		ctx:         ctx,
		backend:     opts.Backend,
		store:       opts.Store,
		logger:      logger.WithPrefix("ui"),
		logPath:     opts.LogPath,
		logDir:      opts.LogDir,
		prefs:       opts.Prefs,
		savePrefs:   opts.SavePrefs,
		pollTick:    pollTick,
		events:      make(chan tea.Msg, 256),
		keys:        DefaultKeyMap(),
		theme:       GetTheme(themeName),
		currentView: ViewRepos,
		repoName:    opts.Prefs.LastRepo,
		layout:      layout,
		upload:      uploadState{bar: progress.New(progress.WithDefaultGradient())},
		build:       buildState{spinner: spin},
		logs:        logState{follow: true, search: search, filter: logtail.Filter{MinLevel: log.DebugLevel}},
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tickCmd(m.pollTick),
		m.listen(),
		m.build.spinner.Tick,
	}
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resizeLogViewport()
		m.upload.bar.Width = clampInt(m.width-20, 10, 80)
		return m, nil

	case eventMsg:
		next, cmd := m.Update(msg.Msg)
		return next, tea.Batch(cmd, m.listen())

	case tickMsg:
		return m.handleTick()

	case snapshotMsg:
		m.snapshot = state.Snapshot(msg)
		m.lastUpdated = time.Now()
		m.syncRepoSelection()
		return m, nil

	case reposMsg:
		if msg.err != nil {
			m.setError(msg.err, "refresh repositories")
		} else {
			m.setFlash("Repositories refreshed")
		}
		return m, fetchSnapshotCmd(m.store)

	case imagesMsg:
		return m.handleImages(msg)

	case createRepoRequest:
		m.setFlash("Creating " + msg.name + "...")
		return m, m.createRepoCmd(msg.name, msg.description)

	case repoCreatedMsg:
		if msg.err != nil {
			m.setError(msg.err, "create repository")
			return m, nil
		}
		m.repoName = msg.repo.Name
		m.setFlash("Created " + msg.repo.Name)
		return m, m.refreshReposCmd(false)

	case deleteRepoRequest:
		m.setFlash("Deleting " + msg.name + "...")
		return m, m.deleteRepoCmd(msg.name)

	case repoDeletedMsg:
		if msg.err != nil {
			m.setError(msg.err, "delete repository")
			return m, nil
		}
		if m.imagesRepo == msg.name {
			m.imagesRepo, m.images = "", nil
		}
		m.setFlash("Deleted " + msg.name)
		return m, m.refreshReposCmd(false)

	case uploadRequest:
		return m.startUpload(msg)

	case uploadProgressMsg:
		return m.handleUploadProgress(msg)

	case uploadDoneMsg:
		return m.handleUploadDone(msg)

	case publishRequest:
		return m.startPublish(msg)

	case publishedMsg:
		return m.handlePublished(msg)

	case buildMsg:
		return m.handleBuild(pages.Update(msg))

	case watchStartedMsg:
		if msg.err != nil {
			m.setError(msg.err, "watch pages build")
			m.build.watching = ""
		}
		return m, nil

	case watchStoppedMsg:
		m.build.watching = ""
		m.setFlash("Stopped watching")
		return m, nil

	case logsMsg:
		m.handleLogs(msg)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.build.spinner, cmd = m.build.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		model, cmd := m.upload.bar.Update(msg)
		m.upload.bar = model.(progress.Model)
		return m, cmd
	}

	if m.modal != nil {
		return m.updateModal(msg)
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	if m.modal != nil {
		return m.modal.View(m.theme, m.width, m.height)
	}
	return m.renderMain()
}

func (m Model) updateModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd, done := m.modal.Update(msg, m.keys)
	if done {
		m.modal = nil
	} else {
		m.modal = next
	}
	return m, cmd
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}
	if m.modal != nil {
		return m.updateModal(msg)
	}
	if m.currentView == ViewLogs && m.logs.searching {
		return m.handleLogSearchKey(msg)
	}

	k := m.keys
	switch {
	case msg.String() == "ctrl+c":
		return m, tea.Quit
	case key.Matches(msg, k.Quit):
		return m, tea.Quit
	case key.Matches(msg, k.Help):
		m.showHelp = true
		return m, nil
	case key.Matches(msg, k.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.prefs.Theme = m.theme.Name
		m.persistPrefs()
		return m, nil
	case key.Matches(msg, k.CycleLayout):
		m.layout = publish.NextLayout(m.layout)
		m.prefs.Layout = string(m.layout)
		m.persistPrefs()
		m.setFlash("Gallery layout: " + string(m.layout))
		return m, nil
	case key.Matches(msg, k.Tab):
		return m.switchView(m.nextView(1))
	case key.Matches(msg, k.ShiftTab):
		return m.switchView(m.nextView(-1))
	case key.Matches(msg, k.Escape):
		return m.switchView(ViewRepos)
	case key.Matches(msg, k.ViewRepos):
		return m.switchView(ViewRepos)
	case key.Matches(msg, k.ViewImages):
		return m.switchView(ViewImages)
	case key.Matches(msg, k.ViewUpload):
		return m.switchView(ViewUpload)
	case key.Matches(msg, k.ViewStatus):
		return m.switchView(ViewStatus)
	case key.Matches(msg, k.ViewLogs):
		return m.switchView(ViewLogs)
	}

	switch m.currentView {
	case ViewRepos:
		return m.handleReposKey(msg)
	case ViewImages:
		return m.handleImagesKey(msg)
	case ViewUpload:
		return m.handleRepoActionKey(msg)
	case ViewStatus:
		return m.handleStatusKey(msg)
	case ViewLogs:
		return m.handleLogsKey(msg)
	}
	return m, nil
}

func (m Model) nextView(step int) View {
	for i, v := range viewOrder {
		if v == m.currentView {
			return viewOrder[(i+step+len(viewOrder))%len(viewOrder)]
		}
	}
	return ViewRepos
}

func (m Model) switchView(v View) (tea.Model, tea.Cmd) {
	m.currentView = v
	switch v {
	case ViewImages:
		if repo := m.selectedRepo(); repo != "" && repo != m.imagesRepo {
			return m.openImages(repo, false)
		}
	case ViewLogs:
		return m, m.refreshLogsCmd()
	}
	return m, nil
}

// handleRepoActionKey covers actions that apply to the selected repository
// from any view.
func (m Model) handleRepoActionKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	repo := m.selectedRepo()
	switch {
	case key.Matches(msg, m.keys.Upload):
		if repo == "" {
			m.setFlashError("Select a repository first")
			return m, nil
		}
		m.modal = newUploadModal(repo)
		return m, textinput.Blink
	case key.Matches(msg, m.keys.Publish):
		if repo == "" {
			m.setFlashError("Select a repository first")
			return m, nil
		}
		m.modal = newPublishModal(repo, m.layout)
		return m, textinput.Blink
	case key.Matches(msg, m.keys.Watch):
		if repo == "" {
			return m, nil
		}
		return m.startWatch(repo)
	}
	return m, nil
}

// handleTick processes the polling tick.
func (m Model) handleTick() (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{tickCmd(m.pollTick)}
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	if m.currentView == ViewLogs && m.logs.follow {
		cmds = append(cmds, m.refreshLogsCmd())
	}
	if m.flash != "" && time.Since(m.flashAt) > flashTTL {
		m.flash = ""
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) persistPrefs() {
	if m.savePrefs == nil {
		return
	}
	if err := m.savePrefs(m.prefs); err != nil {
		m.logger.Warn("save preferences failed", "err", err)
	}
}

func (m *Model) setFlash(text string) {
	m.flash = text
	m.flashErr = false
	m.flashAt = time.Now()
}

func (m *Model) setFlashError(text string) {
	m.flash = text
	m.flashErr = true
	m.flashAt = time.Now()
}

// setError shows the first line of the user-facing message for err.
func (m *Model) setError(err error, operation string) {
	text := github.Message(err, operation)
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	m.logger.Warn(operation+" failed", "err", err)
	m.setFlashError(text)
}

// renderMain renders the header, command bar, content and footer.
func (m Model) renderMain() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")
	b.WriteString(m.renderContent())
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

// contentHeight is the rows left for the active view.
func (m Model) contentHeight() int {
	return maxInt(m.height-3, 1)
}

func (m Model) renderContent() string {
	switch m.currentView {
	case ViewImages:
		return m.renderImages()
	case ViewUpload:
		return m.renderUpload()
	case ViewStatus:
		return m.renderStatus()
	case ViewLogs:
		return m.renderLogs()
	default:
		return m.renderRepos()
	}
}

// Messages

type tickMsg time.Time

type snapshotMsg state.Snapshot

// eventMsg wraps messages produced by background callbacks.
type eventMsg struct{ tea.Msg }

type reposMsg struct{ err error }

type repoCreatedMsg struct {
	repo *github.Repository
	err  error
}

type repoDeletedMsg struct {
	name string
	err  error
}

type createRepoRequest struct{ name, description string }

type deleteRepoRequest struct{ name string }

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(store *state.Store) tea.Cmd {
	if store == nil {
		return nil
	}
	return func() tea.Msg {
		return snapshotMsg(store.Snapshot())
	}
}

// listen delivers the next background event.
func (m Model) listen() tea.Cmd {
	events := m.events
	ctx := m.ctx
	return func() tea.Msg {
		select {
		case msg := <-events:
			return eventMsg{msg}
		case <-ctx.Done():
			return nil
		}
	}
}

// emit queues msg for listen. It gives up when the UI context ends.
func (m Model) emit(msg tea.Msg) {
	select {
	case m.events <- msg:
	case <-m.ctx.Done():
	}
}

func (m Model) refreshReposCmd(force bool) tea.Cmd {
	ctx, backend := m.ctx, m.backend
	return func() tea.Msg {
		_, err := backend.Repositories(ctx, force)
		return reposMsg{err: err}
	}
}

func (m Model) createRepoCmd(name, description string) tea.Cmd {
	ctx, backend := m.ctx, m.backend
	return func() tea.Msg {
		repo, err := backend.CreateRepo(ctx, name, description)
		return repoCreatedMsg{repo: repo, err: err}
	}
}

func (m Model) deleteRepoCmd(name string) tea.Cmd {
	ctx, backend := m.ctx, m.backend
	return func() tea.Msg {
		return repoDeletedMsg{name: name, err: backend.DeleteRepo(ctx, name)}
	}
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	_, err := p.Run()
	if err != nil && m.ctx.Err() != nil {
		return nil
	}
	return err
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
