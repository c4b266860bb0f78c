package picker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/runger/logistix/internal/backend"
	"github.com/runger/logistix/internal/paging"
)

const (
	// DefaultDebounce is the delay after the last keystroke before the
	// search term is committed.
	DefaultDebounce = 400 * time.Millisecond

	// MaxQueryLen is the longest search term, in runes, the input accepts.
	MaxQueryLen = 256

	// DefaultFetchTimeout bounds a single FetchPage call.
	DefaultFetchTimeout = 10 * time.Second

	defaultRows = 10
)

// pickerState represents the current state of the picker's state machine.
type pickerState int

const (
	stateIdle            pickerState = iota // Before the initial fetch is issued
	stateFetchingInitial                    // Page 1 for the mount-time term
	stateReady                              // Nothing in flight
	stateDebouncing                         // Keystroke seen, waiting for the term to settle
	stateFetchingSearch                     // Page 1 for a committed search term
	stateFetchingMore                       // Page > 1
)

func (s pickerState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateFetchingInitial:
		return "fetching-initial"
	case stateReady:
		return "ready"
	case stateDebouncing:
		return "debouncing"
	case stateFetchingSearch:
		return "fetching-search"
	case stateFetchingMore:
		return "fetching-more"
	default:
		return "unknown"
	}
}

// fetchDoneMsg is sent when an async Source.FetchPage completes.
type fetchDoneMsg struct {
	req  paging.Request
	page paging.Page[Option]
	err  error
}

// debounceMsg fires after the debounce timer expires.
type debounceMsg struct {
	id uint64 // Must match the current debounceID to be accepted
}

// initMsg is sent by Init() so the first fetch is issued through Update.
type initMsg struct{}

// Props configures a picker. Value and OnValueChange make it a controlled
// component: the model reports selections and never writes caller state.
type Props struct {
	Value         string       // Selected identifier, "" for none
	OnValueChange func(string) // Called once per user selection
	Placeholder   string
	Disabled      bool
	Style         lipgloss.Style // Applied to the outer box
	PageSize      int            // Defaults to paging.DefaultPageSize
	Debounce      time.Duration  // Defaults to DefaultDebounce
	FetchTimeout  time.Duration  // Defaults to DefaultFetchTimeout
	MaxRows       int            // Visible option rows; 0 derives from the terminal height
	QuitOnSelect  bool           // Return tea.Quit on select or cancel (standalone use)
	Keys          *KeyMap
	Logger        *slog.Logger
}

// lifecycle is shared by all copies of a Model so Close reaches the
// instance the runtime holds.
type lifecycle struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// Model is the Bubble Tea model for the remote searchable select.
type Model struct {
	state  pickerState
	source Source
	cursor *paging.Cursor[Option]
	props  Props
	keys   KeyMap
	log    *slog.Logger

	input   textinput.Model
	spinner spinner.Model

	open      bool
	selection int // Index into the accumulated options; -1 when empty
	top       int // First visible row

	value     string // Last selected identifier
	label     string // Label for value, once known
	selected  bool   // A selection happened in this session
	cancelled bool

	// debounceID tracks the latest debounce timer; only a matching
	// debounceMsg commits the search term.
	debounceID      uint64
	debouncePending bool

	life *lifecycle

	width  int
	height int
}

// NewModel creates a picker over source.
func NewModel(source Source, props Props) Model {
	if props.Debounce <= 0 {
		props.Debounce = DefaultDebounce
	}
	if props.FetchTimeout <= 0 {
		props.FetchTimeout = DefaultFetchTimeout
	}
	keys := DefaultKeyMap()
	if props.Keys != nil {
		keys = *props.Keys
	}
	logger := props.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	ti := textinput.New()
	ti.Prompt = "> "
	ti.PromptStyle = queryStyle
	ti.Placeholder = "Search..."
	ti.CharLimit = MaxQueryLen
	ti.Cursor.SetMode(cursor.CursorStatic)
	ti.Focus()

	sp := spinner.New(spinner.WithSpinner(spinner.MiniDot), spinner.WithStyle(dimStyle))

	ctx, cancel := context.WithCancel(context.Background())

	return Model{
		state:     stateIdle,
		source:    source,
		cursor:    paging.New(props.PageSize, func(o Option) string { return o.Value }),
		props:     props,
		keys:      keys,
		log:       logger,
		input:     ti,
		spinner:   sp,
		selection: -1,
		value:     props.Value,
		label:     props.Value,
		life:      &lifecycle{ctx: ctx, cancel: cancel},
	}
}

// WithOpen returns the model with the dropdown initially expanded.
func (m Model) WithOpen() Model {
	m.open = true
	return m
}

// WithQuery returns the model with the search field prefilled. The initial
// fetch uses this term.
func (m Model) WithQuery(q string) Model {
	m.input.SetValue(q)
	m.input.CursorEnd()
	return m
}

// SetValue updates the controlled value, e.g. after the host form resets.
func (m Model) SetValue(v string) Model {
	m.label = v
	if i := m.indexOf(v); i >= 0 {
		m.label = m.cursor.Items()[i].Label
	}
	m.value = v
	return m
}

// Value returns the current identifier.
func (m Model) Value() string {
	return m.value
}

// Result returns the identifier chosen in this session, or "" if the user
// made no selection.
func (m Model) Result() string {
	if !m.selected {
		return ""
	}
	return m.value
}

// Cancelled reports whether the user dismissed a standalone picker.
func (m Model) Cancelled() bool {
	return m.cancelled
}

// Open reports whether the dropdown is expanded.
func (m Model) Open() bool {
	return m.open
}

// Err returns the error of the last fetch, or nil.
func (m Model) Err() error {
	return m.cursor.Err()
}

// Close tears the picker down. In-flight fetches are cancelled and any
// message arriving afterwards is ignored.
func (m Model) Close() {
	m.life.cancel()
}

func (m Model) closed() bool {
	return m.life.ctx.Err() != nil
}

// Init implements tea.Model. It sends an initMsg so that the first fetch
// is triggered through Update, where state mutations are properly captured.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		func() tea.Msg { return initMsg{} },
		m.spinner.Tick,
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.closed() {
		return m, nil
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if msg.Width > 4 {
			m.input.Width = msg.Width - 4
		}
		return m, nil

	case initMsg:
		req, ok := m.cursor.Start(strings.TrimSpace(m.input.Value()))
		if !ok {
			return m, nil
		}
		m.syncState()
		return m, m.fetch(req)

	case fetchDoneMsg:
		return m.handleFetchDone(msg)

	case debounceMsg:
		return m.handleDebounce(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Cancel) && m.props.QuitOnSelect {
		return m.cancel()
	}
	if m.props.Disabled {
		return m, nil
	}

	if !m.open {
		if key.Matches(msg, m.keys.Open) {
			return m.openDropdown()
		}
		if key.Matches(msg, m.keys.Close) && m.props.QuitOnSelect {
			return m.cancel()
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Close):
		if m.props.QuitOnSelect {
			return m.cancel()
		}
		m.open = false
		return m, nil

	case key.Matches(msg, m.keys.Select):
		return m.selectCurrent()

	case key.Matches(msg, m.keys.Up):
		if m.selection > 0 {
			m.selection--
			m.scrollToSelection()
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.selection < m.cursor.Len()-1 {
			m.selection++
			m.scrollToSelection()
		}
		if m.selection == m.cursor.Len()-1 {
			// Reaching the last row pulls the next page in.
			return m, m.loadMore()
		}
		return m, nil

	case key.Matches(msg, m.keys.LoadMore):
		return m, m.loadMore()

	case key.Matches(msg, m.keys.Retry):
		req, ok := m.cursor.Retry()
		if !ok {
			return m, nil
		}
		m.syncState()
		return m, m.fetch(req)
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() == before {
		return m, cmd
	}
	return m, tea.Batch(cmd, m.startDebounce())
}

func (m Model) openDropdown() (tea.Model, tea.Cmd) {
	m.open = true
	if i := m.indexOf(m.value); i >= 0 {
		m.selection = i
	}
	m.clampSelection()
	m.scrollToSelection()
	// A term typed before the last selection was never committed.
	if strings.TrimSpace(m.input.Value()) != m.cursor.Search() && m.cursor.Started() {
		return m, m.startDebounce()
	}
	return m, nil
}

// selectCurrent reports the highlighted option and closes the dropdown.
// The search term and accumulated options are left as they are.
func (m Model) selectCurrent() (tea.Model, tea.Cmd) {
	items := m.cursor.Items()
	if m.selection < 0 || m.selection >= len(items) {
		return m, nil
	}
	opt := items[m.selection]

	m.value = opt.Value
	m.label = opt.Label
	m.selected = true
	m.open = false
	if m.debouncePending {
		m.debounceID++
		m.debouncePending = false
		m.syncState()
	}

	if m.props.OnValueChange != nil {
		m.props.OnValueChange(opt.Value)
	}
	m.log.Debug("option selected", "value", opt.Value)

	if m.props.QuitOnSelect {
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) cancel() (tea.Model, tea.Cmd) {
	m.cancelled = true
	m.open = false
	m.debounceID++
	m.debouncePending = false
	return m, tea.Quit
}

// handleFetchDone applies the result of an async fetch.
func (m Model) handleFetchDone(msg fetchDoneMsg) (tea.Model, tea.Cmd) {
	outcome := m.cursor.Resolve(msg.req, msg.page, msg.err)
	switch outcome {
	case paging.Stale:
		m.log.Debug("stale page dropped",
			"generation", msg.req.Generation,
			"current", m.cursor.Generation(),
			"page", msg.req.Page,
			"search", msg.req.Search,
		)
		return m, nil

	case paging.Failed:
		m.log.Warn("page fetch failed",
			"page", msg.req.Page,
			"search", msg.req.Search,
			"error", msg.err,
		)

	case paging.Applied:
		m.log.Debug("page applied",
			"page", msg.req.Page,
			"total_pages", m.cursor.TotalPages(),
			"items", m.cursor.Len(),
		)
		if msg.req.Page == 1 {
			m.selection = m.indexOf(m.value)
			m.top = 0
		}
		if m.value != "" {
			m.label = m.labelFor(m.value)
		}
	}

	m.clampSelection()
	m.scrollToSelection()
	m.syncState()
	return m, nil
}

// handleDebounce commits the search term if the debounce timer is still
// current.
func (m Model) handleDebounce(msg debounceMsg) (tea.Model, tea.Cmd) {
	if msg.id != m.debounceID || !m.debouncePending {
		return m, nil // Superseded by a later keystroke.
	}
	m.debouncePending = false

	req, ok := m.cursor.Commit(strings.TrimSpace(m.input.Value()))
	if !ok {
		m.syncState()
		return m, nil
	}
	m.selection = -1
	m.top = 0
	m.syncState()
	return m, m.fetch(req)
}

// startDebounce increments the debounce counter and returns a tea.Tick
// command that fires after the configured interval.
func (m *Model) startDebounce() tea.Cmd {
	m.debounceID++
	m.debouncePending = true
	m.syncState()
	id := m.debounceID
	return tea.Tick(m.props.Debounce, func(time.Time) tea.Msg {
		return debounceMsg{id: id}
	})
}

func (m *Model) loadMore() tea.Cmd {
	// A pending search supersedes the current list.
	if m.debouncePending {
		return nil
	}
	req, ok := m.cursor.LoadMore()
	if !ok {
		return nil
	}
	m.syncState()
	return m.fetch(req)
}

// fetch returns a tea.Cmd that calls the source for req. Superseded
// requests are not cancelled; their results are dropped on arrival.
func (m *Model) fetch(req paging.Request) tea.Cmd {
	src := m.source
	parent := m.life.ctx
	timeout := m.props.FetchTimeout
	m.log.Debug("fetching page", "page", req.Page, "limit", req.Limit, "search", req.Search, "generation", req.Generation)

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, timeout)
		defer cancel()
		page, err := src.FetchPage(ctx, req.Page, req.Limit, req.Search)
		return fetchDoneMsg{req: req, page: page, err: err}
	}
}

// syncState derives the state machine position from the cursor and the
// debounce timer.
func (m *Model) syncState() {
	switch {
	case !m.cursor.Started():
		m.state = stateIdle
	case m.debouncePending:
		m.state = stateDebouncing
	case m.cursor.LoadingMore():
		m.state = stateFetchingMore
	case m.cursor.Fetching() && m.cursor.Generation() == 1:
		m.state = stateFetchingInitial
	case m.cursor.Fetching():
		m.state = stateFetchingSearch
	default:
		m.state = stateReady
	}
}

// clampSelection ensures the selection index is within bounds.
func (m *Model) clampSelection() {
	n := m.cursor.Len()
	if n == 0 {
		m.selection = -1
		return
	}
	if m.selection < 0 {
		m.selection = 0
	}
	if m.selection >= n {
		m.selection = n - 1
	}
}

func (m *Model) scrollToSelection() {
	rows := m.listHeight()
	if m.selection < m.top {
		m.top = m.selection
	}
	if m.selection >= m.top+rows {
		m.top = m.selection - rows + 1
	}
	if m.top < 0 {
		m.top = 0
	}
}

func (m Model) indexOf(value string) int {
	if value == "" {
		return -1
	}
	for i, o := range m.cursor.Items() {
		if o.Value == value {
			return i
		}
	}
	return -1
}

// labelFor returns the label of the loaded option with identifier v, or
// the current label when the option is not loaded.
func (m Model) labelFor(v string) string {
	if i := m.indexOf(v); i >= 0 {
		return m.cursor.Items()[i].Label
	}
	if v == m.value && m.label != "" {
		return m.label
	}
	return v
}

// listHeight returns the number of visible option rows.
func (m Model) listHeight() int {
	if m.props.MaxRows > 0 {
		return m.props.MaxRows
	}
	// 1 row for the trigger, 1 for the query line, 1 for status
	const chrome = 3
	h := m.height - chrome
	if h < 1 {
		h = defaultRows
	}
	return h
}

// --- View rendering ---

var (
	triggerStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	placeholderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	disabledStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	selectedStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	normalStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	currentStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	queryStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.viewTrigger())
	if m.open && !m.props.Disabled {
		b.WriteRune('\n')
		b.WriteString(m.input.View())
		b.WriteRune('\n')
		if body := m.viewList(); body != "" {
			b.WriteString(body)
			b.WriteRune('\n')
		}
		b.WriteString(m.viewStatus())
	}

	return m.props.Style.Render(b.String())
}

// viewTrigger renders the collapsed control: the selected label or the
// placeholder.
func (m Model) viewTrigger() string {
	text := m.label
	style := triggerStyle
	if text == "" {
		text = m.props.Placeholder
		if text == "" {
			text = "Select..."
		}
		style = placeholderStyle
	}
	if m.props.Disabled {
		style = disabledStyle
	}
	if m.width > 6 {
		text = Truncate(text, m.width-4)
	}
	marker := "▾"
	if m.open {
		marker = "▴"
	}
	return style.Render(text + " " + marker)
}

// viewList renders the visible window of options with selection marker.
func (m Model) viewList() string {
	items := m.cursor.Items()
	if len(items) == 0 {
		return ""
	}

	rows := m.listHeight()
	end := min(m.top+rows, len(items))

	lines := make([]string, 0, end-m.top)
	for i := m.top; i < end; i++ {
		lines = append(lines, m.viewOption(i, items[i]))
	}
	return strings.Join(lines, "\n")
}

func (m Model) viewOption(i int, o Option) string {
	label := o.Label
	desc := o.Description
	if avail := m.width - 4; avail > 0 {
		label = Truncate(label, avail)
		rest := avail - runewidth.StringWidth(label) - 2
		if rest > 8 {
			desc = MiddleTruncate(desc, rest)
		} else {
			desc = ""
		}
	}

	marker := "  "
	if o.Value == m.value && m.value != "" {
		marker = currentStyle.Render("✓ ")
	}
	var line string
	if i == m.selection {
		line = selectedStyle.Render("> " + label)
	} else {
		line = marker + normalStyle.Render(label)
	}
	if desc != "" {
		line += "  " + dimStyle.Render(desc)
	}
	return line
}

// viewStatus renders the line under the list: progress, errors, or counts.
func (m Model) viewStatus() string {
	switch m.state {
	case stateIdle:
		return dimStyle.Render("Loading...")
	case stateFetchingInitial, stateFetchingSearch:
		return m.spinner.View() + dimStyle.Render(" Loading...")
	case stateFetchingMore:
		return dimStyle.Render(m.countLabel()+" · ") + m.spinner.View() + dimStyle.Render(" Loading more...")
	case stateDebouncing:
		return dimStyle.Render(m.countLabel() + " · typing...")
	}

	if err := m.cursor.Err(); err != nil {
		msg := fmt.Sprintf("Error: %s", backend.Describe(err))
		if m.width > 20 {
			msg = Truncate(msg, m.width-18)
		}
		if !backend.Retryable(err) {
			return errorStyle.Render(msg)
		}
		return errorStyle.Render(msg) + dimStyle.Render(" · ctrl+r to retry")
	}
	if m.cursor.Len() == 0 {
		return dimStyle.Render("No matches")
	}

	status := m.countLabel()
	if m.cursor.HasMore() {
		status += " · ctrl+l for more"
	}
	return dimStyle.Render(status)
}

func (m Model) countLabel() string {
	total := m.cursor.TotalPages()
	if total <= 0 {
		return fmt.Sprintf("%d loaded", m.cursor.Len())
	}
	return fmt.Sprintf("%d loaded · page %d/%d", m.cursor.Len(), m.cursor.CurrentPage(), total)
}
