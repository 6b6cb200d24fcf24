// Package tui is the interactive article browser. It is a render sink for the
// orchestrator: wiki links in the article on screen can be selected and
// followed, which issues a contextual search.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"aipedia/internal/core"
	"aipedia/internal/render"
	"aipedia/internal/services"
	"aipedia/internal/store"
	"aipedia/internal/tts"
)

// Engine runs searches for the browser.
type Engine interface {
	Search(ctx context.Context, topic, language string, style core.WritingStyle) error
	Activate(ctx context.Context, link core.WikiLink) error
	Preferences() core.Preferences
	SetPreferences(p core.Preferences)
}

// Options wire the optional features of the browser.
type Options struct {
	Language     string
	Style        core.WritingStyle
	InitialTopic string

	Narrator   services.NarrationService                          // nil disables narration
	SaveAudio  func(audio *tts.Audio, name string) (string, error) // where narration goes
	Prefs      services.PreferenceStore                           // nil keeps toggles for the session only
	ClearCache func()
}

type (
	articleMsg  core.Article
	errorMsg    string
	progressMsg core.ProgressStep
	doneMsg     struct {
		seq int
		err error
	}
	narratedMsg struct {
		path string
		err  error
	}
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	statusStyle   = lipgloss.NewStyle().Faint(true)
	errorStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	selectedStyle = lipgloss.NewStyle().Reverse(true)
	linkStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("33"))
)

// Model is the bubbletea model of the browser.
type Model struct {
	ctx    context.Context
	engine Engine
	opts   Options

	input    textinput.Model
	view     viewport.Model
	spin     spinner.Model
	article  *core.Article
	links    []core.WikiLink
	selected int

	loading  bool
	seq      int // identifies the latest search started from the browser
	progress []string
	status   string
	errMsg   string
	width    int
	height   int
}

// NewModel creates the browser model.
func NewModel(ctx context.Context, engine Engine, opts Options) Model {
	if opts.Language == "" {
		opts.Language = "en"
	}
	if opts.Style == "" {
		opts.Style = core.StyleNormal
	}

	ti := textinput.New()
	ti.Placeholder = "Search for a topic..."
	ti.Prompt = "/ "
	ti.CharLimit = 100
	ti.Width = 60
	ti.SetValue(opts.InitialTopic)
	initial := strings.TrimSpace(opts.InitialTopic) != ""
	if !initial {
		ti.Focus()
	}

	vp := viewport.New(80, 20)
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		ctx:      ctx,
		engine:   engine,
		opts:     opts,
		input:    ti,
		view:     vp,
		spin:     sp,
		selected: -1,
		loading:  initial,
		width:    80,
		height:   24,
	}
}

// Init starts the initial search, if a topic was given.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink}
	if strings.TrimSpace(m.opts.InitialTopic) != "" {
		cmds = append(cmds, m.searchCmd(m.opts.InitialTopic), m.spin.Tick)
	}
	return tea.Batch(cmds...)
}

func (m Model) searchCmd(topic string) tea.Cmd {
	engine, ctx, lang, style, seq := m.engine, m.ctx, m.opts.Language, m.opts.Style, m.seq
	return func() tea.Msg {
		return doneMsg{seq: seq, err: engine.Search(ctx, topic, lang, style)}
	}
}

func (m Model) activateCmd(link core.WikiLink) tea.Cmd {
	engine, ctx, seq := m.engine, m.ctx, m.seq
	return func() tea.Msg {
		return doneMsg{seq: seq, err: engine.Activate(ctx, link)}
	}
}

func (m Model) narrateCmd(article core.Article) tea.Cmd {
	narrator, save, ctx := m.opts.Narrator, m.opts.SaveAudio, m.ctx
	lang := m.opts.Language
	provider := tts.Provider(m.engine.Preferences().TTSProvider)
	return func() tea.Msg {
		audio, err := narrator.Narrate(ctx, article, lang, provider)
		if err != nil {
			return narratedMsg{err: err}
		}
		if save == nil {
			return narratedMsg{path: ""}
		}
		path, err := save(audio, tts.AudioFileName(article.Title))
		return narratedMsg{path: path, err: err}
	}
}

// Update handles messages and updates the model accordingly.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.view.Width = msg.Width
		m.view.Height = max(msg.Height-6, 3)
		m.input.Width = max(msg.Width-4, 10)
		m.refresh()
		return m, nil

	case progressMsg:
		m.progress = append(m.progress, render.FormatProgress(core.ProgressStep(msg)))
		return m, nil

	case articleMsg:
		a := core.Article(msg)
		m.article = &a
		m.links = render.ArticleWikiLinks(a)
		m.selected = -1
		if len(m.links) > 0 {
			m.selected = 0
		}
		m.errMsg = ""
		m.loading = false
		m.view.GotoTop()
		m.refresh()
		return m, nil

	case errorMsg:
		m.errMsg = string(msg)
		m.loading = false
		return m, nil

	case doneMsg:
		// A superseded search finishing must not end the spinner of its successor.
		if msg.seq == m.seq {
			m.loading = false
		}
		return m, nil

	case narratedMsg:
		switch {
		case msg.err != nil:
			m.status = "Narration failed: " + core.UserMessage(msg.err)
		case msg.path != "":
			m.status = "Narration saved to " + msg.path
		default:
			m.status = "Narration ready"
		}
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.input.Focused() {
			return m.updateInput(msg)
		}
		return m.updateReading(msg)
	}

	return m, nil
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		if m.article != nil {
			m.input.Blur()
		}
		return m, nil
	case "enter":
		topic := strings.TrimSpace(m.input.Value())
		if topic == "" {
			return m, nil
		}
		m.input.Blur()
		m = m.startLoading()
		return m, tea.Batch(m.searchCmd(topic), m.spin.Tick)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateReading(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "/":
		m.input.SetValue("")
		return m, m.input.Focus()
	case "tab", "right", "l":
		m.cycle(1)
		return m, nil
	case "shift+tab", "left", "h":
		m.cycle(-1)
		return m, nil
	case "enter":
		if m.selected < 0 || m.selected >= len(m.links) {
			return m, nil
		}
		link := m.links[m.selected]
		m = m.startLoading()
		return m, tea.Batch(m.activateCmd(link), m.spin.Tick)
	case "c":
		prefs := m.engine.Preferences()
		prefs.CachingEnabled = !prefs.CachingEnabled
		m.status = fmt.Sprintf("Caching %s", onOff(prefs.CachingEnabled))
		m.applyPreferences(prefs)
		return m, nil
	case "i":
		prefs := m.engine.Preferences()
		prefs.ImageSuggestion = !prefs.ImageSuggestion
		m.status = fmt.Sprintf("AI image suggestions %s", onOff(prefs.ImageSuggestion))
		m.applyPreferences(prefs)
		return m, nil
	case "x":
		if m.opts.ClearCache != nil {
			m.opts.ClearCache()
			m.status = "Cache cleared"
		}
		return m, nil
	case "a":
		if m.article == nil || m.opts.Narrator == nil {
			return m, nil
		}
		m.status = "Generating narration..."
		return m, m.narrateCmd(*m.article)
	}

	var cmd tea.Cmd
	m.view, cmd = m.view.Update(msg)
	return m, cmd
}

func (m Model) startLoading() Model {
	m.loading = true
	m.seq++
	m.progress = nil
	m.errMsg = ""
	m.status = ""
	return m
}

func (m *Model) cycle(delta int) {
	if len(m.links) == 0 {
		return
	}
	m.selected = (m.selected + delta + len(m.links)) % len(m.links)
}

func (m *Model) applyPreferences(p core.Preferences) {
	m.engine.SetPreferences(p)
	if m.opts.Prefs == nil {
		return
	}
	values := map[string]string{
		store.PrefCachingEnabled:  fmt.Sprint(p.CachingEnabled),
		store.PrefImageSuggestion: fmt.Sprint(p.ImageSuggestion),
	}
	for key, value := range values {
		if err := m.opts.Prefs.SetPreference(key, value); err != nil {
			m.status = "Could not save preference: " + err.Error()
		}
	}
}

func (m *Model) refresh() {
	if m.article == nil {
		m.view.SetContent("")
		return
	}
	m.view.SetContent(render.FormatArticle(*m.article, nil))
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// View renders the TUI.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("aipedia") + "  " + m.input.View() + "\n")

	switch {
	case m.loading:
		b.WriteString(m.spin.View() + " Loading\n")
		for _, p := range m.progress {
			b.WriteString(statusStyle.Render(p) + "\n")
		}
	case m.errMsg != "":
		b.WriteString(errorStyle.Render("Error: "+m.errMsg) + "\n")
	}

	if m.article != nil && !m.loading {
		b.WriteString(m.view.View() + "\n")
		b.WriteString(m.linkBar() + "\n")
	}

	if m.status != "" {
		b.WriteString(statusStyle.Render(m.status) + "\n")
	}
	b.WriteString(statusStyle.Render("[/] search  [tab] next link  [enter] follow  [c] cache  [x] clear cache  [i] image AI  [a] narrate  [q] quit"))
	return b.String()
}

func (m Model) linkBar() string {
	if len(m.links) == 0 {
		return statusStyle.Render("No links in this article")
	}
	link := m.links[m.selected]
	return fmt.Sprintf("Link %d/%d: %s", m.selected+1, len(m.links), selectedStyle.Render(linkStyle.Render(link.DisplayText)))
}

// Run starts the browser. The sink must be the one the engine renders to.
func Run(ctx context.Context, engine Engine, sink *Sink, opts Options) error {
	p := tea.NewProgram(NewModel(ctx, engine, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	sink.Attach(p.Send)
	defer sink.Attach(nil)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running browser: %w", err)
	}
	return nil
}
