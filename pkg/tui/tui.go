// Package tui provides a terminal chart editor for chartwright
package tui

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/james-see/chartwright/pkg/converter"
	"github.com/james-see/chartwright/pkg/editor"
	"github.com/james-see/chartwright/pkg/score"
)

// State represents the current TUI state
type State int

const (
	StateFilePicker State = iota
	StateLoading
	StateEditor
)

// Options configures the editor front-end
type Options struct {
	Editor editor.Options
	// Path is opened on start; without it the file picker is shown
	Path string
}

// Model represents the TUI model
type Model struct {
	state      State
	ctx        *editor.Context
	filePicker filepicker.Model
	spinner    spinner.Model
	keys       keyMap
	help       help.Model

	cursor int
	offset int

	// paste placement relative to the copied position
	pasteLane int
	pasteTick int

	loading  string
	status   string
	warnings []string
	err      error
	width    int
	height   int
}

// fileLoadedMsg signals that a chart finished loading
type fileLoadedMsg struct {
	path     string
	score    *score.Score
	warnings []string
	err      error
}

// New creates a new TUI model
func New(opts Options) Model {
	// Initialize file picker
	fp := filepicker.New()
	fp.AllowedTypes = []string{".sus", ".json", ".chart"}
	fp.CurrentDirectory, _ = os.Getwd()

	// Initialize spinner
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(accent)

	m := Model{
		state:      StateFilePicker,
		ctx:        editor.New(opts.Editor),
		filePicker: fp,
		spinner:    s,
		keys:       defaultKeyMap(),
		help:       help.New(),
		height:     24,
	}
	if opts.Path != "" {
		m.state = StateLoading
		m.loading = opts.Path
	}
	return m
}

// Init initializes the TUI model
func (m Model) Init() tea.Cmd {
	if m.state == StateLoading {
		return tea.Batch(m.spinner.Tick, loadFile(m.loading))
	}
	return m.filePicker.Init()
}

// Context returns the editing context behind the model
func (m Model) Context() *editor.Context {
	return m.ctx
}

func loadFile(path string) tea.Cmd {
	return func() tea.Msg {
		conv := converter.New(nil)
		sc, err := conv.LoadFile(path)
		return fileLoadedMsg{path: path, score: sc, warnings: conv.Warnings(), err: err}
	}
}

// Update handles TUI updates
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if loaded, ok := msg.(fileLoadedMsg); ok {
		return m.fileLoaded(loaded), nil
	}

	// Handle file picker state first - it needs to receive all messages
	if m.state == StateFilePicker {
		if keyMsg, ok := msg.(tea.KeyMsg); ok {
			switch keyMsg.String() {
			case "esc":
				m.state = StateEditor
				return m, nil
			case "q", "ctrl+c":
				return m, tea.Quit
			}
		}

		var cmd tea.Cmd
		m.filePicker, cmd = m.filePicker.Update(msg)

		if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
			m.state = StateLoading
			m.loading = path
			return m, tea.Batch(m.spinner.Tick, loadFile(path))
		}
		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.filePicker.Height = msg.Height - 10
		return m, nil

	case spinner.TickMsg:
		if m.state != StateLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.state == StateEditor {
			return m.updateEditor(msg)
		}
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	}

	return m, nil
}

func (m Model) fileLoaded(msg fileLoadedMsg) Model {
	m.state = StateEditor
	if msg.err != nil {
		m.err = msg.err
		return m
	}
	m.ctx.Load(msg.score, msg.path)
	m.cursor, m.offset = 0, 0
	m.warnings = msg.warnings
	m.err = nil
	m.status = fmt.Sprintf("Opened %s", m.ctx.Title())
	return m
}

func (m Model) updateEditor(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.ctx.IsPasting() {
		return m.updatePaste(msg), nil
	}

	ids := m.ctx.Score().SortedNoteIDs()
	m.err = nil

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1, len(ids))
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1, len(ids))
	case key.Matches(msg, m.keys.PageUp):
		m.moveCursor(-m.listHeight(), len(ids))
	case key.Matches(msg, m.keys.PageDown):
		m.moveCursor(m.listHeight(), len(ids))
	case key.Matches(msg, m.keys.Select):
		if m.cursor < len(ids) {
			m.ctx.Toggle(ids[m.cursor])
		}
	case key.Matches(msg, m.keys.SelectAll):
		m.ctx.SelectAll()
	case key.Matches(msg, m.keys.Clear):
		m.ctx.ClearSelection()
	case key.Matches(msg, m.keys.Critical):
		m.report(m.ctx.ToggleCritical(), "Toggled critical")
	case key.Matches(msg, m.keys.Flick):
		m.report(m.ctx.SetFlick(score.CycleFlick), "Changed flick")
	case key.Matches(msg, m.keys.Ease):
		m.report(m.ctx.SetEase(score.CycleEase), "Changed ease")
	case key.Matches(msg, m.keys.Step):
		m.report(m.ctx.SetStep(score.CycleStep), "Changed step type")
	case key.Matches(msg, m.keys.Delete):
		m.report(m.ctx.DeleteSelection(), "Deleted notes")
	case key.Matches(msg, m.keys.Flip):
		m.report(m.ctx.FlipSelection(), "Mirrored notes")
	case key.Matches(msg, m.keys.Shrink):
		m.report(m.ctx.ShrinkSelection(editor.Down), "Shrunk notes")
	case key.Matches(msg, m.keys.ShrinkUp):
		m.report(m.ctx.ShrinkSelection(editor.Up), "Shrunk notes")
	case key.Matches(msg, m.keys.Copy):
		if m.ctx.SelectionLen() > 0 {
			m.setResult(m.ctx.CopySelection(), fmt.Sprintf("Copied %d notes", m.ctx.SelectionLen()))
		}
	case key.Matches(msg, m.keys.Cut):
		if m.ctx.SelectionLen() > 0 {
			m.setResult(m.ctx.CutSelection(), "Cut notes")
		}
	case key.Matches(msg, m.keys.Paste), key.Matches(msg, m.keys.PasteFlip):
		pending, err := m.ctx.Paste(key.Matches(msg, m.keys.PasteFlip))
		switch {
		case err != nil:
			m.err = err
		case pending:
			m.pasteLane, m.pasteTick = 0, 0
			m.status = "Place notes with arrows, enter to confirm"
		default:
			m.status = "Nothing to paste"
		}
	case key.Matches(msg, m.keys.Undo):
		if desc, ok := m.ctx.History().PeekUndo(); ok && m.ctx.Undo() {
			m.status = "Undo: " + desc
		}
	case key.Matches(msg, m.keys.Redo):
		if desc, ok := m.ctx.History().PeekRedo(); ok && m.ctx.Redo() {
			m.status = "Redo: " + desc
		}
	case key.Matches(msg, m.keys.Save):
		m.setResult(m.ctx.Save(""), "Saved "+m.ctx.Filename())
	case key.Matches(msg, m.keys.Open):
		m.state = StateFilePicker
		return m, m.filePicker.Init()
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}

	m.moveCursor(0, len(m.ctx.Score().Notes))
	return m, nil
}

func (m Model) updatePaste(msg tea.KeyMsg) Model {
	switch {
	case key.Matches(msg, m.keys.Left):
		m.pasteLane--
	case key.Matches(msg, m.keys.Right):
		m.pasteLane++
	case key.Matches(msg, m.keys.Up):
		m.pasteTick += score.TicksPerBeat
	case key.Matches(msg, m.keys.Down):
		m.pasteTick -= score.TicksPerBeat
	case key.Matches(msg, m.keys.Confirm):
		n := m.ctx.PasteData().Len()
		m.report(m.ctx.ConfirmPaste(m.pasteLane, m.pasteTick), fmt.Sprintf("Pasted %d notes", n))
	case key.Matches(msg, m.keys.Clear):
		m.ctx.CancelPaste()
		m.status = "Paste cancelled"
	}

	if data := m.ctx.PasteData(); data != nil {
		m.pasteLane = max(data.MinLaneOffset, min(m.pasteLane, data.MaxLaneOffset))
		m.pasteTick = max(m.pasteTick, 0)
	}
	return m
}

func (m *Model) report(changed bool, status string) {
	if changed {
		m.status = status
	} else {
		m.status = "No change"
	}
}

func (m *Model) setResult(err error, status string) {
	if err != nil {
		m.err = err
		return
	}
	m.status = status
}

// moveCursor moves by delta and keeps the cursor in range and on screen
func (m *Model) moveCursor(delta, count int) {
	m.cursor = max(0, min(m.cursor+delta, count-1))
	h := m.listHeight()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+h {
		m.offset = m.cursor - h + 1
	}
}

func (m Model) listHeight() int {
	return max(m.height-12, 3)
}

// View renders the TUI
func (m Model) View() string {
	var s strings.Builder

	switch m.state {
	case StateFilePicker:
		s.WriteString(m.viewFilePicker())
	case StateLoading:
		s.WriteString(m.viewLoading())
	case StateEditor:
		s.WriteString(m.viewEditor())
	}

	return s.String()
}

// Run starts the TUI application
func Run(opts Options) error {
	p := tea.NewProgram(New(opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
