// Package tui provides a terminal user interface for tune2midi
package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/james-see/tune2midi/pkg/converter"
	"github.com/james-see/tune2midi/pkg/converter/encodings"
	"github.com/james-see/tune2midi/pkg/instrument"
	"github.com/james-see/tune2midi/pkg/notation"
)

var (
	ink   = lipgloss.Color("#5FAFFF")
	brass = lipgloss.Color("#FFD75F")
	rule  = lipgloss.Color("#585858")

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(ink)
	dimStyle    = lipgloss.NewStyle().Foreground(rule)
	cursorStyle = lipgloss.NewStyle().Foreground(brass).Bold(true)
	labelStyle  = lipgloss.NewStyle().Foreground(rule).Width(12)
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F")).Bold(true)
	panelStyle  = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), true, false).
			BorderForeground(rule).
			Padding(0, 1)
)

// State represents the current TUI state
type State int

const (
	StateMenu State = iota
	StateFilePicker
	StateConverting
	StateResult
)

// MenuItem is one encoding a score can be converted with. An empty
// Encoding marks the exit entry.
type MenuItem struct {
	Title       string
	Description string
	Encoding    string
}

var menuItems = func() []MenuItem {
	var items []MenuItem
	for _, info := range encodings.List() {
		items = append(items, MenuItem{Title: info.ID, Description: info.Description, Encoding: info.ID})
	}
	return append(items, MenuItem{Title: "quit", Description: "Leave tune2midi"})
}()

// Summary describes a finished conversion
type Summary struct {
	Output     string
	Instrument string
	Resolution uint16
	Events     int
	Notes      int
	Tempos     int
	Ticks      int64
}

// conversionDoneMsg carries the result of a background conversion
type conversionDoneMsg struct {
	summary Summary
	err     error
}

// Options configures the instrument used by conversions started from the TUI
type Options struct {
	Instruments instrument.Source
	Instrument  string
}

// Model represents the TUI model
type Model struct {
	state       State
	menuIndex   int
	conversion  MenuItem
	filePicker  filepicker.Model
	spinner     spinner.Model
	instruments instrument.Source
	instrument  string

	selectedFile string
	summary      Summary
	err          error
}

// New creates a new TUI model
func New(opts Options) Model {
	fp := filepicker.New()
	fp.AllowedTypes = []string{".json", ".yaml", ".yml"}
	fp.CurrentDirectory, _ = os.Getwd()

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = lipgloss.NewStyle().Foreground(brass)

	if opts.Instruments == nil {
		opts.Instruments = instrument.GeneralMIDI()
	}

	return Model{
		filePicker:  fp,
		spinner:     sp,
		instruments: opts.Instruments,
		instrument:  opts.Instrument,
	}
}

// Init starts the spinner
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles TUI updates
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case conversionDoneMsg:
		m.state = StateResult
		m.summary, m.err = msg.summary, msg.err
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.filePicker.SetHeight(msg.Height - 8)
	}

	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "ctrl+c" {
		return m, tea.Quit
	}

	switch m.state {
	case StateMenu:
		if key, ok := msg.(tea.KeyMsg); ok {
			return m.updateMenu(key)
		}
	case StateFilePicker:
		return m.updatePicker(msg)
	case StateResult:
		if key, ok := msg.(tea.KeyMsg); ok {
			switch key.String() {
			case "q":
				return m, tea.Quit
			case "enter", "esc":
				m.state = StateMenu
				m.selectedFile, m.summary, m.err = "", Summary{}, nil
			}
		}
	}
	return m, nil
}

func (m Model) updateMenu(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "up", "k":
		m.menuIndex = max(m.menuIndex-1, 0)
	case "down", "j":
		m.menuIndex = min(m.menuIndex+1, len(menuItems)-1)
	case "q":
		return m, tea.Quit
	case "enter":
		item := menuItems[m.menuIndex]
		if item.Encoding == "" {
			return m, tea.Quit
		}
		m.conversion = item
		m.state = StateFilePicker
		return m, m.filePicker.Init()
	}
	return m, nil
}

// updatePicker forwards every message to the file picker, which also
// needs its own directory-read messages
func (m Model) updatePicker(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "esc":
			m.state = StateMenu
			return m, nil
		case "q":
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.filePicker, cmd = m.filePicker.Update(msg)
	if ok, path := m.filePicker.DidSelectFile(msg); ok {
		m.selectedFile = path
		m.state = StateConverting
		return m, tea.Batch(m.spinner.Tick, m.performConversion())
	}
	return m, cmd
}

func (m Model) performConversion() tea.Cmd {
	file, encoding := m.selectedFile, m.conversion.Encoding
	source, name := m.instruments, m.instrument

	return func() tea.Msg {
		enc, err := encodings.ByName(encoding)
		if err != nil {
			return conversionDoneMsg{err: err}
		}
		score, err := notation.LoadFile(file)
		if err != nil {
			return conversionDoneMsg{err: err}
		}
		inst, err := instrument.Select(source, name)
		if err != nil {
			return conversionDoneMsg{err: err}
		}

		conv := converter.New(enc)
		conv.SetInstrument(source, name)
		seq, err := conv.Convert(score)
		if err != nil {
			return conversionDoneMsg{err: err}
		}

		output := strings.TrimSuffix(file, filepath.Ext(file)) + ".mid"
		if err := seq.WriteMIDIFile(output); err != nil {
			return conversionDoneMsg{err: err}
		}

		return conversionDoneMsg{summary: Summary{
			Output:     output,
			Instrument: inst.String(),
			Resolution: seq.Resolution,
			Events:     len(seq.Events),
			Notes:      len(seq.Filter(converter.KindNoteOn)),
			Tempos:     len(seq.Filter(converter.KindTempo)),
			Ticks:      seq.Duration(),
		}}
	}
}

// View renders the TUI
func (m Model) View() string {
	var body, help string
	switch m.state {
	case StateMenu:
		body, help = m.viewMenu(), "j/k move · enter choose · q quit"
	case StateFilePicker:
		body, help = m.filePicker.View(), "enter convert · esc back · q quit"
	case StateConverting:
		body = fmt.Sprintf("%s converting %s with %s", m.spinner.View(), filepath.Base(m.selectedFile), m.conversion.Encoding)
	case StateResult:
		body, help = m.viewResult(), "enter again · q quit"
	}

	title := "tune2midi"
	if m.conversion.Encoding != "" && m.state != StateMenu {
		title += " · " + m.conversion.Encoding
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		headerStyle.Render(title),
		panelStyle.Render(body),
		dimStyle.Render(help),
	)
}

func (m Model) viewMenu() string {
	lines := []string{dimStyle.Render("Encoding for score → MIDI")}
	for i, item := range menuItems {
		line := fmt.Sprintf("  %-10s %s", item.Title, dimStyle.Render(item.Description))
		if i == m.menuIndex {
			line = cursorStyle.Render("› "+fmt.Sprintf("%-10s", item.Title)) + " " + item.Description
		}
		lines = append(lines, line)
	}
	if m.instrument != "" {
		lines = append(lines, "", dimStyle.Render("instrument: "+m.instrument))
	}
	return strings.Join(lines, "\n")
}

func (m Model) viewResult() string {
	if m.err != nil {
		return failStyle.Render("Conversion failed") + "\n" + m.err.Error()
	}

	s := m.summary
	rows := [][2]string{
		{"Input", filepath.Base(m.selectedFile)},
		{"Output", filepath.Base(s.Output)},
		{"Instrument", s.Instrument},
		{"Notes", fmt.Sprint(s.Notes)},
		{"Tempos", fmt.Sprint(s.Tempos)},
		{"Length", fmt.Sprintf("%d ticks at %d/quarter", s.Ticks, s.Resolution)},
	}
	lines := []string{fmt.Sprintf("Events: %d", s.Events)}
	for _, r := range rows {
		lines = append(lines, labelStyle.Render(r[0])+r[1])
	}
	return strings.Join(lines, "\n")
}

// Run starts the TUI application
func Run(opts Options) error {
	_, err := tea.NewProgram(New(opts), tea.WithAltScreen()).Run()
	return err
}
