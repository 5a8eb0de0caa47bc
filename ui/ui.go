// Package ui provides the interactive workout session UI.
package ui

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/repeat/internal/session"
	"github.com/dgnsrekt/repeat/internal/workout"
	te "github.com/muesli/termenv"
)

// Commands are the user commands the session accepts. They must not block
// for long; the session Runner queues them.
type Commands interface {
	FetchWorkout(tired bool)
	StartWorkout()
	PauseResume()
	Reset()
}

// SnapshotMsg carries a new session snapshot into the program.
type SnapshotMsg session.Snapshot

// NewProgram returns a new Tea program.
func NewProgram(cfg Config, cmds Commands, initial session.Snapshot) *tea.Program {
	log.Debug("Starting repeat", "alt_screen", cfg.AltScreen, "engine", cfg.EngineName)

	var opts []tea.ProgramOption
	if cfg.AltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	if cfg.EnableMouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	return tea.NewProgram(newModel(cfg, cmds, initial), opts...)
}

type model struct {
	cfg  Config
	cmds Commands
	snap session.Snapshot

	width  int
	height int

	keys     keyMap
	help     help.Model
	spinner  spinner.Model
	progress progress.Model

	planCache *planCache
}

// planCache holds the rendered plan markdown for one plan and width.
type planCache struct {
	view  string
	plan  *workout.Plan
	width int
}

func newModel(cfg Config, cmds Commands, initial session.Snapshot) model {
	if cfg.GlamourStyle == "" || cfg.GlamourStyle == styles.AutoStyle {
		if te.HasDarkBackground() {
			cfg.GlamourStyle = styles.DarkStyle
		} else {
			cfg.GlamourStyle = styles.LightStyle
		}
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	m := model{
		cfg:       cfg,
		cmds:      cmds,
		snap:      initial,
		width:     int(cfg.GlamourMaxWidth), //nolint:gosec
		keys:      newKeyMap(),
		help:      help.New(),
		spinner:   sp,
		progress:  progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		planCache: &planCache{},
	}
	m.keys.update(initial)
	return m
}

func (m model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case SnapshotMsg:
		m.snap = session.Snapshot(msg)
		m.keys.update(m.snap)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.Go):
		return m, m.command(func(c Commands) { c.FetchWorkout(false) })
	case key.Matches(msg, m.keys.Tired):
		return m, m.command(func(c Commands) { c.FetchWorkout(true) })
	case key.Matches(msg, m.keys.Start):
		return m, m.command(Commands.StartWorkout)
	case key.Matches(msg, m.keys.Pause):
		return m, m.command(Commands.PauseResume)
	case key.Matches(msg, m.keys.Back):
		return m, m.command(Commands.Reset)
	case msg.String() == "ctrl+z":
		return m, tea.Suspend
	}
	return m, nil
}

// command runs f off the update loop; the session answers with a snapshot.
func (m model) command(f func(Commands)) tea.Cmd {
	cmds := m.cmds
	return func() tea.Msg {
		f(cmds)
		return nil
	}
}
