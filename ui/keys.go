package ui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/dgnsrekt/repeat/internal/session"
)

type keyMap struct {
	Go    key.Binding
	Tired key.Binding
	Start key.Binding
	Pause key.Binding
	Back  key.Binding
	Quit  key.Binding
	Help  key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Go:    key.NewBinding(key.WithKeys("enter", "g"), key.WithHelp("enter", "let's go")),
		Tired: key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "i'm feeling tired")),
		Start: key.NewBinding(key.WithKeys("enter", "s"), key.WithHelp("enter", "start workout")),
		Pause: key.NewBinding(key.WithKeys(" ", "p"), key.WithHelp("space", "pause")),
		Back:  key.NewBinding(key.WithKeys("r", "esc"), key.WithHelp("r", "go back")),
		Quit:  key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Help:  key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more")),
	}
}

// update enables only the bindings that do something in the current phase.
func (k *keyMap) update(snap session.Snapshot) {
	phase := snap.Phase
	idle := phase == session.Idle && !snap.RestDay()

	k.Go.SetEnabled(idle)
	k.Tired.SetEnabled(idle)
	k.Start.SetEnabled(phase == session.Ready)
	k.Pause.SetEnabled(phase.Countdown() || phase == session.Paused)
	k.Back.SetEnabled(phase != session.Idle)

	if phase == session.Paused {
		k.Pause.SetHelp("space", "resume")
	} else {
		k.Pause.SetHelp("space", "pause")
	}

	switch {
	case phase == session.Finished:
		k.Back.SetKeys("enter", "r", "esc")
		k.Back.SetHelp("enter", "finish")
	case phase == session.Error:
		k.Back.SetKeys("enter", "r", "esc")
		k.Back.SetHelp("enter", "go back")
	case phase == session.Loading:
		k.Back.SetKeys("r", "esc")
		k.Back.SetHelp("r", "cancel")
	case phase.Countdown() || phase == session.Paused:
		k.Back.SetKeys("r", "esc")
		k.Back.SetHelp("r", "end workout")
	default:
		k.Back.SetKeys("r", "esc")
		k.Back.SetHelp("r", "go back")
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Go, k.Tired, k.Start, k.Pause, k.Back, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Go, k.Tired, k.Start},
		{k.Pause, k.Back},
		{k.Help, k.Quit},
	}
}
