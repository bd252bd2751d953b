package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit      key.Binding
	Analyze   key.Binding
	Reset     key.Binding
	PanelDown key.Binding
	PanelUp   key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Analyze: key.NewBinding(
		key.WithKeys("a"),
		key.WithHelp("a", "analyze"),
	),
	Reset: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "reset scroll"),
	),
	PanelDown: key.NewBinding(
		key.WithKeys("pgdown", "J"),
		key.WithHelp("pgdn", "scroll analysis"),
	),
	PanelUp: key.NewBinding(
		key.WithKeys("pgup", "K"),
		key.WithHelp("pgup", "scroll analysis"),
	),
}
