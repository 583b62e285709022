package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Mode    key.Binding
	Dataset key.Binding
	Refresh key.Binding
	Rotate  key.Binding
	Help    key.Binding
	Quit    key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Mode, k.Dataset, k.Refresh, k.Rotate, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Mode, k.Dataset},
		{k.Refresh, k.Rotate},
		{k.Help, k.Quit},
	}
}

var keys = keyMap{
	Mode: key.NewBinding(
		key.WithKeys("m", "tab"),
		key.WithHelp("m/tab", "today/total"),
	),
	Dataset: key.NewBinding(
		key.WithKeys("d", "right"),
		key.WithHelp("d/→", "next sheet"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "refresh"),
	),
	Rotate: key.NewBinding(
		key.WithKeys("p", " "),
		key.WithHelp("p/space", "pause rotation"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q/ctrl+c", "quit"),
	),
}
