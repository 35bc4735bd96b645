package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all key bindings for the dashboard.
type KeyMap struct {
	Quit    key.Binding
	Refresh key.Binding
	Reset   key.Binding
	Theme   key.Binding
	Help    key.Binding
	Escape  key.Binding
}

// DefaultKeyMap provides the default set of key bindings.
var DefaultKeyMap = KeyMap{
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "poll now")),
	Reset:   key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear history")),
	Theme:   key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "next theme")),
	Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Escape:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close")),
}

// ShortHelp lists the bindings shown in the status bar.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Refresh, k.Reset, k.Theme, k.Help, k.Quit}
}
