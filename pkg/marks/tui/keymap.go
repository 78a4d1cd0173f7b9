package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up     key.Binding
	down   key.Binding
	add    key.Binding
	search key.Binding
	del    key.Binding
	open   key.Binding
	submit key.Binding
	back   key.Binding
	yes    key.Binding
	no     key.Binding
	quit   key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		add:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		search: key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		del:    key.NewBinding(key.WithKeys("d", "x"), key.WithHelp("d", "delete")),
		open:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field")),
		submit: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "save")),
		back:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		yes:    key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "yes")),
		no:     key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "no")),
		quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.add, k.search, k.del, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.add},
		{k.search, k.del, k.back},
		{k.yes, k.no, k.quit},
	}
}
