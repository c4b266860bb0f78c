package picker

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the picker key bindings. Printable keys that are not bound
// here go to the search field.
type KeyMap struct {
	Open     key.Binding
	Up, Down key.Binding
	Select   key.Binding
	Close    key.Binding
	Cancel   key.Binding
	LoadMore key.Binding
	Retry    key.Binding
}

// DefaultKeyMap returns the bindings used when Props.Keys is unset.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Open:     key.NewBinding(key.WithKeys("enter", " ", "down"), key.WithHelp("enter", "open")),
		Up:       key.NewBinding(key.WithKeys("up", "ctrl+p"), key.WithHelp("↑", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "ctrl+n"), key.WithHelp("↓", "down")),
		Select:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		Close:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close")),
		Cancel:   key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "cancel")),
		LoadMore: key.NewBinding(key.WithKeys("ctrl+l", "pgdown"), key.WithHelp("ctrl+l", "load more")),
		Retry:    key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "retry")),
	}
}
