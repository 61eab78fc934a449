package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap binds editor actions to keys
type keyMap struct {
	Up        key.Binding
	Down      key.Binding
	PageUp    key.Binding
	PageDown  key.Binding
	Select    key.Binding
	SelectAll key.Binding
	Clear     key.Binding
	Critical  key.Binding
	Flick     key.Binding
	Ease      key.Binding
	Step      key.Binding
	Delete    key.Binding
	Flip      key.Binding
	Shrink    key.Binding
	ShrinkUp  key.Binding
	Copy      key.Binding
	Cut       key.Binding
	Paste     key.Binding
	PasteFlip key.Binding
	Left      key.Binding
	Right     key.Binding
	Confirm   key.Binding
	Undo      key.Binding
	Redo      key.Binding
	Save      key.Binding
	Open      key.Binding
	Help      key.Binding
	Quit      key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		PageUp:    key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "page up")),
		PageDown:  key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "page down")),
		Select:    key.NewBinding(key.WithKeys(" ", "space"), key.WithHelp("space", "select")),
		SelectAll: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "select all")),
		Clear:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "clear/cancel")),
		Critical:  key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "critical")),
		Flick:     key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "flick")),
		Ease:      key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "ease")),
		Step:      key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "step type")),
		Delete:    key.NewBinding(key.WithKeys("x", "delete"), key.WithHelp("x", "delete")),
		Flip:      key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "mirror")),
		Shrink:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "shrink down")),
		ShrinkUp:  key.NewBinding(key.WithKeys("S"), key.WithHelp("S", "shrink up")),
		Copy:      key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy")),
		Cut:       key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "cut")),
		Paste:     key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "paste")),
		PasteFlip: key.NewBinding(key.WithKeys("P"), key.WithHelp("P", "paste mirrored")),
		Left:      key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "lane -1")),
		Right:     key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "lane +1")),
		Confirm:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "place")),
		Undo:      key.NewBinding(key.WithKeys("u", "ctrl+z"), key.WithHelp("u", "undo")),
		Redo:      key.NewBinding(key.WithKeys("r", "ctrl+y"), key.WithHelp("r", "redo")),
		Save:      key.NewBinding(key.WithKeys("w", "ctrl+s"), key.WithHelp("w", "save")),
		Open:      key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open")),
		Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Select, k.Critical, k.Delete, k.Copy, k.Paste, k.Undo, k.Save, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PageUp, k.PageDown, k.Select, k.SelectAll, k.Clear},
		{k.Critical, k.Flick, k.Ease, k.Step, k.Flip, k.Shrink, k.ShrinkUp, k.Delete},
		{k.Copy, k.Cut, k.Paste, k.PasteFlip, k.Left, k.Right, k.Confirm},
		{k.Undo, k.Redo, k.Save, k.Open, k.Help, k.Quit},
	}
}
