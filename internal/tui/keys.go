package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Left     key.Binding
	Right    key.Binding
	Continue key.Binding
	Next     key.Binding
	Step     key.Binding
	Finish   key.Binding
	Stop     key.Binding
	Print    key.Binding
	Command  key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Left:     key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "left")),
		Right:    key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "right")),
		Continue: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "continue")),
		Next:     key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next")),
		Step:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "step")),
		Finish:   key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "finish")),
		Stop:     key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "stop debugging")),
		Print:    key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "print identifier")),
		Command:  key.NewBinding(key.WithKeys(":"), key.WithHelp(":", "send line")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:     key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "exit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Print, k.Command, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right},
		{k.Continue, k.Next, k.Step, k.Finish, k.Stop},
		{k.Print, k.Command, k.Help, k.Quit},
	}
}

// controlKeys maps bindings to debug control names
func (k keyMap) controlKeys() []struct {
	binding key.Binding
	control string
} {
	return []struct {
		binding key.Binding
		control string
	}{
		{k.Continue, "continue"},
		{k.Next, "next"},
		{k.Step, "step"},
		{k.Finish, "finish"},
		{k.Stop, "quit"},
	}
}
