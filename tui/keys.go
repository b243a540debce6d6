package tui

import "github.com/charmbracelet/bubbles/key"

func Key(help string, keyboardKey ...string) key.Binding {
	return key.NewBinding(key.WithKeys(keyboardKey...), key.WithHelp(keyboardKey[0], help))
}

type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Left    key.Binding
	Right   key.Binding
	Toggle  key.Binding
	Half    key.Binding
	Disable key.Binding

	Mute     key.Binding
	Solo     key.Binding
	ShiftL   key.Binding
	ShiftR   key.Binding
	Segment  key.Binding
	Extend   key.Binding
	Remove   key.Binding
	EveryUp  key.Binding
	EveryDn  key.Binding
	Every    key.Binding
	Clear    key.Binding
	ClearAll key.Binding
	Reset    key.Binding
	Undo     key.Binding
	Note     key.Binding

	Play      key.Binding
	TempoUp   key.Binding
	TempoDown key.Binding
	Tempo     key.Binding
	Panic     key.Binding
	View      key.Binding
	Help      key.Binding
	Quit      key.Binding
}

var keys = keyMap{
	Up:      Key("track up", "k", "up"),
	Down:    Key("track down", "j", "down"),
	Left:    Key("step left", "h", "left"),
	Right:   Key("step right", "l", "right"),
	Toggle:  Key("toggle step", " ", "space"),
	Half:    Key("cycle half/on/off", "v"),
	Disable: Key("disable step", "d"),

	Mute:     Key("mute", "m"),
	Solo:     Key("solo", "s"),
	ShiftL:   Key("shift left", "<"),
	ShiftR:   Key("shift right", ">"),
	Segment:  Key("toggle segment", "1", "2", "3", "4"),
	Extend:   Key("add section", "]"),
	Remove:   Key("remove section", "["),
	EveryUp:  Key("every-N +1", "."),
	EveryDn:  Key("every-N -1", ","),
	Every:    Key("apply every-N", "e"),
	Clear:    Key("clear track", "c"),
	ClearAll: Key("clear all", "C"),
	Reset:    Key("factory reset", "R"),
	Undo:     Key("undo", "u"),
	Note:     Key("set note", "n"),

	Play:      Key("play/stop", "p"),
	TempoUp:   Key("tempo +5", "+", "="),
	TempoDown: Key("tempo -5", "-", "_"),
	Tempo:     Key("type tempo", "t"),
	Panic:     Key("all notes off", "x"),
	View:      Key("half/full view", "tab"),
	Help:      Key("help", "?"),
	Quit:      Key("quit", "q", "ctrl+c"),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Half, k.Mute, k.Solo, k.Play, k.Undo, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right, k.Toggle, k.Half, k.Disable},
		{k.Mute, k.Solo, k.ShiftL, k.ShiftR, k.Segment, k.Extend, k.Remove},
		{k.EveryUp, k.EveryDn, k.Every, k.Clear, k.ClearAll, k.Reset, k.Undo, k.Note},
		{k.Play, k.TempoUp, k.TempoDown, k.Tempo, k.Panic, k.View, k.Help, k.Quit},
	}
}
