package tui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/njyeung/comentario/engine"
)

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Upvote   key.Binding
	Downvote key.Binding
	Reply    key.Binding
	Edit     key.Binding
	Delete   key.Binding
	Approve  key.Binding
	Sticky   key.Binding
	Collapse key.Binding
	New      key.Binding
	Lock     key.Binding
	Sort     key.Binding
	Login    key.Binding
	Logout   key.Binding
	Reload   key.Binding
	Help     key.Binding
	Quit     key.Binding
}

var keys = keyMap{
	Up:       key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k", "up")),
	Down:     key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j", "down")),
	Upvote:   key.NewBinding(key.WithKeys("+", "u"), key.WithHelp("u", "upvote")),
	Downvote: key.NewBinding(key.WithKeys("-", "d"), key.WithHelp("d", "downvote")),
	Reply:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reply")),
	Edit:     key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
	Delete:   key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "delete")),
	Approve:  key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "approve")),
	Sticky:   key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "pin")),
	Collapse: key.NewBinding(key.WithKeys(" ", "enter"), key.WithHelp("space", "collapse")),
	New:      key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new comment")),
	Lock:     key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "lock thread")),
	Sort:     key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "sort")),
	Login:    key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "login")),
	Logout:   key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "logout")),
	Reload:   key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "reload")),
	Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// controlKeys maps card controls to the bindings that press them
var controlKeys = []struct {
	binding *key.Binding
	control engine.Control
}{
	{&keys.Upvote, engine.ControlUpvote},
	{&keys.Downvote, engine.ControlDownvote},
	{&keys.Reply, engine.ControlReply},
	{&keys.Edit, engine.ControlEdit},
	{&keys.Delete, engine.ControlDelete},
	{&keys.Approve, engine.ControlApprove},
	{&keys.Sticky, engine.ControlSticky},
	{&keys.Collapse, engine.ControlCollapse},
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.New, k.Sort, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Collapse, k.Sort},
		{k.Upvote, k.Downvote, k.Reply, k.New},
		{k.Edit, k.Delete, k.Approve, k.Sticky, k.Lock},
		{k.Login, k.Logout, k.Reload, k.Help, k.Quit},
	}
}

type editorKeyMap struct {
	Submit    key.Binding
	Cancel    key.Binding
	Anonymous key.Binding
}

var editorKeys = editorKeyMap{
	Submit:    key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "submit")),
	Cancel:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	Anonymous: key.NewBinding(key.WithKeys("ctrl+a"), key.WithHelp("ctrl+a", "anonymous")),
}

func (k editorKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Cancel, k.Anonymous}
}

func (k editorKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
