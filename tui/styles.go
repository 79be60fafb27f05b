package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/njyeung/comentario/config"
)

// Styles holds every lipgloss style the UI draws with
type Styles struct {
	Title    lipgloss.Style
	Author   lipgloss.Style
	Meta     lipgloss.Style
	Body     lipgloss.Style
	Nav      lipgloss.Style
	Error    lipgloss.Style
	Notice   lipgloss.Style
	Sticky   lipgloss.Style
	Badge    lipgloss.Style
	Score    lipgloss.Style
	Voted    lipgloss.Style
	Cursor   lipgloss.Style
	Deleted  lipgloss.Style
	Disabled lipgloss.Style
	Dialog   lipgloss.Style
	Editor   lipgloss.Style
}

// NewStyles builds the styles for a theme. Plain drops every colour and border.
func NewStyles(theme config.ThemeConfig, plain bool) Styles {
	if plain {
		s := lipgloss.NewStyle()
		return Styles{
			Title: s, Author: s, Meta: s, Body: s, Nav: s, Error: s, Notice: s,
			Sticky: s, Badge: s, Score: s, Voted: s, Cursor: s, Deleted: s,
			Disabled: s, Dialog: s, Editor: s,
		}
	}

	accent := colour(theme.Accent, "205")
	muted := colour(theme.Muted, "241")
	errc := colour(theme.Error, "196")
	sticky := colour(theme.Sticky, "214")

	return Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(accent),
		Author: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")),
		Meta: lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")),
		Body: lipgloss.NewStyle(),
		Nav: lipgloss.NewStyle().
			Foreground(muted),
		Error: lipgloss.NewStyle().
			Foreground(errc),
		Notice: lipgloss.NewStyle().
			Italic(true).
			Foreground(muted),
		Sticky: lipgloss.NewStyle().
			Bold(true).
			Foreground(sticky),
		Badge: lipgloss.NewStyle().
			Foreground(lipgloss.Color("33")),
		Score: lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")),
		Voted: lipgloss.NewStyle().
			Bold(true).
			Foreground(accent),
		Cursor: lipgloss.NewStyle().
			Bold(true).
			Foreground(accent),
		Deleted: lipgloss.NewStyle().
			Italic(true).
			Foreground(muted),
		Disabled: lipgloss.NewStyle().
			Faint(true),
		Dialog: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(1, 2),
		Editor: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(muted).
			PaddingLeft(1),
	}
}

func colour(v, fallback string) lipgloss.Color {
	if v == "" {
		return lipgloss.Color(fallback)
	}
	return lipgloss.Color(v)
}
