package tui

import "github.com/charmbracelet/lipgloss"

type palette struct {
	text      lipgloss.Color
	muted     lipgloss.Color
	accent    lipgloss.Color
	userBg    lipgloss.Color
	userFg    lipgloss.Color
	botBg     lipgloss.Color
	botFg     lipgloss.Color
	errorBg   lipgloss.Color
	errorFg   lipgloss.Color
	headerBg  lipgloss.Color
	noticeFg  lipgloss.Color
	spinnerFg lipgloss.Color
}

var (
	lightPalette = palette{
		text:      lipgloss.Color("235"),
		muted:     lipgloss.Color("244"),
		accent:    lipgloss.Color("63"),
		userBg:    lipgloss.Color("63"),
		userFg:    lipgloss.Color("255"),
		botBg:     lipgloss.Color("254"),
		botFg:     lipgloss.Color("235"),
		errorBg:   lipgloss.Color("224"),
		errorFg:   lipgloss.Color("124"),
		headerBg:  lipgloss.Color("253"),
		noticeFg:  lipgloss.Color("130"),
		spinnerFg: lipgloss.Color("63"),
	}

	darkPalette = palette{
		text:      lipgloss.Color("252"),
		muted:     lipgloss.Color("242"),
		accent:    lipgloss.Color("111"),
		userBg:    lipgloss.Color("61"),
		userFg:    lipgloss.Color("255"),
		botBg:     lipgloss.Color("237"),
		botFg:     lipgloss.Color("252"),
		errorBg:   lipgloss.Color("52"),
		errorFg:   lipgloss.Color("217"),
		headerBg:  lipgloss.Color("236"),
		noticeFg:  lipgloss.Color("179"),
		spinnerFg: lipgloss.Color("111"),
	}
)

type styles struct {
	title     lipgloss.Style
	header    lipgloss.Style
	pageTitle lipgloss.Style
	pageURL   lipgloss.Style
	user      lipgloss.Style
	assistant lipgloss.Style
	notice    lipgloss.Style
	greeting  lipgloss.Style
	subtext   lipgloss.Style
	errBanner lipgloss.Style
	loading   lipgloss.Style
	spinner   lipgloss.Style
	help      lipgloss.Style
	button    lipgloss.Style
}

func newStyles(theme string) styles {
	p := lightPalette
	if theme == "dark" {
		p = darkPalette
	}

	return styles{
		title: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.accent).
			Padding(0, 1),
		header: lipgloss.NewStyle().
			Background(p.headerBg).
			Padding(0, 1),
		pageTitle: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.text).
			Background(p.headerBg),
		pageURL: lipgloss.NewStyle().
			Foreground(p.muted).
			Background(p.headerBg),
		user: lipgloss.NewStyle().
			Foreground(p.userFg).
			Background(p.userBg).
			Padding(0, 1),
		assistant: lipgloss.NewStyle().
			Foreground(p.botFg).
			Background(p.botBg).
			Padding(0, 1),
		notice: lipgloss.NewStyle().
			Foreground(p.noticeFg).
			Italic(true),
		greeting: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.text),
		subtext: lipgloss.NewStyle().
			Foreground(p.muted),
		errBanner: lipgloss.NewStyle().
			Foreground(p.errorFg).
			Background(p.errorBg).
			Padding(0, 1),
		loading: lipgloss.NewStyle().
			Foreground(p.muted),
		spinner: lipgloss.NewStyle().
			Foreground(p.spinnerFg),
		help: lipgloss.NewStyle().
			Foreground(p.muted),
		button: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.accent),
	}
}
