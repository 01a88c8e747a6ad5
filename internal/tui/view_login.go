package tui

import (
	"strings"

	"github.com/dwizi/city-browser/internal/browser"
)

func (m model) renderLogin(t theme, layout uiLayout, state browser.State) string {
	height := maxInt(6, layout.Height-layout.HeaderHeight-layout.FooterHeight)
	style := t.panelBox

	lines := []string{
		t.panelTitle.Render("Sign in"),
		t.panelSubtle.Render("credentials are sent with every request"),
		"",
		m.loginInput.View(),
		m.passwordInput.View(),
		"",
	}
	switch {
	case state.LoginPending:
		lines = append(lines, t.panelWarn.Render(m.spinner.View()+" signing in"))
	case state.Session.LastError != "":
		lines = append(lines, t.panelError.Render(state.Session.LastError))
	default:
		lines = append(lines, "")
	}
	lines = append(lines, "", t.panelSubtle.Render("tab: switch field   enter: sign in"))

	return sizedStyle(style, layout.Width, height).Render(clipLines(strings.Join(lines, "\n"), innerWidth(style, layout.Width)))
}
