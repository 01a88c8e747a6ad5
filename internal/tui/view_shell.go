package tui

import (
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/x/ansi"

	"github.com/dwizi/city-browser/internal/browser"
)

func (m model) renderView() string {
	if m.quitting {
		return "city-browser closed\n"
	}

	t := newTheme()
	layout := computeLayout(m.width, m.height)
	state := m.app.Snapshot()

	header := m.renderHeader(t, layout, state)
	footer := m.renderFooter(t, layout)

	var body string
	switch {
	case !state.Session.Authenticated:
		body = m.renderLogin(t, layout, state)
	case layout.Compact:
		body = lipgloss.JoinVertical(lipgloss.Left, m.renderCities(t, layout, state), m.renderInspector(t, layout, state))
	default:
		sep := t.panelSubtle.Render("│")
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.renderCities(t, layout, state), sep, m.renderInspector(t, layout, state))
	}

	ui := lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
	return t.appBG.Width(layout.Width).Height(layout.Height).Render(ui)
}

func (m model) renderHeader(t theme, layout uiLayout, state browser.State) string {
	statusChip := t.chipSuccess.Render("READY")
	if state.Notice != "" {
		statusChip = t.chipError.Render("ERROR")
	} else if m.busy() {
		statusChip = t.chipWarn.Render(m.spinner.View() + " BUSY")
	}

	style := sizedStyle(t.headerBox, layout.Width, layout.HeaderHeight)
	contentWidth := innerWidth(t.headerBox, layout.Width)

	user := "signed out"
	if state.Session.Authenticated {
		user = state.Identifier + " (" + state.Session.Capability.String() + ")"
	}

	line1 := fillLine(t.brand.Render("City Browser"), statusChip, contentWidth)
	line2 := fillLine(
		t.headerSub.Render(trimToWidth("api: "+fallbackText(m.cfg.APIURL, "unset")+" | env: "+fallbackText(m.cfg.Environment, "unset"), maxInt(20, contentWidth/2))),
		t.headerSub.Render(trimToWidth("user: "+user, maxInt(20, contentWidth/2))),
		contentWidth,
	)

	return style.Render(strings.Join([]string{line1, line2}, "\n"))
}

func (m model) renderFooter(t theme, layout uiLayout) string {
	status := "status: " + fallbackText(m.statusText, "idle")
	statusStyled := t.footerOK.Render(status)
	if m.busy() {
		statusStyled = t.footerWarn.Render(status)
	}

	style := t.footerBox
	helpLine := t.footerInfo.Render(clipLines(m.help.View(m.keys), innerWidth(style, layout.Width)))

	startup := ""
	if strings.TrimSpace(m.startupInfo) != "" {
		startup = "\n" + t.footerWarn.Render(trimToWidth("startup: "+m.startupInfo, innerWidth(style, layout.Width)))
	}

	return sizedStyle(style, layout.Width, layout.FooterHeight).Render(helpLine + "\n" + trimToWidth(statusStyled, innerWidth(style, layout.Width)) + startup)
}

func fillLine(left, right string, width int) string {
	if width <= 0 {
		return strings.TrimSpace(left + " " + right)
	}
	lw := lipgloss.Width(left)
	rw := lipgloss.Width(right)
	if lw+rw+1 > width {
		return trimToWidth(left+" "+right, width)
	}
	return left + strings.Repeat(" ", width-lw-rw) + right
}

// trimToWidth measures cells, not runes, and keeps styled text intact.
func trimToWidth(value string, width int) string {
	if width <= 0 {
		return ""
	}
	value = strings.TrimSpace(value)
	if lipgloss.Width(value) <= width {
		return value
	}
	if width <= 3 {
		return ansi.Truncate(value, width, "")
	}
	return ansi.Truncate(value, width, "...")
}

func clipLines(value string, width int) string {
	lines := strings.Split(value, "\n")
	for i, line := range lines {
		lines[i] = ansi.Truncate(line, width, "")
	}
	return strings.Join(lines, "\n")
}

func padRight(value string, width int) string {
	trimmed := trimToWidth(value, width)
	return trimmed + strings.Repeat(" ", maxInt(0, width-lipgloss.Width(trimmed)))
}

// sizedStyle sizes the whole box; lipgloss counts padding and borders
// inside Width and Height.
func sizedStyle(style lipgloss.Style, width, height int) lipgloss.Style {
	return style.Width(maxInt(1, width)).Height(maxInt(1, height))
}

func innerWidth(style lipgloss.Style, width int) int {
	return maxInt(1, width-style.GetHorizontalFrameSize())
}

func paneLabel(label string, focused bool) string {
	if focused {
		return "› " + label
	}
	return "  " + label
}

func fallbackText(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
