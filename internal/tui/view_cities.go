package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dwizi/city-browser/internal/browser"
)

const idColumnWidth = 6

func (m model) renderCities(t theme, layout uiLayout, state browser.State) string {
	width := layout.MainWidth
	height := layout.BodyHeight
	if layout.Compact {
		width = layout.Width
		height = layout.CompactMainHeight
	}

	style := t.panelBox
	contentWidth := innerWidth(style, width)
	titleStyle := t.panelTitle
	if m.focus == focusTable || m.focus == focusSearch {
		titleStyle = t.panelFocus
	}

	lines := []string{
		fillLine(titleStyle.Render(paneLabel("Cities", m.focus == focusTable)), t.panelSubtle.Render(countLabel(state.Page.TotalElements)), contentWidth),
		m.searchInput.View(),
	}
	if state.Notice != "" {
		lines = append(lines, t.banner.Render(trimToWidth(state.Notice, maxInt(1, contentWidth-2))))
	}
	lines = append(lines, "")
	lines = append(lines, m.renderCityRows(t, state, contentWidth)...)
	lines = append(lines, "", renderPager(t, state, contentWidth))

	return sizedStyle(style, width, height).Render(clipLines(strings.Join(lines, "\n"), contentWidth))
}

func (m model) renderCityRows(t theme, state browser.State, width int) []string {
	nameWidth := clampInt(width*35/100, 12, 32)
	urlWidth := maxInt(8, width-idColumnWidth-nameWidth-4)

	lines := []string{t.tableHeader.Render("  " + padRight("ID", idColumnWidth) + " " + padRight("NAME", nameWidth) + " PHOTO")}
	if len(state.Page.Content) == 0 {
		empty := "no cities"
		switch {
		case state.Loading:
			empty = "loading"
		case state.Query.SearchTerm != "":
			empty = fmt.Sprintf("no cities match %q", state.Query.SearchTerm)
		}
		return append(lines, t.panelSubtle.Render("  "+empty))
	}

	for index, city := range state.Page.Content {
		marker := "  "
		if index == m.cursor && m.focus == focusTable {
			marker = "› "
		}
		if state.Edit != nil && state.Edit.Original.ID == city.ID {
			marker = "* "
		}
		row := marker + padRight(strconv.FormatInt(city.ID, 10), idColumnWidth) + " " + padRight(city.Name, nameWidth) + " " + trimToWidth(city.PhotoURL, urlWidth)
		style := t.tableCell
		if index == m.cursor {
			style = t.tableSelected
		}
		lines = append(lines, style.Render(row))
	}
	return lines
}

func renderPager(t theme, state browser.State, width int) string {
	prev := t.panelSubtle.Render("‹ prev")
	if state.HasPrevious {
		prev = t.panelAccent.Render("‹ prev")
	}
	next := t.panelSubtle.Render("next ›")
	if state.HasNext {
		next = t.panelAccent.Render("next ›")
	}
	position := "page -/-"
	if state.Page.TotalPages > 0 {
		position = fmt.Sprintf("page %d/%d", state.Page.PageIndex+1, state.Page.TotalPages)
	}
	return fillLine(prev+"  "+t.panelSubtle.Render(position), next, width)
}

func (m model) renderInspector(t theme, layout uiLayout, state browser.State) string {
	width := layout.InspectorWidth
	height := layout.BodyHeight
	if layout.Compact {
		width = layout.Width
		height = layout.CompactInspectorHeight
	}
	style := t.panelBox
	contentWidth := innerWidth(style, width)

	if state.Edit != nil {
		editing := m.focus == focusEditName || m.focus == focusEditURL
		titleStyle := t.panelTitle
		if editing {
			titleStyle = t.panelFocus
		}
		lines := []string{
			fillLine(titleStyle.Render(paneLabel("Edit city", editing)), t.panelSubtle.Render("#"+strconv.FormatInt(state.Edit.Original.ID, 10)), contentWidth),
			t.panelSubtle.Render(trimToWidth("was: "+state.Edit.Original.Name, contentWidth)),
			"",
			m.nameInput.View(),
			m.urlInput.View(),
			"",
		}
		switch {
		case state.Committing:
			lines = append(lines, t.panelWarn.Render(m.spinner.View()+" saving"))
		case state.EditError != "":
			lines = append(lines, t.panelError.Render(trimToWidth(state.EditError, contentWidth)))
		}
		lines = append(lines, t.panelSubtle.Render("enter: save   esc: cancel"))
		return sizedStyle(style, width, height).Render(clipLines(strings.Join(lines, "\n"), contentWidth))
	}

	lines := []string{t.panelTitle.Render(paneLabel("Details", false)), ""}
	if len(state.Page.Content) == 0 {
		lines = append(lines, t.panelSubtle.Render("nothing selected"))
	} else {
		city := state.Page.Content[clampInt(m.cursor, 0, len(state.Page.Content)-1)]
		lines = append(lines,
			t.panelSubtle.Render("id    ")+strconv.FormatInt(city.ID, 10),
			t.panelSubtle.Render("name  ")+trimToWidth(city.Name, maxInt(1, contentWidth-6)),
			t.panelSubtle.Render("photo ")+trimToWidth(city.PhotoURL, maxInt(1, contentWidth-6)),
		)
	}
	lines = append(lines, "")
	if state.CanEdit() {
		lines = append(lines, t.panelSuccess.Render("e: edit selected city"))
	} else {
		lines = append(lines, t.panelSubtle.Render("read-only account"))
	}
	return sizedStyle(style, width, height).Render(clipLines(strings.Join(lines, "\n"), contentWidth))
}

func countLabel(total int) string {
	if total == 1 {
		return "1 city"
	}
	return strconv.Itoa(total) + " cities"
}
