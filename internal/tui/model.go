package tui

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"

	"github.com/dwizi/city-browser/internal/browser"
	"github.com/dwizi/city-browser/internal/cityclient"
	"github.com/dwizi/city-browser/internal/config"
)

type focusZone int

const (
	focusLogin focusZone = iota
	focusPassword
	focusSearch
	focusTable
	focusEditName
	focusEditURL
)

type model struct {
	cfg    config.Config
	logger *slog.Logger
	api    browser.API
	app    *browser.App

	keys    keyMap
	help    help.Model
	spinner spinner.Model

	loginInput    textinput.Model
	passwordInput textinput.Model
	searchInput   textinput.Model
	nameInput     textinput.Model
	urlInput      textinput.Model

	focus         focusZone
	cursor        int
	authenticated bool
	width         int
	height        int
	quitting      bool
	statusText    string
	startupInfo   string
}

type requestDoneMsg struct {
	result browser.Result
}

// Run starts the interactive client and blocks until the user quits or ctx
// is cancelled.
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	updatedCfg, startupInfo := recoverInvalidTLSConfig(cfg, logger)

	client, err := cityclient.New(updatedCfg)
	if err != nil {
		return err
	}
	program := tea.NewProgram(newModel(updatedCfg, startupInfo, client, logger), tea.WithContext(ctx))
	_, err = program.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func newModel(cfg config.Config, startupInfo string, api browser.API, logger *slog.Logger) model {
	loginInput := textinput.New()
	loginInput.Prompt = "login    "
	loginInput.Placeholder = "username"
	loginInput.CharLimit = 64

	passwordInput := textinput.New()
	passwordInput.Prompt = "password "
	passwordInput.Placeholder = "password"
	passwordInput.EchoMode = textinput.EchoPassword
	passwordInput.EchoCharacter = '•'
	passwordInput.CharLimit = 128

	searchInput := textinput.New()
	searchInput.Prompt = "search › "
	searchInput.Placeholder = "city name"
	searchInput.CharLimit = 100

	nameInput := textinput.New()
	nameInput.Prompt = "name  "
	nameInput.CharLimit = 200

	urlInput := textinput.New()
	urlInput.Prompt = "photo "
	urlInput.CharLimit = 2048

	m := model{
		cfg:           cfg,
		logger:        logger,
		api:           api,
		app:           browser.NewApp(logger),
		keys:          newKeyMap(),
		help:          help.New(),
		spinner:       spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(newTheme().spinner)),
		loginInput:    loginInput,
		passwordInput: passwordInput,
		searchInput:   searchInput,
		nameInput:     nameInput,
		urlInput:      urlInput,
		focus:         focusLogin,
		startupInfo:   startupInfo,
	}
	m.applyFocus()
	return m
}

func (m model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = typed.Width
		m.height = typed.Height
		m.resizeWidgets()
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(typed)
		return m, cmd
	case requestDoneMsg:
		follow := m.app.Apply(typed.result)
		m.noteResult(typed.result)
		focusCmd := m.sync()
		return m, tea.Batch(m.dispatch(follow...), focusCmd)
	case tea.KeyPressMsg:
		if key.Matches(typed, m.keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
		if !m.authenticated {
			return m.handleLoginKey(typed)
		}
		return m.handleCitiesKey(typed)
	}
	return m, nil
}

func (m model) View() tea.View {
	v := tea.NewView(m.renderView())
	v.AltScreen = true
	return v
}

func (m model) handleLoginKey(msg tea.KeyPressMsg) (model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.FocusNext), key.Matches(msg, m.keys.FocusPrev):
		if m.focus == focusLogin {
			m.focus = focusPassword
		} else {
			m.focus = focusLogin
		}
		return m, m.applyFocus()
	case key.Matches(msg, m.keys.Submit):
		identifier := strings.TrimSpace(m.loginInput.Value())
		if identifier == "" {
			m.statusText = "enter a login"
			return m, nil
		}
		req, err := m.app.Login(identifier, m.passwordInput.Value())
		if err != nil {
			m.statusText = err.Error()
			return m, nil
		}
		m.statusText = "signing in as " + identifier
		return m, m.dispatch(req)
	}
	return m.updateFocusedInput(msg)
}

func (m model) handleCitiesKey(msg tea.KeyPressMsg) (model, tea.Cmd) {
	inTable := m.focus == focusTable
	switch {
	case key.Matches(msg, m.keys.Logout):
		m.app.Logout()
		m.statusText = "signed out"
		return m, m.sync()
	case key.Matches(msg, m.keys.Refresh):
		req, err := m.app.Refresh()
		if err != nil {
			m.statusText = err.Error()
			return m, nil
		}
		return m, m.dispatch(req)
	case key.Matches(msg, m.keys.NextPage) && (inTable || msg.String() == "ctrl+n"):
		return m.goToPage(1)
	case key.Matches(msg, m.keys.PrevPage) && (inTable || msg.String() == "ctrl+p"):
		return m.goToPage(-1)
	case key.Matches(msg, m.keys.Cancel):
		if m.app.Snapshot().Edit != nil {
			m.app.CancelEdit()
			m.statusText = "edit cancelled"
			return m, m.sync()
		}
		m.app.DismissNotice()
		return m, nil
	case key.Matches(msg, m.keys.FocusNext):
		m.focus = m.cycleFocus(1)
		return m, m.applyFocus()
	case key.Matches(msg, m.keys.FocusPrev):
		m.focus = m.cycleFocus(-1)
		return m, m.applyFocus()
	}

	switch m.focus {
	case focusTable:
		return m.handleTableKey(msg)
	case focusSearch:
		if key.Matches(msg, m.keys.Submit) {
			req, err := m.app.Search(m.searchInput.Value())
			if err != nil {
				m.statusText = err.Error()
				return m, nil
			}
			m.cursor = 0
			m.focus = focusTable
			return m, tea.Batch(m.dispatch(req), m.applyFocus())
		}
	case focusEditName, focusEditURL:
		if key.Matches(msg, m.keys.Submit) {
			req, err := m.app.Commit()
			if err != nil {
				m.statusText = err.Error()
				return m, nil
			}
			m.statusText = "saving"
			return m, m.dispatch(req)
		}
		updated, cmd := m.updateFocusedInput(msg)
		field, value := browser.FieldName, updated.nameInput.Value()
		if updated.focus == focusEditURL {
			field, value = browser.FieldPhotoURL, updated.urlInput.Value()
		}
		if err := updated.app.UpdateDraftField(field, value); err != nil {
			updated.statusText = err.Error()
		}
		return updated, cmd
	}
	return m.updateFocusedInput(msg)
}

func (m model) handleTableKey(msg tea.KeyPressMsg) (model, tea.Cmd) {
	state := m.app.Snapshot()
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(state.Page.Content)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Edit), key.Matches(msg, m.keys.Submit):
		return m.beginEdit(state)
	case key.Matches(msg, m.keys.ToggleHelp):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

func (m model) goToPage(delta int) (model, tea.Cmd) {
	req, ok := m.app.GoToPage(delta)
	if !ok {
		return m, nil
	}
	m.cursor = 0
	return m, m.dispatch(req)
}

func (m model) beginEdit(state browser.State) (model, tea.Cmd) {
	if len(state.Page.Content) == 0 {
		return m, nil
	}
	city := state.Page.Content[clampInt(m.cursor, 0, len(state.Page.Content)-1)]
	if err := m.app.BeginEdit(city); err != nil {
		if errors.Is(err, browser.ErrEditNotPermitted) {
			m.statusText = "read-only account: editing is disabled"
		} else {
			m.statusText = err.Error()
		}
		return m, nil
	}
	m.nameInput.SetValue(city.Name)
	m.nameInput.CursorEnd()
	m.urlInput.SetValue(city.PhotoURL)
	m.urlInput.CursorEnd()
	m.focus = focusEditName
	m.statusText = fmt.Sprintf("editing city %d", city.ID)
	return m, m.applyFocus()
}

func (m model) cycleFocus(step int) focusZone {
	zones := []focusZone{focusSearch, focusTable}
	if m.app.Snapshot().Edit != nil {
		zones = append(zones, focusEditName, focusEditURL)
	}
	current := 0
	for index, zone := range zones {
		if zone == m.focus {
			current = index
		}
	}
	next := (current + step + len(zones)) % len(zones)
	return zones[next]
}

func (m model) updateFocusedInput(msg tea.Msg) (model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.focus {
	case focusLogin:
		m.loginInput, cmd = m.loginInput.Update(msg)
	case focusPassword:
		m.passwordInput, cmd = m.passwordInput.Update(msg)
	case focusSearch:
		m.searchInput, cmd = m.searchInput.Update(msg)
	case focusEditName:
		m.nameInput, cmd = m.nameInput.Update(msg)
	case focusEditURL:
		m.urlInput, cmd = m.urlInput.Update(msg)
	}
	return m, cmd
}

// sync moves focus and clears inputs after the session or edit state
// changed underneath the view.
func (m *model) sync() tea.Cmd {
	state := m.app.Snapshot()
	switch {
	case state.Session.Authenticated && !m.authenticated:
		m.authenticated = true
		m.passwordInput.SetValue("")
		m.searchInput.SetValue("")
		m.cursor = 0
		m.focus = focusTable
	case !state.Session.Authenticated && m.authenticated:
		m.authenticated = false
		m.passwordInput.SetValue("")
		m.searchInput.SetValue("")
		m.cursor = 0
		m.focus = focusLogin
	}
	if state.Edit == nil && (m.focus == focusEditName || m.focus == focusEditURL) {
		m.focus = focusTable
	}
	if m.authenticated && m.focus != focusSearch && !state.Loading &&
		strings.TrimSpace(m.searchInput.Value()) != state.Query.SearchTerm {
		m.searchInput.SetValue(state.Query.SearchTerm)
	}
	if m.cursor >= len(state.Page.Content) {
		m.cursor = maxInt(0, len(state.Page.Content)-1)
	}
	return m.applyFocus()
}

func (m *model) applyFocus() tea.Cmd {
	inputs := map[focusZone]*textinput.Model{
		focusLogin:    &m.loginInput,
		focusPassword: &m.passwordInput,
		focusSearch:   &m.searchInput,
		focusEditName: &m.nameInput,
		focusEditURL:  &m.urlInput,
	}
	var cmd tea.Cmd
	for zone, input := range inputs {
		if zone == m.focus {
			if !input.Focused() {
				cmd = input.Focus()
			}
			continue
		}
		input.Blur()
	}
	return cmd
}

func (m *model) noteResult(result browser.Result) {
	state := m.app.Snapshot()
	switch typed := result.(type) {
	case browser.LoginResult:
		if typed.Err == nil && state.Session.Authenticated {
			m.statusText = fmt.Sprintf("signed in as %s (%s)", state.Identifier, state.Session.Capability)
		} else if !state.Session.Authenticated {
			m.statusText = ""
		}
	case browser.CommitResult:
		if typed.Err == nil {
			m.statusText = fmt.Sprintf("city %d saved", typed.CityID)
		} else if state.EditError != "" {
			m.statusText = "save rejected"
		}
	}
}

func (m model) dispatch(requests ...browser.Request) tea.Cmd {
	cmds := make([]tea.Cmd, 0, len(requests))
	for _, req := range requests {
		if req == nil {
			continue
		}
		cmds = append(cmds, m.requestCmd(req))
	}
	return tea.Batch(cmds...)
}

func (m model) requestCmd(req browser.Request) tea.Cmd {
	api := m.api
	logger := m.logger
	timeout := time.Duration(maxInt(1, m.cfg.RequestTimeoutSec)) * time.Second
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		logger.Debug("request issued", "type", fmt.Sprintf("%T", req))
		return requestDoneMsg{result: browser.Execute(ctx, api, req)}
	}
}

func (m *model) resizeWidgets() {
	layout := computeLayout(m.width, m.height)
	inputWidth := maxInt(10, layout.MainWidth-16)
	m.loginInput.SetWidth(minInt(inputWidth, 40))
	m.passwordInput.SetWidth(minInt(inputWidth, 40))
	m.searchInput.SetWidth(inputWidth)
	editWidth := maxInt(10, layout.InspectorWidth-12)
	m.nameInput.SetWidth(editWidth)
	m.urlInput.SetWidth(editWidth)
}

func (m model) busy() bool {
	state := m.app.Snapshot()
	return state.LoginPending || state.Loading || state.Committing
}

// recoverInvalidTLSConfig drops unreadable TLS material so the client can
// still reach plain or publicly trusted endpoints.
func recoverInvalidTLSConfig(cfg config.Config, logger *slog.Logger) (config.Config, string) {
	info := ""

	if strings.TrimSpace(cfg.TLSCAFile) != "" && !validCACert(cfg.TLSCAFile) {
		logger.Warn("invalid ca file configured, clearing for tui session", "path", cfg.TLSCAFile)
		cfg.TLSCAFile = ""
		info = "ignored invalid CA path in environment"
	}

	certPath := strings.TrimSpace(cfg.TLSCertFile)
	keyPath := strings.TrimSpace(cfg.TLSKeyFile)
	if certPath == "" && keyPath == "" {
		return cfg, info
	}

	if certPath == "" || keyPath == "" {
		logger.Warn("incomplete client cert configuration, clearing for tui session")
		cfg.TLSCertFile = ""
		cfg.TLSKeyFile = ""
		if info == "" {
			info = "ignored incomplete client cert config"
		}
		return cfg, info
	}

	if _, err := tls.LoadX509KeyPair(certPath, keyPath); err == nil {
		return cfg, info
	}

	logger.Warn("invalid client cert configuration, continuing without client cert")
	cfg.TLSCertFile = ""
	cfg.TLSKeyFile = ""
	if info == "" {
		info = "ignored invalid client cert config"
	}
	return cfg, info
}

func validCACert(path string) bool {
	content, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	pool := x509.NewCertPool()
	return pool.AppendCertsFromPEM(content)
}
