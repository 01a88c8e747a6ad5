package browser

import (
	"errors"
	"log/slog"

	"github.com/dwizi/city-browser/internal/cityclient"
)

// App wires the session, listing and edit controllers together. All
// reconciliation between them happens in Apply.
type App struct {
	logger  *slog.Logger
	session *SessionController
	listing *ListingController
	edit    *EditSession
}

// State is a copy of everything a view needs to render.
type State struct {
	Session      Session
	Identifier   string
	LoginPending bool

	Page        Page
	Query       Query
	Notice      string
	Loading     bool
	HasPrevious bool
	HasNext     bool

	Edit       *EditTarget
	EditError  string
	Committing bool
}

// CanEdit reports whether the edit affordance should be offered.
func (s State) CanEdit() bool {
	return s.Session.Authenticated && s.Session.Capability == CapabilityEdit
}

func NewApp(logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &App{
		logger:  logger,
		session: NewSessionController(logger.With("component", "session")),
		listing: NewListingController(logger.With("component", "listing")),
		edit:    NewEditSession(logger.With("component", "edit")),
	}
}

// Snapshot copies the state of all three controllers.
func (a *App) Snapshot() State {
	state := State{
		Session:      a.session.Session(),
		LoginPending: a.session.LoginPending(),
		Page:         a.listing.Page(),
		Query:        a.listing.Query(),
		Notice:       a.listing.Notice(),
		Loading:      a.listing.Pending(),
		HasPrevious:  a.listing.HasPrevious(),
		HasNext:      a.listing.HasNext(),
		EditError:    a.edit.Error(),
		Committing:   a.edit.Committing(),
	}
	if creds, ok := a.session.Credentials(); ok {
		state.Identifier = creds.Login
	}
	if target, ok := a.edit.Target(); ok {
		state.Edit = &target
	}
	return state
}

// Login starts a sign-in. It fails while a session is already open.
func (a *App) Login(identifier, secret string) (Request, error) {
	if a.session.Session().Authenticated {
		return nil, ErrAlreadyAuthenticated
	}
	return a.session.Login(identifier, secret), nil
}

// Logout resets every controller. No server call is made.
func (a *App) Logout() {
	a.session.Logout()
	a.listing.Reset()
	a.edit.Reset()
	a.logger.Info("logged out")
}

// GoToPage reports false when the move is out of range or not signed in.
func (a *App) GoToPage(delta int) (Request, bool) {
	creds, ok := a.session.Credentials()
	if !ok {
		return nil, false
	}
	req, ok := a.listing.GoToPage(delta)
	if !ok {
		return nil, false
	}
	req.Credentials = creds
	return req, true
}

// Search fetches the first page of cities matching term.
func (a *App) Search(term string) (Request, error) {
	creds, ok := a.session.Credentials()
	if !ok {
		return nil, ErrNotAuthenticated
	}
	req := a.listing.Search(term)
	req.Credentials = creds
	return req, nil
}

func (a *App) Refresh() (Request, error) {
	creds, ok := a.session.Credentials()
	if !ok {
		return nil, ErrNotAuthenticated
	}
	req := a.listing.Refresh()
	req.Credentials = creds
	return req, nil
}

func (a *App) DismissNotice() {
	a.listing.DismissNotice()
}

// BeginEdit opens a draft of city for accounts with the edit capability.
func (a *App) BeginEdit(city City) error {
	if err := a.requireEdit(); err != nil {
		return err
	}
	a.edit.Begin(city)
	return nil
}

func (a *App) UpdateDraftField(field Field, value string) error {
	if err := a.requireEdit(); err != nil {
		return err
	}
	return a.edit.UpdateDraftField(field, value)
}

// Commit saves the open draft. The re-fetch that follows a successful save
// targets the query displayed now.
func (a *App) Commit() (Request, error) {
	if err := a.requireEdit(); err != nil {
		return nil, err
	}
	creds, _ := a.session.Credentials()
	req, err := a.edit.Commit(a.listing.Query())
	if err != nil {
		return nil, err
	}
	req.Credentials = creds
	return req, nil
}

func (a *App) CancelEdit() {
	a.edit.Cancel()
}

func (a *App) requireEdit() error {
	session := a.session.Session()
	if !session.Authenticated {
		return ErrNotAuthenticated
	}
	if session.Capability != CapabilityEdit {
		return ErrEditNotPermitted
	}
	return nil
}

// Apply reconciles a completed request and returns the follow-up requests it
// triggers, if any.
func (a *App) Apply(result Result) []Request {
	switch typed := result.(type) {
	case LoginResult:
		return a.applyLogin(typed)
	case FetchResult:
		return a.applyFetch(typed)
	case CommitResult:
		return a.applyCommit(typed)
	}
	return nil
}

func (a *App) applyLogin(result LoginResult) []Request {
	if !a.session.ResolveLogin(result) {
		return nil
	}
	creds, ok := a.session.Credentials()
	if !ok {
		return nil
	}
	a.listing.Reset()
	a.edit.Reset()
	req := a.listing.Fetch(Query{PageIndex: 0})
	req.Credentials = creds
	return []Request{req}
}

func (a *App) applyFetch(result FetchResult) []Request {
	if result.Err != nil && errors.Is(result.Err, cityclient.ErrUnauthorized) && a.listing.IsLatest(result.Seq) {
		a.expire()
		return nil
	}
	_, next := a.listing.ResolveFetch(result)
	if next == nil {
		return nil
	}
	creds, ok := a.session.Credentials()
	if !ok {
		return nil
	}
	next.Credentials = creds
	return []Request{*next}
}

func (a *App) applyCommit(result CommitResult) []Request {
	if result.Err != nil && errors.Is(result.Err, cityclient.ErrUnauthorized) && a.edit.IsLatest(result.Seq) {
		a.expire()
		return nil
	}
	_, refetch := a.edit.ResolveCommit(result)
	if !refetch {
		return nil
	}
	creds, ok := a.session.Credentials()
	if !ok {
		return nil
	}
	req := a.listing.Fetch(result.Query)
	req.Credentials = creds
	return []Request{req}
}

func (a *App) expire() {
	a.session.Expire()
	a.listing.Reset()
	a.edit.Reset()
	a.logger.Warn("session expired, credentials rejected by server")
}
