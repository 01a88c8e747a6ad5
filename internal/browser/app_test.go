package browser

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/dwizi/city-browser/internal/cityclient"
)

func loggedIn(t *testing.T, api *fakeAPI, login string) *App {
	t.Helper()
	app := NewApp(testLogger())
	req, err := app.Login(login, "secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	drive(app, api, req)
	if !app.Snapshot().Session.Authenticated {
		t.Fatalf("expected %s to be authenticated", login)
	}
	return app
}

func TestLoginTriggersInitialFetch(t *testing.T) {
	api := newFakeAPI(15)
	app := NewApp(testLogger())
	req, err := app.Login("editor", "secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	follow := app.Apply(Execute(context.Background(), api, req))
	if len(follow) != 1 {
		t.Fatalf("expected exactly one follow-up fetch, got %d", len(follow))
	}
	fetch, ok := follow[0].(FetchRequest)
	if !ok {
		t.Fatalf("expected FetchRequest, got %T", follow[0])
	}
	if fetch.Query != (Query{PageIndex: 0}) {
		t.Fatalf("expected initial query page 0 without search, got %+v", fetch.Query)
	}
	if fetch.Credentials.Login != "editor" {
		t.Fatalf("expected fetch to carry credentials, got %+v", fetch.Credentials)
	}
	drive(app, api, follow...)
	state := app.Snapshot()
	if state.Page.TotalPages != 3 || len(state.Page.Content) != PageSize {
		t.Fatalf("unexpected page: %+v", state.Page)
	}
	if !state.CanEdit() {
		t.Fatal("expected edit capability")
	}
}

func TestWrongPasswordDoesNotFetch(t *testing.T) {
	api := newFakeAPI(12)
	app := NewApp(testLogger())
	req, _ := app.Login("editor", "wrong")
	follow := app.Apply(Execute(context.Background(), api, req))
	if len(follow) != 0 {
		t.Fatalf("expected no fetch after failed login, got %d", len(follow))
	}
	state := app.Snapshot()
	if state.Session.Authenticated || state.Session.LastError == "" {
		t.Fatalf("unexpected session: %+v", state.Session)
	}
	if len(api.listCalls()) != 0 {
		t.Fatal("listing endpoint must not be called")
	}
}

func TestLoginWhileAuthenticatedIsRejected(t *testing.T) {
	app := loggedIn(t, newFakeAPI(3), "viewer")
	if _, err := app.Login("editor", "secret"); !errors.Is(err, ErrAlreadyAuthenticated) {
		t.Fatalf("expected ErrAlreadyAuthenticated, got %v", err)
	}
}

func TestReadOnlyUserCannotEdit(t *testing.T) {
	api := newFakeAPI(12)
	app := loggedIn(t, api, "viewer")
	state := app.Snapshot()
	if state.CanEdit() {
		t.Fatal("viewer must not have edit capability")
	}
	if err := app.BeginEdit(state.Page.Content[0]); !errors.Is(err, ErrEditNotPermitted) {
		t.Fatalf("expected ErrEditNotPermitted, got %v", err)
	}
	if _, err := app.Commit(); !errors.Is(err, ErrEditNotPermitted) {
		t.Fatalf("expected ErrEditNotPermitted, got %v", err)
	}
}

func TestOperationsRequireLogin(t *testing.T) {
	app := NewApp(testLogger())
	if _, ok := app.GoToPage(1); ok {
		t.Fatal("expected no navigation while logged out")
	}
	if _, err := app.Search("par"); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
	if _, err := app.Refresh(); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
	if err := app.BeginEdit(City{ID: 1}); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
}

func TestEditCommitScenario(t *testing.T) {
	api := newFakeAPI(15)
	api.cities[6] = City{ID: 7, Name: "Paris", PhotoURL: "https://img.example/paris.jpg"}
	app := loggedIn(t, api, "editor")
	req, ok := app.GoToPage(1)
	if !ok {
		t.Fatal("expected navigation to page 1")
	}
	drive(app, api, req)

	state := app.Snapshot()
	var paris City
	for _, city := range state.Page.Content {
		if city.ID == 7 {
			paris = city
		}
	}
	if paris.ID != 7 {
		t.Fatalf("expected city 7 on page 1, got %+v", state.Page.Content)
	}
	if err := app.BeginEdit(paris); err != nil {
		t.Fatalf("begin edit: %v", err)
	}
	if err := app.UpdateDraftField(FieldName, "Paris Updated"); err != nil {
		t.Fatalf("update draft: %v", err)
	}
	commit, err := app.Commit()
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	callsBefore := len(api.listCalls())
	follow := app.Apply(Execute(context.Background(), api, commit))
	if len(follow) != 1 {
		t.Fatalf("expected exactly one refetch, got %d", len(follow))
	}
	fetch := follow[0].(FetchRequest)
	if fetch.Query != (Query{PageIndex: 1}) {
		t.Fatalf("expected refetch of page 1, got %+v", fetch.Query)
	}
	drive(app, api, follow...)
	if len(api.listCalls()) != callsBefore+1 {
		t.Fatalf("expected one listing call after commit, got %d", len(api.listCalls())-callsBefore)
	}

	state = app.Snapshot()
	if state.Edit != nil {
		t.Fatal("expected edit target cleared")
	}
	if state.Page.PageIndex != 1 {
		t.Fatalf("expected to stay on page 1, got %d", state.Page.PageIndex)
	}
	found := false
	for _, city := range state.Page.Content {
		if city.ID == 7 && city.Name == "Paris Updated" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected updated row, got %+v", state.Page.Content)
	}
}

func TestCommitFailureLeavesPageAndDraft(t *testing.T) {
	api := newFakeAPI(12)
	api.rejectID = 2
	app := loggedIn(t, api, "editor")
	before := app.Snapshot().Page
	_ = app.BeginEdit(before.Content[1])
	_ = app.UpdateDraftField(FieldName, "Whatever")
	commit, err := app.Commit()
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	follow := app.Apply(Execute(context.Background(), api, commit))
	if len(follow) != 0 {
		t.Fatalf("expected no refetch after rejected save, got %d", len(follow))
	}
	state := app.Snapshot()
	if state.Edit == nil || state.Edit.Draft.Name != "Whatever" {
		t.Fatalf("expected draft retained, got %+v", state.Edit)
	}
	if state.EditError != "name must not be blank" {
		t.Fatalf("unexpected edit error: %q", state.EditError)
	}
	if state.Page.Content[1].Name != before.Content[1].Name {
		t.Fatal("displayed page must not change on failure")
	}
}

func TestSearchScenario(t *testing.T) {
	api := newFakeAPI(12)
	app := loggedIn(t, api, "viewer")
	next, _ := app.GoToPage(1)
	drive(app, api, next)
	if app.Snapshot().Page.PageIndex != 1 {
		t.Fatal("expected page 1 before search")
	}

	req, err := app.Search("par")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	drive(app, api, req)
	state := app.Snapshot()
	if state.Page.PageIndex != 0 || state.Page.TotalPages != 1 || state.Page.TotalElements != 2 {
		t.Fatalf("unexpected page after search: %+v", state.Page)
	}
	if state.HasNext || state.HasPrevious {
		t.Fatal("expected next and previous disabled")
	}
	if state.Query.SearchTerm != "par" {
		t.Fatalf("expected search term kept, got %q", state.Query.SearchTerm)
	}
}

func TestLogoutResetsEverything(t *testing.T) {
	api := newFakeAPI(12)
	app := loggedIn(t, api, "editor")
	search, _ := app.Search("a")
	drive(app, api, search)
	_ = app.BeginEdit(app.Snapshot().Page.Content[0])
	pending, _ := app.Refresh()

	app.Logout()
	state := app.Snapshot()
	if state.Session != (Session{}) || state.Identifier != "" {
		t.Fatalf("expected initial session, got %+v", state.Session)
	}
	if state.Page.TotalPages != 0 || len(state.Page.Content) != 0 || state.Query != (Query{}) {
		t.Fatalf("expected empty listing, got %+v %+v", state.Page, state.Query)
	}
	if state.Edit != nil {
		t.Fatal("expected edit target discarded")
	}
	if follow := app.Apply(Execute(context.Background(), api, pending)); len(follow) != 0 {
		t.Fatal("expected in-flight fetch to be ignored after logout")
	}
	if len(app.Snapshot().Page.Content) != 0 {
		t.Fatal("late fetch must not repopulate the list after logout")
	}
}

func TestUnauthorizedFetchExpiresSession(t *testing.T) {
	app := loggedIn(t, newFakeAPI(12), "editor")
	req, _ := app.Refresh()
	fetch := req.(FetchRequest)
	follow := app.Apply(FetchResult{
		Seq:   fetch.Seq,
		Query: fetch.Query,
		Err:   &cityclient.APIError{StatusCode: http.StatusUnauthorized, Message: "unauthorized"},
	})
	if len(follow) != 0 {
		t.Fatal("expected no follow-up after expiry")
	}
	state := app.Snapshot()
	if state.Session.Authenticated || state.Session.LastError != sessionExpiredMessage {
		t.Fatalf("unexpected session: %+v", state.Session)
	}
	if len(state.Page.Content) != 0 {
		t.Fatal("expected listing cleared on expiry")
	}
}

func TestStaleUnauthorizedFetchIsIgnored(t *testing.T) {
	app := loggedIn(t, newFakeAPI(12), "editor")
	stale, _ := app.Refresh()
	if _, err := app.Refresh(); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	app.Apply(FetchResult{
		Seq: stale.(FetchRequest).Seq,
		Err: &cityclient.APIError{StatusCode: http.StatusUnauthorized, Message: "unauthorized"},
	})
	if !app.Snapshot().Session.Authenticated {
		t.Fatal("stale auth failure must not log the user out")
	}
}

func TestOverlappingNavigationLastIssuedWins(t *testing.T) {
	api := newFakeAPI(15)
	app := loggedIn(t, api, "viewer")

	searchReq, _ := app.Search("o")
	pageReq, _ := app.Refresh()

	pageResult := Execute(context.Background(), api, pageReq)
	searchResult := Execute(context.Background(), api, searchReq)
	app.Apply(pageResult)
	app.Apply(searchResult)

	state := app.Snapshot()
	if state.Query.SearchTerm != "" {
		t.Fatalf("expected result of the later request, got search %q", state.Query.SearchTerm)
	}
	if state.Page.TotalElements != 15 {
		t.Fatalf("expected unfiltered total, got %d", state.Page.TotalElements)
	}
}
