package browser

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/dwizi/city-browser/internal/cityclient"
)

type fakeAPI struct {
	mu       sync.Mutex
	users    map[string]fakeUser
	cities   []City
	listHits []cityclient.ListCitiesInput
	patches  []cityclient.CityPatch
	rejectID int64
}

type fakeUser struct {
	password string
	role     string
}

func newFakeAPI(cityCount int) *fakeAPI {
	api := &fakeAPI{
		users: map[string]fakeUser{
			"editor": {password: "secret", role: RoleAllowEdit},
			"viewer": {password: "secret", role: "ROLE_USER"},
		},
	}
	names := []string{"Paris", "Parma", "Berlin", "Madrid", "Rome", "Vienna", "Oslo", "Lisbon", "Prague", "Warsaw", "Dublin", "Athens"}
	for i := 0; i < cityCount; i++ {
		api.cities = append(api.cities, City{
			ID:       int64(i + 1),
			Name:     names[i%len(names)],
			PhotoURL: "https://img.example/" + strings.ToLower(names[i%len(names)]) + ".jpg",
		})
	}
	return api
}

func (f *fakeAPI) authorize(creds cityclient.Credentials) error {
	user, ok := f.users[creds.Login]
	if !ok || user.password != creds.Password {
		return &cityclient.APIError{StatusCode: http.StatusUnauthorized, Message: "unauthorized"}
	}
	return nil
}

func (f *fakeAPI) Login(_ context.Context, login, password string) (cityclient.LoginResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.authorize(cityclient.Credentials{Login: login, Password: password}); err != nil {
		return cityclient.LoginResponse{}, err
	}
	return cityclient.LoginResponse{Role: f.users[login].role}, nil
}

func (f *fakeAPI) ListCities(_ context.Context, creds cityclient.Credentials, input cityclient.ListCitiesInput) (cityclient.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.authorize(creds); err != nil {
		return cityclient.Page{}, err
	}
	f.listHits = append(f.listHits, input)
	filtered := make([]City, 0, len(f.cities))
	for _, city := range f.cities {
		if input.Name == "" || strings.Contains(strings.ToLower(city.Name), strings.ToLower(input.Name)) {
			filtered = append(filtered, city)
		}
	}
	totalPages := (len(filtered) + input.Limit - 1) / input.Limit
	start := input.Page * input.Limit
	content := []City{}
	if start < len(filtered) {
		end := start + input.Limit
		if end > len(filtered) {
			end = len(filtered)
		}
		content = append(content, filtered[start:end]...)
	}
	return cityclient.Page{Content: content, TotalPages: totalPages, TotalElements: len(filtered)}, nil
}

func (f *fakeAPI) UpdateCity(_ context.Context, creds cityclient.Credentials, patch cityclient.CityPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.authorize(creds); err != nil {
		return err
	}
	if f.users[creds.Login].role != RoleAllowEdit {
		return &cityclient.APIError{StatusCode: http.StatusForbidden, Message: "forbidden"}
	}
	if patch.ID == f.rejectID || strings.TrimSpace(patch.Name) == "" {
		return &cityclient.APIError{StatusCode: http.StatusBadRequest, Message: "name must not be blank"}
	}
	f.patches = append(f.patches, patch)
	for i := range f.cities {
		if f.cities[i].ID == patch.ID {
			f.cities[i].Name = patch.Name
			f.cities[i].PhotoURL = patch.URL
		}
	}
	return nil
}

func (f *fakeAPI) listCalls() []cityclient.ListCitiesInput {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]cityclient.ListCitiesInput(nil), f.listHits...)
}

// drive executes requests synchronously until no follow-ups remain.
func drive(app *App, api API, requests ...Request) {
	queue := append([]Request(nil), requests...)
	for len(queue) > 0 {
		req := queue[0]
		queue = queue[1:]
		if req == nil {
			continue
		}
		queue = append(queue, app.Apply(Execute(context.Background(), api, req))...)
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
