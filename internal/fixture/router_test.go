package fixture

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	return NewRouter(Dependencies{
		Store:  newSeededStore(t),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func decodeBody(t *testing.T, res *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(res.Body.Bytes(), target); err != nil {
		t.Fatalf("decode body %q: %v", res.Body.String(), err)
	}
}

func TestLoginEndpoint(t *testing.T) {
	handler := newTestRouter(t)

	body, _ := json.Marshal(map[string]string{"login": "admin", "password": "admin"})
	req := httptest.NewRequest(http.MethodPost, "/api/login", bytes.NewReader(body))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", res.Code, res.Body.String())
	}
	var payload struct {
		Role string `json:"role"`
	}
	decodeBody(t, res, &payload)
	if payload.Role != RoleAllowEdit {
		t.Fatalf("expected edit role, got %q", payload.Role)
	}

	body, _ = json.Marshal(map[string]string{"login": "admin", "password": "nope"})
	req = httptest.NewRequest(http.MethodPost, "/api/login", bytes.NewReader(body))
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
}

func TestListCitiesRequiresBasicAuth(t *testing.T) {
	handler := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/cities?page=0&limit=5", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without credentials, got %d", res.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/cities?page=0&limit=5", nil)
	req.SetBasicAuth("user", "wrong")
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong password, got %d", res.Code)
	}
}

func TestListCitiesEndpoint(t *testing.T) {
	handler := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/cities?page=1&limit=5&name=par", nil)
	req.SetBasicAuth("user", "user")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", res.Code, res.Body.String())
	}
	var payload pagePayload
	decodeBody(t, res, &payload)
	if payload.TotalElements != 2 || payload.TotalPages != 1 {
		t.Fatalf("expected two matches on one page, got %+v", payload)
	}
	if len(payload.Content) != 0 {
		t.Fatalf("expected empty content beyond last page, got %d rows", len(payload.Content))
	}

	req = httptest.NewRequest(http.MethodGet, "/api/cities", nil)
	req.SetBasicAuth("user", "user")
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	decodeBody(t, res, &payload)
	if len(payload.Content) != defaultPageLimit || payload.TotalElements != len(defaultCityNames) {
		t.Fatalf("unexpected default page: %+v", payload)
	}
	if payload.Content[0].ID != 1 || payload.Content[0].URL == "" {
		t.Fatalf("unexpected first row: %+v", payload.Content[0])
	}
}

func TestListCitiesRejectsBadPaging(t *testing.T) {
	handler := newTestRouter(t)
	for _, query := range []string{"page=-1", "page=x", "limit=0", "limit=101"} {
		req := httptest.NewRequest(http.MethodGet, "/api/cities?"+query, nil)
		req.SetBasicAuth("user", "user")
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)
		if res.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for %s, got %d", query, res.Code)
		}
	}
}

func TestUpdateCityEndpoint(t *testing.T) {
	handler := newTestRouter(t)

	patch := func(login, password string, payload map[string]any) *httptest.ResponseRecorder {
		body, _ := json.Marshal(payload)
		req := httptest.NewRequest(http.MethodPatch, "/api/cities", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.SetBasicAuth(login, password)
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)
		return res
	}

	res := patch("user", "user", map[string]any{"id": 1, "name": "Tokyo", "url": "https://images.example.com/t.jpg"})
	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for read-only user, got %d", res.Code)
	}

	res = patch("admin", "admin", map[string]any{"id": 1, "name": "Tokyo", "url": "notaurl"})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid url, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "url must be an absolute http(s) url") {
		t.Fatalf("expected validation reason, got %s", res.Body.String())
	}

	res = patch("admin", "admin", map[string]any{"id": 4242, "name": "Nowhere", "url": "https://images.example.com/n.jpg"})
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown city, got %d", res.Code)
	}

	res = patch("admin", "admin", map[string]any{"id": 1, "name": "Tokyo Bay", "url": "https://images.example.com/t.jpg"})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", res.Code, res.Body.String())
	}
	var city cityPayload
	decodeBody(t, res, &city)
	if city.Name != "Tokyo Bay" {
		t.Fatalf("expected updated name, got %+v", city)
	}
}

func TestHealthAndUnknownRoutes(t *testing.T) {
	handler := newTestRouter(t)

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected healthz 200, got %d", res.Code)
	}

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodDelete, "/api/login", nil))
	if res.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", res.Code)
	}
}

func TestMetricsEndpointCountsRoutes(t *testing.T) {
	handler := newTestRouter(t)

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/api/cities", nil))
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected metrics 200, got %d", res.Code)
	}
	want := `city_fixture_http_requests_total{method="GET",result="4xx",route="/api/cities"}`
	if !strings.Contains(res.Body.String(), want) {
		t.Fatalf("expected %s in metrics output", want)
	}
}

func TestStatusClass(t *testing.T) {
	if got := statusClass(http.StatusForbidden); got != "4xx" {
		t.Fatalf("expected 4xx, got %q", got)
	}
	if got := statusClass(0); got != "unknown" {
		t.Fatalf("expected unknown, got %q", got)
	}
}
