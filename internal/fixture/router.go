package fixture

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	defaultPageLimit = 5
	maxPageLimit     = 100
)

type Dependencies struct {
	Store  *Store
	Logger *slog.Logger
}

type router struct {
	deps Dependencies
}

type userContextKey struct{}

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type cityPayload struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

type pagePayload struct {
	Content       []cityPayload `json:"content"`
	TotalPages    int           `json:"totalPages"`
	TotalElements int           `json:"totalElements"`
	Number        int           `json:"number"`
	Size          int           `json:"size"`
}

// NewRouter serves the city API: login, paged listing and single-city
// updates guarded by HTTP Basic credentials.
func NewRouter(deps Dependencies) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	rt := &router{deps: deps}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(rt.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	})

	r.Get("/healthz", rt.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Post("/api/login", rt.handleLogin)
	r.Group(func(r chi.Router) {
		r.Use(rt.requireBasicAuth)
		r.Get("/api/cities", rt.handleListCities)
		r.Patch("/api/cities", rt.handleUpdateCity)
	})
	return r
}

func (rt *router) handleHealth(w http.ResponseWriter, req *http.Request) {
	if err := rt.deps.Store.Ping(req.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not-ready", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *router) handleLogin(w http.ResponseWriter, req *http.Request) {
	var payload loginRequest
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	user, err := rt.deps.Store.Authenticate(req.Context(), payload.Login, payload.Password)
	if err != nil {
		rt.writeAuthError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"role": user.Role})
}

func (rt *router) handleListCities(w http.ResponseWriter, req *http.Request) {
	query := req.URL.Query()
	page, err := intParam(query.Get("page"), 0)
	if err != nil || page < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "page must be a non-negative integer"})
		return
	}
	limit, err := intParam(query.Get("limit"), defaultPageLimit)
	if err != nil || limit < 1 || limit > maxPageLimit {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be between 1 and 100"})
		return
	}

	result, err := rt.deps.Store.ListCities(req.Context(), ListCitiesInput{
		Name:  query.Get("name"),
		Page:  page,
		Limit: limit,
	})
	if err != nil {
		rt.deps.Logger.Error("list cities failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not list cities"})
		return
	}

	payload := pagePayload{
		Content:       make([]cityPayload, 0, len(result.Cities)),
		TotalPages:    int(math.Ceil(float64(result.Total) / float64(limit))),
		TotalElements: result.Total,
		Number:        page,
		Size:          limit,
	}
	for _, city := range result.Cities {
		payload.Content = append(payload.Content, cityPayload{ID: city.ID, Name: city.Name, URL: city.PhotoURL})
	}
	writeJSON(w, http.StatusOK, payload)
}

func (rt *router) handleUpdateCity(w http.ResponseWriter, req *http.Request) {
	user, _ := req.Context().Value(userContextKey{}).(User)
	if user.Role != RoleAllowEdit {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "editing is not permitted for this account"})
		return
	}

	var payload cityPayload
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	if payload.ID <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "id is required"})
		return
	}

	city, err := rt.deps.Store.UpdateCity(req.Context(), City{ID: payload.ID, Name: payload.Name, PhotoURL: payload.URL})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCity):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		case errors.Is(err, ErrCityNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		default:
			rt.deps.Logger.Error("update city failed", "error", err, "city_id", payload.ID)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not update city"})
		}
		return
	}
	rt.deps.Logger.Info("city updated", "city_id", city.ID, "login", user.Login)
	writeJSON(w, http.StatusOK, cityPayload{ID: city.ID, Name: city.Name, URL: city.PhotoURL})
}

func (rt *router) requireBasicAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		login, password, ok := req.BasicAuth()
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		user, err := rt.deps.Store.Authenticate(req.Context(), login, password)
		if err != nil {
			rt.writeAuthError(w, req, err)
			return
		}
		next.ServeHTTP(w, req.WithContext(context.WithValue(req.Context(), userContextKey{}, user)))
	})
}

func (rt *router) writeAuthError(w http.ResponseWriter, req *http.Request, err error) {
	if errors.Is(err, ErrInvalidCredentials) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	rt.deps.Logger.Error("authentication failed", "error", err, "request_id", middleware.GetReqID(req.Context()))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "authentication unavailable"})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (rt *router) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, req)
		route := ""
		if rctx := chi.RouteContext(req.Context()); rctx != nil {
			route = rctx.RoutePattern()
		}
		recordRequest(req.Method, route, recorder.status, time.Since(start))
		rt.deps.Logger.Info("http request",
			"method", req.Method,
			"path", req.URL.Path,
			"status", recorder.status,
			"duration", time.Since(start).Round(time.Millisecond),
			"request_id", middleware.GetReqID(req.Context()),
		)
	})
}

func intParam(raw string, fallback int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
