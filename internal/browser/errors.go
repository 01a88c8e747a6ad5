package browser

import (
	"errors"
	"strings"

	"github.com/dwizi/city-browser/internal/cityclient"
)

var (
	ErrNotAuthenticated     = errors.New("not authenticated")
	ErrAlreadyAuthenticated = errors.New("already authenticated")
	ErrEditNotPermitted     = errors.New("edit capability required")
	ErrNoEditTarget         = errors.New("no city is being edited")
	ErrCommitInFlight       = errors.New("a save is already in progress")
	ErrUnknownField         = errors.New("unknown draft field")
)

const sessionExpiredMessage = "session expired, please log in again"

func loginErrorMessage(err error) string {
	if errors.Is(err, cityclient.ErrUnauthorized) {
		return "invalid login or password"
	}
	return "login failed: " + reason(err)
}

func fetchErrorMessage(err error) string {
	return "could not load cities: " + reason(err)
}

// reason prefers the server's own message over the transport's wrapping.
func reason(err error) string {
	var apiErr *cityclient.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	if err == nil {
		return "unknown error"
	}
	return strings.TrimSpace(err.Error())
}
