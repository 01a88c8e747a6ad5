package browser

import (
	"log/slog"
)

// SessionController owns the credentials and the authentication status.
type SessionController struct {
	logger *slog.Logger

	session        Session
	credentials    Credentials
	hasCredentials bool

	loginSeq     uint64
	loginPending bool
}

func NewSessionController(logger *slog.Logger) *SessionController {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SessionController{logger: logger}
}

func (c *SessionController) Session() Session {
	return c.session
}

// Credentials are only available while authenticated.
func (c *SessionController) Credentials() (Credentials, bool) {
	if !c.hasCredentials || !c.session.Authenticated {
		return Credentials{}, false
	}
	return c.credentials, true
}

func (c *SessionController) LoginPending() bool {
	return c.loginPending
}

// Login starts a login attempt. A newer attempt supersedes an older one that
// has not resolved yet.
func (c *SessionController) Login(identifier, secret string) LoginRequest {
	c.loginSeq++
	c.loginPending = true
	c.session.LastError = ""
	return LoginRequest{
		Seq:         c.loginSeq,
		Credentials: Credentials{Login: identifier, Password: secret},
	}
}

func (c *SessionController) ResolveLogin(result LoginResult) bool {
	if !c.loginPending || result.Seq != c.loginSeq {
		c.logger.Debug("discarding stale login result", "seq", result.Seq, "latest", c.loginSeq)
		return false
	}
	c.loginPending = false
	if result.Err != nil {
		c.session = Session{LastError: loginErrorMessage(result.Err)}
		c.credentials = Credentials{}
		c.hasCredentials = false
		c.logger.Info("login failed", "login", result.Credentials.Login, "error", result.Err)
		return true
	}
	c.session = Session{
		Authenticated: true,
		Capability:    CapabilityFromRole(result.Role),
	}
	c.credentials = result.Credentials
	c.hasCredentials = true
	c.logger.Info("login succeeded", "login", result.Credentials.Login, "capability", c.session.Capability.String())
	return true
}

func (c *SessionController) Logout() {
	c.reset("")
}

// Expire drops the session after the server rejected stored credentials.
func (c *SessionController) Expire() {
	c.reset(sessionExpiredMessage)
}

func (c *SessionController) reset(lastError string) {
	c.loginSeq++
	c.loginPending = false
	c.session = Session{LastError: lastError}
	c.credentials = Credentials{}
	c.hasCredentials = false
}
