// Package browser holds the client-side session, listing and edit state
// machines. Controllers are not safe for concurrent use: they are driven from
// a single event loop and network work happens outside them via Execute.
package browser

import (
	"strings"

	"github.com/dwizi/city-browser/internal/cityclient"
)

// PageSize is the fixed number of cities requested per page.
const PageSize = 5

// RoleAllowEdit is the only role string that unlocks editing.
const RoleAllowEdit = "ROLE_ALLOW_EDIT"

// City and Credentials are the wire types, shared with the client.
type (
	City        = cityclient.City
	Credentials = cityclient.Credentials
)

// Capability is what the signed-in account may do beyond reading.
type Capability int

const (
	CapabilityNone Capability = iota
	CapabilityEdit
)

func (c Capability) String() string {
	if c == CapabilityEdit {
		return "edit"
	}
	return "read-only"
}

// CapabilityFromRole maps the login role; unknown or empty roles are read-only.
func CapabilityFromRole(role string) Capability {
	if strings.TrimSpace(role) == RoleAllowEdit {
		return CapabilityEdit
	}
	return CapabilityNone
}

// Session is the authentication state. LastError is shown on the login form.
type Session struct {
	Authenticated bool
	Capability    Capability
	LastError     string
}

// Page is one resolved slice of the listing. PageIndex is zero-based.
type Page struct {
	Content       []City
	PageIndex     int
	TotalPages    int
	TotalElements int
}

func (p Page) clone() Page {
	out := p
	if p.Content != nil {
		out.Content = append([]City(nil), p.Content...)
	}
	return out
}

// Query identifies a listing fetch.
type Query struct {
	PageIndex  int
	SearchTerm string
}

// Field names an editable draft field.
type Field string

const (
	FieldName     Field = "name"
	FieldPhotoURL Field = "photoUrl"
)

// Draft holds the unsaved values of the city being edited.
type Draft struct {
	Name     string
	PhotoURL string
}

// EditTarget pairs the city as listed with its draft.
type EditTarget struct {
	Original City
	Draft    Draft
}
