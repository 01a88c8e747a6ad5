package browser

import (
	"context"

	"github.com/dwizi/city-browser/internal/cityclient"
)

// API is the remote contract the controllers depend on. *cityclient.Client
// satisfies it.
type API interface {
	Login(ctx context.Context, login, password string) (cityclient.LoginResponse, error)
	ListCities(ctx context.Context, creds cityclient.Credentials, input cityclient.ListCitiesInput) (cityclient.Page, error)
	UpdateCity(ctx context.Context, creds cityclient.Credentials, patch cityclient.CityPatch) error
}

// Request is a unit of network work issued by a controller. Each request is
// tagged with the issuing controller's sequence number.
type Request interface {
	isRequest()
}

// Result is the completion of a Request, carrying the same tag.
type Result interface {
	isResult()
}

type LoginRequest struct {
	Seq         uint64
	Credentials Credentials
}

type FetchRequest struct {
	Seq         uint64
	Query       Query
	Credentials Credentials
}

type CommitRequest struct {
	Seq         uint64
	Query       Query
	Patch       cityclient.CityPatch
	Credentials Credentials
}

func (LoginRequest) isRequest()  {}
func (FetchRequest) isRequest()  {}
func (CommitRequest) isRequest() {}

type LoginResult struct {
	Seq         uint64
	Credentials Credentials
	Role        string
	Err         error
}

type FetchResult struct {
	Seq   uint64
	Query Query
	Page  cityclient.Page
	Err   error
}

type CommitResult struct {
	Seq    uint64
	Query  Query
	CityID int64
	Err    error
}

func (LoginResult) isResult()  {}
func (FetchResult) isResult()  {}
func (CommitResult) isResult() {}

// Execute performs req against api. It blocks, so callers run it off the
// event loop and feed the Result back through App.Apply.
func Execute(ctx context.Context, api API, req Request) Result {
	switch typed := req.(type) {
	case LoginRequest:
		response, err := api.Login(ctx, typed.Credentials.Login, typed.Credentials.Password)
		return LoginResult{Seq: typed.Seq, Credentials: typed.Credentials, Role: response.Role, Err: err}
	case FetchRequest:
		page, err := api.ListCities(ctx, typed.Credentials, cityclient.ListCitiesInput{
			Page:  typed.Query.PageIndex,
			Limit: PageSize,
			Name:  typed.Query.SearchTerm,
		})
		return FetchResult{Seq: typed.Seq, Query: typed.Query, Page: page, Err: err}
	case CommitRequest:
		err := api.UpdateCity(ctx, typed.Credentials, typed.Patch)
		return CommitResult{Seq: typed.Seq, Query: typed.Query, CityID: typed.Patch.ID, Err: err}
	default:
		return nil
	}
}
