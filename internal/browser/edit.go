package browser

import (
	"log/slog"

	"github.com/dwizi/city-browser/internal/cityclient"
)

// EditSession owns at most one draft at a time.
type EditSession struct {
	logger *slog.Logger

	target *EditTarget
	err    string

	seq     uint64
	pending bool
}

func NewEditSession(logger *slog.Logger) *EditSession {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &EditSession{logger: logger}
}

// Target returns a copy of the open draft.
func (e *EditSession) Target() (EditTarget, bool) {
	if e.target == nil {
		return EditTarget{}, false
	}
	return *e.target, true
}

func (e *EditSession) Error() string {
	return e.err
}

func (e *EditSession) Committing() bool {
	return e.pending
}

// Begin opens a draft of city, silently dropping any other open draft.
func (e *EditSession) Begin(city City) {
	if e.target != nil && e.target.Original.ID != city.ID {
		e.logger.Debug("discarding unsaved draft", "city_id", e.target.Original.ID)
	}
	e.target = &EditTarget{
		Original: city,
		Draft:    Draft{Name: city.Name, PhotoURL: city.PhotoURL},
	}
	e.err = ""
}

func (e *EditSession) UpdateDraftField(field Field, value string) error {
	if e.target == nil {
		return ErrNoEditTarget
	}
	switch field {
	case FieldName:
		e.target.Draft.Name = value
	case FieldPhotoURL:
		e.target.Draft.PhotoURL = value
	default:
		return ErrUnknownField
	}
	return nil
}

func (e *EditSession) Commit(query Query) (CommitRequest, error) {
	if e.target == nil {
		return CommitRequest{}, ErrNoEditTarget
	}
	if e.pending {
		return CommitRequest{}, ErrCommitInFlight
	}
	e.seq++
	e.pending = true
	e.err = ""
	return CommitRequest{
		Seq:   e.seq,
		Query: query,
		Patch: cityclient.CityPatch{
			ID:   e.target.Original.ID,
			Name: e.target.Draft.Name,
			URL:  e.target.Draft.PhotoURL,
		},
	}, nil
}

func (e *EditSession) IsLatest(seq uint64) bool {
	return e.pending && seq == e.seq
}

// ResolveCommit reports whether the result was applied and whether the
// listing must be re-fetched. Only a successful save asks for a re-fetch.
func (e *EditSession) ResolveCommit(result CommitResult) (bool, bool) {
	if !e.IsLatest(result.Seq) {
		e.logger.Debug("discarding stale commit result", "seq", result.Seq, "latest", e.seq)
		return false, false
	}
	e.pending = false
	sameTarget := e.target != nil && e.target.Original.ID == result.CityID
	if result.Err != nil {
		if sameTarget {
			e.err = reason(result.Err)
		}
		e.logger.Info("city update rejected", "city_id", result.CityID, "error", result.Err)
		return true, false
	}
	if sameTarget {
		e.target = nil
		e.err = ""
	}
	e.logger.Info("city updated", "city_id", result.CityID)
	return true, true
}

// Cancel drops the draft. A save already in flight still completes.
func (e *EditSession) Cancel() {
	e.target = nil
	e.err = ""
}

func (e *EditSession) Reset() {
	e.seq++
	e.pending = false
	e.target = nil
	e.err = ""
}
