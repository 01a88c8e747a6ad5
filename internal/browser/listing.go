package browser

import (
	"log/slog"
	"strings"
)

// ListingController owns the displayed page and the query it was fetched
// with. Only the result of the most recently issued fetch is ever applied.
type ListingController struct {
	logger *slog.Logger

	page   Page
	query  Query
	notice string

	seq     uint64
	pending bool
	issued  Query
}

func NewListingController(logger *slog.Logger) *ListingController {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ListingController{logger: logger}
}

func (l *ListingController) Page() Page {
	return l.page.clone()
}

// Query is the last resolved query, not necessarily the last issued one.
func (l *ListingController) Query() Query {
	return l.query
}

func (l *ListingController) Notice() string {
	return l.notice
}

func (l *ListingController) Pending() bool {
	return l.pending
}

func (l *ListingController) IsLatest(seq uint64) bool {
	return l.pending && seq == l.seq
}

func (l *ListingController) Fetch(query Query) FetchRequest {
	if query.PageIndex < 0 {
		query.PageIndex = 0
	}
	query.SearchTerm = strings.TrimSpace(query.SearchTerm)
	l.seq++
	l.pending = true
	l.issued = query
	return FetchRequest{Seq: l.seq, Query: query}
}

// GoToPage moves relative to the displayed page. It reports false, and issues
// nothing, when the target falls outside [0, TotalPages) or while a fetch for
// another search term is outstanding.
func (l *ListingController) GoToPage(delta int) (FetchRequest, bool) {
	if delta == 0 || l.searchPending() {
		return FetchRequest{}, false
	}
	target := l.page.PageIndex + delta
	if target < 0 || target >= l.page.TotalPages {
		return FetchRequest{}, false
	}
	return l.Fetch(Query{PageIndex: target, SearchTerm: l.query.SearchTerm}), true
}

// Search always restarts pagination.
func (l *ListingController) Search(term string) FetchRequest {
	return l.Fetch(Query{PageIndex: 0, SearchTerm: term})
}

func (l *ListingController) Refresh() FetchRequest {
	return l.Fetch(l.query)
}

func (l *ListingController) HasPrevious() bool {
	return !l.searchPending() && l.page.PageIndex > 0
}

func (l *ListingController) HasNext() bool {
	return !l.searchPending() && l.page.PageIndex+1 < l.page.TotalPages
}

// searchPending reports whether the page bounds are about to change under a
// new search term.
func (l *ListingController) searchPending() bool {
	return l.pending && l.issued.SearchTerm != l.query.SearchTerm
}

// ResolveFetch applies a fetch result if it belongs to the latest issued
// fetch. When the server reports fewer pages than the requested index (the
// data shrank underneath us) the result is not applied and a fetch of the
// last existing page is returned instead.
func (l *ListingController) ResolveFetch(result FetchResult) (bool, *FetchRequest) {
	if !l.IsLatest(result.Seq) {
		l.logger.Debug("discarding stale fetch result", "seq", result.Seq, "latest", l.seq)
		return false, nil
	}
	l.pending = false
	if result.Err != nil {
		l.notice = fetchErrorMessage(result.Err)
		l.logger.Warn("fetch failed", "page", result.Query.PageIndex, "search", result.Query.SearchTerm, "error", result.Err)
		return true, nil
	}

	if result.Page.TotalElements > 0 && result.Query.PageIndex >= result.Page.TotalPages && result.Page.TotalPages > 0 {
		next := l.Fetch(Query{PageIndex: result.Page.TotalPages - 1, SearchTerm: result.Query.SearchTerm})
		l.logger.Debug("requested page out of range, clamping", "requested", result.Query.PageIndex, "total_pages", result.Page.TotalPages)
		return false, &next
	}

	content := result.Page.Content
	if len(content) > PageSize {
		content = content[:PageSize]
	}
	pageIndex := result.Query.PageIndex
	if result.Page.TotalElements == 0 {
		pageIndex = 0
	}
	l.page = Page{
		Content:       append([]City(nil), content...),
		PageIndex:     pageIndex,
		TotalPages:    result.Page.TotalPages,
		TotalElements: result.Page.TotalElements,
	}
	l.query = Query{PageIndex: pageIndex, SearchTerm: result.Query.SearchTerm}
	l.notice = ""
	return true, nil
}

func (l *ListingController) DismissNotice() {
	l.notice = ""
}

// Reset clears the page and query and orphans any outstanding fetch.
func (l *ListingController) Reset() {
	l.seq++
	l.pending = false
	l.issued = Query{}
	l.page = Page{}
	l.query = Query{}
	l.notice = ""
}
