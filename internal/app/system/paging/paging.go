// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"

	"github.com/advocacy-resources/advo-sub000/internal/app/system/apierr"
	"github.com/dalemusser/waffle/pantry/query"
)

// DefaultLimit is the page size used when the client sends none.
const DefaultLimit = 10

// MaxLimit caps the page size a client may request.
const MaxLimit = 100

// MaxPage caps the page number so (Page-1)*Limit stays well inside int.
const MaxPage = 1_000_000

// Params is a validated 1-based page request.
type Params struct {
	Page  int
	Limit int
}

// Skip returns the number of rows before the page, as Mongo wants it.
func (p Params) Skip() int64 { return int64((p.Page - 1) * p.Limit) }

// Limit64 returns Limit as int64 for options.Find().SetLimit.
func (p Params) Limit64() int64 { return int64(p.Limit) }

// Parse reads "page" and "limit" from the query string. Missing values take
// defaults; non-numeric or out-of-range values are a 400.
func Parse(r *http.Request) (Params, error) {
	p := Params{Page: 1, Limit: DefaultLimit}

	if s := query.Get(r, "page"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > MaxPage {
			return p, apierr.Invalid(map[string]string{"page": "must be an integer between 1 and " + strconv.Itoa(MaxPage)})
		}
		p.Page = n
	}
	if s := query.Get(r, "limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > MaxLimit {
			return p, apierr.Invalid(map[string]string{"limit": "must be an integer between 1 and " + strconv.Itoa(MaxLimit)})
		}
		p.Limit = n
	}
	return p, nil
}

// TotalPages returns ceil(total/limit), and 0 for an empty result.
func TotalPages(total int64, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

// Slice returns the page of rows held in memory. Pages past the end are
// empty, never nil.
func Slice[T any](rows []T, p Params) []T {
	if p.Page < 1 || p.Limit < 1 || p.Page > MaxPage || p.Limit > MaxLimit {
		return []T{}
	}
	start := (p.Page - 1) * p.Limit
	if start >= len(rows) {
		return []T{}
	}
	end := start + p.Limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end]
}

// List is the JSON envelope for paginated collections.
type List[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

// NewList wraps a page of rows. A nil slice is serialized as [].
func NewList[T any](rows []T, total int64, p Params) List[T] {
	if rows == nil {
		rows = []T{}
	}
	return List[T]{
		Items:      rows,
		Total:      total,
		Page:       p.Page,
		Limit:      p.Limit,
		TotalPages: TotalPages(total, p.Limit),
	}
}
