package echoapi

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/alrightylabs/lutranscript/core"
)

var (
	searchParam = "search"
	pageParam   = "page"
)

// GroupQuery is the search/page position requested on the group list.
type GroupQuery struct {
	Search string
	Page   int
}

// Bind reads ?search= and ?page=. A missing or invalid page is left at 0.
func (q *GroupQuery) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	q.Search = core.CleanString(data.Get(searchParam))
	if val := data.Get(pageParam); val != "" {
		if page, err := strconv.Atoi(val); err == nil && page > 0 {
			q.Page = page
		}
	}
}

type (
	userTranscriptRequest struct {
		Email string `json:"email" validate:"required,notblank,email"`
	}

	groupTranscriptRequest struct {
		Name string `json:"name" validate:"required,notblank"`
	}
)
