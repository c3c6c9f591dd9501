package rest

import (
	"net/http"
	"strconv"

	"github.com/bwise1/clarity/util"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	return util.StringToUUID(chi.URLParam(r, name))
}

// pageParams reads page, pageSize and status from the query string. Bad or
// missing numbers fall back to the defaults.
func pageParams(r *http.Request) util.PageParams {
	q := r.URL.Query()
	p := util.PageParams{Status: q.Get("status")}
	if page, err := strconv.Atoi(q.Get("page")); err == nil {
		p.Page = page
	}
	if size, err := strconv.Atoi(q.Get("pageSize")); err == nil {
		p.PageSize = size
	}
	return p.Normalize()
}
