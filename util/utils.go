package util

import (
	"html"
	"net/url"
	"strings"

	"github.com/google/go-querystring/query"
	"github.com/microcosm-cc/bluemonday"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

var strictPolicy = bluemonday.StrictPolicy()

func NotBlank(value string) bool {
	return strings.TrimSpace(value) != ""
}

// SanitizeText strips every HTML element from user supplied text and
// returns the plain text, trimmed.
func SanitizeText(s string) string {
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(s)))
}

// NormalizeHandle lowercases a username or entity name and drops a leading @.
func NormalizeHandle(s string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "@"))
}

// DistinctStrings trims every entry and returns the non-blank ones in their
// original order with duplicates removed.
func DistinctStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// PageParams is the pagination window shared by list endpoints.
type PageParams struct {
	Page     int    `url:"page"`
	PageSize int    `url:"pageSize"`
	Status   string `url:"status,omitempty"`
}

func (p PageParams) Normalize() PageParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

func (p PageParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// NextPageLink builds the link to the page after p. An empty string is
// returned when the current page was not full.
func NextPageLink(path string, p PageParams, returned int) string {
	if returned < p.PageSize {
		return ""
	}
	next := p
	next.Page++
	v, err := query.Values(next)
	if err != nil {
		return ""
	}
	u := url.URL{Path: path, RawQuery: v.Encode()}
	return u.String()
}
