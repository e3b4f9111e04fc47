package shared

import (
	"math"
	"net/url"
	"strconv"
)

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"perPage"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// NewPagination computes pagination metadata.
func NewPagination(page, perPage, total int) Pagination {
	if perPage <= 0 {
		perPage = 20
	}
	if page <= 0 {
		page = 1
	}
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	return Pagination{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages}
}

// ParsePage reads page and limit query parameters, capping limit at 100.
func ParsePage(q url.Values) (page, perPage int) {
	page, _ = strconv.Atoi(q.Get("page"))
	perPage, _ = strconv.Atoi(q.Get("limit"))
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}
	return page, perPage
}

// Paginate returns the slice window for the page along with its metadata.
func Paginate[T any](items []T, page, perPage int) ([]T, Pagination) {
	meta := NewPagination(page, perPage, len(items))
	start := (meta.Page - 1) * meta.PerPage
	if start >= len(items) {
		return []T{}, meta
	}
	end := start + meta.PerPage
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], meta
}
