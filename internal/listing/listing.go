// Package listing is the client-side filter, search and pagination layer
// shared by every list view.
package listing

import "strings"

// Predicate decides whether an item stays in a list.
type Predicate[T any] func(T) bool

// Filter keeps the items accepted by every predicate, preserving input order.
// Nil predicates are ignored.
func Filter[T any](items []T, preds ...Predicate[T]) []T {
	out := make([]T, 0, len(items))
outer:
	for _, item := range items {
		for _, pred := range preds {
			if pred != nil && !pred(item) {
				continue outer
			}
		}
		out = append(out, item)
	}
	return out
}

// IsAny reports whether a select-style filter value means "no constraint".
func IsAny(value string) bool {
	v := strings.TrimSpace(value)
	return v == "" || strings.EqualFold(v, "all")
}

// Equals builds an exact-match predicate on field; "" and "all" match everything.
func Equals[T any](want string, field func(T) string) Predicate[T] {
	if IsAny(want) {
		return nil
	}
	want = strings.TrimSpace(want)
	return func(item T) bool {
		return field(item) == want
	}
}

// Contains builds a case-insensitive substring search over the fields
// returned by fields. An empty query matches everything.
func Contains[T any](query string, fields func(T) []string) Predicate[T] {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	return func(item T) bool {
		for _, f := range fields(item) {
			if strings.Contains(strings.ToLower(f), q) {
				return true
			}
		}
		return false
	}
}

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// Paginate returns the 1-based page of items. Out-of-range pages are empty.
func Paginate[T any](items []T, page, size int) Page[T] {
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	if page < 1 {
		page = 1
	}

	total := len(items)
	p := Page[T]{
		Items:      []T{},
		Page:       page,
		PageSize:   size,
		Total:      total,
		TotalPages: (total + size - 1) / size,
	}

	if page > p.TotalPages {
		return p
	}
	start := (page - 1) * size
	end := start + size
	if end > total {
		end = total
	}
	p.Items = items[start:end]
	return p
}
