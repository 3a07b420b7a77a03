package storage

import (
	"fmt"
	"strings"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type SortDirection string

const (
	SortAsc  SortDirection = "ASC"
	SortDesc SortDirection = "DESC"
)

// SortFields maps an externally visible sort key to its column name.
type SortFields map[string]string

var (
	CardSortFields = SortFields{
		"id":             "id",
		"balance":        "balance",
		"createdAt":      "created_at",
		"expirationDate": "expires_at",
		"status":         "status",
	}

	UserSortFields = SortFields{
		"id":       "id",
		"username": "username",
		"role":     "role",
	}

	BlockRequestSortFields = SortFields{
		"id":     "id",
		"status": "status",
	}

	TransferSortFields = SortFields{
		"id":        "id",
		"amount":    "amount",
		"createdAt": "created_at",
	}
)

// Page is a validated, zero-based page request.
type Page struct {
	Number  int
	Size    int
	SortBy  string
	Column  string
	SortDir SortDirection
}

// DefaultPage returns the first page sorted by id ascending.
func DefaultPage() Page {
	return Page{
		Number:  0,
		Size:    DefaultPageSize,
		SortBy:  "id",
		Column:  "id",
		SortDir: SortAsc,
	}
}

// NewPage validates the paging input against the allowed sort fields.
// Empty sortBy and sortDir fall back to id and ascending.
func NewPage(number, size int, sortBy, sortDir string, fields SortFields) (Page, error) {
	if number < 0 {
		return Page{}, fmt.Errorf("%w: page number %d is negative", ErrInvalidPage, number)
	}

	if size < 1 || size > MaxPageSize {
		return Page{}, fmt.Errorf("%w: page size %d is out of range [1, %d]", ErrInvalidPage, size, MaxPageSize)
	}

	if sortBy == "" {
		sortBy = "id"
	}

	column, ok := fields[sortBy]
	if !ok {
		return Page{}, fmt.Errorf("%w: unknown sort field %q", ErrInvalidPage, sortBy)
	}

	dir := SortAsc

	switch strings.ToUpper(sortDir) {
	case "", string(SortAsc):
	case string(SortDesc):
		dir = SortDesc
	default:
		return Page{}, fmt.Errorf("%w: unknown sort direction %q", ErrInvalidPage, sortDir)
	}

	return Page{
		Number:  number,
		Size:    size,
		SortBy:  sortBy,
		Column:  column,
		SortDir: dir,
	}, nil
}

func (p Page) Offset() int {
	return p.Number * p.Size
}

// OrderBy renders the ORDER BY clause; id breaks ties for a stable order.
func (p Page) OrderBy() string {
	if p.Column == "id" {
		return fmt.Sprintf("ORDER BY id %s", p.SortDir)
	}

	return fmt.Sprintf("ORDER BY %s %s, id ASC", p.Column, p.SortDir)
}

// Bounds returns the slice bounds of the page within total items.
func (p Page) Bounds(total int) (int, int) {
	start := p.Offset()
	if start > total {
		start = total
	}

	end := start + p.Size
	if end > total {
		end = total
	}

	return start, end
}
