package inmemory

import (
	"cmp"
	"slices"
	"strings"

	"github.com/andymarkow/bankcards/internal/storage"
	"github.com/andymarkow/bankcards/internal/storage/dbmodels"
)

type comparator[T any] func(a, b T) int

var cardComparators = map[string]comparator[*dbmodels.Card]{
	"balance":        func(a, b *dbmodels.Card) int { return a.Balance.Cmp(b.Balance) },
	"createdAt":      func(a, b *dbmodels.Card) int { return a.CreatedAt.Compare(b.CreatedAt) },
	"expirationDate": func(a, b *dbmodels.Card) int { return a.ExpiresAt.Compare(b.ExpiresAt) },
	"status":         func(a, b *dbmodels.Card) int { return strings.Compare(a.Status, b.Status) },
}

var userComparators = map[string]comparator[*dbmodels.User]{
	"username": func(a, b *dbmodels.User) int { return strings.Compare(a.Username, b.Username) },
	"role":     func(a, b *dbmodels.User) int { return strings.Compare(a.Role, b.Role) },
}

var transferComparators = map[string]comparator[*dbmodels.Transfer]{
	"amount":    func(a, b *dbmodels.Transfer) int { return a.Amount.Cmp(b.Amount) },
	"createdAt": func(a, b *dbmodels.Transfer) int { return a.CreatedAt.Compare(b.CreatedAt) },
}

var blockRequestComparators = map[string]comparator[*dbmodels.BlockRequest]{
	"status": func(a, b *dbmodels.BlockRequest) int { return strings.Compare(a.Status, b.Status) },
}

// sortPage orders rows by the page sort field, ties broken by ascending id,
// and cuts out the requested page.
func sortPage[T any](rows []T, page storage.Page, fields map[string]comparator[T], id func(T) int64) []T {
	byField, ok := fields[page.SortBy]
	if !ok {
		byField = func(a, b T) int { return cmp.Compare(id(a), id(b)) }
	}

	slices.SortFunc(rows, func(a, b T) int {
		c := byField(a, b)
		if page.SortDir == storage.SortDesc {
			c = -c
		}

		if c == 0 {
			c = cmp.Compare(id(a), id(b))
		}

		return c
	})

	start, end := page.Bounds(len(rows))

	return rows[start:end]
}
