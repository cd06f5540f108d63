package db

import "fmt"

// Visibility selects rows by their soft-delete state. Every read in the
// repositories takes one; there is no implicit default at the query level.
type Visibility int

const (
	// ActiveOnly hides rows whose deletion timestamp is set.
	ActiveOnly Visibility = iota
	// WithDeleted returns active and soft-deleted rows.
	WithDeleted
	// DeletedOnly returns only soft-deleted rows.
	DeletedOnly
)

// Predicate renders the SQL condition for the given deletion-timestamp column.
func (v Visibility) Predicate(column string) string {
	switch v {
	case WithDeleted:
		return "TRUE"
	case DeletedOnly:
		return column + " IS NOT NULL"
	default:
		return column + " IS NULL"
	}
}

func (v Visibility) String() string {
	switch v {
	case WithDeleted:
		return "include"
	case DeletedOnly:
		return "only"
	default:
		return "exclude"
	}
}

// ParseVisibility maps the "deleted" query parameter onto a Visibility.
// An empty value means ActiveOnly.
func ParseVisibility(s string) (Visibility, error) {
	switch s {
	case "", "exclude":
		return ActiveOnly, nil
	case "include":
		return WithDeleted, nil
	case "only":
		return DeletedOnly, nil
	}
	return ActiveOnly, fmt.Errorf("invalid deleted filter %q: want exclude, include or only", s)
}
