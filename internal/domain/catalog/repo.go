package catalog

import "context"

type Repository interface {
	List(ctx context.Context, kind Kind) ([]*Entry, error)
	GetByID(ctx context.Context, kind Kind, id int) (*Entry, error)
	Create(ctx context.Context, kind Kind, e *Entry) error
}
