package customer

import (
	"context"

	"github.com/gousa/visacrm/internal/platform/db"
)

type Repository interface {
	Create(ctx context.Context, c *Customer) error
	GetByID(ctx context.Context, id int, vis db.Visibility) (*Customer, error)
	Update(ctx context.Context, c *Customer) error
	SoftDelete(ctx context.Context, id int) error
	Search(ctx context.Context, q string, vis db.Visibility, limit, offset int) ([]*Customer, int, error)
	// CIInUse reports whether another customer within vis holds ci.
	// excludeID skips the customer being updated; pass 0 on create.
	CIInUse(ctx context.Context, ci string, excludeID int, vis db.Visibility) (bool, error)
}
