package scheduling

import (
	"context"

	"github.com/gousa/visacrm/internal/platform/db"
)

// Repository stores appointments. Every write also appends an audit row to
// the owning procedure.
type Repository interface {
	BatchStore
	Create(ctx context.Context, a *Appointment, actor string) error
	GetByID(ctx context.Context, id int, vis db.Visibility) (*Appointment, error)
	Update(ctx context.Context, a *Appointment, actor string) error
	SoftDelete(ctx context.Context, id int, actor string) error
	Search(ctx context.Context, f Filter, limit, offset int) ([]*Appointment, int, error)
}
