package procedure

import (
	"context"

	"github.com/gousa/visacrm/internal/platform/db"
)

// Repository writes every mutation together with its audit row.
type Repository interface {
	Create(ctx context.Context, p *Procedure, actor, action string) error
	GetByID(ctx context.Context, id int, vis db.Visibility) (*Procedure, error)
	ListByCustomer(ctx context.Context, customerID int, vis db.Visibility) ([]*Procedure, error)
	Update(ctx context.Context, p *Procedure, actor, action string) error
	SoftDelete(ctx context.Context, id int, actor, action string) error
	Logs(ctx context.Context, procedureID int) ([]*LogEntry, error)
}
